// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package gardener

import (
	"strings"

	"github.com/zidariuandrei/tane/internal/agent"
)

// extractReport returns the report text from a finished conversation: the
// last message when it is the assistant's, otherwise the most recent
// assistant message. The text is returned verbatim.
func extractReport(msgs []agent.Message) (string, error) {
	var reply *agent.Message
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == agent.RoleAssistant {
			reply = &msgs[i]
			break
		}
	}
	if reply == nil {
		return "", ErrNoReport
	}

	text := reply.TextContent()
	if strings.TrimSpace(text) == "" {
		return "", ErrNoText
	}
	return text, nil
}
