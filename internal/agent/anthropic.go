// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/zidariuandrei/tane/internal/httputil"
)

// anthropicBaseURL is used for models that do not set a base URL.
// Package-level var for test substitution.
var anthropicBaseURL = "https://api.anthropic.com"

const anthropicVersion = "2023-06-01"

// AnthropicBackend calls the Anthropic Messages API.
type AnthropicBackend struct {
	Client     *http.Client
	MaxRetries int
	UserAgent  string
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
	Tools     []anthropicTool    `json:"tools,omitempty"`
}

type anthropicMessage struct {
	Role    string           `json:"role"`
	Content []anthropicBlock `json:"content"`
}

// anthropicBlock is a content block in either direction.
type anthropicBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`

	// tool_use
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`

	// tool_result
	ToolUseID string `json:"tool_use_id,omitempty"`
	Content   string `json:"content,omitempty"`
	IsError   bool   `json:"is_error,omitempty"`
}

type anthropicTool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

type anthropicResponse struct {
	Content    []anthropicBlock `json:"content"`
	StopReason string           `json:"stop_reason"`
}

// Complete sends the conversation and returns the assistant reply.
func (b *AnthropicBackend) Complete(ctx context.Context, req Request) (Message, error) {
	body := anthropicRequest{
		Model:     req.Model.ID,
		MaxTokens: req.MaxTokens,
		System:    req.System,
		Messages:  toAnthropicMessages(req.Messages),
	}
	for _, t := range req.Tools {
		body.Tools = append(body.Tools, anthropicTool{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: schemaOrEmpty(t.Parameters),
		})
	}

	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return Message{}, fmt.Errorf("marshaling request: %w", err)
	}

	base := req.Model.BaseURL
	if base == "" {
		base = anthropicBaseURL
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(base, "/")+"/v1/messages", bytes.NewReader(bodyBytes))
	if err != nil {
		return Message{}, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", req.APIKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)
	if b.UserAgent != "" {
		httpReq.Header.Set("User-Agent", b.UserAgent)
	}

	resp, err := httputil.DoWithRetry(ctx, b.Client, httpReq, b.MaxRetries)
	if err != nil {
		return Message{}, fmt.Errorf("calling Anthropic API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return Message{}, fmt.Errorf("Anthropic API returned %d: %s", resp.StatusCode, string(data))
	}

	var aResp anthropicResponse
	if err := json.NewDecoder(resp.Body).Decode(&aResp); err != nil {
		return Message{}, fmt.Errorf("decoding Anthropic response: %w", err)
	}

	msg := Message{Role: RoleAssistant, Parts: []Part{}}
	for _, block := range aResp.Content {
		switch block.Type {
		case "text":
			msg.Parts = append(msg.Parts, Part{Type: PartText, Text: block.Text})
		case "tool_use":
			msg.Parts = append(msg.Parts, Part{
				Type:       PartToolCall,
				ToolCallID: block.ID,
				ToolName:   block.Name,
				Arguments:  block.Input,
			})
		}
	}
	return msg, nil
}

// toAnthropicMessages converts history to the Messages API shape. Tool
// results travel as user messages; consecutive results share one message.
func toAnthropicMessages(history []Message) []anthropicMessage {
	var out []anthropicMessage
	for _, m := range history {
		switch m.Role {
		case RoleTool:
			block := anthropicBlock{
				Type:      "tool_result",
				ToolUseID: m.ToolCallID,
				Content:   m.Text,
				IsError:   m.IsError,
			}
			if n := len(out); n > 0 && out[n-1].Role == "user" && isToolResults(out[n-1]) {
				out[n-1].Content = append(out[n-1].Content, block)
				continue
			}
			out = append(out, anthropicMessage{Role: "user", Content: []anthropicBlock{block}})

		case RoleAssistant:
			am := anthropicMessage{Role: "assistant"}
			if m.Parts == nil {
				am.Content = append(am.Content, anthropicBlock{Type: "text", Text: m.Text})
			}
			for _, p := range m.Parts {
				switch p.Type {
				case PartText:
					if p.Text != "" {
						am.Content = append(am.Content, anthropicBlock{Type: "text", Text: p.Text})
					}
				case PartToolCall:
					input := p.Arguments
					if len(input) == 0 {
						input = json.RawMessage(`{}`)
					}
					am.Content = append(am.Content, anthropicBlock{
						Type: "tool_use", ID: p.ToolCallID, Name: p.ToolName, Input: input,
					})
				}
			}
			out = append(out, am)

		default:
			out = append(out, anthropicMessage{
				Role:    "user",
				Content: []anthropicBlock{{Type: "text", Text: m.TextContent()}},
			})
		}
	}
	return out
}

func isToolResults(m anthropicMessage) bool {
	for _, b := range m.Content {
		if b.Type != "tool_result" {
			return false
		}
	}
	return len(m.Content) > 0
}

func schemaOrEmpty(schema map[string]any) map[string]any {
	if schema == nil {
		return map[string]any{"type": "object", "properties": map[string]any{}}
	}
	return schema
}
