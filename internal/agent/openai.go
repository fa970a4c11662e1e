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

// openAIBaseURL is used for models that do not set a base URL.
var openAIBaseURL = "https://api.openai.com/v1"

// OpenAIBackend calls an OpenAI-compatible chat completions endpoint.
type OpenAIBackend struct {
	Client     *http.Client
	MaxRetries int
	UserAgent  string
}

type openAIRequest struct {
	Model     string          `json:"model"`
	MaxTokens int             `json:"max_tokens,omitempty"`
	Messages  []openAIMessage `json:"messages"`
	Tools     []openAITool    `json:"tools,omitempty"`
}

type openAIMessage struct {
	Role       string           `json:"role"`
	Content    *string          `json:"content"`
	ToolCalls  []openAIToolCall `json:"tool_calls,omitempty"`
	ToolCallID string           `json:"tool_call_id,omitempty"`
}

type openAIToolCall struct {
	ID       string         `json:"id"`
	Type     string         `json:"type"`
	Function openAIFunction `json:"function"`
}

type openAIFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type openAITool struct {
	Type     string            `json:"type"`
	Function openAIFunctionDef `json:"function"`
}

type openAIFunctionDef struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

type openAIResponse struct {
	Choices []struct {
		Message      openAIMessage `json:"message"`
		FinishReason string        `json:"finish_reason"`
	} `json:"choices"`
}

// Complete sends the conversation and returns the assistant reply.
func (b *OpenAIBackend) Complete(ctx context.Context, req Request) (Message, error) {
	body := openAIRequest{
		Model:     req.Model.ID,
		MaxTokens: req.MaxTokens,
		Messages:  toOpenAIMessages(req.System, req.Messages),
	}
	for _, t := range req.Tools {
		body.Tools = append(body.Tools, openAITool{
			Type: "function",
			Function: openAIFunctionDef{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  schemaOrEmpty(t.Parameters),
			},
		})
	}

	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return Message{}, fmt.Errorf("marshaling request: %w", err)
	}

	base := req.Model.BaseURL
	if base == "" {
		base = openAIBaseURL
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(base, "/")+"/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return Message{}, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+req.APIKey)
	if b.UserAgent != "" {
		httpReq.Header.Set("User-Agent", b.UserAgent)
	}

	resp, err := httputil.DoWithRetry(ctx, b.Client, httpReq, b.MaxRetries)
	if err != nil {
		return Message{}, fmt.Errorf("calling %s API: %w", req.Model.Provider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return Message{}, fmt.Errorf("%s API returned %d: %s", req.Model.Provider, resp.StatusCode, string(data))
	}

	var oResp openAIResponse
	if err := json.NewDecoder(resp.Body).Decode(&oResp); err != nil {
		return Message{}, fmt.Errorf("decoding %s response: %w", req.Model.Provider, err)
	}
	if len(oResp.Choices) == 0 {
		return Message{}, fmt.Errorf("%s API returned no choices", req.Model.Provider)
	}

	reply := oResp.Choices[0].Message
	msg := Message{Role: RoleAssistant, Parts: []Part{}}
	if reply.Content != nil && *reply.Content != "" {
		msg.Parts = append(msg.Parts, Part{Type: PartText, Text: *reply.Content})
	}
	for _, call := range reply.ToolCalls {
		args := json.RawMessage(call.Function.Arguments)
		if !json.Valid(args) {
			args = json.RawMessage(`{}`)
		}
		msg.Parts = append(msg.Parts, Part{
			Type:       PartToolCall,
			ToolCallID: call.ID,
			ToolName:   call.Function.Name,
			Arguments:  args,
		})
	}
	return msg, nil
}

func toOpenAIMessages(system string, history []Message) []openAIMessage {
	var out []openAIMessage
	if system != "" {
		out = append(out, openAIMessage{Role: "system", Content: &system})
	}
	for _, m := range history {
		text := m.TextContent()
		switch m.Role {
		case RoleTool:
			out = append(out, openAIMessage{Role: "tool", Content: &text, ToolCallID: m.ToolCallID})
		case RoleAssistant:
			om := openAIMessage{Role: "assistant"}
			if text != "" {
				om.Content = &text
			}
			for _, call := range m.ToolCalls() {
				args := string(call.Arguments)
				if args == "" {
					args = "{}"
				}
				om.ToolCalls = append(om.ToolCalls, openAIToolCall{
					ID:       call.ToolCallID,
					Type:     "function",
					Function: openAIFunction{Name: call.ToolName, Arguments: args},
				})
			}
			out = append(out, om)
		default:
			out = append(out, openAIMessage{Role: "user", Content: &text})
		}
	}
	return out
}
