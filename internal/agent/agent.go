// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package agent runs tool-using LLM conversations against the supported
// providers. A Registry knows which models exist and which have credentials;
// a Session holds one conversation and executes tool calls the model makes
// until it answers in plain text.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
)

// ErrMaxTurns is returned when the model keeps calling tools past the turn
// limit of a session.
var ErrMaxTurns = errors.New("agent exceeded the maximum number of turns")

// API names the wire protocol a model is served over.
type API string

const (
	// APIAnthropic is the Anthropic Messages API.
	APIAnthropic API = "anthropic-messages"
	// APIOpenAI is the OpenAI chat completions API, also offered by Z.ai and
	// Google's compatibility endpoint.
	APIOpenAI API = "openai-completions"
)

// Model describes one model in the catalog.
type Model struct {
	ID            string `json:"id" yaml:"id"`
	Name          string `json:"name" yaml:"name"`
	Provider      string `json:"provider" yaml:"provider"`
	API           API    `json:"api" yaml:"api"`
	BaseURL       string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	ContextWindow int    `json:"context_window,omitempty" yaml:"context_window,omitempty"`
}

// DisplayName is the label shown in model pickers, e.g. "GLM 4.7 Flash (zai)".
func (m Model) DisplayName() string {
	name := m.Name
	if name == "" {
		name = m.ID
	}
	return name + " (" + m.Provider + ")"
}

// Role is the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// PartType distinguishes the fragments of a message.
type PartType string

const (
	PartText     PartType = "text"
	PartToolCall PartType = "tool_call"
)

// Part is one fragment of a message's content.
type Part struct {
	Type PartType `json:"type"`
	Text string   `json:"text,omitempty"`

	// Tool call fields, set when Type is PartToolCall.
	ToolCallID string          `json:"tool_call_id,omitempty"`
	ToolName   string          `json:"tool_name,omitempty"`
	Arguments  json.RawMessage `json:"arguments,omitempty"`
}

// Message is one turn of a conversation. Content is either plain Text or a
// list of Parts; when Parts is set it takes precedence.
type Message struct {
	Role  Role   `json:"role"`
	Text  string `json:"text,omitempty"`
	Parts []Part `json:"parts,omitempty"`

	// ToolCallID links a RoleTool message to the call it answers.
	ToolCallID string `json:"tool_call_id,omitempty"`
	ToolName   string `json:"tool_name,omitempty"`
	IsError    bool   `json:"is_error,omitempty"`
}

// TextContent returns the message text. For fragment content it is the
// concatenation of the text fragments in order.
func (m Message) TextContent() string {
	if m.Parts == nil {
		return m.Text
	}
	var b strings.Builder
	for _, p := range m.Parts {
		if p.Type == PartText {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}

// ToolCalls returns the tool calls requested by the message.
func (m Message) ToolCalls() []Part {
	var calls []Part
	for _, p := range m.Parts {
		if p.Type == PartToolCall {
			calls = append(calls, p)
		}
	}
	return calls
}

// Tool is a function the model may call during a session.
type Tool struct {
	Name        string
	Label       string
	Description string

	// Parameters is the JSON schema of the arguments object.
	Parameters map[string]any

	// Execute runs the tool. The returned text is handed back to the model;
	// an error is reported to the model as a failed call.
	Execute func(ctx context.Context, args json.RawMessage) (string, error)
}

// EventType names a session event.
type EventType string

const (
	EventToolStart EventType = "tool_execution_start"
	EventToolEnd   EventType = "tool_execution_end"
)

// Event is emitted to subscribers while a session runs.
type Event struct {
	Type       EventType
	ToolName   string
	ToolCallID string
	Arguments  json.RawMessage

	// Result and Err are set on EventToolEnd.
	Result string
	Err    error
}

// Conversation is the surface of a session used by callers that drive one.
type Conversation interface {
	Subscribe(fn func(Event)) (unsubscribe func())
	Prompt(ctx context.Context, text string) error
	Messages() []Message
}

// Request is one completion call to a backend.
type Request struct {
	Model     Model
	APIKey    string
	System    string
	Messages  []Message
	Tools     []Tool
	MaxTokens int
}

// Backend speaks one provider API.
type Backend interface {
	Complete(ctx context.Context, req Request) (Message, error)
}
