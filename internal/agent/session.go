// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package agent

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

const (
	defaultMaxTurns  = 12
	defaultMaxTokens = 4096
)

// Session is one conversation with a model. Prompt may be called more than
// once; the history accumulates.
type Session struct {
	model     Model
	apiKey    string
	backend   Backend
	tools     map[string]Tool
	toolList  []Tool
	maxTurns  int
	maxTokens int
	log       zerolog.Logger

	mu       sync.Mutex
	messages []Message
	subs     map[int]func(Event)
	nextSub  int
}

// SessionOptions configures NewSession.
type SessionOptions struct {
	APIKey    string
	Tools     []Tool
	MaxTurns  int
	MaxTokens int
	Logger    zerolog.Logger
}

// NewSession starts an empty conversation with model over backend.
func NewSession(model Model, backend Backend, opts SessionOptions) *Session {
	if opts.MaxTurns <= 0 {
		opts.MaxTurns = defaultMaxTurns
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = defaultMaxTokens
	}
	tools := make(map[string]Tool, len(opts.Tools))
	for _, t := range opts.Tools {
		tools[t.Name] = t
	}
	return &Session{
		model:     model,
		apiKey:    opts.APIKey,
		backend:   backend,
		tools:     tools,
		toolList:  opts.Tools,
		maxTurns:  opts.MaxTurns,
		maxTokens: opts.MaxTokens,
		log:       opts.Logger.With().Str("model", model.ID).Logger(),
		subs:      make(map[int]func(Event)),
	}
}

// Model returns the model the session talks to.
func (s *Session) Model() Model { return s.model }

// Subscribe registers fn for session events and returns a function that
// removes it. fn is called synchronously from the goroutine running Prompt.
func (s *Session) Subscribe(fn func(Event)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Messages returns a copy of the conversation so far.
func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Prompt sends text as a user message and runs the model until it replies
// without tool calls. Each tool call is executed and its result fed back.
// Returns ErrMaxTurns when the model is still calling tools after the turn
// limit.
func (s *Session) Prompt(ctx context.Context, text string) error {
	s.append(Message{Role: RoleUser, Text: text})

	for turn := 0; turn < s.maxTurns; turn++ {
		reply, err := s.backend.Complete(ctx, Request{
			Model:     s.model,
			APIKey:    s.apiKey,
			Messages:  s.Messages(),
			Tools:     s.toolList,
			MaxTokens: s.maxTokens,
		})
		if err != nil {
			return fmt.Errorf("turn %d: %w", turn+1, err)
		}
		reply.Role = RoleAssistant
		s.append(reply)

		calls := reply.ToolCalls()
		if len(calls) == 0 {
			return nil
		}
		for _, call := range calls {
			s.append(s.runTool(ctx, call))
		}
	}
	return ErrMaxTurns
}

func (s *Session) runTool(ctx context.Context, call Part) Message {
	s.emit(Event{
		Type:       EventToolStart,
		ToolName:   call.ToolName,
		ToolCallID: call.ToolCallID,
		Arguments:  call.Arguments,
	})

	result := Message{Role: RoleTool, ToolCallID: call.ToolCallID, ToolName: call.ToolName}
	var err error
	tool, ok := s.tools[call.ToolName]
	switch {
	case !ok:
		err = fmt.Errorf("unknown tool %q", call.ToolName)
	case tool.Execute == nil:
		err = fmt.Errorf("tool %q has no implementation", call.ToolName)
	default:
		result.Text, err = tool.Execute(ctx, call.Arguments)
	}
	if err != nil {
		s.log.Warn().Err(err).Str("tool", call.ToolName).Msg("tool call failed")
		result.Text = "Error: " + err.Error()
		result.IsError = true
	}

	s.emit(Event{
		Type:       EventToolEnd,
		ToolName:   call.ToolName,
		ToolCallID: call.ToolCallID,
		Arguments:  call.Arguments,
		Result:     result.Text,
		Err:        err,
	})
	return result
}

func (s *Session) append(m Message) {
	s.mu.Lock()
	s.messages = append(s.messages, m)
	s.mu.Unlock()
}

func (s *Session) emit(e Event) {
	s.mu.Lock()
	subs := make([]func(Event), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()
	for _, fn := range subs {
		fn(e)
	}
}
