// Package chatbot implements the logical/therapist chat workflow: classify
// the incoming message, route it to a specialized agent, and gate any tool
// use behind explicit user approval.
package chatbot

import (
	"fmt"

	"github.com/normanking/switchboard/internal/graph"
	"github.com/normanking/switchboard/internal/llm"
)

// MessageType is the classification label for a user message.
type MessageType string

const (
	MessageTypeLogical   MessageType = "logical"
	MessageTypeEmotional MessageType = "emotional"
)

// Valid reports whether the label belongs to the closed set.
func (m MessageType) Valid() bool {
	return m == MessageTypeLogical || m == MessageTypeEmotional
}

// ToolProposal records a tool call the logical agent wants to make, held
// until the user approves or declines it.
type ToolProposal struct {
	Call llm.ToolCall
}

// State is the conversation state threaded through every node. Messages are
// append-only; MessageType and Next are recomputed each turn and never carry
// over from a previous one.
type State struct {
	Messages    []llm.Message
	MessageType MessageType
	Next        graph.Decision
	Pending     *ToolProposal
}

// LastUserMessage returns the content of the most recent user message.
func (s State) LastUserMessage() string {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == llm.RoleUser {
			return s.Messages[i].Content
		}
	}
	return ""
}

// lastAssistantMessage returns the content of the most recent assistant message.
func (s State) lastAssistantMessage() string {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == llm.RoleAssistant {
			return s.Messages[i].Content
		}
	}
	return ""
}

// dropPendingPreview removes the assistant message proposing the pending tool
// call from history. A tool_calls message with no matching tool result is
// rejected by the chat completion APIs, so a declined or superseded proposal
// must not leave its preview behind.
func dropPendingPreview(s State) State {
	if s.Pending == nil {
		return s
	}
	for i := len(s.Messages) - 1; i >= 0; i-- {
		msg := s.Messages[i]
		if msg.Role == llm.RoleAssistant && len(msg.ToolCalls) > 0 {
			s.Messages = append(append([]llm.Message{}, s.Messages[:i]...), s.Messages[i+1:]...)
			return s
		}
	}
	return s
}

// Update is a node's partial state change. Messages append; the pointer
// fields overwrite when non-nil.
type Update struct {
	Messages     []llm.Message
	MessageType  *MessageType
	Next         *graph.Decision
	Pending      *ToolProposal
	ClearPending bool
}

// Merge folds an update into the state.
func Merge(s State, u Update) State {
	s.Messages = append(s.Messages, u.Messages...)
	if u.MessageType != nil {
		s.MessageType = *u.MessageType
	}
	if u.Next != nil {
		s.Next = *u.Next
	}
	if u.ClearPending {
		s.Pending = nil
	}
	if u.Pending != nil {
		s.Pending = u.Pending
	}
	return s
}

// ClassificationError reports that the gateway was unreachable or returned
// output that cannot be coerced to the label set. The turn aborts before any
// agent runs.
type ClassificationError struct {
	Err error
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("classify message: %v", e.Err)
}

func (e *ClassificationError) Unwrap() error { return e.Err }
