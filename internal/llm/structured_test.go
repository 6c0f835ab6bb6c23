package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedProvider returns canned responses in order.
type scriptedProvider struct {
	responses []*ChatResponse
	requests  []*ChatRequest
	err       error
}

func (s *scriptedProvider) Chat(_ context.Context, req *ChatRequest) (*ChatResponse, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return nil, s.err
	}
	if len(s.responses) == 0 {
		return &ChatResponse{Content: ""}, nil
	}
	resp := s.responses[0]
	if len(s.responses) > 1 {
		s.responses = s.responses[1:]
	}
	return resp, nil
}

func (s *scriptedProvider) Name() string    { return "scripted" }
func (s *scriptedProvider) Available() bool { return true }

type label struct {
	MessageType string `json:"message_type"`
}

func TestStructuredDecodesCleanJSON(t *testing.T) {
	p := &scriptedProvider{responses: []*ChatResponse{
		{Content: `{"message_type": "emotional"}`},
	}}

	out, err := Structured[label](context.Background(), p, &ChatRequest{
		SystemPrompt: "Classify this user message.",
		Messages:     []Message{{Role: RoleUser, Content: "I feel sad"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "emotional", out.MessageType)

	// The schema must have been appended to the system prompt.
	require.Len(t, p.requests, 1)
	assert.Contains(t, p.requests[0].SystemPrompt, "message_type")
}

func TestStructuredRepairsMalformedJSON(t *testing.T) {
	p := &scriptedProvider{responses: []*ChatResponse{
		// Trailing comma and single quotes: repairable.
		{Content: `{'message_type': 'logical',}`},
	}}

	out, err := Structured[label](context.Background(), p, &ChatRequest{})
	require.NoError(t, err)
	assert.Equal(t, "logical", out.MessageType)
}

func TestStructuredStripsCodeFences(t *testing.T) {
	p := &scriptedProvider{responses: []*ChatResponse{
		{Content: "```json\n{\"message_type\": \"logical\"}\n```"},
	}}

	out, err := Structured[label](context.Background(), p, &ChatRequest{})
	require.NoError(t, err)
	assert.Equal(t, "logical", out.MessageType)
}

func TestStructuredFailsOnProse(t *testing.T) {
	p := &scriptedProvider{responses: []*ChatResponse{
		{Content: "I would classify this as a logical question."},
	}}

	_, err := Structured[label](context.Background(), p, &ChatRequest{})
	assert.Error(t, err)
}

func TestStructuredPropagatesGatewayError(t *testing.T) {
	p := &scriptedProvider{err: &GatewayError{Provider: "scripted", Err: context.DeadlineExceeded}}

	_, err := Structured[label](context.Background(), p, &ChatRequest{})
	require.Error(t, err)
	assert.True(t, AsGatewayError(err))
}
