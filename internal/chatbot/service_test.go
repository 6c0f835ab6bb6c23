package chatbot

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/normanking/switchboard/internal/llm"
	"github.com/normanking/switchboard/internal/tools"
)

// mockGateway replays canned responses in order and records every request.
type mockGateway struct {
	responses []*llm.ChatResponse
	requests  []*llm.ChatRequest
	errAt     map[int]error // call index -> error
}

func (m *mockGateway) Chat(_ context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	idx := len(m.requests)
	m.requests = append(m.requests, req)
	if err, ok := m.errAt[idx]; ok {
		return nil, err
	}
	if idx >= len(m.responses) {
		return &llm.ChatResponse{Content: "out of script"}, nil
	}
	return m.responses[idx], nil
}

func (m *mockGateway) Name() string    { return "mock" }
func (m *mockGateway) Available() bool { return true }

func classified(label string) *llm.ChatResponse {
	return &llm.ChatResponse{Content: `{"message_type": "` + label + `"}`}
}

func newTestService(t *testing.T, gw *mockGateway) *Service {
	t.Helper()
	svc, err := NewService(gw, tools.DefaultRegistry(), Config{})
	require.NoError(t, err)
	return svc
}

func TestStockPriceToolApprovedEndToEnd(t *testing.T) {
	gw := &mockGateway{responses: []*llm.ChatResponse{
		classified("logical"),
		{ToolCalls: []llm.ToolCall{{ID: "call_1", Name: "get_stock_price", Arguments: `{"company_name": "Apple"}`}}},
		{Content: "Apple is trading at 350.5 today."},
	}}
	svc := newTestService(t, gw)

	reply, err := svc.Send(context.Background(), "", "What's the stock price of Apple?")
	require.NoError(t, err)
	require.NotNil(t, reply.Pending)
	assert.Equal(t, "get_stock_price", reply.Pending.Tool)
	assert.Empty(t, reply.Text)

	final, err := svc.Resolve(context.Background(), reply.Pending.Token, "yes")
	require.NoError(t, err)
	assert.Contains(t, final.Text, "350.5")

	// The post-approval re-invocation must have seen the tool result.
	require.Len(t, gw.requests, 3)
	last := gw.requests[2].Messages
	var sawToolResult bool
	for _, msg := range last {
		if msg.Role == llm.RoleTool && msg.Content == "350.5" {
			sawToolResult = true
		}
	}
	assert.True(t, sawToolResult, "tool result message missing from final gateway call")

	// And the history must order tool result after the call that produced it.
	history := svc.History(final.ThreadID)
	var callIdx, resultIdx int
	for i, msg := range history {
		if len(msg.ToolCalls) > 0 {
			callIdx = i
		}
		if msg.Role == llm.RoleTool {
			resultIdx = i
		}
	}
	assert.Greater(t, resultIdx, callIdx)
}

func TestToolApprovalWithheld(t *testing.T) {
	gw := &mockGateway{responses: []*llm.ChatResponse{
		classified("logical"),
		{ToolCalls: []llm.ToolCall{{Name: "get_ticket_price", Arguments: `{"destination_city": "Tokyo"}`}}},
	}}

	// A registry wrapper that fails the test if the tool ever runs.
	registry := tools.NewRegistry()
	registry.Register(tools.MustTool("get_ticket_price", "ticket price",
		func(_ context.Context, _ struct{}) (string, error) {
			t.Fatal("tool invoked despite withheld approval")
			return "", nil
		}))

	svc, err := NewService(gw, registry, Config{})
	require.NoError(t, err)

	reply, err := svc.Send(context.Background(), "", "How much is a ticket to Tokyo?")
	require.NoError(t, err)
	require.NotNil(t, reply.Pending)

	final, err := svc.Resolve(context.Background(), reply.Pending.Token, "nah")
	require.NoError(t, err)
	assert.Equal(t, RefusalReply, final.Text)

	// No third gateway call happened.
	assert.Len(t, gw.requests, 2)
}

func TestApprovalTokenIsSingleUse(t *testing.T) {
	gw := &mockGateway{responses: []*llm.ChatResponse{
		classified("logical"),
		{ToolCalls: []llm.ToolCall{{Name: "get_stock_price", Arguments: `{"company_name": "Apple"}`}}},
		{Content: "350.5"},
	}}
	svc := newTestService(t, gw)

	reply, err := svc.Send(context.Background(), "", "Apple stock?")
	require.NoError(t, err)
	require.NotNil(t, reply.Pending)

	_, err = svc.Resolve(context.Background(), reply.Pending.Token, "yes")
	require.NoError(t, err)

	_, err = svc.Resolve(context.Background(), reply.Pending.Token, "yes")
	assert.Error(t, err)
}

func TestTherapistSeesOnlyLastMessage(t *testing.T) {
	gw := &mockGateway{responses: []*llm.ChatResponse{
		// Turn 1: logical, direct answer.
		classified("logical"),
		{Content: "4"},
		// Turn 2: emotional.
		classified("emotional"),
		{Content: "That sounds really hard. I'm here with you."},
	}}
	svc := newTestService(t, gw)

	first, err := svc.Send(context.Background(), "", "What is 2+2?")
	require.NoError(t, err)
	assert.Equal(t, "4", first.Text)

	second, err := svc.Send(context.Background(), first.ThreadID, "I'm feeling really anxious today")
	require.NoError(t, err)
	assert.Contains(t, second.Text, "here with you")

	// The therapist call (index 3) must carry only the latest user message.
	require.Len(t, gw.requests, 4)
	therapistReq := gw.requests[3]
	require.Len(t, therapistReq.Messages, 1)
	assert.Equal(t, "I'm feeling really anxious today", therapistReq.Messages[0].Content)

	// The logical agent, by contrast, received full history on turn 1 plus
	// nothing from the future: sanity-check the preview saw the user turn.
	assert.NotEmpty(t, gw.requests[1].Messages)
}

func TestUncoercibleClassificationAbortsTurn(t *testing.T) {
	gw := &mockGateway{responses: []*llm.ChatResponse{
		{Content: "definitely a logical one, happy to help!"},
	}}
	svc := newTestService(t, gw)

	_, err := svc.Send(context.Background(), "thread-1", "hello")
	var cerr *ClassificationError
	require.ErrorAs(t, err, &cerr)

	// The failed turn must not corrupt committed state.
	assert.Empty(t, svc.History("thread-1"))
}

func TestGatewayFailureAbortsClassification(t *testing.T) {
	gw := &mockGateway{errAt: map[int]error{
		0: &llm.GatewayError{Provider: "mock", Err: errors.New("connection refused")},
	}}
	svc := newTestService(t, gw)

	_, err := svc.Send(context.Background(), "", "hello")
	var cerr *ClassificationError
	require.ErrorAs(t, err, &cerr)
	assert.True(t, llm.AsGatewayError(err))
}

func TestInvalidLabelRejected(t *testing.T) {
	gw := &mockGateway{responses: []*llm.ChatResponse{
		classified("sarcastic"),
	}}
	svc := newTestService(t, gw)

	_, err := svc.Send(context.Background(), "", "hello")
	var cerr *ClassificationError
	require.ErrorAs(t, err, &cerr)
}

func TestUnregisteredToolFallsBackToDirectAnswer(t *testing.T) {
	gw := &mockGateway{responses: []*llm.ChatResponse{
		classified("logical"),
		{ToolCalls: []llm.ToolCall{{Name: "get_weather", Arguments: `{"city": "Lahore"}`}}},
		{Content: "I can't check live weather, but it's usually warm this season."},
	}}
	svc := newTestService(t, gw)

	reply, err := svc.Send(context.Background(), "", "What's the weather in Lahore?")
	require.NoError(t, err)
	assert.Nil(t, reply.Pending)
	assert.Contains(t, reply.Text, "usually warm")

	// The fallback call must not bind tools.
	require.Len(t, gw.requests, 3)
	assert.Empty(t, gw.requests[2].Tools)
}

func TestChatSingleShotWithUpfrontApproval(t *testing.T) {
	gw := &mockGateway{responses: []*llm.ChatResponse{
		classified("logical"),
		{ToolCalls: []llm.ToolCall{{Name: "get_ticket_price", Arguments: `{"destination_city": "Tokyo"}`}}},
		{Content: "A ticket to Tokyo costs $561.2."},
	}}
	svc := newTestService(t, gw)

	reply, err := svc.Chat(context.Background(), "", "Ticket to Tokyo?", "YES")
	require.NoError(t, err)
	assert.Nil(t, reply.Pending)
	assert.Contains(t, reply.Text, "$561.2")
}

func TestChatSingleShotWithoutApprovalReturnsPending(t *testing.T) {
	gw := &mockGateway{responses: []*llm.ChatResponse{
		classified("logical"),
		{ToolCalls: []llm.ToolCall{{Name: "get_ticket_price", Arguments: `{"destination_city": "Tokyo"}`}}},
	}}
	svc := newTestService(t, gw)

	reply, err := svc.Chat(context.Background(), "", "Ticket to Tokyo?", "")
	require.NoError(t, err)
	require.NotNil(t, reply.Pending)
	assert.Equal(t, "get_ticket_price", reply.Pending.Tool)
}

func TestNewTurnSupersedesStaleProposal(t *testing.T) {
	gw := &mockGateway{responses: []*llm.ChatResponse{
		classified("logical"),
		{ToolCalls: []llm.ToolCall{{Name: "get_stock_price", Arguments: `{"company_name": "Apple"}`}}},
		classified("logical"),
		{Content: "Paris is the capital of France."},
	}}
	svc := newTestService(t, gw)

	first, err := svc.Send(context.Background(), "", "Apple stock?")
	require.NoError(t, err)
	require.NotNil(t, first.Pending)

	// User ignores the proposal and asks something else on the same thread.
	second, err := svc.Send(context.Background(), first.ThreadID, "Capital of France?")
	require.NoError(t, err)
	assert.Nil(t, second.Pending)
	assert.Contains(t, second.Text, "Paris")

	// The superseded preview must not reach the gateway on the new turn.
	require.Len(t, gw.requests, 4)
	assert.Empty(t, unresolvedToolCalls(gw.requests[3].Messages))
	assert.Empty(t, unresolvedToolCalls(svc.History(first.ThreadID)))
}

// unresolvedToolCalls returns the IDs of assistant tool calls that have no
// matching tool result message.
func unresolvedToolCalls(msgs []llm.Message) []string {
	resolved := make(map[string]bool)
	for _, msg := range msgs {
		if msg.Role == llm.RoleTool {
			resolved[msg.ToolCallID] = true
		}
	}
	var dangling []string
	for _, msg := range msgs {
		if msg.Role != llm.RoleAssistant {
			continue
		}
		for _, call := range msg.ToolCalls {
			if !resolved[call.ID] {
				dangling = append(dangling, call.ID)
			}
		}
	}
	return dangling
}

func TestDeclinedProposalLeavesNoDanglingToolCalls(t *testing.T) {
	gw := &mockGateway{responses: []*llm.ChatResponse{
		classified("logical"),
		{ToolCalls: []llm.ToolCall{{ID: "call_1", Name: "get_stock_price", Arguments: `{"company_name": "Apple"}`}}},
		classified("logical"),
		{Content: "Paris is the capital of France."},
	}}
	svc := newTestService(t, gw)

	first, err := svc.Send(context.Background(), "", "Apple stock?")
	require.NoError(t, err)
	require.NotNil(t, first.Pending)

	declined, err := svc.Resolve(context.Background(), first.Pending.Token, "no")
	require.NoError(t, err)
	assert.Equal(t, RefusalReply, declined.Text)

	// The declined preview is gone from history, so later turns never
	// replay an unresolved tool_calls message to the gateway.
	assert.Empty(t, unresolvedToolCalls(svc.History(first.ThreadID)))

	second, err := svc.Send(context.Background(), first.ThreadID, "Capital of France?")
	require.NoError(t, err)
	assert.Contains(t, second.Text, "Paris")

	require.Len(t, gw.requests, 4)
	assert.Empty(t, unresolvedToolCalls(gw.requests[3].Messages))
}

func TestApprovalTokenSurvivesGatewayFailure(t *testing.T) {
	gw := &mockGateway{
		responses: []*llm.ChatResponse{
			classified("logical"),
			{ToolCalls: []llm.ToolCall{{ID: "call_1", Name: "get_stock_price", Arguments: `{"company_name": "Apple"}`}}},
			nil, // consumed by errAt
			{Content: "Apple is trading at 350.5."},
		},
		errAt: map[int]error{2: &llm.GatewayError{Provider: "mock", Err: errors.New("connection reset")}},
	}
	svc := newTestService(t, gw)

	reply, err := svc.Send(context.Background(), "", "Apple stock?")
	require.NoError(t, err)
	require.NotNil(t, reply.Pending)

	// The gateway drops out while composing the post-tool answer.
	_, err = svc.Resolve(context.Background(), reply.Pending.Token, "yes")
	require.Error(t, err)
	assert.True(t, llm.AsGatewayError(err))

	// The token was not burned: the same proposal resolves on retry.
	final, err := svc.Resolve(context.Background(), reply.Pending.Token, "yes")
	require.NoError(t, err)
	assert.Contains(t, final.Text, "350.5")
}

func TestMermaidShowsChatTopology(t *testing.T) {
	svc := newTestService(t, &mockGateway{})
	m := svc.Mermaid()
	assert.Contains(t, m, "classifier --> router")
	assert.Contains(t, m, "router -->|logical| logical")
	assert.Contains(t, m, "router -->|therapist| therapist")
}
