package chatbot

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/normanking/switchboard/internal/graph"
	"github.com/normanking/switchboard/internal/llm"
	"github.com/normanking/switchboard/internal/tools"
)

// Node identifiers in the chat graph.
const (
	NodeClassifier graph.NodeID = "classifier"
	NodeRouter     graph.NodeID = "router"
	NodeLogical    graph.NodeID = "logical"
	NodeTherapist  graph.NodeID = "therapist"
)

// Config tunes the chat service.
type Config struct {
	// TurnTimeout bounds one full turn including all gateway calls.
	// Zero disables the deadline. Expiry is a recoverable failure: the
	// turn aborts, the conversation stays usable.
	TurnTimeout time.Duration
}

// DefaultServiceConfig returns sensible defaults.
func DefaultServiceConfig() Config {
	return Config{TurnTimeout: 2 * time.Minute}
}

// Reply is what one turn hands back to the caller.
type Reply struct {
	// ThreadID identifies the conversation; generated when the caller
	// starts a new one.
	ThreadID string

	// Text is the assistant's reply, empty while a tool approval is pending.
	Text string

	// Pending is non-nil when a proposed tool call awaits approval.
	Pending *PendingTool
}

// PendingTool is a proposed tool call waiting on the user's decision.
type PendingTool struct {
	// Token resumes this proposal via Resolve.
	Token string

	// Tool is the proposed tool name, surfaced to the user.
	Tool string

	// Question is the user-facing approval prompt.
	Question string
}

// IsAffirmative reports whether a user response approves a proposed tool
// call: exactly "yes" after trimming, case-insensitive.
func IsAffirmative(s string) bool {
	return strings.EqualFold(strings.TrimSpace(s), "yes")
}

// Service runs the chat workflow over checkpointed conversation state.
type Service struct {
	gateway  llm.Provider
	registry *tools.Registry
	runner   *graph.Runner[State, Update]
	saver    *graph.MemorySaver[State]
	cfg      Config

	mu      sync.Mutex
	pending map[string]string // approval token -> thread ID
}

// NewService wires the chat graph and returns a ready service.
func NewService(gateway llm.Provider, registry *tools.Registry, cfg Config) (*Service, error) {
	g := graph.New(Merge)
	g.AddNode(NodeClassifier, classifierNode(gateway))
	g.AddNode(NodeRouter, routerNode())
	g.AddNode(NodeLogical, logicalNode(gateway, registry))
	g.AddNode(NodeTherapist, therapistNode(gateway))

	g.AddEdge(graph.Start, NodeClassifier)
	g.AddEdge(NodeClassifier, NodeRouter)
	g.AddConditionalEdges(NodeRouter, map[graph.Decision]graph.NodeID{
		RouteLogical:   NodeLogical,
		RouteTherapist: NodeTherapist,
	})
	g.AddEdge(NodeLogical, graph.End)
	g.AddEdge(NodeTherapist, graph.End)

	runner, err := g.Compile()
	if err != nil {
		return nil, fmt.Errorf("compile chat graph: %w", err)
	}

	return &Service{
		gateway:  gateway,
		registry: registry,
		runner:   runner,
		saver:    graph.NewMemorySaver[State](),
		cfg:      cfg,
		pending:  make(map[string]string),
	}, nil
}

// Send runs one turn for a thread. An empty threadID starts a new
// conversation. When the logical agent proposes a tool, the reply carries a
// pending approval instead of text; resolve it with Resolve.
func (s *Service) Send(ctx context.Context, threadID, text string) (*Reply, error) {
	if threadID == "" {
		threadID = uuid.NewString()
	}
	ctx, cancel := s.turnContext(ctx)
	defer cancel()

	reply := &Reply{ThreadID: threadID}
	err := s.saver.Update(threadID, func(state State, _ bool) (State, error) {
		// A new turn supersedes any unresolved proposal from the last
		// one; its preview message must go too, a dangling tool_calls
		// entry would poison every later gateway request.
		state = dropPendingPreview(state)
		state.MessageType = ""
		state.Next = ""
		state.Pending = nil
		state.Messages = append(state.Messages, llm.Message{Role: llm.RoleUser, Content: text})

		final, err := s.runner.Invoke(ctx, state)
		if err != nil {
			return state, err
		}

		if final.Pending != nil {
			reply.Pending = s.registerProposal(threadID, final.Pending.Call.Name)
		} else {
			reply.Text = final.lastAssistantMessage()
		}
		return final, nil
	})
	if err != nil {
		return nil, err
	}

	log.Debug().Str("component", "chatbot").Str("thread", threadID).
		Bool("pending", reply.Pending != nil).Msg("turn complete")
	return reply, nil
}

// Resolve finishes a pending tool proposal. The decision approves only when
// it is affirmative; anything else declines and still yields a reply.
func (s *Service) Resolve(ctx context.Context, token, decision string) (*Reply, error) {
	s.mu.Lock()
	threadID, ok := s.pending[token]
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("unknown approval token %q", token)
	}

	ctx, cancel := s.turnContext(ctx)
	defer cancel()

	reply := &Reply{ThreadID: threadID}
	err := s.saver.Update(threadID, func(state State, found bool) (State, error) {
		if !found || state.Pending == nil {
			return state, fmt.Errorf("thread %s has no pending tool proposal", threadID)
		}

		var (
			update Update
			err    error
		)
		if IsAffirmative(decision) {
			update, err = executeApproved(ctx, s.gateway, s.registry, state)
			if err != nil {
				return state, err
			}
		} else {
			// Declining drops the proposal entirely: the preview
			// message never resolves, so it cannot stay in history.
			state = dropPendingPreview(state)
			update = declineProposed()
		}

		state = Merge(state, update)
		reply.Text = state.lastAssistantMessage()
		return state, nil
	})
	if err != nil {
		// The token stays redeemable: a transient gateway failure
		// during execution must not strand the proposal.
		return nil, err
	}

	s.mu.Lock()
	delete(s.pending, token)
	s.mu.Unlock()
	return reply, nil
}

// Chat is the single-shot surface used by the HTTP boundary: the message and
// an optional up-front approval decision arrive together. When a tool is
// proposed and an approval string was supplied, the proposal resolves
// immediately; otherwise the pending proposal is returned to the caller.
func (s *Service) Chat(ctx context.Context, threadID, text, approval string) (*Reply, error) {
	reply, err := s.Send(ctx, threadID, text)
	if err != nil {
		return nil, err
	}
	if reply.Pending == nil || approval == "" {
		return reply, nil
	}
	return s.Resolve(ctx, reply.Pending.Token, approval)
}

// History returns a copy of a thread's message history.
func (s *Service) History(threadID string) []llm.Message {
	state, ok := s.saver.Get(threadID)
	if !ok {
		return nil
	}
	return append([]llm.Message{}, state.Messages...)
}

// Mermaid renders the chat graph as Mermaid text.
func (s *Service) Mermaid() string {
	return s.runner.Mermaid()
}

func (s *Service) registerProposal(threadID, tool string) *PendingTool {
	token := uuid.NewString()
	s.mu.Lock()
	s.pending[token] = threadID
	s.mu.Unlock()
	return &PendingTool{
		Token:    token,
		Tool:     tool,
		Question: fmt.Sprintf("I can use the tool '%s' to help with this. Do you want me to use it? (yes/no)", tool),
	}
}

func (s *Service) turnContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.TurnTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.cfg.TurnTimeout)
}
