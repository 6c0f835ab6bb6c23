package supervisor

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/normanking/switchboard/internal/graph"
	"github.com/normanking/switchboard/internal/llm"
)

// Node identifiers in the pipeline graph.
const (
	NodeIntent     graph.NodeID = "intent"
	NodeSupervisor graph.NodeID = "supervisor"
	NodeResearcher graph.NodeID = "researcher"
	NodeAnalyst    graph.NodeID = "analyst"
	NodeWriter     graph.NodeID = "writer"
	NodeChat       graph.NodeID = "chat"
)

// Config tunes the pipeline service.
type Config struct {
	// TaskTimeout bounds one full run including every gateway call.
	// Zero disables the deadline.
	TaskTimeout time.Duration
}

// DefaultServiceConfig returns sensible defaults. A full pipeline run makes
// at least eight gateway calls, so the budget is generous.
func DefaultServiceConfig() Config {
	return Config{TaskTimeout: 5 * time.Minute}
}

// Outcome is what one pipeline run hands back to the caller.
type Outcome struct {
	// Messages is the full progress transcript, in causal order.
	Messages []llm.Message

	// FinalReport is the rendered report; empty when the request went to
	// normal chat.
	FinalReport string

	// MultiAgent reports whether the intent gate routed the request into
	// the research pipeline.
	MultiAgent bool
}

// Reply is the last assistant message of the run: the report for pipeline
// runs, the chat answer otherwise.
func (o *Outcome) Reply() string {
	if o.FinalReport != "" {
		return o.FinalReport
	}
	for i := len(o.Messages) - 1; i >= 0; i-- {
		if o.Messages[i].Role == llm.RoleAssistant {
			return o.Messages[i].Content
		}
	}
	return ""
}

// Service runs the research pipeline. Each task is an independent run; the
// pipeline keeps no state between tasks.
type Service struct {
	gateway llm.Provider
	runner  *graph.Runner[State, Update]
	cfg     Config
}

// NewService wires the pipeline graph and returns a ready service.
func NewService(gateway llm.Provider, cfg Config) (*Service, error) {
	g := graph.New(Merge)
	g.AddNode(NodeIntent, intentNode(gateway))
	g.AddNode(NodeSupervisor, supervisorNode(gateway))
	g.AddNode(NodeResearcher, researcherNode(gateway))
	g.AddNode(NodeAnalyst, analystNode(gateway))
	g.AddNode(NodeWriter, writerNode(gateway))
	g.AddNode(NodeChat, chatNode(gateway))

	g.AddEdge(graph.Start, NodeIntent)
	g.AddConditionalEdges(NodeIntent, map[graph.Decision]graph.NodeID{
		RouteSupervisor: NodeSupervisor,
		RouteChat:       NodeChat,
	})
	g.AddConditionalEdges(NodeSupervisor, map[graph.Decision]graph.NodeID{
		AgentResearcher: NodeResearcher,
		AgentAnalyst:    NodeAnalyst,
		AgentWriter:     NodeWriter,
		DecisionDone:    graph.End,
	})
	g.AddEdge(NodeResearcher, NodeSupervisor)
	g.AddEdge(NodeAnalyst, NodeSupervisor)
	g.AddEdge(NodeWriter, NodeSupervisor)
	g.AddEdge(NodeChat, graph.End)

	runner, err := g.Compile()
	if err != nil {
		return nil, fmt.Errorf("compile pipeline graph: %w", err)
	}

	return &Service{gateway: gateway, runner: runner, cfg: cfg}, nil
}

// Run executes one task from a fresh state and returns the transcript and,
// for pipeline runs, the final report.
func (s *Service) Run(ctx context.Context, task string) (*Outcome, error) {
	if s.cfg.TaskTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.TaskTimeout)
		defer cancel()
	}

	final, err := s.runner.Invoke(ctx, State{
		CurrentTask: task,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: task}},
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("component", "supervisor").Bool("report", final.FinalReport != "").
		Int("messages", len(final.Messages)).Msg("run complete")
	return &Outcome{
		Messages:    final.Messages,
		FinalReport: final.FinalReport,
		MultiAgent:  final.TaskComplete || final.LastAssigned != "",
	}, nil
}

// Mermaid renders the pipeline graph as Mermaid text.
func (s *Service) Mermaid() string {
	return s.runner.Mermaid()
}
