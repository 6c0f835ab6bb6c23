package supervisor

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/normanking/switchboard/internal/graph"
	"github.com/normanking/switchboard/internal/llm"
)

const (
	supervisorAllDone    = "✅ Supervisor: All tasks complete! Great work team."
	supervisorSeemsDone  = "✅ Supervisor: Task seems complete."
	supervisorToResearch = "📋 Supervisor: Let's start with research. Assigning to Researcher..."
	supervisorToAnalysis = "📋 Supervisor: Research done. Time for analysis. Assigning to Analyst..."
	supervisorToWriting  = "📋 Supervisor: Analysis complete. Let's create the report. Assigning to Writer..."
)

// supervisorNode decides which agent works next. It asks the model, then
// reconciles the answer against what the state actually holds, so a
// hallucinated assignment cannot skip a stage or reorder the pipeline. An
// agent that was dispatched and came back without its artifact means the
// workflow cannot progress; that run is aborted rather than looped.
func supervisorNode(gateway llm.Provider) graph.NodeFunc[State, Update] {
	return func(ctx context.Context, s State) (graph.Result[Update], error) {
		if err := checkStuck(s); err != nil {
			return graph.Result[Update]{}, err
		}

		if s.TaskComplete || s.FinalReport != "" {
			return finish(supervisorAllDone), nil
		}

		resp, err := gateway.Chat(ctx, &llm.ChatRequest{
			SystemPrompt: fmt.Sprintf(supervisorPrompt,
				s.ResearchData != "", s.Analysis != "", s.FinalReport != ""),
			Messages: []llm.Message{
				{Role: llm.RoleUser, Content: fmt.Sprintf("Task: %s", s.CurrentTask)},
			},
		})
		if err != nil {
			return graph.Result[Update]{}, fmt.Errorf("supervisor: %w", err)
		}

		next, status := reconcile(strings.ToLower(strings.TrimSpace(resp.Content)), s)
		log.Debug().Str("component", "supervisor").Str("decision", string(next)).
			Str("raw", resp.Content).Msg("agent assigned")

		if next == DecisionDone {
			return finish(status), nil
		}
		assigned := next
		return graph.Result[Update]{
			Update: Update{
				NextAgent:    &assigned,
				LastAssigned: &assigned,
				Messages:     []llm.Message{{Role: llm.RoleAssistant, Content: status}},
			},
			Goto: next,
		}, nil
	}
}

// reconcile maps the model's free-text decision onto the one assignment the
// pipeline order permits. State wins over the text: a missing artifact forces
// its producing agent regardless of what the model said.
func reconcile(decision string, s State) (graph.Decision, string) {
	switch {
	case strings.Contains(decision, "done") || s.FinalReport != "":
		return DecisionDone, supervisorAllDone
	case strings.Contains(decision, "researcher") || s.ResearchData == "":
		return AgentResearcher, supervisorToResearch
	case strings.Contains(decision, "analyst") || (s.ResearchData != "" && s.Analysis == ""):
		return AgentAnalyst, supervisorToAnalysis
	case strings.Contains(decision, "writer") || (s.Analysis != "" && s.FinalReport == ""):
		return AgentWriter, supervisorToWriting
	default:
		return DecisionDone, supervisorSeemsDone
	}
}

// checkStuck detects an agent that ran but produced nothing: re-dispatching
// it would loop until the hop budget, so fail the run with the reason.
func checkStuck(s State) error {
	var missing string
	switch {
	case s.LastAssigned == AgentResearcher && s.ResearchData == "":
		missing = "research data"
	case s.LastAssigned == AgentAnalyst && s.Analysis == "":
		missing = "analysis"
	case s.LastAssigned == AgentWriter && s.FinalReport == "":
		missing = "final report"
	default:
		return nil
	}
	return &graph.RoutingExhaustedError{
		Node:   graph.NodeID(s.LastAssigned),
		Reason: fmt.Sprintf("%s completed without producing %s", s.LastAssigned, missing),
	}
}

func finish(status string) graph.Result[Update] {
	done := true
	return graph.Result[Update]{
		Update: Update{
			TaskComplete: &done,
			Messages:     []llm.Message{{Role: llm.RoleAssistant, Content: status}},
		},
		Goto: DecisionDone,
	}
}
