// Package supervisor implements the research pipeline workflow: an intent
// gate decides whether a request needs the multi-agent system, then a
// supervisor assigns researcher, analyst, and writer in turn until the final
// report exists.
package supervisor

import (
	"github.com/normanking/switchboard/internal/graph"
	"github.com/normanking/switchboard/internal/llm"
)

// Routing decisions used across the pipeline graph.
const (
	AgentResearcher graph.Decision = "researcher"
	AgentAnalyst    graph.Decision = "analyst"
	AgentWriter     graph.Decision = "writer"
	RouteSupervisor graph.Decision = "supervisor"
	RouteChat       graph.Decision = "chat"
	DecisionDone    graph.Decision = "done"
)

// State accumulates one task's run. Each artifact is produced by exactly one
// agent and, once set, is immutable for the remainder of the run (Merge
// enforces first-write-wins).
type State struct {
	Messages     []llm.Message
	CurrentTask  string
	ResearchData string
	Analysis     string
	FinalReport  string
	NextAgent    graph.Decision
	TaskComplete bool

	// lastAssigned is the agent the supervisor dispatched on its previous
	// evaluation, kept for stuck-state detection.
	LastAssigned graph.Decision
}

// Update is a node's partial state change.
type Update struct {
	Messages     []llm.Message
	CurrentTask  *string
	ResearchData *string
	Analysis     *string
	FinalReport  *string
	NextAgent    *graph.Decision
	TaskComplete *bool
	LastAssigned *graph.Decision
}

// Merge folds an update into the state. Messages append, scalars overwrite,
// and artifacts only transition from absent to present: a second write to a
// set artifact is dropped.
func Merge(s State, u Update) State {
	s.Messages = append(s.Messages, u.Messages...)
	if u.CurrentTask != nil {
		s.CurrentTask = *u.CurrentTask
	}
	if u.ResearchData != nil && s.ResearchData == "" {
		s.ResearchData = *u.ResearchData
	}
	if u.Analysis != nil && s.Analysis == "" {
		s.Analysis = *u.Analysis
	}
	if u.FinalReport != nil && s.FinalReport == "" {
		s.FinalReport = *u.FinalReport
	}
	if u.NextAgent != nil {
		s.NextAgent = *u.NextAgent
	}
	if u.TaskComplete != nil {
		s.TaskComplete = *u.TaskComplete
	}
	if u.LastAssigned != nil {
		s.LastAssigned = *u.LastAssigned
	}
	return s
}
