// Package graph provides the state machine engine that drives Switchboard's
// agent workflows. A graph is a set of named nodes connected by unconditional
// edges or by conditional edges keyed by the decision a node returns. The
// runner threads a caller-owned state value through each node, merging the
// node's partial update before evaluating outgoing edges.
package graph

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// NodeID names a node in the graph.
type NodeID string

// Reserved sentinels. Start is the virtual entry point; End terminates a run.
const (
	Start NodeID = "__start__"
	End   NodeID = "__end__"
)

// Decision is the routing tag a node returns for conditional edges.
type Decision string

// Result is what a node hands back to the runner: a partial state update and,
// for nodes with conditional outgoing edges, the routing decision.
type Result[U any] struct {
	Update U
	Goto   Decision
}

// NodeFunc is a unit of work. It receives the current state and returns a
// partial update; it must not mutate the state it was given.
type NodeFunc[S, U any] func(ctx context.Context, state S) (Result[U], error)

// MergeFunc folds a partial update into the state. Message sequences are
// expected to append; scalar fields overwrite.
type MergeFunc[S, U any] func(state S, update U) S

// RoutingExhaustedError reports that a run could not reach End: either the
// hop budget ran out or a decision point repeated itself without progress.
type RoutingExhaustedError struct {
	Node   NodeID
	Hops   int
	Reason string
}

func (e *RoutingExhaustedError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("routing exhausted at %q after %d hops: %s", e.Node, e.Hops, e.Reason)
	}
	return fmt.Sprintf("routing exhausted at %q after %d hops", e.Node, e.Hops)
}

// Graph is a builder for a compiled workflow. Zero value is not usable; use New.
type Graph[S, U any] struct {
	merge       MergeFunc[S, U]
	nodes       map[NodeID]NodeFunc[S, U]
	order       []NodeID
	edges       map[NodeID]NodeID
	conditional map[NodeID]map[Decision]NodeID
	entry       NodeID
	errs        []error
}

// New creates an empty graph with the given merge function.
func New[S, U any](merge MergeFunc[S, U]) *Graph[S, U] {
	return &Graph[S, U]{
		merge:       merge,
		nodes:       make(map[NodeID]NodeFunc[S, U]),
		edges:       make(map[NodeID]NodeID),
		conditional: make(map[NodeID]map[Decision]NodeID),
	}
}

// AddNode registers a node under id.
func (g *Graph[S, U]) AddNode(id NodeID, fn NodeFunc[S, U]) *Graph[S, U] {
	if id == Start || id == End {
		g.errs = append(g.errs, fmt.Errorf("node id %q is reserved", id))
		return g
	}
	if _, exists := g.nodes[id]; exists {
		g.errs = append(g.errs, fmt.Errorf("duplicate node %q", id))
		return g
	}
	g.nodes[id] = fn
	g.order = append(g.order, id)
	return g
}

// AddEdge registers an unconditional transition. AddEdge(Start, id) selects
// the entry node.
func (g *Graph[S, U]) AddEdge(from, to NodeID) *Graph[S, U] {
	if from == Start {
		if g.entry != "" {
			g.errs = append(g.errs, fmt.Errorf("entry node set twice (%q, %q)", g.entry, to))
			return g
		}
		g.entry = to
		return g
	}
	if _, exists := g.edges[from]; exists {
		g.errs = append(g.errs, fmt.Errorf("node %q already has an unconditional edge", from))
		return g
	}
	g.edges[from] = to
	return g
}

// AddConditionalEdges registers decision-keyed transitions out of from. The
// node's returned Decision selects the next node.
func (g *Graph[S, U]) AddConditionalEdges(from NodeID, routes map[Decision]NodeID) *Graph[S, U] {
	if _, exists := g.conditional[from]; exists {
		g.errs = append(g.errs, fmt.Errorf("node %q already has conditional edges", from))
		return g
	}
	cloned := make(map[Decision]NodeID, len(routes))
	for d, to := range routes {
		cloned[d] = to
	}
	g.conditional[from] = cloned
	return g
}

// Compile validates the graph and returns a Runner.
func (g *Graph[S, U]) Compile(opts ...Option) (*Runner[S, U], error) {
	if len(g.errs) > 0 {
		return nil, g.errs[0]
	}
	if g.merge == nil {
		return nil, fmt.Errorf("graph has no merge function")
	}
	if g.entry == "" {
		return nil, fmt.Errorf("graph has no entry edge from Start")
	}
	if _, ok := g.nodes[g.entry]; !ok {
		return nil, fmt.Errorf("entry node %q not registered", g.entry)
	}
	for from, to := range g.edges {
		if err := g.checkEndpoint(from, to); err != nil {
			return nil, err
		}
	}
	for from, routes := range g.conditional {
		if _, ok := g.nodes[from]; !ok {
			return nil, fmt.Errorf("conditional edge from unknown node %q", from)
		}
		if _, dual := g.edges[from]; dual {
			return nil, fmt.Errorf("node %q has both unconditional and conditional edges", from)
		}
		for d, to := range routes {
			if to != End {
				if _, ok := g.nodes[to]; !ok {
					return nil, fmt.Errorf("conditional edge %q -> %q targets unknown node (decision %q)", from, to, d)
				}
			}
		}
	}
	for _, id := range g.order {
		_, hasEdge := g.edges[id]
		_, hasCond := g.conditional[id]
		if !hasEdge && !hasCond {
			return nil, fmt.Errorf("node %q has no outgoing edge", id)
		}
	}

	o := options{maxHops: DefaultMaxHops}
	for _, opt := range opts {
		opt(&o)
	}
	return &Runner[S, U]{graph: g, opts: o}, nil
}

func (g *Graph[S, U]) checkEndpoint(from, to NodeID) error {
	if _, ok := g.nodes[from]; !ok {
		return fmt.Errorf("edge from unknown node %q", from)
	}
	if to == End {
		return nil
	}
	if _, ok := g.nodes[to]; !ok {
		return fmt.Errorf("edge %q -> %q targets unknown node", from, to)
	}
	return nil
}

// DefaultMaxHops bounds a single run. Well-behaved workflows here terminate
// in single digits; the budget exists to turn a routing bug into a reported
// error instead of a spin.
const DefaultMaxHops = 25

type options struct {
	maxHops int
}

// Option configures a Runner.
type Option func(*options)

// WithMaxHops overrides the hop budget for a run.
func WithMaxHops(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxHops = n
		}
	}
}

// Runner executes a compiled graph.
type Runner[S, U any] struct {
	graph *Graph[S, U]
	opts  options
}

// Invoke drives the graph from the entry node until End, returning the final
// state. Nodes run strictly sequentially, each at most once per hop; the
// context is checked between hops so callers can cancel cooperatively. Any
// node error aborts the run and returns the state as of the last completed
// merge.
func (r *Runner[S, U]) Invoke(ctx context.Context, state S) (S, error) {
	current := r.graph.entry
	for hop := 0; ; hop++ {
		if hop >= r.opts.maxHops {
			return state, &RoutingExhaustedError{Node: current, Hops: hop, Reason: "hop budget exceeded"}
		}
		select {
		case <-ctx.Done():
			return state, ctx.Err()
		default:
		}

		res, err := r.graph.nodes[current](ctx, state)
		if err != nil {
			return state, fmt.Errorf("node %q: %w", current, err)
		}
		state = r.graph.merge(state, res.Update)

		var next NodeID
		if routes, ok := r.graph.conditional[current]; ok {
			next, ok = routes[res.Goto]
			if !ok {
				return state, fmt.Errorf("node %q returned decision %q with no matching edge", current, res.Goto)
			}
		} else {
			next = r.graph.edges[current]
		}
		if next == End {
			return state, nil
		}
		current = next
	}
}

// Mermaid renders the graph as a deterministic Mermaid flowchart.
func (r *Runner[S, U]) Mermaid() string {
	g := r.graph
	var b strings.Builder
	b.WriteString("graph TD\n")
	fmt.Fprintf(&b, "    %s([start]) --> %s\n", Start, g.entry)
	for _, id := range g.order {
		if to, ok := g.edges[id]; ok {
			if to == End {
				fmt.Fprintf(&b, "    %s --> %s([end])\n", id, End)
			} else {
				fmt.Fprintf(&b, "    %s --> %s\n", id, to)
			}
		}
		if routes, ok := g.conditional[id]; ok {
			decisions := make([]string, 0, len(routes))
			for d := range routes {
				decisions = append(decisions, string(d))
			}
			sort.Strings(decisions)
			for _, d := range decisions {
				to := routes[Decision(d)]
				if to == End {
					fmt.Fprintf(&b, "    %s -->|%s| %s([end])\n", id, d, End)
				} else {
					fmt.Fprintf(&b, "    %s -->|%s| %s\n", id, d, to)
				}
			}
		}
	}
	return b.String()
}
