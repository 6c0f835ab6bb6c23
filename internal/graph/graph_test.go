package graph

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test state: an append-only trace plus one scalar.
type testState struct {
	Trace []string
	Label string
}

type testUpdate struct {
	Trace []string
	Label *string
}

func mergeTest(s testState, u testUpdate) testState {
	s.Trace = append(s.Trace, u.Trace...)
	if u.Label != nil {
		s.Label = *u.Label
	}
	return s
}

func traceNode(name string) NodeFunc[testState, testUpdate] {
	return func(_ context.Context, _ testState) (Result[testUpdate], error) {
		return Result[testUpdate]{Update: testUpdate{Trace: []string{name}}}, nil
	}
}

func TestLinearRunMergesInOrder(t *testing.T) {
	g := New(mergeTest)
	g.AddNode("a", traceNode("a"))
	g.AddNode("b", traceNode("b"))
	g.AddEdge(Start, "a")
	g.AddEdge("a", "b")
	g.AddEdge("b", End)

	runner, err := g.Compile()
	require.NoError(t, err)

	final, err := runner.Invoke(context.Background(), testState{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, final.Trace)
}

func TestConditionalEdgeFollowsDecision(t *testing.T) {
	g := New(mergeTest)
	g.AddNode("decide", func(_ context.Context, _ testState) (Result[testUpdate], error) {
		return Result[testUpdate]{Goto: "right"}, nil
	})
	g.AddNode("left", traceNode("left"))
	g.AddNode("right", traceNode("right"))
	g.AddEdge(Start, "decide")
	g.AddConditionalEdges("decide", map[Decision]NodeID{
		"left":  "left",
		"right": "right",
	})
	g.AddEdge("left", End)
	g.AddEdge("right", End)

	runner, err := g.Compile()
	require.NoError(t, err)

	final, err := runner.Invoke(context.Background(), testState{})
	require.NoError(t, err)
	assert.Equal(t, []string{"right"}, final.Trace)
}

func TestUnmatchedDecisionFails(t *testing.T) {
	g := New(mergeTest)
	g.AddNode("decide", func(_ context.Context, _ testState) (Result[testUpdate], error) {
		return Result[testUpdate]{Goto: "sideways"}, nil
	})
	g.AddNode("left", traceNode("left"))
	g.AddEdge(Start, "decide")
	g.AddConditionalEdges("decide", map[Decision]NodeID{"left": "left"})
	g.AddEdge("left", End)

	runner, err := g.Compile()
	require.NoError(t, err)

	_, err = runner.Invoke(context.Background(), testState{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sideways")
}

func TestNodeErrorAbortsRunKeepsMergedState(t *testing.T) {
	boom := errors.New("boom")
	g := New(mergeTest)
	g.AddNode("ok", traceNode("ok"))
	g.AddNode("fail", func(_ context.Context, _ testState) (Result[testUpdate], error) {
		return Result[testUpdate]{}, boom
	})
	g.AddEdge(Start, "ok")
	g.AddEdge("ok", "fail")
	g.AddEdge("fail", End)

	runner, err := g.Compile()
	require.NoError(t, err)

	final, err := runner.Invoke(context.Background(), testState{})
	require.ErrorIs(t, err, boom)
	// The successful node's update was merged before the failure.
	assert.Equal(t, []string{"ok"}, final.Trace)
}

func TestHopBudgetStopsLoops(t *testing.T) {
	g := New(mergeTest)
	g.AddNode("a", traceNode("a"))
	g.AddNode("b", traceNode("b"))
	g.AddEdge(Start, "a")
	g.AddEdge("a", "b")
	g.AddEdge("b", "a")

	runner, err := g.Compile(WithMaxHops(7))
	require.NoError(t, err)

	_, err = runner.Invoke(context.Background(), testState{})
	var exhausted *RoutingExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 7, exhausted.Hops)
}

func TestCancellationBetweenHops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	g := New(mergeTest)
	g.AddNode("a", func(_ context.Context, _ testState) (Result[testUpdate], error) {
		cancel() // cancel mid-run; next hop must observe it
		return Result[testUpdate]{Update: testUpdate{Trace: []string{"a"}}}, nil
	})
	g.AddNode("b", traceNode("b"))
	g.AddEdge(Start, "a")
	g.AddEdge("a", "b")
	g.AddEdge("b", End)

	runner, err := g.Compile()
	require.NoError(t, err)

	final, err := runner.Invoke(ctx, testState{})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"a"}, final.Trace)
}

func TestCompileRejectsBrokenGraphs(t *testing.T) {
	t.Run("no entry", func(t *testing.T) {
		g := New(mergeTest)
		g.AddNode("a", traceNode("a"))
		g.AddEdge("a", End)
		_, err := g.Compile()
		assert.Error(t, err)
	})

	t.Run("edge to unknown node", func(t *testing.T) {
		g := New(mergeTest)
		g.AddNode("a", traceNode("a"))
		g.AddEdge(Start, "a")
		g.AddEdge("a", "ghost")
		_, err := g.Compile()
		assert.Error(t, err)
	})

	t.Run("dangling node", func(t *testing.T) {
		g := New(mergeTest)
		g.AddNode("a", traceNode("a"))
		g.AddNode("b", traceNode("b"))
		g.AddEdge(Start, "a")
		g.AddEdge("a", End)
		_, err := g.Compile()
		assert.Error(t, err)
	})

	t.Run("reserved id", func(t *testing.T) {
		g := New(mergeTest)
		g.AddNode(End, traceNode("x"))
		g.AddEdge(Start, End)
		_, err := g.Compile()
		assert.Error(t, err)
	})
}

func TestMermaidIsDeterministic(t *testing.T) {
	build := func() *Runner[testState, testUpdate] {
		g := New(mergeTest)
		g.AddNode("decide", func(_ context.Context, _ testState) (Result[testUpdate], error) {
			return Result[testUpdate]{Goto: "left"}, nil
		})
		g.AddNode("left", traceNode("left"))
		g.AddNode("right", traceNode("right"))
		g.AddEdge(Start, "decide")
		g.AddConditionalEdges("decide", map[Decision]NodeID{
			"left":  "left",
			"right": "right",
			"done":  End,
		})
		g.AddEdge("left", End)
		g.AddEdge("right", End)
		runner, err := g.Compile()
		require.NoError(t, err)
		return runner
	}

	first := build().Mermaid()
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, build().Mermaid())
	}
	assert.Contains(t, first, "decide -->|left| left")
	assert.Contains(t, first, fmt.Sprintf("decide -->|done| %s([end])", End))
}

func TestMemorySaverSerializesPerThread(t *testing.T) {
	saver := NewMemorySaver[testState]()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = saver.Update("t1", func(s testState, _ bool) (testState, error) {
				s.Trace = append(s.Trace, "x")
				return s, nil
			})
		}()
	}
	wg.Wait()

	final, ok := saver.Get("t1")
	require.True(t, ok)
	assert.Len(t, final.Trace, 50)
}

func TestMemorySaverKeepsStateOnError(t *testing.T) {
	saver := NewMemorySaver[testState]()

	require.NoError(t, saver.Update("t1", func(s testState, _ bool) (testState, error) {
		s.Label = "committed"
		return s, nil
	}))

	err := saver.Update("t1", func(s testState, found bool) (testState, error) {
		require.True(t, found)
		s.Label = "dirty"
		return s, errors.New("turn failed")
	})
	require.Error(t, err)

	got, ok := saver.Get("t1")
	require.True(t, ok)
	assert.Equal(t, "committed", got.Label)
}

func TestMemorySaverThreadsAreIndependent(t *testing.T) {
	saver := NewMemorySaver[testState]()
	_ = saver.Update("a", func(s testState, _ bool) (testState, error) {
		s.Label = "a"
		return s, nil
	})

	_, ok := saver.Get("b")
	assert.False(t, ok)

	saver.Delete("a")
	_, ok = saver.Get("a")
	assert.False(t, ok)
}
