package chatbot

import (
	"context"

	"github.com/normanking/switchboard/internal/graph"
)

// Routing decisions emitted by the router node.
const (
	RouteLogical   graph.Decision = "logical"
	RouteTherapist graph.Decision = "therapist"
)

// Route maps a classification label to the next node. It is total: any label
// other than exactly "emotional" routes to the logical agent, including an
// unset classification, which falls back rather than failing.
func Route(label MessageType) graph.Decision {
	if label == MessageTypeEmotional {
		return RouteTherapist
	}
	return RouteLogical
}

// routerNode records the routing decision in state and hands it to the
// engine's conditional edges.
func routerNode() graph.NodeFunc[State, Update] {
	return func(_ context.Context, s State) (graph.Result[Update], error) {
		next := Route(s.MessageType)
		return graph.Result[Update]{
			Update: Update{Next: &next},
			Goto:   next,
		}, nil
	}
}
