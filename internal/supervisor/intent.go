package supervisor

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/normanking/switchboard/internal/graph"
	"github.com/normanking/switchboard/internal/llm"
)

const (
	intentMultiAgent = "🔄 Intent Classifier: Detected research/analysis request. Routing to multi-agent system..."
	intentNormalChat = "💬 Intent Classifier: Routing to normal chat..."
)

// intentNode gates the pipeline: only requests that need the research
// workflow reach the supervisor, everything else goes to plain chat. An
// unrecognised classification falls back to chat, the cheaper path.
func intentNode(gateway llm.Provider) graph.NodeFunc[State, Update] {
	return func(ctx context.Context, s State) (graph.Result[Update], error) {
		resp, err := gateway.Chat(ctx, &llm.ChatRequest{
			SystemPrompt: intentPrompt,
			Messages: []llm.Message{
				{Role: llm.RoleUser, Content: s.CurrentTask},
			},
		})
		if err != nil {
			return graph.Result[Update]{}, err
		}

		label := strings.ToUpper(strings.TrimSpace(resp.Content))
		multi := strings.Contains(label, "MULTI_AGENT")
		log.Debug().Str("component", "supervisor").Str("label", label).
			Bool("multi_agent", multi).Msg("intent classified")

		status := intentNormalChat
		route := RouteChat
		if multi {
			status = intentMultiAgent
			route = RouteSupervisor
		}
		return graph.Result[Update]{
			Update: Update{
				Messages: []llm.Message{{Role: llm.RoleAssistant, Content: status}},
			},
			Goto: route,
		}, nil
	}
}
