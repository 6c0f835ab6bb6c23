package chatbot

import (
	"context"

	"github.com/normanking/switchboard/internal/graph"
	"github.com/normanking/switchboard/internal/llm"
)

// therapistNode answers with empathy. It is deliberately history-blind: only
// the single most recent user message reaches the gateway, never earlier
// turns. No tool use, no branching.
func therapistNode(gateway llm.Provider) graph.NodeFunc[State, Update] {
	return func(ctx context.Context, s State) (graph.Result[Update], error) {
		resp, err := gateway.Chat(ctx, &llm.ChatRequest{
			SystemPrompt: therapistPrompt,
			Messages: []llm.Message{
				{Role: llm.RoleUser, Content: s.LastUserMessage()},
			},
		})
		if err != nil {
			return graph.Result[Update]{}, err
		}
		return graph.Result[Update]{Update: Update{
			Messages: []llm.Message{{Role: llm.RoleAssistant, Content: resp.Content}},
		}}, nil
	}
}
