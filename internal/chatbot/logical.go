package chatbot

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/normanking/switchboard/internal/graph"
	"github.com/normanking/switchboard/internal/llm"
	"github.com/normanking/switchboard/internal/tools"
)

// logicalNode is the preview phase of the logical agent's two-phase tool
// protocol. It invokes the gateway with tool definitions bound to learn
// whether the model would call a tool, without committing to execution. A
// proposed call is parked in state as a pending proposal for the approval
// gate; a direct answer is appended as-is. A model asking for a tool that is
// not registered gets a tool-free answer instead of an error.
func logicalNode(gateway llm.Provider, registry *tools.Registry) graph.NodeFunc[State, Update] {
	return func(ctx context.Context, s State) (graph.Result[Update], error) {
		preview, err := gateway.Chat(ctx, &llm.ChatRequest{
			SystemPrompt: logicalPrompt,
			Messages:     s.Messages,
			Tools:        registry.Specs(),
		})
		if err != nil {
			return graph.Result[Update]{}, err
		}

		if len(preview.ToolCalls) == 0 {
			return graph.Result[Update]{Update: Update{
				Messages: []llm.Message{{Role: llm.RoleAssistant, Content: preview.Content}},
			}}, nil
		}

		call := preview.ToolCalls[0]
		if !registry.Has(call.Name) {
			log.Warn().Str("component", "chatbot").Str("tool", call.Name).
				Msg("model requested unregistered tool, answering without tools")
			answer, err := directAnswer(ctx, gateway, s.Messages)
			if err != nil {
				return graph.Result[Update]{}, err
			}
			return graph.Result[Update]{Update: Update{
				Messages: []llm.Message{{Role: llm.RoleAssistant, Content: answer}},
			}}, nil
		}

		log.Debug().Str("component", "chatbot").Str("tool", call.Name).
			Msg("tool call proposed, awaiting approval")
		return graph.Result[Update]{Update: Update{
			Messages: []llm.Message{{
				Role:      llm.RoleAssistant,
				Content:   preview.Content,
				ToolCalls: preview.ToolCalls,
			}},
			Pending: &ToolProposal{Call: call},
		}}, nil
	}
}

// executeApproved is the execution phase: it runs the approved tool, appends
// the result as a tool message, and re-invokes the gateway so the model can
// fold the result into a final answer.
func executeApproved(ctx context.Context, gateway llm.Provider, registry *tools.Registry, s State) (Update, error) {
	if s.Pending == nil {
		return Update{}, fmt.Errorf("no pending tool proposal")
	}
	call := s.Pending.Call

	result, err := registry.Invoke(ctx, call.Name, call.Arguments)
	if err != nil {
		if errors.Is(err, tools.ErrToolNotFound) {
			answer, derr := directAnswer(ctx, gateway, s.Messages)
			if derr != nil {
				return Update{}, derr
			}
			return Update{
				Messages:     []llm.Message{{Role: llm.RoleAssistant, Content: answer}},
				ClearPending: true,
			}, nil
		}
		return Update{}, fmt.Errorf("invoke %s: %w", call.Name, err)
	}

	toolMsg := llm.Message{
		Role:       llm.RoleTool,
		Content:    result,
		ToolCallID: call.ID,
	}
	history := append(append([]llm.Message{}, s.Messages...), toolMsg)

	final, err := gateway.Chat(ctx, &llm.ChatRequest{
		SystemPrompt: logicalPrompt,
		Messages:     history,
		Tools:        registry.Specs(),
	})
	if err != nil {
		return Update{}, err
	}

	return Update{
		Messages: []llm.Message{
			toolMsg,
			{Role: llm.RoleAssistant, Content: final.Content},
		},
		ClearPending: true,
	}, nil
}

// declineProposed resolves a withheld approval: the pending call is dropped
// and the user still gets a reply, the fixed no-real-time-access message.
func declineProposed() Update {
	return Update{
		Messages:     []llm.Message{{Role: llm.RoleAssistant, Content: RefusalReply}},
		ClearPending: true,
	}
}

// directAnswer re-invokes the gateway without tool definitions bound.
func directAnswer(ctx context.Context, gateway llm.Provider, messages []llm.Message) (string, error) {
	resp, err := gateway.Chat(ctx, &llm.ChatRequest{
		SystemPrompt: logicalPrompt,
		Messages:     messages,
	})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}
