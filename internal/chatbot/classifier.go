package chatbot

import (
	"context"
	"fmt"

	"github.com/normanking/switchboard/internal/graph"
	"github.com/normanking/switchboard/internal/llm"
)

// messageClassification is the structured output contract for the classifier.
type messageClassification struct {
	MessageType string `json:"message_type"`
}

// classifierNode categorizes the latest user message into the closed label
// set via structured output. The gateway must fail, not guess: anything that
// cannot be coerced to a valid label aborts the turn with a
// ClassificationError before routing happens.
func classifierNode(gateway llm.Provider) graph.NodeFunc[State, Update] {
	return func(ctx context.Context, s State) (graph.Result[Update], error) {
		result, err := llm.Structured[messageClassification](ctx, gateway, &llm.ChatRequest{
			SystemPrompt: classifierPrompt,
			Messages: []llm.Message{
				{Role: llm.RoleUser, Content: s.LastUserMessage()},
			},
		})
		if err != nil {
			return graph.Result[Update]{}, &ClassificationError{Err: err}
		}

		label := MessageType(result.MessageType)
		if !label.Valid() {
			return graph.Result[Update]{}, &ClassificationError{
				Err: errInvalidLabel(result.MessageType),
			}
		}
		return graph.Result[Update]{Update: Update{MessageType: &label}}, nil
	}
}

type errInvalidLabel string

func (e errInvalidLabel) Error() string {
	return fmt.Sprintf("label %q is not in the closed set", string(e))
}
