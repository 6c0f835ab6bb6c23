package supervisor

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/normanking/switchboard/internal/graph"
	"github.com/normanking/switchboard/internal/llm"
)

// researcherNode gathers raw material for the task and records it as the
// run's research artifact.
func researcherNode(gateway llm.Provider) graph.NodeFunc[State, Update] {
	return func(ctx context.Context, s State) (graph.Result[Update], error) {
		resp, err := gateway.Chat(ctx, &llm.ChatRequest{
			SystemPrompt: researcherPrompt,
			Messages: []llm.Message{
				{Role: llm.RoleUser, Content: fmt.Sprintf(researcherTask, s.CurrentTask)},
			},
		})
		if err != nil {
			return graph.Result[Update]{}, fmt.Errorf("researcher: %w", err)
		}

		log.Debug().Str("component", "supervisor").Int("bytes", len(resp.Content)).
			Msg("research complete")
		data := resp.Content
		status := fmt.Sprintf("🔍 Researcher: I've completed the research on '%s'.\n\nKey findings:\n%s...",
			s.CurrentTask, truncate(data, 500))
		return graph.Result[Update]{Update: Update{
			ResearchData: &data,
			Messages:     []llm.Message{{Role: llm.RoleAssistant, Content: status}},
		}}, nil
	}
}

// analystNode turns the research artifact into insights.
func analystNode(gateway llm.Provider) graph.NodeFunc[State, Update] {
	return func(ctx context.Context, s State) (graph.Result[Update], error) {
		resp, err := gateway.Chat(ctx, &llm.ChatRequest{
			SystemPrompt: analystPrompt,
			Messages: []llm.Message{
				{Role: llm.RoleUser, Content: fmt.Sprintf(analystTask, s.ResearchData, s.CurrentTask)},
			},
		})
		if err != nil {
			return graph.Result[Update]{}, fmt.Errorf("analyst: %w", err)
		}

		log.Debug().Str("component", "supervisor").Int("bytes", len(resp.Content)).
			Msg("analysis complete")
		analysis := resp.Content
		status := fmt.Sprintf("📊 Analyst: I've completed the analysis.\n\nTop insights:\n%s...",
			truncate(analysis, 400))
		return graph.Result[Update]{Update: Update{
			Analysis: &analysis,
			Messages: []llm.Message{{Role: llm.RoleAssistant, Content: status}},
		}}, nil
	}
}

// writerNode produces the final report. The body is requested as structured
// sections so the rendered report always carries the five numbered headings;
// when the model cannot be coerced into the section schema, its prose lands
// in the executive summary and the remaining headings stay empty rather than
// failing the run.
func writerNode(gateway llm.Provider) graph.NodeFunc[State, Update] {
	return func(ctx context.Context, s State) (graph.Result[Update], error) {
		req := &llm.ChatRequest{
			SystemPrompt: writerPrompt,
			Messages: []llm.Message{
				{Role: llm.RoleUser, Content: fmt.Sprintf(writerTask, s.CurrentTask,
					truncate(s.ResearchData, 1000), truncate(s.Analysis, 1000))},
			},
		}

		sections, err := llm.Structured[ReportSections](ctx, gateway, req)
		if err != nil {
			if llm.AsGatewayError(err) {
				return graph.Result[Update]{}, fmt.Errorf("writer: %w", err)
			}
			log.Warn().Str("component", "supervisor").Err(err).
				Msg("writer output not structured, falling back to prose")
			resp, cerr := gateway.Chat(ctx, req)
			if cerr != nil {
				return graph.Result[Update]{}, fmt.Errorf("writer: %w", cerr)
			}
			sections = ReportSections{ExecutiveSummary: resp.Content}
		}

		report := FormatReport(s.CurrentTask, sections, time.Now())
		done := true
		return graph.Result[Update]{Update: Update{
			FinalReport:  &report,
			TaskComplete: &done,
			Messages: []llm.Message{{
				Role:    llm.RoleAssistant,
				Content: "✍️ Writer: Report complete! See below for the full document.",
			}},
		}}, nil
	}
}

// chatNode answers requests the intent gate kept out of the pipeline.
func chatNode(gateway llm.Provider) graph.NodeFunc[State, Update] {
	return func(ctx context.Context, s State) (graph.Result[Update], error) {
		resp, err := gateway.Chat(ctx, &llm.ChatRequest{
			SystemPrompt: chatPrompt,
			Messages: []llm.Message{
				{Role: llm.RoleUser, Content: s.CurrentTask},
			},
		})
		if err != nil {
			return graph.Result[Update]{}, fmt.Errorf("chat: %w", err)
		}
		return graph.Result[Update]{Update: Update{
			Messages: []llm.Message{{Role: llm.RoleAssistant, Content: resp.Content}},
		}}, nil
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
