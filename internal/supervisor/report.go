package supervisor

import (
	"fmt"
	"strings"
	"time"
)

// ReportSections is the structured form of the writer's report body. The
// writer fills it via a structured completion so the rendered report always
// carries the five numbered sections.
type ReportSections struct {
	ExecutiveSummary string `json:"executive_summary"`
	KeyFindings      string `json:"key_findings"`
	AnalysisInsights string `json:"analysis_insights"`
	Recommendations  string `json:"recommendations"`
	Conclusion       string `json:"conclusion"`
}

func renderSections(s ReportSections) string {
	var b strings.Builder
	write := func(heading, body string) {
		b.WriteString(heading)
		b.WriteString("\n\n")
		b.WriteString(strings.TrimSpace(body))
		b.WriteString("\n\n")
	}
	write("1. Executive Summary", s.ExecutiveSummary)
	write("2. Key Findings", s.KeyFindings)
	write("3. Analysis & Insights", s.AnalysisInsights)
	write("4. Recommendations", s.Recommendations)
	write("5. Conclusion", s.Conclusion)
	return strings.TrimRight(b.String(), "\n")
}

// FormatReport wraps a rendered report body in the final-report envelope.
func FormatReport(task string, sections ReportSections, now time.Time) string {
	rule := strings.Repeat("=", 50)
	return fmt.Sprintf(`
    📄 FINAL REPORT
    %s
    Generated: %s
    Topic: %s
    %s

    %s

    %s
    Report compiled by Multi-Agent AI System powered by ChatGPT`,
		rule,
		now.Format("2006-01-02 15:04"),
		task,
		rule,
		renderSections(sections),
		rule,
	)
}
