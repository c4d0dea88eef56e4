package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Price Edge Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	if r.RunID != "" {
		sb.WriteString(fmt.Sprintf("Run: `%s`\n\n", r.RunID))
	}
	sb.WriteString(fmt.Sprintf("Index token: %s | Uncertainty window: %d s\n\n", r.IndexToken, r.Window))

	// Data Summary
	d := r.DataSummary
	sb.WriteString("## Data Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Trades | %d |\n", d.Trades))
	sb.WriteString(fmt.Sprintf("| Increase events | %d |\n", d.Increases))
	sb.WriteString(fmt.Sprintf("| Decrease events | %d |\n", d.Decreases))
	sb.WriteString(fmt.Sprintf("| Dropped events | %d |\n", d.DroppedEvents))
	sb.WriteString(fmt.Sprintf("| Reference points | %d |\n", d.ReferencePoints))
	sb.WriteString(fmt.Sprintf("| Reference start | %s |\n", formatTime(d.ReferenceStart)))
	sb.WriteString(fmt.Sprintf("| Reference end | %s |\n", formatTime(d.ReferenceEnd)))
	sb.WriteString(fmt.Sprintf("| Merged rows | %d |\n", d.MergedRows))
	sb.WriteString(fmt.Sprintf("| Matched | %d |\n", d.Matched))
	sb.WriteString(fmt.Sprintf("| Unmatched | %d |\n", d.Unmatched))
	sb.WriteString(fmt.Sprintf("| Degenerate | %d |\n", d.Degenerate))
	sb.WriteString("\n")

	// Edge statistics
	sb.WriteString("## Price Edge (%)\n\n")
	sb.WriteString("Positive edge is adverse to the trader.\n\n")
	if len(r.Summaries) == 0 {
		sb.WriteString("No merged rows.\n\n")
	} else {
		sb.WriteString("| Event | Side | Rows | Matched | Mean | Median | P10 | P90 | Min | Max | Stddev | Adverse |\n")
		sb.WriteString("|-------|------|------|---------|------|--------|-----|-----|-----|-----|--------|---------|\n")
		for _, s := range r.Summaries {
			sb.WriteString(fmt.Sprintf("| %s | %s | %d | %d | %.4f | %.4f | %.4f | %.4f | %.4f | %.4f | %.4f | %.1f%% |\n",
				s.EventType, side(s.IsLong), s.Total, s.Matched,
				s.EdgeMean, s.EdgeMedian, s.EdgeP10, s.EdgeP90, s.EdgeMin, s.EdgeMax, s.EdgeStddev,
				s.AdverseShare*100))
		}
		sb.WriteString("\n")
	}

	// Worst edges
	if len(r.WorstEdges) > 0 {
		sb.WriteString("## Largest Adverse Edges\n\n")
		sb.WriteString("| Time | Event | Side | Price | Reference | Edge | ID |\n")
		sb.WriteString("|------|-------|------|-------|-----------|------|----|\n")
		for _, m := range r.WorstEdges {
			ref := 0.0
			if m.Reference != nil {
				ref = m.Reference.Price
			}
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %.4f | %.4f | %s |\n",
				formatTime(m.Event.Time), m.Event.EventType, side(m.Event.IsLong),
				m.Event.Price.String(), ref, *m.PriceEdge, m.Event.ID))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func side(isLong bool) string {
	if isLong {
		return "long"
	}
	return "short"
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}
