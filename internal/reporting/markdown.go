package reporting

import (
	"fmt"
	"strings"
	"time"

	"inventory-sweep-lab/internal/domain"
	"inventory-sweep-lab/internal/idhash"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Inventory Control Sweep Report\n\n")
	sb.WriteString(fmt.Sprintf("Run: `%s`\n\n", r.RunID))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))

	// Run summary
	sb.WriteString("## Run Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Status | %s |\n", r.Status))
	sb.WriteString(fmt.Sprintf("| Significance Metric | %s |\n", r.Metric))
	sb.WriteString(fmt.Sprintf("| Threshold (abs t) | %s |\n", formatFloat(r.Threshold)))
	sb.WriteString(fmt.Sprintf("| Grid Size | %d |\n", r.GridSize))
	sb.WriteString(fmt.Sprintf("| In-Sample Seeds | %d |\n", r.InSampleSeeds))
	sb.WriteString(fmt.Sprintf("| Out-of-Sample Seeds | %d |\n", r.OutSampleSeeds))
	sb.WriteString(fmt.Sprintf("| Phase 1 Rows | %d |\n", r.InSample.Len()))
	sb.WriteString(fmt.Sprintf("| Significant Survivors | %d |\n", r.Survivors.Len()))
	sb.WriteString(fmt.Sprintf("| Phase 2 Rows | %d |\n", r.OutOfSample.Len()))
	sb.WriteString(fmt.Sprintf("| Pareto Front Size | %d |\n", len(r.Front)))
	sb.WriteString(fmt.Sprintf("| Failed Parameter Sets | %d |\n", r.FailureCount()))
	sb.WriteString("\n")

	// Survivors
	sb.WriteString("## Significant Parameter Sets (In-Sample)\n\n")
	if r.Survivors.Len() > 0 {
		writeRowTable(&sb, r.Survivors.Rows)
	} else {
		sb.WriteString("No parameter set passed the significance filter.\n\n")
	}

	// Phase 2
	sb.WriteString("## Out-of-Sample Validation\n\n")
	switch {
	case r.Status == domain.RunStatusFailed || r.Status == domain.RunStatusRunning:
		sb.WriteString(fmt.Sprintf("Not completed: run status is %s.\n\n", r.Status))
	case r.Phase2Skipped:
		sb.WriteString("Skipped: no parameter set survived the in-sample phase.\n\n")
	case r.OutOfSample.Len() > 0:
		writeRowTable(&sb, r.OutOfSample.Rows)
	default:
		sb.WriteString("No out-of-sample rows.\n\n")
	}

	// Pareto front
	sb.WriteString("## Pareto Front (Out-of-Sample)\n\n")
	if len(r.Front) > 0 {
		sb.WriteString("| Key | k | alpha | hth | hsz | Risk (inv_vol) | Reward (controlled_pnl) |\n")
		sb.WriteString("|-----|---|-------|-----|-----|----------------|-------------------------|\n")
		for _, p := range r.Front {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s | %.4f | %.4f |\n",
				idhash.ShortParamsKey(p.Params, 8),
				formatFloat(p.Params.K), formatFloat(p.Params.Alpha),
				formatFloat(p.Params.HTh), formatFloat(p.Params.HSz),
				p.Risk, p.Reward))
		}
		sb.WriteString("\n")
	} else {
		sb.WriteString("Empty front.\n\n")
	}

	// Failures
	if r.FailureCount() > 0 {
		sb.WriteString("## Failed Parameter Sets\n\n")
		writeFailures(&sb, "in-sample", r.InSample)
		writeFailures(&sb, "out-of-sample", r.OutOfSample)
		sb.WriteString("\n")
	}

	if rep := r.Reproducibility; rep.DataVersion != "" {
		sb.WriteString("## Reproducibility\n\n")
		sb.WriteString(fmt.Sprintf("- Generator: %s\n", rep.GeneratorVersion))
		sb.WriteString(fmt.Sprintf("- Data version: `%s`\n", rep.DataVersion))
		sb.WriteString(fmt.Sprintf("- Commit: `%s`\n", rep.CommitHash))
		if rep.ReplayCommand != "" {
			sb.WriteString(fmt.Sprintf("- Replay: `%s`\n", rep.ReplayCommand))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func writeRowTable(sb *strings.Builder, rows []domain.SummaryRow) {
	sb.WriteString("| Key | k | alpha | hth | hsz | Mean inv_vol | Mean controlled_pnl | Std | t | Seeds |\n")
	sb.WriteString("|-----|---|-------|-----|-----|--------------|---------------------|-----|---|-------|\n")
	for _, row := range rows {
		t := "n/a"
		if row.TStatDefined {
			t = fmt.Sprintf("%.3f", row.TStat)
		}
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s | %.4f | %.4f | %.4f | %s | %d |\n",
			idhash.ShortParamsKey(row.Params, 8),
			formatFloat(row.Params.K), formatFloat(row.Params.Alpha),
			formatFloat(row.Params.HTh), formatFloat(row.Params.HSz),
			row.MeanInvVol, row.MeanControlledPnL, row.StdControlledPnL, t, row.NSeeds))
	}
	sb.WriteString("\n")
}

func writeFailures(sb *strings.Builder, phase string, table *domain.ResultTable) {
	if table == nil {
		return
	}
	for _, f := range table.Failures {
		sb.WriteString(fmt.Sprintf("- %s `%s` seed %d: %s\n", phase, f.Params, f.Seed, f.Reason))
	}
}
