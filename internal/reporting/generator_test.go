package reporting

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"inventory-sweep-lab/internal/domain"
	"inventory-sweep-lab/internal/storage"
	"inventory-sweep-lab/internal/storage/memory"
)

func TestGenerator_Generate(t *testing.T) {
	ctx := context.Background()
	runs := memory.NewRunStore()
	rows := memory.NewSummaryRowStore()

	run := &domain.SweepRun{
		RunID: "run-1", StartedAt: 1000, FinishedAt: 2000, GridSize: 3,
		InSampleSeeds: 50, OutSampleSeeds: 50, Threshold: 2, Metric: "controlled_pnl",
		Status: domain.RunStatusCompleted,
	}
	if err := runs.Insert(ctx, run); err != nil {
		t.Fatalf("Insert run failed: %v", err)
	}

	inSample := []domain.SummaryRow{
		{Params: domain.ParameterSet{K: 0.5}, MeanInvVol: 3, MeanControlledPnL: 2, NSeeds: 50, TStat: 5, TStatDefined: true},
		{Params: domain.ParameterSet{K: 1.0}, MeanInvVol: 2, MeanControlledPnL: 1, NSeeds: 50, TStat: 1.2, TStatDefined: true},
		{Params: domain.ParameterSet{K: 1.5}, MeanInvVol: 1, MeanControlledPnL: 1, NSeeds: 50, TStat: math.NaN()},
	}
	outSample := []domain.SummaryRow{
		{Params: domain.ParameterSet{K: 0.5}, MeanInvVol: 3.1, MeanControlledPnL: 1.9, NSeeds: 50, TStat: 4, TStatDefined: true},
	}
	if err := rows.InsertBulk(ctx, "run-1", domain.PhaseInSample, inSample); err != nil {
		t.Fatalf("InsertBulk in-sample failed: %v", err)
	}
	if err := rows.InsertBulk(ctx, "run-1", domain.PhaseOutOfSample, outSample); err != nil {
		t.Fatalf("InsertBulk out-of-sample failed: %v", err)
	}

	fixed := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	report, err := NewGenerator(runs, rows).WithClock(func() time.Time { return fixed }).Generate(ctx, "run-1")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if !report.GeneratedAt.Equal(fixed) {
		t.Errorf("GeneratedAt = %v, want %v", report.GeneratedAt, fixed)
	}
	if report.InSample.Len() != 3 {
		t.Errorf("InSample rows = %d, want 3", report.InSample.Len())
	}
	if report.Survivors.Len() != 1 || report.Survivors.Rows[0].Params.K != 0.5 {
		t.Errorf("Unexpected survivors: %+v", report.Survivors.Rows)
	}
	if len(report.Front) != 1 || report.Front[0].Risk != 3.1 {
		t.Errorf("Unexpected front: %+v", report.Front)
	}
	if report.Phase2Skipped {
		t.Error("Phase2Skipped should be false")
	}
}

func TestGenerator_UnknownRun(t *testing.T) {
	_, err := NewGenerator(memory.NewRunStore(), memory.NewSummaryRowStore()).Generate(context.Background(), "missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestGenerator_FailedRunIsNotSkipped(t *testing.T) {
	ctx := context.Background()
	runs := memory.NewRunStore()
	run := &domain.SweepRun{
		RunID: "run-failed", StartedAt: 1000, FinishedAt: 1500, GridSize: 81,
		InSampleSeeds: 50, OutSampleSeeds: 50, Threshold: 2, Metric: "controlled_pnl",
		Status: domain.RunStatusFailed,
	}
	if err := runs.Insert(ctx, run); err != nil {
		t.Fatalf("Insert run failed: %v", err)
	}

	report, err := NewGenerator(runs, memory.NewSummaryRowStore()).Generate(ctx, "run-failed")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if report.Phase2Skipped {
		t.Error("Phase2Skipped should be false for a failed run")
	}

	md := RenderMarkdown(report)
	if strings.Contains(md, "Skipped: no parameter set survived") {
		t.Error("Failed run rendered as skipped")
	}
	if !strings.Contains(md, "Not completed: run status is FAILED.") {
		t.Errorf("Expected failed status in out-of-sample section, got:\n%s", md)
	}
}

func TestGenerator_CompletedRunWithoutSurvivorsIsSkipped(t *testing.T) {
	ctx := context.Background()
	runs := memory.NewRunStore()
	rows := memory.NewSummaryRowStore()
	run := &domain.SweepRun{RunID: "run-empty", Threshold: 2, Metric: "controlled_pnl", Status: domain.RunStatusCompleted}
	if err := runs.Insert(ctx, run); err != nil {
		t.Fatalf("Insert run failed: %v", err)
	}
	inSample := []domain.SummaryRow{
		{Params: domain.ParameterSet{K: 1}, MeanInvVol: 1, MeanControlledPnL: 0.1, NSeeds: 50, TStat: 0.5, TStatDefined: true},
	}
	if err := rows.InsertBulk(ctx, "run-empty", domain.PhaseInSample, inSample); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	report, err := NewGenerator(runs, rows).Generate(ctx, "run-empty")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if !report.Phase2Skipped {
		t.Error("Phase2Skipped should be true for a completed run without survivors")
	}
}
