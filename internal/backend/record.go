package backend

import (
	"context"
	"log/slog"

	"github.com/Hedwyn/smelt/internal/proc"
	"github.com/Hedwyn/smelt/internal/state"
	"github.com/Hedwyn/smelt/internal/trace"
)

// recordingRunner decorates a Runner so every executed command lands in the
// trace recorder and, when a run is open, in the state store.
type recordingRunner struct {
	inner    proc.Runner
	recorder *trace.Recorder
	store    state.Store
	logger   *slog.Logger
	runID    string
	name     string
}

func (r *recordingRunner) Run(ctx context.Context, cmd proc.Command) (*proc.Result, error) {
	result, err := r.inner.Run(ctx, cmd)
	if result != nil {
		r.record(result)
	}
	return result, err
}

func (r *recordingRunner) record(result *proc.Result) {
	r.recorder.AddTrace(&trace.CommandTrace{Step: r.name, Result: result})

	if r.store == nil || r.runID == "" {
		return
	}
	step := &state.Step{
		RunID:      r.runID,
		Name:       r.name,
		Command:    result.Command(),
		ExitCode:   result.ExitCode,
		DurationMS: result.Duration.Milliseconds(),
		StartedAt:  result.StartedAt,
	}
	if err := r.store.RecordStep(step); err != nil {
		r.logger.Warn("failed to record step", slog.Any("error", err))
	}
}
