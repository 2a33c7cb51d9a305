package site

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"git.home.luguber.info/inful/pagesmith/internal/logfields"
	"git.home.luguber.info/inful/pagesmith/internal/metrics"
	"git.home.luguber.info/inful/pagesmith/internal/observability"
)

// StageName is a strongly-typed identifier for a build stage.
type StageName string

// Canonical stage names, in execution order.
const (
	StagePrepare     StageName = "prepare"
	StageDiscover    StageName = "discover"
	StageRender      StageName = "render"
	StagePassthrough StageName = "passthrough"
	StagePromote     StageName = "promote"
)

// StageError wraps the error a stage failed with.
type StageError struct {
	Stage StageName
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("stage %s: %v", e.Stage, e.Err) }
func (e *StageError) Unwrap() error { return e.Err }

// Canceled reports whether the stage stopped because its context ended.
func (e *StageError) Canceled() bool {
	return stderrors.Is(e.Err, context.Canceled) || stderrors.Is(e.Err, context.DeadlineExceeded)
}

// runStage times fn, records the result and wraps failures in a StageError.
func (b *Builder) runStage(ctx context.Context, report *Report, name StageName, fn func(context.Context) error) error {
	ctx = observability.WithStage(ctx, string(name))
	start := time.Now()
	err := fn(ctx)
	d := time.Since(start)

	report.StageDurationsMS[string(name)] = float64(d.Microseconds()) / 1000
	b.recorder.ObserveStageDuration(string(name), d)

	if err == nil {
		b.recorder.IncStageResult(string(name), metrics.ResultSuccess)
		observability.DebugContext(ctx, "Stage complete", logfields.DurationMS(float64(d.Milliseconds())))
		return nil
	}
	se := &StageError{Stage: name, Err: err}
	if se.Canceled() {
		b.recorder.IncStageResult(string(name), metrics.ResultCanceled)
	} else {
		b.recorder.IncStageResult(string(name), metrics.ResultFatal)
	}
	return se
}
