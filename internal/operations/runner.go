package operations

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Runner executes steps sequentially, stopping at the first failure.
type Runner struct {
	steps  []Step
	logger *slog.Logger
	tracer string
}

// NewRunner creates a runner over the given steps
func NewRunner(logger *slog.Logger, steps ...Step) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		steps:  steps,
		logger: logger.With(slog.String("component", "operations")),
		tracer: "bankflow/operations",
	}
}

// RunResult describes a completed (or failed) run.
type RunResult struct {
	OperationID string        `json:"operation_id"`
	Steps       []*StepState  `json:"steps"`
	Duration    time.Duration `json:"duration"`
	Err         error         `json:"-"`
}

// Run executes every step in order against the given state. The state is
// assigned a fresh operation ID when it does not carry one. Steps after a
// failed step are marked skipped.
func (r *Runner) Run(ctx context.Context, state *State) *RunResult {
	if state.OperationID == "" {
		state.OperationID = uuid.New().String()
	}

	result := &RunResult{OperationID: state.OperationID}
	start := time.Now()

	logger := r.logger.With(slog.String("operation_id", state.OperationID))
	logger.InfoContext(ctx, "operation started", slog.Int("steps", len(r.steps)))

	tracer := otel.Tracer(r.tracer)
	ctx, span := tracer.Start(ctx, "operation.run",
		trace.WithAttributes(attribute.String("operation_id", state.OperationID)))
	defer span.End()

	failed := false
	for _, step := range r.steps {
		ss := NewStepState(step.ID(), step.Name())
		result.Steps = append(result.Steps, ss)

		if failed {
			ss.Skip("previous step failed")
			continue
		}

		if err := ctx.Err(); err != nil {
			ss.Skip("operation cancelled")
			failed = true
			result.Err = err
			continue
		}

		ss.Start()
		stepCtx, stepSpan := tracer.Start(ctx, fmt.Sprintf("step.%s", step.ID()))

		err := step.Execute(stepCtx, state)
		if err != nil {
			ss.Fail(err)
			stepSpan.RecordError(err)
			stepSpan.SetStatus(codes.Error, err.Error())
			stepSpan.End()

			logger.ErrorContext(ctx, "step failed",
				slog.String("step", step.ID()),
				slog.Duration("duration", ss.Duration()),
				slog.String("error", err.Error()))

			failed = true
			result.Err = fmt.Errorf("step %s failed: %w", step.ID(), err)
			continue
		}

		ss.Complete()
		stepSpan.End()

		logger.InfoContext(ctx, "step completed",
			slog.String("step", step.ID()),
			slog.Duration("duration", ss.Duration()))
	}

	result.Duration = time.Since(start)
	if result.Err != nil {
		span.SetStatus(codes.Error, result.Err.Error())
		logger.ErrorContext(ctx, "operation failed",
			slog.Duration("duration", result.Duration),
			slog.String("error", result.Err.Error()))
	} else {
		logger.InfoContext(ctx, "operation completed",
			slog.Duration("duration", result.Duration))
	}

	return result
}
