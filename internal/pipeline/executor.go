package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/JonMunkholm/tabula/internal/dataset"
	"github.com/JonMunkholm/tabula/internal/transform"
	"github.com/zoobzio/clockz"
	"github.com/zoobzio/hookz"
	"github.com/zoobzio/metricz"
	"github.com/zoobzio/tracez"
)

// Metric keys. All are cumulative across runs; per-run progress lives in
// StepEvent.
var (
	RunsTotal      = metricz.Key("pipeline.runs.total")
	SuccessesTotal = metricz.Key("pipeline.successes.total")
	FailuresTotal  = metricz.Key("pipeline.failures.total")
	StepsTotal     = metricz.Key("pipeline.steps.total")
	StepsCompleted = metricz.Key("pipeline.steps.completed")
	DurationMs     = metricz.Key("pipeline.duration.ms")
	HooksDropped   = metricz.Key("pipeline.hooks.dropped")
)

// Span keys and tags.
var (
	RunSpan  = tracez.Key("pipeline.run")
	StepSpan = tracez.Key("pipeline.step")

	TagStepCount   = tracez.Tag("pipeline.step_count")
	TagStepNumber  = tracez.Tag("pipeline.step_number")
	TagTransformer = tracez.Tag("pipeline.transformer")
	TagSuccess     = tracez.Tag("pipeline.success")
	TagError       = tracez.Tag("pipeline.error")
)

// Hook event keys.
var (
	EventStepComplete = hookz.Key("pipeline.step_complete")
	EventRunComplete  = hookz.Key("pipeline.run_complete")
)

// StepEvent is emitted asynchronously after each step and after each run.
// Delivery is best-effort: when the hook queue is full the event is dropped
// and counted under HooksDropped.
type StepEvent struct {
	Transformer string        // empty for run events
	StepNumber  int           // 1-based; 0 for run events
	TotalSteps  int
	Completed   int           // steps that succeeded so far
	Rows        int           // rows after the step; 0 on failure
	Success     bool
	Error       error
	Duration    time.Duration // step duration, or whole run for run events
	Timestamp   time.Time
}

// Executor applies pipelines against a registry.
// It is safe for concurrent use; each Execute call works on its own dataset.
type Executor struct {
	registry *transform.Registry
	clock    clockz.Clock
	metrics  *metricz.Registry
	tracer   *tracez.Tracer
	hooks    *hookz.Hooks[StepEvent]
}

// Option configures an Executor.
type Option func(*Executor)

// WithClock sets the clock used for durations. Intended for tests.
func WithClock(c clockz.Clock) Option {
	return func(e *Executor) { e.clock = c }
}

// NewExecutor creates an Executor resolving step names through reg.
func NewExecutor(reg *transform.Registry, opts ...Option) *Executor {
	metrics := metricz.New()
	metrics.Counter(RunsTotal)
	metrics.Counter(SuccessesTotal)
	metrics.Counter(FailuresTotal)
	metrics.Counter(StepsTotal)
	metrics.Counter(StepsCompleted)
	metrics.Counter(HooksDropped)

	e := &Executor{
		registry: reg,
		clock:    clockz.RealClock,
		metrics:  metrics,
		tracer:   tracez.New(),
		hooks:    hookz.New[StepEvent](),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Registry returns the registry steps are resolved against.
func (e *Executor) Registry() *transform.Registry { return e.registry }

// Metrics returns the executor's metrics registry.
func (e *Executor) Metrics() *metricz.Registry { return e.metrics }

// Tracer returns the executor's tracer.
func (e *Executor) Tracer() *tracez.Tracer { return e.tracer }

// OnStepComplete registers a handler called after every step, successful or not.
// Handlers run asynchronously.
func (e *Executor) OnStepComplete(handler func(context.Context, StepEvent) error) error {
	_, err := e.hooks.Hook(EventStepComplete, handler)
	return err
}

// OnRunComplete registers a handler called after every run, successful or not.
// Handlers run asynchronously.
func (e *Executor) OnRunComplete(handler func(context.Context, StepEvent) error) error {
	_, err := e.hooks.Hook(EventRunComplete, handler)
	return err
}

// Close shuts down the tracer and hooks.
func (e *Executor) Close() error {
	e.tracer.Close()
	e.hooks.Close()
	return nil
}

// Execute runs p against ds and returns the final dataset.
//
// Steps run in order. The first failure stops the run and is returned as is:
// *UnknownTransformerError, *transform.ParamError, *transform.ColumnNotFoundError,
// or the context error (wrapped) when ctx is done before a step starts.
// No dataset is returned with an error. ds itself is never modified.
func (e *Executor) Execute(ctx context.Context, ds *dataset.Dataset, p Pipeline) (*dataset.Dataset, error) {
	if len(p) == 0 {
		return nil, ErrEmptyPipeline
	}
	if ds == nil {
		return nil, errors.New("nil dataset")
	}

	start := e.clock.Now()
	e.metrics.Counter(RunsTotal).Inc()
	e.metrics.Counter(StepsTotal).Add(float64(len(p)))

	ctx, span := e.tracer.StartSpan(ctx, RunSpan)
	span.SetTag(TagStepCount, strconv.Itoa(len(p)))

	current := ds
	completed := 0
	var runErr error

	defer func() {
		elapsed := e.clock.Since(start)
		e.metrics.Timer(DurationMs).Record(elapsed)
		if runErr == nil {
			span.SetTag(TagSuccess, "true")
			e.metrics.Counter(SuccessesTotal).Inc()
		} else {
			span.SetTag(TagSuccess, "false")
			span.SetTag(TagError, runErr.Error())
			e.metrics.Counter(FailuresTotal).Inc()
		}
		span.Finish()

		e.emit(ctx, EventRunComplete, StepEvent{
			TotalSteps: len(p),
			Completed:  completed,
			Success:    runErr == nil,
			Error:      runErr,
			Duration:   elapsed,
			Timestamp:  e.clock.Now(),
		})
	}()

	for i, step := range p {
		if err := ctx.Err(); err != nil {
			runErr = fmt.Errorf("pipeline stopped before step %d: %w", i+1, err)
			return nil, runErr
		}

		next, err := e.runStep(ctx, i+1, len(p), completed, step, current)
		if err != nil {
			runErr = err
			return nil, runErr
		}
		current = next
		completed++
		e.metrics.Counter(StepsCompleted).Inc()
	}

	return current, nil
}

// runStep resolves, validates and applies a single step.
func (e *Executor) runStep(ctx context.Context, n, total, completed int, step Step, in *dataset.Dataset) (*dataset.Dataset, error) {
	ctx, span := e.tracer.StartSpan(ctx, StepSpan)
	span.SetTag(TagStepNumber, strconv.Itoa(n))
	span.SetTag(TagTransformer, step.Name)

	stepStart := e.clock.Now()
	out, err := e.applyStep(n, step, in)
	stepDuration := e.clock.Since(stepStart)

	if err != nil {
		span.SetTag(TagError, err.Error())
	}
	span.Finish()

	event := StepEvent{
		Transformer: step.Name,
		StepNumber:  n,
		TotalSteps:  total,
		Completed:   completed,
		Success:     err == nil,
		Error:       err,
		Duration:    stepDuration,
		Timestamp:   e.clock.Now(),
	}
	if err == nil {
		event.Completed++
		event.Rows = out.Len()
	}
	e.emit(ctx, EventStepComplete, event)

	return out, err
}

// emit hands ev to the hook workers without blocking the run.
func (e *Executor) emit(ctx context.Context, key hookz.Key, ev StepEvent) {
	if err := e.hooks.Emit(ctx, key, ev); err != nil {
		e.metrics.Counter(HooksDropped).Inc()
	}
}

func (e *Executor) applyStep(n int, step Step, in *dataset.Dataset) (*dataset.Dataset, error) {
	op, ok := e.registry.Get(step.Name)
	if !ok {
		return nil, &UnknownTransformerError{Step: n, Name: step.Name}
	}

	if err := op.CheckParams(step.Params); err != nil {
		var pe *transform.ParamError
		if errors.As(err, &pe) {
			pe.Step = n
		}
		return nil, err
	}

	return op.Apply(in, transform.Params(step.Params))
}
