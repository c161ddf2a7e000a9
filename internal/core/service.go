package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/JonMunkholm/tabula/internal/config"
	"github.com/JonMunkholm/tabula/internal/dataset"
	"github.com/JonMunkholm/tabula/internal/logging"
	"github.com/JonMunkholm/tabula/internal/pipeline"
	"github.com/JonMunkholm/tabula/internal/transform"
	"github.com/google/uuid"
	"github.com/zoobzio/clockz"
)

// ErrRunNotFound is returned by CancelRun for an unknown or finished run.
var ErrRunNotFound = errors.New("run not found")

// Service runs pipelines against uploaded CSV data. It is safe for
// concurrent use.
type Service struct {
	registry *transform.Registry
	executor *pipeline.Executor
	limiter  *RunLimiter
	clock    clockz.Clock
	cfg      config.TransformConfig

	mu   sync.RWMutex
	runs map[string]*activeRun
}

type activeRun struct {
	info   RunInfo
	cancel context.CancelFunc
}

// Option configures a Service.
type Option func(*Service)

// WithClock sets the clock used for run timing. Intended for tests.
func WithClock(c clockz.Clock) Option {
	return func(s *Service) { s.clock = c }
}

// NewService creates a Service over reg. Zero-valued limits in cfg fall back
// to the run limiter defaults; a zero Timeout disables the per-run timeout.
func NewService(reg *transform.Registry, cfg config.TransformConfig, opts ...Option) *Service {
	s := &Service{
		registry: reg,
		limiter:  NewRunLimiter(cfg.MaxConcurrent, cfg.MaxWaitTime),
		clock:    clockz.RealClock,
		cfg:      cfg,
		runs:     make(map[string]*activeRun),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.executor = pipeline.NewExecutor(reg, pipeline.WithClock(s.clock))

	// Registration only fails on a closed hook set, which cannot happen here.
	_ = s.executor.OnStepComplete(s.trackStep)

	return s
}

// Close releases the executor's tracer and hooks.
func (s *Service) Close() error {
	return s.executor.Close()
}

// Executor exposes the pipeline executor, mainly for its metrics and tracer.
func (s *Service) Executor() *pipeline.Executor { return s.executor }

// Transform decodes csvData and pipelineJSON and runs the pipeline.
//
// Errors come back in this order of checks: run slot (ErrTooManyRuns or the
// context error), CSV (ErrInvalidInputData, ErrFileTooLarge), pipeline text
// (ErrInvalidPipelineSyntax), pipeline shape (ErrEmptyPipeline, SchemaError),
// then the first failing step.
func (s *Service) Transform(ctx context.Context, csvData io.Reader, pipelineJSON []byte) (*Result, error) {
	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	ds, err := DecodeCSV(NewLimitedReader(csvData, s.cfg.MaxFileSize))
	if err != nil {
		return nil, err
	}

	p, err := pipeline.DecodeAndParse(pipelineJSON)
	if err != nil {
		return nil, err
	}

	return s.run(ctx, ds, p)
}

// Run executes an already parsed pipeline against ds, under the same slot,
// timeout and tracking as Transform.
func (s *Service) Run(ctx context.Context, ds *dataset.Dataset, p pipeline.Pipeline) (*Result, error) {
	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	return s.run(ctx, ds, p)
}

func (s *Service) run(ctx context.Context, ds *dataset.Dataset, p pipeline.Pipeline) (*Result, error) {
	runID := uuid.New().String()
	ctx = logging.WithRunID(ctx, runID)

	var cancel context.CancelFunc
	if s.cfg.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	start := s.clock.Now()
	s.track(runID, start, len(p), cancel)
	defer s.untrack(runID)

	logger := logging.FromContext(ctx).With(clientAttrs(ctx)...)
	logger.Debug("run started", "steps", len(p), "rows", ds.Len(), "columns", len(ds.Columns()))

	out, err := s.executor.Execute(ctx, ds, p)
	elapsed := s.clock.Since(start)
	if err != nil {
		logger.Warn("run failed",
			"steps", len(p),
			"duration_ms", elapsed.Milliseconds(),
			"error", err,
			"code", MapError(err).Code,
		)
		return nil, err
	}
	logger.Info("run completed",
		"steps", len(p),
		"rows", out.Len(),
		"duration_ms", elapsed.Milliseconds(),
	)

	return &Result{
		RunID:    runID,
		Dataset:  out,
		Steps:    len(p),
		Duration: elapsed,
	}, nil
}

func (s *Service) track(id string, started time.Time, steps int, cancel context.CancelFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[id] = &activeRun{
		info:   RunInfo{ID: id, Started: started, TotalSteps: steps},
		cancel: cancel,
	}
}

func (s *Service) untrack(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.runs, id)
}

// trackStep updates progress for the run named in ctx. Events arrive
// asynchronously and may land after the run has finished.
func (s *Service) trackStep(ctx context.Context, ev pipeline.StepEvent) error {
	id := logging.RunID(ctx)
	if id == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[id]
	if !ok {
		return nil
	}
	if ev.Completed > run.info.Completed {
		run.info.Completed = ev.Completed
	}
	run.info.Current = ev.Transformer
	return nil
}

// ActiveRuns returns the runs currently executing, oldest first.
func (s *Service) ActiveRuns() []RunInfo {
	s.mu.RLock()
	out := make([]RunInfo, 0, len(s.runs))
	for _, r := range s.runs {
		out = append(out, r.info)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Started.Equal(out[j].Started) {
			return out[i].ID < out[j].ID
		}
		return out[i].Started.Before(out[j].Started)
	})
	return out
}

// CancelRun cancels a run in progress. The run stops before its next step.
func (s *Service) CancelRun(id string) error {
	s.mu.RLock()
	run, ok := s.runs[id]
	s.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	run.cancel()
	return nil
}

// ListTransformers describes every registered transformer, sorted by name.
func (s *Service) ListTransformers() []TransformerInfo {
	names := s.registry.Names()
	out := make([]TransformerInfo, 0, len(names))
	for _, name := range names {
		op, ok := s.registry.Get(name)
		if !ok {
			continue
		}
		info := TransformerInfo{
			Name:        op.Name,
			Description: op.Description,
			Params:      make([]ParamInfo, len(op.Params)),
		}
		for i, p := range op.Params {
			info.Params[i] = ParamInfo{Name: p.Name, Type: p.Kind.String()}
		}
		out = append(out, info)
	}
	return out
}

// RunLimiterStatus returns the current state of the run limiter.
func (s *Service) RunLimiterStatus() RunLimiterStatus {
	return s.limiter.Status()
}

// WaitForRuns blocks until no run is active or ctx ends. Used on shutdown.
func (s *Service) WaitForRuns(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

// Status returns limiter state, active runs and run counters.
func (s *Service) Status() Status {
	m := s.executor.Metrics()
	return Status{
		Limiter:      s.limiter.Status(),
		Active:       s.ActiveRuns(),
		RunsTotal:    int64(m.Counter(pipeline.RunsTotal).Value()),
		Successes:    int64(m.Counter(pipeline.SuccessesTotal).Value()),
		Failures:     int64(m.Counter(pipeline.FailuresTotal).Value()),
		Transformers: s.registry.Count(),
	}
}
