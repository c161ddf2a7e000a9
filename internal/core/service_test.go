package core

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/JonMunkholm/tabula/internal/config"
	"github.com/JonMunkholm/tabula/internal/dataset"
	"github.com/JonMunkholm/tabula/internal/pipeline"
	"github.com/JonMunkholm/tabula/internal/transform"
	"github.com/zoobzio/clockz"
)

func testConfig() config.TransformConfig {
	return config.TransformConfig{
		MaxFileSize:   1 << 20,
		MaxConcurrent: 2,
		MaxWaitTime:   50 * time.Millisecond,
		Timeout:       time.Minute,
	}
}

func newTestService(t *testing.T, cfg config.TransformConfig, opts ...Option) *Service {
	t.Helper()
	svc := NewService(transform.NewCatalogue(), cfg, opts...)
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

func TestTransform_FilterThenUppercase(t *testing.T) {
	svc := newTestService(t, testConfig())
	pipe := `[
		{"name": "filter_rows", "params": {"column": "status", "value": "active"}},
		{"name": "uppercase_column", "params": {"column": "name"}}
	]`

	res, err := svc.Transform(context.Background(), strings.NewReader(sampleCSV), []byte(pipe))
	if err != nil {
		t.Fatalf("Transform() error = %v", err)
	}
	if res.RunID == "" {
		t.Error("RunID is empty")
	}
	if res.Steps != 2 {
		t.Errorf("Steps = %d, want 2", res.Steps)
	}

	want := []string{"JOHN DOE", "ALICE JOHNSON"}
	if res.Dataset.Len() != len(want) {
		t.Fatalf("Len() = %d, want %d", res.Dataset.Len(), len(want))
	}
	for i, name := range want {
		if got := res.Dataset.Row(i)["name"]; got != name {
			t.Errorf("row %d name = %v, want %s", i, got, name)
		}
	}
}

func TestTransform_ErrorPrecedence(t *testing.T) {
	tests := []struct {
		name     string
		csv      string
		pipeline string
		wantCode string
	}{
		{"bad csv wins over bad pipeline", "a,b\n1\n", "{", "FILE002"},
		{"pipeline syntax", sampleCSV, "{", "PIPE005"},
		{"empty pipeline", sampleCSV, "[]", "PIPE001"},
		{"schema", sampleCSV, `[{"name":"trim_whitespace"}]`, "PIPE002"},
		{"unknown transformer", sampleCSV, `[{"name":"nonexistent","params":{}}]`, "PIPE003"},
		{"param", sampleCSV, `[{"name":"trim_whitespace","params":{}}]`, "PIPE004"},
		{
			"column after rename",
			sampleCSV,
			`[{"name":"rename_column","params":{"column":"name","new_name":"full_name"}},
			  {"name":"uppercase_column","params":{"column":"wrong_name"}}]`,
			"COL001",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(t, testConfig())
			res, err := svc.Transform(context.Background(), strings.NewReader(tt.csv), []byte(tt.pipeline))
			if err == nil {
				t.Fatalf("Transform() expected error, got %d rows", res.Dataset.Len())
			}
			if got := MapError(err).Code; got != tt.wantCode {
				t.Errorf("code = %s, want %s (err: %v)", got, tt.wantCode, err)
			}
		})
	}
}

func TestTransform_FileTooLarge(t *testing.T) {
	cfg := testConfig()
	cfg.MaxFileSize = 10
	svc := newTestService(t, cfg)

	_, err := svc.Transform(context.Background(), strings.NewReader(sampleCSV), []byte(`[]`))
	if !errors.Is(err, ErrFileTooLarge) {
		t.Errorf("Transform() error = %v, want ErrFileTooLarge", err)
	}
}

func TestTransform_TooManyRuns(t *testing.T) {
	cfg := testConfig()
	cfg.MaxConcurrent = 1
	svc := newTestService(t, cfg)

	if !svc.limiter.TryAcquire() {
		t.Fatal("TryAcquire() failed on idle limiter")
	}
	defer svc.limiter.Release()

	_, err := svc.Transform(context.Background(), strings.NewReader(sampleCSV), []byte(`[]`))
	if !errors.Is(err, ErrTooManyRuns) {
		t.Errorf("Transform() error = %v, want ErrTooManyRuns", err)
	}
}

func TestRun_CancelledContext(t *testing.T) {
	svc := newTestService(t, testConfig())
	ds, _ := DecodeCSV(strings.NewReader(sampleCSV))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Run(ctx, ds, pipeline.Pipeline{{Name: "trim_whitespace", Params: map[string]any{"column": "name"}}})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
	if got := MapError(err).Code; got != "RUN004" {
		t.Errorf("code = %s, want RUN004", got)
	}
}

func TestRun_DurationUsesClock(t *testing.T) {
	clock := clockz.NewFakeClock()
	svc := newTestService(t, testConfig(), WithClock(clock))
	ds, _ := DecodeCSV(strings.NewReader(sampleCSV))

	res, err := svc.Run(context.Background(), ds, pipeline.Pipeline{
		{Name: "trim_whitespace", Params: map[string]any{"column": "name"}},
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Duration != 0 {
		t.Errorf("Duration = %v with a frozen clock, want 0", res.Duration)
	}
}

func TestRun_TracksAndUntracks(t *testing.T) {
	reg := transform.NewCatalogue()
	entered := make(chan struct{})
	release := make(chan struct{})
	reg.Register(transform.Operation{
		Name: "block",
		Apply: func(ds *dataset.Dataset, _ transform.Params) (*dataset.Dataset, error) {
			close(entered)
			<-release
			return ds.Clone(), nil
		},
	})
	svc := NewService(reg, testConfig())
	defer svc.Close()

	ds, _ := DecodeCSV(strings.NewReader(sampleCSV))
	done := make(chan error, 1)
	go func() {
		_, err := svc.Run(context.Background(), ds, pipeline.Pipeline{
			{Name: "block", Params: map[string]any{}},
			{Name: "trim_whitespace", Params: map[string]any{"column": "name"}},
		})
		done <- err
	}()

	<-entered
	active := svc.ActiveRuns()
	if len(active) != 1 {
		t.Fatalf("ActiveRuns() = %d, want 1", len(active))
	}
	if active[0].TotalSteps != 2 {
		t.Errorf("TotalSteps = %d, want 2", active[0].TotalSteps)
	}
	if st := svc.Status(); st.Limiter.Active != 1 {
		t.Errorf("Status().Limiter.Active = %d, want 1", st.Limiter.Active)
	}

	if err := svc.CancelRun(active[0].ID); err != nil {
		t.Fatalf("CancelRun() error = %v", err)
	}
	close(release)

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run() error = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return")
	}

	if n := len(svc.ActiveRuns()); n != 0 {
		t.Errorf("ActiveRuns() after completion = %d, want 0", n)
	}
	if err := svc.CancelRun(active[0].ID); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("CancelRun() on finished run = %v, want ErrRunNotFound", err)
	}
	if err := svc.WaitForRuns(context.Background()); err != nil {
		t.Errorf("WaitForRuns() error = %v", err)
	}
}

func TestRun_TimeoutBoundsExecution(t *testing.T) {
	reg := transform.NewCatalogue()
	reg.Register(transform.Operation{
		Name: "slow",
		Apply: func(ds *dataset.Dataset, _ transform.Params) (*dataset.Dataset, error) {
			time.Sleep(50 * time.Millisecond)
			return ds.Clone(), nil
		},
	})
	cfg := testConfig()
	cfg.Timeout = 10 * time.Millisecond
	svc := NewService(reg, cfg)
	defer svc.Close()

	ds, _ := DecodeCSV(strings.NewReader(sampleCSV))
	_, err := svc.Run(context.Background(), ds, pipeline.Pipeline{
		{Name: "slow", Params: map[string]any{}},
		{Name: "trim_whitespace", Params: map[string]any{"column": "name"}},
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Run() error = %v, want context.DeadlineExceeded", err)
	}
	if code := MapError(err).Code; code != "RUN005" {
		t.Errorf("code = %s, want RUN005", code)
	}
}

func TestRun_EveryRunIsLogged(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	cfg := testConfig()
	cfg.MaxConcurrent = 200
	cfg.MaxWaitTime = 5 * time.Second
	svc := newTestService(t, cfg)

	ds, err := DecodeCSV(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatal(err)
	}
	good := pipeline.Pipeline{{Name: "trim_whitespace", Params: map[string]any{"column": "name"}}}
	bad := pipeline.Pipeline{{Name: "trim_whitespace", Params: map[string]any{"column": "nope"}}}

	const runs = 160
	var wg sync.WaitGroup
	for i := 0; i < runs; i++ {
		p := good
		if i%2 == 1 {
			p = bad
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = svc.Run(context.Background(), ds, p)
		}()
	}
	wg.Wait()

	out := buf.String()
	if n := strings.Count(out, `msg="run completed"`); n != runs/2 {
		t.Errorf("run completed lines = %d, want %d", n, runs/2)
	}
	if n := strings.Count(out, `msg="run failed"`); n != runs/2 {
		t.Errorf("run failed lines = %d, want %d", n, runs/2)
	}
	if n := strings.Count(out, "code=COL001"); n != runs/2 {
		t.Errorf("COL001 lines = %d, want %d", n, runs/2)
	}
}

func TestListTransformers(t *testing.T) {
	svc := newTestService(t, testConfig())
	list := svc.ListTransformers()

	var names []string
	for _, info := range list {
		names = append(names, info.Name)
	}
	want := "filter_rows,rename_column,titlecase_column,trim_whitespace,uppercase_column"
	if strings.Join(names, ",") != want {
		t.Errorf("names = %v, want %s", names, want)
	}

	filter := list[0]
	if len(filter.Params) != 2 || filter.Params[0].Name != "column" || filter.Params[1].Type != "scalar" {
		t.Errorf("filter_rows params = %+v", filter.Params)
	}
}

func TestStatus_Counters(t *testing.T) {
	svc := newTestService(t, testConfig())
	ok := `[{"name":"trim_whitespace","params":{"column":"name"}}]`
	bad := `[{"name":"trim_whitespace","params":{"column":"nope"}}]`

	_, _ = svc.Transform(context.Background(), strings.NewReader(sampleCSV), []byte(ok))
	_, _ = svc.Transform(context.Background(), strings.NewReader(sampleCSV), []byte(bad))

	st := svc.Status()
	if st.RunsTotal != 2 || st.Successes != 1 || st.Failures != 1 {
		t.Errorf("Status() = %+v", st)
	}
	if st.Transformers != 5 {
		t.Errorf("Transformers = %d, want 5", st.Transformers)
	}
}
