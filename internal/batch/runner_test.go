package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/dunamismax/imagemin/internal/domain"
	"github.com/dunamismax/imagemin/internal/pipeline"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

type call struct {
	path string
	opts domain.CompressionOptions
	dir  string
}

type fakeCompressor struct {
	mu      sync.Mutex
	calls   []call
	failOn  map[string]error
	blockCh chan struct{}
	started chan struct{}
}

func (f *fakeCompressor) Compress(_ context.Context, path string, opts domain.CompressionOptions, dir string) (domain.CompressionResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, call{path: path, opts: opts, dir: dir})
	f.mu.Unlock()

	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.blockCh != nil {
		<-f.blockCh
	}
	if err := f.failOn[path]; err != nil {
		return domain.CompressionResult{}, &pipeline.CompressionError{Path: path, Err: err}
	}
	return domain.NewCompressionResult(path, dir+"/"+path+".out", 100, 40, opts.Format), nil
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestRunner(c Compressor, policy Policy) *Runner {
	return NewRunner(c, Options{Policy: policy, Logger: quietLogger(), Registerer: prometheus.NewRegistry()})
}

func paths(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("img%d.png", i)
	}
	return out
}

func collect(events *[]Event) Callback {
	return func(e Event) { *events = append(*events, e) }
}

func TestRunAllSucceedReportsMonotonicProgress(t *testing.T) {
	for _, n := range []int{1, 2, 3, 7} {
		fake := &fakeCompressor{}
		runner := newTestRunner(fake, PolicyAbort)

		var events []Event
		report, err := runner.Run(context.Background(), Request{Paths: paths(n), Choice: domain.ChoiceOriginal, Quality: 80, OutputDir: "/out"}, collect(&events))
		if err != nil {
			t.Fatalf("n=%d: run: %v", n, err)
		}
		if report.Aborted {
			t.Fatalf("n=%d: unexpected abort", n)
		}

		var progress []float64
		var resultPaths []string
		for _, e := range events {
			if e.Type == EventFileComplete {
				progress = append(progress, e.Percent)
				resultPaths = append(resultPaths, e.Result.OriginalPath)
			}
		}

		if len(progress) != n {
			t.Fatalf("n=%d: expected %d progress updates, got %d", n, n, len(progress))
		}
		for i, p := range progress {
			want := float64(i+1) / float64(n) * 100
			if p != want {
				t.Fatalf("n=%d: update %d expected %v, got %v", n, i, want, p)
			}
			if i > 0 && p <= progress[i-1] {
				t.Fatalf("n=%d: progress not strictly increasing: %v", n, progress)
			}
		}
		if progress[n-1] != 100 {
			t.Fatalf("n=%d: expected final progress 100, got %v", n, progress[n-1])
		}

		want := paths(n)
		for i := range want {
			if resultPaths[i] != want[i] || report.Results[i].OriginalPath != want[i] {
				t.Fatalf("n=%d: results out of order: %v", n, resultPaths)
			}
		}

		if events[0].Type != EventStart || events[len(events)-1].Type != EventComplete {
			t.Fatalf("n=%d: expected start..complete, got %s..%s", n, events[0].Type, events[len(events)-1].Type)
		}
		if runner.Active() {
			t.Fatalf("n=%d: runner still active after completion", n)
		}
	}
}

func TestRunAbortsOnFirstFailure(t *testing.T) {
	const n = 5
	for k := 1; k <= n; k++ {
		all := paths(n)
		fake := &fakeCompressor{failOn: map[string]error{all[k-1]: errors.New("corrupt")}}
		runner := newTestRunner(fake, PolicyAbort)

		var events []Event
		report, err := runner.Run(context.Background(), Request{Paths: all, Choice: "webp", Quality: 80}, collect(&events))

		var compressionErr *pipeline.CompressionError
		if !errors.As(err, &compressionErr) {
			t.Fatalf("k=%d: expected *CompressionError, got %v", k, err)
		}
		if compressionErr.Path != all[k-1] {
			t.Fatalf("k=%d: expected failure on %s, got %s", k, all[k-1], compressionErr.Path)
		}

		completed := 0
		for _, e := range events {
			if e.Type == EventFileComplete {
				completed++
			}
		}
		if completed != k-1 || len(report.Results) != k-1 {
			t.Fatalf("k=%d: expected %d results, got events=%d report=%d", k, k-1, completed, len(report.Results))
		}
		if len(fake.calls) != k {
			t.Fatalf("k=%d: expected %d compress calls, got %d", k, k, len(fake.calls))
		}
		if !report.Aborted {
			t.Fatalf("k=%d: expected aborted report", k)
		}

		last := events[len(events)-1]
		prev := events[len(events)-2]
		if prev.Type != EventFileFailed || last.Type != EventAborted {
			t.Fatalf("k=%d: expected file_failed then aborted, got %s then %s", k, prev.Type, last.Type)
		}
		if runner.Active() {
			t.Fatalf("k=%d: runner still active after abort", k)
		}
	}
}

func TestRunSkipPolicyContinues(t *testing.T) {
	all := paths(4)
	fake := &fakeCompressor{failOn: map[string]error{all[1]: errors.New("corrupt")}}
	runner := newTestRunner(fake, PolicySkip)

	var events []Event
	report, err := runner.Run(context.Background(), Request{Paths: all, Choice: "jpeg", Quality: 60}, collect(&events))
	if err != nil {
		t.Fatalf("expected nil error under skip policy, got %v", err)
	}
	if len(report.Results) != 3 || len(report.Failures) != 1 {
		t.Fatalf("expected 3 results and 1 failure, got %d and %d", len(report.Results), len(report.Failures))
	}
	if report.Failures[0].Path != all[1] {
		t.Fatalf("expected failure on %s, got %s", all[1], report.Failures[0].Path)
	}

	var percents []float64
	for _, e := range events {
		if e.Type == EventFileComplete || e.Type == EventFileFailed {
			percents = append(percents, e.Percent)
		}
	}
	want := []float64{25, 50, 75, 100}
	if len(percents) != len(want) {
		t.Fatalf("expected %d progress events, got %v", len(want), percents)
	}
	for i := range want {
		if percents[i] != want[i] {
			t.Fatalf("expected progress %v, got %v", want, percents)
		}
	}
	if events[len(events)-1].Type != EventComplete {
		t.Fatalf("expected complete event, got %s", events[len(events)-1].Type)
	}
}

func TestRunEmptyBatch(t *testing.T) {
	fake := &fakeCompressor{}
	runner := newTestRunner(fake, PolicyAbort)

	var events []Event
	report, err := runner.Run(context.Background(), Request{Choice: domain.ChoiceOriginal, Quality: 80}, collect(&events))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(fake.calls) != 0 || len(events) != 0 || len(report.Results) != 0 {
		t.Fatalf("expected no work, got calls=%d events=%d results=%d", len(fake.calls), len(events), len(report.Results))
	}
	if runner.Active() {
		t.Fatal("runner still active after empty batch")
	}
}

func TestRunResolvesOriginalFormatPerFile(t *testing.T) {
	fake := &fakeCompressor{}
	runner := newTestRunner(fake, PolicyAbort)

	_, err := runner.Run(context.Background(), Request{
		Paths:   []string{"a.PNG", "b.jpg", "c.bmp", "d.webp", "e.avif"},
		Choice:  domain.ChoiceOriginal,
		Quality: 90,
	}, nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	want := []domain.Format{domain.FormatPNG, domain.FormatJPEG, domain.FormatJPEG, domain.FormatWebP, domain.FormatAVIF}
	for i, c := range fake.calls {
		if c.opts.Format != want[i] {
			t.Fatalf("file %s: expected %s, got %s", c.path, want[i], c.opts.Format)
		}
		if c.opts.Quality != 90 {
			t.Fatalf("file %s: expected quality 90, got %d", c.path, c.opts.Quality)
		}
	}
}

func TestRunIsSingleFlight(t *testing.T) {
	fake := &fakeCompressor{blockCh: make(chan struct{}), started: make(chan struct{}, 1)}
	runner := newTestRunner(fake, PolicyAbort)

	done := make(chan error, 1)
	go func() {
		_, err := runner.Run(context.Background(), Request{Paths: paths(1), Choice: "png", Quality: 80}, nil)
		done <- err
	}()

	<-fake.started
	if !runner.Active() {
		t.Fatal("expected runner to be active")
	}
	if _, err := runner.Run(context.Background(), Request{Paths: paths(1), Choice: "png", Quality: 80}, nil); !errors.Is(err, ErrBatchInProgress) {
		t.Fatalf("expected ErrBatchInProgress, got %v", err)
	}

	close(fake.blockCh)
	if err := <-done; err != nil {
		t.Fatalf("first run: %v", err)
	}
	if runner.Active() {
		t.Fatal("runner still active")
	}
}

func TestRunStopsAtFileBoundaryOnCancel(t *testing.T) {
	fake := &fakeCompressor{}
	runner := newTestRunner(fake, PolicyAbort)

	ctx, cancel := context.WithCancel(context.Background())
	var events []Event
	cb := func(e Event) {
		events = append(events, e)
		if e.Type == EventFileComplete && e.Index == 0 {
			cancel()
		}
	}

	report, err := runner.Run(ctx, Request{Paths: paths(3), Choice: "png", Quality: 80}, cb)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(fake.calls) != 1 || len(report.Results) != 1 || !report.Aborted {
		t.Fatalf("expected one file then abort, got calls=%d results=%d aborted=%v", len(fake.calls), len(report.Results), report.Aborted)
	}
	if events[len(events)-1].Type != EventAborted {
		t.Fatalf("expected aborted event, got %s", events[len(events)-1].Type)
	}
}

func TestParsePolicy(t *testing.T) {
	if p, err := ParsePolicy(""); err != nil || p != PolicyAbort {
		t.Fatalf("expected abort default, got %q %v", p, err)
	}
	if p, err := ParsePolicy(" SKIP "); err != nil || p != PolicySkip {
		t.Fatalf("expected skip, got %q %v", p, err)
	}
	if _, err := ParsePolicy("retry"); err == nil {
		t.Fatal("expected error for unknown policy")
	}
}
