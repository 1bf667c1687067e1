package execution

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	"ctrf/internal/config"
	"ctrf/internal/domain"
	"ctrf/internal/parser"
	"ctrf/internal/report"
	"ctrf/internal/ui"
)

// WorkerPool runs package partitions in parallel. Every worker owns its own
// collector and report; the controller merges them once all workers are done.
type WorkerPool struct {
	config    *config.Config
	runner    TestRunner
	scheduler Scheduler
	progress  *ui.ProgressBar
	files     parser.FileResolver
	markers   parser.MarkerSource
	logger    *zap.Logger
}

// partial is what a worker hands back to the controller
type partial struct {
	worker string
	data   []byte         // encoded report, distributed runs
	rep    *report.Report // report handed over directly, single worker runs
	err    error
}

// tally counts finished tests across workers for the progress bar
type tally struct {
	mu                      sync.Mutex
	passed, failed, skipped int
}

// NewWorkerPool creates a new WorkerPool
func NewWorkerPool(cfg *config.Config, runner TestRunner, scheduler Scheduler, logger *zap.Logger) *WorkerPool {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WorkerPool{
		config:    cfg,
		runner:    runner,
		scheduler: scheduler,
		logger:    logger,
	}
}

// SetProgress sets the progress bar for the worker pool
func (wp *WorkerPool) SetProgress(progress *ui.ProgressBar) {
	wp.progress = progress
}

// SetSources sets where source files and markers of tests are looked up
func (wp *WorkerPool) SetSources(files parser.FileResolver, markers parser.MarkerSource) {
	wp.files = files
	wp.markers = markers
}

// Execute runs every package and returns the merged report. The report is
// returned even when some workers failed, together with their errors.
func (wp *WorkerPool) Execute(ctx context.Context, packages []domain.Package) (*Result, error) {
	if len(packages) == 0 {
		return &Result{Report: report.New(report.DefaultTool)}, nil
	}

	paths := make([]string, 0, len(packages))
	for _, pkg := range packages {
		paths = append(paths, pkg.ImportPath)
	}
	partitions := wp.scheduler.Schedule(paths, wp.config.Processors)
	distributed := len(partitions) > 1

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var counts tally
	var stopOnce sync.Once
	stopped := false
	onEvent := func(ev domain.Event) {
		counts.mu.Lock()
		switch ev.Outcome {
		case domain.OutcomePassed:
			counts.passed++
		case domain.OutcomeSkipped:
			counts.skipped++
		default:
			counts.failed++
		}
		if wp.progress != nil {
			wp.progress.Update(counts.passed, counts.failed, counts.skipped)
		}
		failed := ev.Outcome != domain.OutcomePassed && ev.Outcome != domain.OutcomeSkipped
		counts.mu.Unlock()

		if failed && wp.config.Flags.FailFast {
			stopOnce.Do(func() {
				counts.mu.Lock()
				stopped = true
				counts.mu.Unlock()
				wp.logger.Debug("stopping run after first failure", zap.String("id", ev.ID))
				cancel()
			})
		}
	}

	startTime := time.Now()
	results := make(chan partial, len(partitions))
	var wg sync.WaitGroup
	for i, partition := range partitions {
		wg.Add(1)
		go func(workerID int, pkgs []string) {
			defer wg.Done()
			results <- wp.runWorker(ctx, workerID, pkgs, distributed, onEvent)
		}(i+1, partition)
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	// Partials are merged in arrival order
	var errs *multierror.Error
	var parts []*report.Report
	for p := range results {
		if p.err != nil {
			counts.mu.Lock()
			expected := stopped && errors.Is(p.err, context.Canceled)
			counts.mu.Unlock()
			if !expected {
				errs = multierror.Append(errs, fmt.Errorf("worker %s: %w", p.worker, p.err))
			}
		}
		rep := p.rep
		if p.data != nil {
			decoded, err := report.Unmarshal(p.data)
			if err != nil {
				errs = multierror.Append(errs, fmt.Errorf("worker %s: %w", p.worker, err))
				continue
			}
			rep = decoded
		}
		if rep != nil {
			parts = append(parts, rep)
		}
	}
	if wp.progress != nil {
		wp.progress.Finish()
	}

	merged, err := report.Merge(wp.logger, parts...)
	if err != nil {
		merged = report.New(report.DefaultTool)
		errs = multierror.Append(errs, err)
	}

	return &Result{
		Report:   merged,
		Duration: time.Since(startTime),
		Workers:  len(partitions),
	}, errs.ErrorOrNil()
}

// runWorker drives one test process and collects its events into a report of its own
func (wp *WorkerPool) runWorker(ctx context.Context, workerID int, packages []string, distributed bool, onEvent parser.Sink) partial {
	name := wp.config.GetWorkerName(workerID)
	logger := wp.logger.With(zap.String("worker", name))

	rep := report.New(report.DefaultTool)
	collector := report.NewCollector(rep, report.Options{DefaultSuite: wp.config.Suite}, logger)
	stream := parser.NewGoTestStream(func(ev domain.Event) {
		collector.OnTestFinished(ev)
		onEvent(ev)
	}, wp.files, wp.markers, logger)
	stream.SetWorker(name)

	logger.Debug("worker started", zap.Strings("packages", packages))
	err := wp.runner.Run(ctx, packages, workerID, stream)
	if ctx.Err() != nil {
		// Tests cut off by cancellation were never collected
		stream.Abort()
	}
	stream.Close()
	logger.Debug("worker finished", zap.Int("tests", rep.Len()))

	p := partial{worker: name, err: err}
	if !distributed {
		p.rep = rep
		return p
	}

	data, mErr := report.Marshal(rep, report.Meta{})
	if mErr != nil {
		p.err = multierror.Append(p.err, mErr)
		return p
	}
	p.data = data
	return p
}
