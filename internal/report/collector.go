package report

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/acarl005/stripansi"
	"go.uber.org/zap"

	"ctrf/internal/domain"
)

// Options configures how events are projected into records
type Options struct {
	// DefaultSuite prefixes the file name in the suite path. Empty means file name only.
	DefaultSuite string
}

// Collector turns "test finished" events into report records.
// It is not safe for concurrent use; each worker owns its own collector.
type Collector struct {
	report  *Report
	opts    Options
	logger  *zap.Logger
	seen    map[string]bool
	unnamed int
}

// NewCollector creates a collector appending to rep
func NewCollector(rep *Report, opts Options, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collector{
		report: rep,
		opts:   opts,
		logger: logger,
		seen:   make(map[string]bool),
	}
}

// Report returns the report the collector appends to
func (c *Collector) Report() *Report {
	return c.report
}

// OnTestFinished records one finished test. A second event for an already
// recorded id is dropped.
func (c *Collector) OnTestFinished(ev domain.Event) {
	ev = c.normalize(ev)
	if c.seen[ev.ID] {
		c.logger.Debug("dropping repeated event for recorded test",
			zap.String("id", ev.ID),
			zap.String("phase", string(ev.Phase)),
			zap.String("outcome", string(ev.Outcome)))
		return
	}
	c.seen[ev.ID] = true

	if err := c.report.Append(c.record(ev)); err != nil {
		c.logger.Warn("test finished after report was frozen", zap.String("id", ev.ID), zap.Error(err))
	}
}

// normalize fills in missing fields so that a malformed event still yields a record
func (c *Collector) normalize(ev domain.Event) domain.Event {
	if ev.ID == "" {
		switch {
		case ev.Name != "" && ev.File != "":
			ev.ID = ev.File + "::" + ev.Name
		case ev.Name != "":
			ev.ID = ev.Name
		default:
			c.unnamed++
			ev.ID = fmt.Sprintf("unknown-%d", c.unnamed)
		}
		c.logger.Warn("event without test id", zap.String("id", ev.ID))
	}
	if ev.Name == "" {
		ev.Name = ev.ID
	}
	if ev.Phase == "" {
		ev.Phase = domain.PhaseCall
	}
	if ev.Start.IsZero() {
		ev.Start = ev.Stop
	}
	if ev.Stop.IsZero() || ev.Stop.Before(ev.Start) {
		ev.Stop = ev.Start
	}
	return ev
}

func (c *Collector) record(ev domain.Event) domain.TestRecord {
	status, raw := classify(ev.Phase, ev.Outcome)
	if status == domain.StatusError && ev.Outcome != domain.OutcomeFailed {
		c.logger.Warn("event with unknown outcome", zap.String("id", ev.ID), zap.String("outcome", string(ev.Outcome)))
	}

	file := ev.File
	if file == "" {
		file = ev.Package
	}

	start := ev.Start.UnixMilli()
	stop := ev.Stop.UnixMilli()
	rec := domain.TestRecord{
		ID:        ev.ID,
		Name:      ev.Name,
		Status:    status,
		RawStatus: raw,
		Start:     start,
		Stop:      stop,
		Duration:  stop - start,
		Tags:      Tags(ev.Markers),
		Suite:     ResolveSuite(ev.Markers, c.opts.DefaultSuite, filepath.Base(file)),
		FilePath:  ev.File,
		Browser:   Browser(ev.Params),
	}
	if raw == domain.RawStatusCallFailed {
		rec.Trace = clean(ev.Trace)
		rec.Message = clean(ev.Message)
		if rec.Message == "" {
			rec.Message = firstLine(rec.Trace)
		}
		if rec.Message == "" {
			rec.Message = "test failed"
		}
		if rec.Trace == "" {
			rec.Trace = rec.Message
		}
	}
	return rec
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return strings.TrimSpace(line)
}

// classify maps a phase and its outcome onto the CTRF status and raw status
func classify(phase domain.Phase, outcome domain.Outcome) (domain.Status, string) {
	switch outcome {
	case domain.OutcomePassed:
		return domain.StatusPassed, string(phase) + "_passed"
	case domain.OutcomeSkipped:
		return domain.StatusSkipped, string(phase) + "_skipped"
	case domain.OutcomeFailed:
		if phase == domain.PhaseCall {
			return domain.StatusFailed, domain.RawStatusCallFailed
		}
		return domain.StatusError, string(phase) + "_failed"
	}
	return domain.StatusError, string(phase) + "_unknown"
}

func clean(s string) string {
	return strings.TrimSpace(stripansi.Strip(s))
}
