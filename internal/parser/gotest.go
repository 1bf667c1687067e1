package parser

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"ctrf/internal/domain"
)

// test2json actions
const (
	ActionStart  = "start"
	ActionRun    = "run"
	ActionPause  = "pause"
	ActionCont   = "cont"
	ActionPass   = "pass"
	ActionFail   = "fail"
	ActionSkip   = "skip"
	ActionOutput = "output"
	ActionBench  = "bench"
)

// DirectivePrefix starts a marker line in test output
const DirectivePrefix = "ctrf:mark"

// TestMainName names the record emitted for package level failures
const TestMainName = "TestMain"

// TestEvent is a single line of `go test -json` output
type TestEvent struct {
	Time    time.Time
	Action  string
	Package string
	Test    string
	Output  string
	Elapsed float64
}

var (
	locationPattern  = regexp.MustCompile(`^\S+\.go:\d+: (.*)$`)
	framingPrefixes  = []string{"=== RUN", "=== PAUSE", "=== CONT", "=== NAME", "--- PASS:", "--- FAIL:", "--- SKIP:"}
)

type testState struct {
	name        string
	start       time.Time
	output      []string
	markers     []domain.Marker
	children    bool
	childFailed bool
	done        bool
}

type packageState struct {
	tests  map[string]*testState
	order  []string
	start  time.Time
	ran    int
	failed int
	output []string
}

// GoTestStream converts a `go test -json` stream into finished test events.
// It implements io.Writer so it can be attached to a command's stdout.
type GoTestStream struct {
	emit     Sink
	files    FileResolver
	markers  MarkerSource
	logger   *zap.Logger
	worker   string
	packages map[string]*packageState
	pending  []byte
	last     time.Time
}

// NewGoTestStream creates a stream that sends finished tests to emit
func NewGoTestStream(emit Sink, files FileResolver, markers MarkerSource, logger *zap.Logger) *GoTestStream {
	if files == nil {
		files = noFiles{}
	}
	if markers == nil {
		markers = noMarkers{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GoTestStream{
		emit:     emit,
		files:    files,
		markers:  markers,
		logger:   logger,
		packages: make(map[string]*packageState),
	}
}

// SetWorker tags every emitted event with the worker name
func (s *GoTestStream) SetWorker(worker string) {
	s.worker = worker
}

// Write buffers p and processes every complete line
func (s *GoTestStream) Write(p []byte) (int, error) {
	s.pending = append(s.pending, p...)
	for {
		i := bytes.IndexByte(s.pending, '\n')
		if i < 0 {
			break
		}
		s.ProcessLine(s.pending[:i])
		s.pending = s.pending[i+1:]
	}
	return len(p), nil
}

// ReadFrom consumes r until EOF
func (s *GoTestStream) ReadFrom(r io.Reader) (int64, error) {
	var n int64
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		n += int64(len(line)) + 1
		s.ProcessLine(line)
	}
	if err := scanner.Err(); err != nil {
		return n, fmt.Errorf("read test output: %w", err)
	}
	return n, nil
}

// ProcessLine handles one line of test2json output. Lines that are not JSON are ignored.
func (s *GoTestStream) ProcessLine(line []byte) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return
	}
	var ev TestEvent
	if err := json.Unmarshal(line, &ev); err != nil {
		s.logger.Debug("skipping non-json line", zap.ByteString("line", line))
		return
	}
	s.Process(ev)
}

// Process handles one decoded event
func (s *GoTestStream) Process(ev TestEvent) {
	if ev.Package == "" {
		return
	}
	if ev.Time.After(s.last) {
		s.last = ev.Time
	}
	ps := s.pkg(ev.Package)
	if ev.Test == "" {
		s.processPackage(ev, ps)
		return
	}

	switch ev.Action {
	case ActionRun:
		ts := s.test(ps, ev.Test)
		ts.start = ev.Time
		ps.ran++
		if parent, ok := ps.tests[parentName(ev.Test)]; ok {
			parent.children = true
		}
	case ActionOutput:
		ts := s.test(ps, ev.Test)
		if m, ok := ParseDirective(ev.Output); ok {
			ts.markers = append(ts.markers, m)
			return
		}
		ts.output = append(ts.output, ev.Output)
	case ActionPass, ActionFail, ActionSkip:
		ts := s.test(ps, ev.Test)
		if ts.start.IsZero() {
			ts.start = ev.Time.Add(-time.Duration(ev.Elapsed * float64(time.Second)))
		}
		s.finish(ev.Package, ps, ts, ev.Action, ev.Time)
	}
}

// Close flushes packages whose stream ended early. Tests that never finished are
// recorded as failed.
func (s *GoTestStream) Close() error {
	if len(s.pending) > 0 {
		s.ProcessLine(s.pending)
		s.pending = nil
	}
	names := make([]string, 0, len(s.packages))
	for name := range s.packages {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		s.flushUnfinished(name, s.packages[name], s.last)
		delete(s.packages, name)
	}
	return nil
}

// Abort discards every test that has not finished, e.g. after the run was
// cancelled on purpose.
func (s *GoTestStream) Abort() {
	s.pending = nil
	for name := range s.packages {
		delete(s.packages, name)
	}
}

func (s *GoTestStream) processPackage(ev TestEvent, ps *packageState) {
	switch ev.Action {
	case ActionStart:
		ps.start = ev.Time
	case ActionOutput:
		ps.output = append(ps.output, ev.Output)
	case ActionPass, ActionSkip:
		s.flushUnfinished(ev.Package, ps, ev.Time)
		delete(s.packages, ev.Package)
	case ActionFail:
		s.flushUnfinished(ev.Package, ps, ev.Time)
		if ps.failed == 0 {
			phase := domain.PhaseTeardown
			if ps.ran == 0 {
				phase = domain.PhaseSetup
			}
			s.logger.Debug("package failed outside of tests",
				zap.String("package", ev.Package),
				zap.String("phase", string(phase)),
				zap.String("output", strings.Join(ps.output, "")))
			start := ps.start
			if start.IsZero() {
				start = ev.Time.Add(-time.Duration(ev.Elapsed * float64(time.Second)))
			}
			s.emit(domain.Event{
				ID:      ev.Package + "::" + TestMainName,
				Name:    TestMainName,
				Package: ev.Package,
				File:    s.files.Resolve(ev.Package, TestMainName),
				Phase:   phase,
				Outcome: domain.OutcomeFailed,
				Start:   start,
				Stop:    ev.Time,
				Worker:  s.worker,
			})
		}
		delete(s.packages, ev.Package)
	}
}

func (s *GoTestStream) finish(pkg string, ps *packageState, ts *testState, action string, stop time.Time) {
	if ts.done {
		return
	}
	ts.done = true

	failed := action == ActionFail
	if failed {
		ps.failed++
		for name := parentName(ts.name); name != ""; name = parentName(name) {
			if parent, ok := ps.tests[name]; ok {
				parent.childFailed = true
			}
		}
	}
	if ts.children && !(failed && !ts.childFailed) {
		return
	}

	ev := domain.Event{
		ID:      pkg + "::" + ts.name,
		Name:    ts.name,
		Package: pkg,
		File:    s.files.Resolve(pkg, rootName(ts.name)),
		Phase:   domain.PhaseCall,
		Outcome: outcome(action),
		Start:   ts.start,
		Stop:    stop,
		Markers: append(ts.markers, s.markers.Markers(pkg, ts.name)...),
		Params:  params(ts.name),
		Worker:  s.worker,
	}
	if failed {
		ev.Trace = trace(ts.output)
		ev.Message = message(ts.output)
	}
	s.emit(ev)
}

func (s *GoTestStream) flushUnfinished(pkg string, ps *packageState, stop time.Time) {
	for i := len(ps.order) - 1; i >= 0; i-- {
		ts := ps.tests[ps.order[i]]
		if ts.done {
			continue
		}
		s.logger.Warn("test did not complete", zap.String("package", pkg), zap.String("test", ts.name))
		ts.output = append(ts.output, "test did not complete\n")
		s.finish(pkg, ps, ts, ActionFail, stop)
	}
}

func (s *GoTestStream) pkg(name string) *packageState {
	ps, ok := s.packages[name]
	if !ok {
		ps = &packageState{tests: make(map[string]*testState)}
		s.packages[name] = ps
	}
	return ps
}

func (s *GoTestStream) test(ps *packageState, name string) *testState {
	ts, ok := ps.tests[name]
	if !ok {
		ts = &testState{name: name}
		ps.tests[name] = ts
		ps.order = append(ps.order, name)
	}
	return ts
}

func outcome(action string) domain.Outcome {
	switch action {
	case ActionPass:
		return domain.OutcomePassed
	case ActionSkip:
		return domain.OutcomeSkipped
	}
	return domain.OutcomeFailed
}

func parentName(test string) string {
	i := strings.LastIndex(test, "/")
	if i < 0 {
		return ""
	}
	return test[:i]
}

func rootName(test string) string {
	name, _, _ := strings.Cut(test, "/")
	return name
}

// params reads key=value subtest segments as parameters
func params(test string) map[string]string {
	segments := strings.Split(test, "/")
	var out map[string]string
	for _, seg := range segments[1:] {
		key, value, ok := strings.Cut(seg, "=")
		if !ok || key == "" {
			continue
		}
		if out == nil {
			out = make(map[string]string)
		}
		out[key] = value
	}
	return out
}

func isFraming(line string) bool {
	for _, prefix := range framingPrefixes {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}

func bodyLines(output []string) []string {
	var lines []string
	for _, out := range output {
		for _, line := range strings.Split(strings.TrimRight(out, "\n"), "\n") {
			line = strings.TrimLeft(line, " ")
			if line == "" || isFraming(line) {
				continue
			}
			lines = append(lines, line)
		}
	}
	return lines
}

func trace(output []string) string {
	return strings.Join(bodyLines(output), "\n")
}

func message(output []string) string {
	lines := bodyLines(output)
	for _, line := range lines {
		if m := locationPattern.FindStringSubmatch(line); m != nil {
			return m[1]
		}
	}
	if len(lines) > 0 {
		return lines[0]
	}
	return ""
}
