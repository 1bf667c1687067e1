package parser

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ctrf/internal/domain"
)

var t0 = time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

type lines struct {
	t   *testing.T
	buf strings.Builder
}

func (l *lines) add(offsetMs int, action, pkg, test, output string) *lines {
	ev := TestEvent{
		Time:    t0.Add(time.Duration(offsetMs) * time.Millisecond),
		Action:  action,
		Package: pkg,
		Test:    test,
		Output:  output,
	}
	data, err := json.Marshal(ev)
	require.NoError(l.t, err)
	l.buf.Write(data)
	l.buf.WriteByte('\n')
	return l
}

type staticFiles map[string]string

func (f staticFiles) Resolve(pkg, test string) string { return f[test] }

type staticMarkers map[string][]domain.Marker

func (m staticMarkers) Markers(pkg, test string) []domain.Marker { return m[test] }

func collect(t *testing.T, input string, files FileResolver, markers MarkerSource) []domain.Event {
	t.Helper()
	var events []domain.Event
	stream := NewGoTestStream(func(ev domain.Event) { events = append(events, ev) }, files, markers, nil)
	_, err := stream.ReadFrom(strings.NewReader(input))
	require.NoError(t, err)
	require.NoError(t, stream.Close())
	return events
}

func TestGoTestStream_BasicOutcomes(t *testing.T) {
	l := &lines{t: t}
	l.add(0, "start", "ex/app", "", "").
		add(1, "run", "ex/app", "TestPass", "=== RUN   TestPass\n").
		add(11, "output", "ex/app", "TestPass", "--- PASS: TestPass (0.01s)\n").
		add(11, "pass", "ex/app", "TestPass", "").
		add(12, "run", "ex/app", "TestFail", "=== RUN   TestFail\n").
		add(13, "output", "ex/app", "TestFail", "    app_test.go:20: expected 1, got 2\n").
		add(14, "output", "ex/app", "TestFail", "--- FAIL: TestFail (0.00s)\n").
		add(15, "fail", "ex/app", "TestFail", "").
		add(16, "run", "ex/app", "TestSkip", "=== RUN   TestSkip\n").
		add(17, "output", "ex/app", "TestSkip", "    app_test.go:30: not on this platform\n").
		add(17, "skip", "ex/app", "TestSkip", "").
		add(18, "fail", "ex/app", "", "")

	events := collect(t, l.buf.String(), staticFiles{"TestPass": "app_test.go", "TestFail": "app_test.go"}, nil)

	require.Len(t, events, 3)
	assert.Equal(t, "ex/app::TestPass", events[0].ID)
	assert.Equal(t, domain.OutcomePassed, events[0].Outcome)
	assert.Equal(t, domain.PhaseCall, events[0].Phase)
	assert.Equal(t, "app_test.go", events[0].File)
	assert.Equal(t, 10*time.Millisecond, events[0].Stop.Sub(events[0].Start))
	assert.Empty(t, events[0].Trace)

	assert.Equal(t, domain.OutcomeFailed, events[1].Outcome)
	assert.Equal(t, "app_test.go:20: expected 1, got 2", events[1].Trace)
	assert.Equal(t, "expected 1, got 2", events[1].Message)

	assert.Equal(t, domain.OutcomeSkipped, events[2].Outcome)
	assert.Empty(t, events[2].Trace)
}

func TestGoTestStream_Subtests(t *testing.T) {
	l := &lines{t: t}
	l.add(0, "run", "ex/app", "TestLogin", "").
		add(1, "run", "ex/app", "TestLogin/browser_name=firefox", "").
		add(2, "pass", "ex/app", "TestLogin/browser_name=firefox", "").
		add(3, "run", "ex/app", "TestLogin/browser_name=chromium", "").
		add(4, "output", "ex/app", "TestLogin/browser_name=chromium", "        login_test.go:9: timeout\n").
		add(5, "fail", "ex/app", "TestLogin/browser_name=chromium", "").
		add(6, "fail", "ex/app", "TestLogin", "").
		add(7, "run", "ex/app", "TestOwnFailure", "").
		add(8, "run", "ex/app", "TestOwnFailure/ok", "").
		add(9, "pass", "ex/app", "TestOwnFailure/ok", "").
		add(10, "output", "ex/app", "TestOwnFailure", "    own_test.go:5: cleanup broke\n").
		add(11, "fail", "ex/app", "TestOwnFailure", "").
		add(12, "fail", "ex/app", "", "")

	events := collect(t, l.buf.String(), staticFiles{"TestLogin": "login_test.go"}, nil)

	var got []string
	for _, ev := range events {
		got = append(got, ev.Name)
	}
	assert.Equal(t, []string{
		"TestLogin/browser_name=firefox",
		"TestLogin/browser_name=chromium",
		"TestOwnFailure/ok",
		"TestOwnFailure",
	}, got)
	assert.Equal(t, "firefox", events[0].Params["browser_name"])
	assert.Equal(t, "login_test.go", events[0].File)
	assert.Equal(t, "timeout", events[1].Message)
	assert.Equal(t, "cleanup broke", events[3].Message)
}

func TestGoTestStream_Markers(t *testing.T) {
	l := &lines{t: t}
	l.add(0, "run", "ex/app", "TestTagged", "").
		add(1, "output", "ex/app", "TestTagged", "    app_test.go:3: ctrf:mark smoke\n").
		add(1, "output", "ex/app", "TestTagged", "    app_test.go:4: ctrf:mark retries 3\n").
		add(1, "output", "ex/app", "TestTagged", "    app_test.go:5: ctrf:mark priority level=high\n").
		add(2, "pass", "ex/app", "TestTagged", "")

	markers := staticMarkers{"TestTagged": {{Name: "ctrf_suite", Args: []string{"custom"}}}}
	events := collect(t, l.buf.String(), nil, markers)

	require.Len(t, events, 1)
	assert.Equal(t, []domain.Marker{
		{Name: "smoke"},
		{Name: "retries", Args: []string{"3"}},
		{Name: "priority", Kwargs: []domain.KV{{Key: "level", Value: "high"}}},
		{Name: "ctrf_suite", Args: []string{"custom"}},
	}, events[0].Markers)
}

func TestGoTestStream_PackageFailures(t *testing.T) {
	t.Run("build failure is a setup error", func(t *testing.T) {
		l := &lines{t: t}
		l.add(0, "start", "ex/broken", "", "").
			add(1, "output", "ex/broken", "", "FAIL\tex/broken [build failed]\n").
			add(2, "fail", "ex/broken", "", "")

		events := collect(t, l.buf.String(), nil, nil)

		require.Len(t, events, 1)
		assert.Equal(t, "ex/broken::TestMain", events[0].ID)
		assert.Equal(t, domain.PhaseSetup, events[0].Phase)
		assert.Equal(t, domain.OutcomeFailed, events[0].Outcome)
		assert.Empty(t, events[0].Trace)
	})

	t.Run("failure after passing tests is a teardown error", func(t *testing.T) {
		l := &lines{t: t}
		l.add(0, "start", "ex/leaky", "", "").
			add(1, "run", "ex/leaky", "TestA", "").
			add(2, "pass", "ex/leaky", "TestA", "").
			add(3, "output", "ex/leaky", "", "goleak: found unexpected goroutines\n").
			add(4, "fail", "ex/leaky", "", "")

		events := collect(t, l.buf.String(), nil, nil)

		require.Len(t, events, 2)
		assert.Equal(t, domain.OutcomePassed, events[0].Outcome)
		assert.Equal(t, "ex/leaky::TestMain", events[1].ID)
		assert.Equal(t, domain.PhaseTeardown, events[1].Phase)
	})

	t.Run("failing tests do not add a package record", func(t *testing.T) {
		l := &lines{t: t}
		l.add(1, "run", "ex/app", "TestA", "").
			add(2, "fail", "ex/app", "TestA", "").
			add(3, "fail", "ex/app", "", "")

		events := collect(t, l.buf.String(), nil, nil)
		require.Len(t, events, 1)
	})
}

func TestGoTestStream_UnfinishedTests(t *testing.T) {
	l := &lines{t: t}
	l.add(0, "run", "ex/app", "TestHangs", "").
		add(5, "output", "ex/app", "TestHangs", "    app_test.go:7: waiting\n").
		add(9, "run", "ex/other", "TestDone", "").
		add(10, "pass", "ex/other", "TestDone", "")

	events := collect(t, l.buf.String(), nil, nil)

	require.Len(t, events, 2)
	assert.Equal(t, "ex/other::TestDone", events[0].ID)
	assert.Equal(t, "ex/app::TestHangs", events[1].ID)
	assert.Equal(t, domain.OutcomeFailed, events[1].Outcome)
	assert.Equal(t, "app_test.go:7: waiting\ntest did not complete", events[1].Trace)
	assert.Equal(t, t0.Add(10*time.Millisecond), events[1].Stop)
}

func TestGoTestStream_WriteSplitsLines(t *testing.T) {
	l := &lines{t: t}
	l.add(0, "run", "ex/app", "TestA", "").add(3, "pass", "ex/app", "TestA", "")
	input := "not json at all\n" + l.buf.String()

	var events []domain.Event
	stream := NewGoTestStream(func(ev domain.Event) { events = append(events, ev) }, nil, nil, nil)
	stream.SetWorker("gw1")
	for i := 0; i < len(input); i += 7 {
		end := i + 7
		if end > len(input) {
			end = len(input)
		}
		n, err := stream.Write([]byte(input[i:end]))
		require.NoError(t, err)
		require.Equal(t, end-i, n)
	}
	require.NoError(t, stream.Close())

	require.Len(t, events, 1)
	assert.Equal(t, "gw1", events[0].Worker)
	assert.Equal(t, 3*time.Millisecond, events[0].Stop.Sub(events[0].Start))
}

func TestGoTestStream_ElapsedWithoutRun(t *testing.T) {
	data, err := json.Marshal(TestEvent{Time: t0, Action: "pass", Package: "ex/app", Test: "TestLate", Elapsed: 0.25})
	require.NoError(t, err)

	events := collect(t, string(data)+"\n", nil, nil)

	require.Len(t, events, 1)
	assert.Equal(t, 250*time.Millisecond, events[0].Stop.Sub(events[0].Start))
}

func TestParseDirective(t *testing.T) {
	m, ok := ParseDirective("    x_test.go:1: ctrf:mark ctrf_suite custom  extra=1\n")
	require.True(t, ok)
	assert.Equal(t, domain.Marker{Name: "ctrf_suite", Args: []string{"custom"}, Kwargs: []domain.KV{{Key: "extra", Value: "1"}}}, m)

	_, ok = ParseDirective("    x_test.go:1: plain log line\n")
	assert.False(t, ok)
}

func TestParseDirective_Quoted(t *testing.T) {
	m, ok := ParseDirective(`    x_test.go:1: ctrf:mark env "a=b" "" owner="team a" 3` + "\n")
	require.True(t, ok)
	assert.Equal(t, "env", m.Name)
	assert.Equal(t, []string{"a=b", "", "3"}, m.Args)
	assert.Equal(t, []domain.KV{{Key: "owner", Value: "team a"}}, m.Kwargs)

	_, ok = ParseDirective(`    x_test.go:1: ctrf:mark env "unterminated` + "\n")
	assert.False(t, ok)
}

func TestGoTestStream_Abort(t *testing.T) {
	l := &lines{t: t}
	l.add(0, "run", "ex/app", "TestDone", "").
		add(1, "pass", "ex/app", "TestDone", "").
		add(2, "run", "ex/app", "TestKilled", "")

	var events []domain.Event
	stream := NewGoTestStream(func(ev domain.Event) { events = append(events, ev) }, nil, nil, nil)
	_, err := stream.ReadFrom(strings.NewReader(l.buf.String()))
	require.NoError(t, err)
	stream.Abort()
	require.NoError(t, stream.Close())

	require.Len(t, events, 1)
	assert.Equal(t, "ex/app::TestDone", events[0].ID)
}
