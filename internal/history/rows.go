package history

import (
	"encoding/json"
	"strings"
	"time"

	"ctrf/internal/report"
)

// RunRow is one row of the runs table
type RunRow struct {
	ReportID  string
	Tool      string
	CreatedAt time.Time
	Workers   int
	Tests     int
	Passed    int
	Failed    int
	Skipped   int
	Pending   int
	Other     int
	Errors    int
	Start     int64
	Stop      int64
}

// TestRow is one row of the tests table
type TestRow struct {
	ReportID  string
	TestID    string
	Name      string
	Status    string
	RawStatus string
	Duration  int64
	Suite     string
	Tags      string
	FilePath  string
	Browser   string
	Message   string
}

// BuildRows flattens a report into the rows stored for it
func BuildRows(rep *report.Report, meta report.Meta) (RunRow, []TestRow, error) {
	summary := rep.Summary()
	run := RunRow{
		ReportID:  meta.ReportID,
		Tool:      rep.Tool(),
		CreatedAt: meta.Timestamp.UTC(),
		Workers:   meta.Workers,
		Tests:     summary.Tests,
		Passed:    summary.Passed,
		Failed:    summary.Failed,
		Skipped:   summary.Skipped,
		Pending:   summary.Pending,
		Other:     summary.Other,
		Errors:    summary.Errors,
		Start:     summary.Start,
		Stop:      summary.Stop,
	}

	records := rep.Tests()
	tests := make([]TestRow, 0, len(records))
	for _, rec := range records {
		tags, err := json.Marshal(rec.Tags)
		if err != nil {
			return RunRow{}, nil, err
		}
		tests = append(tests, TestRow{
			ReportID:  meta.ReportID,
			TestID:    rec.ID,
			Name:      rec.Name,
			Status:    string(rec.Status),
			RawStatus: rec.RawStatus,
			Duration:  rec.Duration,
			Suite:     strings.Join(rec.Suite, "/"),
			Tags:      string(tags),
			FilePath:  rec.FilePath,
			Browser:   rec.Browser,
			Message:   rec.Message,
		})
	}
	return run, tests, nil
}
