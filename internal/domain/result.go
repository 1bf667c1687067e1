package domain

// Status is the CTRF status of a finished test
type Status string

const (
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
	StatusError   Status = "error"
)

// TestRecord is one finished test in a report
type TestRecord struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Status    Status   `json:"status"`
	RawStatus string   `json:"rawStatus"`
	Start     int64    `json:"start"`
	Stop      int64    `json:"stop"`
	Duration  int64    `json:"duration"`
	Tags      []string `json:"tags"`
	Suite     []string `json:"suite"`
	FilePath  string   `json:"filePath,omitempty"`
	Browser   string   `json:"browser,omitempty"`
	Trace     string   `json:"trace,omitempty"`
	Message   string   `json:"message,omitempty"`
}

// Summary holds the per-status counts of a report.
// Tests always equals the sum of the status buckets.
type Summary struct {
	Tests   int   `json:"tests"`
	Passed  int   `json:"passed"`
	Failed  int   `json:"failed"`
	Skipped int   `json:"skipped"`
	Pending int   `json:"pending"`
	Other   int   `json:"other"`
	Errors  int   `json:"errors"`
	Start   int64 `json:"start"`
	Stop    int64 `json:"stop"`
}

// RawStatusCallFailed marks a failure in the test body
const RawStatusCallFailed = "call_failed"
