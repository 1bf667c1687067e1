package storage

import (
	"ctrf/internal/config"
	"ctrf/internal/report"
)

// Storage persists and loads CTRF reports
type Storage interface {
	// Save freezes the report and writes it to the configured output path.
	Save(rep *report.Report, meta report.Meta) error
	// Load reads a report from an arbitrary path (e.g. a worker partial).
	Load(path string) (*report.Report, error)
	// LoadWithMeta is Load that also returns the report id, timestamp and worker count.
	LoadWithMeta(path string) (*report.Report, report.Meta, error)
	// CheckWritable verifies that the output path can be written.
	CheckWritable() error
}

// JSONStorage stores reports as JSON under the configured output path.
type JSONStorage struct {
	cfg *config.Config
}

// NewJSONStorage returns a Storage that writes the config's report path.
func NewJSONStorage(cfg *config.Config) *JSONStorage {
	return &JSONStorage{cfg: cfg}
}
