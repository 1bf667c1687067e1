package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"ctrf/internal/report"
)

// Save writes the report to the configured output file in a single atomic
// replace. A failed write leaves any previous file and the in-memory report intact.
func (s *JSONStorage) Save(rep *report.Report, meta report.Meta) error {
	rep.Freeze()

	data, err := report.Marshal(rep, meta)
	if err != nil {
		return err
	}

	path := s.cfg.GetOutputPath()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := writeFileAtomic(path, data, 0644); err != nil {
		return fmt.Errorf("write report %s: %w", path, err)
	}
	return nil
}

// Load reads a CTRF report from path.
func (s *JSONStorage) Load(path string) (*report.Report, error) {
	rep, _, err := s.LoadWithMeta(path)
	return rep, err
}

// LoadWithMeta reads a CTRF report and its document level fields from path.
func (s *JSONStorage) LoadWithMeta(path string) (*report.Report, report.Meta, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, report.Meta{}, fmt.Errorf("read report file: %w", err)
	}

	rep, meta, err := report.UnmarshalWithMeta(data)
	if err != nil {
		return nil, report.Meta{}, fmt.Errorf("%s: %w", path, err)
	}
	return rep, meta, nil
}

// CheckWritable creates the output directory if needed and probes it with a
// temporary file, so configuration problems surface before any test runs.
func (s *JSONStorage) CheckWritable() error {
	path := s.cfg.GetOutputPath()
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("report directory %s is not usable: %w", dir, err)
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return fmt.Errorf("report path %s is a directory", path)
	}
	probe, err := os.CreateTemp(dir, ".ctrf-probe-*")
	if err != nil {
		return fmt.Errorf("report directory %s is not writable: %w", dir, err)
	}
	name := probe.Name()
	probe.Close()
	return os.Remove(name)
}
