package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"ctrf/internal/domain"
)

const (
	// FormatName is the value of the reportFormat key
	FormatName = "CTRF"
	// SpecVersion is the CTRF schema version the document follows
	SpecVersion = "0.0.0"
	// GeneratedBy names this producer in the document
	GeneratedBy = "ctrf"
)

// Meta carries the document level fields that are not part of the report model
type Meta struct {
	ReportID  string
	Timestamp time.Time
	Workers   int
}

// NewMeta returns metadata with a fresh report id
func NewMeta(workers int) Meta {
	return Meta{
		ReportID:  uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Workers:   workers,
	}
}

type document struct {
	ReportFormat string  `json:"reportFormat"`
	SpecVersion  string  `json:"specVersion"`
	ReportID     string  `json:"reportId,omitempty"`
	Timestamp    string  `json:"timestamp,omitempty"`
	GeneratedBy  string  `json:"generatedBy,omitempty"`
	Results      *result `json:"results"`
}

type result struct {
	Tool    tool                `json:"tool"`
	Summary domain.Summary      `json:"summary"`
	Tests   []domain.TestRecord `json:"tests"`
	Extra   *extra              `json:"extra,omitempty"`
}

type tool struct {
	Name string `json:"name"`
}

type extra struct {
	Workers int `json:"workers,omitempty"`
}

// Marshal renders the report as an indented CTRF document
func Marshal(rep *Report, meta Meta) ([]byte, error) {
	doc := document{
		ReportFormat: FormatName,
		SpecVersion:  SpecVersion,
		ReportID:     meta.ReportID,
		GeneratedBy:  GeneratedBy,
		Results: &result{
			Tool:    tool{Name: rep.tool},
			Summary: rep.Summary(),
			Tests:   rep.Tests(),
		},
	}
	if !meta.Timestamp.IsZero() {
		doc.Timestamp = meta.Timestamp.Format(time.RFC3339)
	}
	if meta.Workers > 0 {
		doc.Results.Extra = &extra{Workers: meta.Workers}
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal report: %w", err)
	}
	return data, nil
}

// Encode writes the CTRF document to w
func Encode(w io.Writer, rep *Report, meta Meta) error {
	data, err := Marshal(rep, meta)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// Decode reads a CTRF document. The stored summary is ignored; it is always
// recomputed from the records.
func Decode(r io.Reader) (*Report, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}
	return Unmarshal(data)
}

// Unmarshal is Decode over a byte slice
func Unmarshal(data []byte) (*Report, error) {
	rep, _, err := UnmarshalWithMeta(data)
	return rep, err
}

// UnmarshalWithMeta also returns the document level fields. A timestamp that
// does not parse is left zero.
func UnmarshalWithMeta(data []byte) (*Report, Meta, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, Meta{}, fmt.Errorf("parse report: %w", err)
	}
	if doc.Results == nil {
		return nil, Meta{}, errors.New("parse report: missing results")
	}

	meta := Meta{ReportID: doc.ReportID}
	if ts, err := time.Parse(time.RFC3339, doc.Timestamp); err == nil {
		meta.Timestamp = ts
	}
	if doc.Results.Extra != nil {
		meta.Workers = doc.Results.Extra.Workers
	}
	return &Report{
		tool:  doc.Results.Tool.Name,
		tests: doc.Results.Tests,
	}, meta, nil
}
