package parser

import "ctrf/internal/domain"

// Sink receives one event per finished test
type Sink func(domain.Event)

// FileResolver maps a test function to the source file declaring it
type FileResolver interface {
	Resolve(pkg, test string) string
}

// MarkerSource supplies markers declared outside the test output
type MarkerSource interface {
	Markers(pkg, test string) []domain.Marker
}

type noFiles struct{}

func (noFiles) Resolve(string, string) string { return "" }

type noMarkers struct{}

func (noMarkers) Markers(string, string) []domain.Marker { return nil }
