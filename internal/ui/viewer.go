package ui

import "ctrf/internal/report"

// Viewer displays the problems of a report in an interactive TUI
type Viewer interface {
	View(rep *report.Report) error
}
