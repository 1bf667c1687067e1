package history

import (
	"context"

	"ctrf/internal/report"
)

// Publisher stores finished reports so runs can be compared over time
type Publisher interface {
	Publish(ctx context.Context, rep *report.Report, meta report.Meta) error
}
