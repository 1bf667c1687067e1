package report

import (
	"go.uber.org/zap"
)

// Merge folds partial reports into one. Records are concatenated in argument
// order and the summary is recomputed from the result, never summed.
//
// Records sharing an id across partitions are all kept; each collision is logged.
func Merge(logger *zap.Logger, parts ...*Report) (*Report, error) {
	if len(parts) == 0 {
		return nil, ErrNoPartitions
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	merged := &Report{}
	seen := make(map[string]int)
	for i, part := range parts {
		if part == nil {
			continue
		}
		if merged.tool == "" {
			merged.tool = part.tool
		}
		for _, rec := range part.tests {
			if prev, ok := seen[rec.ID]; ok {
				logger.Warn("duplicate test id across partitions",
					zap.String("id", rec.ID),
					zap.Int("first_partition", prev),
					zap.Int("partition", i))
			} else {
				seen[rec.ID] = i
			}
			merged.tests = append(merged.tests, rec)
		}
	}
	return merged, nil
}
