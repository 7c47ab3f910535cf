package reducer

import (
	"time"

	"github.com/tp-distribuidos-2c2025/measurements/shared/aggregate"
	"github.com/tp-distribuidos-2c2025/measurements/shared/metrics"
	"github.com/tp-distribuidos-2c2025/measurements/shared/middleware"
)

const component = "Reducer"

// Reducer folds the partial tables of all workers into the final table
type Reducer struct {
	logger *middleware.Logger
	stats  metrics.Stats
}

// NewReducer creates a new final reducer
func NewReducer(logger *middleware.Logger, stats metrics.Stats) *Reducer {
	if logger == nil {
		logger = middleware.NopLogger()
	}
	if stats == nil {
		stats = metrics.NopStats{}
	}
	return &Reducer{logger: logger, stats: stats}
}

// Merge consumes every partial table and returns the merged result. The
// largest partial is reused as the base so the fewest entries are moved.
func (r *Reducer) Merge(partials ...*aggregate.Table) *aggregate.Table {
	start := time.Now()

	base := -1
	for i, p := range partials {
		if p != nil && (base < 0 || p.Len() > partials[base].Len()) {
			base = i
		}
	}
	if base < 0 {
		return aggregate.NewTable(0)
	}

	result := partials[base]
	for i, p := range partials {
		if i != base {
			result.MergeInto(p)
		}
	}

	elapsed := time.Since(start)
	r.stats.ObserveMergeDuration(elapsed)
	r.stats.SetDistinctKeys(result.Len())
	r.logger.LogDebug(component, "Merged %d partial tables into %d keys in %v", len(partials), result.Len(), elapsed)
	return result
}
