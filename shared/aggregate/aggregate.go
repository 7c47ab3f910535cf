package aggregate

// Aggregate holds the running statistics of every value recorded for one key.
// An Aggregate always covers at least one observation.
type Aggregate struct {
	min   float64
	max   float64
	sum   float64
	count uint64
}

// New creates an Aggregate from its first observation
func New(value float64) *Aggregate {
	return &Aggregate{
		min:   value,
		max:   value,
		sum:   value,
		count: 1,
	}
}

// Record folds one more observation into the aggregate
func (a *Aggregate) Record(value float64) {
	if value < a.min {
		a.min = value
	}
	if value > a.max {
		a.max = value
	}
	a.sum += value
	a.count++
}

// Merge folds other into a. other must not be used afterwards.
func (a *Aggregate) Merge(other *Aggregate) {
	if other.min < a.min {
		a.min = other.min
	}
	if other.max > a.max {
		a.max = other.max
	}
	a.sum += other.sum
	a.count += other.count
}

func (a *Aggregate) Min() float64 { return a.min }

func (a *Aggregate) Max() float64 { return a.max }

func (a *Aggregate) Sum() float64 { return a.sum }

func (a *Aggregate) Count() uint64 { return a.count }

// Mean returns sum/count, computed on demand
func (a *Aggregate) Mean() float64 {
	return a.sum / float64(a.count)
}
