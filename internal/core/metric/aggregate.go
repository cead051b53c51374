package metric

import "math"

// Aggregate holds running statistics for one identity.
type Aggregate struct {
	CallCount    uint64  `codec:"c" json:"call_count" yaml:"call_count"`
	Sum          float64 `codec:"s" json:"sum" yaml:"sum"`
	SumOfSquares float64 `codec:"q" json:"sum_of_squares" yaml:"sum_of_squares"`
	Min          float64 `codec:"n" json:"min" yaml:"min"`
	Max          float64 `codec:"x" json:"max" yaml:"max"`
}

// NewAggregate returns an aggregate holding the given observations.
func NewAggregate(values ...float64) *Aggregate {
	a := &Aggregate{}
	for _, v := range values {
		a.RecordSample(v)
	}
	return a
}

func (a *Aggregate) RecordSample(value float64) {
	if a.CallCount == 0 {
		a.Min, a.Max = value, value
	} else {
		a.Min = math.Min(a.Min, value)
		a.Max = math.Max(a.Max, value)
	}
	a.CallCount++
	a.Sum += value
	a.SumOfSquares += value * value
}

// Merge folds other into a. An empty operand is the identity element.
func (a *Aggregate) Merge(other Aggregate) {
	if other.CallCount == 0 {
		return
	}
	if a.CallCount == 0 {
		*a = other
		return
	}
	a.CallCount += other.CallCount
	a.Sum += other.Sum
	a.SumOfSquares += other.SumOfSquares
	a.Min = math.Min(a.Min, other.Min)
	a.Max = math.Max(a.Max, other.Max)
}

func (a Aggregate) Mean() float64 {
	if a.CallCount == 0 {
		return 0
	}
	return a.Sum / float64(a.CallCount)
}

// StdDev is the population standard deviation of the recorded samples.
func (a Aggregate) StdDev() float64 {
	if a.CallCount == 0 {
		return 0
	}
	mean := a.Mean()
	variance := a.SumOfSquares/float64(a.CallCount) - mean*mean
	if variance < 0 {
		return 0
	}
	return math.Sqrt(variance)
}

func (a Aggregate) IsEmpty() bool {
	return a.CallCount == 0
}
