// Package stats keeps running statistics over search timings and solution
// lengths.
package stats

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

const Epsilon = 1e-6

func FuzzyEqual(a, b float64) bool {
	return math.Abs(a-b) < Epsilon
}

// Statistic is a running mean and variance (Welford) that never stores the
// values it sees.
type Statistic struct {
	n    int
	last float64
	mean float64
	// sum of squared differences from the mean
	m2 float64
}

func (s *Statistic) Push(val float64) {
	s.last = val
	s.n++
	delta := val - s.mean
	s.mean += delta / float64(s.n)
	s.m2 += delta * (val - s.mean)
}

// Merge folds o into s as if every value pushed to o had been pushed to s.
// Last is taken from o when o is not empty.
func (s *Statistic) Merge(o *Statistic) {
	if o.n == 0 {
		return
	}
	if s.n == 0 {
		*s = *o
		return
	}
	n := s.n + o.n
	delta := o.mean - s.mean
	s.mean += delta * float64(o.n) / float64(n)
	s.m2 += o.m2 + delta*delta*float64(s.n)*float64(o.n)/float64(n)
	s.n = n
	s.last = o.last
}

func (s *Statistic) Mean() float64 {
	return s.mean
}

func (s *Statistic) Variance() float64 {
	if s.n <= 1 {
		return 0.0
	}
	return s.m2 / float64(s.n-1)
}

func (s *Statistic) Stdev() float64 {
	return math.Sqrt(s.Variance())
}

func (s *Statistic) Last() float64 {
	return s.last
}

func (s *Statistic) StandardError() float64 {
	if s.n == 0 {
		return 0
	}
	return math.Sqrt(s.Variance() / float64(s.n))
}

func (s *Statistic) Iterations() int {
	return s.n
}

// ZVal returns the two-tailed z value for a confidence given in percent.
func ZVal(confidence float64) float64 {
	return distuv.UnitNormal.Quantile((1 + confidence/100) / 2)
}
