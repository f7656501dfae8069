package stats

import (
	"io"
	"slices"
	"time"

	"github.com/aybabtme/uniplot/histogram"
	"gonum.org/v1/gonum/stat"
)

// Sample keeps every value pushed as well as the running statistic, for
// quantiles and histograms over search timings.
type Sample struct {
	Statistic
	values []float64
	sorted bool
}

func (s *Sample) Push(val float64) {
	s.Statistic.Push(val)
	s.values = append(s.values, val)
	s.sorted = false
}

func (s *Sample) PushDuration(d time.Duration) {
	s.Push(float64(d))
}

func (s *Sample) Values() []float64 {
	return s.values
}

// Quantile returns the empirical p quantile, or 0 for an empty sample.
func (s *Sample) Quantile(p float64) float64 {
	if len(s.values) == 0 {
		return 0
	}
	if !s.sorted {
		slices.Sort(s.values)
		s.sorted = true
	}
	return stat.Quantile(p, stat.Empirical, s.values, nil)
}

func (s *Sample) Min() float64 { return s.Quantile(0) }
func (s *Sample) Max() float64 { return s.Quantile(1) }

// ConfidenceInterval returns the half width of the interval around the
// mean at the given confidence, in percent.
func (s *Sample) ConfidenceInterval(confidence float64) float64 {
	if s.Iterations() < 2 {
		return 0
	}
	return ZVal(confidence) * s.StandardError()
}

// FprintHistogram draws the sample over bins buckets, labelling the axis
// with format. A nil format prints plain numbers.
func (s *Sample) FprintHistogram(w io.Writer, bins, width int, format func(float64) string) error {
	h := histogram.Hist(bins, s.values)
	if format == nil {
		return histogram.Fprint(w, h, histogram.Linear(width))
	}
	return histogram.Fprintf(w, h, histogram.Linear(width), format)
}

// DurationLabel formats histogram labels of samples pushed as durations.
func DurationLabel(v float64) string {
	return time.Duration(v).Round(time.Microsecond).String()
}
