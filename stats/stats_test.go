package stats

import (
	"bytes"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/matryer/is"
)

func TestRunningStat(t *testing.T) {
	is := is.New(t)
	type tc struct {
		scores []int
		mean   float64
		stdev  float64
	}
	cases := []tc{
		{[]int{10, 12, 23, 23, 16, 23, 21, 16}, 18, 5.2372293656638},
		{[]int{14, 35, 71, 124, 10, 24, 55, 33, 87, 19}, 47.2, 36.937785531891},
		{[]int{1}, 1, 0},
		{[]int{}, 0, 0},
		{[]int{1, 1}, 1, 0},
	}
	for _, c := range cases {
		s := &Statistic{}
		for _, score := range c.scores {
			s.Push(float64(score))
		}
		is.True(FuzzyEqual(s.Mean(), c.mean))
		is.True(FuzzyEqual(s.Stdev(), c.stdev))

	}
}

func TestSampleQuantiles(t *testing.T) {
	is := is.New(t)
	s := &Sample{}
	for _, v := range []float64{5, 1, 4, 2, 3} {
		s.Push(v)
	}
	is.True(FuzzyEqual(s.Mean(), 3))
	is.Equal(s.Min(), 1.0)
	is.Equal(s.Max(), 5.0)
	is.Equal(s.Quantile(0.5), 3.0)
	s.Push(0)
	is.Equal(s.Min(), 0.0)
	is.Equal(s.Iterations(), 6)

	empty := &Sample{}
	is.Equal(empty.Quantile(0.9), 0.0)
	is.Equal(empty.ConfidenceInterval(95), 0.0)
}

func TestConfidenceInterval(t *testing.T) {
	is := is.New(t)
	s := &Sample{}
	for _, v := range []float64{10, 12, 23, 23, 16, 23, 21, 16} {
		s.Push(v)
	}
	// 1.96 * 5.2372 / sqrt(8)
	is.True(math.Abs(s.ConfidenceInterval(95)-3.6292) < 1e-3)
}

func TestFprintHistogram(t *testing.T) {
	is := is.New(t)
	s := &Sample{}
	for i := range 20 {
		s.PushDuration(time.Duration(i) * time.Millisecond)
	}
	var buf bytes.Buffer
	is.NoErr(s.FprintHistogram(&buf, 4, 10, DurationLabel))
	out := buf.String()
	is.Equal(strings.Count(out, "\n"), 4)
	is.True(strings.Contains(out, "19ms"))
}

func TestMerge(t *testing.T) {
	is := is.New(t)
	vals := []float64{14, 35, 71, 124, 10, 24, 55, 33, 87, 19}
	for split := 0; split <= len(vals); split++ {
		var a, b, all Statistic
		for i, v := range vals {
			all.Push(v)
			if i < split {
				a.Push(v)
			} else {
				b.Push(v)
			}
		}
		a.Merge(&b)
		is.Equal(a.Iterations(), all.Iterations())
		is.True(FuzzyEqual(a.Mean(), all.Mean()))
		is.True(FuzzyEqual(a.Stdev(), all.Stdev()))
		is.Equal(a.Last(), 19.0)
	}
}

func TestZVal(t *testing.T) {
	is := is.New(t)
	is.True(math.Abs(ZVal(95)-1.959964) < 1e-5)
	is.True(math.Abs(ZVal(99)-2.575829) < 1e-5)
}
