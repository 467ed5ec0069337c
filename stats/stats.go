package stats

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Statistic is a running mean and variance (Welford's algorithm) of the
// values pushed into it, such as per-game match scores.
type Statistic struct {
	n    int
	mean float64
	m2   float64
}

func (s *Statistic) Push(val float64) {
	s.n++
	delta := val - s.mean
	s.mean += delta / float64(s.n)
	s.m2 += delta * (val - s.mean)
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

// StandardError returns the standard error of the mean.
func (s *Statistic) StandardError() float64 {
	if s.n == 0 {
		return 0.0
	}
	return math.Sqrt(s.Variance() / float64(s.n))
}

// Interval returns the bounds of the confidence interval around the mean.
// confidence is a percentage, e.g. 95.
func (s *Statistic) Interval(confidence float64) (float64, float64) {
	half := ZVal(confidence) * s.StandardError()
	return s.mean - half, s.mean + half
}

func (s *Statistic) Iterations() int {
	return s.n
}

// MeanStdDev computes the sample mean and standard deviation of xs in one
// batch.
func MeanStdDev(xs []float64) (float64, float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	if len(xs) == 1 {
		return xs[0], 0
	}
	return stat.MeanStdDev(xs, nil)
}
