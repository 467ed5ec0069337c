package stats

import "gonum.org/v1/gonum/stat/distuv"

// ZVal returns the two-tailed Z-value for a confidence level given as a
// percentage from 0 to 100.
func ZVal(confidence float64) float64 {
	dist := distuv.UnitNormal
	return dist.Quantile((1 + confidence/100) / 2)
}
