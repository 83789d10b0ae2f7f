package surface

import "math"

// Narrow-high distribution thresholds on normalized [0,1] intensities.
const (
	narrowHighMinMean  = 0.9
	narrowHighMaxStdev = 0.15
)

// IntensityProfile summarizes the pixel intensities inside a masked region.
type IntensityProfile struct {
	// Count is the number of strictly positive values used.
	Count int `json:"count"`

	// Mean of the positive values.
	Mean float64 `json:"mean"`

	// StdDev is the population standard deviation of the positive values.
	StdDev float64 `json:"std_dev"`

	// NarrowHigh is true when Mean > 0.9 and StdDev < 0.15, flagging a
	// flat or overexposed region.
	NarrowHigh bool `json:"narrow_high"`
}

// ProfileIntensity computes the intensity profile of a masked region.
//
// Zero (and negative) values are masked-out background and are excluded. A
// region with no positive values has Count 0 and is never NarrowHigh. The
// result is diagnostic only and does not affect classification.
func ProfileIntensity(values []float64) IntensityProfile {
	var sum float64
	n := 0
	for _, v := range values {
		if v > 0 {
			sum += v
			n++
		}
	}
	if n == 0 {
		return IntensityProfile{}
	}
	mean := sum / float64(n)

	var sq float64
	for _, v := range values {
		if v > 0 {
			d := v - mean
			sq += d * d
		}
	}
	std := math.Sqrt(sq / float64(n))

	return IntensityProfile{
		Count:      n,
		Mean:       mean,
		StdDev:     std,
		NarrowHigh: mean > narrowHighMinMean && std < narrowHighMaxStdev,
	}
}

// IsNarrowHigh reports whether the positive values of a region are narrowly
// distributed near the top of the range.
func IsNarrowHigh(values []float64) bool {
	return ProfileIntensity(values).NarrowHigh
}
