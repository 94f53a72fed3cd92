package traffic

import "math"

// DensityPrecision is the number of decimal places densities are rounded to.
// All density rounding in the system goes through Round so the precision
// lives in exactly one place.
const DensityPrecision = 3

// Round rounds v to DensityPrecision decimal places, half away from zero.
func Round(v float64) float64 {
	pow := math.Pow(10, DensityPrecision)
	return math.Round(v*pow) / pow
}

// Density computes the dimensionless traffic-density ratio for one leg:
// travel time with traffic over the provider's baseline time, rounded and
// clamped to a minimum of 1.0.
//
// For free-flow-baseline providers the clamp is a no-op safety net. For
// historical-average-baseline providers the raw ratio can fall below 1.0
// under lighter-than-typical conditions, and the clamp normalizes the
// metric to mean "1.0 = best predicted conditions" across provider
// families. Do not skip it for any provider.
func Density(travelTimeSeconds, baselineSeconds float64) float64 {
	if baselineSeconds <= 0 {
		return 1.0
	}
	d := Round(travelTimeSeconds / baselineSeconds)
	if d < 1.0 {
		return 1.0
	}
	return d
}

// RoundTripDensity is the arithmetic mean of the two leg densities, rounded.
// The mean is not clamped a second time: clamping happens at the leg level
// and again at the plan-aggregate level.
func RoundTripDensity(outbound, ret float64) float64 {
	return Round((outbound + ret) / 2)
}
