// internal/curve/compute.go
package curve

import "math"

// ComputeSpotPrice is the float boundary form of Pricer.Price used by route
// handlers that receive raw numbers. Negative or NaN supply counts as zero, and
// a non-positive max supply or curve fraction leaves the price at initialPrice.
func ComputeSpotPrice(initialPrice, maxSupply, curveFraction, currentSupply float64) float64 {
	currentSupply = sanitizeSupply(currentSupply)
	if maxSupply <= 0 || curveFraction <= 0 || math.IsNaN(maxSupply) || math.IsNaN(curveFraction) {
		return initialPrice
	}
	effective := math.Min(currentSupply, maxSupply*curveFraction)
	return initialPrice + (effective*initialPrice)/maxSupply
}

// ComputeCurveProgressPercent is the float boundary form of
// Pricer.ProgressPercent. A zero curve limit reports no progress.
func ComputeCurveProgressPercent(maxSupply, curveFraction, currentSupply float64) float64 {
	currentSupply = sanitizeSupply(currentSupply)
	limit := maxSupply * curveFraction
	if !(limit > 0) {
		return 0
	}
	return math.Min((currentSupply/limit)*100, 100)
}

func sanitizeSupply(s float64) float64 {
	if math.IsNaN(s) || s < 0 {
		return 0
	}
	return s
}
