//go:build debug

package segment

import "fmt"

// checkValueRange verifies that normalization kept every value inside the
// policy's expected range. A violation is a normalization bug, so debug
// builds panic; release builds compile this check out entirely.
func checkValueRange(vals []float32, profile Profile) {
	if len(vals) == 0 {
		return
	}
	lo, hi := profile.Norm.expectedRange()
	min, max := vals[0], vals[0]
	for _, v := range vals[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	if min < lo || max > hi {
		panic(fmt.Sprintf("normalized values span [%g, %g], expected [%g, %g] for %s",
			min, max, lo, hi, profile.Family))
	}
}
