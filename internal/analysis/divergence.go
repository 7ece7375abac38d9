package analysis

import (
	"fmt"
	"math"

	"github.com/san-kum/grapple/internal/sim"
)

// Divergence is the per-sample absolute difference of a channel recorded in
// two runs sampled at the same times.
func Divergence(a, b *sim.Result, name string) ([]float64, error) {
	da, err := channel(a, name)
	if err != nil {
		return nil, err
	}
	db, err := channel(b, name)
	if err != nil {
		return nil, err
	}
	if len(da) != len(db) {
		return nil, fmt.Errorf("analysis: runs have %d and %d samples", len(da), len(db))
	}

	div := make([]float64, len(da))
	for i := range da {
		div[i] = math.Abs(da[i] - db[i])
	}
	return div, nil
}

// GrowthRate fits ln(div) = rate*t + c by least squares. Samples where the
// runs agree to within 1e-12 carry no information and are skipped.
func GrowthRate(times, div []float64) float64 {
	var n, st, sy, stt, sty float64
	for i := range min(len(times), len(div)) {
		if div[i] <= 1e-12 {
			continue
		}
		t, y := times[i], math.Log(div[i])
		n++
		st += t
		sy += y
		stt += t * t
		sty += t * y
	}
	denom := n*stt - st*st
	if n < 2 || denom == 0 {
		return 0
	}
	return (n*sty - st*sy) / denom
}
