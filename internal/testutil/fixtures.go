package testutil

import "math"

// ScatteredPositions returns n deterministic points filling box evenly, from
// an additive recurrence with irrational steps.
func ScatteredPositions(n int, box [3]float64) [][3]float64 {
	steps := [3]float64{math.Phi - 1, math.Sqrt2 - 1, math.Sqrt(3) - 1}
	out := make([][3]float64, n)
	for i := range out {
		for d := range 3 {
			_, frac := math.Modf(0.5 + float64(i+1)*steps[d])
			out[i][d] = frac * box[d]
		}
	}
	return out
}

// Concat joins per-rank slabs in rank order.
func Concat[T any](slabs [][]T) []T {
	n := 0
	for _, s := range slabs {
		n += len(s)
	}
	out := make([]T, 0, n)
	for _, s := range slabs {
		out = append(out, s...)
	}
	return out
}
