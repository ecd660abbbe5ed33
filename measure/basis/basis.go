// Package basis bins 3D Fourier-space fields onto a (k, mu) grid.
package basis

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/cwbudde/algo-survey/comm"
	"github.com/cwbudde/algo-survey/mesh"
)

var (
	// ErrInvalidEdges is returned for fewer than two or non-increasing edges.
	ErrInvalidEdges = errors.New("basis: edges must hold at least two strictly increasing values")
	// ErrNotSqueezable is returned by Squeeze when more than one mu bin exists.
	ErrNotSqueezable = errors.New("basis: result has more than one mu bin")
)

// Result holds per-bin means and mode counts, indexed [k bin][mu bin].
// Empty bins hold NaN means and zero modes.
type Result struct {
	K     [][]float64
	Mu    [][]float64
	Power [][]float64
	Modes [][]float64
}

// Squeeze drops the mu dimension of a single-mu-bin result.
func (r *Result) Squeeze() (k, power, modes []float64, err error) {
	if len(r.K) > 0 && len(r.K[0]) != 1 {
		return nil, nil, nil, fmt.Errorf("%w: %d", ErrNotSqueezable, len(r.K[0]))
	}
	k = make([]float64, len(r.K))
	power = make([]float64, len(r.K))
	modes = make([]float64, len(r.K))
	for i := range r.K {
		k[i], power[i], modes[i] = r.K[i][0], r.Power[i][0], r.Modes[i][0]
	}
	return k, power, modes, nil
}

// Project averages the real part of field over the bins spanned by kedges
// and muedges. A mode belongs to bin i when kedges[i] <= |k| < kedges[i+1];
// mu = 1 falls in the last mu bin.
//
// With symmetric set, only the kz >= 0 half of the grid is visited and each
// mode with 0 < kz < Nyquist stands in for its -kz partner with weight 2;
// mu is then |kz|/|k|. Otherwise mu = kz/|k|. The k = 0 mode has mu = 0.
//
// Project is a collective call over c; every rank receives the full result.
func Project(c comm.Communicator, field *mesh.ComplexField, kedges, muedges []float64, symmetric bool) (*Result, error) {
	if err := checkEdges("k", kedges); err != nil {
		return nil, err
	}
	if err := checkEdges("mu", muedges); err != nil {
		return nil, err
	}

	pm := field.Mesh()
	n := pm.Nmesh()
	k := pm.K()
	lo, hi := pm.Slab()
	nk, nmu := len(kedges)-1, len(muedges)-1
	nbins := nk * nmu

	// Sums of weight*k, weight*mu, weight*value and weight per bin.
	sums := make([]float64, 4*nbins)
	zmax := n - 1
	if symmetric {
		zmax = n / 2
	}
	for x := lo; x < hi; x++ {
		lx := x - lo
		for y := range n {
			kxy2 := k[0][x]*k[0][x] + k[1][y]*k[1][y]
			row := field.Value[(lx*n+y)*n : (lx*n+y+1)*n]
			for z := 0; z <= zmax; z++ {
				kz := k[2][z]
				kk := math.Sqrt(kxy2 + kz*kz)
				ik := floats.Within(kedges, kk)
				if ik < 0 {
					continue
				}

				w := 1.0
				if symmetric {
					kz = math.Abs(kz)
					if z > 0 && !(n%2 == 0 && z == n/2) {
						w = 2
					}
				}
				mu := 0.0
				if kk > 0 {
					mu = kz / kk
				}
				imu := muBin(muedges, mu)
				if imu < 0 {
					continue
				}

				b := ik*nmu + imu
				sums[b] += w * kk
				sums[nbins+b] += w * mu
				sums[2*nbins+b] += w * float64(real(row[z]))
				sums[3*nbins+b] += w
			}
		}
	}

	if err := comm.AllReduceSum(c, sums); err != nil {
		return nil, fmt.Errorf("basis: reduce bins: %w", err)
	}

	res := &Result{
		K:     grid(nk, nmu),
		Mu:    grid(nk, nmu),
		Power: grid(nk, nmu),
		Modes: grid(nk, nmu),
	}
	for i := range nk {
		for j := range nmu {
			b := i*nmu + j
			modes := sums[3*nbins+b]
			res.Modes[i][j] = modes
			if modes == 0 {
				res.K[i][j], res.Mu[i][j], res.Power[i][j] = math.NaN(), math.NaN(), math.NaN()
				continue
			}
			res.K[i][j] = sums[b] / modes
			res.Mu[i][j] = sums[nbins+b] / modes
			res.Power[i][j] = sums[2*nbins+b] / modes
		}
	}
	return res, nil
}

func muBin(edges []float64, mu float64) int {
	if mu == edges[len(edges)-1] {
		return len(edges) - 2
	}
	return floats.Within(edges, mu)
}

func checkEdges(name string, edges []float64) error {
	if len(edges) < 2 {
		return fmt.Errorf("%w: %s has %d", ErrInvalidEdges, name, len(edges))
	}
	for i := 1; i < len(edges); i++ {
		if !(edges[i] > edges[i-1]) {
			return fmt.Errorf("%w: %s[%d]=%g after %g", ErrInvalidEdges, name, i, edges[i], edges[i-1])
		}
	}
	return nil
}

func grid(rows, cols int) [][]float64 {
	out := make([][]float64, rows)
	for i := range out {
		out[i] = make([]float64, cols)
	}
	return out
}
