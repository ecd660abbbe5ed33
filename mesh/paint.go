package mesh

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-survey/comm"
)

// RealField is the local x-slab of a real-space field.
type RealField struct {
	pm    *ParticleMesh
	Value []float32
}

// NewRealField returns a zeroed local slab.
func (pm *ParticleMesh) NewRealField() *RealField {
	return &RealField{pm: pm, Value: make([]float32, pm.LocalSize())}
}

// NewRealFieldFrom converts a float64 local slab into a RealField.
func (pm *ParticleMesh) NewRealFieldFrom(values []float64) (*RealField, error) {
	if len(values) != pm.LocalSize() {
		return nil, fmt.Errorf("%w: %d values for %d local cells", ErrLengthMismatch, len(values), pm.LocalSize())
	}
	f := pm.NewRealField()
	for i, v := range values {
		f.Value[i] = float32(v)
	}
	return f, nil
}

// Mesh returns the mesh the field lives on.
func (f *RealField) Mesh() *ParticleMesh { return f.pm }

// Float64 returns a float64 copy of the local slab.
func (f *RealField) Float64() []float64 {
	out := make([]float64, len(f.Value))
	for i, v := range f.Value {
		out[i] = float64(v)
	}
	return out
}

// Sum returns the sum of the field over all ranks. It is a collective call.
func (f *RealField) Sum() (float64, error) {
	s := 0.0
	for _, v := range f.Value {
		s += float64(v)
	}
	buf := []float64{s}
	if err := comm.AllReduceSum(f.pm.comm, buf); err != nil {
		return 0, err
	}
	return buf[0], nil
}

// NewAccumulator returns a zeroed full-grid buffer for [ParticleMesh.Deposit].
func (pm *ParticleMesh) NewAccumulator() []float64 {
	return make([]float64, pm.nmesh*pm.nmesh*pm.nmesh)
}

// Deposit adds the cloud-in-cell assignment of the particles to the full-grid
// accumulator acc. Positions are shifted by offset before assignment and
// wrap periodically. A nil weight assigns unit mass. Deposit is local; use
// [ParticleMesh.Reduce] to combine the accumulators of all ranks.
func (pm *ParticleMesh) Deposit(acc []float64, pos [][3]float64, weight []float64, offset [3]float64) error {
	n := pm.nmesh
	if len(acc) != n*n*n {
		return fmt.Errorf("%w: accumulator has %d cells, want %d", ErrLengthMismatch, len(acc), n*n*n)
	}
	if weight != nil && len(weight) != len(pos) {
		return fmt.Errorf("%w: %d weights for %d positions", ErrLengthMismatch, len(weight), len(pos))
	}

	h := pm.CellSize()
	for p, r := range pos {
		w := 1.0
		if weight != nil {
			w = weight[p]
		}

		var i0 [3]int
		var f [3]float64
		for d := range 3 {
			u := (r[d] - offset[d]) / h[d]
			fl := math.Floor(u)
			i0[d] = int(fl)
			f[d] = u - fl
		}

		for a := range 2 {
			wx := w * cicWeight(f[0], a)
			ix := wrap(i0[0]+a, n)
			for b := range 2 {
				wxy := wx * cicWeight(f[1], b)
				iy := wrap(i0[1]+b, n)
				row := (ix*n + iy) * n
				for c := range 2 {
					acc[row+wrap(i0[2]+c, n)] += wxy * cicWeight(f[2], c)
				}
			}
		}
	}
	return nil
}

func cicWeight(frac float64, upper int) float64 {
	if upper == 0 {
		return 1 - frac
	}
	return frac
}

func wrap(i, n int) int {
	i %= n
	if i < 0 {
		i += n
	}
	return i
}

// Reduce sums acc over all ranks and returns this rank's slab of the result.
// It is a collective call; acc is overwritten with the global sum.
func (pm *ParticleMesh) Reduce(acc []float64) (*RealField, error) {
	n := pm.nmesh
	if len(acc) != n*n*n {
		return nil, fmt.Errorf("%w: accumulator has %d cells, want %d", ErrLengthMismatch, len(acc), n*n*n)
	}
	if err := comm.AllReduceSum(pm.comm, acc); err != nil {
		return nil, fmt.Errorf("mesh: reduce painted field: %w", err)
	}
	return pm.NewRealFieldFrom(acc[pm.xlo*n*n : pm.xhi*n*n])
}

// Paint deposits the local particles and reduces over all ranks.
func (pm *ParticleMesh) Paint(pos [][3]float64, weight []float64, offset [3]float64) (*RealField, error) {
	acc := pm.NewAccumulator()
	if err := pm.Deposit(acc, pos, weight, offset); err != nil {
		return nil, err
	}
	return pm.Reduce(acc)
}
