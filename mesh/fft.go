package mesh

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-survey/comm"
)

// ComplexField is the local kx-slab of a Fourier-space field.
type ComplexField struct {
	pm    *ParticleMesh
	Value []complex64
}

// NewComplexField returns a zeroed local slab.
func (pm *ParticleMesh) NewComplexField() *ComplexField {
	return &ComplexField{pm: pm, Value: make([]complex64, pm.LocalSize())}
}

// Mesh returns the mesh the field lives on.
func (f *ComplexField) Mesh() *ParticleMesh { return f.pm }

// Complex128 returns a complex128 copy of the local slab.
func (f *ComplexField) Complex128() []complex128 {
	out := make([]complex128, len(f.Value))
	for i, v := range f.Value {
		out[i] = complex128(v)
	}
	return out
}

// SetComplex128 stores values, rounding to single precision.
func (f *ComplexField) SetComplex128(values []complex128) error {
	if len(values) != len(f.Value) {
		return fmt.Errorf("%w: %d values for %d local modes", ErrLengthMismatch, len(values), len(f.Value))
	}
	for i, v := range values {
		f.Value[i] = complex64(v)
	}
	return nil
}

// R2C computes the unnormalized forward 3D FFT of the field. It is a
// collective call.
//
// The z and y axes are transformed on the local x-slab. The slabs are then
// exchanged so that every rank transforms the x axis for its own block of y
// rows, and exchanged once more to land on the kx-slab decomposition.
func (f *RealField) R2C() (*ComplexField, error) {
	pm := f.pm
	n := pm.nmesh
	nx := pm.xhi - pm.xlo

	slab := make([]complex128, len(f.Value))
	for i, v := range f.Value {
		slab[i] = complex(float64(v), 0)
	}

	for x := range nx {
		for y := range n {
			row := slab[(x*n+y)*n : (x*n+y+1)*n]
			if err := pm.plan.Forward(row, row); err != nil {
				return nil, fmt.Errorf("mesh: z-axis FFT failed: %w", err)
			}
		}
		for z := range n {
			if err := pm.transformStrided(slab, (x*n)*n+z, n); err != nil {
				return nil, fmt.Errorf("mesh: y-axis FFT failed: %w", err)
			}
		}
	}

	slabs, err := comm.AllGather(pm.comm, slab)
	if err != nil {
		return nil, fmt.Errorf("mesh: exchange slabs: %w", err)
	}
	owner := ownerTable(n, pm.comm.Size())

	// Transform x for the local block of y rows, laid out [x][y-ylo][z].
	ny := pm.yhi - pm.ylo
	block := make([]complex128, n*ny*n)
	for y := pm.ylo; y < pm.yhi; y++ {
		for z := range n {
			for x := range n {
				r := owner[x]
				lx := x - r.lo
				pm.line[x] = slabs[r.rank][(lx*n+y)*n+z]
			}
			if err := pm.plan.Forward(pm.line, pm.line); err != nil {
				return nil, fmt.Errorf("mesh: x-axis FFT failed: %w", err)
			}
			for kx := range n {
				block[(kx*ny+(y-pm.ylo))*n+z] = pm.line[kx]
			}
		}
	}

	blocks, err := comm.AllGather(pm.comm, block)
	if err != nil {
		return nil, fmt.Errorf("mesh: exchange blocks: %w", err)
	}

	out := pm.NewComplexField()
	for kx := pm.xlo; kx < pm.xhi; kx++ {
		lx := kx - pm.xlo
		for y := range n {
			r := owner[y]
			nyr := r.hi - r.lo
			src := blocks[r.rank][(kx*nyr+(y-r.lo))*n : (kx*nyr+(y-r.lo)+1)*n]
			dst := out.Value[(lx*n+y)*n : (lx*n+y+1)*n]
			for z, v := range src {
				dst[z] = complex64(v)
			}
		}
	}
	return out, nil
}

// transformStrided runs the plan on n elements of buf starting at start with
// the given stride, in place.
func (pm *ParticleMesh) transformStrided(buf []complex128, start, stride int) error {
	n := pm.nmesh
	for i := range n {
		pm.line[i] = buf[start+i*stride]
	}
	if err := pm.plan.Forward(pm.line, pm.line); err != nil {
		return err
	}
	for i := range n {
		buf[start+i*stride] = pm.line[i]
	}
	return nil
}

type slabOwner struct {
	rank   int
	lo, hi int
}

// ownerTable maps every plane index to the rank that owns it.
func ownerTable(n, size int) []slabOwner {
	out := make([]slabOwner, n)
	for r := range size {
		lo, hi := comm.Split(n, r, size)
		for i := lo; i < hi; i++ {
			out[i] = slabOwner{rank: r, lo: lo, hi: hi}
		}
	}
	return out
}

// CompensateCIC divides the field by the Fourier transform of the
// cloud-in-cell assignment window, Π sinc²(k_i H_i / 2).
func (f *ComplexField) CompensateCIC() {
	pm := f.pm
	n := pm.nmesh
	h := pm.CellSize()

	var win [3][]float64
	for d := range 3 {
		win[d] = make([]float64, n)
		for j, k := range pm.k[d] {
			s := sinc(k * h[d] / 2)
			win[d][j] = s * s
		}
	}

	for kx := pm.xlo; kx < pm.xhi; kx++ {
		lx := kx - pm.xlo
		for ky := range n {
			wxy := win[0][kx] * win[1][ky]
			row := f.Value[(lx*n+ky)*n : (lx*n+ky+1)*n]
			for kz := range row {
				row[kz] = complex64(complex128(row[kz]) / complex(wxy*win[2][kz], 0))
			}
		}
	}
}

func sinc(x float64) float64 {
	if x == 0 {
		return 1
	}
	return math.Sin(x) / x
}
