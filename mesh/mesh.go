package mesh

import (
	"fmt"
	"math"

	algofft "github.com/MeKo-Christian/algo-fft"

	"github.com/cwbudde/algo-survey/comm"
)

// ParticleMesh is one rank's view of a regular Nmesh³ grid spanning a box.
// It is not safe for concurrent use; every rank builds its own.
type ParticleMesh struct {
	box   [3]float64
	nmesh int
	comm  comm.Communicator

	xlo, xhi int
	ylo, yhi int

	plan *algofft.Plan[complex128]
	line []complex128
	k    [3][]float64
}

// New creates the mesh for rank c. Every rank of the group must call New with
// the same box and resolution.
func New(box [3]float64, nmesh int, c comm.Communicator) (*ParticleMesh, error) {
	if nmesh <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidNmesh, nmesh)
	}
	for d, l := range box {
		if !(l > 0) || math.IsInf(l, 0) {
			return nil, fmt.Errorf("%w: axis %d is %g", ErrInvalidBox, d, l)
		}
	}
	if c == nil {
		c = comm.Self()
	}

	plan, err := algofft.NewPlan64(nmesh)
	if err != nil {
		return nil, fmt.Errorf("mesh: failed to create FFT plan: %w", err)
	}

	pm := &ParticleMesh{
		box:   box,
		nmesh: nmesh,
		comm:  c,
		plan:  plan,
		line:  make([]complex128, nmesh),
	}
	pm.xlo, pm.xhi = comm.Split(nmesh, c.Rank(), c.Size())
	pm.ylo, pm.yhi = comm.Split(nmesh, c.Rank(), c.Size())
	for d := range 3 {
		pm.k[d] = Frequencies(nmesh, box[d])
	}
	return pm, nil
}

// Frequencies returns the wavenumbers 2π/L·f for the FFT frequency ordering
// f = 0, 1, …, ⌈n/2⌉-1, -⌊n/2⌋, …, -1.
func Frequencies(n int, length float64) []float64 {
	kf := 2 * math.Pi / length
	out := make([]float64, n)
	for j := range out {
		f := j
		if j > (n-1)/2 {
			f = j - n
		}
		out[j] = kf * float64(f)
	}
	return out
}

// BoxSize returns the box edge lengths.
func (pm *ParticleMesh) BoxSize() [3]float64 { return pm.box }

// Nmesh returns the number of cells per axis.
func (pm *ParticleMesh) Nmesh() int { return pm.nmesh }

// Comm returns the communicator the mesh is distributed over.
func (pm *ParticleMesh) Comm() comm.Communicator { return pm.comm }

// Slab returns the x (and kx) planes [lo, hi) owned by this rank.
func (pm *ParticleMesh) Slab() (lo, hi int) { return pm.xlo, pm.xhi }

// LocalSize returns the number of cells owned by this rank.
func (pm *ParticleMesh) LocalSize() int { return (pm.xhi - pm.xlo) * pm.nmesh * pm.nmesh }

// CellSize returns the cell edge lengths.
func (pm *ParticleMesh) CellSize() [3]float64 {
	n := float64(pm.nmesh)
	return [3]float64{pm.box[0] / n, pm.box[1] / n, pm.box[2] / n}
}

// Volume returns the box volume.
func (pm *ParticleMesh) Volume() float64 { return pm.box[0] * pm.box[1] * pm.box[2] }

// K returns the wavenumbers along each axis over the full grid. Index the
// first axis with global kx indices, i.e. offset by the slab start.
func (pm *ParticleMesh) K() [3][]float64 { return pm.k }

// Nyquist returns the smallest Nyquist wavenumber over the three axes.
func (pm *ParticleMesh) Nyquist() float64 {
	lmax := max(pm.box[0], pm.box[1], pm.box[2])
	return math.Pi * float64(pm.nmesh) / lmax
}

// Fundamental returns the largest fundamental mode 2π/min(L).
func (pm *ParticleMesh) Fundamental() float64 {
	lmin := min(pm.box[0], pm.box[1], pm.box[2])
	return 2 * math.Pi / lmin
}
