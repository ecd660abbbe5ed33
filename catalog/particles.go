package catalog

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-survey/comm"
)

// Particles is a sample of tracer positions in survey coordinates.
//
// Weight and Nbar are optional per-particle columns. A nil Weight means unit
// weights; a nil Nbar means the number density is not known.
type Particles struct {
	Position [][3]float64
	Weight   []float64
	Nbar     []float64
}

// Len returns the number of particles.
func (p *Particles) Len() int {
	if p == nil {
		return 0
	}
	return len(p.Position)
}

// WeightAt returns the weight of particle i.
func (p *Particles) WeightAt(i int) float64 {
	if p.Weight == nil {
		return 1
	}
	return p.Weight[i]
}

// NbarAt returns the number density at particle i, or fallback when the
// column is missing.
func (p *Particles) NbarAt(i int, fallback float64) float64 {
	if p.Nbar == nil {
		return fallback
	}
	return p.Nbar[i]
}

// Validate checks column lengths and rejects non-finite values.
func (p *Particles) Validate() error {
	n := p.Len()
	if p.Weight != nil && len(p.Weight) != n {
		return fmt.Errorf("%w: %d weights for %d particles", ErrBadArgument, len(p.Weight), n)
	}
	if p.Nbar != nil && len(p.Nbar) != n {
		return fmt.Errorf("%w: %d nbar values for %d particles", ErrBadArgument, len(p.Nbar), n)
	}
	for i, pos := range p.Position {
		for _, v := range pos {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%w: particle %d has non-finite position", ErrBadArgument, i)
			}
		}
	}
	return nil
}

// Bounds returns the per-axis minimum and maximum position.
func (p *Particles) Bounds() (lo, hi [3]float64) {
	for d := range 3 {
		lo[d] = math.Inf(1)
		hi[d] = math.Inf(-1)
	}
	for _, pos := range p.Position {
		for d, v := range pos {
			lo[d] = math.Min(lo[d], v)
			hi[d] = math.Max(hi[d], v)
		}
	}
	return lo, hi
}

// Partition returns the contiguous share of particles owned by rank out of
// size ranks. Shares differ in length by at most one. The returned sample
// aliases p.
func (p *Particles) Partition(rank, size int) *Particles {
	if p == nil {
		return &Particles{}
	}
	n := p.Len()
	lo, hi := comm.Split(n, rank, size)
	out := &Particles{Position: p.Position[lo:hi]}
	if p.Weight != nil {
		out.Weight = p.Weight[lo:hi]
	}
	if p.Nbar != nil {
		out.Nbar = p.Nbar[lo:hi]
	}
	return out
}
