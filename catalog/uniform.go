package catalog

import (
	"fmt"
	"math/rand/v2"
)

// Uniform draws particles uniformly inside an axis-aligned box. It is the
// reference source for randoms of a periodic box and for tests.
type Uniform struct {
	N      int
	Box    [3]float64
	Offset float64
	Seed   uint64
	// Weight is assigned to every particle when non-zero.
	Weight float64
	// Nbar is assigned to every particle when non-zero.
	Nbar float64
}

func newUniform(args Args) (Source, error) {
	if err := args.only("uniform", "n", "box", "lx", "ly", "lz", "offset", "seed", "weight", "nbar"); err != nil {
		return nil, err
	}

	n, err := args.Int("n", 0)
	if err != nil {
		return nil, err
	}
	box, err := args.Float("box", 0)
	if err != nil {
		return nil, err
	}
	u := &Uniform{N: n, Box: [3]float64{box, box, box}}
	for d, key := range []string{"lx", "ly", "lz"} {
		if u.Box[d], err = args.Float(key, u.Box[d]); err != nil {
			return nil, err
		}
	}
	if u.Offset, err = args.Float("offset", 0); err != nil {
		return nil, err
	}
	seed, err := args.Int("seed", 42)
	if err != nil {
		return nil, err
	}
	u.Seed = uint64(seed)
	if u.Weight, err = args.Float("weight", 0); err != nil {
		return nil, err
	}
	if u.Nbar, err = args.Float("nbar", 0); err != nil {
		return nil, err
	}
	if err := u.validate(); err != nil {
		return nil, err
	}
	return u, nil
}

func (u *Uniform) validate() error {
	if u.N <= 0 {
		return fmt.Errorf("%w: n must be > 0: %d", ErrBadArgument, u.N)
	}
	for d, l := range u.Box {
		if !(l > 0) {
			return fmt.Errorf("%w: box axis %d must be > 0: %g", ErrBadArgument, d, l)
		}
	}
	if u.Weight < 0 || u.Nbar < 0 {
		return fmt.Errorf("%w: weight and nbar must be >= 0", ErrBadArgument)
	}
	return nil
}

// Name implements Source.
func (u *Uniform) Name() string {
	return fmt.Sprintf("uniform:n=%d,lx=%g,ly=%g,lz=%g,offset=%g,seed=%d", u.N, u.Box[0], u.Box[1], u.Box[2], u.Offset, u.Seed)
}

// Read implements Source. The same seed always yields the same sample.
func (u *Uniform) Read() (*Particles, error) {
	if err := u.validate(); err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewPCG(u.Seed, 0x9e3779b97f4a7c15))

	p := &Particles{Position: make([][3]float64, u.N)}
	for i := range p.Position {
		for d := range 3 {
			p.Position[i][d] = u.Offset + rng.Float64()*u.Box[d]
		}
	}
	if u.Weight > 0 {
		p.Weight = fill(u.N, u.Weight)
	}
	if u.Nbar > 0 {
		p.Nbar = fill(u.N, u.Nbar)
	}
	return p, nil
}

func fill(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}
