package poles

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/cmplx"
	"slices"

	"github.com/cwbudde/algo-vecmath"
	"gonum.org/v1/gonum/floats"

	"github.com/cwbudde/algo-survey/catalog"
	"github.com/cwbudde/algo-survey/comm"
	"github.com/cwbudde/algo-survey/internal/logging"
	"github.com/cwbudde/algo-survey/mesh"
)

var (
	// ErrUnsupportedOrder is returned for multipole orders other than 0, 2, 4.
	ErrUnsupportedOrder = errors.New("poles: multipole order must be 0, 2 or 4")
	// ErrNoOrders is returned when no multipole is requested.
	ErrNoOrders = errors.New("poles: no multipole orders requested")
	// ErrZeroNorm is returned when the randoms carry no weight or density.
	ErrZeroNorm = errors.New("poles: normalization is zero")
)

// Supported lists the multipole orders the estimator can compute.
var Supported = []int{0, 2, 4}

// Config holds estimator parameters.
type Config struct {
	// Orders are the requested multipoles, a subset of [Supported].
	Orders []int
	// SkipCompensation disables the cloud-in-cell window deconvolution.
	SkipCompensation bool
	// Logger receives progress messages. Nil discards them.
	Logger *slog.Logger
}

// Validate checks the requested orders.
func (c Config) Validate() error {
	if len(c.Orders) == 0 {
		return ErrNoOrders
	}
	for _, ell := range c.Orders {
		if !slices.Contains(Supported, ell) {
			return fmt.Errorf("%w: %d", ErrUnsupportedOrder, ell)
		}
	}
	return nil
}

// Meta describes the normalization of an estimate.
type Meta map[string]any

// Estimator computes multipole fields for a fixed configuration.
type Estimator struct {
	cfg Config
	log *slog.Logger
}

// NewEstimator validates cfg and returns an estimator.
func NewEstimator(cfg Config) (*Estimator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := cfg.Logger
	if log == nil {
		log = logging.NewNop()
	}
	cfg.Orders = slices.Clone(cfg.Orders)
	return &Estimator{cfg: cfg, log: log}, nil
}

// Compute is a one-shot estimate; see [Estimator.Compute].
func Compute(cat *catalog.TracerCatalog, pm *mesh.ParticleMesh, cfg Config) ([]*mesh.ComplexField, Meta, error) {
	e, err := NewEstimator(cfg)
	if err != nil {
		return nil, nil, err
	}
	return e.Compute(cat, pm)
}

// sums are the global sample totals entering the normalization.
type sums struct {
	nData, wData, w2Data float64
	nRan, wRan, w2Ran    float64
	nbarW2Ran            float64
}

// Compute paints the catalog on pm and returns one Fourier field per
// configured order, in configured order. The catalog must be loaded. It is a
// collective call over the mesh communicator.
func (e *Estimator) Compute(cat *catalog.TracerCatalog, pm *mesh.ParticleMesh) ([]*mesh.ComplexField, Meta, error) {
	c := pm.Comm()
	data, randoms := cat.Local(c.Rank(), c.Size())

	s, err := totals(c, data, randoms, cat.MeanNbar())
	if err != nil {
		return nil, nil, err
	}
	if s.wRan == 0 || s.nbarW2Ran == 0 {
		return nil, nil, fmt.Errorf("%w: randoms weight %g, Σ nbar w² %g", ErrZeroNorm, s.wRan, s.nbarW2Ran)
	}
	alpha := s.wData / s.wRan
	norm := alpha * s.nbarW2Ran
	shot := (s.w2Data + alpha*alpha*s.w2Ran) / norm

	meta := Meta{
		"alpha":     alpha,
		"N_data":    s.nData,
		"N_ran":     s.nRan,
		"W_data":    s.wData,
		"W_ran":     s.wRan,
		"norm":      norm,
		"shotnoise": shot,
	}
	e.log.Info("catalog totals", "alpha", alpha, "N_data", s.nData, "N_ran", s.nRan, "norm", norm, "shotnoise", shot)

	field, err := e.paint(pm, cat.Origin(), data, randoms, alpha)
	if err != nil {
		return nil, nil, err
	}

	maxOrder := slices.Max(e.cfg.Orders)
	a, err := e.transforms(pm, cat.Origin(), field, maxOrder)
	if err != nil {
		return nil, nil, err
	}

	out := make([]*mesh.ComplexField, len(e.cfg.Orders))
	for i, ell := range e.cfg.Orders {
		out[i] = pm.NewComplexField()
		scale := complex(float64(2*ell+1)/norm, 0)
		al := a[ell]
		for j := range out[i].Value {
			p := scale * al[j] * cmplx.Conj(a[0][j])
			if ell == 0 {
				p -= complex(shot, 0)
			}
			out[i].Value[j] = complex64(p)
		}
	}
	e.log.Debug("multipoles computed", "orders", e.cfg.Orders)
	return out, meta, nil
}

func totals(c comm.Communicator, data, randoms *catalog.Particles, meanNbar float64) (sums, error) {
	buf := make([]float64, 7)
	buf[0] = float64(data.Len())
	buf[1], buf[2] = weightSums(data)
	buf[3] = float64(randoms.Len())
	buf[4], buf[5] = weightSums(randoms)
	for i := range randoms.Position {
		w := randoms.WeightAt(i)
		buf[6] += randoms.NbarAt(i, meanNbar) * w * w
	}
	if err := comm.AllReduceSum(c, buf); err != nil {
		return sums{}, fmt.Errorf("poles: reduce totals: %w", err)
	}
	return sums{
		nData: buf[0], wData: buf[1], w2Data: buf[2],
		nRan: buf[3], wRan: buf[4], w2Ran: buf[5],
		nbarW2Ran: buf[6],
	}, nil
}

// weightSums returns Σw and Σw².
func weightSums(p *catalog.Particles) (float64, float64) {
	if p.Weight == nil {
		n := float64(p.Len())
		return n, n
	}
	return floats.Sum(p.Weight), floats.Dot(p.Weight, p.Weight)
}

// paint returns the local slab of w[n_g - α n_s].
func (e *Estimator) paint(pm *mesh.ParticleMesh, origin [3]float64, data, randoms *catalog.Particles, alpha float64) (*mesh.RealField, error) {
	accData := pm.NewAccumulator()
	if err := pm.Deposit(accData, data.Position, data.Weight, origin); err != nil {
		return nil, fmt.Errorf("poles: paint data: %w", err)
	}
	accRan := pm.NewAccumulator()
	if err := pm.Deposit(accRan, randoms.Position, randoms.Weight, origin); err != nil {
		return nil, fmt.Errorf("poles: paint randoms: %w", err)
	}

	scaled := make([]float64, len(accRan))
	vecmath.ScaleBlock(scaled, accRan, -alpha)
	vecmath.AddBlockInPlace(accData, scaled)

	field, err := pm.Reduce(accData)
	if err != nil {
		return nil, fmt.Errorf("poles: %w", err)
	}
	e.log.Debug("painted overdensity", "nmesh", pm.Nmesh())
	return field, nil
}

// lineOfSight returns the unit vector components from the observer to every
// local grid point.
func lineOfSight(pm *mesh.ParticleMesh, origin [3]float64) [3][]float64 {
	n := pm.Nmesh()
	h := pm.CellSize()
	lo, hi := pm.Slab()

	var rhat [3][]float64
	for d := range rhat {
		rhat[d] = make([]float64, pm.LocalSize())
	}
	idx := 0
	for x := lo; x < hi; x++ {
		rx := origin[0] + float64(x)*h[0]
		for y := range n {
			ry := origin[1] + float64(y)*h[1]
			for z := range n {
				rz := origin[2] + float64(z)*h[2]
				r := math.Sqrt(rx*rx + ry*ry + rz*rz)
				if r > 0 {
					rhat[0][idx], rhat[1][idx], rhat[2][idx] = rx/r, ry/r, rz/r
				}
				idx++
			}
		}
	}
	return rhat
}

// transforms returns A_ℓ for ℓ = 0, 2, … up to maxOrder, indexed by ℓ.
func (e *Estimator) transforms(pm *mesh.ParticleMesh, origin [3]float64, field *mesh.RealField, maxOrder int) (map[int][]complex128, error) {
	a0f, err := field.R2C()
	if err != nil {
		return nil, fmt.Errorf("poles: transform F: %w", err)
	}
	out := map[int][]complex128{0: a0f.Complex128()}
	if maxOrder == 0 {
		return e.compensate(pm, out)
	}

	fr := field.Float64()
	rhat := lineOfSight(pm, origin)

	pairs := combinations(2)
	qPairs, err := weightedTransforms(pm, fr, rhat, pairs)
	if err != nil {
		return nil, err
	}
	e.log.Debug("quadrupole transforms done", "ffts", len(pairs))

	var quads [][]int
	var qQuads [][]complex128
	if maxOrder >= 4 {
		quads = combinations(4)
		if qQuads, err = weightedTransforms(pm, fr, rhat, quads); err != nil {
			return nil, err
		}
		e.log.Debug("hexadecapole transforms done", "ffts", len(quads))
	}

	khat := unitWavevectors(pm)
	a0 := out[0]
	a2 := make([]complex128, len(a0))
	var a4 []complex128
	if maxOrder >= 4 {
		a4 = make([]complex128, len(a0))
	}
	for j := range a0 {
		k := [3]float64{khat[0][j], khat[1][j], khat[2][j]}
		s2 := contract(k, pairs, qPairs, j)
		a2[j] = 1.5*s2 - 0.5*a0[j]
		if a4 != nil {
			s4 := contract(k, quads, qQuads, j)
			a4[j] = 35.0/8*s4 - 30.0/8*s2 + 3.0/8*a0[j]
		}
	}
	out[2] = a2
	if a4 != nil {
		out[4] = a4
	}
	return e.compensate(pm, out)
}

func (e *Estimator) compensate(pm *mesh.ParticleMesh, a map[int][]complex128) (map[int][]complex128, error) {
	if e.cfg.SkipCompensation {
		return a, nil
	}
	for ell, values := range a {
		f := pm.NewComplexField()
		if err := f.SetComplex128(values); err != nil {
			return nil, err
		}
		f.CompensateCIC()
		a[ell] = f.Complex128()
	}
	return a, nil
}

// weightedTransforms returns FFT[F Π r̂_i] for every index combination.
func weightedTransforms(pm *mesh.ParticleMesh, fr []float64, rhat [3][]float64, combos [][]int) ([][]complex128, error) {
	out := make([][]complex128, len(combos))
	tmp := make([]float64, len(fr))
	for ci, combo := range combos {
		copy(tmp, fr)
		for _, axis := range combo {
			vecmath.MulBlockInPlace(tmp, rhat[axis])
		}
		rf, err := pm.NewRealFieldFrom(tmp)
		if err != nil {
			return nil, err
		}
		q, err := rf.R2C()
		if err != nil {
			return nil, fmt.Errorf("poles: transform Q%v: %w", combo, err)
		}
		out[ci] = q.Complex128()
	}
	return out, nil
}

// contract returns Σ mult · Π k̂_axis · Q_combo at local mode j.
func contract(khat [3]float64, combos [][]int, q [][]complex128, j int) complex128 {
	var s complex128
	for ci, combo := range combos {
		w := multiplicity(combo)
		for _, axis := range combo {
			w *= khat[axis]
		}
		s += complex(w, 0) * q[ci][j]
	}
	return s
}

// unitWavevectors returns k̂ for every local mode; k = 0 maps to zero.
func unitWavevectors(pm *mesh.ParticleMesh) [3][]float64 {
	n := pm.Nmesh()
	k := pm.K()
	lo, hi := pm.Slab()

	var out [3][]float64
	for d := range out {
		out[d] = make([]float64, pm.LocalSize())
	}
	idx := 0
	for x := lo; x < hi; x++ {
		for y := range n {
			for z := range n {
				kx, ky, kz := k[0][x], k[1][y], k[2][z]
				kk := math.Sqrt(kx*kx + ky*ky + kz*kz)
				if kk > 0 {
					out[0][idx], out[1][idx], out[2][idx] = kx/kk, ky/kk, kz/kk
				}
				idx++
			}
		}
	}
	return out
}

// combinations returns the non-decreasing index tuples of length n over the
// three axes.
func combinations(n int) [][]int {
	var out [][]int
	var rec func(prefix []int, start int)
	rec = func(prefix []int, start int) {
		if len(prefix) == n {
			out = append(out, slices.Clone(prefix))
			return
		}
		for axis := start; axis < 3; axis++ {
			rec(append(prefix, axis), axis)
		}
	}
	rec(nil, 0)
	return out
}

// multiplicity counts the distinct orderings of a sorted index tuple.
func multiplicity(combo []int) float64 {
	var counts [3]int
	for _, axis := range combo {
		counts[axis]++
	}
	m := factorial(len(combo))
	for _, c := range counts {
		m /= factorial(c)
	}
	return float64(m)
}

func factorial(n int) int {
	f := 1
	for i := 2; i <= n; i++ {
		f *= i
	}
	return f
}
