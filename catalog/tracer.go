package catalog

import (
	"fmt"
	"sync"
)

// DefaultBoxPad is the fractional padding added to the sample extent when the
// box size is derived from the particles.
const DefaultBoxPad = 0.02

// Option configures a TracerCatalog.
type Option func(*TracerCatalog)

// WithBoxPad sets the fractional box padding.
func WithBoxPad(pad float64) Option {
	return func(t *TracerCatalog) { t.boxPad = pad }
}

// WithBoxSize fixes the box size instead of deriving it from the sample
// extent. The box is still centered on the samples.
func WithBoxSize(box [3]float64) Option {
	return func(t *TracerCatalog) {
		t.fixedBox = box
		t.hasFixedBox = true
	}
}

// WithRegistry resolves spec components against r instead of [Sources].
func WithRegistry(r *Registry) Option {
	return func(t *TracerCatalog) { t.registry = r }
}

// TracerCatalog pairs a data sample with the randoms that describe the survey
// geometry. Load is safe to call from several ranks; the samples are read
// once and shared read-only.
type TracerCatalog struct {
	data     Source
	randoms  Source
	registry *Registry

	boxPad      float64
	fixedBox    [3]float64
	hasFixedBox bool

	once     sync.Once
	err      error
	dataP    *Particles
	randP    *Particles
	box      [3]float64
	origin   [3]float64
	meanNbar float64
}

// New creates a catalog from explicit sources.
func New(data, randoms Source, opts ...Option) (*TracerCatalog, error) {
	t := &TracerCatalog{data: data, randoms: randoms, boxPad: DefaultBoxPad, registry: Sources}
	for _, opt := range opts {
		opt(t)
	}
	if data == nil || randoms == nil {
		return nil, ErrComponentCount
	}
	if t.boxPad < 0 {
		return nil, fmt.Errorf("%w: box pad must be >= 0: %g", ErrBadArgument, t.boxPad)
	}
	if t.hasFixedBox {
		for d, l := range t.fixedBox {
			if !(l > 0) {
				return nil, fmt.Errorf("%w: box axis %d must be > 0: %g", ErrBadArgument, d, l)
			}
		}
	}
	return t, nil
}

// ParseSpec parses "data::randoms" into a catalog. Sources are resolved but
// not read.
func ParseSpec(spec string, opts ...Option) (*TracerCatalog, error) {
	probe := &TracerCatalog{registry: Sources}
	for _, opt := range opts {
		opt(probe)
	}

	parts := SplitSpec(spec)
	if len(parts) == 1 && parts[0] == "" {
		return nil, ErrEmptySpec
	}
	if len(parts) != 2 {
		return nil, fmt.Errorf("%w: got %d in %q", ErrComponentCount, len(parts), spec)
	}

	sources := make([]Source, len(parts))
	for i, part := range parts {
		c, err := ParseComponent(part)
		if err != nil {
			return nil, err
		}
		if sources[i], err = probe.registry.Build(c); err != nil {
			return nil, err
		}
	}
	return New(sources[0], sources[1], opts...)
}

// ParseList parses a list of component specs, as if joined by [Separator].
func ParseList(components []string, opts ...Option) (*TracerCatalog, error) {
	return ParseSpec(FromList(components), opts...)
}

// String returns the spec form of the catalog.
func (t *TracerCatalog) String() string {
	return t.data.Name() + Separator + t.randoms.Name()
}

// Load reads both samples and derives the box. Subsequent calls return the
// first result.
func (t *TracerCatalog) Load() error {
	t.once.Do(func() { t.err = t.load() })
	return t.err
}

func (t *TracerCatalog) load() error {
	var err error
	if t.dataP, err = readSample("data", t.data); err != nil {
		return err
	}
	if t.randP, err = readSample("randoms", t.randoms); err != nil {
		return err
	}

	dlo, dhi := t.dataP.Bounds()
	rlo, rhi := t.randP.Bounds()
	for d := range 3 {
		lo, hi := min(dlo[d], rlo[d]), max(dhi[d], rhi[d])
		extent := hi - lo
		center := (lo + hi) / 2

		l := extent * (1 + t.boxPad)
		if t.hasFixedBox {
			if extent > t.fixedBox[d] {
				return fmt.Errorf("%w: sample extent %g exceeds box %g on axis %d", ErrBadArgument, extent, t.fixedBox[d], d)
			}
			l = t.fixedBox[d]
		}
		if !(l > 0) {
			return fmt.Errorf("%w: samples have zero extent on axis %d", ErrBadArgument, d)
		}
		t.box[d] = l
		t.origin[d] = center - l/2
	}

	wsum := 0.0
	for i := range t.dataP.Position {
		wsum += t.dataP.WeightAt(i)
	}
	t.meanNbar = wsum / (t.box[0] * t.box[1] * t.box[2])
	return nil
}

func readSample(role string, src Source) (*Particles, error) {
	p, err := src.Read()
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s %s: %w", role, src.Name(), err)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("catalog: %s %s: %w", role, src.Name(), err)
	}
	if p.Len() == 0 {
		return nil, fmt.Errorf("%w: %s %s", ErrEmptySample, role, src.Name())
	}
	return p, nil
}

// BoxSize returns the box edge lengths. It is zero before Load.
func (t *TracerCatalog) BoxSize() [3]float64 { return t.box }

// Origin returns the lower box corner in survey coordinates.
func (t *TracerCatalog) Origin() [3]float64 { return t.origin }

// MeanNbar returns the weighted data density over the box volume. It stands in
// for samples without an nbar column.
func (t *TracerCatalog) MeanNbar() float64 { return t.meanNbar }

// Data returns the full data sample. It is nil before Load.
func (t *TracerCatalog) Data() *Particles { return t.dataP }

// Randoms returns the full randoms sample. It is nil before Load.
func (t *TracerCatalog) Randoms() *Particles { return t.randP }

// Local returns the shares of data and randoms owned by rank.
func (t *TracerCatalog) Local(rank, size int) (data, randoms *Particles) {
	return t.dataP.Partition(rank, size), t.randP.Partition(rank, size)
}
