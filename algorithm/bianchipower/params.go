package bianchipower

import (
	"errors"
	"fmt"
	"io"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/cwbudde/algo-survey/catalog"
	"github.com/cwbudde/algo-survey/measure/poles"
	"github.com/cwbudde/algo-survey/storage"
)

// Name is the logger name of the algorithm.
const Name = "BianchiPower"

var (
	// ErrUnsupportedPole is returned for multipoles outside {0, 2, 4}.
	ErrUnsupportedPole = errors.New("bianchipower: poles must be 0, 2 or 4")
	// ErrDuplicatePole is returned when a multipole is requested twice.
	ErrDuplicatePole = errors.New("bianchipower: duplicate pole")
	// ErrNoPoles is returned when no multipole is requested.
	ErrNoPoles = errors.New("bianchipower: at least one pole is required")
	// ErrInvalidNmesh is returned for a non-positive or non-numeric mesh size.
	ErrInvalidNmesh = errors.New("bianchipower: Nmesh must be a positive integer")
	// ErrInvalidKRange is returned when dk or kmin leave no k bin.
	ErrInvalidKRange = errors.New("bianchipower: invalid k range")
)

// Params configures a measurement.
type Params struct {
	// Catalog holds the data and randoms.
	Catalog *catalog.TracerCatalog
	// Nmesh is the number of mesh cells per axis.
	Nmesh int
	// Poles are the multipoles to compute, in output order.
	Poles []int
	// DK is the k-bin width. Zero selects the fundamental mode 2π/min(L).
	DK float64
	// KMin is the lower edge of the first k bin.
	KMin float64

	// Quiet raises the log threshold from debug to error.
	Quiet bool
	// LogFormat is console or json.
	LogFormat string
	// LogWriter receives log output; nil means stderr.
	LogWriter io.Writer

	// Format is the storage format of Save; empty means "1d".
	Format string
	// Plot, when set, is an image path Save renders the multipoles to.
	Plot string
}

// Validate checks parameters that do not depend on the catalog box.
func (p *Params) Validate() error {
	if p.Catalog == nil {
		return errors.New("bianchipower: catalog is required")
	}
	if p.Nmesh <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidNmesh, p.Nmesh)
	}
	if err := validatePoles(p.Poles); err != nil {
		return err
	}
	if p.DK < 0 || math.IsNaN(p.DK) || math.IsInf(p.DK, 0) {
		return fmt.Errorf("%w: dk must be > 0, got %g", ErrInvalidKRange, p.DK)
	}
	if math.IsNaN(p.KMin) || math.IsInf(p.KMin, 0) {
		return fmt.Errorf("%w: kmin must be finite", ErrInvalidKRange)
	}
	if p.Format != "" && !slices.Contains(storage.Formats(), p.Format) {
		return fmt.Errorf("%w: %q", storage.ErrUnknownFormat, p.Format)
	}
	return nil
}

// ParseNmesh parses the mesh resolution argument.
func ParseNmesh(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidNmesh, s)
	}
	if n <= 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidNmesh, n)
	}
	return n, nil
}

// ParsePoles parses pole arguments. Each argument is a single integer or a
// comma-separated list; the order of appearance is kept.
func ParsePoles(args []string) ([]int, error) {
	var out []int
	for _, arg := range args {
		for field := range strings.SplitSeq(arg, ",") {
			field = strings.TrimSpace(field)
			if field == "" {
				continue
			}
			ell, err := strconv.Atoi(field)
			if err != nil {
				return nil, fmt.Errorf("bianchipower: pole %q is not an integer", field)
			}
			out = append(out, ell)
		}
	}
	if err := validatePoles(out); err != nil {
		return nil, err
	}
	return out, nil
}

func validatePoles(orders []int) error {
	if len(orders) == 0 {
		return ErrNoPoles
	}
	seen := make(map[int]bool, len(orders))
	for _, ell := range orders {
		if !slices.Contains(poles.Supported, ell) {
			return fmt.Errorf("%w: %d", ErrUnsupportedPole, ell)
		}
		if seen[ell] {
			return fmt.Errorf("%w: %d", ErrDuplicatePole, ell)
		}
		seen[ell] = true
	}
	return nil
}

// ColumnNames returns the output columns for the given poles: k, one
// power_<ℓ> column per pole in request order, and modes.
func ColumnNames(orders []int) []string {
	cols := make([]string, 0, len(orders)+2)
	cols = append(cols, "k")
	for _, ell := range orders {
		cols = append(cols, "power_"+strconv.Itoa(ell))
	}
	return append(cols, "modes")
}

// KEdges returns k-bin edges kmin, kmin+dk, … up to the first edge at or past
// the Nyquist wavenumber π·nmesh/max(box). A zero dk selects 2π/min(box).
func KEdges(box [3]float64, nmesh int, dk, kmin float64) ([]float64, error) {
	lmin := min(box[0], box[1], box[2])
	lmax := max(box[0], box[1], box[2])
	if !(lmin > 0) || nmesh <= 0 {
		return nil, fmt.Errorf("%w: box %v with Nmesh %d", ErrInvalidKRange, box, nmesh)
	}
	if dk == 0 {
		dk = 2 * math.Pi / lmin
	}
	if !(dk > 0) {
		return nil, fmt.Errorf("%w: dk must be > 0, got %g", ErrInvalidKRange, dk)
	}
	kny := math.Pi * float64(nmesh) / lmax
	if kmin >= kny {
		return nil, fmt.Errorf("%w: kmin %g is not below the Nyquist wavenumber %g", ErrInvalidKRange, kmin, kny)
	}

	steps := (kny - kmin) / dk
	m := int(math.Ceil(steps))
	if r := math.Round(steps); math.Abs(steps-r) <= 1e-9*max(1, steps) {
		m = int(r)
	}
	m = max(m, 1)

	edges := make([]float64, m+1)
	for i := range edges {
		edges[i] = kmin + float64(i)*dk
	}
	if edges[m] < kny {
		edges[m] = kny
	}
	return edges, nil
}
