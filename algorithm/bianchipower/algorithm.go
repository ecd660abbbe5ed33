package bianchipower

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/google/uuid"

	"github.com/cwbudde/algo-survey/comm"
	"github.com/cwbudde/algo-survey/internal/logging"
	"github.com/cwbudde/algo-survey/measure/basis"
	"github.com/cwbudde/algo-survey/measure/poles"
	"github.com/cwbudde/algo-survey/mesh"
	"github.com/cwbudde/algo-survey/storage"
)

// muEdges collapses the angular dimension: the multipoles are already
// integrated over mu.
var muEdges = []float64{0, 1}

// Result is the binned measurement of one run.
type Result struct {
	// KEdges are the k-bin edges.
	KEdges []float64
	// K is the mean wavenumber per bin.
	K []float64
	// Orders are the multipoles of the Poles rows.
	Orders []int
	// Poles holds one row of binned power per order.
	Poles [][]float64
	// Modes is the number of Fourier modes per bin.
	Modes []float64
	// Meta describes the normalization and geometry.
	Meta storage.Meta
}

// Columns returns the output column names and data, in output order.
func (r *Result) Columns() ([]string, [][]float64) {
	data := make([][]float64, 0, len(r.Poles)+2)
	data = append(data, r.K)
	data = append(data, r.Poles...)
	data = append(data, r.Modes)
	return ColumnNames(r.Orders), data
}

// Algorithm is a validated measurement. It is safe for use by all ranks of a
// group at once.
type Algorithm struct {
	p     Params
	runID string
}

// New validates p.
func New(p Params) (*Algorithm, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if p.Format == "" {
		p.Format = "1d"
	}
	p.Poles = slices.Clone(p.Poles)
	return &Algorithm{p: p, runID: uuid.NewString()}, nil
}

// Params returns the validated parameters.
func (a *Algorithm) Params() Params { return a.p }

// Logger returns the algorithm logger for a rank. Non-leaders only log
// errors.
func (a *Algorithm) Logger(isLeader bool) (*slog.Logger, error) {
	level := "debug"
	if a.p.Quiet {
		level = "error"
	}
	return logging.New(logging.Options{
		Level:    level,
		Format:   a.p.LogFormat,
		Name:     Name,
		Follower: !isLeader,
		Writer:   a.p.LogWriter,
	})
}

// Run computes the binned multipoles. It is a collective call: every rank of
// c must call Run with the same algorithm.
func (a *Algorithm) Run(c comm.Communicator) (*Result, error) {
	log, err := a.Logger(c.IsLeader())
	if err != nil {
		return nil, err
	}

	cat := a.p.Catalog
	if err := cat.Load(); err != nil {
		return nil, err
	}
	box := cat.BoxSize()
	log.Info("catalog loaded", "catalog", cat.String(), "BoxSize", box, "ranks", c.Size())

	kedges, err := KEdges(box, a.p.Nmesh, a.p.DK, a.p.KMin)
	if err != nil {
		return nil, err
	}
	log.Debug("k bins", "n", len(kedges)-1, "kmin", kedges[0], "kmax", kedges[len(kedges)-1])

	pm, err := mesh.New(box, a.p.Nmesh, c)
	if err != nil {
		return nil, err
	}

	fields, pmeta, err := poles.Compute(cat, pm, poles.Config{Orders: a.p.Poles, Logger: log})
	if err != nil {
		return nil, err
	}

	res := &Result{KEdges: kedges, Orders: slices.Clone(a.p.Poles), Poles: make([][]float64, len(fields))}
	for i, field := range fields {
		proj, err := basis.Project(c, field, kedges, muEdges, true)
		if err != nil {
			return nil, fmt.Errorf("bianchipower: project pole %d: %w", a.p.Poles[i], err)
		}
		k, power, modes, err := proj.Squeeze()
		if err != nil {
			return nil, err
		}
		if i == 0 {
			res.K, res.Modes = k, modes
		}
		res.Poles[i] = power
	}

	runID, err := comm.Broadcast(c, a.runID, 0)
	if err != nil {
		return nil, fmt.Errorf("bianchipower: share run id: %w", err)
	}
	res.Meta = storage.Meta{
		"Lx":     box[0],
		"Ly":     box[1],
		"Lz":     box[2],
		"volume": box[0] * box[1] * box[2],
		"Nmesh":  a.p.Nmesh,
		"run_id": runID,
	}
	for k, v := range pmeta {
		res.Meta[k] = v
	}
	log.Info("multipoles measured", "poles", a.p.Poles, "bins", len(res.K))
	return res, nil
}

// Save writes res to output when isLeader is set and is a no-op otherwise.
func (a *Algorithm) Save(output string, res *Result, isLeader bool) error {
	if !isLeader {
		return nil
	}
	log, err := a.Logger(true)
	if err != nil {
		return err
	}

	cols, data := res.Columns()
	s, err := storage.New(a.p.Format, output)
	if err != nil {
		return err
	}
	log.Info("saving measurement", "output", output, "format", a.p.Format, "columns", cols)
	if err := s.Write(res.KEdges, cols, data, res.Meta); err != nil {
		return err
	}

	if a.p.Plot != "" {
		p, err := storage.New("png", a.p.Plot)
		if err != nil {
			return err
		}
		log.Info("saving plot", "output", a.p.Plot)
		if err := p.Write(res.KEdges, cols, data, res.Meta); err != nil {
			return err
		}
	}
	return nil
}

// Execute runs and saves the measurement on ranks cooperating workers.
func (a *Algorithm) Execute(ctx context.Context, ranks int, output string) error {
	return comm.Run(ctx, ranks, func(_ context.Context, c comm.Communicator) error {
		res, err := a.Run(c)
		if err != nil {
			return err
		}
		return a.Save(output, res, c.IsLeader())
	})
}
