package basis

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/cwbudde/algo-survey/comm"
	"github.com/cwbudde/algo-survey/internal/testutil"
	"github.com/cwbudde/algo-survey/mesh"
)

func constantField(t *testing.T, pm *mesh.ParticleMesh, v complex64) *mesh.ComplexField {
	t.Helper()
	f := pm.NewComplexField()
	for i := range f.Value {
		f.Value[i] = v
	}
	return f
}

func kEdges(pm *mesh.ParticleMesh) []float64 {
	dk := pm.Fundamental()
	// Largest |k| on the grid is below sqrt(3)·π·n/min(L).
	upper := math.Sqrt(3) * dk * float64(pm.Nmesh()) / 2
	var edges []float64
	for k := 0.0; k < upper+1.5*dk; k += dk {
		edges = append(edges, k)
	}
	return edges
}

func TestProjectRejectsEdges(t *testing.T) {
	pm, _ := mesh.New([3]float64{1, 1, 1}, 4, nil)
	f := pm.NewComplexField()
	for _, tt := range []struct{ k, mu []float64 }{
		{[]float64{0}, []float64{0, 1}},
		{[]float64{0, 1}, []float64{1, 0}},
		{[]float64{0, 1, 1}, []float64{0, 1}},
	} {
		if _, err := Project(comm.Self(), f, tt.k, tt.mu, true); !errors.Is(err, ErrInvalidEdges) {
			t.Fatalf("edges %v/%v: expected ErrInvalidEdges, got %v", tt.k, tt.mu, err)
		}
	}
}

func TestProjectConstantField(t *testing.T) {
	pm, _ := mesh.New([3]float64{10, 10, 10}, 8, nil)
	res, err := Project(comm.Self(), constantField(t, pm, 3+1i), kEdges(pm), []float64{0, 1}, true)
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	for i := range res.Power {
		if res.Modes[i][0] == 0 {
			if !math.IsNaN(res.Power[i][0]) || !math.IsNaN(res.K[i][0]) {
				t.Fatalf("empty bin %d: want NaN, got k=%g power=%g", i, res.K[i][0], res.Power[i][0])
			}
			continue
		}
		if res.Power[i][0] != 3 {
			t.Fatalf("bin %d power=%g want 3", i, res.Power[i][0])
		}
	}
}

// Folding onto kz >= 0 must not change the number of modes per k bin.
func TestProjectSymmetricModeCounts(t *testing.T) {
	for _, n := range []int{6, 7, 8} {
		pm, _ := mesh.New([3]float64{10, 12, 14}, n, nil)
		f := constantField(t, pm, 1)
		edges := kEdges(pm)

		sym, err := Project(comm.Self(), f, edges, []float64{0, 1}, true)
		if err != nil {
			t.Fatalf("n=%d: %v", n, err)
		}
		full, err := Project(comm.Self(), f, edges, []float64{-1, 1}, false)
		if err != nil {
			t.Fatalf("n=%d: %v", n, err)
		}

		total := 0.0
		for i := range sym.Modes {
			if sym.Modes[i][0] != full.Modes[i][0] {
				t.Fatalf("n=%d bin %d: symmetric %g modes, full %g", n, i, sym.Modes[i][0], full.Modes[i][0])
			}
			if full.Modes[i][0] > 0 && math.Abs(sym.K[i][0]-full.K[i][0]) > 1e-12 {
				t.Fatalf("n=%d bin %d: mean k %g vs %g", n, i, sym.K[i][0], full.K[i][0])
			}
			total += full.Modes[i][0]
		}
		if total != float64(n*n*n) {
			t.Fatalf("n=%d: %g modes binned, want %d", n, total, n*n*n)
		}
	}
}

func TestProjectMuUpperEdge(t *testing.T) {
	pm, _ := mesh.New([3]float64{1, 1, 1}, 4, nil)
	f := pm.NewComplexField()
	// (kx, ky, kz) = (0, 0, 1): mu is exactly 1.
	f.Value[1] = 5
	kf := pm.Fundamental()
	res, err := Project(comm.Self(), f, []float64{0.5 * kf, 1.5 * kf}, []float64{0, 0.5, 1}, true)
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	if res.Mu[0][1] != 1 {
		t.Fatalf("mu bin 1 mean=%g want 1", res.Mu[0][1])
	}
	// Six modes with |k| = kf: two along z, folded to one with weight 2.
	if res.Modes[0][1] != 2 || res.Power[0][1] != 5 {
		t.Fatalf("upper mu bin: modes=%g power=%g", res.Modes[0][1], res.Power[0][1])
	}
	if res.Modes[0][0] != 4 || res.Power[0][0] != 0 {
		t.Fatalf("lower mu bin: modes=%g power=%g", res.Modes[0][0], res.Power[0][0])
	}
}

func TestProjectDistributedMatchesSerial(t *testing.T) {
	const n = 8
	box := [3]float64{10, 10, 10}
	values := make([]complex64, n*n*n)
	for i := range values {
		values[i] = complex(float32(math.Sin(float64(i))), 0)
	}

	pm, _ := mesh.New(box, n, nil)
	serialField := pm.NewComplexField()
	copy(serialField.Value, values)
	edges := kEdges(pm)
	serial, err := Project(comm.Self(), serialField, edges, []float64{0, 1}, true)
	if err != nil {
		t.Fatalf("Project: %v", err)
	}

	results := make([]*Result, 3)
	err = comm.Run(context.Background(), 3, func(_ context.Context, c comm.Communicator) error {
		pm, err := mesh.New(box, n, c)
		if err != nil {
			return err
		}
		lo, hi := pm.Slab()
		f := pm.NewComplexField()
		copy(f.Value, values[lo*n*n:hi*n*n])
		results[c.Rank()], err = Project(c, f, edges, []float64{0, 1}, true)
		return err
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	_, wantPower, wantModes, _ := serial.Squeeze()
	for _, res := range results {
		_, power, modes, err := res.Squeeze()
		if err != nil {
			t.Fatalf("Squeeze: %v", err)
		}
		testutil.RequireSliceNearlyEqual(t, modes, wantModes, 0)
		testutil.RequireSliceNearlyEqual(t, power, wantPower, 1e-9)
	}
}

func TestSqueeze(t *testing.T) {
	r := &Result{
		K:     [][]float64{{1}, {2}},
		Mu:    [][]float64{{0.5}, {0.5}},
		Power: [][]float64{{10}, {20}},
		Modes: [][]float64{{4}, {8}},
	}
	k, p, m, err := r.Squeeze()
	if err != nil {
		t.Fatalf("Squeeze: %v", err)
	}
	if k[1] != 2 || p[0] != 10 || m[1] != 8 {
		t.Fatalf("unexpected squeeze %v %v %v", k, p, m)
	}

	r.K[0] = []float64{1, 2}
	if _, _, _, err := r.Squeeze(); !errors.Is(err, ErrNotSqueezable) {
		t.Fatalf("expected ErrNotSqueezable, got %v", err)
	}
}
