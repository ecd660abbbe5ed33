package mesh

import (
	"context"
	"errors"
	"math"
	"math/cmplx"
	"testing"

	"github.com/cwbudde/algo-survey/comm"
	"github.com/cwbudde/algo-survey/internal/testutil"
)

func TestNewValidates(t *testing.T) {
	if _, err := New([3]float64{1, 1, 1}, 0, nil); !errors.Is(err, ErrInvalidNmesh) {
		t.Fatalf("expected ErrInvalidNmesh, got %v", err)
	}
	if _, err := New([3]float64{1, 0, 1}, 8, nil); !errors.Is(err, ErrInvalidBox) {
		t.Fatalf("expected ErrInvalidBox, got %v", err)
	}
	pm, err := New([3]float64{100, 200, 400}, 8, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if lo, hi := pm.Slab(); lo != 0 || hi != 8 {
		t.Fatalf("single rank slab = [%d,%d)", lo, hi)
	}
	if got, want := pm.Nyquist(), math.Pi*8/400; math.Abs(got-want) > 1e-15 {
		t.Fatalf("Nyquist=%g want %g", got, want)
	}
	if got, want := pm.Fundamental(), 2*math.Pi/100; math.Abs(got-want) > 1e-15 {
		t.Fatalf("Fundamental=%g want %g", got, want)
	}
}

func TestFrequencies(t *testing.T) {
	tests := []struct {
		n    int
		want []float64
	}{
		{4, []float64{0, 1, -2, -1}},
		{5, []float64{0, 1, 2, -2, -1}},
		{1, []float64{0}},
	}
	for _, tt := range tests {
		got := Frequencies(tt.n, 2*math.Pi)
		for i := range tt.want {
			if math.Abs(got[i]-tt.want[i]) > 1e-12 {
				t.Fatalf("n=%d: got %v want %v", tt.n, got, tt.want)
			}
		}
	}
}

func TestPaintConservesMass(t *testing.T) {
	pm, err := New([3]float64{10, 10, 10}, 8, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	pos := [][3]float64{{0.3, 9.9, 5}, {-1, 4, 12}, {5, 5, 5}}
	weight := []float64{1, 2, 0.5}

	field, err := pm.Paint(pos, weight, [3]float64{})
	if err != nil {
		t.Fatalf("Paint: %v", err)
	}
	sum, err := field.Sum()
	if err != nil {
		t.Fatalf("Sum: %v", err)
	}
	if math.Abs(sum-3.5) > 1e-5 {
		t.Fatalf("painted mass=%g want 3.5", sum)
	}
}

func TestPaintOnGridPoint(t *testing.T) {
	pm, err := New([3]float64{8, 8, 8}, 8, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	// Offset shifts the particle exactly onto grid point (2, 3, 4).
	field, err := pm.Paint([][3]float64{{12, 13, 14}}, nil, [3]float64{10, 10, 10})
	if err != nil {
		t.Fatalf("Paint: %v", err)
	}
	idx := (2*8+3)*8 + 4
	if field.Value[idx] != 1 {
		t.Fatalf("value at grid point = %g want 1", field.Value[idx])
	}
}

func TestDepositLengthMismatch(t *testing.T) {
	pm, _ := New([3]float64{1, 1, 1}, 4, nil)
	if err := pm.Deposit(make([]float64, 3), nil, nil, [3]float64{}); !errors.Is(err, ErrLengthMismatch) {
		t.Fatalf("expected ErrLengthMismatch, got %v", err)
	}
	if err := pm.Deposit(pm.NewAccumulator(), make([][3]float64, 2), []float64{1}, [3]float64{}); !errors.Is(err, ErrLengthMismatch) {
		t.Fatalf("expected ErrLengthMismatch for weights, got %v", err)
	}
}

func TestR2CConstant(t *testing.T) {
	const n = 8
	pm, _ := New([3]float64{1, 1, 1}, n, nil)
	f := pm.NewRealField()
	for i := range f.Value {
		f.Value[i] = 2
	}
	out, err := f.R2C()
	if err != nil {
		t.Fatalf("R2C: %v", err)
	}
	if got := complex128(out.Value[0]); cmplx.Abs(got-2*n*n*n) > 1e-3 {
		t.Fatalf("DC=%v want %d", got, 2*n*n*n)
	}
	for i := 1; i < len(out.Value); i++ {
		if cmplx.Abs(complex128(out.Value[i])) > 1e-3 {
			t.Fatalf("mode %d = %v, want 0", i, out.Value[i])
		}
	}
}

func TestR2CPlaneWave(t *testing.T) {
	const n = 8
	pm, _ := New([3]float64{1, 1, 1}, n, nil)
	f := pm.NewRealField()
	for x := range n {
		for y := range n {
			for z := range n {
				f.Value[(x*n+y)*n+z] = float32(math.Cos(2 * math.Pi * float64(x) / n))
			}
		}
	}
	out, err := f.R2C()
	if err != nil {
		t.Fatalf("R2C: %v", err)
	}
	half := float64(n*n*n) / 2
	for _, kx := range []int{1, n - 1} {
		got := complex128(out.Value[kx*n*n])
		if cmplx.Abs(got-complex(half, 0)) > 1e-3 {
			t.Fatalf("mode kx=%d: %v want %g", kx, got, half)
		}
	}
	if cmplx.Abs(complex128(out.Value[2*n*n])) > 1e-3 {
		t.Fatalf("unexpected power at kx=2: %v", out.Value[2*n*n])
	}
}

// A multi-rank transform must reproduce the single-rank one exactly up to
// single-precision rounding.
func TestR2CDistributedMatchesSerial(t *testing.T) {
	const n = 8
	box := [3]float64{50, 60, 70}
	pos := testutil.ScatteredPositions(64, box)

	serialMesh, _ := New(box, n, nil)
	serialField, err := serialMesh.Paint(pos, nil, [3]float64{})
	if err != nil {
		t.Fatalf("Paint: %v", err)
	}
	serial, err := serialField.R2C()
	if err != nil {
		t.Fatalf("R2C: %v", err)
	}

	for _, size := range []int{2, 3, 5} {
		slabs := make([][]complex64, size)
		err := comm.Run(context.Background(), size, func(_ context.Context, c comm.Communicator) error {
			pm, err := New(box, n, c)
			if err != nil {
				return err
			}
			lo, hi := comm.Split(len(pos), c.Rank(), c.Size())
			field, err := pm.Paint(pos[lo:hi], nil, [3]float64{})
			if err != nil {
				return err
			}
			out, err := field.R2C()
			if err != nil {
				return err
			}
			slabs[c.Rank()] = out.Value
			return nil
		})
		if err != nil {
			t.Fatalf("size %d: %v", size, err)
		}

		testutil.RequireComplexNearlyEqual(t, testutil.Concat(slabs), serial.Value, 1e-4)
	}
}

func TestCompensateCICKeepsDC(t *testing.T) {
	const n = 4
	pm, _ := New([3]float64{1, 1, 1}, n, nil)
	f := pm.NewComplexField()
	for i := range f.Value {
		f.Value[i] = 1
	}
	f.CompensateCIC()
	if f.Value[0] != 1 {
		t.Fatalf("DC changed to %v", f.Value[0])
	}
	// Highest |k| corner is amplified the most: 1/sinc^6(pi/2).
	corner := ((n/2)*n+n/2)*n + n/2
	want := math.Pow(math.Pi/2, 6)
	if got := real(complex128(f.Value[corner])); math.Abs(got-want)/want > 1e-5 {
		t.Fatalf("corner=%g want %g", got, want)
	}
}
