package catalog

import (
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSpecErrors(t *testing.T) {
	tests := []struct {
		name string
		spec string
		want error
	}{
		{"empty", "", ErrEmptySpec},
		{"blank", "   ", ErrEmptySpec},
		{"single component", "uniform:n=10,box=1", ErrComponentCount},
		{"three components", "uniform:n=1,box=1::uniform:n=1,box=1::uniform:n=1,box=1", ErrComponentCount},
		{"empty randoms", "uniform:n=10,box=1::", ErrEmptySpec},
		{"unknown source", "nosuch::uniform:n=10,box=1", ErrUnknownSource},
		{"non numeric", "uniform:n=abc,box=1::uniform:n=10,box=1", ErrBadArgument},
		{"unsupported key", "uniform:n=10,box=1,bogus=1::uniform:n=10,box=1", ErrBadArgument},
		{"not key value", "uniform:n::uniform:n=10,box=1", ErrBadArgument},
		{"missing path", "plaintext::uniform:n=10,box=1", ErrBadArgument},
		{"bad box", "uniform:n=10,box=-1::uniform:n=10,box=1", ErrBadArgument},
		{"bad identifier", "sqlite:path=x.db,table=a;b::uniform:n=10,box=1", ErrBadArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSpec(tt.spec)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v, want %v", err, tt.want)
		})
	}
}

func TestParseComponent(t *testing.T) {
	c, err := ParseComponent(" Uniform : n=10 , box=5 ")
	require.NoError(t, err)
	assert.Equal(t, "uniform", c.Name)
	assert.Equal(t, Args{"n": "10", "box": "5"}, c.Args)
	assert.Equal(t, "uniform:box=5,n=10", c.String())

	_, err = ParseComponent("uniform:n=1,n=2")
	assert.ErrorIs(t, err, ErrBadArgument)
}

func TestParseListMatchesSpec(t *testing.T) {
	list := []string{"uniform:n=10,box=5,seed=1", "uniform:n=20,box=5,seed=2"}
	a, err := ParseList(list)
	require.NoError(t, err)
	b, err := ParseSpec(FromList(list))
	require.NoError(t, err)
	assert.Equal(t, a.String(), b.String())
}

func TestLoadDerivesPaddedBox(t *testing.T) {
	cat, err := ParseSpec("uniform:n=500,box=100,offset=50,seed=1::uniform:n=2000,box=100,offset=50,seed=2")
	require.NoError(t, err)
	require.NoError(t, cat.Load())

	lo, hi := cat.Randoms().Bounds()
	dlo, dhi := cat.Data().Bounds()
	for d := range 3 {
		extent := max(hi[d], dhi[d]) - min(lo[d], dlo[d])
		assert.InDelta(t, extent*(1+DefaultBoxPad), cat.BoxSize()[d], 1e-9)
		assert.LessOrEqual(t, cat.Origin()[d], min(lo[d], dlo[d]))
		assert.Greater(t, cat.Origin()[d], 49.0-0.02*100)
	}

	// Unit weights over the box volume.
	box := cat.BoxSize()
	assert.InDelta(t, 500/(box[0]*box[1]*box[2]), cat.MeanNbar(), 1e-15)
}

func TestLoadFixedBox(t *testing.T) {
	cat, err := ParseSpec("uniform:n=100,box=10::uniform:n=400,box=10", WithBoxSize([3]float64{20, 20, 20}))
	require.NoError(t, err)
	require.NoError(t, cat.Load())
	assert.Equal(t, [3]float64{20, 20, 20}, cat.BoxSize())

	small, err := ParseSpec("uniform:n=100,box=10::uniform:n=400,box=10", WithBoxSize([3]float64{5, 5, 5}))
	require.NoError(t, err)
	assert.ErrorIs(t, small.Load(), ErrBadArgument)
}

func TestLoadIsOnce(t *testing.T) {
	cat, err := ParseSpec("uniform:n=10,box=1::uniform:n=10,box=1")
	require.NoError(t, err)
	require.NoError(t, cat.Load())
	first := cat.Data()
	require.NoError(t, cat.Load())
	assert.Same(t, first, cat.Data())
}

func TestUniformDeterministic(t *testing.T) {
	a, err := newUniform(Args{"n": "16", "box": "3", "seed": "7"})
	require.NoError(t, err)
	b, err := newUniform(Args{"n": "16", "box": "3", "seed": "7"})
	require.NoError(t, err)

	pa, err := a.Read()
	require.NoError(t, err)
	pb, err := b.Read()
	require.NoError(t, err)
	assert.Equal(t, pa.Position, pb.Position)
	for _, pos := range pa.Position {
		for _, v := range pos {
			assert.True(t, v >= 0 && v < 3, "position %v outside box", v)
		}
	}
}

func TestPlaintextSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "galaxies.txt")
	content := "# x y z w\n1 2 3 0.5\n\n4 5 6 1.5\n# trailing comment\n7 8 9 2\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	src, err := Sources.Build(Component{Name: "plaintext", Args: Args{"path": path, "weight": "3"}})
	require.NoError(t, err)
	p, err := src.Read()
	require.NoError(t, err)

	assert.Equal(t, [][3]float64{{1, 2, 3}, {4, 5, 6}, {7, 8, 9}}, p.Position)
	assert.Equal(t, []float64{0.5, 1.5, 2}, p.Weight)
	assert.Nil(t, p.Nbar)
}

func TestPlaintextShortRow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.txt")
	require.NoError(t, os.WriteFile(path, []byte("1 2\n"), 0o644))

	src, err := newPlaintext(Args{"path": path})
	require.NoError(t, err)
	_, err = src.Read()
	assert.Error(t, err)
}

func TestSQLiteSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "randoms.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE randoms (px REAL, py REAL, pz REAL, nz REAL)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO randoms VALUES (1, 2, 3, 0.1), (4, 5, 6, 0.2)`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	cat, err := ParseSpec("uniform:n=10,box=5::sqlite:path=" + path + ",table=randoms,x=px,y=py,z=pz,nbar=nz")
	require.NoError(t, err)
	require.NoError(t, cat.Load())

	r := cat.Randoms()
	assert.Equal(t, [][3]float64{{1, 2, 3}, {4, 5, 6}}, r.Position)
	assert.Equal(t, []float64{0.1, 0.2}, r.Nbar)
	assert.Nil(t, r.Weight)
}

func TestPartition(t *testing.T) {
	p := &Particles{
		Position: make([][3]float64, 10),
		Weight:   []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9},
	}
	total := 0
	for r := range 3 {
		share := p.Partition(r, 3)
		total += share.Len()
		assert.Equal(t, share.Len(), len(share.Weight))
	}
	assert.Equal(t, 10, total)
	assert.Equal(t, []float64{4, 5, 6}, p.Partition(1, 3).Weight)

	var empty *Particles
	assert.Equal(t, 0, empty.Partition(0, 2).Len())
}

func TestRegistryNamesAndDuplicates(t *testing.T) {
	assert.Equal(t, []string{"plaintext", "sqlite", "uniform"}, Sources.Names())

	r := NewRegistry()
	require.NoError(t, r.Register("x", newUniform))
	assert.Error(t, r.Register("x", newUniform))
	assert.Error(t, r.Register("", newUniform))
	assert.Nil(t, r.Lookup("y"))
}
