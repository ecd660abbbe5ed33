package storage

import (
	"database/sql"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/gofrs/flock"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() ([]float64, []string, [][]float64, Meta) {
	edges := []float64{0, 0.1, 0.2, 0.3}
	cols := []string{"k", "power_0", "power_2", "modes"}
	data := [][]float64{
		{0.05, 0.15, math.NaN()},
		{1200.5, -3.25e-3, math.NaN()},
		{10, 20, math.NaN()},
		{6, 18, 0},
	}
	meta := Meta{
		"alpha":  0.25,
		"Nmesh":  64,
		"run_id": "3f2a run",
		"quiet":  true,
	}
	return edges, cols, data, meta
}

func TestNewUnknownFormat(t *testing.T) {
	_, err := New("hdf5", "out.h5")
	require.ErrorIs(t, err, ErrUnknownFormat)
	assert.Equal(t, []string{"1d", "json", "png", "sqlite"}, Formats())
}

func TestTextRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "poles.dat")
	edges, cols, data, meta := sample()

	s, err := New("1d", path)
	require.NoError(t, err)
	require.NoError(t, s.Write(edges, cols, data, meta))

	m, err := Read1D(path)
	require.NoError(t, err)
	if diff := cmp.Diff(cols, m.Columns); diff != "" {
		t.Fatalf("columns mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(edges, m.Edges); diff != "" {
		t.Fatalf("edges mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(data, m.Data, cmpopts.EquateNaNs()); diff != "" {
		t.Fatalf("data mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(meta, m.Meta); diff != "" {
		t.Fatalf("meta mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []float64{6, 18, 0}, m.Column("modes"))
	assert.Nil(t, m.Column("power_4"))
}

func TestTextRejectsBadShape(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.dat")
	s := &Text{Path: path}

	err := s.Write(nil, []string{"k", "modes"}, [][]float64{{1, 2}}, nil)
	require.ErrorIs(t, err, ErrShape)

	err = s.Write(nil, []string{"k", "modes"}, [][]float64{{1, 2}, {3}}, nil)
	require.ErrorIs(t, err, ErrShape)

	err = s.Write(nil, []string{"k", "power 0"}, [][]float64{{1}, {2}}, nil)
	require.ErrorIs(t, err, ErrShape)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "no file should be created on shape errors")
}

func TestRead1DErrors(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"missing.dat":  "",
		"short.dat":    "# k modes\n1 2\n# edges 3\n0\n1\n",
		"fields.dat":   "# k modes\n1 2 3\n",
		"metatype.dat": "# k\n1\n# edges 2\n0\n1\n# metadata 1\nx complex 1+2i\n",
	}
	for name, content := range cases {
		path := filepath.Join(dir, name)
		if content != "" {
			require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		}
		_, err := Read1D(path)
		assert.Error(t, err, name)
	}
}

func TestWriteFailsWhileLocked(t *testing.T) {
	path := filepath.Join(t.TempDir(), "poles.dat")
	held := flock.New(path + ".lock")
	ok, err := held.TryLock()
	require.NoError(t, err)
	require.True(t, ok)
	defer func() { _ = held.Unlock() }()

	edges, cols, data, meta := sample()
	err = (&Text{Path: path}).Write(edges, cols, data, meta)
	require.ErrorIs(t, err, ErrLocked)
}

func TestJSONWritesNullForNaN(t *testing.T) {
	path := filepath.Join(t.TempDir(), "poles.json")
	edges, cols, data, meta := sample()
	require.NoError(t, (&JSON{Path: path}).Write(edges, cols, data, meta))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc struct {
		Columns []string              `json:"columns"`
		Data    map[string][]*float64 `json:"data"`
		Edges   []float64             `json:"edges"`
		Meta    map[string]any        `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, cols, doc.Columns)
	assert.Equal(t, edges, doc.Edges)
	require.Len(t, doc.Data["power_0"], 3)
	assert.Nil(t, doc.Data["power_0"][2])
	assert.Equal(t, 1200.5, *doc.Data["power_0"][0])
	assert.Equal(t, "3f2a run", doc.Meta["run_id"])
}

func TestSQLiteWritesTables(t *testing.T) {
	path := filepath.Join(t.TempDir(), "poles.db")
	edges, cols, data, meta := sample()
	s := &SQLite{Path: path}
	require.NoError(t, s.Write(edges, cols, data, meta))
	// Writing twice replaces the tables.
	require.NoError(t, s.Write(edges, cols, data, meta))

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM measurement`).Scan(&n))
	assert.Equal(t, 3, n)
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM edges`).Scan(&n))
	assert.Equal(t, 4, n)

	var p sql.NullFloat64
	require.NoError(t, db.QueryRow(`SELECT power_0 FROM measurement WHERE idx = 2`).Scan(&p))
	assert.False(t, p.Valid)

	var typ, value string
	require.NoError(t, db.QueryRow(`SELECT type, value FROM meta WHERE key = 'Nmesh'`).Scan(&typ, &value))
	assert.Equal(t, "int", typ)
	assert.Equal(t, "64", value)
}

func TestSQLiteRejectsColumnNames(t *testing.T) {
	s := &SQLite{Path: filepath.Join(t.TempDir(), "x.db")}
	err := s.Write(nil, []string{"k", "drop table"}, [][]float64{{1}, {2}}, nil)
	require.ErrorIs(t, err, ErrShape)
}

func TestPlotWritesImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "poles.png")
	edges, cols, data, meta := sample()
	require.NoError(t, (&Plot{Path: path}).Write(edges, cols, data, meta))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	err = (&Plot{Path: path}).Write(nil, []string{"k", "modes"}, [][]float64{{1}, {2}}, nil)
	require.ErrorIs(t, err, ErrShape)
}
