package storage

import (
	"database/sql"
	"fmt"
	"math"
	"regexp"
	"strings"

	_ "modernc.org/sqlite"
)

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SQLite writes a measurement into a database file, replacing the tables
// edges, measurement and meta. NaN values become NULL.
type SQLite struct {
	Path string
}

// Write implements Storage.
func (s *SQLite) Write(edges []float64, cols []string, data [][]float64, meta Meta) error {
	rows, err := checkShape(cols, data)
	if err != nil {
		return err
	}
	for _, c := range cols {
		if !identPattern.MatchString(c) {
			return fmt.Errorf("%w: column name %q is not an identifier", ErrShape, c)
		}
	}
	return withLock(s.Path, func() error {
		db, err := sql.Open("sqlite", s.Path)
		if err != nil {
			return fmt.Errorf("storage: open %s: %w", s.Path, err)
		}
		defer db.Close()

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("storage: begin: %w", err)
		}
		if err := writeTables(tx, edges, cols, data, rows, meta); err != nil {
			_ = tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("storage: commit: %w", err)
		}
		return nil
	})
}

func writeTables(tx *sql.Tx, edges []float64, cols []string, data [][]float64, rows int, meta Meta) error {
	defs := make([]string, len(cols))
	marks := make([]string, len(cols))
	for i, c := range cols {
		defs[i] = c + " REAL"
		marks[i] = "?"
	}
	stmts := []string{
		`DROP TABLE IF EXISTS edges`,
		`DROP TABLE IF EXISTS measurement`,
		`DROP TABLE IF EXISTS meta`,
		`CREATE TABLE edges (idx INTEGER PRIMARY KEY, value REAL NOT NULL)`,
		`CREATE TABLE measurement (idx INTEGER PRIMARY KEY, ` + strings.Join(defs, ", ") + `)`,
		`CREATE TABLE meta (key TEXT PRIMARY KEY, type TEXT NOT NULL, value TEXT NOT NULL)`,
	}
	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("storage: %s: %w", stmt, err)
		}
	}

	for i, e := range edges {
		if _, err := tx.Exec(`INSERT INTO edges (idx, value) VALUES (?, ?)`, i, e); err != nil {
			return fmt.Errorf("storage: insert edge: %w", err)
		}
	}

	insert := `INSERT INTO measurement (idx, ` + strings.Join(cols, ", ") + `) VALUES (?, ` + strings.Join(marks, ", ") + `)`
	args := make([]any, len(cols)+1)
	for r := range rows {
		args[0] = r
		for c := range cols {
			if v := data[c][r]; math.IsNaN(v) {
				args[c+1] = nil
			} else {
				args[c+1] = v
			}
		}
		if _, err := tx.Exec(insert, args...); err != nil {
			return fmt.Errorf("storage: insert row %d: %w", r, err)
		}
	}

	for k, v := range meta {
		typ, value, err := encodeMeta(v)
		if err != nil {
			return fmt.Errorf("storage: metadata %q: %w", k, err)
		}
		if _, err := tx.Exec(`INSERT INTO meta (key, type, value) VALUES (?, ?, ?)`, k, typ, value); err != nil {
			return fmt.Errorf("storage: insert metadata: %w", err)
		}
	}
	return nil
}
