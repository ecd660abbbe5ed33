package catalog

import (
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	_ "modernc.org/sqlite"
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SQLite reads particles from a table of a SQLite database. Column names
// for weight and nbar are optional.
type SQLite struct {
	Path   string
	Table  string
	Cols   [3]string
	Weight string
	Nbar   string
}

func newSQLite(args Args) (Source, error) {
	if err := args.only("sqlite", "path", "table", "x", "y", "z", "weight", "nbar"); err != nil {
		return nil, err
	}
	path, err := args.Require("path")
	if err != nil {
		return nil, err
	}
	s := &SQLite{
		Path:   path,
		Table:  args.String("table", "particles"),
		Cols:   [3]string{args.String("x", "x"), args.String("y", "y"), args.String("z", "z")},
		Weight: args.String("weight", ""),
		Nbar:   args.String("nbar", ""),
	}
	for _, ident := range s.columns() {
		if !identRe.MatchString(ident) {
			return nil, fmt.Errorf("%w: invalid identifier %q", ErrBadArgument, ident)
		}
	}
	if !identRe.MatchString(s.Table) {
		return nil, fmt.Errorf("%w: invalid table name %q", ErrBadArgument, s.Table)
	}
	return s, nil
}

func (s *SQLite) columns() []string {
	cols := []string{s.Cols[0], s.Cols[1], s.Cols[2]}
	if s.Weight != "" {
		cols = append(cols, s.Weight)
	}
	if s.Nbar != "" {
		cols = append(cols, s.Nbar)
	}
	return cols
}

// Name implements Source.
func (s *SQLite) Name() string {
	return fmt.Sprintf("sqlite:path=%s,table=%s", s.Path, s.Table)
}

// Read implements Source.
func (s *SQLite) Read() (*Particles, error) {
	db, err := sql.Open("sqlite", s.Path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.Path, err)
	}
	defer db.Close()

	cols := s.columns()
	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(cols, ", "), s.Table)
	rows, err := db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", s.Path, err)
	}
	defer rows.Close()

	p := &Particles{}
	vals := make([]float64, len(cols))
	dest := make([]any, len(cols))
	for i := range vals {
		dest[i] = &vals[i]
	}
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", s.Path, err)
		}
		p.Position = append(p.Position, [3]float64{vals[0], vals[1], vals[2]})
		next := 3
		if s.Weight != "" {
			p.Weight = append(p.Weight, vals[next])
			next++
		}
		if s.Nbar != "" {
			p.Nbar = append(p.Nbar, vals[next])
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", s.Path, err)
	}
	return p, nil
}
