package catalog

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Plaintext reads whitespace-separated columns from a text file. Blank lines
// and lines starting with '#' are skipped. Column indexes are zero based; a
// negative Weight or Nbar index means the column is absent.
type Plaintext struct {
	Path   string
	Cols   [3]int
	Weight int
	Nbar   int
}

func newPlaintext(args Args) (Source, error) {
	if err := args.only("plaintext", "path", "x", "y", "z", "weight", "nbar"); err != nil {
		return nil, err
	}
	path, err := args.Require("path")
	if err != nil {
		return nil, err
	}

	pt := &Plaintext{Path: path}
	for d, key := range []string{"x", "y", "z"} {
		if pt.Cols[d], err = args.Int(key, d); err != nil {
			return nil, err
		}
		if pt.Cols[d] < 0 {
			return nil, fmt.Errorf("%w: column %s must be >= 0", ErrBadArgument, key)
		}
	}
	if pt.Weight, err = args.Int("weight", -1); err != nil {
		return nil, err
	}
	if pt.Nbar, err = args.Int("nbar", -1); err != nil {
		return nil, err
	}
	return pt, nil
}

// Name implements Source.
func (pt *Plaintext) Name() string {
	return fmt.Sprintf("plaintext:path=%s,x=%d,y=%d,z=%d,weight=%d,nbar=%d",
		pt.Path, pt.Cols[0], pt.Cols[1], pt.Cols[2], pt.Weight, pt.Nbar)
}

// Read implements Source.
func (pt *Plaintext) Read() (*Particles, error) {
	f, err := os.Open(pt.Path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", pt.Path, err)
	}
	defer f.Close()

	p := &Particles{}
	need := max(pt.Cols[0], pt.Cols[1], pt.Cols[2], pt.Weight, pt.Nbar) + 1

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) < need {
			return nil, fmt.Errorf("%s:%d: %d columns, need %d", pt.Path, line, len(fields), need)
		}

		var pos [3]float64
		for d, c := range pt.Cols {
			if pos[d], err = parseField(fields[c]); err != nil {
				return nil, fmt.Errorf("%s:%d: %w", pt.Path, line, err)
			}
		}
		p.Position = append(p.Position, pos)

		if pt.Weight >= 0 {
			w, err := parseField(fields[pt.Weight])
			if err != nil {
				return nil, fmt.Errorf("%s:%d: %w", pt.Path, line, err)
			}
			p.Weight = append(p.Weight, w)
		}
		if pt.Nbar >= 0 {
			nb, err := parseField(fields[pt.Nbar])
			if err != nil {
				return nil, fmt.Errorf("%s:%d: %w", pt.Path, line, err)
			}
			p.Nbar = append(p.Nbar, nb)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", pt.Path, err)
	}
	return p, nil
}

func parseField(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", ErrBadArgument, s)
	}
	return v, nil
}
