package storage

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
)

// Text writes the "1d" plain-text format:
//
//	# k power_0 modes
//	<one row per bin>
//	# edges <n>
//	<one edge per line>
//	# metadata <m>
//	<key> <type> <value>
type Text struct {
	Path string
}

// Write implements Storage.
func (t *Text) Write(edges []float64, cols []string, data [][]float64, meta Meta) error {
	if _, err := checkShape(cols, data); err != nil {
		return err
	}
	for _, c := range cols {
		if c == "" || strings.ContainsAny(c, " \t\n") {
			return fmt.Errorf("%w: column name %q", ErrShape, c)
		}
	}
	return withLock(t.Path, func() error {
		f, err := os.Create(t.Path)
		if err != nil {
			return fmt.Errorf("storage: %w", err)
		}
		w := bufio.NewWriter(f)
		if err := writeText(w, edges, cols, data, meta); err != nil {
			f.Close()
			return err
		}
		if err := w.Flush(); err != nil {
			f.Close()
			return fmt.Errorf("storage: write %s: %w", t.Path, err)
		}
		return f.Close()
	})
}

func writeText(w io.Writer, edges []float64, cols []string, data [][]float64, meta Meta) error {
	fmt.Fprintf(w, "# %s\n", strings.Join(cols, " "))
	fields := make([]string, len(cols))
	for r := range data[0] {
		for c := range data {
			fields[c] = formatFloat(data[c][r])
		}
		fmt.Fprintln(w, strings.Join(fields, " "))
	}

	fmt.Fprintf(w, "# edges %d\n", len(edges))
	for _, e := range edges {
		fmt.Fprintln(w, formatFloat(e))
	}

	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	if _, err := fmt.Fprintf(w, "# metadata %d\n", len(keys)); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	for _, k := range keys {
		typ, value, err := encodeMeta(meta[k])
		if err != nil {
			return fmt.Errorf("storage: metadata %q: %w", k, err)
		}
		if strings.ContainsAny(k, " \t\n") {
			return fmt.Errorf("storage: metadata key %q contains whitespace", k)
		}
		if _, err := fmt.Fprintf(w, "%s %s %s\n", k, typ, value); err != nil {
			return fmt.Errorf("storage: %w", err)
		}
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'e', 16, 64)
}

func encodeMeta(v any) (typ, value string, err error) {
	switch x := v.(type) {
	case float64:
		return "float", strconv.FormatFloat(x, 'g', -1, 64), nil
	case float32:
		return "float", strconv.FormatFloat(float64(x), 'g', -1, 32), nil
	case int:
		return "int", strconv.Itoa(x), nil
	case int64:
		return "int", strconv.FormatInt(x, 10), nil
	case bool:
		return "bool", strconv.FormatBool(x), nil
	case string:
		if strings.Contains(x, "\n") {
			return "", "", fmt.Errorf("string value contains a newline")
		}
		return "str", x, nil
	case fmt.Stringer:
		return encodeMeta(x.String())
	default:
		return "", "", fmt.Errorf("unsupported type %T", v)
	}
}

func decodeMeta(typ, value string) (any, error) {
	switch typ {
	case "float":
		return strconv.ParseFloat(value, 64)
	case "int":
		return strconv.Atoi(value)
	case "bool":
		return strconv.ParseBool(value)
	case "str":
		return value, nil
	default:
		return nil, fmt.Errorf("unknown metadata type %q", typ)
	}
}

// Measurement is a measurement read back from storage.
type Measurement struct {
	Edges   []float64
	Columns []string
	Data    [][]float64
	Meta    Meta
}

// Column returns the named column, or nil.
func (m *Measurement) Column(name string) []float64 {
	if i := slices.Index(m.Columns, name); i >= 0 {
		return m.Data[i]
	}
	return nil
}

// Read1D reads a file in the "1d" format.
func Read1D(path string) (*Measurement, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}
	defer f.Close()
	m, err := parseText(f)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", path, err)
	}
	return m, nil
}

func parseText(r io.Reader) (*Measurement, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	m := &Measurement{Meta: Meta{}}
	section := "header"
	remaining := 0
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}

		if rest, ok := strings.CutPrefix(text, "#"); ok {
			fields := strings.Fields(rest)
			switch {
			case section == "header":
				if len(fields) == 0 {
					return nil, fmt.Errorf("line %d: empty column header", line)
				}
				m.Columns = fields
				m.Data = make([][]float64, len(fields))
				section = "rows"
			case len(fields) == 2 && (fields[0] == "edges" || fields[0] == "metadata"):
				n, err := strconv.Atoi(fields[1])
				if err != nil {
					return nil, fmt.Errorf("line %d: %w", line, err)
				}
				if remaining != 0 {
					return nil, fmt.Errorf("line %d: %s section is short by %d lines", line, section, remaining)
				}
				section, remaining = fields[0], n
			default:
				return nil, fmt.Errorf("line %d: unexpected header %q", line, text)
			}
			continue
		}

		switch section {
		case "rows":
			fields := strings.Fields(text)
			if len(fields) != len(m.Columns) {
				return nil, fmt.Errorf("line %d: %d fields for %d columns", line, len(fields), len(m.Columns))
			}
			for c, s := range fields {
				v, err := strconv.ParseFloat(s, 64)
				if err != nil {
					return nil, fmt.Errorf("line %d: %w", line, err)
				}
				m.Data[c] = append(m.Data[c], v)
			}
		case "edges":
			if remaining == 0 {
				return nil, fmt.Errorf("line %d: too many edges", line)
			}
			v, err := strconv.ParseFloat(text, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			m.Edges = append(m.Edges, v)
			remaining--
		case "metadata":
			if remaining == 0 {
				return nil, fmt.Errorf("line %d: too many metadata entries", line)
			}
			parts := strings.SplitN(text, " ", 3)
			if len(parts) < 2 {
				return nil, fmt.Errorf("line %d: malformed metadata %q", line, text)
			}
			value := ""
			if len(parts) == 3 {
				value = parts[2]
			}
			v, err := decodeMeta(parts[1], value)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			m.Meta[parts[0]] = v
			remaining--
		default:
			return nil, fmt.Errorf("line %d: data before column header", line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if m.Columns == nil {
		return nil, fmt.Errorf("missing column header")
	}
	if remaining != 0 {
		return nil, fmt.Errorf("%s section is short by %d lines", section, remaining)
	}
	return m, nil
}
