package storage

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
)

// JSON writes a measurement as one JSON document. NaN values become null.
type JSON struct {
	Path string
}

type jsonDocument struct {
	Columns []string              `json:"columns"`
	Data    map[string][]*float64 `json:"data"`
	Edges   []float64             `json:"edges"`
	Meta    Meta                  `json:"meta"`
}

// Write implements Storage.
func (j *JSON) Write(edges []float64, cols []string, data [][]float64, meta Meta) error {
	if _, err := checkShape(cols, data); err != nil {
		return err
	}
	doc := jsonDocument{
		Columns: cols,
		Data:    make(map[string][]*float64, len(cols)),
		Edges:   edges,
		Meta:    meta,
	}
	for i, name := range cols {
		doc.Data[name] = nullable(data[i])
	}
	for k, v := range meta {
		if f, ok := v.(float64); ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
			return fmt.Errorf("storage: metadata %q is not finite", k)
		}
	}

	buf, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("storage: encode json: %w", err)
	}
	return withLock(j.Path, func() error {
		if err := os.WriteFile(j.Path, append(buf, '\n'), 0o644); err != nil {
			return fmt.Errorf("storage: %w", err)
		}
		return nil
	})
}

func nullable(values []float64) []*float64 {
	out := make([]*float64, len(values))
	for i := range values {
		if !math.IsNaN(values[i]) {
			out[i] = &values[i]
		}
	}
	return out
}
