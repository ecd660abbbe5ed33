// Package config loads optional TOML run files for the bianchipower command.
// Command-line flags override file values.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/cwbudde/algo-survey/storage"
)

// Run holds measurement parameters.
type Run struct {
	// Ranks is the number of cooperating workers.
	Ranks int `toml:"ranks"`
	// BoxPad is the fractional padding of the catalog bounding box.
	BoxPad float64 `toml:"box_pad"`
	// DK is the k-bin width; zero selects the fundamental mode.
	DK float64 `toml:"dk"`
	// KMin is the lower edge of the first k bin.
	KMin float64 `toml:"kmin"`
}

// Output holds result destinations.
type Output struct {
	Path   string `toml:"path"`
	Format string `toml:"format"`
	// Plot is an optional image path.
	Plot string `toml:"plot"`
}

// Logging holds logger settings.
type Logging struct {
	Format string `toml:"format"`
	Quiet  bool   `toml:"quiet"`
}

// Config is the complete run file.
type Config struct {
	Run     Run     `toml:"run"`
	Output  Output  `toml:"output"`
	Logging Logging `toml:"logging"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Run:     Run{Ranks: 1, BoxPad: 0.02},
		Output:  Output{Path: "poles.dat", Format: "1d"},
		Logging: Logging{Format: "console"},
	}
}

// Load parses the run file at path on top of Default. An empty path returns
// the defaults. Unknown keys are rejected.
func Load(path string) (*Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) == "" {
		return &cfg, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	dec := toml.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return nil, fmt.Errorf("parse config %s: %s", path, strict.String())
		}
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Encode renders cfg as TOML.
func Encode(cfg Config) ([]byte, error) {
	return toml.Marshal(cfg)
}

func (c *Config) normalize() {
	c.Output.Format = strings.ToLower(strings.TrimSpace(c.Output.Format))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if c.Run.Ranks < 1 {
		return fmt.Errorf("run.ranks must be >= 1, got %d", c.Run.Ranks)
	}
	if c.Run.BoxPad < 0 {
		return fmt.Errorf("run.box_pad must be >= 0, got %g", c.Run.BoxPad)
	}
	if c.Run.DK < 0 {
		return fmt.Errorf("run.dk must be >= 0, got %g", c.Run.DK)
	}
	if c.Run.KMin < 0 {
		return fmt.Errorf("run.kmin must be >= 0, got %g", c.Run.KMin)
	}
	if c.Output.Path == "" {
		return errors.New("output.path must be set")
	}
	if !slices.Contains(storage.Formats(), c.Output.Format) {
		return fmt.Errorf("output.format %q is not one of %v", c.Output.Format, storage.Formats())
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format %q is not console or json", c.Logging.Format)
	}
	return nil
}
