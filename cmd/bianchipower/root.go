package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-survey/algorithm/bianchipower"
	"github.com/cwbudde/algo-survey/catalog"
	"github.com/cwbudde/algo-survey/internal/config"
)

type runFlags struct {
	configPath string
	dk         float64
	kmin       float64
	quiet      bool
	output     string
	format     string
	ranks      int
	logFormat  string
	plot       string
	boxPad     float64
}

func newRootCommand() *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "bianchipower [flags] <input> <Nmesh> <poles>...",
		Short: "Measure power spectrum multipoles with the Bianchi FFT estimator",
		Long: `Measure the monopole, quadrupole and hexadecapole of a survey catalog.

<input> is a catalog spec "data::randoms" whose components are
name[:key=value,...] (see "bianchipower sources"). <Nmesh> is the mesh
resolution per axis and <poles> is a list drawn from 0, 2 and 4.`,
		Args:          cobra.MinimumNArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, flags)
			if err != nil {
				return err
			}
			params, err := buildParams(cmd, cfg, args)
			if err != nil {
				return err
			}
			alg, err := bianchipower.New(params)
			if err != nil {
				return err
			}
			return alg.Execute(cmd.Context(), cfg.Run.Ranks, cfg.Output.Path)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&flags.configPath, "config", "c", "", "TOML run file")
	f.Float64Var(&flags.dk, "dk", 0, "k-bin width (default: fundamental mode 2π/min(L))")
	f.Float64Var(&flags.kmin, "kmin", 0, "lower edge of the first k bin")
	f.BoolVarP(&flags.quiet, "quiet", "q", false, "only log errors")
	f.StringVarP(&flags.output, "output", "o", "", "output path (default poles.dat)")
	f.StringVar(&flags.format, "format", "", "output format: 1d, json, sqlite or png (default 1d)")
	f.IntVarP(&flags.ranks, "ranks", "n", 0, "number of cooperating workers (default 1)")
	f.StringVar(&flags.logFormat, "log-format", "", "log format: console or json")
	f.StringVar(&flags.plot, "plot", "", "also render the multipoles to this image")
	f.Float64Var(&flags.boxPad, "box-pad", 0, "fractional padding of the catalog box (default 0.02)")
	f.SetInterspersed(true)

	cmd.AddCommand(newShowCommand(), newSourcesCommand(), newConfigCommand())
	return cmd
}

// resolveConfig loads the run file and applies explicitly set flags on top.
func resolveConfig(cmd *cobra.Command, flags runFlags) (*config.Config, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, err
	}
	f := cmd.Flags()
	if f.Changed("dk") {
		cfg.Run.DK = flags.dk
	}
	if f.Changed("kmin") {
		cfg.Run.KMin = flags.kmin
	}
	if f.Changed("quiet") {
		cfg.Logging.Quiet = flags.quiet
	}
	if f.Changed("output") {
		cfg.Output.Path = flags.output
	}
	if f.Changed("format") {
		cfg.Output.Format = flags.format
	}
	if f.Changed("ranks") {
		cfg.Run.Ranks = flags.ranks
	}
	if f.Changed("log-format") {
		cfg.Logging.Format = flags.logFormat
	}
	if f.Changed("plot") {
		cfg.Output.Plot = flags.plot
	}
	if f.Changed("box-pad") {
		cfg.Run.BoxPad = flags.boxPad
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func buildParams(cmd *cobra.Command, cfg *config.Config, args []string) (bianchipower.Params, error) {
	cat, err := catalog.ParseSpec(args[0], catalog.WithBoxPad(cfg.Run.BoxPad))
	if err != nil {
		return bianchipower.Params{}, fmt.Errorf("input: %w", err)
	}
	nmesh, err := bianchipower.ParseNmesh(args[1])
	if err != nil {
		return bianchipower.Params{}, err
	}
	poles, err := bianchipower.ParsePoles(args[2:])
	if err != nil {
		return bianchipower.Params{}, err
	}
	return bianchipower.Params{
		Catalog:   cat,
		Nmesh:     nmesh,
		Poles:     poles,
		DK:        cfg.Run.DK,
		KMin:      cfg.Run.KMin,
		Quiet:     cfg.Logging.Quiet,
		LogFormat: cfg.Logging.Format,
		LogWriter: cmd.ErrOrStderr(),
		Format:    cfg.Output.Format,
		Plot:      cfg.Output.Plot,
	}, nil
}
