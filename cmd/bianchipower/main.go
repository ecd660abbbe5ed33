// Command bianchipower measures power spectrum multipoles of a survey
// catalog with the Bianchi FFT estimator.
//
// Usage:
//
//	bianchipower [flags] <input> <Nmesh> <poles>...
//
// The input is a "data::randoms" catalog spec; poles are 0, 2 and/or 4,
// given as separate arguments or a comma-separated list.
//
// Examples:
//
//	bianchipower "plaintext:path=galaxies.txt,weight=3::plaintext:path=randoms.txt,weight=3" 256 0 2 4
//	bianchipower -n 8 --dk 0.005 -o poles.dat "sqlite:path=survey.db,table=data::sqlite:path=survey.db,table=randoms" 128 0,2
//	bianchipower show poles.dat
//	bianchipower sources
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cmd := newRootCommand()
	if err := cmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		stop()
		os.Exit(1)
	}
}
