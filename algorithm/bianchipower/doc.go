// Package bianchipower measures power spectrum multipoles of a survey
// catalog with the Bianchi FFT estimator and writes them as a 1D
// measurement.
//
// An [Algorithm] is built once from validated [Params] and then executed by
// every rank of a worker group: [Algorithm.Run] drives the collective mesh,
// estimator and binning steps, and [Algorithm.Save] writes the [Result] on the
// leader only.
//
//	a, err := bianchipower.New(params)
//	...
//	err = comm.Run(ctx, ranks, func(_ context.Context, c comm.Communicator) error {
//		res, err := a.Run(c)
//		if err != nil {
//			return err
//		}
//		return a.Save("poles.dat", res, c.IsLeader())
//	})
package bianchipower
