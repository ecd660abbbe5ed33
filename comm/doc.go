// Package comm provides the communicator that measurement code runs on.
//
// A measurement is executed SPMD style: a fixed group of ranks runs the same
// sequence of calls, and every collective operation (gather, reduction,
// barrier) blocks until all ranks of the group have entered it. Ranks are
// goroutines of the current process; the [Communicator] interface is the only
// thing the mesh, estimator and binning packages depend on.
//
// # Usage
//
//	err := comm.Run(ctx, 4, func(ctx context.Context, c comm.Communicator) error {
//	    local := partialSums()
//	    if err := comm.AllReduceSum(c, local); err != nil {
//	        return err
//	    }
//	    if c.IsLeader() {
//	        // only rank 0 writes
//	    }
//	    return nil
//	})
//
// A rank that returns an error aborts the group: peers blocked in a
// collective return [ErrAborted]. There are no timeouts.
package comm
