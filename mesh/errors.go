package mesh

import "errors"

var (
	// ErrInvalidNmesh is returned for a non-positive mesh resolution.
	ErrInvalidNmesh = errors.New("mesh: Nmesh must be > 0")
	// ErrInvalidBox is returned for non-positive box edges.
	ErrInvalidBox = errors.New("mesh: box size must be > 0")
	// ErrLengthMismatch is returned when buffers do not match the mesh.
	ErrLengthMismatch = errors.New("mesh: length mismatch")
)
