package catalog

import "errors"

var (
	// ErrEmptySpec is returned for an empty catalog spec or component.
	ErrEmptySpec = errors.New("catalog: empty spec")
	// ErrComponentCount is returned when a spec does not name exactly a data
	// and a randoms component.
	ErrComponentCount = errors.New("catalog: spec needs a data and a randoms component")
	// ErrUnknownSource is returned when a component names no registered source.
	ErrUnknownSource = errors.New("catalog: unknown source")
	// ErrBadArgument is returned for malformed or unsupported component arguments.
	ErrBadArgument = errors.New("catalog: bad argument")
	// ErrEmptySample is returned when a source yields no particles.
	ErrEmptySample = errors.New("catalog: sample has no particles")
)
