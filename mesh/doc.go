// Package mesh provides a slab-decomposed particle mesh: cloud-in-cell mass
// assignment of particles onto a regular Nmesh³ grid and the distributed 3D
// forward FFT of the painted field.
//
// The package does not implement FFT itself. Each axis is transformed with a
// one-dimensional algo-fft plan; the distribution over ranks uses the
// collectives of package comm.
//
// # Layout
//
// Real-space fields are split along x: rank r owns the planes [lo, hi) given
// by [ParticleMesh.Slab], stored row-major as [x-lo][y][z] in float32.
// Fourier-space fields use the same split along kx and are stored as
// complex64 in [kx-lo][ky][kz] order. Wavenumbers follow the usual FFT
// frequency ordering, see [ParticleMesh.K].
//
// The forward transform is unnormalized: a field holding the constant c
// transforms to c·Nmesh³ at k = 0.
package mesh
