// Package poles computes Fourier-space power spectrum multipoles of a survey
// with the Bianchi et al. (2015) FFT estimator.
//
// The weighted overdensity F(r) = w(r)[n_g(r) - α n_s(r)] is painted on a
// mesh. With the line of sight r̂ taken from the observer at the survey
// origin, the multipole transforms are built from FFTs of F weighted by
// products of r̂ components:
//
//	A_0(k) = FFT[F]
//	A_2(k) = 3/2 Σ k̂_i k̂_j Q_ij(k) - 1/2 A_0(k),               Q_ij = FFT[r̂_i r̂_j F]
//	A_4(k) = 35/8 Σ k̂_i k̂_j k̂_k k̂_l Q_ijkl(k) - 30/8 Σ k̂_i k̂_j Q_ij(k) + 3/8 A_0(k)
//
// and P_ℓ(k) = (2ℓ+1) A_ℓ(k) A_0*(k) / I with I = α Σ_randoms n̄ w².
// The monopole has the shot noise (Σ_data w² + α² Σ_randoms w²) / I removed.
//
// [Compute] returns one Fourier field per requested order, in request order,
// distributed like the mesh. Binning is left to package basis.
package poles
