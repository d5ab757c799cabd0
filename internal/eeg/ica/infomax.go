package ica

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/neuro-data/spectra.report/internal/eeg"
	"github.com/neuro-data/spectra.report/internal/monitoring"
	"github.com/neuro-data/spectra.report/internal/eeg/segments"
)

// Options tunes the decomposition. The seed is an explicit input because
// infomax is initialisation-sensitive: it is logged and persisted with
// the pre-rejection checkpoint so a run can be reproduced.
type Options struct {
	Seed          int64
	MaxIterations int
	Convergence   float64 // Frobenius weight-change stop criterion
	RankTolerance float64 // relative singular-value cutoff for EstimateRank
}

const (
	initialLRateScale = 0.00065
	annealFactor      = 0.98
	weightBlowup      = 1e8
	minLRate          = 1e-10
	signSampleSize    = 6000
)

// Decompose runs the decomposition stage on a conditioned recording:
// numerical rank estimation over the clean (unmasked) samples, PCA
// reduction to that rank, then extended infomax ICA. Component
// activations are produced for every sample of the recording, masked
// ranges included, so reconstruction covers the full signal.
func Decompose(rec *eeg.Recording, opts Options) (*Decomposition, error) {
	n := rec.Samples()
	idx := segments.CleanIndices(rec.Segments, n)
	nch := rec.Channels()
	if len(idx) < 2*nch {
		return nil, &eeg.DataQualityError{Msg: fmt.Sprintf("only %d clean samples for %d channels; not enough training data", len(idx), nch)}
	}

	// Training matrix restricted to clean samples, per-channel centred.
	train := make([][]float64, nch)
	for ch := 0; ch < nch; ch++ {
		row := make([]float64, len(idx))
		for i, s := range idx {
			row[i] = rec.Data[ch][s]
		}
		m := stat.Mean(row, nil)
		for i := range row {
			row[i] -= m
		}
		train[ch] = row
	}

	rank, err := EstimateRank(train, opts.RankTolerance)
	if err != nil {
		return nil, err
	}
	if rank < 2 {
		return nil, &eeg.NumericalError{Op: "ica", Msg: fmt.Sprintf("estimated rank %d is too low to decompose", rank)}
	}

	monitoring.Logf("[ica] session=%s rank=%d seed=%d training_samples=%d", rec.SessionID, rank, opts.Seed, len(idx))

	white, err := whiteningMatrix(train, rank)
	if err != nil {
		return nil, err
	}

	// Whitened training data, rank x T.
	x := denseFromRows(train)
	var xw mat.Dense
	xw.Mul(white, x)

	w, err := extendedInfomax(&xw, rank, opts)
	if err != nil {
		return nil, err
	}

	// Unmixing maps channels to sources through the whitening transform.
	var unmix mat.Dense
	unmix.Mul(w, white)

	mixing, err := pseudoInverse(&unmix)
	if err != nil {
		return nil, err
	}

	// Activations over the full recording, masked samples included.
	full := denseFromRows(rec.Data)
	var act mat.Dense
	act.Mul(&unmix, full)

	return &Decomposition{
		Rank:        rank,
		Seed:        opts.Seed,
		Mixing:      rowsFromDense(mixing),
		Unmixing:    rowsFromDense(&unmix),
		Activations: rowsFromDense(&act),
	}, nil
}

// whiteningMatrix computes the rank-reduced PCA whitening transform
// (rank x channels) from the SVD of the centred training matrix.
func whiteningMatrix(train [][]float64, rank int) (*mat.Dense, error) {
	x := denseFromRows(train)
	_, t := x.Dims()

	var svd mat.SVD
	if ok := svd.Factorize(x, mat.SVDThin); !ok {
		return nil, &eeg.NumericalError{Op: "ica", Msg: "SVD of training matrix failed"}
	}
	var u mat.Dense
	svd.UTo(&u)
	sv := svd.Values(nil)

	scale := math.Sqrt(float64(t - 1))
	white := mat.NewDense(rank, len(train), nil)
	for i := 0; i < rank; i++ {
		if sv[i] == 0 {
			return nil, &eeg.NumericalError{Op: "ica", Msg: fmt.Sprintf("zero singular value at index %d within estimated rank", i)}
		}
		for j := 0; j < len(train); j++ {
			white.Set(i, j, scale*u.At(j, i)/sv[i])
		}
	}
	return white, nil
}

// extendedInfomax iterates the natural-gradient extended infomax update
// over random sample blocks until the weight change falls below the
// convergence criterion. Sub/super-gaussian source signs are re-estimated
// from activation kurtosis every epoch.
func extendedInfomax(xw *mat.Dense, rank int, opts Options) (*mat.Dense, error) {
	_, t := xw.Dims()
	rng := rand.New(rand.NewSource(opts.Seed))

	w := identity(rank)
	lrate := initialLRateScale / math.Log(float64(rank))
	block := int(math.Floor(math.Sqrt(float64(t) / 3.0)))
	if block < 8 {
		block = 8
	}
	if block > t {
		block = t
	}

	signs := make([]float64, rank)
	for i := range signs {
		signs[i] = 1 // start all super-gaussian, as extended runica does
	}

	prev := mat.DenseCopyOf(w)
	prevChange := math.Inf(1)

	for step := 1; step <= opts.MaxIterations; step++ {
		perm := rng.Perm(t)
		blewUp := false

		for off := 0; off+block <= t; off += block {
			u := mat.NewDense(rank, block, nil)
			for c := 0; c < block; c++ {
				s := perm[off+c]
				for i := 0; i < rank; i++ {
					var acc float64
					for j := 0; j < rank; j++ {
						acc += w.At(i, j) * xw.At(j, s)
					}
					u.Set(i, c, acc)
				}
			}

			// M = block*I - K*tanh(U)*Uᵀ - U*Uᵀ
			m := identityScaled(rank, float64(block))
			for i := 0; i < rank; i++ {
				for j := 0; j < rank; j++ {
					var ky, uu float64
					for c := 0; c < block; c++ {
						ky += math.Tanh(u.At(i, c)) * u.At(j, c)
						uu += u.At(i, c) * u.At(j, c)
					}
					m.Set(i, j, m.At(i, j)-signs[i]*ky-uu)
				}
			}

			var dw mat.Dense
			dw.Mul(m, w)
			dw.Scale(lrate, &dw)
			w.Add(w, &dw)

			if mat.Max(w) > weightBlowup || mat.Min(w) < -weightBlowup {
				blewUp = true
				break
			}
		}

		if blewUp {
			// Restart with a gentler learning rate, as runica does.
			lrate *= 0.9
			if lrate < minLRate {
				return nil, &eeg.NumericalError{Op: "ica", Msg: "weights repeatedly diverged; decomposition failed to converge"}
			}
			w = identity(rank)
			prev = mat.DenseCopyOf(w)
			prevChange = math.Inf(1)
			monitoring.Logf("[ica] weights blew up at step %d; restarting with lrate=%g", step, lrate)
			continue
		}

		updateSigns(signs, w, xw, rng)

		change := frobeniusDiff(w, prev)
		if change < opts.Convergence {
			monitoring.Logf("[ica] converged after %d steps (wchange=%g)", step, change)
			return w, nil
		}
		if change > prevChange {
			lrate *= annealFactor
		}
		prev.Copy(w)
		prevChange = change
	}

	return nil, &eeg.NumericalError{Op: "ica", Msg: fmt.Sprintf("no convergence after %d iterations", opts.MaxIterations)}
}

// updateSigns re-estimates the sub/super-gaussian sign of each source
// from the excess kurtosis of its activations over a random subsample.
func updateSigns(signs []float64, w, xw *mat.Dense, rng *rand.Rand) {
	rank, t := xw.Dims()
	n := signSampleSize
	if n > t {
		n = t
	}
	sample := make([]int, n)
	for i := range sample {
		sample[i] = rng.Intn(t)
	}

	act := make([]float64, n)
	for i := 0; i < rank; i++ {
		for c, s := range sample {
			var acc float64
			for j := 0; j < rank; j++ {
				acc += w.At(i, j) * xw.At(j, s)
			}
			act[c] = acc
		}
		if stat.ExKurtosis(act, nil) >= 0 {
			signs[i] = 1
		} else {
			signs[i] = -1
		}
	}
}

func identity(n int) *mat.Dense {
	return identityScaled(n, 1)
}

func identityScaled(n int, v float64) *mat.Dense {
	m := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		m.Set(i, i, v)
	}
	return m
}

func frobeniusDiff(a, b *mat.Dense) float64 {
	var d mat.Dense
	d.Sub(a, b)
	return mat.Norm(&d, 2)
}

// pseudoInverse computes the Moore-Penrose inverse of the unmixing matrix
// to recover the mixing (back-projection) matrix.
func pseudoInverse(m *mat.Dense) (*mat.Dense, error) {
	var svd mat.SVD
	if ok := svd.Factorize(m, mat.SVDThin); !ok {
		return nil, &eeg.NumericalError{Op: "ica", Msg: "SVD for pseudo-inverse failed"}
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	sv := svd.Values(nil)

	k := len(sv)
	sInv := mat.NewDense(k, k, nil)
	for i, s := range sv {
		if s > 1e-12*sv[0] {
			sInv.Set(i, i, 1/s)
		}
	}

	// pinv = V * S^-1 * Uᵀ, dimensions c x r.
	var tmp, pinv mat.Dense
	tmp.Mul(&v, sInv)
	pinv.Mul(&tmp, u.T())
	return mat.DenseCopyOf(&pinv), nil
}
