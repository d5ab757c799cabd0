package ica

import (
	"gonum.org/v1/gonum/mat"

	"github.com/neuro-data/spectra.report/internal/eeg"
)

// EstimateRank computes the numerical rank of a channel-by-sample matrix
// from its singular value spectrum: singular values below tol times the
// largest are treated as zero. Prior re-referencing and interpolation
// leave the data rank-deficient relative to the channel count, and this
// rank bounds the number of extractable components.
func EstimateRank(data [][]float64, tol float64) (int, error) {
	m := denseFromRows(data)
	var svd mat.SVD
	if ok := svd.Factorize(m, mat.SVDNone); !ok {
		return 0, &eeg.NumericalError{Op: "rank", Msg: "SVD factorization failed"}
	}
	sv := svd.Values(nil)
	if len(sv) == 0 || sv[0] == 0 {
		return 0, &eeg.NumericalError{Op: "rank", Msg: "matrix has no signal"}
	}
	cutoff := sv[0] * tol
	rank := 0
	for _, s := range sv {
		if s > cutoff {
			rank++
		}
	}
	return rank, nil
}
