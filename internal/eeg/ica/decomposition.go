// Package ica implements the blind source separation stage: numerical
// rank estimation, rank-reduced extended infomax decomposition, automatic
// component classification and rejection, and signal reconstruction.
package ica

import (
	"gonum.org/v1/gonum/mat"
)

// Decomposition is the immutable result of the source separation step.
// Rejection and reconstruction derive new values from it; nothing mutates
// a Decomposition after it is created.
//
// Matrices are stored as plain row slices so checkpoints can be encoded
// with encoding/gob.
type Decomposition struct {
	Rank        int         `json:"rank"`
	Seed        int64       `json:"seed"`
	Mixing      [][]float64 `json:"-"` // channels x rank
	Unmixing    [][]float64 `json:"-"` // rank x channels
	Activations [][]float64 `json:"-"` // rank x samples
}

// MixingMatrix returns the mixing matrix as a dense matrix view.
func (d *Decomposition) MixingMatrix() *mat.Dense { return denseFromRows(d.Mixing) }

// UnmixingMatrix returns the unmixing matrix as a dense matrix view.
func (d *Decomposition) UnmixingMatrix() *mat.Dense { return denseFromRows(d.Unmixing) }

func denseFromRows(rows [][]float64) *mat.Dense {
	r := len(rows)
	c := len(rows[0])
	m := mat.NewDense(r, c, nil)
	for i, row := range rows {
		m.SetRow(i, row)
	}
	return m
}

func rowsFromDense(m *mat.Dense) [][]float64 {
	r, c := m.Dims()
	out := make([][]float64, r)
	for i := 0; i < r; i++ {
		out[i] = make([]float64, c)
		mat.Row(out[i], i, m)
	}
	return out
}
