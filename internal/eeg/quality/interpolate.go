package quality

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/neuro-data/spectra.report/internal/eeg"
	"github.com/neuro-data/spectra.report/internal/monitoring"
)

// Spherical spline parameters (Perrin et al. 1989): spline stiffness m,
// number of Legendre terms in the g kernel, and the smoothing term added
// to the kernel matrix diagonal.
const (
	splineStiffness = 4
	splineTerms     = 50
	splineSmoothing = 1e-5
)

// Interpolate reconstructs every flagged channel in the report through a
// spherical spline fitted to the unflagged channels only, so a flagged
// channel never contributes to the reconstruction of another flagged
// channel. Unflagged channels pass through untouched.
func Interpolate(rec *eeg.Recording, layout *eeg.ChannelLayout, report *eeg.ChannelQualityReport) (*eeg.Recording, error) {
	bad := report.FlaggedChannels()
	if len(bad) == 0 {
		return rec.Clone(), nil
	}
	good := report.GoodChannels()
	if len(good) == 0 {
		return nil, &eeg.DataQualityError{Msg: "all channels flagged bad; interpolation has no source channels"}
	}

	m, err := interpolationMatrix(layout, good, bad)
	if err != nil {
		return nil, err
	}

	monitoring.Logf("[quality] session=%s interpolating %d channels from %d clean channels", rec.SessionID, len(bad), len(good))

	out := rec.Clone()
	n := rec.Samples()
	src := make([]float64, len(good))
	for s := 0; s < n; s++ {
		for i, g := range good {
			src[i] = rec.Data[g][s]
		}
		for i, b := range bad {
			var acc float64
			for j := range good {
				acc += m.At(i, j) * src[j]
			}
			out.Data[b][s] = acc
		}
	}
	return out, nil
}

// interpolationMatrix builds the bad-by-good spline mapping: solving the
// spline system on the good electrodes and evaluating it at the bad
// electrode positions.
func interpolationMatrix(layout *eeg.ChannelLayout, good, bad []int) (*mat.Dense, error) {
	ng, nb := len(good), len(bad)

	unit := make([]eeg.Position, layout.Channels())
	for i := range unit {
		unit[i] = layout.Position(i).Unit()
	}

	// Kernel matrices over great-circle cosines.
	gFrom := mat.NewDense(ng, ng, nil)
	for i := 0; i < ng; i++ {
		for j := 0; j < ng; j++ {
			v := gKernel(cosAngle(unit[good[i]], unit[good[j]]))
			if i == j {
				v += splineSmoothing
			}
			gFrom.Set(i, j, v)
		}
	}
	gTo := mat.NewDense(nb, ng, nil)
	for i := 0; i < nb; i++ {
		for j := 0; j < ng; j++ {
			gTo.Set(i, j, gKernel(cosAngle(unit[bad[i]], unit[good[j]])))
		}
	}

	// Bordered system enforcing the zero-sum spline constraint.
	sys := mat.NewDense(ng+1, ng+1, nil)
	sys.Slice(0, ng, 0, ng).(*mat.Dense).Copy(gFrom)
	for i := 0; i < ng; i++ {
		sys.Set(i, ng, 1)
		sys.Set(ng, i, 1)
	}

	var sysInv mat.Dense
	if err := sysInv.Inverse(sys); err != nil {
		return nil, &eeg.NumericalError{Op: "interpolate", Err: err, Msg: fmt.Sprintf("spline system is singular for %d source channels", ng)}
	}

	// Evaluation at bad positions, with the constant spline term carried
	// through the border row.
	ext := mat.NewDense(nb, ng+1, nil)
	ext.Slice(0, nb, 0, ng).(*mat.Dense).Copy(gTo)
	for i := 0; i < nb; i++ {
		ext.Set(i, ng, 1)
	}

	var full mat.Dense
	full.Mul(ext, &sysInv)
	return mat.DenseCopyOf(full.Slice(0, nb, 0, ng)), nil
}

// gKernel evaluates the spherical spline kernel
// g(x) = (1/4π) Σ_n (2n+1) / (n(n+1))^m · P_n(x).
func gKernel(x float64) float64 {
	const fourPi = 4 * 3.141592653589793
	// Legendre recurrence: P_0 = 1, P_1 = x,
	// (n+1) P_{n+1} = (2n+1) x P_n - n P_{n-1}.
	p0, p1 := 1.0, x
	sum := 0.0
	for n := 1; n <= splineTerms; n++ {
		nf := float64(n)
		denom := nf * (nf + 1)
		w := (2*nf + 1)
		for k := 0; k < splineStiffness; k++ {
			w /= denom
		}
		sum += w * p1
		p0, p1 = p1, ((2*nf+1)*x*p1-nf*p0)/(nf+1)
	}
	return sum / fourPi
}

func cosAngle(a, b eeg.Position) float64 {
	c := a.X*b.X + a.Y*b.Y + a.Z*b.Z
	if c > 1 {
		c = 1
	} else if c < -1 {
		c = -1
	}
	return c
}
