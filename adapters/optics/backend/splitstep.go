package backend

import (
	"fmt"
	"math"
	"math/cmplx"
	"sort"

	"gonum.org/v1/gonum/interp"

	"cpasim/adapters/optics/kernels"
	"cpasim/domain/config"
	"cpasim/domain/core"
	"cpasim/domain/pulse"
)

// SplitStepVersion is reported as the backend version of SplitStepSolver.
const SplitStepVersion = "1.2.0"

const (
	fsPerPs      = 1000.0
	initialSteps = 64
	maxSteps     = 200000
	minStepM     = 1e-12
)

// SplitStepSolver is the built-in reference solver. It integrates the
// dispersion, loss and Kerr terms with symmetric split-step and step doubling.
type SplitStepSolver struct{}

// NewSplitStepSolver returns the built-in solver.
func NewSplitStepSolver() *SplitStepSolver {
	return &SplitStepSolver{}
}

func (s *SplitStepSolver) Name() string    { return "splitstep" }
func (s *SplitStepSolver) Version() string { return SplitStepVersion }

// Propagate integrates the envelope over the fiber and saves ZSaves slices.
func (s *SplitStepSolver) Propagate(in SolverInput) (Trajectory, error) {
	if err := in.Validate(); err != nil {
		return Trajectory{}, err
	}
	if in.Raman != nil {
		return Trajectory{}, fmt.Errorf("%w: raman model %q is not available in the %s solver", core.ErrUnsupported, in.Raman.Model, s.Name())
	}
	if in.SelfSteepening {
		return Trajectory{}, fmt.Errorf("%w: self-steepening is not available in the %s solver", core.ErrUnsupported, s.Name())
	}

	windowFs := in.TimeWindowPs * fsPerPs
	grid := pulse.SpanGrid(-0.5*windowFs, 0.5*windowFs, in.Resolution, in.WavelengthNm)
	linear, err := LinearPhasePerM(in.Dispersion, grid.W, in.WavelengthNm)
	if err != nil {
		return Trajectory{}, err
	}
	op := kernels.NewOperator(linear, -in.LossDBPerM*kernels.DBToNeperPower, in.GammaPerWM)

	rtol, atol := in.Rtol, in.Atol
	if rtol <= 0 {
		rtol = 1e-5
	}
	if atol <= 0 {
		atol = 1e-8
	}

	saves := savePoints(in.FiberLengthM, in.ZSaves)
	traj := Trajectory{}
	field := append([]complex128(nil), in.Envelope...)
	z := 0.0
	dz := in.FiberLengthM / initialSteps
	steps := 0

	for _, target := range saves {
		for target-z > minStepM {
			h := math.Min(dz, target-z)
			coarse := op.Step(field, h)
			fine := op.Step(op.Step(field, h/2), h/2)
			e := stepError(fine, coarse, rtol, atol)

			if e <= 1 {
				field = fine
				z += h
				dz = h * math.Min(2, 0.9*math.Pow(math.Max(e, 1e-10), -1.0/3))
			} else {
				dz = h * math.Max(0.2, 0.9*math.Pow(e, -1.0/3))
				if dz < minStepM {
					return Trajectory{}, core.NewDomainError("split-step solver", "step size underflow at z=%g m", z)
				}
			}
			steps++
			if steps > maxSteps {
				return Trajectory{}, core.NewDomainError("split-step solver", "exceeded %d steps at z=%g m", maxSteps, z)
			}
		}
		z = target
		traj.Z = append(traj.Z, z)
		traj.Fields = append(traj.Fields, append([]complex128(nil), field...))
	}
	return traj, nil
}

// savePoints returns the z positions to record. A single save records only the fiber end.
func savePoints(length float64, n int) []float64 {
	if n <= 1 {
		return []float64{length}
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = length * float64(i) / float64(n-1)
	}
	return out
}

func stepError(fine, coarse []complex128, rtol, atol float64) float64 {
	peak := 0.0
	for _, v := range fine {
		peak = math.Max(peak, cmplx.Abs(v))
	}
	scale := atol + rtol*peak
	worst := 0.0
	for i := range fine {
		worst = math.Max(worst, cmplx.Abs(fine[i]-coarse[i]))
	}
	return worst / scale
}

// LinearPhasePerM returns the dispersion phase per meter on each frequency
// sample, Σ βk/k!·ωᵏ for k >= 2.
func LinearPhasePerM(d config.Dispersion, w []float64, wavelengthNm float64) ([]float64, error) {
	var betas []float64
	switch d.Kind {
	case config.DispersionTaylor, "":
		betas = make([]float64, len(d.BetasPsnPerM))
		for i, b := range d.BetasPsnPerM {
			betas[i] = b * math.Pow(fsPerPs, float64(i+2))
		}
	case config.DispersionInterpolation:
		center := d.CentralWavelengthNm
		if center <= 0 {
			center = wavelengthNm
		}
		b2, b3, err := InterpolatedBetas(d.LambdasNm, d.EffectiveIndices, center)
		if err != nil {
			return nil, err
		}
		betas = []float64{b2, b3}
	default:
		return nil, fmt.Errorf("%w: dispersion kind %q", core.ErrUnknownKind, d.Kind)
	}

	out := make([]float64, len(w))
	for i, wi := range w {
		sum := 0.0
		for k, b := range betas {
			order := float64(k + 2)
			sum += b / math.Gamma(order+1) * math.Pow(wi, order)
		}
		out[i] = sum
	}
	return out, nil
}

// InterpolatedBetas fits β(ω) = n_eff·ω/c with a natural cubic spline and
// returns β2 (fs²/m) and β3 (fs³/m) by central differences at the center.
func InterpolatedBetas(lambdasNm, nEff []float64, centerNm float64) (float64, float64, error) {
	if len(lambdasNm) != len(nEff) || len(lambdasNm) < 3 {
		return 0, 0, core.NewValidationError("dispersion", "interpolation needs matching lambdas_nm and effective_indices with >= 3 samples")
	}
	type sample struct{ w, beta float64 }
	samples := make([]sample, len(lambdasNm))
	for i, l := range lambdasNm {
		w := kernels.AngularFrequency(l)
		samples[i] = sample{w: w, beta: nEff[i] * w / kernels.CUmPerFs * 1e6}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i].w < samples[j].w })
	ws := make([]float64, len(samples))
	bs := make([]float64, len(samples))
	for i, s := range samples {
		ws[i], bs[i] = s.w, s.beta
	}

	var spline interp.NaturalCubic
	if err := spline.Fit(ws, bs); err != nil {
		return 0, 0, fmt.Errorf("%w: dispersion spline: %v", core.ErrConfigInvalid, err)
	}

	w0 := kernels.AngularFrequency(centerNm)
	h := 1e-3 * (ws[len(ws)-1] - ws[0])
	if w0-2*h < ws[0] || w0+2*h > ws[len(ws)-1] {
		return 0, 0, core.NewValidationError("dispersion.central_wavelength_nm",
			fmt.Sprintf("%g nm lies outside the sampled wavelength range", centerNm))
	}
	f := spline.Predict
	beta2 := (f(w0+h) - 2*f(w0) + f(w0-h)) / (h * h)
	beta3 := (f(w0+2*h) - 2*f(w0+h) + 2*f(w0-h) - f(w0-2*h)) / (2 * h * h * h)
	return beta2, beta3, nil
}
