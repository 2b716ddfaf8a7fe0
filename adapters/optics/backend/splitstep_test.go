package backend

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cpasim/adapters/optics/kernels"
	"cpasim/domain/config"
	"cpasim/domain/core"
	"cpasim/domain/pulse"
)

func gaussianInput(t *testing.T, peak float64) (SolverInput, pulse.PulseState) {
	t.Helper()
	spec := config.DefaultPulseSpec()
	spec.PeakPowerW = config.Float(peak)
	spec.NSamples = 512
	spec.TimeWindowFs = 4000
	seed, err := kernels.Synthesize(spec)
	require.NoError(t, err)

	grid := seed.State.Grid
	return SolverInput{
		Resolution:   grid.Len(),
		TimeWindowPs: (grid.T[grid.Len()-1] - grid.T[0]) / 1000,
		WavelengthNm: 1030,
		FiberLengthM: 1,
		Envelope:     seed.State.FieldT,
		Dispersion:   config.Dispersion{Kind: config.DispersionTaylor},
		Rtol:         1e-6,
		Atol:         1e-10,
		ZSaves:       3,
	}, seed.State
}

func TestSplitStepSolver_LinearLosslessIsIdentity(t *testing.T) {
	in, state := gaussianInput(t, 1)
	solver := NewSplitStepSolver()

	traj, err := solver.Propagate(in)
	require.NoError(t, err)

	require.Len(t, traj.Fields, 3)
	assert.Equal(t, []float64{0, 0.5, 1}, traj.Z)
	final, err := traj.Final()
	require.NoError(t, err)
	assert.Equal(t, state.FieldT, final)
}

func TestSplitStepSolver_Loss(t *testing.T) {
	in, state := gaussianInput(t, 1)
	in.LossDBPerM = 3
	in.ZSaves = 1

	traj, err := NewSplitStepSolver().Propagate(in)
	require.NoError(t, err)
	require.Len(t, traj.Fields, 1)

	final, _ := traj.Final()
	ratio := kernels.Energy(pulse.AbsSquared(final), state.Grid.Dt) / state.Energy()
	assert.InEpsilon(t, math.Pow(10, -0.3), ratio, 1e-9)
}

func TestSplitStepSolver_MatchesFixedStepReference(t *testing.T) {
	in, state := gaussianInput(t, 4)
	in.GammaPerWM = 1
	in.Dispersion.BetasPsnPerM = []float64{0.002}

	traj, err := NewSplitStepSolver().Propagate(in)
	require.NoError(t, err)
	final, _ := traj.Final()

	linear, err := LinearPhasePerM(in.Dispersion, state.Grid.W, in.WavelengthNm)
	require.NoError(t, err)
	reference := kernels.NewOperator(linear, 0, in.GammaPerWM).Propagate(state.FieldT, in.FiberLengthM, 4000)

	assert.InEpsilon(t, state.Energy(), kernels.Energy(pulse.AbsSquared(final), state.Grid.Dt), 1e-9)
	worst := 0.0
	for i := range final {
		worst = math.Max(worst, math.Abs(real(final[i])-real(reference[i]))+math.Abs(imag(final[i])-imag(reference[i])))
	}
	assert.Less(t, worst, 1e-3*math.Sqrt(4))
}

func TestSplitStepSolver_RejectsUnsupported(t *testing.T) {
	in, _ := gaussianInput(t, 1)
	in.Raman = &config.Raman{Model: "blowwood"}
	_, err := NewSplitStepSolver().Propagate(in)
	assert.True(t, errors.Is(err, core.ErrUnsupported))

	in.Raman = nil
	in.SelfSteepening = true
	_, err = NewSplitStepSolver().Propagate(in)
	assert.True(t, errors.Is(err, core.ErrUnsupported))
}

func TestSolverInput_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*SolverInput)
	}{
		{"resolution", func(in *SolverInput) { in.Resolution = 1 }},
		{"envelope length", func(in *SolverInput) { in.Envelope = in.Envelope[:10] }},
		{"window", func(in *SolverInput) { in.TimeWindowPs = 0 }},
		{"length", func(in *SolverInput) { in.FiberLengthM = 0 }},
		{"z saves", func(in *SolverInput) { in.ZSaves = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, _ := gaussianInput(t, 1)
			tt.mutate(&in)
			assert.True(t, errors.Is(in.Validate(), core.ErrConfigInvalid))
		})
	}
}

func TestLinearPhasePerM_Taylor(t *testing.T) {
	d := config.Dispersion{Kind: config.DispersionTaylor, BetasPsnPerM: []float64{0.02, 0.001}}
	w := []float64{-0.1, 0, 0.1}

	phase, err := LinearPhasePerM(d, w, 1030)
	require.NoError(t, err)

	beta2 := 0.02 * 1e6
	beta3 := 0.001 * 1e9
	for i, wi := range w {
		want := beta2/2*wi*wi + beta3/6*wi*wi*wi
		assert.InDelta(t, want, phase[i], 1e-9)
	}
}

func TestInterpolatedBetas(t *testing.T) {
	w0 := kernels.AngularFrequency(1030)
	const curvature = 5e4 // β2/2 in fs²/m

	lambdas := make([]float64, 41)
	nEff := make([]float64, len(lambdas))
	for i := range lambdas {
		lambdas[i] = 1000 + 1.5*float64(i)
		w := kernels.AngularFrequency(lambdas[i])
		beta := 5.8e6*w + curvature*(w-w0)*(w-w0)
		nEff[i] = beta * kernels.CUmPerFs / (w * 1e6)
	}

	beta2, beta3, err := InterpolatedBetas(lambdas, nEff, 1030)
	require.NoError(t, err)
	assert.InEpsilon(t, 2*curvature, beta2, 1e-3)
	assert.Less(t, math.Abs(beta3), 2*curvature)

	_, _, err = InterpolatedBetas(lambdas, nEff, 1500)
	assert.True(t, errors.Is(err, core.ErrConfigInvalid))
}

func TestResolveGridPoints(t *testing.T) {
	n, err := ResolveGridPoints(300, config.SolverNumerics{GridPolicy: config.GridAsIs})
	require.NoError(t, err)
	assert.Equal(t, 300, n)

	n, err = ResolveGridPoints(300, config.SolverNumerics{GridPolicy: config.GridForcePow2})
	require.NoError(t, err)
	assert.Equal(t, 256, n)

	res := 512
	n, err = ResolveGridPoints(300, config.SolverNumerics{GridPolicy: config.GridForceResolution, ResolutionOverride: &res})
	require.NoError(t, err)
	assert.Equal(t, 512, n)

	_, err = ResolveGridPoints(300, config.SolverNumerics{GridPolicy: config.GridForceResolution})
	assert.Error(t, err)
}

func TestRegrid(t *testing.T) {
	_, state := gaussianInput(t, 1)

	same, err := Regrid(state, state.Grid.Len())
	require.NoError(t, err)
	assert.Equal(t, state.FieldT, same.FieldT)

	out, err := Regrid(state, 1024)
	require.NoError(t, err)
	assert.Equal(t, 1024, out.Grid.Len())
	assert.Equal(t, state.Grid.T[0], out.Grid.T[0])
	assert.InDelta(t, state.Grid.T[state.Grid.Len()-1], out.Grid.T[1023], 1e-9)
	assert.InDelta(t, out.Grid.T[1]-out.Grid.T[0], out.Grid.Dt, 1e-12)
	assert.InEpsilon(t, state.Energy(), out.Energy(), 1e-2)
}
