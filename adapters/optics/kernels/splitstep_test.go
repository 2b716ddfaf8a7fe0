package kernels

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cpasim/domain/config"
	"cpasim/domain/core"
	"cpasim/domain/pulse"
)

func seedPulse(t *testing.T, peak float64) pulse.PulseState {
	t.Helper()
	spec := config.DefaultPulseSpec()
	spec.PeakPowerW = config.Float(peak)
	spec.NSamples = 1024
	spec.TimeWindowFs = 4000
	out, err := Synthesize(spec)
	require.NoError(t, err)
	return out.State
}

func TestOperator_ZeroCoefficientsIsIdentity(t *testing.T) {
	p := seedPulse(t, 1)
	amp := ToyAmp{LengthM: 2, NSteps: 50}

	out := amp.Propagate(p.Grid.W, p.FieldT)

	assert.Equal(t, p.FieldT, out)
}

func TestOperator_GainMatchesTarget(t *testing.T) {
	p := seedPulse(t, 1)
	amp := ToyAmp{LengthM: 1.5, NSteps: 20, GainDB: 10, LossDBPerM: 1}

	out := amp.Propagate(p.Grid.W, p.FieldT)

	ratio := Energy(pulse.AbsSquared(out), p.Grid.Dt) / p.Energy()
	expected := math.Pow(10, 1.0) * math.Exp(-amp.LossPerM()*amp.LengthM)
	assert.InEpsilon(t, expected, ratio, 1e-9)
	assert.InEpsilon(t, 10.0, amp.GainLinear(), 1e-12)
}

func TestOperator_DispersionPreservesEnergy(t *testing.T) {
	p := seedPulse(t, 1)
	amp := ToyAmp{LengthM: 1, NSteps: 10, Beta2Fs2PerM: 2000}

	out := amp.Propagate(p.Grid.W, p.FieldT)

	assert.InEpsilon(t, p.Energy(), Energy(pulse.AbsSquared(out), p.Grid.Dt), 1e-9)
	assert.Greater(t, RMSTemporalWidth(p.Grid.T, pulse.AbsSquared(out)), RMSTemporalWidth(p.Grid.T, p.IntensityT))
}

func TestOperator_SelfPhaseModulationBroadens(t *testing.T) {
	base := seedPulse(t, 1)
	prev := RMSBandwidth(base.Grid.W, base.SpectrumW)

	for _, peak := range []float64{1, 2, 4, 8} {
		p := seedPulse(t, peak)
		amp := ToyAmp{LengthM: 1, NSteps: 50, GammaPerWM: 1}

		out := pulse.NewPulseState(p.Grid, amp.Propagate(p.Grid.W, p.FieldT))
		bw := RMSBandwidth(out.Grid.W, out.SpectrumW)

		assert.Greater(t, bw, prev, "peak power %g", peak)
		assert.InEpsilon(t, p.Energy(), out.Energy(), 1e-9)
		prev = bw
	}
}

func TestResolveGainDB(t *testing.T) {
	gain, err := ResolveGainDB(config.Float(7), nil, 0, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, 7.0, gain)

	gain, err = ResolveGainDB(nil, config.Float(1), 0.1, 0.5, 2)
	require.NoError(t, err)
	assert.InDelta(t, 11.0, gain, 1e-12)

	_, err = ResolveGainDB(nil, config.Float(1), 0, 0, 1)
	assert.True(t, errors.Is(err, core.ErrPhysicalDomain))

	_, err = ResolveGainDB(nil, config.Float(-1), 1, 0, 1)
	assert.True(t, errors.Is(err, core.ErrPhysicalDomain))

	_, err = ResolveGainDB(nil, nil, 1, 0, 1)
	assert.True(t, errors.Is(err, core.ErrConfigInvalid))
}
