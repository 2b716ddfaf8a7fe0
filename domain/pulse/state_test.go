package pulse

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cpasim/domain/core"
	"cpasim/domain/observables"
)

func gaussianState(t *testing.T, n int) PulseState {
	t.Helper()
	grid, err := NewGrid(2000, n, 1030)
	require.NoError(t, err)
	field := make([]complex128, n)
	for i, tt := range grid.T {
		field[i] = complex(math.Exp(-2*math.Ln2*(tt/100)*(tt/100)), 0)
	}
	return NewPulseState(grid, field)
}

func TestNewGridAxes(t *testing.T) {
	grid, err := NewGrid(1000, 5, 1030)
	require.NoError(t, err)

	assert.Equal(t, []float64{-500, -250, 0, 250, 500}, grid.T)
	assert.InDelta(t, 250.0, grid.Dt, 1e-12)
	assert.InDelta(t, 0.0, grid.W[2], 1e-15)
	assert.InDelta(t, 2*math.Pi/(5*250.0), grid.Dw, 1e-15)
	assert.Less(t, grid.W[0], 0.0)

	_, err = NewGrid(1000, 1, 1030)
	assert.True(t, errors.Is(err, core.ErrConfigInvalid))
	_, err = NewGrid(0, 16, 1030)
	assert.True(t, errors.Is(err, core.ErrConfigInvalid))
}

func TestShiftRoundTrip(t *testing.T) {
	for _, n := range []int{4, 5} {
		x := make([]complex128, n)
		for i := range x {
			x[i] = complex(float64(i), 0)
		}
		assert.Equal(t, x, IFFTShift(FFTShift(x)))
	}
	assert.Equal(t, []complex128{3, 4, 0, 1, 2}, FFTShift([]complex128{0, 1, 2, 3, 4}))
}

func TestForwardInverseRoundTrip(t *testing.T) {
	p := gaussianState(t, 64)
	back := Inverse(p.FieldW)
	for i := range back {
		assert.InDelta(t, real(p.FieldT[i]), real(back[i]), 1e-12)
		assert.InDelta(t, imag(p.FieldT[i]), imag(back[i]), 1e-12)
	}
}

func TestSpectrumCenteredForRealEnvelope(t *testing.T) {
	p := gaussianState(t, 128)
	peak := 0
	for i, v := range p.SpectrumW {
		if v > p.SpectrumW[peak] {
			peak = i
		}
	}
	assert.Equal(t, 64, peak)
}

func TestSetFieldWRefreshesDerived(t *testing.T) {
	p := gaussianState(t, 64)
	spec := append([]complex128(nil), p.FieldW...)
	for i := range spec {
		spec[i] *= complex(0, 1)
	}
	p.SetFieldW(spec)
	assert.InDeltaSlice(t, AbsSquared(p.FieldT), p.IntensityT, 1e-15)
	assert.InDeltaSlice(t, AbsSquared(p.FieldW), p.SpectrumW, 1e-15)
}

func TestValidateUniform(t *testing.T) {
	grid, err := NewGrid(100, 11, 1030)
	require.NoError(t, err)
	assert.NoError(t, grid.ValidateUniform())

	grid.T[5] += 0.5
	err = grid.ValidateUniform()
	assert.True(t, errors.Is(err, core.ErrNonUniformGrid))
	assert.Contains(t, err.Error(), "uniformly spaced")
}

func TestLaserStateCloneIsDeep(t *testing.T) {
	s := Placeholder()
	s.Meta["pulse"] = map[string]any{"field_units": "sqrt(W)"}
	s.Metrics["a"] = 1
	s.Reference = &Trace{IntensityT: []float64{1}}

	c := s.Clone()
	c.Pulse.FieldT[0] = 5
	c.MetaSection("pulse")["field_units"] = "changed"
	c.Metrics["a"] = 2
	c.Reference.IntensityT[0] = 9

	assert.Equal(t, complex128(0), s.Pulse.FieldT[0])
	assert.Equal(t, "sqrt(W)", s.MetaSection("pulse")["field_units"])
	assert.Equal(t, 1.0, s.Metrics["a"])
	assert.Equal(t, 1.0, s.Reference.IntensityT[0])
}

func TestLaserStateCloneCopiesContract(t *testing.T) {
	s := Placeholder()
	s.Meta["observable_contract"] = observables.NewContract(100, 141, 0.02)

	c := s.Clone()
	contract := c.Meta["observable_contract"].(observables.Contract)
	contract.Measurements[0].Value = -1
	contract.Measurements[0].Assumptions[0] = "changed"
	contract.LatentState.Assumptions[0] = "changed"

	orig := s.Meta["observable_contract"].(observables.Contract)
	assert.Equal(t, 100.0, orig.Measurements[0].Value)
	assert.NotEqual(t, "changed", orig.Measurements[0].Assumptions[0])
	assert.NotEqual(t, "changed", orig.LatentState.Assumptions[0])
}

func TestStateHash(t *testing.T) {
	a := Placeholder()
	b := Placeholder()
	ha, err := a.Hash()
	require.NoError(t, err)
	hb, err := b.Hash()
	require.NoError(t, err)
	assert.Equal(t, ha, hb)

	b.Meta["run_id"] = "ignored"
	hb, _ = b.Hash()
	assert.Equal(t, ha, hb)

	b.Pulse.SetFieldT([]complex128{1, 0})
	hb, _ = b.Hash()
	assert.NotEqual(t, ha, hb)
}

func TestMetaFloat(t *testing.T) {
	s := Placeholder()
	_, ok := s.MetaFloat("rep_rate_mhz")
	assert.False(t, ok)

	s.Meta["rep_rate_mhz"] = 1.5
	v, ok := s.MetaFloat("rep_rate_mhz")
	assert.True(t, ok)
	assert.Equal(t, 1.5, v)
}
