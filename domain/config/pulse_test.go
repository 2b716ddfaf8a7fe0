package config

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cpasim/domain/core"
)

func TestPulseSpecExclusivity(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(p *PulseSpec)
		wantErr error
		message string
	}{
		{"peak and energy", func(p *PulseSpec) { p.PeakPowerW = Float(1); p.PulseEnergyJ = Float(1e-9) },
			core.ErrConflictingPower, "Exactly one pulse normalization input may be explicitly set"},
		{"energy and avg", func(p *PulseSpec) { p.PulseEnergyJ = Float(1e-9); p.AvgPowerW = Float(0.1) },
			core.ErrConflictingPower, "Exactly one pulse normalization input may be explicitly set"},
		{"amplitude and peak", func(p *PulseSpec) { p.Amplitude = Float(2); p.PeakPowerW = Float(1) },
			core.ErrConflictingPower, "PulseSpec.amplitude cannot be set together"},
		{"width and autocorr", func(p *PulseSpec) { p.WidthFs = Float(100); p.AutocorrFwhmFs = Float(141) },
			core.ErrConflictingWidth, "Only one pulse width input may be explicitly set"},
		{"rep rate", func(p *PulseSpec) { p.RepRateMHz = 0 },
			core.ErrConfigInvalid, "rep_rate_mhz"},
		{"shape", func(p *PulseSpec) { p.Shape = "lorentzian" },
			core.ErrUnknownShape, "lorentzian"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := DefaultPulseSpec()
			tt.mutate(&spec)
			_, err := NewPulseSpec(spec)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestPulseSpecLegacyAmplitudeWarns(t *testing.T) {
	spec := DefaultPulseSpec()
	spec.Amplitude = Float(2)
	_, err := NewPulseSpec(spec)
	require.NoError(t, err)
	require.Len(t, spec.Warnings(), 1)
	assert.Contains(t, spec.Warnings()[0], "PulseSpec.amplitude is deprecated")

	peak, err := spec.ResolvePeakPowerW(100)
	require.NoError(t, err)
	assert.Equal(t, 4.0, peak)
}

func TestResolveIntensityFWHM(t *testing.T) {
	spec := DefaultPulseSpec()
	w, err := spec.ResolveIntensityFWHM()
	require.NoError(t, err)
	assert.Equal(t, DefaultWidthFs, w)

	spec.Shape = ShapeSech2
	spec.AutocorrFwhmFs = Float(11111.11)
	w, err = spec.ResolveIntensityFWHM()
	require.NoError(t, err)
	assert.InDelta(t, 7200.0, w, 1.0)

	spec.Shape = ShapeGaussian
	spec.AutocorrFwhmFs = Float(100 * math.Sqrt2)
	w, _ = spec.ResolveIntensityFWHM()
	assert.InDelta(t, 100.0, w, 1e-9)

	spec.Shape = "triangle"
	_, err = spec.ResolveIntensityFWHM()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unknown pulse shape for autocorrelation deconvolution")
}

func TestResolvePeakPowerPrecedence(t *testing.T) {
	spec := DefaultPulseSpec()
	peak, err := spec.ResolvePeakPowerW(100)
	require.NoError(t, err)
	assert.Equal(t, 1.0, peak)

	spec.PulseEnergyJ = Float(1e-9)
	peak, err = spec.ResolvePeakPowerW(100)
	require.NoError(t, err)
	assert.InDelta(t, 1e-9*2*math.Sqrt(math.Ln2)/(100e-15*math.Sqrt(math.Pi)), peak, 1)

	spec.PulseEnergyJ = nil
	spec.AvgPowerW = Float(1e-3)
	spec.RepRateMHz = 1
	peakAvg, err := spec.ResolvePeakPowerW(100)
	require.NoError(t, err)
	assert.InDelta(t, peak, peakAvg, 1e-6*peak)

	spec.AvgPowerW = nil
	spec.Shape = ShapeSech2
	spec.PulseEnergyJ = Float(1e-9)
	peak, _ = spec.ResolvePeakPowerW(100)
	assert.InDelta(t, 1e-9*math.Acosh(math.Sqrt2)/100e-15, peak, 1)

	spec.PulseEnergyJ = nil
	spec.PeakPowerW = Float(5e3)
	peak, _ = spec.ResolvePeakPowerW(100)
	assert.Equal(t, 5e3, peak)
}

func TestValidatePulseSampling(t *testing.T) {
	t.Run("strict under-resolved", func(t *testing.T) {
		spec := DefaultPulseSpec()
		spec.WidthFs = Float(80)
		spec.NSamples = 256
		spec.TimeWindowFs = 6000
		_, err := ValidatePulseSampling(spec, SamplingPolicy{MinPointsPerFWHM: 24, Strict: true})
		require.Error(t, err)
		assert.True(t, errors.Is(err, core.ErrSamplingPolicy))
		assert.Contains(t, err.Error(), "dt_fs <= resolved_intensity_fwhm_fs / N_min")
	})

	t.Run("low nyquist margin warns", func(t *testing.T) {
		spec := DefaultPulseSpec()
		spec.Shape = ShapeSech2
		spec.WidthFs = Float(100)
		spec.NSamples = 128
		spec.TimeWindowFs = 2000
		warnings, err := ValidatePulseSampling(spec, SamplingPolicy{MinPointsPerFWHM: 4, NyquistMargin: 12})
		require.NoError(t, err)
		require.Len(t, warnings, 1)
		assert.Contains(t, warnings[0], "spectral Nyquist margin")
	})

	t.Run("uses resolved autocorrelation width", func(t *testing.T) {
		spec := DefaultPulseSpec()
		spec.Shape = ShapeSech2
		spec.AutocorrFwhmFs = Float(154.320987654321)
		spec.NSamples = 256
		spec.TimeWindowFs = 6000
		_, err := ValidatePulseSampling(spec, SamplingPolicy{MinPointsPerFWHM: 24, Strict: true})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "resolved_intensity_fwhm_fs=100.000 fs")
	})

	t.Run("default spec passes default policy", func(t *testing.T) {
		warnings, err := ValidatePulseSampling(DefaultPulseSpec(), DefaultSamplingPolicy())
		require.NoError(t, err)
		assert.Empty(t, warnings)
	})
}

func TestRecommendedNSamples(t *testing.T) {
	n, err := RecommendedNSamples(2000, 120000, 24)
	require.NoError(t, err)
	assert.Equal(t, 2048, n)
	assert.LessOrEqual(t, 120000/float64(n-1), 2000.0/24)

	_, err = RecommendedNSamples(0, 120000, 24)
	assert.Error(t, err)
}

func TestMapVendorPulseWidth(t *testing.T) {
	m, err := MapVendorPulseWidth(0.35, MeasuredAutocorrFWHM, ShapeSech2, 0.1)
	require.NoError(t, err)
	assert.InDelta(t, 350*Sech2AutocorrMultiplier, m.SimulationWidthFs, 1e-9)
	assert.InDelta(t, m.SimulationWidthFs*0.9, m.LowerBoundFs, 1e-9)
	assert.InDelta(t, m.SimulationWidthFs*1.1, m.UpperBoundFs, 1e-9)

	spec := m.PulseSpec(DefaultPulseSpec())
	require.NotNil(t, spec.WidthFs)
	assert.Equal(t, ShapeSech2, spec.Shape)

	direct, err := MapVendorPulseWidth(0.2, MeasuredIntensityFWHM, ShapeGaussian, 0)
	require.NoError(t, err)
	assert.InDelta(t, 200.0, direct.SimulationWidthFs, 1e-9)

	_, err = MapVendorPulseWidth(-1, MeasuredIntensityFWHM, ShapeGaussian, 0)
	assert.Error(t, err)
	_, err = MapVendorPulseWidth(1, MeasuredIntensityFWHM, ShapeGaussian, -0.1)
	assert.Error(t, err)
}
