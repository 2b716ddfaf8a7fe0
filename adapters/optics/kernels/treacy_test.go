package kernels

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cpasim/domain/config"
	"cpasim/domain/core"
)

func canonicalGratingPair() config.TreacyGratingPairConfig {
	cfg := config.DefaultTreacyGratingPair("compressor")
	cfg.LineDensityLpmm = 1200
	cfg.IncidenceAngleDeg = 35
	cfg.SeparationUm = 100000
	cfg.WavelengthNm = 1030
	cfg.DiffractionOrder = -1
	cfg.NPasses = 2
	cfg.IncludeTOD = true
	return cfg
}

func TestComputeTreacy_Canonical(t *testing.T) {
	tr, err := ComputeTreacy(canonicalGratingPair())
	require.NoError(t, err)

	assert.Less(t, tr.GDDFs2, 0.0)
	assert.InDelta(t, -1.33e6, tr.GDDFs2, 5e3)
	assert.InDelta(t, 5.35e6, tr.TODFs3, 1e4)
	assert.InDelta(t, 1000.0/1200, tr.PeriodUm, 1e-12)
	assert.InDelta(t, 38.17, tr.LittrowAngleDeg, 0.01)
	assert.InDelta(t, 1.82879, tr.Omega0RadPerFs, 1e-4)
}

func TestComputeTreacy_Overrides(t *testing.T) {
	cfg := canonicalGratingPair()
	cfg.OverrideGDDFs2 = config.Float(-1000)
	base, err := ComputeTreacy(canonicalGratingPair())
	require.NoError(t, err)

	tr, err := ComputeTreacy(cfg)
	require.NoError(t, err)
	assert.Equal(t, -1000.0, tr.GDDFs2)
	assert.Equal(t, base.TODFs3, tr.TODFs3)

	cfg.IncludeTOD = false
	tr, err = ComputeTreacy(cfg)
	require.NoError(t, err)
	assert.Zero(t, tr.TODFs3)
}

func TestComputeTreacy_InvalidGeometry(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.TreacyGratingPairConfig)
		context string
	}{
		{"littrow out of domain", func(c *config.TreacyGratingPairConfig) { c.LineDensityLpmm = 3000 }, "littrow angle"},
		{"evanescent order", func(c *config.TreacyGratingPairConfig) { c.IncidenceAngleDeg = -35 }, "diffraction angle"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := canonicalGratingPair()
			tt.mutate(&cfg)
			_, err := ComputeTreacy(cfg)
			require.Error(t, err)
			assert.True(t, errors.Is(err, core.ErrPhysicalDomain))
			assert.Contains(t, err.Error(), tt.context)
		})
	}
}

func TestApplySpectralPhase_Lossless(t *testing.T) {
	p := seedPulse(t, 1)
	before := p.Clone()

	ApplySpectralPhase(&p, DispersionPhase(p.Grid.W, 0, 5000, 20000))

	assert.InEpsilon(t, before.Energy(), p.Energy(), 1e-12)
	for i := range p.SpectrumW {
		assert.InDelta(t, before.SpectrumW[i], p.SpectrumW[i], 1e-9*before.SpectrumW[len(p.SpectrumW)/2])
	}
	assert.Greater(t, RMSTemporalWidth(p.Grid.T, p.IntensityT), RMSTemporalWidth(before.Grid.T, before.IntensityT))
}

func TestGratingPair_CompressesPrechirp(t *testing.T) {
	spec := config.DefaultPulseSpec()
	spec.NSamples = 4096
	spec.TimeWindowFs = 40000
	seed, err := Synthesize(spec)
	require.NoError(t, err)

	cfg := canonicalGratingPair()
	cfg.SeparationUm = 1500
	cfg.IncludeTOD = false
	tr, err := ComputeTreacy(cfg)
	require.NoError(t, err)

	chirped := seed.State.Clone()
	ApplySpectralPhase(&chirped, DispersionPhase(chirped.Grid.W, 0, -tr.GDDFs2, 0))
	compressed := chirped.Clone()
	ApplySpectralPhase(&compressed, DispersionPhase(compressed.Grid.W, 0, tr.GDDFs2, 0))

	seedWidth := RMSTemporalWidth(seed.State.Grid.T, seed.State.IntensityT)
	chirpedWidth := RMSTemporalWidth(chirped.Grid.T, chirped.IntensityT)
	compressedWidth := RMSTemporalWidth(compressed.Grid.T, compressed.IntensityT)

	assert.Greater(t, chirpedWidth, seedWidth)
	assert.Less(t, compressedWidth, chirpedWidth-20)
	assert.InDelta(t, seedWidth, compressedWidth, 1e-6*seedWidth)
}

