package backend

import (
	"fmt"

	"cpasim/adapters/optics/kernels"
	"cpasim/domain/config"
	"cpasim/domain/core"
	"cpasim/domain/pulse"
)

// ResolveGridPoints applies the numerics grid policy to the current size.
func ResolveGridPoints(n int, numerics config.SolverNumerics) (int, error) {
	switch numerics.GridPolicy {
	case config.GridAsIs, "":
		return n, nil
	case config.GridForcePow2:
		return kernels.NearestPowerOfTwo(n)
	case config.GridForceResolution:
		if numerics.ResolutionOverride == nil {
			return 0, core.NewValidationError("numerics.resolution_override", "required when grid_policy='force_resolution'")
		}
		return *numerics.ResolutionOverride, nil
	}
	return 0, fmt.Errorf("%w: grid policy %q", core.ErrUnknownKind, numerics.GridPolicy)
}

// Regrid returns p resampled onto n uniform points over the same time span.
// The frequency axis is rebuilt for the new spacing.
func Regrid(p pulse.PulseState, n int) (pulse.PulseState, error) {
	if n == p.Grid.Len() {
		return p.Clone(), nil
	}
	field, newT, err := kernels.ResampleComplex(p.FieldT, p.Grid.T, n)
	if err != nil {
		return pulse.PulseState{}, err
	}
	grid := pulse.SpanGrid(newT[0], newT[len(newT)-1], n, p.Grid.CenterWavelengthNm)
	return pulse.NewPulseState(grid, field), nil
}
