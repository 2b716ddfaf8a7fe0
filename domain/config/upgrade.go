package config

import (
	"fmt"
	"sort"
)

// Legacy kind tags rewritten by Upgrade.
const (
	legacyKindTreacy = "treacy_grating"
	legacyKindGlnse  = "glnse"
	legacyBackend    = "wust_gnlse"
)

var gratingGeometryKeys = []string{"line_density_lpmm", "incidence_angle_deg", "separation_um", "diffraction_order", "n_passes"}

// Upgrade rewrites older flat stage shapes into the current nested shape.
// It never mutates raw and returns one deprecation notice per rewrite.
func Upgrade(raw map[string]any) (map[string]any, []string) {
	out, _ := deepCopy(raw).(map[string]any)
	if out == nil {
		out = map[string]any{}
	}
	u := &upgrader{}

	for _, key := range []string{"stretcher", "compressor"} {
		if m, ok := out[key].(map[string]any); ok {
			u.freeSpace(key, m)
		}
	}
	if m, ok := out["fiber"].(map[string]any); ok {
		u.fiber("fiber", m)
	}
	if m, ok := out["amp"].(map[string]any); ok {
		u.amp("amp", m)
	}

	banks := []struct {
		key string
		fn  func(string, map[string]any)
	}{
		{"free_space_stages", u.freeSpace},
		{"fiber_stages", u.fiber},
		{"amp_stages", u.amp},
	}
	for _, bank := range banks {
		entries, ok := out[bank.key].(map[string]any)
		if !ok {
			continue
		}
		keys := make([]string, 0, len(entries))
		for k := range entries {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, key := range keys {
			if m, ok := entries[key].(map[string]any); ok {
				bank.fn(key, m)
			}
		}
	}

	if list, ok := out["stages"].([]any); ok {
		for i, v := range list {
			m, ok := v.(map[string]any)
			if !ok {
				continue
			}
			label := fmt.Sprintf("stages[%d]", i)
			if name, ok := m["name"].(string); ok {
				label = name
			}
			switch kind, _ := m["kind"].(string); kind {
			case legacyKindTreacy:
				u.freeSpace(label, m)
			case legacyKindGlnse, "fiber":
				u.fiber(label, m)
			case "", "toy_fiber_amp", "simple_gain":
				u.amp(label, m)
			}
		}
	}
	return out, u.notes
}

type upgrader struct {
	notes []string
}

func (u *upgrader) note(label, format string, args ...any) {
	u.notes = append(u.notes, fmt.Sprintf("stage %s: %s", label, fmt.Sprintf(format, args...)))
}

func (u *upgrader) freeSpace(label string, m map[string]any) {
	kind, _ := m["kind"].(string)
	if kind != legacyKindTreacy {
		return
	}
	if hasAny(m, gratingGeometryKeys...) {
		m["kind"] = "treacy_grating_pair"
		u.note(label, "kind treacy_grating is deprecated; use treacy_grating_pair")
		return
	}
	m["kind"] = "phase_only_dispersion"
	u.note(label, "legacy treacy_grating with bare gdd_fs2 rewritten to phase_only_dispersion")
}

func (u *upgrader) fiber(label string, m map[string]any) {
	kind, _ := m["kind"].(string)
	_, hasPhase := m["nonlinear_phase_rad"]
	if kind == legacyKindGlnse || (hasPhase && !hasAny(m, "physics", "numerics")) {
		phase := m["nonlinear_phase_rad"]
		if phase == nil {
			phase = 0.0
		}
		delete(m, "nonlinear_phase_rad")
		m["kind"] = "fiber"
		m["numerics"] = map[string]any{"backend": BackendToyPhase, "nonlinear_phase_rad": phase}
		u.note(label, "bare nonlinear_phase_rad rewritten to numerics.backend=toy_phase")
	}
	if numerics, ok := m["numerics"].(map[string]any); ok && numerics["backend"] == legacyBackend {
		numerics["backend"] = BackendSolver
		u.note(label, "numerics backend %s is deprecated; use %s", legacyBackend, BackendSolver)
	}
}

func (u *upgrader) amp(label string, m map[string]any) {
	kind, _ := m["kind"].(string)
	if kind == "" {
		if _, ok := m["gain_linear"]; ok {
			m["kind"] = "simple_gain"
		}
	}
	// The legacy key was always applied against ω in rad/fs, so the value
	// carries over unchanged under its corrected name.
	if v, ok := m["beta2_s2_per_m"]; ok {
		delete(m, "beta2_s2_per_m")
		if _, exists := m["beta2_fs2_per_m"]; !exists {
			m["beta2_fs2_per_m"] = v
		}
		u.note(label, "beta2_s2_per_m is deprecated; renamed to beta2_fs2_per_m")
	}
}

func hasAny(m map[string]any, keys ...string) bool {
	for _, k := range keys {
		if _, ok := m[k]; ok {
			return true
		}
	}
	return false
}

func deepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = deepCopy(e)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[fmt.Sprint(k)] = deepCopy(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = deepCopy(e)
		}
		return out
	default:
		return v
	}
}
