package pulse

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"

	"cpasim/domain/core"
)

type hashPayload struct {
	Metrics    map[string]float64 `json:"metrics"`
	Grid       PulseGrid          `json:"grid"`
	Beam       BeamState          `json:"beam"`
	FieldT     string             `json:"field_t"`
	FieldW     string             `json:"field_w"`
	IntensityT string             `json:"intensity_t"`
	SpectrumW  string             `json:"spectrum_w"`
}

// Hash returns a content hash over metrics, grid, beam and the raw pulse arrays.
// Metadata and artifacts are excluded because they carry run ids and paths.
func (s *LaserState) Hash() (core.StateHash, error) {
	h, err := core.HashJSON(hashPayload{
		Metrics:    s.Metrics,
		Grid:       s.Pulse.Grid,
		Beam:       s.Beam,
		FieldT:     hashComplex(s.Pulse.FieldT),
		FieldW:     hashComplex(s.Pulse.FieldW),
		IntensityT: hashReal(s.Pulse.IntensityT),
		SpectrumW:  hashReal(s.Pulse.SpectrumW),
	})
	if err != nil {
		return "", fmt.Errorf("failed to hash laser state: %w", err)
	}
	return core.StateHash(h), nil
}

func hashReal(values []float64) string {
	h := sha256.New()
	fmt.Fprintf(h, "float64(%d,)", len(values))
	buf := make([]byte, 8)
	for _, v := range values {
		binary.LittleEndian.PutUint64(buf, math.Float64bits(v))
		h.Write(buf)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func hashComplex(values []complex128) string {
	h := sha256.New()
	fmt.Fprintf(h, "complex128(%d,)", len(values))
	buf := make([]byte, 16)
	for _, v := range values {
		binary.LittleEndian.PutUint64(buf[:8], math.Float64bits(real(v)))
		binary.LittleEndian.PutUint64(buf[8:], math.Float64bits(imag(v)))
		h.Write(buf)
	}
	return hex.EncodeToString(h.Sum(nil))
}
