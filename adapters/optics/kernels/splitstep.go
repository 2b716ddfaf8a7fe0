package kernels

import (
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"

	"cpasim/domain/core"
	"cpasim/domain/pulse"
)

// DBToNeperPower converts a power coefficient in dB to nepers.
var DBToNeperPower = math.Ln10 / 10

// Operator is one symmetric split-step segment: half linear step in the
// frequency domain, full Kerr step in time, half linear step again.
//
// LinearPerM holds the spectral phase accumulated per meter on each frequency
// sample. NetGainPerM is the power gain minus power loss in 1/m.
type Operator struct {
	LinearPerM  []float64
	NetGainPerM float64
	GammaPerWM  float64

	fft *fourier.CmplxFFT
}

// NewOperator returns an operator for fields of len(linearPerM) samples.
func NewOperator(linearPerM []float64, netGainPerM, gammaPerWM float64) *Operator {
	return &Operator{
		LinearPerM:  linearPerM,
		NetGainPerM: netGainPerM,
		GammaPerWM:  gammaPerWM,
	}
}

// Step advances fieldT by dz meters and returns the new envelope.
func (o *Operator) Step(fieldT []complex128, dz float64) []complex128 {
	out := o.halfLinear(fieldT, dz)
	if o.GammaPerWM != 0 {
		for i, a := range out {
			p := real(a)*real(a) + imag(a)*imag(a)
			out[i] = a * cmplx.Exp(complex(0, o.GammaPerWM*dz*p))
		}
	}
	return o.halfLinear(out, dz)
}

// Propagate runs nSteps equal steps over lengthM.
func (o *Operator) Propagate(fieldT []complex128, lengthM float64, nSteps int) []complex128 {
	dz := lengthM / float64(nSteps)
	out := append([]complex128(nil), fieldT...)
	for i := 0; i < nSteps; i++ {
		out = o.Step(out, dz)
	}
	return out
}

func (o *Operator) linearIdentity() bool {
	if o.NetGainPerM != 0 {
		return false
	}
	for _, v := range o.LinearPerM {
		if v != 0 {
			return false
		}
	}
	return true
}

func (o *Operator) halfLinear(fieldT []complex128, dz float64) []complex128 {
	if o.linearIdentity() {
		return append([]complex128(nil), fieldT...)
	}
	n := len(fieldT)
	if o.fft == nil || o.fft.Len() != n {
		o.fft = fourier.NewCmplxFFT(n)
	}
	amp := math.Exp(0.25 * o.NetGainPerM * dz)
	fieldW := pulse.FFTShift(o.fft.Coefficients(nil, pulse.IFFTShift(fieldT)))
	for i := range fieldW {
		fieldW[i] *= cmplx.Exp(complex(0, 0.5*o.LinearPerM[i]*dz)) * complex(amp, 0)
	}
	seq := o.fft.Sequence(nil, pulse.IFFTShift(fieldW))
	scale := complex(1/float64(n), 0)
	for i := range seq {
		seq[i] *= scale
	}
	return pulse.FFTShift(seq)
}

// ToyAmp is the distributed gain, β2 and Kerr amplifier model.
type ToyAmp struct {
	LengthM      float64
	NSteps       int
	GainDB       float64
	LossDBPerM   float64
	Beta2Fs2PerM float64
	GammaPerWM   float64
}

// PowerGainPerM returns the power gain coefficient g that yields GainDB over LengthM.
func (a ToyAmp) PowerGainPerM() float64 {
	return math.Log(math.Pow(10, a.GainDB/10)) / a.LengthM
}

// LossPerM returns the power loss coefficient α in 1/m.
func (a ToyAmp) LossPerM() float64 {
	return a.LossDBPerM * DBToNeperPower
}

// GainLinear returns exp(g·L).
func (a ToyAmp) GainLinear() float64 {
	return math.Exp(a.PowerGainPerM() * a.LengthM)
}

// Operator builds the split-step operator on angular frequency axis w. The
// half-step dispersion phase is 0.5·β2·w²·dz.
func (a ToyAmp) Operator(w []float64) *Operator {
	linear := make([]float64, len(w))
	for i, wi := range w {
		linear[i] = a.Beta2Fs2PerM * wi * wi
	}
	return NewOperator(linear, a.PowerGainPerM()-a.LossPerM(), a.GammaPerWM)
}

// Propagate advances fieldT through the amplifier.
func (a ToyAmp) Propagate(w []float64, fieldT []complex128) []complex128 {
	return a.Operator(w).Propagate(fieldT, a.LengthM, a.NSteps)
}

// ResolveGainDB returns the segment gain: gainDB when set, otherwise the gain
// needed to reach ampPowerW from powerInAvgW after distributed loss.
func ResolveGainDB(gainDB, ampPowerW *float64, powerInAvgW, lossDBPerM, lengthM float64) (float64, error) {
	if ampPowerW != nil {
		if !(powerInAvgW > 0) {
			return 0, core.NewDomainError("toy amplifier",
				"could not map amp_power_w because input average power is not positive (%g W). Check pulse normalization, rep_rate_mhz, and pulse window",
				powerInAvgW)
		}
		net := *ampPowerW / powerInAvgW
		if !(net > 0) {
			return 0, core.NewDomainError("toy amplifier", "non-positive net gain %g from amp_power_w=%g", net, *ampPowerW)
		}
		return 10*math.Log10(net) + lossDBPerM*lengthM, nil
	}
	if gainDB == nil {
		return 0, fmt.Errorf("%w: toy amplifier requires one of amp_power_w or gain_db", core.ErrConfigInvalid)
	}
	return *gainDB, nil
}
