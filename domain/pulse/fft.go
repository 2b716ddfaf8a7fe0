package pulse

import (
	"gonum.org/v1/gonum/dsp/fourier"
)

// Forward returns fftshift(FFT(ifftshift(x))), the spectrum on the shifted frequency axis.
func Forward(x []complex128) []complex128 {
	n := len(x)
	if n == 0 {
		return nil
	}
	fft := fourier.NewCmplxFFT(n)
	return FFTShift(fft.Coefficients(nil, IFFTShift(x)))
}

// Inverse returns fftshift(IFFT(ifftshift(x))) with 1/n normalization.
func Inverse(x []complex128) []complex128 {
	n := len(x)
	if n == 0 {
		return nil
	}
	fft := fourier.NewCmplxFFT(n)
	seq := fft.Sequence(nil, IFFTShift(x))
	scale := complex(1/float64(n), 0)
	for i := range seq {
		seq[i] *= scale
	}
	return FFTShift(seq)
}

// FFTShift moves the zero-frequency bin to the center.
func FFTShift(x []complex128) []complex128 {
	return roll(x, len(x)/2)
}

// IFFTShift undoes FFTShift.
func IFFTShift(x []complex128) []complex128 {
	return roll(x, -(len(x) / 2))
}

func roll(x []complex128, k int) []complex128 {
	n := len(x)
	out := make([]complex128, n)
	if n == 0 {
		return out
	}
	k = ((k % n) + n) % n
	for i, v := range x {
		out[(i+k)%n] = v
	}
	return out
}
