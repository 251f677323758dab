// SPDX-License-Identifier: EPL-2.0

package spectral

import (
	"fmt"
	"strings"

	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/dsp/fourier"
)

// FFT creates transform plans for a frame size.
type FFT interface {
	Name() string
	Plan(nfft int) (Plan, error)
}

// Plan is a forward complex DFT of a fixed length. A Plan may keep scratch
// state and must not be shared between goroutines.
type Plan interface {
	Len() int
	// Forward writes the coefficients of src to dst. Both have Len
	// elements.
	Forward(dst, src []complex128)
}

// NewFFT returns the implementation registered under name.
func NewFFT(name string) (FFT, error) {
	switch strings.ToLower(name) {
	case "gonum", "":
		return GonumFFT{}, nil
	case "dsp", "go-dsp":
		return DSPFFT{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFFT, name)
	}
}

// GonumFFT uses gonum.org/v1/gonum/dsp/fourier.
type GonumFFT struct{}

func (GonumFFT) Name() string { return "gonum" }

func (GonumFFT) Plan(nfft int) (Plan, error) {
	if err := checkNfft(nfft); err != nil {
		return nil, err
	}
	return &gonumPlan{fft: fourier.NewCmplxFFT(nfft)}, nil
}

type gonumPlan struct {
	fft *fourier.CmplxFFT
}

func (p *gonumPlan) Len() int { return p.fft.Len() }

func (p *gonumPlan) Forward(dst, src []complex128) {
	p.fft.Coefficients(dst, src)
}

// DSPFFT uses github.com/mjibson/go-dsp/fft.
type DSPFFT struct{}

func (DSPFFT) Name() string { return "dsp" }

func (DSPFFT) Plan(nfft int) (Plan, error) {
	if err := checkNfft(nfft); err != nil {
		return nil, err
	}
	return dspPlan(nfft), nil
}

type dspPlan int

func (p dspPlan) Len() int { return int(p) }

func (p dspPlan) Forward(dst, src []complex128) {
	copy(dst, fft.FFT(src))
}
