// Copyright (C) 2026 The diffrakt authors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.


// Package xcorr registers the translation between two frames by phase
// cross-correlation in the frequency domain. The coarse estimate from the
// correlation peak is refined to subpixel precision with a matrix-multiply
// discrete Fourier transform evaluated on an upsampled grid around the peak.
package xcorr

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Translate returns the (row, column) shift that maps img onto ref, with a
// precision of 1/upsample pixels, and the normalized registration error.
// Both frames must have identical dimensions.
func Translate(ref, img []float64, width, upsample int) (dRow, dCol, errv float64, err error) {
	if len(ref)!=len(img)  { return 0, 0, 0, errors.New(fmt.Sprintf("frame sizes differ: %d vs %d", len(ref), len(img))) }
	if width<1 || len(ref)%width!=0 { return 0, 0, 0, errors.New(fmt.Sprintf("invalid width %d for %d pixels", width, len(ref))) }
	if upsample<1 { return 0, 0, 0, errors.New(fmt.Sprintf("invalid upsample factor %d", upsample)) }
	height:=len(ref)/width

	srcFreq:=fft2(ref, width, height)
	tgtFreq:=fft2(img, width, height)

	// cross power spectrum
	product:=make([]complex128, len(srcFreq))
	for i:=range product {
		product[i]=srcFreq[i]*cmplx.Conj(tgtFreq[i])
	}

	// coarse peak of the correlation surface
	cc:=ifft2(product, width, height)
	maxI, maxAbs:=0, 0.0
	for i,v:=range cc {
		if a:=cmplx.Abs(v); a>maxAbs {
			maxI, maxAbs=i, a
		}
	}
	dRow, dCol=float64(maxI/width), float64(maxI%width)
	if dRow>float64(height/2) { dRow-=float64(height) }
	if dCol>float64(width/2)  { dCol-=float64(width) }

	size:=float64(width*height)
	if upsample==1 {
		ccMax:=cc[maxI]/complex(size, 0)
		srcAmp:=sumAbs2(srcFreq)/size
		tgtAmp:=sumAbs2(tgtFreq)/size
		errv=registrationError(ccMax, srcAmp, tgtAmp)
		return dRow, dCol, errv, nil
	}

	// refine the estimate on an upsampled grid around the coarse peak
	u:=float64(upsample)
	dRow=math.Round(dRow*u)/u
	dCol=math.Round(dCol*u)/u
	region:=int(math.Ceil(1.5*u))
	dftShift:=math.Trunc(float64(region)/2)
	normalization:=size*u*u

	for i:=range product {
		product[i]=cmplx.Conj(product[i])
	}
	cc2:=upsampledDFT(product, width, height, region, u, dftShift-dRow*u, dftShift-dCol*u)
	maxI, maxAbs=0, 0.0
	for i:=range cc2 {
		cc2[i]=cmplx.Conj(cc2[i])/complex(normalization, 0)
		if a:=cmplx.Abs(cc2[i]); a>maxAbs {
			maxI, maxAbs=i, a
		}
	}

	dRow+=(float64(maxI/region)-dftShift)/u
	dCol+=(float64(maxI%region)-dftShift)/u

	srcAmp:=sumAbs2(srcFreq)/normalization
	tgtAmp:=sumAbs2(tgtFreq)/normalization
	errv=registrationError(cc2[maxI], srcAmp, tgtAmp)
	return dRow, dCol, errv, nil
}

func registrationError(ccMax complex128, srcAmp, tgtAmp float64) float64 {
	a:=cmplx.Abs(ccMax)
	return math.Sqrt(math.Abs(1-a*a/(srcAmp*tgtAmp)))
}

func sumAbs2(values []complex128) float64 {
	sum:=0.0
	for _,v:=range values {
		sum+=real(v)*real(v)+imag(v)*imag(v)
	}
	return sum
}

// fft2 computes the unnormalized 2D DFT of a height x width real image,
// as a row pass followed by a column pass of 1D transforms
func fft2(data []float64, width, height int) []complex128 {
	out:=make([]complex128, len(data))
	for i,d:=range data {
		out[i]=complex(d, 0)
	}

	rowFFT:=fourier.NewCmplxFFT(width)
	seq:=make([]complex128, width)
	for y:=0; y<height; y++ {
		copy(seq, out[y*width:(y+1)*width])
		rowFFT.Coefficients(out[y*width:(y+1)*width], seq)
	}

	colFFT:=fourier.NewCmplxFFT(height)
	col:=make([]complex128, height)
	colOut:=make([]complex128, height)
	for x:=0; x<width; x++ {
		for y:=0; y<height; y++ {
			col[y]=out[y*width+x]
		}
		colFFT.Coefficients(colOut, col)
		for y:=0; y<height; y++ {
			out[y*width+x]=colOut[y]
		}
	}
	return out
}

// ifft2 computes the unnormalized 2D inverse DFT. The result carries a
// factor of width*height relative to the true inverse
func ifft2(coeffs []complex128, width, height int) []complex128 {
	out:=make([]complex128, len(coeffs))
	copy(out, coeffs)

	rowFFT:=fourier.NewCmplxFFT(width)
	seq:=make([]complex128, width)
	for y:=0; y<height; y++ {
		copy(seq, out[y*width:(y+1)*width])
		rowFFT.Sequence(out[y*width:(y+1)*width], seq)
	}

	colFFT:=fourier.NewCmplxFFT(height)
	col:=make([]complex128, height)
	colOut:=make([]complex128, height)
	for x:=0; x<width; x++ {
		for y:=0; y<height; y++ {
			col[y]=out[y*width+x]
		}
		colFFT.Sequence(colOut, col)
		for y:=0; y<height; y++ {
			out[y*width+x]=colOut[y]
		}
	}
	return out
}

// fftFreqIndex maps a DFT bin to its signed frequency index
func fftFreqIndex(i, n int) float64 {
	if i<=(n-1)/2 { return float64(i) }
	return float64(i-n)
}

// upsampledDFT evaluates the DFT of the given frequency-domain data on a
// region x region output grid with sample spacing 1/u pixels, offset so the
// grid is centered on the coarse shift estimate. Matrix-multiply DFT, one
// kernel per axis
func upsampledDFT(data []complex128, width, height, region int, u, offRow, offCol float64) []complex128 {
	rowKernel:=make([]complex128, region*height)
	for k:=0; k<region; k++ {
		for y:=0; y<height; y++ {
			phase:=-2*math.Pi*(float64(k)-offRow)*fftFreqIndex(y, height)/(float64(height)*u)
			rowKernel[k*height+y]=cmplx.Exp(complex(0, phase))
		}
	}
	colKernel:=make([]complex128, region*width)
	for k:=0; k<region; k++ {
		for x:=0; x<width; x++ {
			phase:=-2*math.Pi*(float64(k)-offCol)*fftFreqIndex(x, width)/(float64(width)*u)
			colKernel[k*width+x]=cmplx.Exp(complex(0, phase))
		}
	}

	// contract the row axis, then the column axis
	tmp:=make([]complex128, region*width)
	for k:=0; k<region; k++ {
		for x:=0; x<width; x++ {
			sum:=complex(0, 0)
			for y:=0; y<height; y++ {
				sum+=rowKernel[k*height+y]*data[y*width+x]
			}
			tmp[k*width+x]=sum
		}
	}
	out:=make([]complex128, region*region)
	for k1:=0; k1<region; k1++ {
		for k2:=0; k2<region; k2++ {
			sum:=complex(0, 0)
			for x:=0; x<width; x++ {
				sum+=tmp[k1*width+x]*colKernel[k2*width+x]
			}
			out[k1*region+k2]=sum
		}
	}
	return out
}

// Hann returns the n point Hann window
func Hann(n int) []float64 {
	w:=make([]float64, n)
	if n==1 {
		w[0]=1
		return w
	}
	for i:=range w {
		w[i]=0.5-0.5*math.Cos(2*math.Pi*float64(i)/float64(n-1))
	}
	return w
}

// Hann2D returns the square root of the outer product of the per-axis Hann
// windows, the standard apodization before phase correlation
func Hann2D(width, height int) []float64 {
	hRow:=Hann(height)
	hCol:=Hann(width)
	w:=make([]float64, width*height)
	for y:=0; y<height; y++ {
		for x:=0; x<width; x++ {
			w[y*width+x]=math.Sqrt(hRow[y]*hCol[x])
		}
	}
	return w
}
