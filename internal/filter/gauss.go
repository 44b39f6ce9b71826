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


// Package filter provides pixel-level cleanup for diffraction frames:
// separable gaussian filtering, background subtraction, flat-field
// normalization, defective pixel repair and mask synthesis.
package filter

import (
	"math"
)

var sqrt2=float32(math.Sqrt2)

// Boundary selects how convolutions treat out of range coordinates
type Boundary int

const (
	BoundaryReflect Boundary = iota // mirror coordinates at the edges
	BoundaryWrap                    // wrap coordinates around, for periodic signals
)

// Check if coordinate is within [0, size-1], and if not, reflect out of bounds coordinates back into the value range
func reflect(size, x int) int {
	if(x < 0) {
		return -x - 1;
	}
	if(x >= size) {
		return 2*size - x - 1;
	}
	return x;
}

// Check if coordinate is within [0, size-1], and if not, wrap out of bounds coordinates around
func wrap(size, x int) int {
	for x < 0     { x+=size }
	for x >= size { x-=size }
	return x
}

func clampIndex(size, x int, b Boundary) int {
	if b==BoundaryWrap { return wrap(size, x) }
	return reflect(size, x)
}

// Returns the definite integral of the gaussian function with midpoint mu and standard deviation sigma for input x
func GaussianDefiniteIntegral(mu, sigma, x float32) float32 {
	return 0.5 * (1 + float32(math.Erf(   float64((x-mu)/(sqrt2 * sigma)) )) )
}

// Generates a 1D gaussian kernel for the given sigma. Based on symbolic integration via error function
func GaussianKernel1D(sigma float32) (kernel []float32) {
	mu          :=float32(0)

	// Find minimal kernel width for which the area under the curve left of the kernel is below the acceptable error
	acceptOut   :=float32(0.01)
	radius      :=0
	for {
		val:=GaussianDefiniteIntegral(mu, sigma, float32(-0.5)-float32(radius))
		if val < acceptOut {
			radius--
			break
		}
		radius++
	}
	width       :=2*radius+1
	kernel       =make([]float32, width)

	// Calculate left half of the kernel via symbolic integration
	sum         :=float32(0)
	lower       :=GaussianDefiniteIntegral(mu, sigma, float32(-0.5)-float32(radius)             )
	for i:=0; i<=radius; i++ {
		upper   :=GaussianDefiniteIntegral(mu, sigma, float32(-0.5)-float32(radius)+float32(i+1))
		delta   :=upper - lower
		kernel[i]=delta
		sum     +=delta
		lower    =upper
	}

	// Mirror right half of the kernel to avoid numeric instability
	for i:=1; i<=radius; i++ {
		value             := kernel[radius - i]
		kernel[radius + i] = value
		sum               += value
	}

	// Normalize the sum of the kernel to 1, for dealing with the truncated part of the distribution.
	factor:=1.0/sum
	for i,_:=range(kernel) { kernel[i]*=factor }
	return kernel
}

// Convolve the given 2D image provided by data and width with the given convolution kernel along the x axis, and store the result in res
func Convolve1DX(res, data []float32, width int, kernel []float32, b Boundary) {
	height:=len(data)/width
	k := len(kernel) / 2
	for y:=0; y<height; y++ {
		for x:=0; x<width; x++ {
			sum := float32(0.0)
			for i := -k; i <=k; i++ {
				x1 := clampIndex(width, x+i, b)
				sum+= data[y*width+x1]*kernel[i+k]
			}
			res[y*width+x] = sum
		}
	}
}

// Convolve the given 2D image provided by data and width with the given convolution kernel along the y axis, and store the result in res
func Convolve1DY(res, data []float32, width int, kernel []float32, b Boundary) {
	height:=len(data)/width
	k := len(kernel) / 2
	for y:=0; y<height; y++ {
		for x:=0; x<width; x++ {
			sum := float32(0.0)
			for i := -k; i <=k; i++ {
				y1 := clampIndex(height, y+i, b)
				sum+= data[y1*width+x]*kernel[i+k]
			}
			res[y*width+x] = sum
		}
	}
}

// Generates a convolution kernel for a 2D gauss filter of given standard deviation, and applies it to the 2D image given by data and width.
// Overwrites tmp and returns the result in res.
func GaussFilter2D(res, tmp, data[] float32, width int, sigma float32, b Boundary) {
	kernel:=GaussianKernel1D(sigma)
	Convolve1DX(tmp, data, width, kernel, b)
	Convolve1DY(res, tmp,  width, kernel, b)
}

// Applies a 2D gauss filter of given standard deviation, returning the result in a newly allocated array
func GaussianBlur(data []float32, width int, sigma float32, b Boundary) []float32 {
	tmp:=make([]float32, len(data))
	res:=make([]float32, len(data))
	GaussFilter2D(res, tmp, data, width, sigma, b)
	return res
}

// Generates a 1D gaussian kernel in float64 precision, for smoothing profile signals
func gaussianKernel1D64(sigma float64) (kernel []float64) {
	integral:=func(x float64) float64 { return 0.5*(1+math.Erf(x/(math.Sqrt2*sigma))) }

	acceptOut:=0.01
	radius   :=0
	for {
		if integral(-0.5-float64(radius)) < acceptOut {
			radius--
			break
		}
		radius++
	}
	width :=2*radius+1
	kernel =make([]float64, width)

	sum  :=0.0
	lower:=integral(-0.5-float64(radius))
	for i:=0; i<=radius; i++ {
		upper:=integral(-0.5-float64(radius)+float64(i+1))
		kernel[i]=upper-lower
		sum     +=kernel[i]
		lower    =upper
	}
	for i:=1; i<=radius; i++ {
		kernel[radius+i]=kernel[radius-i]
		sum            +=kernel[radius-i]
	}
	factor:=1.0/sum
	for i:=range kernel { kernel[i]*=factor }
	return kernel
}

// Smooth1D applies a gaussian filter of given standard deviation to a 1D signal, reflecting at the boundaries.
// Returns the result in a newly allocated slice
func Smooth1D(signal []float64, sigma float64) []float64 {
	kernel:=gaussianKernel1D64(sigma)
	k:=len(kernel)/2
	res:=make([]float64, len(signal))
	for x:=0; x<len(signal); x++ {
		sum:=0.0
		for i:=-k; i<=k; i++ {
			x1:=reflect(len(signal), x+i)
			sum+=signal[x1]*kernel[i+k]
		}
		res[x]=sum
	}
	return res
}
