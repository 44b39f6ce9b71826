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


package filter

import (
	"errors"
	"fmt"
	"sort"
)

// SubtractBackgroundDoG removes background with the difference of gaussians method.
// Pixels where the small blur does not exceed the large blur are treated as pure
// background; everything is clamped at zero so no negative intensities remain.
func SubtractBackgroundDoG(data []float32, width int, sigmaMin, sigmaMax float32) []float32 {
	blurMax:=GaussianBlur(data, width, sigmaMax, BoundaryReflect)
	blurMin:=GaussianBlur(data, width, sigmaMin, BoundaryReflect)

	res:=make([]float32, len(data))
	for i,d:=range data {
		v:=float32(0)
		if blurMin[i]>blurMax[i] { v=d }
		v-=blurMax[i]
		if v<0 { v=0 }
		res[i]=v
	}
	return res
}

// SubtractBackgroundMedian removes background with a window median filter.
// The footprint must be odd and should be roughly 3x the size of the peaks
// of interest. Results are clamped at zero.
func SubtractBackgroundMedian(data []float32, width int, footprint int) ([]float32, error) {
	if footprint<1 || footprint%2==0 {
		return nil, errors.New(fmt.Sprintf("invalid median footprint %d, must be odd and positive", footprint))
	}
	height:=len(data)/width
	k:=footprint/2
	buffer:=make([]float32, footprint*footprint)

	res:=make([]float32, len(data))
	for y:=0; y<height; y++ {
		for x:=0; x<width; x++ {
			n:=0
			for dy:=-k; dy<=k; dy++ {
				y1:=reflect(height, y+dy)
				for dx:=-k; dx<=k; dx++ {
					x1:=reflect(width, x+dx)
					buffer[n]=data[y1*width+x1]
					n++
				}
			}
			med:=medianFloat32(buffer)
			v:=data[y*width+x]-med
			if v<0 { v=0 }
			res[y*width+x]=v
		}
	}
	return res, nil
}

// SubtractReference subtracts a user-supplied background pattern, clamping
// negative results to zero
func SubtractReference(data, bg []float32) ([]float32, error) {
	if len(data)!=len(bg) { return nil, errors.New(fmt.Sprintf("background has %d pixels, expected %d", len(bg), len(data))) }
	res:=make([]float32, len(data))
	for i,d:=range data {
		v:=d-bg[i]
		if v<0 { v=0 }
		res[i]=v
	}
	return res, nil
}

// GainNormalize flat-fields a frame with dark and bright reference exposures,
// scaling by the mean dynamic range so overall intensity levels are preserved
func GainNormalize(data, dark, bright []float32) ([]float32, error) {
	if len(dark)!=len(data)   { return nil, errors.New(fmt.Sprintf("dark reference has %d pixels, expected %d", len(dark), len(data))) }
	if len(bright)!=len(data) { return nil, errors.New(fmt.Sprintf("bright reference has %d pixels, expected %d", len(bright), len(data))) }

	sum:=float64(0)
	for i:=range bright { sum+=float64(bright[i]-dark[i]) }
	mean:=float32(sum/float64(len(data)))

	res:=make([]float32, len(data))
	for i,d:=range data {
		res[i]=(d-dark[i])/(bright[i]-dark[i])*mean
	}
	return res, nil
}

// Returns the median of the given values. Sorts the slice in place
func medianFloat32(values []float32) float32 {
	sort.Slice(values, func(i, j int) bool { return values[i]<values[j] })
	if len(values)%2==1 { return values[len(values)/2] }
	return 0.5*(values[len(values)/2-1]+values[len(values)/2])
}
