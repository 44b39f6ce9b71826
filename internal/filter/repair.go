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
	"math"

	"github.com/valyala/fastrand"
)

// A defective detector pixel, in row/column indices
type DeadPixel struct {
	Row int32 `json:"row"`
	Col int32 `json:"col"`
}

// Modes for treating dead pixels in RepairDead
const (
	DeadAverage = "average" // replace with the mean of the surrounding window
	DeadNaN     = "nan"     // mark with NaN for downstream masking
)

// RepairDead removes known defective pixels from a frame. d gives the window
// radius for the average mode. Returns a repaired copy of the data.
func RepairDead(data []float32, width int, pixels []DeadPixel, mode string, d int32) ([]float32, error) {
	height:=int32(len(data))/int32(width)
	res:=make([]float32, len(data))
	copy(res, data)

	switch mode {
	case DeadAverage:
		for _,p:=range pixels {
			if p.Row<0 || p.Row>=height || p.Col<0 || p.Col>=int32(width) {
				return nil, errors.New(fmt.Sprintf("dead pixel (%d,%d) outside %dx%d frame", p.Row, p.Col, width, height))
			}
			sum, count:=float32(0), 0
			for y:=p.Row-d; y<=p.Row+d; y++ {
				if y<0 || y>=height { continue }
				for x:=p.Col-d; x<=p.Col+d; x++ {
					if x<0 || x>=int32(width) { continue }
					sum+=data[y*int32(width)+x]
					count++
				}
			}
			res[p.Row*int32(width)+p.Col]=sum/float32(count)
		}
	case DeadNaN:
		for _,p:=range pixels {
			if p.Row<0 || p.Row>=height || p.Col<0 || p.Col>=int32(width) {
				return nil, errors.New(fmt.Sprintf("dead pixel (%d,%d) outside %dx%d frame", p.Row, p.Col, width, height))
			}
			res[p.Row*int32(width)+p.Col]=float32(math.NaN())
		}
	default:
		return nil, errors.New(fmt.Sprintf("dead pixel mode '%s' not implemented", mode))
	}
	return res, nil
}

// FindHotPixels detects defective pixels which differ from their local
// 9-neighborhood median by more than sigma times the estimated standard
// deviation of that difference. The standard deviation is estimated from a
// random 1% sample of pixels to stay cheap on large frames.
func FindHotPixels(data []float32, width int, sigma float32) []DeadPixel {
	mask:=neighborhoodMask(int32(width), 1.5)
	buffer:=make([]float32, len(mask))

	// Estimate standard deviation of pixels from their local neighborhood median
	numSamples:=len(data)/100
	if numSamples<64 { numSamples=len(data) }
	sumD, sumD2:=float64(0), float64(0)
	rng:=fastrand.RNG{}
	for i:=0; i<numSamples; i++ {
		index:=int32(rng.Uint32n(uint32(len(data))))
		median:=gatherMedian(data, index, mask, buffer)
		d:=float64(data[index]-median)
		sumD +=d
		sumD2+=d*d
	}
	mean  :=sumD/float64(numSamples)
	stdDev:=float32(math.Sqrt(sumD2/float64(numSamples)-mean*mean))

	threshold:=sigma*stdDev
	var hot []DeadPixel
	for i:=range data {
		median:=gatherMedian(data, int32(i), mask, buffer)
		d:=data[i]-median
		if d<0 { d=-d }
		if d>threshold {
			hot=append(hot, DeadPixel{Row: int32(i)/int32(width), Col: int32(i)%int32(width)})
		}
	}
	return hot
}

// Creates a neighborhood mask of given radius as a list of index offsets
func neighborhoodMask(width int32, radius float32) []int32 {
	mask:=[]int32{}
	rad:=int32(radius)
	for y:=-rad; y<=rad; y++ {
		for x:=-rad; x<=rad; x++ {
			if float32(x*x+y*y)<=radius*radius {
				mask=append(mask, y*width+x)
			}
		}
	}
	return mask
}

// Gathers the masked neighborhood of the given index into the buffer and
// returns its median. Offsets outside the data range are ignored
func gatherMedian(data []float32, index int32, mask []int32, buffer []float32) float32 {
	n:=0
	for _,o:=range mask {
		i:=index+o
		if i>=0 && i<int32(len(data)) {
			buffer[n]=data[i]
			n++
		}
	}
	return medianFloat32(buffer[:n])
}
