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


// Package center estimates the position of the direct beam in a diffraction
// frame. Three estimators with different speed/robustness tradeoffs are
// provided: blurred argmax, marginal profile interpolation, and reference
// circle phase correlation.
//
// All positions use the Center type with explicit row/column fields; there
// is exactly one conversion to x/y plotting coordinates, Center.XY.
package center

import (
	"errors"
	"fmt"
	"math"

	"github.com/avheyman/diffrakt/internal/filter"
	"github.com/avheyman/diffrakt/internal/frame"
	"github.com/avheyman/diffrakt/internal/peak"
	"github.com/avheyman/diffrakt/internal/xcorr"
)

// A position in a frame, in pixel row/column coordinates. Row runs down,
// column runs right, (0,0) is the top left pixel center
type Center struct {
	Row float64 `json:"row"`
	Col float64 `json:"col"`
}

// XY converts to x/y plotting coordinates: x is the column, y the row
func (c Center) XY() (x, y float64) { return c.Col, c.Row }

// A displacement between two frame positions, in pixel row/column coordinates
type Offset struct {
	DRow float64 `json:"dRow"`
	DCol float64 `json:"dCol"`
}

// Refinement window half-size for the marginal profile estimator
const interpolateWindow = 10

// FindCenterBlur estimates the direct beam position by blurring the frame
// with a large gaussian kernel and taking the maximum. The blur wraps around
// the frame edges, so a beam bleeding off one edge does not drag the
// estimate towards the border. Whole-pixel precision, very robust
func FindCenterBlur(f *frame.Frame, sigma float32) Center {
	blurred:=filter.GaussianBlur(f.Data, int(f.Width), sigma, filter.BoundaryWrap)
	maxI:=0
	for i,v:=range blurred {
		if v>blurred[maxI] { maxI=i }
	}
	return Center{Row: float64(int32(maxI)/f.Width), Col: float64(int32(maxI)%f.Width)}
}

// FindCenterInterpolate estimates the direct beam position with subpixel
// precision by collapsing the frame into row and column sum profiles and
// locating each profile's peak independently
func FindCenterInterpolate(f *frame.Frame, sigma float64, upsample, kind int) (Center, error) {
	width:=int(f.Width)
	rowSum:=make([]float64, f.Height)
	colSum:=make([]float64, f.Width)
	for y:=0; y<int(f.Height); y++ {
		for x:=0; x<width; x++ {
			d:=float64(f.Data[y*width+x])
			rowSum[y]+=d
			colSum[x]+=d
		}
	}

	row, err:=peak.FindMax(rowSum, sigma, upsample, interpolateWindow, kind)
	if err!=nil { return Center{}, err }
	col, err:=peak.FindMax(colSum, sigma, upsample, interpolateWindow, kind)
	if err!=nil { return Center{}, err }
	return Center{Row: row, Col: col}, nil
}

// FindOffsetCrossCorrelation estimates the displacement of the direct beam
// from the frame center by phase correlation against synthetic circle
// perimeters. Radii in [radiusStart, radiusFinish) are tried at a coarse
// upsampling of 10 with up to maxThreads trials in flight; the radius with
// the smallest registration error wins, ties going to the smallest radius,
// and is re-registered at an upsampling of 100.
//
// The trailing half-pixel correction compensates for the perimeter being
// rendered on integer pixel centers; it is a fixed calibration constant of
// the rendering convention, not derived from the data
func FindOffsetCrossCorrelation(f *frame.Frame, radiusStart, radiusFinish, maxThreads int) (Offset, error) {
	numTrials:=radiusFinish-radiusStart
	if numTrials<1    { return Offset{}, errors.New(fmt.Sprintf("empty radius range [%d,%d)", radiusStart, radiusFinish)) }
	if radiusStart<1  { return Offset{}, errors.New(fmt.Sprintf("invalid start radius %d", radiusStart)) }
	if maxThreads<1   { maxThreads=1 }

	width, height:=int(f.Width), int(f.Height)
	originRow:=int(math.RoundToEven(float64(height)/2))
	originCol:=int(math.RoundToEven(float64(width)/2))

	hann:=xcorr.Hann2D(width, height)
	windowed:=make([]float64, len(f.Data))
	for i,d:=range f.Data {
		windowed[i]=float64(d)*hann[i]
	}

	registerRadius:=func(radius, upsample int) (dRow, dCol, errv float64, err error) {
		ref:=filter.ReferenceCircle(width, height, originRow, originCol, radius)
		refWindowed:=make([]float64, len(ref))
		for i,v:=range ref {
			refWindowed[i]=float64(v)*hann[i]
		}
		return xcorr.Translate(refWindowed, windowed, width, upsample)
	}

	// coarse registration error per radius, with limited concurrency
	errRecord:=make([]float64, numTrials)
	failures :=make([]error, numTrials)
	limiter:=make(chan bool, maxThreads)
	for i:=0; i<numTrials; i++ {
		limiter <- true
		go func(i int) {
			defer func() { <-limiter }()
			_, _, errRecord[i], failures[i]=registerRadius(radiusStart+i, 10)
		}(i)
	}
	for i:=0; i<cap(limiter); i++ {  // wait for goroutines to finish
		limiter <- true
	}
	for _,e:=range failures {
		if e!=nil { return Offset{}, e }
	}

	// deterministic fold: smallest error wins, ties go to the smallest radius
	best:=0
	for i:=1; i<numTrials; i++ {
		if errRecord[i]<errRecord[best] { best=i }
	}

	dRow, dCol, _, err:=registerRadius(radiusStart+best, 100)
	if err!=nil { return Offset{}, err }
	return Offset{DRow: dRow-0.5, DCol: dCol-0.5}, nil
}

// GVectors converts peak positions to calibrated reciprocal space vectors
// relative to the given beam center. Results are (x,y) pairs in reciprocal
// units, x being the column direction
func GVectors(peaks []Center, c Center, calibration float64) [][2]float64 {
	g:=make([][2]float64, len(peaks))
	for i,p:=range peaks {
		g[i]=[2]float64{(p.Col-c.Col)*calibration, (p.Row-c.Row)*calibration}
	}
	return g
}
