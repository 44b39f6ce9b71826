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


// Package peak locates the maximum of a 1D intensity profile with subpixel
// precision, by gaussian smoothing followed by local spline refinement.
package peak

import (
	"errors"
	"fmt"

	"github.com/avheyman/diffrakt/internal/filter"
	"gonum.org/v1/gonum/interp"
)

// Interpolation kinds for the local refinement step
const (
	KindNearest = 0 // piecewise constant
	KindLinear  = 1 // piecewise linear
	KindCubic   = 3 // cubic spline, not-a-knot boundary
)

// FindMax returns the subpixel position of the maximum of signal.
//
// The signal is first smoothed with a gaussian of the given sigma, and the
// sample index of the smoothed maximum taken as coarse estimate c1. A spline
// of the selected kind is then fitted to the 2*window+1 samples around c1 and
// evaluated on a grid upsample times finer; the refined position is the
// argmax of that grid divided by upsample, shifted back to signal
// coordinates. If c1 lies within window samples of either signal edge, the
// refinement window would leave the signal; the coarse estimate is then
// returned as is.
//
// Unsupported kinds fail with an error before any smoothing happens.
func FindMax(signal []float64, sigma float64, upsample, window, kind int) (float64, error) {
	if upsample<1 { return 0, errors.New(fmt.Sprintf("invalid upsample factor %d", upsample)) }
	if window<1   { return 0, errors.New(fmt.Sprintf("invalid window %d", window)) }
	p, err:=predictorForKind(kind)
	if err!=nil { return 0, err }
	if len(signal)==0 { return 0, errors.New("empty signal") }

	y1:=filter.Smooth1D(signal, sigma)
	c1:=argmax(y1)

	w:=window
	if c1-w<0 || c1+w+1>len(y1) {
		// too close to the edges for refinement, keep the coarse estimate
		return float64(c1), nil
	}

	xs:=make([]float64, 2*w+1)
	for i:=range xs { xs[i]=float64(c1-w+i) }
	if err:=p.Fit(xs, y1[c1-w:c1+w+1]); err!=nil { return 0, err }

	// evaluate on a grid upsample times finer than the sample spacing
	n:=(2*w+1)*upsample
	step:=float64(2*w)/float64(n-1)
	best, bestV:=0, p.Predict(float64(c1-w))
	for i:=1; i<n; i++ {
		v:=p.Predict(float64(c1-w)+float64(i)*step)
		if v>bestV {
			best, bestV=i, v
		}
	}
	c2:=float64(best)/float64(upsample)
	return c2+float64(c1-w), nil
}

func predictorForKind(kind int) (interp.FittablePredictor, error) {
	switch kind {
	case KindNearest:
		return &interp.PiecewiseConstant{}, nil
	case KindLinear:
		return &interp.PiecewiseLinear{}, nil
	case KindCubic:
		return &interp.NotAKnotCubic{}, nil
	}
	return nil, errors.New(fmt.Sprintf("unsupported interpolation kind %d", kind))
}

// Index of the first maximal element
func argmax(values []float64) int {
	best:=0
	for i,v:=range values {
		if v>values[best] { best=i }
	}
	return best
}
