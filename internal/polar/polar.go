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


// Package polar resamples diffraction frames from detector coordinates
// into polar coordinates, and reduces them to radial profiles.
package polar

import (
	"errors"
	"fmt"
	"math"

	"github.com/avheyman/diffrakt/internal/frame"
	"github.com/avheyman/diffrakt/internal/geom"
)

// Sentinel values marking invalid pixels during and after resampling.
// Masked input pixels are driven far negative before interpolation so that
// anything touching them stays negative, then flattened to maskedOut
const (
	maskedIn  = -999999
	maskedOut = -10
)

// An elliptical sampling geometry for Reproject. Major/Minor of 0 select a
// circular geometry; the axes are otherwise normalized so their average
// scales radii by one
type Ellipse struct {
	CenterRow float64 `json:"centerRow"`
	CenterCol float64 `json:"centerCol"`
	Major     float64 `json:"major"`
	Minor     float64 `json:"minor"`
	Angle     float64 `json:"angle"` // rotation of the major axis in radians
}

// DefaultEllipse returns a circular geometry centered on the frame
func DefaultEllipse(f *frame.Frame) Ellipse {
	return Ellipse{CenterRow: float64(f.Height)/2, CenterCol: float64(f.Width)/2}
}

// Reproject resamples the frame onto an elliptical polar grid. Rows of the
// output are radii radiusStart..radiusEnd-1, columns are phaseWidth angles
// equally spaced over [0,2pi). The output always has exactly
// (radiusEnd-radiusStart) x phaseWidth pixels.
//
// Sampling is bilinear with linear extrapolation beyond the frame edges.
// Masked input pixels poison every output sample interpolated from them;
// such samples are set to the -10 sentinel and flagged in the output mask,
// so callers can use either convention
func Reproject(f *frame.Frame, ell Ellipse, radiusStart, radiusEnd, phaseWidth int) (*frame.Frame, error) {
	if radiusEnd<radiusStart { return nil, errors.New(fmt.Sprintf("invalid radius range [%d,%d)", radiusStart, radiusEnd)) }
	if phaseWidth<1 { return nil, errors.New(fmt.Sprintf("invalid phase width %d", phaseWidth)) }

	radii:=make([]float64, radiusEnd-radiusStart)
	for i:=range radii { radii[i]=float64(radiusStart+i) }
	thetas:=make([]float64, phaseWidth)
	for j:=range thetas { thetas[j]=2*math.Pi*float64(j)/float64(phaseWidth) }

	var axes []float64
	if ell.Major!=0 || ell.Minor!=0 {
		axes=[]float64{ell.Major, ell.Minor}
	}
	xs, ys, err:=geom.EllipsePoints(radii, thetas, ell.CenterCol, ell.CenterRow, axes, ell.Angle)
	if err!=nil { return nil, err }

	// drive masked pixels far negative so interpolation poisons neighbors
	intensity:=make([]float64, len(f.Data))
	for i,d:=range f.Data { intensity[i]=float64(d) }
	if f.Mask!=nil {
		for i,m:=range f.Mask {
			if m { intensity[i]=maskedIn }
		}
	}

	out:=frame.NewFrame(int32(phaseWidth), int32(len(radii)), nil)
	out.ID, out.FileName=f.ID, f.FileName
	out.Mask=make([]bool, len(out.Data))
	for i:=range out.Data {
		v:=sampleBilinearExtrapolate(intensity, int(f.Width), int(f.Height), xs[i], ys[i])
		if v<0 {
			out.Data[i]=maskedOut
			out.Mask[i]=true
		} else {
			out.Data[i]=float32(v)
		}
	}
	out.UpdateStats()
	return out, nil
}

// ReprojectGrid resamples the frame onto a regular polar grid spanning the
// full radius and angle extent observed over the frame, with radial spacing
// dr and angular spacing dt. A dt of zero picks the angle count as the
// larger frame dimension. With jacobian set, each row is scaled by its
// radius to account for the changing pixel area of the transform.
// Samples outside the frame are zero
func ReprojectGrid(f *frame.Frame, ox, oy float64, jacobian bool, dr, dt float64) (*frame.Frame, error) {
	if dr<=0 { return nil, errors.New(fmt.Sprintf("invalid radial spacing %g", dr)) }
	if dt<0  { return nil, errors.New(fmt.Sprintf("invalid angular spacing %g", dt)) }

	width, height:=int(f.Width), int(f.Height)
	xs, ys:=geom.IndexCoords(width, height, ox, oy)
	rs, thetas:=geom.CartToPolarAll(xs, ys)

	rMin, rMax:=minMax(rs)
	tMin, tMax:=minMax(thetas)

	nr:=int(math.Ceil((rMax-rMin)/dr))
	var nt int
	if dt==0 {
		nt=width
		if height>width { nt=height }
	} else {
		nt=int(math.Ceil((tMax-tMin)/dt))
	}
	if nr<1 || nt<1 { return nil, errors.New(fmt.Sprintf("degenerate polar grid %dx%d", nr, nt)) }

	intensity:=make([]float64, len(f.Data))
	for i,d:=range f.Data { intensity[i]=float64(d) }

	out:=frame.NewFrame(int32(nt), int32(nr), nil)
	out.ID, out.FileName=f.ID, f.FileName
	for i:=0; i<nr; i++ {
		r:=rMin+float64(i)*(rMax-rMin)/float64(nr)
		for j:=0; j<nt; j++ {
			theta:=tMin+float64(j)*(tMax-tMin)/float64(nt)
			x, y:=geom.PolarToCart(r, theta)
			x+=ox
			y+=oy
			v:=sampleBilinearZero(intensity, width, height, x, y)
			if jacobian { v*=r }
			out.Data[i*nt+j]=float32(v)
		}
	}
	out.UpdateStats()
	return out, nil
}

// Bilinear sample at column x, row y, extrapolating linearly outside the
// grid. Dimensions of a single pixel degenerate to constant interpolation
// along that axis
func sampleBilinearExtrapolate(data []float64, width, height int, x, y float64) float64 {
	ix, tx:=0, 0.0
	if width>1 {
		ix=int(math.Floor(x))
		if ix<0 { ix=0 }
		if ix>width-2 { ix=width-2 }
		tx=x-float64(ix)
	}
	iy, ty:=0, 0.0
	if height>1 {
		iy=int(math.Floor(y))
		if iy<0 { iy=0 }
		if iy>height-2 { iy=height-2 }
		ty=y-float64(iy)
	}
	ix1, iy1:=ix, iy
	if width>1  { ix1=ix+1 }
	if height>1 { iy1=iy+1 }

	v00:=data[iy*width+ix]
	v01:=data[iy*width+ix1]
	v10:=data[iy1*width+ix]
	v11:=data[iy1*width+ix1]
	return (1-ty)*((1-tx)*v00+tx*v01)+ty*((1-tx)*v10+tx*v11)
}

// Bilinear sample at column x, row y, zero outside the grid
func sampleBilinearZero(data []float64, width, height int, x, y float64) float64 {
	if x<0 || y<0 || x>float64(width-1) || y>float64(height-1) { return 0 }
	return sampleBilinearExtrapolate(data, width, height, x, y)
}

func minMax(values []float64) (min, max float64) {
	min, max=values[0], values[0]
	for _,v:=range values {
		if v<min { min=v }
		if v>max { max=v }
	}
	return min, max
}
