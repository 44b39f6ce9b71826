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


// Package geom provides the coordinate conventions shared by all detector
// frame processing: pixel index grids relative to an origin, the
// cartesian/polar mapping, and elliptical sampling loci.
//
// The angular convention is theta=-atan2(y,x), so theta=0 points along +x
// and positive angles run anticlockwise when the image is displayed with
// row 0 at the top.
package geom

import (
	"errors"
	"fmt"
	"math"
)

// DefaultOrigin returns the integer-division center of an nx by ny pixel
// grid, the origin used when a caller does not supply one.
func DefaultOrigin(nx, ny int) (ox, oy float64) {
	return float64(nx/2), float64(ny/2)
}

// IndexCoords builds per-pixel x and y coordinates for an ny by nx grid,
// relative to the given origin. Both results are flattened row-major
// slices of length nx*ny, matching the pixel layout of a frame.
func IndexCoords(nx, ny int, ox, oy float64) (xs, ys []float64) {
	xs =make([]float64, nx*ny)
	ys =make([]float64, nx*ny)
	for i:=0; i<ny; i++ {
		for j:=0; j<nx; j++ {
			xs[i*nx+j]=float64(j)-ox
			ys[i*nx+j]=float64(i)-oy
		}
	}
	return xs, ys
}

// CartToPolar converts cartesian coordinates to polar coordinates.
func CartToPolar(x, y float64) (r, theta float64) {
	r    =math.Sqrt(x*x+y*y)
	theta=-math.Atan2(y, x)
	return r, theta
}

// PolarToCart converts polar coordinates to cartesian coordinates.
// Inverse of CartToPolar: the positive quadrant ends up in the bottom
// right corner when plotted.
func PolarToCart(r, theta float64) (x, y float64) {
	x= r*math.Cos(theta)
	y=-r*math.Sin(theta)
	return x, y
}

// CartToPolarAll applies CartToPolar elementwise.
func CartToPolarAll(xs, ys []float64) (rs, thetas []float64) {
	rs    =make([]float64, len(xs))
	thetas=make([]float64, len(xs))
	for i:=range xs {
		rs[i], thetas[i]=CartToPolar(xs[i], ys[i])
	}
	return rs, thetas
}

// EllipsePoints computes the cartesian coordinates of points on a family
// of concentric ellipses around (cx,cy), one ellipse per radius, sampled
// at the given angles. Results are flattened len(radii) x len(thetas)
// slices, radii varying slowest.
//
// axes, if non-nil, holds the major and minor axis lengths; they are
// normalized so that their average scales radii by one, which keeps the
// radial extent of the resampled image comparable to the circular case.
// A nil axes with zero angle reduces to plain circles.
func EllipsePoints(radii, thetas []float64, cx, cy float64, axes []float64, angle float64) (xs, ys []float64, err error) {
	hO, kO:=1.0, 1.0
	if axes!=nil {
		if len(axes)!=2 { return nil, nil, errors.New(fmt.Sprintf("need exactly 2 axis lengths, have %d", len(axes))) }
		avg:=(axes[0]+axes[1])/2
		if avg<=0 { return nil, nil, errors.New("axis lengths must be positive") }
		hO=math.Max(axes[0], axes[1])/avg
		kO=math.Min(axes[0], axes[1])/avg
	}

	sinT:=make([]float64, len(thetas))
	cosT:=make([]float64, len(thetas))
	for j,t:=range thetas {
		sinT[j]=math.Sin(t)
		cosT[j]=math.Cos(t)
	}

	cosA, sinA:=math.Cos(angle), math.Sin(angle)
	xs=make([]float64, len(radii)*len(thetas))
	ys=make([]float64, len(radii)*len(thetas))
	for i,r:=range radii {
		for j:=range thetas {
			// unit circle to ellipse: x picks up sin(theta), y cos(theta)
			xc:=r*sinT[j]*hO
			yc:=r*cosT[j]*kO
			xs[i*len(thetas)+j]=xc*cosA-yc*sinA+cx
			ys[i*len(thetas)+j]=yc*cosA+xc*sinA+cy
		}
	}
	return xs, ys, nil
}
