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

// CircularMask builds a boolean disc of the given radius. Pixels strictly
// inside the radius around (cRow,cCol) are true. Useful for masking the
// direct beam, or the area outside the detector's useful region.
func CircularMask(width, height int, radius, cRow, cCol float64) []bool {
	mask:=make([]bool, width*height)
	for y:=0; y<height; y++ {
		dy:=float64(y)-cRow
		for x:=0; x<width; x++ {
			dx:=float64(x)-cCol
			mask[y*width+x]= dy*dy+dx*dx < radius*radius
		}
	}
	return mask
}

// ReferenceCircle draws the one pixel wide perimeter of a circle of the
// given radius around (cRow,cCol) into a fresh frame, midpoint algorithm.
// Perimeter pixels are 1, everything else 0. Used as the reference pattern
// when centering the direct beam by cross-correlation.
func ReferenceCircle(width, height, cRow, cCol, radius int) []float32 {
	img:=make([]float32, width*height)
	set:=func(r, c int) {
		if r>=0 && r<height && c>=0 && c<width { img[r*width+c]=1 }
	}
	if radius<=0 {
		set(cRow, cCol)
		return img
	}

	x, y:=radius, 0
	e:=1-radius
	for x>=y {
		set(cRow+y, cCol+x)
		set(cRow+y, cCol-x)
		set(cRow-y, cCol+x)
		set(cRow-y, cCol-x)
		set(cRow+x, cCol+y)
		set(cRow+x, cCol-y)
		set(cRow-x, cCol+y)
		set(cRow-x, cCol-y)
		y++
		if e<0 {
			e+=2*y+1
		} else {
			x--
			e+=2*(y-x)+1
		}
	}
	return img
}
