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


package polar

import (
	"math"

	"github.com/avheyman/diffrakt/internal/frame"
)

// RadialProfile reduces the frame to a 1D profile by azimuthal averaging
// about the geometric frame center. Pixels are binned by their rounded
// distance from the center, shifted half a pixel so the innermost bin sits
// on the center of the central pixels. Masked pixels are excluded; bins
// with no contributing pixels average to zero
func RadialProfile(f *frame.Frame) []float32 {
	cRow:=float64(f.Height)/2-0.5
	cCol:=float64(f.Width)/2-0.5

	width:=int(f.Width)
	var sums  []float64
	var counts []float64
	for y:=0; y<int(f.Height); y++ {
		dy:=float64(y)-cRow
		for x:=0; x<width; x++ {
			if f.Mask!=nil && f.Mask[y*width+x] { continue }
			dx:=float64(x)-cCol
			r:=math.Sqrt(dx*dx+dy*dy)
			bin:=int(math.RoundToEven(r-0.5))
			if bin<0 { bin=0 }
			for bin>=len(sums) {
				sums  =append(sums, 0)
				counts=append(counts, 0)
			}
			sums[bin]  +=float64(f.Data[y*width+x])
			counts[bin]+=1
		}
	}

	profile:=make([]float32, len(sums))
	for i:=range sums {
		if counts[i]>0 {
			profile[i]=float32(sums[i]/counts[i])
		}
	}
	return profile
}
