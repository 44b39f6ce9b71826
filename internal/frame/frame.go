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


// Package frame holds the 2D detector frame type shared by the whole
// pipeline, with basic statistics, a noise estimate and TIFF/PNG/JPEG I/O.
package frame

import (
	"fmt"
	"math"
)

// A single 2D detector frame. Pixel data is stored as a flat row-major
// float32 slice of length Width*Height.
type Frame struct {
	ID       int         // Sequential ID number, for log output. Counted upwards from 0 for data frames. By convention, dark is -1 and bright is -2
	FileName string      // Original file name, if any, for log output.

	Width  int32         // Frame width in pixels, the most quickly varying dimension
	Height int32         // Frame height in pixels

	Data   []float32     // The pixel data

	Mask   []bool        // Optional per-pixel validity mask, true marks an invalid pixel. Nil if all pixels are valid

	Beam   *Point        // Estimated direct beam position, if a centering step ran. Nil otherwise

	Stats  *Stats        // Basic pixel statistics: min, mean, max, standard deviation
}

// A subpixel position in a frame, in row/column pixel coordinates
type Point struct {
	Row float64 `json:"row"`
	Col float64 `json:"col"`
}

// Basic statistics of a pixel array
type Stats struct {
	Min    float32
	Max    float32
	Mean   float32
	StdDev float32
}

// Calculates basic statistics for the given pixel data. NaN pixels are skipped
func NewStats(data []float32) *Stats {
	min, max:=float32(math.MaxFloat32), float32(-math.MaxFloat32)
	sum, sumSq, count:=float64(0), float64(0), 0
	for _,d:=range data {
		if math.IsNaN(float64(d)) { continue }
		if d<min { min=d }
		if d>max { max=d }
		sum  +=float64(d)
		sumSq+=float64(d)*float64(d)
		count++
	}
	if count==0 { return &Stats{} }
	mean:=sum/float64(count)
	variance:=sumSq/float64(count)-mean*mean
	if variance<0 { variance=0 }
	return &Stats{
		Min:    min,
		Max:    max,
		Mean:   float32(mean),
		StdDev: float32(math.Sqrt(variance)),
	}
}

func (s *Stats) String() string {
	return fmt.Sprintf("min %.4g mean %.4g max %.4g stddev %.4g", s.Min, s.Mean, s.Max, s.StdDev)
}

// Creates a frame of the given dimensions. Data is not copied, allocated if nil
func NewFrame(width, height int32, data []float32) *Frame {
	if data==nil {
		data=make([]float32, width*height)
	}
	return &Frame{
		ID:       0,
		FileName: "",
		Width:    width,
		Height:   height,
		Data:     data,
		Mask:     nil,
		Stats:    NewStats(data),
	}
}

// Creates a frame with the dimensions, ID, mask and beam position of the
// given frame. A new data array is allocated
func NewFrameFromFrame(f *Frame) *Frame {
	data:=make([]float32, f.Width*f.Height)
	return &Frame{
		ID:       f.ID,
		FileName: f.FileName,
		Width:    f.Width,
		Height:   f.Height,
		Data:     data,
		Mask:     f.Mask,
		Beam:     f.Beam,
		Stats:    NewStats(data),
	}
}

// Number of pixels in the frame
func (f *Frame) Pixels() int32 { return f.Width*f.Height }

func (f *Frame) DimensionsToString() string {
	return fmt.Sprintf("%dx%d", f.Width, f.Height)
}

// Pixel accessor for row/column indices
func (f *Frame) At(row, col int32) float32 {
	return f.Data[row*f.Width+col]
}

// Recomputes the frame statistics after the data was modified in place
func (f *Frame) UpdateStats() {
	f.Stats=NewStats(f.Data)
}
