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
	"testing"

	"github.com/avheyman/diffrakt/internal/frame"
)

// frame with intensity equal to the distance from the given center
func radialRamp(width, height int32, cRow, cCol float64) *frame.Frame {
	f := frame.NewFrame(width, height, nil)
	for y := int32(0); y < height; y++ {
		for x := int32(0); x < width; x++ {
			dy := float64(y) - cRow
			dx := float64(x) - cCol
			f.Data[y*width+x] = float32(math.Sqrt(dy*dy + dx*dx))
		}
	}
	f.UpdateStats()
	return f
}

func TestReprojectShape(t *testing.T) {
	f := frame.NewFrame(64, 64, nil)
	out, err := Reproject(f, DefaultEllipse(f), 5, 25, 90)
	if err != nil {
		t.Fatalf("unexpected error %s", err.Error())
	}
	if out.Width != 90 || out.Height != 20 {
		t.Errorf("shape %s; want 90x20", out.DimensionsToString())
	}

	// empty radius range yields a zero-row frame, not an error
	out, err = Reproject(f, DefaultEllipse(f), 10, 10, 90)
	if err != nil {
		t.Fatalf("unexpected error %s", err.Error())
	}
	if out.Height != 0 || len(out.Data) != 0 {
		t.Errorf("empty range shape %s; want 90x0", out.DimensionsToString())
	}

	if _, err = Reproject(f, DefaultEllipse(f), 10, 5, 90); err == nil {
		t.Errorf("expected error for inverted radius range")
	}
	if _, err = Reproject(f, DefaultEllipse(f), 0, 10, 0); err == nil {
		t.Errorf("expected error for zero phase width")
	}
}

func TestReprojectSinglePixelDimensions(t *testing.T) {
	// one-pixel frames degenerate to constant extrapolation instead of
	// indexing past the grid
	f := frame.NewFrame(1, 1, []float32{5})
	out, err := Reproject(f, DefaultEllipse(f), 0, 3, 8)
	if err != nil {
		t.Fatalf("unexpected error %s", err.Error())
	}
	for i, v := range out.Data {
		if v != 5 {
			t.Errorf("sample %d = %f; want 5", i, v)
		}
	}

	// single-row frame: constant along the degenerate axis only
	f = frame.NewFrame(3, 1, []float32{5, 5, 5})
	out, err = Reproject(f, DefaultEllipse(f), 0, 2, 8)
	if err != nil {
		t.Fatalf("unexpected error %s", err.Error())
	}
	for i, v := range out.Data {
		if v != 5 {
			t.Errorf("row sample %d = %f; want 5", i, v)
		}
	}
}

func TestReprojectRadialRamp(t *testing.T) {
	// for a circularly symmetric radial ramp, every row of the polar image
	// is approximately constant at its radius
	f := radialRamp(64, 64, 32, 32)
	out, err := Reproject(f, DefaultEllipse(f), 2, 20, 180)
	if err != nil {
		t.Fatalf("unexpected error %s", err.Error())
	}
	for i := int32(0); i < out.Height; i++ {
		r := float32(2 + i)
		for j := int32(0); j < out.Width; j++ {
			if math.Abs(float64(out.At(i, j)-r)) > 0.1 {
				t.Errorf("row %d col %d = %f; want ~%f", i, j, out.At(i, j), r)
				break
			}
		}
	}
}

func TestReprojectMaskPropagation(t *testing.T) {
	f := radialRamp(64, 64, 32, 32)
	f.Mask = make([]bool, len(f.Data))
	// mask a block to the right of the center
	for y := 28; y < 37; y++ {
		for x := 40; x < 48; x++ {
			f.Mask[y*64+x] = true
		}
	}

	out, err := Reproject(f, DefaultEllipse(f), 5, 20, 360)
	if err != nil {
		t.Fatalf("unexpected error %s", err.Error())
	}
	masked, clean := 0, 0
	for i, v := range out.Data {
		if out.Mask[i] {
			masked++
			if v != -10 {
				t.Fatalf("masked output pixel %d = %f; want -10", i, v)
			}
		} else {
			clean++
			if v < 0 {
				t.Fatalf("clean output pixel %d = %f; want >=0", i, v)
			}
		}
	}
	if masked == 0 {
		t.Errorf("mask did not propagate to output")
	}
	if clean == 0 {
		t.Errorf("mask swallowed the whole output")
	}
}

func TestReprojectEllipticalGeometry(t *testing.T) {
	// an elliptical intensity distribution resampled with matching axes
	// becomes circular: rows approximately constant
	width, height := int32(128), int32(128)
	f := frame.NewFrame(width, height, nil)
	major, minor := 2.0, 1.0
	avg := (major + minor) / 2
	for y := int32(0); y < height; y++ {
		for x := int32(0); x < width; x++ {
			dy := (float64(y) - 64) / (minor / avg)
			dx := (float64(x) - 64) / (major / avg)
			f.Data[y*width+x] = float32(math.Sqrt(dy*dy + dx*dx))
		}
	}

	ell := Ellipse{CenterRow: 64, CenterCol: 64, Major: major, Minor: minor}
	out, err := Reproject(f, ell, 5, 25, 180)
	if err != nil {
		t.Fatalf("unexpected error %s", err.Error())
	}
	for i := int32(0); i < out.Height; i++ {
		min, max := out.At(i, 0), out.At(i, 0)
		for j := int32(1); j < out.Width; j++ {
			if out.At(i, j) < min {
				min = out.At(i, j)
			}
			if out.At(i, j) > max {
				max = out.At(i, j)
			}
		}
		if max-min > 0.2 {
			t.Errorf("row %d spread %f; want ~constant", i, max-min)
		}
	}
}

func TestReprojectGrid(t *testing.T) {
	f := radialRamp(64, 64, 32, 32)
	out, err := ReprojectGrid(f, 32, 32, false, 1, 0)
	if err != nil {
		t.Fatalf("unexpected error %s", err.Error())
	}
	if out.Width != 64 {
		t.Errorf("nt=%d; want 64", out.Width)
	}
	// interior rows of the ramp are approximately their radius
	nt := int32(out.Width)
	for i := int32(2); i < out.Height/2; i++ {
		v := out.At(i, nt/4)
		want := float64(i) * float64(32) * math.Sqrt2 / float64(out.Height)
		if math.Abs(float64(v)-want) > 1.5 {
			t.Errorf("row %d = %f; want ~%f", i, v, want)
		}
	}
}

func TestReprojectGridJacobian(t *testing.T) {
	f := frame.NewFrame(32, 32, nil)
	for i := range f.Data {
		f.Data[i] = 1
	}
	plain, err := ReprojectGrid(f, 16, 16, false, 1, 0)
	if err != nil {
		t.Fatalf("unexpected error %s", err.Error())
	}
	scaled, err := ReprojectGrid(f, 16, 16, true, 1, 0)
	if err != nil {
		t.Fatalf("unexpected error %s", err.Error())
	}
	// each row scales by its radius
	rMax := float64(16) * math.Sqrt2
	for i := int32(0); i < plain.Height; i++ {
		r := float64(i) * rMax / float64(plain.Height)
		for j := int32(0); j < plain.Width; j++ {
			want := float64(plain.At(i, j)) * r
			if math.Abs(float64(scaled.At(i, j))-want) > 1e-3 {
				t.Errorf("jacobian row %d col %d = %f; want %f", i, j, scaled.At(i, j), want)
			}
		}
	}
}

func TestReprojectGridValidation(t *testing.T) {
	f := frame.NewFrame(16, 16, nil)
	if _, err := ReprojectGrid(f, 8, 8, false, 0, 0); err == nil {
		t.Errorf("expected error for zero dr")
	}
	if _, err := ReprojectGrid(f, 8, 8, false, 1, -0.5); err == nil {
		t.Errorf("expected error for negative dt")
	}
}

func TestRadialProfileRing(t *testing.T) {
	width, height := int32(64), int32(64)
	f := frame.NewFrame(width, height, nil)
	cRow, cCol := float64(height)/2-0.5, float64(width)/2-0.5
	for y := int32(0); y < height; y++ {
		for x := int32(0); x < width; x++ {
			dy := float64(y) - cRow
			dx := float64(x) - cCol
			r := math.Sqrt(dy*dy + dx*dx)
			if r >= 9 && r < 11 {
				f.Data[y*width+x] = 100
			}
		}
	}

	profile := RadialProfile(f)
	if len(profile) < 12 {
		t.Fatalf("profile too short: %d", len(profile))
	}
	if profile[9] < 80 || profile[10] < 80 {
		t.Errorf("ring bins=(%f,%f); want ~100", profile[9], profile[10])
	}
	for i, v := range profile {
		if i >= 8 && i <= 11 {
			continue
		}
		if v > 10 {
			t.Errorf("off-ring bin %d = %f; want ~0", i, v)
		}
	}
}

func TestRadialProfileMask(t *testing.T) {
	f := frame.NewFrame(32, 32, nil)
	for i := range f.Data {
		f.Data[i] = 5
	}
	f.Mask = make([]bool, len(f.Data))
	for x := 0; x < 32; x++ { // mask a full row
		f.Mask[10*32+x] = true
	}
	profile := RadialProfile(f)
	for i, v := range profile {
		if v != 5 && v != 0 { // bins keep their average or are empty
			t.Errorf("bin %d = %f; want 5 or 0", i, v)
		}
	}
}
