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
	"math"
	"testing"
)

type gaussianKernel1DTestCase struct {
	Sigma  float32
	Kernel []float32
}

func TestGaussianKernel1D(t *testing.T) {
	epsilon := 1e-5
	tcs := []gaussianKernel1DTestCase{
		{1.0, []float32{0.27901, 0.44198, 0.27901}},
		{2.0, []float32{0.028532, 0.067234, 0.124009, 0.179044, 0.20236, 0.179044, 0.124009, 0.067234, 0.028532}},
	}

	for _, tc := range tcs {
		kernel := GaussianKernel1D(tc.Sigma)
		if len(kernel) != len(tc.Kernel) {
			t.Fatalf("sigma=%f len=%d; want %d", tc.Sigma, len(kernel), len(tc.Kernel))
		}
		sum := float32(0)
		for i, k := range kernel {
			if math.Abs(float64(k-tc.Kernel[i])) > epsilon {
				t.Errorf("sigma=%f k[%d]=%f; want %f", tc.Sigma, i, k, tc.Kernel[i])
			}
			sum += k
		}
		if math.Abs(float64(sum-1)) > epsilon {
			t.Errorf("sigma=%f sum=%f; want 1", tc.Sigma, sum)
		}
	}
}

func TestGaussianBlurConservesMass(t *testing.T) {
	epsilon := 1e-4
	width, height := 31, 31
	data := make([]float32, width*height)
	data[15*width+15] = 7.5

	for _, b := range []Boundary{BoundaryReflect, BoundaryWrap} {
		blur := GaussianBlur(data, width, 2.0, b)
		sum := float32(0)
		for _, v := range blur {
			sum += v
		}
		if math.Abs(float64(sum-7.5)) > epsilon {
			t.Errorf("boundary=%d sum=%f; want 7.5", b, sum)
		}
	}
}

func TestGaussianBlurWrap(t *testing.T) {
	// a peak on the edge must leak to the opposite edge with wrap, not with reflect
	width, height := 16, 16
	data := make([]float32, width*height)
	data[8*width+0] = 1

	wrapped := GaussianBlur(data, width, 1.5, BoundaryWrap)
	if wrapped[8*width+width-1] <= 0 {
		t.Errorf("wrap: opposite edge=%f; want >0", wrapped[8*width+width-1])
	}
	reflected := GaussianBlur(data, width, 1.5, BoundaryReflect)
	if reflected[8*width+width-1] != 0 {
		t.Errorf("reflect: opposite edge=%f; want 0", reflected[8*width+width-1])
	}
}

func TestSmooth1D(t *testing.T) {
	epsilon := 1e-9
	signal := make([]float64, 50)
	signal[20] = 3
	smooth := Smooth1D(signal, 2.0)
	sum, maxI := 0.0, 0
	for i, v := range smooth {
		sum += v
		if v > smooth[maxI] {
			maxI = i
		}
	}
	if math.Abs(sum-3) > epsilon {
		t.Errorf("sum=%f; want 3", sum)
	}
	if maxI != 20 {
		t.Errorf("argmax=%d; want 20", maxI)
	}
}

func TestSubtractBackgroundDoG(t *testing.T) {
	width, height := 32, 32
	data := make([]float32, width*height)
	for i := range data {
		data[i] = 5 // flat background
	}
	data[16*width+16] = 100 // one sharp peak

	res := SubtractBackgroundDoG(data, width, 1, 4)
	for i, v := range res {
		if v < 0 {
			t.Errorf("res[%d]=%f; want >=0", i, v)
		}
	}
	if res[16*width+16] <= 0 {
		t.Errorf("peak removed by background subtraction: %f", res[16*width+16])
	}
	if res[0] != 0 {
		t.Errorf("flat corner=%f; want 0", res[0])
	}
}

func TestSubtractBackgroundMedian(t *testing.T) {
	width, height := 24, 24
	data := make([]float32, width*height)
	for i := range data {
		data[i] = 3
	}
	data[12*width+12] = 50

	res, err := SubtractBackgroundMedian(data, width, 5)
	if err != nil {
		t.Fatalf("unexpected error %s", err.Error())
	}
	if res[12*width+12] != 47 {
		t.Errorf("peak=%f; want 47", res[12*width+12])
	}
	if res[0] != 0 {
		t.Errorf("background=%f; want 0", res[0])
	}

	if _, err := SubtractBackgroundMedian(data, width, 4); err == nil {
		t.Errorf("expected error for even footprint")
	}
}

func TestSubtractReference(t *testing.T) {
	data := []float32{5, 1, 3}
	bg := []float32{2, 4, 3}
	res, err := SubtractReference(data, bg)
	if err != nil {
		t.Fatalf("unexpected error %s", err.Error())
	}
	want := []float32{3, 0, 0}
	for i := range want {
		if res[i] != want[i] {
			t.Errorf("res[%d]=%f; want %f", i, res[i], want[i])
		}
	}
	if _, err := SubtractReference(data, bg[:2]); err == nil {
		t.Errorf("expected error for mismatched lengths")
	}
}

func TestGainNormalize(t *testing.T) {
	epsilon := 1e-5
	data := []float32{10, 20, 30, 40}
	dark := []float32{0, 0, 0, 0}
	bright := []float32{20, 20, 20, 20}
	res, err := GainNormalize(data, dark, bright)
	if err != nil {
		t.Fatalf("unexpected error %s", err.Error())
	}
	// uniform gain of 20: output equals input
	for i := range data {
		if math.Abs(float64(res[i]-data[i])) > epsilon {
			t.Errorf("res[%d]=%f; want %f", i, res[i], data[i])
		}
	}
}

func TestRepairDead(t *testing.T) {
	width := 4
	data := []float32{
		1, 1, 1, 1,
		1, 9, 1, 1,
		1, 1, 1, 1,
	}
	res, err := RepairDead(data, width, []DeadPixel{{1, 1}}, DeadAverage, 1)
	if err != nil {
		t.Fatalf("unexpected error %s", err.Error())
	}
	// window mean includes the dead pixel itself: (8*1+9)/9
	want := float32(17.0 / 9.0)
	if math.Abs(float64(res[1*width+1]-want)) > 1e-6 {
		t.Errorf("repaired=%f; want %f", res[1*width+1], want)
	}
	if res[0] != 1 {
		t.Errorf("untouched pixel changed: %f", res[0])
	}

	res, err = RepairDead(data, width, []DeadPixel{{0, 3}}, DeadNaN, 1)
	if err != nil {
		t.Fatalf("unexpected error %s", err.Error())
	}
	if !math.IsNaN(float64(res[3])) {
		t.Errorf("nan mode left %f", res[3])
	}

	if _, err := RepairDead(data, width, nil, "interpolate", 1); err == nil {
		t.Errorf("expected error for unknown mode")
	}
	if _, err := RepairDead(data, width, []DeadPixel{{7, 0}}, DeadNaN, 1); err == nil {
		t.Errorf("expected error for out of range pixel")
	}
}

func TestFindHotPixels(t *testing.T) {
	width, height := 128, 128
	data := make([]float32, width*height)
	for i := range data {
		data[i] = 10 + float32(i%7)/10 // mild texture
	}
	data[30*width+40] = 1000

	hot := FindHotPixels(data, width, 10)
	found := false
	for _, p := range hot {
		if p.Row == 30 && p.Col == 40 {
			found = true
		}
	}
	if !found {
		t.Errorf("hot pixel not detected, got %v", hot)
	}
	if len(hot) > 10 {
		t.Errorf("too many false positives: %d", len(hot))
	}
}

func TestCircularMask(t *testing.T) {
	mask := CircularMask(9, 9, 3, 4, 4)
	if !mask[4*9+4] {
		t.Errorf("center not masked")
	}
	if !mask[4*9+6] || mask[4*9+7] {
		t.Errorf("radius boundary wrong: r=2 %v, r=3 %v", mask[4*9+6], mask[4*9+7])
	}
	if mask[0] {
		t.Errorf("corner masked")
	}
}

func TestReferenceCircle(t *testing.T) {
	width, height := 21, 21
	img := ReferenceCircle(width, height, 10, 10, 5)

	count := 0
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := img[y*width+x]
			if v != 0 && v != 1 {
				t.Fatalf("pixel (%d,%d)=%f; want 0 or 1", y, x, v)
			}
			if v == 1 {
				count++
				r := math.Sqrt(float64((y-10)*(y-10) + (x-10)*(x-10)))
				if math.Abs(r-5) > 0.8 {
					t.Errorf("perimeter pixel (%d,%d) at radius %f; want ~5", y, x, r)
				}
			}
			// 4-fold symmetry
			if img[y*width+x] != img[(height-1-y)*width+x] || img[y*width+x] != img[y*width+(width-1-x)] {
				t.Errorf("asymmetry at (%d,%d)", y, x)
			}
		}
	}
	if count < 4*5 {
		t.Errorf("perimeter has only %d pixels", count)
	}

	// degenerate radius keeps a single marker pixel
	img = ReferenceCircle(width, height, 10, 10, 0)
	if img[10*width+10] != 1 {
		t.Errorf("radius 0 center=%f; want 1", img[10*width+10])
	}
}
