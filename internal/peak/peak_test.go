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

package peak

import (
	"math"
	"testing"
)

func gaussianSignal(n int, mu, sigma float64) []float64 {
	s := make([]float64, n)
	for i := range s {
		d := (float64(i) - mu) / sigma
		s[i] = math.Exp(-0.5 * d * d)
	}
	return s
}

func TestFindMaxKinds(t *testing.T) {
	// symmetric peak well inside the signal: all kinds localize it closely
	signal := gaussianSignal(100, 42, 4)
	for _, kind := range []int{KindNearest, KindLinear, KindCubic} {
		c, err := FindMax(signal, 2, 50, 10, kind)
		if err != nil {
			t.Fatalf("kind=%d unexpected error %s", kind, err.Error())
		}
		if math.Abs(c-42) > 0.5 {
			t.Errorf("kind=%d center=%f; want ~42", kind, c)
		}
	}
}

func TestFindMaxSubpixel(t *testing.T) {
	// peak between samples: cubic refinement must move off the integer grid
	signal := gaussianSignal(100, 42.4, 4)
	c, err := FindMax(signal, 2, 100, 10, KindCubic)
	if err != nil {
		t.Fatalf("unexpected error %s", err.Error())
	}
	if math.Abs(c-42.4) > 0.75 {
		t.Errorf("center=%f; want ~42.4", c)
	}
	if c == math.Trunc(c) {
		t.Errorf("center=%f stuck on the integer grid", c)
	}
}

func TestFindMaxEdgeFallback(t *testing.T) {
	// peak too close to the start: refinement window leaves the signal,
	// the coarse integer estimate is returned silently
	signal := make([]float64, 50)
	for i := 5; i < 15; i++ {
		signal[i] = 5
	}
	c, err := FindMax(signal, 5, 100, 10, KindCubic)
	if err != nil {
		t.Fatalf("unexpected error %s", err.Error())
	}
	if c != math.Trunc(c) {
		t.Errorf("edge fallback returned subpixel value %f", c)
	}
	if math.Abs(c-9) > 1 {
		t.Errorf("center=%f; want ~9", c)
	}
}

func TestFindMaxEdgeFallbackRight(t *testing.T) {
	signal := make([]float64, 50)
	for i := 41; i < 46; i++ {
		signal[i] = 10
	}
	c, err := FindMax(signal, 5, 100, 10, KindCubic)
	if err != nil {
		t.Fatalf("unexpected error %s", err.Error())
	}
	if c != math.Trunc(c) {
		t.Errorf("edge fallback returned subpixel value %f", c)
	}
	if c < 42 || c > 45 {
		t.Errorf("center=%f; want within the plateau", c)
	}
}

func TestFindMaxBadConfig(t *testing.T) {
	signal := gaussianSignal(50, 25, 3)
	if _, err := FindMax(signal, 2, 100, 10, 2); err == nil {
		t.Errorf("expected error for quadratic kind")
	}
	if _, err := FindMax(signal, 2, 100, 10, -1); err == nil {
		t.Errorf("expected error for negative kind")
	}
	if _, err := FindMax(signal, 2, 0, 10, KindLinear); err == nil {
		t.Errorf("expected error for zero upsample")
	}
	if _, err := FindMax(nil, 2, 100, 10, KindLinear); err == nil {
		t.Errorf("expected error for empty signal")
	}
}

func TestFindMaxRescalingBias(t *testing.T) {
	// the refined position is argmax/upsample, whose grid is marginally
	// coarser than the evaluation grid; for a plateau centered between two
	// samples this lands about half a sample right of the true center
	signal := make([]float64, 50)
	for i := 24; i < 28; i++ {
		signal[i] = 3
	}
	c, err := FindMax(signal, 5, 100, 10, KindCubic)
	if err != nil {
		t.Fatalf("unexpected error %s", err.Error())
	}
	if math.Abs(c-25.97) > 0.2 {
		t.Errorf("center=%f; want 25.97 +- 0.2", c)
	}
}
