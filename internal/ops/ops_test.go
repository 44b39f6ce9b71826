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

package ops

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/avheyman/diffrakt/internal/frame"
	"github.com/avheyman/diffrakt/internal/peak"
	"github.com/avheyman/diffrakt/internal/polar"
)

// 64x64 frame with a square beam of the given intensity at rows r0..r1-1, cols c0..c1-1
func beamFrame(r0, r1, c0, c1 int, intensity float32) *frame.Frame {
	f := frame.NewFrame(64, 64, nil)
	for y := r0; y < r1; y++ {
		for x := c0; x < c1; x++ {
			f.Data[y*64+x] = intensity
		}
	}
	f.UpdateStats()
	return f
}

func promiseOf(f *frame.Frame) Promise {
	return func() (*frame.Frame, error) { return f, nil }
}

func TestSequenceJSONRoundTrip(t *testing.T) {
	seq := NewOpSequence(
		NewOpRepairHotPixels(8, "average", 1),
		NewOpSubtractBackground(BackgroundDoG, 2, 6, 19, ""),
		NewOpFindCenter(CenterInterpolate, 4, 50, peak.KindCubic, 2, 20),
		NewOpPolarReproject(polar.Ellipse{Major: 2, Minor: 1}, 5, 40, 360, 0),
		NewOpSave("out_%d.tiff"),
	)
	bs, err := json.Marshal(seq)
	if err != nil {
		t.Fatalf("marshal: %s", err.Error())
	}

	decoded := NewOpSequenceDefault()
	if err = json.Unmarshal(bs, decoded); err != nil {
		t.Fatalf("unmarshal: %s", err.Error())
	}
	if len(decoded.Steps) != len(seq.Steps) {
		t.Fatalf("decoded %d steps; want %d", len(decoded.Steps), len(seq.Steps))
	}
	for i, step := range decoded.Steps {
		if step.GetType() != seq.Steps[i].GetType() {
			t.Errorf("step %d type %s; want %s", i, step.GetType(), seq.Steps[i].GetType())
		}
	}

	fc, ok := decoded.Steps[2].(*OpFindCenter)
	if !ok {
		t.Fatalf("step 2 is %T; want *OpFindCenter", decoded.Steps[2])
	}
	if fc.Method != CenterInterpolate || fc.Upsample != 50 || fc.Kind != peak.KindCubic {
		t.Errorf("decoded findCenter %+v lost parameters", fc)
	}

	// marshaling the decoded sequence reproduces the original document
	bs2, err := json.Marshal(decoded)
	if err != nil {
		t.Fatalf("re-marshal: %s", err.Error())
	}
	if !bytes.Equal(bs, bs2) {
		t.Errorf("re-marshal differs:\n%s\n%s", string(bs), string(bs2))
	}
}

func TestSequenceUnknownType(t *testing.T) {
	decoded := NewOpSequenceDefault()
	err := json.Unmarshal([]byte(`{"type":"seq","steps":[{"type":"nonsense"}]}`), decoded)
	if err == nil || !strings.Contains(err.Error(), "nonsense") {
		t.Errorf("expected unknown operator error, got %v", err)
	}
}

func TestUnmarshalDefaults(t *testing.T) {
	// missing fields fall back to constructor defaults
	op := &OpSubtractBackground{}
	if err := json.Unmarshal([]byte(`{"type":"subtractBackground","active":true,"method":"median"}`), op); err != nil {
		t.Fatalf("unmarshal: %s", err.Error())
	}
	if op.Method != BackgroundMedian || op.Footprint != 19 {
		t.Errorf("decoded %+v; want median method with default footprint 19", op)
	}
}

func TestMaterializeAll(t *testing.T) {
	frames := []*frame.Frame{
		beamFrame(10, 12, 10, 12, 1),
		beamFrame(20, 22, 20, 22, 2),
		beamFrame(30, 32, 30, 32, 3),
	}
	ins := []Promise{promiseOf(frames[0]), promiseOf(frames[1]), promiseOf(frames[2])}
	outs, err := MaterializeAll(ins, 2, false)
	if err != nil {
		t.Fatalf("unexpected error %s", err.Error())
	}
	if len(outs) != 3 {
		t.Fatalf("got %d frames; want 3", len(outs))
	}
	for i, f := range outs { // order is preserved
		if f != frames[i] {
			t.Errorf("frame %d out of order", i)
		}
	}
}

func TestMaterializeAllError(t *testing.T) {
	ins := []Promise{
		promiseOf(beamFrame(10, 12, 10, 12, 1)),
		func() (*frame.Frame, error) { return nil, errors.New("boom") },
	}
	outs, err := MaterializeAll(ins, 4, false)
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("expected error, got %v", err)
	}
	if len(outs) != 1 { // failed promises are dropped
		t.Errorf("got %d frames; want 1", len(outs))
	}
}

func TestRemoveNils(t *testing.T) {
	a, b := beamFrame(1, 2, 1, 2, 1), beamFrame(2, 3, 2, 3, 1)
	out := RemoveNils([]*frame.Frame{nil, a, nil, b, nil})
	if len(out) != 2 || out[0] != a || out[1] != b {
		t.Errorf("got %v; want [a b]", out)
	}
}

func TestSubtractBackgroundPromise(t *testing.T) {
	f := beamFrame(30, 33, 30, 33, 100)
	c := NewContext(&bytes.Buffer{})
	op := NewOpSubtractBackground(BackgroundDoG, 1, 4, 19, "")
	outs, err := op.MakePromises([]Promise{promiseOf(f)}, c)
	if err != nil {
		t.Fatalf("unexpected error %s", err.Error())
	}
	if len(outs) != 1 {
		t.Fatalf("got %d promises; want 1", len(outs))
	}
	out, err := outs[0]()
	if err != nil {
		t.Fatalf("unexpected error %s", err.Error())
	}
	for i, v := range out.Data {
		if v < 0 {
			t.Fatalf("pixel %d = %f; want >=0", i, v)
		}
	}
	if out.At(31, 31) <= 0 {
		t.Errorf("beam removed by background subtraction")
	}
}

func TestFindCenterFeedsPolarReproject(t *testing.T) {
	f := beamFrame(27, 30, 21, 24, 1)
	log := &bytes.Buffer{}
	c := NewContext(log)

	seq := NewOpSequence(
		NewOpFindCenter(CenterBlur, 2, 0, 0, 0, 0),
		NewOpPolarReproject(polar.Ellipse{}, 0, 16, 90, 0),
	)
	outs, err := seq.MakePromises([]Promise{promiseOf(f)}, c)
	if err != nil {
		t.Fatalf("unexpected error %s", err.Error())
	}
	out, err := outs[0]()
	if err != nil {
		t.Fatalf("unexpected error %s", err.Error())
	}

	if f.Beam == nil {
		t.Fatalf("findCenter did not record the beam position on the frame")
	}
	if math.Abs(f.Beam.Row-28) > 0.5 || math.Abs(f.Beam.Col-22) > 0.5 {
		t.Errorf("beam position (%f,%f); want ~(28,22)", f.Beam.Row, f.Beam.Col)
	}
	if out.Width != 90 || out.Height != 16 {
		t.Errorf("polar frame %s; want 90x16", out.DimensionsToString())
	}
	// row 0 samples the beam center pixel itself
	if out.At(0, 0) <= 0 {
		t.Errorf("polar row 0 = %f; want beam intensity", out.At(0, 0))
	}
	if !strings.Contains(log.String(), "Beam center") {
		t.Errorf("missing beam center log entry: %s", log.String())
	}
}

func TestConcurrentPipelinesKeepOwnCenters(t *testing.T) {
	// Two frames with beams in opposite corners, centered and reprojected
	// concurrently. Each polar output must be built about its own frame's
	// beam; picking up the other frame's estimate would sample an empty
	// region and leave row 0 dark.
	frames := []*frame.Frame{
		beamFrame(9, 12, 9, 12, 1),
		beamFrame(49, 52, 49, 52, 1),
	}
	c := NewContext(&bytes.Buffer{})

	seq := NewOpSequence(
		NewOpFindCenter(CenterBlur, 2, 0, 0, 0, 0),
		NewOpPolarReproject(polar.Ellipse{}, 0, 8, 90, 0),
	)
	for round := 0; round < 20; round++ {
		for _, f := range frames {
			f.Beam = nil
		}
		promises, err := seq.MakePromises([]Promise{promiseOf(frames[0]), promiseOf(frames[1])}, c)
		if err != nil {
			t.Fatalf("unexpected error %s", err.Error())
		}
		outs, err := MaterializeAll(promises, 2, false)
		if err != nil {
			t.Fatalf("unexpected error %s", err.Error())
		}
		if len(outs) != 2 {
			t.Fatalf("got %d frames; want 2", len(outs))
		}
		wantRows := []float64{10, 50}
		for i, out := range outs {
			if frames[i].Beam == nil {
				t.Fatalf("frame %d has no beam position", i)
			}
			if math.Abs(frames[i].Beam.Row-wantRows[i]) > 0.5 || math.Abs(frames[i].Beam.Col-wantRows[i]) > 0.5 {
				t.Errorf("frame %d beam (%f,%f); want ~(%g,%g)",
					i, frames[i].Beam.Row, frames[i].Beam.Col, wantRows[i], wantRows[i])
			}
			if out.At(0, 0) <= 0 {
				t.Errorf("frame %d polar row 0 = %f; reprojection used another frame's center", i, out.At(0, 0))
			}
		}
	}
}

func TestPolarReprojectMaskRadius(t *testing.T) {
	f := beamFrame(0, 64, 0, 64, 5) // uniform positive frame
	c := NewContext(&bytes.Buffer{})

	op := NewOpPolarReproject(polar.Ellipse{}, 0, 10, 90, 3)
	outs, err := op.MakePromises([]Promise{promiseOf(f)}, c)
	if err != nil {
		t.Fatalf("unexpected error %s", err.Error())
	}
	out, err := outs[0]()
	if err != nil {
		t.Fatalf("unexpected error %s", err.Error())
	}

	for j := int32(0); j < out.Width; j++ { // inside the disc
		if out.At(0, j) != -10 || !out.Mask[int(j)] {
			t.Fatalf("row 0 col %d = %f mask %v; want masked sentinel", j, out.At(0, j), out.Mask[int(j)])
		}
	}
	for j := int32(0); j < out.Width; j++ { // well outside the disc
		if math.Abs(float64(out.At(8, j))-5) > 1e-3 {
			t.Fatalf("row 8 col %d = %f; want 5", j, out.At(8, j))
		}
	}
	if f.Mask != nil {
		t.Errorf("masking modified the input frame")
	}
}

func TestRadialProfileOp(t *testing.T) {
	f := beamFrame(0, 64, 0, 64, 7)
	c := NewContext(&bytes.Buffer{})
	outs, err := NewOpRadialProfileDefaults().MakePromises([]Promise{promiseOf(f)}, c)
	if err != nil {
		t.Fatalf("unexpected error %s", err.Error())
	}
	out, err := outs[0]()
	if err != nil {
		t.Fatalf("unexpected error %s", err.Error())
	}
	if out.Height != 1 {
		t.Fatalf("profile frame height %d; want 1", out.Height)
	}
	for i, v := range out.Data {
		if v != 7 && v != 0 {
			t.Errorf("bin %d = %f; want 7 or 0", i, v)
		}
	}
}

func TestLoadRejectsUnsafePaths(t *testing.T) {
	c := NewContext(&bytes.Buffer{})
	for _, path := range []string{"/etc/passwd", "../secret.tiff"} {
		if _, err := NewOpLoad(0, path).MakePromises(nil, c); err == nil {
			t.Errorf("expected error for path %s", path)
		}
	}
}
