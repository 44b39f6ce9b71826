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
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/avheyman/diffrakt/internal/center"
	"github.com/avheyman/diffrakt/internal/frame"
	"github.com/avheyman/diffrakt/internal/peak"
)

// Beam center estimation methods for OpFindCenter
const (
	CenterBlur        = "blur"        // blurred argmax, whole pixels
	CenterInterpolate = "interpolate" // marginal profile interpolation, subpixel
	CenterXCorr       = "xcorr"       // reference circle phase correlation, subpixel
)

// Estimates the direct beam position of a frame and records it on the frame,
// where downstream steps of the same chain pick it up. Takes one input,
// produces one output (the input with the beam position set)
type OpFindCenter struct {
	OpUnaryBase
	Method       string  `json:"method"`
	Sigma        float64 `json:"sigma"`
	Upsample     int     `json:"upsample"`
	Kind         int     `json:"kind"`
	RadiusStart  int     `json:"radiusStart"`
	RadiusFinish int     `json:"radiusFinish"`
}

func init() { SetOperatorFactory(func() Operator { return NewOpFindCenterDefaults() }) } // register the operator for JSON decoding

func NewOpFindCenterDefaults() *OpFindCenter { return NewOpFindCenter(CenterInterpolate, 5, 100, peak.KindLinear, 2, 20) }

func NewOpFindCenter(method string, sigma float64, upsample, kind, radiusStart, radiusFinish int) *OpFindCenter {
	op:=&OpFindCenter{
		OpUnaryBase : OpUnaryBase{OpBase: OpBase{Type: "findCenter", Active: true}},
		Method      : method,
		Sigma       : sigma,
		Upsample    : upsample,
		Kind        : kind,
		RadiusStart : radiusStart,
		RadiusFinish: radiusFinish,
	}
	op.OpUnaryBase.Apply=op.Apply // assign class method to superclass abstract method
	return op
}

// Unmarshal the type from JSON with default values for missing entries
func (op *OpFindCenter) UnmarshalJSON(data []byte) error {
	type defaults OpFindCenter
	def:=defaults(*NewOpFindCenterDefaults())
	err:=json.Unmarshal(data, &def)
	if err!=nil { return err }
	*op=OpFindCenter(def)
	op.OpUnaryBase.Apply=op.Apply // make method receiver point to op, not def
	return nil
}

func (op *OpFindCenter) Apply(f *frame.Frame, c *Context) (result *frame.Frame, err error) {
	if !op.Active { return f, nil }
	var ctr center.Center
	switch op.Method {
	case CenterBlur:
		ctr=center.FindCenterBlur(f, float32(op.Sigma))
	case CenterInterpolate:
		ctr, err=center.FindCenterInterpolate(f, op.Sigma, op.Upsample, op.Kind)
		if err!=nil { return nil, err }
	case CenterXCorr:
		off, err:=center.FindOffsetCrossCorrelation(f, op.RadiusStart, op.RadiusFinish, c.MaxThreads)
		if err!=nil { return nil, err }
		ctr=center.Center{
			Row: math.RoundToEven(float64(f.Height)/2)+off.DRow,
			Col: math.RoundToEven(float64(f.Width)/2)+off.DCol,
		}
	default:
		return nil, errors.New(fmt.Sprintf("center method '%s' not implemented", op.Method))
	}

	f.Beam=&frame.Point{Row: ctr.Row, Col: ctr.Col}
	fmt.Fprintf(c.Log, "%d: Beam center at row %.2f col %.2f via %s\n", f.ID, ctr.Row, ctr.Col, op.Method)
	return f, nil
}
