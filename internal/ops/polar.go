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
	"fmt"

	"github.com/avheyman/diffrakt/internal/filter"
	"github.com/avheyman/diffrakt/internal/frame"
	"github.com/avheyman/diffrakt/internal/polar"
)

// Resamples frames onto an elliptical polar grid. A zero ellipse center
// means the beam center recorded on the frame by a preceding findCenter
// step, or failing that the geometric frame center. A positive MaskRadius
// masks the disc of that radius around the center before resampling, so the
// saturated direct beam does not leak into the polar image.
// Takes one input, produces one output
type OpPolarReproject struct {
	OpUnaryBase
	Ellipse     polar.Ellipse `json:"ellipse"`
	RadiusStart int           `json:"radiusStart"`
	RadiusEnd   int           `json:"radiusEnd"`
	PhaseWidth  int           `json:"phaseWidth"`
	MaskRadius  float64       `json:"maskRadius"`
}

func init() { SetOperatorFactory(func() Operator { return NewOpPolarReprojectDefaults() }) } // register the operator for JSON decoding

func NewOpPolarReprojectDefaults() *OpPolarReproject { return NewOpPolarReproject(polar.Ellipse{}, 0, 64, 720, 0) }

func NewOpPolarReproject(ell polar.Ellipse, radiusStart, radiusEnd, phaseWidth int, maskRadius float64) *OpPolarReproject {
	op:=&OpPolarReproject{
		OpUnaryBase: OpUnaryBase{OpBase: OpBase{Type: "polarReproject", Active: true}},
		Ellipse    : ell,
		RadiusStart: radiusStart,
		RadiusEnd  : radiusEnd,
		PhaseWidth : phaseWidth,
		MaskRadius : maskRadius,
	}
	op.OpUnaryBase.Apply=op.Apply // assign class method to superclass abstract method
	return op
}

// Unmarshal the type from JSON with default values for missing entries
func (op *OpPolarReproject) UnmarshalJSON(data []byte) error {
	type defaults OpPolarReproject
	def:=defaults(*NewOpPolarReprojectDefaults())
	err:=json.Unmarshal(data, &def)
	if err!=nil { return err }
	*op=OpPolarReproject(def)
	op.OpUnaryBase.Apply=op.Apply // make method receiver point to op, not def
	return nil
}

func (op *OpPolarReproject) Apply(f *frame.Frame, c *Context) (result *frame.Frame, err error) {
	if !op.Active { return f, nil }
	ell:=op.Ellipse
	if ell.CenterRow==0 && ell.CenterCol==0 {
		if f.Beam!=nil {
			ell.CenterRow, ell.CenterCol=f.Beam.Row, f.Beam.Col
		} else {
			def:=polar.DefaultEllipse(f)
			ell.CenterRow, ell.CenterCol=def.CenterRow, def.CenterCol
		}
	}

	if op.MaskRadius>0 {
		disc:=filter.CircularMask(int(f.Width), int(f.Height), op.MaskRadius, ell.CenterRow, ell.CenterCol)
		if f.Mask!=nil {
			for i,m:=range f.Mask {
				if m { disc[i]=true }
			}
		}
		masked:=*f
		masked.Mask=disc
		f=&masked
	}

	out, err:=polar.Reproject(f, ell, op.RadiusStart, op.RadiusEnd, op.PhaseWidth)
	if err!=nil { return nil, err }
	fmt.Fprintf(c.Log, "%d: Reprojected to %s polar frame about row %.2f col %.2f\n",
	            out.ID, out.DimensionsToString(), ell.CenterRow, ell.CenterCol)
	return out, nil
}


// Resamples frames onto a regular polar grid spanning the full radius and
// angle extent. Takes one input, produces one output
type OpPolarGrid struct {
	OpUnaryBase
	Jacobian bool    `json:"jacobian"`
	DR       float64 `json:"dr"`
	DT       float64 `json:"dt"`
}

func init() { SetOperatorFactory(func() Operator { return NewOpPolarGridDefaults() }) } // register the operator for JSON decoding

func NewOpPolarGridDefaults() *OpPolarGrid { return NewOpPolarGrid(false, 1, 0) }

func NewOpPolarGrid(jacobian bool, dr, dt float64) *OpPolarGrid {
	op:=&OpPolarGrid{
		OpUnaryBase: OpUnaryBase{OpBase: OpBase{Type: "polarGrid", Active: true}},
		Jacobian   : jacobian,
		DR         : dr,
		DT         : dt,
	}
	op.OpUnaryBase.Apply=op.Apply // assign class method to superclass abstract method
	return op
}

// Unmarshal the type from JSON with default values for missing entries
func (op *OpPolarGrid) UnmarshalJSON(data []byte) error {
	type defaults OpPolarGrid
	def:=defaults(*NewOpPolarGridDefaults())
	err:=json.Unmarshal(data, &def)
	if err!=nil { return err }
	*op=OpPolarGrid(def)
	op.OpUnaryBase.Apply=op.Apply // make method receiver point to op, not def
	return nil
}

func (op *OpPolarGrid) Apply(f *frame.Frame, c *Context) (result *frame.Frame, err error) {
	if !op.Active { return f, nil }
	oy, ox:=float64(f.Height)/2, float64(f.Width)/2
	if f.Beam!=nil {
		oy, ox=f.Beam.Row, f.Beam.Col
	}
	out, err:=polar.ReprojectGrid(f, ox, oy, op.Jacobian, op.DR, op.DT)
	if err!=nil { return nil, err }
	fmt.Fprintf(c.Log, "%d: Reprojected to %s polar grid about row %.2f col %.2f\n",
	            out.ID, out.DimensionsToString(), oy, ox)
	return out, nil
}


// Reduces frames to 1D radial intensity profiles, returned as single-row
// frames so they flow through save steps. Takes one input, produces one output
type OpRadialProfile struct {
	OpUnaryBase
}

func init() { SetOperatorFactory(func() Operator { return NewOpRadialProfileDefaults() }) } // register the operator for JSON decoding

func NewOpRadialProfileDefaults() *OpRadialProfile {
	op:=&OpRadialProfile{
		OpUnaryBase: OpUnaryBase{OpBase: OpBase{Type: "radialProfile", Active: true}},
	}
	op.OpUnaryBase.Apply=op.Apply // assign class method to superclass abstract method
	return op
}

// Unmarshal the type from JSON with default values for missing entries
func (op *OpRadialProfile) UnmarshalJSON(data []byte) error {
	type defaults OpRadialProfile
	def:=defaults(*NewOpRadialProfileDefaults())
	err:=json.Unmarshal(data, &def)
	if err!=nil { return err }
	*op=OpRadialProfile(def)
	op.OpUnaryBase.Apply=op.Apply // make method receiver point to op, not def
	return nil
}

func (op *OpRadialProfile) Apply(f *frame.Frame, c *Context) (result *frame.Frame, err error) {
	if !op.Active { return f, nil }
	profile:=polar.RadialProfile(f)
	out:=frame.NewFrame(int32(len(profile)), 1, profile)
	out.ID, out.FileName=f.ID, f.FileName
	out.UpdateStats()
	fmt.Fprintf(c.Log, "%d: Radial profile over %d bins, %v\n", out.ID, len(profile), out.Stats)
	return out, nil
}
