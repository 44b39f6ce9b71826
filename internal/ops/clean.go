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
	"sync"

	"github.com/avheyman/diffrakt/internal/filter"
	"github.com/avheyman/diffrakt/internal/frame"
)

// Gain-normalizes frames against dark and bright reference exposures.
// Takes one input, produces one output
type OpCalibrate struct {
	OpUnaryBase
	Dark   string     `json:"dark"`
	Bright string     `json:"bright"`
	mutex  sync.Mutex `json:"-"`
}

func init() { SetOperatorFactory(func() Operator { return NewOpCalibrateDefaults() }) } // register the operator for JSON decoding

func NewOpCalibrateDefaults() *OpCalibrate { return NewOpCalibrate("", "") }

func NewOpCalibrate(dark, bright string) *OpCalibrate {
	op:=&OpCalibrate{
		OpUnaryBase: OpUnaryBase{OpBase: OpBase{Type: "calibrate", Active: dark!="" || bright!=""}},
		Dark       : dark,
		Bright     : bright,
	}
	op.OpUnaryBase.Apply=op.Apply // assign class method to superclass abstract method
	return op
}

// Unmarshal the type from JSON with default values for missing entries
func (op *OpCalibrate) UnmarshalJSON(data []byte) error {
	type defaults OpCalibrate
	def:=defaults(*NewOpCalibrateDefaults())
	err:=json.Unmarshal(data, &def)
	if err!=nil { return err }
	op.OpUnaryBase=def.OpUnaryBase
	op.Dark      =def.Dark
	op.Bright    =def.Bright
	op.mutex     =sync.Mutex{}

	op.OpUnaryBase.Apply=op.Apply // make method receiver point to op, not def
	return nil
}

func (op *OpCalibrate) Apply(f *frame.Frame, c *Context) (result *frame.Frame, err error) {
	if !op.Active || op.Dark=="" || op.Bright=="" { return f, nil }
	if err=op.init(c); err!=nil { return nil, err } // lazy init of dark and bright frames

	if c.DarkFrame.Width!=f.Width || c.DarkFrame.Height!=f.Height {
		return nil, errors.New(fmt.Sprintf("%d: frame dimensions %s differ from dark dimensions %s",
			f.ID, f.DimensionsToString(), c.DarkFrame.DimensionsToString()))
	}
	data, err:=filter.GainNormalize(f.Data, c.DarkFrame.Data, c.BrightFrame.Data)
	if err!=nil { return nil, err }

	out:=frame.NewFrameFromFrame(f)
	out.Data=data
	out.UpdateStats()
	fmt.Fprintf(c.Log, "%d: Gain normalized with %v\n", out.ID, out.Stats)
	return out, nil
}

// Load dark and bright frames if not done yet
func (op *OpCalibrate) init(c *Context) error {
	op.mutex.Lock()
	defer op.mutex.Unlock()
	if c.DarkFrame!=nil && c.BrightFrame!=nil { return nil }

	var promises []Promise
	for i, name:=range []string{op.Dark, op.Bright} {
		promise, err:=NewOpLoad(-(i+1), name).MakePromises(nil, c)
		if err!=nil { return err }
		if len(promise)!=1 { return errors.New("load operator did not create exactly one promise") }
		promises=append(promises, promise[0])
	}

	frames, err:=MaterializeAll(promises, c.MaxThreads, false)
	if err!=nil { return err }

	c.DarkFrame, c.BrightFrame=frames[0], frames[1]
	if c.DarkFrame.Width!=c.BrightFrame.Width || c.DarkFrame.Height!=c.BrightFrame.Height {
		return errors.New(fmt.Sprintf("dark dimensions %s differ from bright dimensions %s",
			c.DarkFrame.DimensionsToString(), c.BrightFrame.DimensionsToString()))
	}
	return nil
}


// Background subtraction methods for OpSubtractBackground
const (
	BackgroundDoG       = "dog"       // difference of gaussian blurs
	BackgroundMedian    = "median"    // local median footprint
	BackgroundReference = "reference" // recorded background frame
)

// Subtracts diffuse background from a frame. Takes one input, produces one output
type OpSubtractBackground struct {
	OpUnaryBase
	Method    string     `json:"method"`
	SigmaMin  float32    `json:"sigmaMin"`
	SigmaMax  float32    `json:"sigmaMax"`
	Footprint int        `json:"footprint"`
	FileName  string     `json:"fileName"`
	mutex     sync.Mutex `json:"-"`
}

func init() { SetOperatorFactory(func() Operator { return NewOpSubtractBackgroundDefaults() }) } // register the operator for JSON decoding

func NewOpSubtractBackgroundDefaults() *OpSubtractBackground { return NewOpSubtractBackground(BackgroundDoG, 3, 8, 19, "") }

func NewOpSubtractBackground(method string, sigmaMin, sigmaMax float32, footprint int, fileName string) *OpSubtractBackground {
	op:=&OpSubtractBackground{
		OpUnaryBase: OpUnaryBase{OpBase: OpBase{Type: "subtractBackground", Active: true}},
		Method     : method,
		SigmaMin   : sigmaMin,
		SigmaMax   : sigmaMax,
		Footprint  : footprint,
		FileName   : fileName,
	}
	op.OpUnaryBase.Apply=op.Apply // assign class method to superclass abstract method
	return op
}

// Unmarshal the type from JSON with default values for missing entries
func (op *OpSubtractBackground) UnmarshalJSON(data []byte) error {
	type defaults OpSubtractBackground
	def:=defaults(*NewOpSubtractBackgroundDefaults())
	err:=json.Unmarshal(data, &def)
	if err!=nil { return err }
	op.OpUnaryBase=def.OpUnaryBase
	op.Method    =def.Method
	op.SigmaMin  =def.SigmaMin
	op.SigmaMax  =def.SigmaMax
	op.Footprint =def.Footprint
	op.FileName  =def.FileName
	op.mutex     =sync.Mutex{}

	op.OpUnaryBase.Apply=op.Apply // make method receiver point to op, not def
	return nil
}

func (op *OpSubtractBackground) Apply(f *frame.Frame, c *Context) (result *frame.Frame, err error) {
	if !op.Active { return f, nil }
	var data []float32
	switch op.Method {
	case BackgroundDoG:
		data=filter.SubtractBackgroundDoG(f.Data, int(f.Width), op.SigmaMin, op.SigmaMax)
	case BackgroundMedian:
		data, err=filter.SubtractBackgroundMedian(f.Data, int(f.Width), op.Footprint)
		if err!=nil { return nil, err }
	case BackgroundReference:
		if err=op.init(c); err!=nil { return nil, err } // lazy load of the background frame
		if c.ReferenceFrame.Width!=f.Width || c.ReferenceFrame.Height!=f.Height {
			return nil, errors.New(fmt.Sprintf("%d: frame dimensions %s differ from background dimensions %s",
				f.ID, f.DimensionsToString(), c.ReferenceFrame.DimensionsToString()))
		}
		data, err=filter.SubtractReference(f.Data, c.ReferenceFrame.Data)
		if err!=nil { return nil, err }
	default:
		return nil, errors.New(fmt.Sprintf("background method '%s' not implemented", op.Method))
	}

	out:=frame.NewFrameFromFrame(f)
	out.Data=data
	out.UpdateStats()
	fmt.Fprintf(c.Log, "%d: Subtracted %s background, %v\n", out.ID, op.Method, out.Stats)
	return out, nil
}

// Load the recorded background frame if not done yet
func (op *OpSubtractBackground) init(c *Context) error {
	op.mutex.Lock()
	defer op.mutex.Unlock()
	if c.ReferenceFrame!=nil { return nil }

	promise, err:=NewOpLoad(-3, op.FileName).MakePromises(nil, c)
	if err!=nil { return err }
	if len(promise)!=1 { return errors.New("load operator did not create exactly one promise") }
	frames, err:=MaterializeAll(promise, c.MaxThreads, false)
	if err!=nil { return err }
	c.ReferenceFrame=frames[0]
	return nil
}


// Detects and repairs hot pixels. Takes one input, produces one output
type OpRepairHotPixels struct {
	OpUnaryBase
	Sigma  float32 `json:"sigma"`
	Mode   string  `json:"mode"`
	Window int32   `json:"window"`
}

func init() { SetOperatorFactory(func() Operator { return NewOpRepairHotPixelsDefaults() }) } // register the operator for JSON decoding

func NewOpRepairHotPixelsDefaults() *OpRepairHotPixels { return NewOpRepairHotPixels(10, filter.DeadAverage, 1) }

func NewOpRepairHotPixels(sigma float32, mode string, window int32) *OpRepairHotPixels {
	op:=&OpRepairHotPixels{
		OpUnaryBase: OpUnaryBase{OpBase: OpBase{Type: "repairHotPixels", Active: sigma>0}},
		Sigma      : sigma,
		Mode       : mode,
		Window     : window,
	}
	op.OpUnaryBase.Apply=op.Apply // assign class method to superclass abstract method
	return op
}

// Unmarshal the type from JSON with default values for missing entries
func (op *OpRepairHotPixels) UnmarshalJSON(data []byte) error {
	type defaults OpRepairHotPixels
	def:=defaults(*NewOpRepairHotPixelsDefaults())
	err:=json.Unmarshal(data, &def)
	if err!=nil { return err }
	*op=OpRepairHotPixels(def)
	op.OpUnaryBase.Apply=op.Apply // make method receiver point to op, not def
	return nil
}

func (op *OpRepairHotPixels) Apply(f *frame.Frame, c *Context) (result *frame.Frame, err error) {
	if !op.Active { return f, nil }
	hot:=filter.FindHotPixels(f.Data, int(f.Width), op.Sigma)
	data, err:=filter.RepairDead(f.Data, int(f.Width), hot, op.Mode, op.Window)
	if err!=nil { return nil, err }

	out:=frame.NewFrameFromFrame(f)
	out.Data=data
	out.UpdateStats()
	fmt.Fprintf(c.Log, "%d: Repaired %d hot pixels (%.2f%%) with mode %s\n",
	            out.ID, len(hot), float32(len(hot))*100/float32(out.Pixels()), op.Mode)
	return out, nil
}
