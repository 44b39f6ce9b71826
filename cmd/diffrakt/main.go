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

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"runtime/debug"
	"strings"
	"time"
	dk "github.com/avheyman/diffrakt/internal"
	"github.com/avheyman/diffrakt/internal/ops"
	"github.com/avheyman/diffrakt/internal/polar"
	"github.com/avheyman/diffrakt/internal/rest"
)

const version = "0.1.0"

var cpuprofile = flag.String("cpuprofile", "", "write cpu profile to `file`")
var memprofile = flag.String("memprofile", "", "write memory profile to `file`")

var out  = flag.String("out", "out.tiff", "save output with given filename pattern, e.g. `out%04d.tiff`")
var jpg  = flag.String("jpg", "%auto", "save false color preview of output as JPEG to `file`. `%auto` replaces suffix of output file with .jpg")
var log  = flag.String("log", "%auto", "save log output to `file`. `%auto` replaces suffix of output file with .log")

var dark   = flag.String("dark", "", "gain normalize with dark reference exposure from `file`")
var bright = flag.String("bright", "", "gain normalize with bright reference exposure from `file`")

var hotSigma = flag.Float64("hotSigma", 0, "sigma for hot pixel removal as multiple of standard deviations, 0=off")
var hotMode  = flag.String("hotMode", "average", "hot pixel replacement, one of average, nan")

var bgMethod   = flag.String("bgMethod", "", "background subtraction method, one of dog, median, reference or blank for no op")
var bgSigmaMin = flag.Float64("bgSigmaMin", 3, "difference of gaussians background: blur sigma of the retained scale")
var bgSigmaMax = flag.Float64("bgSigmaMax", 8, "difference of gaussians background: blur sigma of the removed scale")
var bgFootprint= flag.Int("bgFootprint", 19, "median background: odd footprint edge length in pixels")
var bgFile     = flag.String("bgFile", "", "reference background: recorded background exposure `file`")

var method   = flag.String("method", "interpolate", "beam center method, one of blur, interpolate, xcorr")
var sigma    = flag.Float64("sigma", 5, "gaussian smoothing sigma for beam center estimation")
var upsample = flag.Int("upsample", 100, "upsampling factor for subpixel beam center refinement")
var kind     = flag.Int("kind", 1, "profile interpolation kind: 0=nearest, 1=linear, 3=cubic")
var radiusStart  = flag.Int("radiusStart", 2, "first reference circle radius for cross correlation, pixels")
var radiusFinish = flag.Int("radiusFinish", 20, "one past the last reference circle radius for cross correlation, pixels")

var centerRow = flag.Float64("centerRow", 0, "polar reprojection center row, 0=estimated or geometric center")
var centerCol = flag.Float64("centerCol", 0, "polar reprojection center column, 0=estimated or geometric center")
var major = flag.Float64("major", 0, "polar reprojection ellipse major axis, 0=circular")
var minor = flag.Float64("minor", 0, "polar reprojection ellipse minor axis, 0=circular")
var angle = flag.Float64("angle", 0, "polar reprojection ellipse rotation in radians")
var polarStart = flag.Int("polarStart", 0, "first polar reprojection radius, pixels")
var polarEnd   = flag.Int("polarEnd", 64, "one past the last polar reprojection radius, pixels")
var phaseWidth = flag.Int("phaseWidth", 720, "number of azimuthal samples per polar reprojection row")
var maskRadius = flag.Float64("maskRadius", 0, "mask the direct beam disc of this radius before polar reprojection, 0=off")

var grid     = flag.Bool("grid", false, "reproject onto full-extent polar grid instead of fixed radius range")
var jacobian = flag.Bool("jacobian", false, "scale full-extent polar grid rows by their radius")
var dr = flag.Float64("dr", 1, "full-extent polar grid radial spacing, pixels")
var dt = flag.Float64("dt", 0, "full-extent polar grid angular spacing in radians, 0=auto")

var chroot = flag.String("chroot", "", "serve: change filesystem root to `directory` (requires root)")
var setuid = flag.Int("setuid", -1, "serve: switch to given numeric user id after opening the port")

func main() {
	logWriter:=os.Stdout
	debug.SetGCPercent(10)
	start:=time.Now()
	flag.Usage=func(){
 	    fmt.Fprintf(logWriter, `Diffrakt Copyright (c) 2026 The diffrakt authors
This program comes with ABSOLUTELY NO WARRANTY.
This is free software, and you are welcome to redistribute it under certain conditions.
Refer to https://www.gnu.org/licenses/gpl-3.0.en.html for details.

Usage: %s [-flag value] (center|polar|profile|clean|serve|legal) (img0.tiff ... imgn.tiff)

Commands:
  center  Estimate the direct beam position of the input frames
  polar   Reproject input frames onto a polar grid about the beam center
  profile Reduce input frames to 1D radial intensity profiles
  clean   Calibrate input frames and remove hot pixels and background
  serve   Process frames via the REST API on port 8080
  legal   Show license and attribution information
  version Show version information

Flags:
`, os.Args[0])
	    flag.PrintDefaults()
	}
	flag.Parse()

	// Initialize logging to file in addition to stdout, if selected
	if *log=="%auto" {
		if *out!="" {
			*log=strings.TrimSuffix(*out, filepath.Ext(*out))+".log"
		} else {
			*log=""
		}
	}
	if *log!="" {
		err:=dk.LogAlsoToFile(*log)
		if err!=nil { dk.LogFatalf("Unable to open logfile '%s'\n", *log) }
	}

	// Also auto-select JPEG output target
	if *jpg=="%auto" {
		if *out!="" {
			*jpg=strings.TrimSuffix(*out, filepath.Ext(*out))+".jpg"
		} else {
			*jpg=""
		}
	}

	// Enable CPU profiling if flagged
    if *cpuprofile != "" {
        f, err := os.Create(*cpuprofile)
        if err != nil {
            dk.LogFatal("Could not create CPU profile: ", err)
        }
        defer f.Close()
        if err := pprof.StartCPUProfile(f); err != nil {
            dk.LogFatal("Could not start CPU profile: ", err)
        }
        defer pprof.StopCPUProfile()
    }

    args:=flag.Args()
    if len(args)<1 {
    	flag.Usage()
    	return
    }

	var err error
    switch args[0] {
    case "serve":
    	rest.MakeSandbox(*chroot, *setuid)
    	rest.Serve();

    case "center":
    	err=runPipeline(args[1:], opFindCenter())

    case "polar":
    	var opPolar ops.Operator
    	if *grid {
    		opPolar=ops.NewOpPolarGrid(*jacobian, *dr, *dt)
    	} else {
    		ell:=polar.Ellipse{CenterRow: *centerRow, CenterCol: *centerCol, Major: *major, Minor: *minor, Angle: *angle}
    		opPolar=ops.NewOpPolarReproject(ell, *polarStart, *polarEnd, *phaseWidth, *maskRadius)
    	}
    	err=runPipeline(args[1:], opFindCenter(), opPolar, ops.NewOpSave(*out), ops.NewOpSave(*jpg))

    case "profile":
    	steps:=append(opsClean(), ops.NewOpRadialProfileDefaults(), ops.NewOpSave(*out))
    	err=runPipeline(args[1:], steps...)

    case "clean":
    	steps:=append(opsClean(), ops.NewOpSave(*out), ops.NewOpSave(*jpg))
    	err=runPipeline(args[1:], steps...)

    case "legal":
    	cmdLegal()

    case "version":
    	fmt.Fprintf(logWriter, "Version %s\n", version)

    case "help", "?":
    	flag.Usage()

    default:
    	fmt.Fprintf(logWriter, "Unknown command '%s'\n\n", args[0])
    	flag.Usage()
    	return
    }

	now:=time.Now()
	elapsed:=now.Sub(start)
	fmt.Fprintf(logWriter, "\nDone after %v\n", elapsed)

	// Store memory profile if flagged
    if *memprofile != "" {
        f, err := os.Create(*memprofile)
        if err != nil {
            dk.LogFatal("Could not create memory profile: ", err)
        }
        defer f.Close()
        runtime.GC() // get up-to-date statistics
        if err := pprof.Lookup("allocs").WriteTo(f,0); err != nil {
            dk.LogFatal("Could not write allocation profile: ", err)
        }
    }

    if err!=nil {
		fmt.Fprintf(logWriter, "Error: %s\n", err.Error())
		os.Exit(-1)
	}
    dk.LogSync()
}

// Parse beam center flags into a findCenter operator
func opFindCenter() *ops.OpFindCenter {
	return ops.NewOpFindCenter(*method, *sigma, *upsample, *kind, *radiusStart, *radiusFinish)
}

// Parse calibration and cleanup flags into per-frame operators
func opsClean() []ops.Operator {
	var steps []ops.Operator
	if *dark!="" || *bright!="" {
		steps=append(steps, ops.NewOpCalibrate(*dark, *bright))
	}
	if *hotSigma>0 {
		steps=append(steps, ops.NewOpRepairHotPixels(float32(*hotSigma), *hotMode, 1))
	}
	if *bgMethod!="" {
		steps=append(steps, ops.NewOpSubtractBackground(*bgMethod, float32(*bgSigmaMin), float32(*bgSigmaMax), *bgFootprint, *bgFile))
	}
	return steps
}

// Globs the filename arguments and runs the given steps over every matching
// frame, logging the settings beforehand
func runPipeline(filePatterns []string, steps ...ops.Operator) error {
	perFrame:=ops.NewOpSequence(steps...)

	m, err:=json.MarshalIndent(perFrame, "", "  ")
	if err!=nil { return err }
	dk.LogPrintf("\nProcessing %v with these settings:\n%s\n", filePatterns, string(m))

	c:=ops.NewContext(dk.LogWriter())
	seq:=ops.NewOpSequence(ops.NewOpLoadMany(filePatterns), ops.NewOpForEach(perFrame))
	promises, err:=seq.MakePromises(nil, c)
	if err!=nil { return err }
	_, err=ops.MaterializeAll(promises, c.MaxThreads, true)
	return err
}
