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


package rest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"github.com/gin-gonic/gin"

	"github.com/avheyman/diffrakt/internal/center"
	"github.com/avheyman/diffrakt/internal/ops"
)


func Serve() {
	r := gin.Default()
	api := r.Group("/api")
	{
		v1 := api.Group("/v1")
		{
			v1.GET ("/ping",     getPing)
			v1.POST("/center",   postCenter)
			v1.POST("/polar",    postPolar)
			v1.POST("/clean",    postClean)
			v1.POST("/gvectors", postGVectors)
		}
	}
	r.Run() // listen and serve on 0.0.0.0:8080
}

func getPing(c *gin.Context) {
	c.JSON(200, gin.H{
		"message": "pong",
	})
}

func printArgs(logWriter io.Writer, prefix, suffix string, args interface{}) error {
	m,err:=json.MarshalIndent(args, "", "  ")
	if err!=nil { return err }
	fmt.Fprintf(logWriter, "%s%s%s", prefix, string(m), suffix)
	return nil
}

// Binds the request arguments, streams the pipeline log as text/plain, and
// runs the given per-frame steps over the globbed input files
func servePipeline(c *gin.Context, args interface{}, filePatterns []string, steps ...ops.Operator) {
	logWriter := c.Writer

	header := logWriter.Header()
	header.Set("Content-Type", "text/plain")
	logWriter.WriteHeader(http.StatusOK)

	if err:=printArgs(logWriter, "Arguments:\n", "\n", args); err!=nil {
		fmt.Fprintf(logWriter, "Error printing arguments: %s\n", err.Error())
		return
	}

	oc:=ops.NewContext(logWriter)
	seq:=ops.NewOpSequence(ops.NewOpLoadMany(filePatterns), ops.NewOpForEach(ops.NewOpSequence(steps...)))
	promises, err:=seq.MakePromises(nil, oc)
	if err!=nil {
		fmt.Fprintf(logWriter, "error: %s\n", err.Error())
		return
	}
	if _, err=ops.MaterializeAll(promises, oc.MaxThreads, true); err!=nil {
		fmt.Fprintf(logWriter, "error: %s\n", err.Error())
	}
	logWriter.(http.Flusher).Flush()
}

type postCenterArgs struct {
	FilePatterns []string          `json:"filePatterns"`
	FindCenter   *ops.OpFindCenter `json:"findCenter"`
}

func postCenter(c *gin.Context)  {
	var args postCenterArgs
	if err:=c.ShouldBind(&args); err!=nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error() } )
		return
	}
	if args.FindCenter==nil {
		args.FindCenter=ops.NewOpFindCenterDefaults()
	}
	servePipeline(c, args, args.FilePatterns, args.FindCenter)
}


type postPolarArgs struct {
	FilePatterns   []string              `json:"filePatterns"`
	FindCenter     *ops.OpFindCenter     `json:"findCenter"`
	PolarReproject *ops.OpPolarReproject `json:"polarReproject"`
	Save           *ops.OpSave           `json:"save"`
}

func postPolar(c *gin.Context) {
	var args postPolarArgs
	if err:=c.ShouldBind(&args); err!=nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error() } )
		return
	}
	if args.PolarReproject==nil {
		args.PolarReproject=ops.NewOpPolarReprojectDefaults()
	}

	var steps []ops.Operator
	if args.FindCenter!=nil { steps=append(steps, args.FindCenter) }
	steps=append(steps, args.PolarReproject)
	if args.Save!=nil       { steps=append(steps, args.Save) }
	servePipeline(c, args, args.FilePatterns, steps...)
}


type postCleanArgs struct {
	FilePatterns       []string                  `json:"filePatterns"`
	Calibrate          *ops.OpCalibrate          `json:"calibrate"`
	RepairHotPixels    *ops.OpRepairHotPixels    `json:"repairHotPixels"`
	SubtractBackground *ops.OpSubtractBackground `json:"subtractBackground"`
	Save               *ops.OpSave               `json:"save"`
}

func postClean(c *gin.Context) {
	var args postCleanArgs
	if err:=c.ShouldBind(&args); err!=nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error() } )
		return
	}

	var steps []ops.Operator
	if args.Calibrate!=nil          { steps=append(steps, args.Calibrate) }
	if args.RepairHotPixels!=nil    { steps=append(steps, args.RepairHotPixels) }
	if args.SubtractBackground!=nil { steps=append(steps, args.SubtractBackground) }
	if args.Save!=nil               { steps=append(steps, args.Save) }
	if len(steps)==0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no processing steps given"} )
		return
	}
	servePipeline(c, args, args.FilePatterns, steps...)
}


type postGVectorsArgs struct {
	Peaks       []center.Center `json:"peaks"`
	Center      center.Center   `json:"center"`
	Calibration float64         `json:"calibration"`
}

// Converts detected peak positions into calibrated reciprocal space vectors
// relative to the given beam center. Pure computation, no file access
func postGVectors(c *gin.Context) {
	var args postGVectorsArgs
	if err:=c.ShouldBind(&args); err!=nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error() } )
		return
	}
	if args.Calibration==0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "calibration must be non-zero"} )
		return
	}
	c.JSON(http.StatusOK, gin.H{"gVectors": center.GVectors(args.Peaks, args.Center, args.Calibration)})
}
