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


package frame

import (
	"bufio"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	_ "image/png"
	"io"
	"math"
	"os"

	colorful "github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/tiff"
)

// NewFrameFromFile reads a grayscale frame from a TIFF, PNG or JPEG file.
// Color inputs are converted to luminance. Prints a summary to the log writer
func NewFrameFromFile(fileName string, id int, logWriter io.Writer) (*Frame, error) {
	file, err:=os.Open(fileName)
	if err!=nil { return nil, err }
	defer file.Close()
	reader:=bufio.NewReader(file)

	img, format, err:=image.Decode(reader)
	if err!=nil { return nil, errors.New(fmt.Sprintf("%s: %s", fileName, err.Error())) }

	width, height:=img.Bounds().Dx(), img.Bounds().Dy()
	data:=make([]float32, width*height)

	// fast paths for the common camera formats, generic conversion otherwise
	switch im:=img.(type) {
	case *image.Gray16:
		for y:=0; y<height; y++ {
			for x:=0; x<width; x++ {
				data[y*width+x]=float32(im.Gray16At(x, y).Y)
			}
		}
	case *image.Gray:
		for y:=0; y<height; y++ {
			for x:=0; x<width; x++ {
				data[y*width+x]=float32(im.GrayAt(x, y).Y)
			}
		}
	default:
		for y:=0; y<height; y++ {
			for x:=0; x<width; x++ {
				c:=color.Gray16Model.Convert(img.At(x, y)).(color.Gray16)
				data[y*width+x]=float32(c.Y)
			}
		}
	}

	f:=NewFrame(int32(width), int32(height), data)
	f.ID      =id
	f.FileName=fileName
	fmt.Fprintf(logWriter, "%d: Loaded %s %s frame with %v from %s\n", id, f.DimensionsToString(), format, f.Stats, fileName)
	return f, nil
}

// Write the frame to 16-bit grayscale TIFF, scaling the given min, max to the full range
func (f *Frame) WriteTIFF16ToFile(fileName string, min, max float32) error {
	file, err:=os.Create(fileName)
	if err!=nil { return err }
	defer file.Close()

	writer:=bufio.NewWriter(file)
	defer writer.Flush()

	return f.WriteTIFF16(writer, min, max)
}

// Write the frame to 16-bit grayscale TIFF, scaling the given min, max to the full range
func (f *Frame) WriteTIFF16(writer io.Writer, min, max float32) error {
	width, height:=int(f.Width), int(f.Height)
	img:=image.NewGray16(image.Rectangle{image.Point{0, 0}, image.Point{width, height}})
	scale:=1/(max-min)
	for y:=0; y<height; y++ {
		yoffset:=y*width
		for x:=0; x<width; x++ {
			gray:=f.Data[yoffset+x]
			gray=(gray-min)*scale
			// replace NaNs with zeros for export, else TIFF output breaks
			if math.IsNaN(float64(gray)) || gray<0 {
				gray=0
			}
			if gray>1 {
				gray=1
			}
			img.SetGray16(x, y, color.Gray16{uint16(gray*65535)})
		}
	}

	return tiff.Encode(writer, img, &tiff.Options{Compression: tiff.Uncompressed, Predictor: false})
}

// Write an 8-bit false color preview of the frame as JPEG, scaling the given min, max
// to the full range of the color map. Masked or negative pixels render black
func (f *Frame) WriteFalseColorJPGToFile(fileName string, min, max float32, quality int) error {
	file, err:=os.Create(fileName)
	if err!=nil { return err }
	defer file.Close()

	writer:=bufio.NewWriter(file)
	defer writer.Flush()

	return f.WriteFalseColorJPG(writer, min, max, quality)
}

// Write an 8-bit false color preview of the frame as JPEG, scaling the given min, max
// to the full range of the color map
func (f *Frame) WriteFalseColorJPG(writer io.Writer, min, max float32, quality int) error {
	width, height:=int(f.Width), int(f.Height)
	img:=image.NewRGBA(image.Rectangle{image.Point{0, 0}, image.Point{width, height}})
	scale:=1/(max-min)
	for y:=0; y<height; y++ {
		yoffset:=y*width
		for x:=0; x<width; x++ {
			v:=f.Data[yoffset+x]
			v=(v-min)*scale
			if math.IsNaN(float64(v)) || v<0 {
				v=0
			}
			if v>1 {
				v=1
			}
			if f.Mask!=nil && f.Mask[yoffset+x] {
				v=0
			}
			r, g, b:=falseColor(float64(v)).RGB255()
			img.SetRGBA(x, y, color.RGBA{r, g, b, 255})
		}
	}

	return jpeg.Encode(writer, img, &jpeg.Options{Quality: quality})
}

// Thermal style color map from black over blue and orange to white,
// blended perceptually in Luv space
var falseColorStops=[]struct {
	Pos float64
	Col colorful.Color
}{
	{0.00, colorful.Color{R: 0.00, G: 0.00, B: 0.00}},
	{0.25, colorful.Color{R: 0.05, G: 0.08, B: 0.45}},
	{0.55, colorful.Color{R: 0.75, G: 0.25, B: 0.10}},
	{0.80, colorful.Color{R: 0.98, G: 0.75, B: 0.20}},
	{1.00, colorful.Color{R: 1.00, G: 1.00, B: 1.00}},
}

func falseColor(v float64) colorful.Color {
	for i:=0; i<len(falseColorStops)-1; i++ {
		s0, s1:=falseColorStops[i], falseColorStops[i+1]
		if v>=s0.Pos && v<=s1.Pos {
			return s0.Col.BlendLuv(s1.Col, (v-s0.Pos)/(s1.Pos-s0.Pos)).Clamped()
		}
	}
	return falseColorStops[len(falseColorStops)-1].Col
}
