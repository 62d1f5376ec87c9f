// Package chart renders forecast series as PNG line charts with an
// uncertainty band, suitable for direct embedding in the dashboard.
package chart

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/lox/aqicast/internal/models"
)

const (
	chartWidth  = 900
	chartHeight = 360

	marginLeft   = 50
	marginRight  = 20
	marginTop    = 30
	marginBottom = 30
)

var (
	background = color.RGBA{18, 22, 30, 255}
	gridColor  = color.RGBA{45, 52, 64, 255}
	bandColor  = color.RGBA{38, 70, 100, 255}
	lineColor  = color.RGBA{79, 195, 247, 255}
	splitColor = color.RGBA{255, 183, 77, 255}
	textColor  = color.RGBA{200, 205, 215, 255}
)

// Render draws the forecast series for a city. histCount is the number of
// leading in-sample rows; the boundary between history and future is marked
// with a vertical line.
func Render(city string, points []models.ForecastPoint, histCount int) ([]byte, error) {
	if len(points) < 2 {
		return nil, errors.New("not enough points to chart")
	}

	minV, maxV := points[0].Lower, points[0].Upper
	for _, p := range points {
		if p.Lower < minV {
			minV = p.Lower
		}
		if p.Upper > maxV {
			maxV = p.Upper
		}
	}
	if minV > 0 {
		minV = 0
	}
	if maxV <= minV {
		maxV = minV + 1
	}

	img := image.NewRGBA(image.Rect(0, 0, chartWidth, chartHeight))
	for y := 0; y < chartHeight; y++ {
		for x := 0; x < chartWidth; x++ {
			img.SetRGBA(x, y, background)
		}
	}

	plotW := chartWidth - marginLeft - marginRight
	plotH := chartHeight - marginTop - marginBottom

	xAt := func(i int) int {
		return marginLeft + i*plotW/(len(points)-1)
	}
	yAt := func(v int) int {
		return marginTop + plotH - (v-minV)*plotH/(maxV-minV)
	}

	// Horizontal gridlines at quarters of the value range.
	for g := 0; g <= 4; g++ {
		v := minV + (maxV-minV)*g/4
		y := yAt(v)
		for x := marginLeft; x < chartWidth-marginRight; x++ {
			img.SetRGBA(x, y, gridColor)
		}
		drawLabel(img, fmt.Sprintf("%d", v), 6, y+4)
	}

	// Uncertainty band, filled column by column.
	for i := 0; i < len(points)-1; i++ {
		x0, x1 := xAt(i), xAt(i+1)
		for x := x0; x <= x1; x++ {
			lo := interpolate(x, x0, x1, yAt(points[i].Lower), yAt(points[i+1].Lower))
			hi := interpolate(x, x0, x1, yAt(points[i].Upper), yAt(points[i+1].Upper))
			for y := hi; y <= lo; y++ {
				img.SetRGBA(x, y, bandColor)
			}
		}
	}

	// History/future divider.
	if histCount > 0 && histCount < len(points) {
		x := xAt(histCount)
		for y := marginTop; y < chartHeight-marginBottom; y++ {
			img.SetRGBA(x, y, splitColor)
		}
	}

	// Prediction line.
	for i := 0; i < len(points)-1; i++ {
		drawSegment(img, xAt(i), yAt(points[i].AQI), xAt(i+1), yAt(points[i+1].AQI), lineColor)
	}

	drawLabel(img, fmt.Sprintf("Predicted AQI for %s", city), marginLeft, 18)
	drawLabel(img, points[0].Date.Format("2006-01-02"), marginLeft, chartHeight-10)
	last := points[len(points)-1].Date.Format("2006-01-02")
	drawLabel(img, last, chartWidth-marginRight-7*len(last), chartHeight-10)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode chart: %w", err)
	}
	return buf.Bytes(), nil
}

func interpolate(x, x0, x1, y0, y1 int) int {
	if x1 == x0 {
		return y0
	}
	return y0 + (x-x0)*(y1-y0)/(x1-x0)
}

// drawSegment draws a line between two points, stepping along the longer
// axis.
func drawSegment(img *image.RGBA, x0, y0, x1, y1 int, col color.RGBA) {
	dx, dy := x1-x0, y1-y0
	steps := abs(dx)
	if abs(dy) > steps {
		steps = abs(dy)
	}
	if steps == 0 {
		img.SetRGBA(x0, y0, col)
		return
	}
	for s := 0; s <= steps; s++ {
		x := x0 + dx*s/steps
		y := y0 + dy*s/steps
		img.SetRGBA(x, y, col)
	}
}

func drawLabel(img *image.RGBA, text string, x, y int) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(textColor),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
