package imagepipeline

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/png"
)

// renderWidth/renderHeight fix the trend-graph canvas size. The chart is
// intentionally simple (axes, a handful of palette colors, no labels
// finer than the frame) since this is a glance-at-a-chat-message
// sparkline, not a dashboard panel.
const (
	renderWidth  = 480
	renderHeight = 240
	margin       = 24
)

var palette = []color.RGBA{
	{230, 80, 80, 255},
	{80, 140, 230, 255},
	{80, 200, 120, 255},
	{230, 180, 60, 255},
	{160, 100, 220, 255},
}

// RasterizePNG renders series as a line chart and returns PNG-encoded
// bytes. An empty series list yields (nil, nil): an empty result set
// is not an error.
func RasterizePNG(allSeries []series) ([]byte, error) {
	if len(allSeries) == 0 {
		return nil, nil
	}

	img := image.NewRGBA(image.Rect(0, 0, renderWidth, renderHeight))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	drawAxes(img)

	minTS, maxTS, minVal, maxVal := bounds(allSeries)
	for i, s := range allSeries {
		drawSeries(img, s, palette[i%len(palette)], minTS, maxTS, minVal, maxVal)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func bounds(allSeries []series) (minTS, maxTS, minVal, maxVal float64) {
	first := true
	for _, s := range allSeries {
		for _, p := range s.Points {
			if first {
				minTS, maxTS, minVal, maxVal = p.Timestamp, p.Timestamp, p.Value, p.Value
				first = false
				continue
			}
			if p.Timestamp < minTS {
				minTS = p.Timestamp
			}
			if p.Timestamp > maxTS {
				maxTS = p.Timestamp
			}
			if p.Value < minVal {
				minVal = p.Value
			}
			if p.Value > maxVal {
				maxVal = p.Value
			}
		}
	}
	if maxTS == minTS {
		maxTS = minTS + 1
	}
	if maxVal == minVal {
		maxVal = minVal + 1
	}
	return minTS, maxTS, minVal, maxVal
}

func drawAxes(img *image.RGBA) {
	axisColor := color.RGBA{180, 180, 180, 255}
	for x := margin; x < renderWidth-margin; x++ {
		img.Set(x, renderHeight-margin, axisColor)
	}
	for y := margin; y < renderHeight-margin; y++ {
		img.Set(margin, y, axisColor)
	}
}

func drawSeries(img *image.RGBA, s series, c color.RGBA, minTS, maxTS, minVal, maxVal float64) {
	var prevX, prevY int
	for i, p := range s.Points {
		x := margin + int((p.Timestamp-minTS)/(maxTS-minTS)*float64(renderWidth-2*margin))
		y := renderHeight - margin - int((p.Value-minVal)/(maxVal-minVal)*float64(renderHeight-2*margin))
		if i > 0 {
			drawLine(img, prevX, prevY, x, y, c)
		}
		prevX, prevY = x, y
	}
}

// drawLine is a straightforward Bresenham rasterizer; good enough for a
// few dozen sample points on a 480x240 canvas.
func drawLine(img *image.RGBA, x0, y0, x1, y1 int, c color.RGBA) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy

	for {
		img.Set(x0, y0, c)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
