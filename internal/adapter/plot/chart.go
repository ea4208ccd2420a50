package plot

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/golang/freetype/truetype"
	"github.com/llgcode/draw2d"
	"github.com/llgcode/draw2d/draw2dimg"
	"github.com/llgcode/draw2d/draw2dkit"
	"golang.org/x/image/font/gofont/goregular"
)

var (
	fontData = draw2d.FontData{Name: "goregular", Family: draw2d.FontFamilySans, Style: draw2d.FontStyleNormal}

	registerOnce sync.Once
	registerErr  error
)

// registerFont makes the Go regular face available to draw2d.
func registerFont() error {
	registerOnce.Do(func() {
		f, err := truetype.Parse(goregular.TTF)
		if err != nil {
			registerErr = fmt.Errorf("parse font: %w", err)
			return
		}
		draw2d.RegisterFont(fontData, f)
	})
	return registerErr
}

var (
	background = color.RGBA{0xff, 0xff, 0xff, 0xff}
	foreground = color.RGBA{0x22, 0x22, 0x22, 0xff}
	gridColor  = color.RGBA{0xdd, 0xdd, 0xdd, 0xff}
	palette    = []color.RGBA{
		{0x1f, 0x77, 0xb4, 0xff},
		{0xff, 0x7f, 0x0e, 0xff},
		{0x2c, 0xa0, 0x2c, 0xff},
		{0xd6, 0x27, 0x28, 0xff},
		{0x94, 0x67, 0xbd, 0xff},
	}
)

const (
	marginLeft   = 80.0
	marginRight  = 30.0
	marginTop    = 50.0
	marginBottom = 60.0
	tickCount    = 5
)

// chart maps data coordinates onto a plotting area inside fixed margins.
type chart struct {
	img        *image.RGBA
	gc         *draw2dimg.GraphicContext
	width      float64
	height     float64
	xMin, xMax float64
	yMin, yMax float64
	xTimeAxis  bool
	legendRows int
}

func newChart(width, height int, title string) *chart {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	gc := draw2dimg.NewGraphicContext(img)
	c := &chart{img: img, gc: gc, width: float64(width), height: float64(height)}

	gc.SetFillColor(background)
	draw2dkit.Rectangle(gc, 0, 0, c.width, c.height)
	gc.Fill()

	gc.SetFontData(fontData)
	gc.SetFillColor(foreground)
	gc.SetFontSize(14)
	gc.FillStringAt(title, marginLeft, marginTop/2+6)
	return c
}

// setBounds fits the axes to the finite values of xs and ys.
func (c *chart) setBounds(xs []float64, ys ...[]float64) {
	c.xMin, c.xMax = finiteRange(xs)
	c.yMin, c.yMax = math.Inf(1), math.Inf(-1)
	for _, y := range ys {
		lo, hi := finiteRange(y)
		c.yMin = math.Min(c.yMin, lo)
		c.yMax = math.Max(c.yMax, hi)
	}
	c.xMin, c.xMax = widen(c.xMin, c.xMax)
	c.yMin, c.yMax = widen(c.yMin, c.yMax)
}

func finiteRange(v []float64) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			continue
		}
		lo = math.Min(lo, x)
		hi = math.Max(hi, x)
	}
	return lo, hi
}

// widen turns an empty or zero-width range into a drawable one.
func widen(lo, hi float64) (float64, float64) {
	switch {
	case math.IsInf(lo, 1):
		return 0, 1
	case lo == hi:
		return lo - 1, hi + 1
	}
	pad := (hi - lo) * 0.03
	return lo - pad, hi + pad
}

func (c *chart) px(x float64) float64 {
	return marginLeft + (x-c.xMin)/(c.xMax-c.xMin)*(c.width-marginLeft-marginRight)
}

func (c *chart) py(y float64) float64 {
	return c.height - marginBottom - (y-c.yMin)/(c.yMax-c.yMin)*(c.height-marginTop-marginBottom)
}

// axes draws the frame, grid lines, tick labels and axis titles.
func (c *chart) axes(xLabel, yLabel string) {
	gc := c.gc
	left, right := marginLeft, c.width-marginRight
	top, bottom := marginTop, c.height-marginBottom

	gc.SetLineWidth(1)
	gc.SetFontSize(10)
	for i := 0; i <= tickCount; i++ {
		f := float64(i) / tickCount

		x := c.xMin + f*(c.xMax-c.xMin)
		gc.SetStrokeColor(gridColor)
		line(gc, c.px(x), top, c.px(x), bottom)
		gc.SetFillColor(foreground)
		gc.FillStringAt(c.xTick(x), c.px(x)-25, bottom+16)

		y := c.yMin + f*(c.yMax-c.yMin)
		gc.SetStrokeColor(gridColor)
		line(gc, left, c.py(y), right, c.py(y))
		gc.SetFillColor(foreground)
		gc.FillStringAt(strconv.FormatFloat(y, 'g', 4, 64), 8, c.py(y)+4)
	}

	gc.SetStrokeColor(foreground)
	gc.BeginPath()
	draw2dkit.Rectangle(gc, left, top, right, bottom)
	gc.Stroke()

	gc.SetFontSize(12)
	gc.FillStringAt(xLabel, (left+right)/2-20, c.height-18)
	gc.FillStringAt(yLabel, 8, top-10)
}

func (c *chart) xTick(x float64) string {
	if c.xTimeAxis {
		return time.Unix(int64(x), 0).UTC().Format(time.DateOnly)
	}
	return strconv.FormatFloat(x, 'g', 4, 64)
}

// polyline draws ys against xs, breaking the line at undefined values.
func (c *chart) polyline(xs, ys []float64, col color.RGBA) {
	gc := c.gc
	gc.SetStrokeColor(col)
	gc.SetLineWidth(1)
	gc.BeginPath()
	open := false
	for i := range xs {
		if math.IsNaN(ys[i]) {
			open = false
			continue
		}
		if open {
			gc.LineTo(c.px(xs[i]), c.py(ys[i]))
		} else {
			gc.MoveTo(c.px(xs[i]), c.py(ys[i]))
			open = true
		}
	}
	gc.Stroke()
}

// points draws one dot per defined (x, y) pair.
func (c *chart) points(xs, ys []float64, col color.RGBA) {
	gc := c.gc
	gc.SetFillColor(col)
	for i := range xs {
		if math.IsNaN(xs[i]) || math.IsNaN(ys[i]) {
			continue
		}
		gc.BeginPath()
		draw2dkit.Circle(gc, c.px(xs[i]), c.py(ys[i]), 2)
		gc.Fill()
	}
}

// legend adds one labeled swatch under the title.
func (c *chart) legend(label string, col color.RGBA) {
	gc := c.gc
	x := c.width - marginRight - 90
	y := marginTop + 14 + float64(c.legendRows)*16
	gc.SetFillColor(col)
	gc.BeginPath()
	draw2dkit.Rectangle(gc, x, y-8, x+12, y+2)
	gc.Fill()
	gc.SetFillColor(foreground)
	gc.SetFontSize(11)
	gc.FillStringAt(label, x+18, y+2)
	c.legendRows++
}

func (c *chart) save(path string) error {
	if err := draw2dimg.SaveToPngFile(path, c.img); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

func line(gc draw2d.GraphicContext, x0, y0, x1, y1 float64) {
	gc.BeginPath()
	gc.MoveTo(x0, y0)
	gc.LineTo(x1, y1)
	gc.Stroke()
}
