package camera

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"math"
	"time"

	"github.com/edgevision/edgevisiond/pkg/videoframe"
	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"github.com/google/uuid"
	"github.com/tauraamui/xerror"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/math/fixed"
)

type mockBackend struct{}

func (b *mockBackend) Connect(cancel context.Context, addr string, dims videoframe.Dimensions) (Source, error) {
	if dims.W <= 0 || dims.H <= 0 {
		dims = videoframe.Dimensions{W: 640, H: 480}
	}
	// chroma subsampling needs even dimensions
	dims.W -= dims.W % 2
	dims.H -= dims.H % 2
	return &mockSource{label: addr, dims: dims, isOpen: true}, nil
}

// mockSource produces a synthetic three-circle test pattern with a
// label and wall-clock overlay, repacked as YUV 4:2:0 like a real
// capture device would deliver.
type mockSource struct {
	uuid               string
	label              string
	dims               videoframe.Dimensions
	isOpen             bool
	renderedBaseCanvas bool
	baseCanvas         image.Image
}

func (m *mockSource) UUID() string {
	if len(m.uuid) == 0 {
		m.uuid = uuid.NewString()
	}
	return m.uuid
}

func (m *mockSource) Read() (*videoframe.Raw, error) {
	if !m.isOpen {
		return nil, xerror.New("unable to read from closed synthetic source").AsKind(KindConnectionFailure)
	}

	if !m.renderedBaseCanvas {
		m.baseCanvas = renderBaseFrameCanvas(m.dims.W, m.dims.H)
		m.renderedBaseCanvas = true
	}

	img, err := drawTextLayerOntoBaseFrameClone(m.baseCanvas, m.label)
	if err != nil {
		return nil, err
	}

	return &videoframe.Raw{
		Width:      m.dims.W,
		Height:     m.dims.H,
		Pixels:     rgbaToYUV420(img, m.dims.W, m.dims.H),
		CapturedAt: time.Now(),
	}, nil
}

func (m *mockSource) IsOpen() bool {
	return m.isOpen
}

func (m *mockSource) Close() error {
	m.isOpen = false
	m.renderedBaseCanvas = false
	m.baseCanvas = nil
	return nil
}

func drawTextLayerOntoBaseFrameClone(base image.Image, label string) (*image.RGBA, error) {
	baseClone := cloneImage(base)
	h := baseClone.Bounds().Dy()
	lines := []string{
		"SYNTHETIC_FEED",
		label,
		time.Now().Format("2006-01-02 15:04:05.999999999"),
	}
	for i, line := range lines {
		if err := drawText(baseClone, 5, (i+1)*h/8, line); err != nil {
			return nil, xerror.Errorf("unable to draw text onto synthetic frame: %w", err)
		}
	}
	return baseClone, nil
}

func renderBaseFrameCanvas(w, h int) image.Image {
	var hw, hh float64 = float64(w / 2), float64(h / 2)
	r := float64(h) / 2
	θ := 2 * math.Pi / 3
	cr := &circle{hw - r*math.Sin(0), hh - r*math.Cos(0), r * 1.5}
	cg := &circle{hw - r*math.Sin(θ), hh - r*math.Cos(θ), r * 1.5}
	cb := &circle{hw - r*math.Sin(-θ), hh - r*math.Cos(-θ), r * 1.5}

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			c := color.RGBA{
				cr.Brightness(float64(x), float64(y)),
				cg.Brightness(float64(x), float64(y)),
				cb.Brightness(float64(x), float64(y)),
				255,
			}
			img.Set(x, y, c)
		}
	}
	return img
}

func cloneImage(src image.Image) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(b)
	draw.Draw(dst, b, src, b.Min, draw.Src)
	return dst
}

func drawText(canvas *image.RGBA, x, y int, text string) error {
	var (
		fontFace *truetype.Font
		err      error
		fontSize = float64(canvas.Bounds().Dy()) / 12
	)
	fontFace, err = freetype.ParseFont(goregular.TTF)
	if err != nil {
		return err
	}
	fontDrawer := &font.Drawer{
		Dst: canvas,
		Src: image.White,
		Face: truetype.NewFace(fontFace, &truetype.Options{
			Size:    fontSize,
			Hinting: font.HintingFull,
		}),
	}
	textBounds, _ := fontDrawer.BoundString(text)
	textHeight := textBounds.Max.Y - textBounds.Min.Y
	fontDrawer.Dot = fixed.Point26_6{
		X: fixed.I(x),
		Y: fixed.I(y) + fixed.I(textHeight.Ceil())/2,
	}
	fontDrawer.DrawString(text)
	return nil
}

type circle struct {
	X, Y, R float64
}

func (c *circle) Brightness(x, y float64) uint8 {
	var dx, dy float64 = c.X - x, c.Y - y
	d := math.Sqrt(dx*dx+dy*dy) / c.R
	if d > 1 {
		return 0
	}
	return 255
}

// rgbaToYUV420 packs an RGBA image into planar Y, U, V with 2x2
// chroma subsampling using BT.601 coefficients. Both dimensions must
// be even.
func rgbaToYUV420(img *image.RGBA, w, h int) []byte {
	buf := make([]byte, w*h+(w*h)/2)
	luma := buf[:w*h]
	u := buf[w*h : w*h+(w*h)/4]
	v := buf[w*h+(w*h)/4:]

	for row := 0; row < h; row++ {
		for col := 0; col < w; col++ {
			i := img.PixOffset(col, row)
			r, g, b := int(img.Pix[i]), int(img.Pix[i+1]), int(img.Pix[i+2])
			luma[row*w+col] = clampByte((299*r + 587*g + 114*b) / 1000)
		}
	}
	for row := 0; row < h; row += 2 {
		for col := 0; col < w; col += 2 {
			i := img.PixOffset(col, row)
			r, g, b := int(img.Pix[i]), int(img.Pix[i+1]), int(img.Pix[i+2])
			ci := (row/2)*(w/2) + col/2
			u[ci] = clampByte((-169*r-331*g+500*b)/1000 + 128)
			v[ci] = clampByte((500*r-419*g-81*b)/1000 + 128)
		}
	}
	return buf
}

func clampByte(v int) byte {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return byte(v)
}
