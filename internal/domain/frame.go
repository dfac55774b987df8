package domain

// Pixoo64Size is the default Pixoo64 display size (64x64).
const Pixoo64Size = 64

// BytesPerPixel is the number of bytes per pixel (RGB).
const BytesPerPixel = 3

// Frame represents a single frame of pixel data.
type Frame struct {
	Width  int
	Height int
	// Pixels is a flat array of RGB values: [r0,g0,b0, r1,g1,b1, ...]
	Pixels []byte
}

// NewFrame creates a new frame filled with black (0, 0, 0).
func NewFrame(width, height int) *Frame {
	return &Frame{
		Width:  width,
		Height: height,
		Pixels: make([]byte, width*height*BytesPerPixel),
	}
}

// NewFrameWithColor creates a new frame filled with the specified color.
func NewFrameWithColor(width, height int, color RGB) *Frame {
	f := NewFrame(width, height)
	f.FillRect(0, 0, width, height, color)
	return f
}

// SetPixel sets a single pixel in the frame. Out of bounds coordinates are silently ignored.
func (f *Frame) SetPixel(x, y int, color RGB) {
	if x < 0 || x >= f.Width || y < 0 || y >= f.Height {
		return
	}
	offset := (y*f.Width + x) * BytesPerPixel
	f.Pixels[offset] = color.R
	f.Pixels[offset+1] = color.G
	f.Pixels[offset+2] = color.B
}

// GetPixel returns the color at the specified coordinates, or nil if out of bounds.
func (f *Frame) GetPixel(x, y int) *RGB {
	if x < 0 || x >= f.Width || y < 0 || y >= f.Height {
		return nil
	}
	offset := (y*f.Width + x) * BytesPerPixel
	return &RGB{
		R: f.Pixels[offset],
		G: f.Pixels[offset+1],
		B: f.Pixels[offset+2],
	}
}

// FillRect fills a rectangular area with the specified color.
func (f *Frame) FillRect(x, y, width, height int, color RGB) {
	for dy := 0; dy < height; dy++ {
		for dx := 0; dx < width; dx++ {
			f.SetPixel(x+dx, y+dy, color)
		}
	}
}

// Band is one colored share of a stacked fill. Share is a percentage (0-100).
type Band struct {
	Color RGB
	Share float64
}

// FillStacked fills a rectangle bottom-up with bands sized by their share.
// Each pixel row takes the band covering the row's midpoint, so a band needs
// roughly 100/height percent to show at all. Rows past the last band keep
// background.
func (f *Frame) FillStacked(x, y, width, height int, bands []Band, background RGB) {
	if height <= 0 {
		return
	}
	for row := 0; row < height; row++ {
		mid := (float64(row) + 0.5) / float64(height) * 100
		color := background
		end := 0.0
		for _, band := range bands {
			end += band.Share
			if mid < end {
				color = band.Color
				break
			}
		}
		// Row 0 is the bottom of the rectangle.
		f.FillRect(x, y+height-1-row, width, 1, color)
	}
}
