package flap

import (
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"log"
	"net/http"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	previewCellWidth  = 4*7 + 8 // four 7px glyphs plus padding; fits "0-AM".
	previewCellHeight = 13 + 8
	previewSpacing    = 4
	previewScale      = 4
)

// unknownGlyph is shown for a digit whose position is not known.
const unknownGlyph = "?"

func (e *Engine) updateGlyphs() {
	glyphs := make([]string, len(e.digits))
	for i, d := range e.digits {
		if cur, ok := d.Current(); ok {
			glyphs[i] = d.Alphabet[cur]
		} else {
			glyphs[i] = unknownGlyph
		}
	}
	e.glyphsMu.Lock()
	defer e.glyphsMu.Unlock()
	e.glyphs = glyphs
}

// Glyphs returns what the engine believes each digit showed at the end of the last call that
// moved it.
func (e *Engine) Glyphs() []string {
	e.glyphsMu.Lock()
	defer e.glyphsMu.Unlock()
	return append([]string(nil), e.glyphs...)
}

// renderGlyphs draws one dark cell per digit with its glyph in the middle, then enlarges the result
// so it is readable in a browser.
func renderGlyphs(glyphs []string) *image.NRGBA {
	w := len(glyphs)*(previewCellWidth+previewSpacing) + previewSpacing
	h := previewCellHeight + 2*previewSpacing
	small := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(small, small.Bounds(), image.NewUniform(color.NRGBA{A: 0xff}), image.Point{}, draw.Src)

	face := basicfont.Face7x13
	for i, g := range glyphs {
		x := previewSpacing + i*(previewCellWidth+previewSpacing)
		cell := image.Rect(x, previewSpacing, x+previewCellWidth, previewSpacing+previewCellHeight)
		draw.Draw(small, cell, image.NewUniform(color.NRGBA{R: 0x30, G: 0x30, B: 0x30, A: 0xff}), image.Point{}, draw.Src)
		drawer := &font.Drawer{
			Dst:  small,
			Src:  image.NewUniform(color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}),
			Face: face,
		}
		width := drawer.MeasureString(g).Ceil()
		drawer.Dot = fixed.P(x+(previewCellWidth-width)/2, previewSpacing+4+face.Ascent)
		drawer.DrawString(g)
	}

	big := image.NewNRGBA(image.Rect(0, 0, w*previewScale, h*previewScale))
	for x := 0; x < w*previewScale; x++ {
		for y := 0; y < h*previewScale; y++ {
			big.SetNRGBA(x, y, small.NRGBAAt(x/previewScale, y/previewScale))
		}
	}
	return big
}

// ServeHTTP serves a picture of the display as a PNG, so the clock can be watched (and debugged)
// without being in the room or having the hardware attached.
func (e *Engine) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	w.Header().Add("content-type", "image/png")
	w.WriteHeader(http.StatusOK)
	if err := png.Encode(w, renderGlyphs(e.Glyphs())); err != nil {
		log.Printf("encoding display preview: %v", err)
	}
}
