package ledmatrix

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"

	bdf "github.com/zachomedia/go-bdf"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
	"golang.org/x/text/unicode/norm"
	"tinygo.org/x/drivers"
	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/proggy"
)

// Glyph is the bitmap of one character. Pixels holds the covered
// offsets relative to the glyph origin: the left edge of the cell on
// the baseline, with y growing downwards (rows above the baseline are
// negative).
type Glyph struct {
	Rune    rune
	Width   int
	Height  int
	Advance int
	Pixels  []image.Point
}

// Font is an immutable rune to Glyph table. It is safe for concurrent use.
type Font struct {
	name     string
	glyphs   map[rune]Glyph
	ascent   int
	height   int
	fallback int
	sides    map[rune]sides
}

// sides holds the blank columns left and right of a glyph's ink within
// its advance cell
type sides struct {
	left, right int
}

// kernGap is the blank space kerning leaves between two inked glyphs
const kernGap = 1

// LoadFont loads a BDF bitmap font from path
func LoadFont(path string) (*Font, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &FontLoadError{Path: path, Err: err}
	}
	return ParseFont(filepath.Base(path), data)
}

// ParseFont parses BDF font data. name is only used in errors and logs.
func ParseFont(name string, data []byte) (f *Font, err error) {
	if len(data) == 0 {
		return nil, &FontLoadError{Path: name, Err: errors.New("empty font data")}
	}

	// go-bdf indexes tokens without bounds checks on truncated lines
	defer func() {
		if r := recover(); r != nil {
			f = nil
			err = &FontLoadError{Path: name, Err: fmt.Errorf("malformed BDF: %v", r)}
		}
	}()

	parsed, perr := bdf.Parse(data)
	if perr != nil {
		return nil, &FontLoadError{Path: name, Err: perr}
	}
	if len(parsed.Characters) == 0 {
		return nil, &FontLoadError{Path: name, Err: errors.New("font contains no glyphs")}
	}

	face := parsed.NewFace()
	defer face.Close()

	glyphs := make(map[rune]Glyph, len(parsed.Characters))
	for _, ch := range parsed.Characters {
		g, ok := rasterizeFaceGlyph(face, ch.Encoding)
		if !ok {
			continue
		}
		glyphs[ch.Encoding] = g
	}
	if len(glyphs) == 0 {
		return nil, &FontLoadError{Path: name, Err: errors.New("font contains no glyphs")}
	}

	f = newFont(name, glyphs, parsed.DefaultChar)
	metrics := face.Metrics()
	if a := metrics.Ascent.Ceil(); a > 0 {
		f.ascent = a
	}
	if h := metrics.Height.Ceil(); h > 0 {
		f.height = h
	}
	return f, nil
}

// rasterizeFaceGlyph renders r with the origin at (0,0) and collects the
// covered pixels of the returned mask
func rasterizeFaceGlyph(face font.Face, r rune) (Glyph, bool) {
	dr, mask, maskp, advance, ok := face.Glyph(fixed.Point26_6{}, r)
	if !ok || mask == nil {
		return Glyph{}, false
	}

	g := Glyph{
		Rune:    r,
		Width:   dr.Dx(),
		Height:  dr.Dy(),
		Advance: advance.Round(),
	}
	for y := dr.Min.Y; y < dr.Max.Y; y++ {
		for x := dr.Min.X; x < dr.Max.X; x++ {
			_, _, _, a := mask.At(maskp.X+x-dr.Min.X, maskp.Y+y-dr.Min.Y).RGBA()
			if a > 0 {
				g.Pixels = append(g.Pixels, image.Point{X: x, Y: y})
			}
		}
	}
	return g, true
}

// FromTinyfont builds a Font from a tinyfont.Fonter by drawing each of
// the requested runes into a pixel recorder
func FromTinyfont(name string, src tinyfont.Fonter, runes []rune) (*Font, error) {
	glyphs := make(map[rune]Glyph, len(runes))
	for _, r := range runes {
		tg := src.GetGlyph(r)
		if tg == nil {
			continue
		}
		info := tg.Info()
		if info.Rune != r {
			// tinyfont substitutes a placeholder glyph for missing runes
			continue
		}
		rec := &pixelRecorder{}
		tg.Draw(rec, 0, 0, color.RGBA{R: 255, G: 255, B: 255, A: 255})
		glyphs[r] = Glyph{
			Rune:    r,
			Width:   int(info.Width),
			Height:  int(info.Height),
			Advance: int(info.XAdvance),
			Pixels:  rec.points,
		}
	}
	if len(glyphs) == 0 {
		return nil, &FontLoadError{Path: name, Err: errors.New("font contains no glyphs")}
	}

	f := newFont(name, glyphs, ' ')
	if ya := int(src.GetYAdvance()); ya > 0 {
		f.height = ya
	}
	return f, nil
}

// BuiltinFont returns the printable ASCII range of the proggy TinySZ 8pt
// font. It is used when no BDF file is configured.
func BuiltinFont() *Font {
	runes := make([]rune, 0, 0x7f-0x20)
	for r := rune(0x20); r < 0x7f; r++ {
		runes = append(runes, r)
	}
	f, err := FromTinyfont("builtin", &proggy.TinySZ8pt7b, runes)
	if err != nil {
		panic(fmt.Sprintf("ledmatrix: builtin font: %v", err))
	}
	return f
}

// newFont derives ascent, height and the fallback advance from the glyph set
func newFont(name string, glyphs map[rune]Glyph, defaultChar rune) *Font {
	f := &Font{name: name, glyphs: glyphs, sides: make(map[rune]sides, len(glyphs))}

	minY, maxY := 0, 0
	widest := 0
	for r, g := range glyphs {
		if g.Advance > widest {
			widest = g.Advance
		}
		if len(g.Pixels) == 0 {
			continue
		}
		minX, maxX := g.Pixels[0].X, g.Pixels[0].X
		for _, p := range g.Pixels {
			minX = min(minX, p.X)
			maxX = max(maxX, p.X)
			if p.Y < minY {
				minY = p.Y
			}
			if p.Y > maxY {
				maxY = p.Y
			}
		}
		f.sides[r] = sides{
			left:  max(minX, 0),
			right: max(g.Advance-maxX-1, 0),
		}
	}
	f.ascent = -minY
	f.height = maxY - minY + 1

	switch {
	case glyphs[defaultChar].Advance > 0:
		f.fallback = glyphs[defaultChar].Advance
	case glyphs[' '].Advance > 0:
		f.fallback = glyphs[' '].Advance
	default:
		f.fallback = widest
	}
	return f
}

// Name returns the font name
func (f *Font) Name() string { return f.name }

// Len returns the number of glyphs in the font
func (f *Font) Len() int { return len(f.glyphs) }

// Height returns the line height in pixels
func (f *Font) Height() int { return f.height }

// Ascent returns the distance from the top of the line to the baseline
func (f *Font) Ascent() int { return f.ascent }

// FallbackAdvance is the cursor advance used for runes the font lacks
func (f *Font) FallbackAdvance() int { return f.fallback }

// Glyph looks up the glyph for r
func (f *Font) Glyph(r rune) (Glyph, bool) {
	g, ok := f.glyphs[r]
	return g, ok
}

// Measure returns the horizontal advance DrawText would produce for text
func (f *Font) Measure(text string, letterSpacing int, kerning bool) int {
	w := 0
	prev := rune(-1)
	for _, r := range norm.NFC.String(text) {
		w += f.kerning(prev, r, kerning) + f.advance(r) + letterSpacing
		prev = r
	}
	return w
}

func (f *Font) advance(r rune) int {
	if g, ok := f.glyphs[r]; ok {
		return g.Advance
	}
	return f.fallback
}

// kerning returns the cursor adjustment between prev and r. Bitmap fonts
// carry no kerning pairs, so the pair is derived from the ink: the blank
// columns between the two glyphs shrink to kernGap. Pairs involving a
// blank or unmapped glyph are not kerned.
func (f *Font) kerning(prev, r rune, enabled bool) int {
	if !enabled || prev < 0 {
		return 0
	}
	a, ok := f.sides[prev]
	if !ok {
		return 0
	}
	b, ok := f.sides[r]
	if !ok {
		return 0
	}
	if gap := a.right + b.left; gap > kernGap {
		return kernGap - gap
	}
	return 0
}

// pixelRecorder is a drivers.Displayer that remembers every pixel set
type pixelRecorder struct {
	points []image.Point
}

var _ drivers.Displayer = (*pixelRecorder)(nil)

func (p *pixelRecorder) Size() (x, y int16) { return 0x7fff, 0x7fff }

func (p *pixelRecorder) SetPixel(x, y int16, _ color.RGBA) {
	p.points = append(p.points, image.Point{X: int(x), Y: int(y)})
}

func (p *pixelRecorder) Display() error { return nil }
