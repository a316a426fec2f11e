package render

import (
	"fmt"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// defaultColors are 30 pairwise distinct hex colors; cluster labels cycle through them.
var defaultColors = []string{
	"#FF0000", "#00FF00", "#0000FF", "#FFFF00", "#FF00FF",
	"#00FFFF", "#800000", "#008000", "#000080", "#808000",
	"#800080", "#008080", "#FFA500", "#A52A2A", "#808080",
	"#B22222", "#228B22", "#1E90FF", "#DAA520", "#8B008B",
	"#008B8B", "#FF1493", "#556B2F", "#4682B4", "#D2691E",
	"#9ACD32", "#6A5ACD", "#20B2AA", "#CD5C5C", "#2F4F4F",
}

// Palette is an immutable, validated list of display colors.
type Palette struct {
	colors []string
}

// NewPalette validates hexes and returns a palette holding them in canonical
// upper-case "#RRGGBB" form.
func NewPalette(hexes ...string) (Palette, error) {
	if len(hexes) == 0 {
		return Palette{}, ErrEmptyPalette
	}
	seen := make(map[string]int, len(hexes))
	colors := make([]string, 0, len(hexes))
	for i, h := range hexes {
		c, err := colorful.Hex(strings.TrimSpace(h))
		if err != nil {
			return Palette{}, fmt.Errorf("%w: %q at %d", ErrInvalidColor, h, i)
		}
		canon := strings.ToUpper(c.Hex())
		if j, dup := seen[canon]; dup {
			return Palette{}, fmt.Errorf("%w: %s at %d and %d", ErrDuplicateColor, canon, j, i)
		}
		seen[canon] = i
		colors = append(colors, canon)
	}
	return Palette{colors: colors}, nil
}

// DefaultPalette returns the built-in 30 color palette.
func DefaultPalette() Palette {
	p, err := NewPalette(defaultColors...)
	if err != nil {
		panic(err)
	}
	return p
}

// Size returns the number of colors.
func (p Palette) Size() int { return len(p.colors) }

// Colors returns a copy of the palette colors.
func (p Palette) Colors() []string {
	out := make([]string, len(p.colors))
	copy(out, p.colors)
	return out
}

// Color returns the color for a cluster label, cycling modulo the palette size.
// A zero Palette falls back to the default one.
func (p Palette) Color(label int) string {
	if len(p.colors) == 0 {
		p = DefaultPalette()
	}
	n := len(p.colors)
	i := label % n
	if i < 0 {
		i += n
	}
	return p.colors[i]
}
