package vi

import "image/color"

// VisParams describe how an index raster is rendered: the value domain
// and the color ramp stops, interpolated linearly between stops.
type VisParams struct {
	Min     float64
	Max     float64
	Palette []string
}

var visParams = map[Type]VisParams{
	NDVI: {
		Min: -0.2, Max: 0.8,
		Palette: []string{"#ff0000", "#ff4500", "#ffff00", "#9acd32", "#00ff00", "#228b22", "#006400"},
	},
	EVI: {
		Min: -0.1, Max: 0.7,
		Palette: []string{"#8b0000", "#ff4500", "#ffff00", "#9acd32", "#00ff00", "#228b22", "#006400"},
	},
	GNDVI: {
		Min: 0, Max: 0.8,
		Palette: []string{"#8b0000", "#ff4500", "#ffff00", "#9acd32", "#00ff00", "#228b22", "#006400"},
	},
	NDWI: {
		Min: -0.3, Max: 0.5,
		Palette: []string{"#8b4513", "#daa520", "#ffff99", "#87ceeb", "#4169e1", "#000080"},
	},
	SAVI: {
		Min: -0.1, Max: 0.7,
		Palette: []string{"#8b0000", "#ff4500", "#ffff00", "#9acd32", "#00ff00", "#228b22", "#006400"},
	},
	VCI: {
		Min: 0, Max: 100,
		Palette: []string{"#8b0000", "#ff4500", "#ffff00", "#9acd32", "#00ff00", "#228b22", "#006400"},
	},
}

// Visualization returns the render parameters for an index. Unknown types
// fall back to the NDVI ramp, matching the archive's default rendering.
func Visualization(t Type) VisParams {
	if p, ok := visParams[t]; ok {
		return p
	}
	return visParams[NDVI]
}

func parseHexColor(s string) color.RGBA {
	hexVal := func(c byte) uint8 {
		switch {
		case c >= '0' && c <= '9':
			return c - '0'
		case c >= 'a' && c <= 'f':
			return c - 'a' + 10
		case c >= 'A' && c <= 'F':
			return c - 'A' + 10
		}
		return 0
	}
	if len(s) != 7 || s[0] != '#' {
		return color.RGBA{A: 255}
	}
	return color.RGBA{
		R: hexVal(s[1])<<4 | hexVal(s[2]),
		G: hexVal(s[3])<<4 | hexVal(s[4]),
		B: hexVal(s[5])<<4 | hexVal(s[6]),
		A: 255,
	}
}

// Color maps a value into the ramp, clamping to the domain bounds.
func (p VisParams) Color(v float64) color.RGBA {
	if len(p.Palette) == 0 {
		return color.RGBA{A: 255}
	}
	span := p.Max - p.Min
	if span <= 0 {
		return parseHexColor(p.Palette[0])
	}
	t := (v - p.Min) / span
	if t <= 0 {
		return parseHexColor(p.Palette[0])
	}
	if t >= 1 {
		return parseHexColor(p.Palette[len(p.Palette)-1])
	}

	pos := t * float64(len(p.Palette)-1)
	i := int(pos)
	frac := pos - float64(i)
	c0 := parseHexColor(p.Palette[i])
	c1 := parseHexColor(p.Palette[i+1])
	lerp := func(a, b uint8) uint8 {
		return uint8(float64(a) + (float64(b)-float64(a))*frac)
	}
	return color.RGBA{R: lerp(c0.R, c1.R), G: lerp(c0.G, c1.G), B: lerp(c0.B, c1.B), A: 255}
}
