package styles

import (
	"math"
	"strconv"
)

// RGB is a color with channels in 0..255.
type RGB struct {
	R, G, B float64
}

// parseHex converts #RRGGBB (alpha ignored) to RGB.
func parseHex(hex string) (RGB, bool) {
	if !IsValidHexColor(hex) {
		return RGB{}, false
	}
	v, err := strconv.ParseUint(hex[1:7], 16, 32)
	if err != nil {
		return RGB{}, false
	}
	return RGB{R: float64(v >> 16 & 0xFF), G: float64(v >> 8 & 0xFF), B: float64(v & 0xFF)}, true
}

// textOn returns explicit when set, otherwise black or white, whichever
// reads better on bg.
func textOn(explicit, bg string) string {
	if explicit != "" {
		return explicit
	}
	c, ok := parseHex(bg)
	if !ok {
		return "#FFFFFF"
	}
	if contrastRatio(RGB{0, 0, 0}, c) >= contrastRatio(RGB{255, 255, 255}, c) {
		return "#000000"
	}
	return "#FFFFFF"
}

func contrastRatio(fg, bg RGB) float64 {
	l1 := relativeLuminance(fg)
	l2 := relativeLuminance(bg)
	if l1 < l2 {
		l1, l2 = l2, l1
	}
	return (l1 + 0.05) / (l2 + 0.05)
}

func relativeLuminance(c RGB) float64 {
	r := linearize(c.R / 255.0)
	g := linearize(c.G / 255.0)
	b := linearize(c.B / 255.0)
	return 0.2126*r + 0.7152*g + 0.0722*b
}

func linearize(v float64) float64 {
	if v <= 0.03928 {
		return v / 12.92
	}
	return math.Pow((v+0.055)/1.055, 2.4)
}
