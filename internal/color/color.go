// Package color holds pure conversions between the color representations the
// game uses. Every function is total: out-of-range input is clamped or
// wrapped as documented on the function, never rejected, except ParseHex
// which validates text.
package color

import (
	"fmt"
	"math"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// RGB is a gamma-encoded sRGB color with nominal channel range [0,1].
type RGB struct {
	R, G, B float64
}

// HSV is hue in degrees [0,360), saturation and value in [0,1].
type HSV struct {
	H, S, V float64
}

// RoundTripTolerance bounds the per-channel error of FromHSV(ToHSV(c)) for a
// clamped c.
const RoundTripTolerance = 1e-9

var (
	Black = RGB{0, 0, 0}
	White = RGB{1, 1, 1}
)

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v <= 0:
		return 0
	case v >= 1:
		return 1
	}
	return v
}

// Clamp limits every channel to [0,1]; NaN becomes 0.
func Clamp(c RGB) RGB {
	return RGB{clamp01(c.R), clamp01(c.G), clamp01(c.B)}
}

// WrapHue maps any hue onto [0,360). NaN and infinities map to 0.
func WrapHue(h float64) float64 {
	if math.IsNaN(h) || math.IsInf(h, 0) {
		return 0
	}
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	if h >= 360 {
		h = 0
	}
	return h
}

func (c RGB) colorful() colorful.Color {
	c = Clamp(c)
	return colorful.Color{R: c.R, G: c.G, B: c.B}
}

func fromColorful(c colorful.Color) RGB {
	return Clamp(RGB{c.R, c.G, c.B})
}

// ToHSV converts c after clamping. Grays report hue 0 and saturation 0.
func ToHSV(c RGB) HSV {
	h, s, v := c.colorful().Hsv()
	return HSV{H: WrapHue(h), S: clamp01(s), V: clamp01(v)}
}

// FromHSV converts hsv after wrapping the hue and clamping S and V.
func FromHSV(hsv HSV) RGB {
	return fromColorful(colorful.Hsv(WrapHue(hsv.H), clamp01(hsv.S), clamp01(hsv.V)))
}

// ToLinear applies the inverse sRGB transfer function to the clamped color.
func ToLinear(c RGB) RGB {
	r, g, b := c.colorful().LinearRgb()
	return Clamp(RGB{r, g, b})
}

// FromLinear gamma-encodes a linear-light color, clamping the input.
func FromLinear(c RGB) RGB {
	c = Clamp(c)
	return fromColorful(colorful.LinearRgb(c.R, c.G, c.B))
}

// Lerp blends a toward b in gamma space. t clamps to [0,1].
func Lerp(a, b RGB, t float64) RGB {
	return fromColorful(a.colorful().BlendRgb(b.colorful(), clamp01(t)))
}

// LerpLinear blends a toward b in linear light. t clamps to [0,1].
func LerpLinear(a, b RGB, t float64) RGB {
	la, lb := ToLinear(a), ToLinear(b)
	t = clamp01(t)
	mixed := RGB{
		R: la.R + t*(lb.R-la.R),
		G: la.G + t*(lb.G-la.G),
		B: la.B + t*(lb.B-la.B),
	}
	return FromLinear(mixed)
}

// ShiftHue rotates the hue by deg degrees, wrapping modulo 360.
func ShiftHue(c RGB, deg float64) RGB {
	hsv := ToHSV(c)
	hsv.H += deg
	return FromHSV(hsv)
}

// Scale multiplies the HSV value by k and clamps.
func Scale(c RGB, k float64) RGB {
	hsv := ToHSV(c)
	hsv.V *= k
	return FromHSV(hsv)
}

// ParseHex reads "#RRGGBB" or "RRGGBB".
func ParseHex(s string) (RGB, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) != 6 {
		return Black, fmt.Errorf("invalid hex color %q: want 6 digits, got %d", s, len(hex))
	}
	for _, r := range hex {
		if !strings.ContainsRune("0123456789abcdefABCDEF", r) {
			return Black, fmt.Errorf("invalid hex color %q: bad digit %q", s, r)
		}
	}
	c, err := colorful.Hex("#" + strings.ToLower(hex))
	if err != nil {
		return Black, fmt.Errorf("invalid hex color %q: %w", s, err)
	}
	return fromColorful(c), nil
}

// MustHex is ParseHex with black as the fallback for malformed input.
func MustHex(s string) RGB {
	c, err := ParseHex(s)
	if err != nil {
		return Black
	}
	return c
}

// Hex formats the clamped color as "#rrggbb".
func (c RGB) Hex() string {
	r, g, b := c.RGB255()
	return fmt.Sprintf("#%02x%02x%02x", r, g, b)
}

// RGB255 quantizes the clamped channels, rounding half away from zero.
func (c RGB) RGB255() (r, g, b uint8) {
	c = Clamp(c)
	q := func(v float64) uint8 { return uint8(math.Round(v * 255)) }
	return q(c.R), q(c.G), q(c.B)
}

// Near reports whether every channel of a and b differs by at most tol.
func Near(a, b RGB, tol float64) bool {
	return math.Abs(a.R-b.R) <= tol && math.Abs(a.G-b.G) <= tol && math.Abs(a.B-b.B) <= tol
}
