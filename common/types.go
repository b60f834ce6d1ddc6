// package common contains common types that are used throughout this engine. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

import (
	"math"

	"github.com/chewxy/math32"
)

// Color is a linear RGBA color.
type Color struct {
	R, G, B, A float32
}

// Black is opaque black.
var Black = Color{0, 0, 0, 1}

// White is opaque white.
var White = Color{1, 1, 1, 1}

// IsBlack reports whether all RGB channels are zero. Alpha is ignored.
func (c Color) IsBlack() bool {
	return c.R == 0 && c.G == 0 && c.B == 0
}

// Scaled returns the color with its RGB channels multiplied by s. Alpha is kept.
func (c Color) Scaled(s float32) Color {
	return Color{c.R * s, c.G * s, c.B * s, c.A}
}

// Luma returns the perceived brightness of the color.
func (c Color) Luma() float32 {
	return c.R*0.299 + c.G*0.587 + c.B*0.114
}

// Max returns the largest RGB channel.
func (c Color) Max() float32 {
	return math32.Max(c.R, math32.Max(c.G, c.B))
}

// Vec4 returns the color as a 4 component vector.
func (c Color) Vec4() [4]float32 {
	return [4]float32{c.R, c.G, c.B, c.A}
}

// IntSize is a width and height in pixels.
type IntSize struct {
	Width, Height int
}

// IntRect is a pixel rectangle. Right and Bottom are exclusive.
type IntRect struct {
	Left, Top, Right, Bottom int
}

// Width returns the width of the rectangle.
func (r IntRect) Width() int { return r.Right - r.Left }

// Height returns the height of the rectangle.
func (r IntRect) Height() int { return r.Bottom - r.Top }

// Size returns the dimensions of the rectangle.
func (r IntRect) Size() IntSize { return IntSize{r.Width(), r.Height()} }

// Empty reports whether the rectangle covers no pixels.
func (r IntRect) Empty() bool { return r.Width() <= 0 || r.Height() <= 0 }

// CombineHash folds value into hash, boost style.
//
// Parameters:
//   - hash: the running hash
//   - value: the value to fold in
//
// Returns:
//   - uint32: the combined hash
func CombineHash(hash, value uint32) uint32 {
	return hash ^ (value + 0x9e3779b9 + (hash << 6) + (hash >> 2))
}

// FloatHash returns the bit pattern of f for use in CombineHash.
func FloatHash(f float32) uint32 {
	return math.Float32bits(f)
}
