package common

import "github.com/chewxy/math32"

// BoundingBox is an axis aligned box. A box with Min > Max on any axis is undefined.
type BoundingBox struct {
	Min [3]float32
	Max [3]float32
}

// EmptyBoundingBox returns an undefined box that any Merge will replace.
func EmptyBoundingBox() BoundingBox {
	inf := math32.Inf(1)
	return BoundingBox{
		Min: [3]float32{inf, inf, inf},
		Max: [3]float32{-inf, -inf, -inf},
	}
}

// InfiniteBoundingBox returns a box spanning LargeValue on every axis.
func InfiniteBoundingBox() BoundingBox {
	return BoundingBox{
		Min: [3]float32{-LargeValue, -LargeValue, -LargeValue},
		Max: [3]float32{LargeValue, LargeValue, LargeValue},
	}
}

// NewBoundingBox builds a box from a center and half extents.
func NewBoundingBox(center, halfSize [3]float32) BoundingBox {
	return BoundingBox{Min: Sub3(center, halfSize), Max: Add3(center, halfSize)}
}

// Defined reports whether the box has been given any extent.
func (b BoundingBox) Defined() bool {
	return b.Min[0] <= b.Max[0] && b.Min[1] <= b.Max[1] && b.Min[2] <= b.Max[2]
}

// Center returns the center of the box.
func (b BoundingBox) Center() [3]float32 {
	return Scale3(Add3(b.Min, b.Max), 0.5)
}

// Size returns the full extent of the box.
func (b BoundingBox) Size() [3]float32 {
	return Sub3(b.Max, b.Min)
}

// HalfSize returns half the extent of the box.
func (b BoundingBox) HalfSize() [3]float32 {
	return Scale3(b.Size(), 0.5)
}

// Merge returns the smallest box containing both boxes.
func (b BoundingBox) Merge(o BoundingBox) BoundingBox {
	if !o.Defined() {
		return b
	}
	if !b.Defined() {
		return o
	}
	for i := 0; i < 3; i++ {
		b.Min[i] = math32.Min(b.Min[i], o.Min[i])
		b.Max[i] = math32.Max(b.Max[i], o.Max[i])
	}
	return b
}

// MergePoint returns the box grown to contain p.
func (b BoundingBox) MergePoint(p [3]float32) BoundingBox {
	if !b.Defined() {
		return BoundingBox{Min: p, Max: p}
	}
	for i := 0; i < 3; i++ {
		b.Min[i] = math32.Min(b.Min[i], p[i])
		b.Max[i] = math32.Max(b.Max[i], p[i])
	}
	return b
}

// Transformed returns the axis aligned box enclosing this box after transformation by m.
//
// Parameters:
//   - m: column-major transform (16 elements)
//
// Returns:
//   - BoundingBox: the transformed box
func (b BoundingBox) Transformed(m []float32) BoundingBox {
	if !b.Defined() {
		return b
	}
	center := TransformPoint(m, b.Center())
	half := b.HalfSize()
	var extent [3]float32
	for row := 0; row < 3; row++ {
		extent[row] = math32.Abs(m[row])*half[0] + math32.Abs(m[4+row])*half[1] + math32.Abs(m[8+row])*half[2]
	}
	return NewBoundingBox(center, extent)
}

// DistanceTo returns the distance from p to the closest point of the box, 0 when inside.
func (b BoundingBox) DistanceTo(p [3]float32) float32 {
	var d [3]float32
	for i := 0; i < 3; i++ {
		switch {
		case p[i] < b.Min[i]:
			d[i] = b.Min[i] - p[i]
		case p[i] > b.Max[i]:
			d[i] = p[i] - b.Max[i]
		}
	}
	return Length3(d)
}

// IntersectsSphere reports whether the box and the sphere overlap.
func (b BoundingBox) IntersectsSphere(center [3]float32, radius float32) bool {
	return b.DistanceTo(center) <= radius
}

// Contains reports whether p lies inside the box.
func (b BoundingBox) Contains(p [3]float32) bool {
	for i := 0; i < 3; i++ {
		if p[i] < b.Min[i] || p[i] > b.Max[i] {
			return false
		}
	}
	return true
}
