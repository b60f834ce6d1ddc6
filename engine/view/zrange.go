package view

import (
	"github.com/chewxy/math32"

	"github.com/xgdwangdechao/rbfx/common"
	"github.com/xgdwangdechao/rbfx/engine/drawable"
)

// ZRange is a view-space depth interval. A range with Min > Max is empty.
type ZRange struct {
	Min, Max float32
}

// EmptyZRange returns a range that merges as the identity.
func EmptyZRange() ZRange {
	return ZRange{Min: common.LargeValue, Max: -common.LargeValue}
}

// InfiniteZRange returns the sentinel stored for objects too large to bound, such as skyboxes.
func InfiniteZRange() ZRange {
	return ZRange{Min: common.LargeValue, Max: common.LargeValue}
}

// IsValid reports whether the range is non-empty.
func (r ZRange) IsValid() bool {
	return r.Min <= r.Max
}

// Infinite reports whether r is the sentinel of an unbounded object.
func (r ZRange) Infinite() bool {
	return r == InfiniteZRange()
}

// Merge returns the union of two ranges. Empty ranges are ignored.
//
// Parameters:
//   - other: the range to merge
//
// Returns:
//   - ZRange: the smallest range containing both
func (r ZRange) Merge(other ZRange) ZRange {
	if !other.IsValid() {
		return r
	}
	if !r.IsValid() {
		return other
	}
	return ZRange{Min: math32.Min(r.Min, other.Min), Max: math32.Max(r.Max, other.Max)}
}

// zRangeEvaluator projects world bounding boxes onto the view Z axis.
type zRangeEvaluator struct {
	viewZ    [3]float32
	absViewZ [3]float32
	offset   float32
}

func newZRangeEvaluator(view [16]float32) zRangeEvaluator {
	// row 2 of the view matrix; the camera looks down -Z so depth is its negation
	viewZ := [3]float32{-view[2], -view[6], -view[10]}
	return zRangeEvaluator{
		viewZ:    viewZ,
		absViewZ: common.Abs3(viewZ),
		offset:   -view[14],
	}
}

// evaluate returns the depth range of d, or an empty range for unbounded objects.
func (e zRangeEvaluator) evaluate(d drawable.Drawable) ZRange {
	box := d.WorldBoundingBox()
	center := box.Center()
	edge := box.HalfSize()
	if common.LengthSquared3(edge) >= common.LargeValue*common.LargeValue {
		return EmptyZRange()
	}
	centerZ := common.Dot3(e.viewZ, center) + e.offset
	edgeZ := common.Dot3(e.absViewZ, edge)
	return ZRange{Min: centerZ - edgeZ, Max: centerZ + edgeZ}
}
