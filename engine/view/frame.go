// package view collects the drawables and lights visible from a camera.
package view

import (
	"errors"

	"github.com/xgdwangdechao/rbfx/common"
	"github.com/xgdwangdechao/rbfx/engine/camera"
	"github.com/xgdwangdechao/rbfx/engine/drawable"
)

var (
	// ErrMissingCamera is returned when a frame has no camera.
	ErrMissingCamera = errors.New("view: frame has no camera")
	// ErrMissingSpatialIndex is returned when a frame has no spatial index.
	ErrMissingSpatialIndex = errors.New("view: frame has no spatial index")
)

// SpatialIndex is the scene registry a frame is collected from. Drawable indices are dense
// in [0, Count).
type SpatialIndex interface {
	// Count returns the number of registered drawables.
	Count() int

	// Query returns the enabled drawables matching flags and viewMask inside the frustum.
	Query(frustum common.Frustum, flags drawable.Flags, viewMask uint32) []drawable.Drawable
}

// FrameInfo is the per-frame input of visibility and batch collection.
type FrameInfo struct {
	FrameNumber  uint32
	TimeStep     float32
	OutputSize   common.IntSize
	Camera       camera.Camera
	SpatialIndex SpatialIndex
}

// Validate checks the preconditions of a frame.
//
// Returns:
//   - error: ErrMissingCamera or ErrMissingSpatialIndex
func (f FrameInfo) Validate() error {
	if f.Camera == nil {
		return ErrMissingCamera
	}
	if f.SpatialIndex == nil {
		return ErrMissingSpatialIndex
	}
	return nil
}

// UpdateContext returns the context drawables refresh their batches with.
func (f FrameInfo) UpdateContext() drawable.UpdateContext {
	return drawable.UpdateContext{
		FrameNumber:    f.FrameNumber,
		TimeStep:       f.TimeStep,
		CameraPosition: f.Camera.Position(),
	}
}
