package drawable

import (
	"github.com/xgdwangdechao/rbfx/engine/model"
	"github.com/xgdwangdechao/rbfx/engine/renderer/material"
)

// DrawableBuilderOption is a function that configures a drawable instance during construction.
type DrawableBuilderOption func(*drawable)

// WithFlags is an option builder that sets the drawable classification.
//
// Parameters:
//   - flags: the flags
//
// Returns:
//   - DrawableBuilderOption: a function that applies the flags option to a drawable
func WithFlags(flags Flags) DrawableBuilderOption {
	return func(d *drawable) {
		d.flags = flags
	}
}

// WithPosition is an option builder that sets the initial world position.
//
// Parameters:
//   - x, y, z: position components
//
// Returns:
//   - DrawableBuilderOption: a function that applies the position option to a drawable
func WithPosition(x, y, z float32) DrawableBuilderOption {
	return func(d *drawable) {
		d.position = [3]float32{x, y, z}
	}
}

// WithRotation is an option builder that sets the initial Euler rotation in radians.
//
// Parameters:
//   - rx, ry, rz: rotation angles
//
// Returns:
//   - DrawableBuilderOption: a function that applies the rotation option to a drawable
func WithRotation(rx, ry, rz float32) DrawableBuilderOption {
	return func(d *drawable) {
		d.rotation = [3]float32{rx, ry, rz}
	}
}

// WithScale is an option builder that sets the initial scale.
//
// Parameters:
//   - sx, sy, sz: scale factors
//
// Returns:
//   - DrawableBuilderOption: a function that applies the scale option to a drawable
func WithScale(sx, sy, sz float32) DrawableBuilderOption {
	return func(d *drawable) {
		d.scale = [3]float32{sx, sy, sz}
	}
}

// WithBatch is an option builder that adds a source batch.
//
// Parameters:
//   - geometry: the geometry to draw
//   - mat: the material, or nil for the default material
//
// Returns:
//   - DrawableBuilderOption: a function that applies the batch option to a drawable
func WithBatch(geometry model.Geometry, mat material.Material) DrawableBuilderOption {
	return func(d *drawable) {
		d.batches = append(d.batches, SourceBatch{Geometry: geometry, Material: mat, InstanceCount: 1})
	}
}

// WithDrawDistance is an option builder that sets the maximum draw distance; 0 is unlimited.
func WithDrawDistance(distance float32) DrawableBuilderOption {
	return func(d *drawable) {
		d.drawDistance = distance
	}
}

// WithShadowDistance is an option builder that sets the maximum shadow casting distance; 0 is unlimited.
func WithShadowDistance(distance float32) DrawableBuilderOption {
	return func(d *drawable) {
		d.shadowDistance = distance
	}
}

// WithLodBias is an option builder that scales the LOD distance.
func WithLodBias(bias float32) DrawableBuilderOption {
	return func(d *drawable) {
		if bias > 0 {
			d.lodBias = bias
		}
	}
}

// WithMasks is an option builder that sets the view, light and shadow masks.
//
// Parameters:
//   - view: the view mask
//   - light: the light mask
//   - shadow: the shadow mask
//
// Returns:
//   - DrawableBuilderOption: a function that applies the masks option to a drawable
func WithMasks(view, light, shadow uint32) DrawableBuilderOption {
	return func(d *drawable) {
		d.viewMask, d.lightMask, d.shadowMask = view, light, shadow
	}
}

// WithCastShadows is an option builder that toggles shadow casting.
func WithCastShadows(enabled bool) DrawableBuilderOption {
	return func(d *drawable) {
		d.castShadows = enabled
	}
}

// WithPipelineStateHash is an option builder that sets the drawable pipeline state hash,
// for drawables whose vertex processing differs from a static mesh.
func WithPipelineStateHash(hash uint32) DrawableBuilderOption {
	return func(d *drawable) {
		d.pipelineStateHash = hash
	}
}

// WithBoundingBox is an option builder that fixes the local bounding box.
func WithBoundingBox(minX, minY, minZ, maxX, maxY, maxZ float32) DrawableBuilderOption {
	return func(d *drawable) {
		d.localBox.Min = [3]float32{minX, minY, minZ}
		d.localBox.Max = [3]float32{maxX, maxY, maxZ}
		d.explicitBounds = true
	}
}
