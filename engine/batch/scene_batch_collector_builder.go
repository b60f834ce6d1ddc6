package batch

import (
	"github.com/xgdwangdechao/rbfx/engine/config"
	"github.com/xgdwangdechao/rbfx/engine/renderer"
	"github.com/xgdwangdechao/rbfx/engine/renderer/material"
)

// SceneBatchCollectorOption is a function that configures a SceneBatchCollector during construction.
type SceneBatchCollectorOption func(*sceneBatchCollector)

// WithSettings sets the renderer settings: material quality, light limits, shadow settings and
// the shadow pass name.
//
// Parameters:
//   - settings: the settings
//
// Returns:
//   - SceneBatchCollectorOption: a function that applies the settings option
func WithSettings(settings config.Settings) SceneBatchCollectorOption {
	return func(c *sceneBatchCollector) {
		c.settings = settings
	}
}

// WithCapabilities limits shadow rendering to the light types the backend supports.
func WithCapabilities(caps renderer.Capabilities) SceneBatchCollectorOption {
	return func(c *sceneBatchCollector) {
		c.caps = caps
	}
}

// WithShadowMapAllocator sets the allocator of shadow map regions. Without one every shadow is
// disabled at allocation.
func WithShadowMapAllocator(allocator renderer.ShadowMapAllocator) SceneBatchCollectorOption {
	return func(c *sceneBatchCollector) {
		c.allocator = allocator
	}
}

// WithDefaultMaterial sets the material used by source batches without one.
func WithDefaultMaterial(m material.Material) SceneBatchCollectorOption {
	return func(c *sceneBatchCollector) {
		c.defaultMaterial = m
	}
}
