package renderer

import (
	"github.com/cogentcore/webgpu/wgpu"

	"github.com/xgdwangdechao/rbfx/common"
)

// WGPUBackendOption is a function that configures the wgpu backend during construction.
type WGPUBackendOption func(*wgpuBackend)

// WithTargetSize sets the size of the offscreen scene target.
//
// Parameters:
//   - width: the width in pixels
//   - height: the height in pixels
//
// Returns:
//   - WGPUBackendOption: a function that applies the target size option
func WithTargetSize(width, height int) WGPUBackendOption {
	return func(b *wgpuBackend) {
		if width > 0 && height > 0 {
			b.targetSize = common.IntSize{Width: width, Height: height}
		}
	}
}

// WithSceneTarget renders scene passes into the given views instead of an offscreen target.
//
// Parameters:
//   - color: the color attachment
//   - depth: the depth attachment
//
// Returns:
//   - WGPUBackendOption: a function that applies the scene target option
func WithSceneTarget(color, depth *wgpu.TextureView) WGPUBackendOption {
	return func(b *wgpuBackend) {
		b.colorView = color
		b.depthView = depth
	}
}

// WithColorFormat sets the format of the scene color target.
func WithColorFormat(format wgpu.TextureFormat) WGPUBackendOption {
	return func(b *wgpuBackend) {
		b.caps.ColorFormat = format
	}
}

// WithSampleCount sets the MSAA sample count of the offscreen scene target.
func WithSampleCount(count MSAASampleCount) WGPUBackendOption {
	return func(b *wgpuBackend) {
		b.caps.SampleCount = count
	}
}

// WithClearColor sets the color the first scene pass of a frame clears to.
func WithClearColor(color common.Color) WGPUBackendOption {
	return func(b *wgpuBackend) {
		b.clearColor = wgpu.Color{R: float64(color.R), G: float64(color.G), B: float64(color.B), A: float64(color.A)}
	}
}

// WithShadowSupport enables or disables shadows per light type.
//
// Parameters:
//   - directional: directional light shadows
//   - spot: spot light shadows
//   - point: point light shadows
//
// Returns:
//   - WGPUBackendOption: a function that applies the shadow support option
func WithShadowSupport(directional, spot, point bool) WGPUBackendOption {
	return func(b *wgpuBackend) {
		b.caps.DirectionalShadows = directional
		b.caps.SpotShadows = spot
		b.caps.PointShadows = point
	}
}
