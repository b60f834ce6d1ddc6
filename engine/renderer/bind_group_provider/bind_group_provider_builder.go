package bind_group_provider

import "github.com/cogentcore/webgpu/wgpu"

// BindGroupProviderOption is a functional option used to configure a BindGroupProvider during construction.
type BindGroupProviderOption func(*bindGroupProvider)

// WithBindGroupLayout sets the fixed layout the bind group is built against.
//
// Parameters:
//   - bgl: the bind group layout
//
// Returns:
//   - BindGroupProviderOption: option to apply
func WithBindGroupLayout(bgl *wgpu.BindGroupLayout) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.bindGroupLayout = bgl
	}
}

// WithUniformBuffer binds the initial uniform buffer of a binding. Uploads replace it per draw.
//
// Parameters:
//   - binding: the binding index
//   - buf: the placeholder uniform buffer
//
// Returns:
//   - BindGroupProviderOption: option to apply
func WithUniformBuffer(binding int, buf *wgpu.Buffer) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.buffers[binding] = buf
	}
}

// WithSampledTexture binds the fallback texture view and sampler of a texture unit, used
// until a resource bind replaces them.
//
// Parameters:
//   - textureBinding: the binding index of the texture view
//   - samplerBinding: the binding index of the sampler
//   - tv: the fallback texture view
//   - s: the sampler
//
// Returns:
//   - BindGroupProviderOption: option to apply
func WithSampledTexture(textureBinding, samplerBinding int, tv *wgpu.TextureView, s *wgpu.Sampler) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.textureViews[textureBinding] = tv
		p.samplers[samplerBinding] = s
	}
}
