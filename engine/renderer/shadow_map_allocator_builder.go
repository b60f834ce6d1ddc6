package renderer

// ShadowMapAllocatorOption is a function that configures a ShadowMapAllocator during construction.
type ShadowMapAllocatorOption func(*shadowMapAllocator)

// WithAtlasSize sets the width and height of each atlas page in texels.
//
// Parameters:
//   - size: the page size
//
// Returns:
//   - ShadowMapAllocatorOption: a function that applies the atlas size option
func WithAtlasSize(size int) ShadowMapAllocatorOption {
	return func(a *shadowMapAllocator) {
		if size > 0 {
			a.atlasSize = size
		}
	}
}

// WithMaxPages sets the largest number of atlas pages.
func WithMaxPages(pages int) ShadowMapAllocatorOption {
	return func(a *shadowMapAllocator) {
		if pages > 0 {
			a.maxPages = pages
		}
	}
}

// WithReuse keeps owner regions reserved across frames.
func WithReuse(enabled bool) ShadowMapAllocatorOption {
	return func(a *shadowMapAllocator) {
		a.reuse = enabled
	}
}
