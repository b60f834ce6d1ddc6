package bind_group_provider

import (
	"fmt"
	"sort"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
)

// bindGroupProvider is the unexported implementation of BindGroupProvider.
type bindGroupProvider struct {
	mu *sync.Mutex

	// label is a debug label added for convenience.
	label string
	// group is the bind group index the provider is bound at.
	group uint32

	// bindGroupLayout is the fixed layout the bind group is created against.
	bindGroupLayout *wgpu.BindGroupLayout
	// bindGroup is the most recently built bind group, or nil if a binding changed since.
	bindGroup *wgpu.BindGroup

	// buffers holds the uniform buffers keyed by binding index.
	buffers map[int]*wgpu.Buffer
	// textureViews holds the texture views keyed by binding index.
	textureViews map[int]*wgpu.TextureView
	// samplers holds the samplers keyed by binding index.
	samplers map[int]*wgpu.Sampler
}

// BindGroupProvider tracks the resources bound at one bind group index and lazily builds
// the bind group when a draw needs it.
//
// Usage pattern:
//  1. The backend creates one provider per bind group index with the fixed layout
//  2. Uploads and resource binds replace individual bindings, marking the provider dirty
//  3. Before a draw the backend calls Build, which recreates the bind group only if dirty
type BindGroupProvider interface {
	// Label returns the debug label for this provider.
	//
	// Returns:
	//   - string: the debug label
	Label() string

	// Group returns the bind group index.
	//
	// Returns:
	//   - uint32: the group index
	Group() uint32

	// BindGroup returns the current bind group, or nil if it must be rebuilt.
	//
	// Returns:
	//   - *wgpu.BindGroup: the bind group or nil
	BindGroup() *wgpu.BindGroup

	// BindGroupLayout returns the layout the bind group is created against.
	//
	// Returns:
	//   - *wgpu.BindGroupLayout: the bind group layout or nil
	BindGroupLayout() *wgpu.BindGroupLayout

	// Buffer returns the buffer bound at a binding, or nil.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - *wgpu.Buffer: the buffer or nil
	Buffer(binding int) *wgpu.Buffer

	// SetBuffer binds a uniform buffer. The bind group is rebuilt on the next Build if the
	// buffer differs from the current one.
	//
	// Parameters:
	//   - binding: the binding index
	//   - buf: the buffer
	SetBuffer(binding int, buf *wgpu.Buffer)

	// TextureView returns the texture view bound at a binding, or nil.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - *wgpu.TextureView: the texture view or nil
	TextureView(binding int) *wgpu.TextureView

	// SetTextureView binds a texture view.
	//
	// Parameters:
	//   - binding: the binding index
	//   - tv: the texture view
	SetTextureView(binding int, tv *wgpu.TextureView)

	// Sampler returns the sampler bound at a binding, or nil.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - *wgpu.Sampler: the sampler or nil
	Sampler(binding int) *wgpu.Sampler

	// SetSampler binds a sampler.
	//
	// Parameters:
	//   - binding: the binding index
	//   - s: the sampler
	SetSampler(binding int, s *wgpu.Sampler)

	// Dirty reports whether a binding changed since the last Build.
	//
	// Returns:
	//   - bool: true if the bind group must be rebuilt
	Dirty() bool

	// Entries returns the bind group entries for the current bindings, ordered by binding.
	//
	// Returns:
	//   - []wgpu.BindGroupEntry: the entries
	Entries() []wgpu.BindGroupEntry

	// Build returns the bind group, creating it first if a binding changed.
	//
	// Parameters:
	//   - device: the device used to create the bind group
	//
	// Returns:
	//   - *wgpu.BindGroup: the bind group
	//   - bool: true if a new bind group was created and must be released by the caller
	//   - error: a creation error
	Build(device *wgpu.Device) (*wgpu.BindGroup, bool, error)
}

var _ BindGroupProvider = &bindGroupProvider{}

// NewBindGroupProvider creates a provider for one bind group index.
//
// Parameters:
//   - label: the debug label
//   - group: the bind group index
//   - options: functional options
//
// Returns:
//   - BindGroupProvider: the provider
func NewBindGroupProvider(label string, group uint32, options ...BindGroupProviderOption) BindGroupProvider {
	p := &bindGroupProvider{
		mu:           &sync.Mutex{},
		label:        label,
		group:        group,
		buffers:      make(map[int]*wgpu.Buffer),
		textureViews: make(map[int]*wgpu.TextureView),
		samplers:     make(map[int]*wgpu.Sampler),
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

func (p *bindGroupProvider) Label() string {
	return p.label
}

func (p *bindGroupProvider) Group() uint32 {
	return p.group
}

func (p *bindGroupProvider) BindGroup() *wgpu.BindGroup {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.bindGroup
}

func (p *bindGroupProvider) BindGroupLayout() *wgpu.BindGroupLayout {
	return p.bindGroupLayout
}

func (p *bindGroupProvider) Buffer(binding int) *wgpu.Buffer {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buffers[binding]
}

func (p *bindGroupProvider) SetBuffer(binding int, buf *wgpu.Buffer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if cur, ok := p.buffers[binding]; ok && cur == buf {
		return
	}
	p.buffers[binding] = buf
	p.bindGroup = nil
}

func (p *bindGroupProvider) TextureView(binding int) *wgpu.TextureView {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.textureViews[binding]
}

func (p *bindGroupProvider) SetTextureView(binding int, tv *wgpu.TextureView) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if cur, ok := p.textureViews[binding]; ok && cur == tv {
		return
	}
	p.textureViews[binding] = tv
	p.bindGroup = nil
}

func (p *bindGroupProvider) Sampler(binding int) *wgpu.Sampler {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.samplers[binding]
}

func (p *bindGroupProvider) SetSampler(binding int, s *wgpu.Sampler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if cur, ok := p.samplers[binding]; ok && cur == s {
		return
	}
	p.samplers[binding] = s
	p.bindGroup = nil
}

func (p *bindGroupProvider) Dirty() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.bindGroup == nil
}

func (p *bindGroupProvider) Entries() []wgpu.BindGroupEntry {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.entries()
}

func (p *bindGroupProvider) entries() []wgpu.BindGroupEntry {
	entries := make([]wgpu.BindGroupEntry, 0, len(p.buffers)+len(p.textureViews)+len(p.samplers))
	for binding, buf := range p.buffers {
		entries = append(entries, wgpu.BindGroupEntry{
			Binding: uint32(binding),
			Buffer:  buf,
			Offset:  0,
			Size:    wgpu.WholeSize,
		})
	}
	for binding, tv := range p.textureViews {
		entries = append(entries, wgpu.BindGroupEntry{
			Binding:     uint32(binding),
			TextureView: tv,
		})
	}
	for binding, s := range p.samplers {
		entries = append(entries, wgpu.BindGroupEntry{
			Binding: uint32(binding),
			Sampler: s,
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Binding < entries[j].Binding })
	return entries
}

func (p *bindGroupProvider) Build(device *wgpu.Device) (*wgpu.BindGroup, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.bindGroup != nil {
		return p.bindGroup, false, nil
	}
	if p.bindGroupLayout == nil {
		return nil, false, fmt.Errorf("bind group %q has no layout", p.label)
	}
	bg, err := device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   p.label,
		Layout:  p.bindGroupLayout,
		Entries: p.entries(),
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to create bind group %q: %w", p.label, err)
	}
	p.bindGroup = bg
	return bg, true, nil
}
