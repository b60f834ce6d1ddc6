package bind_group_provider

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
)

func TestBindGroupProviderDirty(t *testing.T) {
	buf := &wgpu.Buffer{}
	p := NewBindGroupProvider("object", 3, WithUniformBuffer(0, buf))

	if p.Group() != 3 {
		t.Errorf("Group() = %d, want 3", p.Group())
	}
	if !p.Dirty() {
		t.Errorf("Dirty() = false for a new provider, want true")
	}
	if p.Buffer(0) != buf {
		t.Errorf("Buffer(0) did not return the buffer set by WithUniformBuffer")
	}
	if _, _, err := p.Build(nil); err == nil {
		t.Errorf("Build() without a layout returned nil error")
	}
}

func TestBindGroupProviderEntriesOrdered(t *testing.T) {
	tv := &wgpu.TextureView{}
	s := &wgpu.Sampler{}
	p := NewBindGroupProvider("material", 2,
		WithSampledTexture(1, 2, tv, s),
		WithUniformBuffer(0, &wgpu.Buffer{}),
	)

	entries := p.Entries()
	if len(entries) != 3 {
		t.Fatalf("len(Entries()) = %d, want 3", len(entries))
	}
	for i, e := range entries {
		if e.Binding != uint32(i) {
			t.Errorf("Entries()[%d].Binding = %d, want %d", i, e.Binding, i)
		}
	}
	if entries[0].Size != wgpu.WholeSize {
		t.Errorf("buffer entry Size = %d, want WholeSize", entries[0].Size)
	}
	if entries[1].TextureView != tv || entries[2].Sampler != s {
		t.Errorf("texture entries not bound to the given view and sampler")
	}
}
