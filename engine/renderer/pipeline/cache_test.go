package pipeline

import (
	"errors"
	"testing"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/xgdwangdechao/rbfx/engine/renderer/shader"
)

type fakeShader struct {
	key        string
	compileErr error
	compiles   int
}

func (f *fakeShader) Key() string                                      { return f.key }
func (f *fakeShader) Type() shader.ShaderType                          { return shader.ShaderTypeVertex }
func (f *fakeShader) Source() string                                   { return "" }
func (f *fakeShader) EntryPoint() string                               { return "main" }
func (f *fakeShader) Defines() []string                                { return nil }
func (f *fakeShader) Module() *wgpu.ShaderModuleDescriptor             { return nil }
func (f *fakeShader) Variant(defines ...string) (shader.Shader, error) { return f, nil }
func (f *fakeShader) Compile() ([]byte, error) {
	f.compiles++
	return nil, f.compileErr
}

type fakeRegistrar struct {
	calls int
	err   error
}

func (r *fakeRegistrar) RegisterPipelineState(PipelineState) error {
	r.calls++
	return r.err
}

func TestCache_InternsEqualDescriptors(t *testing.T) {
	vs, fs := &fakeShader{key: "vs"}, &fakeShader{key: "fs"}
	reg := &fakeRegistrar{}
	c := NewCache(WithRegistrar(reg))

	a, err := c.GetOrCreatePipelineState(NewPipelineStateDesc(WithShaders(vs, fs), WithLabel("first")))
	if err != nil {
		t.Fatalf("GetOrCreatePipelineState() error = %v", err)
	}
	b, err := c.GetOrCreatePipelineState(NewPipelineStateDesc(WithShaders(vs, fs), WithLabel("second")))
	if err != nil {
		t.Fatalf("GetOrCreatePipelineState() error = %v", err)
	}
	if a != b {
		t.Error("GetOrCreatePipelineState() returned different states for equal descriptors")
	}
	if reg.calls != 1 {
		t.Errorf("registrar calls = %d, want 1", reg.calls)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}

func TestCache_CullModeDistinct(t *testing.T) {
	vs, fs := &fakeShader{key: "vs"}, &fakeShader{key: "fs"}
	c := NewCache()

	back, _ := c.GetOrCreatePipelineState(NewPipelineStateDesc(WithShaders(vs, fs), WithCullMode(wgpu.CullModeBack)))
	none, _ := c.GetOrCreatePipelineState(NewPipelineStateDesc(WithShaders(vs, fs), WithCullMode(wgpu.CullModeNone)))
	if back == nil || none == nil {
		t.Fatal("GetOrCreatePipelineState() returned nil")
	}
	if back == none {
		t.Error("descriptors differing in cull mode share a state")
	}
	if back.ID() == none.ID() {
		t.Errorf("ID() = %d for both states, want distinct", back.ID())
	}
	if back.ShaderHash() != none.ShaderHash() {
		t.Error("ShaderHash() differs for the same shader pair")
	}
	if back.Desc().Hash() == none.Desc().Hash() {
		t.Error("Hash() equal for different cull modes")
	}
}

func TestCache_InvalidDescriptor(t *testing.T) {
	c := NewCache()
	state, err := c.GetOrCreatePipelineState(NewPipelineStateDesc(WithShaders(&fakeShader{key: "vs"}, nil)))
	if state != nil || !errors.Is(err, ErrInvalidPipelineDesc) {
		t.Errorf("GetOrCreatePipelineState() = %v, %v, want nil, ErrInvalidPipelineDesc", state, err)
	}
	if c.Failed() != 1 {
		t.Errorf("Failed() = %d, want 1", c.Failed())
	}
}

func TestCache_FailureRemembered(t *testing.T) {
	vs := &fakeShader{key: "vs", compileErr: errors.New("bad wgsl")}
	fs := &fakeShader{key: "fs"}
	reg := &fakeRegistrar{}
	c := NewCache(WithRegistrar(reg), WithShaderValidation(true))
	desc := NewPipelineStateDesc(WithShaders(vs, fs))

	if _, err := c.GetOrCreatePipelineState(desc); err == nil {
		t.Fatal("GetOrCreatePipelineState() error = nil, want compile error")
	}
	_, err := c.GetOrCreatePipelineState(desc)
	if !errors.Is(err, ErrPipelineStateFailed) {
		t.Errorf("second GetOrCreatePipelineState() error = %v, want ErrPipelineStateFailed", err)
	}
	if vs.compiles != 1 {
		t.Errorf("compiles = %d, want 1", vs.compiles)
	}
	if reg.calls != 0 {
		t.Errorf("registrar calls = %d, want 0", reg.calls)
	}
}

func TestCache_RegistrarFailure(t *testing.T) {
	c := NewCache(WithRegistrar(&fakeRegistrar{err: errors.New("device lost")}))
	state, err := c.GetOrCreatePipelineState(NewPipelineStateDesc(WithShaders(&fakeShader{key: "vs"}, &fakeShader{key: "fs"})))
	if state != nil || err == nil {
		t.Errorf("GetOrCreatePipelineState() = %v, %v, want nil and an error", state, err)
	}
	if c.Len() != 0 || c.Failed() != 1 {
		t.Errorf("Len(), Failed() = %d, %d, want 0, 1", c.Len(), c.Failed())
	}

	c.Clear()
	if c.Failed() != 0 {
		t.Errorf("Failed() after Clear() = %d, want 0", c.Failed())
	}
}

func TestPipelineStateDesc_Hash(t *testing.T) {
	vs, fs := &fakeShader{key: "vs"}, &fakeShader{key: "fs"}
	a := NewPipelineStateDesc(WithShaders(vs, fs), WithLabel("a"))
	b := NewPipelineStateDesc(WithShaders(vs, fs), WithLabel("b"))
	if a.Hash() != b.Hash() {
		t.Error("Hash() depends on the label")
	}
	if a.Hash() == 0 {
		t.Error("Hash() = 0")
	}
	c := NewPipelineStateDesc(WithShaders(vs, fs), WithDepthBias(10, 1.5))
	if a.Hash() == c.Hash() {
		t.Error("Hash() ignores depth bias")
	}
	if !a.IsValid() || NewPipelineStateDesc().IsValid() {
		t.Error("IsValid() wrong")
	}
}
