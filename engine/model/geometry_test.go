package model

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
)

func TestCubeGeometry(t *testing.T) {
	vertices, indices := Cube()
	g := NewGeometry(WithName("cube"), WithVertices(vertices, indices))

	if g.IndexCount() != 36 {
		t.Errorf("IndexCount() = %d, want 36", g.IndexCount())
	}
	if len(g.VertexData()) != 24*32 {
		t.Errorf("len(VertexData()) = %d, want %d", len(g.VertexData()), 24*32)
	}
	if len(g.IndexData()) != 36*4 {
		t.Errorf("len(IndexData()) = %d, want %d", len(g.IndexData()), 36*4)
	}
	b := g.BoundingBox()
	if b.Min != [3]float32{-0.5, -0.5, -0.5} || b.Max != [3]float32{0.5, 0.5, 0.5} {
		t.Errorf("BoundingBox() = %v, want unit cube", b)
	}
}

func TestGeometryIDsAreUnique(t *testing.T) {
	a, b := NewGeometry(), NewGeometry()
	if a.ID() == b.ID() {
		t.Errorf("two geometries share id %d", a.ID())
	}
	if a.VertexLayoutHash() != b.VertexLayoutHash() {
		t.Error("equal layouts hash differently")
	}
}

func TestPipelineStateHashTracksTopology(t *testing.T) {
	g := NewGeometry()
	before := g.PipelineStateHash()
	g.SetTopology(wgpu.PrimitiveTopologyLineList)
	if g.PipelineStateHash() == before {
		t.Error("PipelineStateHash() unchanged after topology change")
	}
}

func TestVertexLayoutHashDistinguishesLayouts(t *testing.T) {
	layout := StaticVertexLayout()
	other := StaticVertexLayout()
	other.ArrayStride = 48
	if VertexLayoutHash(layout) == VertexLayoutHash(other) {
		t.Error("different strides produced equal hashes")
	}
}

func TestLookupVertexLayout(t *testing.T) {
	g := NewGeometry()
	layout, ok := LookupVertexLayout(g.VertexLayoutHash())
	if !ok {
		t.Fatal("LookupVertexLayout() ok = false for a registered layout")
	}
	if layout.ArrayStride != 32 {
		t.Errorf("LookupVertexLayout().ArrayStride = %d, want 32", layout.ArrayStride)
	}
	if _, ok := LookupVertexLayout(g.VertexLayoutHash() + 1); ok {
		t.Error("LookupVertexLayout() ok = true for an unknown hash")
	}
}
