package model

import (
	"github.com/cogentcore/webgpu/wgpu"

	"github.com/xgdwangdechao/rbfx/common"
)

// GeometryBuilderOption is a functional option for configuring a Geometry via NewGeometry.
type GeometryBuilderOption func(*geometry)

// WithName is an option builder that sets the label of the Geometry.
//
// Parameters:
//   - name: the geometry label
//
// Returns:
//   - GeometryBuilderOption: a function that applies the name option
func WithName(name string) GeometryBuilderOption {
	return func(g *geometry) {
		g.name = name
	}
}

// WithVertices is an option builder that packs static vertices and 32-bit indices into the Geometry.
// The index range covers every index and the bounds enclose every vertex.
//
// Parameters:
//   - vertices: the vertex data
//   - indices: the index data
//
// Returns:
//   - GeometryBuilderOption: a function that applies the data option
func WithVertices(vertices []GPUVertex, indices []uint32) GeometryBuilderOption {
	return func(g *geometry) {
		g.vertexData = MarshalVertices(vertices)
		g.indexData = MarshalIndices(indices)
		g.indexFormat = wgpu.IndexFormatUint32
		g.indexStart = 0
		g.indexCount = len(indices)
		g.layout = StaticVertexLayout()
		bounds := common.EmptyBoundingBox()
		for _, v := range vertices {
			bounds = bounds.MergePoint(v.Position)
		}
		g.bounds = bounds
	}
}

// WithIndexRange is an option builder that restricts drawing to a sub-range of the index buffer.
//
// Parameters:
//   - start: the first index
//   - count: the number of indices
//   - baseVertex: value added to every index
//
// Returns:
//   - GeometryBuilderOption: a function that applies the range option
func WithIndexRange(start, count, baseVertex int) GeometryBuilderOption {
	return func(g *geometry) {
		g.indexStart = start
		g.indexCount = count
		g.baseVertex = baseVertex
	}
}

// WithTopology is an option builder that sets the primitive topology.
//
// Parameters:
//   - topology: the topology
//
// Returns:
//   - GeometryBuilderOption: a function that applies the topology option
func WithTopology(topology wgpu.PrimitiveTopology) GeometryBuilderOption {
	return func(g *geometry) {
		g.topology = topology
	}
}

// WithVertexLayout is an option builder that overrides the vertex buffer layout.
//
// Parameters:
//   - layout: the layout
//
// Returns:
//   - GeometryBuilderOption: a function that applies the layout option
func WithVertexLayout(layout wgpu.VertexBufferLayout) GeometryBuilderOption {
	return func(g *geometry) {
		g.layout = layout
	}
}

// WithBoundingBox is an option builder that sets the model-space bounds.
//
// Parameters:
//   - box: the bounds
//
// Returns:
//   - GeometryBuilderOption: a function that applies the bounds option
func WithBoundingBox(box common.BoundingBox) GeometryBuilderOption {
	return func(g *geometry) {
		g.bounds = box
	}
}

// Cube returns the vertices and indices of a unit cube centered on the origin.
//
// Returns:
//   - []GPUVertex: 24 vertices, four per face
//   - []uint32: 36 indices
func Cube() ([]GPUVertex, []uint32) {
	faces := [6]struct {
		normal, u, v [3]float32
	}{
		{[3]float32{1, 0, 0}, [3]float32{0, 0, -1}, [3]float32{0, 1, 0}},
		{[3]float32{-1, 0, 0}, [3]float32{0, 0, 1}, [3]float32{0, 1, 0}},
		{[3]float32{0, 1, 0}, [3]float32{1, 0, 0}, [3]float32{0, 0, -1}},
		{[3]float32{0, -1, 0}, [3]float32{1, 0, 0}, [3]float32{0, 0, 1}},
		{[3]float32{0, 0, 1}, [3]float32{1, 0, 0}, [3]float32{0, 1, 0}},
		{[3]float32{0, 0, -1}, [3]float32{-1, 0, 0}, [3]float32{0, 1, 0}},
	}
	vertices := make([]GPUVertex, 0, 24)
	indices := make([]uint32, 0, 36)
	for _, f := range faces {
		base := uint32(len(vertices))
		center := common.Scale3(f.normal, 0.5)
		for _, c := range [4][2]float32{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}} {
			p := common.Add3(center, common.Add3(common.Scale3(f.u, 0.5*c[0]), common.Scale3(f.v, 0.5*c[1])))
			vertices = append(vertices, GPUVertex{
				Position: p,
				Normal:   f.normal,
				TexCoord: [2]float32{(c[0] + 1) * 0.5, (c[1] + 1) * 0.5},
			})
		}
		indices = append(indices, base, base+1, base+2, base, base+2, base+3)
	}
	return vertices, indices
}
