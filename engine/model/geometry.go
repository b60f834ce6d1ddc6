package model

import (
	"sync"
	"sync/atomic"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/xgdwangdechao/rbfx/common"
)

// geometryCount generates unique geometry ids. Ids order geometries in sorted batch lists.
var geometryCount atomic.Uint64

type geometry struct {
	mu *sync.Mutex

	id          uint64
	name        string
	topology    wgpu.PrimitiveTopology
	indexFormat wgpu.IndexFormat
	indexStart  int
	indexCount  int
	baseVertex  int
	layout      wgpu.VertexBufferLayout
	layoutHash  uint32
	bounds      common.BoundingBox

	vertexData, indexData     []byte
	vertexBuffer, indexBuffer *wgpu.Buffer
}

// Geometry defines the interface for a drawable range of vertex and index data.
// A Geometry is shared by every source batch that draws it; its GPU buffers are created by the backend.
type Geometry interface {
	// ID returns the geometry's unique identifier.
	//
	// Returns:
	//   - uint64: the geometry ID
	ID() uint64

	// Name retrieves the geometry label.
	//
	// Returns:
	//   - string: the name
	Name() string

	// Topology returns the primitive topology used to draw the geometry.
	//
	// Returns:
	//   - wgpu.PrimitiveTopology: the topology
	Topology() wgpu.PrimitiveTopology

	// IndexFormat returns the format of the index buffer.
	//
	// Returns:
	//   - wgpu.IndexFormat: uint16 or uint32
	IndexFormat() wgpu.IndexFormat

	// IndexStart returns the first index drawn.
	//
	// Returns:
	//   - int: the first index
	IndexStart() int

	// IndexCount returns the number of indices drawn.
	//
	// Returns:
	//   - int: the index count
	IndexCount() int

	// BaseVertex returns the value added to each index before fetching a vertex.
	//
	// Returns:
	//   - int: the base vertex
	BaseVertex() int

	// VertexLayout returns the vertex buffer layout.
	//
	// Returns:
	//   - wgpu.VertexBufferLayout: the layout
	VertexLayout() wgpu.VertexBufferLayout

	// VertexLayoutHash returns the hash of VertexLayout.
	//
	// Returns:
	//   - uint32: the layout hash
	VertexLayoutHash() uint32

	// PipelineStateHash returns a hash of every geometry property that affects pipeline creation.
	// Cached pipeline states are invalidated when it changes.
	//
	// Returns:
	//   - uint32: the hash
	PipelineStateHash() uint32

	// BoundingBox returns the model-space bounds of the vertex data.
	//
	// Returns:
	//   - common.BoundingBox: the bounds
	BoundingBox() common.BoundingBox

	// VertexData returns the packed vertex data awaiting upload.
	//
	// Returns:
	//   - []byte: vertex data
	VertexData() []byte

	// IndexData returns the packed index data awaiting upload.
	//
	// Returns:
	//   - []byte: index data
	IndexData() []byte

	// VertexBuffer returns the GPU vertex buffer, nil until uploaded.
	//
	// Returns:
	//   - *wgpu.Buffer: the vertex buffer
	VertexBuffer() *wgpu.Buffer

	// IndexBuffer returns the GPU index buffer, nil until uploaded.
	//
	// Returns:
	//   - *wgpu.Buffer: the index buffer
	IndexBuffer() *wgpu.Buffer

	// SetBuffers stores the GPU buffers created from VertexData and IndexData.
	//
	// Parameters:
	//   - vertex: the vertex buffer
	//   - index: the index buffer
	SetBuffers(vertex, index *wgpu.Buffer)

	// SetTopology changes the primitive topology.
	//
	// Parameters:
	//   - topology: the new topology
	SetTopology(topology wgpu.PrimitiveTopology)
}

var _ Geometry = &geometry{}

// NewGeometry creates a new Geometry. Without options the geometry is an empty triangle list with the static vertex layout.
//
// Parameters:
//   - options: functional options to configure the geometry
//
// Returns:
//   - Geometry: the newly created geometry
func NewGeometry(options ...GeometryBuilderOption) Geometry {
	g := &geometry{
		mu:          &sync.Mutex{},
		id:          geometryCount.Add(1),
		topology:    wgpu.PrimitiveTopologyTriangleList,
		indexFormat: wgpu.IndexFormatUint32,
		layout:      StaticVertexLayout(),
		bounds:      common.EmptyBoundingBox(),
	}
	for _, option := range options {
		option(g)
	}
	g.layoutHash = RegisterVertexLayout(g.layout)
	return g
}

func (g *geometry) ID() uint64 {
	return g.id
}

func (g *geometry) Name() string {
	return g.name
}

func (g *geometry) Topology() wgpu.PrimitiveTopology {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.topology
}

func (g *geometry) IndexFormat() wgpu.IndexFormat {
	return g.indexFormat
}

func (g *geometry) IndexStart() int {
	return g.indexStart
}

func (g *geometry) IndexCount() int {
	return g.indexCount
}

func (g *geometry) BaseVertex() int {
	return g.baseVertex
}

func (g *geometry) VertexLayout() wgpu.VertexBufferLayout {
	return g.layout
}

func (g *geometry) VertexLayoutHash() uint32 {
	return g.layoutHash
}

func (g *geometry) PipelineStateHash() uint32 {
	g.mu.Lock()
	defer g.mu.Unlock()
	hash := g.layoutHash
	hash = common.CombineHash(hash, uint32(g.topology))
	hash = common.CombineHash(hash, uint32(g.indexFormat))
	return hash
}

func (g *geometry) BoundingBox() common.BoundingBox {
	return g.bounds
}

func (g *geometry) VertexData() []byte {
	return g.vertexData
}

func (g *geometry) IndexData() []byte {
	return g.indexData
}

func (g *geometry) VertexBuffer() *wgpu.Buffer {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.vertexBuffer
}

func (g *geometry) IndexBuffer() *wgpu.Buffer {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.indexBuffer
}

func (g *geometry) SetBuffers(vertex, index *wgpu.Buffer) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.vertexBuffer = vertex
	g.indexBuffer = index
}

func (g *geometry) SetTopology(topology wgpu.PrimitiveTopology) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.topology = topology
}
