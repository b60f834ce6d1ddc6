package model

import (
	"encoding/binary"
	"hash/fnv"
	"math"
	"sync"
	"unsafe"

	"github.com/cogentcore/webgpu/wgpu"
)

// GPUVertex is the GPU-aligned representation of a single static mesh vertex.
// Size: 32 bytes (position, normal, uv; no padding required).
type GPUVertex struct {
	Position [3]float32 // offset  0: vertex position in model space (12 bytes)
	Normal   [3]float32 // offset 12: vertex normal for lighting (12 bytes)
	TexCoord [2]float32 // offset 24: UV texture coordinate (8 bytes)
}

// Size returns the size of the GPUVertex struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPUVertex) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUVertex struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 32-byte buffer ready for GPU upload.
func (g *GPUVertex) Marshal() []byte {
	buf := make([]byte, 32)
	fields := [8]float32{
		g.Position[0], g.Position[1], g.Position[2],
		g.Normal[0], g.Normal[1], g.Normal[2],
		g.TexCoord[0], g.TexCoord[1],
	}
	for i, f := range fields {
		binary.LittleEndian.PutUint32(buf[i*4:(i+1)*4], math.Float32bits(f))
	}
	return buf
}

// StaticVertexLayout returns the vertex buffer layout matching GPUVertex.
// Locations: 0 position, 1 normal, 2 uv.
//
// Returns:
//   - wgpu.VertexBufferLayout: the layout
func StaticVertexLayout() wgpu.VertexBufferLayout {
	return wgpu.VertexBufferLayout{
		ArrayStride: 32,
		StepMode:    wgpu.VertexStepModeVertex,
		Attributes: []wgpu.VertexAttribute{
			{Format: wgpu.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
			{Format: wgpu.VertexFormatFloat32x3, Offset: 12, ShaderLocation: 1},
			{Format: wgpu.VertexFormatFloat32x2, Offset: 24, ShaderLocation: 2},
		},
	}
}

// VertexLayoutHash hashes a vertex buffer layout so that pipeline descriptors can compare layouts by value.
//
// Parameters:
//   - layout: the layout to hash
//
// Returns:
//   - uint32: FNV-1a hash of stride, step mode and attributes
func VertexLayoutHash(layout wgpu.VertexBufferLayout) uint32 {
	h := fnv.New32a()
	var buf [8]byte
	write := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[:], v)
		h.Write(buf[:])
	}
	write(layout.ArrayStride)
	write(uint64(layout.StepMode))
	for _, attr := range layout.Attributes {
		write(uint64(attr.Format))
		write(attr.Offset)
		write(uint64(attr.ShaderLocation))
	}
	return h.Sum32()
}

// vertexLayouts maps layout hashes to the layouts registered by geometries.
var vertexLayouts sync.Map

// RegisterVertexLayout records a layout under its hash so pipeline creation can recover it
// from a pipeline descriptor, which only carries the hash.
//
// Parameters:
//   - layout: the layout to register
//
// Returns:
//   - uint32: the layout hash
func RegisterVertexLayout(layout wgpu.VertexBufferLayout) uint32 {
	hash := VertexLayoutHash(layout)
	vertexLayouts.LoadOrStore(hash, layout)
	return hash
}

// LookupVertexLayout returns the layout registered under hash.
//
// Parameters:
//   - hash: the layout hash
//
// Returns:
//   - wgpu.VertexBufferLayout: the layout
//   - bool: false if no geometry registered a layout with this hash
func LookupVertexLayout(hash uint32) (wgpu.VertexBufferLayout, bool) {
	v, ok := vertexLayouts.Load(hash)
	if !ok {
		return wgpu.VertexBufferLayout{}, false
	}
	return v.(wgpu.VertexBufferLayout), true
}

// MarshalVertices serializes a vertex slice for upload.
//
// Parameters:
//   - vertices: the vertices
//
// Returns:
//   - []byte: tightly packed vertex data
func MarshalVertices(vertices []GPUVertex) []byte {
	out := make([]byte, 0, len(vertices)*32)
	for i := range vertices {
		out = append(out, vertices[i].Marshal()...)
	}
	return out
}

// MarshalIndices serializes 32-bit indices for upload.
//
// Parameters:
//   - indices: the indices
//
// Returns:
//   - []byte: little-endian index data
func MarshalIndices(indices []uint32) []byte {
	out := make([]byte, len(indices)*4)
	for i, idx := range indices {
		binary.LittleEndian.PutUint32(out[i*4:], idx)
	}
	return out
}
