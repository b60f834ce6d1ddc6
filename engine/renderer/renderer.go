package renderer

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/xgdwangdechao/rbfx/common"
)

// ShaderParameterGroup identifies one uniform block slot. Groups are uploaded independently
// so values shared by many draws (frame, camera) are uploaded once.
type ShaderParameterGroup int

const (
	// GroupFrame holds per-frame values such as time step and frame number.
	GroupFrame ShaderParameterGroup = iota
	// GroupCamera holds the view-projection, camera position and clip distances.
	GroupCamera
	// GroupZone holds ambient and fog parameters.
	GroupZone
	// GroupLight holds the parameters of the light a batch is lit by.
	GroupLight
	// GroupMaterial holds material parameters and textures.
	GroupMaterial
	// GroupObject holds per-instance values such as the world transform.
	GroupObject

	// NumShaderParameterGroups is the number of groups.
	NumShaderParameterGroups
)

// String returns the group name.
func (g ShaderParameterGroup) String() string {
	switch g {
	case GroupFrame:
		return "frame"
	case GroupCamera:
		return "camera"
	case GroupZone:
		return "zone"
	case GroupLight:
		return "light"
	case GroupMaterial:
		return "material"
	case GroupObject:
		return "object"
	default:
		return fmt.Sprintf("ShaderParameterGroup(%d)", int(g))
	}
}

// RenderTexture is a texture created by a Backend.
// Texture and View are nil on backends without GPU objects.
type RenderTexture struct {
	ID      uint32
	Label   string
	Size    common.IntSize
	Format  wgpu.TextureFormat
	Texture *wgpu.Texture
	View    *wgpu.TextureView
}

// ShaderResource is a texture bound to a named unit of a parameter group.
type ShaderResource struct {
	Unit    string
	Label   string
	View    *wgpu.TextureView
	Sampler *wgpu.Sampler
}

// ShaderParameterDesc locates one parameter inside the packed data of a group.
// Offset and Size count float32 values; every parameter starts on a vec4 row.
type ShaderParameterDesc struct {
	Name   string
	Offset int
	Size   int
}
