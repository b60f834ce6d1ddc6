package batch

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/xgdwangdechao/rbfx/common"
	"github.com/xgdwangdechao/rbfx/engine/camera"
	"github.com/xgdwangdechao/rbfx/engine/drawable"
	"github.com/xgdwangdechao/rbfx/engine/renderer"
	"github.com/xgdwangdechao/rbfx/engine/view"
)

// MaxLightSplits is the largest number of shadow splits of one light (the six point light faces).
const MaxLightSplits = 6

// shadowNearRatio is the near plane of perspective shadow cameras as a fraction of the light range.
const shadowNearRatio float32 = 0.01

var pointLightFaces = [MaxLightSplits]struct {
	dir, up mgl32.Vec3
}{
	{mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 1, 0}},
	{mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, 1, 0}},
	{mgl32.Vec3{0, 1, 0}, mgl32.Vec3{0, 0, 1}},
	{mgl32.Vec3{0, -1, 0}, mgl32.Vec3{0, 0, 1}},
	{mgl32.Vec3{0, 0, 1}, mgl32.Vec3{0, 1, 0}},
	{mgl32.Vec3{0, 0, -1}, mgl32.Vec3{0, 1, 0}},
}

// ShadowSplit is one shadow camera of a light and the casters rendered into its region of
// the light's shadow map.
type ShadowSplit struct {
	// LightIndex is the visible light index of the owning SceneLight.
	LightIndex int

	View           [16]float32
	Projection     [16]float32
	ViewProjection [16]float32
	Frustum        common.Frustum
	// ZRange is the main camera depth range a directional cascade covers.
	ZRange view.ZRange
	Near   float32
	Far    float32
	// OrthoSize is the width of an orthographic split, 0 for perspective splits.
	OrthoSize float32
	Fov       float32

	ShadowMap    renderer.ShadowMap
	ShadowMatrix [16]float32

	Casters []drawable.Drawable
	Batches []SceneBatch

	empty bool
}

func (s *ShadowSplit) reset() {
	clear(s.Casters)
	s.Casters = s.Casters[:0]
	clear(s.Batches)
	s.Batches = s.Batches[:0]
	s.ShadowMap = renderer.ShadowMap{}
	s.ShadowMatrix = common.IdentityMatrix()
	s.ZRange = view.EmptyZRange()
	s.OrthoSize = 0
	s.Fov = 0
	s.empty = false
}

func (s *ShadowSplit) setCamera(viewMatrix mgl32.Mat4, proj [16]float32) {
	s.View = [16]float32(viewMatrix)
	s.Projection = proj
	common.Mul4(s.ViewProjection[:], s.Projection[:], s.View[:])
	s.Frustum = common.ExtractFrustumFromMatrix(s.ViewProjection[:])
}

// setupDirectional fits an orthographic camera around the part of the main camera frustum the
// cascade covers, limited to the scene depth range. The camera is snapped to whole texels.
func (s *ShadowSplit) setupDirectional(direction [3]float32, cam camera.Camera, sceneZ view.ZRange, splitSize int) {
	zr := s.ZRange
	if sceneZ.IsValid() {
		zr = intersectZRange(zr, sceneZ)
	}
	if !zr.IsValid() {
		s.empty = true
		zr = s.ZRange
	}
	near := math32.Max(zr.Min, cam.Near())
	far := math32.Max(zr.Max, near+common.LargeEpsilon)

	corners := cam.FrustumCorners(near, far)
	var center [3]float32
	for _, c := range corners {
		center = common.Add3(center, c)
	}
	center = common.Scale3(center, 1.0/float32(len(corners)))
	radius := common.LargeEpsilon
	for _, c := range corners {
		radius = math32.Max(radius, common.Length3(common.Sub3(c, center)))
	}

	dir := mgl32.Vec3(common.Normalize3(direction))
	up := mgl32.Vec3{0, 1, 0}
	if math32.Abs(dir.Dot(up)) > 0.99 {
		up = mgl32.Vec3{0, 0, 1}
	}
	rotation := mgl32.LookAtV(mgl32.Vec3{}, dir, up)
	c := rotation.Mul4x1(mgl32.Vec3(center).Vec4(1))

	texel := 2 * radius / float32(max(splitSize, 1))
	cx := math32.Floor(c.X()/texel) * texel
	cy := math32.Floor(c.Y()/texel) * texel

	extrusion := cam.Far()
	s.Near = -c.Z() - radius - extrusion
	s.Far = -c.Z() + radius
	s.OrthoSize = 2 * radius

	var proj [16]float32
	common.Orthographic(proj[:], cx-radius, cx+radius, cy-radius, cy+radius, s.Near, s.Far)
	s.setCamera(rotation, proj)
}

func (s *ShadowSplit) setupPerspective(position, direction, up mgl32.Vec3, fov, lightRange float32) {
	if math32.Abs(direction.Normalize().Dot(up)) > 0.99 {
		up = mgl32.Vec3{0, 0, 1}
	}
	viewMatrix := mgl32.LookAtV(position, position.Add(direction), up)
	s.Near = math32.Max(lightRange*shadowNearRatio, 0.1)
	s.Far = math32.Max(lightRange, s.Near+common.LargeEpsilon)
	s.Fov = fov

	var proj [16]float32
	common.Perspective(proj[:], mgl32.DegToRad(fov), 1, s.Near, s.Far)
	s.setCamera(viewMatrix, proj)
}

// bounds returns the world-space box around the split frustum.
func (s *ShadowSplit) bounds() common.BoundingBox {
	var inv [16]float32
	if !common.Invert4(inv[:], s.ViewProjection[:]) {
		return common.InfiniteBoundingBox()
	}
	box := common.EmptyBoundingBox()
	for _, c := range common.Corners(inv[:]) {
		box = box.MergePoint(c)
	}
	return box
}

// finalize assigns the atlas cell and computes the matrix that maps world positions to shadow
// map texture coordinates and depth.
func (s *ShadowSplit) finalize(shadowMap renderer.ShadowMap) {
	s.ShadowMap = shadowMap
	s.ShadowMatrix = shadowMatrix(shadowMap, s.ViewProjection)
}

func shadowMatrix(shadowMap renderer.ShadowMap, viewProjection [16]float32) [16]float32 {
	if !shadowMap.IsValid() {
		return common.IdentityMatrix()
	}
	texW := float32(shadowMap.Texture.Size.Width)
	texH := float32(shadowMap.Texture.Size.Height)
	region := shadowMap.Region

	scaleX := 0.5 * float32(region.Width()) / texW
	scaleY := 0.5 * float32(region.Height()) / texH
	offsetX := float32(region.Left)/texW + scaleX
	offsetY := float32(region.Top)/texH + scaleY

	texAdjust := common.IdentityMatrix()
	texAdjust[0] = scaleX
	texAdjust[5] = -scaleY
	texAdjust[12] = offsetX
	texAdjust[13] = offsetY

	var out [16]float32
	common.Mul4(out[:], texAdjust[:], viewProjection[:])
	return out
}

// splitGrid returns the atlas cell layout of a light with n splits.
func splitGrid(n int) (cols, rows int) {
	switch {
	case n <= 1:
		return 1, 1
	case n == 2:
		return 2, 1
	case n < 6:
		return 2, 2
	default:
		return 3, 2
	}
}

// splitRegion returns the cell of split i inside a shadow map region.
func splitRegion(region common.IntRect, i, n int) common.IntRect {
	cols, rows := splitGrid(n)
	w := region.Width() / cols
	h := region.Height() / rows
	col, row := i%cols, i/cols
	left := region.Left + col*w
	top := region.Top + row*h
	return common.IntRect{Left: left, Top: top, Right: left + w, Bottom: top + h}
}

func intersectZRange(a, b view.ZRange) view.ZRange {
	return view.ZRange{Min: math32.Max(a.Min, b.Min), Max: math32.Min(a.Max, b.Max)}
}
