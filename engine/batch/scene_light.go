package batch

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/xgdwangdechao/rbfx/common"
	"github.com/xgdwangdechao/rbfx/engine/camera"
	"github.com/xgdwangdechao/rbfx/engine/config"
	"github.com/xgdwangdechao/rbfx/engine/drawable"
	"github.com/xgdwangdechao/rbfx/engine/light"
	"github.com/xgdwangdechao/rbfx/engine/renderer"
	"github.com/xgdwangdechao/rbfx/engine/view"
)

// LightShaderParameters are the values uploaded in the light parameter group.
type LightShaderParameters struct {
	Position          [3]float32
	Direction         [3]float32
	InvRange          float32
	Color             [3]float32
	SpecularIntensity float32
	Cutoff            float32
	InvCutoff         float32
	ShadowMatrices    [MaxLightSplits][16]float32
	ShadowDepthFade   [4]float32
	ShadowIntensity   [4]float32
	ShadowMapInvSize  [2]float32
	ShadowSplits      [4]float32
	NormalOffsetScale [4]float32
}

// lightProcessContext is the read-only frame state shared by the per-light tasks.
type lightProcessContext struct {
	frame       view.FrameInfo
	cache       *view.VisibilityCache
	geometries  []drawable.Drawable
	sceneZRange view.ZRange
	shadows     config.ShadowSettings
}

// SceneLight is the per-frame state of a visible light. It is cached across frames by light ID.
type SceneLight struct {
	light light.Light
	index int

	hasShadow     bool
	bias          light.ShadowBias
	litGeometries []drawable.Drawable
	splits        [MaxLightSplits]ShadowSplit
	numSplits     int
	shadowMapSize common.IntSize
	shadowMap     renderer.ShadowMap
	params        LightShaderParameters
	hash          uint32
}

func newSceneLight(l light.Light) *SceneLight {
	return &SceneLight{light: l, index: NoLight}
}

// Light returns the scene light source.
func (s *SceneLight) Light() light.Light {
	return s.light
}

// Index returns the visible light index of the current frame.
func (s *SceneLight) Index() int {
	return s.index
}

// HasShadow reports whether the light renders a shadow map this frame.
func (s *SceneLight) HasShadow() bool {
	return s.hasShadow
}

// ShadowBias returns the bias with renderer defaults applied.
func (s *SceneLight) ShadowBias() light.ShadowBias {
	return s.bias
}

// LitGeometries returns the visible geometries the light affects.
func (s *SceneLight) LitGeometries() []drawable.Drawable {
	return s.litGeometries
}

// NumSplits returns the number of shadow splits, 0 without shadow.
func (s *SceneLight) NumSplits() int {
	return s.numSplits
}

// Split returns shadow split i.
func (s *SceneLight) Split(i int) *ShadowSplit {
	return &s.splits[i]
}

// ShadowMapSize returns the atlas region size the light needs, zero without shadow.
func (s *SceneLight) ShadowMapSize() common.IntSize {
	if !s.hasShadow {
		return common.IntSize{}
	}
	return s.shadowMapSize
}

// ShadowMap returns the atlas region allocated for the light.
func (s *SceneLight) ShadowMap() renderer.ShadowMap {
	return s.shadowMap
}

// ShaderParameters returns the light parameter group values.
func (s *SceneLight) ShaderParameters() LightShaderParameters {
	return s.params
}

// PipelineStateHash returns the hash of the light properties that select shader variants.
func (s *SceneLight) PipelineStateHash() uint32 {
	return s.hash
}

func (s *SceneLight) beginFrame(hasShadow bool, shadows config.ShadowSettings) {
	clear(s.litGeometries)
	s.litGeometries = s.litGeometries[:0]
	for i := range s.splits {
		s.splits[i].reset()
	}
	s.numSplits = 0
	s.shadowMapSize = common.IntSize{}
	s.shadowMap = renderer.ShadowMap{}
	s.hasShadow = hasShadow
	s.index = NoLight

	s.bias = s.light.ShadowBias()
	if s.bias.Constant == 0 && s.bias.Slope == 0 {
		s.bias.Constant = common.Coalesce(shadows.DefaultBias, light.DefaultConstantBias)
		s.bias.Slope = common.Coalesce(shadows.DefaultSlopeBias, light.DefaultSlopeBias)
	}
	s.hash = s.computePipelineStateHash()
}

// collect gathers lit geometries and, for shadowed lights, the split cameras and casters.
// It reads shared frame state only and writes nothing outside the light.
func (s *SceneLight) collect(ctx *lightProcessContext) {
	for _, g := range ctx.geometries {
		if s.light.IsLit(g) {
			s.litGeometries = append(s.litGeometries, g)
		}
	}
	if !s.hasShadow {
		return
	}

	s.setupSplits(ctx)
	cam := ctx.frame.Camera
	lightMask := s.light.EffectiveLightMask()
	for i := 0; i < s.numSplits; i++ {
		split := &s.splits[i]
		if split.empty {
			continue
		}
		if s.light.Type() == light.LightTypePoint && !cam.Frustum().IntersectsBox(split.bounds()) {
			continue
		}
		for _, d := range ctx.frame.SpatialIndex.Query(split.Frustum, drawable.FlagGeometry, cam.ViewMask()) {
			if d.CastShadows() && d.ShadowMask()&lightMask != 0 {
				split.Casters = append(split.Casters, d)
			}
		}
	}
}

func (s *SceneLight) setupSplits(ctx *lightProcessContext) {
	cam := ctx.frame.Camera
	l := s.light
	position := mgl32.Vec3(l.Position())
	direction := mgl32.Vec3(l.Direction())

	switch l.Type() {
	case light.LightTypeDirectional:
		splits := cascadeSplits(l.ShadowCascade(), ctx.shadows)
		near := cam.Near()
		for _, splitFar := range splits {
			if near > cam.Far() {
				break
			}
			far := math32.Min(cam.Far(), splitFar)
			if far <= near {
				break
			}
			split := &s.splits[s.numSplits]
			split.ZRange = view.ZRange{Min: near, Max: far}
			split.setupDirectional(l.Direction(), cam, ctx.sceneZRange, ctx.shadows.SplitSize)
			near = far
			s.numSplits++
		}
	case light.LightTypeSpot:
		s.splits[0].setupPerspective(position, direction, mgl32.Vec3{0, 1, 0}, l.Fov(), l.Range())
		s.numSplits = 1
	case light.LightTypePoint:
		for i, face := range pointLightFaces {
			s.splits[i].setupPerspective(position, face.dir, face.up, 90, l.Range())
		}
		s.numSplits = MaxLightSplits
	}
}

// cascadeSplits returns the cascade far distances of a directional light, falling back to the
// renderer defaults, limited to the configured cascade count.
func cascadeSplits(cascade light.ShadowCascade, shadows config.ShadowSettings) []float32 {
	limit := min(max(shadows.MaxCascades, 1), light.MaxCascades)
	var out []float32
	if n := cascade.NumSplits(); n > 0 {
		out = append(out, cascade.Splits[:n]...)
	} else {
		out = append(out, shadows.CascadeSplits...)
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// finalizeShadowMap drops the shadow when no split has casters and sizes the atlas region.
func (s *SceneLight) finalizeShadowMap(splitSize int) {
	if !s.hasShadow {
		return
	}
	hasCasters := false
	for i := 0; i < s.numSplits; i++ {
		if len(s.splits[i].Casters) > 0 {
			hasCasters = true
			break
		}
	}
	if !hasCasters {
		s.disableShadow()
		return
	}
	cols, rows := splitGrid(s.numSplits)
	s.shadowMapSize = common.IntSize{Width: cols * splitSize, Height: rows * splitSize}
}

func (s *SceneLight) disableShadow() {
	s.hasShadow = false
	for i := 0; i < s.numSplits; i++ {
		s.splits[i].reset()
	}
	s.numSplits = 0
	s.shadowMapSize = common.IntSize{}
	s.shadowMap = renderer.ShadowMap{}
	s.hash = s.computePipelineStateHash()
}

// setShadowMap distributes the allocated region over the splits. An invalid region disables
// the shadow.
func (s *SceneLight) setShadowMap(shadowMap renderer.ShadowMap) {
	if !shadowMap.IsValid() {
		s.disableShadow()
		return
	}
	s.shadowMap = shadowMap
	for i := 0; i < s.numSplits; i++ {
		cell := shadowMap
		cell.Region = splitRegion(shadowMap.Region, i, s.numSplits)
		s.splits[i].finalize(cell)
	}
}

// setIndex records the visible light index on the light and its splits.
func (s *SceneLight) setIndex(index int) {
	s.index = index
	for i := range s.splits {
		s.splits[i].LightIndex = index
	}
}

// lightFade returns the distance fade of non-directional lights between the fade distance and
// the draw distance.
func lightFade(l light.Light) float32 {
	fadeStart := l.FadeDistance()
	fadeEnd := l.DrawDistance()
	if l.Type() != light.LightTypeDirectional && fadeEnd > 0 && fadeStart > 0 && fadeStart < fadeEnd {
		return math32.Min(1-(l.Distance()-fadeStart)/(fadeEnd-fadeStart), 1)
	}
	return 1
}

func (s *SceneLight) finalizeShaderParameters(cam camera.Camera) {
	l := s.light
	p := LightShaderParameters{
		Position:  l.Position(),
		Direction: l.Direction(),
	}
	if l.Type() != light.LightTypeDirectional {
		p.InvRange = 1 / math32.Max(l.Range(), common.LargeEpsilon)
	}

	fade := lightFade(l)
	c := l.EffectiveColor()
	p.Color = [3]float32{fade * math32.Abs(c.R), fade * math32.Abs(c.G), fade * math32.Abs(c.B)}
	p.SpecularIntensity = fade * l.SpecularIntensity()

	if l.Type() == light.LightTypeSpot {
		p.Cutoff = math32.Cos(mgl32.DegToRad(l.Fov()) * 0.5)
		p.InvCutoff = 1 / (1 - p.Cutoff)
	} else {
		p.Cutoff = -2
		p.InvCutoff = 1
	}

	if s.hasShadow && s.shadowMap.IsValid() {
		for i := 0; i < s.numSplits; i++ {
			p.ShadowMatrices[i] = s.splits[i].ShadowMatrix
		}

		first := &s.splits[0]
		q := first.Far / (first.Far - first.Near)
		r := -q * first.Near
		viewFar := cam.Far()
		cascade := l.ShadowCascade()
		shadowRange := cascade.ShadowDistance()
		if shadowRange <= 0 {
			shadowRange = s.splits[s.numSplits-1].ZRange.Max
		}
		fadeStartRatio := common.Coalesce(cascade.FadeStart, light.DefaultCascadeFadeStart)
		fadeStart := fadeStartRatio * shadowRange / viewFar
		fadeEnd := shadowRange / viewFar
		fadeRange := math32.Max(fadeEnd-fadeStart, common.LargeEpsilon)
		p.ShadowDepthFade = [4]float32{q, r, fadeStart, 1 / fadeRange}

		intensity := l.ShadowIntensity()
		fs, fe := l.ShadowFadeDistance(), l.ShadowDistance()
		if fs > 0 && fe > 0 && fe > fs {
			t := common.Clamp((l.Distance()-fs)/(fe-fs), 0, 1)
			intensity += (1 - intensity) * t
		}
		p.ShadowIntensity = [4]float32{1 - intensity, intensity, 0, 0}

		size := s.shadowMap.Texture.Size
		p.ShadowMapInvSize = [2]float32{1 / float32(size.Width), 1 / float32(size.Height)}

		p.ShadowSplits = [4]float32{common.LargeValue, common.LargeValue, common.LargeValue, common.LargeValue}
		for i := 0; i < s.numSplits-1 && i < 3; i++ {
			p.ShadowSplits[i] = s.splits[i].ZRange.Max / viewFar
		}

		if s.bias.NormalOffset > 0 {
			if l.Type() == light.LightTypeDirectional {
				for i := 0; i < s.numSplits && i < 4; i++ {
					p.NormalOffsetScale[i] = s.splits[i].OrthoSize * s.bias.NormalOffset
				}
			} else {
				p.NormalOffsetScale[0] = 2 * math32.Tan(mgl32.DegToRad(first.Fov)*0.5) * first.Far * s.bias.NormalOffset
			}
		}
	}

	s.params = p
	s.hash = s.computePipelineStateHash()
}

func (s *SceneLight) computePipelineStateHash() uint32 {
	l := s.light
	var hash uint32
	hash |= uint32(l.Type()) & 0x3
	hash |= boolBit(s.hasShadow) << 2
	hash |= boolBit(l.HasShapeTexture()) << 3
	hash |= boolBit(l.SpecularIntensity() > 0) << 4
	hash |= boolBit(s.bias.NormalOffset > 0) << 5
	hash = common.CombineHash(hash, common.FloatHash(s.bias.Constant))
	hash = common.CombineHash(hash, common.FloatHash(s.bias.Slope))
	return hash
}

func boolBit(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
