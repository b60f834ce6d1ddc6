package light

import (
	"sync"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/xgdwangdechao/rbfx/common"
	"github.com/xgdwangdechao/rbfx/engine/drawable"
)

// LightType identifies the kind of light source.
type LightType int

const (
	// LightTypeDirectional represents a light with no position, only direction.
	// Used for large distant sources like the sun or moon. Affects everything
	// uniformly with no distance attenuation.
	LightTypeDirectional LightType = iota

	// LightTypePoint represents a light that emits in all directions from a position.
	// Attenuates with distance up to a configurable range.
	LightTypePoint

	// LightTypeSpot represents a light that emits in a cone from a position along a direction.
	LightTypeSpot
)

// Importance controls how a light competes for per-pixel lighting.
type Importance int

const (
	// ImportanceAuto lights are per-pixel or per-vertex depending on their contribution.
	ImportanceAuto Importance = iota
	// ImportanceImportant lights are always per-pixel.
	ImportanceImportant
	// ImportanceNotImportant lights are never per-pixel and never cast shadows.
	ImportanceNotImportant
)

// Rank orders importances: Important > Auto > NotImportant.
func (i Importance) Rank() int {
	switch i {
	case ImportanceImportant:
		return 2
	case ImportanceAuto:
		return 1
	default:
		return 0
	}
}

// lightImpl is the implementation of the Light interface. It embeds the Drawable it
// registers in the scene as and overrides the bounds and distance with light volume values.
type lightImpl struct {
	drawable.Drawable

	mu           *sync.RWMutex
	drawableOpts []drawable.DrawableBuilderOption

	lightType          LightType
	color              common.Color
	brightness         float32
	lightRange         float32
	fov                float32
	direction          [3]float32
	importance         Importance
	baked              bool
	shadowIntensity    float32
	shadowDistance     float32
	shadowFadeDistance float32
	fadeDistance       float32
	specularIntensity  float32
	bias               ShadowBias
	cascade            ShadowCascade
	shapeTexture       bool

	distance float32
}

// Light defines the interface for a light source in the scene.
//
// A Light is a Drawable flagged FlagLight, so the same spatial query that finds geometry
// also finds lights. Its world bounds enclose the lit volume: infinite for directional
// lights, a sphere box for point lights and the cone frustum box for spot lights.
type Light interface {
	drawable.Drawable

	// Type returns the kind of light source.
	//
	// Returns:
	//   - LightType: the light type (directional, point, or spot)
	Type() LightType

	// Color returns the light color.
	//
	// Returns:
	//   - common.Color: the color
	Color() common.Color

	// Brightness returns the scalar brightness multiplier.
	//
	// Returns:
	//   - float32: the brightness
	Brightness() float32

	// EffectiveColor returns the color scaled by brightness.
	//
	// Returns:
	//   - common.Color: the effective color
	EffectiveColor() common.Color

	// EffectiveLightMask returns the light mask used for realtime lighting, 0 for baked lights.
	//
	// Returns:
	//   - uint32: the light mask
	EffectiveLightMask() uint32

	// Range returns the attenuation distance for point and spot lights.
	//
	// Returns:
	//   - float32: the range
	Range() float32

	// Fov returns the spot cone angle in degrees.
	//
	// Returns:
	//   - float32: the field of view
	Fov() float32

	// Direction returns the normalized light direction.
	//
	// Returns:
	//   - [3]float32: the direction
	Direction() [3]float32

	// Importance returns the lighting importance.
	//
	// Returns:
	//   - Importance: the importance
	Importance() Importance

	// ShadowIntensity returns the shadow darkness; 0 is fully dark, 1 disables the shadow.
	ShadowIntensity() float32

	// ShadowFadeDistance returns the distance at which the shadow starts to fade.
	ShadowFadeDistance() float32

	// FadeDistance returns the distance at which the light starts to fade; 0 disables fading.
	FadeDistance() float32

	// SpecularIntensity returns the specular multiplier.
	SpecularIntensity() float32

	// ShadowBias returns the shadow sampling bias.
	ShadowBias() ShadowBias

	// ShadowCascade returns the directional cascade setup.
	ShadowCascade() ShadowCascade

	// HasShapeTexture reports whether the light projects a shape texture.
	HasShapeTexture() bool

	// IntensityDivisor returns the divisor used to rank lights by contribution.
	//
	// Returns:
	//   - float32: sum of the effective color channels plus epsilon
	IntensityDivisor() float32

	// DistanceTo returns the distance from the light to a drawable, 0 for directional lights.
	//
	// Parameters:
	//   - d: the drawable
	//
	// Returns:
	//   - float32: the distance
	DistanceTo(d drawable.Drawable) float32

	// IsLit reports whether the drawable passes the light mask and lies in the light volume.
	//
	// Parameters:
	//   - d: the drawable
	//
	// Returns:
	//   - bool: true if lit
	IsLit(d drawable.Drawable) bool

	// Frustum returns the world-space frustum of a spot light cone.
	//
	// Returns:
	//   - common.Frustum: the frustum
	Frustum() common.Frustum

	// SpotViewProjection returns the view-projection of the spot cone.
	//
	// Returns:
	//   - [16]float32: the column-major matrix
	SpotViewProjection() [16]float32

	// SetPosition moves the light.
	SetPosition(x, y, z float32)

	// SetDirection sets the direction of the light and normalizes it.
	SetDirection(x, y, z float32)

	// SetColor sets the light color.
	SetColor(color common.Color)

	// SetBrightness sets the brightness multiplier.
	SetBrightness(brightness float32)
}

var _ Light = &lightImpl{}

// NewLight creates a new Light of the given type configured with the provided options.
//
// Parameters:
//   - lightType: the type of light to create
//   - opts: variadic list of LightBuilderOption functions to configure the light
//
// Returns:
//   - Light: a new Light instance
func NewLight(lightType LightType, opts ...LightBuilderOption) Light {
	l := &lightImpl{
		mu:                &sync.RWMutex{},
		lightType:         lightType,
		color:             common.White,
		brightness:        1,
		lightRange:        10,
		fov:               30,
		direction:         [3]float32{0, 0, -1},
		specularIntensity: 1,
		bias: ShadowBias{
			Constant: DefaultConstantBias,
			Slope:    DefaultSlopeBias,
		},
		cascade: ShadowCascade{FadeStart: DefaultCascadeFadeStart},
	}
	for _, opt := range opts {
		opt(l)
	}
	l.Drawable = drawable.NewDrawable(append([]drawable.DrawableBuilderOption{drawable.WithFlags(drawable.FlagLight)}, l.drawableOpts...)...)
	l.drawableOpts = nil
	return l
}

func (l *lightImpl) Type() LightType {
	return l.lightType
}

func (l *lightImpl) Color() common.Color {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.color
}

func (l *lightImpl) Brightness() float32 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.brightness
}

func (l *lightImpl) EffectiveColor() common.Color {
	l.mu.RLock()
	defer l.mu.RUnlock()
	c := l.color.Scaled(l.brightness)
	c.A = 1
	return c
}

func (l *lightImpl) EffectiveLightMask() uint32 {
	if l.baked {
		return 0
	}
	return l.LightMask()
}

func (l *lightImpl) Range() float32 {
	return l.lightRange
}

func (l *lightImpl) Fov() float32 {
	return l.fov
}

func (l *lightImpl) Direction() [3]float32 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.direction
}

func (l *lightImpl) Importance() Importance {
	return l.importance
}

func (l *lightImpl) ShadowIntensity() float32 {
	return l.shadowIntensity
}

func (l *lightImpl) ShadowDistance() float32 {
	return l.shadowDistance
}

func (l *lightImpl) ShadowFadeDistance() float32 {
	return l.shadowFadeDistance
}

func (l *lightImpl) FadeDistance() float32 {
	return l.fadeDistance
}

func (l *lightImpl) SpecularIntensity() float32 {
	return l.specularIntensity
}

func (l *lightImpl) ShadowBias() ShadowBias {
	return l.bias
}

func (l *lightImpl) ShadowCascade() ShadowCascade {
	return l.cascade
}

func (l *lightImpl) HasShapeTexture() bool {
	return l.shapeTexture
}

func (l *lightImpl) IntensityDivisor() float32 {
	c := l.EffectiveColor()
	return math32.Max(c.R+c.G+c.B, 0) + common.LargeEpsilon
}

func (l *lightImpl) WorldBoundingBox() common.BoundingBox {
	switch l.lightType {
	case LightTypePoint:
		r := l.lightRange
		return common.NewBoundingBox(l.Position(), [3]float32{r, r, r})
	case LightTypeSpot:
		var inv [16]float32
		vp := l.SpotViewProjection()
		if !common.Invert4(inv[:], vp[:]) {
			return common.NewBoundingBox(l.Position(), [3]float32{l.lightRange, l.lightRange, l.lightRange})
		}
		box := common.EmptyBoundingBox()
		for _, c := range common.Corners(inv[:]) {
			box = box.MergePoint(c)
		}
		return box.MergePoint(l.Position())
	default:
		return common.InfiniteBoundingBox()
	}
}

func (l *lightImpl) Distance() float32 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.distance
}

func (l *lightImpl) LodDistance() float32 {
	return l.Distance()
}

func (l *lightImpl) UpdateBatches(ctx drawable.UpdateContext) {
	var distance float32
	if l.lightType != LightTypeDirectional {
		distance = common.Length3(common.Sub3(l.Position(), ctx.CameraPosition))
	}
	l.mu.Lock()
	l.distance = distance
	l.mu.Unlock()
}

func (l *lightImpl) DistanceTo(d drawable.Drawable) float32 {
	if l.lightType == LightTypeDirectional {
		return 0
	}
	return d.WorldBoundingBox().DistanceTo(l.Position())
}

func (l *lightImpl) IsLit(d drawable.Drawable) bool {
	if d.LightMask()&l.EffectiveLightMask() == 0 {
		return false
	}
	switch l.lightType {
	case LightTypePoint:
		return d.WorldBoundingBox().IntersectsSphere(l.Position(), l.lightRange)
	case LightTypeSpot:
		return l.Frustum().IntersectsBox(d.WorldBoundingBox())
	default:
		return true
	}
}

func (l *lightImpl) SpotViewProjection() [16]float32 {
	pos := mgl32.Vec3(l.Position())
	dir := mgl32.Vec3(l.Direction())
	up := mgl32.Vec3{0, 1, 0}
	if math32.Abs(dir.Dot(up)) > 0.99 {
		up = mgl32.Vec3{0, 0, 1}
	}
	view := mgl32.LookAtV(pos, pos.Add(dir), up)
	var proj [16]float32
	near := math32.Max(l.lightRange*0.01, 0.1)
	common.Perspective(proj[:], mgl32.DegToRad(l.fov), 1, near, math32.Max(l.lightRange, near+common.LargeEpsilon))
	var out [16]float32
	common.Mul4(out[:], proj[:], view[:])
	return out
}

func (l *lightImpl) Frustum() common.Frustum {
	vp := l.SpotViewProjection()
	return common.ExtractFrustumFromMatrix(vp[:])
}

func (l *lightImpl) SetPosition(x, y, z float32) {
	l.Drawable.SetTransform([3]float32{x, y, z}, [3]float32{}, [3]float32{1, 1, 1})
}

func (l *lightImpl) SetDirection(x, y, z float32) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.direction = common.Normalize3([3]float32{x, y, z})
}

func (l *lightImpl) SetColor(color common.Color) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.color = color
}

func (l *lightImpl) SetBrightness(brightness float32) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.brightness = brightness
}
