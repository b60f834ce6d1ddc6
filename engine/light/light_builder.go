package light

import (
	"github.com/xgdwangdechao/rbfx/common"
	"github.com/xgdwangdechao/rbfx/engine/drawable"
)

// LightBuilderOption is a function that configures a Light instance during construction.
type LightBuilderOption func(*lightImpl)

// WithPosition is an option builder that sets the world-space position of the light.
//
// Parameters:
//   - x: the x position component
//   - y: the y position component
//   - z: the z position component
//
// Returns:
//   - LightBuilderOption: a function that applies the position option to a lightImpl
func WithPosition(x, y, z float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.drawableOpts = append(l.drawableOpts, drawable.WithPosition(x, y, z))
	}
}

// WithDirection is an option builder that sets the direction of the light.
// The direction is normalized before storing.
//
// Parameters:
//   - x: the x direction component
//   - y: the y direction component
//   - z: the z direction component
//
// Returns:
//   - LightBuilderOption: a function that applies the direction option to a lightImpl
func WithDirection(x, y, z float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.direction = common.Normalize3([3]float32{x, y, z})
	}
}

// WithColor is an option builder that sets the RGB color of the light.
//
// Parameters:
//   - r: the red color component
//   - g: the green color component
//   - b: the blue color component
//
// Returns:
//   - LightBuilderOption: a function that applies the color option to a lightImpl
func WithColor(r, g, b float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.color = common.Color{R: r, G: g, B: b, A: 1}
	}
}

// WithBrightness is an option builder that sets the scalar brightness multiplier.
//
// Parameters:
//   - brightness: the brightness value
//
// Returns:
//   - LightBuilderOption: a function that applies the brightness option to a lightImpl
func WithBrightness(brightness float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.brightness = brightness
	}
}

// WithRange is an option builder that sets the attenuation range of point and spot lights.
//
// Parameters:
//   - lightRange: the range in world units
//
// Returns:
//   - LightBuilderOption: a function that applies the range option to a lightImpl
func WithRange(lightRange float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.lightRange = lightRange
	}
}

// WithFov is an option builder that sets the spot cone angle in degrees.
//
// Parameters:
//   - fov: the full cone angle
//
// Returns:
//   - LightBuilderOption: a function that applies the fov option to a lightImpl
func WithFov(fov float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.fov = fov
	}
}

// WithImportance is an option builder that sets the lighting importance.
func WithImportance(importance Importance) LightBuilderOption {
	return func(l *lightImpl) {
		l.importance = importance
	}
}

// WithBaked is an option builder that marks the light as baked, excluding it from realtime lighting.
func WithBaked(baked bool) LightBuilderOption {
	return func(l *lightImpl) {
		l.baked = baked
	}
}

// WithCastShadows is an option builder that toggles shadow casting.
func WithCastShadows(enabled bool) LightBuilderOption {
	return func(l *lightImpl) {
		l.drawableOpts = append(l.drawableOpts, drawable.WithCastShadows(enabled))
	}
}

// WithShadowIntensity is an option builder that sets the shadow darkness (0 = fully dark).
func WithShadowIntensity(intensity float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.shadowIntensity = intensity
	}
}

// WithShadowDistance is an option builder that sets the shadow distance and the fade start.
//
// Parameters:
//   - distance: the distance beyond which no shadow is rendered; 0 is unlimited
//   - fadeDistance: the distance at which the shadow starts to fade
//
// Returns:
//   - LightBuilderOption: a function that applies the shadow distance option to a lightImpl
func WithShadowDistance(distance, fadeDistance float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.shadowDistance = distance
		l.shadowFadeDistance = fadeDistance
		l.drawableOpts = append(l.drawableOpts, drawable.WithShadowDistance(distance))
	}
}

// WithDrawDistance is an option builder that sets the distance beyond which the light is ignored
// and the distance at which it starts to fade.
//
// Parameters:
//   - distance: the draw distance; 0 is unlimited
//   - fadeDistance: the fade start distance; 0 disables fading
//
// Returns:
//   - LightBuilderOption: a function that applies the draw distance option to a lightImpl
func WithDrawDistance(distance, fadeDistance float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.fadeDistance = fadeDistance
		l.drawableOpts = append(l.drawableOpts, drawable.WithDrawDistance(distance))
	}
}

// WithSpecularIntensity is an option builder that sets the specular multiplier.
func WithSpecularIntensity(intensity float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.specularIntensity = intensity
	}
}

// WithShadowBias is an option builder that sets the shadow bias.
func WithShadowBias(bias ShadowBias) LightBuilderOption {
	return func(l *lightImpl) {
		l.bias = bias
	}
}

// WithShadowCascade is an option builder that sets the directional cascade split distances.
//
// Parameters:
//   - fadeStart: fraction of the last split at which shadows start to fade
//   - splits: up to MaxCascades increasing far distances
//
// Returns:
//   - LightBuilderOption: a function that applies the cascade option to a lightImpl
func WithShadowCascade(fadeStart float32, splits ...float32) LightBuilderOption {
	return func(l *lightImpl) {
		var c ShadowCascade
		c.FadeStart = fadeStart
		for i := 0; i < len(splits) && i < MaxCascades; i++ {
			c.Splits[i] = splits[i]
		}
		l.cascade = c
	}
}

// WithShapeTexture is an option builder that marks the light as projecting a shape texture.
func WithShapeTexture(enabled bool) LightBuilderOption {
	return func(l *lightImpl) {
		l.shapeTexture = enabled
	}
}

// WithLightMask is an option builder that sets the light mask matched against drawable light
// and shadow masks.
func WithLightMask(mask uint32) LightBuilderOption {
	return func(l *lightImpl) {
		l.drawableOpts = append(l.drawableOpts, drawable.WithMasks(0xffffffff, mask, mask))
	}
}
