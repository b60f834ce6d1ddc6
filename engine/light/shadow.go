package light

// MaxCascades is the maximum number of directional shadow cascades.
const MaxCascades = 4

// DefaultConstantBias is the default constant depth bias of shadow maps.
const DefaultConstantBias float32 = 0.0002

// DefaultSlopeBias is the default slope-scaled depth bias of shadow maps.
const DefaultSlopeBias float32 = 0.5

// DefaultCascadeFadeStart is the default fraction of the last cascade distance at which
// directional shadows start to fade out.
const DefaultCascadeFadeStart float32 = 0.8

// ShadowBias holds the depth and normal offsets applied when sampling a shadow map.
type ShadowBias struct {
	Constant     float32
	Slope        float32
	NormalOffset float32
}

// ShadowCascade holds the far distances of the directional shadow cascades.
// Unused cascades are 0; a cascade with all splits 0 uses the renderer defaults.
type ShadowCascade struct {
	Splits    [MaxCascades]float32
	FadeStart float32
}

// NumSplits returns the number of leading non-zero splits.
//
// Returns:
//   - int: the number of cascades
func (c ShadowCascade) NumSplits() int {
	n := 0
	for _, s := range c.Splits {
		if s <= 0 {
			break
		}
		n++
	}
	return n
}

// ShadowDistance returns the far distance of the last cascade.
//
// Returns:
//   - float32: the shadow range covered by the cascades
func (c ShadowCascade) ShadowDistance() float32 {
	n := c.NumSplits()
	if n == 0 {
		return 0
	}
	return c.Splits[n-1]
}
