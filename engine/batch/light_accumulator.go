package batch

import (
	"github.com/xgdwangdechao/rbfx/engine/config"
	"github.com/xgdwangdechao/rbfx/engine/light"
)

// MaxVertexLights is the number of per-vertex light slots of a drawable.
const MaxVertexLights = config.MaxVertexLights

type accumulatedLight struct {
	index      int
	penalty    float32
	importance light.Importance
}

// LightAccumulator ranks the lights affecting one drawable by penalty. Lower penalties
// contribute more; the main light carries a penalty of -LargeValue.
type LightAccumulator struct {
	lights []accumulatedLight
}

// Reset forgets every accumulated light.
func (a *LightAccumulator) Reset() {
	a.lights = a.lights[:0]
}

// Len returns the number of accumulated lights.
func (a *LightAccumulator) Len() int {
	return len(a.lights)
}

// Accumulate records a light. Lights stay ordered by penalty, ties by visible light index.
//
// Parameters:
//   - index: the visible light index
//   - importance: the light importance
//   - penalty: the ranking penalty
func (a *LightAccumulator) Accumulate(index int, importance light.Importance, penalty float32) {
	entry := accumulatedLight{index: index, penalty: penalty, importance: importance}
	pos := len(a.lights)
	for pos > 0 {
		prev := a.lights[pos-1]
		if prev.penalty < penalty || (prev.penalty == penalty && prev.index < index) {
			break
		}
		pos--
	}
	a.lights = append(a.lights, accumulatedLight{})
	copy(a.lights[pos+1:], a.lights[pos:])
	a.lights[pos] = entry
}

// PixelLights returns the lights rendered per pixel in penalty order. Important lights are
// always included; Auto lights fill the remaining slots up to maxPixelLights; NotImportant
// lights never are.
//
// Parameters:
//   - maxPixelLights: the soft limit of per-pixel lights
//
// Returns:
//   - []int: visible light indices
func (a *LightAccumulator) PixelLights(maxPixelLights int) []int {
	var out []int
	a.split(maxPixelLights, func(index int) { out = append(out, index) }, nil)
	return out
}

// VertexLights returns up to MaxVertexLights lights, in penalty order, that did not make it
// into the per-pixel set. The main light is never a vertex light.
//
// Parameters:
//   - maxPixelLights: the per-pixel limit used for the same drawable
//   - mainLight: the visible index of the main light, or NoLight
//
// Returns:
//   - [MaxVertexLights]int: visible light indices padded with NoLight
func (a *LightAccumulator) VertexLights(maxPixelLights, mainLight int) [MaxVertexLights]int {
	out := noVertexLights()
	n := 0
	a.split(maxPixelLights, nil, func(index int) {
		if index != mainLight && n < MaxVertexLights {
			out[n] = index
			n++
		}
	})
	return out
}

func (a *LightAccumulator) split(maxPixelLights int, pixel, vertex func(int)) {
	autoBudget := maxPixelLights
	for _, l := range a.lights {
		if l.importance == light.ImportanceImportant {
			autoBudget--
		}
	}

	for _, l := range a.lights {
		perPixel := false
		switch l.importance {
		case light.ImportanceImportant:
			perPixel = true
		case light.ImportanceAuto:
			if autoBudget > 0 {
				perPixel = true
				autoBudget--
			}
		}
		if perPixel {
			if pixel != nil {
				pixel(l.index)
			}
		} else if vertex != nil {
			vertex(l.index)
		}
	}
}
