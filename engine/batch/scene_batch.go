package batch

import (
	"sort"

	"github.com/xgdwangdechao/rbfx/engine/drawable"
	"github.com/xgdwangdechao/rbfx/engine/model"
	"github.com/xgdwangdechao/rbfx/engine/renderer/material"
	"github.com/xgdwangdechao/rbfx/engine/renderer/pipeline"
)

// NoLight marks a batch or vertex light slot that refers to no visible light.
const NoLight = -1

// SubPass identifies which sub-pass of a scene pass a batch is drawn in.
type SubPass int

const (
	SubPassUnlitBase SubPass = iota
	SubPassLitBase
	SubPassLight
	SubPassShadow
)

// String returns the sub-pass name.
func (s SubPass) String() string {
	switch s {
	case SubPassUnlitBase:
		return "unlitBase"
	case SubPassLitBase:
		return "litBase"
	case SubPassLight:
		return "light"
	case SubPassShadow:
		return "shadow"
	default:
		return "unknown"
	}
}

// SceneBatch is one source batch of a drawable bound to a material pass and pipeline state.
type SceneBatch struct {
	Drawable         drawable.Drawable
	DrawableIndex    int
	SourceBatchIndex int
	Geometry         model.Geometry
	Material         material.Material
	Pass             material.Pass
	PipelineState    pipeline.PipelineState
	// LightIndex is the visible light index the batch is lit by, or NoLight.
	LightIndex int
	// VertexLights are the visible light indices applied per vertex, NoLight padded.
	VertexLights [MaxVertexLights]int
}

// SourceBatch returns the drawable source batch the scene batch was created from.
func (b *SceneBatch) SourceBatch() drawable.SourceBatch {
	batches := b.Drawable.Batches()
	if b.SourceBatchIndex < 0 || b.SourceBatchIndex >= len(batches) {
		return drawable.SourceBatch{}
	}
	return batches[b.SourceBatchIndex]
}

// NumVertexLights returns the number of occupied vertex light slots.
func (b *SceneBatch) NumVertexLights() int {
	n := 0
	for _, index := range b.VertexLights {
		if index != NoLight {
			n++
		}
	}
	return n
}

func noVertexLights() [MaxVertexLights]int {
	var out [MaxVertexLights]int
	for i := range out {
		out[i] = NoLight
	}
	return out
}

// SortBatches orders batches by pipeline state, then material, then geometry. Equal keys keep
// their collection order.
//
// Parameters:
//   - batches: the batches to sort in place
func SortBatches(batches []SceneBatch) {
	sort.SliceStable(batches, func(i, j int) bool {
		return batchLess(&batches[i], &batches[j])
	})
}

func batchLess(a, b *SceneBatch) bool {
	if sa, sb := a.PipelineState.ID(), b.PipelineState.ID(); sa != sb {
		return sa < sb
	}
	if ma, mb := a.Material.ID(), b.Material.ID(); ma != mb {
		return ma < mb
	}
	return a.Geometry.ID() < b.Geometry.ID()
}

// compactBatches drops batches without a pipeline state, preserving order.
func compactBatches(batches []SceneBatch) []SceneBatch {
	out := batches[:0]
	for _, b := range batches {
		if b.PipelineState != nil {
			out = append(out, b)
		}
	}
	clear(batches[len(out):])
	return out
}
