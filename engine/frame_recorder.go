package engine

import (
	"fmt"

	"github.com/xgdwangdechao/rbfx/engine/batch"
	"github.com/xgdwangdechao/rbfx/engine/config"
	"github.com/xgdwangdechao/rbfx/engine/renderer"
	"github.com/xgdwangdechao/rbfx/engine/renderer/material"
	"github.com/xgdwangdechao/rbfx/engine/view"
)

// shadowMatrixNames are the light group parameters holding the split shadow matrices.
var shadowMatrixNames = [batch.MaxLightSplits]string{
	"ShadowMatrix0", "ShadowMatrix1", "ShadowMatrix2",
	"ShadowMatrix3", "ShadowMatrix4", "ShadowMatrix5",
}

// vertexLightNames are the object group parameters holding the per-vertex lights.
var vertexLightNames = [batch.MaxVertexLights]string{
	"VertexLight0", "VertexLight1", "VertexLight2", "VertexLight3",
}

// frameKey identifies the frame group source; it changes once per frame.
type frameKey struct {
	number uint32
}

// materialKey identifies the material group source. The hash changes with the parameters.
type materialKey struct {
	material material.Material
	hash     uint32
}

// recordStats sums the queue statistics of every pass recorded in a frame.
type recordStats struct {
	Draws            int
	ParameterUploads int
	SkippedGroups    int
}

func (s *recordStats) add(q renderer.QueueStats) {
	s.Draws += q.Draws
	s.ParameterUploads += q.ParameterUploads
	s.SkippedGroups += q.SkippedGroups
}

// frameRecorder turns the collected shadow and scene batches into draw command queues and
// executes them on the backend: shadow splits first, then every scene pass.
type frameRecorder struct {
	backend   renderer.Backend
	allocator renderer.ShadowMapAllocator
	collector batch.SceneBatchCollector
	zone      config.ZoneSettings
	queue     renderer.DrawCommandQueue
}

func newFrameRecorder(backend renderer.Backend, allocator renderer.ShadowMapAllocator, collector batch.SceneBatchCollector, settings config.Settings) *frameRecorder {
	return &frameRecorder{
		backend:   backend,
		allocator: allocator,
		collector: collector,
		zone:      settings.Zone,
		queue:     renderer.NewDrawCommandQueue(),
	}
}

func (r *frameRecorder) record(frame view.FrameInfo, passes []batch.ScenePassDescription) (recordStats, error) {
	var stats recordStats
	for _, split := range r.collector.ShadowSplits() {
		if len(split.Batches) == 0 || !split.ShadowMap.IsValid() {
			continue
		}
		if err := r.recordShadowSplit(frame, split); err != nil {
			return stats, err
		}
		stats.add(r.queue.Stats())
	}

	for _, pass := range passes {
		if err := r.recordScenePass(frame, pass.Name); err != nil {
			return stats, err
		}
		stats.add(r.queue.Stats())
	}
	return stats, nil
}

func (r *frameRecorder) recordShadowSplit(frame view.FrameInfo, split *batch.ShadowSplit) error {
	if err := r.allocator.BeginShadowMap(split.ShadowMap); err != nil {
		return fmt.Errorf("engine: shadow split of light %d: %w", split.LightIndex, err)
	}
	defer r.allocator.EndShadowMap()

	r.queue.Reset()
	var position [3]float32
	if sl := r.collector.VisibleLight(split.LightIndex); sl != nil {
		position = sl.Light().Position()
	}
	for i := range split.Batches {
		b := &split.Batches[i]
		if b.PipelineState == nil {
			continue
		}
		r.queue.SetPipelineState(b.PipelineState)
		r.queue.SetBuffers(b.Geometry)
		r.addFrameGroup(frame)
		if r.queue.BeginShaderParameterGroup(renderer.GroupCamera, split, false) {
			r.queue.AddShaderParameter("ViewProj", split.ViewProjection)
			r.queue.AddShaderParameter("CameraPos", [4]float32{position[0], position[1], position[2], 1})
			r.queue.AddShaderParameter("DepthParams", [4]float32{split.Near, split.Far, 0, 0})
			r.queue.CommitShaderParameterGroup(renderer.GroupCamera)
		}
		r.addObjectGroup(b)
		r.draw(b)
	}
	r.queue.Execute(r.backend)
	return nil
}

func (r *frameRecorder) recordScenePass(frame view.FrameInfo, name string) error {
	if err := r.backend.BeginScenePass(name); err != nil {
		return fmt.Errorf("engine: scene pass %q: %w", name, err)
	}
	defer r.backend.EndScenePass()

	r.queue.Reset()
	for _, batches := range [][]batch.SceneBatch{
		r.collector.GetSortedBaseBatches(name),
		r.collector.GetSortedLightBatches(name),
	} {
		for i := range batches {
			b := &batches[i]
			if b.PipelineState == nil {
				continue
			}
			r.queue.SetPipelineState(b.PipelineState)
			r.queue.SetBuffers(b.Geometry)
			r.addFrameGroup(frame)
			if r.queue.BeginShaderParameterGroup(renderer.GroupCamera, frame.Camera, false) {
				cam := frame.Camera
				pos := cam.Position()
				r.queue.AddShaderParameter("ViewProj", cam.ViewProjectionMatrix())
				r.queue.AddShaderParameter("CameraPos", [4]float32{pos[0], pos[1], pos[2], 1})
				r.queue.AddShaderParameter("DepthParams", [4]float32{cam.Near(), cam.Far(), 0, 0})
				r.queue.CommitShaderParameterGroup(renderer.GroupCamera)
			}
			r.addZoneGroup()
			r.addLightGroup(b.LightIndex)
			r.addMaterialGroup(b.Material)
			r.addObjectGroup(b)
			r.draw(b)
		}
	}
	r.queue.Execute(r.backend)
	return nil
}

func (r *frameRecorder) addFrameGroup(frame view.FrameInfo) {
	if r.queue.BeginShaderParameterGroup(renderer.GroupFrame, frameKey{number: frame.FrameNumber}, false) {
		r.queue.AddShaderParameter("FrameParams", [4]float32{frame.TimeStep, float32(frame.FrameNumber), 0, 0})
		r.queue.CommitShaderParameterGroup(renderer.GroupFrame)
	}
}

func (r *frameRecorder) addZoneGroup() {
	if !r.queue.BeginShaderParameterGroup(renderer.GroupZone, &r.zone, false) {
		return
	}
	fogRange := r.zone.FogEnd - r.zone.FogStart
	var fog [4]float32
	if fogRange > 0 {
		fog = [4]float32{r.zone.FogEnd / fogRange, 1 / fogRange, 0, 0}
	} else {
		// no fog
		fog = [4]float32{1, 0, 0, 0}
	}
	r.queue.AddShaderParameter("AmbientColor", r.zone.AmbientColor)
	r.queue.AddShaderParameter("FogColor", r.zone.FogColor)
	r.queue.AddShaderParameter("FogParams", fog)
	r.queue.CommitShaderParameterGroup(renderer.GroupZone)
}

func (r *frameRecorder) addLightGroup(lightIndex int) {
	if lightIndex == batch.NoLight {
		return
	}
	sl := r.collector.VisibleLight(lightIndex)
	if sl == nil || !r.queue.BeginShaderParameterGroup(renderer.GroupLight, sl, false) {
		return
	}
	p := sl.ShaderParameters()
	r.queue.AddShaderParameter("LightPos", [4]float32{p.Position[0], p.Position[1], p.Position[2], p.InvRange})
	r.queue.AddShaderParameter("LightDir", [4]float32{p.Direction[0], p.Direction[1], p.Direction[2], 0})
	r.queue.AddShaderParameter("LightColor", [4]float32{p.Color[0], p.Color[1], p.Color[2], p.SpecularIntensity})
	r.queue.AddShaderParameter("SpotParams", [4]float32{p.Cutoff, p.InvCutoff, 0, 0})
	for i, name := range shadowMatrixNames {
		r.queue.AddShaderParameter(name, p.ShadowMatrices[i])
	}
	r.queue.AddShaderParameter("ShadowDepthFade", p.ShadowDepthFade)
	r.queue.AddShaderParameter("ShadowIntensity", p.ShadowIntensity)
	r.queue.AddShaderParameter("ShadowParams", [4]float32{p.ShadowMapInvSize[0], p.ShadowMapInvSize[1], 0, 0})
	r.queue.AddShaderParameter("ShadowSplits", p.ShadowSplits)
	r.queue.AddShaderParameter("NormalOffsetScale", p.NormalOffsetScale)
	if sl.HasShadow() {
		if sm := sl.ShadowMap(); sm.IsValid() {
			r.queue.AddShaderResource(renderer.ShaderResource{
				Unit:  renderer.UnitShadowMap,
				Label: sm.Texture.Label,
				View:  sm.Texture.View,
			})
		}
	}
	r.queue.CommitShaderParameterGroup(renderer.GroupLight)
}

func (r *frameRecorder) addMaterialGroup(m material.Material) {
	if m == nil || !r.queue.BeginShaderParameterGroup(renderer.GroupMaterial, materialKey{material: m, hash: m.ShaderParameterHash()}, false) {
		return
	}
	for _, p := range m.ShaderParameters() {
		if material.ParameterFloats(p.Value) == nil {
			continue
		}
		r.queue.AddShaderParameter(p.Name, p.Value)
	}
	for _, t := range m.Textures() {
		r.queue.AddShaderResource(renderer.ShaderResource{
			Unit:    t.Unit,
			Label:   t.Texture.Label,
			View:    t.Texture.View,
			Sampler: t.Texture.Sampler,
		})
	}
	r.queue.CommitShaderParameterGroup(renderer.GroupMaterial)
}

func (r *frameRecorder) addObjectGroup(b *batch.SceneBatch) {
	source := b.SourceBatch()
	r.queue.BeginShaderParameterGroup(renderer.GroupObject, nil, true)
	r.queue.AddShaderParameter("Model", source.WorldTransform)
	for i, index := range b.VertexLights {
		var packed [12]float32
		if sl := r.collector.VisibleLight(index); sl != nil {
			p := sl.ShaderParameters()
			packed = [12]float32{
				p.Position[0], p.Position[1], p.Position[2], p.InvRange,
				p.Direction[0], p.Direction[1], p.Direction[2], 0,
				p.Color[0], p.Color[1], p.Color[2], p.SpecularIntensity,
			}
		}
		r.queue.AddShaderParameter(vertexLightNames[i], packed)
	}
	r.queue.CommitShaderParameterGroup(renderer.GroupObject)
}

func (r *frameRecorder) draw(b *batch.SceneBatch) {
	g := b.Geometry
	r.queue.DrawIndexed(g.IndexStart(), g.IndexCount(), g.BaseVertex(), b.SourceBatch().InstanceCount)
}
