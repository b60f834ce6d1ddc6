package renderer

import (
	"fmt"

	"github.com/xgdwangdechao/rbfx/engine/model"
	"github.com/xgdwangdechao/rbfx/engine/renderer/material"
	"github.com/xgdwangdechao/rbfx/engine/renderer/pipeline"
)

type queueOp uint8

const (
	// opSetPipelineState: arg0 = index into pipelineStates
	opSetPipelineState queueOp = iota
	// opSetBuffers: arg0 = index into geometries
	opSetBuffers
	// opUploadParameters: arg0, arg1 = params range, arg2, arg3 = data range
	opUploadParameters
	// opBindResources: arg0, arg1 = resources range
	opBindResources
	// opDrawIndexed: indexStart, indexCount, baseVertex, instanceCount
	opDrawIndexed
)

type queueCommand struct {
	op    queueOp
	group ShaderParameterGroup
	args  [4]int
}

// QueueStats counts what was recorded into a DrawCommandQueue since the last Reset.
type QueueStats struct {
	Commands         int
	Draws            int
	PipelineChanges  int
	BufferChanges    int
	ParameterUploads int
	ResourceBinds    int
	SkippedGroups    int
}

// drawCommandQueue is the implementation of the DrawCommandQueue interface.
type drawCommandQueue struct {
	commands       []queueCommand
	pipelineStates []pipeline.PipelineState
	geometries     []model.Geometry
	params         []ShaderParameterDesc
	data           []float32
	resources      []ShaderResource

	openGroup   ShaderParameterGroup
	groupOpen   bool
	perInstance bool
	openSource  any
	paramStart  int
	dataStart   int
	resStart    int

	committed    [NumShaderParameterGroups]any
	hasCommitted [NumShaderParameterGroups]bool

	pipelineState pipeline.PipelineState
	geometry      model.Geometry

	stats QueueStats
}

// DrawCommandQueue records draw state changes, parameter uploads and draws into a flat
// command stream that Execute replays against a Backend in submission order.
//
// Recording contract: parameters and resources are only added between
// BeginShaderParameterGroup and CommitShaderParameterGroup; DrawIndexed requires a pipeline
// state and no open group. Violations panic.
type DrawCommandQueue interface {
	// Reset clears every recorded command and the committed group sources.
	Reset()

	// SetPipelineState records a pipeline state change. Repeating the current state is a no-op.
	//
	// Parameters:
	//   - state: the pipeline state
	SetPipelineState(state pipeline.PipelineState)

	// SetBuffers records a vertex and index buffer change. Repeating the current geometry is a no-op.
	//
	// Parameters:
	//   - geometry: the geometry
	SetBuffers(geometry model.Geometry)

	// BeginShaderParameterGroup opens a parameter group. If the group was last committed with
	// the same source, nothing needs uploading and false is returned; the caller then skips
	// adding parameters. Per-instance groups are always opened and never remembered.
	// source must be comparable; nil never matches.
	//
	// Parameters:
	//   - group: the parameter group
	//   - source: identity of the data about to be added
	//   - perInstance: true for data that changes with every draw
	//
	// Returns:
	//   - bool: true if the group was opened and parameters must be added
	BeginShaderParameterGroup(group ShaderParameterGroup, source any, perInstance bool) bool

	// AddShaderParameter appends a parameter to the open group. Values are packed into vec4
	// rows: scalars and vectors take one row, mat3x4 three and mat4 four.
	//
	// Parameters:
	//   - name: the parameter name
	//   - value: float32, [2|3|4]float32, common.Color, [12]float32 or [16]float32
	AddShaderParameter(name string, value any)

	// AddShaderResource appends a texture binding to the open group.
	//
	// Parameters:
	//   - resource: the texture binding
	AddShaderResource(resource ShaderResource)

	// CommitShaderParameterGroup closes the open group and records its upload.
	//
	// Parameters:
	//   - group: the group passed to BeginShaderParameterGroup
	CommitShaderParameterGroup(group ShaderParameterGroup)

	// DrawIndexed records an indexed draw with the current state.
	//
	// Parameters:
	//   - indexStart: the first index
	//   - indexCount: the number of indices
	//   - baseVertex: the value added to each index
	//   - instanceCount: the number of instances
	DrawIndexed(indexStart, indexCount, baseVertex, instanceCount int)

	// Execute replays the recorded commands in order.
	//
	// Parameters:
	//   - backend: the backend receiving the calls
	Execute(backend Backend)

	// Stats returns the recording counters.
	//
	// Returns:
	//   - QueueStats: the counters
	Stats() QueueStats
}

var _ DrawCommandQueue = &drawCommandQueue{}

// NewDrawCommandQueue creates an empty queue.
//
// Returns:
//   - DrawCommandQueue: the queue
func NewDrawCommandQueue() DrawCommandQueue {
	return &drawCommandQueue{}
}

func (q *drawCommandQueue) Reset() {
	q.commands = q.commands[:0]
	for i := range q.pipelineStates {
		q.pipelineStates[i] = nil
	}
	q.pipelineStates = q.pipelineStates[:0]
	for i := range q.geometries {
		q.geometries[i] = nil
	}
	q.geometries = q.geometries[:0]
	q.params = q.params[:0]
	q.data = q.data[:0]
	q.resources = q.resources[:0]

	q.groupOpen = false
	q.openSource = nil
	q.committed = [NumShaderParameterGroups]any{}
	q.hasCommitted = [NumShaderParameterGroups]bool{}
	q.pipelineState = nil
	q.geometry = nil
	q.stats = QueueStats{}
}

func (q *drawCommandQueue) push(cmd queueCommand) {
	q.commands = append(q.commands, cmd)
	q.stats.Commands++
}

func (q *drawCommandQueue) SetPipelineState(state pipeline.PipelineState) {
	if state == nil {
		panic("renderer: SetPipelineState called with a nil pipeline state")
	}
	if q.pipelineState != nil && q.pipelineState.ID() == state.ID() {
		return
	}
	q.pipelineState = state
	q.pipelineStates = append(q.pipelineStates, state)
	q.push(queueCommand{op: opSetPipelineState, args: [4]int{len(q.pipelineStates) - 1}})
	q.stats.PipelineChanges++
}

func (q *drawCommandQueue) SetBuffers(geometry model.Geometry) {
	if geometry == nil {
		panic("renderer: SetBuffers called with a nil geometry")
	}
	if q.geometry != nil && q.geometry.ID() == geometry.ID() {
		return
	}
	q.geometry = geometry
	q.geometries = append(q.geometries, geometry)
	q.push(queueCommand{op: opSetBuffers, args: [4]int{len(q.geometries) - 1}})
	q.stats.BufferChanges++
}

func (q *drawCommandQueue) BeginShaderParameterGroup(group ShaderParameterGroup, source any, perInstance bool) bool {
	if group < 0 || group >= NumShaderParameterGroups {
		panic(fmt.Sprintf("renderer: unknown shader parameter group %d", int(group)))
	}
	if q.groupOpen {
		panic(fmt.Sprintf("renderer: BeginShaderParameterGroup(%s) while group %s is not committed", group, q.openGroup))
	}
	if !perInstance && source != nil && q.hasCommitted[group] && q.committed[group] == source {
		q.stats.SkippedGroups++
		return false
	}
	q.groupOpen = true
	q.openGroup = group
	q.perInstance = perInstance
	q.openSource = source
	q.paramStart = len(q.params)
	q.dataStart = len(q.data)
	q.resStart = len(q.resources)
	return true
}

func (q *drawCommandQueue) AddShaderParameter(name string, value any) {
	if !q.groupOpen {
		panic(fmt.Sprintf("renderer: AddShaderParameter(%q) outside a parameter group", name))
	}
	floats := material.ParameterFloats(value)
	if floats == nil {
		panic(fmt.Sprintf("renderer: AddShaderParameter(%q) with unsupported type %T", name, value))
	}
	rows := (len(floats) + 3) / 4
	offset := len(q.data) - q.dataStart
	q.data = append(q.data, floats...)
	for i := len(floats); i < rows*4; i++ {
		q.data = append(q.data, 0)
	}
	q.params = append(q.params, ShaderParameterDesc{Name: name, Offset: offset, Size: rows * 4})
}

func (q *drawCommandQueue) AddShaderResource(resource ShaderResource) {
	if !q.groupOpen {
		panic(fmt.Sprintf("renderer: AddShaderResource(%q) outside a parameter group", resource.Unit))
	}
	q.resources = append(q.resources, resource)
}

func (q *drawCommandQueue) CommitShaderParameterGroup(group ShaderParameterGroup) {
	if !q.groupOpen || q.openGroup != group {
		panic(fmt.Sprintf("renderer: CommitShaderParameterGroup(%s) without a matching BeginShaderParameterGroup", group))
	}
	if len(q.params) > q.paramStart {
		q.push(queueCommand{
			op:    opUploadParameters,
			group: group,
			args:  [4]int{q.paramStart, len(q.params), q.dataStart, len(q.data)},
		})
		q.stats.ParameterUploads++
	}
	if len(q.resources) > q.resStart {
		q.push(queueCommand{
			op:    opBindResources,
			group: group,
			args:  [4]int{q.resStart, len(q.resources)},
		})
		q.stats.ResourceBinds++
	}

	if q.perInstance || q.openSource == nil {
		q.hasCommitted[group] = false
		q.committed[group] = nil
	} else {
		q.hasCommitted[group] = true
		q.committed[group] = q.openSource
	}
	q.groupOpen = false
	q.openSource = nil
}

func (q *drawCommandQueue) DrawIndexed(indexStart, indexCount, baseVertex, instanceCount int) {
	if q.pipelineState == nil {
		panic("renderer: DrawIndexed without a pipeline state")
	}
	if q.groupOpen {
		panic(fmt.Sprintf("renderer: DrawIndexed while group %s is not committed", q.openGroup))
	}
	if instanceCount < 1 {
		instanceCount = 1
	}
	q.push(queueCommand{op: opDrawIndexed, args: [4]int{indexStart, indexCount, baseVertex, instanceCount}})
	q.stats.Draws++
}

func (q *drawCommandQueue) Execute(backend Backend) {
	for _, cmd := range q.commands {
		switch cmd.op {
		case opSetPipelineState:
			backend.SetPipelineState(q.pipelineStates[cmd.args[0]])
		case opSetBuffers:
			backend.SetBuffers(q.geometries[cmd.args[0]])
		case opUploadParameters:
			backend.UploadShaderParameters(cmd.group, q.params[cmd.args[0]:cmd.args[1]], q.data[cmd.args[2]:cmd.args[3]])
		case opBindResources:
			backend.BindShaderResources(cmd.group, q.resources[cmd.args[0]:cmd.args[1]])
		case opDrawIndexed:
			backend.DrawIndexed(cmd.args[0], cmd.args[1], cmd.args[2], cmd.args[3])
		}
	}
}

func (q *drawCommandQueue) Stats() QueueStats {
	return q.stats
}
