package drawable

import (
	"sync"
	"sync/atomic"

	"github.com/xgdwangdechao/rbfx/common"
	"github.com/xgdwangdechao/rbfx/engine/model"
	"github.com/xgdwangdechao/rbfx/engine/renderer/material"
)

// Flags classify a drawable for spatial queries.
type Flags uint32

const (
	// FlagGeometry marks drawables that render geometry.
	FlagGeometry Flags = 1 << iota
	// FlagLight marks light sources.
	FlagLight
)

// drawableCount generates unique drawable ids.
var drawableCount atomic.Uint64

// SourceBatch is one geometry/material pair a drawable renders.
type SourceBatch struct {
	Geometry       model.Geometry
	Material       material.Material
	Distance       float32
	WorldTransform [16]float32
	InstanceCount  int
}

// UpdateContext carries the per-frame values a drawable needs to refresh its batches.
type UpdateContext struct {
	FrameNumber    uint32
	TimeStep       float32
	CameraPosition [3]float32
}

type drawable struct {
	mu *sync.RWMutex

	id      uint64
	index   atomic.Int64
	flags   Flags
	enabled atomic.Bool

	position, rotation, scale [3]float32
	transform                 [16]float32
	localBox                  common.BoundingBox
	worldBox                  common.BoundingBox
	explicitBounds            bool

	drawDistance   float32
	shadowDistance float32
	lodBias        float32
	distance       float32
	lodDistance    float32

	viewMask, lightMask, shadowMask uint32
	castShadows                     bool
	pipelineStateHash               uint32

	batches []SourceBatch
}

// Drawable defines the interface for a scene object that can be found by a spatial query
// and rendered through its source batches.
//
// Transform, bounds and batches are written by the application between frames. During a frame
// UpdateBatches is called at most once per drawable, possibly from a worker goroutine.
type Drawable interface {
	// ID returns the drawable's unique identifier.
	//
	// Returns:
	//   - uint64: the drawable ID
	ID() uint64

	// Index returns the dense index assigned by the scene, or -1 when not in a scene.
	//
	// Returns:
	//   - int: the index
	Index() int

	// SetIndex assigns the dense scene index.
	//
	// Parameters:
	//   - index: the index, or -1 to detach
	SetIndex(index int)

	// Flags returns the drawable classification.
	//
	// Returns:
	//   - Flags: the flags
	Flags() Flags

	// Enabled returns whether the drawable takes part in queries.
	//
	// Returns:
	//   - bool: true if enabled
	Enabled() bool

	// SetEnabled enables or disables the drawable.
	//
	// Parameters:
	//   - enabled: true to enable
	SetEnabled(enabled bool)

	// WorldBoundingBox returns the world-space bounding box.
	//
	// Returns:
	//   - common.BoundingBox: the bounds
	WorldBoundingBox() common.BoundingBox

	// WorldTransform returns the column-major world matrix.
	//
	// Returns:
	//   - [16]float32: the world transform
	WorldTransform() [16]float32

	// Position returns the world position.
	//
	// Returns:
	//   - [3]float32: the position
	Position() [3]float32

	// SetTransform sets position, Euler rotation (radians) and scale, and refreshes the world bounds.
	//
	// Parameters:
	//   - position: the world position
	//   - rotation: the rotation angles
	//   - scale: the scale factors
	SetTransform(position, rotation, scale [3]float32)

	// SetBoundingBox overrides the local bounding box derived from the batch geometries.
	//
	// Parameters:
	//   - box: the local-space bounds
	SetBoundingBox(box common.BoundingBox)

	// DrawDistance returns the maximum camera distance at which the drawable is rendered; 0 is unlimited.
	//
	// Returns:
	//   - float32: the draw distance
	DrawDistance() float32

	// ShadowDistance returns the maximum distance at which the drawable casts shadows; 0 is unlimited.
	//
	// Returns:
	//   - float32: the shadow distance
	ShadowDistance() float32

	// Distance returns the camera distance computed by the last UpdateBatches.
	//
	// Returns:
	//   - float32: the distance
	Distance() float32

	// LodDistance returns the LOD distance computed by the last UpdateBatches.
	//
	// Returns:
	//   - float32: the LOD distance
	LodDistance() float32

	// ViewMask returns the mask tested against the camera view mask.
	ViewMask() uint32

	// LightMask returns the mask tested against the light mask of lights.
	LightMask() uint32

	// ShadowMask returns the mask tested against the light mask when collecting shadow casters.
	ShadowMask() uint32

	// CastShadows returns whether the drawable is rendered into shadow maps.
	CastShadows() bool

	// SetCastShadows toggles shadow casting.
	SetCastShadows(enabled bool)

	// Batches returns the source batches.
	//
	// Returns:
	//   - []SourceBatch: the batches
	Batches() []SourceBatch

	// AddBatch appends a source batch. A nil material selects the default material at collection time.
	//
	// Parameters:
	//   - geometry: the geometry to draw
	//   - mat: the material, or nil
	AddBatch(geometry model.Geometry, mat material.Material)

	// UpdateBatches refreshes camera distance, LOD distance and per-batch transform and distance.
	//
	// Parameters:
	//   - ctx: the frame update context
	UpdateBatches(ctx UpdateContext)

	// PipelineStateHash returns a hash of drawable state that affects pipeline state.
	//
	// Returns:
	//   - uint32: the hash
	PipelineStateHash() uint32
}

var _ Drawable = &drawable{}

// NewDrawable creates a new Drawable configured with the provided options.
// Defaults: geometry flag, identity transform, all masks set, shadow casting off.
//
// Parameters:
//   - options: variadic list of DrawableBuilderOption functions
//
// Returns:
//   - Drawable: a new Drawable instance
func NewDrawable(options ...DrawableBuilderOption) Drawable {
	d := &drawable{
		mu:         &sync.RWMutex{},
		id:         drawableCount.Add(1),
		flags:      FlagGeometry,
		scale:      [3]float32{1, 1, 1},
		localBox:   common.EmptyBoundingBox(),
		viewMask:   0xffffffff,
		lightMask:  0xffffffff,
		shadowMask: 0xffffffff,
		lodBias:    1,
	}
	d.index.Store(-1)
	d.enabled.Store(true)
	for _, opt := range options {
		opt(d)
	}
	d.refreshTransform()
	return d
}

// refreshTransform rebuilds the world matrix and bounds; callers hold mu for writing or own d exclusively.
func (d *drawable) refreshTransform() {
	common.BuildModelMatrix(d.transform[:], d.position, d.rotation, d.scale)
	if !d.explicitBounds {
		box := common.EmptyBoundingBox()
		for _, b := range d.batches {
			if b.Geometry != nil {
				box = box.Merge(b.Geometry.BoundingBox())
			}
		}
		d.localBox = box
	}
	d.worldBox = d.localBox.Transformed(d.transform[:])
	for i := range d.batches {
		d.batches[i].WorldTransform = d.transform
	}
}

func (d *drawable) ID() uint64 {
	return d.id
}

func (d *drawable) Index() int {
	return int(d.index.Load())
}

func (d *drawable) SetIndex(index int) {
	d.index.Store(int64(index))
}

func (d *drawable) Flags() Flags {
	return d.flags
}

func (d *drawable) Enabled() bool {
	return d.enabled.Load()
}

func (d *drawable) SetEnabled(enabled bool) {
	d.enabled.Store(enabled)
}

func (d *drawable) WorldBoundingBox() common.BoundingBox {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.worldBox
}

func (d *drawable) WorldTransform() [16]float32 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.transform
}

func (d *drawable) Position() [3]float32 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.position
}

func (d *drawable) SetTransform(position, rotation, scale [3]float32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.position, d.rotation, d.scale = position, rotation, scale
	d.refreshTransform()
}

func (d *drawable) SetBoundingBox(box common.BoundingBox) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.localBox = box
	d.explicitBounds = true
	d.refreshTransform()
}

func (d *drawable) DrawDistance() float32 {
	return d.drawDistance
}

func (d *drawable) ShadowDistance() float32 {
	return d.shadowDistance
}

func (d *drawable) Distance() float32 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.distance
}

func (d *drawable) LodDistance() float32 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.lodDistance
}

func (d *drawable) ViewMask() uint32 {
	return d.viewMask
}

func (d *drawable) LightMask() uint32 {
	return d.lightMask
}

func (d *drawable) ShadowMask() uint32 {
	return d.shadowMask
}

func (d *drawable) CastShadows() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.castShadows
}

func (d *drawable) SetCastShadows(enabled bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.castShadows = enabled
}

func (d *drawable) Batches() []SourceBatch {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.batches
}

func (d *drawable) AddBatch(geometry model.Geometry, mat material.Material) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.batches = append(d.batches, SourceBatch{
		Geometry:      geometry,
		Material:      mat,
		InstanceCount: 1,
	})
	d.refreshTransform()
}

func (d *drawable) UpdateBatches(ctx UpdateContext) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.distance = common.Length3(common.Sub3(d.worldBox.Center(), ctx.CameraPosition))
	d.lodDistance = d.distance * d.lodBias
	for i := range d.batches {
		d.batches[i].Distance = d.distance
		d.batches[i].WorldTransform = d.transform
	}
}

func (d *drawable) PipelineStateHash() uint32 {
	return d.pipelineStateHash
}
