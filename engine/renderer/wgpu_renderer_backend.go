package renderer

import (
	"errors"
	"fmt"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/xgdwangdechao/rbfx/common"
	"github.com/xgdwangdechao/rbfx/engine/logger"
	"github.com/xgdwangdechao/rbfx/engine/model"
	"github.com/xgdwangdechao/rbfx/engine/renderer/bind_group_provider"
	"github.com/xgdwangdechao/rbfx/engine/renderer/pipeline"
	"github.com/xgdwangdechao/rbfx/engine/renderer/shader"
)

// Texture units recognised by the wgpu backend.
const (
	// UnitShadowMap is the shadow atlas bound in the light group.
	UnitShadowMap = "ShadowMap"
	// UnitDiffuse is the diffuse texture bound in the material group.
	UnitDiffuse = "Diffuse"
)

// Bind group indices of the fixed pipeline layout.
const (
	bindGroupView     uint32 = 0 // frame, camera, zone uniforms at bindings 0..2
	bindGroupLight    uint32 = 1 // light uniform, shadow atlas, comparison sampler
	bindGroupMaterial uint32 = 2 // material uniform, diffuse texture, filtering sampler
	bindGroupObject   uint32 = 3 // object uniform
	numBindGroups            = 4
)

const uniformAlignment = 256

// groupBinding maps a parameter group to its bind group index and uniform binding.
func groupBinding(group ShaderParameterGroup) (uint32, int) {
	switch group {
	case GroupFrame:
		return bindGroupView, 0
	case GroupCamera:
		return bindGroupView, 1
	case GroupZone:
		return bindGroupView, 2
	case GroupLight:
		return bindGroupLight, 0
	case GroupMaterial:
		return bindGroupMaterial, 0
	default:
		return bindGroupObject, 0
	}
}

// wgpuBackend is the implementation of the WGPUBackend interface.
type wgpuBackend struct {
	mu *sync.Mutex

	device *wgpu.Device
	queue  *wgpu.Queue
	caps   Capabilities

	targetSize common.IntSize
	clearColor wgpu.Color
	colorView  *wgpu.TextureView
	depthView  *wgpu.TextureView
	resolve    *wgpu.TextureView
	owned      []*wgpu.Texture
	ownedViews []*wgpu.TextureView

	layouts        [numBindGroups]*wgpu.BindGroupLayout
	pipelineLayout *wgpu.PipelineLayout
	providers      [numBindGroups]bind_group_provider.BindGroupProvider

	defaultUniform    *wgpu.Buffer
	defaultDepth      *wgpu.Texture
	defaultDepthView  *wgpu.TextureView
	defaultColor      *wgpu.Texture
	defaultColorView  *wgpu.TextureView
	comparisonSampler *wgpu.Sampler
	filteringSampler  *wgpu.Sampler

	modules     map[string]*wgpu.ShaderModule
	uniformPool map[uint64][]*wgpu.Buffer
	poolCursor  map[uint64]int
	bindGroups  []*wgpu.BindGroup

	textures      map[uint32]*wgpu.Texture
	nextTextureID uint32

	encoder      *wgpu.CommandEncoder
	pass         *wgpu.RenderPassEncoder
	scenePasses  int
	shadowTarget bool
}

// WGPUBackend is the Backend that records frames into WebGPU command encoders.
type WGPUBackend interface {
	Backend

	// SetSceneTarget replaces the color and depth attachments of scene passes, for example
	// with the current swapchain view.
	//
	// Parameters:
	//   - color: the color attachment
	//   - depth: the depth attachment
	SetSceneTarget(color, depth *wgpu.TextureView)

	// Release frees every GPU object owned by the backend.
	Release()
}

var _ WGPUBackend = &wgpuBackend{}

// NewWGPUBackend creates a backend on an existing device. Unless WithSceneTarget is given,
// an offscreen color and depth target of the configured size is created.
//
// Parameters:
//   - device: the WebGPU device
//   - options: functional options
//
// Returns:
//   - WGPUBackend: the backend
//   - error: an error if a fixed GPU object could not be created
func NewWGPUBackend(device *wgpu.Device, options ...WGPUBackendOption) (WGPUBackend, error) {
	if device == nil {
		return nil, errors.New("wgpu backend requires a device")
	}
	b := &wgpuBackend{
		mu:     &sync.Mutex{},
		device: device,
		queue:  device.GetQueue(),
		caps: Capabilities{
			DirectionalShadows: true,
			SpotShadows:        true,
			PointShadows:       true,
			MaxTextureSize:     8192,
			ColorFormat:        wgpu.TextureFormatBGRA8Unorm,
			DepthFormat:        wgpu.TextureFormatDepth32Float,
			ShadowFormat:       wgpu.TextureFormatDepth32Float,
			SampleCount:        MSAAOff,
		},
		targetSize:  common.IntSize{Width: 1280, Height: 720},
		clearColor:  wgpu.Color{R: 0, G: 0, B: 0, A: 1},
		modules:     make(map[string]*wgpu.ShaderModule),
		uniformPool: make(map[uint64][]*wgpu.Buffer),
		poolCursor:  make(map[uint64]int),
		textures:    make(map[uint32]*wgpu.Texture),
	}
	for _, opt := range options {
		opt(b)
	}

	if err := b.initLayouts(); err != nil {
		b.Release()
		return nil, err
	}
	if err := b.initDefaults(); err != nil {
		b.Release()
		return nil, err
	}
	if b.colorView == nil {
		if err := b.initSceneTarget(); err != nil {
			b.Release()
			return nil, err
		}
	}
	logger.Logger().Info("wgpu backend initialized", "width", b.targetSize.Width, "height", b.targetSize.Height, "samples", b.caps.SampleCount)
	return b, nil
}

func (b *wgpuBackend) initLayouts() error {
	uniform := func(binding uint32) wgpu.BindGroupLayoutEntry {
		var e wgpu.BindGroupLayoutEntry
		e.Binding = binding
		e.Visibility = wgpu.ShaderStageVertex | wgpu.ShaderStageFragment
		e.Buffer.Type = wgpu.BufferBindingTypeUniform
		return e
	}
	texture := func(binding uint32, sampleType wgpu.TextureSampleType) wgpu.BindGroupLayoutEntry {
		var e wgpu.BindGroupLayoutEntry
		e.Binding = binding
		e.Visibility = wgpu.ShaderStageFragment
		e.Texture.SampleType = sampleType
		e.Texture.ViewDimension = wgpu.TextureViewDimension2D
		return e
	}
	sampler := func(binding uint32, samplerType wgpu.SamplerBindingType) wgpu.BindGroupLayoutEntry {
		var e wgpu.BindGroupLayoutEntry
		e.Binding = binding
		e.Visibility = wgpu.ShaderStageFragment
		e.Sampler.Type = samplerType
		return e
	}

	descs := [numBindGroups]wgpu.BindGroupLayoutDescriptor{
		{Label: "View Bind Group Layout", Entries: []wgpu.BindGroupLayoutEntry{uniform(0), uniform(1), uniform(2)}},
		{Label: "Light Bind Group Layout", Entries: []wgpu.BindGroupLayoutEntry{
			uniform(0),
			texture(1, wgpu.TextureSampleTypeDepth),
			sampler(2, wgpu.SamplerBindingTypeComparison),
		}},
		{Label: "Material Bind Group Layout", Entries: []wgpu.BindGroupLayoutEntry{
			uniform(0),
			texture(1, wgpu.TextureSampleTypeFloat),
			sampler(2, wgpu.SamplerBindingTypeFiltering),
		}},
		{Label: "Object Bind Group Layout", Entries: []wgpu.BindGroupLayoutEntry{uniform(0)}},
	}
	for i := range descs {
		layout, err := b.device.CreateBindGroupLayout(&descs[i])
		if err != nil {
			return fmt.Errorf("failed to create bind group layout for group %d: %w", i, err)
		}
		b.layouts[i] = layout
	}

	layout, err := b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "Scene Pipeline Layout",
		BindGroupLayouts: b.layouts[:],
	})
	if err != nil {
		return fmt.Errorf("failed to create pipeline layout: %w", err)
	}
	b.pipelineLayout = layout
	return nil
}

// initDefaults creates the placeholder resources bound until real ones are provided.
func (b *wgpuBackend) initDefaults() error {
	buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Default Uniform Buffer",
		Size:  uniformAlignment,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("failed to create default uniform buffer: %w", err)
	}
	b.defaultUniform = buf

	b.defaultDepth, b.defaultDepthView, err = b.createTexture("Default Shadow Texture", 1, 1, b.caps.ShadowFormat,
		wgpu.TextureUsageRenderAttachment|wgpu.TextureUsageTextureBinding, 1)
	if err != nil {
		return err
	}
	b.defaultColor, b.defaultColorView, err = b.createTexture("Default Diffuse Texture", 1, 1, wgpu.TextureFormatRGBA8Unorm,
		wgpu.TextureUsageTextureBinding|wgpu.TextureUsageCopyDst, 1)
	if err != nil {
		return err
	}
	b.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  b.defaultColor,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		[]byte{255, 255, 255, 255},
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  4,
			RowsPerImage: 1,
		},
		&wgpu.Extent3D{Width: 1, Height: 1, DepthOrArrayLayers: 1},
	)

	b.comparisonSampler, err = b.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         "Shadow Comparison Sampler",
		AddressModeU:  wgpu.AddressModeClampToEdge,
		AddressModeV:  wgpu.AddressModeClampToEdge,
		AddressModeW:  wgpu.AddressModeClampToEdge,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeNearest,
		Compare:       wgpu.CompareFunctionLess,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return fmt.Errorf("failed to create comparison sampler: %w", err)
	}
	b.filteringSampler, err = b.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         "Default Filtering Sampler",
		AddressModeU:  wgpu.AddressModeRepeat,
		AddressModeV:  wgpu.AddressModeRepeat,
		AddressModeW:  wgpu.AddressModeRepeat,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeLinear,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return fmt.Errorf("failed to create filtering sampler: %w", err)
	}

	b.providers[bindGroupView] = bind_group_provider.NewBindGroupProvider("View Bind Group", bindGroupView,
		bind_group_provider.WithBindGroupLayout(b.layouts[bindGroupView]),
		bind_group_provider.WithUniformBuffer(0, b.defaultUniform),
		bind_group_provider.WithUniformBuffer(1, b.defaultUniform),
		bind_group_provider.WithUniformBuffer(2, b.defaultUniform),
	)
	b.providers[bindGroupLight] = bind_group_provider.NewBindGroupProvider("Light Bind Group", bindGroupLight,
		bind_group_provider.WithBindGroupLayout(b.layouts[bindGroupLight]),
		bind_group_provider.WithUniformBuffer(0, b.defaultUniform),
		bind_group_provider.WithSampledTexture(1, 2, b.defaultDepthView, b.comparisonSampler),
	)
	b.providers[bindGroupMaterial] = bind_group_provider.NewBindGroupProvider("Material Bind Group", bindGroupMaterial,
		bind_group_provider.WithBindGroupLayout(b.layouts[bindGroupMaterial]),
		bind_group_provider.WithUniformBuffer(0, b.defaultUniform),
		bind_group_provider.WithSampledTexture(1, 2, b.defaultColorView, b.filteringSampler),
	)
	b.providers[bindGroupObject] = bind_group_provider.NewBindGroupProvider("Object Bind Group", bindGroupObject,
		bind_group_provider.WithBindGroupLayout(b.layouts[bindGroupObject]),
		bind_group_provider.WithUniformBuffer(0, b.defaultUniform),
	)
	return nil
}

func (b *wgpuBackend) initSceneTarget() error {
	w, h := b.targetSize.Width, b.targetSize.Height
	samples := uint32(b.caps.SampleCount)

	color, colorView, err := b.createTexture("Scene Color Target", w, h, b.caps.ColorFormat,
		wgpu.TextureUsageRenderAttachment|wgpu.TextureUsageCopySrc|wgpu.TextureUsageTextureBinding, 1)
	if err != nil {
		return err
	}
	b.owned = append(b.owned, color)
	b.ownedViews = append(b.ownedViews, colorView)
	b.colorView = colorView

	// When MSAA is enabled the multisampled texture is rendered into and resolved into the
	// single-sample target.
	if samples > 1 {
		msaa, msaaView, err := b.createTexture("Scene MSAA Target", w, h, b.caps.ColorFormat,
			wgpu.TextureUsageRenderAttachment, samples)
		if err != nil {
			return err
		}
		b.owned = append(b.owned, msaa)
		b.ownedViews = append(b.ownedViews, msaaView)
		b.resolve = colorView
		b.colorView = msaaView
	}

	depth, depthView, err := b.createTexture("Scene Depth Target", w, h, b.caps.DepthFormat,
		wgpu.TextureUsageRenderAttachment, samples)
	if err != nil {
		return err
	}
	b.owned = append(b.owned, depth)
	b.ownedViews = append(b.ownedViews, depthView)
	b.depthView = depthView
	return nil
}

func (b *wgpuBackend) createTexture(label string, width, height int, format wgpu.TextureFormat, usage wgpu.TextureUsage, samples uint32) (*wgpu.Texture, *wgpu.TextureView, error) {
	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: label,
		Size: wgpu.Extent3D{
			Width:              uint32(width),
			Height:             uint32(height),
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   samples,
		Dimension:     wgpu.TextureDimension2D,
		Format:        format,
		Usage:         usage,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create texture %q: %w", label, err)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, nil, fmt.Errorf("failed to create view of texture %q: %w", label, err)
	}
	return tex, view, nil
}

func (b *wgpuBackend) Capabilities() Capabilities {
	return b.caps
}

func (b *wgpuBackend) SetSceneTarget(color, depth *wgpu.TextureView) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.colorView = color
	b.depthView = depth
	b.resolve = nil
}

func (b *wgpuBackend) shaderModule(s shader.Shader) (*wgpu.ShaderModule, error) {
	if m, ok := b.modules[s.Key()]; ok {
		return m, nil
	}
	m, err := b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: s.Key(),
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: s.Source(),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create %s shader module %q: %w", s.Type(), s.Key(), err)
	}
	b.modules[s.Key()] = m
	return m, nil
}

func (b *wgpuBackend) RegisterPipelineState(state pipeline.PipelineState) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	desc := state.Desc()
	vs, err := b.shaderModule(desc.VertexShader)
	if err != nil {
		return err
	}
	fs, err := b.shaderModule(desc.FragmentShader)
	if err != nil {
		return err
	}

	layout, ok := model.LookupVertexLayout(desc.VertexLayoutHash)
	if !ok {
		layout = model.StaticVertexLayout()
	}

	var targets []wgpu.ColorTargetState
	if desc.ColorFormat != wgpu.TextureFormatUndefined {
		targets = []wgpu.ColorTargetState{{
			Format:    desc.ColorFormat,
			WriteMask: desc.ColorWriteMask,
			Blend:     desc.BlendMode.State(),
		}}
	}

	primitive := wgpu.PrimitiveState{
		Topology:  desc.Topology,
		FrontFace: desc.FrontFace,
		CullMode:  desc.CullMode,
	}
	if desc.Topology == wgpu.PrimitiveTopologyTriangleStrip || desc.Topology == wgpu.PrimitiveTopologyLineStrip {
		primitive.StripIndexFormat = desc.IndexFormat
	}

	stencil := wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways}
	var readMask, writeMask uint32
	if desc.Stencil.Enabled {
		stencil = wgpu.StencilFaceState{
			Compare:     desc.Stencil.Compare,
			FailOp:      desc.Stencil.Fail,
			DepthFailOp: desc.Stencil.DepthFail,
			PassOp:      desc.Stencil.Pass,
		}
		readMask, writeMask = desc.Stencil.ReadMask, desc.Stencil.WriteMask
	}

	created, err := b.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  fmt.Sprintf("%s #%d", desc.Label, state.ID()),
		Layout: b.pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     vs,
			EntryPoint: desc.VertexShader.EntryPoint(),
			Buffers:    []wgpu.VertexBufferLayout{layout},
		},
		Fragment: &wgpu.FragmentState{
			Module:     fs,
			EntryPoint: desc.FragmentShader.EntryPoint(),
			Targets:    targets,
		},
		Primitive: primitive,
		Multisample: wgpu.MultisampleState{
			Count:                  desc.SampleCount,
			Mask:                   0xFFFFFFFF,
			AlphaToCoverageEnabled: desc.AlphaToCoverage,
		},
		DepthStencil: &wgpu.DepthStencilState{
			Format:              desc.DepthFormat,
			DepthWriteEnabled:   desc.DepthWrite,
			DepthCompare:        desc.DepthCompare,
			StencilFront:        stencil,
			StencilBack:         stencil,
			StencilReadMask:     readMask,
			StencilWriteMask:    writeMask,
			DepthBias:           desc.DepthBias,
			DepthBiasSlopeScale: desc.DepthBiasSlopeScale,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create render pipeline: %w", err)
	}
	state.SetRenderPipeline(created)
	return nil
}

func (b *wgpuBackend) BeginFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.encoder != nil {
		return errors.New("wgpu backend: BeginFrame called twice")
	}
	for _, bg := range b.bindGroups {
		bg.Release()
	}
	b.bindGroups = b.bindGroups[:0]
	for size := range b.poolCursor {
		b.poolCursor[size] = 0
	}

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("failed to create command encoder: %w", err)
	}
	b.encoder = encoder
	b.scenePasses = 0
	return nil
}

func (b *wgpuBackend) EndFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.encoder == nil {
		return errors.New("wgpu backend: EndFrame without BeginFrame")
	}
	if b.pass != nil {
		b.pass.End()
		b.pass = nil
	}
	commandBuffer, err := b.encoder.Finish(nil)
	b.encoder.Release()
	b.encoder = nil
	if err != nil {
		return fmt.Errorf("failed to finish command encoder: %w", err)
	}
	b.queue.Submit(commandBuffer)
	commandBuffer.Release()
	return nil
}

func (b *wgpuBackend) CreateShadowTexture(label string, size int) (*RenderTexture, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	tex, view, err := b.createTexture(label, size, size, b.caps.ShadowFormat,
		wgpu.TextureUsageRenderAttachment|wgpu.TextureUsageTextureBinding, 1)
	if err != nil {
		return nil, err
	}
	b.nextTextureID++
	b.textures[b.nextTextureID] = tex
	return &RenderTexture{
		ID:      b.nextTextureID,
		Label:   label,
		Size:    common.IntSize{Width: size, Height: size},
		Format:  b.caps.ShadowFormat,
		Texture: tex,
		View:    view,
	}, nil
}

func (b *wgpuBackend) ReleaseTexture(tex *RenderTexture) {
	if tex == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if tex.View != nil {
		tex.View.Release()
	}
	if t, ok := b.textures[tex.ID]; ok {
		t.Release()
		delete(b.textures, tex.ID)
	}
}

func (b *wgpuBackend) BeginShadowPass(tex *RenderTexture, viewport common.IntRect, clear bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.encoder == nil {
		return errors.New("wgpu backend: BeginShadowPass outside a frame")
	}
	if b.pass != nil {
		return errors.New("wgpu backend: BeginShadowPass while a pass is open")
	}
	loadOp := wgpu.LoadOpLoad
	if clear {
		loadOp = wgpu.LoadOpClear
	}
	// No color attachments: depth-only pass
	b.pass = b.encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: tex.Label,
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            tex.View,
			DepthLoadOp:     loadOp,
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: 1.0,
		},
	})
	b.pass.SetViewport(float32(viewport.Left), float32(viewport.Top), float32(viewport.Width()), float32(viewport.Height()), 0, 1)
	b.pass.SetScissorRect(uint32(viewport.Left), uint32(viewport.Top), uint32(viewport.Width()), uint32(viewport.Height()))
	b.providers[bindGroupLight].SetTextureView(1, b.defaultDepthView)
	b.shadowTarget = true
	return nil
}

func (b *wgpuBackend) EndShadowPass() {
	b.endPass()
}

func (b *wgpuBackend) BeginScenePass(name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.encoder == nil {
		return errors.New("wgpu backend: BeginScenePass outside a frame")
	}
	if b.pass != nil {
		return errors.New("wgpu backend: BeginScenePass while a pass is open")
	}
	if b.colorView == nil || b.depthView == nil {
		return errors.New("wgpu backend: no scene target")
	}

	// The first scene pass of a frame clears, later ones accumulate.
	loadOp := wgpu.LoadOpLoad
	if b.scenePasses == 0 {
		loadOp = wgpu.LoadOpClear
	}
	b.pass = b.encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: name,
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:          b.colorView,
			ResolveTarget: b.resolve,
			LoadOp:        loadOp,
			StoreOp:       wgpu.StoreOpStore,
			ClearValue:    b.clearColor,
		}},
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            b.depthView,
			DepthLoadOp:     loadOp,
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: 1.0,
		},
	})
	b.scenePasses++
	b.shadowTarget = false
	return nil
}

func (b *wgpuBackend) EndScenePass() {
	b.endPass()
}

func (b *wgpuBackend) endPass() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pass == nil {
		return
	}
	b.pass.End()
	b.pass = nil
}

func (b *wgpuBackend) SetPipelineState(state pipeline.PipelineState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pass == nil || state.RenderPipeline() == nil {
		return
	}
	b.pass.SetPipeline(state.RenderPipeline())
}

func (b *wgpuBackend) SetBuffers(geometry model.Geometry) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pass == nil {
		return
	}
	if geometry.VertexBuffer() == nil {
		if err := b.initGeometryBuffers(geometry); err != nil {
			logger.Logger().Warn("geometry buffer upload failed", "geometry", geometry.Name(), "error", err)
			return
		}
	}
	b.pass.SetVertexBuffer(0, geometry.VertexBuffer(), 0, wgpu.WholeSize)
	b.pass.SetIndexBuffer(geometry.IndexBuffer(), geometry.IndexFormat(), 0, wgpu.WholeSize)
}

func (b *wgpuBackend) initGeometryBuffers(geometry model.Geometry) error {
	vertexData, indexData := geometry.VertexData(), geometry.IndexData()
	if len(vertexData) == 0 || len(indexData) == 0 {
		return errors.New("geometry has no vertex or index data")
	}
	vb, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: geometry.Name() + " Vertex Buffer",
		Size:  uint64(len(vertexData)),
		Usage: wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return err
	}
	b.queue.WriteBuffer(vb, 0, vertexData)

	ib, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: geometry.Name() + " Index Buffer",
		Size:  uint64(len(indexData)),
		Usage: wgpu.BufferUsageIndex | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		vb.Release()
		return err
	}
	b.queue.WriteBuffer(ib, 0, indexData)
	geometry.SetBuffers(vb, ib)
	return nil
}

// acquireUniform returns a pooled uniform buffer of at least size bytes. Buffers are recycled
// at BeginFrame, after the previous frame was submitted.
func (b *wgpuBackend) acquireUniform(size uint64) (*wgpu.Buffer, error) {
	size = (size + uniformAlignment - 1) / uniformAlignment * uniformAlignment
	cursor := b.poolCursor[size]
	pool := b.uniformPool[size]
	if cursor < len(pool) {
		b.poolCursor[size] = cursor + 1
		return pool[cursor], nil
	}
	buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: fmt.Sprintf("Uniform Buffer %d", size),
		Size:  size,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}
	b.uniformPool[size] = append(pool, buf)
	b.poolCursor[size] = cursor + 1
	return buf, nil
}

func (b *wgpuBackend) UploadShaderParameters(group ShaderParameterGroup, params []ShaderParameterDesc, data []float32) {
	b.mu.Lock()
	defer b.mu.Unlock()

	buf, err := b.acquireUniform(uint64(len(data) * 4))
	if err != nil {
		logger.Logger().Warn("uniform buffer allocation failed", "group", group, "error", err)
		return
	}
	index, binding := groupBinding(group)
	bind_group_provider.BufferWrite{
		Provider: b.providers[index],
		Binding:  binding,
		Buffer:   buf,
		Data:     common.SliceToBytes(data),
	}.Apply(b.queue)
}

func (b *wgpuBackend) BindShaderResources(group ShaderParameterGroup, resources []ShaderResource) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, res := range resources {
		switch {
		case group == GroupLight && res.Unit == UnitShadowMap:
			if b.shadowTarget {
				// the atlas may be the current render target
				continue
			}
			b.providers[bindGroupLight].SetTextureView(1, common.Coalesce(res.View, b.defaultDepthView))
			b.providers[bindGroupLight].SetSampler(2, common.Coalesce(res.Sampler, b.comparisonSampler))
		case group == GroupMaterial && res.Unit == UnitDiffuse:
			b.providers[bindGroupMaterial].SetTextureView(1, common.Coalesce(res.View, b.defaultColorView))
			b.providers[bindGroupMaterial].SetSampler(2, common.Coalesce(res.Sampler, b.filteringSampler))
		default:
			logger.Logger().Debug("unsupported texture unit", "group", group, "unit", res.Unit)
		}
	}
}

func (b *wgpuBackend) DrawIndexed(indexStart, indexCount, baseVertex, instanceCount int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.pass == nil {
		return
	}
	for i, p := range b.providers {
		bg, created, err := p.Build(b.device)
		if err != nil {
			logger.Logger().Warn("bind group creation failed", "group", i, "error", err)
			return
		}
		if created {
			b.bindGroups = append(b.bindGroups, bg)
		}
		b.pass.SetBindGroup(uint32(i), bg, nil)
	}
	b.pass.DrawIndexed(uint32(indexCount), uint32(instanceCount), uint32(indexStart), int32(baseVertex), 0)
}

func (b *wgpuBackend) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, bg := range b.bindGroups {
		bg.Release()
	}
	b.bindGroups = nil
	for _, pool := range b.uniformPool {
		for _, buf := range pool {
			buf.Release()
		}
	}
	b.uniformPool = map[uint64][]*wgpu.Buffer{}
	for _, m := range b.modules {
		m.Release()
	}
	b.modules = map[string]*wgpu.ShaderModule{}
	for _, t := range b.textures {
		t.Release()
	}
	b.textures = map[uint32]*wgpu.Texture{}
	for _, v := range b.ownedViews {
		v.Release()
	}
	for _, t := range b.owned {
		t.Release()
	}
	b.owned, b.ownedViews = nil, nil

	for _, v := range []*wgpu.TextureView{b.defaultDepthView, b.defaultColorView} {
		if v != nil {
			v.Release()
		}
	}
	for _, t := range []*wgpu.Texture{b.defaultDepth, b.defaultColor} {
		if t != nil {
			t.Release()
		}
	}
	for _, s := range []*wgpu.Sampler{b.comparisonSampler, b.filteringSampler} {
		if s != nil {
			s.Release()
		}
	}
	if b.defaultUniform != nil {
		b.defaultUniform.Release()
	}
	if b.pipelineLayout != nil {
		b.pipelineLayout.Release()
	}
	for _, l := range b.layouts {
		if l != nil {
			l.Release()
		}
	}
}
