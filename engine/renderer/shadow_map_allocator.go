package renderer

import (
	"errors"
	"fmt"
	"sync"

	"github.com/xgdwangdechao/rbfx/common"
	"github.com/xgdwangdechao/rbfx/engine/logger"
)

var (
	// ErrShadowAtlasFull is returned when no atlas page has room for a shadow map.
	ErrShadowAtlasFull = errors.New("shadow atlas is full")
	// ErrShadowMapTooLarge is returned when a requested shadow map does not fit a single page.
	ErrShadowMapTooLarge = errors.New("shadow map exceeds atlas page size")
)

// ShadowMap is a rectangular region of an atlas page that one light renders its splits into.
type ShadowMap struct {
	Texture *RenderTexture
	Region  common.IntRect
	Page    int
}

// IsValid reports whether the shadow map refers to an allocated region.
func (m ShadowMap) IsValid() bool {
	return m.Texture != nil && !m.Region.Empty()
}

// shelf is one horizontal strip of a page; regions are placed left to right.
type shelf struct {
	y      int
	height int
	cursor int
}

// atlasAllocation is a region handed out to an owner.
type atlasAllocation struct {
	owner  uint64
	page   int
	shelf  int
	region common.IntRect
	frame  uint64
	dead   bool
}

type atlasPage struct {
	texture *RenderTexture
	shelves []shelf
	allocs  []*atlasAllocation
	cleared bool
}

// shadowMapAllocator is the implementation of the ShadowMapAllocator interface.
type shadowMapAllocator struct {
	mu *sync.Mutex

	backend   Backend
	atlasSize int
	maxPages  int
	reuse     bool

	frame  uint64
	pages  []*atlasPage
	owners map[uint64]*atlasAllocation
}

// ShadowMapAllocator hands out regions of square depth atlas pages to shadowed lights.
type ShadowMapAllocator interface {
	// Reset starts a new frame. Without reuse every region is freed; with reuse regions stay
	// reserved for their owners until they are repacked away.
	Reset()

	// AllocateShadowMap reserves a region at least as large as size for an owner. Within a
	// frame the same owner receives the same region unless it asks for a larger one. With
	// reuse, an owner requesting the same size as in an earlier frame receives its previous region.
	//
	// Parameters:
	//   - owner: the owner key, usually a light ID
	//   - size: the region size
	//
	// Returns:
	//   - ShadowMap: the region
	//   - error: ErrShadowMapTooLarge or ErrShadowAtlasFull, possibly wrapped
	AllocateShadowMap(owner uint64, size common.IntSize) (ShadowMap, error)

	// BeginShadowMap starts a depth pass rendering into a region. The first region bound on
	// a page in a frame clears the page.
	//
	// Parameters:
	//   - shadowMap: the region
	//
	// Returns:
	//   - error: an error if the region is invalid or the pass could not start
	BeginShadowMap(shadowMap ShadowMap) error

	// EndShadowMap finishes the pass started by BeginShadowMap.
	EndShadowMap()

	// Pages returns the number of allocated atlas pages.
	//
	// Returns:
	//   - int: the page count
	Pages() int

	// Release frees every atlas page.
	Release()
}

var _ ShadowMapAllocator = &shadowMapAllocator{}

// NewShadowMapAllocator creates an allocator whose pages are created through backend.
//
// Parameters:
//   - backend: the backend creating the atlas textures
//   - options: functional options
//
// Returns:
//   - ShadowMapAllocator: the allocator
func NewShadowMapAllocator(backend Backend, options ...ShadowMapAllocatorOption) ShadowMapAllocator {
	a := &shadowMapAllocator{
		mu:        &sync.Mutex{},
		backend:   backend,
		atlasSize: 2048,
		maxPages:  4,
		owners:    make(map[uint64]*atlasAllocation),
	}
	for _, opt := range options {
		opt(a)
	}
	if max := backend.Capabilities().MaxTextureSize; max > 0 && a.atlasSize > max {
		a.atlasSize = max
	}
	return a
}

func (a *shadowMapAllocator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.frame++
	for _, p := range a.pages {
		p.cleared = false
	}
	if a.reuse {
		return
	}
	for _, p := range a.pages {
		p.shelves = p.shelves[:0]
		p.allocs = p.allocs[:0]
	}
	a.owners = make(map[uint64]*atlasAllocation)
}

func (a *shadowMapAllocator) AllocateShadowMap(owner uint64, size common.IntSize) (ShadowMap, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if size.Width <= 0 || size.Height <= 0 || size.Width > a.atlasSize || size.Height > a.atlasSize {
		return ShadowMap{}, fmt.Errorf("%w: %dx%d on a %d page", ErrShadowMapTooLarge, size.Width, size.Height, a.atlasSize)
	}

	if prev, ok := a.owners[owner]; ok {
		covers := prev.region.Width() >= size.Width && prev.region.Height() >= size.Height
		if (prev.frame == a.frame && covers) || prev.region.Size() == size {
			prev.frame = a.frame
			return a.shadowMap(prev), nil
		}
		prev.dead = true
		delete(a.owners, owner)
	}

	alloc, err := a.place(owner, size)
	if errors.Is(err, ErrShadowAtlasFull) && a.reuse && a.repack() {
		alloc, err = a.place(owner, size)
	}
	if err != nil {
		return ShadowMap{}, err
	}
	a.owners[owner] = alloc
	return a.shadowMap(alloc), nil
}

func (a *shadowMapAllocator) shadowMap(alloc *atlasAllocation) ShadowMap {
	return ShadowMap{
		Texture: a.pages[alloc.page].texture,
		Region:  alloc.region,
		Page:    alloc.page,
	}
}

// place finds room on an existing page, opening a new page when all are full.
func (a *shadowMapAllocator) place(owner uint64, size common.IntSize) (*atlasAllocation, error) {
	for i, p := range a.pages {
		if alloc := a.placeOnPage(i, p, owner, size); alloc != nil {
			return alloc, nil
		}
	}
	if len(a.pages) >= a.maxPages {
		return nil, fmt.Errorf("%w: %d pages in use", ErrShadowAtlasFull, len(a.pages))
	}

	tex, err := a.backend.CreateShadowTexture(fmt.Sprintf("Shadow Atlas %d", len(a.pages)), a.atlasSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create shadow atlas page: %w", err)
	}
	p := &atlasPage{texture: tex}
	a.pages = append(a.pages, p)
	logger.Logger().Debug("shadow atlas page created", "page", len(a.pages)-1, "size", a.atlasSize)

	alloc := a.placeOnPage(len(a.pages)-1, p, owner, size)
	if alloc == nil {
		return nil, fmt.Errorf("%w: %dx%d does not fit an empty page", ErrShadowAtlasFull, size.Width, size.Height)
	}
	return alloc, nil
}

func (a *shadowMapAllocator) placeOnPage(index int, p *atlasPage, owner uint64, size common.IntSize) *atlasAllocation {
	shelfIndex := -1
	for i := range p.shelves {
		s := &p.shelves[i]
		if size.Height <= s.height && s.cursor+size.Width <= a.atlasSize {
			shelfIndex = i
			break
		}
	}
	if shelfIndex < 0 {
		y := 0
		if n := len(p.shelves); n > 0 {
			y = p.shelves[n-1].y + p.shelves[n-1].height
		}
		if y+size.Height > a.atlasSize {
			return nil
		}
		p.shelves = append(p.shelves, shelf{y: y, height: size.Height})
		shelfIndex = len(p.shelves) - 1
	}

	s := &p.shelves[shelfIndex]
	alloc := &atlasAllocation{
		owner: owner,
		page:  index,
		shelf: shelfIndex,
		region: common.IntRect{
			Left:   s.cursor,
			Top:    s.y,
			Right:  s.cursor + size.Width,
			Bottom: s.y + size.Height,
		},
		frame: a.frame,
	}
	s.cursor += size.Width
	p.allocs = append(p.allocs, alloc)
	return alloc
}

// repack drops regions not claimed in the current frame and reclaims their shelf space.
// Regions claimed in the current frame keep their position.
func (a *shadowMapAllocator) repack() bool {
	freed := false
	for _, p := range a.pages {
		live := p.allocs[:0]
		for _, alloc := range p.allocs {
			if alloc.dead || alloc.frame != a.frame {
				if !alloc.dead {
					delete(a.owners, alloc.owner)
				}
				freed = true
				continue
			}
			live = append(live, alloc)
		}
		p.allocs = live

		for i := range p.shelves {
			p.shelves[i].cursor = 0
		}
		last := -1
		for _, alloc := range p.allocs {
			s := &p.shelves[alloc.shelf]
			if alloc.region.Right > s.cursor {
				s.cursor = alloc.region.Right
			}
			if alloc.shelf > last {
				last = alloc.shelf
			}
		}
		p.shelves = p.shelves[:last+1]
	}
	if freed {
		logger.Logger().Debug("shadow atlas repacked", "pages", len(a.pages), "owners", len(a.owners))
	}
	return freed
}

func (a *shadowMapAllocator) BeginShadowMap(shadowMap ShadowMap) error {
	if !shadowMap.IsValid() {
		return fmt.Errorf("invalid shadow map region %v", shadowMap.Region)
	}

	a.mu.Lock()
	if shadowMap.Page < 0 || shadowMap.Page >= len(a.pages) || a.pages[shadowMap.Page].texture != shadowMap.Texture {
		a.mu.Unlock()
		return fmt.Errorf("shadow map page %d is not owned by this allocator", shadowMap.Page)
	}
	p := a.pages[shadowMap.Page]
	clear := !p.cleared
	p.cleared = true
	a.mu.Unlock()

	return a.backend.BeginShadowPass(shadowMap.Texture, shadowMap.Region, clear)
}

func (a *shadowMapAllocator) EndShadowMap() {
	a.backend.EndShadowPass()
}

func (a *shadowMapAllocator) Pages() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.pages)
}

func (a *shadowMapAllocator) Release() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, p := range a.pages {
		a.backend.ReleaseTexture(p.texture)
	}
	a.pages = nil
	a.owners = make(map[uint64]*atlasAllocation)
}
