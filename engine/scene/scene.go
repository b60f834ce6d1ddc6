// package scene holds the spatial index the frame is collected from.
package scene

import (
	"sync"

	"github.com/xgdwangdechao/rbfx/common"
	"github.com/xgdwangdechao/rbfx/engine/drawable"
	"github.com/xgdwangdechao/rbfx/engine/logger"
)

// Scene is the registry of drawables and lights, queried by frustum once per view and once
// per shadow split. Drawable indices are dense in [0, Count) and reassigned on removal, so
// per-frame caches can be indexed by Drawable.Index.
// Thread-safe for concurrent access; queries take a read lock.
type Scene interface {
	// Name returns the scene's identifier.
	Name() string

	// SetName sets the scene's identifier.
	SetName(name string)

	// Count returns the number of registered drawables.
	//
	// Returns:
	//   - int: the drawable count
	Count() int

	// Add registers a drawable and assigns its index. Adding a registered drawable is a no-op.
	//
	// Parameters:
	//   - d: the drawable
	//
	// Returns:
	//   - uint64: the drawable ID
	Add(d drawable.Drawable) uint64

	// Get retrieves a drawable by ID. Returns nil if not found.
	//
	// Parameters:
	//   - id: the drawable ID
	//
	// Returns:
	//   - drawable.Drawable: the drawable or nil
	Get(id uint64) drawable.Drawable

	// Remove unregisters a drawable by ID. The last drawable takes over the removed index
	// and the removed drawable's index is set to -1.
	//
	// Parameters:
	//   - id: the drawable ID
	//
	// Returns:
	//   - bool: false if the drawable was not registered
	Remove(id uint64) bool

	// Clear unregisters every drawable.
	Clear()

	// Drawables returns a snapshot of the registered drawables in index order.
	//
	// Returns:
	//   - []drawable.Drawable: the drawables
	Drawables() []drawable.Drawable

	// Query returns the enabled drawables whose flags intersect flags, whose view mask
	// intersects viewMask and whose world bounding box intersects the frustum, in index order.
	//
	// Parameters:
	//   - frustum: the query volume
	//   - flags: the accepted drawable flags
	//   - viewMask: the accepted view mask bits
	//
	// Returns:
	//   - []drawable.Drawable: the matching drawables
	Query(frustum common.Frustum, flags drawable.Flags, viewMask uint32) []drawable.Drawable
}

type scene struct {
	mu *sync.RWMutex

	name      string
	drawables []drawable.Drawable
	registry  map[uint64]drawable.Drawable
}

var _ Scene = &scene{}

// NewScene creates a new Scene with the given options.
//
// Parameters:
//   - options: variadic list of SceneBuilderOption functions
//
// Returns:
//   - Scene: the scene
func NewScene(options ...SceneBuilderOption) Scene {
	s := &scene{
		mu:       &sync.RWMutex{},
		registry: make(map[uint64]drawable.Drawable),
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

func (s *scene) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

func (s *scene) SetName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.name = name
}

func (s *scene) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.drawables)
}

func (s *scene) Add(d drawable.Drawable) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.add(d)
	return d.ID()
}

func (s *scene) add(d drawable.Drawable) {
	if _, exists := s.registry[d.ID()]; exists {
		return
	}
	d.SetIndex(len(s.drawables))
	s.drawables = append(s.drawables, d)
	s.registry[d.ID()] = d
}

func (s *scene) Get(id uint64) drawable.Drawable {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.registry[id]
}

func (s *scene) Remove(id uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, exists := s.registry[id]
	if !exists {
		return false
	}
	delete(s.registry, id)

	index := d.Index()
	last := len(s.drawables) - 1
	if index < 0 || index > last || s.drawables[index] != d {
		logger.Logger().Warn("scene index out of sync, rebuilding", "scene", s.name, "drawable", id)
		s.reindex(d)
		return true
	}
	if index != last {
		moved := s.drawables[last]
		s.drawables[index] = moved
		moved.SetIndex(index)
	}
	s.drawables[last] = nil
	s.drawables = s.drawables[:last]
	d.SetIndex(-1)
	return true
}

// reindex drops removed and reassigns every index in order.
func (s *scene) reindex(removed drawable.Drawable) {
	kept := s.drawables[:0]
	for _, d := range s.drawables {
		if d == removed {
			continue
		}
		d.SetIndex(len(kept))
		kept = append(kept, d)
	}
	for i := len(kept); i < len(s.drawables); i++ {
		s.drawables[i] = nil
	}
	s.drawables = kept
	removed.SetIndex(-1)
}

func (s *scene) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.drawables {
		d.SetIndex(-1)
	}
	s.drawables = nil
	s.registry = make(map[uint64]drawable.Drawable)
}

func (s *scene) Drawables() []drawable.Drawable {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]drawable.Drawable(nil), s.drawables...)
}

func (s *scene) Query(frustum common.Frustum, flags drawable.Flags, viewMask uint32) []drawable.Drawable {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []drawable.Drawable
	for _, d := range s.drawables {
		if d.Flags()&flags == 0 || d.ViewMask()&viewMask == 0 || !d.Enabled() {
			continue
		}
		if !frustum.IntersectsBox(d.WorldBoundingBox()) {
			continue
		}
		out = append(out, d)
	}
	return out
}
