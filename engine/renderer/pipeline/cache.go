package pipeline

import (
	"errors"
	"fmt"
	"sync"

	"github.com/xgdwangdechao/rbfx/engine/logger"
)

// ErrPipelineStateFailed is returned for descriptors whose construction failed earlier.
var ErrPipelineStateFailed = errors.New("pipeline: pipeline state construction failed")

// Registrar creates the GPU object for a new pipeline state.
type Registrar interface {
	// RegisterPipelineState builds the GPU pipeline for state.
	//
	// Parameters:
	//   - state: the new pipeline state
	//
	// Returns:
	//   - error: a construction error; the state is then remembered as failed
	RegisterPipelineState(state PipelineState) error
}

type cacheEntry struct {
	state PipelineState
	err   error
}

// cache is the implementation of the Cache interface.
type cache struct {
	mu *sync.Mutex

	registrar       Registrar
	validateShaders bool

	entries map[PipelineStateDesc]cacheEntry
	nextID  uint32
	failed  int
}

// Cache interns pipeline state descriptors. Equal descriptors share one PipelineState;
// descriptors that failed to build stay failed and are never rebuilt.
type Cache interface {
	// GetOrCreatePipelineState returns the shared state for desc, creating it on first use.
	//
	// Parameters:
	//   - desc: the descriptor
	//
	// Returns:
	//   - PipelineState: the interned state, or nil on failure
	//   - error: ErrInvalidPipelineDesc, ErrPipelineStateFailed or the wrapped construction error
	GetOrCreatePipelineState(desc PipelineStateDesc) (PipelineState, error)

	// Len returns the number of successfully created states.
	Len() int

	// Failed returns the number of descriptors remembered as failed.
	Failed() int

	// Clear forgets every state and failure. IDs continue from where they were.
	Clear()
}

var _ Cache = &cache{}

// NewCache creates a new pipeline state Cache.
//
// Parameters:
//   - options: variadic list of CacheBuilderOption functions
//
// Returns:
//   - Cache: the cache
func NewCache(options ...CacheBuilderOption) Cache {
	c := &cache{
		mu:      &sync.Mutex{},
		entries: make(map[PipelineStateDesc]cacheEntry),
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

func (c *cache) GetOrCreatePipelineState(desc PipelineStateDesc) (PipelineState, error) {
	key := desc.key()

	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.entries[key]; ok {
		if entry.err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPipelineStateFailed, entry.err)
		}
		return entry.state, nil
	}

	state, err := c.create(desc)
	if err != nil {
		c.entries[key] = cacheEntry{err: err}
		c.failed++
		logger.Logger().Warn("pipeline state creation failed", "label", desc.Label, "error", err)
		return nil, err
	}
	c.entries[key] = cacheEntry{state: state}
	logger.Logger().Debug("pipeline state created", "id", state.ID(), "label", desc.Label, "hash", state.Hash())
	return state, nil
}

func (c *cache) create(desc PipelineStateDesc) (PipelineState, error) {
	if !desc.IsValid() {
		return nil, ErrInvalidPipelineDesc
	}
	if c.validateShaders {
		if _, err := desc.VertexShader.Compile(); err != nil {
			return nil, err
		}
		if _, err := desc.FragmentShader.Compile(); err != nil {
			return nil, err
		}
	}
	c.nextID++
	state := newPipelineState(c.nextID, desc)
	if c.registrar != nil {
		if err := c.registrar.RegisterPipelineState(state); err != nil {
			return nil, fmt.Errorf("failed to register pipeline state %q: %w", desc.Label, err)
		}
	}
	return state, nil
}

func (c *cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries) - c.failed
}

func (c *cache) Failed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.failed
}

func (c *cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[PipelineStateDesc]cacheEntry)
	c.failed = 0
}
