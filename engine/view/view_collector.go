package view

import (
	"fmt"

	"github.com/xgdwangdechao/rbfx/engine/dispatcher"
	"github.com/xgdwangdechao/rbfx/engine/drawable"
	"github.com/xgdwangdechao/rbfx/engine/light"
	"github.com/xgdwangdechao/rbfx/engine/logger"
)

// ViewCollector runs the visibility pass of a frame: one frustum query followed by a
// parallel per-object pass over contiguous chunks of the result.
type ViewCollector struct {
	dispatcher dispatcher.Dispatcher
	cache      *VisibilityCache
}

// NewViewCollector creates a collector writing into cache.
//
// Parameters:
//   - d: the dispatcher running the per-object pass
//   - cache: the cache receiving the results
//
// Returns:
//   - *ViewCollector: the collector
func NewViewCollector(d dispatcher.Dispatcher, cache *VisibilityCache) *ViewCollector {
	return &ViewCollector{dispatcher: d, cache: cache}
}

// Cache returns the visibility cache the collector writes into.
func (v *ViewCollector) Cache() *VisibilityCache {
	return v.cache
}

// Update collects the geometries and lights visible from the frame camera.
//
// Parameters:
//   - frame: the frame
//
// Returns:
//   - error: a precondition error from FrameInfo.Validate
func (v *ViewCollector) Update(frame FrameInfo) error {
	if err := frame.Validate(); err != nil {
		return fmt.Errorf("view update: %w", err)
	}

	cam := frame.Camera
	numThreads := v.dispatcher.NumThreads()
	v.cache.Reset(frame.SpatialIndex.Count(), numThreads)

	drawables := frame.SpatialIndex.Query(cam.Frustum(), drawable.FlagGeometry|drawable.FlagLight, cam.ViewMask())
	ctx := frame.UpdateContext()
	evaluator := newZRangeEvaluator(cam.ViewMatrix())

	v.dispatcher.ParallelFor(len(drawables), func(chunk, from, to int) {
		w := &v.cache.workers[chunk]
		for i := from; i < to; i++ {
			d := drawables[i]
			d.UpdateBatches(ctx)
			v.processDrawable(d, evaluator, w)
		}
	})

	v.cache.merge()
	logger.Logger().Debug("view collected",
		"frame", frame.FrameNumber,
		"queried", len(drawables),
		"geometries", len(v.cache.geometries),
		"lights", len(v.cache.lights),
	)
	return nil
}

func (v *ViewCollector) processDrawable(d drawable.Drawable, evaluator zRangeEvaluator, w *workerResult) {
	index := d.Index()
	if index < 0 || index >= len(v.cache.traits) {
		// not registered in this index; nothing to record it under
		return
	}
	v.cache.traits[index] |= TraitVisible | TraitUpdated

	if maxDistance := d.DrawDistance(); maxDistance > 0 && d.Distance() > maxDistance {
		return
	}

	switch {
	case d.Flags()&drawable.FlagGeometry != 0:
		zRange := evaluator.evaluate(d)
		if !zRange.IsValid() {
			v.cache.zRanges[index] = InfiniteZRange()
		} else {
			v.cache.zRanges[index] = zRange
			w.zRange = w.zRange.Merge(zRange)
		}
		w.geometries = append(w.geometries, d)
	case d.Flags()&drawable.FlagLight != 0:
		l, ok := d.(light.Light)
		if !ok {
			return
		}
		if !l.EffectiveColor().IsBlack() && l.EffectiveLightMask() != 0 {
			w.lights = append(w.lights, l)
		}
	}
}
