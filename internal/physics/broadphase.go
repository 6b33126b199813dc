package physics

import (
	"errors"
	"log"

	"rigid3d/internal/compute"
)

// canPair applies the broad-phase filters other than bounds overlap.
func canPair(a, b *PhysicsBody) bool {
	if a.motion == MotionStatic && b.motion == MotionStatic {
		return false
	}
	if a.stepSleeping && b.stepSleeping {
		return false
	}
	chA, maskA := a.CollisionFilter()
	chB, maskB := b.CollisionFilter()
	return chA&maskB != 0 && chB&maskA != 0
}

func orderedPair(a, b *PhysicsBody) bodyPair {
	if b.handle.less(a.handle) {
		a, b = b, a
	}
	return bodyPair{a: a, b: b}
}

// findCollisionPairs returns the body pairs whose bounds overlap, sorted by handle.
func (w *PhysicsWorld) findCollisionPairs(bodies []*PhysicsBody) []bodyPair {
	candidates := make([]*PhysicsBody, 0, len(bodies))
	for _, b := range bodies {
		if b.stepEnabled {
			candidates = append(candidates, b)
		}
	}

	w.pairs.reset()
	if !w.gpuPairs(candidates) {
		w.cpuPairs(candidates)
	}
	return w.pairs.sorted()
}

func (w *PhysicsWorld) cpuPairs(candidates []*PhysicsBody) {
	w.parallelFor(len(candidates), w.cfg.MinParallelBodies, func(start, end int) {
		var local []bodyPair
		for i := start; i < end; i++ {
			a := candidates[i]
			for _, b := range candidates[i+1:] {
				if a.bounds.Intersects(b.bounds) && canPair(a, b) {
					local = append(local, orderedPair(a, b))
				}
			}
		}
		w.pairs.add(local...)
	})
}

// gpuPairs runs the compute broad phase when enabled and worthwhile. It
// returns false when the CPU path must produce the pairs instead.
func (w *PhysicsWorld) gpuPairs(candidates []*PhysicsBody) bool {
	wasUsingGPU := w.useGPU
	w.useGPU = w.gpu != nil &&
		len(candidates) >= w.cfg.GPUBroadPhaseThreshold &&
		len(candidates) <= w.gpu.MaxObjects()

	if w.useGPU && !wasUsingGPU {
		log.Printf("Physics: GPU broad-phase ON (%d bodies)", len(candidates))
	} else if !w.useGPU && wasUsingGPU {
		log.Printf("Physics: GPU broad-phase OFF (%d bodies)", len(candidates))
	}
	if !w.useGPU {
		return false
	}

	boxes := make([]compute.Box, len(candidates))
	for i, b := range candidates {
		boxes[i] = compute.NewBox(b.bounds.Min.X, b.bounds.Min.Y, b.bounds.Min.Z,
			b.bounds.Max.X, b.bounds.Max.Y, b.bounds.Max.Z)
	}

	found, err := w.gpu.DetectPairs(boxes)
	if err != nil {
		if errors.Is(err, compute.ErrPairOverflow) {
			if len(candidates) != w.lastLoggedCount {
				w.lastLoggedCount = len(candidates)
				log.Printf("Physics: GPU pair buffer full at %d bodies, using CPU", len(candidates))
			}
		} else {
			log.Printf("Physics: GPU broad-phase failed: %v", err)
		}
		return false
	}

	pairs := make([]bodyPair, 0, len(found))
	for _, p := range found {
		a, b := candidates[p.A], candidates[p.B]
		if canPair(a, b) {
			pairs = append(pairs, orderedPair(a, b))
		}
	}
	w.pairs.add(pairs...)
	return true
}
