package physics

import "fmt"

// handle is a generation-checked slot reference. The zero value is never valid.
type handle struct {
	index      uint32
	generation uint32
}

func (h handle) less(o handle) bool {
	if h.index != o.index {
		return h.index < o.index
	}
	return h.generation < o.generation
}

// BodyHandle refers to a PhysicsBody owned by a PhysicsWorld.
type BodyHandle struct{ handle }

// FormHandle refers to a PhysicsForm owned by a PhysicsWorld.
type FormHandle struct{ handle }

func (h BodyHandle) IsValid() bool { return h.generation != 0 }
func (h FormHandle) IsValid() bool { return h.generation != 0 }

func (h BodyHandle) less(o BodyHandle) bool { return h.handle.less(o.handle) }

func (h BodyHandle) String() string {
	return fmt.Sprintf("body(%d#%d)", h.index, h.generation)
}

func (h FormHandle) String() string {
	return fmt.Sprintf("form(%d#%d)", h.index, h.generation)
}

type slabEntry[T any] struct {
	value      T
	generation uint32
	live       bool
}

// slab stores values in reusable slots; a slot's generation bumps on every reuse.
type slab[T any] struct {
	entries []slabEntry[T]
	free    []uint32
}

func (s *slab[T]) insert(v T) handle {
	if n := len(s.free); n > 0 {
		idx := s.free[n-1]
		s.free = s.free[:n-1]
		e := &s.entries[idx]
		e.generation++
		e.value = v
		e.live = true
		return handle{index: idx, generation: e.generation}
	}
	s.entries = append(s.entries, slabEntry[T]{value: v, generation: 1, live: true})
	return handle{index: uint32(len(s.entries) - 1), generation: 1}
}

func (s *slab[T]) get(h handle) (T, bool) {
	var zero T
	if h.generation == 0 || int(h.index) >= len(s.entries) {
		return zero, false
	}
	e := &s.entries[h.index]
	if !e.live || e.generation != h.generation {
		return zero, false
	}
	return e.value, true
}

func (s *slab[T]) remove(h handle) bool {
	if _, ok := s.get(h); !ok {
		return false
	}
	e := &s.entries[h.index]
	var zero T
	e.value = zero
	e.live = false
	s.free = append(s.free, h.index)
	return true
}

func (s *slab[T]) len() int {
	return len(s.entries) - len(s.free)
}
