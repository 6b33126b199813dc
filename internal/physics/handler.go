package physics

import (
	"sort"
	"sync"

	rl "github.com/gen2brain/raylib-go/raylib"

	"rigid3d/internal/engine"
)

// BodyCollisionData tracks one touching body pair across substeps.
// BodyA always orders before BodyB.
type BodyCollisionData struct {
	BodyA, BodyB     BodyHandle
	PointA, PointB   rl.Vector3
	TimeSinceCreated float32
	TimeSinceSeen    float32

	observed bool
}

// CollisionListener receives a handler's lifecycle callbacks on the stepping goroutine.
// Implementations must not block and must not call back into the world's Process.
type CollisionListener interface {
	CollisionStarted(data *BodyCollisionData)
	CollisionPersisted(data *BodyCollisionData)
	CollisionEnded(data *BodyCollisionData)
}

type pairKey struct {
	a, b BodyHandle
}

func (k pairKey) less(o pairKey) bool {
	if k.a != o.a {
		return k.a.less(o.a)
	}
	return k.b.less(o.b)
}

// CollisionHandler turns per-substep contacts into started, persisted and ended events
// for the bodies that point at it.
type CollisionHandler struct {
	OnStarted   engine.EventWithArg[*BodyCollisionData]
	OnPersisted engine.EventWithArg[*BodyCollisionData]
	OnEnded     engine.EventWithArg[*BodyCollisionData]

	mu       sync.Mutex
	records  map[pairKey]*BodyCollisionData
	window   float32
	listener CollisionListener
}

// NewCollisionHandler creates a handler that ends a pair once it has gone
// unobserved for longer than window seconds. listener may be nil.
func NewCollisionHandler(window float32, listener CollisionListener) *CollisionHandler {
	return &CollisionHandler{
		records:  make(map[pairKey]*BodyCollisionData),
		window:   window,
		listener: listener,
	}
}

type handlerEvent struct {
	kind int
	data *BodyCollisionData
}

const (
	eventStarted = iota
	eventPersisted
	eventEnded
)

func (h *CollisionHandler) fire(events []handlerEvent) {
	for _, e := range events {
		switch e.kind {
		case eventStarted:
			if h.listener != nil {
				h.listener.CollisionStarted(e.data)
			}
			h.OnStarted.Invoke(e.data)
		case eventPersisted:
			if h.listener != nil {
				h.listener.CollisionPersisted(e.data)
			}
			h.OnPersisted.Invoke(e.data)
		case eventEnded:
			if h.listener != nil {
				h.listener.CollisionEnded(e.data)
			}
			h.OnEnded.Invoke(e.data)
		}
	}
}

// TriggerCollision records contact between a and b. The first observation
// fires started; later substeps fire persisted. A pair seen several times in
// one substep fires once.
func (h *CollisionHandler) TriggerCollision(a, b BodyHandle, pointA, pointB rl.Vector3) {
	if b.less(a) {
		a, b = b, a
		pointA, pointB = pointB, pointA
	}
	key := pairKey{a, b}

	h.mu.Lock()
	data, ok := h.records[key]
	var event handlerEvent
	switch {
	case !ok:
		data = &BodyCollisionData{BodyA: a, BodyB: b, PointA: pointA, PointB: pointB, observed: true}
		h.records[key] = data
		event = handlerEvent{eventStarted, data}
	case data.observed:
		data.PointA, data.PointB = pointA, pointB
		h.mu.Unlock()
		return
	default:
		data.PointA, data.PointB = pointA, pointB
		data.TimeSinceSeen = 0
		data.observed = true
		event = handlerEvent{eventPersisted, data}
	}
	h.mu.Unlock()

	h.fire([]handlerEvent{event})
}

// UpdateTimers ages every record by dt. Records observed this substep only
// age their creation timer.
func (h *CollisionHandler) UpdateTimers(dt float32) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, data := range h.records {
		data.TimeSinceCreated += dt
		if !data.observed {
			data.TimeSinceSeen += dt
		}
		data.observed = false
	}
}

// RemoveNotPersistedCollisions ends every pair unobserved for longer than the window.
func (h *CollisionHandler) RemoveNotPersistedCollisions() {
	h.evict(func(data *BodyCollisionData) bool {
		return data.TimeSinceSeen > h.window
	})
}

// NotifyBodyRemoved ends every pair involving body.
func (h *CollisionHandler) NotifyBodyRemoved(body BodyHandle) {
	h.evict(func(data *BodyCollisionData) bool {
		return data.BodyA == body || data.BodyB == body
	})
}

func (h *CollisionHandler) evict(match func(*BodyCollisionData) bool) {
	h.mu.Lock()
	var keys []pairKey
	for key, data := range h.records {
		if match(data) {
			keys = append(keys, key)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].less(keys[j]) })

	events := make([]handlerEvent, 0, len(keys))
	for _, key := range keys {
		events = append(events, handlerEvent{eventEnded, h.records[key]})
		delete(h.records, key)
	}
	h.mu.Unlock()

	h.fire(events)
}

// Len returns the number of live pairs.
func (h *CollisionHandler) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.records)
}

// Record returns a copy of the pair record for a and b in either order.
func (h *CollisionHandler) Record(a, b BodyHandle) (BodyCollisionData, bool) {
	if b.less(a) {
		a, b = b, a
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	data, ok := h.records[pairKey{a, b}]
	if !ok {
		return BodyCollisionData{}, false
	}
	return *data, true
}
