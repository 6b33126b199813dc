package physics

import (
	"fmt"
	"log"
	"sync"

	rl "github.com/gen2brain/raylib-go/raylib"

	"rigid3d/internal/compute"
	"rigid3d/internal/jobs"
)

// MaxPhysicsObjects is the most bodies the GPU broad phase is sized for.
const MaxPhysicsObjects = 50000

// PhysicsWorld owns forms, bodies and collision handlers and advances them in
// fixed substeps.
//
// Creation, destruction and body mutators are safe from any goroutine.
// Process and Step must not run concurrently with each other.
type PhysicsWorld struct {
	cfg        Config
	queue      *jobs.Queue
	dispatcher *CollisionDispatcher
	solver     *CollisionSolver

	mu       sync.Mutex
	forms    slab[*PhysicsForm]
	bodies   slab[*PhysicsBody]
	order    []*PhysicsBody
	handlers []*CollisionHandler
	gravity  rl.Vector3

	removeMu       sync.Mutex
	pendingRemoval []*PhysicsBody

	step        sync.Mutex
	accumulator float32
	pairs       pairCollector
	collisions  CollisionCollector

	gpu             *compute.BroadPhase
	useGPU          bool
	lastLoggedCount int
}

// NewPhysicsWorld creates a world. queue may be nil, in which case every
// phase runs on the calling goroutine.
func NewPhysicsWorld(cfg Config, queue *jobs.Queue) (*PhysicsWorld, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &PhysicsWorld{
		cfg:        cfg,
		queue:      queue,
		dispatcher: NewCollisionDispatcher(),
		solver:     NewCollisionSolver(cfg),
		gravity:    cfg.gravity(),
	}, nil
}

func (w *PhysicsWorld) Config() Config {
	return w.cfg
}

func (w *PhysicsWorld) Dispatcher() *CollisionDispatcher {
	return w.dispatcher
}

func (w *PhysicsWorld) Gravity() rl.Vector3 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.gravity
}

func (w *PhysicsWorld) SetGravity(g rl.Vector3) {
	w.mu.Lock()
	w.gravity = g
	w.mu.Unlock()
}

// CreatePhysicsForm registers a new, shapeless form. Add shapes before
// creating bodies from it.
func (w *PhysicsWorld) CreatePhysicsForm(params FormParams) *PhysicsForm {
	form := newPhysicsForm(params)
	w.mu.Lock()
	form.handle = FormHandle{w.forms.insert(form)}
	w.mu.Unlock()
	return form
}

func (w *PhysicsWorld) Form(h FormHandle) (*PhysicsForm, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	form, ok := w.forms.get(h.handle)
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrInvalidHandle, h)
	}
	return form, nil
}

// DestroyPhysicsForm releases a form no body uses any more.
func (w *PhysicsWorld) DestroyPhysicsForm(h FormHandle) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	form, ok := w.forms.get(h.handle)
	if !ok {
		return fmt.Errorf("%w: %v", ErrInvalidHandle, h)
	}
	if n := form.bodies.Load(); n > 0 {
		return fmt.Errorf("%w: %v has %d bodies", ErrFormInUse, h, n)
	}
	w.forms.remove(h.handle)
	return nil
}

// CreatePhysicsBody instantiates form for entity. A dynamic body whose form
// has no mass is created static.
func (w *PhysicsWorld) CreatePhysicsBody(entity Entity, formHandle FormHandle, motion MotionType) (*PhysicsBody, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	form, ok := w.forms.get(formHandle.handle)
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrInvalidHandle, formHandle)
	}
	if len(form.shapes) == 0 {
		return nil, fmt.Errorf("%w: %v", ErrEmptyForm, formHandle)
	}
	form.ensureParameters()
	if motion == MotionDynamic && form.inverseMass == 0 {
		log.Printf("Physics: %v has no mass, creating static body", formHandle)
		motion = MotionStatic
	}

	body := newPhysicsBody(entity, form, motion)
	body.handle = BodyHandle{w.bodies.insert(body)}
	w.order = append(w.order, body)
	form.bodies.Add(1)
	return body, nil
}

// Body resolves a handle. Handles of destroyed bodies are invalid.
func (w *PhysicsWorld) Body(h BodyHandle) (*PhysicsBody, error) {
	w.mu.Lock()
	body, ok := w.bodies.get(h.handle)
	w.mu.Unlock()
	if !ok || body.isDestroyed() {
		return nil, fmt.Errorf("%w: %v", ErrInvalidHandle, h)
	}
	return body, nil
}

// DestroyPhysicsBody disables the body at once and removes it at the end of
// the next Process or Step, after handlers have ended its collisions.
func (w *PhysicsWorld) DestroyPhysicsBody(h BodyHandle) error {
	body, err := w.Body(h)
	if err != nil {
		return err
	}
	body.markDestroyed()
	w.removeMu.Lock()
	w.pendingRemoval = append(w.pendingRemoval, body)
	w.removeMu.Unlock()
	return nil
}

// Bodies returns the live bodies in creation order.
func (w *PhysicsWorld) Bodies() []*PhysicsBody {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]*PhysicsBody, 0, len(w.order))
	for _, b := range w.order {
		if !b.isDestroyed() {
			out = append(out, b)
		}
	}
	return out
}

func (w *PhysicsWorld) BodyCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.bodies.len()
}

// CreateCollisionHandler registers a handler that ages and ends its pairs every
// substep. Assign it to bodies with SetCollisionHandler.
func (w *PhysicsWorld) CreateCollisionHandler(listener CollisionListener) *CollisionHandler {
	h := NewCollisionHandler(w.cfg.CollisionWindow, listener)
	w.mu.Lock()
	w.handlers = append(w.handlers, h)
	w.mu.Unlock()
	return h
}

// RemoveCollisionHandler stops updating h. Bodies still pointing at it keep
// triggering it until reassigned.
func (w *PhysicsWorld) RemoveCollisionHandler(h *CollisionHandler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i, existing := range w.handlers {
		if existing == h {
			w.handlers = append(w.handlers[:i], w.handlers[i+1:]...)
			return
		}
	}
}

// Process advances the world by delta seconds in whole substeps, carrying
// the remainder to the next call. It returns the number of substeps run.
func (w *PhysicsWorld) Process(delta float32) int {
	w.step.Lock()
	defer w.step.Unlock()

	w.accumulator += delta
	steps := 0
	for w.accumulator >= w.cfg.Substep {
		if w.cfg.MaxSubsteps > 0 && steps >= w.cfg.MaxSubsteps {
			log.Printf("Physics: dropping %.4fs after %d substeps", w.accumulator, steps)
			w.accumulator = 0
			break
		}
		w.accumulator -= w.cfg.Substep
		w.simulate(w.cfg.Substep)
		steps++
	}
	if steps > 0 {
		w.finishBodies()
	}
	w.removeDestroyed()
	return steps
}

// Step runs exactly one substep and writes the results back, ignoring the accumulator.
func (w *PhysicsWorld) Step() {
	w.step.Lock()
	defer w.step.Unlock()
	w.simulate(w.cfg.Substep)
	w.finishBodies()
	w.removeDestroyed()
}

func (w *PhysicsWorld) snapshot() ([]*PhysicsBody, []*CollisionHandler, rl.Vector3) {
	w.mu.Lock()
	defer w.mu.Unlock()
	bodies := make([]*PhysicsBody, len(w.order))
	copy(bodies, w.order)
	handlers := make([]*CollisionHandler, len(w.handlers))
	copy(handlers, w.handlers)
	return bodies, handlers, w.gravity
}

func (w *PhysicsWorld) simulate(dt float32) {
	bodies, handlers, gravity := w.snapshot()

	w.parallelFor(len(bodies), w.cfg.MinParallelBodies, func(start, end int) {
		for _, b := range bodies[start:end] {
			b.prepareForSimulation()
		}
	})
	w.parallelFor(len(bodies), w.cfg.MinParallelBodies, func(start, end int) {
		for _, b := range bodies[start:end] {
			b.processStep(dt, gravity)
		}
	})

	pairs := w.findCollisionPairs(bodies)
	w.findCollisions(pairs)
	w.solveCollisions()

	w.parallelFor(len(bodies), w.cfg.MinParallelBodies, func(start, end int) {
		for _, b := range bodies[start:end] {
			b.applyStep(dt, &w.cfg)
		}
	})

	w.triggerCollisionEvents()
	for _, h := range handlers {
		h.UpdateTimers(dt)
	}
	for _, h := range handlers {
		h.RemoveNotPersistedCollisions()
	}
}

func (w *PhysicsWorld) findCollisions(pairs []bodyPair) {
	w.collisions.Reset()
	w.parallelFor(len(pairs), w.cfg.MinParallelPairs, func(start, end int) {
		for _, p := range pairs[start:end] {
			w.dispatcher.Collide(p.a, p.b, &w.collisions)
		}
	})
	w.collisions.Sort()
}

// solveCollisions runs on the stepping goroutine; contacts sharing a body
// must be resolved in order.
func (w *PhysicsWorld) solveCollisions() {
	collisions := w.collisions.Collisions()
	for i := range collisions {
		w.solver.Solve(&collisions[i])
	}
	for range w.cfg.SolverIterations - 1 {
		for i := range collisions {
			w.solver.Relax(&collisions[i])
		}
	}
}

func (w *PhysicsWorld) triggerCollisionEvents() {
	for _, c := range w.collisions.Collisions() {
		hA := c.BodyA.CollisionHandler()
		hB := c.BodyB.CollisionHandler()
		if hA != nil {
			hA.TriggerCollision(c.BodyA.handle, c.BodyB.handle, c.Contact.PositionA, c.Contact.PositionB)
		}
		if hB != nil && hB != hA {
			hB.TriggerCollision(c.BodyA.handle, c.BodyB.handle, c.Contact.PositionA, c.Contact.PositionB)
		}
	}
}

func (w *PhysicsWorld) finishBodies() {
	bodies, _, _ := w.snapshot()
	w.parallelFor(len(bodies), w.cfg.MinParallelBodies, func(start, end int) {
		for _, b := range bodies[start:end] {
			if b.motion == MotionDynamic && !b.isDestroyed() {
				b.finishSimulation()
			}
		}
	})
}

func (w *PhysicsWorld) removeDestroyed() {
	w.removeMu.Lock()
	pending := w.pendingRemoval
	w.pendingRemoval = nil
	w.removeMu.Unlock()
	if len(pending) == 0 {
		return
	}

	_, handlers, _ := w.snapshot()
	for _, body := range pending {
		for _, h := range handlers {
			h.NotifyBodyRemoved(body.handle)
		}
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	for _, body := range pending {
		if !w.bodies.remove(body.handle.handle) {
			continue
		}
		body.form.bodies.Add(-1)
		for i, b := range w.order {
			if b == body {
				w.order = append(w.order[:i], w.order[i+1:]...)
				break
			}
		}
	}
}

// parallelFor splits [0, n) into contiguous slices and runs fn over them on
// the job queue, returning once every slice is done. Below minParallel items
// fn runs once on the calling goroutine.
func (w *PhysicsWorld) parallelFor(n, minParallel int, fn func(start, end int)) {
	if n == 0 {
		return
	}
	if w.queue == nil || n < minParallel || w.queue.Workers() <= 1 {
		fn(0, n)
		return
	}

	slices := min(w.queue.Workers()*w.cfg.SliceMultiple, n)
	size := (n + slices - 1) / slices
	batch := w.queue.NewBatch()
	for start := 0; start < n; start += size {
		end := min(start+size, n)
		batch.Go(func() { fn(start, end) })
	}
	batch.Wait()
}

// InitGPU enables the compute broad phase once the number of candidate bodies
// reaches GPUBroadPhaseThreshold. The world does not take ownership of sys.
func (w *PhysicsWorld) InitGPU(sys *compute.System) error {
	w.step.Lock()
	defer w.step.Unlock()
	if w.gpu != nil {
		return nil
	}
	bp, err := compute.NewBroadPhase(sys, MaxPhysicsObjects, MaxPhysicsObjects*20)
	if err != nil {
		return fmt.Errorf("failed to create GPU broad phase: %w", err)
	}
	w.gpu = bp
	log.Printf("Physics: GPU broad-phase ready (threshold: %d bodies)", w.cfg.GPUBroadPhaseThreshold)
	return nil
}

// UsingGPU reports whether the last substep used the GPU broad phase.
func (w *PhysicsWorld) UsingGPU() bool {
	w.step.Lock()
	defer w.step.Unlock()
	return w.useGPU
}

// Release frees GPU resources.
func (w *PhysicsWorld) Release() {
	w.step.Lock()
	defer w.step.Unlock()
	if w.gpu != nil {
		w.gpu.Release()
		w.gpu = nil
	}
	w.useGPU = false
}
