package physics

import (
	"sync"
	"testing"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rigid3d/internal/engine"
	"rigid3d/internal/jobs"
)

func newTestWorld(t *testing.T, mutate func(*Config)) *PhysicsWorld {
	t.Helper()
	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	w, err := NewPhysicsWorld(cfg, nil)
	require.NoError(t, err)
	return w
}

func zeroGravity(cfg *Config) {
	cfg.Gravity = [3]float32{}
}

func sphereForm(t *testing.T, w *PhysicsWorld, radius float32) *PhysicsForm {
	t.Helper()
	form := w.CreatePhysicsForm(DefaultFormParams())
	form.CreateSphere(radius, 1)
	return form
}

func spawn(t *testing.T, w *PhysicsWorld, form *PhysicsForm, pos rl.Vector3, motion MotionType) (*PhysicsBody, *engine.GameObject) {
	t.Helper()
	obj := engine.NewGameObject("body")
	obj.SetPosition(pos)
	body, err := w.CreatePhysicsBody(obj, form.Handle(), motion)
	require.NoError(t, err)
	return body, obj
}

type countingListener struct {
	started, persisted, ended int
}

func (l *countingListener) CollisionStarted(*BodyCollisionData)   { l.started++ }
func (l *countingListener) CollisionPersisted(*BodyCollisionData) { l.persisted++ }
func (l *countingListener) CollisionEnded(*BodyCollisionData)     { l.ended++ }

func TestSphereSettlesOnPlane(t *testing.T) {
	w := newTestWorld(t, func(cfg *Config) {
		cfg.Substep = 0.006
		cfg.Gravity = [3]float32{0, -96, 0}
	})

	ground := w.CreatePhysicsForm(DefaultFormParams())
	ground.CreatePlane(rl.Vector3{Y: 1}, 0)
	_, err := w.CreatePhysicsBody(nil, ground.Handle(), MotionStatic)
	require.NoError(t, err)

	params := DefaultFormParams()
	params.Restitution = 0
	ball := w.CreatePhysicsForm(params)
	ball.CreateSphere(0.1, 20)
	body, obj := spawn(t, w, ball, rl.Vector3{Y: 1}, MotionDynamic)

	for range 500 {
		w.Step()
	}

	assert.InDelta(t, 0.1, body.Position().Y, 0.005)
	assert.InDelta(t, 0.1, obj.Position().Y, 0.005)
	assert.Less(t, rl.Vector3Length(body.LinearVelocity()), float32(0.05))
	assert.True(t, body.IsSleeping())
}

func TestSleepWakeRoundTrip(t *testing.T) {
	w := newTestWorld(t, zeroGravity)
	body, _ := spawn(t, w, sphereForm(t, w, 0.5), rl.Vector3{}, MotionDynamic)

	for range 60 {
		w.Step()
	}
	require.True(t, body.IsSleeping())

	body.AddLinearVelocity(rl.Vector3{X: 1})
	assert.False(t, body.IsSleeping())
}

func TestSleepTimerResetsWhileMoving(t *testing.T) {
	w := newTestWorld(t, zeroGravity)
	body, _ := spawn(t, w, sphereForm(t, w, 0.5), rl.Vector3{}, MotionDynamic)
	body.SetDamping(0, 0)
	body.SetLinearVelocity(rl.Vector3{X: 2})

	for range 120 {
		w.Step()
	}
	assert.False(t, body.IsSleeping())
	assert.InDelta(t, 4, body.Position().X, 0.01)
}

func TestCollisionLifecycle(t *testing.T) {
	w := newTestWorld(t, zeroGravity)
	form := sphereForm(t, w, 0.5)
	a, _ := spawn(t, w, form, rl.Vector3{}, MotionDynamic)
	b, _ := spawn(t, w, form, rl.Vector3{X: 0.9}, MotionDynamic)

	listener := &countingListener{}
	handler := w.CreateCollisionHandler(listener)
	a.SetCollisionHandler(handler)
	b.SetCollisionHandler(handler)

	var ended []*BodyCollisionData
	handler.OnEnded.AddListener(func(d *BodyCollisionData) { ended = append(ended, d) })

	for range 3 {
		w.Step()
	}
	assert.Equal(t, 1, listener.started)
	assert.Equal(t, 2, listener.persisted)
	assert.Zero(t, listener.ended)

	b.SetTransform(rl.Vector3{X: 10}, rl.QuaternionIdentity())
	for range 3 {
		w.Step()
	}
	assert.Equal(t, 1, listener.ended)
	require.Len(t, ended, 1)
	assert.Equal(t, a.Handle(), ended[0].BodyA)
	assert.Equal(t, b.Handle(), ended[0].BodyB)
	assert.Zero(t, handler.Len())
}

func TestDestroyBodyEndsCollisionsAndInvalidatesHandle(t *testing.T) {
	w := newTestWorld(t, zeroGravity)
	form := sphereForm(t, w, 0.5)
	other := sphereForm(t, w, 0.5)
	a, _ := spawn(t, w, form, rl.Vector3{}, MotionDynamic)
	b, _ := spawn(t, w, other, rl.Vector3{X: 0.9}, MotionDynamic)

	listener := &countingListener{}
	handler := w.CreateCollisionHandler(listener)
	a.SetCollisionHandler(handler)

	w.Step()
	require.Equal(t, 1, listener.started)

	require.NoError(t, w.DestroyPhysicsBody(b.Handle()))
	_, err := w.Body(b.Handle())
	assert.ErrorIs(t, err, ErrInvalidHandle)
	assert.ErrorIs(t, w.DestroyPhysicsBody(b.Handle()), ErrInvalidHandle)

	w.Step()
	assert.Equal(t, 1, listener.ended)
	assert.Equal(t, 1, w.BodyCount())
	assert.NoError(t, w.DestroyPhysicsForm(other.Handle()))
	assert.ErrorIs(t, w.DestroyPhysicsForm(form.Handle()), ErrFormInUse)
}

func TestFormRejectsShapesWhileInUse(t *testing.T) {
	w := newTestWorld(t, zeroGravity)
	form := sphereForm(t, w, 0.5)
	body, _ := spawn(t, w, form, rl.Vector3{}, MotionDynamic)
	mass := form.Mass()

	assert.ErrorIs(t, form.CreateOBB(rl.Vector3{X: 1, Y: 1, Z: 1}, 1), ErrFormInUse)
	assert.Len(t, form.Shapes(), 1)
	assert.Equal(t, mass, form.Mass())
	assert.NotPanics(t, w.Step)

	require.NoError(t, w.DestroyPhysicsBody(body.Handle()))
	w.Step()
	require.NoError(t, form.CreateOBB(rl.Vector3{X: 1, Y: 1, Z: 1}, 1))
	assert.Len(t, form.Shapes(), 2)
	assert.Greater(t, form.Mass(), mass)

	spawn(t, w, form, rl.Vector3{}, MotionDynamic)
	assert.NotPanics(t, w.Step)
}

func TestBodyAccessorsWhileStepping(t *testing.T) {
	w := newTestWorld(t, nil)
	body, _ := spawn(t, w, sphereForm(t, w, 0.5), rl.Vector3{Y: 5}, MotionDynamic)

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
				_ = body.AABB()
				body.AddLinearVelocity(rl.Vector3{X: 0.001})
			}
		}
	}()
	for range 20 {
		w.Step()
	}
	close(done)
	wg.Wait()

	w.Step()
	box := body.AABB()
	assert.True(t, box.Contains(body.Position()))
	assert.InDelta(t, 1, box.Max.Y-box.Min.Y, 1e-4)
}

func TestCreateBodyErrors(t *testing.T) {
	w := newTestWorld(t, nil)

	_, err := w.CreatePhysicsBody(nil, FormHandle{}, MotionDynamic)
	assert.ErrorIs(t, err, ErrInvalidHandle)

	empty := w.CreatePhysicsForm(DefaultFormParams())
	_, err = w.CreatePhysicsBody(nil, empty.Handle(), MotionDynamic)
	assert.ErrorIs(t, err, ErrEmptyForm)

	plane := w.CreatePhysicsForm(DefaultFormParams())
	plane.CreatePlane(rl.Vector3{Y: 1}, 0)
	body, err := w.CreatePhysicsBody(nil, plane.Handle(), MotionDynamic)
	require.NoError(t, err)
	assert.True(t, body.IsStatic())
}

func TestBroadPhaseFiltering(t *testing.T) {
	w := newTestWorld(t, zeroGravity)
	form := sphereForm(t, w, 1)

	staticA, _ := spawn(t, w, form, rl.Vector3{}, MotionStatic)
	staticB, _ := spawn(t, w, form, rl.Vector3{X: 0.5}, MotionStatic)
	sleepA, _ := spawn(t, w, form, rl.Vector3{Y: 0.5}, MotionDynamic)
	sleepB, _ := spawn(t, w, form, rl.Vector3{Y: 1}, MotionDynamic)
	sleepA.sleeping, sleepB.sleeping = true, true

	bodies := w.Bodies()
	for _, b := range bodies {
		b.prepareForSimulation()
	}
	assert.Empty(t, w.findCollisionPairs(bodies))

	awake, _ := spawn(t, w, form, rl.Vector3{Z: 0.5}, MotionDynamic)
	bodies = w.Bodies()
	for _, b := range bodies {
		b.prepareForSimulation()
	}
	pairs := w.findCollisionPairs(bodies)
	assert.Len(t, pairs, 4)
	for _, p := range pairs {
		assert.True(t, p.a == awake || p.b == awake, "pair without the awake body: %v %v", p.a.handle, p.b.handle)
		assert.True(t, p.a.handle.less(p.b.handle))
	}
	_ = staticA
	_ = staticB

	awake.SetCollisionFilter(2, 2)
	for _, b := range bodies {
		b.prepareForSimulation()
	}
	assert.Empty(t, w.findCollisionPairs(bodies))
}

func TestParallelStepMatchesInline(t *testing.T) {
	build := func(queue *jobs.Queue) *PhysicsWorld {
		cfg := DefaultConfig()
		cfg.MinParallelBodies = 1
		cfg.MinParallelPairs = 1
		w, err := NewPhysicsWorld(cfg, queue)
		require.NoError(t, err)

		ground := w.CreatePhysicsForm(DefaultFormParams())
		ground.CreatePlane(rl.Vector3{Y: 1}, 0)
		_, err = w.CreatePhysicsBody(nil, ground.Handle(), MotionStatic)
		require.NoError(t, err)

		box := w.CreatePhysicsForm(DefaultFormParams())
		box.CreateOBB(rl.Vector3{X: 0.5, Y: 0.5, Z: 0.5}, 1)
		for i := range 16 {
			spawn(t, w, box, rl.Vector3{X: float32(i%4) * 1.1, Y: 0.6 + float32(i/4)*1.05}, MotionDynamic)
		}
		return w
	}

	queue := jobs.NewQueue(4)
	defer queue.Close()
	inline, parallel := build(nil), build(queue)
	for range 120 {
		inline.Step()
		parallel.Step()
	}

	a, b := inline.Bodies(), parallel.Bodies()
	require.Len(t, b, len(a))
	for i := range a {
		assert.Equal(t, a[i].Position(), b[i].Position(), "body %d", i)
	}
}

func TestBoxStackComesToRest(t *testing.T) {
	w := newTestWorld(t, nil)
	ground := w.CreatePhysicsForm(DefaultFormParams())
	require.NoError(t, ground.CreatePlane(rl.Vector3{Y: 1}, 0))
	_, err := w.CreatePhysicsBody(nil, ground.Handle(), MotionStatic)
	require.NoError(t, err)

	box := w.CreatePhysicsForm(DefaultFormParams())
	require.NoError(t, box.CreateOBB(rl.Vector3{X: 0.5, Y: 0.5, Z: 0.5}, 1))
	var stack []*PhysicsBody
	for i := range 3 {
		body, _ := spawn(t, w, box, rl.Vector3{Y: 0.5 + float32(i)}, MotionDynamic)
		stack = append(stack, body)
	}

	for range 600 {
		w.Step()
	}
	for i, body := range stack {
		assert.InDelta(t, 0.5+float64(i), body.Position().Y, 0.05, "box %d", i)
		assert.InDelta(t, 0, body.LinearVelocity().Y, 0.05, "box %d", i)
	}
}

func TestContactsWithStaticBodiesSolveLast(t *testing.T) {
	w := newTestWorld(t, nil)
	ground := w.CreatePhysicsForm(DefaultFormParams())
	require.NoError(t, ground.CreatePlane(rl.Vector3{Y: 1}, 0))
	plane, err := w.CreatePhysicsBody(nil, ground.Handle(), MotionStatic)
	require.NoError(t, err)
	a, _ := spawn(t, w, sphereForm(t, w, 0.5), rl.Vector3{Y: 0.4}, MotionDynamic)
	b, _ := spawn(t, w, sphereForm(t, w, 0.5), rl.Vector3{Y: 1.3}, MotionDynamic)

	var c CollisionCollector
	c.Add(Collision{BodyA: plane, BodyB: a})
	c.Add(Collision{BodyA: a, BodyB: b})
	c.Sort()

	got := c.Collisions()
	require.Len(t, got, 2)
	assert.Same(t, b, got[0].BodyB)
	assert.Same(t, plane, got[1].BodyA)
}

func TestProcessAccumulatesSubsteps(t *testing.T) {
	w := newTestWorld(t, func(cfg *Config) {
		cfg.Substep = 0.25
		cfg.MaxSubsteps = 3
	})
	spawn(t, w, sphereForm(t, w, 0.5), rl.Vector3{}, MotionDynamic)

	assert.Equal(t, 0, w.Process(0.125))
	assert.Equal(t, 1, w.Process(0.125))
	assert.Equal(t, 2, w.Process(0.5))
	assert.Equal(t, 3, w.Process(2))
	assert.Equal(t, 0, w.Process(0.125))
}

func TestEntityTeleportIsAdopted(t *testing.T) {
	w := newTestWorld(t, zeroGravity)
	body, obj := spawn(t, w, sphereForm(t, w, 0.5), rl.Vector3{}, MotionDynamic)
	body.sleeping = true

	obj.SetPosition(rl.Vector3{X: 5})
	w.Step()

	assert.Equal(t, float32(5), body.Position().X)
	assert.False(t, body.IsSleeping())
}

func TestAxisLockKeepsBodyUpright(t *testing.T) {
	w := newTestWorld(t, zeroGravity)
	body, _ := spawn(t, w, sphereForm(t, w, 0.5), rl.Vector3{}, MotionDynamic)
	body.SetAxisLock(AxisLock{Linear: [3]bool{false, true, false}, Angular: [3]bool{true, true, true}})

	body.AddLinearVelocity(rl.Vector3{X: 1, Y: 3})
	body.AddAngularVelocity(rl.Vector3{Z: 2})
	w.Step()

	assert.Zero(t, body.LinearVelocity().Y)
	assert.Equal(t, rl.Vector3{}, body.AngularVelocity())
	assert.Greater(t, body.Position().X, float32(0))
	assert.Zero(t, body.Position().Y)
}
