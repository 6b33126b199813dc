package components

import (
	"log"

	rl "github.com/gen2brain/raylib-go/raylib"

	"rigid3d/internal/engine"
	"rigid3d/internal/physics"
)

// Rigidbody binds its GameObject to a body in a PhysicsWorld.
//
// On Start it creates the body from Form, or when Form is unset from a new
// form built out of the Collider components on the same GameObject. The body
// is destroyed together with the GameObject.
type Rigidbody struct {
	engine.BaseComponent

	World  *physics.PhysicsWorld
	Form   physics.FormHandle
	Params physics.FormParams
	Static bool

	Channel, Mask uint32
	Lock          physics.AxisLock
	Handler       *physics.CollisionHandler

	body *physics.PhysicsBody
	err  error
}

func NewRigidbody(world *physics.PhysicsWorld) *Rigidbody {
	return &Rigidbody{
		World:   world,
		Params:  physics.DefaultFormParams(),
		Channel: 1,
		Mask:    physics.AllChannels,
	}
}

func (r *Rigidbody) Start() {
	g := r.GetGameObject()
	if r.World == nil || g == nil {
		return
	}

	if !r.Form.IsValid() {
		form, err := r.buildForm(g)
		if err != nil {
			r.fail(g, err)
			return
		}
		r.Form = form.Handle()
	}

	motion := physics.MotionDynamic
	if r.Static {
		motion = physics.MotionStatic
	}
	body, err := r.World.CreatePhysicsBody(g, r.Form, motion)
	if err != nil {
		r.fail(g, err)
		return
	}

	body.UserData = g
	body.SetCollisionFilter(r.Channel, r.Mask)
	body.SetAxisLock(r.Lock)
	if r.Handler != nil {
		body.SetCollisionHandler(r.Handler)
	}
	r.body = body
}

// buildForm scales the form by the GameObject's largest world scale axis.
func (r *Rigidbody) buildForm(g *engine.GameObject) (*physics.PhysicsForm, error) {
	params := r.Params
	s := g.WorldScale()
	params.Scale = max(s.X, s.Y, s.Z)

	form := r.World.CreatePhysicsForm(params)
	for _, c := range g.Components() {
		collider, ok := c.(Collider)
		if !ok {
			continue
		}
		if err := collider.AddShapes(form, r.World.Config().ConvexVertexBudget); err != nil {
			return nil, err
		}
	}
	return form, nil
}

func (r *Rigidbody) fail(g *engine.GameObject, err error) {
	log.Printf("Rigidbody: %s: %v", g.Name, err)
	r.err = err
}

func (r *Rigidbody) OnDestroy() {
	if r.body == nil {
		return
	}
	if err := r.World.DestroyPhysicsBody(r.body.Handle()); err != nil {
		log.Printf("Rigidbody: %v", err)
	}
	r.body = nil
}

// Body returns the simulated body, or nil before Start or after a failed Start.
func (r *Rigidbody) Body() *physics.PhysicsBody {
	return r.body
}

// Err returns the error that kept Start from creating a body.
func (r *Rigidbody) Err() error {
	return r.err
}

func (r *Rigidbody) Velocity() rl.Vector3 {
	if r.body == nil {
		return rl.Vector3{}
	}
	return r.body.LinearVelocity()
}

// AddImpulse changes the velocity by impulse / mass and wakes the body.
func (r *Rigidbody) AddImpulse(impulse rl.Vector3) {
	if r.body == nil || r.body.Form().InverseMass() == 0 {
		return
	}
	r.body.AddLinearVelocity(rl.Vector3Scale(impulse, r.body.Form().InverseMass()))
}

func (r *Rigidbody) Wake() {
	if r.body != nil {
		r.body.ForceWake()
	}
}

func (r *Rigidbody) IsSleeping() bool {
	return r.body != nil && r.body.IsSleeping()
}
