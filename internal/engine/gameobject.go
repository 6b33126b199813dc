package engine

import (
	"sync"
	"sync/atomic"

	rl "github.com/gen2brain/raylib-go/raylib"
)

var nextUID atomic.Uint64

// Transform is a local position, orientation and scale relative to the parent.
type Transform struct {
	Position rl.Vector3
	Rotation rl.Quaternion
	Scale    rl.Vector3
}

// GameObject is a named scene node carrying components.
//
// Its transform is guarded by a mutex: physics writes it back from the
// stepping goroutine while gameplay code may read it elsewhere.
type GameObject struct {
	UID      uint64
	Name     string
	Tags     []string
	Active   bool
	Scene    *Scene
	Parent   *GameObject
	Children []*GameObject

	mu         sync.RWMutex
	transform  Transform
	components []Component
	started    bool
}

func NewGameObject(name string) *GameObject {
	return &GameObject{
		UID:    nextUID.Add(1),
		Name:   name,
		Active: true,
		transform: Transform{
			Rotation: rl.QuaternionIdentity(),
			Scale:    rl.Vector3{X: 1, Y: 1, Z: 1},
		},
		components: make([]Component, 0),
		Children:   make([]*GameObject, 0),
	}
}

func (g *GameObject) Transform() Transform {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.transform
}

func (g *GameObject) Position() rl.Vector3 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.transform.Position
}

func (g *GameObject) Rotation() rl.Quaternion {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.transform.Rotation
}

func (g *GameObject) Scale() rl.Vector3 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.transform.Scale
}

func (g *GameObject) SetPosition(p rl.Vector3) {
	g.mu.Lock()
	g.transform.Position = p
	g.mu.Unlock()
}

func (g *GameObject) SetRotation(q rl.Quaternion) {
	g.mu.Lock()
	g.transform.Rotation = q
	g.mu.Unlock()
}

func (g *GameObject) SetScale(s rl.Vector3) {
	g.mu.Lock()
	g.transform.Scale = s
	g.mu.Unlock()
}

func (g *GameObject) AddComponent(c Component) {
	c.SetGameObject(g)
	g.components = append(g.components, c)
}

// GetComponent returns the first component of type T, or the zero value.
func GetComponent[T Component](g *GameObject) T {
	var zero T
	for _, c := range g.components {
		if typed, ok := c.(T); ok {
			return typed
		}
	}
	return zero
}

func (g *GameObject) Start() {
	if g.started {
		return
	}
	for _, c := range g.components {
		c.Start()
	}
	g.started = true
}

func (g *GameObject) Update(deltaTime float32) {
	if !g.Active {
		return
	}
	for _, c := range g.components {
		c.Update(deltaTime)
	}
}

// Destroy tells every component the object is going away.
func (g *GameObject) Destroy() {
	for _, c := range g.components {
		if d, ok := c.(Destroyer); ok {
			d.OnDestroy()
		}
	}
}

func (g *GameObject) Components() []Component {
	return g.components
}

func (g *GameObject) HasTag(tag string) bool {
	for _, t := range g.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

func (g *GameObject) AddChild(child *GameObject) {
	child.Parent = g
	g.Children = append(g.Children, child)
}

func (g *GameObject) RemoveChild(child *GameObject) {
	for i, c := range g.Children {
		if c == child {
			g.Children = append(g.Children[:i], g.Children[i+1:]...)
			child.Parent = nil
			return
		}
	}
}

func (g *GameObject) WorldPosition() rl.Vector3 {
	t := g.Transform()
	if g.Parent == nil {
		return t.Position
	}
	parentScale := g.Parent.WorldScale()
	scaled := rl.Vector3Multiply(t.Position, parentScale)
	rotated := rl.Vector3RotateByQuaternion(scaled, g.Parent.WorldRotation())
	return rl.Vector3Add(g.Parent.WorldPosition(), rotated)
}

func (g *GameObject) WorldRotation() rl.Quaternion {
	local := g.Rotation()
	if g.Parent == nil {
		return local
	}
	return rl.QuaternionMultiply(g.Parent.WorldRotation(), local)
}

func (g *GameObject) WorldScale() rl.Vector3 {
	local := g.Scale()
	if g.Parent == nil {
		return local
	}
	return rl.Vector3Multiply(g.Parent.WorldScale(), local)
}
