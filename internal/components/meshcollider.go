package components

import (
	"unsafe"

	rl "github.com/gen2brain/raylib-go/raylib"

	"rigid3d/internal/engine"
	"rigid3d/internal/physics"
)

// MeshCollider collides against triangle geometry given in the GameObject's
// local space. With Convex set the vertices are hulled and reduced to the
// world's vertex budget, which is the only mesh form dynamic bodies should use.
type MeshCollider struct {
	engine.BaseComponent
	Vertices []rl.Vector3
	Indices  []int
	Convex   bool
	Density  float32
}

func NewMeshCollider(vertices []rl.Vector3, indices []int) *MeshCollider {
	return &MeshCollider{Vertices: vertices, Indices: indices, Density: 1}
}

// NewMeshColliderFromModel extracts the triangles of every mesh in model.
func NewMeshColliderFromModel(model rl.Model) *MeshCollider {
	vertices, indices := MeshFromModel(model)
	return NewMeshCollider(vertices, indices)
}

func (m *MeshCollider) AddShapes(form *physics.PhysicsForm, convexBudget int) error {
	if m.Convex {
		return form.CreateConvexFromPoints(m.Vertices, convexBudget, m.Density)
	}
	return form.CreateMesh(m.Vertices, m.Indices, m.Density)
}

// MeshFromModel flattens a model's meshes into one vertex list with three
// indices per triangle. Non-indexed meshes use every three vertices as a triangle.
func MeshFromModel(model rl.Model) ([]rl.Vector3, []int) {
	if model.MeshCount == 0 || model.Meshes == nil {
		return nil, nil
	}

	var vertices []rl.Vector3
	var indices []int
	for _, mesh := range unsafe.Slice(model.Meshes, model.MeshCount) {
		if mesh.Vertices == nil || mesh.VertexCount == 0 {
			continue
		}
		base := len(vertices)
		raw := unsafe.Slice(mesh.Vertices, mesh.VertexCount*3)
		for i := int32(0); i < mesh.VertexCount; i++ {
			vertices = append(vertices, rl.Vector3{X: raw[i*3], Y: raw[i*3+1], Z: raw[i*3+2]})
		}

		if mesh.Indices != nil {
			for _, idx := range unsafe.Slice(mesh.Indices, mesh.TriangleCount*3) {
				indices = append(indices, base+int(idx))
			}
			continue
		}
		for i := 0; i+2 < int(mesh.VertexCount); i += 3 {
			indices = append(indices, base+i, base+i+1, base+i+2)
		}
	}
	return vertices, indices
}
