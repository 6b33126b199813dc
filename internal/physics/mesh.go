package physics

import (
	"fmt"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/go-gl/mathgl/mgl32"
)

// Triangle is a mesh triangle with its precomputed unit normal.
type Triangle struct {
	V0, V1, V2 rl.Vector3
	Normal     rl.Vector3
}

// bvhNode is a node in the bounding volume hierarchy.
type bvhNode struct {
	bounds    AABB
	left      *bvhNode
	right     *bvhNode
	triangles []int // leaf only
}

// TriangleMesh is an indexed triangle soup with a BVH for local-space queries.
type TriangleMesh struct {
	Triangles []Triangle
	root      *bvhNode
}

// NewTriangleMesh builds a mesh from vertices and a flat index list (three per triangle).
// Zero-area triangles are dropped.
func NewTriangleMesh(vertices []rl.Vector3, indices []int) (*TriangleMesh, error) {
	if len(indices) == 0 || len(indices)%3 != 0 {
		return nil, fmt.Errorf("mesh index count %d is not a positive multiple of 3", len(indices))
	}

	m := &TriangleMesh{}
	for i := 0; i < len(indices); i += 3 {
		var tri [3]rl.Vector3
		for k := 0; k < 3; k++ {
			idx := indices[i+k]
			if idx < 0 || idx >= len(vertices) {
				return nil, fmt.Errorf("mesh index %d out of range", idx)
			}
			tri[k] = vertices[idx]
		}

		n, area := normalizeOr(cross(rl.Vector3Subtract(tri[1], tri[0]), rl.Vector3Subtract(tri[2], tri[0])), rl.Vector3{})
		if area < epsilon {
			continue
		}
		m.Triangles = append(m.Triangles, Triangle{V0: tri[0], V1: tri[1], V2: tri[2], Normal: n})
	}
	if len(m.Triangles) == 0 {
		return nil, fmt.Errorf("mesh has no triangles with area")
	}

	m.buildBVH()
	return m, nil
}

// Bounds returns the local AABB of the whole mesh.
func (m *TriangleMesh) Bounds() AABB {
	if m.root == nil {
		return AABB{}
	}
	return m.root.bounds
}

// Query appends to dst the indices of triangles whose bounds overlap box.
func (m *TriangleMesh) Query(box AABB, dst []int) []int {
	return m.query(m.root, box, dst)
}

func (m *TriangleMesh) query(node *bvhNode, box AABB, dst []int) []int {
	if node == nil || !node.bounds.Intersects(box) {
		return dst
	}
	if node.triangles != nil {
		for _, idx := range node.triangles {
			if m.triangleBounds(idx).Intersects(box) {
				dst = append(dst, idx)
			}
		}
		return dst
	}
	dst = m.query(node.left, box, dst)
	return m.query(node.right, box, dst)
}

func (m *TriangleMesh) triangleBounds(idx int) AABB {
	tri := &m.Triangles[idx]
	return EmptyAABB().Include(tri.V0).Include(tri.V1).Include(tri.V2)
}

func (m *TriangleMesh) buildBVH() {
	indices := make([]int, len(m.Triangles))
	for i := range indices {
		indices[i] = i
	}
	m.root = m.buildBVHNode(indices, 0)
}

func (m *TriangleMesh) buildBVHNode(indices []int, depth int) *bvhNode {
	node := &bvhNode{bounds: EmptyAABB()}
	for _, idx := range indices {
		node.bounds = node.bounds.Union(m.triangleBounds(idx))
	}

	if len(indices) <= 4 || depth > 20 {
		node.triangles = indices
		return node
	}

	// split on the longest axis around the mean centroid
	size := rl.Vector3Subtract(node.bounds.Max, node.bounds.Min)
	axis := 0
	if size.Y > size.X {
		axis = 1
	}
	if size.Z > component(size, axis) {
		axis = 2
	}

	mid := m.partitionTriangles(indices, axis)
	if mid == 0 || mid == len(indices) {
		node.triangles = indices
		return node
	}

	node.left = m.buildBVHNode(indices[:mid], depth+1)
	node.right = m.buildBVHNode(indices[mid:], depth+1)
	return node
}

func (m *TriangleMesh) centroid(idx int) rl.Vector3 {
	tri := &m.Triangles[idx]
	return rl.Vector3Scale(rl.Vector3Add(rl.Vector3Add(tri.V0, tri.V1), tri.V2), 1.0/3.0)
}

func (m *TriangleMesh) partitionTriangles(indices []int, axis int) int {
	center := float32(0)
	for _, idx := range indices {
		center += component(m.centroid(idx), axis)
	}
	center /= float32(len(indices))

	left := 0
	right := len(indices) - 1
	for left <= right {
		if component(m.centroid(indices[left]), axis) < center {
			left++
		} else {
			indices[left], indices[right] = indices[right], indices[left]
			right--
		}
	}
	return left
}

// massProperties treats the mesh as a closed, outward-wound solid.
func (m *TriangleMesh) massProperties(density float32) (float32, rl.Vector3, mgl32.Mat3) {
	triangles := make([][3]rl.Vector3, len(m.Triangles))
	for i, tri := range m.Triangles {
		triangles[i] = [3]rl.Vector3{tri.V0, tri.V1, tri.V2}
	}
	return solidMassProperties(triangles, m.Bounds().Center(), density)
}
