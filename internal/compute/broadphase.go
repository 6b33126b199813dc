// GPU-accelerated broad-phase collision detection
package compute

import (
	"errors"
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// ErrPairOverflow means more pairs overlapped than the output buffer holds.
// The caller should fall back to a CPU broad phase for that step.
var ErrPairOverflow = errors.New("compute: broad-phase pair buffer overflow")

// BroadPhase finds overlapping axis-aligned boxes on the GPU.
type BroadPhase struct {
	system  *System
	binding *Binding

	boxBuffer     *Buffer // Input: boxes
	pairBuffer    *Buffer // Output: overlapping pairs
	countBuffer   *Buffer // Output: number of pairs found
	uniformBuffer *Buffer // Input: box count

	countReadback *Readback
	pairReadback  *Readback

	maxObjects uint32
	maxPairs   uint32
}

// Box is an axis-aligned box packed as two vec4s; W is padding.
type Box struct {
	MinX, MinY, MinZ, _ float32
	MaxX, MaxY, MaxZ, _ float32
}

// NewBox packs min and max corners.
func NewBox(minX, minY, minZ, maxX, maxY, maxZ float32) Box {
	return Box{MinX: minX, MinY: minY, MinZ: minZ, MaxX: maxX, MaxY: maxY, MaxZ: maxZ}
}

// CollisionPair holds two indices into the DetectPairs input, A < B.
type CollisionPair struct {
	A, B uint32
}

const broadPhaseShader = `
// Each thread tests one box against every box with a higher index,
// giving n*(n-1)/2 tests with no duplicates.

struct Box {
    lo: vec4<f32>,
    hi: vec4<f32>,
}

struct Pair {
    a: u32,
    b: u32,
}

@group(0) @binding(0) var<storage, read> boxes: array<Box>;
@group(0) @binding(1) var<storage, read_write> pairs: array<Pair>;
@group(0) @binding(2) var<storage, read_write> pairCount: atomic<u32>;
@group(0) @binding(3) var<uniform> objectCount: vec4<u32>;

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let count = objectCount.x;
    let i = global_id.x;
    if (i >= count) {
        return;
    }

    let a = boxes[i];
    for (var j = i + 1u; j < count; j = j + 1u) {
        let b = boxes[j];
        let overlap = a.lo.xyz <= b.hi.xyz && b.lo.xyz <= a.hi.xyz;
        if (all(overlap)) {
            let idx = atomicAdd(&pairCount, 1u);
            if (idx < arrayLength(&pairs)) {
                pairs[idx] = Pair(i, j);
            }
        }
    }
}
`

// NewBroadPhase compiles the overlap shader and allocates buffers for up to
// maxObjects boxes and maxPairs output pairs.
func NewBroadPhase(sys *System, maxObjects, maxPairs uint32) (*BroadPhase, error) {
	if sys == nil {
		return nil, errors.New("compute: nil system")
	}
	pipeline, err := sys.Pipeline("broadphase", broadPhaseShader)
	if err != nil {
		return nil, err
	}
	bp := &BroadPhase{system: sys, maxObjects: maxObjects, maxPairs: maxPairs}
	if err := bp.allocate(pipeline); err != nil {
		bp.Release()
		return nil, err
	}
	return bp, nil
}

func (bp *BroadPhase) allocate(pipeline *Pipeline) error {
	var err error
	sys := bp.system
	if bp.boxBuffer, err = sys.NewBuffer("boxes", uint64(bp.maxObjects)*32,
		wgpu.BufferUsageStorage|wgpu.BufferUsageCopyDst); err != nil {
		return err
	}
	if bp.pairBuffer, err = sys.NewBuffer("pairs", uint64(bp.maxPairs)*8,
		wgpu.BufferUsageStorage|wgpu.BufferUsageCopySrc); err != nil {
		return err
	}
	if bp.countBuffer, err = sys.NewBuffer("pairCount", 4,
		wgpu.BufferUsageStorage|wgpu.BufferUsageCopySrc|wgpu.BufferUsageCopyDst); err != nil {
		return err
	}
	if bp.uniformBuffer, err = sys.NewBuffer("objectCount", 16,
		wgpu.BufferUsageUniform|wgpu.BufferUsageCopyDst); err != nil {
		return err
	}
	if bp.countReadback, err = sys.NewReadback("pairCount_read", 4); err != nil {
		return err
	}
	if bp.pairReadback, err = sys.NewReadback("pairs_read", uint64(bp.maxPairs)*8); err != nil {
		return err
	}
	bp.binding, err = sys.Bind(pipeline, bp.boxBuffer, bp.pairBuffer, bp.countBuffer, bp.uniformBuffer)
	return err
}

// MaxObjects is the largest input DetectPairs accepts.
func (bp *BroadPhase) MaxObjects() int {
	return int(bp.maxObjects)
}

// DetectPairs returns every overlapping pair of boxes, indexed by input order.
// The order of the returned pairs is unspecified. Only the pairs found are
// read back, not the whole pair buffer.
func (bp *BroadPhase) DetectPairs(boxes []Box) ([]CollisionPair, error) {
	if len(boxes) < 2 {
		return nil, nil
	}
	if uint32(len(boxes)) > bp.maxObjects {
		return nil, fmt.Errorf("compute: %d boxes exceeds broad-phase capacity %d", len(boxes), bp.maxObjects)
	}

	objectCount := uint32(len(boxes))
	bp.system.Upload(bp.boxBuffer, wgpu.ToBytes(boxes))
	bp.system.Upload(bp.countBuffer, wgpu.ToBytes([]uint32{0}))
	bp.system.Upload(bp.uniformBuffer, wgpu.ToBytes([]uint32{objectCount, 0, 0, 0}))

	// the count copy rides along with the dispatch
	err := bp.system.Dispatch(bp.binding, (objectCount+255)/256,
		Copy{From: bp.countBuffer, To: bp.countReadback, Size: 4})
	if err != nil {
		return nil, err
	}
	var pairCount uint32
	if err := bp.countReadback.Map(4, func(data []byte) {
		pairCount = toSlice[uint32](data)[0]
	}); err != nil {
		return nil, err
	}
	if pairCount == 0 {
		return nil, nil
	}
	if pairCount > bp.maxPairs {
		return nil, ErrPairOverflow
	}

	pairs := make([]CollisionPair, pairCount)
	err = bp.pairReadback.Fetch(bp.pairBuffer, uint64(pairCount)*8, func(data []byte) {
		copy(pairs, toSlice[CollisionPair](data))
	})
	if err != nil {
		return nil, err
	}
	return pairs, nil
}

// Release frees the buffers. The pipeline stays cached on the System.
func (bp *BroadPhase) Release() {
	if bp.binding != nil {
		bp.binding.Release()
		bp.binding = nil
	}
	for _, r := range []*Readback{bp.countReadback, bp.pairReadback} {
		if r != nil {
			r.Release()
		}
	}
	bp.countReadback, bp.pairReadback = nil, nil
	for _, buf := range []*Buffer{bp.boxBuffer, bp.pairBuffer, bp.countBuffer, bp.uniformBuffer} {
		if buf != nil {
			buf.Release()
		}
	}
	bp.boxBuffer, bp.pairBuffer, bp.countBuffer, bp.uniformBuffer = nil, nil, nil, nil
}

func toSlice[T any](data []byte) []T {
	return wgpu.FromBytes[T](data)
}
