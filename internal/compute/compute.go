// Package compute runs WebGPU compute shaders for the physics broad phase.
// It needs no window or graphics context.
package compute

import (
	"fmt"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
)

// System owns a WebGPU device and the pipelines compiled on it.
type System struct {
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue

	mu        sync.Mutex
	pipelines map[string]*Pipeline
}

// Pipeline is a compiled shader whose entry point is "main".
type Pipeline struct {
	shader   *wgpu.ShaderModule
	pipeline *wgpu.ComputePipeline
	layout   *wgpu.BindGroupLayout
}

// Buffer is device memory bound to a shader slot or copied from.
type Buffer struct {
	buffer *wgpu.Buffer
	size   uint64
}

// Binding attaches a fixed set of buffers to a pipeline's group 0, in
// @binding order. Build it once and reuse it for every dispatch.
type Binding struct {
	pipeline *Pipeline
	group    *wgpu.BindGroup
}

// Readback is a persistent map-readable staging buffer for results.
type Readback struct {
	sys     *System
	staging *wgpu.Buffer
	size    uint64
}

// Copy moves Size bytes from the start of From into a Readback after a dispatch.
type Copy struct {
	From *Buffer
	To   *Readback
	Size uint64
}

type AdapterInfo struct {
	Name       string
	Vendor     string
	Backend    string
	DeviceType string
	Driver     string
}

// NewSystem acquires a high-performance adapter and device. The caller owns the
// returned system and must Release it.
func NewSystem() (*System, error) {
	instance := wgpu.CreateInstance(nil)

	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		instance.Release()
		return nil, fmt.Errorf("compute: no adapter: %w", err)
	}

	device, err := adapter.RequestDevice(nil)
	if err != nil {
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("compute: no device: %w", err)
	}

	return &System{
		instance:  instance,
		adapter:   adapter,
		device:    device,
		queue:     device.GetQueue(),
		pipelines: make(map[string]*Pipeline),
	}, nil
}

func (s *System) Info() AdapterInfo {
	info := s.adapter.GetInfo()
	return AdapterInfo{
		Name:       info.Name,
		Vendor:     info.VendorName,
		Backend:    info.BackendType.String(),
		DeviceType: info.AdapterType.String(),
		Driver:     info.DriverDescription,
	}
}

// Pipeline returns the pipeline compiled from wgsl under name, compiling it on
// first use. Later calls with the same name ignore wgsl.
func (s *System) Pipeline(name, wgsl string) (*Pipeline, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.pipelines[name]; ok {
		return p, nil
	}

	shader, err := s.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          name,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: wgsl},
	})
	if err != nil {
		return nil, fmt.Errorf("compute: %s shader: %w", name, err)
	}
	pipeline, err := s.device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:   name,
		Compute: wgpu.ProgrammableStageDescriptor{Module: shader, EntryPoint: "main"},
	})
	if err != nil {
		shader.Release()
		return nil, fmt.Errorf("compute: %s pipeline: %w", name, err)
	}

	p := &Pipeline{shader: shader, pipeline: pipeline, layout: pipeline.GetBindGroupLayout(0)}
	s.pipelines[name] = p
	return p, nil
}

func (s *System) NewBuffer(label string, size uint64, usage wgpu.BufferUsage) (*Buffer, error) {
	buf, err := s.device.CreateBuffer(&wgpu.BufferDescriptor{Label: label, Size: size, Usage: usage})
	if err != nil {
		return nil, fmt.Errorf("compute: buffer %s: %w", label, err)
	}
	return &Buffer{buffer: buf, size: size}, nil
}

// Upload queues data for the start of buf; it lands before the next dispatch.
func (s *System) Upload(buf *Buffer, data []byte) {
	s.queue.WriteBuffer(buf.buffer, 0, data)
}

func (s *System) Bind(p *Pipeline, buffers ...*Buffer) (*Binding, error) {
	entries := make([]wgpu.BindGroupEntry, len(buffers))
	for i, buf := range buffers {
		entries[i] = wgpu.BindGroupEntry{Binding: uint32(i), Buffer: buf.buffer, Size: buf.size}
	}
	group, err := s.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Layout:  p.layout,
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("compute: bind group: %w", err)
	}
	return &Binding{pipeline: p, group: group}, nil
}

// NewReadback allocates a staging buffer able to receive up to size bytes.
func (s *System) NewReadback(label string, size uint64) (*Readback, error) {
	staging, err := s.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label,
		Size:  size,
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("compute: readback %s: %w", label, err)
	}
	return &Readback{sys: s, staging: staging, size: size}, nil
}

// Dispatch runs workgroups x 1 x 1 groups of b's pipeline and then the copies,
// all in one submission.
func (s *System) Dispatch(b *Binding, workgroups uint32, copies ...Copy) error {
	encoder, err := s.device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("compute: encoder: %w", err)
	}

	pass := encoder.BeginComputePass(nil)
	pass.SetPipeline(b.pipeline.pipeline)
	pass.SetBindGroup(0, b.group, nil)
	pass.DispatchWorkgroups(workgroups, 1, 1)
	pass.End()
	pass.Release()

	for _, c := range copies {
		if c.Size > c.To.size || c.Size > c.From.size {
			encoder.Release()
			return fmt.Errorf("compute: copy of %d bytes exceeds buffer", c.Size)
		}
		encoder.CopyBufferToBuffer(c.From.buffer, 0, c.To.staging, 0, c.Size)
	}
	return s.submit(encoder)
}

func (s *System) submit(encoder *wgpu.CommandEncoder) error {
	commands, err := encoder.Finish(nil)
	encoder.Release()
	if err != nil {
		return fmt.Errorf("compute: finish: %w", err)
	}
	defer commands.Release()
	s.queue.Submit(commands)
	return nil
}

// Fetch copies the first size bytes of src into the staging buffer and passes
// them to fn. Size must be a multiple of 4.
func (r *Readback) Fetch(src *Buffer, size uint64, fn func(data []byte)) error {
	if size == 0 {
		return nil
	}
	if size > r.size || size > src.size {
		return fmt.Errorf("compute: read of %d bytes exceeds buffer", size)
	}
	encoder, err := r.sys.device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("compute: encoder: %w", err)
	}
	encoder.CopyBufferToBuffer(src.buffer, 0, r.staging, 0, size)
	if err := r.sys.submit(encoder); err != nil {
		return err
	}
	return r.Map(size, fn)
}

// Map waits for the queue and passes the first size bytes of the staging
// buffer to fn. fn must not keep data.
func (r *Readback) Map(size uint64, fn func(data []byte)) error {
	done := make(chan error, 1)
	err := r.staging.MapAsync(wgpu.MapModeRead, 0, size, func(status wgpu.BufferMapAsyncStatus) {
		if status != wgpu.BufferMapAsyncStatusSuccess {
			done <- fmt.Errorf("compute: map: %v", status)
			return
		}
		done <- nil
	})
	if err != nil {
		return err
	}
	r.sys.device.Poll(true, nil)
	if err := <-done; err != nil {
		return err
	}

	fn(r.staging.GetMappedRange(0, uint(size)))
	r.staging.Unmap()
	return nil
}

func (r *Readback) Release() {
	r.staging.Release()
}

func (b *Binding) Release() {
	b.group.Release()
}

func (b *Buffer) Release() {
	b.buffer.Release()
}

func (b *Buffer) Size() uint64 {
	return b.size
}

// Release frees the pipelines and the device. Buffers, bindings and readbacks
// must be released first.
func (s *System) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.pipelines {
		p.layout.Release()
		p.pipeline.Release()
		p.shader.Release()
	}
	s.pipelines = nil

	s.queue.Release()
	s.device.Release()
	s.adapter.Release()
	s.instance.Release()
}
