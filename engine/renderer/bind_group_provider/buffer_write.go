package bind_group_provider

import "github.com/cogentcore/webgpu/wgpu"

// BufferWrite is one uniform upload: Data is copied into Buffer at Offset, then Buffer is
// bound at Binding of Provider.
type BufferWrite struct {
	Provider BindGroupProvider
	Binding  int
	Buffer   *wgpu.Buffer
	Offset   uint64
	Data     []byte
}

// Apply queues the copy and rebinds the buffer. A write without data only rebinds.
//
// Parameters:
//   - queue: the device queue the copy is submitted on
func (w BufferWrite) Apply(queue *wgpu.Queue) {
	if len(w.Data) > 0 {
		queue.WriteBuffer(w.Buffer, w.Offset, w.Data)
	}
	w.Provider.SetBuffer(w.Binding, w.Buffer)
}
