package core

import (
	"fmt"
	"sync"

	"github.com/armon/circbuf"
)

// defaultCapturedOutputSize bounds how much stdout/stderr a captured job
// (e.g. jobs.ShellJob) keeps in memory; circbuf.Buffer discards the
// oldest bytes once full rather than growing unbounded.
const defaultCapturedOutputSize = 64 * 1024

// BufferPool recycles circbuf.Buffer instances used to capture job output,
// avoiding an allocation on every firing of a high-frequency job.
type BufferPool struct {
	size int64
	pool sync.Pool
}

// NewBufferPool returns a pool of fixed-capacity circular buffers.
func NewBufferPool(size int64) *BufferPool {
	if size <= 0 {
		size = defaultCapturedOutputSize
	}
	bp := &BufferPool{size: size}
	bp.pool.New = func() any {
		buf, err := circbuf.NewBuffer(bp.size)
		if err != nil {
			return nil
		}
		return buf
	}
	return bp
}

// Get returns a reset buffer ready for use.
func (p *BufferPool) Get() (*circbuf.Buffer, error) {
	v := p.pool.Get()
	buf, ok := v.(*circbuf.Buffer)
	if !ok || buf == nil {
		return circbuf.NewBuffer(p.size)
	}
	buf.Reset()
	return buf, nil
}

// Put returns buf to the pool, silently discarding it if its capacity does
// not match this pool's (e.g. a caller passed a foreign buffer).
func (p *BufferPool) Put(buf *circbuf.Buffer) {
	if buf == nil || buf.Size() != p.size {
		return
	}
	p.pool.Put(buf)
}

// DefaultBufferPool is shared by jobs that do not need a dedicated
// capture size.
var DefaultBufferPool = NewBufferPool(defaultCapturedOutputSize)

func newBufferOverflowError(limit int64) error {
	return fmt.Errorf("%w: captured output exceeds %d bytes", ErrInvalidConfiguration, limit)
}
