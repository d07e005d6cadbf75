package writer

import (
	"io"
	"sync/atomic"
)

// CountingWriter wraps an io.Writer and tracks the number of bytes
// written through it with an atomic counter, grounded on the teacher's
// atomic-counter style in pkg/service/metrics.go.
type CountingWriter struct {
	w     io.Writer
	count atomic.Int64
}

// NewCountingWriter wraps w.
func NewCountingWriter(w io.Writer) *CountingWriter {
	return &CountingWriter{w: w}
}

func (c *CountingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.count.Add(int64(n))
	return n, err
}

// BytesWritten returns the running total of bytes written.
func (c *CountingWriter) BytesWritten() int64 {
	return c.count.Load()
}
