package capture

import (
	"bytes"
	"sync"
)

// Reusable buffer pool for the compressed intermediate produced while
// converting sensor frames. Every converted frame is JPEG encoded once and
// decoded once; pooling the buffer avoids a fresh backing array per frame.
//
// Usage: acquireBuffer() returns an empty buffer. After the decoded image has
// been produced the caller must call recycleBuffer(buf); the buffer must not
// be accessed afterwards. Buffers that grew beyond maxPooledBuffer are
// dropped so a single huge frame does not pin memory for the session.

const maxPooledBuffer = 4 << 20

var bufferPool = sync.Pool{New: func() any { return new(bytes.Buffer) }}

// acquireBuffer returns an empty reusable buffer.
func acquireBuffer() *bytes.Buffer {
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

// recycleBuffer returns buf to the pool.
func recycleBuffer(buf *bytes.Buffer) {
	if buf == nil || buf.Cap() > maxPooledBuffer {
		return
	}
	bufferPool.Put(buf)
}
