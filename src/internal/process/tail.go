package process

import (
	"bytes"
	"sync"
)

// tailBuffer keeps the last max bytes written to it
type tailBuffer struct {
	mu        sync.Mutex
	buf       []byte
	max       int
	truncated bool
}

func newTailBuffer(max int) *tailBuffer {
	return &tailBuffer{max: max}
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.max; over > 0 {
		t.buf = append(t.buf[:0], t.buf[over:]...)
		t.truncated = true
	}
	return len(p), nil
}

// String returns the retained output. When older output was dropped, the
// result starts at the first complete line.
func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := t.buf
	if t.truncated {
		if i := bytes.IndexByte(out, '\n'); i >= 0 && i < len(out)-1 {
			out = out[i+1:]
		}
	}
	return string(bytes.TrimRight(out, "\r\n"))
}
