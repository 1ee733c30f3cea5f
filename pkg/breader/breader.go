// Package breader provides a reader that keeps reading until the buffer is full.
package breader

import (
	"io"
	"sync"
)

// BReader wraps an io.Reader so a single Read fills p unless the source fails.
// It gives network streams the all-or-error contract io.ReaderAt callers expect.
type BReader struct {
	reader io.Reader
	mu     sync.Mutex
}

func New(r io.Reader) *BReader {
	return &BReader{reader: r}
}

// Read fills p, returning io.ErrUnexpectedEOF when the source ends early and
// io.EOF when it was already exhausted.
func (br *BReader) Read(p []byte) (int, error) {
	br.mu.Lock()
	defer br.mu.Unlock()

	return io.ReadFull(br.reader, p)
}
