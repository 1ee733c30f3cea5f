// Package lreader provides a ReadCloser that stops after a fixed number of
// bytes. Download links sometimes keep the connection open past the object's
// end; the limit makes the item size authoritative.
package lreader

import "io"

type lreader struct {
	r      io.ReadCloser // underlying reader
	remain int64         // remaining bytes
}

// New returns a ReadCloser reading at most limit bytes from r. Close always
// closes r.
func New(r io.ReadCloser, limit int64) io.ReadCloser {
	return &lreader{
		r:      r,
		remain: limit,
	}
}

func (l *lreader) Read(p []byte) (int, error) {
	if l.remain <= 0 {
		return 0, io.EOF
	}

	if int64(len(p)) > l.remain {
		p = p[:l.remain]
	}

	n, err := l.r.Read(p)
	l.remain -= int64(n)

	if err != nil {
		return n, err
	}

	if l.remain == 0 {
		err = io.EOF
	}

	return n, err
}

func (l *lreader) Close() error {
	return l.r.Close()
}
