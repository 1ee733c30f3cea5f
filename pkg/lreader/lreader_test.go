package lreader

import (
	"bytes"
	"io"
	"testing"
)

type closer struct {
	io.Reader
	closed bool
}

func (c *closer) Close() error {
	c.closed = true
	return nil
}

func TestLimitReader(t *testing.T) {
	tt := []struct {
		name          string
		input         string
		limit         int64
		expected      string
		expectedError error
	}{
		{
			name:          "Exact limit",
			input:         "This is a test string",
			limit:         10,
			expected:      "This is a ",
			expectedError: io.EOF,
		},
		{
			name:          "Lower limit",
			input:         "This is a test string",
			limit:         5,
			expected:      "This ",
			expectedError: io.EOF,
		},
		{
			name:     "Higher limit",
			input:    "This is a test string",
			limit:    50,
			expected: "This is a test string",
		},
		{
			name:          "Zero limit",
			input:         "This is a test string",
			limit:         0,
			expected:      "",
			expectedError: io.EOF,
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			rc := &closer{Reader: bytes.NewBufferString(tc.input)}
			lReader := New(rc, tc.limit)

			buffer := make([]byte, len(tc.input))
			n, err := lReader.Read(buffer)

			// trim buffer to actual read size
			buffer = buffer[:n]

			if string(buffer) != tc.expected {
				t.Errorf("expected %s, got %s", tc.expected, buffer)
			}

			if err != tc.expectedError {
				t.Errorf("expected error %v, got %v", tc.expectedError, err)
			}

			if err := lReader.Close(); err != nil || !rc.closed {
				t.Errorf("expected underlying reader to be closed")
			}
		})
	}
}
