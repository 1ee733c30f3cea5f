// Package httprange builds Range request headers and parses the Content-Range
// header of 206 Partial Content responses.
//
// Only the bytes unit and single ranges are supported, which is what download
// links served by object stores hand back in practice.
package httprange

import (
	"errors"
	"fmt"
	"strings"
)

type Range struct {
	Start  int64
	Length int64
	Size   int64 // -1 when the server reports "*"
}

var ErrInvalid = errors.New("invalid content-range header format")

// Header returns the Range header asking for everything from start to the end.
func Header(start int64) string {
	return fmt.Sprintf("bytes=%d-", start)
}

// ParseContentRange parses a header of the form "bytes start-end/size".
func ParseContentRange(header string) (*Range, error) {
	unit, spec, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || unit != "bytes" {
		return nil, ErrInvalid
	}
	span, total, ok := strings.Cut(spec, "/")
	if !ok {
		return nil, ErrInvalid
	}

	var start, end int64
	if _, err := fmt.Sscanf(span, "%d-%d", &start, &end); err != nil {
		return nil, ErrInvalid
	}

	size := int64(-1)
	if total != "*" {
		if _, err := fmt.Sscanf(total, "%d", &size); err != nil {
			return nil, ErrInvalid
		}
	}

	if start < 0 || start > end || (size >= 0 && end >= size) {
		return nil, ErrInvalid
	}

	return &Range{Start: start, Length: end - start + 1, Size: size}, nil
}
