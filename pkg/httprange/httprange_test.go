package httprange

import (
	"net/http"
	"testing"
)

func TestParseContentRange(t *testing.T) {
	tests := []struct {
		name    string
		headers http.Header
		start   int64
		length  int64
		size    int64
		err     bool
	}{
		{
			name:    "Invalid header",
			headers: http.Header{"Content-Range": []string{"invalid"}},
			err:     true,
		},
		{
			name:    "Range with start and end",
			headers: http.Header{"Content-Range": []string{"bytes 100-500/4707476"}},
			start:   100,
			length:  401,
			size:    4707476,
		},
		{
			name:    "Range to the end",
			headers: http.Header{"Content-Range": []string{"bytes 100-4707475/4707476"}},
			start:   100,
			length:  4707376,
			size:    4707476,
		},
		{
			name:    "Unknown size",
			headers: http.Header{"Content-Range": []string{"bytes 0-9/*"}},
			start:   0,
			length:  10,
			size:    -1,
		},
		{
			name:    "End past size",
			headers: http.Header{"Content-Range": []string{"bytes 0-10/10"}},
			err:     true,
		},
		{
			name:    "Wrong unit",
			headers: http.Header{"Content-Range": []string{"items 0-1/2"}},
			err:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := &http.Response{Header: tt.headers}

			hr, err := ParseContentRange(resp.Header.Get("Content-Range"))

			if (err != nil) != tt.err {
				t.Errorf("ParseContentRange() error = %v, wantErr %v", err, tt.err)
				return
			}
			if err == nil {
				if hr.Start != tt.start || hr.Length != tt.length || hr.Size != tt.size {
					t.Errorf("ParseContentRange() = %v/%v/%v, want %v/%v/%v",
						hr.Start, hr.Length, hr.Size, tt.start, tt.length, tt.size)
				}
			}
		})
	}
}

func TestHeader(t *testing.T) {
	if got := Header(4096); got != "bytes=4096-" {
		t.Errorf("Header() = %q", got)
	}
}
