// Package ns provides NullString, an identifier that encodes to JSON null when empty.
//
// The drive backend uses null for "no parent" and "drive root", while the rest of
// the code base treats the empty string as the root. NullString bridges the two.
package ns

import (
	"bytes"
	"encoding/json"
	"fmt"
)

type NullString string

var null = []byte("null")

func (ns NullString) MarshalJSON() ([]byte, error) {
	if ns == "" {
		return null, nil
	}
	return json.Marshal(string(ns))
}

func (ns *NullString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, null) {
		*ns = ""
		return nil
	}
	// some backends hand out numeric ids
	if len(data) > 0 && data[0] != '"' {
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("cannot convert %s to NullString", data)
		}
		*ns = NullString(n.String())
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*ns = NullString(s)
	return nil
}

// Valid reports whether the value is set.
func (ns NullString) Valid() bool { return ns != "" }

func (ns NullString) String() string { return string(ns) }
