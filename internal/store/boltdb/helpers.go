package boltdb

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"go.etcd.io/bbolt"
)

// prefs is the gob record stored under the theme key. New fields must be
// added at the end to keep old records decodable.
type prefs struct {
	Theme string
}

func (p *prefs) theme() Theme {
	if p.Theme == string(ThemeDark) {
		return ThemeDark
	}
	return ThemeLight
}

func loadPrefs(tx *bbolt.Tx, p *prefs) error {
	data := tx.Bucket(prefsBucket).Get(themeKey)
	if data == nil {
		return nil
	}
	return deserialize(data, p)
}

func savePrefs(tx *bbolt.Tx, p *prefs) error {
	data, err := serialize(p)
	if err != nil {
		return err
	}
	return tx.Bucket(prefsBucket).Put(themeKey, data)
}

func serialize(v interface{}) ([]byte, error) {
	var buffer bytes.Buffer
	if err := gob.NewEncoder(&buffer).Encode(v); err != nil {
		return nil, fmt.Errorf("failed to serialize %T: %w", v, err)
	}
	return buffer.Bytes(), nil
}

// deserialize decodes data into v. bbolt values are only valid inside the
// transaction, gob copies what it needs.
func deserialize(data []byte, v interface{}) error {
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(v); err != nil {
		return fmt.Errorf("failed to deserialize %T: %w", v, err)
	}
	return nil
}
