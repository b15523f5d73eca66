// Package snapshot assembles the catalog snapshot document: it decodes the
// query output, re-applies membership and ordering stage by stage, and
// provides the canonical encoding, digest and compression of the result.
package snapshot

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"

	"github.com/elliotchance/orderedmap/v2"

	"github.com/dbsmedya/schemacheck/internal/types"
)

// Document is an assembled snapshot. Its fields keep the fixed document
// order. A Document is never modified after assembly.
type Document struct {
	fields *orderedmap.OrderedMap[string, interface{}]
	stats  []StageStats
}

func newDocument(stats []StageStats) *Document {
	return &Document{
		fields: orderedmap.NewOrderedMap[string, interface{}](),
		stats:  stats,
	}
}

// Fields returns the top-level field names in document order.
func (d *Document) Fields() []string {
	return d.fields.Keys()
}

// Get returns the value of a top-level field.
func (d *Document) Get(field string) (interface{}, bool) {
	return d.fields.Get(field)
}

// Rows returns the rows of a sequence category, or nil for other fields.
func (d *Document) Rows(category string) []types.Row {
	v, ok := d.fields.Get(category)
	if !ok {
		return nil
	}
	rows, _ := v.([]types.Row)
	return rows
}

// Database returns the singleton database record.
func (d *Document) Database() types.Row {
	v, _ := d.fields.Get("database")
	row, _ := v.(types.Row)
	return row
}

// Stats returns per-stage pipeline statistics in computation order.
func (d *Document) Stats() []StageStats {
	return d.stats
}

// MarshalJSON writes the fields in document order. Row keys are sorted, so
// the encoding is canonical.
func (d *Document) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for el := d.fields.Front(); el != nil; el = el.Next() {
		if el != d.fields.Front() {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(el.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')

		value, err := encodeValue(el.Value)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", el.Key, err)
		}
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Encode writes the canonical encoding followed by a newline.
func (d *Document) Encode(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc.Encode(d)
}

// Bytes returns the canonical encoding without a trailing newline.
func (d *Document) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := d.Encode(&buf); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Digest returns the hex sha256 of the canonical encoding.
func (d *Document) Digest() (string, error) {
	data, err := d.Bytes()
	if err != nil {
		return "", err
	}
	return DigestBytes(data), nil
}

// DigestBytes returns the hex sha256 of data.
func DigestBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func encodeValue(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
