// Package types contains the row and identifier-set types shared by the
// catalog declarations and the snapshot pipeline.
package types

import "sort"

// Row is one catalog row as decoded from row_to_json. Numbers are kept as
// json.Number so oids and counters survive unchanged.
type Row map[string]interface{}

// Get returns the value of a column and whether the column exists.
func (r Row) Get(column string) (interface{}, bool) {
	v, ok := r[column]
	return v, ok
}

// IDSet is an immutable set of object identifiers.
type IDSet struct {
	keys map[string]struct{}
}

// NewIDSet builds a set from identifier values. Values without a key
// (null, objects) are skipped.
func NewIDSet(values ...interface{}) IDSet {
	keys := make(map[string]struct{}, len(values))
	for _, v := range values {
		if k, ok := Key(v); ok {
			keys[k] = struct{}{}
		}
	}
	return IDSet{keys: keys}
}

// CollectIDs builds a set from one column of the given rows.
func CollectIDs(rows []Row, column string) IDSet {
	values := make([]interface{}, 0, len(rows))
	for _, r := range rows {
		values = append(values, r[column])
	}
	return NewIDSet(values...)
}

// Has reports whether v identifies a member of the set.
func (s IDSet) Has(v interface{}) bool {
	k, ok := Key(v)
	if !ok {
		return false
	}
	_, found := s.keys[k]
	return found
}

// Len returns the number of identifiers in the set.
func (s IDSet) Len() int {
	return len(s.keys)
}

// Keys returns the canonical keys in sorted order.
func (s IDSet) Keys() []string {
	keys := make([]string, 0, len(s.keys))
	for k := range s.keys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// CollectTuples builds a set of composite identifiers from several columns
// of the given rows, such as (attrelid, attnum).
func CollectTuples(rows []Row, columns ...string) IDSet {
	keys := make(map[string]struct{}, len(rows))
	for _, r := range rows {
		values := make([]interface{}, len(columns))
		for i, c := range columns {
			values[i] = r[c]
		}
		if k, ok := TupleKey(values...); ok {
			keys[k] = struct{}{}
		}
	}
	return IDSet{keys: keys}
}

// HasTuple reports whether the composite identifier is a member of the set.
func (s IDSet) HasTuple(values ...interface{}) bool {
	k, ok := TupleKey(values...)
	if !ok {
		return false
	}
	_, found := s.keys[k]
	return found
}

// TupleKey joins the keys of several values. Any null component makes the
// whole tuple unidentifiable.
func TupleKey(values ...interface{}) (string, bool) {
	var out string
	for i, v := range values {
		k, ok := Key(v)
		if !ok {
			return "", false
		}
		if i > 0 {
			out += "\x00"
		}
		out += k
	}
	return out, true
}
