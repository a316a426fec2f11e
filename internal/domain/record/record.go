// Package record models the tabular input rows and the fields the engine reads from them.
package record

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// ClusterField is the field added to every labeled record.
const ClusterField = "cluster"

// Record is an ordered mapping from field name to scalar value. Key order is
// preserved from the input (including JSON decoding) through to the output.
type Record struct {
	fields *orderedmap.OrderedMap[string, any]
}

// New creates an empty record.
func New() Record {
	return Record{fields: orderedmap.New[string, any]()}
}

// Of builds a record from alternating key/value arguments, e.g.
// Of("latitude", "40.0", "longitude", "-70.0"). A trailing key without a value is
// stored as nil.
func Of(kv ...any) Record {
	r := New()
	for i := 0; i < len(kv); i += 2 {
		key, _ := kv[i].(string)
		var val any
		if i+1 < len(kv) {
			val = kv[i+1]
		}
		r.Set(key, val)
	}
	return r
}

// Keys returns field names in insertion order.
func (r Record) Keys() []string {
	if r.fields == nil {
		return nil
	}
	keys := make([]string, 0, r.fields.Len())
	for pair := r.fields.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// Get returns the value stored under key.
func (r Record) Get(key string) (any, bool) {
	if r.fields == nil {
		return nil, false
	}
	return r.fields.Get(key)
}

// Set stores val under key. Existing keys keep their position.
func (r *Record) Set(key string, val any) {
	if r.fields == nil {
		r.fields = orderedmap.New[string, any]()
	}
	r.fields.Set(key, val)
}

// Len returns the number of fields.
func (r Record) Len() int {
	if r.fields == nil {
		return 0
	}
	return r.fields.Len()
}

// Clone returns a shallow copy that can be modified without touching r.
func (r Record) Clone() Record {
	out := New()
	if r.fields == nil {
		return out
	}
	for pair := r.fields.Oldest(); pair != nil; pair = pair.Next() {
		out.fields.Set(pair.Key, pair.Value)
	}
	return out
}

// WithCluster returns a copy of r carrying label in the cluster field. All other
// fields are preserved verbatim; an existing cluster field is overwritten in place.
func (r Record) WithCluster(label int) Record {
	out := r.Clone()
	out.Set(ClusterField, label)
	return out
}

// MarshalJSON encodes the record as a JSON object in key order.
func (r Record) MarshalJSON() ([]byte, error) {
	if r.fields == nil {
		return []byte("{}"), nil
	}
	return r.fields.MarshalJSON()
}

// UnmarshalJSON decodes a JSON object, keeping its key order.
func (r *Record) UnmarshalJSON(data []byte) error {
	m := orderedmap.New[string, any]()
	if err := m.UnmarshalJSON(data); err != nil {
		return err
	}
	r.fields = m
	return nil
}
