package record

import "strings"

// UnknownValue is displayed for missing or empty fields.
const UnknownValue = "Unknown"

// Field is one displayable (name, value) pair.
type Field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// PopupFields lists the record's displayable fields in key order, skipping the
// coordinate and cluster fields.
func PopupFields(r Record) []Field {
	fields := make([]Field, 0, r.Len())
	for _, key := range r.Keys() {
		switch strings.ToLower(key) {
		case latitudeName, longitudeName, ClusterField:
			continue
		}
		v, _ := r.Get(key)
		display := FormatValue(v)
		if display == "" {
			display = UnknownValue
		}
		fields = append(fields, Field{Name: key, Value: display})
	}
	return fields
}
