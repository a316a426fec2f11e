package record

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Column names matched case-insensitively against the first record's keys.
const (
	latitudeName  = "latitude"
	longitudeName = "longitude"
)

var groupNames = map[string]struct{}{
	"beatcode":  {},
	"beat code": {},
}

// Columns holds the resolved key names of a batch.
type Columns struct {
	Latitude  string
	Longitude string
	// Group is the beat code column; empty when HasGroup is false.
	Group    string
	HasGroup bool
}

// Point is a (latitude, longitude) pair with finite components.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Resolve locates the latitude, longitude and optional group columns.
//
// Only the first record's keys are inspected: callers must supply a batch with a
// uniform schema. When several keys match, the first one in key order wins.
func Resolve(records []Record) (Columns, error) {
	if len(records) == 0 {
		return Columns{}, ErrEmpty
	}
	var cols Columns
	for _, key := range records[0].Keys() {
		lower := strings.ToLower(key)
		switch {
		case lower == latitudeName && cols.Latitude == "":
			cols.Latitude = key
		case lower == longitudeName && cols.Longitude == "":
			cols.Longitude = key
		case !cols.HasGroup:
			if _, ok := groupNames[lower]; ok {
				cols.Group = key
				cols.HasGroup = true
			}
		}
	}
	if cols.Latitude == "" || cols.Longitude == "" {
		return Columns{}, fmt.Errorf("%w: missing required latitude/longitude columns", ErrSchema)
	}
	return cols, nil
}

// Points extracts one Point per record. The whole batch fails on the first row
// whose coordinates are not finite numbers.
func Points(records []Record, cols Columns) ([]Point, error) {
	points := make([]Point, len(records))
	for i, r := range records {
		latRaw, _ := r.Get(cols.Latitude)
		lat, ok := ParseCoordinate(latRaw)
		if !ok {
			return nil, &CoordinateError{Row: i, Field: cols.Latitude, Value: latRaw}
		}
		lngRaw, _ := r.Get(cols.Longitude)
		lng, ok := ParseCoordinate(lngRaw)
		if !ok {
			return nil, &CoordinateError{Row: i, Field: cols.Longitude, Value: lngRaw}
		}
		points[i] = Point{Lat: lat, Lng: lng}
	}
	return points, nil
}

// ParseCoordinate converts a scalar field value into a finite float.
func ParseCoordinate(v any) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case int32:
		f = float64(t)
	case json.Number:
		parsed, err := t.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// GroupValue returns the lower-cased string form of the record's group value,
// used only when counting distinct groups. Absent values normalize to "".
func GroupValue(r Record, cols Columns) string {
	if !cols.HasGroup {
		return ""
	}
	v, ok := r.Get(cols.Group)
	if !ok || v == nil {
		return ""
	}
	return strings.ToLower(FormatValue(v))
}

// FormatValue renders a scalar the way it is displayed to users.
func FormatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case bool:
		return strconv.FormatBool(t)
	case json.Number:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}
