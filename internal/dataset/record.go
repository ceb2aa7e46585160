// Package dataset loads point records, infers a per-field type schema and
// aggregates field values per grid cell.
package dataset

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Location is the ground position of a record.
type Location struct {
	Lat   float64
	Lng   float64
	Valid bool
}

// Record is an ordered set of named scalar values plus a location. Values are
// float64, string, time.Time, bool or nil. Records are not modified after
// loading.
type Record struct {
	fields   []string
	values   map[string]any
	Location Location
}

// NewRecord builds a record. When fields is nil the keys of values are used
// in sorted order.
func NewRecord(fields []string, values map[string]any, loc Location) Record {
	if fields == nil {
		fields = make([]string, 0, len(values))
		for k := range values {
			fields = append(fields, k)
		}
		sort.Strings(fields)
	}
	v := make(map[string]any, len(values))
	for k, val := range values {
		v[k] = val
	}
	return Record{fields: fields, values: v, Location: loc}
}

// Fields returns the field names in load order.
func (r Record) Fields() []string { return r.fields }

// Get returns the value of field, nil when absent.
func (r Record) Get(field string) any { return r.values[field] }

// Has reports whether the field is present, even with a nil value.
func (r Record) Has(field string) bool {
	_, ok := r.values[field]
	return ok
}

// Map returns a copy of the record's values.
func (r Record) Map() map[string]any {
	out := make(map[string]any, len(r.values))
	for k, v := range r.values {
		out[k] = v
	}
	return out
}

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
}

// Coerce converts one delimited-text cell: empty is nil, then a number, then
// a date, otherwise the string itself.
func Coerce(s string) any {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if f, ok := parseNumber(s); ok {
		return f
	}
	if t, ok := parseDate(s); ok {
		return t
	}
	return s
}

func parseNumber(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ToNumber converts v to a float64 when it holds a finite number or a
// numeric string.
func ToNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, !math.IsNaN(n) && !math.IsInf(n, 0)
	case float32:
		return ToNumber(float64(n))
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	case string:
		return parseNumber(n)
	case fmt.Stringer:
		return parseNumber(n.String())
	}
	return 0, false
}

// ToTime converts v to a time when it holds a time or a parseable date
// string.
func ToTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, !t.IsZero()
	case string:
		return parseDate(t)
	}
	return time.Time{}, false
}

// FormatValue renders a value for display and as a frequency key.
func FormatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case time.Time:
		if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
			return t.Format("2006-01-02")
		}
		return t.Format(time.RFC3339)
	}
	return fmt.Sprint(v)
}

// valueKey returns a comparable identity for set and frequency bookkeeping.
func valueKey(v any) any {
	switch t := v.(type) {
	case string, float64, bool, int, int64:
		return t
	case time.Time:
		return t.UnixNano()
	}
	return FormatValue(v)
}
