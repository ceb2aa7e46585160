package dataset

import (
	"fmt"
	"sort"
	"strings"
)

// DataType is the inferred measurement type of a field.
type DataType string

const (
	Nominal  DataType = "nominal"
	Ordinal  DataType = "ordinal"
	Numeric  DataType = "numeric"
	Temporal DataType = "temporal"
	Unknown  DataType = "unknown"
)

const sampleSize = 5

// FieldSchema describes one field across all loaded records.
type FieldSchema struct {
	Name        string
	Type        DataType
	HasNulls    bool
	UniqueCount int
	Sample      []any
}

// Schema is the ordered set of field schemas of one load.
type Schema struct {
	Fields []FieldSchema
	index  map[string]int
}

// Field looks a field up by name.
func (s Schema) Field(name string) (FieldSchema, bool) {
	i, ok := s.index[name]
	if !ok {
		return FieldSchema{}, false
	}
	return s.Fields[i], true
}

// Names returns field names in first-seen order.
func (s Schema) Names() []string {
	out := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		out[i] = f.Name
	}
	return out
}

// ByType returns the names of fields of type t in first-seen order.
func (s Schema) ByType(t DataType) []string {
	var out []string
	for _, f := range s.Fields {
		if f.Type == t {
			out = append(out, f.Name)
		}
	}
	return out
}

// ordinalVocabularies is a strict allowlist: a field is ordinal only when its
// distinct lower-cased values are exactly one of these sets.
var ordinalVocabularies = [][]string{
	{"low", "medium", "high"},
	{"small", "medium", "large"},
	{"beginner", "intermediate", "advanced"},
	{"poor", "fair", "good", "excellent"},
	{"never", "rarely", "sometimes", "often", "always"},
	{"strongly disagree", "disagree", "neutral", "agree", "strongly agree"},
}

// DetectSchema infers a schema from all records.
func DetectSchema(records []Record) Schema {
	s := Schema{index: map[string]int{}}
	values := map[string][]any{}
	for _, r := range records {
		for _, f := range r.Fields() {
			if _, ok := s.index[f]; !ok {
				s.index[f] = len(s.Fields)
				s.Fields = append(s.Fields, FieldSchema{Name: f})
			}
		}
	}
	for i := range s.Fields {
		fs := &s.Fields[i]
		for _, r := range records {
			v := r.Get(fs.Name)
			if v == nil {
				fs.HasNulls = true
				continue
			}
			values[fs.Name] = append(values[fs.Name], v)
		}
		vals := values[fs.Name]
		fs.Type = detectType(vals)
		fs.UniqueCount = len(distinct(vals))
		n := min(sampleSize, len(vals))
		fs.Sample = append([]any(nil), vals[:n]...)
	}
	return s
}

func detectType(vals []any) DataType {
	if len(vals) == 0 {
		return Unknown
	}
	numeric := true
	for _, v := range vals {
		if _, ok := ToNumber(v); !ok {
			numeric = false
			break
		}
	}
	if numeric {
		return Numeric
	}
	if _, ok := ToTime(vals[0]); ok {
		return Temporal
	}
	if isOrdinal(vals) {
		return Ordinal
	}
	return Nominal
}

func isOrdinal(vals []any) bool {
	set := map[string]struct{}{}
	for _, v := range vals {
		set[strings.ToLower(strings.TrimSpace(FormatValue(v)))] = struct{}{}
	}
	if len(set) <= 2 {
		return false
	}
	for _, vocab := range ordinalVocabularies {
		if len(vocab) != len(set) {
			continue
		}
		match := true
		for _, w := range vocab {
			if _, ok := set[w]; !ok {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func distinct(vals []any) map[any]struct{} {
	set := make(map[any]struct{}, len(vals))
	for _, v := range vals {
		set[valueKey(v)] = struct{}{}
	}
	return set
}

// AggregationKind names a per-field aggregation function.
type AggregationKind string

const (
	Count       AggregationKind = "count"
	Sum         AggregationKind = "sum"
	Mean        AggregationKind = "mean"
	Median      AggregationKind = "median"
	Mode        AggregationKind = "mode"
	Min         AggregationKind = "min"
	Max         AggregationKind = "max"
	StdDev      AggregationKind = "std_dev"
	Variance    AggregationKind = "variance"
	UniqueCount AggregationKind = "unique_count"
	Frequency   AggregationKind = "frequency"
)

var kinds = []AggregationKind{Count, Sum, Mean, Median, Mode, Min, Max, StdDev, Variance, UniqueCount, Frequency}

// ParseKind validates an aggregation kind name.
func ParseKind(s string) (AggregationKind, error) {
	k := AggregationKind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range kinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("dataset: unknown aggregation %q", s)
}

// DefaultKind is the aggregation used for a field of type t unless
// overridden.
func DefaultKind(t DataType) AggregationKind {
	switch t {
	case Numeric:
		return Mean
	case Nominal, Ordinal:
		return Frequency
	}
	return Count
}

// AggregationConfig maps field name to aggregation kind.
type AggregationConfig map[string]AggregationKind

// Fields returns the configured field names sorted.
func (c AggregationConfig) Fields() []string {
	out := make([]string, 0, len(c))
	for f := range c {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// DefaultAggregation derives a config for fields from the schema. Unknown
// field names are skipped.
func DefaultAggregation(s Schema, fields []string) AggregationConfig {
	cfg := AggregationConfig{}
	for _, f := range fields {
		fs, ok := s.Field(f)
		if !ok {
			continue
		}
		cfg[f] = DefaultKind(fs.Type)
	}
	return cfg
}
