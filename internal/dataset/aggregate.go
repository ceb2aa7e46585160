package dataset

import (
	"github.com/montanaflynn/stats"
)

// CellAggregate is the aggregated view of one bucket: the record count plus
// one result per configured field. Field results are float64 for numeric
// kinds, int for count and unique_count, the original value for mode and a
// map[string]int for frequency.
type CellAggregate struct {
	Count  int
	Fields map[string]any
}

// AggregateCellData runs every configured aggregation over the non-null
// values of its field. Fields with no values in the bucket are omitted. On
// the first failing field the count-only aggregate is returned with an
// *AggregationError.
func AggregateCellData(records []Record, cfg AggregationConfig) (CellAggregate, error) {
	agg := CellAggregate{Count: len(records)}
	if len(records) == 0 || len(cfg) == 0 {
		return agg, nil
	}
	agg.Fields = make(map[string]any, len(cfg))
	for _, field := range cfg.Fields() {
		kind := cfg[field]
		var vals []any
		for _, r := range records {
			if v := r.Get(field); v != nil {
				vals = append(vals, v)
			}
		}
		if len(vals) == 0 {
			continue
		}
		res, err := Aggregate(kind, vals)
		if err != nil {
			return CellAggregate{Count: len(records)}, &AggregationError{Field: field, Kind: kind, Err: err}
		}
		agg.Fields[field] = res
	}
	return agg, nil
}

// Aggregate applies one aggregation kind to non-null values.
func Aggregate(kind AggregationKind, vals []any) (any, error) {
	switch kind {
	case Count:
		return len(vals), nil
	case Mode:
		return mode(vals), nil
	case UniqueCount:
		return len(distinct(vals)), nil
	case Frequency:
		return frequency(vals), nil
	}

	nums := numbers(vals)
	if len(nums) == 0 {
		return nil, ErrNoNumericValues
	}
	switch kind {
	case Sum:
		return stats.Sum(nums)
	case Mean:
		return stats.Mean(nums)
	case Median:
		return stats.Median(nums)
	case Min:
		return stats.Min(nums)
	case Max:
		return stats.Max(nums)
	case Variance:
		return stats.PopulationVariance(nums)
	case StdDev:
		return stats.StandardDeviationPopulation(nums)
	}
	_, err := ParseKind(string(kind))
	return nil, err
}

// numbers keeps the numeric entries; others are excluded, not coerced.
func numbers(vals []any) []float64 {
	out := make([]float64, 0, len(vals))
	for _, v := range vals {
		if n, ok := ToNumber(v); ok {
			out = append(out, n)
		}
	}
	return out
}

// mode returns the most frequent value; ties go to the value seen first.
func mode(vals []any) any {
	counts := map[any]int{}
	var order []any
	first := map[any]any{}
	for _, v := range vals {
		k := valueKey(v)
		if counts[k] == 0 {
			order = append(order, k)
			first[k] = v
		}
		counts[k]++
	}
	var best any
	bestN := 0
	for _, k := range order {
		if counts[k] > bestN {
			best, bestN = first[k], counts[k]
		}
	}
	return best
}

func frequency(vals []any) map[string]int {
	out := map[string]int{}
	for _, v := range vals {
		out[FormatValue(v)]++
	}
	return out
}
