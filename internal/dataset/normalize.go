package dataset

import (
	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// NormalizeMethod selects how NormalizeValues rescales numbers.
type NormalizeMethod string

const (
	MinMax  NormalizeMethod = "minmax"
	ZScore  NormalizeMethod = "zscore"
	Decimal NormalizeMethod = "decimal"
)

// NormalizeValues rescales the numeric entries of values. Non-numeric
// entries are dropped first; if none remain, or the method is unknown,
// values is returned unchanged. A zero range, deviation or maximum yields
// all zeros.
func NormalizeValues(values []any, method NormalizeMethod) []any {
	nums := numbers(values)
	if len(nums) == 0 {
		return values
	}
	out := make([]float64, len(nums))
	switch method {
	case MinMax:
		lo, hi := floats.Min(nums), floats.Max(nums)
		if rng := hi - lo; rng != 0 {
			for i, v := range nums {
				out[i] = (v - lo) / rng
			}
		}
	case ZScore:
		mean := stat.Mean(nums, nil)
		sd, _ := stats.StandardDeviationPopulation(nums)
		if sd != 0 {
			for i, v := range nums {
				out[i] = (v - mean) / sd
			}
		}
	case Decimal:
		if hi := floats.Max(nums); hi != 0 {
			for i, v := range nums {
				out[i] = v / hi
			}
		}
	default:
		return values
	}
	res := make([]any, len(out))
	for i, v := range out {
		res[i] = v
	}
	return res
}

// FieldStats summarises one numeric field over the whole load.
type FieldStats struct {
	Min   float64
	Max   float64
	Mean  float64
	Count int
}

// ComputeGlobalStats summarises every numeric field of the schema.
func ComputeGlobalStats(records []Record, s Schema) map[string]FieldStats {
	out := map[string]FieldStats{}
	for _, name := range s.ByType(Numeric) {
		var nums []float64
		for _, r := range records {
			if n, ok := ToNumber(r.Get(name)); ok {
				nums = append(nums, n)
			}
		}
		if len(nums) == 0 {
			continue
		}
		out[name] = FieldStats{
			Min:   floats.Min(nums),
			Max:   floats.Max(nums),
			Mean:  stat.Mean(nums, nil),
			Count: len(nums),
		}
	}
	return out
}
