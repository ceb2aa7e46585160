package dataset

import (
	"errors"
	"fmt"
)

// ErrNoNumericValues is wrapped by AggregationError when a numeric
// aggregation sees only non-numeric values.
var ErrNoNumericValues = errors.New("no numeric values")

// UnsupportedFormatError reports a load source of none of the recognised
// shapes.
type UnsupportedFormatError struct {
	Source any
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("dataset: unsupported source format %T", e.Source)
}

// AggregationError reports a failed field aggregation within one bucket.
type AggregationError struct {
	Field string
	Kind  AggregationKind
	Err   error
}

func (e *AggregationError) Error() string {
	return fmt.Sprintf("dataset: aggregate %s(%s): %v", e.Kind, e.Field, e.Err)
}

func (e *AggregationError) Unwrap() error { return e.Err }
