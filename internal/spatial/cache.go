package spatial

import (
	"math"

	"glyphmap/internal/dataset"
	"glyphmap/internal/grid"
)

// DataHash is a cheap fingerprint of the located records: a rolling sum over
// lat+lng and the point count. Distinct point sets can collide.
type DataHash struct {
	Sum   int64
	Count int
}

func hashRecords(recs []dataset.Record) DataHash {
	var h DataHash
	for _, r := range recs {
		if !r.Location.Valid {
			continue
		}
		h.Sum = h.Sum*31 + int64(math.Round((r.Location.Lat+r.Location.Lng)*1e6))
		h.Count++
	}
	return h
}

// CacheKey identifies the inputs of a static pass. A snapshot is reused only
// when every field matches.
type CacheKey struct {
	OriginX  float64
	OriginY  float64
	Zoom     int
	Size     float64
	Padding  float64
	GridType grid.Type
	Data     DataHash
	Width    float64
	Height   float64
}

// CacheStats is a diagnostic view of both caches.
type CacheStats struct {
	Key               CacheKey
	KeyValid          bool
	Hits              int
	Misses            int
	LastHit           bool
	Cells             int
	ScreenPoints      int
	ScreenCacheValid  bool
	DynamicRecomputes int
}
