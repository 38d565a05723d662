package analytics

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"stockpulse/backend/internal/domain"
	"stockpulse/backend/internal/store"
)

// Sequence gap-fills sparse period rows onto the given boundaries. Position i
// holds the total of the rows falling in boundary i's bucket, or zero. Rows and
// boundaries are compared after truncation to unit in loc, so two timestamps on
// the same day (or month, or year) always land in the same bucket.
func Sequence(boundaries []time.Time, unit domain.TruncUnit, rows []domain.PeriodTotal, loc *time.Location) []float64 {
	byKey := make(map[string]decimal.Decimal, len(rows))
	for _, row := range rows {
		key := bucketKey(row.Period, unit, loc)
		byKey[key] = byKey[key].Add(row.Total)
	}

	values := make([]float64, len(boundaries))
	for i, boundary := range boundaries {
		total, ok := byKey[bucketKey(boundary, unit, loc)]
		if !ok {
			continue
		}
		values[i] = finite(total.InexactFloat64())
	}
	return values
}

// Buckets pairs the current-window values with their labels.
func Buckets(spec WindowSpec, values []float64) []domain.Bucket {
	buckets := make([]domain.Bucket, len(spec.Current))
	for i, boundary := range spec.Current {
		var value float64
		if i < len(values) {
			value = finite(values[i])
		}
		buckets[i] = domain.Bucket{Value: value, Label: spec.Label(boundary)}
	}
	return buckets
}

func bucketKey(t time.Time, unit domain.TruncUnit, loc *time.Location) string {
	start := store.Truncate(t, unit, loc)
	switch unit {
	case domain.TruncYear:
		return start.Format("2006")
	case domain.TruncMonth:
		return start.Format("2006-01")
	default:
		return start.Format("2006-01-02")
	}
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
