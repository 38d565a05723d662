package analytics

import (
	"strings"
	"time"

	"stockpulse/backend/internal/domain"
	"stockpulse/backend/internal/store"
)

// WindowSpec describes the buckets of one analytics request. Current and
// Comparison hold bucket starts ordered oldest to newest; the comparison
// window ends exactly where the current one begins.
type WindowSpec struct {
	Granularity  domain.Granularity
	BucketCount  int
	Unit         domain.TruncUnit
	Current      []time.Time
	Comparison   []time.Time
	From         time.Time
	To           time.Time
	TrailingDays int
}

// ParseGranularity maps a request token to a granularity. Unknown tokens,
// including the empty string, fall back to year.
func ParseGranularity(token string) domain.Granularity {
	switch strings.ToLower(strings.TrimSpace(token)) {
	case "week", "weekly":
		return domain.GranularityWeek
	case "month", "monthly":
		return domain.GranularityMonth
	default:
		return domain.GranularityYear
	}
}

func Resolve(g domain.Granularity, now time.Time, loc *time.Location) WindowSpec {
	if loc == nil {
		loc = time.Local
	}

	spec := WindowSpec{Granularity: g}
	switch g {
	case domain.GranularityWeek:
		spec.BucketCount, spec.Unit = 7, domain.TruncDay
	case domain.GranularityMonth:
		spec.BucketCount, spec.Unit = 12, domain.TruncMonth
	default:
		spec.Granularity = domain.GranularityYear
		spec.BucketCount, spec.Unit = 5, domain.TruncYear
	}
	spec.TrailingDays = trailingDays(spec.Granularity)

	anchor := store.Truncate(now, spec.Unit, loc)
	total := spec.BucketCount * 2
	starts := make([]time.Time, total)
	for i := range starts {
		starts[i] = shift(anchor, spec.Unit, i-(total-1))
	}

	spec.Comparison = starts[:spec.BucketCount:spec.BucketCount]
	spec.Current = starts[spec.BucketCount:]
	spec.From = starts[0]
	spec.To = shift(anchor, spec.Unit, 1)
	return spec
}

func (w WindowSpec) Label(t time.Time) string {
	switch w.Unit {
	case domain.TruncDay:
		return t.Format("Mon")
	case domain.TruncMonth:
		return t.Format("Jan")
	default:
		return t.Format("2006")
	}
}

// TrailingWindow returns the fixed lookback [now-N days, now) used for seller
// selection. N is 7, 30 or 365 and does not follow the bucket count.
func TrailingWindow(g domain.Granularity, now time.Time) (time.Time, time.Time) {
	days := trailingDays(g)
	return now.Add(-time.Duration(days) * 24 * time.Hour), now
}

func trailingDays(g domain.Granularity) int {
	switch g {
	case domain.GranularityWeek:
		return 7
	case domain.GranularityMonth:
		return 30
	default:
		return 365
	}
}

// shift moves a truncated start by n units, staying on unit boundaries.
func shift(t time.Time, unit domain.TruncUnit, n int) time.Time {
	loc := t.Location()
	switch unit {
	case domain.TruncYear:
		return time.Date(t.Year()+n, time.January, 1, 0, 0, 0, 0, loc)
	case domain.TruncMonth:
		return time.Date(t.Year(), t.Month()+time.Month(n), 1, 0, 0, 0, 0, loc)
	default:
		return time.Date(t.Year(), t.Month(), t.Day()+n, 0, 0, 0, 0, loc)
	}
}
