package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockpulse/backend/internal/domain"
)

// Friday.
var fixedNow = time.Date(2024, time.March, 15, 10, 30, 0, 0, time.UTC)

func labelsOf(spec WindowSpec, starts []time.Time) []string {
	labels := make([]string, len(starts))
	for i, start := range starts {
		labels[i] = spec.Label(start)
	}
	return labels
}

func TestResolveWeek(t *testing.T) {
	spec := Resolve(domain.GranularityWeek, fixedNow, time.UTC)

	require.Len(t, spec.Current, 7)
	require.Len(t, spec.Comparison, 7)
	assert.Equal(t, domain.TruncDay, spec.Unit)
	assert.Equal(t, time.Date(2024, time.March, 9, 0, 0, 0, 0, time.UTC), spec.Current[0])
	assert.Equal(t, time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC), spec.Current[6])
	assert.Equal(t, time.Date(2024, time.March, 2, 0, 0, 0, 0, time.UTC), spec.Comparison[0])
	assert.Equal(t, spec.Comparison[0], spec.From)
	assert.Equal(t, time.Date(2024, time.March, 16, 0, 0, 0, 0, time.UTC), spec.To)
	assert.Equal(t, []string{"Sat", "Sun", "Mon", "Tue", "Wed", "Thu", "Fri"}, labelsOf(spec, spec.Current))
	assert.Equal(t, 7, spec.TrailingDays)
}

func TestResolveMonthCrossesYearBoundary(t *testing.T) {
	spec := Resolve(domain.GranularityMonth, fixedNow, time.UTC)

	require.Len(t, spec.Current, 12)
	require.Len(t, spec.Comparison, 12)
	assert.Equal(t, time.Date(2023, time.April, 1, 0, 0, 0, 0, time.UTC), spec.Current[0])
	assert.Equal(t, time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC), spec.Current[11])
	assert.Equal(t, time.Date(2022, time.April, 1, 0, 0, 0, 0, time.UTC), spec.Comparison[0])
	assert.Equal(t, time.Date(2023, time.March, 1, 0, 0, 0, 0, time.UTC), spec.Comparison[11])
	assert.Equal(t,
		[]string{"Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec", "Jan", "Feb", "Mar"},
		labelsOf(spec, spec.Current))
	assert.Equal(t, 30, spec.TrailingDays)
}

func TestResolveYear(t *testing.T) {
	spec := Resolve(domain.GranularityYear, fixedNow, time.UTC)

	require.Len(t, spec.Current, 5)
	assert.Equal(t, []string{"2020", "2021", "2022", "2023", "2024"}, labelsOf(spec, spec.Current))
	assert.Equal(t, []string{"2015", "2016", "2017", "2018", "2019"}, labelsOf(spec, spec.Comparison))
	assert.Equal(t, time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC), spec.To)
	assert.Equal(t, 365, spec.TrailingDays)
}

func TestResolveUnknownGranularityFallsBackToYear(t *testing.T) {
	spec := Resolve(domain.Granularity("fortnight"), fixedNow, time.UTC)
	assert.Equal(t, domain.GranularityYear, spec.Granularity)
	assert.Len(t, spec.Current, 5)
	assert.Equal(t, domain.TruncYear, spec.Unit)
}

func TestResolveWindowsAreContiguous(t *testing.T) {
	for _, g := range []domain.Granularity{domain.GranularityWeek, domain.GranularityMonth, domain.GranularityYear} {
		spec := Resolve(g, fixedNow, time.UTC)
		all := append(append([]time.Time{}, spec.Comparison...), spec.Current...)
		for i := 1; i < len(all); i++ {
			assert.Equal(t, shift(all[i-1], spec.Unit, 1), all[i], "granularity %s position %d", g, i)
		}
		assert.Equal(t, shift(spec.Current[len(spec.Current)-1], spec.Unit, 1), spec.To, "granularity %s", g)
	}
}

func TestResolveUsesLocationForAnchor(t *testing.T) {
	loc := time.FixedZone("UTC+7", 7*60*60)
	// 20:00 UTC on the 15th is already the 16th at UTC+7.
	now := time.Date(2024, time.March, 15, 20, 0, 0, 0, time.UTC)

	spec := Resolve(domain.GranularityWeek, now, loc)
	assert.Equal(t, time.Date(2024, time.March, 16, 0, 0, 0, 0, loc), spec.Current[6])
}

func TestParseGranularity(t *testing.T) {
	cases := map[string]domain.Granularity{
		"week":    domain.GranularityWeek,
		"weekly":  domain.GranularityWeek,
		"Month":   domain.GranularityMonth,
		"monthly": domain.GranularityMonth,
		"year":    domain.GranularityYear,
		"":        domain.GranularityYear,
		"daily":   domain.GranularityYear,
	}
	for token, want := range cases {
		assert.Equal(t, want, ParseGranularity(token), "token %q", token)
	}
}

func TestTrailingWindow(t *testing.T) {
	from, to := TrailingWindow(domain.GranularityMonth, fixedNow)
	assert.Equal(t, fixedNow, to)
	assert.Equal(t, fixedNow.Add(-30*24*time.Hour), from)

	from, _ = TrailingWindow(domain.GranularityWeek, fixedNow)
	assert.Equal(t, fixedNow.Add(-7*24*time.Hour), from)
}
