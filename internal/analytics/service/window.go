package service

import (
	"time"

	analyticsdomain "github.com/lemur767/assistext-backend-sub001/internal/analytics/domain"
)

// window is one half-open [Start, End) query range.
type window struct {
	Period string
	Start  time.Time
	End    time.Time
}

// previous returns the same-length window immediately before w.
func (w window) previous() window {
	length := w.End.Sub(w.Start)
	return window{Period: w.Period, Start: w.Start.Add(-length), End: w.Start}
}

// resolveWindow maps a period preset onto a trailing window ending now.
// Unknown presets fall back to the trailing week.
func resolveWindow(period string, now time.Time) window {
	now = now.UTC()
	var length time.Duration
	switch period {
	case analyticsdomain.PeriodDay:
		length = 24 * time.Hour
	case analyticsdomain.PeriodWeek:
		length = 7 * 24 * time.Hour
	case analyticsdomain.PeriodMonth:
		length = 30 * 24 * time.Hour
	case analyticsdomain.PeriodQuarter:
		length = 90 * 24 * time.Hour
	case analyticsdomain.PeriodYear:
		length = 365 * 24 * time.Hour
	default:
		period = analyticsdomain.PeriodWeek
		length = 7 * 24 * time.Hour
	}
	return window{Period: period, Start: now.Add(-length), End: now}
}

// defaultBreakdown picks the series granularity for a period preset.
func defaultBreakdown(period string) string {
	switch period {
	case analyticsdomain.PeriodDay:
		return analyticsdomain.BreakdownHourly
	case analyticsdomain.PeriodWeek, analyticsdomain.PeriodMonth:
		return analyticsdomain.BreakdownDaily
	default:
		return analyticsdomain.BreakdownWeekly
	}
}

// normalizeBreakdown validates an explicit granularity, falling back to
// daily.
func normalizeBreakdown(breakdown string) string {
	switch breakdown {
	case analyticsdomain.BreakdownHourly, analyticsdomain.BreakdownDaily, analyticsdomain.BreakdownWeekly:
		return breakdown
	default:
		return analyticsdomain.BreakdownDaily
	}
}

// bucketKey formats a timestamp into its series bucket label.
func bucketKey(t time.Time, breakdown string) string {
	t = t.UTC()
	switch breakdown {
	case analyticsdomain.BreakdownHourly:
		return t.Format("2006-01-02 15:00")
	case analyticsdomain.BreakdownWeekly:
		// Monday of the ISO week.
		offset := (int(t.Weekday()) + 6) % 7
		return t.AddDate(0, 0, -offset).Format("2006-01-02")
	default:
		return t.Format("2006-01-02")
	}
}
