// Package domain defines the read-side analytics types. Everything here is
// recomputed from the message log on demand; nothing is stored.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Period presets accepted by the facade. Anything else falls back to
// PeriodWeek rather than erroring.
const (
	PeriodDay     = "1d"
	PeriodWeek    = "7d"
	PeriodMonth   = "30d"
	PeriodQuarter = "90d"
	PeriodYear    = "1y"
)

// Breakdown granularities. Unknown values fall back to BreakdownDaily.
const (
	BreakdownHourly = "hourly"
	BreakdownDaily  = "daily"
	BreakdownWeekly = "weekly"
)

// Export formats and section names.
const (
	FormatCSV  = "csv"
	FormatJSON = "json"

	SectionCoreMetrics    = "core_metrics"
	SectionTimeSeries     = "time_series"
	SectionClientActivity = "client_activity"
)

var (
	ErrInvalidAccount = errors.New("invalid_account")
	ErrInvalidFormat  = errors.New("invalid_format")
	ErrInvalidSection = errors.New("invalid_section")
)

// CoreMetrics are the headline counters and rates for one window.
type CoreMetrics struct {
	TotalMessages    int64 `json:"total_messages"`
	MessagesSent     int64 `json:"messages_sent"`
	MessagesReceived int64 `json:"messages_received"`
	AIMessages       int64 `json:"ai_messages"`

	TotalClients  int64 `json:"total_clients"`
	ActiveClients int64 `json:"active_clients"`
	NewClients    int64 `json:"new_clients"`

	// Rates are percentages rounded to two decimals, zero when the
	// denominator is zero.
	AIAdoptionRate     float64 `json:"ai_adoption_rate"`
	ResponseRate       float64 `json:"response_rate"`
	ClientActivityRate float64 `json:"client_activity_rate"`

	// AvgResponseMinutes averages inbound-to-outbound gaps within the
	// window, one decimal.
	AvgResponseMinutes float64 `json:"avg_response_minutes"`
}

// HourCount is one entry of the peak-hours ranking.
type HourCount struct {
	Hour  int   `json:"hour"`
	Count int64 `json:"count"`
}

// MessageBreakdown splits window volume by direction and origin.
type MessageBreakdown struct {
	Incoming    int64 `json:"incoming"`
	Outgoing    int64 `json:"outgoing"`
	AIGenerated int64 `json:"ai_generated"`
	Manual      int64 `json:"manual"`

	PeakHours []HourCount `json:"peak_hours"`

	// AvgMessageLength is in characters, one decimal.
	AvgMessageLength float64 `json:"avg_message_length"`
}

// TimeSeriesPoint is one bucket of the volume series.
type TimeSeriesPoint struct {
	Bucket      string `json:"bucket"`
	Sent        int64  `json:"sent"`
	Received    int64  `json:"received"`
	AIGenerated int64  `json:"ai_generated"`
	Total       int64  `json:"total"`
}

// ClientActivity is one client's window totals.
type ClientActivity struct {
	ClientPhone string    `json:"client_phone"`
	Sent        int64     `json:"sent"`
	Received    int64     `json:"received"`
	AIMessages  int64     `json:"ai_messages"`
	LastActive  time.Time `json:"last_active"`
}

// GrowthMetrics compares the window against the same-length preceding one.
// Values are percentages: 100 when growing from zero, 0 when both windows
// are empty.
type GrowthMetrics struct {
	Messages   float64 `json:"messages"`
	NewClients float64 `json:"new_clients"`
	AIMessages float64 `json:"ai_messages"`
}

// DashboardData is the full dashboard payload for one window.
type DashboardData struct {
	Period    string    `json:"period"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`

	Core       CoreMetrics       `json:"core_metrics"`
	Breakdown  MessageBreakdown  `json:"message_breakdown"`
	TimeSeries []TimeSeriesPoint `json:"time_series"`
	Clients    []ClientActivity  `json:"client_activity"`
	Growth     GrowthMetrics     `json:"growth"`
}

// MessageSeries is the standalone volume series with an explicit
// granularity.
type MessageSeries struct {
	Period    string            `json:"period"`
	Breakdown string            `json:"breakdown"`
	Series    []TimeSeriesPoint `json:"series"`
}

// ExportRequest selects sections and an output format.
type ExportRequest struct {
	Period   string   `json:"period"`
	Format   string   `json:"format"`
	Sections []string `json:"sections"`
}

// ExportResult carries the rendered document.
type ExportResult struct {
	ContentType string `json:"content_type"`
	Filename    string `json:"filename"`
	Data        []byte `json:"data"`
}

// Service is the read-only analytics facade over the message log. Windowed
// metrics here are recomputed per query; the conversation aggregates keep
// their own rolling estimates and the two are intentionally separate.
type Service interface {
	Dashboard(ctx context.Context, accountID snowflake.ID, period string) (*DashboardData, error)
	MessageAnalytics(ctx context.Context, accountID snowflake.ID, period, breakdown string) (*MessageSeries, error)
	ClientActivity(ctx context.Context, accountID snowflake.ID, period string) ([]ClientActivity, error)
	Export(ctx context.Context, accountID snowflake.ID, req ExportRequest) (*ExportResult, error)
}
