package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	analyticsdomain "github.com/lemur767/assistext-backend-sub001/internal/analytics/domain"
	"github.com/lemur767/assistext-backend-sub001/internal/clock"
	messagedomain "github.com/lemur767/assistext-backend-sub001/internal/message/domain"
	"github.com/lemur767/assistext-backend-sub001/pkg/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupAnalytics(t *testing.T, now time.Time) (analyticsdomain.Service, *gorm.DB) {
	t.Helper()

	dbConn, err := db.NewTest()
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := dbConn.AutoMigrate(&messagedomain.Message{}, &messagedomain.Client{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	svc := New(Params{
		DB:    dbConn,
		Log:   zap.NewNop(),
		Clock: clock.NewFakeClock(now),
	})
	return svc, dbConn
}

var seedID snowflake.ID

func seedMessage(t *testing.T, dbConn *gorm.DB, account snowflake.ID, phone, direction string, ai bool, body string, at time.Time) {
	t.Helper()
	seedID++
	err := dbConn.Create(&messagedomain.Message{
		ID:          seedID,
		AccountID:   account,
		ClientPhone: phone,
		Direction:   direction,
		AIGenerated: ai,
		Body:        body,
		Status:      messagedomain.StatusReceived,
		CreatedAt:   at,
	}).Error
	if err != nil {
		t.Fatalf("seed message: %v", err)
	}
}

func seedClient(t *testing.T, dbConn *gorm.DB, account snowflake.ID, phone string, at time.Time) {
	t.Helper()
	seedID++
	err := dbConn.Create(&messagedomain.Client{
		ID:        seedID,
		AccountID: account,
		Phone:     phone,
		CreatedAt: at,
	}).Error
	if err != nil {
		t.Fatalf("seed client: %v", err)
	}
}

func TestDashboardCoreMetrics(t *testing.T) {
	now := time.Date(2026, time.July, 8, 12, 0, 0, 0, time.UTC)
	svc, dbConn := setupAnalytics(t, now)
	ctx := context.Background()
	account := snowflake.ID(500)

	base := now.Add(-48 * time.Hour)
	seedClient(t, dbConn, account, "+15551110001", base)
	seedClient(t, dbConn, account, "+15551110002", base)
	seedClient(t, dbConn, account, "+15551110003", now.AddDate(0, 0, -20))

	seedMessage(t, dbConn, account, "+15551110001", messagedomain.DirectionInbound, false, "hi there", base)
	seedMessage(t, dbConn, account, "+15551110001", messagedomain.DirectionOutbound, true, "hello!", base.Add(5*time.Minute))
	seedMessage(t, dbConn, account, "+15551110002", messagedomain.DirectionInbound, false, "question", base.Add(time.Hour))
	seedMessage(t, dbConn, account, "+15551110002", messagedomain.DirectionOutbound, false, "answer", base.Add(time.Hour+10*time.Minute))

	data, err := svc.Dashboard(ctx, account, analyticsdomain.PeriodWeek)
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}

	core := data.Core
	if core.TotalMessages != 4 || core.MessagesSent != 2 || core.MessagesReceived != 2 {
		t.Fatalf("unexpected counts: %+v", core)
	}
	if core.AIMessages != 1 {
		t.Fatalf("expected 1 ai message, got %d", core.AIMessages)
	}
	if core.AIAdoptionRate != 50.0 {
		t.Fatalf("expected ai_adoption_rate 50, got %v", core.AIAdoptionRate)
	}
	if core.ResponseRate != 100.0 {
		t.Fatalf("expected response_rate 100, got %v", core.ResponseRate)
	}
	if core.TotalClients != 3 || core.ActiveClients != 2 || core.NewClients != 2 {
		t.Fatalf("unexpected client counts: %+v", core)
	}
	if core.ClientActivityRate != 66.67 {
		t.Fatalf("expected client_activity_rate 66.67, got %v", core.ClientActivityRate)
	}
	if core.AvgResponseMinutes != 7.5 {
		t.Fatalf("expected avg_response_minutes 7.5, got %v", core.AvgResponseMinutes)
	}

	if data.Breakdown.Incoming != 2 || data.Breakdown.Outgoing != 2 {
		t.Fatalf("unexpected breakdown: %+v", data.Breakdown)
	}
	if len(data.TimeSeries) == 0 {
		t.Fatal("expected non-empty time series")
	}
	if len(data.Clients) != 2 {
		t.Fatalf("expected 2 client activity rows, got %d", len(data.Clients))
	}
	if data.Clients[0].ClientPhone != "+15551110002" {
		t.Fatalf("expected most recently active client first, got %s", data.Clients[0].ClientPhone)
	}
}

func TestDashboardEmptyAccount(t *testing.T) {
	now := time.Date(2026, time.July, 8, 12, 0, 0, 0, time.UTC)
	svc, _ := setupAnalytics(t, now)

	data, err := svc.Dashboard(context.Background(), 9999, "bogus-period")
	if err != nil {
		t.Fatalf("dashboard on empty account: %v", err)
	}
	if data.Period != analyticsdomain.PeriodWeek {
		t.Fatalf("expected fallback to 7d, got %s", data.Period)
	}
	if data.Core.TotalMessages != 0 || data.Core.AIAdoptionRate != 0 {
		t.Fatalf("expected zeroed metrics, got %+v", data.Core)
	}
	if len(data.TimeSeries) != 0 || len(data.Clients) != 0 {
		t.Fatal("expected empty series and client activity")
	}
}

func TestAvgResponseMinutesPairing(t *testing.T) {
	base := time.Date(2026, time.July, 1, 10, 0, 0, 0, time.UTC)
	msgs := []messagedomain.Message{
		{ClientPhone: "+1555", Direction: messagedomain.DirectionInbound, CreatedAt: base},
		{ClientPhone: "+1555", Direction: messagedomain.DirectionOutbound, CreatedAt: base.Add(5 * time.Minute)},
		{ClientPhone: "+1555", Direction: messagedomain.DirectionInbound, CreatedAt: base.Add(10 * time.Minute)},
		{ClientPhone: "+1555", Direction: messagedomain.DirectionOutbound, CreatedAt: base.Add(10*time.Minute + 26*time.Hour)},
	}
	if got := avgResponseMinutes(msgs); got != 5.0 {
		t.Fatalf("expected 5.0, got %v", got)
	}
}

func TestAvgResponseMinutesIgnoresCrossClientPairs(t *testing.T) {
	base := time.Date(2026, time.July, 1, 10, 0, 0, 0, time.UTC)
	msgs := []messagedomain.Message{
		{ClientPhone: "+1111", Direction: messagedomain.DirectionInbound, CreatedAt: base},
		{ClientPhone: "+2222", Direction: messagedomain.DirectionOutbound, CreatedAt: base.Add(3 * time.Minute)},
	}
	if got := avgResponseMinutes(msgs); got != 0 {
		t.Fatalf("expected no pairs across clients, got %v", got)
	}
}

func TestGrowthPercentConventions(t *testing.T) {
	cases := []struct {
		prev, cur int64
		want      float64
	}{
		{0, 5, 100},
		{0, 0, 0},
		{10, 15, 50.0},
		{20, 10, -50.0},
	}
	for _, tc := range cases {
		if got := growthPercent(tc.prev, tc.cur); got != tc.want {
			t.Fatalf("growthPercent(%d,%d) = %v, want %v", tc.prev, tc.cur, got, tc.want)
		}
	}
}

func TestMessageAnalyticsBreakdownFallback(t *testing.T) {
	now := time.Date(2026, time.July, 8, 12, 0, 0, 0, time.UTC)
	svc, dbConn := setupAnalytics(t, now)
	account := snowflake.ID(501)

	seedMessage(t, dbConn, account, "+15551110009", messagedomain.DirectionInbound, false, "x", now.Add(-2*time.Hour))

	series, err := svc.MessageAnalytics(context.Background(), account, analyticsdomain.PeriodMonth, "minutely")
	if err != nil {
		t.Fatalf("message analytics: %v", err)
	}
	if series.Breakdown != analyticsdomain.BreakdownDaily {
		t.Fatalf("expected fallback to daily, got %s", series.Breakdown)
	}
	if len(series.Series) != 1 || series.Series[0].Received != 1 {
		t.Fatalf("unexpected series: %+v", series.Series)
	}
}

func TestExportCSV(t *testing.T) {
	now := time.Date(2026, time.July, 8, 12, 0, 0, 0, time.UTC)
	svc, dbConn := setupAnalytics(t, now)
	account := snowflake.ID(502)

	seedMessage(t, dbConn, account, "+15551110010", messagedomain.DirectionInbound, false, "hello", now.Add(-2*time.Hour))

	result, err := svc.Export(context.Background(), account, analyticsdomain.ExportRequest{
		Period:   analyticsdomain.PeriodWeek,
		Format:   analyticsdomain.FormatCSV,
		Sections: []string{analyticsdomain.SectionCoreMetrics, analyticsdomain.SectionClientActivity},
	})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if result.ContentType != "text/csv" {
		t.Fatalf("expected text/csv, got %s", result.ContentType)
	}

	r := csv.NewReader(bytes.NewReader(result.Data))
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(rows) == 0 || rows[0][1] != analyticsdomain.SectionCoreMetrics {
		t.Fatalf("expected core_metrics section header, got %v", rows)
	}

	foundClients := false
	for _, row := range rows {
		if len(row) == 2 && row[0] == "section" && row[1] == analyticsdomain.SectionClientActivity {
			foundClients = true
		}
	}
	if !foundClients {
		t.Fatal("expected client_activity section")
	}
}

func TestExportJSONAndValidation(t *testing.T) {
	now := time.Date(2026, time.July, 8, 12, 0, 0, 0, time.UTC)
	svc, _ := setupAnalytics(t, now)
	ctx := context.Background()

	result, err := svc.Export(ctx, 503, analyticsdomain.ExportRequest{Format: analyticsdomain.FormatJSON})
	if err != nil {
		t.Fatalf("export json: %v", err)
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(result.Data, &doc); err != nil {
		t.Fatalf("parse json: %v", err)
	}
	for _, key := range []string{"core_metrics", "time_series", "client_activity"} {
		if _, ok := doc[key]; !ok {
			t.Fatalf("expected %s in default export, got %v", key, doc)
		}
	}

	if _, err := svc.Export(ctx, 503, analyticsdomain.ExportRequest{Format: "xlsx"}); err != analyticsdomain.ErrInvalidFormat {
		t.Fatalf("expected ErrInvalidFormat, got %v", err)
	}
	if _, err := svc.Export(ctx, 503, analyticsdomain.ExportRequest{Sections: []string{"secrets"}}); err != analyticsdomain.ErrInvalidSection {
		t.Fatalf("expected ErrInvalidSection, got %v", err)
	}
}
