package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/bwmarrin/snowflake"
	analyticsdomain "github.com/lemur767/assistext-backend-sub001/internal/analytics/domain"
)

func (s *service) Export(ctx context.Context, accountID snowflake.ID, req analyticsdomain.ExportRequest) (*analyticsdomain.ExportResult, error) {
	if accountID == 0 {
		return nil, analyticsdomain.ErrInvalidAccount
	}

	format := req.Format
	if format == "" {
		format = analyticsdomain.FormatCSV
	}
	if format != analyticsdomain.FormatCSV && format != analyticsdomain.FormatJSON {
		return nil, analyticsdomain.ErrInvalidFormat
	}

	sections := req.Sections
	if len(sections) == 0 {
		sections = []string{
			analyticsdomain.SectionCoreMetrics,
			analyticsdomain.SectionTimeSeries,
			analyticsdomain.SectionClientActivity,
		}
	}
	for _, section := range sections {
		switch section {
		case analyticsdomain.SectionCoreMetrics, analyticsdomain.SectionTimeSeries, analyticsdomain.SectionClientActivity:
		default:
			return nil, analyticsdomain.ErrInvalidSection
		}
	}

	data, err := s.Dashboard(ctx, accountID, req.Period)
	if err != nil {
		return nil, err
	}

	stamp := s.clock.Now().Format("20060102")
	if format == analyticsdomain.FormatJSON {
		body, err := renderExportJSON(data, sections)
		if err != nil {
			return nil, err
		}
		return &analyticsdomain.ExportResult{
			ContentType: "application/json",
			Filename:    fmt.Sprintf("analytics_%s_%s.json", data.Period, stamp),
			Data:        body,
		}, nil
	}

	body, err := renderExportCSV(data, sections)
	if err != nil {
		return nil, err
	}
	return &analyticsdomain.ExportResult{
		ContentType: "text/csv",
		Filename:    fmt.Sprintf("analytics_%s_%s.csv", data.Period, stamp),
		Data:        body,
	}, nil
}

func renderExportJSON(data *analyticsdomain.DashboardData, sections []string) ([]byte, error) {
	doc := map[string]interface{}{
		"period":     data.Period,
		"start_date": data.StartDate,
		"end_date":   data.EndDate,
	}
	for _, section := range sections {
		switch section {
		case analyticsdomain.SectionCoreMetrics:
			doc[analyticsdomain.SectionCoreMetrics] = data.Core
		case analyticsdomain.SectionTimeSeries:
			doc[analyticsdomain.SectionTimeSeries] = data.TimeSeries
		case analyticsdomain.SectionClientActivity:
			doc[analyticsdomain.SectionClientActivity] = data.Clients
		}
	}
	return json.MarshalIndent(doc, "", "  ")
}

func renderExportCSV(data *analyticsdomain.DashboardData, sections []string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	for i, section := range sections {
		if i > 0 {
			if err := w.Write([]string{""}); err != nil {
				return nil, err
			}
		}
		var err error
		switch section {
		case analyticsdomain.SectionCoreMetrics:
			err = writeCoreMetricsCSV(w, data)
		case analyticsdomain.SectionTimeSeries:
			err = writeTimeSeriesCSV(w, data.TimeSeries)
		case analyticsdomain.SectionClientActivity:
			err = writeClientActivityCSV(w, data.Clients)
		}
		if err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeCoreMetricsCSV(w *csv.Writer, data *analyticsdomain.DashboardData) error {
	rows := [][]string{
		{"section", analyticsdomain.SectionCoreMetrics},
		{"metric", "value"},
		{"period", data.Period},
		{"start_date", data.StartDate.Format(time.RFC3339)},
		{"end_date", data.EndDate.Format(time.RFC3339)},
		{"total_messages", formatInt(data.Core.TotalMessages)},
		{"messages_sent", formatInt(data.Core.MessagesSent)},
		{"messages_received", formatInt(data.Core.MessagesReceived)},
		{"ai_messages", formatInt(data.Core.AIMessages)},
		{"total_clients", formatInt(data.Core.TotalClients)},
		{"active_clients", formatInt(data.Core.ActiveClients)},
		{"new_clients", formatInt(data.Core.NewClients)},
		{"ai_adoption_rate", formatFloat(data.Core.AIAdoptionRate)},
		{"response_rate", formatFloat(data.Core.ResponseRate)},
		{"client_activity_rate", formatFloat(data.Core.ClientActivityRate)},
		{"avg_response_minutes", formatFloat(data.Core.AvgResponseMinutes)},
	}
	return w.WriteAll(rows)
}

func writeTimeSeriesCSV(w *csv.Writer, series []analyticsdomain.TimeSeriesPoint) error {
	rows := [][]string{
		{"section", analyticsdomain.SectionTimeSeries},
		{"bucket", "sent", "received", "ai_generated", "total"},
	}
	for _, point := range series {
		rows = append(rows, []string{
			point.Bucket,
			formatInt(point.Sent),
			formatInt(point.Received),
			formatInt(point.AIGenerated),
			formatInt(point.Total),
		})
	}
	return w.WriteAll(rows)
}

func writeClientActivityCSV(w *csv.Writer, clients []analyticsdomain.ClientActivity) error {
	rows := [][]string{
		{"section", analyticsdomain.SectionClientActivity},
		{"client_phone", "sent", "received", "ai_messages", "last_active"},
	}
	for _, client := range clients {
		rows = append(rows, []string{
			client.ClientPhone,
			formatInt(client.Sent),
			formatInt(client.Received),
			formatInt(client.AIMessages),
			client.LastActive.UTC().Format(time.RFC3339),
		})
	}
	return w.WriteAll(rows)
}

func formatInt(v int64) string { return strconv.FormatInt(v, 10) }

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
