package domain

import (
	"testing"
	"time"
)

func TestEngagementScoreWorkedExample(t *testing.T) {
	now := time.Date(2026, time.May, 1, 12, 0, 0, 0, time.UTC)
	last := now

	record := &ConversationRecord{
		TotalMessages:   200,
		ResponseRate:    1.0,
		SentimentScore:  1.0,
		LastInteraction: &last,
	}
	if got := EngagementScore(record, now); got != 1.0 {
		t.Fatalf("expected 1.0, got %v", got)
	}
}

func TestEngagementScoreBounds(t *testing.T) {
	now := time.Date(2026, time.May, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name   string
		record ConversationRecord
	}{
		{"empty", ConversationRecord{}},
		{"stale", ConversationRecord{
			TotalMessages:   1000,
			ResponseRate:    1.0,
			SentimentScore:  1.0,
			LastInteraction: timePtr(now.AddDate(0, -6, 0)),
		}},
		{"negative sentiment ignored", ConversationRecord{
			TotalMessages:  10,
			ResponseRate:   0.5,
			SentimentScore: -0.5,
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := EngagementScore(&tc.record, now)
			if got < 0 || got > 1 {
				t.Fatalf("score %v out of [0,1]", got)
			}
		})
	}
}

func TestEngagementScoreRecencyDecay(t *testing.T) {
	now := time.Date(2026, time.May, 31, 12, 0, 0, 0, time.UTC)

	fresh := &ConversationRecord{LastInteraction: timePtr(now)}
	if got := EngagementScore(fresh, now); got != 0.2 {
		t.Fatalf("expected fresh interaction to contribute 0.2, got %v", got)
	}

	halfway := &ConversationRecord{LastInteraction: timePtr(now.AddDate(0, 0, -15))}
	if got := EngagementScore(halfway, now); got != 0.1 {
		t.Fatalf("expected 15-day-old interaction to contribute 0.1, got %v", got)
	}

	expired := &ConversationRecord{LastInteraction: timePtr(now.AddDate(0, 0, -45))}
	if got := EngagementScore(expired, now); got != 0 {
		t.Fatalf("expected expired recency to contribute 0, got %v", got)
	}
}

func TestBlendAverage(t *testing.T) {
	if got := BlendAverage(nil, 12.5); got != 12.5 {
		t.Fatalf("expected first value as-is, got %v", got)
	}
	prior := 10.0
	if got := BlendAverage(&prior, 20.0); got != 15.0 {
		t.Fatalf("expected 15.0, got %v", got)
	}
}

func timePtr(t time.Time) *time.Time { return &t }
