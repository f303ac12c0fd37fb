package ingest

import (
	"strings"
	"testing"

	"github.com/mkravets/minuta/internal/model"
)

func TestComputeStats_Basic(t *testing.T) {
	turns := []model.Turn{
		{LineNo: 1, Timestamp: "00:00:00", Seconds: 0, Speaker: "Alice", Text: "hello there everyone"},
		{LineNo: 2, Timestamp: "00:01:00", Seconds: 60, Speaker: "Bob", Text: "hi"},
		{LineNo: 3, Timestamp: "00:01:10", Seconds: 70, Speaker: "Alice", Text: "let us begin"},
		{LineNo: 4, Timestamp: "00:02:00", Seconds: 120, Speaker: "Bob", Text: "ok"},
	}

	stats := ComputeStats(turns)

	if stats.TotalDurationSeconds != 120 {
		t.Errorf("Expected total duration 120s, got %d", stats.TotalDurationSeconds)
	}
	if stats.FirstTimestamp != "00:00:00" || stats.LastTimestamp != "00:02:00" {
		t.Errorf("Unexpected bounds %s-%s", stats.FirstTimestamp, stats.LastTimestamp)
	}
	if len(stats.SpeakerStats) != 2 {
		t.Fatalf("Expected 2 speakers, got %d", len(stats.SpeakerStats))
	}

	// Alice held the floor 0-60 and 70-120 = 110s; Bob 60-70 = 10s
	if stats.SpeakerStats[0].Speaker != "Alice" {
		t.Errorf("Expected Alice to have spoken most, got %s", stats.SpeakerStats[0].Speaker)
	}
	if stats.SpeakerStats[0].DurationSeconds != 110 {
		t.Errorf("Expected Alice floor time 110s, got %d", stats.SpeakerStats[0].DurationSeconds)
	}
	if stats.SpeakerStats[1].DurationSeconds != 10 {
		t.Errorf("Expected Bob floor time 10s, got %d", stats.SpeakerStats[1].DurationSeconds)
	}
	if stats.SpeakerStats[0].WordCount != 6 {
		t.Errorf("Expected Alice word count 6, got %d", stats.SpeakerStats[0].WordCount)
	}
}

func TestComputeStats_Empty(t *testing.T) {
	stats := ComputeStats(nil)
	if stats.TotalDurationSeconds != 0 || stats.TotalDurationDisplay != "0:00" {
		t.Errorf("Unexpected empty stats: %+v", stats)
	}
	if len(stats.SpeakerStats) != 0 {
		t.Errorf("Expected no speaker stats, got %d", len(stats.SpeakerStats))
	}
}

func TestFormatOverview(t *testing.T) {
	stats := model.MeetingStats{
		TotalDurationDisplay: "10:00",
		SpeakerStats: []model.SpeakerStat{
			{Speaker: "Alice", TurnCount: 5, DurationDisplay: "8:00"},
			{Speaker: "Bob", TurnCount: 2, DurationDisplay: "2:00"},
		},
	}
	overview := FormatOverview(stats)

	if !strings.Contains(overview, "Total call duration: 10:00") {
		t.Errorf("Overview missing duration: %q", overview)
	}
	if !strings.Contains(overview, "Who talked the most: Alice. Who talked the least: Bob.") {
		t.Errorf("Overview missing most/least: %q", overview)
	}
	if !strings.Contains(overview, "Alice (8:00, 5 turns)") {
		t.Errorf("Overview missing per-speaker detail: %q", overview)
	}
}

func TestFormatOverview_NoSpeakers(t *testing.T) {
	if got := FormatOverview(model.MeetingStats{}); got != "" {
		t.Errorf("Expected empty overview, got %q", got)
	}
}
