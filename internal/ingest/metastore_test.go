package ingest

import (
	"reflect"
	"testing"

	"github.com/mkravets/minuta/internal/model"
)

func TestStatsStore_SaveLoad(t *testing.T) {
	store := NewStatsStore(t.TempDir())

	stats := model.MeetingStats{
		TotalDurationSeconds: 300,
		TotalDurationDisplay: "5:00",
		FirstTimestamp:       "00:00:00",
		LastTimestamp:        "00:05:00",
		SpeakerStats: []model.SpeakerStat{
			{Speaker: "Alice", TurnCount: 3, WordCount: 12, DurationSeconds: 200, DurationDisplay: "3:20"},
		},
	}
	if err := store.Save("m1", stats); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, ok := store.Load("m1")
	if !ok {
		t.Fatal("Expected stats to load")
	}
	if !reflect.DeepEqual(got, stats) {
		t.Errorf("Loaded stats differ: %+v vs %+v", got, stats)
	}
}

func TestStatsStore_LoadMissing(t *testing.T) {
	store := NewStatsStore(t.TempDir())
	if _, ok := store.Load("nope"); ok {
		t.Error("Expected ok=false for unknown meeting")
	}
}

func TestStatsStore_SurvivesMemoryLoss(t *testing.T) {
	dir := t.TempDir()
	store := NewStatsStore(dir)
	if err := store.Save("m1", model.MeetingStats{TotalDurationSeconds: 60}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// A fresh store reads back from disk
	fresh := NewStatsStore(dir)
	got, ok := fresh.Load("m1")
	if !ok || got.TotalDurationSeconds != 60 {
		t.Errorf("Fresh store load = %+v, %v", got, ok)
	}
}
