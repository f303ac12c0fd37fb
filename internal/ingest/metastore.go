package ingest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/mkravets/minuta/internal/model"
)

// StatsStore persists meeting stats as JSON files with a memory layer in
// front. Stats are written once at ingestion and read on every ask, so reads
// are served from memory after the first load.
type StatsStore struct {
	mem *gocache.Cache
	dir string
}

// NewStatsStore creates a stats store rooted at dataDir
func NewStatsStore(dataDir string) *StatsStore {
	return &StatsStore{
		mem: gocache.New(time.Hour, 10*time.Minute),
		dir: filepath.Join(dataDir, "meeting_metadata"),
	}
}

// Save persists stats for a meeting
func (s *StatsStore) Save(meetingID string, stats model.MeetingStats) error {
	data, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal stats: %w", err)
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("create metadata dir: %w", err)
	}
	if err := os.WriteFile(s.path(meetingID), data, 0644); err != nil {
		return fmt.Errorf("write stats: %w", err)
	}
	s.mem.Set(meetingID, stats, gocache.DefaultExpiration)
	return nil
}

// Load returns stats for a meeting, or ok=false when none were recorded
func (s *StatsStore) Load(meetingID string) (model.MeetingStats, bool) {
	if v, found := s.mem.Get(meetingID); found {
		return v.(model.MeetingStats), true
	}
	data, err := os.ReadFile(s.path(meetingID))
	if err != nil {
		return model.MeetingStats{}, false
	}
	var stats model.MeetingStats
	if err := json.Unmarshal(data, &stats); err != nil {
		return model.MeetingStats{}, false
	}
	s.mem.Set(meetingID, stats, gocache.DefaultExpiration)
	return stats, true
}

func (s *StatsStore) path(meetingID string) string {
	return filepath.Join(s.dir, meetingID+".json")
}
