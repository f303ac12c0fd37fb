package ingest

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mkravets/minuta/internal/model"
)

// ComputeStats derives meeting-level stats from parsed turns: total duration,
// first/last timestamps, and per-speaker turn/word counts and floor time. A
// turn's floor time runs until the next turn's timestamp (or meeting end for
// the last turn). Speakers are sorted most-spoke-first so "who talked the most"
// reads off the top of the list.
func ComputeStats(turns []model.Turn) model.MeetingStats {
	if len(turns) == 0 {
		return model.MeetingStats{
			TotalDurationDisplay: "0:00",
			FirstTimestamp:       "00:00:00",
			LastTimestamp:        "00:00:00",
		}
	}

	ordered := make([]model.Turn, len(turns))
	copy(ordered, turns)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Seconds != ordered[j].Seconds {
			return ordered[i].Seconds < ordered[j].Seconds
		}
		return ordered[i].LineNo < ordered[j].LineNo
	})

	startSec := ordered[0].Seconds
	endSec := ordered[len(ordered)-1].Seconds
	total := endSec - startSec
	if total < 0 {
		total = 0
	}

	turnCount := make(map[string]int)
	wordCount := make(map[string]int)
	floorTime := make(map[string]int)
	for i, t := range ordered {
		name := strings.TrimSpace(t.Speaker)
		if name == "" {
			name = "Unknown"
		}
		turnCount[name]++
		wordCount[name] += len(strings.Fields(t.Text))
		next := endSec
		if i+1 < len(ordered) {
			next = ordered[i+1].Seconds
		}
		if d := next - t.Seconds; d > 0 {
			floorTime[name] += d
		}
	}

	stats := make([]model.SpeakerStat, 0, len(turnCount))
	for name := range turnCount {
		stats = append(stats, model.SpeakerStat{
			Speaker:         name,
			TurnCount:       turnCount[name],
			WordCount:       wordCount[name],
			DurationSeconds: floorTime[name],
			DurationDisplay: SecondsToDisplay(floorTime[name]),
		})
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].DurationSeconds != stats[j].DurationSeconds {
			return stats[i].DurationSeconds > stats[j].DurationSeconds
		}
		if stats[i].TurnCount != stats[j].TurnCount {
			return stats[i].TurnCount > stats[j].TurnCount
		}
		if stats[i].WordCount != stats[j].WordCount {
			return stats[i].WordCount > stats[j].WordCount
		}
		return stats[i].Speaker < stats[j].Speaker
	})

	return model.MeetingStats{
		TotalDurationSeconds: total,
		TotalDurationDisplay: SecondsToDisplay(total),
		FirstTimestamp:       ordered[0].Timestamp,
		LastTimestamp:        ordered[len(ordered)-1].Timestamp,
		SpeakerStats:         stats,
	}
}

// FormatOverview renders stats as a short context preamble so the model can
// answer duration and participation questions without retrieval
func FormatOverview(stats model.MeetingStats) string {
	if len(stats.SpeakerStats) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Meeting overview (use for questions about duration or who spoke most/least):\n")
	fmt.Fprintf(&b, "Total call duration: %s\n", stats.TotalDurationDisplay)
	most := stats.SpeakerStats[0].Speaker
	least := stats.SpeakerStats[len(stats.SpeakerStats)-1].Speaker
	fmt.Fprintf(&b, "Who talked the most: %s. Who talked the least: %s.\n", most, least)
	parts := make([]string, 0, len(stats.SpeakerStats))
	for _, s := range stats.SpeakerStats {
		parts = append(parts, fmt.Sprintf("%s (%s, %d turns)", s.Speaker, s.DurationDisplay, s.TurnCount))
	}
	b.WriteString("Per-speaker duration (speaking time): " + strings.Join(parts, "; "))
	return b.String()
}
