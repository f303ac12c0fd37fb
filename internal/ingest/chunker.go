package ingest

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mkravets/minuta/internal/model"
)

// DefaultChunkTurns is the tumbling window size in turns
const DefaultChunkTurns = 8

// ChunkTurns groups turns into fixed-size tumbling windows and derives per-chunk
// metadata. Windows do not overlap and together cover every turn exactly once;
// the last window may be shorter. Chunk ids are derived from the meeting id and
// the window ordinal, so re-chunking identical input is reproducible.
func ChunkTurns(meetingID, file string, turns []model.Turn, turnsPerChunk int) []model.Chunk {
	if turnsPerChunk <= 0 {
		turnsPerChunk = DefaultChunkTurns
	}

	var chunks []model.Chunk
	for start := 0; start < len(turns); start += turnsPerChunk {
		end := start + turnsPerChunk
		if end > len(turns) {
			end = len(turns)
		}
		chunks = append(chunks, buildChunk(meetingID, file, len(chunks)+1, turns[start:end]))
	}
	return chunks
}

func buildChunk(meetingID, file string, ordinal int, window []model.Turn) model.Chunk {
	speakerSet := make(map[string]struct{}, len(window))
	lines := make([]string, 0, len(window))
	for _, t := range window {
		speakerSet[t.Speaker] = struct{}{}
		lines = append(lines, fmt.Sprintf("[%s] %s: %s", t.Timestamp, t.Speaker, t.Text))
	}
	speakers := make([]string, 0, len(speakerSet))
	for s := range speakerSet {
		speakers = append(speakers, s)
	}
	sort.Strings(speakers)

	first, last := window[0], window[len(window)-1]
	return model.Chunk{
		ChunkID:      fmt.Sprintf("%s:%s:%d", meetingID, file, ordinal),
		MeetingID:    meetingID,
		File:         file,
		Ordinal:      ordinal,
		Text:         strings.TrimSpace(strings.Join(lines, "\n")),
		LineStart:    first.LineNo,
		LineEnd:      last.LineNo,
		TimeStart:    first.Timestamp,
		TimeEnd:      last.Timestamp,
		TimeStartSec: first.Seconds,
		TimeEndSec:   last.Seconds,
		Speakers:     speakers,
	}
}
