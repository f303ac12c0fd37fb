package model

import "time"

// Meeting represents one ingested transcript. Identity is the SHA-256 of the
// uploaded bytes, so re-ingesting identical content resolves to the same meeting.
type Meeting struct {
	ID         string    `json:"meeting_id"`
	File       string    `json:"file"`        // Source filename
	IngestedAt time.Time `json:"ingested_at"` // When ingestion completed
	TurnCount  int       `json:"turn_count"`  // Total parsed turns
	ChunkCount int       `json:"chunk_count"` // Chunks written to the index
}

// Turn is one parsed transcript line
type Turn struct {
	LineNo    int    `json:"line_no"`   // 1-based line number in the source file
	Timestamp string `json:"timestamp"` // Display form, HH:MM:SS
	Seconds   int    `json:"seconds"`   // Offset from meeting start
	Speaker   string `json:"speaker"`
	Text      string `json:"text"`
}

// Chunk is a contiguous, non-overlapping run of turns plus derived metadata.
// Chunks partition a meeting's turns exactly: no gaps, no overlaps, ordered by line.
type Chunk struct {
	ChunkID      string   `json:"chunk_id"` // meetingID:file:ordinal, stable across re-ingestion
	MeetingID    string   `json:"meeting_id"`
	File         string   `json:"file"`
	Ordinal      int      `json:"ordinal"` // 1-based position within the meeting
	Text         string   `json:"text"`    // Speaker-prefixed lines joined in order
	LineStart    int      `json:"line_start"`
	LineEnd      int      `json:"line_end"`
	TimeStart    string   `json:"time_start"`
	TimeEnd      string   `json:"time_end"`
	TimeStartSec int      `json:"time_start_sec"`
	TimeEndSec   int      `json:"time_end_sec"`
	Speakers     []string `json:"speakers"` // Distinct speakers, sorted
}

// RetrievedChunk is a chunk with its fused retrieval score. Ephemeral, produced per query.
type RetrievedChunk struct {
	Chunk
	Score float64 `json:"score"` // RRF-fused score, summed across queries
}

// Citation references a span of transcript lines. The answerer produces these as
// claims; they are trusted only after the guardrail clamps them against evidence.
type Citation struct {
	File      string `json:"file"`
	LineStart int    `json:"line_start"`
	LineEnd   int    `json:"line_end"`
}

// AllowedRange is one (file, line interval) the guardrail accepts citations against.
// Derived from the packed context, never recomputed independently.
type AllowedRange struct {
	File      string `json:"file"`
	LineStart int    `json:"line_start"`
	LineEnd   int    `json:"line_end"`
}

// SpeakerStat summarizes one speaker's participation in a meeting
type SpeakerStat struct {
	Speaker         string `json:"speaker"`
	TurnCount       int    `json:"turn_count"`
	WordCount       int    `json:"word_count"`
	DurationSeconds int    `json:"duration_seconds"`
	DurationDisplay string `json:"duration_display"`
}

// MeetingStats holds meeting-level metadata derived at ingest time
type MeetingStats struct {
	TotalDurationSeconds int           `json:"total_duration_seconds"`
	TotalDurationDisplay string        `json:"total_duration_display"`
	FirstTimestamp       string        `json:"first_timestamp"`
	LastTimestamp        string        `json:"last_timestamp"`
	SpeakerStats         []SpeakerStat `json:"speaker_stats"`
}
