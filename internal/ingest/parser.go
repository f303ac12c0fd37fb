package ingest

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/mkravets/minuta/internal/model"
)

// lineRe matches one transcript line: [HH:MM:SS] Speaker: text
var lineRe = regexp.MustCompile(`^\[(\d{2}:\d{2}:\d{2})\]\s*([^:]{1,60}):\s*(.+)$`)

// ParseTranscript parses raw transcript text into an ordered sequence of turns.
// Lines that do not match the pattern are skipped; their line numbers still
// count, so line spans in chunk metadata match the source file. If no line in
// the whole input matches, the transcript is rejected with ErrMalformedTranscript.
func ParseTranscript(text string) ([]model.Turn, error) {
	var turns []model.Turn
	for idx, line := range strings.Split(text, "\n") {
		lineNo := idx + 1
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		m := lineRe.FindStringSubmatch(trimmed)
		if m == nil {
			continue
		}
		ts := m[1]
		sec, err := TimestampToSeconds(ts)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		turns = append(turns, model.Turn{
			LineNo:    lineNo,
			Timestamp: ts,
			Seconds:   sec,
			Speaker:   strings.TrimSpace(m[2]),
			Text:      strings.TrimSpace(m[3]),
		})
	}
	if len(turns) == 0 {
		return nil, model.ErrMalformedTranscript
	}
	return turns, nil
}

// TimestampToSeconds converts an HH:MM:SS timestamp to seconds since meeting
// start. Valid range is 00:00:00 through 99:59:59.
func TimestampToSeconds(ts string) (int, error) {
	parts := strings.Split(strings.TrimSpace(ts), ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("%w: %q", model.ErrInvalidTimestamp, ts)
	}
	h, err1 := strconv.Atoi(parts[0])
	m, err2 := strconv.Atoi(parts[1])
	s, err3 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return 0, fmt.Errorf("%w: %q", model.ErrInvalidTimestamp, ts)
	}
	if h < 0 || h > 99 || m < 0 || m > 59 || s < 0 || s > 59 {
		return 0, fmt.Errorf("%w: %q out of range 00:00:00-99:59:59", model.ErrInvalidTimestamp, ts)
	}
	return h*3600 + m*60 + s, nil
}

// SecondsToDisplay formats seconds as H:MM:SS, or M:SS under an hour
func SecondsToDisplay(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
