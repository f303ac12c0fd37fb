package rag

import (
	"regexp"
	"strings"
)

var (
	bracketTsRe = regexp.MustCompile(`\[(\d{2}:\d{2}:\d{2})\]`)
	bareTsRe    = regexp.MustCompile(`(\d{2}:\d{2}:\d{2})`)
)

// ParseTimestamps extracts timestamps mentioned in a question, bracketed
// ([00:12:46]) or bare ("at 00:12:46"), deduplicated in order of appearance
func ParseTimestamps(question string) []string {
	if strings.TrimSpace(question) == "" {
		return nil
	}
	seen := make(map[string]struct{})
	var out []string
	add := func(matches [][]string) {
		for _, m := range matches {
			if _, ok := seen[m[1]]; ok {
				continue
			}
			seen[m[1]] = struct{}{}
			out = append(out, m[1])
		}
	}
	add(bracketTsRe.FindAllStringSubmatch(question, -1))
	add(bareTsRe.FindAllStringSubmatch(question, -1))
	return out
}

// speakerPhrasePatterns are question shapes that indicate the user wants one
// speaker's contributions, with %s as the quoted speaker name
var speakerPhrasePatterns = []string{
	`what did\s+%s\s+say`,
	`what did\s+%s\s+think`,
	`what did\s+%s\s+mention`,
	`what did\s+%s\s+suggest`,
	`\b%s\s+said\b`,
	`\b%s\s+think`,
	`\b%s's\b`,
	`focus on\s+%s`,
	`only\s+%s`,
	`from\s+%s`,
}

// ParseSpeaker returns a known speaker the question is asking about, or "".
// Names match on word boundaries so "Alice" never matches "Alicia", and a
// speaker-related phrase is required so passing mentions do not trigger the
// filter.
func ParseSpeaker(question string, knownSpeakers []string) string {
	q := strings.ToLower(strings.TrimSpace(question))
	if q == "" {
		return ""
	}
	for _, speaker := range knownSpeakers {
		name := strings.TrimSpace(speaker)
		if name == "" {
			continue
		}
		quoted := regexp.QuoteMeta(strings.ToLower(name))
		if !regexp.MustCompile(`\b` + quoted + `\b`).MatchString(q) {
			continue
		}
		for _, pattern := range speakerPhrasePatterns {
			re := regexp.MustCompile(strings.Replace(pattern, "%s", quoted, 1))
			if re.MatchString(q) {
				return name
			}
		}
	}
	return ""
}
