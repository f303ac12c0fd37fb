package rag

import "github.com/mkravets/minuta/internal/model"

// Refusal messages. Refusal is the designed terminal outcome when no citation
// survives validation, not an error path.
const (
	RefusalNotFound     = "Not found in transcript."
	RefusalTimeNotFound = "No transcript found for that time."
)

// ValidateCitations checks every proposed citation against the ranges derived
// from the packed context. A citation must name an allowed file and overlap
// one of its line intervals; it is then clamped into the intersection, never
// widened. Survivors are deduplicated by (file, start, end). refused is true
// when nothing survives, and the caller must substitute a refusal answer
// instead of surfacing the model's prose.
func ValidateCitations(proposed []model.Citation, allowed []model.AllowedRange) (accepted []model.Citation, refused bool) {
	byFile := make(map[string][]model.AllowedRange, len(allowed))
	for _, a := range allowed {
		byFile[a.File] = append(byFile[a.File], a)
	}

	seen := make(map[model.Citation]struct{})
	for _, c := range proposed {
		for _, a := range byFile[c.File] {
			if !overlaps(c.LineStart, c.LineEnd, a.LineStart, a.LineEnd) {
				continue
			}
			clamped := model.Citation{
				File:      c.File,
				LineStart: max(c.LineStart, a.LineStart),
				LineEnd:   min(c.LineEnd, a.LineEnd),
			}
			if _, dup := seen[clamped]; !dup {
				seen[clamped] = struct{}{}
				accepted = append(accepted, clamped)
			}
			break
		}
	}
	return accepted, len(accepted) == 0
}

func overlaps(a1, a2, b1, b2 int) bool {
	return !(a2 < b1 || b2 < a1)
}
