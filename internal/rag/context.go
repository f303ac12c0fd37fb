package rag

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mkravets/minuta/internal/model"
)

// MaxContextChunks is the hard cap on evidence chunks in one context,
// independent of the retrieval top_k
const MaxContextChunks = 8

// PackOptions controls the optional preambles prepended to the evidence block
type PackOptions struct {
	Overview         string // Meeting overview line(s), empty to omit
	TimeFilter       string // Display timestamp of an active time filter
	SpeakerFilter    string // Active speaker filter
	PriorAnswer      string // Previous answer, for detected follow-ups
	FollowUpQuestion string // The literal follow-up question
	MaxChunks        int    // Defaults to MaxContextChunks
}

// Pack deduplicates and bounds retrieved chunks into the evidence block sent
// to the generator, and derives the allowed citation ranges from the same
// kept-chunk list. The two outputs must never be computed independently or
// the guardrail could diverge from what the model saw.
func Pack(retrieved []model.RetrievedChunk, opts PackOptions) (string, []model.AllowedRange) {
	maxChunks := opts.MaxChunks
	if maxChunks <= 0 || maxChunks > MaxContextChunks {
		maxChunks = MaxContextChunks
	}

	// Dedupe by chunk id keeping the highest-scored instance, then order by
	// score. The stable sort keeps the incoming order for equal scores.
	best := make(map[string]model.RetrievedChunk)
	order := make([]string, 0, len(retrieved))
	for _, r := range retrieved {
		if r.ChunkID == "" {
			continue
		}
		if prev, ok := best[r.ChunkID]; !ok {
			best[r.ChunkID] = r
			order = append(order, r.ChunkID)
		} else if r.Score > prev.Score {
			best[r.ChunkID] = r
		}
	}
	kept := make([]model.RetrievedChunk, 0, len(order))
	for _, cid := range order {
		kept = append(kept, best[cid])
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].Score > kept[j].Score })
	if len(kept) > maxChunks {
		kept = kept[:maxChunks]
	}

	blocks := make([]string, 0, len(kept))
	allowed := make([]model.AllowedRange, 0, len(kept))
	for _, r := range kept {
		header := fmt.Sprintf("SOURCE: %s:%d-%d", r.File, r.LineStart, r.LineEnd)
		blocks = append(blocks, header+"\n"+strings.TrimSpace(r.Text))
		allowed = append(allowed, model.AllowedRange{
			File:      r.File,
			LineStart: r.LineStart,
			LineEnd:   r.LineEnd,
		})
	}
	context := strings.Join(blocks, "\n\n")

	var preamble []string
	if opts.Overview != "" {
		preamble = append(preamble, opts.Overview)
	}
	if opts.TimeFilter != "" {
		preamble = append(preamble, fmt.Sprintf(
			"STRICT TIME FILTER: The user asked about time [%s]. "+
				"Answer ONLY from transcript content at this time. Do not use content from before or after. "+
				"If the context has no content for this time, respond exactly: %s",
			opts.TimeFilter, RefusalTimeNotFound))
	}
	if opts.SpeakerFilter != "" {
		preamble = append(preamble, fmt.Sprintf(
			"SPEAKER FILTER: The user asked to focus on speaker %q. "+
				"Base your answer only on what this speaker said in the context below.",
			opts.SpeakerFilter))
	}
	if opts.PriorAnswer != "" {
		preamble = append(preamble,
			"Treat Previous reply as non-authoritative. Only the transcript context counts as evidence.\n\n"+
				"Previous reply: "+opts.PriorAnswer+"\n\n"+
				"User follow-up: "+strings.TrimSpace(opts.FollowUpQuestion)+"\n\n"+
				"Use the transcript below to add more detail or elaborate on what was said. Keep citations from the transcript.")
	}
	if len(preamble) > 0 {
		context = strings.Join(preamble, "\n\n") + "\n\n" + context
	}

	return context, allowed
}
