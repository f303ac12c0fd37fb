package rag

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/mkravets/minuta/internal/embed"
	"github.com/mkravets/minuta/internal/index"
	"github.com/mkravets/minuta/internal/ingest"
	"github.com/mkravets/minuta/internal/model"
	"github.com/mkravets/minuta/internal/util"
)

// Pipeline orchestrates ingestion (parse, chunk, embed, upsert), asks
// (memory lookup, rewrite, retrieve, pack, generate, guardrail, memory save)
// and structured meeting summaries
type Pipeline struct {
	cfg        *model.Config
	embedder   embed.Embedder
	index      Index
	retriever  *Retriever
	rewriter   *Rewriter
	answerer   *Answerer
	summarizer *Summarizer
	memory     Store
	registry   *ingest.Registry
	stats      *ingest.StatsStore
}

// NewPipeline wires the pipeline against the real OpenAI and Qdrant services
func NewPipeline(cfg *model.Config) (*Pipeline, error) {
	embedder, err := embed.NewOpenAIEmbedder(cfg.OpenAI, cfg.HTTP, cfg.Ingest.BatchSize)
	if err != nil {
		return nil, fmt.Errorf("embedder: %w", err)
	}

	clientConfig := openai.DefaultConfig(cfg.OpenAI.APIKey)
	if cfg.OpenAI.BaseURL != "" {
		clientConfig.BaseURL = cfg.OpenAI.BaseURL
	}
	clientConfig.HTTPClient = &http.Client{
		Timeout: cfg.OpenAI.Timeout,
		Transport: &http.Transport{
			Proxy: util.NewProxyFunc(cfg.HTTP.HTTPProxy, cfg.HTTP.HTTPSProxy, cfg.HTTP.NoProxy),
		},
	}
	chatClient := openai.NewClientWithConfig(clientConfig)

	registry, err := ingest.NewRegistry(cfg.Ingest.DataDir)
	if err != nil {
		return nil, fmt.Errorf("registry: %w", err)
	}

	store := index.NewStore(cfg.Qdrant, cfg.HTTP)
	return &Pipeline{
		cfg:        cfg,
		embedder:   embedder,
		index:      store,
		retriever:  NewRetriever(embedder, store, cfg.Retrieval.RRFK, cfg.Retrieval.TopK),
		rewriter:   NewRewriter(chatClient, cfg.OpenAI.ChatModel, cfg.Retrieval.MaxQueries),
		answerer:   NewAnswerer(chatClient, cfg.OpenAI.ChatModel, cfg.OpenAI.MaxTokens),
		summarizer: NewSummarizer(chatClient, cfg.OpenAI.ChatModel, cfg.OpenAI.MaxTokens),
		memory:     NewStore(cfg.Memory.TTL),
		registry:   registry,
		stats:      ingest.NewStatsStore(cfg.Ingest.DataDir),
	}, nil
}

// Ingest parses, chunks, embeds and indexes one transcript. Identical bytes
// resolve to the existing meeting without touching the index; created reports
// whether this call did the indexing.
func (p *Pipeline) Ingest(ctx context.Context, fileName string, contents []byte) (meeting *model.Meeting, created bool, err error) {
	hash := ingest.ContentHash(contents)

	existingID, proceed, err := p.registry.Reserve(ctx, hash)
	if err != nil {
		return nil, false, fmt.Errorf("reserve %s: %w", fileName, err)
	}
	if !proceed {
		m := &model.Meeting{ID: existingID, File: fileName}
		if stats, ok := p.stats.Load(existingID); ok {
			m.TurnCount = statTurnCount(stats)
		}
		return m, false, nil
	}
	defer func() {
		if err != nil {
			p.registry.Release(hash)
		}
	}()

	turns, err := ingest.ParseTranscript(string(contents))
	if err != nil {
		return nil, false, fmt.Errorf("parse %s: %w", fileName, err)
	}

	meetingID := hash
	chunks := ingest.ChunkTurns(meetingID, fileName, turns, p.cfg.Ingest.ChunkTurns)

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	embeddings, err := p.embedder.EmbedBatch(ctx, texts, embed.ModeDoc)
	if err != nil {
		return nil, false, fmt.Errorf("embed %s: %w", fileName, err)
	}

	if err := p.index.EnsureCollection(ctx, len(embeddings[0].Dense)); err != nil {
		return nil, false, fmt.Errorf("ensure collection: %w", err)
	}
	if err := p.index.UpsertChunks(ctx, chunks, embeddings); err != nil {
		return nil, false, fmt.Errorf("index %s: %w", fileName, err)
	}

	stats := ingest.ComputeStats(turns)
	if err := p.stats.Save(meetingID, stats); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to save meeting stats: %v\n", err)
	}
	if err := p.registry.Commit(hash, meetingID); err != nil {
		return nil, false, fmt.Errorf("register %s: %w", fileName, err)
	}

	return &model.Meeting{
		ID:         meetingID,
		File:       fileName,
		IngestedAt: time.Now().UTC(),
		TurnCount:  len(turns),
		ChunkCount: len(chunks),
	}, true, nil
}

// AskOptions are per-ask overrides
type AskOptions struct {
	TopK          int    // 0 = configured default
	SpeakerFilter string // Overrides speaker detection in the question
	TimeFilter    string // Explicit HH:MM:SS filter, ahead of timestamps in the question
}

// AskResult is the terminal outcome of one ask. Refused means no citation
// survived the guardrail and Answer holds the refusal message; it is a
// well-formed outcome, not an error.
type AskResult struct {
	Answer           string
	Citations        []model.Citation
	Refused          bool
	Retrieved        []model.RetrievedChunk
	Queries          []string
	UsedForRetrieval string
	FollowUp         bool
}

// Ask answers one question against an ingested meeting
func (p *Pipeline) Ask(ctx context.Context, meetingID, question string, opts AskOptions) (*AskResult, error) {
	prior, hasMemory := p.memory.Lookup(meetingID)
	followUp := hasMemory && IsFollowUp(question, hasMemory)

	parsedTs := ParseTimestamps(question)
	if opts.TimeFilter != "" {
		parsedTs = append([]string{opts.TimeFilter}, parsedTs...)
	}
	if len(parsedTs) == 0 && followUp {
		parsedTs = ParseTimestamps(prior.Question)
	}

	stats, hasStats := p.stats.Load(meetingID)
	var knownSpeakers []string
	for _, s := range stats.SpeakerStats {
		knownSpeakers = append(knownSpeakers, s.Speaker)
	}
	speaker := opts.SpeakerFilter
	if speaker == "" {
		speaker = ParseSpeaker(question, knownSpeakers)
	}
	if speaker == "" && followUp {
		speaker = ParseSpeaker(prior.Question, knownSpeakers)
	}

	useForRetrieval := question
	if followUp {
		useForRetrieval = RetrievalQuery(question, prior)
	}

	rewrite := p.rewriter.Rewrite(ctx, useForRetrieval)

	filter := index.Filter{MeetingID: meetingID, Speaker: speaker}
	retrieved, err := p.retriever.Retrieve(ctx, rewrite.Queries, filter, opts.TopK)
	if err != nil {
		return nil, fmt.Errorf("retrieve: %w", err)
	}

	result := &AskResult{
		Retrieved:        retrieved,
		Queries:          rewrite.Queries,
		UsedForRetrieval: useForRetrieval,
		FollowUp:         followUp,
	}

	var timeFilter string
	if len(parsedTs) > 0 {
		timeFilter = parsedTs[0]
		retrieved, err = p.applyTimeFilter(ctx, meetingID, parsedTs, speaker, stats, hasStats, retrieved)
		if err != nil {
			return nil, err
		}
		result.Retrieved = retrieved
		if len(retrieved) == 0 {
			result.Answer = RefusalTimeNotFound
			result.Refused = true
			return result, nil
		}
	}

	if len(retrieved) == 0 {
		result.Answer = RefusalNotFound
		result.Refused = true
		return result, nil
	}

	packOpts := PackOptions{
		TimeFilter:    timeFilter,
		SpeakerFilter: speaker,
		MaxChunks:     p.cfg.Retrieval.MaxContextChunks,
	}
	if hasStats {
		packOpts.Overview = ingest.FormatOverview(stats)
	}
	if followUp {
		packOpts.PriorAnswer = prior.Answer
		packOpts.FollowUpQuestion = question
	}
	contextText, allowed := Pack(retrieved, packOpts)

	answer, proposed, err := p.answerer.Generate(ctx, question, contextText, allowed)
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}

	citations, refused := ValidateCitations(proposed, allowed)
	if refused {
		result.Answer = RefusalNotFound
		if timeFilter != "" {
			result.Answer = RefusalTimeNotFound
		}
		result.Refused = true
		return result, nil
	}

	result.Answer = answer
	result.Citations = citations
	p.memory.Save(meetingID, Entry{Question: question, Answer: answer, Retrieved: retrieved})
	return result, nil
}

// Summarize extracts decisions, action items and risks from one ingested
// meeting. Retrieval runs a single broad query; an empty retrieval or a
// summary with no evidence-backed items both yield an empty summary, never an
// error.
func (p *Pipeline) Summarize(ctx context.Context, meetingID string) (*Summary, error) {
	retrieved, err := p.retriever.Retrieve(ctx, []string{summaryQuery}, index.Filter{MeetingID: meetingID}, 12)
	if err != nil {
		return nil, fmt.Errorf("retrieve: %w", err)
	}
	if len(retrieved) == 0 {
		return &Summary{}, nil
	}

	packOpts := PackOptions{MaxChunks: p.cfg.Retrieval.MaxContextChunks}
	if stats, ok := p.stats.Load(meetingID); ok {
		packOpts.Overview = ingest.FormatOverview(stats)
	}
	contextText, allowed := Pack(retrieved, packOpts)

	summary, err := p.summarizer.Summarize(ctx, contextText, allowed)
	if err != nil {
		return nil, fmt.Errorf("summarize: %w", err)
	}
	return summary, nil
}

// applyTimeFilter narrows retrieval to chunks whose span contains the asked
// time. Chunks found by the time scroll are merged in ahead of ranked hits.
// A requested time outside the meeting's bounds, or one matching no chunk,
// empties the result so the caller refuses.
func (p *Pipeline) applyTimeFilter(ctx context.Context, meetingID string, parsedTs []string, speaker string, stats model.MeetingStats, hasStats bool, retrieved []model.RetrievedChunk) ([]model.RetrievedChunk, error) {
	reqSec, err := ingest.TimestampToSeconds(parsedTs[0])
	if err != nil {
		return nil, fmt.Errorf("time filter: %w", err)
	}

	timeHits, err := p.index.ChunksAtTime(ctx, meetingID, reqSec, speaker, 20)
	if err != nil {
		return nil, fmt.Errorf("time lookup: %w", err)
	}
	if len(timeHits) > 0 {
		byID := make(map[string]struct{}, len(timeHits))
		merged := make([]model.RetrievedChunk, 0, len(timeHits)+len(retrieved))
		for _, hit := range timeHits {
			byID[hit.Chunk.ChunkID] = struct{}{}
			merged = append(merged, model.RetrievedChunk{Chunk: hit.Chunk, Score: hit.Score})
		}
		for _, r := range retrieved {
			if _, ok := byID[r.ChunkID]; !ok {
				merged = append(merged, r)
			}
		}
		retrieved = merged
	}

	firstSec, lastSec, haveBounds := meetingBounds(stats, hasStats, retrieved)
	if haveBounds {
		for _, ts := range parsedTs {
			sec, err := ingest.TimestampToSeconds(ts)
			if err != nil {
				return nil, fmt.Errorf("time filter: %w", err)
			}
			if sec < firstSec || sec > lastSec {
				return nil, nil
			}
		}
	}

	filtered := retrieved[:0:0]
	for _, r := range retrieved {
		if r.TimeStartSec <= reqSec && reqSec <= r.TimeEndSec {
			filtered = append(filtered, r)
		}
	}
	return filtered, nil
}

// meetingBounds returns the meeting's first/last second offsets, preferring
// stored stats over spans observed in the retrieved set
func meetingBounds(stats model.MeetingStats, hasStats bool, retrieved []model.RetrievedChunk) (int, int, bool) {
	if hasStats {
		first, err1 := ingest.TimestampToSeconds(stats.FirstTimestamp)
		last, err2 := ingest.TimestampToSeconds(stats.LastTimestamp)
		if err1 == nil && err2 == nil {
			return first, last, true
		}
	}
	if len(retrieved) == 0 {
		return 0, 0, false
	}
	first, last := retrieved[0].TimeStartSec, retrieved[0].TimeEndSec
	for _, r := range retrieved[1:] {
		if r.TimeStartSec < first {
			first = r.TimeStartSec
		}
		if r.TimeEndSec > last {
			last = r.TimeEndSec
		}
	}
	return first, last, true
}

func statTurnCount(stats model.MeetingStats) int {
	total := 0
	for _, s := range stats.SpeakerStats {
		total += s.TurnCount
	}
	return total
}
