package rag

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/sashabaranov/go-openai"

	"github.com/mkravets/minuta/internal/embed"
	"github.com/mkravets/minuta/internal/index"
	"github.com/mkravets/minuta/internal/model"
)

// fakeEmbedder produces deterministic vectors without any service. The dense
// vector is a one-element fingerprint of the text.
type fakeEmbedder struct {
	err error
}

func textFingerprint(text string) float32 {
	var sum int
	for _, r := range text {
		sum += int(r)
	}
	return float32(sum)
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string, mode embed.SparseMode) ([]embed.Embedding, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]embed.Embedding, len(texts))
	for i, text := range texts {
		sparse := embed.EncodeSparseDoc(text)
		if mode == embed.ModeQuery {
			sparse = embed.EncodeSparseQuery(text)
		}
		out[i] = embed.Embedding{Dense: []float32{textFingerprint(text)}, Sparse: sparse}
	}
	return out, nil
}

// scriptedIndex lets tests dictate ranked lists per query vector
type scriptedIndex struct {
	denseFn  func(vector []float32, f index.Filter, limit int) []index.Scored
	sparseFn func(vector embed.SparseVector, f index.Filter, limit int) []index.Scored
	timeFn   func(second int) []index.Scored
	err      error
}

func (s *scriptedIndex) EnsureCollection(ctx context.Context, denseSize int) error { return nil }

func (s *scriptedIndex) UpsertChunks(ctx context.Context, chunks []model.Chunk, embeddings []embed.Embedding) error {
	return nil
}

func (s *scriptedIndex) QueryDense(ctx context.Context, vector []float32, f index.Filter, limit int) ([]index.Scored, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.denseFn == nil {
		return nil, nil
	}
	return s.denseFn(vector, f, limit), nil
}

func (s *scriptedIndex) QuerySparse(ctx context.Context, vector embed.SparseVector, f index.Filter, limit int) ([]index.Scored, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.sparseFn == nil {
		return nil, nil
	}
	return s.sparseFn(vector, f, limit), nil
}

func (s *scriptedIndex) ChunksAtTime(ctx context.Context, meetingID string, second int, speaker string, limit int) ([]index.Scored, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.timeFn == nil {
		return nil, nil
	}
	return s.timeFn(second), nil
}

// memIndex is an in-memory vector index for end-to-end pipeline tests. It
// honors the meeting, speaker and time filters and ranks dense hits by
// chunk ordinal (relevance quality is not under test).
type memIndex struct {
	mu      sync.Mutex
	chunks  map[string]model.Chunk
	upserts int
}

func newMemIndex() *memIndex {
	return &memIndex{chunks: make(map[string]model.Chunk)}
}

func (m *memIndex) EnsureCollection(ctx context.Context, denseSize int) error { return nil }

func (m *memIndex) UpsertChunks(ctx context.Context, chunks []model.Chunk, embeddings []embed.Embedding) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range chunks {
		m.chunks[c.ChunkID] = c
	}
	m.upserts += len(chunks)
	return nil
}

func (m *memIndex) matching(f index.Filter) []model.Chunk {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Chunk
	for _, c := range m.chunks {
		if c.MeetingID != f.MeetingID {
			continue
		}
		if f.Speaker != "" && !containsSpeaker(c.Speakers, f.Speaker) {
			continue
		}
		if f.AtSecond != nil && !(c.TimeStartSec <= *f.AtSecond && *f.AtSecond <= c.TimeEndSec) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ordinal < out[j].Ordinal })
	return out
}

func containsSpeaker(speakers []string, want string) bool {
	for _, s := range speakers {
		if s == want {
			return true
		}
	}
	return false
}

func (m *memIndex) QueryDense(ctx context.Context, vector []float32, f index.Filter, limit int) ([]index.Scored, error) {
	chunks := m.matching(f)
	if len(chunks) > limit {
		chunks = chunks[:limit]
	}
	out := make([]index.Scored, len(chunks))
	for i, c := range chunks {
		out[i] = index.Scored{Chunk: c, Score: 1.0 / float64(i+1)}
	}
	return out, nil
}

func (m *memIndex) QuerySparse(ctx context.Context, vector embed.SparseVector, f index.Filter, limit int) ([]index.Scored, error) {
	return m.QueryDense(ctx, nil, f, limit)
}

func (m *memIndex) ChunksAtTime(ctx context.Context, meetingID string, second int, speaker string, limit int) ([]index.Scored, error) {
	chunks := m.matching(index.Filter{MeetingID: meetingID, Speaker: speaker, AtSecond: &second})
	if len(chunks) > limit {
		chunks = chunks[:limit]
	}
	out := make([]index.Scored, len(chunks))
	for i, c := range chunks {
		out[i] = index.Scored{Chunk: c}
	}
	return out, nil
}

// mockChat scripts chat completions by system prompt: rewrite calls get
// rewriteOut, summary calls get summaryOut, answer calls get answerOut
type mockChat struct {
	rewriteOut string
	rewriteErr error
	answerOut  string
	answerErr  error
	summaryOut string
	summaryErr error

	mu           sync.Mutex
	answerCalls  []string // User messages from answer calls
	summaryCalls []string // User messages from summary calls
}

func (m *mockChat) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	if len(req.Messages) == 0 {
		return openai.ChatCompletionResponse{}, fmt.Errorf("no messages")
	}
	switch req.Messages[0].Content {
	case rewriteSystemPrompt:
		if m.rewriteErr != nil {
			return openai.ChatCompletionResponse{}, m.rewriteErr
		}
		return chatResponse(m.rewriteOut), nil
	case summarySystemPrompt:
		if m.summaryErr != nil {
			return openai.ChatCompletionResponse{}, m.summaryErr
		}
		m.mu.Lock()
		m.summaryCalls = append(m.summaryCalls, req.Messages[len(req.Messages)-1].Content)
		m.mu.Unlock()
		return chatResponse(m.summaryOut), nil
	}
	if m.answerErr != nil {
		return openai.ChatCompletionResponse{}, m.answerErr
	}
	m.mu.Lock()
	m.answerCalls = append(m.answerCalls, req.Messages[len(req.Messages)-1].Content)
	m.mu.Unlock()
	return chatResponse(m.answerOut), nil
}

func chatResponse(content string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: content}},
		},
	}
}
