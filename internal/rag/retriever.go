package rag

import (
	"context"
	"fmt"
	"sort"

	"github.com/mkravets/minuta/internal/embed"
	"github.com/mkravets/minuta/internal/index"
	"github.com/mkravets/minuta/internal/model"
	"github.com/mkravets/minuta/internal/worker"
)

// Index is the vector index contract the pipeline consumes. *index.Store
// satisfies it; tests substitute fakes.
type Index interface {
	EnsureCollection(ctx context.Context, denseSize int) error
	UpsertChunks(ctx context.Context, chunks []model.Chunk, embeddings []embed.Embedding) error
	QueryDense(ctx context.Context, vector []float32, f index.Filter, limit int) ([]index.Scored, error)
	QuerySparse(ctx context.Context, vector embed.SparseVector, f index.Filter, limit int) ([]index.Scored, error)
	ChunksAtTime(ctx context.Context, meetingID string, second int, speaker string, limit int) ([]index.Scored, error)
}

// DefaultRRFK is the conventional reciprocal rank fusion constant. It is a
// policy knob, not a law; override via retrieval.rrf_k.
const DefaultRRFK = 60

// Retriever issues dense+sparse queries per rewritten query, fuses each pair
// of ranked lists with reciprocal rank fusion, and merges across queries by
// summing fused scores per chunk.
type Retriever struct {
	embedder embed.Embedder
	index    Index
	rrfK     int
	topK     int
}

// NewRetriever creates a retriever. rrfK and topK fall back to defaults when
// non-positive.
func NewRetriever(embedder embed.Embedder, idx Index, rrfK, topK int) *Retriever {
	if rrfK <= 0 {
		rrfK = DefaultRRFK
	}
	if topK <= 0 {
		topK = 10
	}
	return &Retriever{embedder: embedder, index: idx, rrfK: rrfK, topK: topK}
}

// fused tracks one chunk's accumulated score and its best dense rank, which
// breaks score ties before the chunk id does
type fused struct {
	chunk     model.Chunk
	score     float64
	denseRank int // Best (lowest) 1-based dense rank seen; 0 = never in a dense list
}

// Retrieve runs every query concurrently, fuses, merges, deduplicates by
// chunk id, and truncates to topK (caller override wins when positive).
// An empty result is a valid outcome, distinct from an error.
func (r *Retriever) Retrieve(ctx context.Context, queries []string, f index.Filter, topK int) ([]model.RetrievedChunk, error) {
	if topK <= 0 {
		topK = r.topK
	}
	if len(queries) == 0 {
		return nil, nil
	}

	// One batched embedding call covers all rewritten queries; order is preserved
	embeddings, err := r.embedder.EmbedBatch(ctx, queries, embed.ModeQuery)
	if err != nil {
		return nil, fmt.Errorf("embed queries: %w", err)
	}

	pool := worker.NewPool(ctx, len(queries))
	pool.Start()
	for i := range queries {
		pool.Submit(&queryJob{
			retriever: r,
			queryIdx:  i,
			embedding: embeddings[i],
			filter:    f,
			limit:     topK,
		})
	}
	results := pool.Wait()

	// Reassemble per-query results in submission order before merging: float
	// summation is not associative, so folding in completion order could
	// produce run-to-run score differences at the last ulp.
	ordered := make([]*queryResult, len(queries))
	for _, res := range results {
		qr := res.(*queryResult)
		if qr.err != nil {
			return nil, qr.err
		}
		ordered[qr.queryIdx] = qr
	}

	merged := make(map[string]*fused)
	for _, qr := range ordered {
		if qr == nil {
			continue
		}
		for cid, qf := range qr.fused {
			m, ok := merged[cid]
			if !ok {
				merged[cid] = &fused{chunk: qf.chunk, score: qf.score, denseRank: qf.denseRank}
				continue
			}
			m.score += qf.score
			if qf.denseRank > 0 && (m.denseRank == 0 || qf.denseRank < m.denseRank) {
				m.denseRank = qf.denseRank
			}
		}
	}

	ranked := make([]*fused, 0, len(merged))
	for _, m := range merged {
		ranked = append(ranked, m)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		ri, rj := ranked[i].denseRank, ranked[j].denseRank
		if ri != rj {
			// A present dense rank beats an absent one; lower rank wins
			if ri == 0 {
				return false
			}
			if rj == 0 {
				return true
			}
			return ri < rj
		}
		return ranked[i].chunk.ChunkID < ranked[j].chunk.ChunkID
	})

	if len(ranked) > topK {
		ranked = ranked[:topK]
	}
	out := make([]model.RetrievedChunk, len(ranked))
	for i, m := range ranked {
		out[i] = model.RetrievedChunk{Chunk: m.chunk, Score: m.score}
	}
	return out, nil
}

type queryJob struct {
	retriever *Retriever
	queryIdx  int
	embedding embed.Embedding
	filter    index.Filter
	limit     int
}

type queryResult struct {
	queryIdx int
	fused    map[string]*fused
	err      error
}

func (r *queryResult) GetError() error { return r.err }

// Execute runs the dense and sparse lookups for one query and fuses them
func (j *queryJob) Execute(ctx context.Context) worker.Result {
	dense, err := j.retriever.index.QueryDense(ctx, j.embedding.Dense, j.filter, j.limit)
	if err != nil {
		return &queryResult{queryIdx: j.queryIdx, err: fmt.Errorf("dense query: %w", err)}
	}
	sparse, err := j.retriever.index.QuerySparse(ctx, j.embedding.Sparse, j.filter, j.limit)
	if err != nil {
		return &queryResult{queryIdx: j.queryIdx, err: fmt.Errorf("sparse query: %w", err)}
	}
	return &queryResult{queryIdx: j.queryIdx, fused: fuseRRF(dense, sparse, j.retriever.rrfK)}
}

// fuseRRF fuses a dense and a sparse ranked list: each chunk scores
// 1/(k+rank) per list it appears in, ranks 1-based. Chunks absent from a list
// contribute nothing from it.
func fuseRRF(dense, sparse []index.Scored, k int) map[string]*fused {
	out := make(map[string]*fused, len(dense)+len(sparse))
	for i, hit := range dense {
		rank := i + 1
		out[hit.Chunk.ChunkID] = &fused{
			chunk:     hit.Chunk,
			score:     1.0 / float64(k+rank),
			denseRank: rank,
		}
	}
	for i, hit := range sparse {
		rank := i + 1
		contribution := 1.0 / float64(k+rank)
		if f, ok := out[hit.Chunk.ChunkID]; ok {
			f.score += contribution
		} else {
			out[hit.Chunk.ChunkID] = &fused{chunk: hit.Chunk, score: contribution}
		}
	}
	return out
}
