package embed

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/mkravets/minuta/internal/model"
	"github.com/mkravets/minuta/internal/util"
)

// DefaultBatchSize is the number of texts sent per embeddings request
const DefaultBatchSize = 32

// Embedder produces one dense and one sparse vector per input text, preserving
// input order. Implementations must fail the whole batch on error; callers
// treat embedding failure as fatal to the ingestion or query, never as a
// reason to silently skip texts.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string, mode SparseMode) ([]Embedding, error)
}

// SparseMode selects the sparse encoding side
type SparseMode int

const (
	ModeDoc SparseMode = iota
	ModeQuery
)

// Embedding pairs the dense and sparse vectors for one text
type Embedding struct {
	Dense  []float32
	Sparse SparseVector
}

// OpenAIEmbedder implements Embedder against the OpenAI embeddings API. Dense
// vectors come from the API; sparse vectors are computed locally so documents
// and queries share one encoding.
type OpenAIEmbedder struct {
	client    *openai.Client
	model     openai.EmbeddingModel
	batchSize int
	limiter   *rate.Limiter
}

// NewOpenAIEmbedder creates an embedder from configuration. batchSize falls
// back to DefaultBatchSize when non-positive.
func NewOpenAIEmbedder(cfg model.OpenAIConfig, httpCfg model.HTTPConfig, batchSize int) (*OpenAIEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	clientConfig.HTTPClient = &http.Client{
		Timeout: cfg.Timeout,
		Transport: &http.Transport{
			Proxy: util.NewProxyFunc(httpCfg.HTTPProxy, httpCfg.HTTPSProxy, httpCfg.NoProxy),
		},
	}

	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 5
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 10
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	return &OpenAIEmbedder{
		client:    openai.NewClientWithConfig(clientConfig),
		model:     openai.EmbeddingModel(cfg.EmbeddingModel),
		batchSize: batchSize,
		limiter:   rate.NewLimiter(rate.Limit(rps), burst),
	}, nil
}

// EmbedBatch embeds texts in fixed-size batches, retrying transient API failures
// per the fixed backoff schedule. Output order matches input order. On
// exhausted retries the error wraps ErrRetrievalUnavailable.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string, mode SparseMode) ([]Embedding, error) {
	out := make([]Embedding, 0, len(texts))
	for start := 0; start < len(texts); start += e.batchSize {
		end := start + e.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[start:end]

		dense, err := e.embedDense(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("%w: embed batch [%d:%d]: %v", model.ErrRetrievalUnavailable, start, end, err)
		}
		for i, text := range batch {
			sparse := EncodeSparseDoc(text)
			if mode == ModeQuery {
				sparse = EncodeSparseQuery(text)
			}
			out = append(out, Embedding{Dense: dense[i], Sparse: sparse})
		}
	}
	return out, nil
}

func (e *OpenAIEmbedder) embedDense(ctx context.Context, texts []string) ([][]float32, error) {
	var resp openai.EmbeddingResponse
	err := withRetry(ctx, func() error {
		if err := e.limiter.Wait(ctx); err != nil {
			return err
		}
		var apiErr error
		resp, apiErr = e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Model: e.model,
			Input: texts,
		})
		return apiErr
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embeddings API returned %d vectors for %d inputs", len(resp.Data), len(texts))
	}
	vectors := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		vectors[i] = d.Embedding
	}
	return vectors, nil
}
