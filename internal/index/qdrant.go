package index

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/mkravets/minuta/internal/embed"
	"github.com/mkravets/minuta/internal/model"
	"github.com/mkravets/minuta/internal/util"
)

const (
	denseVectorName  = "dense"
	sparseVectorName = "sparse"
)

// pointNamespace seeds UUIDv5 point ids so the same chunk_id always maps to
// the same Qdrant point, which makes upserts idempotent
var pointNamespace = uuid.MustParse("9a1b1f3e-4c7d-4c1a-9f22-6d8a2b5e0c41")

// Filter restricts a query to one meeting, and optionally to a speaker and to
// chunks whose time span contains a given second offset. The meeting id is
// mandatory; queries never cross meetings.
type Filter struct {
	MeetingID string
	Speaker   string
	AtSecond  *int
}

// Scored is one ranked hit from the index
type Scored struct {
	Chunk model.Chunk
	Score float64
}

// Store is a minimal REST client to Qdrant with named dense and sparse
// vectors. The collection is created on first ingestion.
type Store struct {
	url        string
	apiKey     string
	collection string
	client     *http.Client
}

// NewStore creates a Qdrant store from configuration
func NewStore(cfg model.QdrantConfig, httpCfg model.HTTPConfig) *Store {
	return &Store{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		client: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				Proxy: util.NewProxyFunc(httpCfg.HTTPProxy, httpCfg.HTTPSProxy, httpCfg.NoProxy),
			},
		},
	}
}

// PointID returns the deterministic Qdrant point id for a chunk id
func PointID(chunkID string) string {
	return uuid.NewSHA1(pointNamespace, []byte(chunkID)).String()
}

// EnsureCollection creates the collection if it does not exist. Qdrant treats
// a PUT for an existing collection with the same schema as a no-op.
func (s *Store) EnsureCollection(ctx context.Context, denseSize int) error {
	if denseSize <= 0 {
		return fmt.Errorf("invalid dense vector size %d", denseSize)
	}
	body := map[string]any{
		"vectors": map[string]any{
			denseVectorName: map[string]any{
				"size":     denseSize,
				"distance": "Cosine",
			},
		},
		"sparse_vectors": map[string]any{
			sparseVectorName: map[string]any{},
		},
	}
	return s.do(ctx, http.MethodPut, fmt.Sprintf("/collections/%s", s.collection), body, nil)
}

// UpsertChunks writes chunks and their vectors to the collection. The chunk
// payload carries all metadata needed to rebuild a model.Chunk at query time.
func (s *Store) UpsertChunks(ctx context.Context, chunks []model.Chunk, embeddings []embed.Embedding) error {
	if len(chunks) != len(embeddings) {
		return fmt.Errorf("chunks and embeddings length mismatch: %d vs %d", len(chunks), len(embeddings))
	}
	points := make([]map[string]any, len(chunks))
	for i, c := range chunks {
		points[i] = map[string]any{
			"id": PointID(c.ChunkID),
			"vector": map[string]any{
				denseVectorName: embeddings[i].Dense,
				sparseVectorName: map[string]any{
					"indices": embeddings[i].Sparse.Indices,
					"values":  embeddings[i].Sparse.Values,
				},
			},
			"payload": c,
		}
	}
	body := map[string]any{"points": points}
	path := fmt.Sprintf("/collections/%s/points?wait=true", s.collection)
	if err := s.do(ctx, http.MethodPut, path, body, nil); err != nil {
		return fmt.Errorf("%w: upsert: %v", model.ErrRetrievalUnavailable, err)
	}
	return nil
}

// QueryDense runs a dense similarity query under the filter
func (s *Store) QueryDense(ctx context.Context, vector []float32, f Filter, limit int) ([]Scored, error) {
	return s.query(ctx, denseVectorName, vector, f, limit)
}

// QuerySparse runs a sparse keyword query under the filter
func (s *Store) QuerySparse(ctx context.Context, vector embed.SparseVector, f Filter, limit int) ([]Scored, error) {
	if len(vector.Indices) == 0 {
		return nil, nil
	}
	q := map[string]any{"indices": vector.Indices, "values": vector.Values}
	return s.query(ctx, sparseVectorName, q, f, limit)
}

func (s *Store) query(ctx context.Context, using string, queryVec any, f Filter, limit int) ([]Scored, error) {
	if limit <= 0 {
		limit = 10
	}
	body := map[string]any{
		"query":        queryVec,
		"using":        using,
		"limit":        limit,
		"with_payload": true,
		"filter":       buildFilter(f),
	}
	var resp struct {
		Result struct {
			Points []scoredPoint `json:"points"`
		} `json:"result"`
	}
	path := fmt.Sprintf("/collections/%s/points/query", s.collection)
	if err := s.do(ctx, http.MethodPost, path, body, &resp); err != nil {
		return nil, fmt.Errorf("%w: query: %v", model.ErrRetrievalUnavailable, err)
	}
	return decodePoints(resp.Result.Points)
}

// ChunksAtTime returns chunks whose time span contains the given second
// offset, via a filtered scroll. Scores are zero; the caller treats these as
// mandatory context rather than ranked hits.
func (s *Store) ChunksAtTime(ctx context.Context, meetingID string, second int, speaker string, limit int) ([]Scored, error) {
	if limit <= 0 {
		limit = 20
	}
	f := Filter{MeetingID: meetingID, Speaker: speaker, AtSecond: &second}
	body := map[string]any{
		"limit":        limit,
		"with_payload": true,
		"filter":       buildFilter(f),
	}
	var resp struct {
		Result struct {
			Points []scoredPoint `json:"points"`
		} `json:"result"`
	}
	path := fmt.Sprintf("/collections/%s/points/scroll", s.collection)
	if err := s.do(ctx, http.MethodPost, path, body, &resp); err != nil {
		return nil, fmt.Errorf("%w: scroll: %v", model.ErrRetrievalUnavailable, err)
	}
	return decodePoints(resp.Result.Points)
}

type scoredPoint struct {
	Score   float64         `json:"score"`
	Payload json.RawMessage `json:"payload"`
}

func decodePoints(points []scoredPoint) ([]Scored, error) {
	out := make([]Scored, 0, len(points))
	for _, p := range points {
		var c model.Chunk
		if err := json.Unmarshal(p.Payload, &c); err != nil {
			return nil, fmt.Errorf("decode chunk payload: %w", err)
		}
		out = append(out, Scored{Chunk: c, Score: p.Score})
	}
	return out, nil
}

// buildFilter translates a Filter into Qdrant filter JSON. meeting_id is
// always a must condition; speaker and time conditions AND onto it.
func buildFilter(f Filter) map[string]any {
	must := []map[string]any{
		{"key": "meeting_id", "match": map[string]any{"value": f.MeetingID}},
	}
	if f.Speaker != "" {
		must = append(must, map[string]any{
			"key":   "speakers",
			"match": map[string]any{"value": f.Speaker},
		})
	}
	if f.AtSecond != nil {
		must = append(must,
			map[string]any{"key": "time_start_sec", "range": map[string]any{"lte": *f.AtSecond}},
			map[string]any{"key": "time_end_sec", "range": map[string]any{"gte": *f.AtSecond}},
		)
	}
	return map[string]any{"must": must}
}

func (s *Store) do(ctx context.Context, method, path string, body any, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.url+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant %s %s failed: %s", method, path, resp.Status)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
