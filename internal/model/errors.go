package model

import "errors"

// Sentinel errors for the ingestion and retrieval pipelines. Callers classify
// failures with errors.Is; wrapped context is added at each layer.
var (
	// ErrMalformedTranscript means no line in the file matched the
	// [HH:MM:SS] Speaker: text pattern. The whole transcript is rejected.
	ErrMalformedTranscript = errors.New("malformed transcript: no parseable lines")

	// ErrInvalidTimestamp means a timestamp fell outside 00:00:00-99:59:59
	ErrInvalidTimestamp = errors.New("invalid timestamp")

	// ErrRetrievalUnavailable means the embedding service or vector index
	// failed after retries. The ask or ingestion fails hard; there is no
	// partial or cached fallback.
	ErrRetrievalUnavailable = errors.New("retrieval unavailable")
)
