package rag

import (
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/mkravets/minuta/internal/model"
)

// Entry is the last exchange stored per meeting
type Entry struct {
	Question  string
	Answer    string
	Retrieved []model.RetrievedChunk
}

// Store is the ask-memory contract: one entry per meeting, replaced wholesale
// after every successful ask. Concurrent asks against the same meeting are
// last-writer-wins; no stronger ordering is guaranteed. Injected so it can
// later be backed by a distributed cache without changing call sites.
type Store interface {
	Lookup(meetingID string) (Entry, bool)
	Save(meetingID string, e Entry)
}

// CacheStore backs Store with an in-process TTL cache
type CacheStore struct {
	cache *gocache.Cache
}

// NewStore creates an ask-memory store whose entries expire after ttl
func NewStore(ttl time.Duration) *CacheStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &CacheStore{cache: gocache.New(ttl, 10*time.Minute)}
}

// Lookup returns the stored entry for a meeting. ok=false means no entry;
// expired entries read as absent, so callers can tell "no entry" from stale.
func (s *CacheStore) Lookup(meetingID string) (Entry, bool) {
	if v, found := s.cache.Get(meetingID); found {
		return v.(Entry), true
	}
	return Entry{}, false
}

// Save replaces the meeting's entry atomically
func (s *CacheStore) Save(meetingID string, e Entry) {
	s.cache.SetDefault(meetingID, e)
}

// followUpPhrases are connective phrases that mark a question as continuing
// the previous exchange
var followUpPhrases = []string{
	"what about", "and then", "more detail", "elaborate", "expand",
	"tell me more", "what else", "go on", "continue", "give me more",
	"can you elaborate", "expand on that", "further detail", "why",
	"how so", "about that",
}

// IsFollowUp reports whether a question looks like a follow-up to the prior
// exchange. This is a heuristic: short or vague questions count only when a
// prior entry exists; connective phrases count regardless.
func IsFollowUp(question string, hasMemory bool) bool {
	q := strings.ToLower(strings.TrimSpace(question))
	if q == "" {
		return false
	}
	if hasMemory && (len(strings.Fields(q)) <= 3 || len(q) <= 15) {
		return true
	}
	for _, p := range followUpPhrases {
		if strings.Contains(q, p) {
			return true
		}
	}
	return false
}

// RetrievalQuery builds the string used for retrieval on a follow-up: the
// stored prior question anchored with the current one. Follow-ups often omit
// the subject entirely ("what about the budget?"), so the prior question
// restores the topic.
func RetrievalQuery(question string, prior Entry) string {
	anchor := strings.TrimSpace(question)
	prev := strings.TrimSpace(prior.Question)
	if prev == "" {
		return anchor
	}
	return prev + " " + anchor
}
