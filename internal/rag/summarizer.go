package rag

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/mkravets/minuta/internal/model"
)

// summaryQuery is the broad retrieval query behind a summary; it targets the
// vocabulary of decisions, ownership and risk rather than any one topic
const summaryQuery = "decisions action items owners due dates risks open questions"

// Summary is the structured extraction from one meeting. Every item carries an
// evidence reference of the form "file:start-end"; items whose evidence is not
// in the packed context are dropped before the summary reaches the caller.
type Summary struct {
	Decisions   []Decision   `json:"decisions"`
	ActionItems []ActionItem `json:"action_items"`
	Risks       []RiskItem   `json:"risks_or_open_questions"`
}

// Decision is one decision the meeting reached
type Decision struct {
	Decision string `json:"decision"`
	Evidence string `json:"evidence"`
}

// ActionItem is one task with an owner and optional due date
type ActionItem struct {
	Owner    string  `json:"owner"`
	Task     string  `json:"task"`
	DueDate  *string `json:"due_date"`
	Evidence string  `json:"evidence"`
}

// RiskItem is one risk or open question raised in the meeting
type RiskItem struct {
	Item     string `json:"item"`
	Evidence string `json:"evidence"`
}

// Empty reports whether the summary carries no items at all
func (s *Summary) Empty() bool {
	return len(s.Decisions) == 0 && len(s.ActionItems) == 0 && len(s.Risks) == 0
}

// Summarizer extracts a structured summary over a packed context. Like the
// answerer it treats the model output as claims: items survive only when their
// evidence string names a range that was actually in the context.
type Summarizer struct {
	client    ChatClient
	model     string
	maxTokens int
}

// NewSummarizer creates a summarizer
func NewSummarizer(client ChatClient, chatModel string, maxTokens int) *Summarizer {
	if maxTokens <= 0 {
		maxTokens = 1000
	}
	return &Summarizer{client: client, model: chatModel, maxTokens: maxTokens}
}

// Summarize calls the chat service over the packed context and filters the
// result down to evidence-backed items
func (s *Summarizer) Summarize(ctx context.Context, contextText string, allowed []model.AllowedRange) (*Summary, error) {
	allowedList := make([]string, 0, len(allowed))
	allowedSet := make(map[string]struct{}, len(allowed))
	for _, r := range allowed {
		ref := fmt.Sprintf("%s:%d-%d", r.File, r.LineStart, r.LineEnd)
		if _, dup := allowedSet[ref]; dup {
			continue
		}
		allowedSet[ref] = struct{}{}
		allowedList = append(allowedList, ref)
	}
	sort.Strings(allowedList)

	userMsg := strings.NewReplacer(
		"<<CONTEXT>>", contextText,
		"<<ALLOWED_EVIDENCE>>", strings.Join(allowedList, "\n"),
	).Replace(summaryUserPrompt)

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: summarySystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userMsg},
		},
		Temperature: 0.1,
		MaxTokens:   s.maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("summary completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in summary response")
	}

	summary := parseSummary(resp.Choices[0].Message.Content)
	return filterSummaryEvidence(summary, allowedSet), nil
}

// parseSummary decodes the model output, tolerating prose around the JSON
// object. Unparseable output degrades to an empty summary rather than an
// error; an empty summary is a valid extraction result.
func parseSummary(raw string) *Summary {
	raw = strings.TrimSpace(raw)
	var s Summary
	if err := json.Unmarshal([]byte(raw), &s); err == nil {
		return &s
	}
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start != -1 && end > start {
		s = Summary{}
		if err := json.Unmarshal([]byte(raw[start:end+1]), &s); err == nil {
			return &s
		}
	}
	return &Summary{}
}

// filterSummaryEvidence keeps only items whose evidence exactly names an
// allowed range. There is no clamping here: summary evidence is a literal pick
// from the offered list, so anything else is invented.
func filterSummaryEvidence(s *Summary, allowed map[string]struct{}) *Summary {
	out := &Summary{}
	for _, d := range s.Decisions {
		if _, ok := allowed[d.Evidence]; ok {
			out.Decisions = append(out.Decisions, d)
		}
	}
	for _, a := range s.ActionItems {
		if _, ok := allowed[a.Evidence]; ok {
			out.ActionItems = append(out.ActionItems, a)
		}
	}
	for _, r := range s.Risks {
		if _, ok := allowed[r.Evidence]; ok {
			out.Risks = append(out.Risks, r)
		}
	}
	return out
}
