package rag

import (
	"context"
	"strings"
	"testing"

	"github.com/mkravets/minuta/internal/model"
)

func summaryAllowed() []model.AllowedRange {
	return []model.AllowedRange{
		{File: "meeting.txt", LineStart: 1, LineEnd: 8},
		{File: "meeting.txt", LineStart: 9, LineEnd: 16},
	}
}

func TestSummarize_StructuredResponse(t *testing.T) {
	chat := &mockChat{summaryOut: `{
		"decisions": [{"decision": "Increase the budget", "evidence": "meeting.txt:1-8"}],
		"action_items": [{"owner": "Bob", "task": "Update the sheet", "due_date": "tomorrow", "evidence": "meeting.txt:9-16"}],
		"risks_or_open_questions": [{"item": "Headcount unclear", "evidence": "meeting.txt:1-8"}]
	}`}
	s := NewSummarizer(chat, "gpt-4o-mini", 0)

	got, err := s.Summarize(context.Background(), "ctx", summaryAllowed())
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if len(got.Decisions) != 1 || got.Decisions[0].Decision != "Increase the budget" {
		t.Errorf("Unexpected decisions: %+v", got.Decisions)
	}
	if len(got.ActionItems) != 1 || got.ActionItems[0].Owner != "Bob" || *got.ActionItems[0].DueDate != "tomorrow" {
		t.Errorf("Unexpected action items: %+v", got.ActionItems)
	}
	if len(got.Risks) != 1 {
		t.Errorf("Unexpected risks: %+v", got.Risks)
	}
}

func TestSummarize_DropsInventedEvidence(t *testing.T) {
	chat := &mockChat{summaryOut: `{
		"decisions": [
			{"decision": "Real", "evidence": "meeting.txt:1-8"},
			{"decision": "Invented range", "evidence": "meeting.txt:100-200"},
			{"decision": "Invented file", "evidence": "other.txt:1-8"},
			{"decision": "No evidence", "evidence": ""}
		],
		"action_items": [],
		"risks_or_open_questions": []
	}`}
	s := NewSummarizer(chat, "gpt-4o-mini", 0)

	got, err := s.Summarize(context.Background(), "ctx", summaryAllowed())
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if len(got.Decisions) != 1 || got.Decisions[0].Decision != "Real" {
		t.Errorf("Only the evidence-backed item must survive, got %+v", got.Decisions)
	}
}

func TestSummarize_ProseAroundJSON(t *testing.T) {
	chat := &mockChat{summaryOut: "Here is the summary:\n" +
		`{"decisions": [{"decision": "d", "evidence": "meeting.txt:1-8"}], "action_items": [], "risks_or_open_questions": []}` +
		"\nLet me know if you need more."}
	s := NewSummarizer(chat, "gpt-4o-mini", 0)

	got, err := s.Summarize(context.Background(), "ctx", summaryAllowed())
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if len(got.Decisions) != 1 {
		t.Errorf("Expected the embedded JSON to parse, got %+v", got)
	}
}

func TestSummarize_GarbageOutputIsEmptySummary(t *testing.T) {
	chat := &mockChat{summaryOut: "I could not find anything relevant."}
	s := NewSummarizer(chat, "gpt-4o-mini", 0)

	got, err := s.Summarize(context.Background(), "ctx", summaryAllowed())
	if err != nil {
		t.Fatalf("Unparseable output must degrade, not fail: %v", err)
	}
	if !got.Empty() {
		t.Errorf("Expected empty summary, got %+v", got)
	}
}

func TestSummarize_PromptCarriesSortedAllowedList(t *testing.T) {
	chat := &mockChat{summaryOut: `{"decisions": [], "action_items": [], "risks_or_open_questions": []}`}
	s := NewSummarizer(chat, "gpt-4o-mini", 0)

	allowed := []model.AllowedRange{
		{File: "meeting.txt", LineStart: 9, LineEnd: 16},
		{File: "meeting.txt", LineStart: 1, LineEnd: 8},
	}
	if _, err := s.Summarize(context.Background(), "the packed context", allowed); err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if len(chat.summaryCalls) != 1 {
		t.Fatalf("Expected 1 summary call, got %d", len(chat.summaryCalls))
	}
	msg := chat.summaryCalls[0]
	if !strings.Contains(msg, "the packed context") {
		t.Error("Prompt missing the context")
	}
	if strings.Index(msg, "meeting.txt:1-8") > strings.Index(msg, "meeting.txt:9-16") {
		t.Error("Allowed evidence must be sorted")
	}
}

func TestParseSummary_EmptyInput(t *testing.T) {
	if got := parseSummary(""); !got.Empty() {
		t.Errorf("Expected empty summary, got %+v", got)
	}
}
