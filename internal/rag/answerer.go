package rag

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/mkravets/minuta/internal/model"
)

// citeRe extracts inline [file:start-end] citations from free-text answers
var citeRe = regexp.MustCompile(`\[([^\]:]+):(\d+)-(\d+)\]`)

// Answerer generates an answer over the packed context. The returned
// citations are claims only; the caller must run them through the guardrail
// before trusting them.
type Answerer struct {
	client    ChatClient
	model     string
	maxTokens int
}

// NewAnswerer creates an answerer
func NewAnswerer(client ChatClient, chatModel string, maxTokens int) *Answerer {
	if maxTokens <= 0 {
		maxTokens = 1000
	}
	return &Answerer{client: client, model: chatModel, maxTokens: maxTokens}
}

// Generate calls the chat service and parses its output. A structured JSON
// response {"answer","citations"} is preferred; anything else falls back to
// the raw text with citations scraped from inline [file:a-b] markers.
func (a *Answerer) Generate(ctx context.Context, question, contextText string, allowed []model.AllowedRange) (string, []model.Citation, error) {
	allowedList := make([]string, 0, len(allowed))
	for _, r := range allowed {
		allowedList = append(allowedList, fmt.Sprintf("%s:%d-%d", r.File, r.LineStart, r.LineEnd))
	}
	sort.Strings(allowedList)

	userMsg := strings.NewReplacer(
		"<<QUESTION>>", question,
		"<<CONTEXT>>", contextText,
		"<<ALLOWED_EVIDENCE>>", strings.Join(allowedList, "\n"),
	).Replace(answerUserPrompt)

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: answerSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userMsg},
		},
		Temperature: 0.1,
		MaxTokens:   a.maxTokens,
	})
	if err != nil {
		return "", nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil, fmt.Errorf("no choices in chat response")
	}

	raw := strings.TrimSpace(resp.Choices[0].Message.Content)
	answer, citations := parseAnswer(raw)
	return answer, citations, nil
}

// parseAnswer decodes the structured response, falling back to free text
func parseAnswer(raw string) (string, []model.Citation) {
	var structured struct {
		Answer    string `json:"answer"`
		Citations []struct {
			File      string `json:"file"`
			LineStart int    `json:"line_start"`
			LineEnd   int    `json:"line_end"`
		} `json:"citations"`
	}
	if err := json.Unmarshal([]byte(raw), &structured); err == nil && structured.Answer != "" {
		citations := make([]model.Citation, 0, len(structured.Citations))
		for _, c := range structured.Citations {
			if c.File == "" {
				continue
			}
			citations = append(citations, model.Citation{
				File:      c.File,
				LineStart: c.LineStart,
				LineEnd:   c.LineEnd,
			})
		}
		if len(citations) == 0 {
			citations = extractInlineCitations(structured.Answer)
		}
		return strings.TrimSpace(structured.Answer), citations
	}
	return raw, extractInlineCitations(raw)
}

// extractInlineCitations scrapes [file:a-b] markers, deduplicated in order
func extractInlineCitations(text string) []model.Citation {
	seen := make(map[model.Citation]struct{})
	var out []model.Citation
	for _, m := range citeRe.FindAllStringSubmatch(text, -1) {
		start, err1 := strconv.Atoi(m[2])
		end, err2 := strconv.Atoi(m[3])
		if err1 != nil || err2 != nil {
			continue
		}
		c := model.Citation{File: m[1], LineStart: start, LineEnd: end}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}
