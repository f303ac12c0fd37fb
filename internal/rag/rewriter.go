package rag

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// ChatClient is the subset of the chat completion API the rewriter and
// answerer use. *openai.Client satisfies it; tests substitute mocks.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// RewriteResult is an explicit two-branch outcome: either the service
// produced usable variants, or we fell back to the original question. The
// distinction is kept so callers and tests can tell recovery from success;
// retrieval proceeds either way.
type RewriteResult struct {
	Queries  []string
	Fallback bool
	Err      error // Cause of the fallback, nil on success
}

// Rewriter expands one question into up to maxQueries retrieval queries. It
// owns prompt assembly, output parsing, deduplication and capping. Any
// failure -- timeout, malformed output, empty output -- falls back to the
// question unchanged; retrieval never blocks on this component.
type Rewriter struct {
	client     ChatClient
	model      string
	maxQueries int
}

// NewRewriter creates a rewriter; a nil client disables rewriting (every call
// falls back)
func NewRewriter(client ChatClient, chatModel string, maxQueries int) *Rewriter {
	if maxQueries <= 0 || maxQueries > 3 {
		maxQueries = 3
	}
	return &Rewriter{client: client, model: chatModel, maxQueries: maxQueries}
}

// Rewrite returns 1 to maxQueries queries, the first being the original
// question or a close paraphrase
func (r *Rewriter) Rewrite(ctx context.Context, question string) RewriteResult {
	question = strings.TrimSpace(question)
	fallback := func(err error) RewriteResult {
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: query rewrite failed, using original question: %v\n", err)
		}
		return RewriteResult{Queries: []string{question}, Fallback: true, Err: err}
	}
	if question == "" || r.client == nil {
		return fallback(nil)
	}

	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: r.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: rewriteSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: question},
		},
		Temperature: 0.2,
		MaxTokens:   150,
	})
	if err != nil {
		return fallback(err)
	}
	if len(resp.Choices) == 0 {
		return fallback(fmt.Errorf("no choices in response"))
	}

	queries := parseQueryLines(resp.Choices[0].Message.Content, r.maxQueries)
	if len(queries) == 0 {
		return fallback(fmt.Errorf("empty rewrite output"))
	}
	return RewriteResult{Queries: queries}
}

// parseQueryLines splits service output into trimmed lines, dropping blanks
// and case-insensitive duplicates, capped at max
func parseQueryLines(raw string, max int) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		key := strings.ToLower(line)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, line)
		if len(out) >= max {
			break
		}
	}
	return out
}
