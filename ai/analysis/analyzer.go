// Package analysis derives memory attributes from a single chat turn via the
// LLM: an importance score, an emotional state, a short summary and topic
// tags. Analysis is best-effort; any failure degrades to neutral defaults so
// a broken analyzer can never block the chat.
package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/narrinai/companion/ai/llm"
	"github.com/narrinai/companion/internal/metrics"
	"github.com/narrinai/companion/store"
)

const systemPrompt = `You analyze one message from a user talking to an AI companion.
Respond with ONLY a JSON object, no prose, in exactly this shape:
{"memory_importance": <integer 1-10>, "emotional_state": "<happy|sad|excited|angry|neutral>", "summary": "<at most 100 characters>", "memory_tags": ["<tag>", ...]}
Score importance 1-3 for small talk, 4-6 for everyday facts, 7-10 for major life events, relationships, and strong preferences.`

const maxSummaryLen = 100

// Result is the fixed shape returned by the message-analysis endpoint.
type Result struct {
	Importance     int                  `json:"memory_importance"`
	EmotionalState store.EmotionalState `json:"emotional_state"`
	Summary        string               `json:"summary"`
	Tags           []string             `json:"memory_tags"`
}

// Analyzer scores chat turns.
type Analyzer struct {
	llm     llm.Service
	metrics *metrics.Metrics
}

// NewAnalyzer creates an Analyzer. metrics may be nil.
func NewAnalyzer(service llm.Service, m *metrics.Metrics) *Analyzer {
	return &Analyzer{llm: service, metrics: m}
}

// neutralResult is the degraded output used when analysis fails.
func neutralResult(message string) *Result {
	summary := truncateRunes(strings.TrimSpace(message), maxSummaryLen)
	return &Result{
		Importance:     store.DefaultImportance,
		EmotionalState: store.EmotionNeutral,
		Summary:        summary,
	}
}

// Analyze scores one user message. It never returns an error for model
// misbehavior: unparseable output falls back to neutral defaults, and
// out-of-range values are clamped.
func (a *Analyzer) Analyze(ctx context.Context, message string) (*Result, error) {
	if strings.TrimSpace(message) == "" {
		return nil, fmt.Errorf("message is required")
	}

	start := time.Now()
	content, _, err := a.llm.Chat(ctx, []llm.Message{
		llm.SystemPrompt(systemPrompt),
		llm.UserPrompt(message),
	})
	if err != nil {
		a.metrics.ObserveLLMCall("analysis", "error", time.Since(start))
		return nil, err
	}
	a.metrics.ObserveLLMCall("analysis", "ok", time.Since(start))

	result := parseResult(content)
	if result == nil {
		slog.Warn("unparseable analysis output, using neutral defaults", "content", truncateForLog(content))
		return neutralResult(message), nil
	}
	return result, nil
}

// parseResult decodes the model output, tolerating markdown code fences.
// Returns nil when no JSON object can be recovered.
func parseResult(content string) *Result {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	// Recover the outermost object if the model wrapped it in prose.
	if start := strings.Index(content, "{"); start >= 0 {
		if end := strings.LastIndex(content, "}"); end > start {
			content = content[start : end+1]
		}
	}

	var result Result
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return nil
	}

	result.Importance = store.ClampImportance(result.Importance)
	result.EmotionalState = store.ParseEmotionalState(string(result.EmotionalState))
	result.Summary = truncateRunes(strings.TrimSpace(result.Summary), maxSummaryLen)
	return &result
}

// truncateRunes cuts s to at most max runes. Slicing by byte offset could
// split a multi-byte rune and leave an invalid-UTF-8 summary.
func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}

func truncateForLog(s string) string {
	if len(s) > 200 {
		return s[:200] + "..."
	}
	return s
}
