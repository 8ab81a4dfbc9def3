package memory

import (
	"regexp"
	"strings"

	"github.com/narrinai/companion/store"
)

// SourceTypeImport is the explicit type marker written by newer import runs.
const SourceTypeImport = "chatgpt_import"

// ClassifyImported decides whether a record should be treated as an imported
// memory rather than ordinary chat history. Signals are checked strictly in
// priority order:
//
//  1. metadata marker: source "chatgpt" with an import date — authoritative
//  2. explicit source-type field — authoritative
//  3. heuristic: no character association, user role, and text beginning
//     with a second-person pronoun
//
// The heuristic exists only for records imported before metadata was
// recorded. It false-positives on any user message that happens to start
// with "You", so it must never be promoted above the explicit signals.
func ClassifyImported(r *store.MemoryRecord) bool {
	if r == nil {
		return false
	}
	if r.Metadata != nil && r.Metadata.Source == store.ImportSourceChatGPT && r.Metadata.ImportDate != "" {
		return true
	}
	if r.SourceType == SourceTypeImport {
		return true
	}
	return classifyImportedHeuristic(r)
}

// classifyImportedHeuristic is the lowest-confidence fallback for legacy
// records that carry no provenance at all.
func classifyImportedHeuristic(r *store.MemoryRecord) bool {
	if hasCharacter(r) || r.Role != store.RoleUser {
		return false
	}
	text := r.Summary
	if text == "" {
		text = r.Message
	}
	text = strings.TrimSpace(text)
	return len(text) >= 4 && strings.EqualFold(text[:4], "you ")
}

// firstPersonRules rewrites second-person constructions to first person.
// Applied longest-match-first so "you are" wins over bare "you".
var firstPersonRules = []struct {
	pattern *regexp.Regexp
	repl    string
}{
	{regexp.MustCompile(`\b[Yy]ou are\b`), "I am"},
	{regexp.MustCompile(`\b[Yy]ou're\b`), "I'm"},
	{regexp.MustCompile(`\b[Yy]ou have\b`), "I have"},
	{regexp.MustCompile(`\b[Yy]ou've\b`), "I've"},
	{regexp.MustCompile(`\b[Yy]ou were\b`), "I was"},
	{regexp.MustCompile(`\b[Yy]ou will\b`), "I will"},
	{regexp.MustCompile(`\b[Yy]ou'll\b`), "I'll"},
	{regexp.MustCompile(`\b[Yy]ou'd\b`), "I'd"},
	{regexp.MustCompile(`\b[Yy]ourself\b`), "myself"},
	{regexp.MustCompile(`\b[Yy]ours\b`), "mine"},
	{regexp.MustCompile(`\b[Yy]our\b`), "my"},
	{regexp.MustCompile(`\b[Yy]ou\b`), "I"},
}

// ToFirstPerson converts second-person imported text ("You are a teacher")
// into first-person facts ("I am a teacher") for presentation to the LLM.
// Only the imported-memory display path uses this; ordinary chat records
// are never rewritten.
func ToFirstPerson(text string) string {
	for _, rule := range firstPersonRules {
		text = rule.pattern.ReplaceAllString(text, rule.repl)
	}
	return text
}
