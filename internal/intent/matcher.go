// Package intent matches user messages against keyword intents.
//
// Matching is deliberately naive: the message is lowercased and stripped of
// punctuation, then each intent is tried in table order and the first one
// with any keyword contained in the message wins. There is no scoring.
package intent

import (
	"strings"
	"unicode"

	"cipherbot/apps/backend/internal/store"
)

// Normalize lowercases the message, drops every rune that is not a letter,
// digit, underscore or Unicode whitespace, and trims it.
func Normalize(message string) string {
	cleaned := strings.Map(func(r rune) rune {
		if r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.IsSpace(r) {
			return r
		}
		return -1
	}, strings.ToLower(message))
	return strings.TrimSpace(cleaned)
}

// Keywords splits a pipe-delimited pattern into trimmed, lowercased keywords.
func Keywords(pattern string) []string {
	parts := strings.Split(pattern, "|")
	keywords := make([]string, 0, len(parts))
	for _, part := range parts {
		keyword := strings.ToLower(strings.TrimSpace(part))
		if keyword != "" {
			keywords = append(keywords, keyword)
		}
	}
	return keywords
}

// Result describes a successful match.
type Result struct {
	Intent  *store.Intent
	Keyword string
}

// Match returns the first intent whose keywords appear in the message.
func Match(message string, intents []*store.Intent) (Result, bool) {
	processed := Normalize(message)
	if processed == "" {
		return Result{}, false
	}
	for _, candidate := range intents {
		if candidate == nil || strings.TrimSpace(candidate.Pattern) == "" {
			continue
		}
		for _, keyword := range Keywords(candidate.Pattern) {
			if strings.Contains(processed, keyword) {
				return Result{Intent: candidate, Keyword: keyword}, true
			}
		}
	}
	return Result{}, false
}
