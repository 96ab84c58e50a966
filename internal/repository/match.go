// Package repository implements the user and event stores. PostgreSQL (pgx),
// MongoDB and an in-memory map share the same method sets and the same
// failure kinds from package apperr.
package repository

import (
	"regexp"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/campus-events/eventsvc/internal/model"
)

// Word edges are spelled out instead of using \b so that terms ending in
// punctuation ("C++") still match, and so the same pattern runs on RE2,
// MongoDB's PCRE and PostgreSQL's ARE engines.
const (
	wordStart = `(?:^|[^[:alnum:]_])`
	wordEnd   = `(?:[^[:alnum:]_]|$)`
)

// wordPattern returns a pattern matching term literally as a whole word.
func wordPattern(term string) string {
	return wordStart + regexp.QuoteMeta(strings.TrimSpace(term)) + wordEnd
}

// wordMatcher compiles a case-insensitive whole-word matcher for term.
func wordMatcher(term string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)` + wordPattern(term))
}

// dayBounds returns [start, end) of the UTC calendar day containing t.
func dayBounds(t time.Time) (time.Time, time.Time) {
	t = t.UTC()
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 1)
}

// sortEvents orders events by date, then creation time.
func sortEvents(events []model.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		if !events[i].Date.Equal(events[j].Date) {
			return events[i].Date.Before(events[j].Date)
		}
		return events[i].CreatedAt.Before(events[j].CreatedAt)
	})
}

// orderByIDs returns events in the order of ids, skipping ids with no event.
func orderByIDs(events []model.Event, ids []string) []model.Event {
	byID := make(map[string]model.Event, len(events))
	for _, e := range events {
		byID[e.ID] = e
	}
	out := make([]model.Event, 0, len(ids))
	for _, id := range ids {
		if e, ok := byID[id]; ok {
			out = append(out, e)
		}
	}
	return out
}

// orEmpty keeps nil slices from being persisted as NULL.
func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return slices.Clone(s)
}
