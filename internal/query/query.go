// Package query filters, sorts and searches event snapshots. Every function
// is pure: it never mutates its input and never fails.
package query

import (
	"slices"
	"strings"
	"time"

	"golang.org/x/text/cases"

	"github.com/Shivanand-hulikatti/society-events/internal/model"
)

// All is the neutral value for Category, Difficulty and Status.
const All = "all"

const (
	StatusUpcoming = "upcoming"
	StatusPast     = "past"
)

// DateRange is an inclusive start-date window.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls within [Start, End].
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// Criteria narrows an event list. Each option left at its neutral value
// ("" or "all", nil range, empty search) has no effect; the rest combine
// with AND.
type Criteria struct {
	Category   string
	Difficulty string
	Status     string
	DateRange  *DateRange
	Search     string
}

// Filter applies c to events relative to now.
//
// Upcoming keeps events starting strictly after now in ascending start
// order; past keeps the rest in descending order. A DateRange replaces the
// status rule and sorts ascending. With no status or range the input order
// is kept.
func Filter(events []model.Event, c Criteria, now time.Time) []model.Event {
	terms := searchTerms(c.Search)
	out := make([]model.Event, 0, len(events))
	for _, e := range events {
		if !neutral(c.Category) && string(e.Category) != c.Category {
			continue
		}
		if !neutral(c.Difficulty) && string(e.Difficulty) != c.Difficulty {
			continue
		}
		if c.DateRange != nil {
			if !c.DateRange.Contains(e.StartDate) {
				continue
			}
		} else if !matchStatus(e, c.Status, now) {
			continue
		}
		if !matchTerms(e, terms) {
			continue
		}
		out = append(out, e)
	}

	switch {
	case c.DateRange != nil:
		sortAscending(out)
	case c.Status == StatusUpcoming:
		sortAscending(out)
	case c.Status == StatusPast:
		sortDescending(out)
	}
	return out
}

// Upcoming returns events starting after now, soonest first.
func Upcoming(events []model.Event, now time.Time) []model.Event {
	return Filter(events, Criteria{Status: StatusUpcoming}, now)
}

// ByCategory returns at most limit upcoming events in category, soonest
// first. A non-positive limit means no limit.
func ByCategory(events []model.Event, category model.Category, limit int, now time.Time) []model.Event {
	return truncate(Filter(events, Criteria{Category: string(category), Status: StatusUpcoming}, now), limit)
}

// Featured returns at most limit upcoming featured events, soonest first.
// A non-positive limit means no limit.
func Featured(events []model.Event, limit int, now time.Time) []model.Event {
	upcoming := Upcoming(events, now)
	out := upcoming[:0]
	for _, e := range upcoming {
		if e.Featured {
			out = append(out, e)
		}
	}
	return truncate(out, limit)
}

// Search is Filter with only a search query, all statuses.
func Search(events []model.Event, q string, now time.Time) []model.Event {
	return Filter(events, Criteria{Search: q}, now)
}

func neutral(v string) bool {
	return v == "" || v == All
}

func matchStatus(e model.Event, status string, now time.Time) bool {
	switch status {
	case "", All:
		return true
	case StatusUpcoming:
		return e.StartDate.After(now)
	case StatusPast:
		return !e.StartDate.After(now)
	default:
		return false
	}
}

// fold builds a fresh Caser per call; Casers carry state and must not be
// shared between goroutines.
func fold(s string) string {
	return cases.Fold().String(s)
}

func searchTerms(q string) []string {
	fields := strings.Fields(q)
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		terms = append(terms, fold(f))
	}
	return terms
}

// matchTerms requires every term to appear in title, description,
// instructor or location.
func matchTerms(e model.Event, terms []string) bool {
	if len(terms) == 0 {
		return true
	}
	text := fold(strings.Join([]string{e.Title, e.Description, e.Instructor, e.Location}, " "))
	for _, t := range terms {
		if !strings.Contains(text, t) {
			return false
		}
	}
	return true
}

func sortAscending(events []model.Event) {
	slices.SortStableFunc(events, func(a, b model.Event) int {
		return a.StartDate.Compare(b.StartDate)
	})
}

func sortDescending(events []model.Event) {
	slices.SortStableFunc(events, func(a, b model.Event) int {
		return b.StartDate.Compare(a.StartDate)
	})
}

func truncate(events []model.Event, limit int) []model.Event {
	if limit > 0 && len(events) > limit {
		return events[:limit]
	}
	return events
}
