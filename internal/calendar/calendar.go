// Package calendar projects events onto calendar dates and month grids.
package calendar

import (
	"time"

	"github.com/Shivanand-hulikatti/society-events/internal/model"
)

// DefaultColor is used for categories without a mapping.
const DefaultColor = "#6B7280"

var categoryColors = map[model.Category]string{
	model.CategoryWorkshop:      "#3B82F6",
	model.CategoryMeeting:       "#10B981",
	model.CategoryDemonstration: "#F59E0B",
	model.CategoryExhibition:    "#8B5CF6",
	model.CategorySocial:        "#EC4899",
	model.CategoryFieldTrip:     "#14B8A6",
	model.CategoryCompetition:   "#EF4444",
}

// ColorFor returns the display color token for a category.
func ColorFor(c model.Category) string {
	if color, ok := categoryColors[c]; ok {
		return color
	}
	return DefaultColor
}

// GridCells is the size of a month grid: six full weeks.
const GridCells = 42

// Entry is one event placed on a calendar date.
type Entry struct {
	EventID  string         `json:"event_id"`
	Title    string         `json:"title"`
	Start    time.Time      `json:"start"`
	Category model.Category `json:"category"`
	Color    string         `json:"color"`
}

// Cell is one calendar date and the events starting on it.
type Cell struct {
	Date            time.Time `json:"date"`
	InCurrentPeriod bool      `json:"in_current_period"`
	Events          []Entry   `json:"events"`
}

// Project returns one cell per calendar date from rangeStart to rangeEnd
// inclusive, evaluated in loc. Events are placed by their local start date.
func Project(events []model.Event, rangeStart, rangeEnd time.Time, loc *time.Location) []Cell {
	if loc == nil {
		loc = time.UTC
	}
	first := dateOf(rangeStart, loc)
	last := dateOf(rangeEnd, loc)
	if last.Before(first) {
		return []Cell{}
	}

	byDate := groupByDate(events, loc)
	var cells []Cell
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		cells = append(cells, Cell{
			Date:            d,
			InCurrentPeriod: true,
			Events:          entriesFor(byDate, d),
		})
	}
	return cells
}

// MonthGrid returns the 42-cell grid for a month, starting on weekStart.
// Leading and trailing days from neighbouring months are flagged with
// InCurrentPeriod false.
func MonthGrid(events []model.Event, year int, month time.Month, loc *time.Location, weekStart time.Weekday) []Cell {
	if loc == nil {
		loc = time.UTC
	}
	firstOfMonth := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	lead := (int(firstOfMonth.Weekday()) - int(weekStart) + 7) % 7
	start := firstOfMonth.AddDate(0, 0, -lead)

	byDate := groupByDate(events, loc)
	cells := make([]Cell, 0, GridCells)
	for i := 0; i < GridCells; i++ {
		d := start.AddDate(0, 0, i)
		cells = append(cells, Cell{
			Date:            d,
			InCurrentPeriod: d.Month() == month && d.Year() == year,
			Events:          entriesFor(byDate, d),
		})
	}
	return cells
}

type dateKey struct {
	year  int
	month time.Month
	day   int
}

func keyOf(t time.Time) dateKey {
	y, m, d := t.Date()
	return dateKey{y, m, d}
}

func dateOf(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

func groupByDate(events []model.Event, loc *time.Location) map[dateKey][]Entry {
	out := make(map[dateKey][]Entry)
	for _, e := range events {
		k := keyOf(e.StartDate.In(loc))
		out[k] = append(out[k], Entry{
			EventID:  e.ID,
			Title:    e.Title,
			Start:    e.StartDate,
			Category: e.Category,
			Color:    ColorFor(e.Category),
		})
	}
	return out
}

func entriesFor(byDate map[dateKey][]Entry, d time.Time) []Entry {
	if entries, ok := byDate[keyOf(d)]; ok {
		return entries
	}
	return []Entry{}
}
