// Package feed exports event sets as RSS and iCalendar documents for
// external readers and calendar applications.
package feed

import (
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/Shivanand-hulikatti/society-events/internal/model"
)

const (
	defaultTitle       = "Society Events"
	defaultDescription = "Upcoming events"
	defaultDomain      = "events.local"
	defaultProductID   = "-//Society//Events//EN"

	// defaultDuration is assumed for events without an end date.
	defaultDuration = 2 * time.Hour
)

// Exporter renders feeds. The zero value is usable and falls back to
// generic titles and the events.local UID domain.
type Exporter struct {
	Title       string
	Description string
	// Link is the public site root, without a trailing slash.
	Link string
	// Domain is the right-hand side of every VEVENT UID.
	Domain string
}

// Channel is the RSS model of an event set.
type Channel struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Link        string `json:"link"`
	Items       []Item `json:"items"`
}

// Item is one event in a Channel.
type Item struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Link        string         `json:"link"`
	PubDate     time.Time      `json:"pub_date"`
	GUID        string         `json:"guid"`
	Category    model.Category `json:"category"`
	StartDate   time.Time      `json:"start_date"`
	Location    string         `json:"location"`
}

// ToRSSModel builds one item per event, keeping the input order.
func (x Exporter) ToRSSModel(events []model.Event) Channel {
	ch := Channel{
		Title:       or(x.Title, defaultTitle),
		Description: or(x.Description, defaultDescription),
		Link:        x.Link,
		Items:       make([]Item, 0, len(events)),
	}
	for _, e := range events {
		link := x.eventLink(e.ID)
		pub := e.CreatedDate
		if pub.IsZero() {
			pub = e.StartDate
		}
		ch.Items = append(ch.Items, Item{
			Title:       e.Title,
			Description: e.Description,
			Link:        link,
			PubDate:     pub,
			GUID:        x.uid(e.ID),
			Category:    e.Category,
			StartDate:   e.StartDate,
			Location:    e.Location,
		})
	}
	return ch
}

// ToICalText renders a VCALENDAR with one VEVENT per event, CRLF line
// endings. Times are UTC; an event without an end date is given a two hour
// duration.
func (x Exporter) ToICalText(events []model.Event) string {
	cal := ical.NewCalendar()
	cal.SetProductId(defaultProductID)
	cal.SetMethod(ical.MethodPublish)

	for _, e := range events {
		ve := cal.AddEvent(x.uid(e.ID))
		end := e.StartDate.Add(defaultDuration)
		if e.EndDate != nil {
			end = *e.EndDate
		}
		stamp := e.CreatedDate
		if stamp.IsZero() {
			stamp = e.StartDate
		}
		ve.SetDtStampTime(stamp)
		ve.SetStartAt(e.StartDate)
		ve.SetEndAt(end)
		ve.SetSummary(plainText(e.Title))
		if e.Description != "" {
			ve.SetDescription(plainText(e.Description))
		}
		if e.Location != "" {
			ve.SetLocation(plainText(e.Location))
		}
		if e.Category != "" {
			ve.SetProperty(ical.ComponentPropertyCategories, string(e.Category))
		}
		if x.Link != "" {
			ve.SetURL(x.eventLink(e.ID))
		}
	}
	return cal.Serialize(ical.WithNewLineWindows)
}

// plainText folds CRLF and bare CR to LF. golang-ical applies TEXT escaping
// when serializing and escapes only LF.
func plainText(s string) string {
	return newlines.Replace(s)
}

var newlines = strings.NewReplacer("\r\n", "\n", "\r", "\n")

func (x Exporter) uid(eventID string) string {
	return eventID + "@" + or(x.Domain, defaultDomain)
}

func (x Exporter) eventLink(eventID string) string {
	return strings.TrimRight(x.Link, "/") + "/events/" + eventID
}

func or(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
