package feed

import (
	"encoding/xml"
	"fmt"
	"time"
)

// eventNS carries the start date and location, which RSS 2.0 has no
// element for.
const eventNS = "https://schemas.society.events/rss/1.0"

type rssDoc struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	NSEvent string     `xml:"xmlns:ev,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title       string    `xml:"title"`
	Link        string    `xml:"link"`
	Description string    `xml:"description"`
	Items       []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string  `xml:"title"`
	Link        string  `xml:"link,omitempty"`
	Description string  `xml:"description"`
	PubDate     string  `xml:"pubDate"`
	GUID        rssGUID `xml:"guid"`
	Category    string  `xml:"category,omitempty"`
	StartDate   string  `xml:"ev:startDate"`
	Location    string  `xml:"ev:location,omitempty"`
}

type rssGUID struct {
	IsPermaLink bool   `xml:"isPermaLink,attr"`
	Value       string `xml:",chardata"`
}

// RSSXML renders a Channel as an RSS 2.0 document.
func RSSXML(ch Channel) ([]byte, error) {
	doc := rssDoc{
		Version: "2.0",
		NSEvent: eventNS,
		Channel: rssChannel{
			Title:       ch.Title,
			Link:        ch.Link,
			Description: ch.Description,
			Items:       make([]rssItem, 0, len(ch.Items)),
		},
	}
	for _, it := range ch.Items {
		doc.Channel.Items = append(doc.Channel.Items, rssItem{
			Title:       it.Title,
			Link:        it.Link,
			Description: it.Description,
			PubDate:     it.PubDate.UTC().Format(time.RFC1123Z),
			GUID:        rssGUID{Value: it.GUID},
			Category:    string(it.Category),
			StartDate:   it.StartDate.UTC().Format(time.RFC3339),
			Location:    it.Location,
		})
	}
	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal rss: %w", err)
	}
	return append([]byte(xml.Header), out...), nil
}
