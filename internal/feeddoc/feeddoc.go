// Package feeddoc converts saved items to and from feed documents.
package feeddoc

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/hpratapsigh/creator-dashboard/internal/model"
	"github.com/mmcdole/gofeed"
)

// RSS represents the root of an RSS 2.0 document.
type RSS struct {
	XMLName xml.Name `xml:"rss"`
	Version string   `xml:"version,attr"`
	Channel Channel  `xml:"channel"`
}

// Channel contains the feed metadata and items.
type Channel struct {
	Title         string `xml:"title"`
	Link          string `xml:"link"`
	Description   string `xml:"description"`
	LastBuildDate string `xml:"lastBuildDate,omitempty"`
	Items         []Item `xml:"item"`
}

// Item is one saved entry.
type Item struct {
	Title  string `xml:"title"`
	Link   string `xml:"link,omitempty"`
	GUID   GUID   `xml:"guid"`
	Source string `xml:"category,omitempty"`
}

// GUID carries the item id. isPermaLink is always false because ids are
// backend identifiers, not URLs.
type GUID struct {
	Value       string `xml:",chardata"`
	IsPermaLink string `xml:"isPermaLink,attr"`
}

// Parse reads an RSS, Atom or JSON Feed document and returns its entries as
// feed items. The entry GUID is used as id, falling back to the link.
// Entries with neither are skipped. Source is the entry's first category,
// or the feed title.
func Parse(r io.Reader) ([]model.FeedItem, error) {
	feed, err := gofeed.NewParser().Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	var items []model.FeedItem
	for _, entry := range feed.Items {
		id := strings.TrimSpace(entry.GUID)
		if id == "" {
			id = strings.TrimSpace(entry.Link)
		}
		if id == "" {
			continue
		}
		source := feed.Title
		if len(entry.Categories) > 0 && entry.Categories[0] != "" {
			source = entry.Categories[0]
		}
		title := entry.Title
		if title == "" {
			title = entry.Link
		}
		items = append(items, model.FeedItem{
			ID:     id,
			Title:  title,
			Source: source,
			Link:   entry.Link,
		})
	}
	return items, nil
}

// Export generates an RSS 2.0 document listing items in order.
func Export(title, link string, items []model.FeedItem, now time.Time) ([]byte, error) {
	doc := RSS{
		Version: "2.0",
		Channel: Channel{
			Title:         title,
			Link:          link,
			Description:   "Saved items",
			LastBuildDate: now.Format(time.RFC1123Z),
		},
	}
	for _, it := range items {
		doc.Channel.Items = append(doc.Channel.Items, Item{
			Title:  it.Title,
			Link:   it.Link,
			GUID:   GUID{Value: it.ID, IsPermaLink: "false"},
			Source: it.Source,
		})
	}

	output, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), output...), nil
}
