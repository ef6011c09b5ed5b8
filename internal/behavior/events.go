// internal/behavior/events.go
package behavior

import (
	"time"
)

// EventKind identifies the type of a recorded behavior event.
type EventKind string

const (
	EventPageView    EventKind = "page_view"
	EventSearchQuery EventKind = "search_query"
	EventClick       EventKind = "click"
	EventScroll      EventKind = "scroll"
	EventHover       EventKind = "hover"
)

// ScrollDirection indicates scroll movement direction.
type ScrollDirection string

const (
	ScrollDown ScrollDirection = "down"
	ScrollUp   ScrollDirection = "up"
)

// Event is a single recorded behavior signal. Exactly one payload group is
// populated depending on Kind. Events are immutable once created.
type Event struct {
	Kind      EventKind `json:"kind"`
	Timestamp time.Time `json:"timestamp"`

	// PageView
	Path string `json:"path,omitempty"`

	// SearchQuery
	Query string `json:"query,omitempty"`

	// Click
	Href  string `json:"href,omitempty"`
	Label string `json:"label,omitempty"`

	// Scroll
	Offset    int             `json:"offset,omitempty"`
	Direction ScrollDirection `json:"direction,omitempty"`
	Velocity  float64         `json:"velocity,omitempty"`

	// Hover
	Target string `json:"target,omitempty"`
}

// NewPageView creates a page view event.
func NewPageView(path string) Event {
	return Event{Kind: EventPageView, Path: path, Timestamp: time.Now().UTC()}
}

// NewSearchQuery creates a search query event.
func NewSearchQuery(query string) Event {
	return Event{Kind: EventSearchQuery, Query: query, Timestamp: time.Now().UTC()}
}

// NewClick creates a click event.
func NewClick(href, label string) Event {
	return Event{Kind: EventClick, Href: href, Label: label, Timestamp: time.Now().UTC()}
}

// NewScroll creates a scroll sample event.
func NewScroll(offset int, direction ScrollDirection, velocity float64) Event {
	return Event{Kind: EventScroll, Offset: offset, Direction: direction, Velocity: velocity, Timestamp: time.Now().UTC()}
}

// NewHover creates a hover sample event.
func NewHover(target string) Event {
	return Event{Kind: EventHover, Target: target, Timestamp: time.Now().UTC()}
}

// Signal returns the free-text payload the preference analyzer matches
// keywords against. Scroll samples carry no text signal.
func (e Event) Signal() string {
	switch e.Kind {
	case EventPageView:
		return e.Path
	case EventSearchQuery:
		return e.Query
	case EventClick:
		if e.Label != "" {
			return e.Label + " " + e.Href
		}
		return e.Href
	case EventHover:
		return e.Target
	default:
		return ""
	}
}
