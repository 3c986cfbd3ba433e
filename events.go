package welcome

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

const (
	// DefaultNextEventsSize is the page size of NewNextEvents when none is given.
	DefaultNextEventsSize = 30

	// DefaultLastEventsOffset is the depth of NewLastEvents when none is given.
	DefaultLastEventsOffset = 10
)

// Snapshot references the picture taken for an event.
type Snapshot struct {
	ID      string `json:"id"`
	Version int    `json:"version"`
	Key     string `json:"key"`
}

// Event is something a camera saw or did.
type Event struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Time        int64     `json:"time"`
	CameraID    string    `json:"camera_id"`
	DeviceID    string    `json:"device_id,omitempty"`
	PersonID    string    `json:"person_id,omitempty"`
	Message     string    `json:"message"`
	Snapshot    *Snapshot `json:"snapshot,omitempty"`
	VideoID     string    `json:"video_id,omitempty"`
	VideoStatus string    `json:"video_status,omitempty"`
	IsArrival   bool      `json:"is_arrival,omitempty"`
}

func (e *Event) clone() Event {
	c := *e
	if e.Snapshot != nil {
		snap := *e.Snapshot
		c.Snapshot = &snap
	}
	return c
}

func cloneEvents(events []Event) []Event {
	if events == nil {
		return nil
	}
	out := make([]Event, len(events))
	for i := range events {
		out[i] = events[i].clone()
	}
	return out
}

// Direction tells which way an event page walks from its anchor event.
type Direction string

const (
	DirectionNext  Direction = "next"
	DirectionLast  Direction = "last"
	DirectionUntil Direction = "until"
)

type eventsBody struct {
	EventsList []Event `json:"events_list"`
}

// EventPage is a bounded, ordered list of events anchored at one event id.
// The order is the server's; it is never re-sorted.
type EventPage struct {
	client    *Client
	direction Direction
	homeID    string
	eventID   string
	events    []Event
}

// NewNextEvents fetches up to size events following eventID in a home.
// A size of zero or less means DefaultNextEventsSize.
func NewNextEvents(ctx context.Context, s *Session, homeID, eventID string, size int) (*EventPage, error) {
	if size <= 0 {
		size = DefaultNextEventsSize
	}
	params := url.Values{}
	params.Set("size", strconv.Itoa(size))
	return fetchEvents(ctx, s, pathGetNextEvents, DirectionNext, homeID, eventID, params)
}

// NewLastEvents fetches events ending at eventID, offset deep.
// An offset of zero or less means DefaultLastEventsOffset.
func NewLastEvents(ctx context.Context, s *Session, homeID, eventID string, offset int) (*EventPage, error) {
	if offset <= 0 {
		offset = DefaultLastEventsOffset
	}
	params := url.Values{}
	params.Set("offset", strconv.Itoa(offset))
	return fetchEvents(ctx, s, pathGetLastEventOf, DirectionLast, homeID, eventID, params)
}

// NewEventsUntil fetches every event from the most recent one back to eventID.
func NewEventsUntil(ctx context.Context, s *Session, homeID, eventID string) (*EventPage, error) {
	return fetchEvents(ctx, s, pathGetEventsUntil, DirectionUntil, homeID, eventID, url.Values{})
}

func fetchEvents(ctx context.Context, s *Session, path string, dir Direction, homeID, eventID string, params url.Values) (*EventPage, error) {
	if homeID == "" {
		return nil, ErrEmptyHomeID
	}
	params.Set("home_id", homeID)
	if eventID != "" {
		params.Set("event_id", eventID)
	}

	name := string(dir) + " events"
	env, err := s.call(ctx, path, params, name)
	if err != nil {
		return nil, err
	}

	body, err := unmarshalResponse[eventsBody](env.Body, name)
	if err != nil {
		return nil, err
	}

	return &EventPage{
		client:    s.Client,
		direction: dir,
		homeID:    homeID,
		eventID:   eventID,
		events:    body.EventsList,
	}, nil
}

// Direction returns which query produced the page.
func (p *EventPage) Direction() Direction {
	return p.direction
}

// HomeID returns the home the page was fetched for.
func (p *EventPage) HomeID() string {
	return p.homeID
}

// AnchorID returns the event id the page was fetched around.
func (p *EventPage) AnchorID() string {
	return p.eventID
}

// Events returns a copy of the page's events in server order.
func (p *EventPage) Events() []Event {
	out := cloneEvents(p.events)
	if out == nil {
		out = []Event{}
	}
	return out
}

// Len returns the number of events in the page.
func (p *EventPage) Len() int {
	return len(p.events)
}

// EventByOrder returns a copy of the n-th event of the page. An index outside
// the page returns an error wrapping ErrEventOutOfRange.
func (p *EventPage) EventByOrder(n int) (*Event, error) {
	if n < 0 || n >= len(p.events) {
		if p.client != nil {
			p.client.logOutOfRange(context.Background(), n, len(p.events))
		}
		return nil, fmt.Errorf("%w: index %d, page holds %d events", ErrEventOutOfRange, n, len(p.events))
	}
	ev := p.events[n].clone()
	return &ev, nil
}

// EventByID returns a copy of the event with the given id.
func (p *EventPage) EventByID(id string) (*Event, bool) {
	for i := range p.events {
		if p.events[i].ID == id {
			ev := p.events[i].clone()
			return &ev, true
		}
	}
	return nil, false
}

// resolve returns ev, or the first event of the page when ev is nil.
func (p *EventPage) resolve(ev *Event) (*Event, bool) {
	if ev != nil {
		return ev, true
	}
	if len(p.events) == 0 {
		return nil, false
	}
	return &p.events[0], true
}

// Snapshot returns the snapshot of ev (nil means the first event).
// It reports false when there is no event or the event has no snapshot.
func (p *EventPage) Snapshot(ev *Event) (*Snapshot, bool) {
	ev, ok := p.resolve(ev)
	if !ok || ev.Snapshot == nil {
		return nil, false
	}
	snap := *ev.Snapshot
	return &snap, true
}

// Message returns the message of ev (nil means the first event).
func (p *EventPage) Message(ev *Event) (string, bool) {
	ev, ok := p.resolve(ev)
	if !ok {
		return "", false
	}
	return ev.Message, true
}

// CameraID returns the camera id of ev (nil means the first event).
func (p *EventPage) CameraID(ev *Event) (string, bool) {
	ev, ok := p.resolve(ev)
	if !ok {
		return "", false
	}
	return ev.CameraID, true
}

// Type returns the type of ev (nil means the first event).
func (p *EventPage) Type(ev *Event) (string, bool) {
	ev, ok := p.resolve(ev)
	if !ok {
		return "", false
	}
	return ev.Type, true
}

// Time returns the epoch time of ev (nil means the first event).
func (p *EventPage) Time(ev *Event) (int64, bool) {
	ev, ok := p.resolve(ev)
	if !ok {
		return 0, false
	}
	return ev.Time, true
}
