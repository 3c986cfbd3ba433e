package welcome

import (
	"context"
	"encoding/json"
	"slices"
)

// Face is the reference picture of a known person.
type Face struct {
	ID      string `json:"id"`
	Version int    `json:"version"`
	Key     string `json:"key"`
}

// Person is someone the home's cameras can recognise.
type Person struct {
	ID         string `json:"id"`
	Pseudo     string `json:"pseudo,omitempty"`
	LastSeen   int64  `json:"last_seen"`
	OutOfSight bool   `json:"out_of_sight"`
	Face       *Face  `json:"face,omitempty"`
}

// Camera is a Welcome camera installed in a home.
type Camera struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	Status     string `json:"status"`
	SDStatus   string `json:"sd_status"`
	AlimStatus string `json:"alim_status"`
	Name       string `json:"name"`
	VPNURL     string `json:"vpn_url,omitempty"`
	IsLocal    bool   `json:"is_local"`
}

// Home is a household with its people, cameras and most recent events.
type Home struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Persons []Person        `json:"persons"`
	Cameras []Camera        `json:"cameras"`
	Events  []Event         `json:"events"`
	Raw     json.RawMessage `json:"-"`
}

// UnmarshalJSON accepts both "id" and the legacy "_id" key.
func (h *Home) UnmarshalJSON(data []byte) error {
	type home Home
	var aux struct {
		home
		LegacyID string `json:"_id"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*h = Home(aux.home)
	if h.ID == "" {
		h.ID = aux.LegacyID
	}
	return nil
}

func clonePersons(persons []Person) []Person {
	if persons == nil {
		return nil
	}
	out := make([]Person, len(persons))
	for i, p := range persons {
		if p.Face != nil {
			face := *p.Face
			p.Face = &face
		}
		out[i] = p
	}
	return out
}

func (h *Home) clone() Home {
	c := *h
	c.Persons = clonePersons(h.Persons)
	c.Cameras = slices.Clone(h.Cameras)
	c.Events = cloneEvents(h.Events)
	c.Raw = slices.Clone(h.Raw)
	return c
}

// HomeUser is the account section of a gethomedata response.
type HomeUser struct {
	RegLocale string `json:"reg_locale"`
	Lang      string `json:"lang"`
	Country   string `json:"country"`
	Mail      string `json:"mail"`
}

type homeDataBody struct {
	Homes []json.RawMessage `json:"homes"`
	User  HomeUser          `json:"user"`
}

// HomeData is a read-only snapshot of the user's homes taken when it was
// created. Build a new one to pick up changes. Lookups return copies.
type HomeData struct {
	homes *ordered[Home]

	// User is the account the homes belong to.
	User HomeUser
	// Status, TimeExec and TimeServer are copied from the response envelope.
	Status     string
	TimeExec   float64
	TimeServer int64
}

// NewHomeData fetches the homes of the session's user.
func NewHomeData(ctx context.Context, s *Session) (*HomeData, error) {
	env, err := s.call(ctx, pathGetHomeData, nil, "home data")
	if err != nil {
		return nil, err
	}

	body, err := unmarshalResponse[homeDataBody](env.Body, "home data")
	if err != nil {
		return nil, err
	}

	homes, err := decodeRawList(body.Homes, "home", func(h *Home, raw json.RawMessage) {
		h.Raw = raw
	})
	if err != nil {
		return nil, err
	}

	return &HomeData{
		homes:      newOrdered(homes, func(h *Home) string { return h.ID }, (*Home).clone),
		User:       body.User,
		Status:     env.Status,
		TimeExec:   env.TimeExec,
		TimeServer: env.TimeServer,
	}, nil
}

// DefaultHome returns the first home of the fetch.
func (hd *HomeData) DefaultHome() (*Home, bool) {
	return hd.homes.first()
}

// Homes returns all homes in fetch order.
func (hd *HomeData) Homes() []Home {
	return hd.homes.list()
}

// HomeByID returns the home with the given id.
func (hd *HomeData) HomeByID(id string) (*Home, bool) {
	return hd.homes.get(id)
}

// HomeByName returns the first home named name. An empty name means the
// default home's name.
func (hd *HomeData) HomeByName(name string) (*Home, bool) {
	if name == "" {
		def, ok := hd.DefaultHome()
		if !ok {
			return nil, false
		}
		name = def.Name
	}
	return hd.homes.find(func(h *Home) bool {
		return h.Name == name
	})
}

// resolve returns h, or the default home when h is nil.
func (hd *HomeData) resolve(h *Home) (*Home, bool) {
	if h != nil {
		return h, true
	}
	return hd.DefaultHome()
}

// Persons returns the persons of h, or of the default home when h is nil.
func (hd *HomeData) Persons(h *Home) []Person {
	if h, ok := hd.resolve(h); ok {
		return clonePersons(h.Persons)
	}
	return nil
}

// Events returns the events of h, or of the default home when h is nil.
func (hd *HomeData) Events(h *Home) []Event {
	if h, ok := hd.resolve(h); ok {
		return cloneEvents(h.Events)
	}
	return nil
}

// Cameras returns the cameras of h, or of the default home when h is nil.
func (hd *HomeData) Cameras(h *Home) []Camera {
	if h, ok := hd.resolve(h); ok {
		return slices.Clone(h.Cameras)
	}
	return nil
}

// CameraByID looks a camera up across all homes and returns a copy.
func (hd *HomeData) CameraByID(id string) (*Camera, bool) {
	for i := range hd.homes.items {
		cams := hd.homes.items[i].Cameras
		for j := range cams {
			if cams[j].ID == id {
				cam := cams[j]
				return &cam, true
			}
		}
	}
	return nil, false
}
