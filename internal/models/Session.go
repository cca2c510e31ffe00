package models

import (
	"pixeld/internal/identity"
	"time"
)

// Session is the server-side stand-in for one browser's storage substrate:
// a flat entry map (the local-store view hangs expiry sidecars in here as
// plain keys) plus the page-load firing gate.
type Session struct {
	ID       string
	Entries  map[string]string
	State    *identity.FireState
	LastSeen time.Time
}

func NewSession(id string) *Session {
	return &Session{
		ID:       id,
		Entries:  make(map[string]string),
		State:    identity.NewFireState(),
		LastSeen: time.Now(),
	}
}

// Data converts the live session into its persistence form.
func (s *Session) Data() *SessionData {
	entries := make(map[string]string, len(s.Entries))
	for k, v := range s.Entries {
		entries[k] = v
	}
	return &SessionData{
		Entries:  entries,
		Fired:    s.State.Fired(),
		LastSeen: s.LastSeen,
	}
}

// FromData rebuilds a live session from its persistence form.
func FromData(id string, data *SessionData) *Session {
	s := NewSession(id)
	if data == nil {
		return s
	}
	if data.Entries != nil {
		s.Entries = data.Entries
	}
	if data.Fired {
		s.State.MarkFired()
	}
	if !data.LastSeen.IsZero() {
		s.LastSeen = data.LastSeen
	}
	return s
}
