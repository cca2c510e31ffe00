package services

import (
	"pixeld/internal/identity"
	"pixeld/internal/models"
	"sync"
	"time"
)

type SessionServiceInterface interface {
	Touch(id string) *models.Session
	Has(id string) bool
	Store(id string) identity.LocalStore
	State(id string) *identity.FireState
	ResetState(id string) bool
	Count() int
	Sweep(ttl time.Duration) map[string]*models.SessionData
	Restore(id string, data *models.SessionData)
	GetSnapshot() *models.Storage
	PutSnapshot(storage *models.Storage)
}

// SessionService is the registry of per-device sessions. Each session holds
// the server-side local store the identity accessor reads and writes, plus
// the one-shot firing gate for the current page lifetime.
type SessionService struct {
	mu       sync.RWMutex
	sessions map[string]*models.Session
}

func NewSessionService() SessionServiceInterface {
	return &SessionService{
		sessions: make(map[string]*models.Session),
	}
}

// Touch returns the session, creating it when unknown, and rolls LastSeen.
func (ss *SessionService) Touch(id string) *models.Session {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return ss.touchLocked(id)
}

func (ss *SessionService) touchLocked(id string) *models.Session {
	s, ok := ss.sessions[id]
	if !ok {
		s = models.NewSession(id)
		ss.sessions[id] = s
	}
	s.LastSeen = time.Now()
	return s
}

func (ss *SessionService) Has(id string) bool {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	_, ok := ss.sessions[id]
	return ok
}

// Store returns a LocalStore view bound to the session. The view locks the
// service on every call, so accessor reads and writes are safe across
// concurrent requests for the same device.
func (ss *SessionService) Store(id string) identity.LocalStore {
	ss.Touch(id)
	return &sessionStore{svc: ss, id: id}
}

func (ss *SessionService) State(id string) *identity.FireState {
	return ss.Touch(id).State
}

// ResetState reopens the session's firing gate. Test support only.
func (ss *SessionService) ResetState(id string) bool {
	ss.mu.RLock()
	s, ok := ss.sessions[id]
	ss.mu.RUnlock()
	if !ok {
		return false
	}
	s.State.Reset()
	return true
}

func (ss *SessionService) Count() int {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	return len(ss.sessions)
}

// Sweep evicts sessions idle for longer than ttl and returns their
// persistence forms so the caller can archive them.
func (ss *SessionService) Sweep(ttl time.Duration) map[string]*models.SessionData {
	deadline := time.Now().Add(-ttl)

	ss.mu.Lock()
	defer ss.mu.Unlock()

	evicted := make(map[string]*models.SessionData)
	for id, s := range ss.sessions {
		if s.LastSeen.Before(deadline) {
			evicted[id] = s.Data()
			delete(ss.sessions, id)
		}
	}
	return evicted
}

// Restore re-registers an archived session under its old identifier.
func (ss *SessionService) Restore(id string, data *models.SessionData) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	ss.sessions[id] = models.FromData(id, data)
}

func (ss *SessionService) GetSnapshot() *models.Storage {
	ss.mu.RLock()
	defer ss.mu.RUnlock()

	storage := models.NewStorage()
	for id, s := range ss.sessions {
		storage.Sessions[id] = s.Data()
	}
	return storage
}

func (ss *SessionService) PutSnapshot(storage *models.Storage) {
	if storage == nil || storage.Sessions == nil {
		return
	}
	ss.mu.Lock()
	defer ss.mu.Unlock()
	for id, data := range storage.Sessions {
		ss.sessions[id] = models.FromData(id, data)
	}
}

// sessionStore adapts one session's entry map to the identity.LocalStore
// contract.
type sessionStore struct {
	svc *SessionService
	id  string
}

func (s *sessionStore) GetItem(name string) (string, error) {
	s.svc.mu.RLock()
	defer s.svc.mu.RUnlock()
	sess, ok := s.svc.sessions[s.id]
	if !ok {
		return "", nil
	}
	return sess.Entries[name], nil
}

func (s *sessionStore) SetItem(name, value string) error {
	s.svc.mu.Lock()
	defer s.svc.mu.Unlock()
	s.svc.touchLocked(s.id).Entries[name] = value
	return nil
}

func (s *sessionStore) RemoveItem(name string) error {
	s.svc.mu.Lock()
	defer s.svc.mu.Unlock()
	if sess, ok := s.svc.sessions[s.id]; ok {
		delete(sess.Entries, name)
	}
	return nil
}
