package services

import (
	"sync"
	"time"
)

// DefaultSessionKey is used when a request carries no chatId at all.
const DefaultSessionKey = "default"

type session struct {
	files     []FileRef
	createdAt time.Time
}

// SessionRegistry maps a session key to the ordered list of uploads collected
// so far. It is the only shared mutable state in the service and is safe for
// concurrent use.
type SessionRegistry struct {
	mu       sync.Mutex
	sessions map[string]*session
}

// NewSessionRegistry creates an empty registry.
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		sessions: make(map[string]*session),
	}
}

// Reset creates or replaces the session for key with an empty file list and a
// fresh creation timestamp. Files already on disk are not touched.
func (r *SessionRegistry) Reset(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[key] = &session{createdAt: time.Now()}
}

// Append adds refs to the session for key, creating it if absent. Insertion
// order is preserved; it determines archive member order. Returns the new
// total count for the session.
func (r *SessionRegistry) Append(key string, refs []FileRef) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[key]
	if !ok {
		s = &session{createdAt: time.Now()}
		r.sessions[key] = s
	}
	s.files = append(s.files, refs...)
	return len(s.files)
}

// TakeForBuild atomically snapshots the session's file list and removes the
// session. An empty or absent session returns ok=false with no state change,
// so two concurrent builds for the same key cannot both see the same files.
func (r *SessionRegistry) TakeForBuild(key string) ([]FileRef, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[key]
	if !ok || len(s.files) == 0 {
		return nil, false
	}
	delete(r.sessions, key)
	return s.files, true
}

// Restore puts refs back at the head of the session for key. Used after a
// failed build so the client can retry; uploads that raced in during the
// build keep their position after the restored files.
func (r *SessionRegistry) Restore(key string, refs []FileRef) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[key]
	if !ok {
		r.sessions[key] = &session{files: refs, createdAt: time.Now()}
		return
	}
	s.files = append(refs, s.files...)
}

// Count returns the number of files currently held for key.
func (r *SessionRegistry) Count(key string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[key]; ok {
		return len(s.files)
	}
	return 0
}

// CreatedAt returns the session's creation time, or the zero time if no
// session exists for key.
func (r *SessionRegistry) CreatedAt(key string) time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[key]; ok {
		return s.createdAt
	}
	return time.Time{}
}
