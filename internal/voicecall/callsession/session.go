package callsession

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

var (
	ErrSessionNotFound = errors.New("call session not found")
	ErrInvalidSession  = errors.New("call session requires a call SID")
)

// Session is what the service knows about one live call.
type Session struct {
	CallSID   string    `json:"call_sid"`
	Caller    string    `json:"caller"`
	StreamSID string    `json:"stream_sid,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Registry tracks live calls by call SID.
type Registry interface {
	Register(ctx context.Context, session Session) error
	Get(ctx context.Context, callSID string) (Session, error)
	// AttachStream records the media stream serving the call and returns the updated session.
	AttachStream(ctx context.Context, callSID, streamSID string) (Session, error)
	Remove(ctx context.Context, callSID string) error
	// List returns live sessions, oldest first.
	List(ctx context.Context) ([]Session, error)
}

// MemoryRegistry keeps sessions in process memory. Like RedisRegistry, a session expires
// ttl after it was registered, so calls whose media stream never connected do not linger.
type MemoryRegistry struct {
	mu       sync.RWMutex
	sessions map[string]memoryEntry
	ttl      time.Duration
	now      func() time.Time
}

type memoryEntry struct {
	session   Session
	expiresAt time.Time
}

// NewMemoryRegistry returns a registry whose sessions expire after DefaultTTL.
func NewMemoryRegistry() *MemoryRegistry {
	return NewMemoryRegistryWithTTL(DefaultTTL)
}

func NewMemoryRegistryWithTTL(ttl time.Duration) *MemoryRegistry {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryRegistry{sessions: make(map[string]memoryEntry), ttl: ttl, now: time.Now}
}

func (r *MemoryRegistry) Register(_ context.Context, session Session) error {
	if session.CallSID == "" {
		return ErrInvalidSession
	}
	now := r.now()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now.UTC()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.CallSID] = memoryEntry{session: session, expiresAt: now.Add(r.ttl)}
	return nil
}

func (r *MemoryRegistry) Get(_ context.Context, callSID string) (Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.sessions[callSID]
	if !ok || r.expired(entry) {
		return Session{}, ErrSessionNotFound
	}
	return entry.session, nil
}

// AttachStream keeps the session's original expiry.
func (r *MemoryRegistry) AttachStream(_ context.Context, callSID, streamSID string) (Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.sessions[callSID]
	if !ok || r.expired(entry) {
		delete(r.sessions, callSID)
		return Session{}, ErrSessionNotFound
	}
	entry.session.StreamSID = streamSID
	r.sessions[callSID] = entry
	return entry.session, nil
}

func (r *MemoryRegistry) Remove(_ context.Context, callSID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, callSID)
	return nil
}

// List returns live sessions and drops the expired ones.
func (r *MemoryRegistry) List(_ context.Context) ([]Session, error) {
	r.mu.Lock()
	sessions := make([]Session, 0, len(r.sessions))
	for callSID, entry := range r.sessions {
		if r.expired(entry) {
			delete(r.sessions, callSID)
			continue
		}
		sessions = append(sessions, entry.session)
	}
	r.mu.Unlock()

	sortByAge(sessions)
	return sessions, nil
}

func (r *MemoryRegistry) expired(entry memoryEntry) bool {
	return !r.now().Before(entry.expiresAt)
}

func sortByAge(sessions []Session) {
	sort.Slice(sessions, func(i, j int) bool {
		if sessions[i].CreatedAt.Equal(sessions[j].CreatedAt) {
			return sessions[i].CallSID < sessions[j].CallSID
		}
		return sessions[i].CreatedAt.Before(sessions[j].CreatedAt)
	})
}
