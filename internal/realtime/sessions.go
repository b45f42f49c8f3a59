package realtime

import (
	"sort"
	"sync"
	"time"
)

// Session pairs a user with their live connection.
type Session struct {
	UserID string
	Conn   Conn
}

// SessionStore maps each user to at most one live connection and remembers
// when each user was last seen. It is process-local and not persisted.
//
// Every method is a single critical section, so a register or unregister can
// never interleave with another operation on the map.
type SessionStore struct {
	now func() time.Time

	mu       sync.RWMutex
	live     map[string]Conn
	lastSeen map[string]time.Time
}

// NewSessionStore creates an empty store. A nil clock uses time.Now.
func NewSessionStore(now func() time.Time) *SessionStore {
	if now == nil {
		now = time.Now
	}
	return &SessionStore{
		now:      now,
		live:     make(map[string]Conn),
		lastSeen: make(map[string]time.Time),
	}
}

// Register binds conn to userID, replacing any existing registration (last
// connect wins), and clears lastSeen. It returns the replaced connection, if
// any.
func (s *SessionStore) Register(userID string, conn Conn) Conn {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.live[userID]
	s.live[userID] = conn
	delete(s.lastSeen, userID)
	return prev
}

// Unregister removes userID's registration only when conn is still the
// registered connection, and stamps lastSeen. A superseded connection is a
// no-op and reports false.
func (s *SessionStore) Unregister(userID string, conn Conn) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.live[userID]
	if !ok || conn == nil || cur.ID() != conn.ID() {
		return time.Time{}, false
	}

	at := s.now()
	delete(s.live, userID)
	s.lastSeen[userID] = at
	return at, true
}

// Lookup returns userID's live connection.
func (s *SessionStore) Lookup(userID string) (Conn, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conn, ok := s.live[userID]
	return conn, ok
}

// IsOnline reports whether userID has a live connection.
func (s *SessionStore) IsOnline(userID string) bool {
	_, ok := s.Lookup(userID)
	return ok
}

// LastSeen returns when userID last disconnected. It is absent while the
// user is online or if they never disconnected during this process.
func (s *SessionStore) LastSeen(userID string) (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	at, ok := s.lastSeen[userID]
	return at, ok
}

// OnlineUsers returns the sorted ids of every user with a live connection.
func (s *SessionStore) OnlineUsers() []string {
	s.mu.RLock()
	ids := make([]string, 0, len(s.live))
	for id := range s.live {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	sort.Strings(ids)
	return ids
}

// Others snapshots every live session except userID's.
func (s *SessionStore) Others(userID string) []Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Session, 0, len(s.live))
	for id, conn := range s.live {
		if id == userID {
			continue
		}
		out = append(out, Session{UserID: id, Conn: conn})
	}
	return out
}

// Len returns the number of live sessions.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.live)
}
