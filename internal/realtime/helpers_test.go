package realtime

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/chucklechain/server/internal/models"
	"github.com/chucklechain/server/internal/store"
)

type emitted struct {
	Event   string
	Payload any
}

// fakeConn records every emit. Setting err or panicMsg makes Emit fail.
type fakeConn struct {
	id string

	mu       sync.Mutex
	emits    []emitted
	closed   bool
	err      error
	panicMsg string
}

func newFakeConn(id string) *fakeConn {
	return &fakeConn{id: id}
}

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) Emit(event string, payload any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.panicMsg != "" {
		panic(c.panicMsg)
	}
	if c.err != nil {
		return c.err
	}
	c.emits = append(c.emits, emitted{Event: event, Payload: payload})
	return nil
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeConn) events() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.emits))
	for _, e := range c.emits {
		out = append(out, e.Event)
	}
	return out
}

// named returns the payloads emitted under event.
func (c *fakeConn) named(event string) []any {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []any
	for _, e := range c.emits {
		if e.Event == event {
			out = append(out, e.Payload)
		}
	}
	return out
}

func (c *fakeConn) reset() {
	c.mu.Lock()
	c.emits = nil
	c.mu.Unlock()
}

type fakeVerifier map[string]string

func (v fakeVerifier) Verify(token string) (string, error) {
	id, ok := v[token]
	if !ok {
		return "", errors.New("bad token")
	}
	return id, nil
}

type mirrorCall struct {
	Online bool
	UserID string
}

type fakeMirror struct {
	mu    sync.Mutex
	calls []mirrorCall
}

func (m *fakeMirror) Online(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, mirrorCall{Online: true, UserID: userID})
	return nil
}

func (m *fakeMirror) Offline(_ context.Context, userID string, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, mirrorCall{Online: false, UserID: userID})
	return nil
}

// fakeNotifyStore is an in-memory NotificationStore.
type fakeNotifyStore struct {
	mu        sync.Mutex
	users     map[string]models.User
	created   []models.Notification
	createErr error
}

func newFakeNotifyStore(users ...models.User) *fakeNotifyStore {
	s := &fakeNotifyStore{users: make(map[string]models.User)}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

func (s *fakeNotifyStore) CreateNotification(_ context.Context, n models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	s.created = append(s.created, n)
	return nil
}

func (s *fakeNotifyStore) GetUser(_ context.Context, id string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return models.User{}, store.ErrNotFound
	}
	return u, nil
}

func (s *fakeNotifyStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.created)
}

var testEpoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() func() time.Time {
	return func() time.Time { return testEpoch }
}

type harness struct {
	sessions *SessionStore
	presence *Broadcaster
	router   *Router
	gateway  *Gateway
	mirror   *fakeMirror
}

func newHarness() *harness {
	sessions := NewSessionStore(fixedClock())
	presence := NewBroadcaster(sessions)
	mirror := &fakeMirror{}
	return &harness{
		sessions: sessions,
		presence: presence,
		router:   NewRouter(sessions),
		gateway: NewGateway(fakeVerifier{
			"tok-a": "alice",
			"tok-b": "bob",
			"tok-c": "carol",
			"tok-d": "dave",
		}, sessions, presence, mirror),
		mirror: mirror,
	}
}

func (h *harness) connect(userID, connID string) *fakeConn {
	conn := newFakeConn(connID)
	h.gateway.Attach(context.Background(), userID, conn)
	return conn
}
