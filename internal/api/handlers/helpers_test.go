package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/chucklechain/server/internal/api/middleware"
	"github.com/chucklechain/server/internal/models"
	"github.com/chucklechain/server/internal/realtime"
	"github.com/chucklechain/server/internal/store/sqlitestore"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

type recordedEmit struct {
	event   string
	payload any
}

type testConn struct {
	id string

	mu    sync.Mutex
	emits []recordedEmit
}

func (c *testConn) ID() string { return c.id }

func (c *testConn) Emit(event string, payload any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.emits = append(c.emits, recordedEmit{event: event, payload: payload})
	return nil
}

func (c *testConn) Close() {}

func (c *testConn) named(event string) []any {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []any
	for _, e := range c.emits {
		if e.event == event {
			out = append(out, e.payload)
		}
	}
	return out
}

// tokenVerifier accepts "tok-<userID>".
type tokenVerifier struct{}

func (tokenVerifier) Verify(token string) (string, error) {
	id, ok := strings.CutPrefix(token, "tok-")
	if !ok || id == "" {
		return "", errors.New("bad token")
	}
	return id, nil
}

var apiEpoch = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

type apiHarness struct {
	t        *testing.T
	store    *sqlitestore.Store
	sessions *realtime.SessionStore
	gateway  *realtime.Gateway
	engine   *gin.Engine

	mu    sync.Mutex
	clock time.Time
	seq   int
}

func newAPIHarness(t *testing.T) *apiHarness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st, err := sqlitestore.Open(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close(context.Background()) })

	h := &apiHarness{t: t, store: st, clock: apiEpoch}
	clock := Clock{Now: h.now, NewID: h.newID}

	h.sessions = realtime.NewSessionStore(h.now)
	presence := realtime.NewBroadcaster(h.sessions)
	router := realtime.NewRouter(h.sessions)
	reconciler := realtime.NewReconciler(st, h.sessions, router, h.now)
	notifier := realtime.NewNotifier(st, router, nil, h.now, h.newID)
	h.gateway = realtime.NewGateway(tokenVerifier{}, h.sessions, presence, nil)

	h.engine = gin.New()
	RegisterRoutes(h.engine, middleware.AuthMiddleware(tokenVerifier{}), Set{
		Health:        NewHealthHandler(st),
		Conversations: NewConversationsHandler(st, router, reconciler, clock),
		Notifications: NewNotificationsHandler(st),
		Activity:      NewActivityHandler(st, notifier, clock),
		Presence:      NewPresenceHandler(h.sessions, nil),
	})
	return h
}

// now advances one second per call so records have distinct timestamps.
func (h *apiHarness) now() time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clock = h.clock.Add(time.Second)
	return h.clock
}

func (h *apiHarness) newID() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seq++
	return fmt.Sprintf("id-%03d", h.seq)
}

func (h *apiHarness) user(id, username string) {
	h.t.Helper()
	require.NoError(h.t, h.store.CreateUser(context.Background(), models.User{
		ID:             id,
		Username:       username,
		ProfilePicture: "https://img/" + id + ".png",
	}))
}

func (h *apiHarness) online(userID string) *testConn {
	conn := &testConn{id: "conn-" + userID}
	h.gateway.Attach(context.Background(), userID, conn)
	return conn
}

func (h *apiHarness) do(method, path, asUser string, body any) *httptest.ResponseRecorder {
	h.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(h.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if asUser != "" {
		req.Header.Set("Authorization", "Bearer tok-"+asUser)
	}
	rec := httptest.NewRecorder()
	h.engine.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

// startConversation creates a conversation between a and b through the API.
func (h *apiHarness) startConversation(a, b string) string {
	h.t.Helper()
	rec := h.do(http.MethodPost, "/v1/conversations", a, map[string]string{"userId": b})
	require.Equal(h.t, http.StatusCreated, rec.Code, rec.Body.String())
	resp := decode[struct {
		Conversation ConversationResponse `json:"conversation"`
	}](h.t, rec)
	return resp.Conversation.ID
}
