package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/chucklechain/server/internal/realtime"
	"github.com/chucklechain/server/pkg/wire"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func TestPresenceEndpoints(t *testing.T) {
	h := newAPIHarness(t)
	alice := h.online("alice")
	h.online("bob")

	online := decode[map[string][]string](t, h.do(http.MethodGet, "/v1/presence/online", "carol", nil))
	require.Equal(t, []string{"alice", "bob"}, online["users"])

	p := decode[UserPresenceResponse](t, h.do(http.MethodGet, "/v1/users/alice/presence", "carol", nil))
	require.True(t, p.Online)
	require.Nil(t, p.LastSeen)

	require.True(t, h.gateway.Disconnect(context.Background(), "alice", alice, "transport close"))
	at, ok := h.sessions.LastSeen("alice")
	require.True(t, ok)

	p = decode[UserPresenceResponse](t, h.do(http.MethodGet, "/v1/users/alice/presence", "carol", nil))
	require.False(t, p.Online)
	require.NotNil(t, p.LastSeen)
	require.Equal(t, wire.Timestamp(at), *p.LastSeen)

	p = decode[UserPresenceResponse](t, h.do(http.MethodGet, "/v1/users/never/presence", "carol", nil))
	require.False(t, p.Online)
	require.Nil(t, p.LastSeen)
}

func TestHealth(t *testing.T) {
	h := newAPIHarness(t)

	rec := h.do(http.MethodGet, "/", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ChuckleChain API is running", rec.Body.String())

	require.Equal(t, http.StatusOK, h.do(http.MethodGet, "/healthz", "", nil).Code)
}

type fakeRemotePresence struct {
	online   map[string]bool
	lastSeen map[string]time.Time
	err      error
}

func (f *fakeRemotePresence) Lookup(_ context.Context, userID string) (bool, time.Time, error) {
	if f.err != nil {
		return false, time.Time{}, f.err
	}
	return f.online[userID], f.lastSeen[userID], nil
}

func TestUserPresence_FallsBackToRemote(t *testing.T) {
	gin.SetMode(gin.TestMode)
	sessions := realtime.NewSessionStore(func() time.Time { return apiEpoch })
	remoteSeen := apiEpoch.Add(time.Hour)
	remote := &fakeRemotePresence{
		online:   map[string]bool{"dave": true},
		lastSeen: map[string]time.Time{"erin": remoteSeen},
	}
	engine := gin.New()
	ph := NewPresenceHandler(sessions, remote)
	engine.GET("/users/:id/presence", ph.UserPresence)

	get := func(id string) UserPresenceResponse {
		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/"+id+"/presence", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		return decode[UserPresenceResponse](t, rec)
	}

	// Connected to another process.
	p := get("dave")
	require.True(t, p.Online)
	require.Nil(t, p.LastSeen)

	// Last seen elsewhere, later than anything known locally.
	p = get("erin")
	require.False(t, p.Online)
	require.NotNil(t, p.LastSeen)
	require.Equal(t, wire.Timestamp(remoteSeen), *p.LastSeen)

	// A failing mirror degrades to the local answer.
	remote.err = errors.New("redis down")
	p = get("dave")
	require.False(t, p.Online)
	require.Nil(t, p.LastSeen)
}
