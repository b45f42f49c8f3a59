package realtime

import (
	"context"
	"testing"

	"github.com/chucklechain/server/pkg/wire"
	"github.com/stretchr/testify/require"
)

func TestGateway_ConnectRefusesMissingAndInvalidTokens(t *testing.T) {
	h := newHarness()
	watcher := h.connect("carol", "c")
	watcher.reset()

	for _, tc := range []struct {
		token string
		msg   string
	}{
		{token: "", msg: "Authentication error: missing token"},
		{token: "forged", msg: "Authentication error: invalid token"},
	} {
		conn := newFakeConn("x-" + tc.token)
		userID, err := h.gateway.Connect(context.Background(), tc.token, conn)
		require.Error(t, err)
		require.Empty(t, userID)

		var authErr *AuthError
		require.ErrorAs(t, err, &authErr)
		require.Equal(t, tc.msg, err.Error())

		require.Equal(t, []any{wire.ErrorPayload{Message: tc.msg}}, conn.named(wire.EventError))
		require.True(t, conn.isClosed())
	}

	require.Equal(t, []string{"carol"}, h.sessions.OnlineUsers())
	require.Empty(t, watcher.events())
	require.Len(t, h.mirror.calls, 1)
}

func TestGateway_ConnectWelcomesAndAnnounces(t *testing.T) {
	h := newHarness()
	bob := h.connect("bob", "b1")
	bob.reset()

	alice := newFakeConn("a1")
	userID, err := h.gateway.Connect(context.Background(), "tok-a", alice)
	require.NoError(t, err)
	require.Equal(t, "alice", userID)

	require.Equal(t, []string{wire.EventWelcome, wire.EventOnlineUsers}, alice.events())
	require.Equal(t, []any{wire.WelcomePayload{Message: WelcomeMessage}}, alice.named(wire.EventWelcome))
	require.Equal(t, []any{[]string{"alice", "bob"}}, alice.named(wire.EventOnlineUsers))
	require.Equal(t, []any{wire.UserConnectedPayload{UserID: "alice"}}, bob.named(wire.EventUserConnected))
	require.Contains(t, h.mirror.calls, mirrorCall{Online: true, UserID: "alice"})
}

func TestGateway_ReconnectKeepsSingleSession(t *testing.T) {
	h := newHarness()
	bob := h.connect("bob", "b1")
	first := h.connect("alice", "a1")
	bob.reset()

	second := h.connect("alice", "a2")
	require.Equal(t, 2, h.sessions.Len())
	conn, ok := h.sessions.Lookup("alice")
	require.True(t, ok)
	require.Equal(t, "a2", conn.ID())

	// Already online: no second announcement, and the old handle is left open.
	require.Empty(t, bob.named(wire.EventUserConnected))
	require.False(t, first.isClosed())
	require.Equal(t, []string{wire.EventWelcome, wire.EventOnlineUsers}, second.events())

	require.Equal(t, Delivered, h.router.Deliver("alice", wire.EventNewMessage, "hi"))
	require.Len(t, second.named(wire.EventNewMessage), 1)
	require.Empty(t, first.named(wire.EventNewMessage))
}

func TestGateway_StaleDisconnectKeepsUserOnline(t *testing.T) {
	h := newHarness()
	bob := h.connect("bob", "b1")
	first := h.connect("alice", "a1")
	h.connect("alice", "a2")
	bob.reset()

	require.False(t, h.gateway.Disconnect(context.Background(), "alice", first, "transport close"))
	require.True(t, h.sessions.IsOnline("alice"))
	require.Empty(t, bob.events())
	_, seen := h.sessions.LastSeen("alice")
	require.False(t, seen)
}

func TestGateway_DisconnectAnnouncesLastSeen(t *testing.T) {
	h := newHarness()
	bob := h.connect("bob", "b1")
	alice := h.connect("alice", "a1")
	bob.reset()

	require.True(t, h.gateway.Disconnect(context.Background(), "alice", alice, "client namespace disconnect"))
	require.False(t, h.sessions.IsOnline("alice"))
	require.Equal(t, []any{wire.UserDisconnectedPayload{
		UserID:    "alice",
		Timestamp: wire.Timestamp(testEpoch),
	}}, bob.named(wire.EventUserDisconnected))

	at, ok := h.sessions.LastSeen("alice")
	require.True(t, ok)
	require.Equal(t, testEpoch, at)
	require.Contains(t, h.mirror.calls, mirrorCall{Online: false, UserID: "alice"})

	// A second disconnect of the same handle is a no-op.
	require.False(t, h.gateway.Disconnect(context.Background(), "alice", alice, "again"))
	require.False(t, h.gateway.Disconnect(context.Background(), "", alice, "anonymous"))
}

func TestGateway_AnnouncementsAlternate(t *testing.T) {
	h := newHarness()
	bob := h.connect("bob", "b1")
	bob.reset()

	for i, id := range []string{"a1", "a2", "a3"} {
		conn := h.connect("alice", id)
		if i < 2 {
			h.gateway.Disconnect(context.Background(), "alice", conn, "bye")
		}
	}

	require.Equal(t, []string{
		wire.EventUserConnected, wire.EventUserDisconnected,
		wire.EventUserConnected, wire.EventUserDisconnected,
		wire.EventUserConnected,
	}, bob.events())
}

func TestGateway_EveryAttachRewritesMirrorMarker(t *testing.T) {
	h := newHarness()
	h.connect("alice", "a1")
	h.connect("alice", "a2")
	h.connect("alice", "a3")

	online := 0
	for _, c := range h.mirror.calls {
		if c == (mirrorCall{Online: true, UserID: "alice"}) {
			online++
		}
	}
	require.Equal(t, 3, online)
	require.True(t, h.sessions.IsOnline("alice"))
}
