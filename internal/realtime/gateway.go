package realtime

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/chucklechain/server/internal/logger"
	"github.com/chucklechain/server/pkg/wire"
)

// WelcomeMessage is sent privately to every freshly authenticated connection.
const WelcomeMessage = "Welcome to ChuckleChain!"

const mirrorTimeout = 2 * time.Second

// TokenVerifier resolves a bearer credential to a user id.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// AuthError is a handshake refusal. Its message is what the client sees.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string {
	return "Authentication error: " + e.Reason
}

// Gateway authenticates new connections and keeps the Session Store and
// presence announcements in step with connection lifecycles.
type Gateway struct {
	verifier TokenVerifier
	sessions *SessionStore
	presence *Broadcaster
	mirror   PresenceMirror

	// Per-user lifecycle locks keep register/broadcast and
	// unregister/broadcast for one user from interleaving, so a single
	// user's announcements are observed in lifecycle order.
	stripes [64]sync.Mutex
}

// NewGateway wires a Gateway. mirror may be nil.
func NewGateway(verifier TokenVerifier, sessions *SessionStore, presence *Broadcaster, mirror PresenceMirror) *Gateway {
	return &Gateway{
		verifier: verifier,
		sessions: sessions,
		presence: presence,
		mirror:   mirror,
	}
}

func (g *Gateway) lockFor(userID string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return &g.stripes[h.Sum32()%uint32(len(g.stripes))]
}

// Authenticate validates a bearer credential without touching any state.
func (g *Gateway) Authenticate(token string) (string, error) {
	if token == "" {
		return "", &AuthError{Reason: "missing token"}
	}
	userID, err := g.verifier.Verify(token)
	if err != nil {
		logger.Debugf("Token verification failed: %v", err)
		return "", &AuthError{Reason: "invalid token"}
	}
	if userID == "" {
		return "", &AuthError{Reason: "invalid token"}
	}
	return userID, nil
}

// Connect authenticates conn and, on success, registers it. On failure the
// client receives an error event and the connection is closed before any
// session state exists.
func (g *Gateway) Connect(ctx context.Context, token string, conn Conn) (string, error) {
	userID, err := g.Authenticate(token)
	if err != nil {
		g.refuse(conn, err)
		return "", err
	}
	g.Attach(ctx, userID, conn)
	return userID, nil
}

func (g *Gateway) refuse(conn Conn, err error) {
	logger.Warnf("Connection refused (conn %s): %v", conn.ID(), err)
	if emitErr := safeEmit(conn, wire.EventError, wire.ErrorPayload{Message: err.Error()}); emitErr != nil {
		logger.Debugf("Refusal not delivered (conn %s): %v", conn.ID(), emitErr)
	}
	conn.Close()
}

// Attach registers an authenticated connection, announces the user when they
// were not already online, and sends the private welcome and online-users
// snapshot.
func (g *Gateway) Attach(ctx context.Context, userID string, conn Conn) {
	lock := g.lockFor(userID)
	lock.Lock()
	prev := g.sessions.Register(userID, conn)
	announce := prev == nil
	if announce {
		g.presence.Connected(userID)
	}
	lock.Unlock()

	if prev != nil && prev.ID() != conn.ID() {
		logger.Infof("User %s reconnected; conn %s supersedes %s", userID, conn.ID(), prev.ID())
	} else {
		logger.Infof("User %s connected (conn %s)", userID, conn.ID())
	}

	if err := safeEmit(conn, wire.EventWelcome, wire.WelcomePayload{Message: WelcomeMessage}); err != nil {
		logger.Debugf("Welcome not delivered to %s: %v", userID, err)
	}
	if err := safeEmit(conn, wire.EventOnlineUsers, g.sessions.OnlineUsers()); err != nil {
		logger.Debugf("Online users snapshot not delivered to %s: %v", userID, err)
	}

	// Every attach rewrites the mirror marker so a reconnect restarts its TTL.
	if g.mirror != nil {
		mctx, cancel := context.WithTimeout(ctx, mirrorTimeout)
		defer cancel()
		if err := g.mirror.Online(mctx, userID); err != nil {
			logger.Warnf("Presence mirror online %s: %v", userID, err)
		}
	}
}

// Disconnect releases conn's registration. A connection that has already
// been superseded by a newer one for the same user is ignored. It reports
// whether the session was released.
func (g *Gateway) Disconnect(ctx context.Context, userID string, conn Conn, reason string) bool {
	if userID == "" {
		return false
	}

	lock := g.lockFor(userID)
	lock.Lock()
	at, removed := g.sessions.Unregister(userID, conn)
	if removed {
		g.presence.Disconnected(userID, at)
	}
	lock.Unlock()

	if !removed {
		logger.Debugf("Ignoring disconnect of superseded conn %s for %s (%s)", conn.ID(), userID, reason)
		return false
	}
	logger.Infof("User %s disconnected (conn %s, reason: %s)", userID, conn.ID(), reason)

	if g.mirror != nil {
		mctx, cancel := context.WithTimeout(ctx, mirrorTimeout)
		defer cancel()
		if err := g.mirror.Offline(mctx, userID, at); err != nil {
			logger.Warnf("Presence mirror offline %s: %v", userID, err)
		}
	}
	return true
}
