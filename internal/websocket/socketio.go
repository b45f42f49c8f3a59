package websocket

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/chucklechain/server/internal/config"
	"github.com/chucklechain/server/internal/logger"
	"github.com/chucklechain/server/internal/realtime"
	"github.com/chucklechain/server/internal/websocket/handlers"
	"github.com/gin-gonic/gin"
	socket "github.com/zishang520/socket.io/servers/socket/v3"
	sockettypes "github.com/zishang520/socket.io/v3/pkg/types"
)

// SocketIOServer adapts Socket.IO connections to the realtime core.
type SocketIOServer struct {
	gateway *realtime.Gateway
	deps    handlers.Deps
	server  *socket.Server
	origins originPolicy
	// socketData maps socket id to *SocketData for authenticated sockets.
	socketData sync.Map
}

// SocketData stores connection metadata for each authenticated socket.
type SocketData struct {
	UserID string
	Conn   *socketConn
}

// NewSocketIOServer creates a Socket.IO server that authenticates through
// gateway and dispatches client events with deps.
func NewSocketIOServer(cfg config.SocketConfig, gateway *realtime.Gateway, deps handlers.Deps) *SocketIOServer {
	origins := newOriginPolicy(cfg.AllowedOrigins)
	opts := socket.DefaultServerOptions()
	opts.SetCors(origins.socketCors())

	// Ping settings bound how long a silently dropped client keeps showing
	// as online.
	opts.SetPingInterval(cfg.PingInterval)
	opts.SetPingTimeout(cfg.PingTimeout)
	opts.SetPath(cfg.Path)

	s := &SocketIOServer{
		gateway: gateway,
		deps:    deps,
		server:  socket.NewServer(nil, opts),
		origins: origins,
	}
	s.server.On("connection", func(clients ...any) {
		client := clients[0].(*socket.Socket)
		s.handleConnection(client)
	})
	return s
}

// originPolicy holds the origins allowed to open a socket. Credentials
// (the token cookie) are only allowed when the origins are explicit.
type originPolicy struct {
	anyOrigin bool
	allowed   map[string]struct{}
	list      []string
}

func newOriginPolicy(origins []string) originPolicy {
	p := originPolicy{allowed: make(map[string]struct{})}
	for _, o := range origins {
		if o == "*" {
			p.anyOrigin = true
			continue
		}
		if _, dup := p.allowed[o]; !dup {
			p.allowed[o] = struct{}{}
			p.list = append(p.list, o)
		}
	}
	if len(p.list) == 0 {
		p.anyOrigin = true
	}
	return p
}

func (p originPolicy) socketCors() *sockettypes.Cors {
	if p.anyOrigin {
		return &sockettypes.Cors{Origin: "*", Credentials: false}
	}
	origins := make([]any, 0, len(p.list))
	for _, o := range p.list {
		origins = append(origins, o)
	}
	return &sockettypes.Cors{Origin: origins, Credentials: true}
}

// apply writes the CORS response headers for a request from origin.
func (p originPolicy) apply(h http.Header, origin string) {
	h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
	if p.anyOrigin {
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Credentials", "false")
		return
	}
	h.Add("Vary", "Origin")
	if _, ok := p.allowed[origin]; !ok {
		return
	}
	h.Set("Access-Control-Allow-Origin", origin)
	h.Set("Access-Control-Allow-Credentials", "true")
}

func decodeAny(input any, out any) error {
	raw, err := json.Marshal(input)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

// headersFromHandshake normalizes the handshake header bag, whatever its
// concrete representation, into canonical http.Header form.
func headersFromHandshake(raw any) http.Header {
	var generic map[string]any
	if err := decodeAny(raw, &generic); err != nil {
		return http.Header{}
	}
	h := http.Header{}
	for k, v := range generic {
		switch val := v.(type) {
		case string:
			h.Add(k, val)
		case []any:
			for _, item := range val {
				if str, ok := item.(string); ok {
					h.Add(k, str)
				}
			}
		}
	}
	return h
}

func getFirstAnyWithAck(data []any) (any, func(...any)) {
	var ack func(...any)
	if len(data) == 0 {
		return nil, nil
	}
	if cb, ok := data[len(data)-1].(func(...any)); ok {
		ack = cb
		data = data[:len(data)-1]
	} else if cb, ok := data[len(data)-1].(socket.Ack); ok {
		ack = func(args ...any) {
			cb(args, nil)
		}
		data = data[:len(data)-1]
	}
	if len(data) == 0 {
		return nil, ack
	}
	return data[0], ack
}

// getSocketData retrieves socket metadata by socket id.
func (s *SocketIOServer) getSocketData(socketID string) *SocketData {
	if data, ok := s.socketData.Load(socketID); ok {
		if sd, ok := data.(*SocketData); ok {
			return sd
		}
	}
	return &SocketData{}
}

// Connections returns the number of authenticated sockets.
func (s *SocketIOServer) Connections() int {
	n := 0
	s.socketData.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// HandleSocketIO creates a gin handler serving the Socket.IO endpoint.
func (s *SocketIOServer) HandleSocketIO() gin.HandlerFunc {
	httpHandler := s.server.ServeHandler(nil)

	return func(c *gin.Context) {
		s.origins.apply(c.Writer.Header(), c.Request.Header.Get("Origin"))

		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusOK)
			return
		}

		logger.Tracef("Socket.IO request: %s %s", c.Request.Method, c.Request.URL.Path)
		httpHandler.ServeHTTP(c.Writer, c.Request)
	}
}

// Close shuts down the Socket.IO server and every open socket.
func (s *SocketIOServer) Close() error {
	s.server.Close(nil)
	return nil
}

// closeGrace is how long Close waits for disconnect handlers to drain.
const closeGrace = 500 * time.Millisecond

// Drain waits briefly for disconnect handlers to release their sessions
// after Close.
func (s *SocketIOServer) Drain() {
	deadline := time.Now().Add(closeGrace)
	for s.Connections() > 0 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
}
