package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chucklechain/server/internal/api/handlers"
	"github.com/chucklechain/server/internal/api/middleware"
	"github.com/chucklechain/server/internal/config"
	"github.com/chucklechain/server/internal/crypto"
	"github.com/chucklechain/server/internal/logger"
	"github.com/chucklechain/server/internal/presence/redismirror"
	"github.com/chucklechain/server/internal/realtime"
	"github.com/chucklechain/server/internal/realtime/runtime"
	"github.com/chucklechain/server/internal/store"
	"github.com/chucklechain/server/internal/store/mongostore"
	"github.com/chucklechain/server/internal/store/sqlitestore"
	"github.com/chucklechain/server/internal/websocket"
	wshandlers "github.com/chucklechain/server/internal/websocket/handlers"
	"github.com/chucklechain/server/pkg/types"
	"github.com/chucklechain/server/pkg/wire"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/urfave/cli/v3"
)

func main() {
	app := &cli.Command{
		Name:  "chucklechain",
		Usage: "ChuckleChain real-time API server",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "TOML configuration file"},
			&cli.StringFlag{Name: "addr", Usage: "HTTP listen address"},
			&cli.BoolFlag{Name: "debug", Usage: "Enable debug logging and gin debug mode"},
			&cli.StringFlag{Name: "log-level", Usage: "trace, debug, info, warn or error"},
			&cli.StringFlag{Name: "store", Usage: "Store driver: mongo or sqlite"},
			&cli.StringFlag{Name: "mongo-uri", Usage: "MongoDB connection URI"},
			&cli.StringFlag{Name: "sqlite-path", Usage: "SQLite database file"},
			&cli.StringFlag{Name: "redis-addr", Usage: "Redis address for the presence mirror"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := config.Load(overridesFrom(c))
			if err != nil {
				return err
			}
			return serve(ctx, cfg)
		},
		Commands: []*cli.Command{
			tokenCommand(),
			presenceWatchCommand(),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		logger.Errorf("%v", err)
		logger.Sync()
		os.Exit(1)
	}
}

func overridesFrom(c *cli.Command) config.Overrides {
	var o config.Overrides
	str := func(name string) *string {
		if !c.IsSet(name) {
			return nil
		}
		v := c.String(name)
		return &v
	}
	o.ConfigFile = str("config")
	o.Addr = str("addr")
	o.LogLevel = str("log-level")
	o.StoreDriver = str("store")
	o.MongoURI = str("mongo-uri")
	o.SQLitePath = str("sqlite-path")
	o.RedisAddr = str("redis-addr")
	if c.IsSet("debug") {
		v := c.Bool("debug")
		o.Debug = &v
	}
	return o
}

// tokenCommand mints a bearer token for local testing.
func tokenCommand() *cli.Command {
	return &cli.Command{
		Name:      "token",
		Usage:     "Mint a JWT for a user id",
		ArgsUsage: "<user-id>",
		Flags: []cli.Flag{
			&cli.DurationFlag{Name: "ttl", Usage: "Token lifetime (0 = no expiry)", Value: 24 * time.Hour},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			userID := c.Args().First()
			if userID == "" {
				return errors.New("user id is required")
			}
			cfg, err := config.Load(overridesFrom(c.Root()))
			if err != nil {
				return err
			}
			jwtManager, err := crypto.NewJWTManager(cfg.JWTSecret)
			if err != nil {
				return err
			}
			token, err := jwtManager.CreateToken(userID, c.Duration("ttl"))
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}
}

// presenceWatchCommand streams the presence changes published to the Redis
// mirror by every server process.
func presenceWatchCommand() *cli.Command {
	return &cli.Command{
		Name:  "presence-watch",
		Usage: "Print presence changes from the Redis mirror",
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := config.Load(overridesFrom(c.Root()))
			if err != nil {
				return err
			}
			if !cfg.RedisEnabled() {
				return errors.New("presence-watch needs REDIS_ADDR or --redis-addr")
			}

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			m, err := openMirror(ctx, cfg)
			if err != nil {
				return err
			}
			defer m.Close()

			for ev := range m.Subscribe(ctx) {
				fmt.Println(formatPresenceEvent(ev))
			}
			return nil
		},
	}
}

func formatPresenceEvent(ev redismirror.Event) string {
	if ev.Online {
		return ev.UserID + " online"
	}
	if ev.LastSeen == 0 {
		return ev.UserID + " offline"
	}
	return fmt.Sprintf("%s offline (last seen %s)", ev.UserID, wire.Timestamp(time.UnixMilli(ev.LastSeen)))
}

func openMirror(ctx context.Context, cfg *config.Config) (*redismirror.Mirror, error) {
	m, err := redismirror.New(ctx, redismirror.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		TTL:      cfg.Redis.PresenceTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("connect presence mirror: %w", err)
	}
	return m, nil
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.Store.Driver {
	case config.DriverSQLite:
		logger.Infof("Opening SQLite store: %s", cfg.Store.SQLitePath)
		return sqlitestore.Open(cfg.Store.SQLitePath)
	default:
		logger.Infof("Connecting to MongoDB database %s", cfg.Store.MongoDatabase)
		return mongostore.Open(ctx, mongostore.Config{
			URI:      cfg.Store.MongoURI,
			Database: cfg.Store.MongoDatabase,
		}, types.NewID)
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	if cfg.Debug && level > logger.LevelDebug {
		level = logger.LevelDebug
	}
	logger.SetLevel(level)
	defer logger.Sync()

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := st.Close(closeCtx); err != nil {
			logger.Warnf("Failed to close store: %v", err)
		}
	}()

	jwtManager, err := crypto.NewJWTManager(cfg.JWTSecret)
	if err != nil {
		return fmt.Errorf("create JWT manager: %w", err)
	}

	var (
		redisMirror *redismirror.Mirror
		mirror      realtime.PresenceMirror
		remote      handlers.RemotePresence
	)
	if cfg.RedisEnabled() {
		redisMirror, err = openMirror(ctx, cfg)
		if err != nil {
			return err
		}
		defer redisMirror.Close()
		mirror, remote = redisMirror, redisMirror
		logger.Infof("Presence mirror enabled at %s (ttl %s)", cfg.Redis.Addr, redisMirror.TTL())
	}

	sessions := realtime.NewSessionStore(time.Now)
	if redisMirror != nil {
		go redisMirror.KeepAlive(ctx, sessions.OnlineUsers)
	}
	broadcaster := realtime.NewBroadcaster(sessions)
	deliveries := realtime.NewRouter(sessions)
	reconciler := realtime.NewReconciler(st, sessions, deliveries, time.Now)
	fanoutQueue := runtime.NewManager(cfg.FanoutQueueSize)
	notifier := realtime.NewNotifier(st, deliveries, fanoutQueue, time.Now, types.NewID)
	gateway := realtime.NewGateway(jwtManager, sessions, broadcaster, mirror)

	logger.Infof("Initializing Socket.IO server at %s", cfg.Socket.Path)
	socketIOServer := websocket.NewSocketIOServer(cfg.Socket, gateway, wshandlers.NewDeps(reconciler, broadcaster))

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: !allowsAnyOrigin(cfg.AllowedOrigins),
	}))
	router.Use(middleware.LoggingMiddleware())

	clock := handlers.Clock{Now: time.Now, NewID: types.NewID}
	handlers.RegisterRoutes(router, middleware.AuthMiddleware(jwtManager), handlers.Set{
		Health:        handlers.NewHealthHandler(st),
		Conversations: handlers.NewConversationsHandler(st, deliveries, reconciler, clock),
		Notifications: handlers.NewNotificationsHandler(st),
		Activity:      handlers.NewActivityHandler(st, notifier, clock),
		Presence:      handlers.NewPresenceHandler(sessions, remote),
	})

	// The handshake authenticates inside the gateway, so the socket path is
	// mounted outside the auth group.
	router.Any(cfg.Socket.Path, socketIOServer.HandleSocketIO())
	router.Any(cfg.Socket.Path+"/*any", socketIOServer.HandleSocketIO())

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("ChuckleChain server listening on %s (store: %s)", cfg.Addr, cfg.Store.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		logger.Infof("Shutting down...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = socketIOServer.Close()
	socketIOServer.Drain()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("HTTP shutdown: %v", err)
	}
	if err := fanoutQueue.Close(shutdownCtx); err != nil {
		logger.Warnf("Fan-out queue did not drain: %v", err)
	}
	return nil
}

func allowsAnyOrigin(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}
