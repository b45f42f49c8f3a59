// Package redismirror publishes this process's presence changes to Redis so
// dashboards and other observers can read them without a socket connection.
// Delivery never reads the mirror back. Presence queries use it to answer
// for users connected to other processes.
package redismirror

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/chucklechain/server/internal/logger"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix   = "chucklechain:presence:"
	lastSeenKey = "chucklechain:lastseen"
	// Channel receives one JSON Event per presence change.
	Channel = "chucklechain:presence"
)

type Config struct {
	Addr     string
	Password string
	DB       int
	// TTL bounds how long an online marker survives a crashed process.
	TTL time.Duration
}

// Event is the message published on Channel.
type Event struct {
	UserID   string `json:"userId"`
	Online   bool   `json:"online"`
	LastSeen int64  `json:"lastSeen,omitempty"`
}

type Mirror struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time
}

// New connects and pings Redis.
func New(ctx context.Context, c Config) (*Mirror, error) {
	rdb := redis.NewClient(&redis.Options{Addr: c.Addr, Password: c.Password, DB: c.DB})

	pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errors.Wrapf(err, "ping redis %s", c.Addr)
	}
	return NewWithClient(rdb, c.TTL), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(rdb *redis.Client, ttl time.Duration) *Mirror {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &Mirror{client: rdb, ttl: ttl, now: time.Now}
}

func presenceKey(user string) string { return keyPrefix + user }

// TTL is how long a marker survives without a refresh.
func (m *Mirror) TTL() time.Duration { return m.ttl }

// Online marks userID online with the configured TTL.
func (m *Mirror) Online(ctx context.Context, userID string) error {
	pipe := m.client.TxPipeline()
	pipe.Set(ctx, presenceKey(userID), m.now().UnixMilli(), m.ttl)
	pipe.HDel(ctx, lastSeenKey, userID)
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrap(err, "mirror online")
	}
	return m.publish(ctx, Event{UserID: userID, Online: true})
}

// Offline clears userID's marker and records lastSeen.
func (m *Mirror) Offline(ctx context.Context, userID string, at time.Time) error {
	pipe := m.client.TxPipeline()
	pipe.Del(ctx, presenceKey(userID))
	pipe.HSet(ctx, lastSeenKey, userID, at.UnixMilli())
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrap(err, "mirror offline")
	}
	return m.publish(ctx, Event{UserID: userID, LastSeen: at.UnixMilli()})
}

// Refresh extends the TTL of the markers of userIDs. A marker already
// cleared by Offline stays cleared.
func (m *Mirror) Refresh(ctx context.Context, userIDs []string) error {
	if len(userIDs) == 0 {
		return nil
	}
	pipe := m.client.Pipeline()
	for _, id := range userIDs {
		pipe.Expire(ctx, presenceKey(id), m.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrap(err, "mirror refresh")
	}
	return nil
}

// KeepAlive refreshes the markers of online() every third of the TTL until
// ctx is done.
func (m *Mirror) KeepAlive(ctx context.Context, online func() []string) {
	interval := m.ttl / 3
	if interval <= 0 {
		interval = m.ttl
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ids := online()
			rctx, cancel := context.WithTimeout(ctx, interval)
			if err := m.Refresh(rctx, ids); err != nil {
				logger.Warnf("Presence mirror refresh of %d users: %v", len(ids), err)
			}
			cancel()
		}
	}
}

func (m *Mirror) publish(ctx context.Context, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return errors.Wrap(m.client.Publish(ctx, Channel, body).Err(), "publish presence")
}

// Lookup reports what the mirror currently says about userID.
func (m *Mirror) Lookup(ctx context.Context, userID string) (online bool, lastSeen time.Time, err error) {
	err = m.client.Get(ctx, presenceKey(userID)).Err()
	switch {
	case err == nil:
		return true, time.Time{}, nil
	case !errors.Is(err, redis.Nil):
		return false, time.Time{}, errors.Wrap(err, "lookup presence")
	}

	raw, err := m.client.HGet(ctx, lastSeenKey, userID).Result()
	if errors.Is(err, redis.Nil) {
		return false, time.Time{}, nil
	}
	if err != nil {
		return false, time.Time{}, errors.Wrap(err, "lookup last seen")
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return false, time.Time{}, errors.Wrapf(err, "parse last seen %q", raw)
	}
	return false, time.UnixMilli(ms), nil
}

// Subscribe streams presence events until ctx is done.
func (m *Mirror) Subscribe(ctx context.Context) <-chan Event {
	sub := m.client.Subscribe(ctx, Channel)
	out := make(chan Event, 16)
	go func() {
		defer close(out)
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var ev Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

func (m *Mirror) Close() error {
	return m.client.Close()
}
