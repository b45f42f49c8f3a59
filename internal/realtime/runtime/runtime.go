package runtime

import (
	"context"
	"sync"
	"time"

	"github.com/chucklechain/server/internal/logger"
)

// Job is a unit of work run on a key's runtime goroutine.
type Job func(ctx context.Context)

const defaultIdleTimeout = time.Minute

// Manager owns per-key runtimes and provides serialized entrypoints.
//
// Jobs for the same key run one at a time in enqueue order; jobs for
// different keys run concurrently. A key's goroutine exits after it has been
// idle for the idle timeout and is recreated on the next enqueue.
type Manager struct {
	queueSize   int
	idleTimeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	closed   bool
	runtimes map[string]*keyRuntime
}

// NewManager creates a new per-key runtime manager.
func NewManager(queueSize int) *Manager {
	if queueSize <= 0 {
		queueSize = 256
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		queueSize:   queueSize,
		idleTimeout: defaultIdleTimeout,
		ctx:         ctx,
		cancel:      cancel,
		runtimes:    make(map[string]*keyRuntime),
	}
}

// Enqueue schedules job on key's runtime. It never blocks: when the queue is
// full, or the manager is closed, the job is dropped and false is returned.
func (m *Manager) Enqueue(key string, job Job) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		logger.Warnf("[runtime] manager closed; dropping job for %s", key)
		return false
	}

	rt, ok := m.runtimes[key]
	if !ok {
		rt = &keyRuntime{key: key, events: make(chan Job, m.queueSize)}
		m.runtimes[key] = rt
		m.wg.Add(1)
		go m.loop(rt)
	}

	select {
	case rt.events <- job:
		return true
	default:
		// Avoid blocking request handlers indefinitely; drop under overload.
		logger.Warnf("[runtime] %s queue full; dropping job", key)
		return false
	}
}

// Active returns the number of live key runtimes.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.runtimes)
}

// Close stops accepting jobs, lets queued jobs finish and waits for every
// runtime to exit or for ctx to expire. The context passed to jobs is
// cancelled when ctx expires.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	if !m.closed {
		m.closed = true
		for _, rt := range m.runtimes {
			close(rt.events)
		}
	}
	m.mu.Unlock()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.cancel()
		return nil
	case <-ctx.Done():
		m.cancel()
		return ctx.Err()
	}
}

type keyRuntime struct {
	key    string
	events chan Job
}

func (m *Manager) loop(rt *keyRuntime) {
	defer m.wg.Done()

	idle := time.NewTimer(m.idleTimeout)
	defer idle.Stop()

	for {
		select {
		case job, ok := <-rt.events:
			if !ok {
				return
			}
			m.run(rt.key, job)
			if !idle.Stop() {
				select {
				case <-idle.C:
				default:
				}
			}
			idle.Reset(m.idleTimeout)

		case <-idle.C:
			m.mu.Lock()
			if len(rt.events) == 0 && !m.closed {
				delete(m.runtimes, rt.key)
				m.mu.Unlock()
				return
			}
			m.mu.Unlock()
			idle.Reset(m.idleTimeout)
		}
	}
}

func (m *Manager) run(key string, job Job) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("[runtime] %s: job panicked: %v", key, r)
		}
	}()
	job(m.ctx)
}
