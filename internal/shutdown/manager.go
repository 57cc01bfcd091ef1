package shutdown

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"sketch-sprite/internal/logger"
)

const defaultHookTimeout = 10 * time.Second

// Hook releases one resource at shutdown.
type Hook func() error

type namedHook struct {
	name string
	fn   Hook
}

// Manager cancels the run context on SIGINT/SIGTERM and releases registered
// resources in reverse registration order.
type Manager struct {
	hooks       []namedHook
	logger      logger.Logger
	hookTimeout time.Duration
	mu          sync.Mutex
	done        chan struct{}
	ctx         context.Context
	cancel      context.CancelFunc
	stopSignals func()
}

func NewManager(parent context.Context, log logger.Logger) *Manager {
	if log == nil {
		log = logger.Nop()
	}
	ctx, cancel := context.WithCancel(parent)

	return &Manager{
		logger:      log,
		hookTimeout: defaultHookTimeout,
		done:        make(chan struct{}),
		ctx:         ctx,
		cancel:      cancel,
		stopSignals: func() {},
	}
}

func (m *Manager) Register(name string, fn Hook) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.hooks = append(m.hooks, namedHook{name: name, fn: fn})
}

// Listen starts watching for termination signals. The first signal cancels
// the context; in-flight work is expected to observe it and return.
func (m *Manager) Listen() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	m.mu.Lock()
	m.stopSignals = func() { signal.Stop(sigChan) }
	m.mu.Unlock()

	go func() {
		select {
		case sig := <-sigChan:
			m.logger.Info("ShutdownManager", "shutdown signal received", map[string]interface{}{
				"signal": sig.String(),
			})
			m.cancel()
		case <-m.done:
		}
	}()
}

// Shutdown cancels the context and runs every hook once. Later calls are
// no-ops.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()

	select {
	case <-m.done:
		return
	default:
		close(m.done)
	}

	m.stopSignals()
	m.cancel()

	for i := len(m.hooks) - 1; i >= 0; i-- {
		hook := m.hooks[i]

		errCh := make(chan error, 1)
		go func() {
			errCh <- hook.fn()
		}()

		select {
		case err := <-errCh:
			if err != nil {
				m.logger.Warning("ShutdownManager", "shutdown hook failed", map[string]interface{}{
					"hook":  hook.name,
					"error": err.Error(),
				})
			}
		case <-time.After(m.hookTimeout):
			m.logger.Warning("ShutdownManager", "shutdown hook timeout", map[string]interface{}{
				"hook": hook.name,
			})
		}
	}
}

func (m *Manager) Context() context.Context {
	return m.ctx
}
