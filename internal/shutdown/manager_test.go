package shutdown

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestShutdown_RunsHooksInReverseOrder(t *testing.T) {
	m := NewManager(context.Background(), nil)

	var order []string
	m.Register("logger", func() error { order = append(order, "logger"); return nil })
	m.Register("processor", func() error { order = append(order, "processor"); return errors.New("boom") })

	m.Shutdown()
	m.Shutdown()

	assert.Equal(t, []string{"processor", "logger"}, order)
	assert.ErrorIs(t, m.Context().Err(), context.Canceled)
}

func TestShutdown_SlowHookDoesNotBlock(t *testing.T) {
	m := NewManager(context.Background(), nil)
	m.hookTimeout = 20 * time.Millisecond

	release := make(chan struct{})
	defer close(release)
	m.Register("stuck", func() error { <-release; return nil })

	start := time.Now()
	m.Shutdown()
	assert.Less(t, time.Since(start), time.Second)
}

func TestNewManager_FollowsParent(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	m := NewManager(parent, nil)
	m.Listen()
	defer m.Shutdown()

	cancel()

	select {
	case <-m.Context().Done():
	case <-time.After(time.Second):
		t.Fatal("manager context outlived parent")
	}
}
