package network

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakyChecker struct {
	up    atomic.Bool
	calls atomic.Int32
}

func (f *flakyChecker) Health(ctx context.Context) error {
	f.calls.Add(1)
	if f.up.Load() {
		return nil
	}
	return errors.New("connection refused")
}

func TestProber_PublishesTransitionsOnly(t *testing.T) {
	checker := &flakyChecker{}
	p := NewProber(checker, time.Hour)

	updates, cancel := p.Subscribe()
	defer cancel()
	assert.False(t, <-updates)

	assert.False(t, p.Probe(context.Background()))
	select {
	case <-updates:
		t.Fatal("no transition expected")
	default:
	}

	checker.up.Store(true)
	assert.True(t, p.Probe(context.Background()))
	assert.True(t, <-updates)
	assert.True(t, p.IsOnline())

	checker.up.Store(false)
	p.Probe(context.Background())
	assert.False(t, <-updates)
	assert.False(t, p.IsOnline())
}

func TestProber_RunProbesOnInterval(t *testing.T) {
	checker := &flakyChecker{}
	checker.up.Store(true)
	p := NewProber(checker, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	require.Eventually(t, func() bool { return checker.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	assert.True(t, p.IsOnline())

	cancel()
	assert.NoError(t, <-done)
}
