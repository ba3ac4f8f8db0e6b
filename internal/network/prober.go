// Package network tracks whether the task server is reachable.
package network

import (
	"context"
	"time"

	"github.com/existflow/tasksync/internal/logger"
	"github.com/existflow/tasksync/internal/observe"
)

// HealthChecker pings the server; *api.Client implements it
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Prober polls the server health endpoint and publishes online/offline
// transitions.
type Prober struct {
	checker  HealthChecker
	interval time.Duration
	timeout  time.Duration
	online   *observe.Subject[bool]
}

// NewProber creates a prober. It reports offline until the first probe.
func NewProber(checker HealthChecker, interval time.Duration) *Prober {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	timeout := 5 * time.Second
	if interval < timeout {
		timeout = interval
	}
	return &Prober{
		checker:  checker,
		interval: interval,
		timeout:  timeout,
		online:   observe.New(false),
	}
}

// IsOnline returns the result of the latest probe
func (p *Prober) IsOnline() bool {
	return p.online.Value()
}

// Subscribe emits the current state and every transition after it
func (p *Prober) Subscribe() (<-chan bool, func()) {
	return p.online.Subscribe()
}

// Probe checks the server once and publishes the result if it changed
func (p *Prober) Probe(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err := p.checker.Health(ctx)
	online := err == nil

	if online != p.online.Value() {
		if online {
			logger.Info("Server reachable")
		} else {
			logger.Info("Server unreachable", logger.F("error", err))
		}
		p.online.Publish(online)
	}
	return online
}

// Run probes immediately and then on every interval until ctx is done
func (p *Prober) Run(ctx context.Context) error {
	p.Probe(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			p.Probe(ctx)
		}
	}
}
