// internal/common/database/health.go
package database

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Backend is a store that can report reachability.
type Backend interface {
	Name() string
	Ping(ctx context.Context) error
	Close() error
}

// Connections groups the stores a process opened so they can be checked and
// closed together.
type Connections struct {
	backends []Backend
}

func NewConnections(backends ...Backend) *Connections {
	return &Connections{backends: backends}
}

func (c *Connections) Add(b Backend) {
	c.backends = append(c.backends, b)
}

// Check pings every backend with a per-backend timeout and returns the status
// of each by name. The error joins every failure.
func (c *Connections) Check(ctx context.Context, timeout time.Duration) (map[string]string, error) {
	status := make(map[string]string, len(c.backends))
	var errs []error
	for _, b := range c.backends {
		pctx, cancel := context.WithTimeout(ctx, timeout)
		err := b.Ping(pctx)
		cancel()
		if err != nil {
			status[b.Name()] = "down"
			errs = append(errs, fmt.Errorf("%s: %w", b.Name(), err))
			continue
		}
		status[b.Name()] = "up"
	}
	return status, errors.Join(errs...)
}

// Close closes every backend in reverse order of registration.
func (c *Connections) Close() error {
	var errs []error
	for i := len(c.backends) - 1; i >= 0; i-- {
		if err := c.backends[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
