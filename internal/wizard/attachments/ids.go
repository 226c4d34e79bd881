// internal/wizard/attachments/ids.go
package attachments

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// IDGenerator hands out attachment identifiers. Implementations must never
// return the same id twice.
type IDGenerator interface {
	NewID() string
}

// UUIDGenerator produces random v4 UUIDs.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID() string {
	return uuid.NewString()
}

// CounterGenerator produces "<prefix>-1", "<prefix>-2", ... and is safe for
// concurrent use.
type CounterGenerator struct {
	prefix string
	n      atomic.Uint64
}

func NewCounterGenerator(prefix string) *CounterGenerator {
	if prefix == "" {
		prefix = "att"
	}
	return &CounterGenerator{prefix: prefix}
}

func (g *CounterGenerator) NewID() string {
	return fmt.Sprintf("%s-%d", g.prefix, g.n.Add(1))
}
