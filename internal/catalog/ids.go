package catalog

import (
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"
)

// IDGenerator hands out item IDs. Implementations must be safe for
// concurrent use.
type IDGenerator interface {
	NextID() string
}

// Counter generates increasing decimal IDs starting after the given value.
type Counter struct {
	last atomic.Uint64
}

// NewCounter returns a counter whose first ID is start+1.
func NewCounter(start uint64) *Counter {
	c := &Counter{}
	c.last.Store(start)
	return c
}

// NextID returns the next decimal ID.
func (c *Counter) NextID() string {
	return strconv.FormatUint(c.last.Add(1), 10)
}

// UUIDs generates time-ordered UUIDv7 IDs.
type UUIDs struct{}

// NextID returns a new UUIDv7 string.
func (UUIDs) NextID() string {
	id, err := uuid.NewV7()
	if err != nil {
		// Only fails when the OS random source does.
		return uuid.NewString()
	}
	return id.String()
}
