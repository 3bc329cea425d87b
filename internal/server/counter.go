package server

import (
	"fmt"
	"sync"
)

// RequestCounter hands out zero-padded, monotonically increasing request ids.
type RequestCounter struct {
	mu sync.Mutex
	n  int
}

// Next returns the next id, e.g. "000001".
func (c *RequestCounter) Next() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n++
	return fmt.Sprintf("%06d", c.n)
}
