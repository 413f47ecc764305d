package testutil

import (
	"fmt"
	"sync"

	"github.com/roach88/taleweaver/internal/media"
)

// SequentialHandles generates media handles in sequence:
// blob:taleweaver/test-0001, blob:taleweaver/test-0002, ...
//
// Deterministic handles let golden snapshots include rendered pages.
//
// Thread-safety: Generate is safe for concurrent use.
type SequentialHandles struct {
	mu sync.Mutex
	n  int
}

// NewSequentialHandles creates a generator whose first handle ends in 0001.
func NewSequentialHandles() *SequentialHandles {
	return &SequentialHandles{}
}

// Generate returns the next handle. Pass it to media.WithHandleGenerator.
func (g *SequentialHandles) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%stest-%04d", media.HandlePrefix, g.n)
}
