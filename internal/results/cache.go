package results

import (
	"sync"

	"github.com/Zatlas-Hospitality/intellij-server-mcp/internal/oplock"
)

// Cache holds the most recent structured result per operation class (a
// Summary for test, a build outcome for build). It is cleared at the start of
// a new operation of that class, so a long-running operation never serves the
// previous operation's data, and set again on completion.
type Cache struct {
	mu      sync.Mutex
	byClass map[oplock.Class]any
}

func NewCache() *Cache {
	return &Cache{
		byClass: make(map[oplock.Class]any),
	}
}

func (c *Cache) Clear(class oplock.Class) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.byClass, class)
}

func (c *Cache) Put(class oplock.Class, result any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byClass[class] = result
}

func (c *Cache) Get(class oplock.Class) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	result, found := c.byClass[class]
	return result, found
}
