package run

import (
	"sync"

	"github.com/sandk/offroad-dynamics/pkg/core"
)

// Context holds the currently recording run. Storage writers and the status
// monitor read it concurrently with the loop that starts/ends runs.
type Context struct {
	mu  sync.RWMutex
	run *core.Run
}

// NewContext creates a Context with no active run.
func NewContext() *Context {
	return &Context{
		run: &core.Run{Name: "no run active"},
	}
}

// Get returns the current run.
func (c *Context) Get() *core.Run {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.run
}

// Active reports whether a run with an assigned ID is recording.
func (c *Context) Active() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.run.ID != 0
}

// Set replaces the current run.
func (c *Context) Set(r *core.Run) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.run = r
}

// Clear ends the current run.
func (c *Context) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.run = &core.Run{Name: "no run active"}
}
