package session

import (
	"log/slog"
	"sync"

	"github.com/gw2overlay/linkbridge/pkg/core"
)

// Context holds the current session and the latest observed game state.
type Context struct {
	mu        sync.RWMutex
	session   core.Session
	mapID     uint32
	tick      uint32
	character string
}

// NewContext creates a Context for s.
func NewContext(s core.Session) *Context {
	return &Context{session: s}
}

// Session returns the current session.
func (c *Context) Session() core.Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

// Observe records the latest map, tick and character name.
func (c *Context) Observe(mapID, tick uint32, character string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mapID = mapID
	c.tick = tick
	if character != "" {
		c.character = character
	}
}

// MapID returns the last observed map id.
func (c *Context) MapID() uint32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mapID
}

// Character returns the last non-empty character name.
func (c *Context) Character() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.character
}

// Attrs returns log attributes for the current state. Nothing is added before
// the first observation.
func (c *Context) Attrs() []slog.Attr {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.tick == 0 {
		return nil
	}
	attrs := []slog.Attr{
		slog.Uint64("map_id", uint64(c.mapID)),
		slog.Uint64("tick", uint64(c.tick)),
	}
	if c.character != "" {
		attrs = append(attrs, slog.String("character", c.character))
	}
	return attrs
}
