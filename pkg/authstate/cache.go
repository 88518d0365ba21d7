package authstate

import (
	"sync"

	"github.com/dmitrymomot/accesskit/pkg/auth"
)

// MemoryCache is an in-process auth.SnapshotCache. Share one between
// machines to carry the snapshot across restarts within a process.
type MemoryCache struct {
	mu   sync.RWMutex
	info *auth.SessionInfo
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{}
}

func (c *MemoryCache) Load() (*auth.SessionInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.info == nil {
		return nil, false
	}
	cp := *c.info
	cp.Identity = c.info.Identity.Clone()
	cp.Organization = c.info.Organization.Clone()
	return &cp, true
}

func (c *MemoryCache) Save(info *auth.SessionInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if info == nil {
		c.info = nil
		return
	}
	cp := *info
	cp.Identity = info.Identity.Clone()
	cp.Organization = info.Organization.Clone()
	c.info = &cp
}

func (c *MemoryCache) Clear() {
	c.Save(nil)
}
