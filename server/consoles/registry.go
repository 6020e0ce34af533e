package consoles

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-content-admin/metrics"
)

// Registry holds the live consoles in memory. Consoles are rebuilt from the
// token cookies after a restart, so nothing here needs to be durable.
type Registry struct {
	mu         sync.RWMutex
	consoles   map[string]*Console
	newConsole func(id string) *Console
	nowTime    func() time.Time
}

func NewRegistry(newConsole func(id string) *Console) *Registry {
	return &Registry{
		consoles:   make(map[string]*Console),
		newConsole: newConsole,
		nowTime:    time.Now,
	}
}

// WithNowTime replaces the clock used for idle tracking (primarily for testing)
func (r *Registry) WithNowTime(now func() time.Time) *Registry {
	r.nowTime = now
	return r
}

// Get returns a live console and marks it as seen
func (r *Registry) Get(id string) (*Console, bool) {
	if id == "" {
		return nil, false
	}
	r.mu.RLock()
	c, ok := r.consoles[id]
	r.mu.RUnlock()
	if ok {
		c.touch(r.nowTime())
	}
	return c, ok
}

// Create starts a console with a new random id
func (r *Registry) Create() *Console {
	c := r.newConsole(uuid.New().String())
	c.touch(r.nowTime())

	r.mu.Lock()
	r.consoles[c.ID] = c
	n := len(r.consoles)
	r.mu.Unlock()

	metrics.ActiveConsoles.Set(float64(n))
	return c
}

// Delete closes and removes a console
func (r *Registry) Delete(id string) {
	r.mu.Lock()
	c, ok := r.consoles[id]
	delete(r.consoles, id)
	n := len(r.consoles)
	r.mu.Unlock()

	if ok {
		c.Auth.Close()
	}
	metrics.ActiveConsoles.Set(float64(n))
}

// Sweep removes consoles not seen for maxIdle and returns how many were removed
func (r *Registry) Sweep(maxIdle time.Duration) int {
	cutoff := r.nowTime().Add(-maxIdle)

	r.mu.Lock()
	var stale []*Console
	for id, c := range r.consoles {
		if c.idleSince().Before(cutoff) {
			stale = append(stale, c)
			delete(r.consoles, id)
		}
	}
	n := len(r.consoles)
	r.mu.Unlock()

	for _, c := range stale {
		c.Auth.Close()
	}
	metrics.ActiveConsoles.Set(float64(n))
	return len(stale)
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.consoles)
}
