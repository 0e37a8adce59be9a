package runtime

import (
	"fmt"
	"sync"
)

// Handler executes one job type. A returned error marks the job failed;
// failed jobs are never retried, so handlers must be idempotent and re-derive
// state from the store rather than trusting the payload's assumptions.
type Handler interface {
	Type() string
	Run(jc *Context) error
}

// Registry maps job_type to its handler. New job types register themselves;
// the scheduler never switches on type names.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

func (r *Registry) Register(h Handler) error {
	if h == nil {
		return fmt.Errorf("nil handler")
	}
	t := h.Type()
	if t == "" {
		return fmt.Errorf("handler Type() is empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[t]; exists {
		return fmt.Errorf("handler already registered for job_type=%s", t)
	}
	r.handlers[t] = h
	return nil
}

func (r *Registry) Get(jobType string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[jobType]
	return h, ok
}
