// hub.go implements Hub, the handle through which events are captured.

package aisen

import (
	"context"
	"sync"
	"time"
)

// Hub pairs a Collector with a Scope. Hubs form a hierarchy: Clone produces a
// child that shares the parent's collector but owns its scope, so each unit of
// work (typically one HTTP request) can be enriched without affecting others.
//
// A Hub without a collector is disabled: capture calls do nothing and return
// the zero EventID.
type Hub struct {
	mu        sync.RWMutex
	collector Collector
	scope     *Scope
}

var defaultHub = NewHub(nil, NewScope())

// NewHub creates a hub. A nil scope is replaced with an empty one.
func NewHub(collector Collector, scope *Scope) *Hub {
	if scope == nil {
		scope = NewScope()
	}
	return &Hub{
		collector: collector,
		scope:     scope,
	}
}

// DefaultHub returns the process-wide hub.
// Per-request state belongs on clones of it, never on the hub itself.
func DefaultHub() *Hub {
	return defaultHub
}

// Init creates a collector with opts and binds it to the default hub.
func Init(opts ...CollectorOption) Collector {
	collector := NewCollector(opts...)
	defaultHub.BindCollector(collector)
	return collector
}

// Collector returns the bound collector, or nil if reporting is disabled.
func (h *Hub) Collector() Collector {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.collector
}

// Scope returns the hub's scope.
func (h *Hub) Scope() *Scope {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.scope
}

// BindCollector replaces the collector. Intended for startup wiring.
func (h *Hub) BindCollector(collector Collector) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.collector = collector
}

// Clone returns a child hub with the same collector and a copy of the scope.
func (h *Hub) Clone() *Hub {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return NewHub(h.collector, h.scope.Clone())
}

// ConfigureScope calls fn with the hub's scope.
func (h *Hub) ConfigureScope(fn func(scope *Scope)) {
	fn(h.Scope())
}

// CaptureError converts err into an event and captures it.
// A nil err is ignored and returns the zero EventID.
func (h *Hub) CaptureError(ctx context.Context, err error) EventID {
	if err == nil {
		return ""
	}
	return h.CaptureEvent(ctx, EventFromError(err))
}

// CaptureEvent applies the scope to event and records it.
//
// The event ID is assigned before the scope runs, so it is returned even if
// a processor drops the event or the collector fails. Collector errors are
// swallowed.
func (h *Hub) CaptureEvent(ctx context.Context, event ErrorEvent) EventID {
	h.mu.RLock()
	collector, scope := h.collector, h.scope
	h.mu.RUnlock()

	if collector == nil {
		return ""
	}

	if event.EventID.IsZero() {
		event.EventID = NewEventID()
	}
	id := event.EventID
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.SDK == nil {
		event.SDK = collector.Options().SDK.Clone()
	}
	if event.ContextID == nil {
		if contextID, ok := ContextIDFromContext(ctx); ok {
			event.ContextID = &contextID
		}
	}

	processed := scope.ApplyToEvent(&event)
	if processed == nil {
		return id
	}

	_ = collector.Record(ctx, *processed)
	return id
}

// Flush flushes the bound collector, if any.
func (h *Hub) Flush(ctx context.Context) error {
	collector := h.Collector()
	if collector == nil {
		return nil
	}
	return collector.Flush(ctx)
}
