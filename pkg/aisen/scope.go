// scope.go holds the mutable per-context state applied to every captured event.

package aisen

import "sync"

// EventProcessor transforms an event before delivery.
// Returning nil drops the event.
type EventProcessor interface {
	ProcessEvent(event *ErrorEvent) *ErrorEvent
}

// EventProcessorFunc adapts a function to the EventProcessor interface.
type EventProcessorFunc func(event *ErrorEvent) *ErrorEvent

// ProcessEvent implements EventProcessor.
func (f EventProcessorFunc) ProcessEvent(event *ErrorEvent) *ErrorEvent {
	return f(event)
}

// Scope holds the transaction name, tags and event processors of a Hub.
// It is safe for concurrent use.
type Scope struct {
	mu          sync.RWMutex
	transaction string
	tags        map[string]string
	processors  []EventProcessor
}

// NewScope creates an empty scope.
func NewScope() *Scope {
	return &Scope{
		tags: make(map[string]string),
	}
}

// SetTransaction sets the transaction name applied to events.
func (s *Scope) SetTransaction(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transaction = name
}

// Transaction returns the current transaction name.
func (s *Scope) Transaction() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.transaction
}

// SetTag sets a single tag.
func (s *Scope) SetTag(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tags[key] = value
}

// SetTags merges tags into the scope.
func (s *Scope) SetTags(tags map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range tags {
		s.tags[k] = v
	}
}

// Tags returns a copy of the scope tags.
func (s *Scope) Tags() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.tags))
	for k, v := range s.tags {
		out[k] = v
	}
	return out
}

// AddEventProcessor registers a processor. Processors run in registration order.
func (s *Scope) AddEventProcessor(p EventProcessor) {
	if p == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processors = append(s.processors, p)
}

// Clone returns an independent copy. Changes to the clone never reach s.
func (s *Scope) Clone() *Scope {
	s.mu.RLock()
	defer s.mu.RUnlock()

	clone := NewScope()
	clone.transaction = s.transaction
	for k, v := range s.tags {
		clone.tags[k] = v
	}
	clone.processors = make([]EventProcessor, len(s.processors))
	copy(clone.processors, s.processors)
	return clone
}

// ApplyToEvent copies scope data onto event and runs the event processors.
// Fields already set on the event win over scope values.
// Returns nil if a processor dropped the event.
func (s *Scope) ApplyToEvent(event *ErrorEvent) *ErrorEvent {
	s.mu.RLock()
	transaction := s.transaction
	tags := make(map[string]string, len(s.tags))
	for k, v := range s.tags {
		tags[k] = v
	}
	processors := make([]EventProcessor, len(s.processors))
	copy(processors, s.processors)
	s.mu.RUnlock()

	if event.Transaction == "" {
		event.Transaction = transaction
	}
	if len(tags) > 0 {
		if event.Tags == nil {
			event.Tags = make(map[string]string, len(tags))
		}
		for k, v := range tags {
			if _, ok := event.Tags[k]; !ok {
				event.Tags[k] = v
			}
		}
	}

	// Processors run outside the lock so they may use the scope themselves.
	for _, p := range processors {
		event = p.ProcessEvent(event)
		if event == nil {
			return nil
		}
	}
	return event
}
