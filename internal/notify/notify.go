// Package notify carries mutation events back up to whatever renders them.
// The core never talks to a UI directly; it broadcasts collection names
// through the hub and emits user-facing messages through a Notifier.
package notify

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Severity classifies a user-facing notification.
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Notifier receives fire-and-forget user feedback.
type Notifier interface {
	Notify(message string, severity Severity)
}

// LogNotifier writes notifications to the structured log. It is the default
// sink when no UI is attached.
type LogNotifier struct{}

// NewLogNotifier creates a log-backed notifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

// Notify implements Notifier.
func (n *LogNotifier) Notify(message string, severity Severity) {
	switch severity {
	case SeverityError:
		log.Error().Str("severity", string(severity)).Msg(message)
	case SeverityWarning:
		log.Warn().Str("severity", string(severity)).Msg(message)
	default:
		log.Info().Str("severity", string(severity)).Msg(message)
	}
}

// Hub is the data-changed callback registry. Broadcasting with no listeners
// registered is a no-op.
type Hub struct {
	mu        sync.RWMutex
	listeners []func(collection string)
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{}
}

// RegisterDataChanged adds a listener invoked after any completed mutation
// with the name of the affected collection.
func (h *Hub) RegisterDataChanged(fn func(collection string)) {
	if fn == nil {
		return
	}
	h.mu.Lock()
	h.listeners = append(h.listeners, fn)
	h.mu.Unlock()
}

// DataChanged notifies all registered listeners, in registration order.
func (h *Hub) DataChanged(collection string) {
	h.mu.RLock()
	listeners := make([]func(string), len(h.listeners))
	copy(listeners, h.listeners)
	h.mu.RUnlock()

	for _, fn := range listeners {
		fn(collection)
	}
}
