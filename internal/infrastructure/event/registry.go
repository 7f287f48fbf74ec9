package event

import (
	"sync"
	"sync/atomic"

	"github.com/orderflow/backend/internal/domain/shared"
)

// wildcardRoute collects handlers subscribed without event types
const wildcardRoute = "*"

// routeTable is read on every publish and written only at wiring time, so
// readers load an immutable snapshot and writers replace it under a lock.
type routeTable struct {
	mu       sync.Mutex
	snapshot atomic.Pointer[map[string][]shared.EventHandler]
}

func newRouteTable() *routeTable {
	t := &routeTable{}
	empty := map[string][]shared.EventHandler{}
	t.snapshot.Store(&empty)
	return t
}

func (t *routeTable) add(handler shared.EventHandler, eventTypes ...string) {
	if len(eventTypes) == 0 {
		eventTypes = []string{wildcardRoute}
	}
	t.update(func(routes map[string][]shared.EventHandler) {
		for _, eventType := range eventTypes {
			if !containsHandler(routes[eventType], handler) {
				routes[eventType] = append(routes[eventType], handler)
			}
		}
	})
}

func (t *routeTable) remove(handler shared.EventHandler) {
	t.update(func(routes map[string][]shared.EventHandler) {
		for eventType, handlers := range routes {
			kept := handlers[:0:0]
			for _, h := range handlers {
				if h != handler {
					kept = append(kept, h)
				}
			}
			if len(kept) == 0 {
				delete(routes, eventType)
				continue
			}
			routes[eventType] = kept
		}
	})
}

// match returns the handlers for eventType followed by wildcard handlers.
// A handler subscribed both ways is returned once.
func (t *routeTable) match(eventType string) []shared.EventHandler {
	routes := *t.snapshot.Load()
	typed, wildcard := routes[eventType], routes[wildcardRoute]
	out := make([]shared.EventHandler, 0, len(typed)+len(wildcard))
	out = append(out, typed...)
	for _, h := range wildcard {
		if !containsHandler(typed, h) {
			out = append(out, h)
		}
	}
	return out
}

func (t *routeTable) update(mutate func(map[string][]shared.EventHandler)) {
	t.mu.Lock()
	defer t.mu.Unlock()

	current := *t.snapshot.Load()
	next := make(map[string][]shared.EventHandler, len(current)+1)
	for eventType, handlers := range current {
		next[eventType] = append([]shared.EventHandler(nil), handlers...)
	}
	mutate(next)
	t.snapshot.Store(&next)
}

func containsHandler(handlers []shared.EventHandler, target shared.EventHandler) bool {
	for _, h := range handlers {
		if h == target {
			return true
		}
	}
	return false
}
