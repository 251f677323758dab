// SPDX-License-Identifier: EPL-2.0

// Package event provides typed observer registries. Handlers are identified
// by a Token so they can be removed individually.
package event

import (
	"sync"

	"github.com/google/uuid"
)

// Token identifies a subscription.
type Token uuid.UUID

func (t Token) String() string { return uuid.UUID(t).String() }

type entry[T any] struct {
	token Token
	fn    func(T)
}

// Registry holds the handlers of one event type. The zero value is ready
// to use.
type Registry[T any] struct {
	mu       sync.RWMutex
	handlers []entry[T]
}

// Subscribe registers fn and returns the token that removes it.
func (r *Registry[T]) Subscribe(fn func(T)) Token {
	tok := Token(uuid.New())

	r.mu.Lock()
	defer r.mu.Unlock()

	r.handlers = append(r.handlers, entry[T]{token: tok, fn: fn})
	return tok
}

// Unsubscribe removes the handler registered under tok. It reports whether
// a handler was removed.
func (r *Registry[T]) Unsubscribe(tok Token) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, e := range r.handlers {
		if e.token == tok {
			// Copy so a concurrent Emit iterating the old slice is unaffected.
			next := make([]entry[T], 0, len(r.handlers)-1)
			next = append(next, r.handlers[:i]...)
			r.handlers = append(next, r.handlers[i+1:]...)
			return true
		}
	}
	return false
}

// Emit calls every handler in subscription order on the calling goroutine.
// Handlers may subscribe or unsubscribe while being called; the change
// applies from the next Emit.
func (r *Registry[T]) Emit(v T) {
	r.mu.RLock()
	handlers := r.handlers
	r.mu.RUnlock()

	for _, e := range handlers {
		e.fn(v)
	}
}

// Len returns the number of registered handlers.
func (r *Registry[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.handlers)
}
