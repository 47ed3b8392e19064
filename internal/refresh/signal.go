// Package refresh implements the refresh signal: a strictly monotonic token
// whose change tells subscribed stores to refetch.
package refresh

import (
	"sync/atomic"

	"github.com/and161185/notekeeper/internal/observe"
)

// Token identifies one generation of the signal. Tokens only grow.
type Token uint64

// Signal is a broadcast refresh trigger. The zero value is ready to use.
type Signal struct {
	cur  atomic.Uint64
	subs observe.Subject[Token]
}

// New returns a signal at token 0.
func New() *Signal { return &Signal{} }

// Current returns the latest token.
func (s *Signal) Current() Token { return Token(s.cur.Load()) }

// Bump regenerates the token and notifies every subscriber with the new value.
// Subscribers run in the caller's goroutine in no promised order.
func (s *Signal) Bump() Token {
	t := Token(s.cur.Add(1))
	s.subs.Publish(t)
	return t
}

// Subscribe registers fn for future bumps.
func (s *Signal) Subscribe(fn func(Token)) (unsubscribe func()) {
	return s.subs.Subscribe(fn)
}
