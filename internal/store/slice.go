// Package store holds the request-lifecycle state of every backend
// operation the front end performs. Each (entity, operation) pair owns one
// Slice that moves through idle, loading, succeeded and failed, keeping the
// last good payload across failures.
package store

import (
	"context"
	"strings"
	"sync"
)

// Status is the lifecycle position of a slice.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusLoading   Status = "loading"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// DefaultError is recorded when a failure carries no message.
const DefaultError = "An error occurred"

// State is a snapshot of a slice. Data is nil until the first success.
// A succeeded state never carries an error; a failed state keeps the data of
// the last success.
type State[T any] struct {
	Status Status `json:"status"`
	Data   *T     `json:"data,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Loading reports whether a request is in flight.
func (s State[T]) Loading() bool { return s.Status == StatusLoading }

// Succeeded reports whether the last request succeeded.
func (s State[T]) Succeeded() bool { return s.Status == StatusSucceeded }

// Failed reports whether the last request failed.
func (s State[T]) Failed() bool { return s.Status == StatusFailed }

type options struct {
	staleGuard bool
}

// Option configures a slice.
type Option func(*options)

// WithStaleGuard makes request tickets write back only when no later request
// has started on the same slice. Without it the last response to resolve
// wins.
func WithStaleGuard() Option { return func(o *options) { o.staleGuard = true } }

// Slice is the lifecycle container of one entity/operation pair. It is safe
// for concurrent use. Subscribers run after every change, outside the lock,
// in registration order.
type Slice[T any] struct {
	name  string
	guard bool

	mu      sync.Mutex
	state   State[T]
	seq     uint64
	subs    map[uint64]func(State[T])
	order   []uint64
	nextSub uint64
}

// NewSlice returns an idle slice.
func NewSlice[T any](name string, opts ...Option) *Slice[T] {
	var o options
	for _, fn := range opts {
		fn(&o)
	}
	return &Slice[T]{
		name:  name,
		guard: o.staleGuard,
		state: State[T]{Status: StatusIdle},
		subs:  make(map[uint64]func(State[T])),
	}
}

// Name identifies the slice (e.g. "adoption.list").
func (s *Slice[T]) Name() string { return s.name }

// Snapshot returns the current state.
func (s *Slice[T]) Snapshot() State[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe registers fn and returns a function that removes it.
func (s *Slice[T]) Subscribe(fn func(State[T])) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.order = append(s.order, id)
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			for i, x := range s.order {
				if x == id {
					s.order = append(s.order[:i], s.order[i+1:]...)
					break
				}
			}
			s.mu.Unlock()
		})
	}
}

// Start marks the slice loading (error cleared, data kept) and returns the
// ticket through which the outcome is written back. ctx is the lifetime of
// the consumer: once it is cancelled the ticket's write-back is dropped.
func (s *Slice[T]) Start(ctx context.Context) *Request[T] {
	if ctx == nil {
		ctx = context.Background()
	}
	s.mu.Lock()
	s.seq++
	seq := s.seq
	s.state.Status = StatusLoading
	s.state.Error = ""
	st, subs := s.state, s.subscribers()
	s.mu.Unlock()

	publish(subs, st)
	return &Request[T]{slice: s, ctx: ctx, seq: seq}
}

// Succeed records a successful result: data replaced, error cleared.
func (s *Slice[T]) Succeed(payload T) {
	s.apply(func(st *State[T]) {
		v := payload
		st.Status = StatusSucceeded
		st.Data = &v
		st.Error = ""
	})
}

// Fail records a failure; data is left as it was. An empty message becomes
// DefaultError.
func (s *Slice[T]) Fail(message string) {
	if strings.TrimSpace(message) == "" {
		message = DefaultError
	}
	s.apply(func(st *State[T]) {
		st.Status = StatusFailed
		st.Error = message
	})
}

// Reset returns the slice to its initial idle state. Resetting twice is the
// same as resetting once. Outstanding guarded tickets become stale.
func (s *Slice[T]) Reset() {
	s.mu.Lock()
	s.seq++
	s.state = State[T]{Status: StatusIdle}
	st, subs := s.state, s.subscribers()
	s.mu.Unlock()
	publish(subs, st)
}

func (s *Slice[T]) apply(fn func(*State[T])) {
	s.mu.Lock()
	fn(&s.state)
	st, subs := s.state, s.subscribers()
	s.mu.Unlock()
	publish(subs, st)
}

// subscribers must be called with s.mu held.
func (s *Slice[T]) subscribers() []func(State[T]) {
	if len(s.order) == 0 {
		return nil
	}
	out := make([]func(State[T]), 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.subs[id])
	}
	return out
}

func publish[T any](subs []func(State[T]), st State[T]) {
	for _, fn := range subs {
		fn(st)
	}
}

// Request is the write-back ticket of one started request.
type Request[T any] struct {
	slice *Slice[T]
	ctx   context.Context
	seq   uint64
}

// Context returns the consumer context the ticket was started with.
func (r *Request[T]) Context() context.Context { return r.ctx }

// Succeed writes payload back and reports whether it landed.
func (r *Request[T]) Succeed(payload T) bool {
	return r.writeBack(func(st *State[T]) {
		v := payload
		st.Status = StatusSucceeded
		st.Data = &v
		st.Error = ""
	})
}

// Fail writes a failure back and reports whether it landed.
func (r *Request[T]) Fail(message string) bool {
	if strings.TrimSpace(message) == "" {
		message = DefaultError
	}
	return r.writeBack(func(st *State[T]) {
		st.Status = StatusFailed
		st.Error = message
	})
}

func (r *Request[T]) writeBack(fn func(*State[T])) bool {
	if r.ctx.Err() != nil {
		return false
	}
	s := r.slice
	s.mu.Lock()
	if s.guard && r.seq != s.seq {
		s.mu.Unlock()
		return false
	}
	fn(&s.state)
	st, subs := s.state, s.subscribers()
	s.mu.Unlock()
	publish(subs, st)
	return true
}
