// Package action tracks the lifecycle of one asynchronous operation: idle,
// pending, then success or error. Every binding wraps its encrypt and
// decrypt calls in an Action so that callers can observe progress the same
// way regardless of the binding.
package action

import (
	"context"
	"fmt"
	"sync"
)

// Status is the lifecycle stage of an Action.
type Status int

const (
	Idle Status = iota
	Pending
	Success
	Error
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Pending:
		return "pending"
	case Success:
		return "success"
	case Error:
		return "error"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// State is a snapshot of an Action.
type State[R any] struct {
	Status Status
	Data   R
	Err    error
}

func (s State[R]) IsIdle() bool    { return s.Status == Idle }
func (s State[R]) IsPending() bool { return s.Status == Pending }
func (s State[R]) IsSuccess() bool { return s.Status == Success }
func (s State[R]) IsError() bool   { return s.Status == Error }

// Func is the operation an Action runs.
type Func[P, R any] func(ctx context.Context, params P) (R, error)

type callbacks[R any] struct {
	onSuccess []func(R)
	onError   []func(error)
	onSettled []func(R, error)
	onChange  []func(State[R])
}

// Option registers a callback on an Action.
type Option[R any] func(*callbacks[R])

// OnSuccess runs after a successful call that was not superseded.
func OnSuccess[R any](fn func(R)) Option[R] {
	return func(c *callbacks[R]) { c.onSuccess = append(c.onSuccess, fn) }
}

// OnError runs after a failed call that was not superseded.
func OnError[R any](fn func(error)) Option[R] {
	return func(c *callbacks[R]) { c.onError = append(c.onError, fn) }
}

// OnSettled runs after OnSuccess or OnError.
func OnSettled[R any](fn func(R, error)) Option[R] {
	return func(c *callbacks[R]) { c.onSettled = append(c.onSettled, fn) }
}

// OnChange runs on every state transition, including Reset.
func OnChange[R any](fn func(State[R])) Option[R] {
	return func(c *callbacks[R]) { c.onChange = append(c.onChange, fn) }
}

// Action runs fn and records its state. It is safe for concurrent use; when
// calls overlap, the state reflects the most recent one and results of
// superseded calls are returned to their caller but not recorded.
type Action[P, R any] struct {
	fn  Func[P, R]
	cbs callbacks[R]

	mu    sync.Mutex
	state State[R]
	seq   uint64
}

// New returns an idle Action.
func New[P, R any](fn Func[P, R], opts ...Option[R]) *Action[P, R] {
	a := &Action[P, R]{fn: fn}
	for _, opt := range opts {
		opt(&a.cbs)
	}
	return a
}

// State returns the current snapshot.
func (a *Action[P, R]) State() State[R] {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Run executes the operation and waits for it. A new call clears any
// previous error and data.
func (a *Action[P, R]) Run(ctx context.Context, params P) (out R, err error) {
	seq := a.begin()

	defer func() {
		if r := recover(); r != nil {
			var zero R
			a.settle(seq, zero, fmt.Errorf("action: panic: %v", r))
			panic(r)
		}
	}()

	out, err = a.fn(ctx, params)
	a.settle(seq, out, err)
	return out, err
}

// Go starts the operation in the background. Its outcome is only observable
// through State and the callbacks. The returned channel is closed once the
// call has settled.
func (a *Action[P, R]) Go(ctx context.Context, params P) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = a.Run(ctx, params)
	}()
	return done
}

// Reset returns the Action to Idle and discards the result of any call
// still in flight.
func (a *Action[P, R]) Reset() {
	a.mu.Lock()
	a.seq++
	a.state = State[R]{Status: Idle}
	st := a.state
	a.mu.Unlock()

	a.notify(st)
}

func (a *Action[P, R]) begin() uint64 {
	a.mu.Lock()
	a.seq++
	seq := a.seq
	a.state = State[R]{Status: Pending}
	st := a.state
	a.mu.Unlock()

	a.notify(st)
	return seq
}

func (a *Action[P, R]) settle(seq uint64, out R, err error) {
	a.mu.Lock()
	if seq != a.seq {
		a.mu.Unlock()
		return
	}
	if err != nil {
		a.state = State[R]{Status: Error, Err: err}
	} else {
		a.state = State[R]{Status: Success, Data: out}
	}
	st := a.state
	a.mu.Unlock()

	a.notify(st)
	if err != nil {
		for _, fn := range a.cbs.onError {
			fn(err)
		}
	} else {
		for _, fn := range a.cbs.onSuccess {
			fn(out)
		}
	}
	for _, fn := range a.cbs.onSettled {
		fn(out, err)
	}
}

func (a *Action[P, R]) notify(st State[R]) {
	for _, fn := range a.cbs.onChange {
		fn(st)
	}
}
