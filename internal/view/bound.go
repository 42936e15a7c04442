// Package view keeps server-side view models whose contents are fetched
// from the Command Gateway. A view only ever shows the result of the fetch
// issued for its current parameters: every fetch is stamped with a
// generation number and its result is committed only if that generation is
// still current and the view is still open.
package view

import (
	"context"
	"sync"
	"time"

	"ledgerdesk/internal/log"
)

// Status is the tri-state of a fetch, plus Idle for parameters that do not
// warrant one.
type Status int

const (
	StatusIdle Status = iota
	StatusPending
	StatusFailed
	StatusSucceeded
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusPending:
		return "pending"
	case StatusFailed:
		return "failed"
	case StatusSucceeded:
		return "succeeded"
	default:
		return "unknown"
	}
}

// Result is what a view currently shows.
type Result[T any] struct {
	Status     Status
	Value      T
	Err        string
	Generation uint64
}

// FetchFunc loads the data for one set of parameters.
type FetchFunc[P comparable, T any] func(ctx context.Context, params P) (T, error)

// Options tune a Bound view. Zero values are usable.
type Options[P comparable] struct {
	// Name identifies the view in logs.
	Name string
	// Ready reports whether params warrant a fetch. Nil means always.
	Ready func(P) bool
	// Timeout bounds each fetch; zero means no per-fetch deadline.
	Timeout time.Duration
	// Context is the parent of every fetch context.
	Context context.Context
	Logger  *log.Logger
}

// Stats counts fetch outcomes.
type Stats struct {
	Issued    uint64
	Committed uint64
	Discarded uint64
}

// Bound is a generation-guarded loader for one view. Fetches run on their
// own goroutines and are never aborted; superseded results are dropped.
type Bound[P comparable, T any] struct {
	fetch   FetchFunc[P, T]
	ready   func(P) bool
	timeout time.Duration
	base    context.Context
	name    string
	logger  *log.Logger

	// notifyMu orders listener calls against Close so nothing is delivered
	// once Close has returned. Listeners must not call back into the view.
	notifyMu sync.Mutex

	mu        sync.Mutex
	params    P
	hasParams bool
	gen       uint64
	alive     bool
	result    Result[T]
	listeners []func(Result[T])
	stats     Stats

	inflight sync.WaitGroup
}

func NewBound[P comparable, T any](fetch FetchFunc[P, T], opts Options[P]) *Bound[P, T] {
	base := opts.Context
	if base == nil {
		base = context.Background()
	}
	return &Bound[P, T]{
		fetch:   fetch,
		ready:   opts.Ready,
		timeout: opts.Timeout,
		base:    base,
		name:    opts.Name,
		logger:  log.OrDiscard(opts.Logger).WithComponent(log.ComponentView),
		alive:   true,
	}
}

// Set targets the view at params. Equal params are a no-op; anything else
// clears the shown result and issues exactly one fetch.
func (b *Bound[P, T]) Set(params P) {
	b.mu.Lock()
	if !b.alive || (b.hasParams && params == b.params) {
		b.mu.Unlock()
		return
	}
	b.params = params
	b.hasParams = true
	b.issueLocked()
	b.mu.Unlock()
	b.notify()
}

// Reload re-fetches the current params under a new generation.
func (b *Bound[P, T]) Reload() {
	b.mu.Lock()
	if !b.alive || !b.hasParams {
		b.mu.Unlock()
		return
	}
	b.issueLocked()
	b.mu.Unlock()
	b.notify()
}

func (b *Bound[P, T]) issueLocked() {
	b.gen++
	gen := b.gen
	if b.ready != nil && !b.ready(b.params) {
		b.result = Result[T]{Status: StatusIdle, Generation: gen}
		return
	}
	b.result = Result[T]{Status: StatusPending, Generation: gen}
	b.stats.Issued++
	b.inflight.Add(1)
	go b.run(gen, b.params)
}

func (b *Bound[P, T]) run(gen uint64, params P) {
	defer b.inflight.Done()

	ctx := b.base
	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}
	value, err := b.fetch(ctx, params)

	b.mu.Lock()
	if !b.alive || gen != b.gen {
		b.stats.Discarded++
		current, alive := b.gen, b.alive
		b.mu.Unlock()
		b.logger.Debug("Stale result discarded",
			log.FieldView, b.name,
			log.FieldGeneration, gen,
			"current_generation", current,
			"alive", alive)
		return
	}
	if err != nil {
		b.result = Result[T]{Status: StatusFailed, Err: err.Error(), Generation: gen}
	} else {
		b.result = Result[T]{Status: StatusSucceeded, Value: value, Generation: gen}
	}
	b.stats.Committed++
	b.mu.Unlock()

	if err != nil {
		b.logger.Warn("View fetch failed",
			log.FieldView, b.name,
			log.FieldGeneration, gen,
			log.FieldError, err)
	}
	b.notify()
}

// notify hands the current result to every listener.
func (b *Bound[P, T]) notify() {
	b.notifyMu.Lock()
	defer b.notifyMu.Unlock()

	b.mu.Lock()
	if !b.alive || len(b.listeners) == 0 {
		b.mu.Unlock()
		return
	}
	res := b.result
	listeners := append([]func(Result[T]){}, b.listeners...)
	b.mu.Unlock()

	for _, fn := range listeners {
		fn(res)
	}
}

// OnChange registers fn to run after every state change.
func (b *Bound[P, T]) OnChange(fn func(Result[T])) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = append(b.listeners, fn)
}

// Snapshot returns the current params, whether any were set, and the
// current result.
func (b *Bound[P, T]) Snapshot() (P, bool, Result[T]) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.params, b.hasParams, b.result
}

// Result returns the current result.
func (b *Bound[P, T]) Result() Result[T] {
	_, _, res := b.Snapshot()
	return res
}

// Stats returns a copy of the fetch counters.
func (b *Bound[P, T]) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stats
}

// Close tears the view down. Fetches still in flight run to completion but
// their results are dropped, and no listener runs after Close returns.
func (b *Bound[P, T]) Close() {
	b.notifyMu.Lock()
	defer b.notifyMu.Unlock()

	b.mu.Lock()
	defer b.mu.Unlock()
	b.alive = false
	b.listeners = nil
}

// Wait blocks until every issued fetch has returned. Call it after Close,
// or when nothing can call Set or Reload concurrently.
func (b *Bound[P, T]) Wait() {
	b.inflight.Wait()
}
