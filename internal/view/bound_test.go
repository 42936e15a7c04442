package view

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type outcome struct {
	rows []string
	err  error
}

type call struct {
	params  string
	ctx     context.Context
	release chan outcome
}

// gatedFetch hands every fetch to the test, which decides when and how it
// resolves.
type gatedFetch struct {
	calls chan *call
}

func newGatedFetch() *gatedFetch {
	return &gatedFetch{calls: make(chan *call, 16)}
}

func (g *gatedFetch) fetch(ctx context.Context, params string) ([]string, error) {
	c := &call{params: params, ctx: ctx, release: make(chan outcome, 1)}
	g.calls <- c
	o := <-c.release
	return o.rows, o.err
}

func (g *gatedFetch) next(t *testing.T) *call {
	t.Helper()
	select {
	case c := <-g.calls:
		return c
	case <-time.After(time.Second):
		t.Fatal("expected a fetch to be issued")
		return nil
	}
}

func (g *gatedFetch) assertNoCall(t *testing.T) {
	t.Helper()
	select {
	case c := <-g.calls:
		t.Fatalf("unexpected fetch for %q", c.params)
	case <-time.After(20 * time.Millisecond):
	}
}

func rowsFor(p string) []string { return []string{"row-" + p} }

func waitStatus[T any](t *testing.T, b *Bound[string, T], want Status) {
	t.Helper()
	require.Eventually(t, func() bool { return b.Result().Status == want }, time.Second, time.Millisecond)
}

func TestBoundLastIssuedWinsWhenEarlierResolvesLate(t *testing.T) {
	g := newGatedFetch()
	b := NewBound[string, []string](g.fetch, Options[string]{Name: "test"})

	b.Set("A")
	callA := g.next(t)
	b.Set("B")
	callB := g.next(t)

	callB.release <- outcome{rows: rowsFor("B")}
	waitStatus(t, b, StatusSucceeded)
	callA.release <- outcome{rows: rowsFor("A")}
	b.Wait()

	params, _, res := b.Snapshot()
	assert.Equal(t, "B", params)
	assert.Equal(t, rowsFor("B"), res.Value)
	assert.Equal(t, Stats{Issued: 2, Committed: 1, Discarded: 1}, b.Stats())
}

func TestBoundStaleResultNeverShownWhilePending(t *testing.T) {
	g := newGatedFetch()
	b := NewBound[string, []string](g.fetch, Options[string]{})

	b.Set("A")
	callA := g.next(t)
	b.Set("B")
	callB := g.next(t)

	callA.release <- outcome{rows: rowsFor("A")}
	require.Eventually(t, func() bool { return b.Stats().Discarded == 1 }, time.Second, time.Millisecond)
	res := b.Result()
	assert.Equal(t, StatusPending, res.Status)
	assert.Nil(t, res.Value)

	callB.release <- outcome{rows: rowsFor("B")}
	waitStatus(t, b, StatusSucceeded)
	assert.Equal(t, rowsFor("B"), b.Result().Value)
}

func TestBoundThreeWaySupersession(t *testing.T) {
	orders := [][]int{
		{0, 1, 2}, {0, 2, 1}, {1, 0, 2}, {1, 2, 0}, {2, 0, 1}, {2, 1, 0},
	}
	for _, order := range orders {
		t.Run(fmt.Sprint(order), func(t *testing.T) {
			g := newGatedFetch()
			b := NewBound[string, []string](g.fetch, Options[string]{})

			names := []string{"A", "B", "C"}
			calls := make([]*call, len(names))
			for i, n := range names {
				b.Set(n)
				calls[i] = g.next(t)
			}
			for _, i := range order {
				calls[i].release <- outcome{rows: rowsFor(names[i])}
			}
			b.Wait()

			res := b.Result()
			assert.Equal(t, StatusSucceeded, res.Status)
			assert.Equal(t, rowsFor("C"), res.Value)
			assert.Equal(t, uint64(2), b.Stats().Discarded)
		})
	}
}

func TestBoundNoMutationAfterClose(t *testing.T) {
	g := newGatedFetch()
	b := NewBound[string, []string](g.fetch, Options[string]{})
	var notified atomic.Int32
	b.OnChange(func(Result[[]string]) { notified.Add(1) })

	b.Set("A")
	callA := g.next(t)
	before := notified.Load()
	b.Close()

	callA.release <- outcome{rows: rowsFor("A")}
	b.Wait()

	res := b.Result()
	assert.Equal(t, StatusPending, res.Status)
	assert.Nil(t, res.Value)
	assert.Equal(t, before, notified.Load())
	assert.Equal(t, uint64(1), b.Stats().Discarded)

	b.Set("B")
	b.Reload()
	g.assertNoCall(t)
}

func TestBoundFailureIsTerminalAndLocal(t *testing.T) {
	g := newGatedFetch()
	b := NewBound[string, []string](g.fetch, Options[string]{})

	b.Set("A")
	g.next(t).release <- outcome{err: errors.New("database is locked")}
	waitStatus(t, b, StatusFailed)
	assert.Equal(t, "database is locked", b.Result().Err)

	// no retry
	g.assertNoCall(t)
}

func TestBoundEmptySuccessIsDistinct(t *testing.T) {
	g := newGatedFetch()
	b := NewBound[string, []string](g.fetch, Options[string]{})

	b.Set("A")
	g.next(t).release <- outcome{rows: []string{}}
	waitStatus(t, b, StatusSucceeded)
	res := b.Result()
	assert.Empty(t, res.Value)
	assert.Empty(t, res.Err)
}

func TestBoundEqualParamsAreNoOp(t *testing.T) {
	g := newGatedFetch()
	b := NewBound[string, []string](g.fetch, Options[string]{})

	b.Set("A")
	g.next(t).release <- outcome{rows: rowsFor("A")}
	b.Set("A")
	g.assertNoCall(t)
	assert.Equal(t, uint64(1), b.Stats().Issued)
}

func TestBoundReloadSupersedesInFlight(t *testing.T) {
	g := newGatedFetch()
	b := NewBound[string, []string](g.fetch, Options[string]{})

	b.Set("A")
	first := g.next(t)
	b.Reload()
	second := g.next(t)
	assert.Equal(t, "A", second.params)

	second.release <- outcome{rows: []string{"fresh"}}
	waitStatus(t, b, StatusSucceeded)
	first.release <- outcome{rows: []string{"old"}}
	b.Wait()
	assert.Equal(t, []string{"fresh"}, b.Result().Value)
}

func TestBoundIdleWhenNotReady(t *testing.T) {
	g := newGatedFetch()
	b := NewBound[string, []string](g.fetch, Options[string]{
		Ready: func(p string) bool { return p != "" },
	})

	b.Set("")
	g.assertNoCall(t)
	assert.Equal(t, StatusIdle, b.Result().Status)
	assert.Equal(t, uint64(0), b.Stats().Issued)

	b.Set("A")
	g.next(t).release <- outcome{rows: rowsFor("A")}
	waitStatus(t, b, StatusSucceeded)
}

func TestBoundFetchGetsDeadline(t *testing.T) {
	g := newGatedFetch()
	b := NewBound[string, []string](g.fetch, Options[string]{Timeout: time.Minute})

	b.Set("A")
	c := g.next(t)
	_, ok := c.ctx.Deadline()
	assert.True(t, ok)
	c.release <- outcome{}
	b.Wait()
}

func TestBoundListenersSeeTransitions(t *testing.T) {
	g := newGatedFetch()
	b := NewBound[string, []string](g.fetch, Options[string]{})
	seen := make(chan Status, 4)
	b.OnChange(func(r Result[[]string]) { seen <- r.Status })

	b.Set("A")
	assert.Equal(t, StatusPending, <-seen)
	g.next(t).release <- outcome{rows: rowsFor("A")}
	assert.Equal(t, StatusSucceeded, <-seen)
}
