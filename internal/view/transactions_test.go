package view

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgerdesk/internal/core"
	"ledgerdesk/internal/selection"
)

type monthCall struct {
	account core.Account
	month   core.Month
	release chan outcomeTxns
}

type outcomeTxns struct {
	txns []core.Transaction
	err  error
}

type gatedLister struct {
	calls chan *monthCall
}

func (g *gatedLister) ListTransactionsByMonth(_ context.Context, account core.Account, month core.Month) ([]core.Transaction, error) {
	c := &monthCall{account: account, month: month, release: make(chan outcomeTxns, 1)}
	g.calls <- c
	o := <-c.release
	return o.txns, o.err
}

func (g *gatedLister) next(t *testing.T) *monthCall {
	t.Helper()
	select {
	case c := <-g.calls:
		return c
	case <-time.After(time.Second):
		t.Fatal("expected a fetch to be issued")
		return nil
	}
}

var march = core.Month{Year: 2025, Month: 3}

func txn(id int64, account, payee string, cents int64) core.Transaction {
	return core.Transaction{
		ID:          id,
		Date:        core.NewDate(2025, 3, int(id)),
		Account:     account,
		Payee:       payee,
		AmountCents: cents,
	}
}

func newTestTransactions(t *testing.T, initial core.Account) (*Transactions, *gatedLister, *selection.Store) {
	t.Helper()
	g := &gatedLister{calls: make(chan *monthCall, 16)}
	sel := selection.New(initial, nil)
	tv := NewTransactions(TransactionsConfig{
		Lister:    g,
		Selection: sel,
		Formatter: core.MustFormatter("en", "EUR"),
		Month:     march,
	})
	t.Cleanup(func() {
		tv.Close()
	})
	return tv, g, sel
}

func TestTransactionsNoAccountIsIdle(t *testing.T) {
	tv, g, _ := newTestTransactions(t, core.Account{})

	select {
	case c := <-g.calls:
		t.Fatalf("unexpected fetch for %+v", c.account)
	case <-time.After(20 * time.Millisecond):
	}
	assert.Equal(t, TableNoAccount, tv.Model().State)
}

func TestTransactionsSelectionSwitchNeverShowsEarlierAccount(t *testing.T) {
	tv, g, sel := newTestTransactions(t, core.Account{})

	sel.Select(1, "A")
	callA := g.next(t)
	sel.Select(2, "B")
	callB := g.next(t)
	assert.Equal(t, "B", callB.account.Name)

	callB.release <- outcomeTxns{txns: []core.Transaction{txn(2, "B", "Bakery", -450)}}
	require.Eventually(t, func() bool { return tv.Model().State == TablePopulated }, time.Second, time.Millisecond)
	callA.release <- outcomeTxns{txns: []core.Transaction{txn(1, "A", "Landlord", -90000)}}
	tv.Wait()

	m := tv.Model()
	require.Len(t, m.Rows, 1)
	assert.Equal(t, "Bakery", m.Rows[0].Payee)
	assert.Equal(t, "B", m.Account.Name)
	assert.Equal(t, uint64(1), tv.Stats().Discarded)
}

func TestTransactionsStaleWhileLoadingShowsLoading(t *testing.T) {
	tv, g, sel := newTestTransactions(t, core.Account{})

	sel.Select(1, "A")
	callA := g.next(t)
	sel.Select(2, "B")
	callB := g.next(t)

	callA.release <- outcomeTxns{txns: []core.Transaction{txn(1, "A", "Landlord", -90000)}}
	require.Eventually(t, func() bool { return tv.Stats().Discarded == 1 }, time.Second, time.Millisecond)
	m := tv.Model()
	assert.Equal(t, TableLoading, m.State)
	assert.Empty(t, m.Rows)

	callB.release <- outcomeTxns{txns: []core.Transaction{}}
	require.Eventually(t, func() bool { return tv.Model().State == TableEmpty }, time.Second, time.Millisecond)
}

func TestTransactionsFailureShowsMessage(t *testing.T) {
	tv, g, _ := newTestTransactions(t, core.Account{ID: 1, Name: "Checking"})

	g.next(t).release <- outcomeTxns{err: errors.New("database is locked")}
	require.Eventually(t, func() bool { return tv.Model().State == TableFailed }, time.Second, time.Millisecond)
	assert.Equal(t, "database is locked", tv.Model().Error)
}

func TestTransactionsModelFormatsRowsAndSummary(t *testing.T) {
	tv, g, _ := newTestTransactions(t, core.Account{ID: 1, Name: "Checking"})

	c := g.next(t)
	assert.Equal(t, march, c.month)
	c.release <- outcomeTxns{txns: []core.Transaction{
		txn(1, "Checking", "Employer", 250000),
		txn(2, "Checking", "Bakery", -1234),
	}}
	require.Eventually(t, func() bool { return tv.Model().State == TablePopulated }, time.Second, time.Millisecond)

	m := tv.Model()
	assert.Equal(t, "March 2025", m.MonthLabel)
	require.Len(t, m.Rows, 2)
	assert.True(t, m.Rows[0].Inflow)
	assert.False(t, m.Rows[1].Inflow)
	assert.Equal(t, "2025-03-02", m.Rows[1].Date)
	assert.Contains(t, m.Rows[1].Amount, "12.34")
	assert.Equal(t, int64(250000-1234), m.Summary.Net.Cents)
	assert.Equal(t, 2, m.Summary.Count)
}

func TestTransactionsMonthNavigation(t *testing.T) {
	tv, g, _ := newTestTransactions(t, core.Account{ID: 1, Name: "Checking"})
	g.next(t).release <- outcomeTxns{txns: []core.Transaction{}}

	month, err := tv.ShiftMonth(-3)
	require.NoError(t, err)
	assert.Equal(t, core.Month{Year: 2024, Month: 12}, month)
	c := g.next(t)
	assert.Equal(t, month, c.month)
	c.release <- outcomeTxns{txns: []core.Transaction{}}

	assert.Error(t, tv.SetMonth(core.Month{Year: 2025, Month: 13}))
	assert.Equal(t, month, tv.Month())
}

func TestTransactionsCloseStopsFollowingSelection(t *testing.T) {
	tv, g, sel := newTestTransactions(t, core.Account{ID: 1, Name: "Checking"})
	first := g.next(t)

	tv.Close()
	sel.Select(2, "Savings")
	select {
	case c := <-g.calls:
		t.Fatalf("unexpected fetch for %+v after close", c.account)
	case <-time.After(20 * time.Millisecond):
	}

	first.release <- outcomeTxns{txns: []core.Transaction{txn(1, "Checking", "Bakery", -100)}}
	tv.Wait()
	assert.Equal(t, TableLoading, tv.Model().State)
}
