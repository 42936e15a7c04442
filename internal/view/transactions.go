package view

import (
	"context"
	"sync"
	"time"

	"ledgerdesk/internal/core"
	"ledgerdesk/internal/gateway"
	"ledgerdesk/internal/log"
	"ledgerdesk/internal/selection"
)

// TransactionParams scope the transactions view.
type TransactionParams struct {
	Account core.Account
	Month   core.Month
}

// TableState is what the transactions table renders.
type TableState string

const (
	TableNoAccount TableState = "no-account"
	TableLoading   TableState = "loading"
	TableFailed    TableState = "failed"
	TableEmpty     TableState = "empty"
	TablePopulated TableState = "populated"
)

type RowModel struct {
	ID       int64
	Date     string
	Payee    string
	Category string
	Memo     string
	Amount   string
	Inflow   bool
}

type TableModel struct {
	State      TableState
	Account    core.Account
	Month      core.Month
	MonthLabel string
	Error      string
	Rows       []RowModel
	Summary    core.MonthSummary
	Inflow     string
	Outflow    string
	Net        string
	Generation uint64
}

// Transactions is the month-scoped transaction list of the selected account.
// It follows the selection store and refetches on every change.
type Transactions struct {
	bound     *Bound[TransactionParams, []core.Transaction]
	selection *selection.Store
	formatter *core.Formatter

	mu          sync.Mutex // serialises retargeting
	month       core.Month
	unsubscribe func()
}

// TransactionsConfig carries the transactions view's collaborators.
type TransactionsConfig struct {
	Lister    gateway.MonthLister
	Selection *selection.Store
	Formatter *core.Formatter
	Month     core.Month // zero means the current month
	Timeout   time.Duration
	Context   context.Context
	Logger    *log.Logger
}

func NewTransactions(cfg TransactionsConfig) *Transactions {
	month := cfg.Month
	if month.Validate() != nil {
		month = core.CurrentMonth()
	}
	t := &Transactions{
		selection: cfg.Selection,
		formatter: cfg.Formatter,
		month:     month,
	}
	t.bound = NewBound(func(ctx context.Context, p TransactionParams) ([]core.Transaction, error) {
		return cfg.Lister.ListTransactionsByMonth(ctx, p.Account, p.Month)
	}, Options[TransactionParams]{
		Name:    "transactions",
		Ready:   func(p TransactionParams) bool { return !p.Account.IsZero() },
		Timeout: cfg.Timeout,
		Context: cfg.Context,
		Logger:  cfg.Logger,
	})

	t.unsubscribe = cfg.Selection.Subscribe(func(account core.Account) {
		t.mu.Lock()
		defer t.mu.Unlock()
		t.bound.Set(TransactionParams{Account: account, Month: t.month})
	})

	t.mu.Lock()
	account, _ := cfg.Selection.Current()
	t.bound.Set(TransactionParams{Account: account, Month: t.month})
	t.mu.Unlock()
	return t
}

// SetMonth moves the month window.
func (t *Transactions) SetMonth(month core.Month) error {
	if err := month.Validate(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.retargetLocked(month)
	return nil
}

// ShiftMonth moves the month window by delta months.
func (t *Transactions) ShiftMonth(delta int) (core.Month, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	month := t.month.Shift(delta)
	if err := month.Validate(); err != nil {
		return t.month, err
	}
	t.retargetLocked(month)
	return month, nil
}

func (t *Transactions) retargetLocked(month core.Month) {
	t.month = month
	account, _ := t.selection.Current()
	t.bound.Set(TransactionParams{Account: account, Month: month})
}

// Month returns the month currently targeted.
func (t *Transactions) Month() core.Month {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.month
}

// Reload refetches the current account and month.
func (t *Transactions) Reload() {
	t.bound.Reload()
}

// OnChange registers fn to run after every state change.
func (t *Transactions) OnChange(fn func(Result[[]core.Transaction])) {
	t.bound.OnChange(fn)
}

func (t *Transactions) Result() Result[[]core.Transaction] {
	return t.bound.Result()
}

func (t *Transactions) Stats() Stats {
	return t.bound.Stats()
}

// Close stops following the selection and drops any in-flight result.
func (t *Transactions) Close() {
	t.unsubscribe()
	t.bound.Close()
}

// Wait blocks until in-flight fetches return.
func (t *Transactions) Wait() {
	t.bound.Wait()
}

// Model renders the current state for the table template.
func (t *Transactions) Model() TableModel {
	params, _, res := t.bound.Snapshot()
	m := TableModel{
		Account:    params.Account,
		Month:      params.Month,
		MonthLabel: params.Month.Label(),
		Generation: res.Generation,
	}

	switch res.Status {
	case StatusIdle:
		m.State = TableNoAccount
	case StatusPending:
		m.State = TableLoading
	case StatusFailed:
		m.State = TableFailed
		m.Error = res.Err
	case StatusSucceeded:
		if len(res.Value) == 0 {
			m.State = TableEmpty
		} else {
			m.State = TablePopulated
		}
		m.Rows = make([]RowModel, 0, len(res.Value))
		for _, txn := range res.Value {
			m.Rows = append(m.Rows, RowModel{
				ID:       txn.ID,
				Date:     txn.Date.String(),
				Payee:    txn.Payee,
				Category: txn.Category,
				Memo:     txn.Memo,
				Amount:   t.formatter.Cents(txn.AmountCents),
				Inflow:   txn.IsInflow(),
			})
		}
		m.Summary = core.Summarize(res.Value)
		m.Inflow = t.formatter.Cents(m.Summary.Inflow.Cents)
		m.Outflow = t.formatter.Cents(m.Summary.Outflow.Cents)
		m.Net = t.formatter.Cents(m.Summary.Net.Cents)
	}
	return m
}
