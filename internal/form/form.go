// Package form implements the new-transaction form: validation, amount
// normalisation, a single outstanding submission and refresh on success.
package form

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"ledgerdesk/internal/core"
	"ledgerdesk/internal/gateway"
	"ledgerdesk/internal/log"
	"ledgerdesk/internal/selection"
)

// ErrBusy is returned when a submission is already in flight.
var ErrBusy = errors.New("a submission is already in progress")

// Fields are the raw user inputs. AccountID overrides the selection when set.
type Fields struct {
	Date        string
	Payee       string
	Amount      string
	CategoryID  int64
	Memo        string
	Cleared     bool
	AccountID   int64
	AccountName string
}

// State is what the form renders.
type State struct {
	Fields  Fields
	Busy    bool
	Error   string
	Invalid *ValidationError
	// Created is set after a successful submission until the next one.
	Created bool
}

// Options feed the account and category pickers.
type Options struct {
	Accounts   []core.Account
	Categories []core.Category
}

type Config struct {
	Creator    gateway.TransactionCreator
	Accounts   gateway.AccountLister
	Categories gateway.CategoryLister
	Selection  *selection.Store
	// Refresh runs after every successful submission.
	Refresh func()
	Timeout time.Duration
	Logger  *log.Logger
	// Today supplies the default date; nil means core.Today.
	Today func() core.Date
}

type Form struct {
	cfg    Config
	logger *log.Logger
	events *log.StructuredLogger

	busy atomic.Bool

	mu      sync.Mutex
	fields  Fields
	err     string
	invalid *ValidationError
	created bool
}

func New(cfg Config) *Form {
	if cfg.Today == nil {
		cfg.Today = core.Today
	}
	logger := log.OrDiscard(cfg.Logger).WithComponent(log.ComponentForm)
	f := &Form{
		cfg:    cfg,
		logger: logger,
		events: log.NewStructuredLogger(logger),
	}
	f.fields.Date = cfg.Today().String()
	return f
}

// Submit validates in and, when valid, sends one create command. A concurrent
// call returns ErrBusy without touching the gateway.
func (f *Form) Submit(ctx context.Context, in Fields) error {
	if !f.busy.CompareAndSwap(false, true) {
		f.logger.Debug("Submission rejected while busy", log.FieldOperation, log.OpSubmit)
		return ErrBusy
	}
	defer f.busy.Store(false)

	f.mu.Lock()
	f.fields = in
	f.err = ""
	f.invalid = nil
	f.created = false
	f.mu.Unlock()

	txn, verr := f.normalize(in)
	if verr != nil {
		f.mu.Lock()
		f.invalid = verr
		f.mu.Unlock()
		f.logger.Debug("Form validation failed",
			log.FieldOperation, log.OpValidate,
			log.FieldError, verr)
		return verr
	}

	if f.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.cfg.Timeout)
		defer cancel()
	}
	if err := f.cfg.Creator.CreateTransaction(ctx, txn); err != nil {
		f.mu.Lock()
		f.err = err.Error()
		f.mu.Unlock()
		return err
	}

	f.events.LogTransactionCreated(ctx, txn.AccountName, txn.PayeeName, txn.AmountCents)

	f.mu.Lock()
	f.fields = Fields{Date: in.Date}
	if strings.TrimSpace(in.Date) == "" {
		f.fields.Date = txn.Date.String()
	}
	f.created = true
	f.mu.Unlock()

	if f.cfg.Refresh != nil {
		f.cfg.Refresh()
	}
	return nil
}

// normalize turns raw fields into a create request, or reports every field
// problem at once.
func (f *Form) normalize(in Fields) (core.NewTransaction, *ValidationError) {
	verr := &ValidationError{}
	txn := core.NewTransaction{
		CategoryID: in.CategoryID,
		Memo:       strings.TrimSpace(in.Memo),
		PayeeName:  strings.TrimSpace(in.Payee),
		Cleared:    in.Cleared,
	}

	if in.AccountID != 0 || strings.TrimSpace(in.AccountName) != "" {
		txn.AccountID = in.AccountID
		txn.AccountName = strings.TrimSpace(in.AccountName)
	} else if f.cfg.Selection != nil {
		if acc, ok := f.cfg.Selection.Current(); ok {
			txn.AccountID = acc.ID
			txn.AccountName = acc.Name
		}
	}
	if txn.AccountID == 0 && txn.AccountName == "" {
		verr.add(FieldAccount, "select an account first")
	}

	if strings.TrimSpace(in.Date) == "" {
		txn.Date = f.cfg.Today()
	} else if d, err := core.ParseDate(in.Date); err != nil {
		verr.add(FieldDate, "enter a date as YYYY-MM-DD")
	} else {
		txn.Date = d
	}

	switch {
	case txn.PayeeName == "":
		verr.add(FieldPayee, "payee is required")
	case len(txn.PayeeName) > 200:
		verr.add(FieldPayee, "payee too long (max 200 characters)")
	}

	if strings.TrimSpace(in.Amount) == "" {
		verr.add(FieldAmount, "amount is required")
	} else if cents, err := core.ParseDecimalToCents(in.Amount); err != nil {
		verr.add(FieldAmount, "enter a number such as 12.34 or -12,34")
	} else {
		txn.AmountCents = cents
	}

	if len(txn.Memo) > 500 {
		verr.add(FieldMemo, "memo too long (max 500 characters)")
	}

	if verr.HasErrors() {
		return core.NewTransaction{}, verr
	}
	return txn, nil
}

// State returns a copy of the form's current state.
func (f *Form) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return State{
		Fields:  f.fields,
		Busy:    f.busy.Load(),
		Error:   f.err,
		Invalid: f.invalid,
		Created: f.created,
	}
}

// Busy reports whether a submission is in flight.
func (f *Form) Busy() bool {
	return f.busy.Load()
}

// LoadOptions fetches accounts and categories concurrently.
func (f *Form) LoadOptions(ctx context.Context) (Options, error) {
	var opts Options
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		accounts, err := f.cfg.Accounts.ListAccounts(ctx)
		opts.Accounts = accounts
		return err
	})
	g.Go(func() error {
		categories, err := f.cfg.Categories.ListCategories(ctx)
		opts.Categories = categories
		return err
	})
	if err := g.Wait(); err != nil {
		f.logger.Warn("Loading form options failed", log.FieldError, err)
		return Options{}, err
	}
	return opts, nil
}
