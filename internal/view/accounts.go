package view

import (
	"context"
	"time"

	"ledgerdesk/internal/core"
	"ledgerdesk/internal/gateway"
	"ledgerdesk/internal/log"
	"ledgerdesk/internal/selection"
)

type AccountItem struct {
	ID       int64
	Name     string
	Selected bool
}

type SidebarModel struct {
	Status   Status
	Error    string
	Accounts []AccountItem
	Selected core.Account
}

// Accounts is the sidebar's account list. It has no parameters, so it is
// fetched once on Load and again on every Reload.
type Accounts struct {
	bound     *Bound[struct{}, []core.Account]
	selection *selection.Store
}

func NewAccounts(lister gateway.AccountLister, sel *selection.Store, timeout time.Duration, parent context.Context, logger *log.Logger) *Accounts {
	return &Accounts{
		bound: NewBound(func(ctx context.Context, _ struct{}) ([]core.Account, error) {
			return lister.ListAccounts(ctx)
		}, Options[struct{}]{
			Name:    "accounts",
			Timeout: timeout,
			Context: parent,
			Logger:  logger,
		}),
		selection: sel,
	}
}

// Load issues the first fetch. Later calls are no-ops; use Reload to refresh.
func (a *Accounts) Load() {
	a.bound.Set(struct{}{})
}

// Reload refetches, or loads if nothing was loaded yet.
func (a *Accounts) Reload() {
	if _, loaded, _ := a.bound.Snapshot(); !loaded {
		a.Load()
		return
	}
	a.bound.Reload()
}

func (a *Accounts) OnChange(fn func(Result[[]core.Account])) {
	a.bound.OnChange(fn)
}

func (a *Accounts) Result() Result[[]core.Account] {
	return a.bound.Result()
}

func (a *Accounts) Stats() Stats {
	return a.bound.Stats()
}

func (a *Accounts) Close() {
	a.bound.Close()
}

func (a *Accounts) Wait() {
	a.bound.Wait()
}

// Lookup finds a loaded account by id.
func (a *Accounts) Lookup(id int64) (core.Account, bool) {
	res := a.bound.Result()
	if res.Status != StatusSucceeded {
		return core.Account{}, false
	}
	for _, acc := range res.Value {
		if acc.ID == id {
			return acc, true
		}
	}
	return core.Account{}, false
}

// Model renders the sidebar, marking the selected account.
func (a *Accounts) Model() SidebarModel {
	res := a.bound.Result()
	selected, _ := a.selection.Current()
	m := SidebarModel{
		Status:   res.Status,
		Error:    res.Err,
		Selected: selected,
	}
	for _, acc := range res.Value {
		m.Accounts = append(m.Accounts, AccountItem{
			ID:       acc.ID,
			Name:     acc.Name,
			Selected: isSelected(acc, selected),
		})
	}
	return m
}

func isSelected(acc, selected core.Account) bool {
	if selected.ID != 0 {
		return acc.ID == selected.ID
	}
	return selected.Name != "" && acc.Name == selected.Name
}
