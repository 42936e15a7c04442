package view

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgerdesk/internal/core"
	"ledgerdesk/internal/gateway/memory"
	"ledgerdesk/internal/selection"
)

func TestAccountsModelMarksSelection(t *testing.T) {
	store := memory.New([]string{"Checking", "Savings"}, nil)
	sel := selection.New(core.Account{ID: 2, Name: "Savings"}, nil)
	a := NewAccounts(store, sel, time.Second, context.Background(), nil)
	defer a.Close()

	a.Load()
	require.Eventually(t, func() bool { return a.Result().Status == StatusSucceeded }, time.Second, time.Millisecond)

	m := a.Model()
	require.Len(t, m.Accounts, 2)
	assert.False(t, m.Accounts[0].Selected)
	assert.True(t, m.Accounts[1].Selected)

	acc, ok := a.Lookup(1)
	assert.True(t, ok)
	assert.Equal(t, "Checking", acc.Name)
	_, ok = a.Lookup(42)
	assert.False(t, ok)
}

func TestAccountsLoadIsIdempotent(t *testing.T) {
	store := memory.New([]string{"Checking"}, nil)
	a := NewAccounts(store, selection.New(core.Account{}, nil), 0, nil, nil)
	defer a.Close()

	a.Load()
	a.Load()
	a.Wait()
	assert.Equal(t, uint64(1), a.Stats().Issued)

	a.Reload()
	a.Wait()
	assert.Equal(t, uint64(2), a.Stats().Issued)
}

func TestAccountsFailure(t *testing.T) {
	store := memory.New([]string{"Checking"}, nil)
	store.Fail("list_accounts_cmd", errors.New("backend offline"))
	a := NewAccounts(store, selection.New(core.Account{}, nil), 0, nil, nil)
	defer a.Close()

	a.Reload()
	a.Wait()
	m := a.Model()
	assert.Equal(t, StatusFailed, m.Status)
	assert.Equal(t, "backend offline", m.Error)
	assert.Empty(t, m.Accounts)
}
