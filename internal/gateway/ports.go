// Package gateway defines the Command Gateway: the only way the UI talks to
// the ledger backend. Every operation is a named command with a JSON
// argument object and a JSON result.
package gateway

import (
	"context"
	"encoding/json"

	"ledgerdesk/internal/core"
)

// Command names understood by the backend.
const (
	CmdListAccounts          = "list_accounts_cmd"
	CmdListCategories        = "list_categories_cmd"
	CmdCreateTransaction     = "create_txn_cmd"
	CmdListTransactionsMonth = "list_txns_by_month_full"
)

// Commands lists every known command name.
var Commands = []string{
	CmdListAccounts,
	CmdListCategories,
	CmdCreateTransaction,
	CmdListTransactionsMonth,
}

// Ports consumed by views and the form.
type (
	AccountLister interface {
		ListAccounts(ctx context.Context) ([]core.Account, error)
	}

	CategoryLister interface {
		ListCategories(ctx context.Context) ([]core.Category, error)
	}

	TransactionCreator interface {
		CreateTransaction(ctx context.Context, txn core.NewTransaction) error
	}

	// MonthLister returns the full transactions of one account within one
	// calendar month, ordered by date then id.
	MonthLister interface {
		ListTransactionsByMonth(ctx context.Context, account core.Account, month core.Month) ([]core.Transaction, error)
	}

	Gateway interface {
		AccountLister
		CategoryLister
		TransactionCreator
		MonthLister
	}

	// Invoker is a transport able to run a named command. args is marshalled
	// to JSON; the raw JSON result is returned undecoded.
	Invoker interface {
		Invoke(ctx context.Context, command string, args any) (json.RawMessage, error)
	}
)
