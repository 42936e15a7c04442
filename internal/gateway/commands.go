package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ledgerdesk/internal/core"
	"ledgerdesk/internal/log"
)

// CommandGateway implements Gateway on top of any Invoker transport,
// converting between core types and the backend's wire schema.
type CommandGateway struct {
	invoker Invoker
	logger  *log.StructuredLogger
}

// New wraps an Invoker. A nil logger discards output.
func New(invoker Invoker, logger *log.Logger) *CommandGateway {
	return &CommandGateway{
		invoker: invoker,
		logger:  log.NewStructuredLogger(log.OrDiscard(logger)),
	}
}

func (g *CommandGateway) ListAccounts(ctx context.Context) ([]core.Account, error) {
	raw, err := g.invoke(ctx, CmdListAccounts, struct{}{})
	if err != nil {
		return nil, err
	}
	return DecodeAccounts(raw)
}

func (g *CommandGateway) ListCategories(ctx context.Context) ([]core.Category, error) {
	raw, err := g.invoke(ctx, CmdListCategories, struct{}{})
	if err != nil {
		return nil, err
	}
	return DecodeCategories(raw)
}

func (g *CommandGateway) CreateTransaction(ctx context.Context, txn core.NewTransaction) error {
	if err := txn.Validate(); err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}
	_, err := g.invoke(ctx, CmdCreateTransaction, newCreateArgs(txn))
	return err
}

func (g *CommandGateway) ListTransactionsByMonth(ctx context.Context, account core.Account, month core.Month) ([]core.Transaction, error) {
	if err := month.Validate(); err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	raw, err := g.invoke(ctx, CmdListTransactionsMonth, newListMonthArgs(account, month))
	if err != nil {
		return nil, err
	}
	return DecodeTransactions(raw)
}

func (g *CommandGateway) invoke(ctx context.Context, command string, args any) (json.RawMessage, error) {
	start := time.Now()
	raw, err := g.invoker.Invoke(ctx, command, args)
	g.logger.LogCommand(ctx, command, time.Since(start).Milliseconds(), err)
	return raw, err
}

// Dispatch decodes a command's JSON arguments and runs it against gw,
// returning the JSON result. Servers answering commands (the AMQP
// responder, test doubles) share it so both sides agree on the schema.
func Dispatch(ctx context.Context, gw Gateway, command string, rawArgs json.RawMessage) (json.RawMessage, error) {
	switch command {
	case CmdListAccounts:
		accounts, err := gw.ListAccounts(ctx)
		if err != nil {
			return nil, err
		}
		ws := make([]wireAccount, 0, len(accounts))
		for _, a := range accounts {
			ws = append(ws, wireAccount{ID: a.ID, Name: a.Name})
		}
		return json.Marshal(ws)

	case CmdListCategories:
		categories, err := gw.ListCategories(ctx)
		if err != nil {
			return nil, err
		}
		ws := make([]wireCategory, 0, len(categories))
		for _, c := range categories {
			ws = append(ws, wireCategory{ID: c.ID, Name: c.Name})
		}
		return json.Marshal(ws)

	case CmdCreateTransaction:
		var args createArgs
		if err := decodeArgs(rawArgs, &args); err != nil {
			return nil, err
		}
		date, err := core.ParseDate(args.Date)
		if err != nil {
			return nil, err
		}
		txn := core.NewTransaction{
			AccountID:   args.AccountID,
			AccountName: args.AccountName,
			Date:        date,
			PayeeName:   args.PayeeName,
			AmountCents: args.AmountCents,
			Cleared:     args.Cleared != 0,
		}
		if args.Category != nil {
			txn.CategoryID = *args.Category
		}
		if args.Memo != nil {
			txn.Memo = *args.Memo
		}
		if err := gw.CreateTransaction(ctx, txn); err != nil {
			return nil, err
		}
		return json.RawMessage("null"), nil

	case CmdListTransactionsMonth:
		var args listMonthArgs
		if err := decodeArgs(rawArgs, &args); err != nil {
			return nil, err
		}
		account := core.Account{ID: args.AccountID, Name: args.AccountName}
		txns, err := gw.ListTransactionsByMonth(ctx, account, core.Month{Year: args.Year, Month: args.Month})
		if err != nil {
			return nil, err
		}
		return EncodeTransactions(txns)

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, command)
	}
}

func decodeArgs(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return fmt.Errorf("missing command arguments")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode arguments: %w", err)
	}
	return nil
}
