// Command ledgerctl talks to the ledger backend through the same Command
// Gateway the web UI uses. With serve-amqp it answers gateway commands from
// the broker using the in-memory backend, which is handy for local runs.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"ledgerdesk/internal/backend"
	"ledgerdesk/internal/cli"
	"ledgerdesk/internal/config"
	"ledgerdesk/internal/core"
	"ledgerdesk/internal/gateway"
	"ledgerdesk/internal/gateway/amqprpc"
	"ledgerdesk/internal/gateway/memory"
	"ledgerdesk/internal/log"
)

const usage = `usage: ledgerctl <command> [flags]

commands:
  accounts                      list accounts
  categories                    list categories
  transactions -account NAME [-account-id N] [-month YYYY-MM]
  create -account NAME -payee P -amount A [-date YYYY-MM-DD] [-category N] [-memo M] [-cleared]
  serve-amqp                    answer gateway commands from AMQP with the memory backend
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := config.Load()

	var err error
	switch cmd, args := os.Args[1], os.Args[2:]; cmd {
	case "serve-amqp":
		err = serveAMQP(cfg, logger)
	case "accounts", "categories", "transactions", "create":
		err = runCommand(cfg, logger, cmd, args)
	case "-h", "--help", "help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func runCommand(cfg *config.Config, logger *log.Logger, cmd string, args []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	// One-shot commands read fresh data.
	backendCfg.CacheTTL = 0

	ctx, cancel := context.WithTimeout(context.Background(), cfg.GatewayTimeout)
	defer cancel()

	res, err := backend.NewFactory(logger).CreateGateway(ctx, backendCfg)
	if err != nil {
		return err
	}
	defer func() { _ = res.Close() }()

	formatter, err := core.NewFormatter(cfg.Locale, cfg.Currency)
	if err != nil {
		return err
	}
	return dispatch(ctx, res.Gateway, formatter, os.Stdout, cmd, args)
}

// dispatch runs one gateway command and writes its tabular output to out.
func dispatch(ctx context.Context, gw gateway.Gateway, formatter *core.Formatter, out io.Writer, cmd string, args []string) error {
	switch cmd {
	case "accounts":
		accounts, err := gw.ListAccounts(ctx)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME")
		for _, a := range accounts {
			fmt.Fprintf(w, "%d\t%s\n", a.ID, a.Name)
		}
		return w.Flush()
	case "categories":
		categories, err := gw.ListCategories(ctx)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME")
		for _, c := range categories {
			fmt.Fprintf(w, "%d\t%s\n", c.ID, c.Name)
		}
		return w.Flush()
	case "transactions":
		return listTransactions(ctx, gw, formatter, out, args)
	case "create":
		return createTransaction(ctx, gw, formatter, out, args)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func listTransactions(ctx context.Context, gw gateway.Gateway, formatter *core.Formatter, out io.Writer, args []string) error {
	fs := flag.NewFlagSet("transactions", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	account := fs.String("account", "", "account name")
	accountID := fs.Int64("account-id", 0, "account id")
	month := fs.String("month", core.CurrentMonth().Key(), "month as YYYY-MM")
	if err := fs.Parse(args); err != nil {
		return err
	}

	m, err := core.ParseMonth(*month)
	if err != nil {
		return err
	}
	acc := core.Account{ID: *accountID, Name: *account}
	if acc.IsZero() {
		return errors.New("-account or -account-id is required")
	}

	txns, err := gw.ListTransactionsByMonth(ctx, acc, m)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DATE\tPAYEE\tCATEGORY\tMEMO\tAMOUNT")
	for _, t := range txns {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", t.Date, t.Payee, t.Category, t.Memo, formatter.Cents(t.AmountCents))
	}
	sum := core.Summarize(txns)
	fmt.Fprintf(w, "\t\t\tnet (%d)\t%s\n", sum.Count, formatter.Cents(sum.Net.Cents))
	return w.Flush()
}

func createTransaction(ctx context.Context, gw gateway.Gateway, formatter *core.Formatter, out io.Writer, args []string) error {
	fs := flag.NewFlagSet("create", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	account := fs.String("account", "", "account name")
	accountID := fs.Int64("account-id", 0, "account id")
	date := fs.String("date", core.Today().String(), "date as YYYY-MM-DD")
	payee := fs.String("payee", "", "payee")
	amount := fs.String("amount", "", "signed amount, e.g. -12.34")
	category := fs.Int64("category", 0, "category id")
	memo := fs.String("memo", "", "memo")
	cleared := fs.Bool("cleared", false, "mark as cleared")
	if err := fs.Parse(args); err != nil {
		return err
	}

	d, err := core.ParseDate(*date)
	if err != nil {
		return err
	}
	cents, err := core.ParseDecimalToCents(*amount)
	if err != nil {
		return err
	}

	txn := core.NewTransaction{
		AccountID:   *accountID,
		AccountName: *account,
		Date:        d,
		PayeeName:   *payee,
		CategoryID:  *category,
		Memo:        *memo,
		AmountCents: cents,
		Cleared:     *cleared,
	}
	if err := txn.Validate(); err != nil {
		return err
	}
	if err := gw.CreateTransaction(ctx, txn); err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "created %s %s %s\n", d, *payee, formatter.Cents(cents))
	return err
}

func serveAMQP(cfg *config.Config, logger *log.Logger) error {
	client, err := amqprpc.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	store := memory.NewFromFiles(cfg.DataDir)
	ctx, done := cli.GracefulShutdown(logger, 10*time.Second, nil)

	err = client.Serve(ctx, store)
	if errors.Is(err, context.Canceled) {
		cli.WaitForShutdown(ctx, done)
		return nil
	}
	return err
}
