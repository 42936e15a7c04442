package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"ledgerdesk/internal/backend"
	"ledgerdesk/internal/cache"
	"ledgerdesk/internal/cli"
	"ledgerdesk/internal/core"
	"ledgerdesk/internal/form"
	"ledgerdesk/internal/gateway/cached"
	apphttp "ledgerdesk/internal/http"
	"ledgerdesk/internal/live"
	"ledgerdesk/internal/log"
	"ledgerdesk/internal/selection"
	"ledgerdesk/internal/shell"
	"ledgerdesk/internal/view"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger).CreateGateway(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize gateway", log.FieldError, err, "backend", cfg.GatewayBackend)
		os.Exit(1)
	}
	gw := res.Gateway

	cacheManager := cache.NewManager(logger)
	if cg, ok := gw.(*cached.Gateway); ok {
		for _, c := range cg.Cleaners() {
			cacheManager.Register(c)
		}
		cacheManager.StartCleanup(cfg.CacheTTL)
	}

	formatter, err := core.NewFormatter(cfg.Locale, cfg.Currency)
	if err != nil {
		logger.Error("Invalid currency settings", log.FieldError, err)
		os.Exit(1)
	}

	// Views fetch under appCtx so shutdown cancels whatever is in flight.
	appCtx, stopViews := context.WithCancel(context.Background())
	defer stopViews()

	var initial core.Account
	if cfg.DefaultAccountID != 0 || cfg.DefaultAccountName != "" {
		initial = core.Account{ID: cfg.DefaultAccountID, Name: cfg.DefaultAccountName}
	}
	sel := selection.New(initial, logger)

	accounts := view.NewAccounts(gw, sel, cfg.GatewayTimeout, appCtx, logger)
	transactions := view.NewTransactions(view.TransactionsConfig{
		Lister:    gw,
		Selection: sel,
		Formatter: formatter,
		Timeout:   cfg.GatewayTimeout,
		Context:   appCtx,
		Logger:    logger,
	})
	entry := form.New(form.Config{
		Creator:    gw,
		Accounts:   gw,
		Categories: gw,
		Selection:  sel,
		Refresh:    transactions.Reload,
		Timeout:    cfg.GatewayTimeout,
		Logger:     logger,
	})
	layout := shell.New(cfg.ShellAffordanceDelay, shell.WithLogger(logger))
	hub := live.NewHub(logger)

	// Open tabs re-request their partials when a fetch settles. Listeners
	// may run under view locks, so they only hand the event to the hub.
	accounts.OnChange(func(r view.Result[[]core.Account]) {
		if r.Status != view.StatusPending {
			hub.Broadcast(live.Event{Type: live.EventAccountsChanged})
		}
	})
	transactions.OnChange(func(r view.Result[[]core.Transaction]) {
		if r.Status == view.StatusSucceeded || r.Status == view.StatusFailed {
			hub.Broadcast(live.Event{Type: live.EventTransactionsChanged})
		}
	})

	accounts.Load()

	srv, err := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Gateway:      gw,
		Selection:    sel,
		Accounts:     accounts,
		Transactions: transactions,
		Form:         entry,
		Shell:        layout,
		Hub:          hub,
		Formatter:    formatter,
		Logger:       logger,
		ReadyTimeout: cfg.GatewayTimeout,
	})
	if err != nil {
		logger.Error("Failed to build HTTP server", log.FieldError, err)
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		accounts.Close()
		transactions.Close()
		stopViews()
		accounts.Wait()
		transactions.Wait()
		cacheManager.Stop()
		if err := res.Close(); err != nil {
			logger.Error("Gateway close error", log.FieldError, err)
		}
	})

	logger.Info("Starting ledgerdesk server",
		"port", cfg.Port,
		"backend", cfg.GatewayBackend,
		"currency", formatter.Currency(),
		"locale", formatter.Locale())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
