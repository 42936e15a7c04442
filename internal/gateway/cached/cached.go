// Package cached puts an LRU cache with request coalescing in front of a
// gateway. Reference data (accounts, categories) and month lists are kept
// for a TTL; any successful create drops the month lists of that account,
// or every month list when the account is named by only one identifier.
package cached

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"ledgerdesk/internal/cache"
	"ledgerdesk/internal/core"
	"ledgerdesk/internal/gateway"
	"ledgerdesk/internal/log"
)

const (
	keyAccounts   = "accounts"
	keyCategories = "categories"
)

type Gateway struct {
	next       gateway.Gateway
	accounts   *cache.LRUCache[[]core.Account]
	categories *cache.LRUCache[[]core.Category]
	txns       *cache.LRUCache[[]core.Transaction]
	group      singleflight.Group
	// epoch increments on every invalidation so loads that started before
	// a write never repopulate the cache with pre-write data.
	epoch  atomic.Uint64
	logger *log.Logger
}

var _ gateway.Gateway = (*Gateway)(nil)

// New wraps next. size bounds the number of cached month lists.
func New(next gateway.Gateway, size int, ttl time.Duration, logger *log.Logger) *Gateway {
	return &Gateway{
		next:       next,
		accounts:   cache.NewLRUCache[[]core.Account](1, ttl),
		categories: cache.NewLRUCache[[]core.Category](1, ttl),
		txns:       cache.NewLRUCache[[]core.Transaction](size, ttl),
		logger:     log.OrDiscard(logger).WithComponent(log.ComponentCache),
	}
}

// Cleaners exposes the underlying caches for periodic expiry.
func (g *Gateway) Cleaners() []cache.Cleaner {
	return []cache.Cleaner{g.accounts, g.categories, g.txns}
}

// Stats reports the month-list cache counters.
func (g *Gateway) Stats() cache.Stats {
	return g.txns.Stats()
}

func (g *Gateway) ListAccounts(ctx context.Context) ([]core.Account, error) {
	return load(ctx, g, g.accounts, keyAccounts, g.next.ListAccounts)
}

func (g *Gateway) ListCategories(ctx context.Context) ([]core.Category, error) {
	return load(ctx, g, g.categories, keyCategories, g.next.ListCategories)
}

func (g *Gateway) ListTransactionsByMonth(ctx context.Context, account core.Account, month core.Month) ([]core.Transaction, error) {
	key := accountPrefix(account) + month.Key()
	return load(ctx, g, g.txns, key, func(ctx context.Context) ([]core.Transaction, error) {
		return g.next.ListTransactionsByMonth(ctx, account, month)
	})
}

func (g *Gateway) CreateTransaction(ctx context.Context, txn core.NewTransaction) error {
	if err := g.next.CreateTransaction(ctx, txn); err != nil {
		return err
	}
	g.epoch.Add(1)
	name := strings.TrimSpace(txn.AccountName)
	if txn.AccountID == 0 || name == "" {
		// Lists for the same account may be keyed by the other identifier.
		g.txns.Clear()
		g.logger.DebugContext(ctx, "Month lists cleared", log.FieldAccountID, txn.AccountID)
		return nil
	}
	removed := g.txns.DeletePrefix(accountPrefix(core.Account{ID: txn.AccountID}))
	removed += g.txns.DeletePrefix(accountPrefix(core.Account{Name: name}))
	g.logger.DebugContext(ctx, "Month lists invalidated",
		log.FieldAccountID, txn.AccountID,
		"removed", removed)
	return nil
}

// Invalidate drops everything, e.g. after an external change notification.
func (g *Gateway) Invalidate() {
	g.epoch.Add(1)
	g.accounts.Clear()
	g.categories.Clear()
	g.txns.Clear()
}

func load[T any](ctx context.Context, g *Gateway, c *cache.LRUCache[[]T], key string, fetch func(context.Context) ([]T, error)) ([]T, error) {
	if v, ok := c.Get(key); ok {
		return slices.Clone(v), nil
	}

	epoch := g.epoch.Load()
	v, err, _ := g.group.Do(fmt.Sprintf("%d|%s", epoch, key), func() (any, error) {
		items, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		if g.epoch.Load() == epoch {
			c.Set(key, items)
		}
		return items, nil
	})
	if err != nil {
		return nil, err
	}
	return slices.Clone(v.([]T)), nil
}

// accountPrefix keys month lists by account id, or by folded name when the
// id is unknown.
func accountPrefix(account core.Account) string {
	if account.ID != 0 {
		return fmt.Sprintf("txns:id:%d:", account.ID)
	}
	return "txns:name:" + strings.ToLower(strings.TrimSpace(account.Name)) + ":"
}
