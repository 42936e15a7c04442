// Package memory is an in-process ledger backend used for local runs and
// tests. It answers the same commands as the real backend.
package memory

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"ledgerdesk/internal/core"
	"ledgerdesk/internal/gateway"
)

type Store struct {
	mu         sync.Mutex
	accounts   []core.Account
	categories []core.Category
	txns       []core.Transaction
	nextID     int64
	failures   map[string]error
}

var _ gateway.Gateway = (*Store)(nil)

// New creates a store whose accounts and categories get ids in input order,
// starting at 1. Duplicate and blank names are dropped.
func New(accounts, categories []string) *Store {
	s := &Store{nextID: 1, failures: map[string]error{}}
	for i, name := range dedupe(accounts) {
		s.accounts = append(s.accounts, core.Account{ID: int64(i + 1), Name: name})
	}
	for i, name := range dedupe(categories) {
		s.categories = append(s.categories, core.Category{ID: int64(i + 1), Name: name})
	}
	return s
}

// NewFromFiles seeds the store from accounts.txt and categories.txt in base,
// falling back to a small default set when a file is missing or empty.
func NewFromFiles(base string) *Store {
	accounts := readLines(filepath.Join(base, "accounts.txt"))
	categories := readLines(filepath.Join(base, "categories.txt"))
	if len(accounts) == 0 {
		accounts = []string{"Checking", "Savings", "Cash"}
	}
	if len(categories) == 0 {
		categories = []string{"Groceries", "Rent", "Salary", "Dining", "Transport"}
	}
	return New(accounts, categories)
}

// Fail makes every later call of command return err. A nil err clears it.
func (s *Store) Fail(command string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, command)
		return
	}
	s.failures[command] = err
}

func (s *Store) ListAccounts(_ context.Context) ([]core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failures[gateway.CmdListAccounts]; err != nil {
		return nil, err
	}
	return append([]core.Account(nil), s.accounts...), nil
}

func (s *Store) ListCategories(_ context.Context) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failures[gateway.CmdListCategories]; err != nil {
		return nil, err
	}
	return append([]core.Category(nil), s.categories...), nil
}

// CreateTransaction stores the row. The account is resolved by id first,
// then by name.
func (s *Store) CreateTransaction(_ context.Context, n core.NewTransaction) error {
	if err := n.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failures[gateway.CmdCreateTransaction]; err != nil {
		return err
	}

	account, ok := s.findAccount(core.Account{ID: n.AccountID, Name: n.AccountName})
	if !ok {
		return fmt.Errorf("account not found: %s", n.AccountName)
	}
	var category string
	if n.CategoryID != 0 {
		c, ok := s.findCategory(n.CategoryID)
		if !ok {
			return fmt.Errorf("category not found: %d", n.CategoryID)
		}
		category = c.Name
	}

	s.txns = append(s.txns, core.Transaction{
		ID:          s.nextID,
		Date:        n.Date,
		Account:     account.Name,
		AccountID:   account.ID,
		Payee:       strings.TrimSpace(n.PayeeName),
		Category:    category,
		Memo:        strings.TrimSpace(n.Memo),
		AmountCents: n.AmountCents,
	})
	s.nextID++
	return nil
}

// ListTransactionsByMonth returns rows dated within [first of month, first of
// next month), ordered by date then id. An unknown account yields an empty
// list.
func (s *Store) ListTransactionsByMonth(_ context.Context, account core.Account, month core.Month) ([]core.Transaction, error) {
	if err := month.Validate(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failures[gateway.CmdListTransactionsMonth]; err != nil {
		return nil, err
	}

	acc, ok := s.findAccount(account)
	if !ok {
		return []core.Transaction{}, nil
	}
	out := []core.Transaction{}
	for _, t := range s.txns {
		if t.AccountID == acc.ID && month.Contains(t.Date) {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.Before(out[j].Date.Time)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) findAccount(want core.Account) (core.Account, bool) {
	for _, a := range s.accounts {
		if want.ID != 0 && a.ID == want.ID {
			return a, true
		}
	}
	name := strings.TrimSpace(want.Name)
	for _, a := range s.accounts {
		if name != "" && strings.EqualFold(a.Name, name) {
			return a, true
		}
	}
	return core.Account{}, false
}

func (s *Store) findCategory(id int64) (core.Category, bool) {
	for _, c := range s.categories {
		if c.ID == id {
			return c, true
		}
	}
	return core.Category{}, false
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return dedupe(out)
}

// dedupe keeps the first occurrence of every non-blank value, in order.
func dedupe(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
