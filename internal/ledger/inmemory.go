package ledger

import (
	"context"
	"sort"
	"sync"
)

// Memory is a concurrency-safe in-memory ledger used for local development
// and unit tests. A single mutex serialises transfers, which gives the same
// all-or-nothing behaviour as a database transaction.
type Memory struct {
	mu       sync.RWMutex
	accounts map[int64]Account
}

// NewInMemory creates an empty in-memory ledger.
func NewInMemory() *Memory {
	return &Memory{accounts: make(map[int64]Account)}
}

func (l *Memory) ListAccounts(_ context.Context, owner string) ([]int64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var ids []int64
	for id, acct := range l.accounts {
		if acct.Owner == owner {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (l *Memory) Balance(_ context.Context, id int64, owner string) (int64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	acct, ok := l.accounts[id]
	if !ok || acct.Owner != owner {
		return 0, ErrAccountNotFound
	}
	return acct.Balance, nil
}

func (l *Memory) Transfer(_ context.Context, source, target, amount int64) error {
	if amount <= 0 || source == target {
		return ErrInvalidTransfer
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	to, ok := l.accounts[target]
	if !ok {
		return ErrTargetNotFound
	}
	from, ok := l.accounts[source]
	if !ok {
		return ErrAccountNotFound
	}
	if from.Balance < amount {
		return ErrInsufficientFunds
	}

	from.Balance -= amount
	to.Balance += amount
	l.accounts[source] = from
	l.accounts[target] = to
	return nil
}
