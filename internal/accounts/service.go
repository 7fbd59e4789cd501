// Package accounts serves the read side of the dashboard: which accounts an
// identity owns and what each one holds.
package accounts

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/congo-pay/bankcore/internal/ledger"
)

// ErrNoAccounts is returned when the owner holds no accounts.
var ErrNoAccounts = errors.New("no accounts found")

// Store is the part of the ledger the account views need.
type Store interface {
	ListAccounts(ctx context.Context, owner string) ([]int64, error)
	Balance(ctx context.Context, id int64, owner string) (int64, error)
}

// Service exposes account read operations backed by the ledger.
type Service struct {
	store Store
}

// NewService builds an account service instance.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// List returns the ids of accounts owned by owner.
func (s *Service) List(ctx context.Context, owner string) ([]int64, error) {
	ids, err := s.store.ListAccounts(ctx, owner)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, ErrNoAccounts
	}
	return ids, nil
}

// Balance returns the balance of accountID. Accounts owned by someone else
// are reported as not found.
func (s *Service) Balance(ctx context.Context, accountID, owner string) (Balance, error) {
	id, err := strconv.ParseInt(accountID, 10, 64)
	if err != nil || id <= 0 {
		return Balance{}, ledger.ErrAccountNotFound
	}
	amount, err := s.store.Balance(ctx, id, owner)
	if err != nil {
		return Balance{}, err
	}
	return Balance{AccountID: id, Amount: amount, AsOf: time.Now().UTC()}, nil
}
