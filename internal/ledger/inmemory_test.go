package ledger

import (
	"context"
	"sync"
	"testing"
)

func seeded() *Memory {
	l := NewInMemory()
	SeedAccount(l, Account{ID: 1, Owner: "alice@x.com", Balance: 500})
	SeedAccount(l, Account{ID: 2, Owner: "bob@x.com", Balance: 100})
	return l
}

func balances(t *testing.T, l *Memory) (int64, int64) {
	t.Helper()
	a, err := l.Balance(context.Background(), 1, "alice@x.com")
	if err != nil {
		t.Fatalf("balance 1: %v", err)
	}
	b, err := l.Balance(context.Background(), 2, "bob@x.com")
	if err != nil {
		t.Fatalf("balance 2: %v", err)
	}
	return a, b
}

func TestInMemoryLedger_TransferMovesFunds(t *testing.T) {
	l := seeded()

	if err := l.Transfer(context.Background(), 1, 2, 200); err != nil {
		t.Fatalf("transfer failed: %v", err)
	}
	if a, b := balances(t, l); a != 300 || b != 300 {
		t.Fatalf("expected 300/300, got %d/%d", a, b)
	}
}

func TestInMemoryLedger_FailuresLeaveBalancesUntouched(t *testing.T) {
	cases := []struct {
		name           string
		source, target int64
		amount         int64
		want           error
	}{
		{"missing target", 1, 99, 200, ErrTargetNotFound},
		{"missing source", 99, 2, 200, ErrAccountNotFound},
		{"insufficient funds", 1, 2, 501, ErrInsufficientFunds},
		{"same account", 1, 1, 10, ErrInvalidTransfer},
		{"zero amount", 1, 2, 0, ErrInvalidTransfer},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			l := seeded()
			if err := l.Transfer(context.Background(), tc.source, tc.target, tc.amount); err != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if a, b := balances(t, l); a != 500 || b != 100 {
				t.Fatalf("balances changed to %d/%d", a, b)
			}
		})
	}
}

func TestInMemoryLedger_BalanceChecksOwner(t *testing.T) {
	l := seeded()
	if _, err := l.Balance(context.Background(), 2, "alice@x.com"); err != ErrAccountNotFound {
		t.Fatalf("expected not found for foreign account, got %v", err)
	}
}

func TestInMemoryLedger_ListAccounts(t *testing.T) {
	l := seeded()
	SeedAccount(l, Account{ID: 9, Owner: "alice@x.com"})
	SeedAccount(l, Account{ID: 4, Owner: "alice@x.com"})

	ids, err := l.ListAccounts(context.Background(), "alice@x.com")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(ids) != 3 || ids[0] != 1 || ids[1] != 4 || ids[2] != 9 {
		t.Fatalf("unexpected ids %v", ids)
	}

	none, err := l.ListAccounts(context.Background(), "carol@x.com")
	if err != nil || len(none) != 0 {
		t.Fatalf("expected no accounts, got %v %v", none, err)
	}
}

func TestInMemoryLedger_ConcurrentTransfers(t *testing.T) {
	l := NewInMemory()
	SeedAccount(l, Account{ID: 1, Owner: "alice@x.com", Balance: 1_000})
	SeedAccount(l, Account{ID: 2, Owner: "bob@x.com", Balance: 1_000})

	const workers = 50
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			src, dst := int64(1), int64(2)
			if i%2 == 1 {
				src, dst = dst, src
			}
			_ = l.Transfer(context.Background(), src, dst, 70)
		}(i)
	}
	wg.Wait()

	a, b := balances(t, l)
	if a+b != 2_000 {
		t.Fatalf("ledger not balanced after concurrency, total=%d", a+b)
	}
	if a < 0 || b < 0 {
		t.Fatalf("negative balance after concurrency: %d/%d", a, b)
	}
}

func TestInMemoryLedger_NoOverdraftUnderConcurrency(t *testing.T) {
	l := NewInMemory()
	SeedAccount(l, Account{ID: 1, Owner: "alice@x.com", Balance: 500})
	SeedAccount(l, Account{ID: 2, Owner: "bob@x.com"})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = l.Transfer(context.Background(), 1, 2, 100)
		}()
	}
	wg.Wait()

	if a, b := balances(t, l); a != 0 || b != 500 {
		t.Fatalf("expected exactly five transfers to succeed, got %d/%d", a, b)
	}
}
