package ledger

// SeedAccount stores acct in an in-memory ledger, replacing any account with
// the same id. Other ledger implementations are left untouched.
func SeedAccount(l Ledger, acct Account) {
	if mem, ok := l.(*Memory); ok {
		mem.mu.Lock()
		defer mem.mu.Unlock()
		mem.accounts[acct.ID] = acct
	}
}
