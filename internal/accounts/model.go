package accounts

import "time"

// Balance is the balance of one account as seen by its owner.
type Balance struct {
	AccountID int64
	Amount    int64
	AsOf      time.Time
}
