package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/congo-pay/bankcore/internal/ledger"
	"github.com/congo-pay/bankcore/internal/metrics"
	"github.com/congo-pay/bankcore/internal/notification"
)

const (
	// maxTransferAttempts counts the first try.
	maxTransferAttempts = 3
	retryBaseDelay      = 20 * time.Millisecond
)

func transferBackoff(base retry.Backoff) retry.Backoff {
	return retry.WithMaxRetries(maxTransferAttempts-1, base)
}

// Service validates transfers and hands them to the ledger.
type Service struct {
	ledger   ledger.Ledger
	notifier notification.Notifier
	logger   *slog.Logger
	backoff  func() retry.Backoff
}

// NewService constructs a payment service. notifier may be nil.
func NewService(l ledger.Ledger, notifier notification.Notifier, logger *slog.Logger) *Service {
	return &Service{
		ledger:   l,
		notifier: notifier,
		logger:   logger,
		backoff: func() retry.Backoff {
			return transferBackoff(retry.NewExponential(retryBaseDelay))
		},
	}
}

// TransferInput captures one transfer request from an authenticated caller.
type TransferInput struct {
	Source string
	Target string
	Amount int64
	Caller string
}

// TransferResult describes a completed transfer.
type TransferResult struct {
	Source      int64
	Target      int64
	Amount      int64
	Message     string
	CompletedAt time.Time
}

// Transfer validates input, confirms the caller owns the source account and
// can cover the amount, then executes the transfer. Validation failures never
// reach storage. Transient serialization failures are retried a bounded
// number of times; every other storage error is returned as is.
func (s *Service) Transfer(ctx context.Context, in TransferInput) (TransferResult, error) {
	res, err := s.transfer(ctx, in)
	metrics.RecordTransfer(transferOutcome(err), in.Amount)
	return res, err
}

func (s *Service) transfer(ctx context.Context, in TransferInput) (TransferResult, error) {
	if err := Validate(in.Source, in.Target, in.Amount); err != nil {
		return TransferResult{}, err
	}
	source, err := ParseAccountNumber(in.Source)
	if err != nil {
		return TransferResult{}, err
	}
	target, err := ParseAccountNumber(in.Target)
	if err != nil {
		return TransferResult{}, err
	}
	// "1" and "01" name the same account.
	if source == target {
		return TransferResult{}, ErrSameAccount
	}

	available, err := s.ledger.Balance(ctx, source, in.Caller)
	if err != nil {
		return TransferResult{}, err
	}
	if in.Amount > available {
		return TransferResult{}, ledger.ErrInsufficientFunds
	}

	err = retry.Do(ctx, s.backoff(), func(ctx context.Context) error {
		err := s.ledger.Transfer(ctx, source, target, in.Amount)
		if ledger.IsRetryable(err) {
			s.logger.Warn("retrying transfer", slog.Int64("source", source), slog.Any("error", err))
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		return TransferResult{}, err
	}

	res := TransferResult{
		Source:      source,
		Target:      target,
		Amount:      in.Amount,
		Message:     fmt.Sprintf("Transfer of %d from %d to %d was successful", in.Amount, source, target),
		CompletedAt: time.Now().UTC(),
	}
	if s.notifier != nil {
		if err := s.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindTransfer,
			Destination: in.Caller,
			Body:        res.Message,
		}); err != nil {
			s.logger.Warn("transfer notification failed", slog.Any("error", err))
		}
	}
	return res, nil
}

func transferOutcome(err error) string {
	var verr *ValidationError
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.As(err, &verr), errors.Is(err, ledger.ErrInvalidTransfer):
		return metrics.OutcomeRejected
	case errors.Is(err, ledger.ErrAccountNotFound), errors.Is(err, ledger.ErrTargetNotFound):
		return metrics.OutcomeNotFound
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return metrics.OutcomeInsufficient
	case errors.Is(err, ledger.ErrStorage):
		return metrics.OutcomeStorageFailure
	default:
		return metrics.OutcomeError
	}
}
