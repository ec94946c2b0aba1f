package order

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ovenworks/breadstore/internal/domain/payment"
)

// SubmissionError reports that the claimed payment could not be confirmed
// on-chain. Surfaced to the user; no order is created.
type SubmissionError struct {
	Err error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("payment not confirmed: %v", e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// SettlementVerifier confirms an on-chain payment before intake proceeds.
// Implemented by chainwatch.Watcher.
type SettlementVerifier interface {
	WaitConfirmed(ctx context.Context, chain payment.Chain, txHash string) error
}

// Mailer sends the post-order notifications. Implemented by mailer.Client.
type Mailer interface {
	SendOrderEmails(ctx context.Context, o *Order) error
}

// Service is the order intake service. It exclusively owns order creation.
type Service struct {
	orders   Repository
	cap      int
	verifier SettlementVerifier
	mailer   Mailer
	lg       *zap.Logger

	newID func() string
	now   func() time.Time
}

// NewService creates the intake service. verifier and mailer may be nil:
// without a verifier the service trusts that payment was confirmed upstream,
// and without a mailer no notifications are sent.
func NewService(orders Repository, cap int, verifier SettlementVerifier, mailer Mailer, lg *zap.Logger) *Service {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &Service{
		orders:   orders,
		cap:      cap,
		verifier: verifier,
		mailer:   mailer,
		lg:       lg,
		newID:    func() string { return uuid.New().String() },
		now:      time.Now,
	}
}

// Submit validates the draft, optionally confirms the payment on-chain,
// re-checks the weekly supply window at write time and persists the order in
// status "paid". Returns the new order's ID.
//
// Validation failures return *ValidationError, cap overflow returns
// *inventory.CapacityError and unconfirmed payments return
// *SubmissionError; all are expected, user-facing outcomes.
func (s *Service) Submit(ctx context.Context, draft Draft) (string, error) {
	o, err := draft.build()
	if err != nil {
		return "", err
	}

	if !o.TotalUSD.Equal(draft.TotalUSD.Round(2)) {
		// Client quoted a different total, likely against a stale shipping
		// rate. The server-side number is stored either way.
		s.lg.Info("client total mismatch",
			zap.String("client_total", draft.TotalUSD.String()),
			zap.String("server_total", o.TotalUSD.String()))
	}

	if s.verifier != nil && o.TxHash != "" {
		if err := s.verifier.WaitConfirmed(ctx, o.PaymentChain, o.TxHash); err != nil {
			return "", &SubmissionError{Err: err}
		}
	}

	o.ID = s.newID()
	o.CreatedAt = s.now().UTC()
	o.Status = StatusPaid

	if err := s.orders.CreateReserving(ctx, o, s.cap); err != nil {
		return "", err
	}

	s.notify(o)
	return o.ID, nil
}

// notify sends customer and merchant emails in the background. Payment has
// already been taken and the order committed, so notification failures are
// logged and swallowed; they must never surface as an order failure.
func (s *Service) notify(o *Order) {
	if s.mailer == nil {
		return
	}
	// Detached from the request context: a client disconnect must not
	// cancel the emails.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	go func() {
		defer cancel()
		if err := s.mailer.SendOrderEmails(ctx, o); err != nil {
			s.lg.Error("order notification failed",
				zap.String("order_id", o.ID), zap.Error(err))
		}
	}()
}
