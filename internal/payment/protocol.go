package payment

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/abhi22github/ledger-console/internal/cache"
	"github.com/abhi22github/ledger-console/internal/domain/loan"
	"github.com/abhi22github/ledger-console/internal/event"
	"github.com/abhi22github/ledger-console/internal/infrastructure/monitoring"
	"github.com/abhi22github/ledger-console/internal/ledger"
	"github.com/abhi22github/ledger-console/internal/pkg/apperrors"
)

type State string

const (
	StateIdle        State = "IDLE"
	StateValidating  State = "VALIDATING"
	StateSubmitting  State = "SUBMITTING"
	StateReconciling State = "RECONCILING"
	StateSettled     State = "SETTLED"
	StateRejected    State = "REJECTED"
)

const (
	msgInvalidInput  = "Please enter a valid positive amount and date."
	msgAlreadyPaid   = "Loan is already fully paid."
	msgUnknownLoan   = "Loan not found in the current view."
	msgInFlight      = "A payment for this loan is already being processed."
	msgProcessing    = "Processing payment..."
	msgSuccess       = "Payment recorded successfully!"
	msgFailurePrefix = "Failed to record payment: "
	msgReconcileLost = "Failed to record payment: the payment may have been applied, but the loan could not be refreshed. Reload to confirm."
)

// Result is the terminal outcome of one protocol run.
type Result struct {
	State State
	// RejectedAt names the state the run failed in; empty when Settled.
	RejectedAt State
	Message    cache.Message
}

// Protocol validates, submits, and reconciles a single payment against a
// single loan. Runs are keyed by loan id: concurrent runs for different
// loans proceed independently, a second run for the same loan is
// rejected while the first is still in flight.
type Protocol interface {
	Submit(ctx context.Context, loanID int64) Result

	InFlight(loanID int64) bool
}

type protocol struct {
	store     *cache.LoanCache
	client    ledger.Client
	publisher event.EventPublisher
	logger    *slog.Logger

	inFlight sync.Map
}

func NewProtocol(store *cache.LoanCache, client ledger.Client, publisher event.EventPublisher, logger *slog.Logger) Protocol {
	return &protocol{
		store:     store,
		client:    client,
		publisher: publisher,
		logger:    logger.With("component", "PaymentProtocol"),
	}
}

func (p *protocol) InFlight(loanID int64) bool {
	_, ok := p.inFlight.Load(loanID)
	return ok
}

func (p *protocol) Submit(ctx context.Context, loanID int64) Result {
	if _, loaded := p.inFlight.LoadOrStore(loanID, struct{}{}); loaded {
		// Single-flight per loan id: the second action never reaches
		// the network and does not disturb the first run's messages.
		monitoring.RecordPaymentRejected("single_flight")
		return Result{
			State:      StateRejected,
			RejectedAt: StateValidating,
			Message:    cache.Message{Text: msgInFlight, IsError: true},
		}
	}
	defer p.inFlight.Delete(loanID)

	amount, date, result := p.validate(loanID)
	if result != nil {
		monitoring.RecordPaymentRejected("validation")
		p.store.SetMessage(loanID, result.Message.Text, true)
		return *result
	}

	p.store.SetMessage(loanID, msgProcessing, false)

	if err := p.client.PostPayment(ctx, loanID, amount, date); err != nil {
		p.logger.Warn("Payment submission failed", "loanID", loanID, "error", err)
		monitoring.RecordPaymentRejected("submit")
		msg := msgFailurePrefix + reason(err)
		p.store.SetMessage(loanID, msg, true)
		return Result{
			State:      StateRejected,
			RejectedAt: StateSubmitting,
			Message:    cache.Message{Text: msg, IsError: true},
		}
	}

	updated, err := p.client.GetLoan(ctx, loanID)
	if err != nil {
		// The write was accepted; only the confirming read failed. The
		// cache stays stale on purpose until the next reload.
		p.logger.Error("Reconciliation fetch failed after accepted payment", "loanID", loanID, "error", err)
		monitoring.RecordPaymentRejected("reconcile")
		monitoring.RecordReconcileFailure()
		p.store.SetMessage(loanID, msgReconcileLost, true)
		return Result{
			State:      StateRejected,
			RejectedAt: StateReconciling,
			Message:    cache.Message{Text: msgReconcileLost, IsError: true},
		}
	}

	p.store.ReplaceOne(*updated)
	p.store.ClearPendingAmount(loanID)
	p.store.SetMessage(loanID, msgSuccess, false)
	monitoring.RecordPaymentSettled()
	p.logger.Info("Payment settled",
		"loanID", loanID,
		"amount", amount.StringFixed(2),
		"outstandingPrincipal", updated.OutstandingPrincipal.StringFixed(2),
		"status", updated.Status,
	)

	p.publishSettled(ctx, loanID, amount, date, updated.OutstandingPrincipal, string(updated.Status))

	return Result{
		State:   StateSettled,
		Message: cache.Message{Text: msgSuccess},
	}
}

// validate applies the optimistic local guards. A non-nil result means
// the run is rejected before any network call.
func (p *protocol) validate(loanID int64) (decimal.Decimal, loan.Date, *Result) {
	rejected := func(text string) *Result {
		return &Result{
			State:      StateRejected,
			RejectedAt: StateValidating,
			Message:    cache.Message{Text: text, IsError: true},
		}
	}

	entry, ok := p.store.Get(loanID)
	if !ok {
		return decimal.Decimal{}, loan.Date{}, rejected(msgUnknownLoan)
	}

	amount, err := decimal.NewFromString(entry.Pending.Amount)
	if err != nil || !amount.IsPositive() || entry.Pending.Date.IsZero() {
		return decimal.Decimal{}, loan.Date{}, rejected(msgInvalidInput)
	}

	if entry.Loan.IsPaid() {
		return decimal.Decimal{}, loan.Date{}, rejected(msgAlreadyPaid)
	}

	return amount, entry.Pending.Date, nil
}

func (p *protocol) publishSettled(ctx context.Context, loanID int64, amount decimal.Decimal, date loan.Date, outstanding decimal.Decimal, status string) {
	if p.publisher == nil {
		return
	}
	ev := event.PaymentSettledEvent{
		LoanID:               loanID,
		Amount:               amount.StringFixed(2),
		PaymentDate:          date.String(),
		OutstandingPrincipal: outstanding.StringFixed(2),
		Status:               status,
		Timestamp:            time.Now(),
	}
	if err := p.publisher.PublishPaymentSettled(ctx, ev); err != nil {
		// Events are best-effort; settlement already happened.
		p.logger.Warn("Failed to publish payment settled event", "loanID", loanID, "error", err)
	}
}

// reason strips the taxonomy prefix down to what a user should read:
// the server's own words for a ServiceError, a generic phrase otherwise.
func reason(err error) string {
	var svcErr *apperrors.ServiceError
	if errors.As(err, &svcErr) && svcErr.Message != "" {
		return svcErr.Message
	}
	if errors.Is(err, apperrors.ErrTransport) {
		return "the ledger service could not be reached."
	}
	return err.Error()
}
