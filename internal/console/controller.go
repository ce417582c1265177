package console

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/abhi22github/ledger-console/internal/cache"
	"github.com/abhi22github/ledger-console/internal/domain/loan"
	"github.com/abhi22github/ledger-console/internal/event"
	"github.com/abhi22github/ledger-console/internal/ledger"
	"github.com/abhi22github/ledger-console/internal/payment"
	"github.com/abhi22github/ledger-console/internal/pkg/apperrors"
)

// ReadModel is the only interface the presentation layer consumes: the
// loading flag, the list-level error, and the ordered loans with their
// pending inputs and last payment messages.
type ReadModel struct {
	Loading   bool          `json:"loading"`
	ListError string        `json:"listError,omitempty"`
	Loans     []cache.Entry `json:"loans"`
}

// Controller orchestrates the initial load, exposes the read model, and
// routes operator actions into the payment protocol and the ledger.
type Controller struct {
	client    ledger.Client
	store     *cache.LoanCache
	protocol  payment.Protocol
	publisher event.EventPublisher
	logger    *slog.Logger

	mu      sync.Mutex
	loading bool
	listErr string
}

func NewController(client ledger.Client, store *cache.LoanCache, protocol payment.Protocol, publisher event.EventPublisher, logger *slog.Logger) *Controller {
	return &Controller{
		client:    client,
		store:     store,
		protocol:  protocol,
		publisher: publisher,
		logger:    logger.With("component", "LoanListController"),
	}
}

// Load fetches all loans and resets the cache wholesale. A failure sets
// the list-level error, which is distinct from any per-payment message.
func (c *Controller) Load(ctx context.Context) error {
	c.mu.Lock()
	c.loading = true
	c.mu.Unlock()

	loans, err := c.client.ListLoans(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.loading = false

	if err != nil {
		c.logger.Error("Failed to load loans", "error", err)
		c.listErr = err.Error()
		return err
	}

	c.store.ReplaceAll(loans)
	c.listErr = ""
	c.logger.Info("Loaded loans", "count", len(loans))
	return nil
}

func (c *Controller) ReadModel() ReadModel {
	c.mu.Lock()
	loading, listErr := c.loading, c.listErr
	c.mu.Unlock()

	return ReadModel{
		Loading:   loading,
		ListError: listErr,
		Loans:     c.store.Snapshot(),
	}
}

// Entry returns one loan's cached entry, when present.
func (c *Controller) Entry(id int64) (cache.Entry, bool) {
	return c.store.Get(id)
}

func (c *Controller) SetPendingInput(id int64, patch cache.InputPatch) error {
	if !c.store.SetPendingInput(id, patch) {
		return fmt.Errorf("%w: loan %d", apperrors.ErrNotFound, id)
	}
	return nil
}

// Pay runs the payment protocol for one loan. The returned result is
// terminal; the cache already reflects it.
func (c *Controller) Pay(ctx context.Context, id int64) payment.Result {
	return c.protocol.Submit(ctx, id)
}

// CreateLoan validates the draft locally, delegates creation to the
// ledger, then reloads the whole list so the new record shows up with
// its server-assigned fields.
func (c *Controller) CreateLoan(ctx context.Context, draft loan.Draft) (*loan.Loan, error) {
	if err := draft.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}

	created, err := c.client.CreateLoan(ctx, draft)
	if err != nil {
		c.logger.Error("Failed to create loan", "error", err)
		return nil, err
	}
	c.logger.Info("Loan created", "loanID", created.ID, "borrower", created.BorrowerName)

	if c.publisher != nil {
		ev := event.LoanCreatedEvent{
			LoanID:          created.ID,
			BorrowerName:    created.BorrowerName,
			PrincipalAmount: created.PrincipalAmount.StringFixed(2),
			Timestamp:       time.Now(),
		}
		if err := c.publisher.PublishLoanCreated(ctx, ev); err != nil {
			c.logger.Warn("Failed to publish loan created event", "loanID", created.ID, "error", err)
		}
	}

	if err := c.Load(ctx); err != nil {
		// The loan exists upstream; only the refresh failed.
		return created, nil
	}
	return created, nil
}
