package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/abhi22github/ledger-console/internal/config"
	"github.com/abhi22github/ledger-console/internal/domain/loan"
	"github.com/abhi22github/ledger-console/internal/infrastructure/monitoring"
	"github.com/abhi22github/ledger-console/internal/pkg/apperrors"
)

const basePath = "/api/loans"

// Client is the typed surface over the ledger service's HTTP contract.
// Every derived financial field in the returned records is authoritative;
// callers never recompute them.
type Client interface {
	ListLoans(ctx context.Context) ([]loan.Loan, error)

	GetLoan(ctx context.Context, id int64) (*loan.Loan, error)

	CreateLoan(ctx context.Context, draft loan.Draft) (*loan.Loan, error)

	// PostPayment submits a payment. The acceptance response carries no
	// body; observing the recomputed loan requires a separate GetLoan.
	PostPayment(ctx context.Context, id int64, amount decimal.Decimal, date loan.Date) error
}

type httpClient struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	tokens  TokenSource
	logger  *slog.Logger
}

func NewClient(cfg config.LedgerConfig, logger *slog.Logger) Client {
	var tokens TokenSource
	if cfg.BearerToken != "" {
		tokens = NewStaticTokenSource(cfg.BearerToken)
	}
	return &httpClient{
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst),
		tokens:  tokens,
		logger:  logger.With("component", "LedgerClient"),
	}
}

type paymentRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	PaymentDate loan.Date       `json:"paymentDate"`
}

type errorBody struct {
	Message string `json:"message"`
}

func (c *httpClient) ListLoans(ctx context.Context) ([]loan.Loan, error) {
	var loans []loan.Loan
	req := request{operation: "list_loans", method: http.MethodGet, path: basePath}
	if err := c.do(ctx, req, &loans); err != nil {
		return nil, err
	}
	return loans, nil
}

func (c *httpClient) GetLoan(ctx context.Context, id int64) (*loan.Loan, error) {
	var l loan.Loan
	req := request{operation: "get_loan", method: http.MethodGet, path: c.loanPath(id)}
	if err := c.do(ctx, req, &l); err != nil {
		return nil, err
	}
	return &l, nil
}

func (c *httpClient) CreateLoan(ctx context.Context, draft loan.Draft) (*loan.Loan, error) {
	var created loan.Loan
	req := request{operation: "create_loan", method: http.MethodPost, path: basePath, body: &draft}
	if err := c.do(ctx, req, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *httpClient) PostPayment(ctx context.Context, id int64, amount decimal.Decimal, date loan.Date) error {
	// The payment endpoint is not known to be idempotent. A fresh key
	// per submission lets a compatible server dedupe; the console never
	// auto-retries a write of uncertain outcome either way.
	req := request{
		operation:      "post_payment",
		method:         http.MethodPost,
		path:           c.loanPath(id) + "/payments",
		body:           &paymentRequest{Amount: amount, PaymentDate: date},
		idempotencyKey: NewIdempotencyKey(),
	}
	return c.do(ctx, req, nil)
}

func (c *httpClient) loanPath(id int64) string {
	return basePath + "/" + strconv.FormatInt(id, 10)
}

type request struct {
	operation      string
	method         string
	path           string
	body           any
	idempotencyKey string
}

func (c *httpClient) do(ctx context.Context, r request, out any) error {
	start := time.Now()
	err := c.roundTrip(ctx, r, out)
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	monitoring.RecordLedgerRequest(r.operation, outcome, time.Since(start))
	return err
}

func (c *httpClient) roundTrip(ctx context.Context, r request, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return apperrors.WrapTransportError(err, "rate limiter")
	}

	var reqBody io.Reader
	if r.body != nil {
		raw, err := json.Marshal(r.body)
		if err != nil {
			return fmt.Errorf("%w: marshal %s request: %v", apperrors.ErrInternal, r.operation, err)
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, c.baseURL+r.path, reqBody)
	if err != nil {
		return fmt.Errorf("%w: build %s request: %v", apperrors.ErrInternal, r.operation, err)
	}
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", r.idempotencyKey)
	}
	if c.tokens != nil {
		token, err := c.tokens.Token()
		if err != nil {
			return apperrors.WrapTransportError(err, "bearer token")
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Error("Ledger request failed", "operation", r.operation, "error", err)
		return apperrors.WrapTransportError(err, r.operation)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.statusError(r.operation, resp)
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperrors.WrapTransportError(err, r.operation+" response body")
	}
	if err := json.Unmarshal(raw, out); err != nil {
		c.logger.Error("Failed to decode ledger response", "operation", r.operation, "error", err)
		return apperrors.WrapDecodeError(err, r.operation+" response")
	}
	return nil
}

// statusError maps a non-success status to a ServiceError when the body
// carries a server-supplied reason, else to a transport-class failure.
func (c *httpClient) statusError(operation string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))

	var body errorBody
	if err := json.Unmarshal(raw, &body); err == nil && body.Message != "" {
		c.logger.Warn("Ledger reported an error",
			"operation", operation,
			"status", resp.StatusCode,
			"message", body.Message,
		)
		return apperrors.NewServiceError(resp.StatusCode, body.Message)
	}

	c.logger.Warn("Ledger returned non-success status without a reason",
		"operation", operation,
		"status", resp.StatusCode,
	)
	return fmt.Errorf("%w: %s: unexpected status %d", apperrors.ErrTransport, operation, resp.StatusCode)
}
