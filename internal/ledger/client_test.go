package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/abhi22github/ledger-console/internal/config"
	"github.com/abhi22github/ledger-console/internal/domain/loan"
	"github.com/abhi22github/ledger-console/internal/pkg/apperrors"
)

func newTestClient(t *testing.T, handler http.Handler) Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	return NewClient(config.LedgerConfig{
		BaseURL: server.URL,
		Timeout: 5 * time.Second,
		RPS:     100,
		Burst:   100,
	}, logger)
}

func TestListLoans(t *testing.T) {
	t.Run("decodes loans with string-typed numerics", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodGet, r.Method)
			assert.Equal(t, "/api/loans", r.URL.Path)
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`[
				{"id":1,"borrowerName":"Jane","principalAmount":"1000.00","interestRate":"0.05","termMonths":12,"startDate":"2024-01-01","outstandingPrincipal":"1000.00","status":"ACTIVE"},
				{"id":2,"borrowerName":"Bob","principalAmount":500,"interestRate":0.1,"termMonths":6,"startDate":"2024-02-01","outstandingPrincipal":0,"status":"PAID"}
			]`))
		}))

		loans, err := client.ListLoans(context.Background())
		assert.NoError(t, err)
		assert.Len(t, loans, 2)
		assert.True(t, loans[0].PrincipalAmount.Equal(decimal.NewFromInt(1000)))
		assert.Equal(t, loan.StatusPaid, loans[1].Status)
	})

	t.Run("maps error body to ServiceError", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"message":"ledger unavailable"}`))
		}))

		_, err := client.ListLoans(context.Background())
		var svcErr *apperrors.ServiceError
		assert.True(t, errors.As(err, &svcErr))
		assert.Equal(t, "ledger unavailable", svcErr.Message)
		assert.Equal(t, http.StatusInternalServerError, svcErr.StatusCode)
	})

	t.Run("maps bodyless non-success status to transport error", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))

		_, err := client.ListLoans(context.Background())
		assert.True(t, errors.Is(err, apperrors.ErrTransport))
	})

	t.Run("maps network failure to transport error", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		server.Close()

		logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
		client := NewClient(config.LedgerConfig{
			BaseURL: server.URL,
			Timeout: time.Second,
			RPS:     100,
			Burst:   100,
		}, logger)

		_, err := client.ListLoans(context.Background())
		assert.True(t, errors.Is(err, apperrors.ErrTransport))
		assert.False(t, errors.Is(err, apperrors.ErrDecode))
	})

	t.Run("maps malformed success body to decode error", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`[{"id": "not-a-number`))
		}))

		_, err := client.ListLoans(context.Background())
		assert.True(t, errors.Is(err, apperrors.ErrDecode))
		assert.False(t, errors.Is(err, apperrors.ErrTransport))
	})
}

func TestGetLoan(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/loans/42", r.URL.Path)
		w.Write([]byte(`{"id":42,"borrowerName":"Jane","principalAmount":"1000.00","interestRate":"0.05","termMonths":12,"startDate":"2024-01-01","endDate":"2025-01-01","outstandingPrincipal":"800.00","status":"ACTIVE"}`))
	}))

	l, err := client.GetLoan(context.Background(), 42)
	assert.NoError(t, err)
	assert.Equal(t, int64(42), l.ID)
	assert.True(t, l.OutstandingPrincipal.Equal(decimal.NewFromInt(800)))
	assert.NotNil(t, l.EndDate)
	assert.Equal(t, "2025-01-01", l.EndDate.String())
}

func TestCreateLoan(t *testing.T) {
	draft := loan.Draft{
		BorrowerName:    "Jane Smith",
		PrincipalAmount: decimal.NewFromInt(1000),
		InterestRate:    decimal.NewFromFloat(0.05),
		TermMonths:      12,
		StartDate:       loan.NewDate(2024, time.January, 1),
	}

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/loans", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var got map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Equal(t, "Jane Smith", got["borrowerName"])
		assert.Equal(t, "2024-01-01", got["startDate"])

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":7,"borrowerName":"Jane Smith","principalAmount":"1000.00","interestRate":"0.05","termMonths":12,"startDate":"2024-01-01","outstandingPrincipal":"1000.00","status":"ACTIVE"}`))
	}))

	created, err := client.CreateLoan(context.Background(), draft)
	assert.NoError(t, err)
	assert.Equal(t, int64(7), created.ID)
	assert.Equal(t, loan.StatusActive, created.Status)
}

func TestPostPayment(t *testing.T) {
	t.Run("submits amount, date and a fresh idempotency key", func(t *testing.T) {
		var keys []string
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/api/loans/1/payments", r.URL.Path)

			var got map[string]any
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			assert.Equal(t, "2024-01-01", got["paymentDate"])

			key := r.Header.Get("Idempotency-Key")
			assert.Len(t, key, 32)
			keys = append(keys, key)
			w.WriteHeader(http.StatusOK)
		}))

		amount := decimal.NewFromInt(200)
		date := loan.NewDate(2024, time.January, 1)
		assert.NoError(t, client.PostPayment(context.Background(), 1, amount, date))
		assert.NoError(t, client.PostPayment(context.Background(), 1, amount, date))
		assert.NotEqual(t, keys[0], keys[1])
	})

	t.Run("surfaces the server's reported reason", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"message":"insufficient data"}`))
		}))

		err := client.PostPayment(context.Background(), 1, decimal.NewFromInt(200), loan.Today())
		var svcErr *apperrors.ServiceError
		assert.True(t, errors.As(err, &svcErr))
		assert.Contains(t, svcErr.Message, "insufficient data")
	})
}

func TestBearerToken(t *testing.T) {
	t.Run("attaches configured token", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer opaque-credential", r.Header.Get("Authorization"))
			w.Write([]byte(`[]`))
		}))
		defer server.Close()

		logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
		client := NewClient(config.LedgerConfig{
			BaseURL:     server.URL,
			Timeout:     time.Second,
			BearerToken: "opaque-credential",
			RPS:         100,
			Burst:       100,
		}, logger)

		_, err := client.ListLoans(context.Background())
		assert.NoError(t, err)
	})
}
