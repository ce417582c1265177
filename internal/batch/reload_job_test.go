package batch

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/abhi22github/ledger-console/internal/cache"
	"github.com/abhi22github/ledger-console/internal/console"
	"github.com/abhi22github/ledger-console/internal/domain/loan"
	"github.com/abhi22github/ledger-console/internal/payment"
)

type MockLedgerClient struct {
	mock.Mock
}

func (m *MockLedgerClient) ListLoans(ctx context.Context) ([]loan.Loan, error) {
	args := m.Called(ctx)
	if loans, ok := args.Get(0).([]loan.Loan); ok {
		return loans, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLedgerClient) GetLoan(ctx context.Context, id int64) (*loan.Loan, error) {
	args := m.Called(ctx, id)
	if l, ok := args.Get(0).(*loan.Loan); ok {
		return l, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLedgerClient) CreateLoan(ctx context.Context, draft loan.Draft) (*loan.Loan, error) {
	args := m.Called(ctx, draft)
	if l, ok := args.Get(0).(*loan.Loan); ok {
		return l, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLedgerClient) PostPayment(ctx context.Context, id int64, amount decimal.Decimal, date loan.Date) error {
	args := m.Called(ctx, id, amount, date)
	return args.Error(0)
}

type noopProtocol struct{}

func (noopProtocol) Submit(ctx context.Context, loanID int64) payment.Result { return payment.Result{} }
func (noopProtocol) InFlight(loanID int64) bool                              { return false }

var testLogger = slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

func TestReloadJobRun(t *testing.T) {
	t.Run("refreshes the cache", func(t *testing.T) {
		client := new(MockLedgerClient)
		client.On("ListLoans", mock.Anything).Return([]loan.Loan{
			{ID: 1, Status: loan.StatusActive, OutstandingPrincipal: decimal.NewFromInt(500)},
		}, nil)

		store := cache.NewLoanCache()
		ctrl := console.NewController(client, store, noopProtocol{}, nil, testLogger)

		job := NewReloadJob(ctrl, time.Second, testLogger)
		assert.NoError(t, job.Run(context.Background()))
		assert.Equal(t, 1, store.Len())
	})

	t.Run("propagates a load failure", func(t *testing.T) {
		client := new(MockLedgerClient)
		client.On("ListLoans", mock.Anything).Return(nil, errors.New("upstream down"))

		ctrl := console.NewController(client, cache.NewLoanCache(), noopProtocol{}, nil, testLogger)

		job := NewReloadJob(ctrl, time.Second, testLogger)
		assert.Error(t, job.Run(context.Background()))
	})
}
