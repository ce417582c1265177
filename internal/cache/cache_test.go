package cache

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/abhi22github/ledger-console/internal/domain/loan"
)

func activeLoan(id int64, outstanding int64) loan.Loan {
	return loan.Loan{
		ID:                   id,
		BorrowerName:         "Jane",
		PrincipalAmount:      decimal.NewFromInt(1000),
		InterestRate:         decimal.NewFromFloat(0.05),
		TermMonths:           12,
		StartDate:            loan.NewDate(2024, time.January, 1),
		OutstandingPrincipal: decimal.NewFromInt(outstanding),
		Status:               loan.StatusActive,
	}
}

func TestReplaceAll(t *testing.T) {
	c := NewLoanCache()
	c.ReplaceAll([]loan.Loan{activeLoan(1, 1000), activeLoan(2, 500)})

	assert.Equal(t, 2, c.Len())

	snapshot := c.Snapshot()
	assert.Equal(t, int64(1), snapshot[0].Loan.ID)
	assert.Equal(t, int64(2), snapshot[1].Loan.ID)

	entry, ok := c.Get(1)
	assert.True(t, ok)
	assert.Empty(t, entry.Pending.Amount)
	assert.Equal(t, loan.Today(), entry.Pending.Date)
	assert.Nil(t, entry.Pending.Message)
}

func TestReplaceAllResetsPendingInput(t *testing.T) {
	c := NewLoanCache()
	c.ReplaceAll([]loan.Loan{activeLoan(1, 1000)})

	amount := "200"
	c.SetPendingInput(1, InputPatch{Amount: &amount})
	c.SetMessage(1, "oops", true)

	c.ReplaceAll([]loan.Loan{activeLoan(1, 1000)})

	entry, _ := c.Get(1)
	assert.Empty(t, entry.Pending.Amount)
	assert.Nil(t, entry.Pending.Message)
}

func TestReplaceOne(t *testing.T) {
	t.Run("swaps only the matching record", func(t *testing.T) {
		c := NewLoanCache()
		c.ReplaceAll([]loan.Loan{activeLoan(1, 1000), activeLoan(2, 500)})

		updated := activeLoan(1, 800)
		c.ReplaceOne(updated)

		entry, _ := c.Get(1)
		assert.True(t, entry.Loan.OutstandingPrincipal.Equal(decimal.NewFromInt(800)))

		other, _ := c.Get(2)
		assert.True(t, other.Loan.OutstandingPrincipal.Equal(decimal.NewFromInt(500)))
	})

	t.Run("keeps pending input text", func(t *testing.T) {
		c := NewLoanCache()
		c.ReplaceAll([]loan.Loan{activeLoan(1, 1000)})

		amount := "200"
		c.SetPendingInput(1, InputPatch{Amount: &amount})
		c.ReplaceOne(activeLoan(1, 800))

		entry, _ := c.Get(1)
		assert.Equal(t, "200", entry.Pending.Amount)
	})

	t.Run("appends an unknown id", func(t *testing.T) {
		c := NewLoanCache()
		c.ReplaceAll([]loan.Loan{activeLoan(1, 1000)})

		c.ReplaceOne(activeLoan(3, 700))

		snapshot := c.Snapshot()
		assert.Len(t, snapshot, 2)
		assert.Equal(t, int64(3), snapshot[1].Loan.ID)
	})
}

func TestSetPendingInput(t *testing.T) {
	c := NewLoanCache()
	c.ReplaceAll([]loan.Loan{activeLoan(1, 1000)})

	t.Run("changing the amount clears the message", func(t *testing.T) {
		c.SetMessage(1, "previous failure", true)

		amount := "150.50"
		assert.True(t, c.SetPendingInput(1, InputPatch{Amount: &amount}))

		entry, _ := c.Get(1)
		assert.Equal(t, "150.50", entry.Pending.Amount)
		assert.Nil(t, entry.Pending.Message)
	})

	t.Run("changing the date clears the message", func(t *testing.T) {
		c.SetMessage(1, "previous failure", true)

		date := loan.NewDate(2024, time.March, 15)
		assert.True(t, c.SetPendingInput(1, InputPatch{Date: &date}))

		entry, _ := c.Get(1)
		assert.Equal(t, date, entry.Pending.Date)
		assert.Nil(t, entry.Pending.Message)
	})

	t.Run("never touches the loan record", func(t *testing.T) {
		before, _ := c.Get(1)
		amount := "999"
		c.SetPendingInput(1, InputPatch{Amount: &amount})
		after, _ := c.Get(1)
		assert.Equal(t, before.Loan, after.Loan)
	})

	t.Run("unknown id reports false", func(t *testing.T) {
		amount := "1"
		assert.False(t, c.SetPendingInput(99, InputPatch{Amount: &amount}))
	})
}

func TestClearPendingAmount(t *testing.T) {
	c := NewLoanCache()
	c.ReplaceAll([]loan.Loan{activeLoan(1, 1000)})

	amount := "200"
	c.SetPendingInput(1, InputPatch{Amount: &amount})
	c.SetMessage(1, "Payment recorded successfully.", false)
	c.ClearPendingAmount(1)

	entry, _ := c.Get(1)
	assert.Empty(t, entry.Pending.Amount)
	assert.NotNil(t, entry.Pending.Message)
}

func TestSnapshotIsACopy(t *testing.T) {
	c := NewLoanCache()
	c.ReplaceAll([]loan.Loan{activeLoan(1, 1000)})

	snapshot := c.Snapshot()
	snapshot[0].Pending.Amount = "mutated"

	entry, _ := c.Get(1)
	assert.Empty(t, entry.Pending.Amount)
}
