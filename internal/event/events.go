package event

import (
	"time"
)

// PaymentSettledEvent is emitted after a payment run reaches Settled,
// i.e. the ledger accepted the write and the reconciling fetch landed.
type PaymentSettledEvent struct {
	LoanID               int64     `json:"loanId"`
	Amount               string    `json:"amount"`
	PaymentDate          string    `json:"paymentDate"`
	OutstandingPrincipal string    `json:"outstandingPrincipal"`
	Status               string    `json:"status"`
	Timestamp            time.Time `json:"timestamp"`
}

// LoanCreatedEvent is emitted after the ledger confirms a new loan.
type LoanCreatedEvent struct {
	LoanID          int64     `json:"loanId"`
	BorrowerName    string    `json:"borrowerName"`
	PrincipalAmount string    `json:"principalAmount"`
	Timestamp       time.Time `json:"timestamp"`
}
