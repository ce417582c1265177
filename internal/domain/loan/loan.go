package loan

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusActive Status = "ACTIVE"
	StatusPaid   Status = "PAID"
)

// Loan is the cached copy of a server-owned record. Every derived field
// (outstanding principal, status, end date) is recomputed by the ledger
// service; the console never derives them locally.
type Loan struct {
	ID                   int64           `json:"id"`
	BorrowerName         string          `json:"borrowerName"`
	PrincipalAmount      decimal.Decimal `json:"principalAmount"`
	InterestRate         decimal.Decimal `json:"interestRate"`
	TermMonths           int             `json:"termMonths"`
	StartDate            Date            `json:"startDate"`
	EndDate              *Date           `json:"endDate,omitempty"`
	OutstandingPrincipal decimal.Decimal `json:"outstandingPrincipal"`
	Status               Status          `json:"status"`
}

func (l *Loan) IsPaid() bool {
	return l.Status == StatusPaid
}

// Draft holds the immutable fields an operator supplies when creating a
// loan; the ledger service assigns id, outstanding principal and status.
type Draft struct {
	BorrowerName    string          `json:"borrowerName"`
	PrincipalAmount decimal.Decimal `json:"principalAmount"`
	InterestRate    decimal.Decimal `json:"interestRate"`
	TermMonths      int             `json:"termMonths"`
	StartDate       Date            `json:"startDate"`
}

func (d *Draft) Validate() error {
	if strings.TrimSpace(d.BorrowerName) == "" {
		return fmt.Errorf("borrowerName is required")
	}
	if !d.PrincipalAmount.IsPositive() {
		return fmt.Errorf("principalAmount must be greater than zero")
	}
	if !d.InterestRate.IsPositive() {
		return fmt.Errorf("interestRate must be greater than zero")
	}
	if d.TermMonths <= 0 {
		return fmt.Errorf("termMonths must be positive")
	}
	if d.StartDate.IsZero() {
		return fmt.Errorf("startDate is required")
	}
	return nil
}

const dateLayout = time.DateOnly

// Date is a calendar date crossing the wire as YYYY-MM-DD.
type Date struct {
	time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func Today() Date {
	now := time.Now().UTC()
	return NewDate(now.Year(), now.Month(), now.Day())
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q (use YYYY-MM-DD): %w", s, err)
	}
	return Date{t}, nil
}

func (d Date) String() string {
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
