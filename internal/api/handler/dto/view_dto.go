package dto

import (
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/abhi22github/ledger-console/internal/cache"
	"github.com/abhi22github/ledger-console/internal/console"
	"github.com/abhi22github/ledger-console/internal/domain/loan"
	"github.com/abhi22github/ledger-console/internal/payment"
)

type CreateLoanRequest struct {
	BorrowerName    string          `json:"borrowerName"`
	PrincipalAmount decimal.Decimal `json:"principalAmount"`
	InterestRate    decimal.Decimal `json:"interestRate"`
	TermMonths      int             `json:"termMonths"`
	StartDate       string          `json:"startDate"`
}

func (r *CreateLoanRequest) Validate() error {
	if r.BorrowerName == "" {
		return fmt.Errorf("borrowerName is required")
	}
	if !r.PrincipalAmount.IsPositive() {
		return fmt.Errorf("principalAmount must be greater than zero")
	}
	if !r.InterestRate.IsPositive() {
		return fmt.Errorf("interestRate must be greater than zero")
	}
	if r.TermMonths <= 0 {
		return fmt.Errorf("termMonths must be positive")
	}
	if _, err := time.Parse(time.RFC3339[:10], r.StartDate); err != nil || r.StartDate == "" {
		return fmt.Errorf("invalid startDate format (use YYYY-MM-DD): %w", err)
	}
	return nil
}

func (r *CreateLoanRequest) ToDraft() (loan.Draft, error) {
	startDate, err := loan.ParseDate(r.StartDate)
	if err != nil {
		return loan.Draft{}, err
	}
	return loan.Draft{
		BorrowerName:    r.BorrowerName,
		PrincipalAmount: r.PrincipalAmount,
		InterestRate:    r.InterestRate,
		TermMonths:      r.TermMonths,
		StartDate:       startDate,
	}, nil
}

// PendingInputRequest patches one loan's transient payment input. Nil
// fields are left untouched.
type PendingInputRequest struct {
	Amount *string `json:"amount"`
	Date   *string `json:"date"`
}

func (r *PendingInputRequest) ToPatch() (cache.InputPatch, error) {
	patch := cache.InputPatch{Amount: r.Amount}
	if r.Date != nil {
		parsed, err := loan.ParseDate(*r.Date)
		if err != nil {
			return cache.InputPatch{}, err
		}
		patch.Date = &parsed
	}
	return patch, nil
}

type MessageView struct {
	Text    string `json:"text"`
	IsError bool   `json:"isError"`
}

type PendingView struct {
	Amount  string       `json:"amount"`
	Date    string       `json:"date"`
	Message *MessageView `json:"message,omitempty"`
}

type LoanView struct {
	ID                   string      `json:"id"`
	BorrowerName         string      `json:"borrowerName"`
	PrincipalAmount      string      `json:"principalAmount"`
	InterestRate         string      `json:"interestRate"`
	TermMonths           int         `json:"termMonths"`
	StartDate            string      `json:"startDate"`
	EndDate              *string     `json:"endDate,omitempty"`
	OutstandingPrincipal string      `json:"outstandingPrincipal"`
	Status               string      `json:"status"`
	Pending              PendingView `json:"pending"`
}

type ReadModelResponse struct {
	Loading   bool       `json:"loading"`
	ListError string     `json:"listError,omitempty"`
	Loans     []LoanView `json:"loans"`
}

type PaymentResultResponse struct {
	State   string      `json:"state"`
	Message MessageView `json:"message"`
}

type ErrorDetail struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

func NewLoanView(entry cache.Entry) LoanView {
	l := entry.Loan

	view := LoanView{
		ID:                   strconv.FormatInt(l.ID, 10),
		BorrowerName:         l.BorrowerName,
		PrincipalAmount:      l.PrincipalAmount.StringFixed(2),
		InterestRate:         l.InterestRate.String(),
		TermMonths:           l.TermMonths,
		StartDate:            l.StartDate.String(),
		OutstandingPrincipal: l.OutstandingPrincipal.StringFixed(2),
		Status:               string(l.Status),
		Pending:              newPendingView(entry.Pending),
	}
	if l.EndDate != nil {
		s := l.EndDate.String()
		view.EndDate = &s
	}
	return view
}

func newPendingView(p cache.PendingInput) PendingView {
	view := PendingView{Amount: p.Amount}
	if !p.Date.IsZero() {
		view.Date = p.Date.String()
	}
	if p.Message != nil {
		view.Message = &MessageView{Text: p.Message.Text, IsError: p.Message.IsError}
	}
	return view
}

func NewReadModelResponse(model console.ReadModel) ReadModelResponse {
	resp := ReadModelResponse{
		Loading:   model.Loading,
		ListError: model.ListError,
		Loans:     make([]LoanView, 0, len(model.Loans)),
	}
	for _, entry := range model.Loans {
		resp.Loans = append(resp.Loans, NewLoanView(entry))
	}
	return resp
}

func NewPaymentResultResponse(result payment.Result) PaymentResultResponse {
	return PaymentResultResponse{
		State: string(result.State),
		Message: MessageView{
			Text:    result.Message.Text,
			IsError: result.Message.IsError,
		},
	}
}
