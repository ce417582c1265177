package cache

import (
	"sync"

	"github.com/abhi22github/ledger-console/internal/domain/loan"
)

// Message is the last user-visible outcome of an operation on one loan.
type Message struct {
	Text    string `json:"text"`
	IsError bool   `json:"isError"`
}

// PendingInput is the transient, unsaved payment input for one loan. It
// is owned by the cache entry, never a bare keyed global.
type PendingInput struct {
	Amount  string    `json:"amount"`
	Date    loan.Date `json:"date"`
	Message *Message  `json:"message,omitempty"`
}

// Entry pairs the server-owned record with its client-owned transient state.
type Entry struct {
	Loan    loan.Loan    `json:"loan"`
	Pending PendingInput `json:"pending"`
}

// InputPatch mutates part of a loan's pending input. Changing the amount
// or date text clears any previous message.
type InputPatch struct {
	Amount *string
	Date   *loan.Date
}

// LoanCache is the single source of truth for what is rendered. Entries
// are replaced wholesale, never field-patched; the only invalidation
// events are a payment reconciliation and a full reload.
type LoanCache struct {
	mu      sync.RWMutex
	entries map[int64]*Entry
	order   []int64
}

func NewLoanCache() *LoanCache {
	return &LoanCache{entries: make(map[int64]*Entry)}
}

// ReplaceAll resets the cache to the given records, preserving their
// order, and reinitializes every pending input with an empty amount and
// today's date.
func (c *LoanCache) ReplaceAll(loans []loan.Loan) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[int64]*Entry, len(loans))
	c.order = make([]int64, 0, len(loans))
	today := loan.Today()
	for _, l := range loans {
		c.entries[l.ID] = &Entry{
			Loan:    l,
			Pending: PendingInput{Date: today},
		}
		c.order = append(c.order, l.ID)
	}
}

// ReplaceOne swaps the cached record for l.ID with the server's copy.
// Entries for other ids and this loan's pending input are untouched; a
// record not yet cached is appended.
func (c *LoanCache) ReplaceOne(l loan.Loan) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.entries[l.ID]; ok {
		entry.Loan = l
		return
	}
	c.entries[l.ID] = &Entry{
		Loan:    l,
		Pending: PendingInput{Date: loan.Today()},
	}
	c.order = append(c.order, l.ID)
}

// SetPendingInput applies a patch to one loan's transient input. The
// loan record itself is never touched.
func (c *LoanCache) SetPendingInput(id int64, patch InputPatch) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[id]
	if !ok {
		return false
	}
	if patch.Amount != nil {
		entry.Pending.Amount = *patch.Amount
		entry.Pending.Message = nil
	}
	if patch.Date != nil {
		entry.Pending.Date = *patch.Date
		entry.Pending.Message = nil
	}
	return true
}

func (c *LoanCache) SetMessage(id int64, text string, isError bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[id]
	if !ok {
		return false
	}
	entry.Pending.Message = &Message{Text: text, IsError: isError}
	return true
}

// ClearPendingAmount empties the amount text after a settled payment.
// The date and message are left for the caller to manage.
func (c *LoanCache) ClearPendingAmount(id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.entries[id]; ok {
		entry.Pending.Amount = ""
	}
}

func (c *LoanCache) Get(id int64) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[id]
	if !ok {
		return Entry{}, false
	}
	return *entry, true
}

// Snapshot returns the cached entries in list order.
func (c *LoanCache) Snapshot() []Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Entry, 0, len(c.order))
	for _, id := range c.order {
		if entry, ok := c.entries[id]; ok {
			out = append(out, *entry)
		}
	}
	return out
}

func (c *LoanCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.order)
}
