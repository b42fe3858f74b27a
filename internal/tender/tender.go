package tender

import (
	"errors"
	"fmt"
	"sort"

	"github.com/noah-isme/backend-kasir/internal/denomination"
	"github.com/noah-isme/backend-kasir/internal/money"
)

// ErrUnknownDenomination is returned when a face value is not in the table.
var ErrUnknownDenomination = errors.New("unknown denomination")

// InsufficientTenderError reports how much more cash is needed.
type InsufficientTenderError struct {
	Total     money.Money
	Tendered  money.Money
	Shortfall money.Money
}

func (e *InsufficientTenderError) Error() string {
	return fmt.Sprintf("insufficient tender: %s short of %s", e.Shortfall, e.Total)
}

// Status describes the tender relative to the amount owed.
type Status string

const (
	StatusEmpty        Status = "empty"
	StatusInsufficient Status = "insufficient"
	StatusSufficient   Status = "sufficient"
)

// State counts the notes and coins handed over by the customer. Entries with
// a zero count are never kept.
type State struct {
	Counts map[int64]int `json:"counts"`
}

// Entry is a single face value with its count.
type Entry struct {
	Face  int64 `json:"face"`
	Count int   `json:"count"`
}

// NewState returns an empty tender.
func NewState() *State {
	return &State{Counts: map[int64]int{}}
}

// AddDenomination increments the count for face.
func (s *State) AddDenomination(table denomination.Table, face int64) error {
	if !table.Contains(face) {
		return fmt.Errorf("face %d: %w", face, ErrUnknownDenomination)
	}
	if s.Counts == nil {
		s.Counts = map[int64]int{}
	}
	s.Counts[face]++
	return nil
}

// RemoveDenomination decrements the count for face, deleting the entry once it
// reaches zero. Absent faces are ignored.
func (s *State) RemoveDenomination(face int64) {
	n, ok := s.Counts[face]
	if !ok {
		return
	}
	if n <= 1 {
		delete(s.Counts, face)
		return
	}
	s.Counts[face] = n - 1
}

// Reset discards all entries.
func (s *State) Reset() {
	s.Counts = map[int64]int{}
}

// Entries returns the tendered faces in descending order.
func (s *State) Entries() []Entry {
	out := make([]Entry, 0, len(s.Counts))
	for face, n := range s.Counts {
		out = append(out, Entry{Face: face, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Face > out[j].Face })
	return out
}

// AmountTendered sums face x count over all entries.
func (s *State) AmountTendered() money.Money {
	var total money.Money
	for face, n := range s.Counts {
		total = total.Add(denomination.Value(face).MulInt(int64(n)))
	}
	return total
}

// ChangeDue is tendered minus total. It is negative while the tender is short.
func (s *State) ChangeDue(total money.Money) money.Money {
	return s.AmountTendered().Sub(total)
}

// Status classifies the tender against total.
func (s *State) Status(total money.Money) Status {
	if len(s.Counts) == 0 {
		return StatusEmpty
	}
	if s.AmountTendered().Cmp(total) < 0 {
		return StatusInsufficient
	}
	return StatusSufficient
}

// Settlement is the outcome of a completed tender.
type Settlement struct {
	Tendered  money.Money `json:"amountTendered"`
	Change    money.Money `json:"change"`
	Breakdown []Change    `json:"breakdown"`
}

// Complete validates that the tender covers total and computes the change to
// hand back. The state is not modified.
func (s *State) Complete(table denomination.Table, total money.Money) (Settlement, error) {
	tendered := s.AmountTendered()
	if tendered.Cmp(total) < 0 {
		return Settlement{}, &InsufficientTenderError{
			Total:     total,
			Tendered:  tendered,
			Shortfall: total.Sub(tendered),
		}
	}
	change := tendered.Sub(total)
	return Settlement{
		Tendered:  tendered,
		Change:    change,
		Breakdown: ComputeChangeBreakdown(change, table),
	}, nil
}
