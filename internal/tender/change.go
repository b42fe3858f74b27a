package tender

import (
	"github.com/noah-isme/backend-kasir/internal/denomination"
	"github.com/noah-isme/backend-kasir/internal/money"
)

// Change is one line of a change breakdown.
type Change struct {
	Face  int64 `json:"face"`
	Count int64 `json:"count"`
}

// ComputeChangeBreakdown splits amount greedily over the table's faces, largest
// first. Non-positive amounts yield an empty breakdown and any remainder below
// the smallest face is dropped.
func ComputeChangeBreakdown(amount money.Money, table denomination.Table) []Change {
	out := []Change{}
	if amount <= 0 {
		return out
	}
	remaining := amount
	for _, face := range table.Faces() {
		if remaining <= 0 {
			break
		}
		value := denomination.Value(face)
		count := int64(remaining / value)
		if count > 0 {
			out = append(out, Change{Face: face, Count: count})
			remaining = remaining % value
		}
	}
	return out
}
