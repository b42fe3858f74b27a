package denomination

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/noah-isme/backend-kasir/internal/money"
)

var (
	// ErrEmptyTable is returned when a table has no denominations.
	ErrEmptyTable = errors.New("denomination: table is empty")
	// ErrInvalidFace indicates a non-positive or duplicate face value.
	ErrInvalidFace = errors.New("denomination: invalid face value")
)

// Default is the Thai Baht note and coin table used for change-making.
var Default = Table{faces: []int64{1000, 500, 100, 50, 20, 10, 5, 1}}

// Table is an immutable list of face values in strictly descending order.
type Table struct {
	faces []int64
}

// New validates faces and returns a table sorted in descending order.
func New(faces ...int64) (Table, error) {
	if len(faces) == 0 {
		return Table{}, ErrEmptyTable
	}
	sorted := append([]int64(nil), faces...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] > sorted[j] })
	for i, face := range sorted {
		if face <= 0 {
			return Table{}, fmt.Errorf("%w: %d", ErrInvalidFace, face)
		}
		if i > 0 && sorted[i-1] == face {
			return Table{}, fmt.Errorf("%w: duplicate %d", ErrInvalidFace, face)
		}
	}
	return Table{faces: sorted}, nil
}

// ParseCSV builds a table from a comma-separated list such as "1000,500,100".
func ParseCSV(csv string) (Table, error) {
	parts := strings.Split(csv, ",")
	faces := make([]int64, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		v, err := strconv.ParseInt(trimmed, 10, 64)
		if err != nil {
			return Table{}, fmt.Errorf("%w: %q", ErrInvalidFace, trimmed)
		}
		faces = append(faces, v)
	}
	return New(faces...)
}

// Faces returns a copy of the face values, largest first.
func (t Table) Faces() []int64 {
	if len(t.faces) == 0 {
		return Default.Faces()
	}
	return append([]int64(nil), t.faces...)
}

// Contains reports whether face is part of the table.
func (t Table) Contains(face int64) bool {
	for _, f := range t.Faces() {
		if f == face {
			return true
		}
	}
	return false
}

// Smallest returns the lowest face value.
func (t Table) Smallest() int64 {
	faces := t.Faces()
	return faces[len(faces)-1]
}

// Value converts a face value into Money.
func Value(face int64) money.Money {
	return money.Units(face)
}

// String renders the table as CSV.
func (t Table) String() string {
	faces := t.Faces()
	parts := make([]string, len(faces))
	for i, f := range faces {
		parts[i] = strconv.FormatInt(f, 10)
	}
	return strings.Join(parts, ",")
}
