package diag

import (
	"cmp"
	"slices"

	"fortio.org/safecast"
)

// Bag collects diagnostics up to a fixed cap (max-diagnostics). Diagnostics
// past the cap are counted, not stored.
type Bag struct {
	items   []Diagnostic
	max     uint16
	dropped int
}

// NewBag creates a bag holding at most limit diagnostics; values outside
// uint16 are clamped.
func NewBag(limit int) *Bag {
	m, err := safecast.Conv[uint16](limit)
	if err != nil {
		m = ^uint16(0)
		if limit < 0 {
			m = 0
		}
	}
	return &Bag{items: make([]Diagnostic, 0, min(int(m), 64)), max: m}
}

// Add reports false when the bag is full.
func (b *Bag) Add(d Diagnostic) bool {
	if len(b.items) >= int(b.max) {
		b.dropped++
		return false
	}
	b.items = append(b.items, d)
	return true
}

// Force adds d even when the bag is full, growing the cap by one.
func (b *Bag) Force(d Diagnostic) {
	if len(b.items) >= int(b.max) && b.max < ^uint16(0) {
		b.max++
	}
	b.items = append(b.items, d)
}

func (b *Bag) Cap() uint16 { return b.max }

func (b *Bag) Len() int { return len(b.items) }

// Dropped is the number of diagnostics refused by Add, including those
// refused by merged bags.
func (b *Bag) Dropped() int { return b.dropped }

// Items returns the backing slice; callers must not modify it.
func (b *Bag) Items() []Diagnostic { return b.items }

func (b *Bag) HasErrors() bool {
	return slices.ContainsFunc(b.items, func(d Diagnostic) bool { return d.Severity >= SevError })
}

// Merge appends everything from other, raising the cap when needed.
func (b *Bag) Merge(other *Bag) {
	if total := len(b.items) + len(other.items); total > int(b.max) {
		m, err := safecast.Conv[uint16](total)
		if err != nil {
			m = ^uint16(0)
		}
		b.max = m
	}
	b.items = append(b.items, other.items...)
	b.dropped += other.dropped
}

// Sort orders by position, then errors before warnings, then by code.
func (b *Bag) Sort() {
	slices.SortStableFunc(b.items, func(x, y Diagnostic) int {
		return cmp.Or(
			cmp.Compare(x.Primary.File, y.Primary.File),
			cmp.Compare(x.Primary.Start, y.Primary.Start),
			cmp.Compare(x.Primary.End, y.Primary.End),
			cmp.Compare(y.Severity, x.Severity),
			cmp.Compare(x.Code, y.Code),
		)
	})
}
