package inventory

import (
	"cmp"
	"context"
	"slices"
)

// Mutator applies quantity changes to inventory records.
type Mutator interface {
	// Debit decrements quantity only when at least qty is on hand and
	// reports whether a record was changed.
	Debit(ctx context.Context, sku, location string, qty int64) (bool, error)
	// Credit upserts the record and adds qty. A non-empty name refreshes the
	// stored product name.
	Credit(ctx context.Context, sku, location string, qty int64, name ProductName) error
}

type planKey struct {
	SKU      string
	Location string
}

// Step is the net change for one (sku, location) pair.
type Step struct {
	SKU         string
	Location    string
	Delta       int64
	ProductName ProductName
}

// Plan collects the inventory deltas of one operation. Deltas are netted per
// (sku, location) and applied in key order so concurrent operations lock rows
// in the same sequence.
type Plan struct {
	steps map[planKey]*Step
}

// NewPlan returns an empty plan.
func NewPlan() *Plan {
	return &Plan{steps: make(map[planKey]*Step)}
}

func (p *Plan) step(sku, location string) *Step {
	k := planKey{SKU: sku, Location: location}
	s, ok := p.steps[k]
	if !ok {
		s = &Step{SKU: sku, Location: location}
		p.steps[k] = s
	}
	return s
}

// Credit adds qty at (sku, location).
func (p *Plan) Credit(sku, location string, qty int64, name ProductName) {
	s := p.step(sku, location)
	s.Delta += qty
	if name != "" {
		s.ProductName = name
	}
}

// Debit removes qty at (sku, location).
func (p *Plan) Debit(sku, location string, qty int64) {
	p.step(sku, location).Delta -= qty
}

// Steps returns the netted deltas sorted by sku then location. Zero deltas
// are dropped.
func (p *Plan) Steps() []Step {
	out := make([]Step, 0, len(p.steps))
	for _, s := range p.steps {
		if s.Delta != 0 {
			out = append(out, *s)
		}
	}
	slices.SortFunc(out, func(a, b Step) int {
		if c := cmp.Compare(a.SKU, b.SKU); c != 0 {
			return c
		}
		return cmp.Compare(a.Location, b.Location)
	})
	return out
}

// Apply runs every step against m. The first debit that cannot be covered
// stops the plan with ErrInsufficientStock; the caller's transaction discards
// steps already applied.
func (p *Plan) Apply(ctx context.Context, m Mutator) error {
	for _, s := range p.Steps() {
		if s.Delta < 0 {
			ok, err := m.Debit(ctx, s.SKU, s.Location, -s.Delta)
			if err != nil {
				return err
			}
			if !ok {
				return lineError(s.SKU, s.Location, ErrInsufficientStock)
			}
			continue
		}
		if err := m.Credit(ctx, s.SKU, s.Location, s.Delta, s.ProductName); err != nil {
			return err
		}
	}
	return nil
}
