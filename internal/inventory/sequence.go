package inventory

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Family names a transaction numbering family. Each family has its own
// persisted counter and numeric range.
type Family string

const (
	FamilyInbound  Family = "inbound"
	FamilyOutbound Family = "outbound"
	FamilySTO      Family = "sto"
	FamilyVoid     Family = "void"
)

// Families lists every numbering family in bootstrap order.
var Families = []Family{FamilyInbound, FamilyOutbound, FamilySTO, FamilyVoid}

type familyRange struct {
	seed   int64
	min    int64
	max    int64
	prefix string
	width  int
}

var familyRanges = map[Family]familyRange{
	FamilyInbound:  {seed: 100000, min: 100000, max: 199999, width: 6},
	FamilyOutbound: {seed: 19999999, min: 20000000, max: 29999999, width: 8},
	FamilySTO:      {seed: 9999, min: 10000, max: 99999, width: 5},
	FamilyVoid:     {seed: 0, min: 1, max: 99999999, prefix: "VOID-", width: 8},
}

func (f Family) rangeOf() (familyRange, error) {
	r, ok := familyRanges[f]
	if !ok {
		return familyRange{}, fmt.Errorf("inventory: unknown numbering family %q", f)
	}
	return r, nil
}

// Clamp forces seq into the family range.
func (f Family) Clamp(seq int64) int64 {
	r, err := f.rangeOf()
	if err != nil {
		return seq
	}
	return min(max(seq, r.min), r.max)
}

// Format renders a counter value as a transaction number, clamping it first.
func (f Family) Format(seq int64) string {
	r, err := f.rangeOf()
	if err != nil {
		return strconv.FormatInt(seq, 10)
	}
	return fmt.Sprintf("%s%0*d", r.prefix, r.width, f.Clamp(seq))
}

// Parse extracts the counter value from a transaction number of this family.
// Numbers outside the range are rejected.
func (f Family) Parse(num string) (int64, bool) {
	r, err := f.rangeOf()
	if err != nil {
		return 0, false
	}
	digits, ok := strings.CutPrefix(strings.TrimSpace(num), r.prefix)
	if !ok || digits == "" {
		return 0, false
	}
	for _, c := range digits {
		if c < '0' || c > '9' {
			return 0, false
		}
	}
	v, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || v < r.min || v > r.max {
		return 0, false
	}
	return v, true
}

// CounterStore persists per-family counters. Implementations increment
// atomically and durably, outside any surrounding operation transaction.
type CounterStore interface {
	// IncrementCounter creates the counter at seed when missing, adds one and
	// returns the new value.
	IncrementCounter(ctx context.Context, family Family, seed int64) (int64, error)
	// RaiseCounter lifts the counter to at least floor.
	RaiseCounter(ctx context.Context, family Family, floor int64) error
	// MaxIssued returns the largest in-range number already stored for the
	// family, or zero when none exists.
	MaxIssued(ctx context.Context, family Family) (int64, error)
}

// Sequencer issues transaction numbers.
type Sequencer struct {
	store CounterStore
}

// NewSequencer builds a Sequencer on store.
func NewSequencer(store CounterStore) *Sequencer {
	return &Sequencer{store: store}
}

// Next consumes and returns the next transaction number of family.
func (s *Sequencer) Next(ctx context.Context, family Family) (string, error) {
	r, err := family.rangeOf()
	if err != nil {
		return "", err
	}
	seq, err := s.store.IncrementCounter(ctx, family, r.seed)
	if err != nil {
		return "", fmt.Errorf("inventory: allocate %s number: %w", family, err)
	}
	return family.Format(seq), nil
}

// Bootstrap lifts every counter above the numbers already present in the
// movement ledger, so data written before counters existed is never reissued.
func (s *Sequencer) Bootstrap(ctx context.Context) error {
	for _, family := range Families {
		issued, err := s.store.MaxIssued(ctx, family)
		if err != nil {
			return fmt.Errorf("inventory: scan %s numbers: %w", family, err)
		}
		if issued == 0 {
			continue
		}
		if err := s.store.RaiseCounter(ctx, family, issued); err != nil {
			return fmt.Errorf("inventory: seed %s counter: %w", family, err)
		}
	}
	return nil
}
