package inventory

import "time"

// EventAction classifies a MovementEvent.
type EventAction string

const (
	EventPosted   EventAction = "posted"
	EventReversed EventAction = "reversed"
	EventRejected EventAction = "rejected"
)

// MovementEvent is emitted after a ledger write commits, after a reversal
// commits, or when an operation is rejected.
type MovementEvent struct {
	Action         EventAction
	MovementType   MovementType
	TransactionNum string
	Qty            int64
	Reason         string
	At             time.Time
}
