package order

import "fmt"

// Status is the lifecycle state of an order.
type Status string

const (
	StatusNew            Status = "new"
	StatusConfirmed      Status = "confirmed"
	StatusPreparing      Status = "preparing"
	StatusOutForDelivery Status = "out_for_delivery"
	StatusDelivered      Status = "delivered"
	StatusCancelled      Status = "cancelled"
)

// AllStatuses returns every status in board display order. The board
// always renders all six buckets, empty or not.
func AllStatuses() []Status {
	return []Status{
		StatusNew,
		StatusConfirmed,
		StatusPreparing,
		StatusOutForDelivery,
		StatusDelivered,
		StatusCancelled,
	}
}

// transitions is the allowed-next table. There are no self-loops:
// re-issuing a transition to the current status is rejected on purpose,
// so double-submits from the board surface as errors instead of
// silently succeeding.
var transitions = map[Status][]Status{
	StatusNew:            {StatusConfirmed, StatusCancelled},
	StatusConfirmed:      {StatusPreparing, StatusCancelled},
	StatusPreparing:      {StatusOutForDelivery, StatusCancelled},
	StatusOutForDelivery: {StatusDelivered, StatusCancelled},
	StatusDelivered:      {},
	StatusCancelled:      {},
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// Terminal reports whether no further transitions are allowed from s.
func (s Status) Terminal() bool {
	return len(transitions[s]) == 0 && s.Valid()
}

// CanTransitionTo reports whether the table permits moving from s to
// target. Transitions only ever happen on an explicit external command;
// nothing in this package moves an order on a timer.
func (s Status) CanTransitionTo(target Status) bool {
	for _, next := range transitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// InvalidTransitionError reports a status change the transition table
// does not permit. It is always returned before any mutation.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot change status from %s to %s", e.From, e.To)
}
