package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusTransitionTable(t *testing.T) {
	allowed := map[Status][]Status{
		StatusNew:            {StatusConfirmed, StatusCancelled},
		StatusConfirmed:      {StatusPreparing, StatusCancelled},
		StatusPreparing:      {StatusOutForDelivery, StatusCancelled},
		StatusOutForDelivery: {StatusDelivered, StatusCancelled},
		StatusDelivered:      {},
		StatusCancelled:      {},
	}

	// Exhaustively check every (from, to) pair, including self-loops,
	// against the expected table.
	for _, from := range AllStatuses() {
		for _, to := range AllStatuses() {
			want := false
			for _, next := range allowed[from] {
				if next == to {
					want = true
				}
			}
			assert.Equal(t, want, from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
}

func TestStatusSelfTransitionsRejected(t *testing.T) {
	for _, s := range AllStatuses() {
		assert.False(t, s.CanTransitionTo(s), "self-loop allowed for %s", s)
	}
}

func TestStatusTerminal(t *testing.T) {
	assert.True(t, StatusDelivered.Terminal())
	assert.True(t, StatusCancelled.Terminal())
	for _, s := range []Status{StatusNew, StatusConfirmed, StatusPreparing, StatusOutForDelivery} {
		assert.False(t, s.Terminal(), "%s should not be terminal", s)
	}
}

func TestStatusValid(t *testing.T) {
	for _, s := range AllStatuses() {
		assert.True(t, s.Valid())
	}
	assert.False(t, Status("shipped").Valid())
	assert.False(t, Status("").Valid())
}

func TestCancelledReachableFromEveryNonTerminalState(t *testing.T) {
	for _, s := range AllStatuses() {
		if s.Terminal() {
			assert.False(t, s.CanTransitionTo(StatusCancelled))
			continue
		}
		assert.True(t, s.CanTransitionTo(StatusCancelled), "cancel not allowed from %s", s)
	}
}

func TestGroupByStatus(t *testing.T) {
	orders := []Order{
		{Code: "PD-1", Status: StatusNew},
		{Code: "PD-2", Status: StatusDelivered},
		{Code: "PD-3", Status: StatusNew},
		{Code: "PD-4", Status: StatusOutForDelivery},
		{Code: "PD-5", Status: StatusNew},
	}

	buckets := GroupByStatus(orders)

	// All six buckets exist, empty ones included.
	assert.Len(t, buckets, 6)
	for _, s := range AllStatuses() {
		_, ok := buckets[s]
		assert.True(t, ok, "missing bucket %s", s)
	}

	// Input relative order preserved within a bucket.
	codes := func(list []Order) []string {
		out := make([]string, len(list))
		for i, o := range list {
			out[i] = o.Code
		}
		return out
	}
	assert.Equal(t, []string{"PD-1", "PD-3", "PD-5"}, codes(buckets[StatusNew]))
	assert.Equal(t, []string{"PD-2"}, codes(buckets[StatusDelivered]))
	assert.Equal(t, []string{"PD-4"}, codes(buckets[StatusOutForDelivery]))
	assert.Empty(t, buckets[StatusConfirmed])
	assert.Empty(t, buckets[StatusPreparing])
	assert.Empty(t, buckets[StatusCancelled])

	// No order dropped or duplicated.
	total := 0
	for _, list := range buckets {
		total += len(list)
	}
	assert.Equal(t, len(orders), total)
}
