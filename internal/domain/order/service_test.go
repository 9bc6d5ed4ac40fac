package order

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pedidolocal/storefront/internal/domain/catalog"
	"github.com/pedidolocal/storefront/internal/domain/coupon"
	"github.com/pedidolocal/storefront/internal/domain/pricing"
	"github.com/pedidolocal/storefront/internal/domain/zone"
)

type mockCatalog struct {
	products []catalog.Product
}

func (m *mockCatalog) List(context.Context) ([]catalog.Product, error) {
	return m.products, nil
}

func (m *mockCatalog) GetByIDs(_ context.Context, ids []string) ([]catalog.Product, error) {
	var out []catalog.Product
	for _, p := range m.products {
		for _, id := range ids {
			if p.ID == id {
				out = append(out, p)
				break
			}
		}
	}
	return out, nil
}

type mockCoupons struct {
	rules map[string]*coupon.Rule
}

func (m *mockCoupons) FindByCode(_ context.Context, code string) (*coupon.Rule, error) {
	if r, ok := m.rules[code]; ok {
		return r, nil
	}
	return nil, coupon.ErrNotFound
}

func (m *mockCoupons) List(context.Context) ([]coupon.Rule, error) { return nil, nil }
func (m *mockCoupons) Create(context.Context, *coupon.Rule) error  { return nil }
func (m *mockCoupons) Update(context.Context, *coupon.Rule) error  { return nil }
func (m *mockCoupons) Delete(context.Context, string) error        { return nil }

var _ coupon.Repository = (*mockCoupons)(nil)
var _ zone.Repository = (*mockZones)(nil)
var _ catalog.Repository = (*mockCatalog)(nil)
var _ Repository = (*mockOrders)(nil)

type mockZones struct {
	zones []zone.Zone
}

func (m *mockZones) FindByNeighborhood(_ context.Context, hood string) (*zone.Zone, error) {
	for i := range m.zones {
		if m.zones[i].Covers(hood) {
			return &m.zones[i], nil
		}
	}
	return nil, zone.ErrNotFound
}

func (m *mockZones) Get(context.Context, string) (*zone.Zone, error) { return nil, zone.ErrNotFound }
func (m *mockZones) List(context.Context) ([]zone.Zone, error)       { return m.zones, nil }
func (m *mockZones) Create(context.Context, *zone.Zone) error        { return nil }
func (m *mockZones) Update(context.Context, *zone.Zone) error        { return nil }
func (m *mockZones) Delete(context.Context, string) error            { return nil }

type mockOrders struct {
	created      []*Order
	consumed     []string
	consumeErrs  []error // popped per Create call with non-empty consume
	byCode       map[string]*Order
	updateErr    error
	lastExpected Status
}

func (m *mockOrders) Create(_ context.Context, o *Order, consume string) error {
	if consume != "" {
		m.consumed = append(m.consumed, consume)
		if len(m.consumeErrs) > 0 {
			err := m.consumeErrs[0]
			m.consumeErrs = m.consumeErrs[1:]
			if err != nil {
				return err
			}
		}
	}
	cp := *o
	m.created = append(m.created, &cp)
	return nil
}

func (m *mockOrders) GetByCode(_ context.Context, code string) (*Order, error) {
	if o, ok := m.byCode[code]; ok {
		cp := *o
		return &cp, nil
	}
	return nil, ErrNotFound
}

func (m *mockOrders) List(context.Context) ([]Order, error) {
	var out []Order
	for _, o := range m.created {
		out = append(out, *o)
	}
	return out, nil
}

func (m *mockOrders) UpdateStatus(_ context.Context, o *Order, expected Status, _ StatusLogEntry) error {
	m.lastExpected = expected
	if m.updateErr != nil {
		return m.updateErr
	}
	if stored, ok := m.byCode[o.Code]; ok {
		*stored = *o
	}
	return nil
}

type recordingNotifier struct {
	events []string
	err    error
}

func (n *recordingNotifier) OrderStatusChanged(_ context.Context, code string, status Status) error {
	n.events = append(n.events, code+":"+string(status))
	return n.err
}

func testService(orders *mockOrders, coupons *mockCoupons, notifier Notifier) *Service {
	cat := &mockCatalog{products: []catalog.Product{
		{
			ID:    "p1",
			Name:  "Marmita Grande",
			Price: decimal.NewFromFloat(25.00),
			Addons: []catalog.Addon{
				{ID: "a1", Name: "Extra queijo", Price: decimal.NewFromFloat(3.00)},
			},
		},
		{ID: "p2", Name: "Refrigerante", Price: decimal.NewFromFloat(8.00)},
	}}
	freeMin := decimal.NewFromInt(150)
	zones := &mockZones{zones: []zone.Zone{
		{
			ID:              "z1",
			Name:            "Centro",
			Neighborhoods:   []string{"Centro"},
			Fee:             decimal.NewFromFloat(10.00),
			FreeDeliveryMin: &freeMin,
		},
	}}
	if coupons == nil {
		coupons = &mockCoupons{rules: map[string]*coupon.Rule{}}
	}

	svc := NewService(cat, coupons, zones, orders, pricing.NewCalculator(decimal.NewFromInt(5)), notifier)
	svc.now = func() time.Time { return time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC) }
	return svc
}

func baseRequest() CheckoutRequest {
	return CheckoutRequest{
		CustomerName:  "Ana",
		CustomerPhone: "11999990000",
		Address:       Address{Street: "Rua A", Number: "10", Neighborhood: "Centro"},
		Items: []CheckoutItem{
			{ProductID: "p1", Quantity: 2, AddonIDs: []string{"a1"}},
			{ProductID: "p2", Quantity: 1},
		},
		PaymentMethod: pricing.PaymentCash,
	}
}

func TestCheckoutFreezesTotals(t *testing.T) {
	orders := &mockOrders{}
	svc := testService(orders, nil, nil)

	o, q, err := svc.Checkout(context.Background(), baseRequest())
	require.NoError(t, err)

	// (25 + 3) * 2 + 8 = 64; fee 10 (below free min); total 74.
	assert.True(t, decimal.NewFromInt(64).Equal(o.Subtotal), "subtotal %s", o.Subtotal)
	assert.True(t, decimal.NewFromInt(10).Equal(o.DeliveryFee), "fee %s", o.DeliveryFee)
	assert.True(t, decimal.NewFromInt(74).Equal(o.Total), "total %s", o.Total)
	assert.True(t, o.Total.Equal(o.Subtotal.Sub(o.Discount).Add(o.DeliveryFee)))
	assert.Equal(t, StatusNew, o.Status)
	assert.True(t, q.ZoneMatched)

	require.Len(t, orders.created, 1)
	require.Len(t, o.StatusLog, 1)
	assert.Equal(t, StatusNew, o.StatusLog[0].Status)

	// Item snapshot copied from the catalog, addons included.
	require.Len(t, o.Items, 2)
	assert.Equal(t, "Marmita Grande", o.Items[0].Name)
	require.Len(t, o.Items[0].Addons, 1)
	assert.Equal(t, "Extra queijo", o.Items[0].Addons[0].Name)
}

func TestCheckoutValidation(t *testing.T) {
	svc := testService(&mockOrders{}, nil, nil)
	ctx := context.Background()

	t.Run("empty items", func(t *testing.T) {
		req := baseRequest()
		req.Items = nil
		_, _, err := svc.Checkout(ctx, req)
		assert.ErrorIs(t, err, ErrEmptyItems)
	})

	t.Run("zero quantity", func(t *testing.T) {
		req := baseRequest()
		req.Items[0].Quantity = 0
		_, _, err := svc.Checkout(ctx, req)
		var qtyErr *InvalidQuantityError
		assert.ErrorAs(t, err, &qtyErr)
	})

	t.Run("unknown product", func(t *testing.T) {
		req := baseRequest()
		req.Items[0].ProductID = "nope"
		_, _, err := svc.Checkout(ctx, req)
		var nfErr *ProductNotFoundError
		assert.ErrorAs(t, err, &nfErr)
	})

	t.Run("unknown addon", func(t *testing.T) {
		req := baseRequest()
		req.Items[0].AddonIDs = []string{"missing"}
		_, _, err := svc.Checkout(ctx, req)
		var addonErr *AddonNotFoundError
		assert.ErrorAs(t, err, &addonErr)
	})

	t.Run("bad payment method", func(t *testing.T) {
		req := baseRequest()
		req.PaymentMethod = "check"
		_, _, err := svc.Checkout(ctx, req)
		assert.ErrorIs(t, err, ErrInvalidPaymentMethod)
	})
}

func TestCheckoutConsumesCouponAtomically(t *testing.T) {
	coupons := &mockCoupons{rules: map[string]*coupon.Rule{
		"SAVE10": {
			Code:         "SAVE10",
			DiscountType: coupon.DiscountPercentage,
			Value:        decimal.NewFromInt(10),
			Active:       true,
		},
	}}
	orders := &mockOrders{}
	svc := testService(orders, coupons, nil)

	req := baseRequest()
	req.CouponCode = "SAVE10"

	o, q, err := svc.Checkout(context.Background(), req)
	require.NoError(t, err)

	assert.True(t, q.CouponApplied)
	assert.Equal(t, []string{"SAVE10"}, orders.consumed)
	// 64 - 6.40 + 10 = 67.60
	assert.True(t, decimal.NewFromFloat(67.60).Equal(o.Total), "total %s", o.Total)
}

func TestCheckoutCouponRaceDegradesToZeroDiscount(t *testing.T) {
	coupons := &mockCoupons{rules: map[string]*coupon.Rule{
		"LAST1": {
			Code:         "LAST1",
			DiscountType: coupon.DiscountFixed,
			Value:        decimal.NewFromInt(20),
			Active:       true,
			MaxUsage:     5,
			UsageCount:   4,
		},
	}}
	// The conditional increment loses the race on the first attempt.
	orders := &mockOrders{consumeErrs: []error{coupon.ErrUsageLimitReached}}
	svc := testService(orders, coupons, nil)

	req := baseRequest()
	req.CouponCode = "LAST1"

	o, q, err := svc.Checkout(context.Background(), req)
	require.NoError(t, err)

	assert.False(t, q.CouponApplied)
	assert.Equal(t, coupon.ReasonUsageLimitReached, q.CouponReason)
	assert.True(t, o.Discount.IsZero(), "discount %s", o.Discount)
	// 64 + 10, no discount.
	assert.True(t, decimal.NewFromInt(74).Equal(o.Total), "total %s", o.Total)
	require.Len(t, orders.created, 1)
}

func TestCheckoutUnknownCouponStillPlacesOrder(t *testing.T) {
	orders := &mockOrders{}
	svc := testService(orders, nil, nil)

	req := baseRequest()
	req.CouponCode = "BOGUS"

	o, q, err := svc.Checkout(context.Background(), req)
	require.NoError(t, err)

	assert.False(t, q.CouponApplied)
	assert.Equal(t, coupon.ReasonNotFound, q.CouponReason)
	assert.True(t, o.Discount.IsZero())
	assert.Empty(t, orders.consumed)
}

func TestQuoteDoesNotPersistOrConsume(t *testing.T) {
	orders := &mockOrders{}
	svc := testService(orders, nil, nil)

	q, err := svc.Quote(context.Background(), baseRequest())
	require.NoError(t, err)

	assert.True(t, decimal.NewFromInt(74).Equal(q.Total), "total %s", q.Total)
	assert.Equal(t, coupon.ReasonNone, q.CouponReason)
	assert.Empty(t, orders.created)
	assert.Empty(t, orders.consumed)
}

func TestTransitionHappyPath(t *testing.T) {
	stored := &Order{Code: "PD-AA", Status: StatusNew}
	orders := &mockOrders{byCode: map[string]*Order{"PD-AA": stored}}
	notifier := &recordingNotifier{}
	svc := testService(orders, nil, notifier)

	o, err := svc.Transition(context.Background(), "PD-AA", TransitionRequest{Target: StatusConfirmed})
	require.NoError(t, err)

	assert.Equal(t, StatusConfirmed, o.Status)
	assert.Equal(t, StatusNew, orders.lastExpected)
	assert.Equal(t, []string{"PD-AA:confirmed"}, notifier.events)
	require.NotEmpty(t, o.StatusLog)
	assert.Equal(t, StatusConfirmed, o.StatusLog[len(o.StatusLog)-1].Status)
}

func TestTransitionRejectsInvalidTargets(t *testing.T) {
	tests := []struct {
		name   string
		from   Status
		target Status
	}{
		{"skip a step", StatusNew, StatusPreparing},
		{"backwards", StatusPreparing, StatusConfirmed},
		{"self transition", StatusConfirmed, StatusConfirmed},
		{"out of terminal delivered", StatusDelivered, StatusCancelled},
		{"out of terminal cancelled", StatusCancelled, StatusNew},
		{"unknown status", StatusNew, Status("shipped")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stored := &Order{Code: "PD-AA", Status: tt.from}
			orders := &mockOrders{byCode: map[string]*Order{"PD-AA": stored}}
			notifier := &recordingNotifier{}
			svc := testService(orders, nil, notifier)

			_, err := svc.Transition(context.Background(), "PD-AA", TransitionRequest{Target: tt.target})

			var invalid *InvalidTransitionError
			require.ErrorAs(t, err, &invalid)
			assert.Equal(t, tt.from, invalid.From)
			assert.Equal(t, tt.target, invalid.To)
			// No mutation, no event.
			assert.Equal(t, tt.from, stored.Status)
			assert.Empty(t, notifier.events)
		})
	}
}

func TestTransitionCancelStoresReasonVerbatim(t *testing.T) {
	stored := &Order{Code: "PD-AA", Status: StatusPreparing}
	orders := &mockOrders{byCode: map[string]*Order{"PD-AA": stored}}
	svc := testService(orders, nil, nil)

	reason := "  customer asked to cancel!! "
	o, err := svc.Transition(context.Background(), "PD-AA", TransitionRequest{
		Target:       StatusCancelled,
		CancelReason: reason,
	})
	require.NoError(t, err)

	assert.Equal(t, reason, o.CancelReason)
	assert.Equal(t, reason, o.StatusLog[len(o.StatusLog)-1].Note)
}

func TestTransitionOutForDeliverySetsCourier(t *testing.T) {
	stored := &Order{Code: "PD-AA", Status: StatusPreparing}
	orders := &mockOrders{byCode: map[string]*Order{"PD-AA": stored}}
	svc := testService(orders, nil, nil)

	o, err := svc.Transition(context.Background(), "PD-AA", TransitionRequest{
		Target:  StatusOutForDelivery,
		Courier: &Courier{Name: "João"},
	})
	require.NoError(t, err)

	require.NotNil(t, o.Courier)
	assert.Equal(t, "João", o.Courier.Name)
	assert.Empty(t, o.Courier.Phone)
}

func TestTransitionNotifierFailureDoesNotFailCommand(t *testing.T) {
	stored := &Order{Code: "PD-AA", Status: StatusNew}
	orders := &mockOrders{byCode: map[string]*Order{"PD-AA": stored}}
	notifier := &recordingNotifier{err: assert.AnError}
	svc := testService(orders, nil, notifier)

	o, err := svc.Transition(context.Background(), "PD-AA", TransitionRequest{Target: StatusConfirmed})
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, o.Status)
}

func TestTransitionUnknownOrder(t *testing.T) {
	svc := testService(&mockOrders{byCode: map[string]*Order{}}, nil, nil)
	_, err := svc.Transition(context.Background(), "PD-ZZ", TransitionRequest{Target: StatusConfirmed})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBoardGroupsEveryOrderOnce(t *testing.T) {
	orders := &mockOrders{}
	svc := testService(orders, nil, nil)

	for range 3 {
		_, _, err := svc.Checkout(context.Background(), baseRequest())
		require.NoError(t, err)
	}

	board, err := svc.Board(context.Background())
	require.NoError(t, err)

	assert.Len(t, board, 6)
	assert.Len(t, board[StatusNew], 3)
	for _, s := range []Status{StatusConfirmed, StatusPreparing, StatusOutForDelivery, StatusDelivered, StatusCancelled} {
		assert.Empty(t, board[s])
	}
}
