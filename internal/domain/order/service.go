package order

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/pedidolocal/storefront/internal/domain/catalog"
	"github.com/pedidolocal/storefront/internal/domain/coupon"
	"github.com/pedidolocal/storefront/internal/domain/pricing"
	"github.com/pedidolocal/storefront/internal/domain/zone"
)

// Sentinel errors for checkout validation.
var (
	ErrEmptyItems           = errors.New("items required")
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
)

// ProductNotFoundError indicates a requested product does not exist.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

// AddonNotFoundError indicates a chosen add-on is not offered by its product.
type AddonNotFoundError struct {
	ProductID string
	AddonID   string
}

func (e *AddonNotFoundError) Error() string {
	return fmt.Sprintf("addon %s not available for product %s", e.AddonID, e.ProductID)
}

// InvalidQuantityError indicates a line item has a non-positive quantity.
type InvalidQuantityError struct {
	ProductID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %s", e.ProductID)
}

// Notifier receives an event on every successful status write. Delivery
// is out of scope here: implementations decide how (or whether) the
// customer hears about it.
type Notifier interface {
	OrderStatusChanged(ctx context.Context, code string, status Status) error
}

// CheckoutItem is one requested cart line.
type CheckoutItem struct {
	ProductID string
	Quantity  int
	AddonIDs  []string
}

// CheckoutRequest holds the input for placing an order.
type CheckoutRequest struct {
	CustomerName  string
	CustomerPhone string
	Address       Address
	Items         []CheckoutItem
	PaymentMethod pricing.PaymentMethod
	CouponCode    string
}

// TransitionRequest holds the input for a status change command.
// CancelReason is only meaningful when Target is cancelled; Courier
// only when Target is out_for_delivery.
type TransitionRequest struct {
	Target       Status
	CancelReason string
	Courier      *Courier
}

// Service encapsulates checkout, the status workflow, and board queries.
type Service struct {
	catalog  catalog.Repository
	coupons  coupon.Repository
	zones    zone.Repository
	orders   Repository
	calc     *pricing.Calculator
	notifier Notifier
	now      func() time.Time
}

// NewService creates an order Service with the required collaborators.
func NewService(
	catalogRepo catalog.Repository,
	couponRepo coupon.Repository,
	zoneRepo zone.Repository,
	orderRepo Repository,
	calc *pricing.Calculator,
	notifier Notifier,
) *Service {
	return &Service{
		catalog:  catalogRepo,
		coupons:  couponRepo,
		zones:    zoneRepo,
		orders:   orderRepo,
		calc:     calc,
		notifier: notifier,
		now:      time.Now,
	}
}

// Quote prices a cart without placing an order. The returned quote
// carries the coupon/zone diagnostics for display.
func (s *Service) Quote(ctx context.Context, req CheckoutRequest) (pricing.Quote, error) {
	_, cart, err := s.resolveItems(ctx, req.Items)
	if err != nil {
		return pricing.Quote{}, err
	}
	rule, z, err := s.resolveContext(ctx, req)
	if err != nil {
		return pricing.Quote{}, err
	}

	q := s.calc.Quote(cart, rule, z, req.PaymentMethod)
	if req.CouponCode == "" {
		// No coupon was asked for; not_found would be noise.
		q.CouponReason = coupon.ReasonNone
	}
	return q, nil
}

// Checkout validates the request, snapshots catalog prices, computes the
// frozen totals, persists the order (consuming one coupon use in the
// same transaction when the coupon applies), and emits the creation
// event.
func (s *Service) Checkout(ctx context.Context, req CheckoutRequest) (*Order, pricing.Quote, error) {
	if !req.PaymentMethod.Valid() {
		return nil, pricing.Quote{}, ErrInvalidPaymentMethod
	}

	items, cart, err := s.resolveItems(ctx, req.Items)
	if err != nil {
		return nil, pricing.Quote{}, err
	}
	rule, z, err := s.resolveContext(ctx, req)
	if err != nil {
		return nil, pricing.Quote{}, err
	}

	q := s.calc.Quote(cart, rule, z, req.PaymentMethod)
	if req.CouponCode == "" {
		q.CouponReason = coupon.ReasonNone
	}

	now := s.now()
	o := &Order{
		ID:            uuid.New().String(),
		Code:          newOrderCode(),
		Items:         items,
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		Address:       req.Address,
		PaymentMethod: req.PaymentMethod,
		CouponCode:    strings.ToUpper(strings.TrimSpace(req.CouponCode)),
		Status:        StatusNew,
		CreatedAt:     now,
		StatusLog:     []StatusLogEntry{{Status: StatusNew, At: now}},
	}
	applyQuote(o, q)

	consume := ""
	if q.CouponApplied {
		consume = o.CouponCode
	}

	err = s.orders.Create(ctx, o, consume)
	if errors.Is(err, coupon.ErrUsageLimitReached) {
		// Another checkout took the last use between our eligibility
		// read and the conditional increment. Degrade exactly like a
		// pre-checked exhausted coupon: zero discount, reason attached.
		q = s.calc.Quote(cart, nil, z, req.PaymentMethod)
		q.CouponReason = coupon.ReasonUsageLimitReached
		applyQuote(o, q)
		err = s.orders.Create(ctx, o, "")
	}
	if err != nil {
		return nil, pricing.Quote{}, errors.Wrap(err, "create order")
	}

	if !q.ZoneMatched && o.Address.Neighborhood != "" {
		zctx.From(ctx).Warn("no delivery zone covers neighborhood",
			zap.String("neighborhood", o.Address.Neighborhood),
			zap.String("order_code", o.Code),
		)
	}

	s.dispatch(ctx, o.Code, StatusNew)
	return o, q, nil
}

// Transition executes one status change command. It rejects anything
// outside the transition table before touching storage, persists the
// new status conditionally on the loaded one, and emits the event.
func (s *Service) Transition(ctx context.Context, code string, req TransitionRequest) (*Order, error) {
	o, err := s.orders.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	if !req.Target.Valid() || !o.Status.CanTransitionTo(req.Target) {
		return nil, &InvalidTransitionError{From: o.Status, To: req.Target}
	}

	from := o.Status
	entry := StatusLogEntry{Status: req.Target, At: s.now()}

	o.Status = req.Target
	switch req.Target {
	case StatusCancelled:
		// Stored verbatim; free text is fine and empty is fine.
		o.CancelReason = req.CancelReason
		entry.Note = req.CancelReason
	case StatusOutForDelivery:
		if req.Courier != nil {
			o.Courier = req.Courier
		}
	}

	if err := s.orders.UpdateStatus(ctx, o, from, entry); err != nil {
		return nil, err
	}
	o.StatusLog = append(o.StatusLog, entry)

	s.dispatch(ctx, o.Code, o.Status)
	return o, nil
}

// GetByCode loads one order with its full status history.
func (s *Service) GetByCode(ctx context.Context, code string) (*Order, error) {
	return s.orders.GetByCode(ctx, code)
}

// Board returns all orders grouped into the six status buckets, newest
// first within each bucket.
func (s *Service) Board(ctx context.Context) (map[Status][]Order, error) {
	all, err := s.orders.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	return GroupByStatus(all), nil
}

// resolveItems validates quantities, batch-fetches the products, and
// builds both the persisted snapshot and the pricing cart.
func (s *Service) resolveItems(ctx context.Context, reqItems []CheckoutItem) ([]LineItem, pricing.Cart, error) {
	if len(reqItems) == 0 {
		return nil, pricing.Cart{}, ErrEmptyItems
	}

	ids := make([]string, len(reqItems))
	for i, item := range reqItems {
		if item.Quantity <= 0 {
			return nil, pricing.Cart{}, &InvalidQuantityError{ProductID: item.ProductID}
		}
		ids[i] = item.ProductID
	}

	fetched, err := s.catalog.GetByIDs(ctx, ids)
	if err != nil {
		return nil, pricing.Cart{}, errors.Wrap(err, "get products")
	}
	productMap := make(map[string]catalog.Product, len(fetched))
	for _, p := range fetched {
		productMap[p.ID] = p
	}

	items := make([]LineItem, 0, len(reqItems))
	cartItems := make([]pricing.Item, 0, len(reqItems))
	for _, reqItem := range reqItems {
		p, ok := productMap[reqItem.ProductID]
		if !ok {
			return nil, pricing.Cart{}, &ProductNotFoundError{ProductID: reqItem.ProductID}
		}

		line := LineItem{
			ProductID: p.ID,
			Name:      p.Name,
			UnitPrice: p.Price,
			Quantity:  reqItem.Quantity,
		}
		addonPrices := make([]decimal.Decimal, 0, len(reqItem.AddonIDs))
		for _, addonID := range reqItem.AddonIDs {
			a, ok := p.AddonByID(addonID)
			if !ok {
				return nil, pricing.Cart{}, &AddonNotFoundError{ProductID: p.ID, AddonID: addonID}
			}
			line.Addons = append(line.Addons, ItemAddon{ID: a.ID, Name: a.Name, Price: a.Price})
			addonPrices = append(addonPrices, a.Price)
		}

		items = append(items, line)
		cartItems = append(cartItems, pricing.Item{
			UnitPrice:   p.Price,
			Quantity:    reqItem.Quantity,
			AddonPrices: addonPrices,
		})
	}

	return items, pricing.Cart{Items: cartItems}, nil
}

// resolveContext loads the coupon rule and delivery zone referenced by
// the request. Missing coupon and uncovered neighborhood both resolve
// to nil; the calculator turns those into diagnostics.
func (s *Service) resolveContext(ctx context.Context, req CheckoutRequest) (*coupon.Rule, *zone.Zone, error) {
	var rule *coupon.Rule
	if code := strings.TrimSpace(req.CouponCode); code != "" {
		r, err := s.coupons.FindByCode(ctx, code)
		switch {
		case errors.Is(err, coupon.ErrNotFound):
			rule = nil
		case err != nil:
			return nil, nil, errors.Wrap(err, "find coupon")
		default:
			rule = r
		}
	}

	var z *zone.Zone
	if hood := strings.TrimSpace(req.Address.Neighborhood); hood != "" {
		found, err := s.zones.FindByNeighborhood(ctx, hood)
		switch {
		case errors.Is(err, zone.ErrNotFound):
			z = nil
		case err != nil:
			return nil, nil, errors.Wrap(err, "find delivery zone")
		default:
			z = found
		}
	}

	return rule, z, nil
}

// dispatch emits a status event, best effort. A broken notifier never
// fails the command that triggered it.
func (s *Service) dispatch(ctx context.Context, code string, status Status) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.OrderStatusChanged(ctx, code, status); err != nil {
		zctx.From(ctx).Warn("notify status change",
			zap.String("order_code", code),
			zap.String("status", string(status)),
			zap.Error(err),
		)
	}
}

// applyQuote freezes the quote's money fields onto the order.
func applyQuote(o *Order, q pricing.Quote) {
	o.Subtotal = q.Subtotal
	o.Discount = q.Discount
	o.DeliveryFee = q.DeliveryFee
	o.Total = q.Total
	if !q.CouponApplied {
		o.Discount = decimal.Zero.Round(2)
	}
}

// newOrderCode generates a short human-readable order code. Uniqueness
// is enforced by the orders.code constraint; collisions on 4 random
// bytes are rare enough that checkout simply fails and the customer
// retries.
func newOrderCode() string {
	id := uuid.New()
	return "PD-" + strings.ToUpper(hex.EncodeToString(id[:4]))
}
