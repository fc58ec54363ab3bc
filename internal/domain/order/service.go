package order

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/xenking/kart-backoffice/internal/domain/apperr"
	"github.com/xenking/kart-backoffice/internal/domain/cart"
	"github.com/xenking/kart-backoffice/internal/domain/coupon"
	"github.com/xenking/kart-backoffice/internal/domain/customer"
	"github.com/xenking/kart-backoffice/internal/domain/payment"
	"github.com/xenking/kart-backoffice/internal/domain/shipping"
)

// ErrEmptyCart is returned when checking out a cart without lines.
var ErrEmptyCart = errors.Wrap(apperr.ErrInvalidValue, "cart is empty")

const maxCodeAttempts = 5

// StockGuard validates and applies inventory decrements for cart lines.
// Commit is all-or-nothing; Release undoes a successful Commit.
type StockGuard interface {
	Validate(ctx context.Context, lines []cart.Line) error
	Commit(ctx context.Context, lines []cart.Line) error
	Release(ctx context.Context, lines []cart.Line) error
}

// CheckoutRequest holds the input for converting a cart into an order.
type CheckoutRequest struct {
	Cart       *cart.Cart
	Shipping   shipping.Quote
	CouponCode string
	Payment    payment.Request
}

// Service is the order engine: checkout and status transitions.
// Checkout and AdvanceStatus are serialised so the validate-then-commit
// stock sequence is not interleaved.
type Service struct {
	mu sync.Mutex

	orders   Repository
	stock    StockGuard
	coupons  coupon.Resolver
	payments payment.Processor

	strictCoupons bool
	now           func() time.Time
	lg            *zap.Logger
	tracer        trace.Tracer
	checkouts     metric.Int64Counter
	transitions   metric.Int64Counter
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(lg *zap.Logger) Option {
	return func(s *Service) {
		if lg != nil {
			s.lg = lg
		}
	}
}

// WithStrictCoupons makes unknown or expired coupon codes fail checkout
// with a not found error instead of being ignored.
func WithStrictCoupons(strict bool) Option {
	return func(s *Service) { s.strictCoupons = strict }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithTracerProvider sets the tracer provider for checkout spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) {
		if tp != nil {
			s.tracer = tp.Tracer("kart-backoffice/order")
		}
	}
}

// WithMeterProvider sets the meter provider for checkout counters.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(s *Service) {
		if mp != nil {
			s.initMetrics(mp)
		}
	}
}

// NewService creates an order Service with the required domain dependencies.
func NewService(
	orders Repository,
	stock StockGuard,
	coupons coupon.Resolver,
	payments payment.Processor,
	opts ...Option,
) *Service {
	s := &Service{
		orders:   orders,
		stock:    stock,
		coupons:  coupons,
		payments: payments,
		now:      time.Now,
		lg:       zap.NewNop(),
		tracer:   tracenoop.NewTracerProvider().Tracer(""),
	}
	s.initMetrics(metricnoop.NewMeterProvider())
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) initMetrics(mp metric.MeterProvider) {
	meter := mp.Meter("kart-backoffice/order")
	// Instrument creation only fails on invalid names.
	s.checkouts, _ = meter.Int64Counter("checkout.orders",
		metric.WithDescription("Checkout attempts by outcome"))
	s.transitions, _ = meter.Int64Counter("order.status_transitions",
		metric.WithDescription("Order status transitions by target status"))
}

// Checkout converts req.Cart into a persisted order. Pre-condition failures
// leave stock and the order store untouched. A declined payment still
// persists the order, as CANCELLED, without committing stock. The caller
// owns the cart and should discard it once an order is returned.
func (s *Service) Checkout(ctx context.Context, req CheckoutRequest) (_ *Order, rerr error) {
	ctx, span := s.tracer.Start(ctx, "order.Checkout")
	defer span.End()

	outcome := "error"
	defer func() {
		if rerr != nil {
			span.RecordError(rerr)
			span.SetStatus(codes.Error, rerr.Error())
		}
		s.checkouts.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	}()

	if req.Cart == nil || req.Cart.IsEmpty() {
		return nil, ErrEmptyCart
	}
	buyer := req.Cart.Customer()
	if buyer == nil {
		return nil, errors.Wrap(customer.ErrNotFound, "cart has no customer")
	}
	if err := req.Payment.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.resolveCoupon(ctx, req.CouponCode)
	if err != nil {
		return nil, err
	}

	lines := req.Cart.Lines()
	if err := s.stock.Validate(ctx, lines); err != nil {
		return nil, err
	}

	now := s.now()
	code, err := s.newUniqueCode(ctx, now)
	if err != nil {
		return nil, err
	}

	items := make([]Item, len(lines))
	for i, l := range lines {
		items[i] = Item{
			SKU:      l.SKU(),
			Name:     l.Product().Name(),
			Price:    l.Price(),
			Quantity: l.Quantity(),
		}
	}
	subtotal := req.Cart.Subtotal()
	discount := decimal.Zero
	couponCode := ""
	if c != nil {
		discount = c.DiscountAt(subtotal, now)
		couponCode = c.Code()
	}

	o, err := newOrder(code, buyer.Document(), now, items, req.Shipping, couponCode, discount)
	if err != nil {
		return nil, errors.Wrap(err, "build order")
	}
	span.SetAttributes(attribute.String("order.code", o.Code()))

	pay, err := s.payments.Process(o.Total(), req.Payment)
	if err != nil {
		return nil, errors.Wrap(err, "process payment")
	}
	if err := o.attachPayment(pay); err != nil {
		return nil, err
	}

	switch pay.Status {
	case payment.StatusApproved:
		if err := o.transition(StatusPaid); err != nil {
			return nil, err
		}
		if err := s.stock.Commit(ctx, lines); err != nil {
			s.lg.Error("Approved payment dropped, stock commit failed",
				zap.String("code", o.Code()),
				zap.String("payment_ref", pay.Reference),
				zap.Stringer("amount", pay.Amount),
				zap.Error(err),
			)
			return nil, errors.Wrap(err, "commit stock")
		}
	case payment.StatusPending:
		o.status = StatusPendingPayment
	default:
		if err := o.transition(StatusCancelled); err != nil {
			return nil, err
		}
	}

	if err := s.orders.Save(ctx, o); err != nil {
		if o.Status() == StatusPaid {
			if rerr := s.stock.Release(ctx, lines); rerr != nil {
				s.lg.Error("Stock not released after failed order save",
					zap.String("code", o.Code()),
					zap.Error(rerr),
				)
			}
		}
		return nil, errors.Wrap(err, "save order")
	}

	outcome = string(o.Status())
	s.lg.Info("Order created",
		zap.String("code", o.Code()),
		zap.String("customer", o.CustomerDocument()),
		zap.String("status", string(o.Status())),
		zap.String("payment", string(pay.Status)),
		zap.Stringer("total", o.Total()),
	)
	return o, nil
}

// resolveCoupon returns nil when no code was given or, in lenient mode,
// when the code does not resolve to a usable coupon.
func (s *Service) resolveCoupon(ctx context.Context, code string) (*coupon.Coupon, error) {
	if code == "" {
		return nil, nil
	}
	c, err := s.coupons.Resolve(ctx, code)
	switch {
	case err == nil:
		return c, nil
	case errors.Is(err, apperr.ErrNotFound) && !s.strictCoupons:
		s.lg.Warn("Ignoring coupon", zap.String("coupon", code), zap.Error(err))
		return nil, nil
	case errors.Is(err, apperr.ErrNotFound):
		return nil, err
	default:
		return nil, errors.Wrap(err, "resolve coupon")
	}
}

func (s *Service) newUniqueCode(ctx context.Context, now time.Time) (string, error) {
	for range maxCodeAttempts {
		code := NewCode(now)
		_, err := s.orders.FindByCode(ctx, code)
		if errors.Is(err, ErrNotFound) {
			return code, nil
		}
		if err != nil {
			return "", errors.Wrap(err, "check order code")
		}
	}
	return "", errors.Errorf("could not allocate a unique order code after %d attempts", maxCodeAttempts)
}

// AdvanceStatus moves the order matching code to status. The order is only
// re-persisted when the transition table allows the move. Stock is never
// touched, including when a pending boleto order is confirmed as PAID.
func (s *Service) AdvanceStatus(ctx context.Context, code string, status string) (_ *Order, rerr error) {
	ctx, span := s.tracer.Start(ctx, "order.AdvanceStatus",
		trace.WithAttributes(attribute.String("order.code", code)))
	defer span.End()
	defer func() {
		if rerr != nil {
			span.RecordError(rerr)
			span.SetStatus(codes.Error, rerr.Error())
		}
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	o, err := s.orders.FindByCode(ctx, code)
	if err != nil {
		return nil, errors.Wrapf(err, "find order %s", code)
	}
	to, err := ParseStatus(status)
	if err != nil {
		return nil, err
	}
	from := o.Status()
	if err := o.transition(to); err != nil {
		return nil, err
	}
	if err := s.orders.Save(ctx, o); err != nil {
		return nil, errors.Wrap(err, "save order")
	}

	s.transitions.Add(ctx, 1, metric.WithAttributes(attribute.String("status", string(to))))
	s.lg.Info("Order status changed",
		zap.String("code", o.Code()),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
	)
	return o, nil
}

// Get returns the order matching code exactly or by unique prefix.
func (s *Service) Get(ctx context.Context, code string) (*Order, error) {
	return s.orders.FindByCode(ctx, code)
}

// List returns every stored order.
func (s *Service) List(ctx context.Context) ([]*Order, error) {
	return s.orders.LoadAll(ctx)
}
