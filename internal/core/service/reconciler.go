package service

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rl1809/shopzone/internal/core/domain"
	"github.com/rl1809/shopzone/internal/core/pricing"
	"github.com/rl1809/shopzone/internal/port"
)

// Reconciler drives a session's checkout:
//
//	Idle -> Validating -> Processing -> Settled | Failed
//
// Only one attempt may be in Validating or Processing at a time. Paid lines
// leave the cart only after the payment processor approved the charge.
type Reconciler struct {
	sessionID string
	cart      *CartStore
	resolver  *Resolver
	engine    *pricing.Engine
	payment   port.PaymentProcessor
	orders    port.OrderRepository
	logger    *zap.Logger
	now       func() time.Time

	mu          sync.Mutex
	state       domain.CheckoutState
	last        *domain.OrderSnapshot
	subscribers []func(domain.Transition)
}

type ReconcilerDeps struct {
	Cart     *CartStore
	Resolver *Resolver
	Engine   *pricing.Engine
	Payment  port.PaymentProcessor
	// Orders is optional; settled orders are only kept in memory without it.
	Orders port.OrderRepository
	Logger *zap.Logger
}

func NewReconciler(sessionID string, deps ReconcilerDeps) *Reconciler {
	return &Reconciler{
		sessionID: sessionID,
		cart:      deps.Cart,
		resolver:  deps.Resolver,
		engine:    deps.Engine,
		payment:   deps.Payment,
		orders:    deps.Orders,
		logger:    deps.Logger.With(zap.String("session_id", sessionID)),
		now:       time.Now,
		state:     domain.CheckoutIdle,
	}
}

func (r *Reconciler) State() domain.CheckoutState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// LastOrder returns the snapshot of the most recent settled checkout, if any.
func (r *Reconciler) LastOrder() *domain.OrderSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

// Subscribe registers fn to be called after every state change. fn runs on
// the checkout goroutine and must not call back into the reconciler.
func (r *Reconciler) Subscribe(fn func(domain.Transition)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subscribers = append(r.subscribers, fn)
}

func (r *Reconciler) Checkout(ctx context.Context) (domain.OrderSnapshot, error) {
	if err := r.begin(); err != nil {
		return domain.OrderSnapshot{}, err
	}

	lines := r.cart.Entries()
	if len(lines) == 0 {
		r.transition(domain.CheckoutFailed, domain.ErrEmptyCart)
		return domain.OrderSnapshot{}, domain.ErrEmptyCart
	}

	resolved, unresolved := r.resolver.Resolve(ctx, lines)
	if len(unresolved) > 0 {
		err := &domain.UnresolvedLinesError{ProductIDs: unresolved}
		r.transition(domain.CheckoutFailed, err)
		return domain.OrderSnapshot{}, err
	}

	breakdown := r.engine.ComputeBreakdown(lines, resolved)
	orderID := uuid.NewString()

	r.transition(domain.CheckoutProcessing, nil)
	result, err := r.payment.Process(ctx, domain.PaymentRequest{
		OrderID:   orderID,
		SessionID: r.sessionID,
		Amount:    breakdown.Total.Round(2),
	})
	if err != nil || !result.Approved {
		declined := paymentError(result, err)
		r.logger.Warn("payment declined", zap.String("order_id", orderID), zap.Error(declined))
		r.transition(domain.CheckoutIdle, declined)
		return domain.OrderSnapshot{}, declined
	}

	snapshot := domain.OrderSnapshot{
		ID:               orderID,
		SessionID:        r.sessionID,
		Lines:            lines,
		Products:         maps.Clone(resolved),
		Breakdown:        breakdown,
		PaymentReference: result.Reference,
		CreatedAt:        r.now().UTC(),
	}

	// The charge went through; a disconnecting caller must not undo the
	// bookkeeping below.
	settleCtx := context.WithoutCancel(ctx)

	// Remove while still Processing so a new attempt cannot see the paid lines.
	// Lines added during payment stay in the cart.
	r.cart.RemovePaid(settleCtx, lines)
	r.mu.Lock()
	r.last = &snapshot
	r.mu.Unlock()
	r.transition(domain.CheckoutSettled, nil)

	r.logger.Info("order settled",
		zap.String("order_id", orderID),
		zap.String("total", breakdown.Total.StringFixed(2)),
		zap.Int("items", domain.TotalQuantity(lines)))

	if r.orders != nil {
		if err := r.orders.SaveOrder(settleCtx, snapshot); err != nil {
			r.logger.Error("settled order not recorded", zap.String("order_id", orderID), zap.Error(err))
		}
	}

	return snapshot, nil
}

func (r *Reconciler) begin() error {
	r.mu.Lock()
	if r.state.InFlight() {
		r.mu.Unlock()
		return domain.ErrAlreadyProcessing
	}
	from := r.state
	r.state = domain.CheckoutValidating
	subs := slices.Clone(r.subscribers)
	r.mu.Unlock()

	notify(subs, domain.Transition{From: from, To: domain.CheckoutValidating})
	return nil
}

func (r *Reconciler) transition(to domain.CheckoutState, cause error) {
	r.mu.Lock()
	from := r.state
	r.state = to
	subs := slices.Clone(r.subscribers)
	r.mu.Unlock()

	notify(subs, domain.Transition{From: from, To: to, Err: cause})
}

func notify(subs []func(domain.Transition), t domain.Transition) {
	for _, fn := range subs {
		fn(t)
	}
}

func paymentError(result domain.PaymentResult, err error) error {
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrPaymentDeclined, err)
	}
	if result.Reason != "" {
		return fmt.Errorf("%w: %s", domain.ErrPaymentDeclined, result.Reason)
	}
	return domain.ErrPaymentDeclined
}
