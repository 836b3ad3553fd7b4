package checkout

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rahulmehra/storefront-backend/internal/cart"
	"github.com/rahulmehra/storefront-backend/internal/gateway"
	"github.com/rahulmehra/storefront-backend/internal/journal"
	"github.com/rahulmehra/storefront-backend/internal/orders"
	"github.com/rahulmehra/storefront-backend/internal/totals"
	"github.com/rahulmehra/storefront-backend/pkg/db/models"
	"github.com/rahulmehra/storefront-backend/pkg/enums"
	pkgerrors "github.com/rahulmehra/storefront-backend/pkg/errors"
	"github.com/rahulmehra/storefront-backend/pkg/logger"
	"github.com/rahulmehra/storefront-backend/pkg/metrics"
	"github.com/rahulmehra/storefront-backend/pkg/types"
)

// ProfileSource exposes the session's validated shipping profile.
type ProfileSource interface {
	ShippingProfile() (types.ShippingInfo, bool)
}

// Orchestrator drives one session's checkout attempt through its states.
// All operations serialize on the orchestrator mutex, so a confirmation in
// flight finishes before any other operation observes the machine.
type Orchestrator struct {
	mu        sync.Mutex
	sessionID string
	cart      *cart.Store
	profiles  ProfileSource
	gateway   gateway.Service
	orders    orders.Service
	journal   journal.Recorder
	metrics   *metrics.CheckoutMetrics
	logg      *logger.Logger
	clock     func() time.Time

	state             enums.CheckoutState
	intent            *types.PaymentIntent
	intentFingerprint string
	payment           *types.PaymentInfo
	order             *types.Order
	pendingDraft      *types.OrderDraft
	attempt           *models.CheckoutAttempt
}

// Deps carries the orchestrator's collaborators.
type Deps struct {
	SessionID string
	Cart      *cart.Store
	Profiles  ProfileSource
	Gateway   gateway.Service
	Orders    orders.Service
	Journal   journal.Recorder
	Metrics   *metrics.CheckoutMetrics
	Logger    *logger.Logger
	Clock     func() time.Time
}

// Snapshot is the externally visible view of the machine.
type Snapshot struct {
	State   enums.CheckoutState  `json:"state"`
	Intent  *types.PaymentIntent `json:"intent,omitempty"`
	Payment *types.PaymentInfo   `json:"payment,omitempty"`
	Order   *types.Order         `json:"order,omitempty"`
}

// NewOrchestrator builds the per-session checkout machine.
func NewOrchestrator(deps Deps) (*Orchestrator, error) {
	if deps.SessionID == "" {
		return nil, fmt.Errorf("session id required")
	}
	if deps.Cart == nil {
		return nil, fmt.Errorf("cart store required")
	}
	if deps.Profiles == nil {
		return nil, fmt.Errorf("profile source required")
	}
	if deps.Gateway == nil {
		return nil, fmt.Errorf("gateway service required")
	}
	if deps.Orders == nil {
		return nil, fmt.Errorf("orders service required")
	}
	if deps.Journal == nil {
		return nil, fmt.Errorf("journal recorder required")
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	return &Orchestrator{
		sessionID: deps.SessionID,
		cart:      deps.Cart,
		profiles:  deps.Profiles,
		gateway:   deps.Gateway,
		orders:    deps.Orders,
		journal:   deps.Journal,
		metrics:   deps.Metrics,
		logg:      deps.Logger,
		clock:     deps.Clock,
		state:     enums.CheckoutStateIdle,
	}, nil
}

// Snapshot returns the current machine view.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return Snapshot{
		State:   o.state,
		Intent:  o.intent,
		Payment: o.payment,
		Order:   o.order,
	}
}

// State returns the current state.
func (o *Orchestrator) State() enums.CheckoutState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// PlaceCashOrder runs the cash-on-delivery path: local totals with zero tax,
// a synthesized payment marker, and a single order submission. There is no
// charge, so a failure simply returns the machine to idle.
func (o *Orchestrator) PlaceCashOrder(ctx context.Context) (*types.Order, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.requireNotCommitted(); err != nil {
		return nil, err
	}

	items, shipping, err := o.checkoutInputs(ctx)
	if err != nil {
		return nil, err
	}

	summary := totals.ComputeCOD(items)
	payment := types.PaymentInfo{
		ID:     fmt.Sprintf("COD_%d", o.clock().UnixMilli()),
		Status: enums.PaymentStatusCashOnDelivery,
	}
	draft := buildDraft(items, shipping, payment, summary)

	o.attempt = &models.CheckoutAttempt{
		SessionID:       o.sessionID,
		Path:            enums.PaymentPathCOD,
		State:           enums.CheckoutStateConfirming,
		CartFingerprint: cart.ComputeFingerprint(items),
		TotalPrice:      summary.TotalPrice.String(),
	}
	o.journalCreate(ctx)

	order, err := o.orders.Create(ctx, draft, payment.ID)
	if err != nil {
		o.state = enums.CheckoutStateIdle
		o.recordFailure(ctx, enums.CheckoutStateIdle, err)
		o.metrics.IncAttempt(enums.PaymentPathCOD.String(), "order_failed")
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "submitting cash order")
	}

	o.completeOrder(ctx, order, &payment)
	o.metrics.IncAttempt(enums.PaymentPathCOD.String(), "order_created")
	return order, nil
}

// RequestIntent asks the gateway for a payment intent bound to the current
// cart contents.
func (o *Orchestrator) RequestIntent(ctx context.Context) (*types.PaymentIntent, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.requireNotCommitted(); err != nil {
		return nil, err
	}

	intent, err := o.requestIntentLocked(ctx)
	if err != nil {
		return nil, err
	}
	return intent, nil
}

func (o *Orchestrator) requestIntentLocked(ctx context.Context) (*types.PaymentIntent, error) {
	items, _, err := o.checkoutInputs(ctx)
	if err != nil {
		return nil, err
	}

	shippingFee := totals.ShippingPrice(totals.ItemsPrice(items))

	o.state = enums.CheckoutStateIntentRequested
	intent, err := o.gateway.RequestIntent(ctx, items, shippingFee)
	if err != nil {
		o.state = enums.CheckoutStateIdle
		o.intent = nil
		o.intentFingerprint = ""
		return nil, err
	}

	o.intent = intent
	o.intentFingerprint = cart.ComputeFingerprint(items)
	o.state = enums.CheckoutStateIntentReady

	o.attempt = &models.CheckoutAttempt{
		SessionID:       o.sessionID,
		Path:            enums.PaymentPathCard,
		State:           enums.CheckoutStateIntentReady,
		CartFingerprint: o.intentFingerprint,
		TotalPrice:      intent.OrderSummary.TotalPrice.String(),
	}
	o.journalCreate(ctx)
	return intent, nil
}

// ConfirmCard captures the charge against the held intent and then submits
// the order. The gateway's order summary is authoritative for the draft. A
// stale intent is never confirmed against: if the cart changed since issuance,
// or the previous attempt was declined and spent its secret, a fresh intent is
// requested first.
func (o *Orchestrator) ConfirmCard(ctx context.Context, paymentMethod string) (*types.Order, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.requireNotCommitted(); err != nil {
		return nil, err
	}
	if o.state != enums.CheckoutStateIntentReady && o.state != enums.CheckoutStatePaymentFailed {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "no payment intent to confirm")
	}
	if paymentMethod == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment method required")
	}

	if err := o.cart.Flush(ctx); err != nil && o.logg != nil {
		o.logg.Error(ctx, "flushing cart before confirmation", err)
	}
	if o.intent == nil || o.cart.Fingerprint() != o.intentFingerprint {
		if o.logg != nil {
			o.logg.Warn(o.logg.WithSessionID(ctx, o.sessionID), "held intent no longer valid, requesting fresh intent")
		}
		if _, err := o.requestIntentLocked(ctx); err != nil {
			return nil, err
		}
	}

	shipping, ok := o.profiles.ShippingProfile()
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping profile required")
	}

	o.state = enums.CheckoutStateConfirming
	o.journalUpdate(ctx, enums.CheckoutStateConfirming)

	start := o.clock()
	payment, err := o.gateway.ConfirmCharge(ctx, o.intent.ClientSecret, paymentMethod)
	o.metrics.ObserveConfirm(o.clock().Sub(start))
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeGatewayDeclined) {
			// A declined confirmation spends the secret; the next attempt
			// must start from a fresh intent.
			o.state = enums.CheckoutStatePaymentFailed
			o.intent = nil
			o.intentFingerprint = ""
			o.recordFailure(ctx, enums.CheckoutStatePaymentFailed, err)
			o.metrics.IncDecline()
			o.metrics.IncAttempt(enums.PaymentPathCard.String(), "payment_failed")
			return nil, err
		}
		// Transport-level failure: the intent may still be good, let the
		// caller try again.
		o.state = enums.CheckoutStateIntentReady
		o.journalUpdate(ctx, enums.CheckoutStateIntentReady)
		return nil, err
	}

	o.payment = payment
	o.state = enums.CheckoutStatePaymentSucceeded
	if o.attempt != nil {
		o.attempt.ChargeID = &payment.ID
	}
	o.journalUpdate(ctx, enums.CheckoutStatePaymentSucceeded)

	draft := buildDraft(o.cart.Items(), shipping, *payment, o.intent.OrderSummary)
	o.pendingDraft = &draft

	return o.submitCardOrder(ctx)
}

// RetryOrderCreation resubmits the held order draft after a partial failure.
// The charge id doubles as the idempotency key, so the order service cannot
// double-book even if an earlier submission actually landed. The charge is
// never re-confirmed.
func (o *Orchestrator) RetryOrderCreation(ctx context.Context) (*types.Order, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state != enums.CheckoutStateOrderCreationFailed {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "no failed order creation to retry")
	}
	if o.pendingDraft == nil || o.payment == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "order draft missing for retry")
	}
	return o.submitCardOrder(ctx)
}

func (o *Orchestrator) submitCardOrder(ctx context.Context) (*types.Order, error) {
	order, err := o.orders.Create(ctx, *o.pendingDraft, o.payment.ID)
	if err != nil {
		o.state = enums.CheckoutStateOrderCreationFailed
		o.recordFailure(ctx, enums.CheckoutStateOrderCreationFailed, err)
		o.metrics.IncPartialFailure()
		o.metrics.IncAttempt(enums.PaymentPathCard.String(), "order_creation_failed")
		if o.logg != nil {
			o.logg.Error(o.logg.WithChargeID(ctx, o.payment.ID), "charge captured but order creation failed", err)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodePartialFailure, err, "payment captured but order creation failed").
			WithDetails(map[string]any{"charge_id": o.payment.ID})
	}

	o.completeOrder(ctx, order, o.payment)
	o.metrics.IncAttempt(enums.PaymentPathCard.String(), "order_created")
	return order, nil
}

// Abandon resets the machine to idle. It is refused once money has been
// captured without a matching order, so a stranded charge can never be
// silently discarded.
func (o *Orchestrator) Abandon(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch o.state {
	case enums.CheckoutStatePaymentSucceeded, enums.CheckoutStateOrderCreationFailed:
		details := map[string]any{}
		if o.payment != nil {
			details["charge_id"] = o.payment.ID
		}
		return pkgerrors.New(pkgerrors.CodeStateConflict, "cannot abandon a captured payment").
			WithDetails(details)
	}

	if o.attempt != nil && o.state != enums.CheckoutStateOrderCreated {
		reason := "abandoned"
		o.attempt.FailureReason = &reason
		o.journalUpdate(ctx, enums.CheckoutStateIdle)
	}
	o.resetLocked()
	return nil
}

func (o *Orchestrator) resetLocked() {
	o.state = enums.CheckoutStateIdle
	o.intent = nil
	o.intentFingerprint = ""
	o.payment = nil
	o.order = nil
	o.pendingDraft = nil
	o.attempt = nil
}

func (o *Orchestrator) requireNotCommitted() error {
	switch o.state {
	case enums.CheckoutStatePaymentSucceeded, enums.CheckoutStateOrderCreationFailed:
		details := map[string]any{}
		if o.payment != nil {
			details["charge_id"] = o.payment.ID
		}
		return pkgerrors.New(pkgerrors.CodeStateConflict, "a captured payment is awaiting its order").
			WithDetails(details)
	case enums.CheckoutStateOrderCreated:
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order already created, abandon to start over")
	}
	return nil
}

func (o *Orchestrator) checkoutInputs(ctx context.Context) ([]types.CartItem, types.ShippingInfo, error) {
	if err := o.cart.Flush(ctx); err != nil && o.logg != nil {
		o.logg.Error(ctx, "flushing cart before checkout", err)
	}

	items := o.cart.Items()
	if len(items) == 0 {
		return nil, types.ShippingInfo{}, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	shipping, ok := o.profiles.ShippingProfile()
	if !ok {
		return nil, types.ShippingInfo{}, pkgerrors.New(pkgerrors.CodeValidation, "shipping profile required")
	}
	return items, shipping, nil
}

func (o *Orchestrator) completeOrder(ctx context.Context, order *types.Order, payment *types.PaymentInfo) {
	o.order = order
	o.payment = payment
	o.state = enums.CheckoutStateOrderCreated
	o.pendingDraft = nil
	if o.attempt != nil {
		o.attempt.OrderID = &order.ID
	}
	o.journalUpdate(ctx, enums.CheckoutStateOrderCreated)

	if err := o.cart.Clear(ctx); err != nil && o.logg != nil {
		o.logg.Error(ctx, "clearing cart after order creation", err)
	}
}

func (o *Orchestrator) recordFailure(ctx context.Context, state enums.CheckoutState, cause error) {
	if o.attempt == nil {
		return
	}
	reason := cause.Error()
	o.attempt.FailureReason = &reason
	o.journalUpdate(ctx, state)
}

// Journal writes never block the money flow; a failed write is logged and
// the transition proceeds.
func (o *Orchestrator) journalCreate(ctx context.Context) {
	if o.attempt == nil {
		return
	}
	if err := o.journal.Create(ctx, o.attempt); err != nil && o.logg != nil {
		o.logg.Error(ctx, "journaling checkout attempt", err)
	}
}

func (o *Orchestrator) journalUpdate(ctx context.Context, state enums.CheckoutState) {
	if o.attempt == nil {
		return
	}
	o.attempt.State = state
	if err := o.journal.Update(ctx, o.attempt); err != nil && o.logg != nil {
		o.logg.Error(ctx, "journaling checkout transition", err)
	}
}

func buildDraft(items []types.CartItem, shipping types.ShippingInfo, payment types.PaymentInfo, summary types.TotalsSnapshot) types.OrderDraft {
	orderItems := make([]types.OrderItem, 0, len(items))
	for _, item := range items {
		orderItems = append(orderItems, types.OrderItem{
			Name:     item.Product.Name,
			Quantity: item.Quantity,
			Image:    item.Product.FeaturedImage(),
			Price:    item.Product.Price,
			Product:  item.Product.ID,
		})
	}
	return types.OrderDraft{
		ShippingInfo:  shipping,
		OrderItems:    orderItems,
		PaymentInfo:   payment,
		ItemsPrice:    summary.ItemsPrice,
		TaxPrice:      summary.TaxPrice,
		ShippingPrice: summary.ShippingPrice,
		TotalPrice:    summary.TotalPrice,
	}
}
