package checkout

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rahulmehra/storefront-backend/internal/cart"
	"github.com/rahulmehra/storefront-backend/pkg/db/models"
	"github.com/rahulmehra/storefront-backend/pkg/enums"
	pkgerrors "github.com/rahulmehra/storefront-backend/pkg/errors"
	"github.com/rahulmehra/storefront-backend/pkg/pagination"
	"github.com/rahulmehra/storefront-backend/pkg/types"
)

type persisterStub struct{ err error }

func (p *persisterStub) Save(context.Context, string, []types.CartItem) error { return p.err }

type profileStub struct {
	profile types.ShippingInfo
	set     bool
}

func (p *profileStub) ShippingProfile() (types.ShippingInfo, bool) { return p.profile, p.set }

type gatewayStub struct {
	intentCalls  int
	confirmCalls int
	intentErr    error
	confirmErr   error
	summary      types.TotalsSnapshot
	lastSecret   string
	lastMethod   string
	lastFee      decimal.Decimal
}

func (g *gatewayStub) RequestIntent(_ context.Context, items []types.CartItem, shippingFee decimal.Decimal) (*types.PaymentIntent, error) {
	g.intentCalls++
	g.lastFee = shippingFee
	if g.intentErr != nil {
		return nil, g.intentErr
	}
	return &types.PaymentIntent{
		ClientSecret: fmt.Sprintf("cs_%d", g.intentCalls),
		OrderSummary: g.summary,
	}, nil
}

func (g *gatewayStub) ConfirmCharge(_ context.Context, clientSecret, paymentMethod string) (*types.PaymentInfo, error) {
	g.confirmCalls++
	g.lastSecret = clientSecret
	g.lastMethod = paymentMethod
	if g.confirmErr != nil {
		err := g.confirmErr
		g.confirmErr = nil
		return nil, err
	}
	return &types.PaymentInfo{ID: "ch_1", Status: enums.PaymentStatusSucceeded}, nil
}

// ordersStub mimics the order service's idempotency contract: a key that
// already produced an order returns that same order instead of a new one.
type ordersStub struct {
	failuresLeft int
	createCalls  int
	keys         []string
	drafts       []types.OrderDraft
	created      map[string]*types.Order
}

func (s *ordersStub) Create(_ context.Context, draft types.OrderDraft, key string) (*types.Order, error) {
	s.createCalls++
	s.keys = append(s.keys, key)
	s.drafts = append(s.drafts, draft)
	if existing, ok := s.created[key]; ok {
		return existing, nil
	}
	if s.failuresLeft > 0 {
		s.failuresLeft--
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "order service down")
	}
	if s.created == nil {
		s.created = map[string]*types.Order{}
	}
	order := &types.Order{
		ID:          fmt.Sprintf("ord_%d", len(s.created)+1),
		PaymentInfo: draft.PaymentInfo,
		TotalPrice:  draft.TotalPrice,
	}
	s.created[key] = order
	return order, nil
}

func (s *ordersStub) List(context.Context, string, pagination.Params) (*types.OrderList, error) {
	return &types.OrderList{}, nil
}

type journalStub struct {
	created []models.CheckoutAttempt
	updates []enums.CheckoutState
}

func (j *journalStub) Create(_ context.Context, attempt *models.CheckoutAttempt) error {
	j.created = append(j.created, *attempt)
	return nil
}

func (j *journalStub) Update(_ context.Context, attempt *models.CheckoutAttempt) error {
	j.updates = append(j.updates, attempt.State)
	return nil
}

type fixture struct {
	orch    *Orchestrator
	cart    *cart.Store
	gateway *gatewayStub
	orders  *ordersStub
	journal *journalStub
	profile *profileStub
}

func validShipping() types.ShippingInfo {
	return types.ShippingInfo{
		Address: "221B Baker Street",
		City:    "Mumbai",
		State:   "Maharashtra",
		Country: "India",
		PinCode: "400001",
		PhoneNo: "1234567890",
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store, err := cart.NewStore("sess-1", &persisterStub{}, nil, time.Hour)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	gw := &gatewayStub{summary: types.TotalsSnapshot{
		ItemsPrice:    decimal.NewFromInt(200),
		TaxPrice:      decimal.NewFromInt(18),
		ShippingPrice: decimal.NewFromInt(50),
		TotalPrice:    decimal.NewFromInt(268),
	}}
	ord := &ordersStub{}
	jnl := &journalStub{}
	prof := &profileStub{profile: validShipping(), set: true}

	orch, err := NewOrchestrator(Deps{
		SessionID: "sess-1",
		Cart:      store,
		Profiles:  prof,
		Gateway:   gw,
		Orders:    ord,
		Journal:   jnl,
		Clock:     func() time.Time { return time.UnixMilli(1700000000000) },
	})
	if err != nil {
		t.Fatalf("NewOrchestrator: %v", err)
	}
	return &fixture{orch: orch, cart: store, gateway: gw, orders: ord, journal: jnl, profile: prof}
}

func (f *fixture) fillCart(t *testing.T) {
	t.Helper()
	product := types.Product{ID: "a", Name: "widget", Price: decimal.NewFromInt(100)}
	if err := f.cart.AddItem(context.Background(), product, 2); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
}

func TestPlaceCashOrder(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.fillCart(t)

	order, err := f.orch.PlaceCashOrder(context.Background())
	if err != nil {
		t.Fatalf("PlaceCashOrder: %v", err)
	}
	if order.ID != "ord_1" {
		t.Fatalf("order id = %s, want ord_1", order.ID)
	}
	if got := f.orch.State(); got != enums.CheckoutStateOrderCreated {
		t.Fatalf("state = %s, want order_created", got)
	}
	if !f.cart.IsEmpty() {
		t.Fatal("cart not cleared after order")
	}

	draft := f.orders.drafts[0]
	if draft.PaymentInfo.ID != "COD_1700000000000" {
		t.Fatalf("payment id = %s, want COD_1700000000000", draft.PaymentInfo.ID)
	}
	if draft.PaymentInfo.Status != enums.PaymentStatusCashOnDelivery {
		t.Fatalf("payment status = %s, want Cash on Delivery", draft.PaymentInfo.Status)
	}
	if !draft.TaxPrice.IsZero() {
		t.Fatalf("cod tax = %s, want 0", draft.TaxPrice)
	}
	if !draft.TotalPrice.Equal(decimal.NewFromInt(250)) {
		t.Fatalf("cod total = %s, want 250 (200 items + 50 shipping)", draft.TotalPrice)
	}
	if f.orders.keys[0] != draft.PaymentInfo.ID {
		t.Fatalf("idempotency key = %s, want the cod payment id", f.orders.keys[0])
	}
}

func TestPlaceCashOrderRequiresCartAndProfile(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	if _, err := f.orch.PlaceCashOrder(context.Background()); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("empty cart error = %v, want validation", err)
	}

	f.fillCart(t)
	f.profile.set = false
	if _, err := f.orch.PlaceCashOrder(context.Background()); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("missing profile error = %v, want validation", err)
	}
}

func TestPlaceCashOrderFailureReturnsToIdle(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.fillCart(t)
	f.orders.failuresLeft = 10

	_, err := f.orch.PlaceCashOrder(context.Background())
	if !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("error = %v, want dependency", err)
	}
	if got := f.orch.State(); got != enums.CheckoutStateIdle {
		t.Fatalf("state = %s, want idle", got)
	}
	if f.cart.IsEmpty() {
		t.Fatal("cart cleared despite failed order")
	}
}

func TestConfirmCardHappyPath(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.fillCart(t)
	ctx := context.Background()

	intent, err := f.orch.RequestIntent(ctx)
	if err != nil {
		t.Fatalf("RequestIntent: %v", err)
	}
	if intent.ClientSecret != "cs_1" {
		t.Fatalf("secret = %s, want cs_1", intent.ClientSecret)
	}
	if got := f.orch.State(); got != enums.CheckoutStateIntentReady {
		t.Fatalf("state = %s, want intent_ready", got)
	}

	order, err := f.orch.ConfirmCard(ctx, "pm_card")
	if err != nil {
		t.Fatalf("ConfirmCard: %v", err)
	}
	if order.ID != "ord_1" {
		t.Fatalf("order id = %s, want ord_1", order.ID)
	}
	if f.gateway.confirmCalls != 1 {
		t.Fatalf("confirm calls = %d, want 1", f.gateway.confirmCalls)
	}
	if f.gateway.lastMethod != "pm_card" {
		t.Fatalf("payment method = %s, want pm_card", f.gateway.lastMethod)
	}
	if !f.gateway.lastFee.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("shipping fee sent = %s, want 50", f.gateway.lastFee)
	}
	if got := f.orch.State(); got != enums.CheckoutStateOrderCreated {
		t.Fatalf("state = %s, want order_created", got)
	}
	if !f.cart.IsEmpty() {
		t.Fatal("cart not cleared after card order")
	}

	// The gateway's summary is authoritative on the card path.
	draft := f.orders.drafts[0]
	if !draft.TaxPrice.Equal(decimal.NewFromInt(18)) {
		t.Fatalf("tax = %s, want the gateway's 18", draft.TaxPrice)
	}
	if !draft.TotalPrice.Equal(decimal.NewFromInt(268)) {
		t.Fatalf("total = %s, want the gateway's 268", draft.TotalPrice)
	}
	if f.orders.keys[0] != "ch_1" {
		t.Fatalf("idempotency key = %s, want charge id ch_1", f.orders.keys[0])
	}
}

func TestConfirmCardDeclinedThenRetried(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.fillCart(t)
	ctx := context.Background()

	if _, err := f.orch.RequestIntent(ctx); err != nil {
		t.Fatalf("RequestIntent: %v", err)
	}

	f.gateway.confirmErr = pkgerrors.New(pkgerrors.CodeGatewayDeclined, "card declined")
	if _, err := f.orch.ConfirmCard(ctx, "pm_card"); !pkgerrors.IsCode(err, pkgerrors.CodeGatewayDeclined) {
		t.Fatalf("error = %v, want declined", err)
	}
	if got := f.orch.State(); got != enums.CheckoutStatePaymentFailed {
		t.Fatalf("state = %s, want payment_failed", got)
	}

	// A declined secret is spent. The retry must go out on a fresh intent,
	// never re-confirm cs_1.
	if _, err := f.orch.ConfirmCard(ctx, "pm_card"); err != nil {
		t.Fatalf("retry ConfirmCard: %v", err)
	}
	if f.gateway.intentCalls != 2 {
		t.Fatalf("intent calls = %d, want 2 (fresh intent after decline)", f.gateway.intentCalls)
	}
	if f.gateway.lastSecret != "cs_2" {
		t.Fatalf("confirmed secret = %s, want the fresh cs_2", f.gateway.lastSecret)
	}
	if got := f.orch.State(); got != enums.CheckoutStateOrderCreated {
		t.Fatalf("state = %s, want order_created", got)
	}
}

func TestChargeCapturedButOrderCreationFails(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.fillCart(t)
	ctx := context.Background()

	if _, err := f.orch.RequestIntent(ctx); err != nil {
		t.Fatalf("RequestIntent: %v", err)
	}

	f.orders.failuresLeft = 1
	_, err := f.orch.ConfirmCard(ctx, "pm_card")
	if !pkgerrors.IsCode(err, pkgerrors.CodePartialFailure) {
		t.Fatalf("error = %v, want partial failure", err)
	}

	typed := pkgerrors.As(err)
	details, ok := typed.Details().(map[string]any)
	if !ok || details["charge_id"] != "ch_1" {
		t.Fatalf("details = %v, want charge_id ch_1", typed.Details())
	}
	if got := f.orch.State(); got != enums.CheckoutStateOrderCreationFailed {
		t.Fatalf("state = %s, want order_creation_failed", got)
	}
	if f.cart.IsEmpty() {
		t.Fatal("cart cleared despite unrecorded order")
	}

	// Retry submits the order only. The charge is never confirmed twice and
	// the idempotency key stays pinned to the charge id.
	order, err := f.orch.RetryOrderCreation(ctx)
	if err != nil {
		t.Fatalf("RetryOrderCreation: %v", err)
	}
	if order.ID != "ord_1" {
		t.Fatalf("order id = %s, want ord_1", order.ID)
	}
	if f.gateway.confirmCalls != 1 {
		t.Fatalf("confirm calls = %d, want exactly 1", f.gateway.confirmCalls)
	}
	if len(f.orders.keys) != 2 || f.orders.keys[0] != "ch_1" || f.orders.keys[1] != "ch_1" {
		t.Fatalf("idempotency keys = %v, want ch_1 both times", f.orders.keys)
	}
	if len(f.orders.created) != 1 {
		t.Fatalf("orders created = %d, want exactly 1 for the repeated key", len(f.orders.created))
	}
	if got := f.orch.State(); got != enums.CheckoutStateOrderCreated {
		t.Fatalf("state = %s, want order_created", got)
	}
}

func TestStaleIntentIsReRequestedBeforeConfirm(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.fillCart(t)
	ctx := context.Background()

	if _, err := f.orch.RequestIntent(ctx); err != nil {
		t.Fatalf("RequestIntent: %v", err)
	}

	// Cart mutates after the intent was issued.
	product := types.Product{ID: "b", Name: "gadget", Price: decimal.NewFromInt(30)}
	if err := f.cart.AddItem(ctx, product, 1); err != nil {
		t.Fatalf("AddItem: %v", err)
	}

	if _, err := f.orch.ConfirmCard(ctx, "pm_card"); err != nil {
		t.Fatalf("ConfirmCard: %v", err)
	}
	if f.gateway.intentCalls != 2 {
		t.Fatalf("intent calls = %d, want 2 (fresh intent for mutated cart)", f.gateway.intentCalls)
	}
	if f.gateway.lastSecret != "cs_2" {
		t.Fatalf("confirmed secret = %s, want the fresh cs_2", f.gateway.lastSecret)
	}
}

func TestRetryOrderCreationRequiresPartialFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	if _, err := f.orch.RetryOrderCreation(context.Background()); !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("error = %v, want state conflict", err)
	}
}

func TestAbandonRules(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.fillCart(t)
	ctx := context.Background()

	if _, err := f.orch.RequestIntent(ctx); err != nil {
		t.Fatalf("RequestIntent: %v", err)
	}
	if err := f.orch.Abandon(ctx); err != nil {
		t.Fatalf("Abandon before confirmation: %v", err)
	}
	if got := f.orch.State(); got != enums.CheckoutStateIdle {
		t.Fatalf("state = %s, want idle", got)
	}

	// Rebuild to a captured-but-unrecorded charge; abandoning now must fail
	// and must surface the charge id.
	if _, err := f.orch.RequestIntent(ctx); err != nil {
		t.Fatalf("RequestIntent: %v", err)
	}
	f.orders.failuresLeft = 1
	if _, err := f.orch.ConfirmCard(ctx, "pm_card"); !pkgerrors.IsCode(err, pkgerrors.CodePartialFailure) {
		t.Fatalf("error = %v, want partial failure", err)
	}

	err := f.orch.Abandon(ctx)
	if !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("abandon error = %v, want state conflict", err)
	}
	typed := pkgerrors.As(err)
	details, ok := typed.Details().(map[string]any)
	if !ok || details["charge_id"] != "ch_1" {
		t.Fatalf("details = %v, want charge_id ch_1", typed.Details())
	}
}

func TestConfirmWithoutIntent(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.fillCart(t)
	if _, err := f.orch.ConfirmCard(context.Background(), "pm_card"); !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("error = %v, want state conflict", err)
	}
}

func TestJournalTracksPartialFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.fillCart(t)
	ctx := context.Background()

	if _, err := f.orch.RequestIntent(ctx); err != nil {
		t.Fatalf("RequestIntent: %v", err)
	}
	f.orders.failuresLeft = 1
	if _, err := f.orch.ConfirmCard(ctx, "pm_card"); err == nil {
		t.Fatal("expected partial failure")
	}

	if len(f.journal.created) != 1 {
		t.Fatalf("journal rows = %d, want 1", len(f.journal.created))
	}
	last := f.journal.updates[len(f.journal.updates)-1]
	if last != enums.CheckoutStateOrderCreationFailed {
		t.Fatalf("last journaled state = %s, want order_creation_failed", last)
	}
}
