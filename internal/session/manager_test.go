package session

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/rahulmehra/storefront-backend/pkg/db/models"
	pkgerrors "github.com/rahulmehra/storefront-backend/pkg/errors"
	"github.com/rahulmehra/storefront-backend/pkg/pagination"
	"github.com/rahulmehra/storefront-backend/pkg/types"
)

type persisterStub struct{}

func (persisterStub) Save(context.Context, string, []types.CartItem) error { return nil }

type loaderStub struct {
	items []types.CartItem
	err   error
}

func (l *loaderStub) Load(context.Context, string) ([]types.CartItem, error) {
	return l.items, l.err
}

type gatewayStub struct{}

func (gatewayStub) RequestIntent(context.Context, []types.CartItem, decimal.Decimal) (*types.PaymentIntent, error) {
	return &types.PaymentIntent{ClientSecret: "cs_1"}, nil
}

func (gatewayStub) ConfirmCharge(context.Context, string, string) (*types.PaymentInfo, error) {
	return &types.PaymentInfo{ID: "ch_1", Status: "succeeded"}, nil
}

type ordersStub struct{ fail bool }

func (s *ordersStub) Create(_ context.Context, draft types.OrderDraft, _ string) (*types.Order, error) {
	if s.fail {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "order service down")
	}
	return &types.Order{ID: "ord_1", PaymentInfo: draft.PaymentInfo}, nil
}

func (s *ordersStub) List(context.Context, string, pagination.Params) (*types.OrderList, error) {
	return &types.OrderList{}, nil
}

type journalStub struct{}

func (journalStub) Create(context.Context, *models.CheckoutAttempt) error { return nil }
func (journalStub) Update(context.Context, *models.CheckoutAttempt) error { return nil }

func newTestManager(t *testing.T, loader CartLoader, ord *ordersStub) *Manager {
	t.Helper()
	mgr, err := NewManager(Deps{
		CartPersister: persisterStub{},
		CartLoader:    loader,
		Gateway:       gatewayStub{},
		Orders:        ord,
		Journal:       journalStub{},
	})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return mgr
}

func TestGetReturnsSameSession(t *testing.T) {
	t.Parallel()

	mgr := newTestManager(t, nil, &ordersStub{})
	ctx := context.Background()

	first, err := mgr.Get(ctx, "sess-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	second, err := mgr.Get(ctx, "sess-1")
	if err != nil {
		t.Fatalf("Get again: %v", err)
	}
	if first != second {
		t.Fatal("same session id produced different sessions")
	}

	if _, err := mgr.Get(ctx, ""); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("empty id error = %v, want validation", err)
	}
}

func TestGetHydratesCartFromLoader(t *testing.T) {
	t.Parallel()

	loader := &loaderStub{items: []types.CartItem{{
		ID:       "a",
		Product:  types.Product{ID: "a", Name: "widget", Price: decimal.NewFromInt(10)},
		Quantity: 3,
	}}}
	mgr := newTestManager(t, loader, &ordersStub{})

	sess, err := mgr.Get(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	items := sess.Cart.Items()
	if len(items) != 1 || items[0].Quantity != 3 {
		t.Fatalf("hydrated cart = %+v, want the loader's line", items)
	}
}

func TestGetSurvivesLoaderFailure(t *testing.T) {
	t.Parallel()

	loader := &loaderStub{err: pkgerrors.New(pkgerrors.CodeDependency, "cart service down")}
	mgr := newTestManager(t, loader, &ordersStub{})

	sess, err := mgr.Get(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !sess.Cart.IsEmpty() {
		t.Fatal("cart not empty after failed hydration")
	}
}

func TestResetRefusedWhileChargeStranded(t *testing.T) {
	t.Parallel()

	ord := &ordersStub{}
	mgr := newTestManager(t, nil, ord)
	ctx := context.Background()

	sess, err := mgr.Get(ctx, "sess-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	product := types.Product{ID: "a", Name: "widget", Price: decimal.NewFromInt(100)}
	if err := sess.Cart.AddItem(ctx, product, 1); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	sess.SetShippingProfile(types.ShippingInfo{
		Address: "221B Baker Street",
		City:    "Mumbai",
		State:   "Maharashtra",
		Country: "India",
		PinCode: "400001",
		PhoneNo: "1234567890",
	})

	if _, err := sess.Checkout.RequestIntent(ctx); err != nil {
		t.Fatalf("RequestIntent: %v", err)
	}
	ord.fail = true
	if _, err := sess.Checkout.ConfirmCard(ctx, "pm_card"); !pkgerrors.IsCode(err, pkgerrors.CodePartialFailure) {
		t.Fatalf("error = %v, want partial failure", err)
	}

	if err := mgr.Reset(ctx, "sess-1"); !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("reset error = %v, want state conflict", err)
	}

	ord.fail = false
	if _, err := sess.Checkout.RetryOrderCreation(ctx); err != nil {
		t.Fatalf("RetryOrderCreation: %v", err)
	}
	if err := mgr.Reset(ctx, "sess-1"); err != nil {
		t.Fatalf("reset after recovery: %v", err)
	}
}
