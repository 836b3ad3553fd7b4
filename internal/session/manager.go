package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rahulmehra/storefront-backend/internal/cart"
	"github.com/rahulmehra/storefront-backend/internal/checkout"
	"github.com/rahulmehra/storefront-backend/internal/gateway"
	"github.com/rahulmehra/storefront-backend/internal/journal"
	"github.com/rahulmehra/storefront-backend/internal/orders"
	"github.com/rahulmehra/storefront-backend/pkg/enums"
	pkgerrors "github.com/rahulmehra/storefront-backend/pkg/errors"
	"github.com/rahulmehra/storefront-backend/pkg/logger"
	"github.com/rahulmehra/storefront-backend/pkg/metrics"
	"github.com/rahulmehra/storefront-backend/pkg/types"
)

// CartLoader hydrates a session's cart from the cart service.
type CartLoader interface {
	Load(ctx context.Context, sessionID string) ([]types.CartItem, error)
}

// Session is the per-visitor container: their cart, their shipping profile,
// and their checkout machine.
type Session struct {
	ID       string
	Cart     *cart.Store
	Checkout *checkout.Orchestrator

	mu       sync.RWMutex
	shipping *types.ShippingInfo
}

// ShippingProfile returns the stored profile, if one has been set.
func (s *Session) ShippingProfile() (types.ShippingInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.shipping == nil {
		return types.ShippingInfo{}, false
	}
	return *s.shipping, true
}

// SetShippingProfile stores an already-validated profile.
func (s *Session) SetShippingProfile(info types.ShippingInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shipping = &info
}

// Manager owns the live sessions, keyed by the session id header.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	deps     Deps
}

// Deps carries everything a new session needs.
type Deps struct {
	CartPersister cart.Persister
	CartLoader    CartLoader
	Gateway       gateway.Service
	Orders        orders.Service
	Journal       journal.Recorder
	Metrics       *metrics.CheckoutMetrics
	Logger        *logger.Logger
	QuietPeriod   time.Duration
}

// NewManager builds the session manager.
func NewManager(deps Deps) (*Manager, error) {
	if deps.CartPersister == nil {
		return nil, fmt.Errorf("cart persister required")
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
	return &Manager{
		sessions: map[string]*Session{},
		deps:     deps,
	}, nil
}

// Get returns the session for the id, creating and hydrating it on first use.
func (m *Manager) Get(ctx context.Context, sessionID string) (*Session, error) {
	if sessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.sessions[sessionID]; ok {
		return existing, nil
	}

	store, err := cart.NewStore(sessionID, m.deps.CartPersister, m.deps.Logger, m.deps.QuietPeriod)
	if err != nil {
		return nil, fmt.Errorf("building cart store: %w", err)
	}

	if m.deps.CartLoader != nil {
		items, err := m.deps.CartLoader.Load(ctx, sessionID)
		if err != nil {
			// A cold cart service should not block browsing; the session
			// starts empty and syncs on the next write.
			if m.deps.Logger != nil {
				m.deps.Logger.Warn(ctx, "hydrating cart failed, starting empty")
			}
		} else {
			store.Seed(items)
		}
	}

	sess := &Session{ID: sessionID, Cart: store}
	orch, err := checkout.NewOrchestrator(checkout.Deps{
		SessionID: sessionID,
		Cart:      store,
		Profiles:  sess,
		Gateway:   m.deps.Gateway,
		Orders:    m.deps.Orders,
		Journal:   m.deps.Journal,
		Metrics:   m.deps.Metrics,
		Logger:    m.deps.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("building checkout orchestrator: %w", err)
	}
	sess.Checkout = orch

	m.sessions[sessionID] = sess
	return sess, nil
}

// Reset drops the session so the next request starts fresh. It is refused
// while a captured charge has no matching order; the charge must be resolved
// through the retry path first.
func (m *Manager) Reset(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[sessionID]
	if !ok {
		return nil
	}

	switch sess.Checkout.State() {
	case enums.CheckoutStatePaymentSucceeded, enums.CheckoutStateOrderCreationFailed:
		return pkgerrors.New(pkgerrors.CodeStateConflict, "session has a captured payment awaiting its order")
	}

	delete(m.sessions, sessionID)
	return nil
}
