package cart

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rahulmehra/storefront-backend/pkg/logger"
	"github.com/rahulmehra/storefront-backend/pkg/types"
)

// DefaultQuietPeriod is how long quantity changes are held back before the
// cart is persisted. Rapid +/- taps collapse into a single write carrying the
// final quantity.
const DefaultQuietPeriod = 300 * time.Millisecond

// Persister stores the full cart for a session.
type Persister interface {
	Save(ctx context.Context, sessionID string, items []types.CartItem) error
}

// Store holds the session's cart lines. Mutations apply locally first and are
// rolled back to the prior snapshot when persistence fails.
type Store struct {
	mu        sync.Mutex
	sessionID string
	items     []types.CartItem
	persister Persister
	logg      *logger.Logger
	quiet     time.Duration

	pending         bool
	pendingSnapshot []types.CartItem
	timer           *time.Timer
}

// NewStore builds a cart store for one session.
func NewStore(sessionID string, persister Persister, logg *logger.Logger, quiet time.Duration) (*Store, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session id required")
	}
	if persister == nil {
		return nil, fmt.Errorf("persister required")
	}
	if quiet <= 0 {
		quiet = DefaultQuietPeriod
	}
	return &Store{
		sessionID: sessionID,
		persister: persister,
		logg:      logg,
		quiet:     quiet,
	}, nil
}

// Seed replaces the local lines without persisting, used when hydrating a
// session from the cart service.
func (s *Store) Seed(items []types.CartItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = cloneItems(items)
}

// Items returns a copy of the current cart lines.
func (s *Store) Items() []types.CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneItems(s.items)
}

// IsEmpty reports whether the cart holds no lines.
func (s *Store) IsEmpty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items) == 0
}

// AddItem inserts a line for the product or, when the product is already in
// the cart, replaces the line's quantity. A non-positive quantity removes the
// line instead.
func (s *Store) AddItem(ctx context.Context, product types.Product, quantity int) error {
	if product.ID == "" {
		return fmt.Errorf("product id required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.flushLocked(ctx); err != nil {
		return err
	}

	snapshot := cloneItems(s.items)
	if quantity <= 0 {
		s.removeLocked(product.ID)
	} else {
		s.upsertLocked(product, quantity)
	}
	return s.persistLocked(ctx, snapshot)
}

// SetQuantity updates a line's quantity locally right away and defers the
// write until the quiet period elapses without further changes. A
// non-positive quantity removes the line.
func (s *Store) SetQuantity(ctx context.Context, itemID string, quantity int) error {
	if itemID == "" {
		return fmt.Errorf("item id required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.containsLocked(itemID) {
		return fmt.Errorf("cart item %q not found", itemID)
	}

	if !s.pending {
		s.pending = true
		s.pendingSnapshot = cloneItems(s.items)
	}

	if quantity <= 0 {
		s.removeLocked(itemID)
	} else {
		for i := range s.items {
			if s.items[i].ID == itemID {
				s.items[i].Quantity = quantity
			}
		}
	}

	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.quiet, func() {
		if err := s.Flush(context.Background()); err != nil && s.logg != nil {
			s.logg.Error(context.Background(), "flushing deferred cart update", err)
		}
	})
	return nil
}

// RemoveItem deletes a line and persists immediately.
func (s *Store) RemoveItem(ctx context.Context, itemID string) error {
	if itemID == "" {
		return fmt.Errorf("item id required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.flushLocked(ctx); err != nil {
		return err
	}

	snapshot := cloneItems(s.items)
	s.removeLocked(itemID)
	return s.persistLocked(ctx, snapshot)
}

// Clear drops every line, typically after an order is accepted.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.dropPendingLocked()
	snapshot := cloneItems(s.items)
	s.items = nil
	return s.persistLocked(ctx, snapshot)
}

// Flush forces any deferred quantity change to be persisted now.
func (s *Store) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked(ctx)
}

// Fingerprint identifies the current cart contents; see ComputeFingerprint.
func (s *Store) Fingerprint() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ComputeFingerprint(s.items)
}

func (s *Store) flushLocked(ctx context.Context) error {
	if !s.pending {
		return nil
	}
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	snapshot := s.pendingSnapshot
	s.pending = false
	s.pendingSnapshot = nil
	return s.persistLocked(ctx, snapshot)
}

func (s *Store) persistLocked(ctx context.Context, snapshot []types.CartItem) error {
	if err := s.persister.Save(ctx, s.sessionID, cloneItems(s.items)); err != nil {
		s.items = snapshot
		return fmt.Errorf("persisting cart: %w", err)
	}
	return nil
}

func (s *Store) dropPendingLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.pending = false
	s.pendingSnapshot = nil
}

func (s *Store) upsertLocked(product types.Product, quantity int) {
	for i := range s.items {
		if s.items[i].ID == product.ID {
			s.items[i].Product = product
			s.items[i].Quantity = quantity
			return
		}
	}
	s.items = append(s.items, types.CartItem{
		ID:       product.ID,
		Product:  product,
		Quantity: quantity,
	})
}

func (s *Store) removeLocked(itemID string) {
	kept := s.items[:0]
	for _, item := range s.items {
		if item.ID != itemID {
			kept = append(kept, item)
		}
	}
	s.items = kept
}

func (s *Store) containsLocked(itemID string) bool {
	for _, item := range s.items {
		if item.ID == itemID {
			return true
		}
	}
	return false
}

func cloneItems(items []types.CartItem) []types.CartItem {
	if len(items) == 0 {
		return nil
	}
	out := make([]types.CartItem, len(items))
	copy(out, items)
	return out
}
