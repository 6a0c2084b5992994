package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/rl1809/shopzone/internal/core/domain"
	"github.com/rl1809/shopzone/internal/port"
)

const cartKeyPrefix = "shopzone_cart:"

func CartKey(sessionID string) string {
	return cartKeyPrefix + sessionID
}

// CartStore owns the ordered line entries of one session and writes them
// back to the key-value store after every mutation.
type CartStore struct {
	mu     sync.Mutex
	kv     port.KVStore
	key    string
	lines  []domain.LineEntry
	logger *zap.Logger
}

// RestoreCartStore loads the persisted cart for sessionID. Missing or
// malformed data yields an empty cart.
func RestoreCartStore(ctx context.Context, kv port.KVStore, sessionID string, logger *zap.Logger) *CartStore {
	s := &CartStore{
		kv:     kv,
		key:    CartKey(sessionID),
		logger: logger.With(zap.String("cart_key", CartKey(sessionID))),
	}
	s.lines = s.load(ctx)
	return s
}

func (s *CartStore) load(ctx context.Context) []domain.LineEntry {
	raw, ok, err := s.kv.Get(ctx, s.key)
	if err != nil {
		s.logger.Warn("cart restore failed, starting empty", zap.Error(err))
		return nil
	}
	if !ok || raw == "" {
		return nil
	}

	var stored []domain.LineEntry
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		s.logger.Warn("malformed cart in storage, starting empty", zap.Error(err))
		return nil
	}

	// Stored data may predate validation; keep first occurrence of each id.
	seen := make(map[int]struct{}, len(stored))
	lines := make([]domain.LineEntry, 0, len(stored))
	for _, l := range stored {
		if l.ProductID < 0 || l.Quantity < 1 {
			continue
		}
		if _, dup := seen[l.ProductID]; dup {
			continue
		}
		seen[l.ProductID] = struct{}{}
		lines = append(lines, l)
	}
	if len(lines) != len(stored) {
		s.logger.Info("dropped invalid cart lines on restore", zap.Int("dropped", len(stored)-len(lines)))
	}
	return lines
}

func (s *CartStore) AddOrIncrement(ctx context.Context, productID, qty int) error {
	if productID < 0 {
		return fmt.Errorf("%w: %d", domain.ErrInvalidProductID, productID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.indexOf(productID); i >= 0 {
		next := s.lines[i].Quantity + qty
		if next < 1 {
			return fmt.Errorf("%w: product %d would have quantity %d", domain.ErrInvalidQuantity, productID, next)
		}
		s.lines[i].Quantity = next
	} else {
		if qty < 1 {
			return fmt.Errorf("%w: product %d would have quantity %d", domain.ErrInvalidQuantity, productID, qty)
		}
		s.lines = append(s.lines, domain.LineEntry{ProductID: productID, Quantity: qty})
	}

	s.persist(ctx)
	return nil
}

// SetQuantity overwrites the quantity of an existing line. A quantity of zero
// or less removes the line. Unknown products are ignored.
func (s *CartStore) SetQuantity(ctx context.Context, productID, qty int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(productID)
	if i < 0 {
		return
	}
	if qty <= 0 {
		s.removeAt(i)
	} else {
		s.lines[i].Quantity = qty
	}
	s.persist(ctx)
}

func (s *CartStore) Remove(ctx context.Context, productID int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.indexOf(productID); i >= 0 {
		s.removeAt(i)
	}
	s.persist(ctx)
}

func (s *CartStore) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lines = nil
	s.persist(ctx)
}

// RemovePaid takes the paid quantities off the cart. Lines that drop to zero
// are removed; lines or quantities added after paid was taken are kept.
func (s *CartStore) RemovePaid(ctx context.Context, paid []domain.LineEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range paid {
		i := s.indexOf(p.ProductID)
		if i < 0 {
			continue
		}
		if left := s.lines[i].Quantity - p.Quantity; left > 0 {
			s.lines[i].Quantity = left
		} else {
			s.removeAt(i)
		}
	}
	if len(s.lines) == 0 {
		s.lines = nil
	}
	s.persist(ctx)
}

// Entries returns a copy of the lines in insertion order.
func (s *CartStore) Entries() []domain.LineEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.LineEntry, len(s.lines))
	copy(out, s.lines)
	return out
}

func (s *CartStore) TotalItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return domain.TotalQuantity(s.lines)
}

func (s *CartStore) indexOf(productID int) int {
	for i, l := range s.lines {
		if l.ProductID == productID {
			return i
		}
	}
	return -1
}

func (s *CartStore) removeAt(i int) {
	s.lines = append(s.lines[:i], s.lines[i+1:]...)
}

// persist must be called with mu held. Failures are logged, never returned.
func (s *CartStore) persist(ctx context.Context) {
	lines := s.lines
	if lines == nil {
		lines = []domain.LineEntry{}
	}
	payload, err := json.Marshal(lines)
	if err == nil {
		err = s.kv.Set(ctx, s.key, string(payload))
	}
	if err != nil {
		s.logger.Error("cart not persisted",
			zap.Error(fmt.Errorf("%w: %w", domain.ErrPersistenceWriteFailed, err)),
			zap.Int("lines", len(s.lines)))
	}
}
