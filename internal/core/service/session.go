package service

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rl1809/shopzone/internal/core/domain"
	"github.com/rl1809/shopzone/internal/core/pricing"
	"github.com/rl1809/shopzone/internal/port"
)

var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// Session bundles the stores and checkout of a single shopper.
type Session struct {
	ID         string
	Cart       *CartStore
	Favorites  *FavoritesStore
	Reconciler *Reconciler

	resolver *Resolver
	engine   *pricing.Engine
	lastUsed time.Time
}

// Snapshot resolves the current cart and prices it.
func (s *Session) Snapshot(ctx context.Context) CartSnapshot {
	lines := s.Cart.Entries()
	resolved, unresolved := s.resolver.Resolve(ctx, lines)
	return CartSnapshot{
		Lines:      lines,
		Resolved:   resolved,
		Unresolved: unresolved,
		Breakdown:  s.engine.ComputeBreakdown(lines, resolved),
		Favorites:  s.Favorites.IDs(),
	}
}

type SessionDeps struct {
	KV       port.KVStore
	Resolver *Resolver
	Engine   *pricing.Engine
	Payment  port.PaymentProcessor
	Orders   port.OrderRepository
	Logger   *zap.Logger
	// IdleTTL is how long an unused session stays in memory. Zero keeps
	// sessions forever.
	IdleTTL time.Duration
}

// Sessions restores sessions lazily from the key-value store and keeps them
// in memory until they have been idle for IdleTTL.
type Sessions struct {
	deps SessionDeps
	now  func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewSessions(deps SessionDeps) *Sessions {
	return &Sessions{
		deps:     deps,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

func (s *Sessions) Get(ctx context.Context, sessionID string) (*Session, error) {
	if !sessionIDPattern.MatchString(sessionID) {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidSession, sessionID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[sessionID]; ok {
		sess.lastUsed = s.now()
		return sess, nil
	}

	cart := RestoreCartStore(ctx, s.deps.KV, sessionID, s.deps.Logger)
	sess := &Session{
		ID:        sessionID,
		Cart:      cart,
		Favorites: RestoreFavoritesStore(ctx, s.deps.KV, sessionID, s.deps.Logger),
		Reconciler: NewReconciler(sessionID, ReconcilerDeps{
			Cart:     cart,
			Resolver: s.deps.Resolver,
			Engine:   s.deps.Engine,
			Payment:  s.deps.Payment,
			Orders:   s.deps.Orders,
			Logger:   s.deps.Logger,
		}),
		resolver: s.deps.Resolver,
		engine:   s.deps.Engine,
		lastUsed: s.now(),
	}
	s.sessions[sessionID] = sess
	return sess, nil
}

// Evict drops sessions idle for longer than IdleTTL and returns how many were
// dropped. Sessions with a checkout in flight are kept. Evicted sessions are
// restored from the key-value store on their next Get.
func (s *Sessions) Evict() int {
	if s.deps.IdleTTL <= 0 {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.deps.IdleTTL)
	evicted := 0
	for id, sess := range s.sessions {
		if sess.lastUsed.After(cutoff) || sess.Reconciler.State().InFlight() {
			continue
		}
		delete(s.sessions, id)
		evicted++
	}
	return evicted
}

// RunEviction calls Evict every interval until ctx is done.
func (s *Sessions) RunEviction(ctx context.Context, interval time.Duration) {
	if interval <= 0 || s.deps.IdleTTL <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Evict(); n > 0 {
				s.deps.Logger.Debug("evicted idle sessions", zap.Int("count", n))
			}
		}
	}
}
