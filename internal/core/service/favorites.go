package service

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/rl1809/shopzone/internal/core/domain"
	"github.com/rl1809/shopzone/internal/port"
)

const favoritesKeyPrefix = "shopzone_favorites:"

func FavoritesKey(sessionID string) string {
	return favoritesKeyPrefix + sessionID
}

// FavoritesStore keeps the set of favorite product ids of a session. It uses
// the same persistence rules as CartStore.
type FavoritesStore struct {
	mu     sync.Mutex
	kv     port.KVStore
	key    string
	ids    []int
	logger *zap.Logger
}

func RestoreFavoritesStore(ctx context.Context, kv port.KVStore, sessionID string, logger *zap.Logger) *FavoritesStore {
	s := &FavoritesStore{
		kv:     kv,
		key:    FavoritesKey(sessionID),
		logger: logger.With(zap.String("favorites_key", FavoritesKey(sessionID))),
	}

	raw, ok, err := kv.Get(ctx, s.key)
	switch {
	case err != nil:
		s.logger.Warn("favorites restore failed, starting empty", zap.Error(err))
	case ok && raw != "":
		var ids []int
		if err := json.Unmarshal([]byte(raw), &ids); err != nil {
			s.logger.Warn("malformed favorites in storage, starting empty", zap.Error(err))
			break
		}
		for _, id := range ids {
			if !slices.Contains(s.ids, id) {
				s.ids = append(s.ids, id)
			}
		}
	}
	return s
}

// Toggle flips membership of productID and reports whether it is now a favorite.
func (s *FavoritesStore) Toggle(ctx context.Context, productID int) (bool, error) {
	if productID < 0 {
		return false, fmt.Errorf("%w: %d", domain.ErrInvalidProductID, productID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	added := true
	if i := slices.Index(s.ids, productID); i >= 0 {
		s.ids = slices.Delete(s.ids, i, i+1)
		added = false
	} else {
		s.ids = append(s.ids, productID)
	}

	ids := s.ids
	if ids == nil {
		ids = []int{}
	}
	payload, err := json.Marshal(ids)
	if err == nil {
		err = s.kv.Set(ctx, s.key, string(payload))
	}
	if err != nil {
		s.logger.Error("favorites not persisted",
			zap.Error(fmt.Errorf("%w: %w", domain.ErrPersistenceWriteFailed, err)))
	}
	return added, nil
}

func (s *FavoritesStore) Contains(productID int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Contains(s.ids, productID)
}

func (s *FavoritesStore) IDs() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int{}, s.ids...)
}
