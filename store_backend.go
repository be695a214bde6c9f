package sessionguard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/campuskit/sessionguard/internal/stores"
	"github.com/redis/go-redis/v9"
)

// storeBackend adapts the Redis pending-session store to the
// pendingBackend seam, translating store sentinels into the package's
// public error taxonomy.
type storeBackend struct {
	store *stores.PendingSessionStore
	now   func() time.Time
}

func newStoreBackend(client redis.UniversalClient, now func() time.Time) *storeBackend {
	return &storeBackend{
		store: stores.NewPendingSessionStore(client, "", now),
		now:   now,
	}
}

func (s *storeBackend) Save(ctx context.Context, clientID string, rec PendingSession, ttl time.Duration) error {
	record := &stores.PendingSessionRecord{
		ID:           rec.ID,
		Email:        rec.Email,
		PendingSince: rec.PendingSince,
		ExpiresAt:    s.now().Add(ttl).Unix(),
	}
	if err := s.store.Save(ctx, clientID, record, ttl); err != nil {
		return fmt.Errorf("%w: %v", ErrVerificationUnavailable, err)
	}
	return nil
}

func (s *storeBackend) Get(ctx context.Context, clientID string) (PendingSession, error) {
	record, err := s.store.Get(ctx, clientID)
	if err != nil {
		switch {
		case errors.Is(err, stores.ErrPendingSessionNotFound),
			errors.Is(err, stores.ErrPendingSessionExpired),
			errors.Is(err, stores.ErrPendingSessionCorrupt):
			// Expired and undecodable records both mean no live challenge.
			return PendingSession{}, ErrNoPendingSession
		default:
			return PendingSession{}, fmt.Errorf("%w: %v", ErrVerificationUnavailable, err)
		}
	}
	return PendingSession{
		ID:           record.ID,
		Email:        record.Email,
		PendingSince: record.PendingSince,
	}, nil
}

func (s *storeBackend) Clear(ctx context.Context, clientID string) (bool, error) {
	deleted, err := s.store.Clear(ctx, clientID)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrVerificationUnavailable, err)
	}
	return deleted, nil
}
