package httpapi

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/yuvraj-bhatia/virio-pulse/internal/http/middleware"
	"github.com/yuvraj-bhatia/virio-pulse/internal/repo"
)

// idemStore backs middleware.IdempotencyStore with the idempotency table.
type idemStore struct {
	db  *gorm.DB
	ttl time.Duration
}

// Lookup returns the stored response or (nil, nil) when none is live.
func (s idemStore) Lookup(ctx context.Context, clientID, key string, now time.Time) (*middleware.StoredResponse, error) {
	rec, err := repo.GetIdempotency(ctx, s.db, clientID, key, now)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &middleware.StoredResponse{Status: rec.Status, Body: []byte(rec.Response)}, nil
}

// Save persists a response. A concurrent retry that stored first wins.
func (s idemStore) Save(ctx context.Context, clientID, key string, status int, body []byte) error {
	_, err := repo.CreateIdempotency(ctx, s.db, clientID, key, status, body, s.ttl)
	if errors.Is(err, repo.ErrDuplicate) {
		return nil
	}
	return err
}
