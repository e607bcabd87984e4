package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yuvraj-bhatia/virio-pulse/internal/domain"
)

// createdAtUTC returns t in UTC, or the current UTC time when t is zero.
func createdAtUTC(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}

// CreateSignal inserts s, assigning a UUID when s.ID is empty. A zero
// CreatedAt is set to now; any other value is kept (converted to UTC).
func CreateSignal(ctx context.Context, db *gorm.DB, s *domain.InboundSignal) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	s.CreatedAt = createdAtUTC(s.CreatedAt)
	return db.WithContext(ctx).Create(s).Error
}

// ListSignalsCreatedIn returns the client's signals created in [start, end),
// ordered by id.
func ListSignalsCreatedIn(ctx context.Context, db *gorm.DB, clientID string, start, end time.Time) ([]domain.InboundSignal, error) {
	return listCreatedIn[domain.InboundSignal](ctx, db, clientID, start, end)
}
