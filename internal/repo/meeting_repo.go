package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yuvraj-bhatia/virio-pulse/internal/domain"
)

// CreateMeeting inserts m, assigning a UUID when m.ID is empty.
func CreateMeeting(ctx context.Context, db *gorm.DB, m *domain.Meeting) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.Outcome == "" {
		m.Outcome = domain.OutcomeScheduled
	}
	m.CreatedAt = createdAtUTC(m.CreatedAt)
	return db.WithContext(ctx).Create(m).Error
}

// ListMeetingsCreatedIn returns the client's meetings created in [start, end),
// ordered by id.
func ListMeetingsCreatedIn(ctx context.Context, db *gorm.DB, clientID string, start, end time.Time) ([]domain.Meeting, error) {
	return listCreatedIn[domain.Meeting](ctx, db, clientID, start, end)
}
