package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yuvraj-bhatia/virio-pulse/internal/domain"
)

// CreateOpportunity inserts o, assigning a UUID when o.ID is empty.
func CreateOpportunity(ctx context.Context, db *gorm.DB, o *domain.Opportunity) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.Stage == "" {
		o.Stage = domain.StageQualified
	}
	o.CreatedAt = createdAtUTC(o.CreatedAt)
	return db.WithContext(ctx).Create(o).Error
}

// ListOpportunitiesCreatedIn returns the client's opportunities created in
// [start, end), ordered by id.
func ListOpportunitiesCreatedIn(ctx context.Context, db *gorm.DB, clientID string, start, end time.Time) ([]domain.Opportunity, error) {
	return listCreatedIn[domain.Opportunity](ctx, db, clientID, start, end)
}
