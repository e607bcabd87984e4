package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yuvraj-bhatia/virio-pulse/internal/domain"
)

// GetSettings returns the stored settings of clientID, or ErrNotFound when
// the client never saved any.
func GetSettings(ctx context.Context, db *gorm.DB, clientID string) (*domain.AttributionSettings, error) {
	var s domain.AttributionSettings
	if err := db.WithContext(ctx).Where("client_id = ?", clientID).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// SaveSettings inserts or replaces the settings row of s.ClientID.
func SaveSettings(ctx context.Context, db *gorm.DB, s *domain.AttributionSettings) error {
	s.UpdatedAt = time.Now().UTC()
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "client_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"attribution_window_days", "use_soft_attribution", "updated_at"}),
		}).
		Create(s).Error
}
