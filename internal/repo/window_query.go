package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// listCreatedIn loads rows of T for clientID with created_at in [start, end),
// ordered by id. Bounds are passed in UTC to match how rows are stored.
func listCreatedIn[T any](ctx context.Context, db *gorm.DB, clientID string, start, end time.Time) ([]T, error) {
	var out []T
	err := db.WithContext(ctx).
		Where("client_id = ? AND created_at >= ? AND created_at < ?", clientID, start.UTC(), end.UTC()).
		Order("id asc").
		Find(&out).Error
	return out, err
}
