// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate/statistics queries used
// primarily for conditional responses (e.g., ETag generation) in the HTTP
// layer. Each function is context-aware and safe to call from services or
// handlers.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/yuvraj-bhatia/virio-pulse/internal/domain"
)

// ResultsStats returns aggregate metadata for the rollups of one client and
// window: the number of rows and the latest ComputedAt among them.
//
// Every recompute refreshes ComputedAt on all surviving rows, so the pair
// changes whenever the materialized view does. When there are no rows, the
// returned count is 0 and lastComputedAt is nil.
func ResultsStats(ctx context.Context, db *gorm.DB, clientID string, rangeDays int) (count int64, lastComputedAt *time.Time, err error) {
	q := db.WithContext(ctx).
		Model(&domain.AttributionResult{}).
		Where("client_id = ? AND window_range_days = ?", clientID, rangeDays)

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest computed_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		ComputedAt time.Time
	}
	if err = q.Select("computed_at").Order("computed_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.ComputedAt, nil
}
