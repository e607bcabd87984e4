// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// materialized AttributionResult rollups.
//
// Functions:
//
//   - UpsertResults(ctx, db, rows) -> error
//     Inserts rows, or overwrites the computed columns of the existing row
//     with the same (client_id, post_id, window_range_days).
//
//   - DeleteStaleResults(ctx, db, clientID, rangeDays) -> (int64, error)
//     Removes rows of (clientID, rangeDays) whose post no longer exists.
//
//   - ListResultsPage(ctx, db, clientID, rangeDays, offset, limit) -> []domain.AttributionResult, error
//     Returns a page of rows, highest pipeline first.
//
//   - CountResults(ctx, db, clientID, rangeDays) -> (int64, error)
//     Returns the total for pagination metadata.
package repo

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yuvraj-bhatia/virio-pulse/internal/domain"
)

const upsertBatchSize = 200

// resultKey is the natural key of an attribution row.
var resultKey = []clause.Column{{Name: "client_id"}, {Name: "post_id"}, {Name: "window_range_days"}}

// resultComputedColumns are overwritten when a row for the key already exists.
var resultComputedColumns = []string{
	"computed_at",
	"influenced_signal_count",
	"meeting_count",
	"pipeline_amount",
	"revenue_won_amount",
	"confidence",
	"supporting_links",
}

// UpsertResults writes rows in batches keyed by (client_id, post_id,
// window_range_days). An existing row keeps its id.
func UpsertResults(ctx context.Context, db *gorm.DB, rows []domain.AttributionResult) error {
	if len(rows) == 0 {
		return nil
	}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   resultKey,
			DoUpdates: clause.AssignmentColumns(resultComputedColumns),
		}).
		CreateInBatches(&rows, upsertBatchSize).Error
}

// DeleteStaleResults removes the rows of (clientID, rangeDays) whose post is
// no longer one of the client's posts. The post set is read by a subquery, so
// the statement size does not grow with the client.
func DeleteStaleResults(ctx context.Context, db *gorm.DB, clientID string, rangeDays int) (int64, error) {
	db = db.WithContext(ctx)
	posts := db.Model(&domain.ContentPost{}).Select("id").Where("client_id = ?", clientID)
	res := db.
		Where("client_id = ? AND window_range_days = ?", clientID, rangeDays).
		Where("post_id NOT IN (?)", posts).
		Delete(&domain.AttributionResult{})
	return res.RowsAffected, res.Error
}

// ListResultsPage returns a page of rows for (clientID, rangeDays), ordered
// by pipeline amount descending, then post id.
func ListResultsPage(ctx context.Context, db *gorm.DB, clientID string, rangeDays, offset, limit int) ([]domain.AttributionResult, error) {
	var out []domain.AttributionResult
	err := db.WithContext(ctx).
		Where("client_id = ? AND window_range_days = ?", clientID, rangeDays).
		Order("pipeline_amount desc").
		Order("post_id asc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// CountResults returns the number of rows for (clientID, rangeDays).
func CountResults(ctx context.Context, db *gorm.DB, clientID string, rangeDays int) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.AttributionResult{}).
		Where("client_id = ? AND window_range_days = ?", clientID, rangeDays).
		Count(&total).Error
	return total, err
}
