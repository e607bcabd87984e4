package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yuvraj-bhatia/virio-pulse/internal/domain"
)

// CreatePost inserts p, assigning a UUID when p.ID is empty. Timestamps are
// stored in UTC so string-compared time columns order correctly on SQLite.
func CreatePost(ctx context.Context, db *gorm.DB, p *domain.ContentPost) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Status == "" {
		p.Status = domain.PostStatusDraft
	}
	if p.PostedAt != nil {
		t := p.PostedAt.UTC()
		p.PostedAt = &t
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	return db.WithContext(ctx).Create(p).Error
}

// ListPosts returns every post of clientID ordered by id.
func ListPosts(ctx context.Context, db *gorm.DB, clientID string) ([]domain.ContentPost, error) {
	var out []domain.ContentPost
	err := db.WithContext(ctx).
		Where("client_id = ?", clientID).
		Order("id asc").
		Find(&out).Error
	return out, err
}

// DeletePost removes a post owned by clientID. Returns ErrNotFound when no
// row matched.
func DeletePost(ctx context.Context, db *gorm.DB, clientID, id string) error {
	res := db.WithContext(ctx).
		Where("id = ? AND client_id = ?", id, clientID).
		Delete(&domain.ContentPost{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
