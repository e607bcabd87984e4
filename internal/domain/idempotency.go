package domain

import (
	"time"

	"gorm.io/datatypes"
)

// Idempotency records the response of a completed recompute request, keyed by
// (client_id, key). A retried request carrying the same Idempotency-Key gets
// the stored response back instead of triggering another recompute.
type Idempotency struct {
	ID        string         `gorm:"type:TEXT NOT NULL;primaryKey"`
	ClientID  string         `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_client_key,priority:1"`
	Key       string         `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_client_key,priority:2"`
	Status    int            `gorm:"type:INTEGER NOT NULL"`
	Response  datatypes.JSON `gorm:"not null"`
	CreatedAt time.Time      `gorm:"not null;autoCreateTime"`
	ExpiresAt time.Time      `gorm:"not null;index"`
}

// TableName implements the GORM tabler interface.
func (Idempotency) TableName() string { return "idempotency" }
