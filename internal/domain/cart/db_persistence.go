// internal/domain/cart/db_persistence.go
package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Snapshot is the persisted cart of a signed-in user
type Snapshot struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	OwnerKey  string    `gorm:"size:100;not null;uniqueIndex" json:"owner_key"`
	Items     string    `gorm:"type:text;not null" json:"items"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName overrides the table name
func (Snapshot) TableName() string {
	return "cart_snapshots"
}

// UserKey returns the snapshot key of a user's cart
func UserKey(userID string) string {
	return fmt.Sprintf("user:%s", userID)
}

// DBPersistence stores a cart as one row of cart_snapshots
type DBPersistence struct {
	db       *gorm.DB
	ownerKey string
}

// NewDBPersistence creates persistence for the snapshot under ownerKey
func NewDBPersistence(db *gorm.DB, ownerKey string) *DBPersistence {
	return &DBPersistence{db: db, ownerKey: ownerKey}
}

func (d *DBPersistence) Load(ctx context.Context) ([]byte, error) {
	var snapshot Snapshot
	err := d.db.WithContext(ctx).Where("owner_key = ?", d.ownerKey).First(&snapshot).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cart snapshot: %w", err)
	}
	return []byte(snapshot.Items), nil
}

// Save upserts the snapshot row
func (d *DBPersistence) Save(ctx context.Context, data []byte) error {
	snapshot := Snapshot{
		OwnerKey:  d.ownerKey,
		Items:     string(data),
		UpdatedAt: time.Now().UTC(),
	}
	err := d.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "owner_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"items", "updated_at"}),
	}).Create(&snapshot).Error
	if err != nil {
		return fmt.Errorf("failed to save cart snapshot: %w", err)
	}
	return nil
}

func (d *DBPersistence) Clear(ctx context.Context) error {
	err := d.db.WithContext(ctx).Where("owner_key = ?", d.ownerKey).Delete(&Snapshot{}).Error
	if err != nil {
		return fmt.Errorf("failed to clear cart snapshot: %w", err)
	}
	return nil
}
