// internal/infrastructure/database/postgres/migration.go
package postgres

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/xcybeamer/storefront-backend/internal/domain/cart"
	"github.com/xcybeamer/storefront-backend/internal/domain/checkout"
	"gorm.io/gorm"
)

// Migration handles database migrations
type Migration struct {
	db  *gorm.DB
	log logrus.FieldLogger
}

// NewMigration creates a new migration instance
func NewMigration(db *gorm.DB, log logrus.FieldLogger) *Migration {
	return &Migration{
		db:  db,
		log: log.WithField("component", "migration"),
	}
}

// RunAutoMigrations runs GORM auto-migrations for all models
func (m *Migration) RunAutoMigrations() error {
	m.log.Info("Running database auto-migrations")

	models := []interface{}{
		&cart.Snapshot{},
		&checkout.Attempt{},
	}

	for _, model := range models {
		m.log.Debugf("Migrating model: %T", model)
		if err := m.db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate model %T: %w", model, err)
		}
	}

	m.log.Info("Database auto-migrations completed")
	return nil
}

// CreateIndexes creates indexes the models do not declare
func (m *Migration) CreateIndexes() error {
	indexes := []string{
		// Cart snapshot indexes
		"CREATE INDEX IF NOT EXISTS idx_cart_snapshots_updated_at ON cart_snapshots(updated_at)",

		// Checkout attempt indexes
		"CREATE INDEX IF NOT EXISTS idx_checkout_attempts_owner_created ON checkout_attempts(owner_key, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_checkout_attempts_status_created ON checkout_attempts(status, created_at DESC)",
	}

	failCount := 0
	for _, indexSQL := range indexes {
		if err := m.db.Exec(indexSQL).Error; err != nil {
			m.log.WithError(err).Warn("Failed to create index")
			failCount++
		}
	}

	m.log.WithFields(logrus.Fields{
		"created": len(indexes) - failCount,
		"failed":  failCount,
	}).Info("Database indexes ensured")
	if failCount > 0 {
		return fmt.Errorf("%d of %d indexes failed", failCount, len(indexes))
	}
	return nil
}

// CleanupStaleData drops user carts untouched since before cutoff and
// failed checkout attempts older than cutoff
func (m *Migration) CleanupStaleData(cutoff time.Time) error {
	result := m.db.Where("updated_at < ?", cutoff).Delete(&cart.Snapshot{})
	if result.Error != nil {
		return fmt.Errorf("failed to prune cart snapshots: %w", result.Error)
	}
	snapshots := result.RowsAffected

	result = m.db.Where("status = ? AND created_at < ?", checkout.AttemptStatusFailed, cutoff).Delete(&checkout.Attempt{})
	if result.Error != nil {
		return fmt.Errorf("failed to prune checkout attempts: %w", result.Error)
	}

	m.log.WithFields(logrus.Fields{
		"cart_snapshots":    snapshots,
		"checkout_attempts": result.RowsAffected,
	}).Info("Stale data cleanup completed")
	return nil
}
