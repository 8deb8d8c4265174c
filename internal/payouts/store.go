package payouts

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"payoutsync/internal/models"
)

// SyncStore is the persistence contract the sync pipeline depends on: firm
// lookups, conflict-keyed payout upserts, denormalized firm updates, and
// range deletes for retention. The orchestrator never talks to a specific
// engine directly.
type SyncStore interface {
	ListFirms() ([]models.Firm, error)
	GetFirm(id uint) (*models.Firm, error)
	SaveFirm(firm *models.Firm) error
	UpsertPayouts(payouts []models.Payout) error
	DeletePayoutsBefore(t time.Time) (int64, error)
	CountPayouts() (int64, error)
	RecentPayouts(limit int) ([]models.Payout, error)
	FirmPayouts(firmID uint, limit int) ([]models.Payout, error)
}

// GormStore implements SyncStore on a gorm Postgres connection
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a store backed by the given gorm connection
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// ListFirms returns all firms with their payout addresses preloaded
func (s *GormStore) ListFirms() ([]models.Firm, error) {
	var firms []models.Firm
	if err := s.db.Preload("Addresses").Find(&firms).Error; err != nil {
		return nil, err
	}
	return firms, nil
}

// GetFirm returns a single firm with its addresses preloaded
func (s *GormStore) GetFirm(id uint) (*models.Firm, error) {
	var firm models.Firm
	if err := s.db.Preload("Addresses").First(&firm, id).Error; err != nil {
		return nil, err
	}
	return &firm, nil
}

// SaveFirm persists the firm's denormalized sync state
func (s *GormStore) SaveFirm(firm *models.Firm) error {
	return s.db.Omit("Addresses").Save(firm).Error
}

// UpsertPayouts inserts payout rows with tx_hash as the conflict target.
// Re-running a sync over the same window updates the existing rows instead
// of duplicating or erroring.
func (s *GormStore) UpsertPayouts(payouts []models.Payout) error {
	if len(payouts) == 0 {
		return nil
	}
	return s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "tx_hash"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"firm_id",
			"amount",
			"payment_method",
			"timestamp",
		}),
	}).CreateInBatches(payouts, 100).Error
}

// DeletePayoutsBefore removes ledger rows older than t and returns the
// affected row count.
func (s *GormStore) DeletePayoutsBefore(t time.Time) (int64, error) {
	res := s.db.Where("timestamp < ?", t).Delete(&models.Payout{})
	return res.RowsAffected, res.Error
}

// CountPayouts returns the current ledger row count
func (s *GormStore) CountPayouts() (int64, error) {
	var count int64
	err := s.db.Model(&models.Payout{}).Count(&count).Error
	return count, err
}

// RecentPayouts returns the newest ledger rows across all firms
func (s *GormStore) RecentPayouts(limit int) ([]models.Payout, error) {
	var payouts []models.Payout
	err := s.db.Order("timestamp DESC").Limit(limit).Find(&payouts).Error
	return payouts, err
}

// FirmPayouts returns the newest ledger rows for one firm
func (s *GormStore) FirmPayouts(firmID uint, limit int) ([]models.Payout, error) {
	var payouts []models.Payout
	err := s.db.Where("firm_id = ?", firmID).Order("timestamp DESC").Limit(limit).Find(&payouts).Error
	return payouts, err
}
