package models

import "time"

// Payment methods supported as payout rails
const (
	PaymentMethodCrypto = "crypto"
	PaymentMethodRise   = "rise"
)

// Payout is a normalized, deduplicated outbound transfer from a firm's
// address, expressed in USD. tx_hash is the natural key: the same hash
// observed across native and token queries or repeated sync passes maps to
// a single row via idempotent upsert.
type Payout struct {
	ID            uint      `json:"id" gorm:"primaryKey"`
	TxHash        string    `json:"tx_hash" gorm:"type:varchar(100);uniqueIndex"`
	FirmID        uint      `json:"firm_id" gorm:"index"`
	Amount        float64   `json:"amount"`
	PaymentMethod string    `json:"payment_method" gorm:"type:varchar(32)"`
	Timestamp     time.Time `json:"timestamp" gorm:"index"`
	CreatedAt     time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// TableName specifies the table name for Payout
func (Payout) TableName() string {
	return "payout"
}

// Firm is a prop-trading firm whose on-chain addresses pay traders out.
// The last_payout fields are denormalized from the ledger after each sync
// pass; firms themselves are created and deleted elsewhere.
type Firm struct {
	ID               uint          `json:"id" gorm:"primaryKey"`
	Name             string        `json:"name" gorm:"type:varchar(128)"`
	Addresses        []FirmAddress `json:"addresses" gorm:"foreignKey:FirmID"`
	LastPayoutAt     *time.Time    `json:"last_payout_at"`
	LastPayoutAmount float64       `json:"last_payout_amount"`
	LastPayoutTxHash string        `json:"last_payout_tx_hash" gorm:"type:varchar(100)"`
	LastPayoutMethod string        `json:"last_payout_method" gorm:"type:varchar(32)"`
	LastSyncedAt     *time.Time    `json:"last_synced_at"`
	CreatedAt        time.Time     `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt        time.Time     `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for Firm
func (Firm) TableName() string {
	return "firm"
}

// FirmAddress is an on-chain address a firm sends payouts from
type FirmAddress struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	FirmID    uint      `json:"firm_id" gorm:"index"`
	Address   string    `json:"address" gorm:"type:varchar(100)"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// TableName specifies the table name for FirmAddress
func (FirmAddress) TableName() string {
	return "firm_address"
}
