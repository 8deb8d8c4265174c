package payouts

import (
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"payoutsync/internal/models"
	"payoutsync/pkg/explorer"
)

// ErrMissingAPIKey aborts a sync pass before any provider call is made
var ErrMissingAPIKey = errors.New("explorer API key is not configured")

const (
	// interAddressDelay throttles sequential address fetches within a firm
	// to respect the shared provider rate limit.
	interAddressDelay = 500 * time.Millisecond

	// retentionHours is the rolling ledger retention window
	retentionHours = 24
)

// TransactionFetcher is the provider surface the orchestrator needs: one
// bounded recent page per address and transfer kind.
type TransactionFetcher interface {
	FetchRecentNative(address string) ([]explorer.RawTransaction, error)
	FetchRecentToken(address string) ([]explorer.RawTransaction, error)
}

// Notifier receives payout sync events, fire-and-forget
type Notifier interface {
	PublishPayoutEvent(event PayoutEvent) error
}

// PayoutEvent describes the outcome of one firm's sync for downstream
// notification consumers.
type PayoutEvent struct {
	FirmID      uint      `json:"firm_id"`
	FirmName    string    `json:"firm_name"`
	NewPayouts  int       `json:"new_payouts"`
	TotalAmount float64   `json:"total_amount"`
	LatestHash  string    `json:"latest_tx_hash"`
	SyncedAt    time.Time `json:"synced_at"`
}

// FirmSyncResult reports one firm's sync outcome. Err is recorded, not
// thrown: a single firm's failure never aborts an all-firms pass.
type FirmSyncResult struct {
	FirmID     uint
	NewPayouts int
	Err        error
}

// SyncSummary aggregates an all-firms pass
type SyncSummary struct {
	Firms        int
	TotalPayouts int
	Errors       []FirmSyncResult
}

// CleanupResult reports a retention purge
type CleanupResult struct {
	Deleted int64
	Err     error
}

// Orchestrator runs the per-firm and all-firms sync passes. It is driven by
// an external cron-style trigger, runs a single sequential pass at a time,
// and deliberately throttles provider calls rather than fanning out.
type Orchestrator struct {
	store    SyncStore
	fetcher  TransactionFetcher
	notifier Notifier
	apiKey   string

	// AddressDelay is the wait between addresses; override to 0 in tests.
	AddressDelay time.Duration

	now func() time.Time
}

// NewOrchestrator wires the sync pipeline. notifier may be nil.
func NewOrchestrator(store SyncStore, fetcher TransactionFetcher, notifier Notifier, apiKey string) *Orchestrator {
	return &Orchestrator{
		store:        store,
		fetcher:      fetcher,
		notifier:     notifier,
		apiKey:       apiKey,
		AddressDelay: interAddressDelay,
		now:          time.Now,
	}
}

// SyncFirmPayouts fetches and normalizes the recent activity of every
// address a firm pays out from, upserts the resulting ledger rows, and
// refreshes the firm's denormalized last-payout fields.
func (o *Orchestrator) SyncFirmPayouts(firm *models.Firm) FirmSyncResult {
	result := FirmSyncResult{FirmID: firm.ID}

	if o.apiKey == "" {
		result.Err = ErrMissingAPIKey
		return result
	}

	var nativeTxs, tokenTxs []explorer.RawTransaction
	addresses := make([]string, 0, len(firm.Addresses))

	for i, addr := range firm.Addresses {
		addresses = append(addresses, addr.Address)

		native, err := o.fetcher.FetchRecentNative(addr.Address)
		if err != nil {
			result.Err = fmt.Errorf("fetch native transactions for %s: %w", addr.Address, err)
			return result
		}
		nativeTxs = append(nativeTxs, native...)

		token, err := o.fetcher.FetchRecentToken(addr.Address)
		if err != nil {
			result.Err = fmt.Errorf("fetch token transactions for %s: %w", addr.Address, err)
			return result
		}
		tokenTxs = append(tokenTxs, token...)

		if i < len(firm.Addresses)-1 && o.AddressDelay > 0 {
			time.Sleep(o.AddressDelay)
		}
	}

	newPayouts := ProcessPayouts(nativeTxs, tokenTxs, addresses, firm.ID, o.now())
	result.NewPayouts = len(newPayouts)
	if len(newPayouts) == 0 {
		log.Infof("Firm %d: no payouts in window", firm.ID)
		return result
	}

	if err := o.store.UpsertPayouts(newPayouts); err != nil {
		result.Err = fmt.Errorf("upsert payouts for firm %d: %w", firm.ID, err)
		return result
	}

	latest := latestPayout(newPayouts)
	if err := o.updateFirmLastPayout(firm.ID, latest); err != nil {
		log.Errorf("Failed to update last payout for firm %d: %v", firm.ID, err)
	}

	log.Infof("Firm %d: upserted %d payouts, latest %s", firm.ID, len(newPayouts), latest.TxHash)
	o.publishEvent(firm, newPayouts, latest)
	return result
}

// updateFirmLastPayout advances the firm's denormalized payout fields when
// the latest payout is newer than what is recorded, and always stamps
// last_synced_at so an unproductive sync still shows it ran.
func (o *Orchestrator) updateFirmLastPayout(firmID uint, latest models.Payout) error {
	firm, err := o.store.GetFirm(firmID)
	if err != nil {
		return err
	}

	if firm.LastPayoutAt == nil || firm.LastPayoutAt.Before(latest.Timestamp) {
		ts := latest.Timestamp
		firm.LastPayoutAt = &ts
		firm.LastPayoutAmount = latest.Amount
		firm.LastPayoutTxHash = latest.TxHash
		firm.LastPayoutMethod = latest.PaymentMethod
	}

	now := o.now()
	firm.LastSyncedAt = &now
	return o.store.SaveFirm(firm)
}

// SyncAllFirms runs one full pass: every firm in sequence, errors collected
// rather than aborting, then a retention purge of the rolling ledger.
func (o *Orchestrator) SyncAllFirms() (*SyncSummary, error) {
	firms, err := o.store.ListFirms()
	if err != nil {
		return nil, fmt.Errorf("list firms: %w", err)
	}

	summary := &SyncSummary{Firms: len(firms)}
	for i := range firms {
		res := o.SyncFirmPayouts(&firms[i])
		summary.TotalPayouts += res.NewPayouts
		if res.Err != nil {
			log.Errorf("Sync failed for firm %d: %v", res.FirmID, res.Err)
			summary.Errors = append(summary.Errors, res)
		}
	}

	cleanup := o.CleanupOldPayouts(retentionHours)
	if cleanup.Err != nil {
		log.Errorf("Payout cleanup failed: %v", cleanup.Err)
	} else if cleanup.Deleted > 0 {
		log.Infof("Purged %d payouts older than %dh", cleanup.Deleted, retentionHours)
	}

	return summary, nil
}

// CleanupOldPayouts deletes ledger rows older than the given number of
// hours. Store errors are reported in the result, never panicked on.
func (o *Orchestrator) CleanupOldPayouts(hours int) CleanupResult {
	deleted, err := o.store.DeletePayoutsBefore(o.now().Add(-time.Duration(hours) * time.Hour))
	return CleanupResult{Deleted: deleted, Err: err}
}

func (o *Orchestrator) publishEvent(firm *models.Firm, payouts []models.Payout, latest models.Payout) {
	if o.notifier == nil {
		return
	}
	total := 0.0
	for _, p := range payouts {
		total += p.Amount
	}
	event := PayoutEvent{
		FirmID:      firm.ID,
		FirmName:    firm.Name,
		NewPayouts:  len(payouts),
		TotalAmount: total,
		LatestHash:  latest.TxHash,
		SyncedAt:    o.now(),
	}
	if err := o.notifier.PublishPayoutEvent(event); err != nil {
		log.Warnf("Failed to publish payout event for firm %d: %v", firm.ID, err)
	}
}

func latestPayout(payouts []models.Payout) models.Payout {
	latest := payouts[0]
	for _, p := range payouts[1:] {
		if p.Timestamp.After(latest.Timestamp) {
			latest = p
		}
	}
	return latest
}
