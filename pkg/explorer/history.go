package explorer

import (
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	defaultPageSize  = 10000
	defaultPageDelay = 200 * time.Millisecond
)

// HistoryFetcher paginates the explorer client. It serves two query shapes:
// a single bounded page for the recent-activity sync, and a full-history
// scan for one-time backfills. The full scan terminates early once a
// supplied cutoff timestamp is passed, so it never fetches pages it no
// longer needs.
type HistoryFetcher struct {
	client *Client

	// PageSize is the maximum rows requested per page.
	PageSize int
	// PageDelay is the wait between page requests; override to 0 in tests.
	PageDelay time.Duration
}

// NewHistoryFetcher creates a fetcher with the default page size and
// inter-page delay.
func NewHistoryFetcher(client *Client) *HistoryFetcher {
	return &HistoryFetcher{
		client:    client,
		PageSize:  defaultPageSize,
		PageDelay: defaultPageDelay,
	}
}

// FetchRecentNative retrieves a single bounded page of native transactions,
// enough to cover the 24h rolling window for an active address.
func (f *HistoryFetcher) FetchRecentNative(address string) ([]RawTransaction, error) {
	return f.client.FetchNativeTransactions(address, 1, f.PageSize)
}

// FetchRecentToken retrieves a single bounded page of token transactions.
func (f *HistoryFetcher) FetchRecentToken(address string) ([]RawTransaction, error) {
	return f.client.FetchTokenTransactions(address, 1, f.PageSize)
}

// FetchAllNativeTransactions retrieves an address's native transaction
// history page by page. A zero cutoff scans the entire history; otherwise the
// scan stops at the first transaction at or before the cutoff and the final
// page is filtered to transactions after it.
func (f *HistoryFetcher) FetchAllNativeTransactions(address string, cutoff time.Time) ([]RawTransaction, error) {
	return f.fetchAll(func(page int) ([]RawTransaction, error) {
		return f.client.FetchNativeTransactions(address, page, f.PageSize)
	}, cutoff)
}

// FetchAllTokenTransactions retrieves an address's token transfer history
// with the same pagination and cutoff semantics as the native scan.
func (f *HistoryFetcher) FetchAllTokenTransactions(address string, cutoff time.Time) ([]RawTransaction, error) {
	return f.fetchAll(func(page int) ([]RawTransaction, error) {
		return f.client.FetchTokenTransactions(address, page, f.PageSize)
	}, cutoff)
}

func (f *HistoryFetcher) fetchAll(fetchPage func(page int) ([]RawTransaction, error), cutoff time.Time) ([]RawTransaction, error) {
	var all []RawTransaction
	for page := 1; ; page++ {
		txs, err := fetchPage(page)
		if err != nil {
			return nil, err
		}

		if !cutoff.IsZero() {
			kept, reached := filterAfterCutoff(txs, cutoff)
			all = append(all, kept...)
			if reached {
				log.Debugf("History scan reached cutoff %s on page %d", cutoff.Format(time.RFC3339), page)
				return all, nil
			}
		} else {
			all = append(all, txs...)
		}

		if len(txs) < f.PageSize {
			return all, nil
		}
		if f.PageDelay > 0 {
			time.Sleep(f.PageDelay)
		}
	}
}

// filterAfterCutoff keeps transactions strictly newer than the cutoff and
// reports whether any transaction at or before the cutoff was seen.
func filterAfterCutoff(txs []RawTransaction, cutoff time.Time) ([]RawTransaction, bool) {
	kept := make([]RawTransaction, 0, len(txs))
	reached := false
	for _, tx := range txs {
		if tx.Time().After(cutoff) {
			kept = append(kept, tx)
		} else {
			reached = true
		}
	}
	return kept, reached
}
