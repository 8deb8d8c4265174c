package explorer

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tx(hash string, ts time.Time) RawTransaction {
	return RawTransaction{
		Hash:      hash,
		From:      "0xf1",
		Value:     "1",
		TimeStamp: strconv.FormatInt(ts.Unix(), 10),
	}
}

// pagedServer serves pre-built pages keyed by the page query parameter and
// counts requests.
func pagedServer(t *testing.T, pages map[int][]RawTransaction, requests *[]int) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page, err := strconv.Atoi(r.URL.Query().Get("page"))
		require.NoError(t, err)
		*requests = append(*requests, page)

		result, err := json.Marshal(pages[page])
		require.NoError(t, err)
		fmt.Fprintf(w, `{"status":"1","message":"OK","result":%s}`, result)
	}))
}

func newTestFetcher(serverURL string, pageSize int) *HistoryFetcher {
	f := NewHistoryFetcher(newTestClient(serverURL))
	f.PageSize = pageSize
	f.PageDelay = 0
	return f
}

func TestHistoryFetcher(t *testing.T) {
	now := time.Now().Truncate(time.Second)

	t.Run("stops when a page comes back short", func(t *testing.T) {
		pages := map[int][]RawTransaction{
			1: {tx("0x1", now), tx("0x2", now.Add(-time.Hour))},
			2: {tx("0x3", now.Add(-2 * time.Hour)), tx("0x4", now.Add(-3 * time.Hour))},
			3: {tx("0x5", now.Add(-4 * time.Hour))},
		}
		var requests []int
		server := pagedServer(t, pages, &requests)
		defer server.Close()

		txs, err := newTestFetcher(server.URL, 2).FetchAllNativeTransactions("0xf1", time.Time{})
		require.NoError(t, err)
		assert.Len(t, txs, 5)
		assert.Equal(t, []int{1, 2, 3}, requests)
	})

	t.Run("cutoff stops the scan and filters the final page", func(t *testing.T) {
		cutoff := now.Add(-25 * time.Hour)
		pages := map[int][]RawTransaction{
			1: {tx("0x1", now), tx("0x2", now.Add(-time.Hour))},
			2: {tx("0x3", now.Add(-24 * time.Hour)), tx("0x4", now.Add(-30 * time.Hour))},
			3: {tx("0x5", now.Add(-40 * time.Hour))},
		}
		var requests []int
		server := pagedServer(t, pages, &requests)
		defer server.Close()

		txs, err := newTestFetcher(server.URL, 2).FetchAllTokenTransactions("0xf1", cutoff)
		require.NoError(t, err)

		hashes := make([]string, 0, len(txs))
		for _, tx := range txs {
			hashes = append(hashes, tx.Hash)
		}
		assert.Equal(t, []string{"0x1", "0x2", "0x3"}, hashes)
		assert.Equal(t, []int{1, 2}, requests, "no page is fetched past the cutoff")
	})

	t.Run("transaction exactly at the cutoff is excluded", func(t *testing.T) {
		cutoff := now.Add(-24 * time.Hour)
		pages := map[int][]RawTransaction{
			1: {tx("0x1", now), tx("0x2", cutoff)},
		}
		var requests []int
		server := pagedServer(t, pages, &requests)
		defer server.Close()

		txs, err := newTestFetcher(server.URL, 2).FetchAllNativeTransactions("0xf1", cutoff)
		require.NoError(t, err)
		require.Len(t, txs, 1)
		assert.Equal(t, "0x1", txs[0].Hash)
	})

	t.Run("recent fetch is a single bounded page", func(t *testing.T) {
		pages := map[int][]RawTransaction{
			1: {tx("0x1", now), tx("0x2", now.Add(-time.Hour))},
		}
		var requests []int
		server := pagedServer(t, pages, &requests)
		defer server.Close()

		txs, err := newTestFetcher(server.URL, 2).FetchRecentNative("0xf1")
		require.NoError(t, err)
		assert.Len(t, txs, 2)
		assert.Equal(t, []int{1}, requests)
	})
}
