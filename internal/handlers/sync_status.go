package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"payoutsync/internal/payouts"
	"payoutsync/pkg/explorer"
)

var (
	usageTracker *explorer.UsageTracker
	breaker      *explorer.CircuitBreaker
	store        payouts.SyncStore
	orchestrator *payouts.Orchestrator
)

// Init wires the shared pipeline instances into the API handlers. The
// tracker and breaker must be the same instances the sync worker uses, so
// the status endpoint reflects real provider health and budget.
func Init(u *explorer.UsageTracker, b *explorer.CircuitBreaker, s payouts.SyncStore, o *payouts.Orchestrator) {
	usageTracker = u
	breaker = b
	store = s
	orchestrator = o
}

// GetSyncStatus returns the provider usage and circuit breaker snapshot
func GetSyncStatus(c *gin.Context) {
	count, err := store.CountPayouts()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"usage":   usageTracker.GetUsage(),
		"breaker": breaker.GetState(),
		"payouts": count,
	})
}

// ListFirms returns all firms with their sync state
func ListFirms(c *gin.Context) {
	firms, err := store.ListFirms()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, firms)
}

// GetFirmPayouts returns the newest ledger rows for one firm
func GetFirmPayouts(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}

	limit := queryLimit(c, 100)
	rows, err := store.FirmPayouts(uint(id), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, rows)
}

// RecentPayouts returns the newest ledger rows across all firms
func RecentPayouts(c *gin.Context) {
	limit := queryLimit(c, 100)
	rows, err := store.RecentPayouts(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, rows)
}

// TriggerSync runs a full sync pass on demand. The pass is sequential and
// rate-limit throttled, so this can take a while with many firms.
func TriggerSync(c *gin.Context) {
	summary, err := orchestrator.SyncAllFirms()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	errs := make([]gin.H, 0, len(summary.Errors))
	for _, e := range summary.Errors {
		errs = append(errs, gin.H{"firm_id": e.FirmID, "error": e.Err.Error()})
	}
	c.JSON(http.StatusOK, gin.H{
		"firms":         summary.Firms,
		"total_payouts": summary.TotalPayouts,
		"errors":        errs,
	})
}

func queryLimit(c *gin.Context, fallback int) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(fallback)))
	if err != nil || limit <= 0 || limit > 1000 {
		return fallback
	}
	return limit
}
