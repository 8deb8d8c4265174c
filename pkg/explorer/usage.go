package explorer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

const usageAlertThreshold = 0.8

// Usage is a snapshot of the current day's provider call budget.
type Usage struct {
	Calls      int     `json:"calls"`
	Limit      int     `json:"limit"`
	Percentage float64 `json:"percentage"`
	Day        string  `json:"day"`
}

// UsageTracker counts provider calls against a daily quota. The counter is
// scoped to the current calendar day and rolls over lazily on the next
// read or write after midnight; no background timer is involved. The tracker
// is observability, not admission control: it never blocks a call.
type UsageTracker struct {
	mu         sync.Mutex
	calls      int
	day        string
	limit      int
	alerted    bool
	webhookURL string

	now        func() time.Time
	httpClient *http.Client
}

// NewUsageTracker creates a tracker for the given daily call limit.
// webhookURL may be empty; when set, a one-line alert is posted there the
// first time usage crosses 80% of the limit in a day.
func NewUsageTracker(limit int, webhookURL string) *UsageTracker {
	if limit <= 0 {
		limit = 100000
	}
	return &UsageTracker{
		limit:      limit,
		webhookURL: webhookURL,
		now:        time.Now,
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

// TrackCall increments the daily counter and returns the resulting usage.
func (u *UsageTracker) TrackCall() Usage {
	u.mu.Lock()
	u.rollover()
	u.calls++
	usage := u.snapshot()
	shouldAlert := usage.Percentage >= usageAlertThreshold*100 && !u.alerted
	if shouldAlert {
		u.alerted = true
	}
	u.mu.Unlock()

	if shouldAlert {
		log.Warnf("Explorer API usage at %.1f%% of daily limit (%d/%d calls on %s)",
			usage.Percentage, usage.Calls, usage.Limit, usage.Day)
		if u.webhookURL != "" {
			go u.postAlert(usage)
		}
	}
	return usage
}

// GetUsage returns the current usage without incrementing the counter.
func (u *UsageTracker) GetUsage() Usage {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.rollover()
	return u.snapshot()
}

// Reset clears the counter for the current day.
func (u *UsageTracker) Reset() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.calls = 0
	u.alerted = false
	u.day = u.now().Format("2006-01-02")
}

// rollover resets the counter when the wall-clock day has changed.
// Caller must hold the mutex.
func (u *UsageTracker) rollover() {
	day := u.now().Format("2006-01-02")
	if day != u.day {
		u.day = day
		u.calls = 0
		u.alerted = false
	}
}

func (u *UsageTracker) snapshot() Usage {
	return Usage{
		Calls:      u.calls,
		Limit:      u.limit,
		Percentage: float64(u.calls) / float64(u.limit) * 100,
		Day:        u.day,
	}
}

// postAlert sends a best-effort webhook notification. Failures are swallowed:
// an unreachable alert sink must never affect the sync pass.
func (u *UsageTracker) postAlert(usage Usage) {
	body, err := json.Marshal(map[string]string{
		"text": fmt.Sprintf("Explorer API usage warning: %d/%d calls (%.1f%%) on %s",
			usage.Calls, usage.Limit, usage.Percentage, usage.Day),
	})
	if err != nil {
		return
	}
	resp, err := u.httpClient.Post(u.webhookURL, "application/json", bytes.NewBuffer(body))
	if err != nil {
		log.Debugf("Usage alert webhook failed: %v", err)
		return
	}
	resp.Body.Close()
}
