package explorer

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	actionNativeTxList = "txlist"
	actionTokenTxList  = "tokentx"

	defaultMaxRetries = 3
	defaultRetryDelay = time.Second
)

// RawTransaction is a provider-shape transaction record. Token fields are
// empty for native-coin transfers. Never persisted as-is.
type RawTransaction struct {
	Hash            string `json:"hash"`
	From            string `json:"from"`
	To              string `json:"to"`
	Value           string `json:"value"`
	TimeStamp       string `json:"timeStamp"`
	TokenSymbol     string `json:"tokenSymbol"`
	TokenDecimal    string `json:"tokenDecimal"`
	ContractAddress string `json:"contractAddress"`
}

// Time parses the provider's unix-seconds timestamp string. A zero time is
// returned for unparseable values.
func (t RawTransaction) Time() time.Time {
	secs, err := strconv.ParseInt(t.TimeStamp, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(secs, 0)
}

// apiResponse is the provider's JSON envelope. Result is a transaction array
// on success and a free-text string on most errors, so it is kept raw until
// the status is classified.
type apiResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

// Client talks to an etherscan-style block explorer API. All calls route
// through one shared circuit breaker and usage tracker so that every
// component sees the same provider health and budget.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	usage      *UsageTracker
	breaker    *CircuitBreaker

	// MaxRetries is the number of retries after the initial attempt.
	MaxRetries int
	// RetryBaseDelay is the first backoff delay; it doubles per attempt.
	RetryBaseDelay time.Duration
}

// NewClient creates a new explorer API client sharing the given breaker and
// usage tracker.
func NewClient(baseURL, apiKey string, usage *UsageTracker, breaker *CircuitBreaker) *Client {
	if baseURL == "" {
		baseURL = "https://api.etherscan.io/api"
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				IdleConnTimeout:       10 * time.Second,
				TLSHandshakeTimeout:   10 * time.Second,
				ResponseHeaderTimeout: 10 * time.Second,
				ExpectContinueTimeout: 1 * time.Second,
			},
		},
		usage:          usage,
		breaker:        breaker,
		MaxRetries:     defaultMaxRetries,
		RetryBaseDelay: defaultRetryDelay,
	}
}

// FetchNativeTransactions retrieves one page of native-coin transactions for
// an address, retrying transient failures with exponential backoff.
func (c *Client) FetchNativeTransactions(address string, page, offset int) ([]RawTransaction, error) {
	return c.fetchWithRetry(actionNativeTxList, address, page, offset)
}

// FetchTokenTransactions retrieves one page of token-transfer transactions
// for an address, retrying transient failures with exponential backoff.
func (c *Client) FetchTokenTransactions(address string, page, offset int) ([]RawTransaction, error) {
	return c.fetchWithRetry(actionTokenTxList, address, page, offset)
}

// fetchWithRetry wraps fetchOnce with up to MaxRetries retries. The backoff
// delay starts at RetryBaseDelay and doubles for each attempt. Invalid API
// key errors short-circuit immediately.
func (c *Client) fetchWithRetry(action, address string, page, offset int) ([]RawTransaction, error) {
	var lastErr error
	for attempt := 0; attempt <= c.MaxRetries; attempt++ {
		txs, err := c.fetchOnce(action, address, page, offset)
		if err == nil {
			return txs, nil
		}
		if errors.Is(err, ErrInvalidAPIKey) {
			return nil, err
		}
		lastErr = err
		if attempt == c.MaxRetries {
			break
		}
		delay := c.RetryBaseDelay << uint(attempt)
		log.Warnf("Explorer %s fetch failed (attempt %d/%d), retrying in %v: %v",
			action, attempt+1, c.MaxRetries+1, delay, err)
		time.Sleep(delay)
	}
	return nil, lastErr
}

// fetchOnce performs exactly one breaker-guarded HTTP round trip. Each round
// trip increments the usage tracker once, whatever the outcome, so usage
// numbers reflect real provider load.
func (c *Client) fetchOnce(action, address string, page, offset int) ([]RawTransaction, error) {
	var txs []RawTransaction
	err := c.breaker.Execute(func() error {
		var fetchErr error
		txs, fetchErr = c.doFetch(action, address, page, offset)
		return fetchErr
	})
	if err != nil {
		return nil, err
	}
	return txs, nil
}

func (c *Client) doFetch(action, address string, page, offset int) ([]RawTransaction, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}

	q := u.Query()
	q.Add("module", "account")
	q.Add("action", action)
	q.Add("address", address)
	q.Add("sort", "desc")
	q.Add("apikey", c.apiKey)
	if page > 0 {
		q.Add("page", strconv.Itoa(page))
	}
	if offset > 0 {
		q.Add("offset", strconv.Itoa(offset))
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequest(http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if c.usage != nil {
		c.usage.TrackCall()
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &RateLimitError{Message: "HTTP 429"}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API request failed with status code: %d", resp.StatusCode)
	}

	var envelope apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if envelope.Status == "1" {
		var txs []RawTransaction
		if err := json.Unmarshal(envelope.Result, &txs); err != nil {
			return nil, fmt.Errorf("failed to decode result array: %w", err)
		}
		return txs, nil
	}

	return classifyStatusZero(envelope.Message)
}

// classifyStatusZero maps the provider's free-text status=0 messages to the
// closed error set. "No transactions found" is a normal empty result. Unknown
// messages are treated as empty but logged, so a new provider failure mode
// surfaces in the logs instead of being silently swallowed.
func classifyStatusZero(message string) ([]RawTransaction, error) {
	msg := strings.ToLower(message)
	switch {
	case strings.Contains(msg, "no transactions found"),
		strings.Contains(msg, "no records found"):
		return []RawTransaction{}, nil
	case strings.Contains(msg, "invalid api key"):
		return nil, ErrInvalidAPIKey
	case strings.Contains(msg, "rate limit"),
		strings.Contains(msg, "max calls per sec"),
		// The provider is known to use this message as a throttle signal.
		strings.Contains(msg, "no data found, try again"):
		return nil, &RateLimitError{Message: message}
	default:
		log.Warnf("Explorer returned unrecognized status=0 message, treating as empty result: %q", message)
		return []RawTransaction{}, nil
	}
}
