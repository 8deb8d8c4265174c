package payouts

import (
	"math"
	"math/big"
	"strconv"
	"strings"
	"time"

	"payoutsync/internal/models"
	"payoutsync/pkg/explorer"
)

const (
	// MinPayoutUSD is the spam floor: transfers below this normalized value
	// are assumed to be non-payout noise.
	MinPayoutUSD = 10.0

	// NativeCoinPriceUSD is the fixed reference rate for converting
	// native-coin transfers to USD.
	NativeCoinPriceUSD = 2500.0

	nativeCoinDecimals = 18

	// payoutWindow bounds the rolling recent-activity feed
	payoutWindow = 24 * time.Hour
)

// ProcessPayouts converts raw provider transactions into normalized payout
// records for one firm. It is a pure transformation: only outbound transfers
// from a firm address, inside the trailing 24h window ending at now, above
// the spam floor, on a recognized payout rail, survive. Transactions are
// deduplicated on tx hash across both input sets, first occurrence winning.
func ProcessPayouts(nativeTxs, tokenTxs []explorer.RawTransaction, firmAddresses []string, firmID uint, now time.Time) []models.Payout {
	addrs := make(map[string]struct{}, len(firmAddresses))
	for _, a := range firmAddresses {
		addrs[strings.ToLower(a)] = struct{}{}
	}

	windowStart := now.Add(-payoutWindow)
	seen := make(map[string]struct{})
	payouts := make([]models.Payout, 0)

	add := func(tx explorer.RawTransaction, amount float64, method string) {
		if amount < MinPayoutUSD {
			return
		}
		if _, dup := seen[tx.Hash]; dup {
			return
		}
		seen[tx.Hash] = struct{}{}
		payouts = append(payouts, models.Payout{
			TxHash:        tx.Hash,
			FirmID:        firmID,
			Amount:        amount,
			PaymentMethod: method,
			Timestamp:     tx.Time(),
		})
	}

	keep := func(tx explorer.RawTransaction) bool {
		if _, ok := addrs[strings.ToLower(tx.From)]; !ok {
			return false
		}
		ts := tx.Time()
		return ts.After(windowStart) && !ts.After(now)
	}

	for _, tx := range nativeTxs {
		if !keep(tx) {
			continue
		}
		units, ok := parseBaseUnits(tx.Value, nativeCoinDecimals)
		if !ok {
			continue
		}
		add(tx, units*NativeCoinPriceUSD, models.PaymentMethodCrypto)
	}

	for _, tx := range tokenTxs {
		if !keep(tx) {
			continue
		}
		method, ok := methodForToken(tx.TokenSymbol)
		if !ok {
			continue
		}
		decimals, err := strconv.Atoi(tx.TokenDecimal)
		if err != nil {
			continue
		}
		units, ok := parseBaseUnits(tx.Value, decimals)
		if !ok {
			continue
		}
		// Stable-value tokens are treated 1:1 with USD
		add(tx, units, method)
	}

	return payouts
}

// methodForToken maps a token symbol to a payout rail. Unrecognized symbols
// are dropped entirely: not every token transfer is a supported payout.
func methodForToken(symbol string) (string, bool) {
	switch sym := strings.ToUpper(symbol); {
	case strings.HasPrefix(sym, "RISE"):
		return models.PaymentMethodRise, true
	case sym == "USDC" || sym == "USDT" || sym == "DAI":
		return models.PaymentMethodCrypto, true
	default:
		return "", false
	}
}

// parseBaseUnits converts an integer base-unit value string to a float using
// the token's decimals. big.Float avoids overflow on large transfer values.
func parseBaseUnits(value string, decimals int) (float64, bool) {
	if decimals < 0 {
		return 0, false
	}
	v, ok := new(big.Float).SetString(value)
	if !ok {
		return 0, false
	}
	scale := new(big.Float).SetFloat64(math.Pow10(decimals))
	out, _ := new(big.Float).Quo(v, scale).Float64()
	return out, true
}
