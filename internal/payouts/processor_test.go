package payouts

import (
	"math"
	"math/big"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"payoutsync/internal/models"
	"payoutsync/pkg/explorer"
)

var firmAddrs = []string{"0xFirmAddr1", "0xfirmaddr2"}

// baseUnits renders a human amount as an integer base-unit string
func baseUnits(units float64, decimals int) string {
	f := new(big.Float).Mul(big.NewFloat(units), new(big.Float).SetFloat64(math.Pow10(decimals)))
	i, _ := f.Int(nil)
	return i.String()
}

func nativeTx(hash, from string, eth float64, ts time.Time) explorer.RawTransaction {
	return explorer.RawTransaction{
		Hash:      hash,
		From:      from,
		To:        "0xtrader",
		Value:     baseUnits(eth, 18),
		TimeStamp: strconv.FormatInt(ts.Unix(), 10),
	}
}

func tokenTx(hash, from, symbol string, units float64, decimals int, ts time.Time) explorer.RawTransaction {
	return explorer.RawTransaction{
		Hash:         hash,
		From:         from,
		To:           "0xtrader",
		Value:        baseUnits(units, decimals),
		TokenSymbol:  symbol,
		TokenDecimal: strconv.Itoa(decimals),
		TimeStamp:    strconv.FormatInt(ts.Unix(), 10),
	}
}

func TestProcessPayouts(t *testing.T) {
	now := time.Now().Truncate(time.Second)

	t.Run("direction filter keeps only outbound firm transfers", func(t *testing.T) {
		payouts := ProcessPayouts(
			[]explorer.RawTransaction{
				nativeTx("0x1", "0xFIRMADDR1", 1, now.Add(-time.Hour)),
				nativeTx("0x2", "0xsomeoneelse", 1, now.Add(-time.Hour)),
			},
			nil, firmAddrs, 7, now,
		)
		require.Len(t, payouts, 1)
		assert.Equal(t, "0x1", payouts[0].TxHash)
		assert.Equal(t, uint(7), payouts[0].FirmID)
	})

	t.Run("window filter keeps the trailing 24 hours", func(t *testing.T) {
		payouts := ProcessPayouts(
			[]explorer.RawTransaction{
				nativeTx("0x1", firmAddrs[0], 1, now.Add(-23*time.Hour)),
				nativeTx("0x2", firmAddrs[0], 1, now.Add(-25*time.Hour)),
			},
			nil, firmAddrs, 1, now,
		)
		require.Len(t, payouts, 1)
		assert.Equal(t, "0x1", payouts[0].TxHash)
	})

	t.Run("native transfer converts at the reference rate", func(t *testing.T) {
		payouts := ProcessPayouts(
			[]explorer.RawTransaction{nativeTx("0x1", firmAddrs[0], 1, now.Add(-time.Hour))},
			nil, firmAddrs, 1, now,
		)
		require.Len(t, payouts, 1)
		assert.InDelta(t, 2500.0, payouts[0].Amount, 0.01)
		assert.Equal(t, models.PaymentMethodCrypto, payouts[0].PaymentMethod)
	})

	t.Run("token transfer converts via declared decimals", func(t *testing.T) {
		payouts := ProcessPayouts(
			nil,
			[]explorer.RawTransaction{tokenTx("0x1", firmAddrs[0], "USDC", 500, 6, now.Add(-6*time.Hour))},
			firmAddrs, 1, now,
		)
		require.Len(t, payouts, 1)
		assert.InDelta(t, 500.0, payouts[0].Amount, 0.01)
		assert.Equal(t, models.PaymentMethodCrypto, payouts[0].PaymentMethod)
	})

	t.Run("risepay symbols map to the rise rail", func(t *testing.T) {
		payouts := ProcessPayouts(
			nil,
			[]explorer.RawTransaction{tokenTx("0x1", firmAddrs[0], "RISEPAY", 500, 18, now.Add(-6*time.Hour))},
			firmAddrs, 1, now,
		)
		require.Len(t, payouts, 1)
		assert.Equal(t, models.PaymentMethodRise, payouts[0].PaymentMethod)
		assert.InDelta(t, 500.0, payouts[0].Amount, 0.01)
	})

	t.Run("unrecognized token symbols are dropped", func(t *testing.T) {
		payouts := ProcessPayouts(
			nil,
			[]explorer.RawTransaction{tokenTx("0x1", firmAddrs[0], "SHIB", 50000, 18, now.Add(-time.Hour))},
			firmAddrs, 1, now,
		)
		assert.Empty(t, payouts)
	})

	t.Run("spam floor drops amounts below ten dollars", func(t *testing.T) {
		payouts := ProcessPayouts(
			nil,
			[]explorer.RawTransaction{
				tokenTx("0x1", firmAddrs[0], "USDC", 9.99, 6, now.Add(-time.Hour)),
				tokenTx("0x2", firmAddrs[0], "USDC", 10.00, 6, now.Add(-time.Hour)),
			},
			firmAddrs, 1, now,
		)
		require.Len(t, payouts, 1)
		assert.Equal(t, "0x2", payouts[0].TxHash)
	})

	t.Run("same hash across native and token inputs survives once", func(t *testing.T) {
		payouts := ProcessPayouts(
			[]explorer.RawTransaction{nativeTx("0xdup", firmAddrs[0], 1, now.Add(-time.Hour))},
			[]explorer.RawTransaction{tokenTx("0xdup", firmAddrs[0], "USDC", 500, 6, now.Add(-time.Hour))},
			firmAddrs, 1, now,
		)
		require.Len(t, payouts, 1)
		assert.InDelta(t, 2500.0, payouts[0].Amount, 0.01, "first normalized record wins")
	})

	t.Run("mixed realistic pass", func(t *testing.T) {
		payouts := ProcessPayouts(
			nil,
			[]explorer.RawTransaction{
				tokenTx("0x1", firmAddrs[0], "RISEPAY", 500, 18, now.Add(-6*time.Hour)),
				tokenTx("0x2", firmAddrs[0], "USDC", 5, 6, now.Add(-time.Hour)),
			},
			firmAddrs, 1, now,
		)
		require.Len(t, payouts, 1)
		assert.Equal(t, models.PaymentMethodRise, payouts[0].PaymentMethod)
		assert.InDelta(t, 500.0, payouts[0].Amount, 0.01)
	})
}
