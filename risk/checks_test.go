package risk

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/rustyeddy/stratengine/strategies"
)

func enabled() Policy {
	p := DefaultPolicy()
	p.EnableTrading = true
	return p
}

func buy(qty float64) strategies.Signal {
	return strategies.Signal{Type: strategies.Buy, Symbol: "BTCUSDT", Price: 100, Quantity: qty, Confidence: 1}
}

func TestCheck(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		sig    strategies.Signal
		exp    Exposure
		policy Policy
		allow  bool
		codes  []string
	}{
		{"approves within limits", buy(0.1), Exposure{OpenSize: 5}, enabled(), true, nil},
		{"at exactly max size", buy(1), Exposure{OpenSize: 999}, enabled(), true, nil},
		{"over max size", buy(1.5), Exposure{OpenSize: 999}, enabled(), false, []string{MaxPositionSize}},
		{"at exactly loss limit", buy(0.1), Exposure{RealizedPnL: -100}, enabled(), true, nil},
		{"past loss limit", buy(0.1), Exposure{RealizedPnL: -100.01}, enabled(), false, []string{DailyLossLimit}},
		{"both limits", buy(5), Exposure{OpenSize: 999, RealizedPnL: -500}, enabled(), false, []string{MaxPositionSize, DailyLossLimit}},
		{"disabled short-circuits", buy(5), Exposure{OpenSize: 999, RealizedPnL: -500}, DefaultPolicy(), false, []string{TradingDisabled}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			d := Check(tt.sig, tt.exp, tt.policy)
			assert.Equal(t, tt.allow, d.Allowed)

			var got []string
			for _, v := range d.Violations {
				got = append(got, v.Code)
				assert.NotEmpty(t, v.Msg)
			}
			assert.Equal(t, tt.codes, got)
		})
	}
}

func TestCheckDisabledAlwaysRejects(t *testing.T) {
	t.Parallel()

	p := DefaultPolicy()
	for _, sig := range []strategies.Signal{
		{},
		buy(0),
		buy(0.1),
		{Type: strategies.Sell, Symbol: "ETHUSDT", Price: 1, Quantity: 1e-9},
	} {
		d := Check(sig, Exposure{}, p)
		assert.False(t, d.Allowed)
		assert.True(t, d.Has(TradingDisabled))
	}
}

func TestCheckLossLimitRejectsZeroQuantity(t *testing.T) {
	t.Parallel()

	d := Check(buy(0), Exposure{RealizedPnL: -101}, enabled())
	assert.False(t, d.Allowed)
	assert.True(t, d.Has(DailyLossLimit))
	assert.False(t, d.Has(MaxPositionSize))
}

func TestDecisionErr(t *testing.T) {
	t.Parallel()

	assert.NoError(t, Check(buy(0.1), Exposure{}, enabled()).Err())

	err := Check(buy(0.1), Exposure{}, DefaultPolicy()).Err()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRiskRejected)

	var re *RejectedError
	require.True(t, errors.As(err, &re))
	require.Len(t, re.Violations, 1)
	assert.Equal(t, TradingDisabled, re.Violations[0].Code)
	assert.Contains(t, err.Error(), TradingDisabled)
}

func TestCheckBrackets(t *testing.T) {
	t.Parallel()

	d := Check(buy(2), Exposure{}, enabled())
	require.True(t, d.Allowed)
	assert.InDelta(t, 95.0, d.Stop, 1e-9)
	assert.InDelta(t, 110.0, d.TakeProfit, 1e-9)
	assert.InDelta(t, 10.0, d.PlannedRisk, 1e-9)
	assert.InDelta(t, 2.0, d.PlannedRR, 1e-9)

	sell := buy(1)
	sell.Type = strategies.Sell
	d = Check(sell, Exposure{}, enabled())
	assert.InDelta(t, 105.0, d.Stop, 1e-9)
	assert.InDelta(t, 90.0, d.TakeProfit, 1e-9)
}

func TestGateLogsOncePerRejection(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.DebugLevel)
	g := NewGate(zap.New(core))

	assert.True(t, g.Allow(buy(0.1), Exposure{}, enabled()))
	assert.Equal(t, 0, logs.Len())

	assert.False(t, g.Allow(buy(5), Exposure{OpenSize: 999, RealizedPnL: -500}, enabled()))
	require.Equal(t, 1, logs.Len())

	entry := logs.All()[0]
	assert.Equal(t, zap.WarnLevel, entry.Level)
	assert.Equal(t, "signal rejected", entry.Message)
	assert.Equal(t, "BTCUSDT", entry.ContextMap()["symbol"])
}

func TestNewGateNilLogger(t *testing.T) {
	t.Parallel()

	g := NewGate(nil)
	assert.False(t, g.Allow(buy(1), Exposure{}, DefaultPolicy()))
}

func TestPolicyValidate(t *testing.T) {
	t.Parallel()

	require.NoError(t, DefaultPolicy().Validate())

	bad := DefaultPolicy()
	bad.MaxPositionSize = 0
	bad.StopLossPct = 1.5
	err := bad.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_position_size")
	assert.Contains(t, err.Error(), "stop_loss_pct")
}
