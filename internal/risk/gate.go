// Package risk implements the Risk Gate (C5): the ordered per-buy
// checks and daily-loss circuit breaker described in spec.md §4.5.
package risk

import (
	"github.com/aristath/kis-autotrader/internal/apperrors"
	"github.com/aristath/kis-autotrader/internal/domain"
)

// DailyState tracks the per-day counters the Risk Gate consults. It
// is owned by one AutoTrader instance and reset on a KST calendar-day
// boundary.
type DailyState struct {
	Day        string // YYYY-MM-DD in KST
	TradeCount int
}

// Gate evaluates buy candidates against RiskLimits.
type Gate struct{}

// New constructs a Gate.
func New() *Gate { return &Gate{} }

// Decision is the outcome of evaluating one buy candidate.
type Decision struct {
	Accept bool
	Qty    int
	Reason string
}

// CheckDailyLossBreaker returns an error if the drop in total equity
// since the start of the day, as a fraction of start-of-day equity,
// reaches or exceeds MaxDailyLossFraction. Checked once by the
// orchestrator before the buy loop; tripping it aborts the buy phase
// only (sells still proceed).
func (g *Gate) CheckDailyLossBreaker(limits domain.RiskLimits, totalEquity, startOfDayEquity float64) error {
	if startOfDayEquity <= 0 {
		return nil
	}
	loss := (startOfDayEquity - totalEquity) / startOfDayEquity
	if loss >= limits.MaxDailyLossFraction {
		return apperrors.NewStrategy("daily loss circuit breaker tripped", map[string]interface{}{
			"loss_fraction": loss, "limit": limits.MaxDailyLossFraction,
		})
	}
	return nil
}

// Evaluate applies the ordered checks from spec.md §4.5 to one buy
// candidate: minimum score, daily trade count, aggregate exposure,
// a positive price and equity, then notional/position-fraction-capped
// sizing. Sizing reduces qty until both caps hold and rejects the
// candidate if not even one share fits.
func (g *Gate) Evaluate(
	signal domain.TradeSignal,
	limits domain.RiskLimits,
	dailyTradeCount int,
	currentAggregateFraction float64,
	buyMultiplier float64,
	price float64,
	totalEquity float64,
	notionalCap float64,
) Decision {
	if signal.Score < limits.MinSignalScoreBuy {
		return Decision{Accept: false, Reason: "score below min_signal_score_buy"}
	}
	if dailyTradeCount >= limits.MaxDailyTrades {
		return Decision{Accept: false, Reason: "daily trade limit reached"}
	}
	if currentAggregateFraction >= limits.MaxTotalPositionFraction {
		return Decision{Accept: false, Reason: "aggregate position fraction limit reached"}
	}
	if price <= 0 || totalEquity <= 0 {
		return Decision{Accept: false, Reason: "invalid price or equity"}
	}

	baseQty := int(notionalCap / price)
	if baseQty < 1 {
		baseQty = 1
	}
	qty := int(float64(baseQty) * buyMultiplier)
	if qty < 1 {
		qty = 1
	}

	for qty > 0 {
		notional := float64(qty) * price
		if notional <= notionalCap && notional/totalEquity <= limits.MaxPositionFraction {
			break
		}
		qty--
	}
	if qty < 1 {
		return Decision{Accept: false, Reason: "cannot size within notional/position caps"}
	}

	return Decision{Accept: true, Qty: qty}
}
