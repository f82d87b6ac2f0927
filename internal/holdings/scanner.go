// Package holdings implements the Holdings Scanner (C7): take-profit
// and stop-loss thresholds plus signal-engine reversal sells over the
// current Balance's positions, per spec.md §4.7.
package holdings

import (
	"fmt"

	"github.com/aristath/kis-autotrader/internal/domain"
	"github.com/aristath/kis-autotrader/internal/screener"
	"github.com/aristath/kis-autotrader/internal/signal"
)

const (
	takeProfitPnLPercent = 10.0
	stopLossPnLPercent   = -5.0
)

// Scanner evaluates held positions for a take-profit/stop-loss/
// reversal sell.
type Scanner struct {
	screener *screener.Screener
	engine   *signal.Engine
}

// New constructs a Scanner.
func New(scr *screener.Screener, engine *signal.Engine) *Scanner {
	return &Scanner{screener: scr, engine: engine}
}

// Scan evaluates every position with quantity > 0, emitting a sell
// signal for take-profit, stop-loss, or signal-engine reversal cases.
// hybrid is the same HybridSentiment snapshot resolved earlier in the
// cycle, reused here rather than refetched (spec.md §9).
func (s *Scanner) Scan(positions []domain.Position, hybrid *domain.HybridSentiment, notionalCap float64) []domain.TradeSignal {
	var sells []domain.TradeSignal
	for _, pos := range positions {
		if pos.Quantity <= 0 {
			continue
		}

		switch {
		case pos.PnLPercent >= takeProfitPnLPercent:
			sells = append(sells, domain.TradeSignal{
				Symbol:            pos.Symbol,
				SignalType:        domain.SignalSell,
				Score:             -40,
				Reason:            fmt.Sprintf("take-profit: return %.2f%% >= %.0f%%", pos.PnLPercent, takeProfitPnLPercent),
				RecommendedAction: fmt.Sprintf("sell %d @ %.2f", pos.Quantity, pos.CurrentPrice),
			})
		case pos.PnLPercent <= stopLossPnLPercent:
			sells = append(sells, domain.TradeSignal{
				Symbol:            pos.Symbol,
				SignalType:        domain.SignalStrongSell,
				Score:             -80,
				Reason:            fmt.Sprintf("stop-loss: return %.2f%% <= %.0f%%", pos.PnLPercent, stopLossPnLPercent),
				RecommendedAction: fmt.Sprintf("sell %d @ %.2f", pos.Quantity, pos.CurrentPrice),
			})
		default:
			f, q, err := s.screener.Fundamentals(pos.Symbol.Code)
			if err != nil {
				continue
			}
			screening := s.screener.Evaluate(f, q.PER)
			sig := s.engine.Score(f.Symbol.Code, q, screening, hybrid, nil, notionalCap)
			if sig.SignalType == domain.SignalSell || sig.SignalType == domain.SignalStrongSell {
				sig.RecommendedAction = fmt.Sprintf("sell %d @ %.2f", pos.Quantity, pos.CurrentPrice)
				sells = append(sells, sig)
			}
		}
	}
	return sells
}
