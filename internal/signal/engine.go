// Package signal implements the Signal Engine (C4): the composite
// score combining sentiment, quality, and technical components into a
// single TradeSignal, per spec.md §4.4.
package signal

import (
	"fmt"
	"math"

	"github.com/aristath/kis-autotrader/internal/domain"
)

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// TechnicalProvider optionally enriches the technical component beyond
// the single-quote contrarian formula below, e.g. with an RSI read
// from recent closes. The core contract is unchanged: whatever a
// provider returns is still clamped to [-35,35] by Score.
type TechnicalProvider interface {
	TechnicalComponent(code string, q domain.Quote) (float64, bool)
}

// Engine computes composite TradeSignals.
type Engine struct {
	technical TechnicalProvider
}

// New constructs an Engine. technical may be nil, in which case the
// default single-quote contrarian formula is used unconditionally.
func New(technical TechnicalProvider) *Engine {
	return &Engine{technical: technical}
}

func sentimentComponent(hybrid *domain.HybridSentiment, numeric *domain.SentimentSnapshot) float64 {
	if hybrid != nil {
		return clamp(-hybrid.HybridScore/100*30, -30, 30)
	}
	if numeric != nil {
		return clamp((50-numeric.Score)*0.6, -30, 30)
	}
	return 0
}

func technicalComponentDefault(q domain.Quote) float64 {
	rsiProxy := clamp(-q.PriorClosePct*4, -20, 20)
	bollinger := 0.0
	if q.High > q.Low && q.Low > 0 {
		pctB := (q.Price - q.Low) / (q.High - q.Low)
		bollinger = clamp((0.5-pctB)*30, -15, 15)
	}
	return rsiProxy + bollinger
}

func scoreToSignalType(score float64) domain.SignalType {
	switch {
	case score > 70:
		return domain.SignalStrongBuy
	case score > 35:
		return domain.SignalBuy
	case score < -60:
		return domain.SignalStrongSell
	case score < -20:
		return domain.SignalSell
	default:
		return domain.SignalHold
	}
}

// Score computes the composite TradeSignal for one symbol.
//
// hybrid and numeric are the cycle's already-resolved sentiment
// reads (hybrid preferred; numeric is the fallback path used only
// when no HybridSentiment is available). screening must already be
// resolved for the symbol.
func (e *Engine) Score(name string, q domain.Quote, screening domain.ScreeningResult, hybrid *domain.HybridSentiment, numeric *domain.SentimentSnapshot, notionalCap float64) domain.TradeSignal {
	if !screening.Eligible {
		return domain.TradeSignal{
			Symbol:     screening.Symbol,
			Name:       name,
			SignalType: domain.SignalHold,
			Score:      0,
			Reason:     fmt.Sprintf("excluded: %s", screening.Reason),
		}
	}

	sentimentC := sentimentComponent(hybrid, numeric)
	qualityC := 25.0

	var technicalC float64
	if e.technical != nil {
		if v, ok := e.technical.TechnicalComponent(screening.Symbol.Code, q); ok {
			technicalC = clamp(v, -35, 35)
		} else {
			technicalC = technicalComponentDefault(q)
		}
	} else {
		technicalC = technicalComponentDefault(q)
	}

	total := clamp(sentimentC+qualityC+technicalC, -100, 100)
	signalType := scoreToSignalType(total)

	action := ""
	switch signalType {
	case domain.SignalBuy, domain.SignalStrongBuy:
		if q.Price > 0 {
			qty := int(notionalCap / q.Price)
			if qty < 1 {
				qty = 1
			}
			action = fmt.Sprintf("buy %d @ %.2f", qty, q.Price)
		}
	case domain.SignalSell, domain.SignalStrongSell:
		action = fmt.Sprintf("sell held position @ %.2f", q.Price)
	}

	return domain.TradeSignal{
		Symbol:             screening.Symbol,
		Name:               name,
		SignalType:         signalType,
		Score:              math.Round(total*10) / 10,
		SentimentComponent: sentimentC,
		QualityComponent:   qualityC,
		TechnicalComponent: technicalC,
		Reason:             fmt.Sprintf("%s (quality score %.1f)", screening.Reason, screening.QualityScore),
		RecommendedAction:  action,
	}
}
