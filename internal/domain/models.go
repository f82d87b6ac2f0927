// Package domain holds the data types shared across the trading-cycle
// engine: symbols, quotes, fundamentals, screening and sentiment
// results, trade signals, broker-facing positions/orders, risk limits
// and the per-cycle result that the scheduler accumulates.
package domain

import "time"

// SymbolKind distinguishes domestic (KRX) symbols from overseas ones.
// It determines which broker endpoints and fundamentals table a Symbol
// resolves through; the two are never crossed.
type SymbolKind string

const (
	SymbolDomestic SymbolKind = "domestic"
	SymbolOverseas SymbolKind = "overseas"
)

// Symbol identifies a tradeable instrument. Domestic codes match
// ^\d{6}$ (KRX); overseas tickers match ^[A-Z.]+$ and carry an
// exchange tag.
type Symbol struct {
	Code     string
	Kind     SymbolKind
	Exchange string // one of NASD, NYSE, AMEX; empty for domestic
}

func (s Symbol) String() string {
	if s.Kind == SymbolOverseas {
		return s.Code + "@" + s.Exchange
	}
	return s.Code
}

// Quote is an immutable, no-TTL snapshot of a symbol's price. Callers
// re-fetch a fresh Quote whenever a decision needs current price.
type Quote struct {
	Symbol           Symbol
	Price            float64
	PriorClosePct    float64 // % change vs prior close
	High              float64
	Low               float64
	PER               float64
	PBR               float64
}

// Fundamentals carries the quality inputs the Screener evaluates.
type Fundamentals struct {
	Symbol                Symbol
	Name                  string
	ROE                   float64
	DividendYield         float64
	OperatingMargin       float64
	RevenueGrowthYoY      float64
	Sector                string
	SectorAvgPER          float64
	SectorAvgOperatingMargin float64
	HasBuyback            bool
}

// ScreeningQuality classifies a symbol after the screening procedure.
type ScreeningQuality string

const (
	QualityUndervalued         ScreeningQuality = "undervalued"
	QualityValueTrap           ScreeningQuality = "value_trap"
	QualityPoorShareholderReturn ScreeningQuality = "poor_shareholder_return"
)

// ScreeningResult is the outcome of evaluating a Symbol's Fundamentals.
// Eligible is true if and only if Quality is QualityUndervalued.
type ScreeningResult struct {
	Symbol       Symbol
	Quality      ScreeningQuality
	QualityScore float64 // [0,100]
	Eligible     bool
	Reason       string
}

// SentimentClassification buckets a numeric fear/greed score.
type SentimentClassification string

const (
	ClassificationExtremeFear  SentimentClassification = "extreme_fear"
	ClassificationFear         SentimentClassification = "fear"
	ClassificationNeutral      SentimentClassification = "neutral"
	ClassificationGreed        SentimentClassification = "greed"
	ClassificationExtremeGreed SentimentClassification = "extreme_greed"
)

// SentimentSnapshot is a cached numeric fear/greed reading.
type SentimentSnapshot struct {
	Score          float64 // [0,100]
	Classification SentimentClassification
	Source         string // "cnn" or "alternative"
	Timestamp      time.Time
}

// NewsUrgency is the highest urgency seen across analyzed headlines.
type NewsUrgency string

const (
	UrgencyLow      NewsUrgency = "low"
	UrgencyMedium   NewsUrgency = "medium"
	UrgencyHigh     NewsUrgency = "high"
	UrgencyCritical NewsUrgency = "critical"
)

// HybridSentiment combines the numeric fear/greed snapshot with an
// optional LLM news read into a single [-100,+100] score.
type HybridSentiment struct {
	HybridScore    float64 // [-100,100]
	NumericScore   float64 // remapped fear/greed, [-100,100]
	NewsScore      *float64
	NumericWeight  float64
	NewsWeight     float64
	NewsAvailable  bool
	HighestUrgency *NewsUrgency
	FearGreedRaw   SentimentSnapshot
}

// SignalType is the composite-score action recommendation.
type SignalType string

const (
	SignalStrongBuy  SignalType = "strong_buy"
	SignalBuy        SignalType = "buy"
	SignalHold       SignalType = "hold"
	SignalSell       SignalType = "sell"
	SignalStrongSell SignalType = "strong_sell"
)

// TradeSignal is the Signal Engine's per-symbol output.
type TradeSignal struct {
	Symbol              Symbol
	Name                string
	SignalType          SignalType
	Score               float64 // [-100,100]
	SentimentComponent  float64
	QualityComponent    float64
	TechnicalComponent  float64
	Reason              string
	RecommendedAction   string
}

// Position is one held symbol in the broker account.
type Position struct {
	Symbol       Symbol
	Quantity     int
	AverageCost  float64
	CurrentPrice float64
	PnLAmount    float64
	PnLPercent   float64
}

// BalanceSummary is the account-level roll-up of a Balance.
type BalanceSummary struct {
	Cash            float64
	TotalEvaluation float64
}

// Balance is the full account snapshot: holdings plus summary.
type Balance struct {
	Positions []Position
	Summary   BalanceSummary
}

// OrderSide is buy or sell.
type OrderSide string

const (
	OrderBuy  OrderSide = "buy"
	OrderSell OrderSide = "sell"
)

// Order is a submitted broker order. Price is nil for a domestic
// market order; overseas orders always carry a price.
type Order struct {
	Symbol Symbol
	Side   OrderSide
	Qty    int
	Price  *float64
}

// OrderResult is the broker's acknowledgement of an Order.
type OrderResult struct {
	BrokerOrderNumber string
	Timestamp         time.Time
}

// BrokerSession tracks the OAuth-style access token lifecycle.
type BrokerSession struct {
	AccessToken        string
	ExpiresAt          time.Time
	LastRequestInstant time.Time // monotonic instant of the last paced request
}

// RiskLimits bounds the Risk Gate's per-cycle decisions.
type RiskLimits struct {
	MaxDailyTrades        int
	MaxPositionFraction    float64 // per-symbol, of total equity
	MaxTotalPositionFraction float64 // aggregate, of total equity
	MaxDailyLossFraction   float64
	MinSignalScoreBuy      float64
	MaxSignalScoreSell     float64
}

// DefaultRiskLimits mirrors the engine-path defaults from the original
// implementation (see DESIGN.md for the min_signal_score_buy /
// max_signal_score_sell inconsistency this resolves).
func DefaultRiskLimits() RiskLimits {
	return RiskLimits{
		MaxDailyTrades:           10,
		MaxPositionFraction:      0.2,
		MaxTotalPositionFraction: 0.8,
		MaxDailyLossFraction:     0.03,
		MinSignalScoreBuy:        35.0,
		MaxSignalScoreSell:       -20.0,
	}
}

// AutoTraderConfig is the copy-on-write configuration the orchestrator
// reads once at the entry of each cycle.
type AutoTraderConfig struct {
	UniverseName    string
	RiskLimits      RiskLimits
	DryRun          bool
	MaxNotionalKRW  float64
}

// DefaultAutoTraderConfig matches the original's defaults.
func DefaultAutoTraderConfig() AutoTraderConfig {
	return AutoTraderConfig{
		UniverseName:   "kospi_top30",
		RiskLimits:     DefaultRiskLimits(),
		DryRun:         true,
		MaxNotionalKRW: 5_000_000,
	}
}

// ExecutedTrade records one accepted buy or sell, whether placed live
// or recorded as a dry-run.
type ExecutedTrade struct {
	Symbol   Symbol
	Qty      int
	Price    float64
	Notional float64
	DryRun   bool
	OrderRef string // broker order number for a live order; empty for a dry-run record
}

// CycleResult is one completed (or skipped) trading cycle, appended to
// the scheduler's bounded ring history.
type CycleResult struct {
	Timestamp      time.Time
	Status         string // "completed", "skipped", "error"
	Reason         string // populated for skipped/error
	SentimentScore float64
	Scanned        int
	BuySignals     []TradeSignal
	SellSignals    []TradeSignal
	ExecutedBuys   []ExecutedTrade
	ExecutedSells  []ExecutedTrade
	DryRun         bool
}
