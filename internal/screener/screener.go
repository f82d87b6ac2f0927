// Package screener implements the Screener (C3): quality
// classification and a [0,100] quality score for a symbol's
// fundamentals, per spec.md §4.3.
package screener

import (
	"fmt"
	"math"
	"regexp"

	"github.com/rs/zerolog"

	"github.com/aristath/kis-autotrader/internal/apperrors"
	"github.com/aristath/kis-autotrader/internal/domain"
)

const (
	valueTrapROEThreshold      = 5.0
	undervaluedROEThreshold    = 10.0
	perDiscountRatio           = 0.7
	poorReturnDividendThreshold = 1.0
)

var domesticCodePattern = regexp.MustCompile(`^\d{6}$`)

// QuoteSource fetches the current price/PER/PBR for a symbol.
type QuoteSource interface {
	Quote(code string) (domain.Quote, error)
	QuoteOverseas(ticker, exchange string) (domain.Quote, error)
}

// Screener evaluates fundamentals against the sector-relative
// screening procedure.
type Screener struct {
	quotes QuoteSource
	log    zerolog.Logger
}

// New constructs a Screener backed by a quote source (normally the
// broker client).
func New(quotes QuoteSource, log zerolog.Logger) *Screener {
	return &Screener{quotes: quotes, log: log.With().Str("component", "screener").Logger()}
}

func isDomestic(code string) bool {
	return domesticCodePattern.MatchString(code)
}

// Fundamentals resolves a symbol's fundamentals and current quote in
// one call: the quote's PER feeds directly into Evaluate without a
// second fetch.
func (s *Screener) Fundamentals(code string) (domain.Fundamentals, domain.Quote, error) {
	domestic := isDomestic(code)

	var q domain.Quote
	var err error
	var exchange string
	if domestic {
		q, err = s.quotes.Quote(code)
	} else {
		exchange = exchangeMap[code]
		if exchange == "" {
			exchange = "NASD"
		}
		q, err = s.quotes.QuoteOverseas(code, exchange)
	}
	if err != nil {
		return domain.Fundamentals{}, domain.Quote{}, err
	}

	sectorKey := sectorMap[code]
	if sectorKey == "" {
		sectorKey = "other"
	}
	defaults := domesticSectorDefaults
	if !domestic {
		defaults = overseasSectorDefaults
	}
	def, ok := defaults[sectorKey]
	if !ok {
		def = defaults["other"]
	}

	fin := financialsMap[code]

	kind := domain.SymbolDomestic
	if !domestic {
		kind = domain.SymbolOverseas
	}

	return domain.Fundamentals{
		Symbol:                   domain.Symbol{Code: code, Kind: kind, Exchange: exchange},
		ROE:                      fin.ROE,
		DividendYield:            fin.DividendYield,
		OperatingMargin:          fin.OperatingMargin,
		RevenueGrowthYoY:         fin.RevenueGrowthYoY,
		Sector:                   sectorKey,
		SectorAvgPER:             def.AvgPER,
		SectorAvgOperatingMargin: def.AvgOperatingMargin,
	}, q, nil
}

// Evaluate runs the four-branch screening procedure (first match
// wins) and the five-component quality score.
func (s *Screener) Evaluate(f domain.Fundamentals, per float64) domain.ScreeningResult {
	perLow := per > 0 && per < f.SectorAvgPER*perDiscountRatio

	var quality domain.ScreeningQuality
	var eligible bool
	var reason string

	switch {
	case perLow && (f.ROE < valueTrapROEThreshold || f.RevenueGrowthYoY < 0):
		quality = domain.QualityValueTrap
		eligible = false
		reason = fmt.Sprintf("value trap: PER discount met but ROE %.1f%% or revenue growth %.1f%% too weak", f.ROE, f.RevenueGrowthYoY)
	case perLow && f.ROE > undervaluedROEThreshold && f.OperatingMargin > f.SectorAvgOperatingMargin && f.RevenueGrowthYoY > 0:
		quality = domain.QualityUndervalued
		eligible = true
		reason = "undervalued: PER discount with strong ROE, margin, and growth"
	case perLow && f.DividendYield < poorReturnDividendThreshold && !f.HasBuyback:
		quality = domain.QualityPoorShareholderReturn
		eligible = false
		reason = "poor shareholder return: PER discount without dividend or buyback support"
	default:
		quality = domain.QualityPoorShareholderReturn
		eligible = false
		reason = "excluded: PER discount not met"
	}

	score := s.qualityScore(f, per)

	return domain.ScreeningResult{
		Symbol:       f.Symbol,
		Quality:      quality,
		QualityScore: score,
		Eligible:     eligible,
		Reason:       reason,
	}
}

func (s *Screener) qualityScore(f domain.Fundamentals, per float64) float64 {
	perScore := 0.0
	if f.SectorAvgPER > 0 && per > 0 {
		ratio := per / f.SectorAvgPER
		perScore = clamp(30*(1.5-ratio), 0, 30)
	}
	roeScore := clamp(f.ROE/15*25, 0, 25)
	marginScore := 0.0
	if f.SectorAvgOperatingMargin > 0 {
		marginScore = clamp((f.OperatingMargin/f.SectorAvgOperatingMargin)*10, 0, 20)
	}
	growthScore := clamp((f.RevenueGrowthYoY+10)/30*15, 0, 15)
	dividendScore := clamp(f.DividendYield/5*10, 0, 10)

	total := perScore + roeScore + marginScore + growthScore + dividendScore
	return math.Round(total*10) / 10
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ScreenUniverse evaluates every code in a universe, skipping and
// logging any symbol whose fundamentals fetch fails.
func (s *Screener) ScreenUniverse(codes []string) []domain.ScreeningResult {
	results := make([]domain.ScreeningResult, 0, len(codes))
	for _, code := range codes {
		f, q, err := s.Fundamentals(code)
		if err != nil {
			s.log.Warn().Err(apperrors.As(err)).Str("code", code).Msg("skipping symbol: fundamentals fetch failed")
			continue
		}
		results = append(results, s.Evaluate(f, q.PER))
	}
	return results
}
