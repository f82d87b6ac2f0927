package screener

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/aristath/kis-autotrader/internal/domain"
)

func baseFundamentals() domain.Fundamentals {
	return domain.Fundamentals{
		Symbol:                   domain.Symbol{Code: "005930", Kind: domain.SymbolDomestic},
		ROE:                      15,
		DividendYield:            2,
		OperatingMargin:          20,
		RevenueGrowthYoY:         10,
		Sector:                   "tech",
		SectorAvgPER:             20,
		SectorAvgOperatingMargin: 15,
		HasBuyback:               false,
	}
}

func TestEvaluateFourBranchProcedure(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(f *domain.Fundamentals) (per float64)
		wantQuality domain.ScreeningQuality
		wantEligible bool
	}{
		{
			name: "value trap via low ROE",
			mutate: func(f *domain.Fundamentals) float64 {
				f.ROE = 3
				f.RevenueGrowthYoY = 10
				return 10 // 10 < 20*0.7=14 -> per_low true
			},
			wantQuality:  domain.QualityValueTrap,
			wantEligible: false,
		},
		{
			name: "value trap via negative revenue growth",
			mutate: func(f *domain.Fundamentals) float64 {
				f.ROE = 20
				f.RevenueGrowthYoY = -5
				return 10
			},
			wantQuality:  domain.QualityValueTrap,
			wantEligible: false,
		},
		{
			name: "undervalued",
			mutate: func(f *domain.Fundamentals) float64 {
				f.ROE = 18
				f.OperatingMargin = 25
				f.RevenueGrowthYoY = 12
				return 10
			},
			wantQuality:  domain.QualityUndervalued,
			wantEligible: true,
		},
		{
			name: "poor shareholder return: no dividend, no buyback",
			mutate: func(f *domain.Fundamentals) float64 {
				f.ROE = 8 // not > undervalued threshold(10), not < value-trap threshold(5)
				f.RevenueGrowthYoY = 5
				f.DividendYield = 0.5
				f.HasBuyback = false
				return 10
			},
			wantQuality:  domain.QualityPoorShareholderReturn,
			wantEligible: false,
		},
		{
			name: "catch-all: PER discount not met",
			mutate: func(f *domain.Fundamentals) float64 {
				return 25 // 25 > 20*0.7=14, per_low false
			},
			wantQuality:  domain.QualityPoorShareholderReturn,
			wantEligible: false,
		},
		{
			name: "catch-all: per_low but dividend/buyback rescue it from branch 4",
			mutate: func(f *domain.Fundamentals) float64 {
				f.ROE = 8
				f.RevenueGrowthYoY = 5
				f.DividendYield = 3
				f.HasBuyback = true
				return 10
			},
			wantQuality:  domain.QualityPoorShareholderReturn,
			wantEligible: false,
		},
	}

	s := New(nil, zerolog.Nop())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := baseFundamentals()
			per := tt.mutate(&f)
			result := s.Evaluate(f, per)
			assert.Equal(t, tt.wantQuality, result.Quality)
			assert.Equal(t, tt.wantEligible, result.Eligible)
		})
	}
}

func TestEvaluateEligibleIffUndervalued(t *testing.T) {
	s := New(nil, zerolog.Nop())
	f := baseFundamentals()
	f.ROE = 18
	f.OperatingMargin = 25
	f.RevenueGrowthYoY = 12
	result := s.Evaluate(f, 10)
	assert.True(t, result.Eligible)
	assert.Equal(t, domain.QualityUndervalued, result.Quality)
}

func TestQualityScoreBoundaries(t *testing.T) {
	s := New(nil, zerolog.Nop())

	t.Run("max PER score at ratio <= 0.5", func(t *testing.T) {
		f := domain.Fundamentals{SectorAvgPER: 20, ROE: 0, OperatingMargin: 0, SectorAvgOperatingMargin: 0, RevenueGrowthYoY: -10, DividendYield: 0}
		score := s.qualityScore(f, 10) // ratio 0.5
		assert.InDelta(t, 30.0, score, 0.01)
	})

	t.Run("zero PER score at ratio >= 1.5", func(t *testing.T) {
		f := domain.Fundamentals{SectorAvgPER: 20, RevenueGrowthYoY: -10}
		score := s.qualityScore(f, 30) // ratio 1.5
		assert.InDelta(t, 0.0, score, 0.01)
	})

	t.Run("zero PER score when PER or sector avg non-positive", func(t *testing.T) {
		f := domain.Fundamentals{SectorAvgPER: 0, RevenueGrowthYoY: -10}
		score := s.qualityScore(f, 10)
		assert.InDelta(t, 0.0, score, 0.01)
	})

	t.Run("max ROE score at 15pct+", func(t *testing.T) {
		f := domain.Fundamentals{ROE: 15, RevenueGrowthYoY: -10}
		score := s.qualityScore(f, 0)
		assert.InDelta(t, 25.0, score, 0.01)
	})

	t.Run("ROE score clamps above 15pct", func(t *testing.T) {
		f := domain.Fundamentals{ROE: 30, RevenueGrowthYoY: -10}
		score := s.qualityScore(f, 0)
		assert.InDelta(t, 25.0, score, 0.01)
	})

	t.Run("max margin score at 2x sector", func(t *testing.T) {
		f := domain.Fundamentals{OperatingMargin: 30, SectorAvgOperatingMargin: 15, RevenueGrowthYoY: -10}
		score := s.qualityScore(f, 0)
		assert.InDelta(t, 20.0, score, 0.01)
	})

	t.Run("growth score maps -10 to 0 and +20 to 15", func(t *testing.T) {
		low := s.qualityScore(domain.Fundamentals{RevenueGrowthYoY: -10}, 0)
		high := s.qualityScore(domain.Fundamentals{RevenueGrowthYoY: 20}, 0)
		assert.InDelta(t, 0.0, low, 0.01)
		assert.InDelta(t, 15.0, high, 0.01)
	})

	t.Run("max dividend score at 5pct+", func(t *testing.T) {
		f := domain.Fundamentals{DividendYield: 5, RevenueGrowthYoY: -10}
		score := s.qualityScore(f, 0)
		assert.InDelta(t, 10.0, score, 0.01)
	})

	t.Run("sums all five components and rounds to one decimal", func(t *testing.T) {
		f := domain.Fundamentals{
			ROE: 15, OperatingMargin: 30, SectorAvgOperatingMargin: 15,
			RevenueGrowthYoY: 20, DividendYield: 5, SectorAvgPER: 20,
		}
		score := s.qualityScore(f, 10) // ratio 0.5 -> 30 PER pts
		assert.InDelta(t, 100.0, score, 0.01)
	})
}

func TestIsDomestic(t *testing.T) {
	tests := []struct {
		name string
		code string
		want bool
	}{
		{"six digit domestic code", "005930", true},
		{"overseas ticker", "AAPL", false},
		{"short numeric", "123", false},
		{"seven digits", "1234567", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isDomestic(tt.code))
		})
	}
}
