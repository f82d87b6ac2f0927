package signal

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aristath/kis-autotrader/internal/domain"
)

func TestRSIProviderNotOKUntilWindowFull(t *testing.T) {
	p := NewRSIProvider()
	for i := 0; i < rsiPeriod; i++ {
		_, ok := p.TechnicalComponent("005930", domain.Quote{Price: 10000 + float64(i)})
		assert.False(t, ok, "expected not-ok before the window fills (sample %d)", i)
	}
}

func TestRSIProviderOKOnceWindowFull(t *testing.T) {
	p := NewRSIProvider()
	var ok bool
	for i := 0; i <= rsiPeriod; i++ {
		_, ok = p.TechnicalComponent("005930", domain.Quote{Price: 10000 + float64(i)})
	}
	assert.True(t, ok)
}

func TestRSIProviderWindowCappedPerSymbol(t *testing.T) {
	p := NewRSIProvider()
	for i := 0; i < rsiWindowCap+10; i++ {
		p.observe("005930", float64(i))
	}
	assert.Len(t, p.windows["005930"], rsiWindowCap)
}

func TestRSIProviderComponentClampedTo35(t *testing.T) {
	p := NewRSIProvider()
	// A strictly rising series drives RSI toward 100 (overbought),
	// which contributes negatively and should clamp at -35.
	price := 10000.0
	var v float64
	var ok bool
	for i := 0; i <= rsiPeriod+5; i++ {
		price += 100
		v, ok = p.TechnicalComponent("005930", domain.Quote{Price: price})
	}
	assert.True(t, ok)
	assert.GreaterOrEqual(t, v, -35.0)
	assert.LessOrEqual(t, v, 35.0)
}

func TestRSIProviderIndependentPerSymbol(t *testing.T) {
	p := NewRSIProvider()
	for i := 0; i < rsiPeriod; i++ {
		p.TechnicalComponent("005930", domain.Quote{Price: 10000})
	}
	_, ok := p.TechnicalComponent("000660", domain.Quote{Price: 20000})
	assert.False(t, ok, "a fresh symbol must start with an empty window regardless of other symbols' state")
}
