package signal

import (
	"sync"

	"github.com/markcheno/go-talib"

	"github.com/aristath/kis-autotrader/internal/domain"
)

const (
	rsiPeriod    = 14
	rsiWindowCap = rsiPeriod + 1
)

// RSIProvider is an optional TechnicalProvider that supplements the
// Signal Engine's default contrarian formula with a real RSI read.
// Quote is a single immutable snapshot (spec.md's Data Model carries
// no historical series), so RSIProvider builds its own short rolling
// window of observed closes per symbol across successive cycles; it
// reports ok=false until that window has enough samples, in which
// case the engine falls back to the default formula for that symbol.
type RSIProvider struct {
	mu      sync.Mutex
	windows map[string][]float64
}

// NewRSIProvider constructs an empty RSIProvider.
func NewRSIProvider() *RSIProvider {
	return &RSIProvider{windows: make(map[string][]float64)}
}

// observe appends the quote's price to the symbol's rolling window,
// capped at rsiWindowCap samples.
func (p *RSIProvider) observe(code string, price float64) []float64 {
	w := append(p.windows[code], price)
	if len(w) > rsiWindowCap {
		w = w[len(w)-rsiWindowCap:]
	}
	p.windows[code] = w
	return w
}

// TechnicalComponent implements signal.TechnicalProvider. It returns
// (50 - RSI) * 0.7 from talib's RSI, clamped to [-35,35]: readings
// above 50 contribute negatively (contrarian), below 50 positively,
// linearly across the whole range.
func (p *RSIProvider) TechnicalComponent(code string, q domain.Quote) (float64, bool) {
	p.mu.Lock()
	closes := p.observe(code, q.Price)
	p.mu.Unlock()

	if len(closes) < rsiPeriod+1 {
		return 0, false
	}

	values := talib.Rsi(closes, rsiPeriod)
	if len(values) == 0 {
		return 0, false
	}
	rsi := values[len(values)-1]
	if rsi != rsi { // NaN
		return 0, false
	}

	return clamp((50-rsi)*0.7, -35, 35), true
}
