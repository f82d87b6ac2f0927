// Package executor implements the Order Executor (C6): re-quoting,
// dry-run recording, and live submission for accepted buy/sell
// candidates, per spec.md §4.6.
package executor

import (
	"github.com/rs/zerolog"

	"github.com/aristath/kis-autotrader/internal/apperrors"
	"github.com/aristath/kis-autotrader/internal/domain"
)

// Broker is the subset of the broker client the executor needs.
type Broker interface {
	Quote(code string) (domain.Quote, error)
	QuoteOverseas(ticker, exchange string) (domain.Quote, error)
	PlaceOrder(code string, side domain.OrderSide, qty int, price *int) (domain.OrderResult, error)
	PlaceOverseasOrder(ticker, exchange string, qty int, price float64) (domain.OrderResult, error)
}

// Executor places or dry-run-records orders.
type Executor struct {
	broker Broker
	log    zerolog.Logger
}

// New constructs an Executor.
func New(broker Broker, log zerolog.Logger) *Executor {
	return &Executor{broker: broker, log: log.With().Str("component", "executor").Logger()}
}

func (e *Executor) quote(sym domain.Symbol) (domain.Quote, error) {
	if sym.Kind == domain.SymbolOverseas {
		return e.broker.QuoteOverseas(sym.Code, sym.Exchange)
	}
	return e.broker.Quote(sym.Code)
}

// Buy re-quotes the symbol and executes (or dry-run records) a buy
// for qty shares. An OrderError for this symbol is returned to the
// caller, which skips the symbol and continues the cycle; other
// broker errors propagate.
func (e *Executor) Buy(sym domain.Symbol, qty int, dryRun bool) (domain.ExecutedTrade, error) {
	q, err := e.quote(sym)
	if err != nil {
		return domain.ExecutedTrade{}, err
	}

	trade := domain.ExecutedTrade{Symbol: sym, Qty: qty, Price: q.Price, Notional: float64(qty) * q.Price, DryRun: dryRun}
	if dryRun {
		e.log.Info().Str("code", sym.Code).Int("qty", qty).Float64("price", q.Price).Msg("dry-run buy recorded")
		return trade, nil
	}

	var result domain.OrderResult
	if sym.Kind == domain.SymbolOverseas {
		result, err = e.broker.PlaceOverseasOrder(sym.Code, sym.Exchange, qty, q.Price)
	} else {
		result, err = e.broker.PlaceOrder(sym.Code, domain.OrderBuy, qty, nil)
	}
	if err != nil {
		if ae := apperrors.As(err); ae.Code == "ORDER_ERROR" {
			e.log.Warn().Err(ae).Str("code", sym.Code).Msg("buy order rejected, skipping symbol")
			return domain.ExecutedTrade{}, err
		}
		return domain.ExecutedTrade{}, err
	}
	trade.OrderRef = result.BrokerOrderNumber
	return trade, nil
}

// Sell executes (or dry-run records) a full-position sell of qty
// shares at the current quote.
func (e *Executor) Sell(sym domain.Symbol, qty int, dryRun bool) (domain.ExecutedTrade, error) {
	q, err := e.quote(sym)
	if err != nil {
		return domain.ExecutedTrade{}, err
	}

	trade := domain.ExecutedTrade{Symbol: sym, Qty: qty, Price: q.Price, Notional: float64(qty) * q.Price, DryRun: dryRun}
	if dryRun {
		e.log.Info().Str("code", sym.Code).Int("qty", qty).Float64("price", q.Price).Msg("dry-run sell recorded")
		return trade, nil
	}

	var result domain.OrderResult
	if sym.Kind == domain.SymbolOverseas {
		result, err = e.broker.PlaceOverseasOrder(sym.Code, sym.Exchange, qty, q.Price)
	} else {
		result, err = e.broker.PlaceOrder(sym.Code, domain.OrderSell, qty, nil)
	}
	if err != nil {
		if ae := apperrors.As(err); ae.Code == "ORDER_ERROR" {
			e.log.Warn().Err(ae).Str("code", sym.Code).Msg("sell order rejected, skipping symbol")
			return domain.ExecutedTrade{}, err
		}
		return domain.ExecutedTrade{}, err
	}
	trade.OrderRef = result.BrokerOrderNumber
	return trade, nil
}
