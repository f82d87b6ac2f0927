// Package persistence is the durability layer underneath the
// Scheduler's in-memory ring buffer: an append-only record of
// CycleResults and the orders within them, per SPEC_FULL.md's ambient
// persistence section. The core cycle logic never writes to it
// directly — only the scheduler, after a CycleResult is already fully
// formed, performs this side effect.
package persistence

import (
	"database/sql"
	"encoding/json"

	"github.com/rs/zerolog"

	"github.com/aristath/kis-autotrader/internal/database"
	"github.com/aristath/kis-autotrader/internal/domain"
)

// HistoryStore persists CycleResults and their constituent orders.
type HistoryStore struct {
	db  *database.DB
	log zerolog.Logger
}

// NewHistoryStore constructs a HistoryStore over an already-migrated DB.
func NewHistoryStore(db *database.DB, log zerolog.Logger) *HistoryStore {
	return &HistoryStore{db: db, log: log.With().Str("component", "history_store").Logger()}
}

// Append records one completed CycleResult and its executed trades.
// Failures are logged, not returned: persistence is a best-effort
// durability layer underneath the authoritative in-memory ring, never
// a reason to fail the cycle that already completed.
func (s *HistoryStore) Append(result domain.CycleResult) {
	payload, err := json.Marshal(result)
	if err != nil {
		s.log.Warn().Err(err).Msg("failed to marshal cycle result for persistence")
		return
	}

	res, err := s.db.Exec(
		`INSERT INTO cycle_history (timestamp, status, reason, sentiment_score, scanned, dry_run, payload)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		result.Timestamp.Format(timeLayout), result.Status, result.Reason,
		result.SentimentScore, result.Scanned, boolToInt(result.DryRun), string(payload),
	)
	if err != nil {
		s.log.Warn().Err(err).Msg("failed to persist cycle result")
		return
	}
	if _, err := res.LastInsertId(); err != nil {
		s.log.Warn().Err(err).Msg("failed to read cycle history insert id")
	}

	for _, t := range result.ExecutedBuys {
		s.appendOrder(result.Timestamp.Format(timeLayout), t, "buy")
	}
	for _, t := range result.ExecutedSells {
		s.appendOrder(result.Timestamp.Format(timeLayout), t, "sell")
	}
}

func (s *HistoryStore) appendOrder(timestamp string, t domain.ExecutedTrade, side string) {
	_, err := s.db.Exec(
		`INSERT INTO orders (timestamp, symbol_code, side, qty, price, notional, dry_run, order_ref)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		timestamp, t.Symbol.Code, side, t.Qty, t.Price, t.Notional, boolToInt(t.DryRun), t.OrderRef,
	)
	if err != nil {
		s.log.Warn().Err(err).Str("code", t.Symbol.Code).Msg("failed to persist order")
	}
}

const timeLayout = "2006-01-02T15:04:05.000Z07:00"

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// RecentOrders returns up to limit most recent persisted orders for a
// symbol, newest first. Used for diagnostics; the scheduler's
// in-memory ring remains the source of truth for /scheduler/history.
func (s *HistoryStore) RecentOrders(code string, limit int) ([]domain.ExecutedTrade, error) {
	rows, err := s.db.Query(
		`SELECT qty, price, notional, dry_run, order_ref FROM orders WHERE symbol_code = ? ORDER BY id DESC LIMIT ?`,
		code, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trades []domain.ExecutedTrade
	for rows.Next() {
		var t domain.ExecutedTrade
		var dryRun int
		var orderRef sql.NullString
		if err := rows.Scan(&t.Qty, &t.Price, &t.Notional, &dryRun, &orderRef); err != nil {
			return nil, err
		}
		t.Symbol = domain.Symbol{Code: code}
		t.DryRun = dryRun == 1
		t.OrderRef = orderRef.String
		trades = append(trades, t)
	}
	return trades, rows.Err()
}
