package database

import (
	"database/sql"
	"fmt"

	"finetract/internal/models"
)

// IsProcessed reports whether a unique event ID is already in the
// processed set.
func (db *DB) IsProcessed(uniqueID string) (bool, error) {
	var one int
	err := db.QueryRow(`SELECT 1 FROM processed_events WHERE unique_id = ?`, uniqueID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query processed event: %w", err)
	}
	return true, nil
}

// AcceptTransaction atomically records an accepted transaction: appends it
// to the history log, marks its unique ID processed, and, when addToTotal
// is set, adds the amount to the day's running total. Returns the total
// after the update (unchanged when addToTotal is false).
func (db *DB) AcceptTransaction(t *models.Transaction, day string, addToTotal bool) (float64, error) {
	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(`
		INSERT INTO transactions (unique_id, amount, type, description, category, source, raw_text, timestamp, is_recurring)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0)
	`, t.UniqueID, t.Amount, string(t.Type), t.Description, t.Category, t.Source, t.RawText, t.Timestamp)
	if err != nil {
		return 0, fmt.Errorf("insert transaction: %w", err)
	}
	t.ID, _ = result.LastInsertId()

	if _, err := tx.Exec(`INSERT INTO processed_events (unique_id, day) VALUES (?, ?)`, t.UniqueID, day); err != nil {
		return 0, fmt.Errorf("mark processed: %w", err)
	}

	added := 0.0
	if addToTotal {
		added = t.Amount
	}
	if _, err := tx.Exec(`
		INSERT INTO daily_totals (date, total_spend) VALUES (?, ?)
		ON CONFLICT(date) DO UPDATE SET total_spend = total_spend + excluded.total_spend
	`, day, added); err != nil {
		return 0, fmt.Errorf("update daily total: %w", err)
	}

	var total float64
	if err := tx.QueryRow(`SELECT total_spend FROM daily_totals WHERE date = ?`, day).Scan(&total); err != nil {
		return 0, fmt.Errorf("read daily total: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return total, nil
}

// RolloverDay clears the processed set and stamps the new day. Daily total
// rows for prior days are left in place as history.
func (db *DB) RolloverDay(today string) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM processed_events`); err != nil {
		return fmt.Errorf("clear processed events: %w", err)
	}
	if _, err := tx.Exec(`
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, keyLastResetDate, today); err != nil {
		return fmt.Errorf("stamp reset date: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// GetDailyTotal returns the aggregate row for a day. A missing row reads
// as a zero aggregate.
func (db *DB) GetDailyTotal(date string) (models.DailyTotal, error) {
	t := models.DailyTotal{Date: date}
	err := db.QueryRow(`
		SELECT total_spend, over_limit_count FROM daily_totals WHERE date = ?
	`, date).Scan(&t.TotalSpend, &t.OverLimitCount)
	if err == sql.ErrNoRows {
		return t, nil
	}
	if err != nil {
		return t, fmt.Errorf("query daily total: %w", err)
	}
	return t, nil
}

// IncrementOverLimitCount bumps the day's over-limit counter and returns
// the new value.
func (db *DB) IncrementOverLimitCount(date string) (int, error) {
	_, err := db.Exec(`
		INSERT INTO daily_totals (date, over_limit_count) VALUES (?, 1)
		ON CONFLICT(date) DO UPDATE SET over_limit_count = over_limit_count + 1
	`, date)
	if err != nil {
		return 0, fmt.Errorf("increment over-limit count: %w", err)
	}
	var count int
	if err := db.QueryRow(`SELECT over_limit_count FROM daily_totals WHERE date = ?`, date).Scan(&count); err != nil {
		return 0, fmt.Errorf("read over-limit count: %w", err)
	}
	return count, nil
}

// ListDailyTotalsBefore returns up to n aggregate rows for days strictly
// before the given date, newest first. Used for streak computation.
func (db *DB) ListDailyTotalsBefore(date string, n int) ([]models.DailyTotal, error) {
	rows, err := db.Query(`
		SELECT date, total_spend, over_limit_count FROM daily_totals
		WHERE date < ?
		ORDER BY date DESC
		LIMIT ?
	`, date, n)
	if err != nil {
		return nil, fmt.Errorf("query daily totals: %w", err)
	}
	defer rows.Close()

	var out []models.DailyTotal
	for rows.Next() {
		var t models.DailyTotal
		if err := rows.Scan(&t.Date, &t.TotalSpend, &t.OverLimitCount); err != nil {
			return nil, fmt.Errorf("scan daily total: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ResetAll wipes totals, the processed set, and history. Explicit user
// reset only.
func (db *DB) ResetAll() error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		`DELETE FROM transactions`,
		`DELETE FROM processed_events`,
		`DELETE FROM daily_totals`,
	} {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("reset: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
