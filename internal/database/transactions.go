package database

import (
	"database/sql"
	"fmt"

	"finetract/internal/models"
)

// InsertTransaction appends an accepted transaction to the history log.
func (db *DB) InsertTransaction(t *models.Transaction) (int64, error) {
	result, err := db.Exec(`
		INSERT INTO transactions (unique_id, amount, type, description, category, source, raw_text, timestamp, is_recurring)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.UniqueID, t.Amount, string(t.Type), t.Description, t.Category, t.Source, t.RawText, t.Timestamp, boolToInt(t.IsRecurring))
	if err != nil {
		return 0, fmt.Errorf("insert transaction: %w", err)
	}
	return result.LastInsertId()
}

// GetTransaction returns a transaction by row ID.
func (db *DB) GetTransaction(id int64) (*models.Transaction, error) {
	row := db.QueryRow(`
		SELECT id, unique_id, amount, type, description, category, source, raw_text, timestamp, is_recurring, created_at
		FROM transactions
		WHERE id = ?
	`, id)
	t, err := scanTransaction(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("transaction not found")
	}
	if err != nil {
		return nil, fmt.Errorf("query transaction: %w", err)
	}
	return t, nil
}

// TransactionsSince returns all transactions with an event time at or after
// the given unix-millis cutoff, newest first.
func (db *DB) TransactionsSince(sinceMillis int64) ([]models.Transaction, error) {
	rows, err := db.Query(`
		SELECT id, unique_id, amount, type, description, category, source, raw_text, timestamp, is_recurring, created_at
		FROM transactions
		WHERE timestamp >= ?
		ORDER BY timestamp DESC
	`, sinceMillis)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()
	return collectTransactions(rows)
}

// ListTransactions returns transactions matching the filter, newest first.
func (db *DB) ListTransactions(filter models.TransactionFilter) ([]models.Transaction, error) {
	query := `
		SELECT id, unique_id, amount, type, description, category, source, raw_text, timestamp, is_recurring, created_at
		FROM transactions
		WHERE 1=1
	`
	var args []interface{}

	if filter.SinceMillis > 0 {
		query += " AND timestamp >= ?"
		args = append(args, filter.SinceMillis)
	}
	if filter.Type != "" {
		query += " AND type = ?"
		args = append(args, string(filter.Type))
	}
	if filter.Category != "" {
		query += " AND category = ?"
		args = append(args, filter.Category)
	}

	query += " ORDER BY timestamp DESC"

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()
	return collectTransactions(rows)
}

// SetRecurringFlag marks or unmarks a transaction as recurring. This is the
// only mutation permitted on a stored transaction.
func (db *DB) SetRecurringFlag(id int64, recurring bool) error {
	_, err := db.Exec(`UPDATE transactions SET is_recurring = ? WHERE id = ?`, boolToInt(recurring), id)
	if err != nil {
		return fmt.Errorf("set recurring flag: %w", err)
	}
	return nil
}

// RecentRecurringMerchant returns the description of the most recently
// flagged recurring transaction at or after the cutoff, or "" when none.
func (db *DB) RecentRecurringMerchant(sinceMillis int64) (string, error) {
	var desc string
	err := db.QueryRow(`
		SELECT description FROM transactions
		WHERE is_recurring = 1 AND timestamp >= ?
		ORDER BY timestamp DESC LIMIT 1
	`, sinceMillis).Scan(&desc)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("query recurring merchant: %w", err)
	}
	return desc, nil
}

// ClearAllTransactions wipes the entire history. Only reachable from the
// explicit user reset.
func (db *DB) ClearAllTransactions() error {
	_, err := db.Exec(`DELETE FROM transactions`)
	if err != nil {
		return fmt.Errorf("clear transactions: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTransaction(row rowScanner) (*models.Transaction, error) {
	var t models.Transaction
	var typ string
	var recurring int
	if err := row.Scan(&t.ID, &t.UniqueID, &t.Amount, &typ, &t.Description, &t.Category,
		&t.Source, &t.RawText, &t.Timestamp, &recurring, &t.CreatedAt); err != nil {
		return nil, err
	}
	t.Type = models.TxnType(typ)
	t.IsRecurring = recurring != 0
	return &t, nil
}

func collectTransactions(rows *sql.Rows) ([]models.Transaction, error) {
	var out []models.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
