package database

import (
	"database/sql"
	"fmt"
	"strconv"
)

// Settings keys. All settings live in one key-value table so the storage
// collaborator stays a simple get/set surface.
const (
	keyDailyLimit            = "daily_limit"
	keyLargePaymentThreshold = "large_payment_threshold"
	keyLastResetDate         = "last_reset_date"
	keyNotifiedApproaching   = "notified_approaching_date"
	keyNotifiedExceeded      = "notified_exceeded_date"
)

func (db *DB) getSetting(key string) (string, error) {
	var value string
	err := db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("query setting %s: %w", key, err)
	}
	return value, nil
}

func (db *DB) setSetting(key, value string) error {
	_, err := db.Exec(`
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("set setting %s: %w", key, err)
	}
	return nil
}

func (db *DB) getFloatSetting(key string, fallback float64) (float64, error) {
	raw, err := db.getSetting(key)
	if err != nil {
		return 0, err
	}
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("parse setting %s: %w", key, err)
	}
	return value, nil
}

// GetDailyLimit returns the configured daily spend limit, or the given
// default when unset.
func (db *DB) GetDailyLimit(fallback float64) (float64, error) {
	return db.getFloatSetting(keyDailyLimit, fallback)
}

func (db *DB) SetDailyLimit(limit float64) error {
	return db.setSetting(keyDailyLimit, strconv.FormatFloat(limit, 'f', -1, 64))
}

// GetLargePaymentThreshold returns the large-payment cutoff. Zero means
// disabled.
func (db *DB) GetLargePaymentThreshold() (float64, error) {
	return db.getFloatSetting(keyLargePaymentThreshold, 0)
}

func (db *DB) SetLargePaymentThreshold(threshold float64) error {
	return db.setSetting(keyLargePaymentThreshold, strconv.FormatFloat(threshold, 'f', -1, 64))
}

// GetLastResetDate returns the day (YYYY-MM-DD) of the last rollover, or ""
// before the first one.
func (db *DB) GetLastResetDate() (string, error) {
	return db.getSetting(keyLastResetDate)
}

// NotifiedApproachingOn reports whether the approaching-limit reminder was
// already sent on the given day.
func (db *DB) NotifiedApproachingOn(day string) (bool, error) {
	v, err := db.getSetting(keyNotifiedApproaching)
	return v == day, err
}

func (db *DB) MarkNotifiedApproaching(day string) error {
	return db.setSetting(keyNotifiedApproaching, day)
}

// NotifiedExceededOn reports whether an exceeded alert was already sent on
// the given day.
func (db *DB) NotifiedExceededOn(day string) (bool, error) {
	v, err := db.getSetting(keyNotifiedExceeded)
	return v == day, err
}

func (db *DB) MarkNotifiedExceeded(day string) error {
	return db.setSetting(keyNotifiedExceeded, day)
}
