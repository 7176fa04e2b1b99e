package models

import (
	"strconv"
	"time"
)

// TxnType is the inferred direction of a parsed transaction.
type TxnType string

const (
	TxnDebit   TxnType = "DEBIT"
	TxnCredit  TxnType = "CREDIT"
	TxnUnknown TxnType = "UNKNOWN"
)

// Categories is the fixed vocabulary the category inferencer chooses from.
// Order matters: the first category whose keyword matches wins.
var Categories = []string{
	"Food",
	"Transport",
	"Shopping",
	"Utilities",
	"Health",
	"Entertainment",
	"Transfer",
	"Other",
}

// ParsedTransaction is the output of the notification parser.
// Immutable once constructed.
type ParsedTransaction struct {
	Amount      float64
	Type        TxnType
	Description string
	Source      string // origin app identifier
	Category    string
	RawText     string // original notification text, kept for audit
	Timestamp   int64  // event time in unix millis, not processing time
}

// UniqueID derives the dedup key for this event. Deterministic so that a
// redelivered notification yields the same key.
func (p ParsedTransaction) UniqueID() string {
	return UniqueID(p.Source, p.Amount, p.Timestamp)
}

// UniqueID builds the source|amount|timestamp dedup key.
func UniqueID(source string, amount float64, timestampMillis int64) string {
	return source + "|" + FormatAmount(amount) + "|" + strconv.FormatInt(timestampMillis, 10)
}

// FormatAmount renders an amount without trailing zeros so 1250.0 and
// 1250.00 produce the same dedup key.
func FormatAmount(amount float64) string {
	return strconv.FormatFloat(amount, 'f', -1, 64)
}

// Transaction is the persisted record for an accepted notification.
// Append-only; only IsRecurring is ever mutated after creation.
type Transaction struct {
	ID          int64
	UniqueID    string
	Amount      float64
	Type        TxnType
	Description string
	Category    string
	Source      string
	RawText     string
	Timestamp   int64 // event time in unix millis
	IsRecurring bool
	CreatedAt   time.Time
}

// Day returns the local calendar day of the event.
func (t Transaction) Day() string {
	return DayOf(t.Timestamp)
}

// DayOfMonth returns the local day-of-month of the event (1-31).
func (t Transaction) DayOfMonth() int {
	return time.UnixMilli(t.Timestamp).Local().Day()
}

// DailyTotal is one calendar day's aggregate. The current day's row is
// mutable; all prior days are immutable history.
type DailyTotal struct {
	Date           string // YYYY-MM-DD, local timezone
	TotalSpend     float64
	OverLimitCount int
}

// TransactionFilter restricts history queries.
type TransactionFilter struct {
	SinceMillis int64
	Type        TxnType
	Category    string
}

// Job represents a background job in the queue.
type Job struct {
	ID          int64
	JobType     string
	Payload     string // JSON payload
	Status      string // pending, running, completed, failed
	Progress    int    // 0-100
	Result      string // JSON result or error message
	Attempts    int
	MaxAttempts int
	CreatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
}

// DayOf formats a unix-millis timestamp as a local YYYY-MM-DD day.
func DayOf(millis int64) string {
	return time.UnixMilli(millis).Local().Format("2006-01-02")
}

// Today returns the current local calendar day as YYYY-MM-DD.
func Today() string {
	return time.Now().Local().Format("2006-01-02")
}
