package ledger

import (
	"fmt"
	"sync"
	"time"

	"finetract/internal/database"
	"finetract/internal/models"
)

// RejectReason classifies why an event was dropped. Rejections are normal
// operation, not errors.
type RejectReason string

const (
	ReasonStaleDay    RejectReason = "stale_day"
	ReasonDuplicateID RejectReason = "duplicate_id"
	ReasonDebounced   RejectReason = "debounced"
)

// Result reports the outcome of an Accept call.
type Result struct {
	Accepted    bool
	Reason      RejectReason // set when Accepted is false
	Transaction *models.Transaction
	TotalSpend  float64 // today's running total after the call
	DailyLimit  float64
	LargeAmount bool // recorded but excluded from the total
	AlertDue    bool // over-limit alert should fire (odd crossings only)
	OverCount   int  // today's over-limit crossing counter
}

// Options tune the ledger. Zero values fall back to defaults.
type Options struct {
	DebounceWindow    time.Duration
	DebounceCacheSize int
	DefaultDailyLimit float64
	Now               func() time.Time
}

const (
	defaultDebounceWindow = 10 * time.Second
	defaultDebounceCache  = 256
	defaultDailyLimit     = 5000
)

// Ledger owns the daily aggregate and its dedup defenses. Every mutation
// of the running total, the processed-id set, the debounce cache and the
// over-limit counter happens inside Accept under one lock.
type Ledger struct {
	mu       sync.Mutex
	db       *database.DB
	debounce *debounceCache

	debounceWindow time.Duration
	fallbackLimit  float64
	now            func() time.Time
}

func New(db *database.DB, opts Options) *Ledger {
	if opts.DebounceWindow <= 0 {
		opts.DebounceWindow = defaultDebounceWindow
	}
	if opts.DebounceCacheSize <= 0 {
		opts.DebounceCacheSize = defaultDebounceCache
	}
	if opts.DefaultDailyLimit <= 0 {
		opts.DefaultDailyLimit = defaultDailyLimit
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Ledger{
		db:             db,
		debounce:       newDebounceCache(opts.DebounceCacheSize),
		debounceWindow: opts.DebounceWindow,
		fallbackLimit:  opts.DefaultDailyLimit,
		now:            opts.Now,
	}
}

// Accept runs the full gate-and-commit sequence for a parsed transaction:
// rollover check, event-day check, persistent duplicate check, debounce
// check, large-payment check, commit. At-most-once per unique ID.
func (l *Ledger) Accept(parsed *models.ParsedTransaction) (*Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	today := l.today()
	if err := l.rolloverLocked(today); err != nil {
		return nil, err
	}

	// Delayed deliveries for a previous day would corrupt today's total.
	if models.DayOf(parsed.Timestamp) != today {
		return &Result{Reason: ReasonStaleDay}, nil
	}

	uniqueID := parsed.UniqueID()
	processed, err := l.db.IsProcessed(uniqueID)
	if err != nil {
		return nil, fmt.Errorf("dedup check: %w", err)
	}
	if processed {
		return &Result{Reason: ReasonDuplicateID}, nil
	}

	// Near-simultaneous redeliveries carry slightly different timestamps
	// and therefore different unique IDs; the debounce window catches
	// those.
	dk := debounceKey(parsed.Source, parsed.Amount)
	if l.debounce.withinWindow(dk, parsed.Timestamp, l.debounceWindow.Milliseconds()) {
		return &Result{Reason: ReasonDebounced}, nil
	}

	threshold, err := l.db.GetLargePaymentThreshold()
	if err != nil {
		return nil, fmt.Errorf("read threshold: %w", err)
	}
	large := threshold > 0 && parsed.Amount > threshold

	// Only debits count as spend; large payments are recorded for history
	// and dedup but kept out of the total so one-off big payments don't
	// drown the budget signal.
	addToTotal := parsed.Type == models.TxnDebit && !large

	txn := &models.Transaction{
		UniqueID:    uniqueID,
		Amount:      parsed.Amount,
		Type:        parsed.Type,
		Description: parsed.Description,
		Category:    parsed.Category,
		Source:      parsed.Source,
		RawText:     parsed.RawText,
		Timestamp:   parsed.Timestamp,
	}

	total, err := l.db.AcceptTransaction(txn, today, addToTotal)
	if err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	l.debounce.record(dk, parsed.Timestamp)

	limit, err := l.db.GetDailyLimit(l.fallbackLimit)
	if err != nil {
		return nil, fmt.Errorf("read daily limit: %w", err)
	}

	res := &Result{
		Accepted:    true,
		Transaction: txn,
		TotalSpend:  total,
		DailyLimit:  limit,
		LargeAmount: large,
	}

	// Count each debit that lands while the total is over the limit, and
	// alert only on odd counts. Alternating suppresses every other repeat
	// alert within the day.
	if addToTotal && limit > 0 && total > limit {
		count, err := l.db.IncrementOverLimitCount(today)
		if err != nil {
			return nil, fmt.Errorf("over-limit counter: %w", err)
		}
		res.OverCount = count
		res.AlertDue = count%2 == 1
	}

	return res, nil
}

// Today returns today's aggregate after applying any pending rollover.
func (l *Ledger) Today() (models.DailyTotal, float64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	today := l.today()
	if err := l.rolloverLocked(today); err != nil {
		return models.DailyTotal{}, 0, err
	}
	total, err := l.db.GetDailyTotal(today)
	if err != nil {
		return models.DailyTotal{}, 0, err
	}
	limit, err := l.db.GetDailyLimit(l.fallbackLimit)
	if err != nil {
		return models.DailyTotal{}, 0, err
	}
	return total, limit, nil
}

// Streak returns the number of consecutive days before today that stayed
// at or under the daily limit, capped at the history window queried.
func (l *Ledger) Streak() (int, error) {
	l.mu.Lock()
	today := l.today()
	l.mu.Unlock()

	limit, err := l.db.GetDailyLimit(l.fallbackLimit)
	if err != nil {
		return 0, err
	}
	totals, err := l.db.ListDailyTotalsBefore(today, 30)
	if err != nil {
		return 0, err
	}

	streak := 0
	for _, t := range totals {
		if t.TotalSpend > limit {
			break
		}
		streak++
	}
	return streak, nil
}

// Reset wipes all recorded state. Explicit user action only.
func (l *Ledger) Reset() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.db.ResetAll()
}

func (l *Ledger) today() string {
	return l.now().Local().Format("2006-01-02")
}

// rolloverLocked resets per-day state the first time any caller touches
// the ledger on a new day. Caller must hold l.mu.
func (l *Ledger) rolloverLocked(today string) error {
	last, err := l.db.GetLastResetDate()
	if err != nil {
		return fmt.Errorf("read reset date: %w", err)
	}
	if last == today {
		return nil
	}
	if err := l.db.RolloverDay(today); err != nil {
		return fmt.Errorf("rollover: %w", err)
	}
	return nil
}
