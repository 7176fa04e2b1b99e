package ledger

import (
	"path/filepath"
	"testing"
	"time"

	"finetract/internal/database"
	"finetract/internal/models"
)

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Init(); err != nil {
		t.Fatalf("init schema: %v", err)
	}
	return db
}

// testClock makes the ledger's notion of "now" controllable.
type testClock struct {
	current time.Time
}

func (c *testClock) now() time.Time { return c.current }

func newTestLedger(t *testing.T, db *database.DB, clock *testClock) *Ledger {
	t.Helper()
	return New(db, Options{Now: clock.now})
}

func debitAt(source string, amount float64, ts time.Time) *models.ParsedTransaction {
	return &models.ParsedTransaction{
		Amount:      amount,
		Type:        models.TxnDebit,
		Description: "Test Merchant",
		Source:      source,
		Category:    "Other",
		RawText:     "test",
		Timestamp:   ts.UnixMilli(),
	}
}

func mustAccept(t *testing.T, l *Ledger, p *models.ParsedTransaction) *Result {
	t.Helper()
	res, err := l.Accept(p)
	if err != nil {
		t.Fatalf("Accept error: %v", err)
	}
	if !res.Accepted {
		t.Fatalf("Accept rejected: %s", res.Reason)
	}
	return res
}

func TestAcceptAddsDebitToTotal(t *testing.T) {
	db := openTestDB(t)
	clock := &testClock{current: time.Date(2025, 6, 10, 12, 0, 0, 0, time.Local)}
	l := newTestLedger(t, db, clock)

	res := mustAccept(t, l, debitAt("com.phonepe.app", 250, clock.current))
	if res.TotalSpend != 250 {
		t.Errorf("TotalSpend = %v, want 250", res.TotalSpend)
	}
	if res.Transaction.ID == 0 {
		t.Error("transaction was not persisted")
	}

	res = mustAccept(t, l, debitAt("com.phonepe.app", 100, clock.current.Add(time.Minute)))
	if res.TotalSpend != 350 {
		t.Errorf("TotalSpend = %v, want 350", res.TotalSpend)
	}
}

func TestAcceptRejectsDuplicateUniqueID(t *testing.T) {
	db := openTestDB(t)
	clock := &testClock{current: time.Date(2025, 6, 10, 12, 0, 0, 0, time.Local)}
	l := newTestLedger(t, db, clock)

	p := debitAt("com.phonepe.app", 250, clock.current)
	mustAccept(t, l, p)

	res, err := l.Accept(p)
	if err != nil {
		t.Fatalf("Accept error: %v", err)
	}
	if res.Accepted || res.Reason != ReasonDuplicateID {
		t.Errorf("redelivery: accepted=%v reason=%s, want duplicate_id rejection", res.Accepted, res.Reason)
	}

	total, _, err := l.Today()
	if err != nil {
		t.Fatalf("Today error: %v", err)
	}
	if total.TotalSpend != 250 {
		t.Errorf("TotalSpend = %v, want 250 (counted once)", total.TotalSpend)
	}
}

func TestAcceptDebouncesNearSimultaneousRedelivery(t *testing.T) {
	db := openTestDB(t)
	clock := &testClock{current: time.Date(2025, 6, 10, 12, 0, 0, 0, time.Local)}
	l := newTestLedger(t, db, clock)

	base := clock.current
	mustAccept(t, l, debitAt("com.phonepe.app", 250, base))

	// Redelivered 3s later: new timestamp, new unique ID, same payment.
	res, err := l.Accept(debitAt("com.phonepe.app", 250, base.Add(3*time.Second)))
	if err != nil {
		t.Fatalf("Accept error: %v", err)
	}
	if res.Accepted || res.Reason != ReasonDebounced {
		t.Errorf("redelivery: accepted=%v reason=%s, want debounced rejection", res.Accepted, res.Reason)
	}

	// Same amount well outside the window is a genuine second payment.
	res = mustAccept(t, l, debitAt("com.phonepe.app", 250, base.Add(15*time.Second)))
	if res.TotalSpend != 500 {
		t.Errorf("TotalSpend = %v, want 500", res.TotalSpend)
	}

	// Different amount inside the window is unrelated.
	mustAccept(t, l, debitAt("com.phonepe.app", 80, base.Add(16*time.Second)))
}

func TestAcceptRejectsStaleDay(t *testing.T) {
	db := openTestDB(t)
	clock := &testClock{current: time.Date(2025, 6, 10, 0, 5, 0, 0, time.Local)}
	l := newTestLedger(t, db, clock)

	yesterday := clock.current.Add(-time.Hour)
	res, err := l.Accept(debitAt("com.phonepe.app", 250, yesterday))
	if err != nil {
		t.Fatalf("Accept error: %v", err)
	}
	if res.Accepted || res.Reason != ReasonStaleDay {
		t.Errorf("stale event: accepted=%v reason=%s, want stale_day rejection", res.Accepted, res.Reason)
	}
}

func TestLargePaymentRecordedButNotCounted(t *testing.T) {
	db := openTestDB(t)
	clock := &testClock{current: time.Date(2025, 6, 10, 12, 0, 0, 0, time.Local)}
	l := newTestLedger(t, db, clock)

	if err := db.SetLargePaymentThreshold(10000); err != nil {
		t.Fatal(err)
	}

	res := mustAccept(t, l, debitAt("com.android.mms", 50000, clock.current))
	if !res.LargeAmount {
		t.Error("LargeAmount = false, want true")
	}
	if res.TotalSpend != 0 {
		t.Errorf("TotalSpend = %v, want 0 (large payment excluded)", res.TotalSpend)
	}
	if res.Transaction.ID == 0 {
		t.Error("large payment should still be persisted")
	}

	// Exactly at the threshold is not "large".
	res = mustAccept(t, l, debitAt("com.android.mms", 10000, clock.current.Add(time.Minute)))
	if res.LargeAmount {
		t.Error("amount equal to threshold flagged large")
	}
	if res.TotalSpend != 10000 {
		t.Errorf("TotalSpend = %v, want 10000", res.TotalSpend)
	}
}

func TestCreditRecordedButNotCounted(t *testing.T) {
	db := openTestDB(t)
	clock := &testClock{current: time.Date(2025, 6, 10, 12, 0, 0, 0, time.Local)}
	l := newTestLedger(t, db, clock)

	p := debitAt("com.phonepe.app", 2000, clock.current)
	p.Type = models.TxnCredit

	res := mustAccept(t, l, p)
	if res.TotalSpend != 0 {
		t.Errorf("TotalSpend = %v, want 0 (credits are not spend)", res.TotalSpend)
	}

	txns, err := db.TransactionsSince(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(txns) != 1 {
		t.Fatalf("history length = %d, want 1", len(txns))
	}
}

func TestOverLimitAlertAlternates(t *testing.T) {
	db := openTestDB(t)
	clock := &testClock{current: time.Date(2025, 6, 10, 12, 0, 0, 0, time.Local)}
	l := newTestLedger(t, db, clock)

	if err := db.SetDailyLimit(100); err != nil {
		t.Fatal(err)
	}

	base := clock.current
	// Amounts vary so debounce keys differ; each lands over the limit
	// from the second one onward.
	res := mustAccept(t, l, debitAt("com.phonepe.app", 60, base))
	if res.AlertDue || res.OverCount != 0 {
		t.Errorf("first debit under limit: AlertDue=%v OverCount=%d", res.AlertDue, res.OverCount)
	}

	res = mustAccept(t, l, debitAt("com.phonepe.app", 61, base.Add(time.Minute)))
	if !res.AlertDue || res.OverCount != 1 {
		t.Errorf("first crossing: AlertDue=%v OverCount=%d, want alert on count 1", res.AlertDue, res.OverCount)
	}

	res = mustAccept(t, l, debitAt("com.phonepe.app", 62, base.Add(2*time.Minute)))
	if res.AlertDue || res.OverCount != 2 {
		t.Errorf("second crossing: AlertDue=%v OverCount=%d, want suppressed on count 2", res.AlertDue, res.OverCount)
	}

	res = mustAccept(t, l, debitAt("com.phonepe.app", 63, base.Add(3*time.Minute)))
	if !res.AlertDue || res.OverCount != 3 {
		t.Errorf("third crossing: AlertDue=%v OverCount=%d, want alert on count 3", res.AlertDue, res.OverCount)
	}
}

func TestDayRolloverResetsAggregate(t *testing.T) {
	db := openTestDB(t)
	clock := &testClock{current: time.Date(2025, 6, 10, 23, 50, 0, 0, time.Local)}
	l := newTestLedger(t, db, clock)

	mustAccept(t, l, debitAt("com.phonepe.app", 900, clock.current))

	clock.current = time.Date(2025, 6, 11, 0, 10, 0, 0, time.Local)

	total, _, err := l.Today()
	if err != nil {
		t.Fatalf("Today error: %v", err)
	}
	if total.Date != "2025-06-11" {
		t.Errorf("Date = %s, want 2025-06-11", total.Date)
	}
	if total.TotalSpend != 0 {
		t.Errorf("TotalSpend = %v, want 0 after rollover", total.TotalSpend)
	}

	// Yesterday's history survives the rollover.
	txns, err := db.TransactionsSince(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(txns) != 1 {
		t.Errorf("history length = %d, want 1", len(txns))
	}

	// New day accepts fresh spend normally.
	res := mustAccept(t, l, debitAt("com.phonepe.app", 120, clock.current))
	if res.TotalSpend != 120 {
		t.Errorf("TotalSpend = %v, want 120", res.TotalSpend)
	}
}

func TestStreakCountsRecentDaysUnderLimit(t *testing.T) {
	db := openTestDB(t)
	clock := &testClock{current: time.Date(2025, 6, 10, 12, 0, 0, 0, time.Local)}
	l := newTestLedger(t, db, clock)

	if err := db.SetDailyLimit(1000); err != nil {
		t.Fatal(err)
	}

	seed := []struct {
		date  string
		spend float64
	}{
		{"2025-06-09", 400},
		{"2025-06-08", 0},
		{"2025-06-07", 999},
		{"2025-06-06", 5000}, // breaks the streak
		{"2025-06-05", 100},
	}
	for _, row := range seed {
		if _, err := db.Exec(`INSERT INTO daily_totals (date, total_spend) VALUES (?, ?)`, row.date, row.spend); err != nil {
			t.Fatal(err)
		}
	}

	streak, err := l.Streak()
	if err != nil {
		t.Fatalf("Streak error: %v", err)
	}
	if streak != 3 {
		t.Errorf("Streak = %d, want 3", streak)
	}
}

func TestResetWipesEverything(t *testing.T) {
	db := openTestDB(t)
	clock := &testClock{current: time.Date(2025, 6, 10, 12, 0, 0, 0, time.Local)}
	l := newTestLedger(t, db, clock)

	mustAccept(t, l, debitAt("com.phonepe.app", 250, clock.current))

	if err := l.Reset(); err != nil {
		t.Fatalf("Reset error: %v", err)
	}

	txns, err := db.TransactionsSince(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(txns) != 0 {
		t.Errorf("history length = %d, want 0", len(txns))
	}
	total, _, err := l.Today()
	if err != nil {
		t.Fatal(err)
	}
	if total.TotalSpend != 0 {
		t.Errorf("TotalSpend = %v, want 0", total.TotalSpend)
	}
}

func TestDebounceCacheEviction(t *testing.T) {
	c := newDebounceCache(2)
	c.record("a|100", 1000)
	c.record("b|200", 2000)
	c.record("c|300", 3000) // evicts a|100

	if c.withinWindow("a|100", 1500, 10000) {
		t.Error("evicted key still within window")
	}
	if !c.withinWindow("c|300", 3500, 10000) {
		t.Error("fresh key not within window")
	}
	if c.withinWindow("c|300", 20000, 10000) {
		t.Error("old entry still within window")
	}
}
