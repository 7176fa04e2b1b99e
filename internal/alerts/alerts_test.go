package alerts

import (
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"finetract/internal/database"
	"finetract/internal/ledger"
	"finetract/internal/recurring"
)

type captureSink struct {
	sent []Notification
}

func (s *captureSink) Notify(n Notification) {
	s.sent = append(s.sent, n)
}

func newTestNotifier(t *testing.T) (*Notifier, *captureSink) {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Init(); err != nil {
		t.Fatalf("init schema: %v", err)
	}
	sink := &captureSink{}
	return NewNotifier(db, sink, slog.Default()), sink
}

func TestExceededFollowsAlertDue(t *testing.T) {
	n, sink := newTestNotifier(t)

	// Odd crossing: the ledger says the alert is due.
	n.HandleAccepted(&ledger.Result{Accepted: true, TotalSpend: 1200, DailyLimit: 1000, AlertDue: true, OverCount: 1})
	if len(sink.sent) != 1 {
		t.Fatalf("sent = %d, want 1", len(sink.sent))
	}
	if sink.sent[0].Channel != ChannelAlert || sink.sent[0].Priority != PriorityHigh {
		t.Errorf("notification = %+v, want high-priority alert", sink.sent[0])
	}
	if !strings.Contains(sink.sent[0].Body, "₹200") {
		t.Errorf("body = %q, want overage mentioned", sink.sent[0].Body)
	}

	// Even crossing: suppressed.
	n.HandleAccepted(&ledger.Result{Accepted: true, TotalSpend: 1400, DailyLimit: 1000, AlertDue: false, OverCount: 2})
	if len(sink.sent) != 1 {
		t.Errorf("sent = %d after suppressed crossing, want 1", len(sink.sent))
	}

	// Odd again: fires again.
	n.HandleAccepted(&ledger.Result{Accepted: true, TotalSpend: 1600, DailyLimit: 1000, AlertDue: true, OverCount: 3})
	if len(sink.sent) != 2 {
		t.Errorf("sent = %d after third crossing, want 2", len(sink.sent))
	}
}

func TestApproachingFiresOncePerDay(t *testing.T) {
	n, sink := newTestNotifier(t)

	n.HandleAccepted(&ledger.Result{Accepted: true, TotalSpend: 750, DailyLimit: 1000})
	if len(sink.sent) != 1 {
		t.Fatalf("sent = %d, want 1", len(sink.sent))
	}
	if sink.sent[0].Channel != ChannelReminder {
		t.Errorf("channel = %s, want reminder", sink.sent[0].Channel)
	}

	// Still approaching later the same day: stays quiet.
	n.HandleAccepted(&ledger.Result{Accepted: true, TotalSpend: 900, DailyLimit: 1000})
	if len(sink.sent) != 1 {
		t.Errorf("sent = %d after repeat, want 1", len(sink.sent))
	}
}

func TestUnderBudgetStaysQuiet(t *testing.T) {
	n, sink := newTestNotifier(t)

	n.HandleAccepted(&ledger.Result{Accepted: true, TotalSpend: 300, DailyLimit: 1000})
	n.HandleAccepted(&ledger.Result{Accepted: false})
	n.HandleAccepted(&ledger.Result{Accepted: true, TotalSpend: 500, DailyLimit: 0})
	if len(sink.sent) != 0 {
		t.Errorf("sent = %d, want 0", len(sink.sent))
	}
}

func TestHandleRecurring(t *testing.T) {
	n, sink := newTestNotifier(t)

	n.HandleRecurring(nil)
	if len(sink.sent) != 0 {
		t.Fatalf("sent = %d for nil detection, want 0", len(sink.sent))
	}

	n.HandleRecurring(&recurring.Detection{Merchant: "Netflix", Amount: 499, Occurrences: 3})
	if len(sink.sent) != 1 {
		t.Fatalf("sent = %d, want 1", len(sink.sent))
	}
	got := sink.sent[0]
	if got.Channel != ChannelRecurring {
		t.Errorf("channel = %s, want recurring", got.Channel)
	}
	if !strings.Contains(got.Body, "Netflix") || !strings.Contains(got.Body, "3 times") {
		t.Errorf("body = %q", got.Body)
	}
}
