package models

import (
	"testing"
	"time"
)

func TestUniqueID(t *testing.T) {
	tests := []struct {
		source string
		amount float64
		ts     int64
		want   string
	}{
		{"net.one97.paytm", 500, 1700000000000, "net.one97.paytm|500|1700000000000"},
		{"com.phonepe.app", 499.5, 1700000000001, "com.phonepe.app|499.5|1700000000001"},
		{"com.android.mms", 125000, 1700000000002, "com.android.mms|125000|1700000000002"},
	}
	for _, tt := range tests {
		if got := UniqueID(tt.source, tt.amount, tt.ts); got != tt.want {
			t.Errorf("UniqueID(%q, %v, %d) = %q, want %q", tt.source, tt.amount, tt.ts, got, tt.want)
		}
	}
}

func TestUniqueIDStableAcrossRedelivery(t *testing.T) {
	p := ParsedTransaction{Source: "com.phonepe.app", Amount: 120, Timestamp: 1700000000000}
	q := ParsedTransaction{Source: "com.phonepe.app", Amount: 120, Timestamp: 1700000000000, Description: "different"}
	if p.UniqueID() != q.UniqueID() {
		t.Errorf("same source/amount/timestamp should share an ID: %q vs %q", p.UniqueID(), q.UniqueID())
	}
}

func TestDayOf(t *testing.T) {
	ts := time.Date(2025, 6, 15, 23, 45, 0, 0, time.Local).UnixMilli()
	if got := DayOf(ts); got != "2025-06-15" {
		t.Errorf("DayOf = %q, want 2025-06-15", got)
	}
}

func TestTransactionDayOfMonth(t *testing.T) {
	txn := Transaction{Timestamp: time.Date(2025, 3, 7, 9, 0, 0, 0, time.Local).UnixMilli()}
	if got := txn.DayOfMonth(); got != 7 {
		t.Errorf("DayOfMonth = %d, want 7", got)
	}
}
