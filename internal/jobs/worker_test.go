package jobs

import (
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"finetract/internal/alerts"
	"finetract/internal/database"
	"finetract/internal/models"
	"finetract/internal/recurring"
)

type captureSink struct {
	sent []alerts.Notification
}

func (s *captureSink) Notify(n alerts.Notification) {
	s.sent = append(s.sent, n)
}

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

func insertDebit(t *testing.T, db *database.DB, description string, amount float64, ts time.Time) *models.Transaction {
	t.Helper()
	txn := &models.Transaction{
		UniqueID:    models.UniqueID("test", amount, ts.UnixMilli()),
		Amount:      amount,
		Type:        models.TxnDebit,
		Description: description,
		Category:    "Other",
		Source:      "test",
		RawText:     "test",
		Timestamp:   ts.UnixMilli(),
	}
	id, err := db.InsertTransaction(txn)
	if err != nil {
		t.Fatalf("insert transaction: %v", err)
	}
	txn.ID = id
	return txn
}

// waitForJob polls until the job leaves pending/running or the deadline hits.
func waitForJob(t *testing.T, db *database.DB, id int64) *models.Job {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, err := db.GetJob(id)
		if err != nil {
			t.Fatalf("get job: %v", err)
		}
		if job.Status != "pending" && job.Status != "running" {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("job did not finish in time")
	return nil
}

func TestWorkerRunsRecurrenceScan(t *testing.T) {
	db := openTestDB(t)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	base := time.Date(2025, 6, 15, 9, 0, 0, 0, time.Local)
	insertDebit(t, db, "Netflix", 499, base.AddDate(0, -1, 0))
	insertDebit(t, db, "Netflix", 499, base.AddDate(0, 0, -1))
	latest := insertDebit(t, db, "Netflix", 499, base)

	detector := recurring.NewDetector(db, recurring.DefaultConfig)
	sink := &captureSink{}
	notifier := alerts.NewNotifier(db, sink, log)

	w := NewWorker(db, log, 10*time.Millisecond)
	w.Register(JobTypeDetectRecurring, DetectRecurringHandler(detector, notifier))
	w.Start()
	defer w.Stop()

	jobID, err := db.CreateJob(JobTypeDetectRecurring, DetectRecurringPayload{TransactionID: latest.ID})
	if err != nil {
		t.Fatalf("create job: %v", err)
	}

	job := waitForJob(t, db, jobID)
	if job.Status != "completed" {
		t.Fatalf("job status = %q, want completed (result %q)", job.Status, job.Result)
	}
	if !strings.Contains(job.Result, `"recurring":true`) {
		t.Errorf("job result = %q, want recurring true", job.Result)
	}
	if len(sink.sent) != 1 {
		t.Fatalf("notifications sent = %d, want 1", len(sink.sent))
	}
	if !strings.Contains(sink.sent[0].Body, "Netflix") {
		t.Errorf("notification body = %q, want merchant name", sink.sent[0].Body)
	}

	got, err := db.GetTransaction(latest.ID)
	if err != nil {
		t.Fatalf("get transaction: %v", err)
	}
	if !got.IsRecurring {
		t.Error("triggering transaction not flagged recurring")
	}
}

func TestWorkerFailsUnknownJobType(t *testing.T) {
	db := openTestDB(t)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	w := NewWorker(db, log, 10*time.Millisecond)
	w.Start()
	defer w.Stop()

	jobID, err := db.CreateJob("no_such_type", map[string]any{})
	if err != nil {
		t.Fatalf("create job: %v", err)
	}

	job := waitForJob(t, db, jobID)
	if job.Status != "failed" {
		t.Errorf("job status = %q, want failed", job.Status)
	}
}
