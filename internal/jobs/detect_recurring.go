package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"finetract/internal/alerts"
	"finetract/internal/database"
	"finetract/internal/models"
	"finetract/internal/recurring"
)

// JobTypeDetectRecurring is enqueued after each accepted transaction.
const JobTypeDetectRecurring = "detect_recurring"

// DetectRecurringPayload is the JSON payload for detect_recurring jobs.
type DetectRecurringPayload struct {
	TransactionID int64 `json:"transaction_id"`
}

// DetectRecurringHandler creates a job handler running the recurrence scan
// for one transaction. The transaction is already accepted and counted;
// this only adds the recurring flag and a notification.
func DetectRecurringHandler(detector *recurring.Detector, notifier *alerts.Notifier) JobHandler {
	return func(ctx context.Context, job *models.Job, db *database.DB) error {
		var payload DetectRecurringPayload
		if err := json.Unmarshal([]byte(job.Payload), &payload); err != nil {
			return fmt.Errorf("unmarshal payload: %w", err)
		}

		txn, err := db.GetTransaction(payload.TransactionID)
		if err != nil {
			return fmt.Errorf("load transaction: %w", err)
		}

		detection, err := detector.Analyze(txn)
		if err != nil {
			return fmt.Errorf("analyze: %w", err)
		}

		if detection != nil {
			notifier.HandleRecurring(detection)
		}

		resultJSON, _ := json.Marshal(map[string]any{
			"transaction_id": txn.ID,
			"recurring":      detection != nil,
		})
		return db.CompleteJob(job.ID, string(resultJSON))
	}
}
