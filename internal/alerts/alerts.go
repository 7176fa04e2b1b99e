package alerts

import (
	"fmt"
	"log/slog"

	"finetract/internal/budget"
	"finetract/internal/database"
	"finetract/internal/ledger"
	"finetract/internal/models"
	"finetract/internal/recurring"
)

// Channel selects the delivery channel for an outbound notification.
type Channel string

const (
	ChannelAlert     Channel = "alert"
	ChannelReminder  Channel = "reminder"
	ChannelRecurring Channel = "recurring"
)

// Priority of an outbound notification.
type Priority string

const (
	PriorityHigh    Priority = "high"
	PriorityDefault Priority = "default"
)

// Notification is the outbound alert signal. The consumer (UI shell,
// websocket feed) decides how to render it.
type Notification struct {
	Title    string   `json:"title"`
	Body     string   `json:"body"`
	Priority Priority `json:"priority"`
	Channel  Channel  `json:"channel"`
}

// Sink receives outbound notifications.
type Sink interface {
	Notify(n Notification)
}

// Notifier turns accept results and detections into at-most-so-often
// notifications: the approaching reminder fires once per day, the exceeded
// alert follows the odd-crossing alternation from the ledger.
type Notifier struct {
	db   *database.DB
	sink Sink
	log  *slog.Logger
}

func NewNotifier(db *database.DB, sink Sink, log *slog.Logger) *Notifier {
	return &Notifier{db: db, sink: sink, log: log}
}

// HandleAccepted evaluates the budget standing after an accepted
// transaction and emits whatever notification is due. Errors are logged
// and swallowed: alerting must never fail the ingest path.
func (n *Notifier) HandleAccepted(res *ledger.Result) {
	if !res.Accepted {
		return
	}
	today := models.Today()
	level, percent := budget.Evaluate(res.TotalSpend, res.DailyLimit)

	switch level {
	case budget.LevelExceeded:
		// The per-day flag is recorded for the insight surface; firing
		// itself alternates with the crossing counter.
		if err := n.db.MarkNotifiedExceeded(today); err != nil {
			n.log.Error("alert_flag_write_failed", "error", err.Error())
		}
		if !res.AlertDue {
			return
		}
		over := res.TotalSpend - res.DailyLimit
		n.sink.Notify(Notification{
			Title:    "Budget exceeded",
			Body:     fmt.Sprintf("You've spent ₹%.0f today, ₹%.0f over your ₹%.0f limit.", res.TotalSpend, over, res.DailyLimit),
			Priority: PriorityHigh,
			Channel:  ChannelAlert,
		})

	case budget.LevelApproaching:
		already, err := n.db.NotifiedApproachingOn(today)
		if err != nil {
			n.log.Error("alert_flag_read_failed", "error", err.Error())
			return
		}
		if already {
			return
		}
		remaining := res.DailyLimit - res.TotalSpend
		n.sink.Notify(Notification{
			Title:    "Budget reminder",
			Body:     fmt.Sprintf("You've used %.0f%% of your daily budget. ₹%.0f left of ₹%.0f.", percent, remaining, res.DailyLimit),
			Priority: PriorityDefault,
			Channel:  ChannelReminder,
		})
		if err := n.db.MarkNotifiedApproaching(today); err != nil {
			n.log.Error("alert_flag_write_failed", "error", err.Error())
		}
	}
}

// HandleRecurring emits the recurring-payment notification for a
// detection.
func (n *Notifier) HandleRecurring(det *recurring.Detection) {
	if det == nil {
		return
	}
	n.sink.Notify(Notification{
		Title:    "Recurring payment detected",
		Body:     fmt.Sprintf("%s charges ₹%.0f regularly. Detected %d times.", det.Merchant, det.Amount, det.Occurrences),
		Priority: PriorityDefault,
		Channel:  ChannelRecurring,
	})
}
