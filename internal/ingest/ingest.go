package ingest

import (
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"finetract/internal/alerts"
	"finetract/internal/database"
	"finetract/internal/feed"
	"finetract/internal/jobs"
	"finetract/internal/ledger"
	"finetract/internal/parser"
)

// Event is one inbound notification as delivered by the platform
// collaborator.
type Event struct {
	Source          string `json:"source"`
	Title           string `json:"title"`
	Body            string `json:"body"`
	TimestampMillis int64  `json:"timestamp_ms"`
}

// Outcome reports what the pipeline did with an event. Rejections are
// expected operation; only storage trouble surfaces as an error.
type Outcome struct {
	EventID  string `json:"event_id"`
	Accepted bool   `json:"accepted"`
	Reason   string `json:"reason,omitempty"`

	TransactionID int64   `json:"transaction_id,omitempty"`
	TotalSpend    float64 `json:"total_spend,omitempty"`
}

// Rejection reasons produced before the ledger's own gate.
const (
	reasonIrrelevantSource = "irrelevant_source"
	reasonNoAmount         = "no_amount"
	reasonBadAmount        = "bad_amount"
)

// Service wires the pipeline: source filter -> parser -> ledger ->
// signals. One Process call per notification event, synchronous through
// acceptance; the recurrence scan is handed to the job queue.
type Service struct {
	db       *database.DB
	parser   *parser.NotificationParser
	ledger   *ledger.Ledger
	notifier *alerts.Notifier
	hub      *feed.Hub
	log      *slog.Logger
}

func NewService(db *database.DB, p *parser.NotificationParser, l *ledger.Ledger, n *alerts.Notifier, h *feed.Hub, log *slog.Logger) *Service {
	return &Service{db: db, parser: p, ledger: l, notifier: n, hub: h, log: log}
}

// Process runs one notification through the pipeline. It never panics and
// never blocks on downstream consumers; a returned error means storage
// failed and the event was dropped.
func (s *Service) Process(ev Event) (*Outcome, error) {
	out := &Outcome{EventID: uuid.New().String()}
	log := s.log.With("event_id", out.EventID, "source", ev.Source)

	if !RelevantSource(ev.Source, ev.Title, ev.Body) {
		out.Reason = reasonIrrelevantSource
		log.Debug("event_filtered")
		return out, nil
	}

	parsed, err := s.parser.Parse(ev.Source, ev.Title, ev.Body, ev.TimestampMillis)
	if err != nil {
		out.Reason = reasonNoAmount
		if err == parser.ErrBadAmount {
			out.Reason = reasonBadAmount
		}
		log.Info("txn_parse_rejected", "reason", out.Reason)
		return out, nil
	}

	res, err := s.ledger.Accept(parsed)
	if err != nil {
		// Storage trouble must not take down the delivery path; the
		// event is dropped and the next one gets a fresh chance.
		log.Error("txn_accept_failed", "error", err.Error())
		return nil, err
	}
	if !res.Accepted {
		out.Reason = string(res.Reason)
		log.Info("txn_rejected", "reason", out.Reason, "amount", parsed.Amount)
		return out, nil
	}

	out.Accepted = true
	out.TransactionID = res.Transaction.ID
	out.TotalSpend = res.TotalSpend

	log.Info("txn_accepted",
		"amount", parsed.Amount,
		"type", parsed.Type,
		"description", parsed.Description,
		"category", parsed.Category,
		"total_spend", res.TotalSpend,
		"large_payment", res.LargeAmount,
	)

	s.hub.BroadcastTransaction(out.EventID, res.Transaction, res.TotalSpend)
	s.notifier.HandleAccepted(res)

	// Recurrence analysis runs off the delivery path. Fire and forget: a
	// failed enqueue only costs this transaction its scan.
	if _, err := s.db.CreateJob(jobs.JobTypeDetectRecurring, jobs.DetectRecurringPayload{TransactionID: res.Transaction.ID}); err != nil {
		log.Error("recurring_job_enqueue_failed", "error", err.Error())
	}

	return out, nil
}

// knownSources is the allow-list of payment and messaging apps whose
// notifications are worth parsing.
var knownSources = map[string]bool{
	"com.google.android.apps.nbu.paisa.user": true, // Google Pay
	"net.one97.paytm":                        true, // Paytm
	"com.phonepe.app":                        true, // PhonePe
	"in.org.npci.upiapp":                     true, // BHIM
	"com.amazon.mShop.android.shopping":      true, // Amazon Pay
	"com.mobikwik_new":                       true, // MobiKwik
	"com.freecharge.android":                 true, // FreeCharge
	"com.whatsapp":                           true, // WhatsApp (bank forwards)
	"com.android.mms":                        true, // Default SMS
	"com.google.android.apps.messaging":      true, // Google Messages
	"org.thoughtcrime.securesms":             true, // Signal
	"com.samsung.android.messaging":          true, // Samsung Messages
}

// sniffKeywords lets transaction-looking text from unlisted sources
// through.
var sniffKeywords = []string{
	"debited", "credited", "rs.", "inr", "₹",
	"spent", "paid", "payment", "transaction",
	"upi", "neft", "imps", "balance",
}

// RelevantSource reports whether an event is worth parsing: either the
// source is on the allow-list, or the text smells like a transaction.
func RelevantSource(source, title, body string) bool {
	if knownSources[source] {
		return true
	}
	lower := strings.ToLower(title + " " + body)
	for _, kw := range sniffKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
