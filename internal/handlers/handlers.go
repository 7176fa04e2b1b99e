package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"finetract/internal/budget"
	"finetract/internal/database"
	"finetract/internal/feed"
	"finetract/internal/ingest"
	"finetract/internal/ledger"
	"finetract/internal/logger"
	"finetract/internal/models"
	"finetract/internal/version"
)

type Handler struct {
	db           *database.DB
	ledger       *ledger.Ledger
	ingest       *ingest.Service
	hub          *feed.Hub
	lookbackDays int
	upgrader     websocket.Upgrader
}

func New(db *database.DB, l *ledger.Ledger, ing *ingest.Service, hub *feed.Hub, lookbackDays int) *Handler {
	return &Handler{
		db:           db,
		ledger:       l,
		ingest:       ing,
		hub:          hub,
		lookbackDays: lookbackDays,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Local companion app, not a public origin.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// NotificationsCreate ingests one notification event through the full
// pipeline and reports the outcome.
func (h *Handler) NotificationsCreate(w http.ResponseWriter, r *http.Request) {
	l := logger.FromContext(r.Context())

	var ev ingest.Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if ev.TimestampMillis == 0 {
		ev.TimestampMillis = time.Now().UnixMilli()
	}

	out, err := h.ingest.Process(ev)
	if err != nil {
		l.Error("notification_ingest_error", "error", err.Error())
		writeError(w, http.StatusInternalServerError, "failed to process notification")
		return
	}
	writeJSON(w, http.StatusAccepted, out)
}

// Today returns the daily budget summary: spend, limit, alert level and
// the daily insight.
func (h *Handler) Today(w http.ResponseWriter, r *http.Request) {
	l := logger.FromContext(r.Context())

	total, limit, err := h.ledger.Today()
	if err != nil {
		l.Error("today_summary_error", "error", err.Error())
		writeError(w, http.StatusInternalServerError, "failed to load summary")
		return
	}

	streak, err := h.ledger.Streak()
	if err != nil {
		l.Error("streak_error", "error", err.Error())
		streak = 0
	}

	cutoff := time.Now().AddDate(0, 0, -h.lookbackDays).UnixMilli()
	merchant, err := h.db.RecentRecurringMerchant(cutoff)
	if err != nil {
		l.Error("recurring_merchant_error", "error", err.Error())
	}

	level, percent := budget.Evaluate(total.TotalSpend, limit)
	writeJSON(w, http.StatusOK, map[string]any{
		"date":             total.Date,
		"total_spend":      total.TotalSpend,
		"daily_limit":      limit,
		"percent":          percent,
		"alert_level":      level,
		"over_limit_count": total.OverLimitCount,
		"streak_days":      streak,
		"insight":          budget.ComputeInsight(total.TotalSpend, limit, streak, merchant),
	})
}

// TransactionsList returns transaction history, newest first. since,
// type and category query params filter it.
func (h *Handler) TransactionsList(w http.ResponseWriter, r *http.Request) {
	l := logger.FromContext(r.Context())

	filter := models.TransactionFilter{
		Type:     models.TxnType(r.URL.Query().Get("type")),
		Category: r.URL.Query().Get("category"),
	}
	if since := r.URL.Query().Get("since"); since != "" {
		ms, err := strconv.ParseInt(since, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "since must be epoch milliseconds")
			return
		}
		filter.SinceMillis = ms
	}

	txns, err := h.db.ListTransactions(filter)
	if err != nil {
		l.Error("transactions_list_error", "error", err.Error())
		writeError(w, http.StatusInternalServerError, "failed to load transactions")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"transactions": txns,
		"count":        len(txns),
	})
}

// TransactionsClear wipes every transaction, aggregate and processed
// marker. Explicit user action only.
func (h *Handler) TransactionsClear(w http.ResponseWriter, r *http.Request) {
	l := logger.FromContext(r.Context())
	if err := h.ledger.Reset(); err != nil {
		l.Error("transactions_clear_error", "error", err.Error())
		writeError(w, http.StatusInternalServerError, "failed to clear transactions")
		return
	}
	l.Info("transactions_cleared")
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

type settingPayload struct {
	Value float64 `json:"value"`
}

func (h *Handler) LimitGet(w http.ResponseWriter, r *http.Request) {
	limit, err := h.db.GetDailyLimit(0)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read limit")
		return
	}
	writeJSON(w, http.StatusOK, settingPayload{Value: limit})
}

func (h *Handler) LimitPut(w http.ResponseWriter, r *http.Request) {
	var p settingPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if p.Value < 0 {
		writeError(w, http.StatusBadRequest, "limit must not be negative")
		return
	}
	if err := h.db.SetDailyLimit(p.Value); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save limit")
		return
	}
	logger.FromContext(r.Context()).Info("daily_limit_updated", "limit", p.Value)
	writeJSON(w, http.StatusOK, settingPayload{Value: p.Value})
}

func (h *Handler) ThresholdGet(w http.ResponseWriter, r *http.Request) {
	threshold, err := h.db.GetLargePaymentThreshold()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read threshold")
		return
	}
	writeJSON(w, http.StatusOK, settingPayload{Value: threshold})
}

// ThresholdPut sets the large-payment cutoff. Zero disables it.
func (h *Handler) ThresholdPut(w http.ResponseWriter, r *http.Request) {
	var p settingPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if p.Value < 0 {
		writeError(w, http.StatusBadRequest, "threshold must not be negative")
		return
	}
	if err := h.db.SetLargePaymentThreshold(p.Value); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save threshold")
		return
	}
	logger.FromContext(r.Context()).Info("large_payment_threshold_updated", "threshold", p.Value)
	writeJSON(w, http.StatusOK, settingPayload{Value: p.Value})
}

// JobStatus returns the status of a background job as JSON (for polling)
func (h *Handler) JobStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid job ID")
		return
	}

	job, err := h.db.GetJob(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":       job.ID,
		"status":   job.Status,
		"progress": job.Progress,
		"result":   job.Result,
	})
}

func (h *Handler) Version(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": version.Version})
}

// Feed upgrades the connection and attaches it to the live event feed.
// Inbound frames are drained and discarded; the feed is one-way.
func (h *Handler) Feed(w http.ResponseWriter, r *http.Request) {
	l := logger.FromContext(r.Context())

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		l.Error("feed_upgrade_error", "error", err.Error())
		return
	}
	h.hub.Register(conn)

	go func() {
		defer h.hub.Unregister(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
