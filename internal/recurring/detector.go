package recurring

import (
	"fmt"
	"math"
	"strings"
	"time"

	"finetract/internal/database"
	"finetract/internal/models"
)

// Config holds the similarity tolerances. The source history carried two
// divergent variants (35 days/5% and 90 days/10%); they are pinned here as
// explicit configuration with the tighter variant as default.
type Config struct {
	LookbackDays    int     // history window scanned for matches
	AmountTolerance float64 // fractional variance allowed, e.g. 0.05
	DayTolerance    int     // +/- days-of-month considered the same slot
	MinMatches      int     // prior matches required to flag
}

// DefaultConfig is the tuning used when nothing is configured.
var DefaultConfig = Config{
	LookbackDays:    35,
	AmountTolerance: 0.05,
	DayTolerance:    3,
	MinMatches:      2,
}

// Detection describes a flagged recurring pattern.
type Detection struct {
	Merchant    string
	Amount      float64
	Occurrences int // matches found plus the triggering transaction
}

// Detector scans history for amount/description/day-of-month similarity
// after each accepted transaction.
type Detector struct {
	db  *database.DB
	cfg Config
}

func NewDetector(db *database.DB, cfg Config) *Detector {
	if cfg.LookbackDays <= 0 {
		cfg.LookbackDays = DefaultConfig.LookbackDays
	}
	if cfg.AmountTolerance <= 0 {
		cfg.AmountTolerance = DefaultConfig.AmountTolerance
	}
	if cfg.DayTolerance <= 0 {
		cfg.DayTolerance = DefaultConfig.DayTolerance
	}
	if cfg.MinMatches <= 0 {
		cfg.MinMatches = DefaultConfig.MinMatches
	}
	return &Detector{db: db, cfg: cfg}
}

// Analyze looks back over the configured window for prior transactions
// similar to txn. When enough matches exist it flags txn and every match
// as recurring and reports the detection; otherwise it returns nil.
func (d *Detector) Analyze(txn *models.Transaction) (*Detection, error) {
	if txn.Amount <= 0 || strings.TrimSpace(txn.Description) == "" {
		return nil, nil
	}

	cutoff := txn.Timestamp - int64(d.cfg.LookbackDays)*millisPerDay
	recent, err := d.db.TransactionsSince(cutoff)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	var matches []models.Transaction
	for _, existing := range recent {
		if existing.ID == txn.ID {
			continue
		}
		if d.similarAmount(existing.Amount, txn.Amount) &&
			similarDescription(existing.Description, txn.Description) &&
			d.similarDayOfMonth(existing.DayOfMonth(), txn.DayOfMonth()) {
			matches = append(matches, existing)
		}
	}

	if len(matches) < d.cfg.MinMatches {
		return nil, nil
	}

	if err := d.db.SetRecurringFlag(txn.ID, true); err != nil {
		return nil, fmt.Errorf("flag transaction: %w", err)
	}
	// Backfill: the historical occurrences are part of the same pattern.
	for _, m := range matches {
		if err := d.db.SetRecurringFlag(m.ID, true); err != nil {
			return nil, fmt.Errorf("flag match: %w", err)
		}
	}

	return &Detection{
		Merchant:    txn.Description,
		Amount:      txn.Amount,
		Occurrences: len(matches) + 1,
	}, nil
}

const millisPerDay = int64(24 * time.Hour / time.Millisecond)

func (d *Detector) similarAmount(a, b float64) bool {
	if a == 0 || b == 0 {
		return false
	}
	variance := math.Abs(a-b) / math.Max(a, b)
	return variance <= d.cfg.AmountTolerance
}

// similarDescription matches exactly (case-insensitive) or by containment
// when the contained string is long enough to not be noise.
func similarDescription(a, b string) bool {
	ac := strings.ToLower(strings.TrimSpace(a))
	bc := strings.ToLower(strings.TrimSpace(b))
	if ac == "" || bc == "" {
		return false
	}
	if ac == bc {
		return true
	}
	if len(ac) > 4 && strings.Contains(bc, ac) {
		return true
	}
	if len(bc) > 4 && strings.Contains(ac, bc) {
		return true
	}
	return false
}

func (d *Detector) similarDayOfMonth(a, b int) bool {
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	return diff <= d.cfg.DayTolerance
}
