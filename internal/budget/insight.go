package budget

// InsightKind tags the DailyInsight variant.
type InsightKind string

const (
	InsightNone              InsightKind = "none"
	InsightOverLimit         InsightKind = "over_limit"
	InsightNearLimit         InsightKind = "near_limit"
	InsightRecurringDetected InsightKind = "recurring_detected"
	InsightPositiveStreak    InsightKind = "positive_streak"
	InsightNoTransactions    InsightKind = "no_transactions"
)

// Insight is a tagged union: Kind selects the variant and the matching
// field carries its data. Consumers switch on Kind exhaustively.
type Insight struct {
	Kind      InsightKind `json:"kind"`
	Over      float64     `json:"over,omitempty"`      // over_limit: amount over
	Remaining float64     `json:"remaining,omitempty"` // near_limit: amount left
	Merchant  string      `json:"merchant,omitempty"`  // recurring_detected
	Days      int         `json:"days,omitempty"`      // positive_streak
}

// nearLimitRatio is the fraction of the limit beyond which the day is
// considered nearly spent.
const nearLimitRatio = 0.85

// ComputeInsight picks the single most relevant observation about today,
// in fixed priority order.
func ComputeInsight(spent, limit float64, streakDays int, recurringMerchant string) Insight {
	if limit <= 0 {
		return Insight{Kind: InsightNone}
	}
	if spent > limit {
		return Insight{Kind: InsightOverLimit, Over: spent - limit}
	}
	if spent/limit > nearLimitRatio {
		return Insight{Kind: InsightNearLimit, Remaining: limit - spent}
	}
	if recurringMerchant != "" {
		return Insight{Kind: InsightRecurringDetected, Merchant: recurringMerchant}
	}
	if streakDays >= 3 {
		return Insight{Kind: InsightPositiveStreak, Days: streakDays}
	}
	if spent == 0 {
		return Insight{Kind: InsightNoTransactions}
	}
	return Insight{Kind: InsightNone}
}
