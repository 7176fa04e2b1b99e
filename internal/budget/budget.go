package budget

// AlertLevel is the budget standing derived from spend vs. limit.
type AlertLevel string

const (
	LevelNone        AlertLevel = "NONE"
	LevelApproaching AlertLevel = "APPROACHING"
	LevelExceeded    AlertLevel = "EXCEEDED"
)

// approachingPercent is the threshold where the reminder fires.
const approachingPercent = 70.0

// Evaluate derives the alert level and percent used from today's spend and
// the daily limit. Pure and side-effect free; limit <= 0 means no budget
// is set.
func Evaluate(spentToday, dailyLimit float64) (AlertLevel, float64) {
	if dailyLimit <= 0 {
		return LevelNone, 0
	}
	percent := spentToday / dailyLimit * 100
	switch {
	case percent >= 100:
		return LevelExceeded, percent
	case percent >= approachingPercent:
		return LevelApproaching, percent
	default:
		return LevelNone, percent
	}
}
