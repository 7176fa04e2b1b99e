package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config is the application configuration. Every tunable the pipeline
// depends on lives here explicitly; nothing reads the environment
// elsewhere except the logger's LOG_LEVEL.
type Config struct {
	Port   string
	DBPath string

	// Ledger tuning.
	DebounceWindow    time.Duration
	DefaultDailyLimit float64

	// Recurrence detection tuning. Two variants existed historically
	// (35 days/5% and 90 days/10%); both are reachable from here.
	RecurrenceLookbackDays    int
	RecurrenceAmountTolerance float64
	RecurrenceDayTolerance    int
	RecurrenceMinMatches      int

	WorkerPollInterval time.Duration
}

// Load reads configuration from a .env file (if present) and the
// environment, falling back to defaults.
func Load() *Config {
	// Missing .env is fine; the environment still applies.
	_ = godotenv.Load()

	cfg := &Config{
		Port:                      envString("PORT", "8080"),
		DBPath:                    envString("FINETRACT_DB_PATH", "./data/finetract.db"),
		DebounceWindow:            time.Duration(envInt("FINETRACT_DEBOUNCE_SECONDS", 10)) * time.Second,
		DefaultDailyLimit:         envFloat("FINETRACT_DEFAULT_DAILY_LIMIT", 5000),
		RecurrenceLookbackDays:    envInt("FINETRACT_RECURRENCE_LOOKBACK_DAYS", 35),
		RecurrenceAmountTolerance: envFloat("FINETRACT_RECURRENCE_AMOUNT_TOLERANCE", 0.05),
		RecurrenceDayTolerance:    envInt("FINETRACT_RECURRENCE_DAY_TOLERANCE", 3),
		RecurrenceMinMatches:      envInt("FINETRACT_RECURRENCE_MIN_MATCHES", 2),
		WorkerPollInterval:        time.Duration(envInt("FINETRACT_WORKER_POLL_SECONDS", 2)) * time.Second,
	}
	return cfg
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			return parsed
		}
	}
	return fallback
}
