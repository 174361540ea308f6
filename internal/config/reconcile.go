package config

import (
	"os"
	"strconv"
)

// ReconcileConfig drives the scheduled ledger consistency sweep.
type ReconcileConfig struct {
	Enabled   bool
	Schedule  string // cron expression
	BatchSize int
}

func LoadReconcileConfig() *ReconcileConfig {
	return &ReconcileConfig{
		Enabled:   getEnvAsBool("RECONCILE_ENABLED", true),
		Schedule:  getEnv("RECONCILE_SCHEDULE", "0 3 * * *"),
		BatchSize: getEnvAsInt("RECONCILE_BATCH_SIZE", 500),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if boolVal, err := strconv.ParseBool(val); err == nil {
			return boolVal
		}
	}
	return defaultVal
}
