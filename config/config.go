package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultPort               = "8080"
	defaultDatabasePath       = "family.db"
	defaultAllowedOrigins     = "http://localhost:5173"
	defaultMaxBloodHops       = 4
	defaultMaxSpouseHops      = 2
	defaultRelationQueueSize  = 200
	defaultNumRelationWorkers = 4
	defaultGormLogLevel       = "warn"
)

type Config struct {
	Port string

	// sqlite file shared by gorm and the relationship store
	DatabasePath string

	// optional YAML rule file; empty means the embedded default table
	RulesPath string

	AllowedOrigins []string

	// traversal bounds
	MaxBloodHops  int
	MaxSpouseHops int

	// how long a loaded member graph and rule table are reused, 0 reloads per call
	SnapshotTTL time.Duration

	// worker settings
	RelationQueueSize  int
	NumRelationWorkers int

	GormLogLevel string
}

func getEnvOrDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvIntOrDefault(envVar string, defaultVal int) int {
	valStr := os.Getenv(envVar)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil || val <= 0 {
		log.Printf("Warning: Invalid %s '%s'. Using default %d. Error: %v", envVar, valStr, defaultVal, err)
		return defaultVal
	}
	return val
}

// getEnvNonNegativeIntOrDefault is getEnvIntOrDefault for settings where 0 is meaningful.
func getEnvNonNegativeIntOrDefault(envVar string, defaultVal int) int {
	valStr := os.Getenv(envVar)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil || val < 0 {
		log.Printf("Warning: Invalid %s '%s'. Using default %d. Error: %v", envVar, valStr, defaultVal, err)
		return defaultVal
	}
	return val
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func LoadConfig() (Config, error) {
	origins := splitList(getEnvOrDefault("ALLOWED_ORIGINS", defaultAllowedOrigins))
	if len(origins) == 0 {
		origins = []string{defaultAllowedOrigins}
	}

	ttl := getEnvNonNegativeIntOrDefault("SNAPSHOT_TTL_SECONDS", 0)

	gormLevel := strings.ToLower(getEnvOrDefault("GORM_LOG_LEVEL", defaultGormLogLevel))
	switch gormLevel {
	case "silent", "error", "warn", "info":
	default:
		log.Printf("Warning: Invalid GORM_LOG_LEVEL '%s'. Using default %s.", gormLevel, defaultGormLogLevel)
		gormLevel = defaultGormLogLevel
	}

	cfg := Config{
		Port:               getEnvOrDefault("PORT", defaultPort),
		DatabasePath:       getEnvOrDefault("DATABASE_PATH", defaultDatabasePath),
		RulesPath:          os.Getenv("RULES_PATH"),
		AllowedOrigins:     origins,
		MaxBloodHops:       getEnvIntOrDefault("MAX_BLOOD_HOPS", defaultMaxBloodHops),
		MaxSpouseHops:      getEnvNonNegativeIntOrDefault("MAX_SPOUSE_HOPS", defaultMaxSpouseHops),
		SnapshotTTL:        time.Duration(ttl) * time.Second,
		RelationQueueSize:  getEnvIntOrDefault("RELATION_QUEUE_SIZE", defaultRelationQueueSize),
		NumRelationWorkers: getEnvIntOrDefault("NUM_RELATION_WORKERS", defaultNumRelationWorkers),
		GormLogLevel:       gormLevel,
	}

	return cfg, nil
}
