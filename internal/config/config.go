package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	JWTSecret   string
	MongoURI    string
	DBName      string
	SkipAuth    bool
	Environment string
	AppId       string

	// External provider API (catalog sync, default outbound target)
	ProviderBaseURL string
	ProviderToken   string
	ProviderTimeout int // seconds

	// Destination pipelines accepted by the replay importer.
	AllowedPipelines []string

	// Where applied events land: "mongodb" (default) or "postgres"
	TargetDBType   string
	TargetDBConfig map[string]string

	// Record raw inbound payloads to the debug collection
	DebugCapture bool

	// Cron specs for the scheduled passes; empty disables a schedule
	ProcessSchedule  string
	DispatchSchedule string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	} else {
		log.Println("Loaded .env file successfully")
	}

	timeout, err := strconv.Atoi(getEnv("PROVIDER_TIMEOUT_SECONDS", "10"))
	if err != nil || timeout <= 0 {
		timeout = 10
	}

	pipelines := []string{}
	for _, p := range strings.Split(getEnv("ALLOWED_PIPELINES", "6,8"), ",") {
		if p = strings.TrimSpace(p); p != "" {
			pipelines = append(pipelines, p)
		}
	}

	return &Config{
		Port:        getEnv("PORT", "8080"),
		JWTSecret:   getEnv("JWT_SECRET", "secret"),
		MongoURI:    getEnv("MONGO_URI", "mongodb://localhost:27017"),
		DBName:      getEnv("DB_NAME", "go-crm-sync"),
		SkipAuth:    getEnv("SKIP_AUTH", "false") == "true",
		Environment: getEnv("ENVIRONMENT", "development"),
		AppId:       getEnv("APP_ID", "go-crm-sync"),

		ProviderBaseURL: getEnv("PROVIDER_BASE_URL", ""),
		ProviderToken:   getEnv("PROVIDER_API_TOKEN", ""),
		ProviderTimeout: timeout,

		AllowedPipelines: pipelines,

		TargetDBType: getEnv("TARGET_DB_TYPE", "mongodb"),
		TargetDBConfig: map[string]string{
			"host":     getEnv("TARGET_DB_HOST", "localhost"),
			"port":     getEnv("TARGET_DB_PORT", "5432"),
			"user":     getEnv("TARGET_DB_USER", "postgres"),
			"password": getEnv("TARGET_DB_PASSWORD", ""),
			"database": getEnv("TARGET_DB_NAME", "crm"),
		},

		DebugCapture: getEnv("DEBUG_CAPTURE", "false") == "true",

		ProcessSchedule:  getEnv("PROCESS_SCHEDULE", "@every 1m"),
		DispatchSchedule: getEnv("DISPATCH_SCHEDULE", "@every 1m"),
	}, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
