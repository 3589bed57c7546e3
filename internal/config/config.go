package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port            string
	DBUrl           string
	JWTSecret       string
	AppEnv          string
	PromoServiceURL string

	// Pricing policy. Multipliers and packages stay as raw strings here and
	// are parsed by the pricing package.
	GroupMultipliersBps string
	PackageCatalog      string
	FeeRateBps          int64
	FeeFixedCents       int64

	HoldMinutes      int
	SlotHorizonDays  int
	SlotMaxRangeDays int
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	jwtSecret, exists := os.LookupEnv("JWT_SECRET")
	if !exists || jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return &Config{
		Port:            getEnv("PORT", "8080"),
		DBUrl:           getEnv("DB_URL", ""),
		JWTSecret:       jwtSecret,
		AppEnv:          normalizeEnv(getEnv("APP_ENV", "production")),
		PromoServiceURL: getEnv("PROMO_SERVICE_URL", ""),

		GroupMultipliersBps: getEnv("GROUP_MULTIPLIERS_BPS", "10000,16000,20000,24000"),
		PackageCatalog:      getEnv("PACKAGE_CATALOG", "single:1:0,3-pack:3:1000,5-pack:5:1500"),
		FeeRateBps:          getEnvInt64("PROCESSING_FEE_RATE_BPS", 300),
		FeeFixedCents:       getEnvInt64("PROCESSING_FEE_FIXED_CENTS", 30),

		HoldMinutes:      int(getEnvInt64("RESERVATION_HOLD_MINUTES", 30)),
		SlotHorizonDays:  int(getEnvInt64("SLOT_HORIZON_DAYS", 60)),
		SlotMaxRangeDays: int(getEnvInt64("SLOT_MAX_RANGE_DAYS", 90)),
	}, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	value, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(value) == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func normalizeEnv(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "dev", "develop", "development", "local":
		return "development"
	case "prod", "production":
		return "production"
	case "stage", "staging":
		return "staging"
	case "test", "testing":
		return "test"
	default:
		return strings.ToLower(strings.TrimSpace(value))
	}
}
