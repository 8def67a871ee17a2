package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Addr              string
	PostgresURL       string
	RedisAddr         string
	FiscalGatewayAddr string
	FiscalTimeout     time.Duration
	AutoIssue         bool
	HoldTTL           time.Duration
	ProbeInterval     time.Duration
	JWTSecret         string
	BoardingPassDir   string
}

func Load() Config {
	return Config{
		Addr:              getEnv("ADDR", ":8080"),
		PostgresURL:       getEnv("POSTGRES_URL", ""),
		RedisAddr:         getEnv("REDIS_ADDR", "localhost:6379"),
		FiscalGatewayAddr: getEnv("FISCAL_GATEWAY_ADDR", ""),
		FiscalTimeout:     getDuration("FISCAL_TIMEOUT", 15*time.Second),
		AutoIssue:         getBool("AUTO_ISSUE", true),
		HoldTTL:           getDuration("HOLD_TTL", 10*time.Minute),
		ProbeInterval:     getDuration("PROBE_INTERVAL", 10*time.Second),
		JWTSecret:         getEnv("JWT_SECRET", ""),
		BoardingPassDir:   getEnv("BOARDING_PASS_DIR", "boarding-passes"),
	}
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func getBool(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
