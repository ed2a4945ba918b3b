package config

import (
	"fmt"
	"os"
	"strconv"
)

type Config struct {
	Port int

	CrispBaseURL    string
	CrispWebsiteID  string
	CrispIdentifier string
	CrispKey        string

	GeoBaseURL string
	GeoAPIKey  string

	MailgunBaseURL string
	MailgunAPIKey  string
	MailgunDomain  string
	FromEmail      string
	FromName       string

	RoutingCSVPath       string
	GeneralOfficeAgentID string
	HelpDeskAgentID      string

	DedupCapacity int

	RateLimitRPS   float64
	RateLimitBurst int
}

func Load() (*Config, error) {
	port, err := getIntEnv("PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}

	dedupCapacity, err := getIntEnv("DEDUP_CAPACITY", 1000)
	if err != nil {
		return nil, fmt.Errorf("invalid DEDUP_CAPACITY: %w", err)
	}

	rps, err := getFloatEnv("RATE_LIMIT_RPS", 5.0)
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_RPS: %w", err)
	}

	burst, err := getIntEnv("RATE_LIMIT_BURST", 10)
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_BURST: %w", err)
	}

	return &Config{
		Port: port,

		CrispBaseURL:    getEnv("CRISP_BASE_URL", "https://api.crisp.chat/v1"),
		CrispWebsiteID:  getEnv("CRISP_WEBSITE_ID", ""),
		CrispIdentifier: getEnv("CRISP_IDENTIFIER", ""),
		CrispKey:        getEnv("CRISP_KEY", ""),

		GeoBaseURL: getEnv("GEO_BASE_URL", "https://api.ip2location.io/"),
		GeoAPIKey:  getEnv("GEO_API_KEY", ""),

		MailgunBaseURL: getEnv("MAILGUN_BASE_URL", "https://api.mailgun.net"),
		MailgunAPIKey:  getEnv("MAILGUN_API_KEY", ""),
		MailgunDomain:  getEnv("MAILGUN_DOMAIN", ""),
		FromEmail:      getEnv("FROM_EMAIL", ""),
		FromName:       getEnv("FROM_NAME", "Customer Support"),

		RoutingCSVPath:       getEnv("ROUTING_CSV_PATH", "country_routing.csv"),
		GeneralOfficeAgentID: getEnv("GENERAL_OFFICE_AGENT_ID", ""),
		HelpDeskAgentID:      getEnv("HELP_DESK_AGENT_ID", ""),

		DedupCapacity: dedupCapacity,

		RateLimitRPS:   rps,
		RateLimitBurst: burst,
	}, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getIntEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

func getFloatEnv(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.ParseFloat(v, 64)
}
