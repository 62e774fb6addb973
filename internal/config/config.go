// Package config centralizes the environment variables the bot runs on.
// Loaded once in main and passed down explicitly.
package config

import "os"

// Config holds every environment-sourced setting.
type Config struct {
	Port string

	// Meta webhook / Graph API credentials. Token and phone number id
	// may be empty in development; outbound sends then fail with a
	// configuration error.
	VerifyToken   string
	WhatsAppToken string
	PhoneNumberID string
	GraphBaseURL  string

	// Persistence. Empty DatabaseURL selects the in-memory store;
	// RedisURL is optional and enables the read cache plus durable
	// webhook dedup.
	DatabaseURL string
	RedisURL    string
}

// Load reads the environment and applies defaults.
func Load() Config {
	return Config{
		Port:          getEnv("PORT", "8080"),
		VerifyToken:   getEnv("VERIFY_TOKEN", "dev_verify_token_change_me"),
		WhatsAppToken: getEnv("WHATSAPP_TOKEN", ""),
		PhoneNumberID: getEnv("PHONE_NUMBER_ID", ""),
		GraphBaseURL:  getEnv("GRAPH_BASE_URL", "https://graph.facebook.com/v19.0"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		RedisURL:      getEnv("REDIS_URL", ""),
	}
}

// getEnv returns the environment value or the default.
func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}
