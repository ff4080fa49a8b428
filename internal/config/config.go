package config

import (
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort string

	// OIDC provider used for external sign-in
	ProviderIssuer       string
	ProviderClientID     string
	ProviderClientSecret string
	ProviderRedirectURL  string

	// Secret used to verify provider deauthorization callbacks.
	// Defaults to the provider client secret when unset.
	DeauthSecret string

	RedisAddr     string
	RedisPassword string

	DatabaseDSN string
}

func Load() Config {

	// Local development convenience; ignored when no .env exists.
	_ = godotenv.Load()

	cfg := Config{

		AppPort: getEnv("APP_PORT", "8080"),

		ProviderIssuer:       os.Getenv("PROVIDER_ISSUER"),
		ProviderClientID:     os.Getenv("PROVIDER_CLIENT_ID"),
		ProviderClientSecret: os.Getenv("PROVIDER_CLIENT_SECRET"),
		ProviderRedirectURL:  os.Getenv("PROVIDER_REDIRECT_URL"),

		DeauthSecret: os.Getenv("DEAUTH_SECRET"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		DatabaseDSN: os.Getenv("DATABASE_DSN"),
	}

	if cfg.DeauthSecret == "" {
		cfg.DeauthSecret = cfg.ProviderClientSecret
	}

	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
