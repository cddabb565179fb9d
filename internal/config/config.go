package config

import "os"

type Config struct {
	Port      string
	JWTSecret string

	// StoreBackend selects the document store: "memory" or "firestore".
	StoreBackend string

	// Firestore settings, used when StoreBackend is "firestore".
	GoogleProjectID       string
	GoogleCredentialsFile string
}

func Load() *Config {
	return &Config{
		Port:                  getEnv("PORT", "8081"),
		JWTSecret:             getEnv("JWT_SECRET", "dev-secret-change-in-production"),
		StoreBackend:          getEnv("STORE_BACKEND", "memory"),
		GoogleProjectID:       getEnv("GOOGLE_PROJECT_ID", ""),
		GoogleCredentialsFile: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
