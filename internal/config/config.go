package config

import (
	"os"
)

// Config carries everything the process reads from the environment.
type Config struct {
	Port          string
	WordsFile     string
	DatabaseURL   string
	AllowedOrigin string
}

// Load reads the configuration, falling back to development defaults.
// DATABASE_URL has no default: an empty value disables the results archive.
func Load() Config {
	return Config{
		Port:          getEnv("PORT", "8080"),
		WordsFile:     getEnv("WORDS_FILE", "data/words.csv"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		AllowedOrigin: getEnv("ALLOWED_ORIGIN", "*"),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}
