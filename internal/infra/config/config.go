package config

import (
	"os"
	"strconv"
)

type Config struct {
	Env                 string
	Port                string
	BoardAPIURL         string
	BoardAPITimeout     int
	DiffFetchLimit      int
	PrefetchConcurrency int
	CacheMaxEntries     int
}

func Load() *Config {
	return &Config{
		Env:                 getEnv("ENV", "development"),
		Port:                getEnv("PORT", "9020"),
		BoardAPIURL:         getEnv("BOARD_API_URL", "http://board-api:8080"),
		BoardAPITimeout:     getEnvInt("BOARD_API_TIMEOUT", 30),
		DiffFetchLimit:      getEnvInt("DIFF_FETCH_LIMIT", 500),
		PrefetchConcurrency: getEnvInt("PREFETCH_CONCURRENCY", 2),
		CacheMaxEntries:     getEnvInt("CACHE_MAX_ENTRIES", 512),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}
