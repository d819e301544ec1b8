package main

import (
	"os"
	"strconv"
)

// Config holds service settings read from the environment.
type Config struct {
	Port        string
	CatalogPath string
	AdminToken  string
	DBDisabled  bool
}

func loadConfig() Config {
	return Config{
		Port:        getEnv("PORT", "8080"),
		CatalogPath: getEnv("CATALOG_PATH", "bosses.yaml"),
		AdminToken:  getEnv("ADMIN_TOKEN", ""),
		DBDisabled:  getEnvAsBool("DB_DISABLED", false),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
