// Package config provides shared configuration utilities and the game balance.
package config

import "os"

// GetEnv returns the value of the environment variable named by the key,
// or fallback if the variable is not set.
func GetEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// ConfigPath returns the game balance file named by PATCHTYPER_CONFIG, if any.
func ConfigPath() string {
	return GetEnv(EnvPrefix+"_CONFIG", "")
}

// CatalogPath returns the threat catalog file named by PATCHTYPER_CATALOG, if any.
func CatalogPath() string {
	return GetEnv(EnvPrefix+"_CATALOG", "")
}
