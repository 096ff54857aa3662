package env

import "os"

// Prefix namespaces process-level switches that live outside the config struct.
const Prefix = "ECOSWAP_"

// LogFormat switches the logger between json and console output.
const LogFormat = "LOG_FORMAT"

// Get returns ECOSWAP_<key>, then the bare key, then fallback.
func Get(key, fallback string) string {
	for _, name := range []string{Prefix + key, key} {
		if val := os.Getenv(name); val != "" {
			return val
		}
	}
	return fallback
}
