package config

import "os"

var (
	DEBUG      = os.Getenv("TKMOVESET_DEBUG") != ""
	CONFIG     = os.Getenv("TKMOVESET_CONFIG")
	OUTPUT_DIR = envOr("TKMOVESET_OUTPUT_DIR", "extracted_chars")
)

func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
