package eldbook

import (
	"os"
	"strings"
)

const (
	// EnvBypass disables the book when set to "true" (any case).
	EnvBypass = "ELDBOOK_BYPASS"

	// EnvDir overrides the log directory.
	EnvDir = "ELDBOOK_DIR"

	// DefaultDir is the log directory used when none is configured.
	DefaultDir = "eldbook"
)

// Config is the process-level configuration of a book.
type Config struct {
	Dir    string
	Bypass bool
}

// ConfigFromEnv reads ELDBOOK_DIR and ELDBOOK_BYPASS.
func ConfigFromEnv() Config {
	cfg := Config{Dir: DefaultDir}
	if dir := os.Getenv(EnvDir); dir != "" {
		cfg.Dir = dir
	}
	cfg.Bypass = parseBool(os.Getenv(EnvBypass))
	return cfg
}

// parseBool accepts only "true", ignoring case. Everything else, including
// "1", "yes" and padded values, is false.
func parseBool(s string) bool {
	return strings.EqualFold(s, "true")
}
