package postgres

import (
	"os"
	"testing"

	"econcal/internal/adapters/config"
)

var cfg *config.Config

// TestMain runs before all tests in this package
func TestMain(m *testing.M) {
	// Config is optional here: integration tests skip on their own when the
	// database environment is missing.
	cfg, _ = config.Load()

	code := m.Run()

	os.Exit(code)
}
