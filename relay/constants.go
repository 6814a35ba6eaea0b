package relay

import (
	"os"
	"path/filepath"
)

const (
	DefaultAppName     = "ai-counselor"
	DefaultDatabaseDir = "data"
	DefaultDatabaseDSN = "file:data/ai-counselor.db"

	// RequestIDHeader is read case-insensitively; the canonical form is echoed back.
	RequestIDHeader = "Ai-Counselor-Request-Id"
)

var (
	DefaultConfigPath = filepath.Join(userConfigDir(), DefaultAppName)
	Version           = "dev"
)

func userConfigDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return dir
	}
	return "."
}
