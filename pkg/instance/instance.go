package instance

import (
	"os"
	"strings"
)

// GetID names this running process in logs. FRYSEN_INSTANCE_ID wins, then the
// host name, then "local".
func GetID() string {
	if id := strings.TrimSpace(os.Getenv("FRYSEN_INSTANCE_ID")); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "local"
}
