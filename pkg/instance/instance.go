package instance

import "os"

// GetID identifies this process in logs. SW_INSTANCE_ID wins, then the
// hostname, then a static fallback for bare local runs.
func GetID() string {
	if id := os.Getenv("SW_INSTANCE_ID"); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "local-0"
}
