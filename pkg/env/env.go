// Package env reads process settings needed before config.Load runs.
package env

import (
	"os"
	"strings"
)

const prefix = "PRICESHEETS_"

// Get returns PRICESHEETS_<key>, then <key>, then fallback. Blank values are
// treated as unset.
func Get(key, fallback string) string {
	for _, name := range []string{prefix + key, key} {
		if val := strings.TrimSpace(os.Getenv(name)); val != "" {
			return val
		}
	}
	return fallback
}
