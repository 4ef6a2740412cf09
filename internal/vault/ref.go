package vault

import (
	"fmt"
	"strings"
)

// RefPrefix marks a configuration value that must be read from Vault.
const RefPrefix = "vault:"

// IsRef reports whether value is a Vault reference.
func IsRef(value string) bool { return strings.HasPrefix(value, RefPrefix) }

// ParseRef splits `vault:secret/splitlink/db#password` into its KV path and
// key.  ok is false for plain values; a reference without a path or key is an
// error.
func ParseRef(value string) (path, key string, ok bool, err error) {
	if !IsRef(value) {
		return "", "", false, nil
	}
	path, key, found := strings.Cut(strings.TrimPrefix(value, RefPrefix), "#")
	if !found || path == "" || key == "" {
		return "", "", true, fmt.Errorf("vault ref %q: want vault:<path>#<key>", value)
	}
	return path, key, true, nil
}
