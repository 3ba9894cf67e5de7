package env

import "os"

// Get returns the named environment variable, or fallback when it is unset
// or empty. Empty values are treated as unset so blank lines in a .env file
// do not mask the fallback.
func Get(key, fallback string) string {
	val, ok := os.LookupEnv(key)
	if !ok || val == "" {
		return fallback
	}
	return val
}
