package utils

import (
	"crypto/md5"
	"fmt"
	"strings"
)

func HashString(input string) string {
	hash := md5.Sum([]byte(input))
	return fmt.Sprintf("%x", hash)
}

// QueryKey derives the cache key for a user query: lowercase, trim, hash.
// The same query text always maps to the same key.
func QueryKey(query string) string {
	return HashString(strings.ToLower(strings.TrimSpace(query)))
}
