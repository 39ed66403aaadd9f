// Package cache stores resolved finding tables keyed by report content, so
// re-annotating an unchanged report is free.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache defines the interface for result caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Key derives the cache key for a report from its full text and the
// annotation fingerprint (selected targets and lexicon content), so a table
// computed under one configuration is never served to another. The key is
// versioned so cascade changes can invalidate old entries.
func Key(reportText, fingerprint string) string {
	hash := sha256.Sum256([]byte(fingerprint + "\x00" + reportText))
	return "tbiextract:v2:" + hex.EncodeToString(hash[:])
}
