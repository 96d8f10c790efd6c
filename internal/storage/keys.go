package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// SafetyWindow is subtracted from the platform ttl before caching a reference.
const SafetyWindow = 60 * time.Second

// MediaKey identifies one uploaded resource
type MediaKey struct {
	Scope    string `json:"scope"` // "c2c" or "group"
	TargetID string `json:"target_id"`
	FileType int    `json:"file_type"`
	URL      string `json:"url"`
}

// ------------------------------------------------------------------------------------------------------
// CacheKey hashes the key fields so long URLs stay bounded
func (k MediaKey) CacheKey() string {
	data, _ := json.Marshal(k)
	hash := sha256.Sum256(data)
	return fmt.Sprintf("media:%s", hex.EncodeToString(hash[:]))
}

// ------------------------------------------------------------------------------------------------------
// CacheTTL converts the platform ttl in seconds into how long a reference may be reused.
// Zero means do not cache.
func CacheTTL(ttlSeconds int64) time.Duration {
	ttl := time.Duration(ttlSeconds)*time.Second - SafetyWindow
	if ttl <= 0 {
		return 0
	}
	return ttl
}
