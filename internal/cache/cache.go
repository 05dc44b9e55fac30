package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/ppiankov/brdsynth/internal/model"
)

// Cache stores capability payloads by key
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// PayloadKey derives the cache key of a capability payload from the
// capability name (provider and model) and the cleaned record text
func PayloadKey(capability, text string) string {
	hash := sha256.Sum256([]byte(capability + "\x00" + text))
	return "brdsynth:v1:" + hex.EncodeToString(hash[:])
}

// New builds the cache described by the configuration. It returns nil when
// caching is disabled.
func New(config model.CacheConfig) Cache {
	if !config.Enabled {
		return nil
	}
	memoryTTL := time.Duration(config.MemoryTTLMinutes) * time.Minute
	if config.DiskDir == "" {
		return NewMemoryCache(memoryTTL, 10*time.Minute)
	}
	return NewLayeredCache(memoryTTL, config.DiskDir, time.Duration(config.DiskTTLHours)*time.Hour)
}
