package pipeline

import "github.com/google/uuid"

// IDGenerator produces run identifiers
type IDGenerator func() string

// UUIDv7 returns a generator of time-sortable RFC 9562 UUID v7 strings
func UUIDv7() IDGenerator {
	return func() string {
		return uuid.Must(uuid.NewV7()).String()
	}
}

// Prefixed prepends a fixed prefix to every generated id
func Prefixed(prefix string, gen IDGenerator) IDGenerator {
	return func() string {
		return prefix + gen()
	}
}

// Fixed always returns id. Useful for reproducible output.
func Fixed(id string) IDGenerator {
	return func() string {
		return id
	}
}
