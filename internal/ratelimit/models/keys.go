package models

import (
	"fmt"
	"strings"
)

// CounterKey is a value object encapsulating rate counter key construction.
// It centralizes key format and sanitization so counters for distinct
// (bucket, identity) pairs can never collide.
type CounterKey struct {
	bucket   Bucket
	identity string
}

// NewCounterKey creates a counter key for the given bucket and identity.
// Identity is an IP address, authenticated subject id, or IdentityAnonymous.
func NewCounterKey(bucket Bucket, identity string) CounterKey {
	if identity == "" {
		identity = IdentityAnonymous
	}
	return CounterKey{
		bucket:   bucket,
		identity: sanitizeKeySegment(identity),
	}
}

// String returns the formatted key for storage lookup.
func (k CounterKey) String() string {
	return fmt.Sprintf("ratelimit:%s:%s", k.bucket, k.identity)
}

// sanitizeKeySegment escapes delimiter characters in counter key segments
// to prevent key collision attacks where user-controlled identifiers
// containing ':' could manipulate adjacent counters.
//
// Escape rules (order matters):
//  1. Escape '_' to '__' (escape the escape character first)
//  2. Escape ':' to '_c' (escape the delimiter)
//
// No two distinct inputs produce the same sanitized output.
func sanitizeKeySegment(s string) string {
	s = strings.ReplaceAll(s, "_", "__")
	s = strings.ReplaceAll(s, ":", "_c")
	return s
}
