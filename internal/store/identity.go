package store

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
)

// JobID derives the cache identifier for a single video: the first 12 hex
// characters of the MD5 digest of its canonical URL. Deterministic, so the
// same canonical URL always maps to the same id. The algorithm and
// truncation length are fixed; callers must not assume anything beyond
// "12 lowercase hex characters".
func JobID(canonicalURL string) string {
	sum := md5.Sum([]byte(canonicalURL))
	return hex.EncodeToString(sum[:])[:12]
}

// CompositeJobID derives the identifier for a comparison or trend batch
// from its member URLs in submission order. Permuting the order yields a
// different id: the member sequence is part of the batch's identity.
func CompositeJobID(urls []string) string {
	return JobID(strings.Join(urls, "\n"))
}
