package ratelimit

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

const keyPrefix = "rl"

// DefaultKeyStrategy keys on a hash of the endpoint class, the client IP and
// the User-Agent. The raw values never reach the store.
func DefaultKeyStrategy(class EndpointClass, info RequestInfo) string {
	return buildKey(class, "fp", fingerprint(string(class), info.ClientIP, info.UserAgent))
}

// UserOrFingerprint keys on the authenticated user when there is one, so
// users behind a shared NAT do not exhaust each other's quota. Anonymous
// requests fall back to DefaultKeyStrategy.
func UserOrFingerprint(class EndpointClass, info RequestInfo) string {
	if info.UserID == "" {
		return DefaultKeyStrategy(class, info)
	}
	return buildKey(class, "user", SanitizeKeySegment(info.UserID))
}

// SanitizeKeySegment escapes the key delimiter so a user-controlled value
// cannot address a neighbouring key.
func SanitizeKeySegment(s string) string {
	return strings.ReplaceAll(s, ":", "_")
}

func buildKey(class EndpointClass, kind, id string) string {
	return keyPrefix + ":" + string(class) + ":" + kind + ":" + id
}

func fingerprint(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0x1f})
	}
	return hex.EncodeToString(h.Sum(nil))[:32]
}
