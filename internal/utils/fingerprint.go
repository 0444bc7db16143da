package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/Dan9191/fund-advisor/internal/models"
)

// Fingerprint generates an HMAC over sorted holdings. Two portfolios with
// the same fund names and amounts share a fingerprint.
func Fingerprint(holdings []models.Holding, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	var b strings.Builder
	for _, x := range holdings {
		b.WriteString(x.FundName)
		b.WriteByte(0)
		b.WriteString(x.Amount.String())
		b.WriteByte('\n')
	}
	h.Write([]byte(b.String()))
	return hex.EncodeToString(h.Sum(nil))
}

// ETag quotes a fingerprint for use in HTTP headers.
func ETag(fingerprint string) string {
	return `"` + fingerprint + `"`
}

// MatchETag reports whether an If-Match header value names the fingerprint.
// A "*" matches any existing representation.
func MatchETag(header, fingerprint string) bool {
	for _, part := range strings.Split(header, ",") {
		tag := strings.TrimSpace(part)
		tag = strings.TrimPrefix(tag, "W/")
		if tag == "*" || tag == ETag(fingerprint) {
			return true
		}
	}
	return false
}
