package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"net/url"
	"strings"
)

// hmacBase64 is the HMAC-SHA256 scheme used by eSewa and ConnectIPS.
func hmacBase64(secret, message string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(message))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// saltedSHA256Hex is the IME Pay scheme: hex(sha256(message + salt)).
func saltedSHA256Hex(salt, message string) string {
	sum := sha256.Sum256([]byte(message + salt))
	return hex.EncodeToString(sum[:])
}

// joinSigned renders "name=value" pairs in the given order, comma separated.
func joinSigned(names []string, values map[string]string) string {
	parts := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		parts = append(parts, n+"="+values[n])
	}
	return strings.Join(parts, ",")
}

func signaturesEqual(want, got string) bool {
	return hmac.Equal([]byte(want), []byte(got))
}

// addQuery appends key=val to a base URL so failure redirects still carry
// our transaction id.
func addQuery(base, key, val string) string {
	u, err := url.Parse(base)
	if err != nil {
		if strings.Contains(base, "?") {
			return base + "&" + url.QueryEscape(key) + "=" + url.QueryEscape(val)
		}
		return base + "?" + url.QueryEscape(key) + "=" + url.QueryEscape(val)
	}
	q := u.Query()
	q.Set(key, val)
	u.RawQuery = q.Encode()
	return u.String()
}

// decodeBase64Param tolerates '+' turned into ' ' by query decoding and
// URL-safe alphabets.
func decodeBase64Param(s string) ([]byte, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), " ", "+")
	if b, err := base64.StdEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return base64.URLEncoding.DecodeString(s)
}
