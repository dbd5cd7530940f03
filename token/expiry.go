package token

import (
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// Expiry reads the exp claim of a JWT without verifying its signature. The
// client holds no key, so the value is informational only. ok is false when
// the token is not a JWT or has no exp claim.
func Expiry(rawToken string) (exp time.Time, ok bool) {
	if strings.TrimSpace(rawToken) == "" {
		return time.Time{}, false
	}

	unverified, _, err := jwtlib.NewParser().ParseUnverified(rawToken, jwtlib.MapClaims{})
	if err != nil {
		return time.Time{}, false
	}

	expClaim, err := unverified.Claims.GetExpirationTime()
	if err != nil || expClaim == nil {
		return time.Time{}, false
	}
	return expClaim.Time, true
}

// IsExpired reports whether rawToken carries an exp claim in the past. Tokens
// whose expiry cannot be read are not considered expired.
func IsExpired(rawToken string) bool {
	exp, ok := Expiry(rawToken)
	if !ok {
		return false
	}
	return !NowTimeFunc().Before(exp)
}
