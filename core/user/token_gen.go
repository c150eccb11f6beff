package user

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
	"time"
)

var (
	tokenSalt = []byte("researchnest/password-reset")
	nowFunc   = time.Now // mockable

	// errors
	errInvalidToken = errors.New("invalid token")
	errTokenExpired = errors.New("token expired")
)

// tokenGenerator makes and checks password reset tokens of the form "<issued at, base36 unix>-<signature>".
// The signature covers the user's password hash & last login, so setting a password or signing in
// invalidates every token issued before.
type tokenGenerator struct {
	secretKey    []byte
	timeoutDelta time.Duration
}

// EncodeUID encodes the id of usr for use in a password reset link.
func EncodeUID(usr User) string {
	return base64.RawURLEncoding.EncodeToString([]byte(usr.ID))
}

func decodeUID(uid string) (string, error) {
	id, err := base64.RawURLEncoding.DecodeString(uid)
	if err != nil {
		return "", err
	}
	return string(id), nil
}

func (tg tokenGenerator) makeToken(usr User) string {
	return tg.tokenAt(usr, nowFunc().Unix())
}

func (tg tokenGenerator) verifyToken(usr User, token string) error {
	tsPart, _, ok := strings.Cut(token, "-")
	if !ok {
		return errInvalidToken
	}
	issuedAt, err := strconv.ParseInt(tsPart, 36, 64)
	if err != nil {
		return errInvalidToken
	}
	if !hmac.Equal([]byte(tg.tokenAt(usr, issuedAt)), []byte(token)) {
		return errInvalidToken
	}
	if nowFunc().Sub(time.Unix(issuedAt, 0)) > tg.timeoutDelta {
		return errTokenExpired
	}
	return nil
}

func (tg tokenGenerator) tokenAt(usr User, issuedAt int64) string {
	mac := hmac.New(sha256.New, append(append([]byte{}, tokenSalt...), tg.secretKey...))
	mac.Write([]byte(usr.ID))
	mac.Write(usr.PasswordHash)
	if !usr.LastLogin.IsZero() {
		mac.Write([]byte(usr.LastLogin.UTC().Format(time.RFC3339Nano)))
	}
	ts := strconv.FormatInt(issuedAt, 36)
	mac.Write([]byte(ts))
	return ts + "-" + base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
