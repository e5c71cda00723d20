package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/url"
	"sort"
	"strings"
)

var (
	ErrMissingHash = errors.New("init data has no hash")
	ErrBadHash     = errors.New("init data hash mismatch")
)

// webAppDataKey is the fixed HMAC key Telegram uses to derive the WebApp secret.
const webAppDataKey = "WebAppData"

// SignInitData computes the hex hash Telegram attaches to WebApp init data.
// values must not contain the "hash" field.
func SignInitData(values url.Values, botToken string) string {
	secret := hmacSHA256([]byte(webAppDataKey), []byte(botToken))
	sum := hmacSHA256(secret, []byte(dataCheckString(values)))
	return hex.EncodeToString(sum)
}

// VerifyInitData checks the hash of raw WebApp init data against the bot token
// and returns the parsed fields.
func VerifyInitData(raw, botToken string) (url.Values, error) {
	values, err := url.ParseQuery(raw)
	if err != nil {
		return nil, err
	}

	hash := values.Get("hash")
	if hash == "" {
		return nil, ErrMissingHash
	}
	values.Del("hash")

	want, err := hex.DecodeString(hash)
	if err != nil {
		return nil, ErrBadHash
	}
	got, _ := hex.DecodeString(SignInitData(values, botToken))
	if !hmac.Equal(got, want) {
		return nil, ErrBadHash
	}

	return values, nil
}

func dataCheckString(values url.Values) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, k+"="+values.Get(k))
	}
	return strings.Join(lines, "\n")
}

func hmacSHA256(key, msg []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(msg)
	return mac.Sum(nil)
}
