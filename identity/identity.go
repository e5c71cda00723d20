// Package identity resolves the user id sent with every backend call.
package identity

import (
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"strconv"

	"tradebull/crypto"
)

// DefaultFallbackID is used when the host provides no usable identity.
const DefaultFallbackID = "test1"

// Source describes where the identity came from.
type Source string

const (
	SourceTelegram Source = "telegram"
	SourceFallback Source = "fallback"
)

// Identity is the resolved caller.
type Identity struct {
	UserID   string `json:"userId"`
	Username string `json:"username,omitempty"`
	Source   Source `json:"source"`
}

type telegramUser struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	Username  string `json:"username"`
}

// Resolve reads Telegram WebApp init data. When botToken is set the data must carry a
// valid hash. Anything unusable falls back to fallbackID.
func Resolve(initData, botToken, fallbackID string) Identity {
	if fallbackID == "" {
		fallbackID = DefaultFallbackID
	}
	fallback := Identity{UserID: fallbackID, Source: SourceFallback}

	if initData == "" {
		log.Printf("👤 No Telegram init data, using fallback identity %q", fallbackID)
		return fallback
	}

	id, err := fromInitData(initData, botToken)
	if err != nil {
		log.Printf("⚠️  Telegram identity rejected (%v), using fallback identity %q", err, fallbackID)
		return fallback
	}

	log.Printf("👤 Resolved Telegram identity %s", id.UserID)
	return id
}

func fromInitData(initData, botToken string) (Identity, error) {
	var (
		values url.Values
		err    error
	)
	if botToken != "" {
		values, err = crypto.VerifyInitData(initData, botToken)
	} else {
		values, err = url.ParseQuery(initData)
	}
	if err != nil {
		return Identity{}, err
	}

	raw := values.Get("user")
	if raw == "" {
		return Identity{}, fmt.Errorf("init data has no user")
	}

	var user telegramUser
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return Identity{}, fmt.Errorf("failed to parse user: %w", err)
	}
	if user.ID == 0 {
		return Identity{}, fmt.Errorf("init data user has no id")
	}

	name := user.Username
	if name == "" {
		name = user.FirstName
	}
	return Identity{
		UserID:   strconv.FormatInt(user.ID, 10),
		Username: name,
		Source:   SourceTelegram,
	}, nil
}
