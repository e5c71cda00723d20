package identity

import (
	"net/url"
	"testing"

	"tradebull/crypto"
)

func TestResolve(t *testing.T) {
	user := url.Values{"user": {`{"id":42,"username":"bull"}`}, "auth_date": {"1"}}

	t.Run("unsigned without token", func(t *testing.T) {
		id := Resolve(user.Encode(), "", "")
		if id.UserID != "42" || id.Source != SourceTelegram || id.Username != "bull" {
			t.Errorf("unexpected identity %+v", id)
		}
	})

	t.Run("signed with token", func(t *testing.T) {
		v := url.Values{"user": user["user"], "auth_date": user["auth_date"]}
		v.Set("hash", crypto.SignInitData(v, "tok"))
		id := Resolve(v.Encode(), "tok", "")
		if id.UserID != "42" {
			t.Errorf("expected telegram id, got %+v", id)
		}
	})

	t.Run("unsigned with token falls back", func(t *testing.T) {
		id := Resolve(user.Encode(), "tok", "")
		if id.UserID != DefaultFallbackID || id.Source != SourceFallback {
			t.Errorf("expected fallback, got %+v", id)
		}
	})

	t.Run("empty", func(t *testing.T) {
		if id := Resolve("", "", "guest"); id.UserID != "guest" {
			t.Errorf("expected custom fallback, got %+v", id)
		}
	})

	t.Run("no user id", func(t *testing.T) {
		v := url.Values{"user": {`{"first_name":"x"}`}}
		if id := Resolve(v.Encode(), "", ""); id.Source != SourceFallback {
			t.Errorf("expected fallback, got %+v", id)
		}
	})
}
