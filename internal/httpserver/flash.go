package httpserver

import (
	"fmt"
	"net/http"

	"github.com/gorilla/securecookie"
)

const flashCookieName = "laudo_flash"

// maxFlashes keeps the cookie well under the 4 KB browsers accept.
const maxFlashes = 8

// Flash kinds, also used as CSS classes by the pages.
const (
	flashError   = "error"
	flashWarning = "warning"
	flashSuccess = "success"
)

// Flash is a one-shot message shown on the next page the user sees.
type Flash struct {
	Kind    string `json:"k"`
	Message string `json:"m"`
}

// flashStore keeps flashes in a cookie signed by securecookie. A cookie
// that fails to decode is dropped silently.
type flashStore struct {
	codec  *securecookie.SecureCookie
	secure bool
}

func newFlashStore(hashKey []byte, secure bool) *flashStore {
	codec := securecookie.New(hashKey, nil)
	codec.SetSerializer(securecookie.JSONEncoder{})
	return &flashStore{codec: codec, secure: secure}
}

func (s *flashStore) set(w http.ResponseWriter, flashes []Flash) error {
	if len(flashes) == 0 {
		return nil
	}
	if len(flashes) > maxFlashes {
		extra := len(flashes) - maxFlashes + 1
		flashes = append(flashes[:maxFlashes-1:maxFlashes-1], Flash{
			Kind:    flashWarning,
			Message: fmt.Sprintf("Mais %d avisos foram omitidos.", extra),
		})
	}
	encoded, err := s.codec.Encode(flashCookieName, flashes)
	if err != nil {
		return fmt.Errorf("encode flash cookie: %w", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    encoded,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// pop returns the pending flashes and clears the cookie.
func (s *flashStore) pop(w http.ResponseWriter, r *http.Request) []Flash {
	cookie, err := r.Cookie(flashCookieName)
	if err != nil {
		return nil
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})

	var flashes []Flash
	if err := s.codec.Decode(flashCookieName, cookie.Value, &flashes); err != nil {
		return nil
	}
	return flashes
}
