package auth

import (
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
)

const CookieName = "access_token"

// CookieCodec stores the access token in a signed, httpOnly cookie
type CookieCodec struct {
	sc     *securecookie.SecureCookie
	secure bool
	ttl    time.Duration
}

func NewCookieCodec(secret string, secure bool, ttl time.Duration) *CookieCodec {
	sc := securecookie.New([]byte(secret), nil)
	sc.MaxAge(int(ttl / time.Second))
	return &CookieCodec{sc: sc, secure: secure, ttl: ttl}
}

func (c *CookieCodec) Set(w http.ResponseWriter, token string) error {
	encoded, err := c.sc.Encode(CookieName, token)
	if err != nil {
		return err
	}
	http.SetCookie(w, c.cookie(encoded, int(c.ttl/time.Second)))
	return nil
}

// Read returns the token, http.ErrNoCookie when the cookie is absent
func (c *CookieCodec) Read(r *http.Request) (string, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return "", err
	}
	var token string
	if err := c.sc.Decode(CookieName, cookie.Value, &token); err != nil {
		return "", err
	}
	return token, nil
}

func (c *CookieCodec) Clear(w http.ResponseWriter) {
	http.SetCookie(w, c.cookie("", -1))
}

func (c *CookieCodec) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	}
}
