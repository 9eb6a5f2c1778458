package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/tradesmap/internal/config"
)

const sessionCookieName = "_sid"

// cookieJar reads and writes the session cookie.
type cookieJar struct {
	name   string
	secure bool
	ttl    time.Duration
}

func newCookieJar(cfg config.Config) *cookieJar {
	return &cookieJar{
		name:   sessionCookieName,
		secure: cfg.AuthCookieSecure,
		ttl:    cfg.Session.TTL,
	}
}

func (j *cookieJar) Read(c *gin.Context) (string, bool) {
	value, err := c.Cookie(j.name)
	if err != nil {
		return "", false
	}
	if strings.TrimSpace(value) == "" {
		return "", false
	}
	return value, true
}

func (j *cookieJar) Set(c *gin.Context, value string) {
	maxAge := int(j.ttl.Seconds())
	if maxAge < 0 {
		maxAge = 0
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(j.name, value, maxAge, "/", "", j.secure, true)
}

func (j *cookieJar) Clear(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(j.name, "", -1, "/", "", j.secure, true)
}
