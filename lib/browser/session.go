package browser

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"

	"boincstats/lib/textutil"
)

const SessionExt = ".session"

type sessionCookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// SessionKey is the cache filename the session of a site is kept under.
func SessionKey(siteName string) string {
	return textutil.Sanitize(siteName) + SessionExt
}

// sessionURL is the url whose cookies make up the session.
func (b *Browser) sessionURL() (*url.URL, error) {
	return url.Parse(b.site.LoginURL)
}

func (b *Browser) saveSession() {
	if b.site.Name == "" {
		return
	}
	u, err := b.sessionURL()
	if err != nil {
		b.tel.ReportWarning(report_browser_session, fmt.Errorf("parse session url: %w", err))
		return
	}

	cookies := []sessionCookie{}
	for _, c := range b.jar.Cookies(u) {
		cookies = append(cookies, sessionCookie{Name: c.Name, Value: c.Value})
	}
	serialized, err := json.Marshal(cookies)
	if err != nil {
		b.tel.ReportWarning(report_browser_session, fmt.Errorf("serialize: %w", err))
		return
	}
	err = b.cache.WriteFile(SessionKey(b.site.Name), serialized)
	if err != nil {
		b.tel.ReportWarning(report_browser_session, fmt.Errorf("write: %w", err))
	}
}

// loadSession restores the cookies of a previous session, a missing
// session is not an error.
func (b *Browser) loadSession() {
	if b.site.Name == "" || b.site.LoginURL == "" {
		return
	}
	contents, err := b.cache.ReadFile(SessionKey(b.site.Name))
	if os.IsNotExist(err) {
		b.tel.ReportDebug("no previous session", b.site.Name)
		return
	}
	if err != nil {
		b.tel.ReportWarning(report_browser_session, fmt.Errorf("read: %w", err))
		return
	}

	var cookies []sessionCookie
	err = json.Unmarshal(contents, &cookies)
	if err != nil {
		b.tel.ReportWarning(report_browser_session, fmt.Errorf("deserialize: %w", err))
		return
	}
	u, err := b.sessionURL()
	if err != nil {
		b.tel.ReportWarning(report_browser_session, fmt.Errorf("parse session url: %w", err))
		return
	}

	restored := make([]*http.Cookie, len(cookies))
	for i, c := range cookies {
		restored[i] = &http.Cookie{
			Name:  c.Name,
			Value: c.Value,
			Path:  "/",
		}
	}
	b.jar.SetCookies(u, restored)
	b.tel.ReportDebug("restored session", b.site.Name, len(restored))
}
