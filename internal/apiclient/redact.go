package apiclient

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	uuidRE  = regexp.MustCompile(`(?i)\b[0-9a-f]{8}-[0-9a-f]{4}-[1-5][0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}\b`)
	emailRE = regexp.MustCompile(`(?i)[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}`)

	// Query parameters whose values are never logged.
	secretParams = map[string]struct{}{"token": {}, "email": {}, "password": {}}
)

// redactURL renders u for logs with one-time tokens, emails and UUIDs
// scrubbed. Order matters: IDs, then secrets, then emails.
func redactURL(u *url.URL) string {
	if u == nil {
		return ""
	}
	path := uuidRE.ReplaceAllString(u.Path, "[REDACTED:id]")
	// One-time reset tokens travel in the path: /api/auth/reset/{token}.
	if i := strings.Index(path, "/reset/"); i >= 0 {
		path = path[:i+len("/reset/")] + "[REDACTED]"
	}
	path = emailRE.ReplaceAllString(path, "[REDACTED:email]")

	q := u.Query()
	for k := range q {
		if _, ok := secretParams[strings.ToLower(k)]; ok {
			q.Set(k, "[REDACTED]")
		}
	}
	out := u.Scheme + "://" + u.Host + path
	if len(q) > 0 {
		enc, _ := url.QueryUnescape(q.Encode())
		out += "?" + emailRE.ReplaceAllString(enc, "[REDACTED:email]")
	}
	return out
}
