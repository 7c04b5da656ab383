// Package middleware contains the Gin middleware of the fake PawConnect
// backend.
//
// This file provides SecurityHeaders, the header set every answer of the
// backend carries. The backend answers like a browser-facing JSON API.
//
// Design notes:
//   - No Content-Security-Policy: the backend never serves HTML
//   - HSTS is opt-in and only emitted on HTTPS requests
//   - X-Request-ID is always exposed so browser clients can read it
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// SecurityOptions configures SecurityHeaders.
//
// HSTSMaxAge is the Strict-Transport-Security lifetime; zero or negative
// means 180 days. NoStore marks every answer uncacheable.
type SecurityOptions struct {
	EnableHSTS bool          // only honoured on HTTPS requests
	HSTSMaxAge time.Duration // default 180 days
	NoStore    bool          // Cache-Control: no-store on every answer
}

// SecurityHeaders returns a Gin middleware that adds a conservative header
// set to each response.
//
// Behavior:
//   - Always sets:
//     X-Content-Type-Options: nosniff
//     X-Frame-Options: DENY
//     Referrer-Policy: no-referrer
//     Permissions-Policy: geolocation=(), microphone=(), camera=(), payment=()
//   - When NoStore: Cache-Control: no-store
//   - When EnableHSTS and the request is HTTPS (TLS or X-Forwarded-Proto):
//     Strict-Transport-Security: max-age=<seconds>; includeSubDomains
//   - Appends X-Request-ID to Access-Control-Expose-Headers, keeping any
//     names an earlier middleware (CORS) already listed.
//
// Headers are set before the handler runs, so they are present on aborted
// and recovered requests too.
func SecurityHeaders(opt SecurityOptions) gin.HandlerFunc {
	maxAge := int(opt.HSTSMaxAge.Seconds())
	if maxAge <= 0 {
		maxAge = int((180 * 24 * time.Hour).Seconds())
	}
	hsts := "max-age=" + strconv.Itoa(maxAge) + "; includeSubDomains"

	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=(), payment=()")

		if opt.NoStore {
			h.Set("Cache-Control", "no-store")
		}
		if opt.EnableHSTS && isHTTPS(c.Request) {
			h.Set("Strict-Transport-Security", hsts)
		}

		const expose = "Access-Control-Expose-Headers"
		if cur := h.Get(expose); cur == "" {
			h.Set(expose, requestIDHeader)
		} else if !strings.Contains(cur, requestIDHeader) {
			h.Set(expose, cur+", "+requestIDHeader)
		}

		c.Next()
	}
}

func isHTTPS(r *http.Request) bool {
	return r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}
