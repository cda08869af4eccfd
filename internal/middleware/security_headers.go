package middleware

import (
	"net/http"
	"strings"
)

// noStorePrefixes は閲覧者固有の内容を返すためキャッシュさせないパス。
var noStorePrefixes = []string{"/auth/", "/api/profile", "/api/admin/", "/api/users/me", "/api/csrf-token"}

// NewSecurityHeadersMiddleware はJSON APIのためのセキュリティヘッダーを付与するミドルウェアを返す。
// hstsがtrueの場合（HTTPS運用時）はStrict-Transport-Securityも付与する。
func NewSecurityHeadersMiddleware(hsts bool) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			h.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
			if hsts {
				h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}
			if isNoStorePath(r.URL.Path) {
				h.Set("Cache-Control", "no-store")
			}
			next.ServeHTTP(w, r)
		})
	}
}

func isNoStorePath(path string) bool {
	for _, p := range noStorePrefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
