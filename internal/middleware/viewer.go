// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hitoshi/prboard/internal/model"
)

// SessionCookieName はセッションIDを保持するCookie名。
const SessionCookieName = "session_id"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// viewerContextKey はリクエストコンテキストにViewerを格納するためのキー。
var viewerContextKey = contextKey("viewer")

// ViewerResolver はセッションIDから閲覧者を解決するインターフェース。
// auth.Serviceが実装する。未ログインの場合はnil, nilを返す。
type ViewerResolver interface {
	ResolveViewer(ctx context.Context, sessionID string) (*model.Viewer, error)
}

// NewViewerMiddleware はCookieのセッションから閲覧者を一度だけ解決し、
// リクエストコンテキストに注入するミドルウェアを返す。
// 未ログインや解決失敗のリクエストは匿名としてそのまま通過させる。
func NewViewerMiddleware(resolver ViewerResolver, logger *slog.Logger) func(next http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			viewer, err := resolver.ResolveViewer(r.Context(), cookie.Value)
			if err != nil {
				logger.Error("閲覧者の解決に失敗しました",
					slog.String("error", err.Error()),
				)
				next.ServeHTTP(w, r)
				return
			}
			if viewer == nil {
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithViewer(r.Context(), *viewer)))
		})
	}
}

// RequireViewer はログイン済みの閲覧者がいないリクエストに401を返すミドルウェア。
// NewViewerMiddlewareの後に配置する。
func RequireViewer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := ViewerFromContext(r.Context()); !ok {
			WriteAPIError(w, model.NewUnauthorizedError())
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin は管理者以外のリクエストを拒否するミドルウェア。
// 未ログインは401、管理者権限がない場合は403を返す。
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		viewer, ok := ViewerFromContext(r.Context())
		if !ok {
			WriteAPIError(w, model.NewUnauthorizedError())
			return
		}
		if !viewer.IsAdmin {
			WriteAPIError(w, model.NewForbiddenError())
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ViewerFromContext はリクエストコンテキストから閲覧者を取得する。
// 値のコピーを返すため、呼び出し側で変更しても他のハンドラーには影響しない。
func ViewerFromContext(ctx context.Context) (model.Viewer, bool) {
	viewer, ok := ctx.Value(viewerContextKey).(model.Viewer)
	if !ok || viewer.UserID == "" {
		return model.Viewer{}, false
	}
	return viewer, true
}

// ContextWithViewer はコンテキストに閲覧者を注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithViewer(ctx context.Context, viewer model.Viewer) context.Context {
	return context.WithValue(ctx, viewerContextKey, viewer)
}

// UserIDFromContext はリクエストコンテキストから閲覧者のユーザーIDを取得する。
func UserIDFromContext(ctx context.Context) (string, bool) {
	viewer, ok := ViewerFromContext(ctx)
	if !ok {
		return "", false
	}
	return viewer.UserID, true
}
