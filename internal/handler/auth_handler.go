// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/hitoshi/prboard/internal/middleware"
	"github.com/hitoshi/prboard/internal/model"
)

const (
	oauthStateCookie    = "oauth_state"
	oauthReturnToCookie = "oauth_return_to"
	oauthCookieMaxAge   = 600 // 10分
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	GetLoginURL(state string) string
	HandleCallback(ctx context.Context, code string) (*model.Session, error)
	Logout(ctx context.Context, sessionID string) error
	GetCurrentUser(ctx context.Context, sessionID string) (*model.User, error)
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	BaseURL       string
	CookieDomain  string
	CookieSecure  bool
	SessionMaxAge int // セッションCookieの有効期間（秒）
}

// AuthHandler はGitHub OAuthのログインフローとセッションCookieを扱う。
type AuthHandler struct {
	service AuthServiceInterface
	config  AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{service: service, config: config}
}

type meResponse struct {
	User    meUser `json:"user"`
	IsAdmin bool   `json:"is_admin"`
}

type meUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Login はGitHub OAuthフローを開始する。
// return_to にフロントエンド内の相対パスを渡すと、ログイン後にそこへ戻る。
// GET /auth/github/login?return_to=/leaderboards/xxx
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	state, err := generateState()
	if err != nil {
		slog.Error("failed to generate oauth state", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	http.SetCookie(w, h.oauthCookie(oauthStateCookie, state, oauthCookieMaxAge))
	if returnTo, ok := safeReturnPath(r.URL.Query().Get("return_to")); ok {
		http.SetCookie(w, h.oauthCookie(oauthReturnToCookie, returnTo, oauthCookieMaxAge))
	}

	http.Redirect(w, r, h.service.GetLoginURL(state), http.StatusTemporaryRedirect)
}

// Callback はOAuthコールバックを処理し、セッションCookieを発行する。
// GET /auth/github/callback?code=xxx&state=yyy
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	state := query.Get("state")
	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || state == "" || subtle.ConstantTimeCompare([]byte(stateCookie.Value), []byte(state)) != 1 {
		slog.Warn("oauth state mismatch", slog.Bool("has_cookie", err == nil))
		middleware.WriteAPIError(w, model.NewInvalidRequestError("invalid state parameter"))
		return
	}
	returnTo := "/"
	if c, err := r.Cookie(oauthReturnToCookie); err == nil {
		if p, ok := safeReturnPath(c.Value); ok {
			returnTo = p
		}
	}
	http.SetCookie(w, h.oauthCookie(oauthStateCookie, "", -1))
	http.SetCookie(w, h.oauthCookie(oauthReturnToCookie, "", -1))

	// ユーザーが認可を拒否した場合、GitHubはcodeの代わりにerrorを返す
	if oauthErr := query.Get("error"); oauthErr != "" {
		slog.Info("oauth authorization declined", slog.String("oauth_error", oauthErr))
		http.Redirect(w, r, h.frontendURL("/", url.Values{"login_error": {oauthErr}}), http.StatusTemporaryRedirect)
		return
	}

	code := query.Get("code")
	if code == "" {
		middleware.WriteAPIError(w, model.NewInvalidRequestError("missing authorization code"))
		return
	}

	session, err := h.service.HandleCallback(r.Context(), code)
	if err != nil {
		slog.Error("oauth callback failed", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	http.SetCookie(w, newSessionCookie(h.config, session.ID, h.config.SessionMaxAge))
	http.Redirect(w, r, h.frontendURL(returnTo, nil), http.StatusTemporaryRedirect)
}

// Logout はセッションを破棄し、フロントエンドへ戻す。
// POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(middleware.SessionCookieName); err == nil && cookie.Value != "" {
		if err := h.service.Logout(r.Context(), cookie.Value); err != nil {
			// 失敗してもCookieはクリアする
			slog.Error("failed to logout", slog.String("error", err.Error()))
		}
	}

	http.SetCookie(w, newSessionCookie(h.config, "", -1))
	// POSTの後なので、ブラウザにGETでBaseURLを開かせる
	http.Redirect(w, r, h.frontendURL("/", nil), http.StatusSeeOther)
}

// Me は現在のログインユーザー情報と管理者権限の有無を返す。
// 管理者権限はリクエスト開始時に解決された閲覧者のスナップショットから読み取る。
// GET /auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(middleware.SessionCookieName)
	if err != nil || cookie.Value == "" {
		middleware.WriteAPIError(w, model.NewUnauthorizedError())
		return
	}

	user, err := h.service.GetCurrentUser(r.Context(), cookie.Value)
	if err != nil {
		slog.Warn("failed to get current user", slog.String("error", err.Error()))
		middleware.WriteAPIError(w, model.NewUnauthorizedError())
		return
	}

	viewer, _ := middleware.ViewerFromContext(r.Context())
	writeJSON(w, http.StatusOK, meResponse{
		User:    meUser{ID: user.ID, Email: user.Email, Name: user.Name},
		IsAdmin: viewer.UserID == user.ID && viewer.IsAdmin,
	})
}

// newSessionCookie はHttpOnlyのセッションCookieを生成する。maxAgeが負なら削除用。
func newSessionCookie(config AuthHandlerConfig, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    value,
		Path:     "/",
		Domain:   config.CookieDomain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}

// oauthCookie はOAuthフロー中だけ使う短命Cookieを生成する。
// GitHubからのトップレベル遷移で送られるようSameSite=Laxにする。
func (h *AuthHandler) oauthCookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/auth/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}

// frontendURL はBaseURLにパスとクエリを連結する。
func (h *AuthHandler) frontendURL(path string, query url.Values) string {
	u := strings.TrimRight(h.config.BaseURL, "/")
	if path != "/" {
		u += path
	}
	if len(query) > 0 {
		if path == "/" {
			u += "/"
		}
		u += "?" + query.Encode()
	}
	return u
}

// safeReturnPath はオープンリダイレクトにならない相対パスか判定する。
// "/"で始まり、"//"や"/\"で始まらず、スキームやホストを含まないものだけを許可する。
func safeReturnPath(p string) (string, bool) {
	if p == "" || len(p) > 512 || !strings.HasPrefix(p, "/") {
		return "", false
	}
	if strings.HasPrefix(p, "//") || strings.HasPrefix(p, `/\`) {
		return "", false
	}
	u, err := url.Parse(p)
	if err != nil || u.IsAbs() || u.Host != "" {
		return "", false
	}
	return p, true
}

// generateState はCSRF対策用のランダムなstate値を生成する。
func generateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
