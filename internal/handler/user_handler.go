package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/prboard/internal/middleware"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	// Withdraw はユーザーの退会処理を実行する。
	// sessions、identities、profiles、user_roles、contributionsを削除する。
	// projects、leaderboardsは作成者の紐付けを外して残す。
	Withdraw(ctx context.Context, userID string) error
}

// UserHandler はユーザー管理のHTTPハンドラー。
// セッションCookieの属性はログイン時と揃えるためAuthHandlerConfigを共有する。
type UserHandler struct {
	service UserServiceInterface
	config  AuthHandlerConfig
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface, config AuthHandlerConfig) *UserHandler {
	return &UserHandler{
		service: service,
		config:  config,
	}
}

// Withdraw はユーザーの退会処理を実行し、ブラウザのセッションCookieも削除する。
// DELETE /api/users/me
func (h *UserHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	if err := h.service.Withdraw(r.Context(), userID); err != nil {
		handleServiceError(w, err)
		return
	}

	if _, err := r.Cookie(middleware.SessionCookieName); err == nil {
		http.SetCookie(w, newSessionCookie(h.config, "", -1))
	}
	w.WriteHeader(http.StatusNoContent)
}
