package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/prboard/internal/model"
)

// mockUserService はUserServiceInterfaceのモック実装。
type mockUserService struct {
	withdrawFn func(ctx context.Context, userID string) error
}

func (m *mockUserService) Withdraw(ctx context.Context, userID string) error {
	if m.withdrawFn != nil {
		return m.withdrawFn(ctx, userID)
	}
	return nil
}

// DELETE /api/users/me
func TestUserHandler_Withdraw(t *testing.T) {
	tests := []struct {
		name        string
		viewerID    string
		withCookie  bool
		serviceErr  error
		wantStatus  int
		wantCode    string
		wantCleared bool
	}{
		{"成功しCookieを削除", "user-123", true, nil, http.StatusNoContent, "", true},
		{"Cookieなしでも成功", "user-123", false, nil, http.StatusNoContent, "", false},
		{"閲覧者なし", "", true, nil, http.StatusUnauthorized, model.ErrCodeUnauthorized, false},
		{"ユーザーなし", "user-123", true, model.NewUserNotFoundError(), http.StatusNotFound, model.ErrCodeUserNotFound, false},
		{"ストア障害", "user-123", true, model.NewStoreError("ユーザーの削除に失敗しました", errors.New("connection refused")), http.StatusInternalServerError, model.ErrCodeStoreError, false},
		{"予期しないエラー", "user-123", true, errors.New("transaction failed"), http.StatusInternalServerError, model.ErrCodeInternal, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotUserID string
			svc := &mockUserService{
				withdrawFn: func(ctx context.Context, userID string) error {
					gotUserID = userID
					return tt.serviceErr
				},
			}
			h := NewUserHandler(svc, AuthHandlerConfig{CookieDomain: "example.com", CookieSecure: true})

			req := httptest.NewRequest(http.MethodDelete, "/api/users/me", nil)
			if tt.viewerID != "" {
				req = withUserID(req, tt.viewerID)
			}
			if tt.withCookie {
				req.AddCookie(&http.Cookie{Name: "session_id", Value: "s-1"})
			}
			w := httptest.NewRecorder()

			h.Withdraw(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.viewerID != "" && gotUserID != tt.viewerID {
				t.Errorf("Withdraw(%q), want %q", gotUserID, tt.viewerID)
			}
			if tt.wantCode != "" {
				if body := parseAPIErrorResponse(t, w); body["code"] != tt.wantCode {
					t.Errorf("code = %q, want %q", body["code"], tt.wantCode)
				}
			}

			c := responseCookie(w.Result(), "session_id")
			if tt.wantCleared {
				if c == nil || c.MaxAge != -1 || c.Domain != "example.com" || !c.Secure {
					t.Errorf("session cookie should be cleared with login attributes, got %+v", c)
				}
			} else if c != nil {
				t.Errorf("session cookie should not be touched, got %+v", c)
			}
		})
	}
}

func TestUserHandler_Withdraw_StoreErrorMessage(t *testing.T) {
	svc := &mockUserService{
		withdrawFn: func(ctx context.Context, userID string) error {
			return model.NewStoreError("ユーザーの削除に失敗しました", errors.New("connection refused"))
		},
	}
	h := NewUserHandler(svc, AuthHandlerConfig{})

	w := httptest.NewRecorder()
	h.Withdraw(w, withUserID(httptest.NewRequest(http.MethodDelete, "/api/users/me", nil), "user-123"))

	body := parseAPIErrorResponse(t, w)
	if body["message"] != "ユーザーの削除に失敗しました: connection refused" {
		t.Errorf("message = %q, want store error message", body["message"])
	}
}
