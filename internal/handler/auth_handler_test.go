package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/prboard/internal/model"
)

// --- モック定義 ---

type mockAuthService struct {
	getLoginURLFn   func(state string) string
	handleCallbackFn func(ctx context.Context, code string) (*model.Session, error)
	logoutFn         func(ctx context.Context, sessionID string) error
	getCurrentUserFn func(ctx context.Context, sessionID string) (*model.User, error)
}

func (m *mockAuthService) GetLoginURL(state string) string {
	if m.getLoginURLFn != nil {
		return m.getLoginURLFn(state)
	}
	return ""
}

func (m *mockAuthService) HandleCallback(ctx context.Context, code string) (*model.Session, error) {
	if m.handleCallbackFn != nil {
		return m.handleCallbackFn(ctx, code)
	}
	return nil, nil
}

func (m *mockAuthService) Logout(ctx context.Context, sessionID string) error {
	if m.logoutFn != nil {
		return m.logoutFn(ctx, sessionID)
	}
	return nil
}

func (m *mockAuthService) GetCurrentUser(ctx context.Context, sessionID string) (*model.User, error) {
	if m.getCurrentUserFn != nil {
		return m.getCurrentUserFn(ctx, sessionID)
	}
	return nil, nil
}

// --- テスト ---

const testBaseURL = "http://localhost:3000"

func responseCookie(resp *http.Response, name string) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// callbackRequest はstate Cookie付きのコールバックリクエストを生成する。
func callbackRequest(query string, cookies ...*http.Cookie) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/auth/github/callback?"+query, nil)
	req.AddCookie(&http.Cookie{Name: oauthStateCookie, Value: "test-state"})
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return req
}

func TestAuthHandler_Login(t *testing.T) {
	svc := &mockAuthService{
		getLoginURLFn: func(state string) string {
			return "https://github.com/login/oauth/authorize?state=" + state
		},
	}
	h := NewAuthHandler(svc, AuthHandlerConfig{BaseURL: testBaseURL, SessionMaxAge: 86400})

	tests := []struct {
		name         string
		target       string
		wantReturnTo string
	}{
		{"return_toなし", "/auth/github/login", ""},
		{"相対パス", "/auth/github/login?return_to=%2Fleaderboards%2Flb-1", "/leaderboards/lb-1"},
		{"プロトコル相対は無視", "/auth/github/login?return_to=%2F%2Fevil.example", ""},
		{"絶対URLは無視", "/auth/github/login?return_to=https%3A%2F%2Fevil.example", ""},
		{"バックスラッシュは無視", "/auth/github/login?return_to=%2F%5Cevil.example", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			h.Login(w, httptest.NewRequest(http.MethodGet, tt.target, nil))

			resp := w.Result()
			if resp.StatusCode != http.StatusTemporaryRedirect {
				t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusTemporaryRedirect)
			}
			state := responseCookie(resp, oauthStateCookie)
			if state == nil || state.Value == "" {
				t.Fatal("expected oauth_state cookie")
			}
			if !state.HttpOnly || state.MaxAge != oauthCookieMaxAge {
				t.Errorf("state cookie = %+v", state)
			}
			if loc := resp.Header.Get("Location"); loc != "https://github.com/login/oauth/authorize?state="+state.Value {
				t.Errorf("Location = %q, should carry the cookie state", loc)
			}

			rt := responseCookie(resp, oauthReturnToCookie)
			switch {
			case tt.wantReturnTo == "" && rt != nil:
				t.Errorf("return_to cookie should not be set, got %q", rt.Value)
			case tt.wantReturnTo != "" && (rt == nil || rt.Value != tt.wantReturnTo):
				t.Errorf("return_to cookie = %v, want %q", rt, tt.wantReturnTo)
			}
		})
	}
}

func TestAuthHandler_Callback_Success_SetsCookieAndRedirects(t *testing.T) {
	var gotCode string
	svc := &mockAuthService{
		handleCallbackFn: func(ctx context.Context, code string) (*model.Session, error) {
			gotCode = code
			return &model.Session{ID: "session-id-abc", UserID: "user-id-123", ExpiresAt: time.Now().Add(24 * time.Hour)}, nil
		},
	}
	h := NewAuthHandler(svc, AuthHandlerConfig{BaseURL: testBaseURL, CookieSecure: true, SessionMaxAge: 86400})

	tests := []struct {
		name    string
		cookies []*http.Cookie
		wantLoc string
	}{
		{"BaseURLへ戻る", nil, testBaseURL},
		{"return_toへ戻る", []*http.Cookie{{Name: oauthReturnToCookie, Value: "/profile"}}, testBaseURL + "/profile"},
		{"改ざんされたreturn_toは無視", []*http.Cookie{{Name: oauthReturnToCookie, Value: "//evil.example"}}, testBaseURL},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			h.Callback(w, callbackRequest("code=test-code&state=test-state", tt.cookies...))

			resp := w.Result()
			if resp.StatusCode != http.StatusTemporaryRedirect {
				t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusTemporaryRedirect)
			}
			if loc := resp.Header.Get("Location"); loc != tt.wantLoc {
				t.Errorf("Location = %q, want %q", loc, tt.wantLoc)
			}
			if gotCode != "test-code" {
				t.Errorf("code = %q, want %q", gotCode, "test-code")
			}

			session := responseCookie(resp, "session_id")
			if session == nil {
				t.Fatal("expected session_id cookie to be set")
			}
			if session.Value != "session-id-abc" || session.MaxAge != 86400 {
				t.Errorf("session cookie = %+v", session)
			}
			if !session.HttpOnly || !session.Secure || session.SameSite != http.SameSiteLaxMode {
				t.Errorf("session cookie attributes = %+v", session)
			}
			if state := responseCookie(resp, oauthStateCookie); state == nil || state.MaxAge != -1 {
				t.Errorf("oauth_state cookie should be cleared, got %+v", state)
			}
		})
	}
}

func TestAuthHandler_Callback_Rejections(t *testing.T) {
	called := false
	svc := &mockAuthService{
		handleCallbackFn: func(ctx context.Context, code string) (*model.Session, error) {
			called = true
			return nil, errors.New("auth failed")
		},
	}
	h := NewAuthHandler(svc, AuthHandlerConfig{BaseURL: testBaseURL})

	tests := []struct {
		name       string
		req        *http.Request
		wantStatus int
		wantCalled bool
	}{
		{"code欠落", callbackRequest("state=test-state"), http.StatusBadRequest, false},
		{"state不一致", callbackRequest("code=c&state=wrong-state"), http.StatusBadRequest, false},
		{"state Cookieなし", httptest.NewRequest(http.MethodGet, "/auth/github/callback?code=c&state=test-state", nil), http.StatusBadRequest, false},
		{"認証処理の失敗", callbackRequest("code=bad-code&state=test-state"), http.StatusInternalServerError, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called = false
			w := httptest.NewRecorder()
			h.Callback(w, tt.req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if called != tt.wantCalled {
				t.Errorf("HandleCallback called = %v, want %v", called, tt.wantCalled)
			}
			if responseCookie(w.Result(), "session_id") != nil {
				t.Error("session cookie must not be issued")
			}
		})
	}
}

func TestAuthHandler_Callback_AuthorizationDeclined_RedirectsWithError(t *testing.T) {
	svc := &mockAuthService{
		handleCallbackFn: func(ctx context.Context, code string) (*model.Session, error) {
			t.Error("HandleCallback should not be called when authorization is declined")
			return nil, nil
		},
	}
	h := NewAuthHandler(svc, AuthHandlerConfig{BaseURL: testBaseURL + "/"})

	w := httptest.NewRecorder()
	h.Callback(w, callbackRequest("error=access_denied&state=test-state"))

	if w.Code != http.StatusTemporaryRedirect {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusTemporaryRedirect)
	}
	if loc := w.Header().Get("Location"); loc != testBaseURL+"/?login_error=access_denied" {
		t.Errorf("Location = %q", loc)
	}
}

func TestAuthHandler_Logout(t *testing.T) {
	tests := []struct {
		name       string
		cookie     string
		logoutErr  error
		wantLogout string
	}{
		{"セッションあり", "session-to-logout", nil, "session-to-logout"},
		{"破棄に失敗してもCookieはクリア", "session-x", errors.New("db down"), "session-x"},
		{"セッションなし", "", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			svc := &mockAuthService{
				logoutFn: func(ctx context.Context, sessionID string) error {
					got = sessionID
					return tt.logoutErr
				},
			}
			h := NewAuthHandler(svc, AuthHandlerConfig{BaseURL: testBaseURL})

			req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: "session_id", Value: tt.cookie})
			}
			w := httptest.NewRecorder()
			h.Logout(w, req)

			resp := w.Result()
			if resp.StatusCode != http.StatusSeeOther {
				t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusSeeOther)
			}
			if loc := resp.Header.Get("Location"); loc != testBaseURL {
				t.Errorf("Location = %q, want %q", loc, testBaseURL)
			}
			if got != tt.wantLogout {
				t.Errorf("Logout(%q), want %q", got, tt.wantLogout)
			}
			if c := responseCookie(resp, "session_id"); c == nil || c.MaxAge != -1 {
				t.Errorf("session cookie should be cleared, got %+v", c)
			}
		})
	}
}

func TestSafeReturnPath(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"/", true},
		{"/leaderboards/abc?tab=ranking", true},
		{"", false},
		{"leaderboards", false},
		{"//evil.example", false},
		{`/\evil.example`, false},
		{"https://evil.example/", false},
		{"/" + strings.Repeat("a", 600), false},
	}
	for _, tt := range tests {
		if _, ok := safeReturnPath(tt.in); ok != tt.want {
			t.Errorf("safeReturnPath(%q) = %v, want %v", tt.in, ok, tt.want)
		}
	}
}

func TestAuthHandler_Me_Authenticated_ReturnsUserJSON(t *testing.T) {
	svc := &mockAuthService{
		getCurrentUserFn: func(ctx context.Context, sessionID string) (*model.User, error) {
			return &model.User{
				ID:    "user-id-me",
				Email: "me@example.com",
				Name:  "Me User",
			}, nil
		},
	}
	h := NewAuthHandler(svc, AuthHandlerConfig{
		BaseURL: "http://localhost:3000",
	})

	tests := []struct {
		name        string
		viewer      *model.Viewer
		wantIsAdmin bool
	}{
		{"管理者", &model.Viewer{UserID: "user-id-me", IsAdmin: true}, true},
		{"一般ユーザー", &model.Viewer{UserID: "user-id-me"}, false},
		{"閲覧者が別ユーザー", &model.Viewer{UserID: "other", IsAdmin: true}, false},
		{"閲覧者なし", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
			req.AddCookie(&http.Cookie{Name: "session_id", Value: "valid-session"})
			if tt.viewer != nil {
				req = withViewer(req, *tt.viewer)
			}
			w := httptest.NewRecorder()

			h.Me(w, req)

			resp := w.Result()
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
			}
			if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q, want %q", ct, "application/json")
			}

			var body struct {
				User struct {
					ID    string `json:"id"`
					Email string `json:"email"`
				} `json:"user"`
				IsAdmin bool `json:"is_admin"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if body.User.ID != "user-id-me" {
				t.Errorf("user.id = %q, want %q", body.User.ID, "user-id-me")
			}
			if body.IsAdmin != tt.wantIsAdmin {
				t.Errorf("is_admin = %v, want %v", body.IsAdmin, tt.wantIsAdmin)
			}
		})
	}
}

func TestAuthHandler_Me_InvalidSession_ReturnsUnauthorized(t *testing.T) {
	svc := &mockAuthService{
		getCurrentUserFn: func(ctx context.Context, sessionID string) (*model.User, error) {
			return nil, errors.New("session not found or expired")
		},
	}
	h := NewAuthHandler(svc, AuthHandlerConfig{BaseURL: "http://localhost:3000"})

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "expired"})
	w := httptest.NewRecorder()

	h.Me(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
	body := parseAPIErrorResponse(t, w)
	if body["code"] != model.ErrCodeUnauthorized {
		t.Errorf("code = %q, want %q", body["code"], model.ErrCodeUnauthorized)
	}
}

func TestAuthHandler_Me_NoSession_ReturnsUnauthorized(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, AuthHandlerConfig{
		BaseURL: "http://localhost:3000",
	})

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	w := httptest.NewRecorder()

	h.Me(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
	}
}
