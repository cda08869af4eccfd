package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/prboard/internal/middleware"
	"github.com/hitoshi/prboard/internal/model"
)

// withViewer はテスト用にリクエストコンテキストに閲覧者を注入するヘルパー。
func withViewer(r *http.Request, viewer model.Viewer) *http.Request {
	return r.WithContext(middleware.ContextWithViewer(r.Context(), viewer))
}

// withUserID は一般ユーザーの閲覧者を注入するヘルパー。
func withUserID(r *http.Request, userID string) *http.Request {
	return withViewer(r, model.Viewer{UserID: userID})
}

// withChiURLParam はテスト用にchiのURLパラメータを注入するヘルパー。
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
	return r.WithContext(ctx)
}

// parseAPIErrorResponse はレスポンスボディからAPIErrorレスポンスをパースするヘルパー。
func parseAPIErrorResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var result map[string]string
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return result
}

// decodeBody はレスポンスボディをvにデコードするヘルパー。
func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode response: %v\nraw: %s", err, w.Body.String())
	}
}

func strPtr(s string) *string { return &s }
