package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/prboard/internal/model"
	"github.com/hitoshi/prboard/internal/profile"
)

func TestProfileHandler_GetOwn(t *testing.T) {
	svc := &mockProfileService{
		getFn: func(ctx context.Context, userID string) (*model.Profile, error) {
			if userID != "user-1" {
				return nil, model.NewProfileNotFoundError(userID)
			}
			return &model.Profile{UserID: "user-1", DisplayName: strPtr("Alice")}, nil
		},
	}
	h := NewProfileHandler(svc)

	t.Run("ログイン済み", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
		req = withUserID(req, "user-1")
		w := httptest.NewRecorder()

		h.GetOwn(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
		}
		var body profileResponse
		decodeBody(t, w, &body)
		if body.DisplayName == nil || *body.DisplayName != "Alice" {
			t.Errorf("display_name = %v, want Alice", body.DisplayName)
		}
	})

	t.Run("未ログイン", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
		w := httptest.NewRecorder()

		h.GetOwn(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
		}
	})
}

func TestProfileHandler_UpdateOwn(t *testing.T) {
	var gotUserID string
	var gotInput profile.UpdateInput
	svc := &mockProfileService{
		updateFn: func(ctx context.Context, userID string, in profile.UpdateInput) (*model.Profile, error) {
			gotUserID = userID
			gotInput = in
			return &model.Profile{
				UserID:          userID,
				DisplayName:     strPtr(in.DisplayName),
				GitHubUsername:  strPtr(in.GitHubUsername),
				GitHubAvatarURL: strPtr(profile.DefaultAvatarURL(in.GitHubUsername)),
			}, nil
		},
	}
	h := NewProfileHandler(svc)

	body := `{"display_name":"Alice","github_username":"alice"}`
	req := httptest.NewRequest(http.MethodPut, "/api/profile", strings.NewReader(body))
	req = withUserID(req, "user-1")
	w := httptest.NewRecorder()

	h.UpdateOwn(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if gotUserID != "user-1" {
		t.Errorf("userID = %q, want %q", gotUserID, "user-1")
	}
	if gotInput.DisplayName != "Alice" || gotInput.GitHubUsername != "alice" {
		t.Errorf("input = %+v", gotInput)
	}

	var resp profileResponse
	decodeBody(t, w, &resp)
	if resp.GitHubAvatarURL == nil || *resp.GitHubAvatarURL != "https://github.com/alice.png" {
		t.Errorf("github_avatar_url = %v, want https://github.com/alice.png", resp.GitHubAvatarURL)
	}
}

func TestProfileHandler_UpdateOwn_InvalidUsername_ReturnsBadRequest(t *testing.T) {
	svc := &mockProfileService{
		updateFn: func(ctx context.Context, userID string, in profile.UpdateInput) (*model.Profile, error) {
			return nil, model.NewInvalidRequestError("GitHubユーザー名の形式が不正です")
		},
	}
	h := NewProfileHandler(svc)

	req := httptest.NewRequest(http.MethodPut, "/api/profile", strings.NewReader(`{"github_username":"-bad-"}`))
	req = withUserID(req, "user-1")
	w := httptest.NewRecorder()

	h.UpdateOwn(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestProfileHandler_OwnContributions(t *testing.T) {
	merged := time.Date(2024, 10, 15, 9, 0, 0, 0, time.UTC)
	svc := &mockProfileService{
		contributionsFn: func(ctx context.Context, userID string) ([]model.ContributionWithProject, error) {
			return []model.ContributionWithProject{
				{
					Contribution: model.Contribution{ID: "c1", UserID: userID, ProjectID: "p1", PRNumber: 42, PRTitle: "Fix bug", MergedAt: merged},
					GitHubOwner:  "golang",
					GitHubRepo:   "go",
				},
			}, nil
		},
	}
	h := NewProfileHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/profile/contributions", nil)
	req = withUserID(req, "user-1")
	w := httptest.NewRecorder()

	h.OwnContributions(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var body struct {
		Contributions []contributionResponse `json:"contributions"`
	}
	decodeBody(t, w, &body)
	if len(body.Contributions) != 1 {
		t.Fatalf("contributions len = %d, want 1", len(body.Contributions))
	}
	c := body.Contributions[0]
	if c.PRNumber != 42 || c.GitHubOwner != "golang" || c.GitHubRepo != "go" {
		t.Errorf("contribution = %+v", c)
	}
}

func TestProfileHandler_Activity(t *testing.T) {
	tests := []struct {
		name       string
		activityFn func(ctx context.Context, userID string) (*profile.Activity, error)
		wantStatus int
	}{
		{
			name: "公開プロフィールあり",
			activityFn: func(ctx context.Context, userID string) (*profile.Activity, error) {
				return &profile.Activity{
					Profile:       &model.Profile{UserID: userID},
					Contributions: []model.ContributionWithProject{},
				}, nil
			},
			wantStatus: http.StatusOK,
		},
		{
			name: "プロフィールなし",
			activityFn: func(ctx context.Context, userID string) (*profile.Activity, error) {
				return nil, model.NewProfileNotFoundError(userID)
			},
			wantStatus: http.StatusNotFound,
		},
		{
			name: "ストアエラー",
			activityFn: func(ctx context.Context, userID string) (*profile.Activity, error) {
				return nil, model.NewStoreError("プロフィールの取得に失敗しました", errors.New("timeout"))
			},
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewProfileHandler(&mockProfileService{activityFn: tt.activityFn})

			req := httptest.NewRequest(http.MethodGet, "/api/users/user-9", nil)
			req = withChiURLParam(req, "userId", "user-9")
			w := httptest.NewRecorder()

			h.Activity(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}
