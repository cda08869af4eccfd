package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/prboard/internal/model"
	"github.com/hitoshi/prboard/internal/profile"
)

// ProfileServiceInterface はプロフィールハンドラーが必要とするサービスインターフェース。
type ProfileServiceInterface interface {
	Get(ctx context.Context, userID string) (*model.Profile, error)
	Update(ctx context.Context, userID string, in profile.UpdateInput) (*model.Profile, error)
	Contributions(ctx context.Context, userID string) ([]model.ContributionWithProject, error)
	Activity(ctx context.Context, userID string) (*profile.Activity, error)
}

// ProfileHandler はプロフィールとユーザー別コントリビューションのHTTPハンドラー。
type ProfileHandler struct {
	service ProfileServiceInterface
}

// NewProfileHandler はProfileHandlerを生成する。
func NewProfileHandler(service ProfileServiceInterface) *ProfileHandler {
	return &ProfileHandler{service: service}
}

type updateProfileRequest struct {
	DisplayName    string `json:"display_name"`
	GitHubUsername string `json:"github_username"`
}

// GetOwn は自分のプロフィールを返す。
// GET /api/profile
func (h *ProfileHandler) GetOwn(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	p, err := h.service.Get(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProfileResponse(p))
}

// UpdateOwn は自分のプロフィールを作成または更新する。
// PUT /api/profile
func (h *ProfileHandler) UpdateOwn(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req updateProfileRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	p, err := h.service.Update(r.Context(), userID, profile.UpdateInput{
		DisplayName:    req.DisplayName,
		GitHubUsername: req.GitHubUsername,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProfileResponse(p))
}

// OwnContributions は自分のコントリビューションをプロジェクト情報付きで返す。
// GET /api/profile/contributions
func (h *ProfileHandler) OwnContributions(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	contributions, err := h.service.Contributions(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"contributions": toContributionResponses(contributions),
	})
}

// Activity は公開ユーザーページのプロフィールとコントリビューションを返す。
// GET /api/users/{userId}
func (h *ProfileHandler) Activity(w http.ResponseWriter, r *http.Request) {
	activity, err := h.service.Activity(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, activityResponse{
		Profile:       toProfileResponse(activity.Profile),
		Contributions: toContributionResponses(activity.Contributions),
	})
}
