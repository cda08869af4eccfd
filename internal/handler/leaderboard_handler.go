package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/prboard/internal/leaderboard"
	"github.com/hitoshi/prboard/internal/model"
	"github.com/hitoshi/prboard/internal/ranking"
)

// LeaderboardServiceInterface はリーダーボードハンドラーが必要とするサービスインターフェース。
type LeaderboardServiceInterface interface {
	ListActive(ctx context.Context) ([]*model.Leaderboard, error)
	ListAll(ctx context.Context) ([]*model.Leaderboard, error)
	Next(ctx context.Context) (*leaderboard.Next, error)
	Ranking(ctx context.Context, scope string) ([]ranking.Entry, error)
	Create(ctx context.Context, in leaderboard.CreateInput) (*model.Leaderboard, error)
	SetActive(ctx context.Context, id string, active bool) (*model.Leaderboard, error)
	Delete(ctx context.Context, id string) error
}

// LeaderboardHandler はリーダーボードとランキングのHTTPハンドラー。
type LeaderboardHandler struct {
	service LeaderboardServiceInterface
}

// NewLeaderboardHandler はLeaderboardHandlerを生成する。
func NewLeaderboardHandler(service LeaderboardServiceInterface) *LeaderboardHandler {
	return &LeaderboardHandler{service: service}
}

type createLeaderboardRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
}

type setActiveRequest struct {
	IsActive *bool `json:"is_active"`
}

// ListActive は公開中のリーダーボード一覧を返す。
// GET /api/leaderboards
func (h *LeaderboardHandler) ListActive(w http.ResponseWriter, r *http.Request) {
	lbs, err := h.service.ListActive(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"leaderboards": toLeaderboardResponses(lbs),
	})
}

// Next は次に終了するリーダーボードと残り時間を返す。
// GET /api/leaderboards/next
func (h *LeaderboardHandler) Next(w http.ResponseWriter, r *http.Request) {
	next, err := h.service.Next(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nextLeaderboardResponse{
		Leaderboard: toLeaderboardResponse(next.Leaderboard),
		Remaining:   next.Remaining,
	})
}

// Ranking はリーダーボード単位のランキングを返す。idに "all" を指定すると全期間で集計する。
// GET /api/leaderboards/{id}/ranking
func (h *LeaderboardHandler) Ranking(w http.ResponseWriter, r *http.Request) {
	h.writeRanking(w, r, chi.URLParam(r, "id"))
}

// GlobalRanking は全期間のランキングを返す。
// GET /api/ranking
func (h *LeaderboardHandler) GlobalRanking(w http.ResponseWriter, r *http.Request) {
	h.writeRanking(w, r, model.AllTimeScope)
}

func (h *LeaderboardHandler) writeRanking(w http.ResponseWriter, r *http.Request, scope string) {
	entries, err := h.service.Ranking(r.Context(), scope)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRankingResponse(scope, entries))
}

// AdminList は非公開を含む全リーダーボードを返す。
// GET /api/admin/leaderboards
func (h *LeaderboardHandler) AdminList(w http.ResponseWriter, r *http.Request) {
	lbs, err := h.service.ListAll(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"leaderboards": toLeaderboardResponses(lbs),
	})
}

// Create はリーダーボードを作成する。
// POST /api/admin/leaderboards
func (h *LeaderboardHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req createLeaderboardRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	lb, err := h.service.Create(r.Context(), leaderboard.CreateInput{
		Name:        req.Name,
		Description: req.Description,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		CreatedBy:   userID,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toLeaderboardResponse(lb))
}

// SetActive は公開状態を切り替える。
// PATCH /api/admin/leaderboards/{id}
func (h *LeaderboardHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	var req setActiveRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.IsActive == nil {
		handleServiceError(w, model.NewInvalidRequestError("is_active is required"))
		return
	}

	lb, err := h.service.SetActive(r.Context(), chi.URLParam(r, "id"), *req.IsActive)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaderboardResponse(lb))
}

// Delete はリーダーボードを削除する。
// DELETE /api/admin/leaderboards/{id}
func (h *LeaderboardHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
