package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/prboard/internal/catalog"
	"github.com/hitoshi/prboard/internal/model"
	"github.com/hitoshi/prboard/internal/project"
)

// ProjectServiceInterface はプロジェクトハンドラーが必要とするサービスインターフェース。
type ProjectServiceInterface interface {
	List(ctx context.Context, in project.ListInput) (*project.ListResult, error)
	Get(ctx context.Context, id string) (*model.Project, error)
	ListAll(ctx context.Context) ([]*model.Project, error)
	Create(ctx context.Context, in project.CreateInput) (*model.Project, error)
	Delete(ctx context.Context, id string) error
	RefreshMetadata(ctx context.Context, id string) (*model.Project, error)
}

// ProjectHandler はプロジェクト閲覧・管理のHTTPハンドラー。
type ProjectHandler struct {
	service ProjectServiceInterface
}

// NewProjectHandler はProjectHandlerを生成する。
func NewProjectHandler(service ProjectServiceInterface) *ProjectHandler {
	return &ProjectHandler{service: service}
}

// labelList は "a, b" 形式のカンマ区切り文字列と文字列配列の両方を受け付けるラベル入力。
type labelList []string

// UnmarshalJSON はjson.Unmarshalerを実装する。
func (l *labelList) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err == nil {
		*l = catalog.ParseLabels(raw)
		return nil
	}

	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("labels must be a string or an array of strings")
	}
	*l = list
	return nil
}

// createProjectRequest はプロジェクト登録のリクエストボディ。
type createProjectRequest struct {
	RepoURL     string    `json:"repo_url"`
	Labels      labelList `json:"labels"`
	Description string    `json:"description"`
}

// List は検索語とラベルで絞り込んだプロジェクト一覧を返す。
// GET /api/projects?q=&label=&sort=&order=
func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	result, err := h.service.List(r.Context(), project.ListInput{
		Query: q.Get("q"),
		Label: q.Get("label"),
		Sort:  q.Get("sort"),
		Order: q.Get("order"),
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	labels := result.Labels
	if labels == nil {
		labels = []string{}
	}
	writeJSON(w, http.StatusOK, projectListResponse{
		Projects: toProjectResponses(result.Projects),
		Labels:   labels,
	})
}

// Get はプロジェクト詳細を返す。
// GET /api/projects/{id}
func (h *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProjectResponse(p))
}

// AdminList は管理画面向けに全プロジェクトを返す。
// GET /api/admin/projects
func (h *ProjectHandler) AdminList(w http.ResponseWriter, r *http.Request) {
	projects, err := h.service.ListAll(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"projects": toProjectResponses(projects),
	})
}

// Create はGitHubリポジトリをプロジェクトとして登録する。
// POST /api/admin/projects
func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req createProjectRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	p, err := h.service.Create(r.Context(), project.CreateInput{
		RepoURL:     req.RepoURL,
		Labels:      req.Labels,
		Description: req.Description,
		CreatedBy:   userID,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toProjectResponse(p))
}

// Delete はプロジェクトを削除する。
// DELETE /api/admin/projects/{id}
func (h *ProjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Refresh はGitHubからメタデータを再取得する。
// POST /api/admin/projects/{id}/refresh
func (h *ProjectHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.RefreshMetadata(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProjectResponse(p))
}
