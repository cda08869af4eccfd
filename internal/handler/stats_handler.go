package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/prboard/internal/stats"
)

// StatsServiceInterface はトップページの総数を返すサービスインターフェース。
type StatsServiceInterface interface {
	Summary(ctx context.Context) (*stats.Summary, error)
}

// StatsHandler は総数表示のHTTPハンドラー。
type StatsHandler struct {
	service StatsServiceInterface
}

// NewStatsHandler はStatsHandlerを生成する。
func NewStatsHandler(service StatsServiceInterface) *StatsHandler {
	return &StatsHandler{service: service}
}

// Summary はプロジェクト数・コントリビューター数・マージ済みPR数を返す。
// GET /api/stats
func (h *StatsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	s, err := h.service.Summary(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statsResponse{
		Projects:     s.Projects,
		Contributors: s.Contributors,
		PRs:          s.PRs,
	})
}
