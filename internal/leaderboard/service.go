// Package leaderboard はリーダーボード（期間を区切ったランキング競技）のドメインロジックを提供する。
// ランキングの集計、次に終了するリーダーボードのカウントダウン、管理者による作成・切替・削除を含む。
package leaderboard

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/prboard/internal/countdown"
	"github.com/hitoshi/prboard/internal/model"
	"github.com/hitoshi/prboard/internal/ranking"
	"github.com/hitoshi/prboard/internal/repository"
	"github.com/hitoshi/prboard/internal/security"
)

// nextScope は次に終了するリーダーボードが見つからない場合のエラー表示に使う識別子。
const nextScope = "next"

// dateLayouts は管理画面から受け付ける日時の形式。
// datetime-local入力の値はUTCとして扱う。
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// Next は次に終了するリーダーボードと終了までの残り時間。
type Next struct {
	Leaderboard *model.Leaderboard
	Remaining   countdown.Remaining
}

// CreateInput は管理者によるリーダーボード作成の入力値。
type CreateInput struct {
	Name        string
	Description string
	StartDate   string
	EndDate     string
	CreatedBy   string
}

// Service はリーダーボードのサービス層。
type Service struct {
	lbRepo      repository.LeaderboardRepository
	contribRepo repository.ContributionRepository
	profileRepo repository.ProfileRepository
	sanitizer   security.TextSanitizer
	logger      *slog.Logger
	now         func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	lbRepo repository.LeaderboardRepository,
	contribRepo repository.ContributionRepository,
	profileRepo repository.ProfileRepository,
	sanitizer security.TextSanitizer,
	logger *slog.Logger,
) *Service {
	return &Service{
		lbRepo:      lbRepo,
		contribRepo: contribRepo,
		profileRepo: profileRepo,
		sanitizer:   sanitizer,
		logger:      logger,
		now:         time.Now,
	}
}

// ListActive は公開中のリーダーボードを開始日時の降順で返す。
func (s *Service) ListActive(ctx context.Context) ([]*model.Leaderboard, error) {
	lbs, err := s.lbRepo.ListActive(ctx)
	if err != nil {
		return nil, model.NewStoreError("リーダーボード一覧の取得に失敗しました", err)
	}
	return nonNil(lbs), nil
}

// ListAll は管理画面向けに全リーダーボードを作成日時の降順で返す。
func (s *Service) ListAll(ctx context.Context) ([]*model.Leaderboard, error) {
	lbs, err := s.lbRepo.List(ctx)
	if err != nil {
		return nil, model.NewStoreError("リーダーボード一覧の取得に失敗しました", err)
	}
	return nonNil(lbs), nil
}

// Get は指定IDのリーダーボードを返す。存在しない場合はNotFoundエラーを返す。
func (s *Service) Get(ctx context.Context, id string) (*model.Leaderboard, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, model.NewLeaderboardNotFoundError(id)
	}

	lb, err := s.lbRepo.FindByID(ctx, id)
	if err != nil {
		return nil, model.NewStoreError("リーダーボードの取得に失敗しました", err)
	}
	if lb == nil {
		return nil, model.NewLeaderboardNotFoundError(id)
	}
	return lb, nil
}

// Next は公開中で未終了のリーダーボードのうち最も早く終了するものと、
// 現在時刻からの残り時間を返す。該当がない場合はNotFoundエラーを返す。
func (s *Service) Next(ctx context.Context) (*Next, error) {
	now := s.now()
	lb, err := s.lbRepo.FindNextEnding(ctx, now)
	if err != nil {
		return nil, model.NewStoreError("リーダーボードの取得に失敗しました", err)
	}
	if lb == nil {
		return nil, model.NewLeaderboardNotFoundError(nextScope)
	}
	return &Next{
		Leaderboard: lb,
		Remaining:   countdown.Until(now, lb.EndDate),
	}, nil
}

// Ranking は指定スコープのランキングを返す。
// scopeがmodel.AllTimeScopeの場合は全期間を集計し、それ以外は存在するリーダーボードIDである必要がある。
func (s *Service) Ranking(ctx context.Context, scope string) ([]ranking.Entry, error) {
	if scope == "" {
		scope = model.AllTimeScope
	}
	if scope != model.AllTimeScope {
		if _, err := s.Get(ctx, scope); err != nil {
			return nil, err
		}
	}

	contributions, err := s.contribRepo.ListForRanking(ctx, scope)
	if err != nil {
		return nil, model.NewStoreError("コントリビューションの取得に失敗しました", err)
	}

	profiles, err := s.profileRepo.ListByUserIDs(ctx, ranking.UserIDs(contributions))
	if err != nil {
		return nil, model.NewStoreError("プロフィールの取得に失敗しました", err)
	}

	return ranking.Rank(contributions, profiles, scope), nil
}

// Create はリーダーボードを作成する。
// 名前は必須。終了日時が開始日時より後であることは検証しない。
func (s *Service) Create(ctx context.Context, in CreateInput) (*model.Leaderboard, error) {
	name := s.sanitizer.Sanitize(in.Name)
	if name == "" {
		return nil, model.NewInvalidLeaderboardError("名前は必須です")
	}

	start, err := parseDate(in.StartDate)
	if err != nil {
		return nil, model.NewInvalidDateRangeError("start_date")
	}
	end, err := parseDate(in.EndDate)
	if err != nil {
		return nil, model.NewInvalidDateRangeError("end_date")
	}

	lb := &model.Leaderboard{
		ID:        uuid.New().String(),
		Name:      name,
		StartDate: start,
		EndDate:   end,
		IsActive:  true,
		CreatedAt: s.now(),
	}
	if desc := s.sanitizer.Sanitize(in.Description); desc != "" {
		lb.Description = &desc
	}
	if in.CreatedBy != "" {
		createdBy := in.CreatedBy
		lb.CreatedBy = &createdBy
	}

	if err := s.lbRepo.Create(ctx, lb); err != nil {
		return nil, model.NewStoreError("リーダーボードの作成に失敗しました", err)
	}

	s.logger.Info("リーダーボードを作成しました",
		slog.String("leaderboard_id", lb.ID),
		slog.String("name", lb.Name),
		slog.String("created_by", in.CreatedBy),
	)
	return lb, nil
}

// SetActive は公開状態を切り替え、更新後のリーダーボードを返す。
func (s *Service) SetActive(ctx context.Context, id string, active bool) (*model.Leaderboard, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, model.NewLeaderboardNotFoundError(id)
	}

	updated, err := s.lbRepo.SetActive(ctx, id, active)
	if err != nil {
		return nil, model.NewStoreError("リーダーボードの更新に失敗しました", err)
	}
	if !updated {
		return nil, model.NewLeaderboardNotFoundError(id)
	}

	s.logger.Info("リーダーボードの公開状態を変更しました",
		slog.String("leaderboard_id", id),
		slog.Bool("is_active", active),
	)
	return s.Get(ctx, id)
}

// Delete はリーダーボードを削除する。紐付いていたコントリビューションは全期間集計に残る。
func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return model.NewLeaderboardNotFoundError(id)
	}

	deleted, err := s.lbRepo.DeleteByID(ctx, id)
	if err != nil {
		return model.NewStoreError("リーダーボードの削除に失敗しました", err)
	}
	if !deleted {
		return model.NewLeaderboardNotFoundError(id)
	}

	s.logger.Info("リーダーボードを削除しました", slog.String("leaderboard_id", id))
	return nil
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	var lastErr error
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, raw)
		if err == nil {
			return t.UTC(), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

func nonNil(lbs []*model.Leaderboard) []*model.Leaderboard {
	if lbs == nil {
		return []*model.Leaderboard{}
	}
	return lbs
}
