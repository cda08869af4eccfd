// Package profile は公開プロフィールとユーザー別のコントリビューション閲覧のドメインロジックを提供する。
package profile

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/hitoshi/prboard/internal/model"
	"github.com/hitoshi/prboard/internal/repository"
	"github.com/hitoshi/prboard/internal/security"
)

// githubUsernamePattern はGitHubのユーザー名として許容する形式（英数字とハイフン、最大39文字）。
var githubUsernamePattern = regexp.MustCompile(`^[A-Za-z0-9](?:[A-Za-z0-9-]{0,37}[A-Za-z0-9])?$`)

// UpdateInput はプロフィール更新の入力値。空文字は未設定として扱う。
type UpdateInput struct {
	DisplayName    string
	GitHubUsername string
}

// Activity は公開ユーザーページの表示内容。
type Activity struct {
	Profile       *model.Profile
	Contributions []model.ContributionWithProject
}

// Service はプロフィールのサービス層。
type Service struct {
	profileRepo repository.ProfileRepository
	contribRepo repository.ContributionRepository
	projectRepo repository.ProjectRepository
	sanitizer   security.TextSanitizer
	logger      *slog.Logger
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	profileRepo repository.ProfileRepository,
	contribRepo repository.ContributionRepository,
	projectRepo repository.ProjectRepository,
	sanitizer security.TextSanitizer,
	logger *slog.Logger,
) *Service {
	return &Service{
		profileRepo: profileRepo,
		contribRepo: contribRepo,
		projectRepo: projectRepo,
		sanitizer:   sanitizer,
		logger:      logger,
	}
}

// Get は指定ユーザーのプロフィールを返す。存在しない場合はNotFoundエラーを返す。
func (s *Service) Get(ctx context.Context, userID string) (*model.Profile, error) {
	p, err := s.profileRepo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, model.NewStoreError("プロフィールの取得に失敗しました", err)
	}
	if p == nil {
		return nil, model.NewProfileNotFoundError(userID)
	}
	return p, nil
}

// Update は自分のプロフィールを作成または更新する。
// GitHubのアバターが未登録でユーザー名が指定された場合は https://github.com/<login>.png を使う。
func (s *Service) Update(ctx context.Context, userID string, in UpdateInput) (*model.Profile, error) {
	username := strings.TrimPrefix(strings.TrimSpace(in.GitHubUsername), "@")
	if username != "" && (!githubUsernamePattern.MatchString(username) || strings.Contains(username, "--")) {
		return nil, model.NewInvalidRequestError(fmt.Sprintf("GitHubユーザー名の形式が不正です: %s", in.GitHubUsername))
	}

	existing, err := s.profileRepo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, model.NewStoreError("プロフィールの取得に失敗しました", err)
	}

	now := time.Now()
	p := &model.Profile{
		ID:        uuid.New().String(),
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if existing != nil {
		p.ID = existing.ID
		p.CreatedAt = existing.CreatedAt
		p.GitHubAvatarURL = existing.GitHubAvatarURL
	}

	if name := s.sanitizer.Sanitize(in.DisplayName); name != "" {
		p.DisplayName = &name
	}
	if username != "" {
		p.GitHubUsername = &username
		if p.GitHubAvatarURL == nil {
			avatar := DefaultAvatarURL(username)
			p.GitHubAvatarURL = &avatar
		}
	}

	saved, err := s.profileRepo.Upsert(ctx, p)
	if err != nil {
		return nil, model.NewStoreError("プロフィールの保存に失敗しました", err)
	}

	s.logger.Info("プロフィールを更新しました",
		slog.String("user_id", userID),
		slog.String("github_username", username),
	)
	return saved, nil
}

// Contributions は指定ユーザーのコントリビューションをプロジェクト情報付きでmerged_at降順に返す。
func (s *Service) Contributions(ctx context.Context, userID string) ([]model.ContributionWithProject, error) {
	contributions, err := s.contribRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, model.NewStoreError("コントリビューションの取得に失敗しました", err)
	}

	projectIDs := make([]string, 0, len(contributions))
	seen := make(map[string]struct{}, len(contributions))
	for _, c := range contributions {
		if _, ok := seen[c.ProjectID]; ok {
			continue
		}
		seen[c.ProjectID] = struct{}{}
		projectIDs = append(projectIDs, c.ProjectID)
	}

	projects, err := s.projectRepo.ListByIDs(ctx, projectIDs)
	if err != nil {
		return nil, model.NewStoreError("プロジェクトの取得に失敗しました", err)
	}

	return MergeWithProjects(contributions, projects), nil
}

// Activity は公開ユーザーページ向けにプロフィールとコントリビューションを返す。
// 2つの読み取りは並行して行い、両方の完了後に結合する。
// プロフィールが存在しない場合はNotFoundエラーを返す。
func (s *Service) Activity(ctx context.Context, userID string) (*Activity, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return nil, model.NewProfileNotFoundError(userID)
	}

	var (
		profile       *model.Profile
		contributions []model.ContributionWithProject
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := s.Get(gctx, userID)
		profile = p
		return err
	})
	g.Go(func() error {
		c, err := s.Contributions(gctx, userID)
		contributions = c
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Activity{Profile: profile, Contributions: contributions}, nil
}

// DefaultAvatarURL はGitHubのユーザー名から既定のアバターURLを返す。
func DefaultAvatarURL(username string) string {
	return "https://github.com/" + username + ".png"
}
