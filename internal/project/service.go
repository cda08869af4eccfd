// Package project はプロジェクト（登録済みGitHubリポジトリ）の閲覧と管理のドメインロジックを提供する。
package project

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/prboard/internal/catalog"
	"github.com/hitoshi/prboard/internal/model"
	"github.com/hitoshi/prboard/internal/repository"
	"github.com/hitoshi/prboard/internal/security"
)

// MetadataFetcher はGitHubからリポジトリのメタデータを取得するインターフェース。
type MetadataFetcher interface {
	RepoMetadata(ctx context.Context, owner, repo string) (*model.RepoMetadata, error)
}

// ListInput はプロジェクト一覧の絞り込み条件。
type ListInput struct {
	Query string
	Label string // 空またはcatalog.AllLabelsで絞り込みなし
	Sort  string
	Order string
}

// ListResult はプロジェクト一覧と絞り込み用のラベル候補。
// Labelsは絞り込み前の全プロジェクトから集計する。
type ListResult struct {
	Projects []*model.Project
	Labels   []string
}

// CreateInput は管理者によるプロジェクト登録の入力値。
type CreateInput struct {
	RepoURL     string
	Labels      []string
	Description string
	CreatedBy   string
}

// Service はプロジェクトのサービス層。
type Service struct {
	repo      repository.ProjectRepository
	fetcher   MetadataFetcher
	sanitizer security.TextSanitizer
	logger    *slog.Logger
}

// NewService はServiceの新しいインスタンスを生成する。
// fetcherがnilの場合、登録時のメタデータ取得は行わない。
func NewService(
	repo repository.ProjectRepository,
	fetcher MetadataFetcher,
	sanitizer security.TextSanitizer,
	logger *slog.Logger,
) *Service {
	return &Service{
		repo:      repo,
		fetcher:   fetcher,
		sanitizer: sanitizer,
		logger:    logger,
	}
}

// List は検索語とラベルで絞り込んだプロジェクト一覧を返す。
// 並び順は登録日時の降順で、Sortが指定された場合は絞り込み後に安定ソートする。
func (s *Service) List(ctx context.Context, in ListInput) (*ListResult, error) {
	field, order, err := catalog.ParseSort(in.Sort, in.Order)
	if err != nil {
		return nil, err
	}

	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, model.NewStoreError("プロジェクト一覧の取得に失敗しました", err)
	}

	label := in.Label
	if label == "" {
		label = catalog.AllLabels
	}

	projects := catalog.Filter(all, in.Query, label)
	if field != "" {
		projects = catalog.Sort(projects, field, order)
	}

	return &ListResult{
		Projects: projects,
		Labels:   catalog.AvailableLabels(all),
	}, nil
}

// ListAll は管理画面向けに全プロジェクトを登録日時の降順で返す。
func (s *Service) ListAll(ctx context.Context) ([]*model.Project, error) {
	projects, err := s.repo.List(ctx)
	if err != nil {
		return nil, model.NewStoreError("プロジェクト一覧の取得に失敗しました", err)
	}
	if projects == nil {
		projects = []*model.Project{}
	}
	return projects, nil
}

// Get は指定IDのプロジェクトを返す。存在しない場合はNotFoundエラーを返す。
func (s *Service) Get(ctx context.Context, id string) (*model.Project, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, model.NewProjectNotFoundError(id)
	}

	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, model.NewStoreError("プロジェクトの取得に失敗しました", err)
	}
	if p == nil {
		return nil, model.NewProjectNotFoundError(id)
	}
	return p, nil
}

// Create はGitHubリポジトリURLを解析してプロジェクトを登録する。
// URLが解析できない場合は書き込み前にバリデーションエラーを返す。
// メタデータの取得に失敗しても登録は続行する。
func (s *Service) Create(ctx context.Context, in CreateInput) (*model.Project, error) {
	ref, err := catalog.ParseRepoURL(in.RepoURL)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	p := &model.Project{
		ID:            uuid.New().String(),
		GitHubOwner:   ref.Owner,
		GitHubRepo:    ref.Repo,
		GitHubRepoURL: ref.URL,
		Labels:        catalog.NormalizeLabels(in.Labels),
		CreatedAt:     now,
	}
	if desc := s.sanitizer.Sanitize(in.Description); desc != "" {
		p.Description = &desc
	}
	if in.CreatedBy != "" {
		createdBy := in.CreatedBy
		p.CreatedBy = &createdBy
	}

	s.applyMetadata(ctx, p)

	if err := s.repo.Create(ctx, p); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, model.NewDuplicateProjectError(p.FullName())
		}
		return nil, model.NewStoreError("プロジェクトの登録に失敗しました", err)
	}

	s.logger.Info("プロジェクトを登録しました",
		slog.String("project_id", p.ID),
		slog.String("repo", p.FullName()),
		slog.String("created_by", in.CreatedBy),
	)
	return p, nil
}

// Delete は指定IDのプロジェクトを削除する。関連するコントリビューションも削除される。
func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return model.NewProjectNotFoundError(id)
	}

	deleted, err := s.repo.DeleteByID(ctx, id)
	if err != nil {
		return model.NewStoreError("プロジェクトの削除に失敗しました", err)
	}
	if !deleted {
		return model.NewProjectNotFoundError(id)
	}

	s.logger.Info("プロジェクトを削除しました", slog.String("project_id", id))
	return nil
}

// RefreshMetadata はGitHubからスター数などを再取得して保存し、更新後のプロジェクトを返す。
func (s *Service) RefreshMetadata(ctx context.Context, id string) (*model.Project, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.fetcher == nil {
		return p, nil
	}

	meta, err := s.fetcher.RepoMetadata(ctx, p.GitHubOwner, p.GitHubRepo)
	if err != nil {
		s.logger.Warn("リポジトリのメタデータ取得に失敗しました",
			slog.String("project_id", p.ID),
			slog.String("repo", p.FullName()),
			slog.String("error", err.Error()),
		)
		return nil, model.NewGitHubUnavailableError(p.FullName())
	}
	meta.Description = s.sanitizer.Sanitize(meta.Description)

	if err := s.repo.UpdateMetadata(ctx, p.ID, *meta); err != nil {
		return nil, model.NewStoreError("プロジェクトの更新に失敗しました", err)
	}

	return s.Get(ctx, id)
}

// applyMetadata は登録前のプロジェクトにGitHubのメタデータを反映する。
// 説明が入力されている場合はそちらを優先する。
func (s *Service) applyMetadata(ctx context.Context, p *model.Project) {
	if s.fetcher == nil {
		return
	}

	meta, err := s.fetcher.RepoMetadata(ctx, p.GitHubOwner, p.GitHubRepo)
	if err != nil {
		s.logger.Warn("リポジトリのメタデータ取得に失敗しました",
			slog.String("repo", p.FullName()),
			slog.String("error", err.Error()),
		)
		return
	}

	p.Stars = meta.Stars
	p.Forks = meta.Forks
	if p.Description == nil {
		if desc := s.sanitizer.Sanitize(meta.Description); desc != "" {
			p.Description = &desc
		}
	}
}
