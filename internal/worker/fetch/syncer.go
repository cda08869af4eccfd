package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/prboard/internal/githubapi"
	"github.com/hitoshi/prboard/internal/metrics"
	"github.com/hitoshi/prboard/internal/model"
	"github.com/hitoshi/prboard/internal/repository"
	"github.com/hitoshi/prboard/internal/security"
)

// defaultWindow はマージ済みPRを取り込む対象期間。
const defaultWindow = 30 * 24 * time.Hour

// GitHubSource はGitHub APIからの取得処理のインターフェース。
// githubapi.Clientが実装する。
type GitHubSource interface {
	RepoMetadata(ctx context.Context, owner, repo string) (*model.RepoMetadata, error)
	ListMergedPullRequests(ctx context.Context, owner, repo string, since time.Time) ([]githubapi.PullRequest, error)
}

// Authors はGitHubログイン名（小文字）からユーザーIDへの対応表。
type Authors map[string]string

// Syncer は個別プロジェクトのGitHub同期を行う。
// リポジトリのメタデータを更新し、登録ユーザーのマージ済みPRをコントリビューションとして取り込む。
type Syncer struct {
	github        GitHubSource
	projects      repository.ProjectRepository
	profiles      repository.ProfileRepository
	leaderboards  repository.LeaderboardRepository
	contributions repository.ContributionRepository
	sanitizer     security.TextSanitizer
	recorder      metrics.SyncRecorder
	logger        *slog.Logger
	timeout       time.Duration
	window        time.Duration
	now           func() time.Time
}

// NewSyncer はSyncerの新しいインスタンスを生成する。
// recorderがnilの場合はメトリクスを記録しない。
func NewSyncer(
	github GitHubSource,
	projects repository.ProjectRepository,
	profiles repository.ProfileRepository,
	leaderboards repository.LeaderboardRepository,
	contributions repository.ContributionRepository,
	sanitizer security.TextSanitizer,
	recorder metrics.SyncRecorder,
	logger *slog.Logger,
	timeout time.Duration,
) *Syncer {
	return &Syncer{
		github:        github,
		projects:      projects,
		profiles:      profiles,
		leaderboards:  leaderboards,
		contributions: contributions,
		sanitizer:     sanitizer,
		recorder:      recorder,
		logger:        logger,
		timeout:       timeout,
		window:        defaultWindow,
		now:           time.Now,
	}
}

// LoadAuthors はgithub_usernameが設定されたプロフィールから対応表を作る。
// 1サイクルにつき1回呼び出す。
func (s *Syncer) LoadAuthors(ctx context.Context) (Authors, error) {
	profiles, err := s.profiles.ListWithGitHubUsername(ctx)
	if err != nil {
		return nil, model.NewStoreError("プロフィールの取得に失敗しました", err)
	}
	authors := make(Authors, len(profiles))
	for _, p := range profiles {
		if p.GitHubUsername == nil || *p.GitHubUsername == "" {
			continue
		}
		authors[strings.ToLower(*p.GitHubUsername)] = p.UserID
	}
	return authors, nil
}

// Sync は1プロジェクトを同期する。
// メタデータ更新の後、期間内のマージ済みPRのうち登録ユーザーが作成したものを取り込む。
// 取り込みは(project_id, pr_number)で冪等。
func (s *Syncer) Sync(ctx context.Context, project *model.Project, authors Authors) error {
	start := time.Now()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	imported, err := s.sync(ctx, project, authors)
	if s.recorder != nil {
		s.recorder.RecordSyncLatency(time.Since(start))
	}
	if err != nil {
		if s.recorder != nil {
			s.recorder.RecordSyncFailure(project.ID, failureReason(err))
		}
		return err
	}

	if s.recorder != nil {
		s.recorder.RecordSyncSuccess(project.ID)
		s.recorder.RecordContributionsImported(imported)
	}
	s.logger.Info("プロジェクトの同期が完了しました",
		slog.String("project_id", project.ID),
		slog.String("repo", project.FullName()),
		slog.Int("imported_count", imported),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return nil
}

func (s *Syncer) sync(ctx context.Context, project *model.Project, authors Authors) (int, error) {
	meta, err := s.github.RepoMetadata(ctx, project.GitHubOwner, project.GitHubRepo)
	if err != nil {
		return 0, err
	}
	meta.Description = s.sanitizer.Sanitize(meta.Description)
	if err := s.projects.UpdateMetadata(ctx, project.ID, *meta); err != nil {
		return 0, model.NewStoreError("プロジェクトのメタデータ更新に失敗しました", err)
	}

	// 登録ユーザーがいなければPR一覧は不要
	if len(authors) == 0 {
		return 0, nil
	}

	since := s.now().Add(-s.window)
	prs, err := s.github.ListMergedPullRequests(ctx, project.GitHubOwner, project.GitHubRepo, since)
	if err != nil {
		return 0, err
	}

	imported := 0
	for _, pr := range prs {
		userID, ok := authors[strings.ToLower(pr.AuthorLogin)]
		if !ok {
			continue
		}

		created, err := s.importPullRequest(ctx, project, userID, pr)
		if err != nil {
			return imported, err
		}
		if created {
			imported++
		}
	}
	return imported, nil
}

// importPullRequest はPRをコントリビューションとして保存する。
// merged_atを期間に含むアクティブなリーダーボードがあれば紐付ける。
// 取り込み済みでリーダーボード未所属のPRは、後から作成・有効化されたリーダーボードに紐付け直される。
func (s *Syncer) importPullRequest(ctx context.Context, project *model.Project, userID string, pr githubapi.PullRequest) (bool, error) {
	lb, err := s.leaderboards.FindActiveAt(ctx, pr.MergedAt)
	if err != nil {
		return false, model.NewStoreError("リーダーボードの取得に失敗しました", err)
	}

	var leaderboardID *string
	if lb != nil {
		id := lb.ID
		leaderboardID = &id
	}

	c := &model.Contribution{
		ID:            uuid.New().String(),
		UserID:        userID,
		ProjectID:     project.ID,
		LeaderboardID: leaderboardID,
		PRNumber:      pr.Number,
		PRTitle:       s.sanitizer.Sanitize(pr.Title),
		PRURL:         pr.URL,
		MergedAt:      pr.MergedAt.UTC(),
		CreatedAt:     s.now().UTC(),
	}
	created, err := s.contributions.Create(ctx, c)
	if err != nil {
		return false, model.NewStoreError(fmt.Sprintf("コントリビューションの保存に失敗しました (PR #%d)", pr.Number), err)
	}
	return created, nil
}

// failureReason はメトリクスのラベルに使う失敗理由を返す。
func failureReason(err error) string {
	switch ClassifyError(err) {
	case SyncResultRateLimited:
		return metrics.ReasonRateLimited
	case SyncResultStop:
		return metrics.ReasonNotFound
	case SyncResultRetry:
		return metrics.ReasonStore
	default:
		return metrics.ReasonGitHub
	}
}
