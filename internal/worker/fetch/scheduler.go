// Package fetch はGitHubからのバックグラウンド同期処理を提供する。
// スケジューラ、プロジェクト同期、リトライ/バックオフ戦略を含む。
package fetch

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hitoshi/prboard/internal/model"
)

// ProjectLister は同期対象プロジェクトの取得インターフェース。
type ProjectLister interface {
	List(ctx context.Context) ([]*model.Project, error)
}

// ProjectSyncer はプロジェクト同期の実行インターフェース。
type ProjectSyncer interface {
	// LoadAuthors は同期サイクルで使うGitHubログイン名の対応表を返す。
	LoadAuthors(ctx context.Context) (Authors, error)
	// Sync は指定プロジェクトを同期する。
	Sync(ctx context.Context, project *model.Project, authors Authors) error
}

// Scheduler はプロジェクト同期のスケジューリングと並列制御を行う。
// 一定間隔のティッカーで全プロジェクトを取得し、
// errgroupで最大並列数を制御しながら同期を実行する。
type Scheduler struct {
	projects       ProjectLister
	syncer         ProjectSyncer
	backoff        *BackoffTracker
	logger         *slog.Logger
	maxConcurrency int
}

// CycleSummary は1回の同期サイクルの結果。
type CycleSummary struct {
	Total   int
	Synced  int
	Failed  int
	Skipped int
}

// NewScheduler はSchedulerの新しいインスタンスを生成する。
// maxConcurrencyが0以下の場合はデフォルト値4を使用する。
func NewScheduler(
	projects ProjectLister,
	syncer ProjectSyncer,
	logger *slog.Logger,
	maxConcurrency int,
) *Scheduler {
	if maxConcurrency <= 0 {
		maxConcurrency = 4
	}
	return &Scheduler{
		projects:       projects,
		syncer:         syncer,
		backoff:        NewBackoffTracker(),
		logger:         logger,
		maxConcurrency: maxConcurrency,
	}
}

// Start は一定間隔のティッカーでスケジューラを起動する。
// コンテキストがキャンセルされるまで実行を継続する。
func (s *Scheduler) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("同期スケジューラを開始しました",
		slog.Duration("interval", interval),
		slog.Int("max_concurrency", s.maxConcurrency),
	)

	// 起動直後に1回実行
	s.runAndLog(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("同期スケジューラを停止しました")
			return
		case <-ticker.C:
			s.runAndLog(ctx)
		}
	}
}

func (s *Scheduler) runAndLog(ctx context.Context) {
	if _, err := s.RunOnce(ctx); err != nil {
		s.logger.Error("同期サイクルの実行に失敗しました",
			slog.String("error", err.Error()),
		)
	}
}

// RunOnce は全プロジェクトを1回同期する。
// 個別プロジェクトの失敗はログに記録し、サイクル全体は中断しない。
// バックオフ中のプロジェクトとレート制限中はスキップする。
func (s *Scheduler) RunOnce(ctx context.Context) (CycleSummary, error) {
	start := time.Now()

	projects, err := s.projects.List(ctx)
	if err != nil {
		return CycleSummary{}, err
	}
	if len(projects) == 0 {
		s.logger.Info("同期対象のプロジェクトはありません")
		return CycleSummary{}, nil
	}

	authors, err := s.syncer.LoadAuthors(ctx)
	if err != nil {
		return CycleSummary{}, err
	}

	s.logger.Info("同期サイクルを開始します",
		slog.Int("project_count", len(projects)),
		slog.Int("author_count", len(authors)),
	)

	var synced, failed, skipped atomic.Int64
	var g errgroup.Group
	g.SetLimit(s.maxConcurrency)

	for _, project := range projects {
		project := project
		g.Go(func() error {
			if ctx.Err() != nil || !s.backoff.Ready(project.ID) {
				skipped.Add(1)
				return nil
			}

			err := s.syncer.Sync(ctx, project, authors)
			result := s.backoff.Record(project.ID, err)
			if err != nil {
				failed.Add(1)
				s.logger.Error("プロジェクトの同期に失敗しました",
					slog.String("project_id", project.ID),
					slog.String("repo", project.FullName()),
					slog.Int("result", int(result)),
					slog.String("error", err.Error()),
				)
				return nil
			}
			synced.Add(1)
			return nil
		})
	}

	// 各タスクはnilを返すため、エラーは発生しない
	_ = g.Wait()

	summary := CycleSummary{
		Total:   len(projects),
		Synced:  int(synced.Load()),
		Failed:  int(failed.Load()),
		Skipped: int(skipped.Load()),
	}

	attrs := []any{
		slog.Int("project_count", summary.Total),
		slog.Int("synced_count", summary.Synced),
		slog.Int("failed_count", summary.Failed),
		slog.Int("skipped_count", summary.Skipped),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	}
	if paused := s.backoff.PausedUntil(); paused.After(time.Now()) {
		attrs = append(attrs, slog.Time("rate_limited_until", paused))
	}
	s.logger.Info("同期サイクルが完了しました", attrs...)

	return summary, nil
}
