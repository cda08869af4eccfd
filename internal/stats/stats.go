// Package stats はトップページに表示する総数を集計する。
package stats

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/hitoshi/prboard/internal/model"
)

// Counter は総数を返すリポジトリの部分集合。
type Counter interface {
	Count(ctx context.Context) (int, error)
}

// Summary はプロジェクト数・コントリビューター数・マージ済みPR数。
type Summary struct {
	Projects     int
	Contributors int
	PRs          int
}

// Service は3つの総数を並行に取得する。
type Service struct {
	projects      Counter
	contributors  Counter
	contributions Counter
}

// NewService はServiceを生成する。
func NewService(projects, contributors, contributions Counter) *Service {
	return &Service{
		projects:      projects,
		contributors:  contributors,
		contributions: contributions,
	}
}

// Summary は3つの総数を並行に取得し、すべて揃ってから結合して返す。
// いずれかが失敗した場合は*model.StoreErrorを返す。
func (s *Service) Summary(ctx context.Context) (*Summary, error) {
	var summary Summary
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		n, err := s.projects.Count(gctx)
		if err != nil {
			return model.NewStoreError("プロジェクト数の取得に失敗しました", err)
		}
		summary.Projects = n
		return nil
	})
	g.Go(func() error {
		n, err := s.contributors.Count(gctx)
		if err != nil {
			return model.NewStoreError("コントリビューター数の取得に失敗しました", err)
		}
		summary.Contributors = n
		return nil
	})
	g.Go(func() error {
		n, err := s.contributions.Count(gctx)
		if err != nil {
			return model.NewStoreError("マージ済みPR数の取得に失敗しました", err)
		}
		summary.PRs = n
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &summary, nil
}
