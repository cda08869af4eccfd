package handler

import (
	"context"

	"github.com/hitoshi/prboard/internal/leaderboard"
	"github.com/hitoshi/prboard/internal/model"
	"github.com/hitoshi/prboard/internal/profile"
	"github.com/hitoshi/prboard/internal/project"
	"github.com/hitoshi/prboard/internal/ranking"
	"github.com/hitoshi/prboard/internal/stats"
)

// --- モック定義 ---

// mockProjectService はProjectServiceInterfaceのモック実装。
type mockProjectService struct {
	listFn    func(ctx context.Context, in project.ListInput) (*project.ListResult, error)
	getFn     func(ctx context.Context, id string) (*model.Project, error)
	listAllFn func(ctx context.Context) ([]*model.Project, error)
	createFn  func(ctx context.Context, in project.CreateInput) (*model.Project, error)
	deleteFn  func(ctx context.Context, id string) error
	refreshFn func(ctx context.Context, id string) (*model.Project, error)
}

func (m *mockProjectService) List(ctx context.Context, in project.ListInput) (*project.ListResult, error) {
	if m.listFn != nil {
		return m.listFn(ctx, in)
	}
	return &project.ListResult{}, nil
}

func (m *mockProjectService) Get(ctx context.Context, id string) (*model.Project, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, model.NewProjectNotFoundError(id)
}

func (m *mockProjectService) ListAll(ctx context.Context) ([]*model.Project, error) {
	if m.listAllFn != nil {
		return m.listAllFn(ctx)
	}
	return []*model.Project{}, nil
}

func (m *mockProjectService) Create(ctx context.Context, in project.CreateInput) (*model.Project, error) {
	if m.createFn != nil {
		return m.createFn(ctx, in)
	}
	return &model.Project{}, nil
}

func (m *mockProjectService) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func (m *mockProjectService) RefreshMetadata(ctx context.Context, id string) (*model.Project, error) {
	if m.refreshFn != nil {
		return m.refreshFn(ctx, id)
	}
	return &model.Project{ID: id}, nil
}

// mockLeaderboardService はLeaderboardServiceInterfaceのモック実装。
type mockLeaderboardService struct {
	listActiveFn func(ctx context.Context) ([]*model.Leaderboard, error)
	listAllFn    func(ctx context.Context) ([]*model.Leaderboard, error)
	nextFn       func(ctx context.Context) (*leaderboard.Next, error)
	rankingFn    func(ctx context.Context, scope string) ([]ranking.Entry, error)
	createFn     func(ctx context.Context, in leaderboard.CreateInput) (*model.Leaderboard, error)
	setActiveFn  func(ctx context.Context, id string, active bool) (*model.Leaderboard, error)
	deleteFn     func(ctx context.Context, id string) error
}

func (m *mockLeaderboardService) ListActive(ctx context.Context) ([]*model.Leaderboard, error) {
	if m.listActiveFn != nil {
		return m.listActiveFn(ctx)
	}
	return []*model.Leaderboard{}, nil
}

func (m *mockLeaderboardService) ListAll(ctx context.Context) ([]*model.Leaderboard, error) {
	if m.listAllFn != nil {
		return m.listAllFn(ctx)
	}
	return []*model.Leaderboard{}, nil
}

func (m *mockLeaderboardService) Next(ctx context.Context) (*leaderboard.Next, error) {
	if m.nextFn != nil {
		return m.nextFn(ctx)
	}
	return nil, model.NewLeaderboardNotFoundError("next")
}

func (m *mockLeaderboardService) Ranking(ctx context.Context, scope string) ([]ranking.Entry, error) {
	if m.rankingFn != nil {
		return m.rankingFn(ctx, scope)
	}
	return []ranking.Entry{}, nil
}

func (m *mockLeaderboardService) Create(ctx context.Context, in leaderboard.CreateInput) (*model.Leaderboard, error) {
	if m.createFn != nil {
		return m.createFn(ctx, in)
	}
	return &model.Leaderboard{}, nil
}

func (m *mockLeaderboardService) SetActive(ctx context.Context, id string, active bool) (*model.Leaderboard, error) {
	if m.setActiveFn != nil {
		return m.setActiveFn(ctx, id, active)
	}
	return &model.Leaderboard{ID: id, IsActive: active}, nil
}

func (m *mockLeaderboardService) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

// mockProfileService はProfileServiceInterfaceのモック実装。
type mockProfileService struct {
	getFn           func(ctx context.Context, userID string) (*model.Profile, error)
	updateFn        func(ctx context.Context, userID string, in profile.UpdateInput) (*model.Profile, error)
	contributionsFn func(ctx context.Context, userID string) ([]model.ContributionWithProject, error)
	activityFn      func(ctx context.Context, userID string) (*profile.Activity, error)
}

func (m *mockProfileService) Get(ctx context.Context, userID string) (*model.Profile, error) {
	if m.getFn != nil {
		return m.getFn(ctx, userID)
	}
	return nil, model.NewProfileNotFoundError(userID)
}

func (m *mockProfileService) Update(ctx context.Context, userID string, in profile.UpdateInput) (*model.Profile, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, userID, in)
	}
	return &model.Profile{UserID: userID}, nil
}

func (m *mockProfileService) Contributions(ctx context.Context, userID string) ([]model.ContributionWithProject, error) {
	if m.contributionsFn != nil {
		return m.contributionsFn(ctx, userID)
	}
	return []model.ContributionWithProject{}, nil
}

func (m *mockProfileService) Activity(ctx context.Context, userID string) (*profile.Activity, error) {
	if m.activityFn != nil {
		return m.activityFn(ctx, userID)
	}
	return nil, model.NewProfileNotFoundError(userID)
}

// mockStatsService はStatsServiceInterfaceのモック実装。
type mockStatsService struct {
	summaryFn func(ctx context.Context) (*stats.Summary, error)
}

func (m *mockStatsService) Summary(ctx context.Context) (*stats.Summary, error) {
	if m.summaryFn != nil {
		return m.summaryFn(ctx)
	}
	return &stats.Summary{}, nil
}
