package handler

import (
	"time"

	"github.com/hitoshi/prboard/internal/countdown"
	"github.com/hitoshi/prboard/internal/model"
	"github.com/hitoshi/prboard/internal/ranking"
)

// projectResponse はプロジェクトのJSONレスポンス。
type projectResponse struct {
	ID            string    `json:"id"`
	GitHubOwner   string    `json:"github_owner"`
	GitHubRepo    string    `json:"github_repo"`
	GitHubRepoURL string    `json:"github_repo_url"`
	Description   *string   `json:"description"`
	Labels        []string  `json:"labels"`
	Stars         int       `json:"stars"`
	Forks         int       `json:"forks"`
	CreatedAt     time.Time `json:"created_at"`
}

type projectListResponse struct {
	Projects []projectResponse `json:"projects"`
	Labels   []string          `json:"labels"`
}

// leaderboardResponse はリーダーボードのJSONレスポンス。
type leaderboardResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

type nextLeaderboardResponse struct {
	Leaderboard leaderboardResponse `json:"leaderboard"`
	Remaining   countdown.Remaining `json:"remaining"`
}

// rankingEntryResponse はランキング1行のJSONレスポンス。
type rankingEntryResponse struct {
	Position        int     `json:"position"`
	Rank            int     `json:"rank"`
	Badge           string  `json:"badge"`
	UserID          string  `json:"user_id"`
	PRCount         int     `json:"pr_count"`
	DisplayName     *string `json:"display_name"`
	GitHubUsername  *string `json:"github_username"`
	GitHubAvatarURL *string `json:"github_avatar_url"`
}

type rankingResponse struct {
	Scope   string                 `json:"scope"`
	Entries []rankingEntryResponse `json:"entries"`
}

type profileResponse struct {
	UserID          string    `json:"user_id"`
	DisplayName     *string   `json:"display_name"`
	GitHubUsername  *string   `json:"github_username"`
	GitHubAvatarURL *string   `json:"github_avatar_url"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// contributionResponse はプロジェクト情報付きコントリビューションのJSONレスポンス。
type contributionResponse struct {
	ID            string    `json:"id"`
	ProjectID     string    `json:"project_id"`
	LeaderboardID *string   `json:"leaderboard_id"`
	PRNumber      int       `json:"pr_number"`
	PRTitle       string    `json:"pr_title"`
	PRURL         string    `json:"pr_url"`
	MergedAt      time.Time `json:"merged_at"`
	GitHubOwner   string    `json:"github_owner"`
	GitHubRepo    string    `json:"github_repo"`
}

type activityResponse struct {
	Profile       profileResponse        `json:"profile"`
	Contributions []contributionResponse `json:"contributions"`
}

type statsResponse struct {
	Projects     int `json:"projects"`
	Contributors int `json:"contributors"`
	PRs          int `json:"prs"`
}

func toProjectResponse(p *model.Project) projectResponse {
	labels := p.Labels
	if labels == nil {
		labels = []string{}
	}
	return projectResponse{
		ID:            p.ID,
		GitHubOwner:   p.GitHubOwner,
		GitHubRepo:    p.GitHubRepo,
		GitHubRepoURL: p.GitHubRepoURL,
		Description:   p.Description,
		Labels:        labels,
		Stars:         p.Stars,
		Forks:         p.Forks,
		CreatedAt:     p.CreatedAt,
	}
}

func toProjectResponses(projects []*model.Project) []projectResponse {
	results := make([]projectResponse, len(projects))
	for i, p := range projects {
		results[i] = toProjectResponse(p)
	}
	return results
}

func toLeaderboardResponse(lb *model.Leaderboard) leaderboardResponse {
	return leaderboardResponse{
		ID:          lb.ID,
		Name:        lb.Name,
		Description: lb.Description,
		StartDate:   lb.StartDate,
		EndDate:     lb.EndDate,
		IsActive:    lb.IsActive,
		CreatedAt:   lb.CreatedAt,
	}
}

func toLeaderboardResponses(lbs []*model.Leaderboard) []leaderboardResponse {
	results := make([]leaderboardResponse, len(lbs))
	for i, lb := range lbs {
		results[i] = toLeaderboardResponse(lb)
	}
	return results
}

func toRankingResponse(scope string, entries []ranking.Entry) rankingResponse {
	results := make([]rankingEntryResponse, len(entries))
	for i, e := range entries {
		results[i] = rankingEntryResponse{
			Position:        e.Position,
			Rank:            e.Rank(),
			Badge:           string(e.Badge()),
			UserID:          e.UserID,
			PRCount:         e.PRCount,
			DisplayName:     e.DisplayName,
			GitHubUsername:  e.GitHubUsername,
			GitHubAvatarURL: e.GitHubAvatarURL,
		}
	}
	return rankingResponse{Scope: scope, Entries: results}
}

func toProfileResponse(p *model.Profile) profileResponse {
	return profileResponse{
		UserID:          p.UserID,
		DisplayName:     p.DisplayName,
		GitHubUsername:  p.GitHubUsername,
		GitHubAvatarURL: p.GitHubAvatarURL,
		UpdatedAt:       p.UpdatedAt,
	}
}

func toContributionResponses(contributions []model.ContributionWithProject) []contributionResponse {
	results := make([]contributionResponse, len(contributions))
	for i, c := range contributions {
		results[i] = contributionResponse{
			ID:            c.ID,
			ProjectID:     c.ProjectID,
			LeaderboardID: c.LeaderboardID,
			PRNumber:      c.PRNumber,
			PRTitle:       c.PRTitle,
			PRURL:         c.PRURL,
			MergedAt:      c.MergedAt,
			GitHubOwner:   c.GitHubOwner,
			GitHubRepo:    c.GitHubRepo,
		}
	}
	return results
}
