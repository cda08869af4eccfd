package profile

import "github.com/hitoshi/prboard/internal/model"

// MergeWithProjects はコントリビューションとプロジェクトを結合した表示用ビューを生成する。
// 入力の順序を保ち、対応するプロジェクトが見つからない行は除外する。
func MergeWithProjects(contributions []*model.Contribution, projects map[string]*model.Project) []model.ContributionWithProject {
	merged := make([]model.ContributionWithProject, 0, len(contributions))
	for _, c := range contributions {
		if c == nil {
			continue
		}
		p, ok := projects[c.ProjectID]
		if !ok || p == nil {
			continue
		}
		merged = append(merged, model.ContributionWithProject{
			Contribution: *c,
			GitHubOwner:  p.GitHubOwner,
			GitHubRepo:   p.GitHubRepo,
		})
	}
	return merged
}
