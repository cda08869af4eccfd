// Package model はドメインモデルを定義する。
package model

import "time"

// Project はコントリビューション対象として登録されたGitHubリポジトリを表す。
// (GitHubOwner, GitHubRepo) の組はホスト内で一意。
type Project struct {
	ID            string
	GitHubOwner   string
	GitHubRepo    string
	GitHubRepoURL string
	Description   *string
	Labels        []string // 表示順は登録順
	Stars         int
	Forks         int
	CreatedBy     *string
	CreatedAt     time.Time
}

// DescriptionOrEmpty はdescriptionがnilの場合に空文字を返す。
func (p *Project) DescriptionOrEmpty() string {
	if p.Description == nil {
		return ""
	}
	return *p.Description
}

// FullName は "owner/repo" 形式の名前を返す。
func (p *Project) FullName() string {
	return p.GitHubOwner + "/" + p.GitHubRepo
}

// RepoMetadata はGitHub APIから取得したリポジトリのメタデータ。
type RepoMetadata struct {
	Stars       int
	Forks       int
	Description string
}
