package model

import "time"

// Contribution はマージ済みプルリクエスト1件を表す。
// 通常フローでは作成後に更新されない。
type Contribution struct {
	ID            string
	UserID        string
	ProjectID     string
	LeaderboardID *string
	PRNumber      int
	PRTitle       string
	PRURL         string
	MergedAt      time.Time
	CreatedAt     time.Time
}

// ContributionWithProject はContributionにプロジェクトの表示用フィールドを結合したビュー。
// Contribution本体とは別の型として、明示的なマージ処理で生成される。
type ContributionWithProject struct {
	Contribution
	GitHubOwner string
	GitHubRepo  string
}
