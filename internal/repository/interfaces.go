// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/hitoshi/prboard/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// CreateWithIdentity はユーザーとidentityを同一トランザクションで作成する。
	// identityが既に存在する場合は ErrDuplicate をラップして返す。
	CreateWithIdentity(ctx context.Context, user *model.User, identity *model.Identity) error

	// UpdateContact はメールアドレスと表示名を更新する。変化があった場合のみtrueを返す。
	UpdateContact(ctx context.Context, id, email, name string, now time.Time) (bool, error)

	// DeleteByID は指定IDのユーザーを削除する。
	// 関連するidentities、sessions、profiles、user_roles、contributionsはCASCADE削除される。
	DeleteByID(ctx context.Context, id string) error
}

// IdentityRepository は外部IdP紐付け情報の永続化インターフェース。
type IdentityRepository interface {
	// FindUserByIdentity はproviderとprovider_user_idでidentityと紐づくユーザーを検索する。
	// 見つからない場合は両方nilを返す。
	FindUserByIdentity(ctx context.Context, provider, providerUserID string) (*model.Identity, *model.User, error)
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	// IDはトークンの平文で受け取り、保存時はハッシュ化される。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
}

// ProfileRepository はプロフィールの永続化インターフェース。
type ProfileRepository interface {
	// FindByUserID は指定ユーザーのプロフィールを取得する。見つからない場合はnilを返す。
	FindByUserID(ctx context.Context, userID string) (*model.Profile, error)

	// ListByUserIDs は指定ユーザー群のプロフィールをuser_idをキーにしたマップで返す。
	// プロフィールが存在しないユーザーはマップに含まれない。
	ListByUserIDs(ctx context.Context, userIDs []string) (map[string]*model.Profile, error)

	// ListWithGitHubUsername はgithub_usernameが設定された全プロフィールを返す。
	ListWithGitHubUsername(ctx context.Context) ([]*model.Profile, error)

	// Upsert はuser_idをキーにプロフィールを作成または更新する。
	Upsert(ctx context.Context, profile *model.Profile) (*model.Profile, error)

	// CreateIfAbsent はプロフィールが未作成の場合のみ作成する。作成した場合はtrueを返す。
	CreateIfAbsent(ctx context.Context, profile *model.Profile) (bool, error)

	// Count はプロフィール総数を返す。
	Count(ctx context.Context) (int, error)
}

// UserRoleRepository はユーザー権限の永続化インターフェース。
type UserRoleRepository interface {
	// HasRole は指定ユーザーが指定権限を持つかを返す。
	HasRole(ctx context.Context, userID string, role model.Role) (bool, error)

	// Grant は指定ユーザーに権限を付与する。既に付与済みの場合は何もしない。
	Grant(ctx context.Context, userID string, role model.Role) error
}

// ProjectRepository はプロジェクトの永続化インターフェース。
type ProjectRepository interface {
	// List は全プロジェクトをcreated_at降順で返す。
	List(ctx context.Context) ([]*model.Project, error)

	// FindByID は指定IDのプロジェクトを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Project, error)

	// ListByIDs は指定ID群のプロジェクトをidをキーにしたマップで返す。
	ListByIDs(ctx context.Context, ids []string) (map[string]*model.Project, error)

	// Create はプロジェクトを作成する。
	// (github_owner, github_repo) が重複する場合は ErrDuplicate をラップして返す。
	Create(ctx context.Context, project *model.Project) error

	// UpdateMetadata はstars、forks、descriptionを更新する。
	// descriptionが空の場合は既存の値を維持する。
	UpdateMetadata(ctx context.Context, id string, meta model.RepoMetadata) error

	// DeleteByID は指定IDのプロジェクトを削除する。見つからない場合はfalseを返す。
	// 関連するcontributionsはCASCADE削除される。
	DeleteByID(ctx context.Context, id string) (bool, error)

	// Count はプロジェクト総数を返す。
	Count(ctx context.Context) (int, error)
}

// LeaderboardRepository はリーダーボードの永続化インターフェース。
type LeaderboardRepository interface {
	// List は全リーダーボードをcreated_at降順で返す。
	List(ctx context.Context) ([]*model.Leaderboard, error)

	// ListActive はis_active=trueのリーダーボードをstart_date降順で返す。
	ListActive(ctx context.Context) ([]*model.Leaderboard, error)

	// FindByID は指定IDのリーダーボードを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Leaderboard, error)

	// FindNextEnding はis_active=trueかつend_date >= nowのうち、最も早く終了するものを返す。
	// 見つからない場合はnilを返す。
	FindNextEnding(ctx context.Context, now time.Time) (*model.Leaderboard, error)

	// FindActiveAt は期間に指定時刻を含むアクティブなリーダーボードを返す。
	// 複数該当する場合はstart_dateが最も早いものを返す。見つからない場合はnilを返す。
	FindActiveAt(ctx context.Context, t time.Time) (*model.Leaderboard, error)

	// Create はリーダーボードを作成する。
	Create(ctx context.Context, leaderboard *model.Leaderboard) error

	// SetActive はis_activeを更新する。見つからない場合はfalseを返す。
	SetActive(ctx context.Context, id string, active bool) (bool, error)

	// DeleteByID は指定IDのリーダーボードを削除する。見つからない場合はfalseを返す。
	DeleteByID(ctx context.Context, id string) (bool, error)
}

// ContributionRepository はコントリビューションの永続化インターフェース。
type ContributionRepository interface {
	// ListForRanking はランキング集計対象のコントリビューションを返す。
	// scopeがmodel.AllTimeScopeの場合は全件、それ以外はleaderboard_idが一致するものを返す。
	ListForRanking(ctx context.Context, scope string) ([]*model.Contribution, error)

	// ListByUserID は指定ユーザーのコントリビューションをmerged_at降順で返す。
	ListByUserID(ctx context.Context, userID string) ([]*model.Contribution, error)

	// Create はコントリビューションを作成する。
	// (project_id, pr_number) が既に存在する場合は新規作成せずfalseを返す。
	// 既存行がリーダーボード未所属なら、contributionのleaderboard_idを紐付ける。
	Create(ctx context.Context, contribution *model.Contribution) (bool, error)

	// Count はコントリビューション総数を返す。
	Count(ctx context.Context) (int, error)
}

// TxBeginner はトランザクション開始用のインターフェース。
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}
