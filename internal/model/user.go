package model

import "time"

// User はサービス利用ユーザーを表す。
type User struct {
	ID        string
	Email     string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Identity は外部IdPとの紐付け情報を表す。
type Identity struct {
	ID             string
	UserID         string
	Provider       string
	ProviderUserID string
	CreatedAt      time.Time
}

// Session はユーザーのログインセッションを表す。
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Profile は認証済みアカウントごとの公開プロフィール。
// user_idごとに高々1件（user_idによるupsert）。
type Profile struct {
	ID              string
	UserID          string
	DisplayName     *string
	GitHubUsername  *string
	GitHubAvatarURL *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Role はユーザーに付与される権限を表す。
type Role string

const (
	// RoleAdmin はプロジェクト・リーダーボードを管理できる権限。
	RoleAdmin Role = "admin"
	// RoleUser は一般ユーザー権限。
	RoleUser Role = "user"
)

// UserRole はユーザーと権限の紐付け。
type UserRole struct {
	ID        string
	UserID    string
	Role      Role
	CreatedAt time.Time
}

// Viewer はリクエスト単位で解決される閲覧者のスナップショット。
// セッション解決時に一度だけ生成され、以降は変更されない。
type Viewer struct {
	UserID  string
	IsAdmin bool
}
