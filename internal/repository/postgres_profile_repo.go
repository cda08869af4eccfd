package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/prboard/internal/model"
	"github.com/lib/pq"
)

const profileColumns = `id, user_id, display_name, github_username, github_avatar_url, created_at, updated_at`

// PostgresProfileRepo はPostgreSQLを使用したプロフィールリポジトリ。
type PostgresProfileRepo struct {
	db *sql.DB
}

// NewPostgresProfileRepo はPostgresProfileRepoを生成する。
func NewPostgresProfileRepo(db *sql.DB) *PostgresProfileRepo {
	return &PostgresProfileRepo{db: db}
}

// FindByUserID は指定ユーザーのプロフィールを取得する。見つからない場合はnilを返す。
func (r *PostgresProfileRepo) FindByUserID(ctx context.Context, userID string) (*model.Profile, error) {
	p, err := scanProfile(r.db.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE user_id = $1`,
		userID,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find profile: %w", err)
	}
	return p, nil
}

// ListByUserIDs は指定ユーザー群のプロフィールをuser_idをキーにしたマップで返す。
func (r *PostgresProfileRepo) ListByUserIDs(ctx context.Context, userIDs []string) (map[string]*model.Profile, error) {
	result := make(map[string]*model.Profile, len(userIDs))
	if len(userIDs) == 0 {
		return result, nil
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE user_id = ANY($1::uuid[])`,
		pq.Array(userIDs),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		result[p.UserID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate profiles: %w", err)
	}
	return result, nil
}

// ListWithGitHubUsername はgithub_usernameが設定された全プロフィールを返す。
func (r *PostgresProfileRepo) ListWithGitHubUsername(ctx context.Context) ([]*model.Profile, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+profileColumns+` FROM profiles
		 WHERE github_username IS NOT NULL AND github_username <> ''
		 ORDER BY created_at, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles with github username: %w", err)
	}
	defer rows.Close()

	var profiles []*model.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate profiles: %w", err)
	}
	return profiles, nil
}

// Upsert はuser_idをキーにプロフィールを作成または更新する。
// 更新時はcreated_atとidを維持する。
func (r *PostgresProfileRepo) Upsert(ctx context.Context, profile *model.Profile) (*model.Profile, error) {
	p, err := scanProfile(r.db.QueryRowContext(ctx,
		`INSERT INTO profiles (id, user_id, display_name, github_username, github_avatar_url, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (user_id) DO UPDATE SET
		     display_name = EXCLUDED.display_name,
		     github_username = EXCLUDED.github_username,
		     github_avatar_url = EXCLUDED.github_avatar_url,
		     updated_at = EXCLUDED.updated_at
		 RETURNING `+profileColumns,
		profile.ID, profile.UserID, nullString(profile.DisplayName), nullString(profile.GitHubUsername),
		nullString(profile.GitHubAvatarURL), profile.CreatedAt, profile.UpdatedAt,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert profile: %w", err)
	}
	return p, nil
}

// CreateIfAbsent はプロフィールが未作成の場合のみ作成する。作成した場合はtrueを返す。
func (r *PostgresProfileRepo) CreateIfAbsent(ctx context.Context, profile *model.Profile) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO profiles (id, user_id, display_name, github_username, github_avatar_url, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (user_id) DO NOTHING`,
		profile.ID, profile.UserID, nullString(profile.DisplayName), nullString(profile.GitHubUsername),
		nullString(profile.GitHubAvatarURL), profile.CreatedAt, profile.UpdatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert profile: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// Count はプロフィール総数を返す。
func (r *PostgresProfileRepo) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM profiles`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count profiles: %w", err)
	}
	return count, nil
}

// scanProfile は1行分のプロフィールをスキャンする。
func scanProfile(s rowScanner) (*model.Profile, error) {
	p := &model.Profile{}
	var displayName, username, avatarURL sql.NullString
	if err := s.Scan(&p.ID, &p.UserID, &displayName, &username, &avatarURL, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.DisplayName = nullStringPtr(displayName)
	p.GitHubUsername = nullStringPtr(username)
	p.GitHubAvatarURL = nullStringPtr(avatarURL)
	return p, nil
}

// compile-time interface check
var _ ProfileRepository = (*PostgresProfileRepo)(nil)
