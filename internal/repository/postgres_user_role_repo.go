package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/hitoshi/prboard/internal/model"
)

// PostgresUserRoleRepo はPostgreSQLを使用したユーザー権限リポジトリ。
type PostgresUserRoleRepo struct {
	db *sql.DB
}

// NewPostgresUserRoleRepo はPostgresUserRoleRepoを生成する。
func NewPostgresUserRoleRepo(db *sql.DB) *PostgresUserRoleRepo {
	return &PostgresUserRoleRepo{db: db}
}

// HasRole は指定ユーザーが指定権限を持つかを返す。
func (r *PostgresUserRoleRepo) HasRole(ctx context.Context, userID string, role model.Role) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM user_roles WHERE user_id = $1 AND role = $2::app_role)`,
		userID, string(role),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check user role: %w", err)
	}
	return exists, nil
}

// Grant は指定ユーザーに権限を付与する。既に付与済みの場合は何もしない。
func (r *PostgresUserRoleRepo) Grant(ctx context.Context, userID string, role model.Role) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO user_roles (id, user_id, role)
		 VALUES ($1, $2, $3::app_role)
		 ON CONFLICT (user_id, role) DO NOTHING`,
		uuid.New().String(), userID, string(role),
	)
	if err != nil {
		return fmt.Errorf("failed to grant role: %w", err)
	}
	return nil
}

// compile-time interface check
var _ UserRoleRepository = (*PostgresUserRoleRepo)(nil)
