package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/prboard/internal/model"
)

const leaderboardColumns = `id, name, description, start_date, end_date, is_active, created_by, created_at`

// PostgresLeaderboardRepo はPostgreSQLを使用したリーダーボードリポジトリ。
type PostgresLeaderboardRepo struct {
	db *sql.DB
}

// NewPostgresLeaderboardRepo はPostgresLeaderboardRepoを生成する。
func NewPostgresLeaderboardRepo(db *sql.DB) *PostgresLeaderboardRepo {
	return &PostgresLeaderboardRepo{db: db}
}

// List は全リーダーボードをcreated_at降順で返す。
func (r *PostgresLeaderboardRepo) List(ctx context.Context) ([]*model.Leaderboard, error) {
	return r.query(ctx, "failed to list leaderboards",
		`SELECT `+leaderboardColumns+` FROM leaderboards ORDER BY created_at DESC, id`,
	)
}

// ListActive はis_active=trueのリーダーボードをstart_date降順で返す。
func (r *PostgresLeaderboardRepo) ListActive(ctx context.Context) ([]*model.Leaderboard, error) {
	return r.query(ctx, "failed to list active leaderboards",
		`SELECT `+leaderboardColumns+` FROM leaderboards
		 WHERE is_active = true
		 ORDER BY start_date DESC, id`,
	)
}

// FindByID は指定IDのリーダーボードを取得する。見つからない場合はnilを返す。
func (r *PostgresLeaderboardRepo) FindByID(ctx context.Context, id string) (*model.Leaderboard, error) {
	return r.queryOne(ctx, "failed to find leaderboard by ID",
		`SELECT `+leaderboardColumns+` FROM leaderboards WHERE id = $1`,
		id,
	)
}

// FindNextEnding はis_active=trueかつend_date >= nowのうち、最も早く終了するものを返す。
func (r *PostgresLeaderboardRepo) FindNextEnding(ctx context.Context, now time.Time) (*model.Leaderboard, error) {
	return r.queryOne(ctx, "failed to find next ending leaderboard",
		`SELECT `+leaderboardColumns+` FROM leaderboards
		 WHERE is_active = true AND end_date >= $1
		 ORDER BY end_date ASC, id
		 LIMIT 1`,
		now,
	)
}

// FindActiveAt は期間に指定時刻を含むアクティブなリーダーボードを返す。
func (r *PostgresLeaderboardRepo) FindActiveAt(ctx context.Context, t time.Time) (*model.Leaderboard, error) {
	return r.queryOne(ctx, "failed to find active leaderboard",
		`SELECT `+leaderboardColumns+` FROM leaderboards
		 WHERE is_active = true AND start_date <= $1 AND end_date >= $1
		 ORDER BY start_date ASC, id
		 LIMIT 1`,
		t,
	)
}

// Create はリーダーボードを作成する。
func (r *PostgresLeaderboardRepo) Create(ctx context.Context, lb *model.Leaderboard) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO leaderboards (id, name, description, start_date, end_date, is_active, created_by, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		lb.ID, lb.Name, nullString(lb.Description), lb.StartDate, lb.EndDate,
		lb.IsActive, nullString(lb.CreatedBy), lb.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert leaderboard: %w", err)
	}
	return nil
}

// SetActive はis_activeを更新する。見つからない場合はfalseを返す。
func (r *PostgresLeaderboardRepo) SetActive(ctx context.Context, id string, active bool) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE leaderboards SET is_active = $2 WHERE id = $1`,
		id, active,
	)
	if err != nil {
		return false, fmt.Errorf("failed to update leaderboard: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// DeleteByID は指定IDのリーダーボードを削除する。見つからない場合はfalseを返す。
func (r *PostgresLeaderboardRepo) DeleteByID(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM leaderboards WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete leaderboard: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

func (r *PostgresLeaderboardRepo) query(ctx context.Context, op, query string, args ...any) ([]*model.Leaderboard, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var leaderboards []*model.Leaderboard
	for rows.Next() {
		lb, err := scanLeaderboard(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard: %w", err)
		}
		leaderboards = append(leaderboards, lb)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return leaderboards, nil
}

func (r *PostgresLeaderboardRepo) queryOne(ctx context.Context, op, query string, args ...any) (*model.Leaderboard, error) {
	lb, err := scanLeaderboard(r.db.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return lb, nil
}

// scanLeaderboard は1行分のリーダーボードをスキャンする。
func scanLeaderboard(s rowScanner) (*model.Leaderboard, error) {
	lb := &model.Leaderboard{}
	var description, createdBy sql.NullString
	err := s.Scan(
		&lb.ID, &lb.Name, &description, &lb.StartDate, &lb.EndDate,
		&lb.IsActive, &createdBy, &lb.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	lb.Description = nullStringPtr(description)
	lb.CreatedBy = nullStringPtr(createdBy)
	return lb, nil
}

// compile-time interface check
var _ LeaderboardRepository = (*PostgresLeaderboardRepo)(nil)
