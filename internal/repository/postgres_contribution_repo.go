package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/prboard/internal/model"
)

const contributionColumns = `id, user_id, project_id, leaderboard_id, pr_number, pr_title, pr_url,
	merged_at, created_at`

// PostgresContributionRepo はPostgreSQLを使用したコントリビューションリポジトリ。
type PostgresContributionRepo struct {
	db *sql.DB
}

// NewPostgresContributionRepo はPostgresContributionRepoを生成する。
func NewPostgresContributionRepo(db *sql.DB) *PostgresContributionRepo {
	return &PostgresContributionRepo{db: db}
}

// ListForRanking はランキング集計対象のコントリビューションを返す。
// 並び順は集計側で決定するため、ここでは保証しない。
func (r *PostgresContributionRepo) ListForRanking(ctx context.Context, scope string) ([]*model.Contribution, error) {
	if scope == model.AllTimeScope {
		return r.query(ctx, "failed to list contributions",
			`SELECT `+contributionColumns+` FROM contributions`,
		)
	}
	return r.query(ctx, "failed to list leaderboard contributions",
		`SELECT `+contributionColumns+` FROM contributions WHERE leaderboard_id = $1`,
		scope,
	)
}

// ListByUserID は指定ユーザーのコントリビューションをmerged_at降順で返す。
func (r *PostgresContributionRepo) ListByUserID(ctx context.Context, userID string) ([]*model.Contribution, error) {
	return r.query(ctx, "failed to list user contributions",
		`SELECT `+contributionColumns+` FROM contributions
		 WHERE user_id = $1
		 ORDER BY merged_at DESC, id`,
		userID,
	)
}

// Create はコントリビューションを作成する。
// (project_id, pr_number) が既に存在する場合は新規作成せずfalseを返す。
// 既存行がリーダーボード未所属で、cにleaderboard_idがある場合は既存行にそれを紐付ける。
func (r *PostgresContributionRepo) Create(ctx context.Context, c *model.Contribution) (bool, error) {
	var inserted bool
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO contributions (id, user_id, project_id, leaderboard_id, pr_number, pr_title, pr_url,
		                            merged_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (project_id, pr_number) DO UPDATE
		   SET leaderboard_id = EXCLUDED.leaderboard_id
		   WHERE contributions.leaderboard_id IS NULL AND EXCLUDED.leaderboard_id IS NOT NULL
		 RETURNING (xmax = 0)`,
		c.ID, c.UserID, c.ProjectID, nullString(c.LeaderboardID), c.PRNumber, c.PRTitle, c.PRURL,
		c.MergedAt, c.CreatedAt,
	).Scan(&inserted)
	if errors.Is(err, sql.ErrNoRows) {
		// 既存行があり、更新も不要だった
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to insert contribution: %w", err)
	}
	return inserted, nil
}

// Count はコントリビューション総数を返す。
func (r *PostgresContributionRepo) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM contributions`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count contributions: %w", err)
	}
	return count, nil
}

func (r *PostgresContributionRepo) query(ctx context.Context, op, query string, args ...any) ([]*model.Contribution, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var contributions []*model.Contribution
	for rows.Next() {
		c := &model.Contribution{}
		var leaderboardID sql.NullString
		if err := rows.Scan(
			&c.ID, &c.UserID, &c.ProjectID, &leaderboardID, &c.PRNumber, &c.PRTitle, &c.PRURL,
			&c.MergedAt, &c.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan contribution: %w", err)
		}
		c.LeaderboardID = nullStringPtr(leaderboardID)
		contributions = append(contributions, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return contributions, nil
}

// compile-time interface check
var _ ContributionRepository = (*PostgresContributionRepo)(nil)
