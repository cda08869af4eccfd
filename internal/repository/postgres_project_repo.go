package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/prboard/internal/model"
	"github.com/lib/pq"
)

const projectColumns = `id, github_owner, github_repo, github_repo_url, description, labels,
	stars, forks, created_by, created_at`

// PostgresProjectRepo はPostgreSQLを使用したプロジェクトリポジトリ。
type PostgresProjectRepo struct {
	db *sql.DB
}

// NewPostgresProjectRepo はPostgresProjectRepoを生成する。
func NewPostgresProjectRepo(db *sql.DB) *PostgresProjectRepo {
	return &PostgresProjectRepo{db: db}
}

// List は全プロジェクトをcreated_at降順で返す。
func (r *PostgresProjectRepo) List(ctx context.Context) ([]*model.Project, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+projectColumns+` FROM projects ORDER BY created_at DESC, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var projects []*model.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate projects: %w", err)
	}
	return projects, nil
}

// FindByID は指定IDのプロジェクトを取得する。見つからない場合はnilを返す。
func (r *PostgresProjectRepo) FindByID(ctx context.Context, id string) (*model.Project, error) {
	p, err := scanProject(r.db.QueryRowContext(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE id = $1`,
		id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find project by ID: %w", err)
	}
	return p, nil
}

// ListByIDs は指定ID群のプロジェクトをidをキーにしたマップで返す。
func (r *PostgresProjectRepo) ListByIDs(ctx context.Context, ids []string) (map[string]*model.Project, error) {
	result := make(map[string]*model.Project, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE id = ANY($1::uuid[])`,
		pq.Array(ids),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects by IDs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		result[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate projects: %w", err)
	}
	return result, nil
}

// Create はプロジェクトを作成する。
func (r *PostgresProjectRepo) Create(ctx context.Context, project *model.Project) error {
	labels := project.Labels
	if labels == nil {
		labels = []string{}
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO projects (id, github_owner, github_repo, github_repo_url, description, labels,
		                       stars, forks, created_by, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		project.ID, project.GitHubOwner, project.GitHubRepo, project.GitHubRepoURL,
		nullString(project.Description), pq.Array(labels),
		project.Stars, project.Forks, nullString(project.CreatedBy), project.CreatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("failed to insert project %s: %w", project.FullName(), ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("failed to insert project: %w", err)
	}
	return nil
}

// UpdateMetadata はstars、forks、descriptionを更新する。
// descriptionが空の場合は既存の値を維持する。
func (r *PostgresProjectRepo) UpdateMetadata(ctx context.Context, id string, meta model.RepoMetadata) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE projects
		 SET stars = $2,
		     forks = $3,
		     description = COALESCE(NULLIF(description, ''), NULLIF($4, ''))
		 WHERE id = $1`,
		id, meta.Stars, meta.Forks, meta.Description,
	)
	if err != nil {
		return fmt.Errorf("failed to update project metadata: %w", err)
	}
	return nil
}

// DeleteByID は指定IDのプロジェクトを削除する。見つからない場合はfalseを返す。
func (r *PostgresProjectRepo) DeleteByID(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete project: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// Count はプロジェクト総数を返す。
func (r *PostgresProjectRepo) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM projects`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count projects: %w", err)
	}
	return count, nil
}

// scanProject は1行分のプロジェクトをスキャンする。
func scanProject(s rowScanner) (*model.Project, error) {
	p := &model.Project{}
	var description, createdBy sql.NullString
	var labels pq.StringArray
	err := s.Scan(
		&p.ID, &p.GitHubOwner, &p.GitHubRepo, &p.GitHubRepoURL, &description, &labels,
		&p.Stars, &p.Forks, &createdBy, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Description = nullStringPtr(description)
	p.CreatedBy = nullStringPtr(createdBy)
	p.Labels = []string(labels)
	if p.Labels == nil {
		p.Labels = []string{}
	}
	return p, nil
}

// compile-time interface check
var _ ProjectRepository = (*PostgresProjectRepo)(nil)
