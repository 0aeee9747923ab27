package storage

import (
	"auth_gateway/internal/models"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v4/pgxpool"
)

var errEmptyPatch = errors.New("empty patch")

// ResourceStorage is the resource store. Reads return newest first.
type ResourceStorage interface {
	CreateResource(ctx context.Context, r models.NewResource) (id int64, err error)
	ListResources(ctx context.Context) ([]models.Resource, error)
	UpdateResource(ctx context.Context, id int64, patch models.ResourcePatch) error
	DeleteResource(ctx context.Context, id int64) error

	CountResources(ctx context.Context) (int64, error)
	ListResourceIDs(ctx context.Context) ([]int64, error)
	RecordUsage(ctx context.Context, resourceID int64, email string) error

	Close()
}

type PostgresResourceStorage struct {
	db *pgxpool.Pool
}

func NewPostgresResourceStorage(ctx context.Context, dbURL string) (*PostgresResourceStorage, error) {
	const op = "storage.NewPostgresResourceStorage"

	conn, err := pgxpool.Connect(ctx, dbURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &PostgresResourceStorage{
		db: conn,
	}, nil
}

func (p *PostgresResourceStorage) CreateResource(ctx context.Context, r models.NewResource) (int64, error) {
	const op = "storage.CreateResource"

	columns := make([]string, 0, len(models.UpdatableFields))
	placeholders := make([]string, 0, len(models.UpdatableFields))
	args := make([]interface{}, 0, len(models.UpdatableFields))
	for i, f := range models.UpdatableFields {
		columns = append(columns, string(f))
		placeholders = append(placeholders, fmt.Sprintf("$%d", i+1))
		args = append(args, r.Value(f))
	}

	query := fmt.Sprintf("INSERT INTO %s(%s) VALUES (%s) RETURNING id;",
		resourcesTable, strings.Join(columns, ", "), strings.Join(placeholders, ", "))

	var id int64
	if err := p.db.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

func (p *PostgresResourceStorage) ListResources(ctx context.Context) ([]models.Resource, error) {
	const op = "storage.ListResources"

	query := fmt.Sprintf(`SELECT
	id, name, author, annotation, kind, purpose,
	to_char(open_date, 'YYYY-MM-DD'), to_char(expiry_date, 'YYYY-MM-DD'),
	usage_conditions, url, created_at
	FROM %s ORDER BY created_at DESC, id DESC;`, resourcesTable)

	rows, err := p.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	resources := []models.Resource{}
	for rows.Next() {
		var r models.Resource

		err := rows.Scan(
			&r.ID,
			&r.Name,
			&r.Author,
			&r.Annotation,
			&r.Kind,
			&r.Purpose,
			&r.OpenDate,
			&r.ExpiryDate,
			&r.UsageConditions,
			&r.URL,
			&r.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		resources = append(resources, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s (rows): %w", op, err)
	}

	return resources, nil
}

// UpdateResource sets only the fields present in patch. Column names come
// from models.UpdatableFields, never from the patch keys themselves.
func (p *PostgresResourceStorage) UpdateResource(ctx context.Context, id int64, patch models.ResourcePatch) error {
	const op = "storage.UpdateResource"

	query, args, err := buildUpdate(id, patch)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	tag, err := p.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, ErrResourceNotFound)
	}

	return nil
}

func buildUpdate(id int64, patch models.ResourcePatch) (string, []interface{}, error) {
	sets := make([]string, 0, len(patch))
	args := make([]interface{}, 0, len(patch)+1)
	for _, f := range models.UpdatableFields {
		value, ok := patch[f]
		if !ok {
			continue
		}
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", f, len(args)))
	}
	if len(sets) == 0 {
		return "", nil, errEmptyPatch
	}

	args = append(args, id)
	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = $%d;", resourcesTable, strings.Join(sets, ", "), len(args))

	return query, args, nil
}

func (p *PostgresResourceStorage) DeleteResource(ctx context.Context, id int64) error {
	const op = "storage.DeleteResource"

	query := fmt.Sprintf("DELETE FROM %s WHERE id = $1;", resourcesTable)

	tag, err := p.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, ErrResourceNotFound)
	}

	return nil
}

func (p *PostgresResourceStorage) CountResources(ctx context.Context) (int64, error) {
	const op = "storage.CountResources"

	var count int64
	query := fmt.Sprintf("SELECT count(*) FROM %s;", resourcesTable)

	if err := p.db.QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return count, nil
}

func (p *PostgresResourceStorage) ListResourceIDs(ctx context.Context) ([]int64, error) {
	const op = "storage.ListResourceIDs"

	query := fmt.Sprintf("SELECT id FROM %s ORDER BY id;", resourcesTable)

	rows, err := p.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s (rows): %w", op, err)
	}

	return ids, nil
}

// RecordUsage bumps the usage counter of (resourceID, email) by one.
func (p *PostgresResourceStorage) RecordUsage(ctx context.Context, resourceID int64, email string) error {
	const op = "storage.RecordUsage"

	query := fmt.Sprintf(`
      INSERT INTO %[1]s (resource_id, user_email, usage_count, last_access)
      VALUES ($1, $2, 1, now())
      ON CONFLICT (resource_id, user_email)
      DO UPDATE SET usage_count = %[1]s.usage_count + 1,
                    last_access = excluded.last_access
    `, usageStatsTable)

	if _, err := p.db.Exec(ctx, query, resourceID, email); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (p *PostgresResourceStorage) Close() {
	p.db.Close()
}
