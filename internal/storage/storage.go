package storage

import (
	"auth_gateway/internal/models"
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

const (
	uniqueViolationCode = "23505"

	usersTable      = "users"
	resourcesTable  = "resources"
	usageStatsTable = "usage_stats"
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrUserExists       = errors.New("user already exists")
	ErrResourceNotFound = errors.New("resource not found")
)

// UserStorage is the credential store. Passwords are stored and matched verbatim.
type UserStorage interface {
	CreateUser(ctx context.Context, email, password string) (userID uuid.UUID, err error)
	GetUserByCredentials(ctx context.Context, email, password string) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
	ListEmails(ctx context.Context) ([]string, error)
	SeedUser(ctx context.Context, email, password string) error

	Close()
}

type PostgresStorage struct {
	db *pgxpool.Pool
}

func NewPostgresStorage(ctx context.Context, dbURL string) (*PostgresStorage, error) {
	const op = "storage.NewPostgresStorage"

	conn, err := pgxpool.Connect(ctx, dbURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &PostgresStorage{
		db: conn,
	}, nil
}

func (p *PostgresStorage) CreateUser(ctx context.Context, email, password string) (uuid.UUID, error) {
	const op = "storage.CreateUser"

	userID, err := uuid.NewV4()
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	query := fmt.Sprintf("INSERT INTO %s(id, email, password) VALUES ($1, $2, $3);", usersTable)

	if _, err := p.db.Exec(ctx, query, userID, email, password); err != nil {
		if isUniqueViolation(err) {
			return uuid.Nil, fmt.Errorf("%s: %w", op, ErrUserExists)
		}
		return uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	return userID, nil
}

func (p *PostgresStorage) GetUserByCredentials(ctx context.Context, email, password string) (models.User, error) {
	const op = "storage.GetUserByCredentials"

	query := fmt.Sprintf("SELECT id, email, password, created_at FROM %s WHERE email=$1 AND password=$2;", usersTable)

	user, err := p.scanUser(ctx, query, email, password)
	if err != nil {
		return user, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

func (p *PostgresStorage) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	const op = "storage.GetUserByEmail"

	query := fmt.Sprintf("SELECT id, email, password, created_at FROM %s WHERE email=$1;", usersTable)

	user, err := p.scanUser(ctx, query, email)
	if err != nil {
		return user, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

func (p *PostgresStorage) scanUser(ctx context.Context, query string, args ...interface{}) (models.User, error) {
	var user models.User

	err := p.db.QueryRow(ctx, query, args...).Scan(&user.ID, &user.Email, &user.Password, &user.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return user, ErrUserNotFound
	}

	return user, err
}

func (p *PostgresStorage) ListEmails(ctx context.Context) ([]string, error) {
	const op = "storage.ListEmails"

	query := fmt.Sprintf("SELECT email FROM %s ORDER BY email;", usersTable)

	rows, err := p.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var emails []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		emails = append(emails, email)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s (rows): %w", op, err)
	}

	return emails, nil
}

// SeedUser inserts the user unless the email is already taken.
func (p *PostgresStorage) SeedUser(ctx context.Context, email, password string) error {
	const op = "storage.SeedUser"

	userID, err := uuid.NewV4()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	query := fmt.Sprintf(`INSERT INTO %s(id, email, password) VALUES ($1, $2, $3)
	ON CONFLICT (email) DO NOTHING;`, usersTable)

	if _, err := p.db.Exec(ctx, query, userID, email, password); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (p *PostgresStorage) Close() {
	p.db.Close()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}
