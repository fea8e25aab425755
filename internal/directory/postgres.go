package directory

import (
	"context"
	"errors"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/lqviet45/light-novel-BE/internal/domain"
)

type pgExecutor interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var userColumns = []string{
	"id",
	"email",
	"username",
	"first_name",
	"last_name",
	"status",
	"email_verified",
	"account_non_expired",
	"account_non_locked",
	"credentials_non_expired",
	"enabled",
	"password_hash",
	"last_login_at",
}

// PostgresDirectory reads identities straight from the user service schema.
type PostgresDirectory struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
	timeout time.Duration
	now     func() time.Time
}

// NewPostgresDirectory wires a PostgreSQL-backed directory. Pass a
// *pgxpool.Pool in production.
func NewPostgresDirectory(exec pgExecutor, timeout time.Duration) *PostgresDirectory {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &PostgresDirectory{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		timeout: timeout,
		now:     time.Now,
	}
}

func (d *PostgresDirectory) GetByEmail(ctx context.Context, email string) (*domain.Identity, error) {
	return d.getOne(ctx, squirrel.Expr("lower(email) = lower(?)", email))
}

func (d *PostgresDirectory) GetByID(ctx context.Context, id int64) (*domain.Identity, error) {
	return d.getOne(ctx, squirrel.Eq{"id": id})
}

func (d *PostgresDirectory) UpdateLastLogin(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	stmt, args, err := d.builder.Update("users").
		Set("last_login_at", d.now().UTC()).
		Where(squirrel.Eq{"id": id}).
		Where("deleted_at IS NULL").
		ToSql()
	if err != nil {
		return fmt.Errorf("build update last login sql: %w", err)
	}

	tag, err := d.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("%w: update last login: %w", ErrUnavailable, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (d *PostgresDirectory) getOne(ctx context.Context, pred squirrel.Sqlizer) (*domain.Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	stmt, args, err := d.builder.Select(userColumns...).
		From("users").
		Where(pred).
		Where("deleted_at IS NULL").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select user sql: %w", err)
	}

	var (
		identity                      domain.Identity
		username, firstName, lastName *string
		status                        string
		passwordHash                  *string
	)
	err = d.exec.QueryRow(ctx, stmt, args...).Scan(
		&identity.ID,
		&identity.Email,
		&username,
		&firstName,
		&lastName,
		&status,
		&identity.EmailVerified,
		&identity.AccountNonExpired,
		&identity.AccountNonLocked,
		&identity.CredentialsNonExpired,
		&identity.Enabled,
		&passwordHash,
		&identity.LastLoginAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: select user: %w", ErrUnavailable, err)
	}

	identity.Status = domain.UserStatus(status)
	identity.Username = deref(username)
	identity.FirstName = deref(firstName)
	identity.LastName = deref(lastName)
	identity.PasswordHash = deref(passwordHash)
	identity.FullName = identity.DisplayName()

	roles, err := d.roles(ctx, identity.ID)
	if err != nil {
		return nil, err
	}
	identity.Roles = roles
	return &identity, nil
}

func (d *PostgresDirectory) roles(ctx context.Context, userID int64) ([]string, error) {
	stmt, args, err := d.builder.Select("r.name").
		From("roles r").
		Join("user_roles ur ON ur.role_id = r.id").
		Where(squirrel.Eq{"ur.user_id": userID}).
		OrderBy("r.name").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select roles sql: %w", err)
	}

	rows, err := d.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: select roles: %w", ErrUnavailable, err)
	}
	defer rows.Close()

	var roles []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("%w: scan role: %w", ErrUnavailable, err)
		}
		roles = append(roles, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate roles: %w", ErrUnavailable, err)
	}
	return roles, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
