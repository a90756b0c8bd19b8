// Copyright (c) 2026 Stella. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package identity

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/stella/internal/platform/apperr"
	"github.com/taibuivan/stella/internal/platform/database/schema"
	"github.com/taibuivan/stella/internal/platform/dberr"
)

// # Administrator Repository

// PostgresAdminRepository implements [AdminRepository] using pgx.
type PostgresAdminRepository struct {
	pool *pgxpool.Pool
}

// NewAdminRepository creates a new PostgreSQL implementation of the AdminRepository.
func NewAdminRepository(pool *pgxpool.Pool) *PostgresAdminRepository {
	return &PostgresAdminRepository{pool: pool}
}

var adminColumns = strings.Join(schema.Admin.Columns(), ", ")

func scanAdmin(row pgx.Row) (*Admin, error) {
	admin := &Admin{}
	err := row.Scan(
		&admin.ID,
		&admin.Email,
		&admin.FullName,
		&admin.SocialID,
		&admin.SocialType,
		&admin.Role,
		&admin.IsActive,
		&admin.CreatedAt,
	)
	return admin, err
}

/*
FindByEmail retrieves an administrator by their unique email address.

Parameters:
  - context: context.Context
  - email: string

Returns:
  - *Admin: Hydrated account entity
  - error: apperr.NotFound or database errors
*/
func (repository *PostgresAdminRepository) FindByEmail(context context.Context, email string) (*Admin, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = $1", adminColumns, schema.Admin.Table, schema.Admin.Email)

	admin, err := scanAdmin(repository.pool.QueryRow(context, query, email))
	if err != nil {
		if dberr.IsNoRows(err) {
			return nil, apperr.NotFound("Admin")
		}
		return nil, fmt.Errorf("postgres_admin_repo_find_by_email_failed: %w", err)
	}

	return admin, nil
}

// FindByID retrieves an administrator by primary key.
func (repository *PostgresAdminRepository) FindByID(context context.Context, id int64) (*Admin, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = $1", adminColumns, schema.Admin.Table, schema.Admin.ID)

	admin, err := scanAdmin(repository.pool.QueryRow(context, query, id))
	if err != nil {
		if dberr.IsNoRows(err) {
			return nil, apperr.NotFound("Admin")
		}
		return nil, fmt.Errorf("postgres_admin_repo_find_by_id_failed: %w", err)
	}

	return admin, nil
}

// AttachSocialID backfills the provider subject when the account has none.
func (repository *PostgresAdminRepository) AttachSocialID(context context.Context, id int64, socialID, socialType string) error {
	query := fmt.Sprintf("UPDATE %s SET %s = $2, %s = $3 WHERE %s = $1 AND %s IS NULL",
		schema.Admin.Table, schema.Admin.SocialID, schema.Admin.SocialType, schema.Admin.ID, schema.Admin.SocialID)

	if _, err := repository.pool.Exec(context, query, id, socialID, socialType); err != nil {
		return fmt.Errorf("postgres_admin_repo_attach_social_failed: %w", err)
	}
	return nil
}

/*
Create persists a new administrator record.

Description: The database assigns the identity and creation time, which are
written back into admin.

Parameters:
  - context: context.Context
  - admin: *Admin (Entity to persist)

Returns:
  - error: apperr.Conflict on duplicate email, or connectivity errors
*/
func (repository *PostgresAdminRepository) Create(context context.Context, admin *Admin) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING %s, %s`,
		schema.Admin.Table,
		schema.Admin.Email, schema.Admin.FullName, schema.Admin.SocialID,
		schema.Admin.SocialType, schema.Admin.Role, schema.Admin.IsActive,
		schema.Admin.ID, schema.Admin.CreatedAt,
	)

	err := repository.pool.QueryRow(context, query,
		admin.Email,
		admin.FullName,
		admin.SocialID,
		admin.SocialType,
		admin.Role,
		admin.IsActive,
	).Scan(&admin.ID, &admin.CreatedAt)

	if err != nil {
		if dberr.IsUniqueViolation(err) {
			return apperr.Conflict("An admin with this email already exists").WithCause(err)
		}
		return fmt.Errorf("postgres_admin_repo_create_failed: %w", err)
	}

	return nil
}

// List returns every administrator ordered by id.
func (repository *PostgresAdminRepository) List(context context.Context) ([]*Admin, error) {
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY %s", adminColumns, schema.Admin.Table, schema.Admin.ID)

	rows, err := repository.pool.Query(context, query)
	if err != nil {
		return nil, fmt.Errorf("postgres_admin_repo_list_failed: %w", err)
	}
	defer rows.Close()

	admins := make([]*Admin, 0)
	for rows.Next() {
		admin, err := scanAdmin(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres_admin_repo_list_scan_failed: %w", err)
		}
		admins = append(admins, admin)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres_admin_repo_list_failed: %w", err)
	}

	return admins, nil
}

// SetActive toggles the active flag of an administrator.
func (repository *PostgresAdminRepository) SetActive(context context.Context, id int64, active bool) error {
	query := fmt.Sprintf("UPDATE %s SET %s = $2 WHERE %s = $1", schema.Admin.Table, schema.Admin.IsActive, schema.Admin.ID)

	tag, err := repository.pool.Exec(context, query, id, active)
	if err != nil {
		return fmt.Errorf("postgres_admin_repo_set_active_failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Admin")
	}

	return nil
}

// # User Repository

// PostgresUserRepository implements [UserRepository] using pgx.
type PostgresUserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new PostgreSQL implementation of the UserRepository.
func NewUserRepository(pool *pgxpool.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

var userColumns = strings.Join(schema.UserAccount.Columns(), ", ")

func scanUser(row pgx.Row) (*User, error) {
	user := &User{}
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.FullName,
		&user.SocialID,
		&user.SocialType,
		&user.PasswordHash,
		&user.IsActive,
		&user.CreatedAt,
	)
	return user, err
}

/*
FindByEmail retrieves a user record by their unique email address.

Parameters:
  - context: context.Context
  - email: string

Returns:
  - *User: Hydrated account entity
  - error: apperr.NotFound or database errors
*/
func (repository *PostgresUserRepository) FindByEmail(context context.Context, email string) (*User, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = $1", userColumns, schema.UserAccount.Table, schema.UserAccount.Email)

	user, err := scanUser(repository.pool.QueryRow(context, query, email))
	if err != nil {
		if dberr.IsNoRows(err) {
			return nil, apperr.NotFound("User")
		}
		return nil, fmt.Errorf("postgres_user_repo_find_by_email_failed: %w", err)
	}

	return user, nil
}

// FindByID retrieves a user record by primary key.
func (repository *PostgresUserRepository) FindByID(context context.Context, id int64) (*User, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = $1", userColumns, schema.UserAccount.Table, schema.UserAccount.ID)

	user, err := scanUser(repository.pool.QueryRow(context, query, id))
	if err != nil {
		if dberr.IsNoRows(err) {
			return nil, apperr.NotFound("User")
		}
		return nil, fmt.Errorf("postgres_user_repo_find_by_id_failed: %w", err)
	}

	return user, nil
}

/*
Create persists a new user record into the user_account table.

Parameters:
  - context: context.Context
  - user: *User (Entity to persist)

Returns:
  - error: apperr.Conflict on duplicate email, or connectivity errors
*/
func (repository *PostgresUserRepository) Create(context context.Context, user *User) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING %s, %s`,
		schema.UserAccount.Table,
		schema.UserAccount.Email, schema.UserAccount.FullName, schema.UserAccount.SocialID,
		schema.UserAccount.SocialType, schema.UserAccount.PasswordHash, schema.UserAccount.IsActive,
		schema.UserAccount.ID, schema.UserAccount.CreatedAt,
	)

	err := repository.pool.QueryRow(context, query,
		user.Email,
		user.FullName,
		user.SocialID,
		user.SocialType,
		user.PasswordHash,
		user.IsActive,
	).Scan(&user.ID, &user.CreatedAt)

	if err != nil {
		if dberr.IsUniqueViolation(err) {
			return apperr.Conflict("An account with this email already exists").WithCause(err)
		}
		return fmt.Errorf("postgres_user_repo_create_failed: %w", err)
	}

	return nil
}

// AttachSocialID backfills the provider subject when the account has none.
func (repository *PostgresUserRepository) AttachSocialID(context context.Context, id int64, socialID, socialType string) error {
	query := fmt.Sprintf("UPDATE %s SET %s = $2, %s = $3 WHERE %s = $1 AND %s IS NULL",
		schema.UserAccount.Table, schema.UserAccount.SocialID, schema.UserAccount.SocialType,
		schema.UserAccount.ID, schema.UserAccount.SocialID)

	if _, err := repository.pool.Exec(context, query, id, socialID, socialType); err != nil {
		return fmt.Errorf("postgres_user_repo_attach_social_failed: %w", err)
	}
	return nil
}
