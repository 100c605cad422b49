package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Gangireddy387/OnlineNotebook/internal/app/models"
	"github.com/Gangireddy387/OnlineNotebook/internal/pkg/apperrors"
	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DirectoryRepository reads the users and admins tables
type DirectoryRepository struct {
	db *pgxpool.Pool
}

// NewDirectoryRepository creates a new DirectoryRepository
func NewDirectoryRepository(db *pgxpool.Pool) *DirectoryRepository {
	return &DirectoryRepository{db: db}
}

// GetUserByID retrieves a user by ID
func (r *DirectoryRepository) GetUserByID(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	var u models.User
	err := r.db.QueryRow(ctx, `
		SELECT id, name, email, college_id, department_id, year, is_approved, created_at, updated_at
		FROM users
		WHERE id = $1
	`, userID).Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.CollegeID,
		&u.DepartmentID,
		&u.Year,
		&u.IsApproved,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", userID, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("error retrieving user: %w", err)
	}
	return &u, nil
}

// GetAdminByID retrieves an admin by ID
func (r *DirectoryRepository) GetAdminByID(ctx context.Context, adminID uuid.UUID) (*models.Admin, error) {
	var a models.Admin
	err := r.db.QueryRow(ctx, `
		SELECT id, name, email, role, is_approved, is_active, created_at, updated_at
		FROM admins
		WHERE id = $1
	`, adminID).Scan(
		&a.ID,
		&a.Name,
		&a.Email,
		&a.Role,
		&a.IsApproved,
		&a.IsActive,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("admin %s: %w", adminID, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("error retrieving admin: %w", err)
	}
	return &a, nil
}

// SearchUsers matches approved users by name or email
func (r *DirectoryRepository) SearchUsers(ctx context.Context, query string, excludeID uuid.UUID, limit int) ([]*models.User, error) {
	pattern := "%" + strings.ToLower(query) + "%"

	sql, args, err := squirrel.Select("id", "name", "email", "college_id", "department_id", "year", "is_approved", "created_at", "updated_at").
		From("users").
		Where(squirrel.Or{
			squirrel.Like{"LOWER(name)": pattern},
			squirrel.Like{"LOWER(email)": pattern},
		}).
		Where(squirrel.NotEq{"id": excludeID}).
		Where(squirrel.Eq{"is_approved": true}).
		OrderBy("name ASC").
		Limit(uint64(limit)).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	users := make([]*models.User, 0)
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.CollegeID, &u.DepartmentID, &u.Year, &u.IsApproved, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, fmt.Errorf("error scanning user row: %w", err)
		}
		users = append(users, &u)
	}
	return users, rows.Err()
}

// EnsureUser inserts the user unless the id already exists
func (r *DirectoryRepository) EnsureUser(ctx context.Context, u *models.User) error {
	sql, args, err := squirrel.Insert("users").
		Columns("id", "name", "email", "college_id", "department_id", "year", "is_approved", "created_at", "updated_at").
		Values(u.ID, u.Name, u.Email, u.CollegeID, u.DepartmentID, u.Year, u.IsApproved, u.CreatedAt, u.UpdatedAt).
		Suffix("ON CONFLICT DO NOTHING").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("error building SQL: %w", err)
	}
	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("error inserting user: %w", err)
	}
	return nil
}

// EnsureAdmin inserts the admin unless the id already exists
func (r *DirectoryRepository) EnsureAdmin(ctx context.Context, a *models.Admin) error {
	sql, args, err := squirrel.Insert("admins").
		Columns("id", "name", "email", "role", "is_approved", "is_active", "created_at", "updated_at").
		Values(a.ID, a.Name, a.Email, a.Role, a.IsApproved, a.IsActive, a.CreatedAt, a.UpdatedAt).
		Suffix("ON CONFLICT DO NOTHING").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("error building SQL: %w", err)
	}
	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("error inserting admin: %w", err)
	}
	return nil
}
