package auth

import (
	"context"
	"fmt"

	"hcm/internal/platform/querier"
)

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

func (s *Store) FindActiveUserByEmail(ctx context.Context, email string) (AuthUser, error) {
	var out AuthUser
	err := s.DB.QueryRow(ctx, `
		SELECT u.id, u.role_id, r.name, u.password_hash
		FROM users u
		JOIN roles r ON u.role_id = r.id
		WHERE u.email = $1 AND u.status = 'active'`,
		email).Scan(&out.ID, &out.RoleID, &out.RoleName, &out.Password)
	return out, err
}

func (s *Store) UpdateLastLogin(ctx context.Context, userID string) error {
	_, err := s.DB.Exec(ctx, `UPDATE users SET last_login = now() WHERE id = $1`, userID)
	return err
}

func (s *Store) HasPermission(ctx context.Context, roleID, permission string) (bool, error) {
	var count int
	if err := s.DB.QueryRow(ctx, `
		SELECT COUNT(1)
		FROM role_permissions
		WHERE role_id = $1 AND permission = $2`,
		roleID, permission).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Store) RoleIDByName(ctx context.Context, name string) (string, error) {
	var id string
	if err := s.DB.QueryRow(ctx, `SELECT id FROM roles WHERE name = $1`, name).Scan(&id); err != nil {
		return "", fmt.Errorf("role %q lookup: %w", name, err)
	}
	return id, nil
}

func (s *Store) CreateUser(ctx context.Context, email, passwordHash, roleID string) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
		INSERT INTO users (email, password_hash, role_id)
		VALUES ($1, $2, $3)
		RETURNING id`,
		email, passwordHash, roleID).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("create user: %w", err)
	}
	return id, nil
}

func (s *Store) PermissionsForRole(ctx context.Context, roleID string) ([]string, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT permission
    FROM role_permissions
    WHERE role_id = $1
    ORDER BY permission
  `, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var perm string
		if err := rows.Scan(&perm); err != nil {
			return nil, err
		}
		out = append(out, perm)
	}
	return out, rows.Err()
}
