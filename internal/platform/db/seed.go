package db

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"hcm/internal/domain/auth"
	"hcm/internal/platform/config"
)

// Seed makes a fresh database usable: roles with their permission
// grants, the bootstrap admin account, and a starter set of leave
// types with an active yearly policy each. Every step is idempotent.
func Seed(ctx context.Context, pool *pgxpool.Pool, cfg config.Config) error {
	roleIDs, err := ensureRoles(ctx, pool)
	if err != nil {
		return err
	}
	if err := ensureRolePermissions(ctx, pool, roleIDs); err != nil {
		return err
	}
	if err := ensureAdminUser(ctx, pool, roleIDs[auth.RoleHR], cfg.SeedAdminEmail, cfg.SeedAdminPassword); err != nil {
		return err
	}
	return ensureLeaveTypes(ctx, pool)
}

func ensureRoles(ctx context.Context, pool *pgxpool.Pool) (map[string]string, error) {
	roleIDs := map[string]string{}
	for roleName := range auth.RolePermissions {
		var id string
		err := pool.QueryRow(ctx, `
			INSERT INTO roles (name) VALUES ($1)
			ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
			RETURNING id`, roleName).Scan(&id)
		if err != nil {
			return nil, err
		}
		roleIDs[roleName] = id
	}
	return roleIDs, nil
}

func ensureRolePermissions(ctx context.Context, pool *pgxpool.Pool, roleIDs map[string]string) error {
	for roleName, perms := range auth.RolePermissions {
		roleID := roleIDs[roleName]
		for _, perm := range perms {
			_, err := pool.Exec(ctx, `
				INSERT INTO role_permissions (role_id, permission)
				VALUES ($1, $2)
				ON CONFLICT DO NOTHING`, roleID, perm)
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func ensureAdminUser(ctx context.Context, pool *pgxpool.Pool, roleID, email, password string) error {
	if strings.TrimSpace(email) == "" || strings.TrimSpace(password) == "" {
		return nil
	}

	var id string
	err := pool.QueryRow(ctx, `SELECT id FROM users WHERE email = $1`, email).Scan(&id)
	if err == nil {
		return nil
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	return pool.QueryRow(ctx, `
		INSERT INTO users (email, password_hash, role_id)
		VALUES ($1, $2, $3)
		RETURNING id`, email, hash, roleID).Scan(&id)
}

func ensureLeaveTypes(ctx context.Context, pool *pgxpool.Pool) error {
	starters := []struct {
		name       string
		code       string
		allocation float64
		maxRun     int
		carry      bool
		carryCap   float64
		encash     bool
		gender     string
		months     int
		color      string
	}{
		{"Annual Leave", "AL", 20, 15, true, 5, true, "all", 0, "#2e7d32"},
		{"Sick Leave", "SL", 10, 7, false, 0, false, "all", 0, "#c62828"},
		{"Casual Leave", "CL", 7, 3, false, 0, false, "all", 0, "#1565c0"},
		{"Maternity Leave", "ML", 90, 90, false, 0, false, "female", 6, "#ad1457"},
		{"Paternity Leave", "PL", 10, 10, false, 0, false, "male", 6, "#4527a0"},
	}

	for _, lt := range starters {
		var id string
		err := pool.QueryRow(ctx, `
			INSERT INTO leave_types
				(name, code, annual_allocation, max_consecutive_days, carry_forward_allowed,
				 carry_forward_cap, encashment_allowed, eligibility_months, applicable_gender, color)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name
			RETURNING id`,
			lt.name, lt.code, lt.allocation, lt.maxRun, lt.carry,
			lt.carryCap, lt.encash, lt.months, lt.gender, lt.color).Scan(&id)
		if err != nil {
			return err
		}

		_, err = pool.Exec(ctx, `
			INSERT INTO leave_policies (leave_type_id, accrual_period, accrual_anchor, active)
			SELECT $1, 'yearly', 'calendar_year', true
			WHERE NOT EXISTS (
				SELECT 1 FROM leave_policies WHERE leave_type_id = $1 AND department_id IS NULL
			)`, id)
		if err != nil {
			return err
		}
	}
	return nil
}
