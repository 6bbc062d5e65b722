package core

import (
	"context"
	"time"

	"hcm/internal/platform/querier"
)

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

const employeeColumns = `
  id, COALESCE(user_id::text, ''), employee_number, first_name, last_name, email,
  gender, COALESCE(department_id::text, ''), COALESCE(manager_id::text, ''),
  start_date, end_date, status, created_at
`

func scanEmployee(row interface{ Scan(dest ...any) error }) (Employee, error) {
	var e Employee
	err := row.Scan(&e.ID, &e.UserID, &e.EmployeeNumber, &e.FirstName, &e.LastName, &e.Email,
		&e.Gender, &e.DepartmentID, &e.ManagerID, &e.StartDate, &e.EndDate, &e.Status, &e.CreatedAt)
	return e, err
}

func (s *Store) EmployeeByID(ctx context.Context, employeeID string) (Employee, error) {
	row := s.DB.QueryRow(ctx, "SELECT "+employeeColumns+" FROM employees WHERE id = $1", employeeID)
	return scanEmployee(row)
}

func (s *Store) EmployeeIDByUserID(ctx context.Context, userID string) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, "SELECT id FROM employees WHERE user_id = $1", userID).Scan(&id)
	return id, err
}

func (s *Store) IsManagerOf(ctx context.Context, managerEmployeeID, employeeID string) (bool, error) {
	var count int
	if err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1)
    FROM employees
    WHERE id = $1 AND manager_id = $2
  `, employeeID, managerEmployeeID).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Store) CreateEmployee(ctx context.Context, e Employee) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO employees (user_id, employee_number, first_name, last_name, email, gender, department_id, manager_id, start_date, status)
    VALUES (NULLIF($1,'')::uuid, $2, $3, $4, $5, $6, NULLIF($7,'')::uuid, NULLIF($8,'')::uuid, $9, $10)
    RETURNING id
  `, e.UserID, e.EmployeeNumber, e.FirstName, e.LastName, e.Email, e.Gender,
		e.DepartmentID, e.ManagerID, e.StartDate, e.Status).Scan(&id)
	return id, err
}

func (s *Store) ListEmployees(ctx context.Context, limit, offset int) ([]Employee, error) {
	rows, err := s.DB.Query(ctx, "SELECT "+employeeColumns+` FROM employees ORDER BY last_name, first_name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) ListActiveEmployees(ctx context.Context) (map[string]*time.Time, error) {
	rows, err := s.DB.Query(ctx, "SELECT id, start_date FROM employees WHERE status = 'active'")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	employees := make(map[string]*time.Time)
	for rows.Next() {
		var id string
		var startDate *time.Time
		if err := rows.Scan(&id, &startDate); err != nil {
			return nil, err
		}
		employees[id] = startDate
	}
	return employees, rows.Err()
}

func (s *Store) CreateDepartment(ctx context.Context, name, managerID string) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO departments (name, manager_id)
    VALUES ($1, NULLIF($2,'')::uuid)
    RETURNING id
  `, name, managerID).Scan(&id)
	return id, err
}

func (s *Store) ListDepartments(ctx context.Context) ([]Department, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, name, COALESCE(manager_id::text, ''), created_at
    FROM departments
    ORDER BY name
  `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Department
	for rows.Next() {
		var d Department
		if err := rows.Scan(&d.ID, &d.Name, &d.ManagerID, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
