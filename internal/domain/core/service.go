package core

import "context"

// Service fronts the employee directory for handlers and for the leave
// workflow, which depends on tenure, gender and the reporting line.
type Service struct {
	store *Store
}

func NewService(store *Store) *Service {
	return &Service{store: store}
}

func (s *Service) EmployeeByID(ctx context.Context, employeeID string) (Employee, error) {
	return s.store.EmployeeByID(ctx, employeeID)
}

func (s *Service) EmployeeIDByUserID(ctx context.Context, userID string) (string, error) {
	return s.store.EmployeeIDByUserID(ctx, userID)
}

func (s *Service) IsManagerOf(ctx context.Context, managerEmployeeID, employeeID string) (bool, error) {
	return s.store.IsManagerOf(ctx, managerEmployeeID, employeeID)
}

func (s *Service) CreateEmployee(ctx context.Context, e Employee) (string, error) {
	return s.store.CreateEmployee(ctx, e)
}

func (s *Service) ListEmployees(ctx context.Context, limit, offset int) ([]Employee, error) {
	return s.store.ListEmployees(ctx, limit, offset)
}

func (s *Service) CreateDepartment(ctx context.Context, name, managerID string) (string, error) {
	return s.store.CreateDepartment(ctx, name, managerID)
}

func (s *Service) ListDepartments(ctx context.Context) ([]Department, error) {
	return s.store.ListDepartments(ctx)
}
