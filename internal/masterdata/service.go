package masterdata

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/mayondo/mwf/internal/shared"
)

// Service implements master data business rules.
type Service struct {
	repo     Repository
	validate *validator.Validate
}

// NewService creates a new master data service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, validate: validator.New()}
}

// ListProducts returns the product catalogue.
func (s *Service) ListProducts(ctx context.Context) ([]Product, error) {
	return s.repo.ListProducts(ctx)
}

// Customer operations
func (s *Service) ListCustomers(ctx context.Context, filters ListFilters) ([]Customer, int, error) {
	filters.Search = strings.TrimSpace(filters.Search)
	return s.repo.ListCustomers(ctx, filters)
}

func (s *Service) GetCustomer(ctx context.Context, id int64) (Customer, error) {
	if id <= 0 {
		return Customer{}, shared.ValidationError{Field: "id", Message: "invalid customer ID"}
	}
	return s.repo.GetCustomer(ctx, id)
}

func (s *Service) CreateCustomer(ctx context.Context, customer Customer) (Customer, error) {
	customer = trimCustomer(customer)
	if err := s.validateContact(customer.Name, customer.Phone, customer.Email, customer.Address); err != nil {
		return Customer{}, err
	}
	created, err := s.repo.CreateCustomer(ctx, customer)
	if err != nil {
		return Customer{}, fmt.Errorf("create customer: %w", err)
	}
	return created, nil
}

func (s *Service) UpdateCustomer(ctx context.Context, id int64, customer Customer) error {
	if id <= 0 {
		return shared.ValidationError{Field: "id", Message: "invalid customer ID"}
	}
	customer = trimCustomer(customer)
	if err := s.validateContact(customer.Name, customer.Phone, customer.Email, customer.Address); err != nil {
		return err
	}
	if err := s.repo.UpdateCustomer(ctx, id, customer); err != nil {
		return fmt.Errorf("update customer: %w", err)
	}
	return nil
}

func (s *Service) DeleteCustomer(ctx context.Context, id int64) error {
	if id <= 0 {
		return shared.ValidationError{Field: "id", Message: "invalid customer ID"}
	}
	return s.repo.DeleteCustomer(ctx, id)
}

// Supplier operations
func (s *Service) ListSuppliers(ctx context.Context, filters ListFilters) ([]Supplier, int, error) {
	filters.Search = strings.TrimSpace(filters.Search)
	return s.repo.ListSuppliers(ctx, filters)
}

func (s *Service) GetSupplier(ctx context.Context, id int64) (Supplier, error) {
	if id <= 0 {
		return Supplier{}, shared.ValidationError{Field: "id", Message: "invalid supplier ID"}
	}
	return s.repo.GetSupplier(ctx, id)
}

func (s *Service) CreateSupplier(ctx context.Context, supplier Supplier) (Supplier, error) {
	supplier = trimSupplier(supplier)
	if err := s.validateSupplier(supplier); err != nil {
		return Supplier{}, err
	}
	created, err := s.repo.CreateSupplier(ctx, supplier)
	if err != nil {
		return Supplier{}, fmt.Errorf("create supplier: %w", err)
	}
	return created, nil
}

func (s *Service) UpdateSupplier(ctx context.Context, id int64, supplier Supplier) error {
	if id <= 0 {
		return shared.ValidationError{Field: "id", Message: "invalid supplier ID"}
	}
	supplier = trimSupplier(supplier)
	if err := s.validateSupplier(supplier); err != nil {
		return err
	}
	if err := s.repo.UpdateSupplier(ctx, id, supplier); err != nil {
		return fmt.Errorf("update supplier: %w", err)
	}
	return nil
}

func (s *Service) DeleteSupplier(ctx context.Context, id int64) error {
	if id <= 0 {
		return shared.ValidationError{Field: "id", Message: "invalid supplier ID"}
	}
	return s.repo.DeleteSupplier(ctx, id)
}

func trimCustomer(c Customer) Customer {
	c.Name = strings.TrimSpace(c.Name)
	c.Phone = strings.TrimSpace(c.Phone)
	c.Email = strings.TrimSpace(c.Email)
	c.Address = strings.TrimSpace(c.Address)
	return c
}

func trimSupplier(s Supplier) Supplier {
	s.Name = strings.TrimSpace(s.Name)
	s.ContactPerson = strings.TrimSpace(s.ContactPerson)
	s.Phone = strings.TrimSpace(s.Phone)
	s.Email = strings.TrimSpace(s.Email)
	s.Address = strings.TrimSpace(s.Address)
	return s
}

func (s *Service) validateContact(name, phone, email, address string) error {
	var errs shared.ValidationErrors
	if name == "" {
		errs.Add("name", "is required")
	} else if len(name) > 100 {
		errs.Add("name", "must be at most 100 characters")
	}
	if phone == "" {
		errs.Add("phone", "is required")
	} else if len(phone) > 15 {
		errs.Add("phone", "must be at most 15 characters")
	}
	if email == "" {
		errs.Add("email", "is required")
	} else if err := s.validate.Var(email, "email"); err != nil {
		errs.Add("email", "must be a valid email address")
	}
	if address == "" {
		errs.Add("address", "is required")
	}
	return errs.Err()
}

func (s *Service) validateSupplier(supplier Supplier) error {
	err := s.validateContact(supplier.Name, supplier.Phone, supplier.Email, supplier.Address)
	if supplier.ContactPerson != "" {
		return err
	}
	var errs shared.ValidationErrors
	if err != nil {
		errs = err.(shared.ValidationErrors)
	}
	errs.Add("contact_person", "is required")
	return errs.Err()
}
