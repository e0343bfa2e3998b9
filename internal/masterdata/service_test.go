package masterdata

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mayondo/mwf/internal/shared"
)

type memoryRepo struct {
	customers map[int64]Customer
	suppliers map[int64]Supplier
	nextID    int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{customers: map[int64]Customer{}, suppliers: map[int64]Supplier{}}
}

func (m *memoryRepo) ListProducts(context.Context) ([]Product, error) { return nil, nil }

func (m *memoryRepo) ListCustomers(context.Context, ListFilters) ([]Customer, int, error) {
	out := make([]Customer, 0, len(m.customers))
	for _, c := range m.customers {
		out = append(out, c)
	}
	return out, len(out), nil
}

func (m *memoryRepo) GetCustomer(_ context.Context, id int64) (Customer, error) {
	c, ok := m.customers[id]
	if !ok {
		return Customer{}, shared.ErrNotFound
	}
	return c, nil
}

func (m *memoryRepo) CreateCustomer(_ context.Context, c Customer) (Customer, error) {
	for _, existing := range m.customers {
		if existing.Name == c.Name {
			return Customer{}, ErrDuplicateName
		}
	}
	m.nextID++
	c.ID = m.nextID
	m.customers[c.ID] = c
	return c, nil
}

func (m *memoryRepo) UpdateCustomer(_ context.Context, id int64, c Customer) error {
	if _, ok := m.customers[id]; !ok {
		return shared.ErrNotFound
	}
	c.ID = id
	m.customers[id] = c
	return nil
}

func (m *memoryRepo) DeleteCustomer(_ context.Context, id int64) error {
	delete(m.customers, id)
	return nil
}

func (m *memoryRepo) ListSuppliers(context.Context, ListFilters) ([]Supplier, int, error) {
	return nil, 0, nil
}

func (m *memoryRepo) GetSupplier(_ context.Context, id int64) (Supplier, error) {
	s, ok := m.suppliers[id]
	if !ok {
		return Supplier{}, shared.ErrNotFound
	}
	return s, nil
}

func (m *memoryRepo) CreateSupplier(_ context.Context, s Supplier) (Supplier, error) {
	m.nextID++
	s.ID = m.nextID
	m.suppliers[s.ID] = s
	return s, nil
}

func (m *memoryRepo) UpdateSupplier(_ context.Context, id int64, s Supplier) error {
	m.suppliers[id] = s
	return nil
}

func (m *memoryRepo) DeleteSupplier(_ context.Context, id int64) error {
	delete(m.suppliers, id)
	return nil
}

func TestCreateCustomerTrimsAndValidates(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()

	created, err := svc.CreateCustomer(ctx, Customer{Name: "  Jane Doe ", Phone: "0772000000", Email: "jane@example.com", Address: "Kampala"})
	require.NoError(t, err)
	require.Equal(t, "Jane Doe", created.Name)

	_, err = svc.CreateCustomer(ctx, Customer{Name: "Jane Doe", Phone: "0772000000", Email: "jane@example.com", Address: "Kampala"})
	require.ErrorIs(t, err, ErrDuplicateName)

	_, err = svc.CreateCustomer(ctx, Customer{Name: "", Phone: "", Email: "not-an-email", Address: ""})
	var fields shared.ValidationErrors
	require.ErrorAs(t, err, &fields)
	got := fields.Fields()
	require.Contains(t, got, "name")
	require.Contains(t, got, "phone")
	require.Equal(t, "must be a valid email address", got["email"])
	require.Contains(t, got, "address")
}

func TestCreateSupplierRequiresContactPerson(t *testing.T) {
	svc := NewService(newMemoryRepo())
	_, err := svc.CreateSupplier(context.Background(), Supplier{Name: "Mbawo Timberworks", Phone: "0700", Email: "sales@mbawo.example", Address: "Mbarara"})
	var fields shared.ValidationErrors
	require.ErrorAs(t, err, &fields)
	require.Equal(t, "is required", fields.Fields()["contact_person"])

	created, err := svc.CreateSupplier(context.Background(), Supplier{Name: "Mbawo Timberworks", ContactPerson: "Okello", Phone: "0700", Email: "sales@mbawo.example", Address: "Mbarara"})
	require.NoError(t, err)
	require.NotZero(t, created.ID)
}

func TestInvalidIDsRejected(t *testing.T) {
	svc := NewService(newMemoryRepo())
	_, err := svc.GetCustomer(context.Background(), 0)
	require.True(t, shared.IsValidation(err))
	require.True(t, shared.IsValidation(svc.DeleteSupplier(context.Background(), -1)))

	_, err = svc.GetCustomer(context.Background(), 42)
	require.ErrorIs(t, err, shared.ErrNotFound)
}
