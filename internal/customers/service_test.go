package customers

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/labportal/reagent-portal/internal/shared"
)

type mockRepository struct {
	customers map[int64]*Customer
	nextID    int64
	updates   int
	audits    []shared.AuditLog

	// Error injection
	createErr error
	updateErr error
	auditErr  error
}

func newMockRepository() *mockRepository {
	return &mockRepository{customers: make(map[int64]*Customer), nextID: 1}
}

// WithTx restores the previous state when fn fails.
func (m *mockRepository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	customers := make(map[int64]*Customer, len(m.customers))
	for id, c := range m.customers {
		cp := *c
		customers[id] = &cp
	}
	audits := append([]shared.AuditLog(nil), m.audits...)
	nextID := m.nextID
	if err := fn(ctx, m); err != nil {
		m.customers, m.audits, m.nextID = customers, audits, nextID
		return err
	}
	return nil
}

func (m *mockRepository) Create(ctx context.Context, c Customer) (Customer, error) {
	if m.createErr != nil {
		return Customer{}, m.createErr
	}
	for _, existing := range m.customers {
		if existing.Username == c.Username {
			return Customer{}, ErrUsernameTaken
		}
	}
	c.ID = m.nextID
	m.nextID++
	stored := c
	m.customers[c.ID] = &stored
	return c, nil
}

func (m *mockRepository) Get(ctx context.Context, id int64) (*Customer, error) {
	c, ok := m.customers[id]
	if !ok {
		return nil, ErrCustomerNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *mockRepository) List(ctx context.Context, req ListCustomersRequest) ([]Customer, error) {
	out := []Customer{}
	for _, c := range m.customers {
		if !req.IncludeAdmin && c.Username == shared.AdminUsername {
			continue
		}
		if s := strings.ToLower(req.Search); s != "" && !strings.Contains(strings.ToLower(c.Username+" "+c.Name), s) {
			continue
		}
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DisplayName() < out[j].DisplayName() })
	return out, nil
}

func (m *mockRepository) Update(ctx context.Context, id int64, updates map[string]any) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	c, ok := m.customers[id]
	if !ok {
		return ErrCustomerNotFound
	}
	m.updates++
	for k, v := range updates {
		switch k {
		case "username":
			c.Username = v.(string)
		case "name":
			c.Name = v.(string)
		case "type":
			c.Type = Type(v.(string))
		case "phone":
			c.Phone = textValue(v.(pgtype.Text))
		case "email":
			c.Email = textValue(v.(pgtype.Text))
		case "location":
			c.Location = textValue(v.(pgtype.Text))
		case "contract_end_date":
			d := v.(pgtype.Date)
			if d.Valid {
				c.ContractEndDate = &Date{d.Time}
			} else {
				c.ContractEndDate = nil
			}
		case "market_share_percent":
			c.MarketSharePercent = v.(decimal.Decimal)
		}
	}
	return nil
}

func (m *mockRepository) SetPasswordHash(ctx context.Context, id int64, hash string) error {
	c, ok := m.customers[id]
	if !ok {
		return ErrCustomerNotFound
	}
	c.PasswordHash = hash
	return nil
}

func (m *mockRepository) Count(ctx context.Context) (int, error) {
	n := 0
	for _, c := range m.customers {
		if c.Username != shared.AdminUsername {
			n++
		}
	}
	return n, nil
}

func (m *mockRepository) Audit(ctx context.Context, entry shared.AuditLog) error {
	if m.auditErr != nil {
		return m.auditErr
	}
	m.audits = append(m.audits, entry)
	return nil
}

var admin = shared.NewActor(1, shared.AdminUsername)

func textValue(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	s := t.String
	return &s
}

type plainHasher struct{}

func (plainHasher) Hash(password string) (string, error) { return "hashed:" + password, nil }

func ptr(s string) *string { return &s }

func newCustomer(t *testing.T, svc *Service, username string) Customer {
	t.Helper()
	c, err := svc.Create(context.Background(), admin, CreateCustomerRequest{
		Username: username,
		Password: "s3cret-pass",
		Name:     "Lab " + username,
		Type:     TypeTender,
		Phone:    ptr("555-0100"),
	})
	require.NoError(t, err)
	return c
}

func TestCreateHashesPasswordAndDefaultsType(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, plainHasher{})

	c, err := svc.Create(context.Background(), admin, CreateCustomerRequest{
		Username:           "  lab-north ",
		Password:           "long-enough",
		Name:               "North Lab",
		MarketSharePercent: decimal.RequireFromString("12.345"),
	})
	require.NoError(t, err)
	assert.Equal(t, "lab-north", c.Username)
	assert.Equal(t, TypeDirect, c.Type)
	assert.Equal(t, "hashed:long-enough", repo.customers[c.ID].PasswordHash)
	assert.True(t, c.MarketSharePercent.Equal(decimal.RequireFromString("12.35")))
}

func TestCreateValidation(t *testing.T) {
	svc := NewService(newMockRepository(), plainHasher{})
	ctx := context.Background()
	base := CreateCustomerRequest{Username: "lab", Password: "long-enough", Name: "Lab"}

	cases := map[string]func(r *CreateCustomerRequest){
		"short password": func(r *CreateCustomerRequest) { r.Password = "short" },
		"missing name":   func(r *CreateCustomerRequest) { r.Name = " " },
		"bad type":       func(r *CreateCustomerRequest) { r.Type = "Retail" },
		"bad email":      func(r *CreateCustomerRequest) { r.Email = ptr("not-an-email") },
		"share > 100":    func(r *CreateCustomerRequest) { r.MarketSharePercent = decimal.NewFromInt(101) },
		"negative share": func(r *CreateCustomerRequest) { r.MarketSharePercent = decimal.NewFromInt(-1) },
		"reserved admin": func(r *CreateCustomerRequest) { r.Username = "Admin" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			req := base
			mutate(&req)
			_, err := svc.Create(ctx, admin, req)
			assert.ErrorIs(t, err, shared.ErrValidation)
		})
	}
}

func TestCreateDuplicateUsername(t *testing.T) {
	svc := NewService(newMockRepository(), plainHasher{})
	newCustomer(t, svc, "lab-north")

	_, err := svc.Create(context.Background(), admin, CreateCustomerRequest{Username: "lab-north", Password: "long-enough", Name: "Dup"})
	assert.ErrorIs(t, err, shared.ErrAlreadyExists)
}

func TestUpdateWritesOnlySetFields(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, plainHasher{})
	c := newCustomer(t, svc, "lab-north")

	var req UpdateCustomerRequest
	require.NoError(t, json.Unmarshal([]byte(`{"name":"North Lab Renamed","phone":null,"market_share_percent":"40"}`), &req))

	updated, err := svc.Update(context.Background(), admin, c.ID, req)
	require.NoError(t, err)
	assert.Equal(t, "North Lab Renamed", updated.Name)
	assert.Nil(t, updated.Phone)
	assert.Equal(t, TypeTender, updated.Type)
	assert.Equal(t, "lab-north", updated.Username)
	assert.True(t, updated.MarketSharePercent.Equal(decimal.NewFromInt(40)))

	require.Len(t, repo.audits, 2)
	last := repo.audits[1]
	assert.Equal(t, "customer.update", last.Action)
	assert.Equal(t, admin.ID, last.ActorID)
	assert.Equal(t, []string{"market_share_percent", "name", "phone"}, last.Meta["fields"])
}

func TestUpdateRejectsNullForRequiredFields(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, plainHasher{})
	ctx := context.Background()

	var req UpdateCustomerRequest
	require.NoError(t, json.Unmarshal([]byte(`{"market_share_percent":"40"}`), &req))
	c := newCustomer(t, svc, "lab-north")
	_, err := svc.Update(ctx, admin, c.ID, req)
	require.NoError(t, err)

	for _, body := range []string{
		`{"market_share_percent":null}`,
		`{"name":null}`,
		`{"username":null}`,
		`{"type":null}`,
	} {
		var req UpdateCustomerRequest
		require.NoError(t, json.Unmarshal([]byte(body), &req))
		_, err := svc.Update(ctx, admin, c.ID, req)
		assert.ErrorIs(t, err, shared.ErrValidation, body)
	}

	got, err := svc.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, got.MarketSharePercent.Equal(decimal.NewFromInt(40)), "share must survive a null patch")
}

func TestMutationsRollBackWhenAuditFails(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, plainHasher{})
	ctx := context.Background()
	c := newCustomer(t, svc, "lab-north")
	repo.auditErr = errors.New("audit insert failed")

	_, err := svc.Create(ctx, admin, CreateCustomerRequest{Username: "lab-south", Password: "long-enough", Name: "South"})
	require.Error(t, err)
	n, _ := svc.Count(ctx)
	assert.Equal(t, 1, n, "customer must not persist without its audit entry")

	_, err = svc.Update(ctx, admin, c.ID, UpdateCustomerRequest{Name: shared.Some("Renamed")})
	require.Error(t, err)
	got, err := svc.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Lab lab-north", got.Name)

	require.Error(t, svc.ResetPassword(ctx, admin, c.ID, ResetPasswordRequest{Password: "brand-new-pass"}))
	assert.Equal(t, "hashed:s3cret-pass", repo.customers[c.ID].PasswordHash)
}

func TestUpdateWithNothingSetIsNoop(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, plainHasher{})
	c := newCustomer(t, svc, "lab-north")

	got, err := svc.Update(context.Background(), admin, c.ID, UpdateCustomerRequest{})
	require.NoError(t, err)
	assert.Equal(t, c.Name, got.Name)
	assert.Zero(t, repo.updates)
}

func TestUpdateSetsContractEndDate(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, plainHasher{})
	c := newCustomer(t, svc, "lab-north")

	var req UpdateCustomerRequest
	require.NoError(t, json.Unmarshal([]byte(`{"contract_end_date":"2027-03-31"}`), &req))
	updated, err := svc.Update(context.Background(), admin, c.ID, req)
	require.NoError(t, err)
	require.NotNil(t, updated.ContractEndDate)
	assert.Equal(t, "2027-03-31", updated.ContractEndDate.String())

	require.NoError(t, json.Unmarshal([]byte(`{"contract_end_date":null}`), &req))
	updated, err = svc.Update(context.Background(), admin, c.ID, req)
	require.NoError(t, err)
	assert.Nil(t, updated.ContractEndDate)
}

func TestUpdateRejectsAdminRename(t *testing.T) {
	repo := newMockRepository()
	repo.customers[99] = &Customer{ID: 99, Username: shared.AdminUsername, Name: "Administrator", Type: TypeDirect}
	svc := NewService(repo, plainHasher{})
	c := newCustomer(t, svc, "lab-north")
	ctx := context.Background()

	_, err := svc.Update(ctx, admin, c.ID, UpdateCustomerRequest{Username: shared.Some(shared.AdminUsername)})
	assert.ErrorIs(t, err, ErrReservedUsername)

	_, err = svc.Update(ctx, admin, 99, UpdateCustomerRequest{Username: shared.Some("root")})
	assert.ErrorIs(t, err, ErrReservedUsername)

	_, err = svc.Update(ctx, admin, 99, UpdateCustomerRequest{Name: shared.Some("Portal Admin")})
	assert.NoError(t, err)
}

func TestUpdateUnknownCustomer(t *testing.T) {
	svc := NewService(newMockRepository(), plainHasher{})
	_, err := svc.Update(context.Background(), admin, 42, UpdateCustomerRequest{Name: shared.Some("x")})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestUpdateWrapsStorageErrors(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, plainHasher{})
	c := newCustomer(t, svc, "lab-north")
	repo.updateErr = errors.New("connection reset")

	_, err := svc.Update(context.Background(), admin, c.ID, UpdateCustomerRequest{Name: shared.Some("x")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "update customer")
}

func TestResetPassword(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, plainHasher{})
	c := newCustomer(t, svc, "lab-north")
	ctx := context.Background()

	assert.ErrorIs(t, svc.ResetPassword(ctx, admin, c.ID, ResetPasswordRequest{Password: "short"}), shared.ErrValidation)
	require.NoError(t, svc.ResetPassword(ctx, admin, c.ID, ResetPasswordRequest{Password: "brand-new-pass"}))
	assert.Equal(t, "hashed:brand-new-pass", repo.customers[c.ID].PasswordHash)
	assert.Equal(t, "customer.password_reset", repo.audits[len(repo.audits)-1].Action)
	assert.ErrorIs(t, svc.ResetPassword(ctx, admin, 404, ResetPasswordRequest{Password: "brand-new-pass"}), shared.ErrNotFound)
}

func TestListExcludesAdminByDefault(t *testing.T) {
	repo := newMockRepository()
	repo.customers[99] = &Customer{ID: 99, Username: shared.AdminUsername, Name: "Administrator"}
	repo.nextID = 1
	svc := NewService(repo, plainHasher{})
	newCustomer(t, svc, "lab-south")
	newCustomer(t, svc, "lab-north")

	out, err := svc.List(context.Background(), ListCustomersRequest{})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "lab-north", out[0].Username)

	out, err = svc.List(context.Background(), ListCustomersRequest{IncludeAdmin: true})
	require.NoError(t, err)
	assert.Len(t, out, 3)

	n, err := svc.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
