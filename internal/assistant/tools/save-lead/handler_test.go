package savelead

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	apperrors "crm-assistant/internal/common/errors"
	"crm-assistant/internal/common/logger"
	"crm-assistant/internal/common/validation"
	"crm-assistant/internal/models"
	"crm-assistant/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ==========================
// Mocks
// ==========================

type MockResolver struct {
	mock.Mock
}

func (m *MockResolver) Resolve(ctx context.Context, id models.Identity) (string, error) {
	args := m.Called(ctx, id)
	return args.String(0), args.Error(1)
}

type MockStore struct {
	mock.Mock
}

func (m *MockStore) InsertCompany(ctx context.Context, c *models.Company) error {
	args := m.Called(ctx, c)
	if args.Error(0) == nil {
		c.ID = "c-1"
	}
	return args.Error(0)
}

func (m *MockStore) InsertPeople(ctx context.Context, people []models.Person) (int, error) {
	args := m.Called(ctx, people)
	return args.Int(0), args.Error(1)
}

type recordingRevalidator struct {
	paths []string
}

func (r *recordingRevalidator) Revalidate(_ context.Context, paths ...string) {
	r.paths = append(r.paths, paths...)
}

type MockIndex struct {
	mock.Mock
}

func (m *MockIndex) IndexCompany(ctx context.Context, c models.Company) error {
	return m.Called(ctx, c).Error(0)
}

func (m *MockIndex) SearchCompanies(ctx context.Context, scope store.Scope, query string, size int) ([]models.Company, error) {
	args := m.Called(ctx, scope, query, size)
	return nil, args.Error(1)
}

var caller = models.Identity{Subject: "user_abc", Email: "jane@acme.io"}

type fixture struct {
	resolver *MockResolver
	store    *MockStore
	reval    *recordingRevalidator
	index    *MockIndex
	handler  *Handler
}

func newFixture(t *testing.T) *fixture {
	f := &fixture{
		resolver: &MockResolver{},
		store:    &MockStore{},
		reval:    &recordingRevalidator{},
		index:    &MockIndex{},
	}
	f.handler = NewHandler(ServiceDependencies{
		Owners:      f.resolver,
		Store:       f.store,
		Revalidator: f.reval,
		Index:       f.index,
		Logger:      logger.NewTestLogger(t),
	})
	return f
}

func decode(t *testing.T, raw string) Output {
	t.Helper()
	var out Output
	require.NoError(t, json.Unmarshal([]byte(raw), &out), raw)
	return out
}

// ==========================
// Tests
// ==========================

func TestExecute_SavesCompanyAndContacts(t *testing.T) {
	f := newFixture(t)
	f.resolver.On("Resolve", mock.Anything, caller).Return("owner-1", nil)
	f.store.On("InsertCompany", mock.Anything, mock.MatchedBy(func(c *models.Company) bool {
		return c.Name == "Acme Robotics" && c.Status == models.CompanyStatusLead && c.OwnerID == "owner-1"
	})).Return(nil)
	f.store.On("InsertPeople", mock.Anything, mock.MatchedBy(func(p []models.Person) bool {
		return len(p) == 2 &&
			p[0].FirstName == "Jane" && p[0].LastName == "Doe" &&
			p[1].FirstName == "Juan" && p[1].LastName == "Carlos de la Vega" &&
			p[0].CompanyID == "c-1" && p[1].OwnerID == "owner-1"
	})).Return(2, nil)
	f.index.On("IndexCompany", mock.Anything, mock.Anything).Return(nil)

	args := `{"companyName":"  Acme Robotics ","industry":"Robotics","contacts":[
		{"name":"Jane Doe","title":"CEO","email":"jane@acme.io"},
		{"name":"Juan Carlos de la Vega","title":"CTO"},
		{"name":"   "}
	]}`
	raw, err := f.handler.Execute(context.Background(), caller, json.RawMessage(args))
	require.NoError(t, err)

	out := decode(t, raw)
	assert.Equal(t, "Successfully saved Acme Robotics to CRM with 2 contacts.", out.Message)
	assert.Equal(t, 2, out.ContactsSaved)
	assert.Equal(t, "c-1", out.NewCompany.ID)
	assert.Equal(t, "Robotics", out.NewCompany.Industry)
	assert.Equal(t, []string{"/companies", "/companies/c-1", "/dashboard", "/people"}, f.reval.paths)

	f.store.AssertExpectations(t)
	f.index.AssertExpectations(t)
}

func TestExecute_NoContacts(t *testing.T) {
	f := newFixture(t)
	f.resolver.On("Resolve", mock.Anything, caller).Return("owner-1", nil)
	f.store.On("InsertCompany", mock.Anything, mock.Anything).Return(nil)
	f.index.On("IndexCompany", mock.Anything, mock.Anything).Return(errors.New("index down"))

	raw, err := f.handler.Execute(context.Background(), caller, json.RawMessage(`{"companyName":"Globex"}`))
	require.NoError(t, err)

	out := decode(t, raw)
	assert.Equal(t, "Successfully saved Globex to CRM. No contacts found - you can add them manually later.", out.Message)
	assert.Zero(t, out.ContactsSaved)
	assert.Equal(t, []string{"/companies", "/companies/c-1", "/dashboard"}, f.reval.paths)
	f.store.AssertNotCalled(t, "InsertPeople", mock.Anything, mock.Anything)
}

func TestExecute_ContactsFailureKeepsCompany(t *testing.T) {
	f := newFixture(t)
	f.resolver.On("Resolve", mock.Anything, caller).Return("owner-1", nil)
	f.store.On("InsertCompany", mock.Anything, mock.Anything).Return(nil)
	f.store.On("InsertPeople", mock.Anything, mock.Anything).Return(0, errors.New("insert people: value too long"))
	f.index.On("IndexCompany", mock.Anything, mock.Anything).Return(nil)

	raw, err := f.handler.Execute(context.Background(), caller,
		json.RawMessage(`{"companyName":"Acme","contacts":[{"name":"Jane Doe"}]}`))
	require.NoError(t, err)

	out := decode(t, raw)
	assert.Equal(t, "Successfully saved Acme to CRM, but contacts could not be saved: insert people: value too long. You can add them manually later.", out.Message)
	assert.Zero(t, out.ContactsSaved)
	assert.Equal(t, "c-1", out.NewCompany.ID)
	assert.NotContains(t, f.reval.paths, "/people")
}

func TestExecute_FailuresAreReturnedAsText(t *testing.T) {
	t.Run("owner resolution", func(t *testing.T) {
		f := newFixture(t)
		f.resolver.On("Resolve", mock.Anything, caller).Return("", apperrors.NewUnauthenticatedError())

		raw, err := f.handler.Execute(context.Background(), caller, json.RawMessage(`{"companyName":"Acme"}`))
		require.NoError(t, err)
		assert.Equal(t, "Error saving lead: Unauthorized", raw)
		f.store.AssertNotCalled(t, "InsertCompany", mock.Anything, mock.Anything)
		assert.Empty(t, f.reval.paths)
	})

	t.Run("company insert", func(t *testing.T) {
		f := newFixture(t)
		f.resolver.On("Resolve", mock.Anything, caller).Return("owner-1", nil)
		f.store.On("InsertCompany", mock.Anything, mock.Anything).Return(errors.New("insert company: connection reset"))

		raw, err := f.handler.Execute(context.Background(), caller, json.RawMessage(`{"companyName":"Acme"}`))
		require.NoError(t, err)
		assert.Equal(t, "Error saving lead: Failed to insert record: insert company: connection reset", raw)
		assert.Empty(t, f.reval.paths)
		f.index.AssertNotCalled(t, "IndexCompany", mock.Anything, mock.Anything)
	})

	t.Run("blank company name", func(t *testing.T) {
		f := newFixture(t)
		raw, err := f.handler.Execute(context.Background(), caller, json.RawMessage(`{"companyName":"   "}`))
		require.NoError(t, err)
		assert.Equal(t, "Error saving lead: companyName is required", raw)
		f.resolver.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything)
	})

	t.Run("malformed arguments", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.handler.Execute(context.Background(), caller, json.RawMessage(`{"companyName":`))
		assert.Error(t, err)
	})
}

func TestExecute_EveryCallInserts(t *testing.T) {
	f := newFixture(t)
	f.resolver.On("Resolve", mock.Anything, caller).Return("owner-1", nil)
	f.store.On("InsertCompany", mock.Anything, mock.Anything).Return(nil)
	f.index.On("IndexCompany", mock.Anything, mock.Anything).Return(nil)

	for i := 0; i < 2; i++ {
		_, err := f.handler.Execute(context.Background(), caller, json.RawMessage(`{"companyName":"Acme"}`))
		require.NoError(t, err)
	}
	f.store.AssertNumberOfCalls(t, "InsertCompany", 2)
}

func TestBuildPeople(t *testing.T) {
	people := BuildPeople([]Contact{
		{Name: "Cher"},
		{Name: " Mary  Ann   Smith ", Title: " VP of Sales ", Email: " mary@acme.io "},
		{Name: ""},
	}, "c-9", "owner-2")

	require.Len(t, people, 2)
	assert.Equal(t, "Cher", people[0].FirstName)
	assert.Empty(t, people[0].LastName)
	assert.Equal(t, "Mary", people[1].FirstName)
	assert.Equal(t, "Ann Smith", people[1].LastName)
	assert.Equal(t, "VP of Sales", people[1].Title)
	assert.Equal(t, "mary@acme.io", people[1].Email)
	assert.Equal(t, "c-9", people[1].CompanyID)
}

func TestInputSchema(t *testing.T) {
	h := NewHandler(ServiceDependencies{Logger: logger.NewNoOpLogger()})
	assert.Equal(t, ToolName, h.Name())

	ok := validation.ValidateJSON([]byte(`{"companyName":"Acme","contacts":[{"name":"Jane"}]}`), h.Parameters())
	assert.True(t, ok.Valid)

	missing := validation.ValidateJSON([]byte(`{"industry":"Robotics"}`), h.Parameters())
	assert.True(t, missing.HasErrors("companyName"))

	contactWithoutName := validation.ValidateJSON([]byte(`{"companyName":"Acme","contacts":[{"title":"CEO"}]}`), h.Parameters())
	assert.False(t, contactWithoutName.Valid)
}
