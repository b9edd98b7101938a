package crm

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	apperrors "crm-assistant/internal/common/errors"
	"crm-assistant/internal/common/logger"
	"crm-assistant/internal/models"
	"crm-assistant/internal/searchindex"
	"crm-assistant/internal/store"
	"crm-assistant/internal/store/storetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	alice = models.Identity{Subject: "user_alice"}
	bob   = models.Identity{Subject: "user_bob"}
)

type stubOwners struct{}

func (stubOwners) Resolve(_ context.Context, id models.Identity) (string, error) {
	if id.Subject == "" {
		return "", apperrors.NewUnauthenticatedError()
	}
	return "owner-" + id.Subject, nil
}

type recordingRevalidator struct {
	mu    sync.Mutex
	paths []string
}

func (r *recordingRevalidator) Revalidate(_ context.Context, paths ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, paths...)
}

func (r *recordingRevalidator) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = nil
}

type MockIndex struct {
	mock.Mock
}

func (m *MockIndex) IndexCompany(ctx context.Context, c models.Company) error {
	return m.Called(ctx, c).Error(0)
}

func (m *MockIndex) SearchCompanies(ctx context.Context, scope store.Scope, q string, size int) ([]models.Company, error) {
	args := m.Called(ctx, scope, q, size)
	if v := args.Get(0); v != nil {
		return v.([]models.Company), args.Error(1)
	}
	return nil, args.Error(1)
}

type fixture struct {
	svc   *Service
	store *storetest.MemoryStore
	reval *recordingRevalidator
}

func newFixture(t *testing.T, shared bool, index searchindex.CompanyIndex) *fixture {
	t.Helper()
	f := &fixture{store: storetest.New(), reval: &recordingRevalidator{}}
	f.svc = NewService(Dependencies{
		Store:       f.store,
		Owners:      stubOwners{},
		Index:       index,
		Revalidator: f.reval,
		Shared:      shared,
		Logger:      logger.NewTestLogger(t),
	})
	return f
}

func (f *fixture) company(t *testing.T, caller models.Identity, name string) *models.Company {
	t.Helper()
	c, err := f.svc.CreateCompany(context.Background(), caller, CompanyInput{Name: name})
	require.NoError(t, err)
	return c
}

func (f *fixture) deal(t *testing.T, caller models.Identity, companyID, stage string, value float64) *models.Deal {
	t.Helper()
	d, err := f.svc.CreateDeal(context.Background(), caller, DealInput{
		Name: "Pilot " + stage, Value: value, Stage: stage, ClosesAt: "2026-03-01", CompanyID: companyID,
	})
	require.NoError(t, err)
	return d
}

func fieldsOf(t *testing.T, err error) map[string]string {
	t.Helper()
	var stdErr *apperrors.StandardError
	require.True(t, errors.As(err, &stdErr), "expected StandardError, got %v", err)
	require.Equal(t, apperrors.ErrCodeValidationFailed, stdErr.Code)
	return stdErr.Metadata["fields"].(map[string]string)
}

func TestCreateCompany(t *testing.T) {
	idx := &MockIndex{}
	idx.On("IndexCompany", mock.Anything, mock.MatchedBy(func(c models.Company) bool {
		return c.Name == "Acme Robotics"
	})).Return(nil).Once()
	f := newFixture(t, false, idx)

	c, err := f.svc.CreateCompany(context.Background(), alice, CompanyInput{Name: "  Acme Robotics ", Industry: "Robotics"})
	require.NoError(t, err)

	assert.NotEmpty(t, c.ID)
	assert.Equal(t, "Acme Robotics", c.Name)
	assert.Equal(t, models.CompanyStatusLead, c.Status)
	assert.Equal(t, "owner-user_alice", c.OwnerID)
	assert.Equal(t, []string{"/companies"}, f.reval.paths)
	idx.AssertExpectations(t)
}

func TestCreateCompany_IndexFailureIsIgnored(t *testing.T) {
	idx := &MockIndex{}
	idx.On("IndexCompany", mock.Anything, mock.Anything).Return(errors.New("cluster red"))
	f := newFixture(t, false, idx)

	_, err := f.svc.CreateCompany(context.Background(), alice, CompanyInput{Name: "Acme"})
	assert.NoError(t, err)
}

func TestCreateCompany_Errors(t *testing.T) {
	t.Run("name too short", func(t *testing.T) {
		f := newFixture(t, false, nil)
		_, err := f.svc.CreateCompany(context.Background(), alice, CompanyInput{Name: " A "})
		assert.Contains(t, fieldsOf(t, err), "name")
		assert.Empty(t, f.store.Companies)
	})

	t.Run("unauthenticated", func(t *testing.T) {
		f := newFixture(t, false, nil)
		_, err := f.svc.CreateCompany(context.Background(), models.Identity{}, CompanyInput{Name: "Acme"})
		assert.True(t, apperrors.Is(err, apperrors.ErrCodeUnauthenticated))
	})

	t.Run("insert failure", func(t *testing.T) {
		f := newFixture(t, false, nil)
		f.store.Fail["InsertCompany"] = errors.New("connection reset")
		_, err := f.svc.CreateCompany(context.Background(), alice, CompanyInput{Name: "Acme"})
		assert.True(t, apperrors.Is(err, apperrors.ErrCodeDatabaseInsertFailed))
		assert.Empty(t, f.reval.paths)
	})
}

func TestTenancy(t *testing.T) {
	tests := []struct {
		name      string
		shared    bool
		wantCount int
	}{
		{name: "strict shows own rows", shared: false, wantCount: 1},
		{name: "shared shows every row", shared: true, wantCount: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.shared, nil)
			f.company(t, alice, "Acme")
			bobs := f.company(t, bob, "Globex")

			companies, err := f.svc.ListCompanies(context.Background(), alice)
			require.NoError(t, err)
			assert.Len(t, companies, tt.wantCount)

			_, err = f.svc.GetCompany(context.Background(), alice, bobs.ID)
			if tt.shared {
				assert.NoError(t, err)
			} else {
				assert.True(t, apperrors.Is(err, apperrors.ErrCodeNotFound))
			}
		})
	}
}

func TestGetCompany_Details(t *testing.T) {
	f := newFixture(t, false, nil)
	c := f.company(t, alice, "Acme")
	f.deal(t, alice, c.ID, models.StageProposal, 500)
	_, err := f.svc.CreatePerson(context.Background(), alice, PersonInput{FirstName: "Jane", CompanyID: c.ID})
	require.NoError(t, err)
	_, err = f.svc.CreateEvent(context.Background(), alice, EventInput{Type: models.EventCall, Date: "2026-01-10", CompanyID: c.ID})
	require.NoError(t, err)

	details, err := f.svc.GetCompany(context.Background(), alice, c.ID)
	require.NoError(t, err)
	assert.Len(t, details.People, 1)
	assert.Len(t, details.Deals, 1)
	assert.Len(t, details.Events, 1)

	_, err = f.svc.GetCompany(context.Background(), alice, "missing")
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeNotFound))
}

func TestPeople(t *testing.T) {
	f := newFixture(t, false, nil)
	c := f.company(t, alice, "Acme")
	f.reval.reset()

	p, err := f.svc.CreatePerson(context.Background(), alice, PersonInput{FirstName: "Jane", LastName: "Doe", Email: "jane@acme.io"})
	require.NoError(t, err)
	assert.Equal(t, []string{"/people"}, f.reval.paths)

	t.Run("bad email", func(t *testing.T) {
		_, err := f.svc.CreatePerson(context.Background(), alice, PersonInput{FirstName: "Jane", Email: "not-an-email"})
		assert.Contains(t, fieldsOf(t, err), "email")
	})

	t.Run("first name required", func(t *testing.T) {
		_, err := f.svc.CreatePerson(context.Background(), alice, PersonInput{FirstName: "  "})
		assert.Contains(t, fieldsOf(t, err), "firstName")
	})

	t.Run("update", func(t *testing.T) {
		f.reval.reset()
		updated, err := f.svc.UpdatePerson(context.Background(), alice, p.ID, PersonInput{FirstName: "Janet", CompanyID: c.ID})
		require.NoError(t, err)
		assert.Equal(t, "Janet", updated.FirstName)
		assert.Equal(t, []string{"/people", "/companies/" + c.ID}, f.reval.paths)
	})

	t.Run("update by another owner", func(t *testing.T) {
		_, err := f.svc.UpdatePerson(context.Background(), bob, p.ID, PersonInput{FirstName: "Mallory"})
		assert.True(t, apperrors.Is(err, apperrors.ErrCodeNotFound))
	})

	people, err := f.svc.ListPeople(context.Background(), alice)
	require.NoError(t, err)
	assert.Len(t, people, 1)
}

func TestCreateDeal(t *testing.T) {
	f := newFixture(t, false, nil)
	c := f.company(t, alice, "Acme")
	f.reval.reset()

	d := f.deal(t, alice, c.ID, models.StageDiscovery, 1200)
	assert.Equal(t, "owner-user_alice", d.OwnerID)
	assert.Equal(t, []string{"/deals", "/dashboard"}, f.reval.paths)

	_, err := f.svc.CreateDeal(context.Background(), alice, DealInput{
		Name: "P", Value: -5, Stage: "Closed", ClosesAt: "soon", CompanyID: "acme",
	})
	fields := fieldsOf(t, err)
	for _, field := range []string{"name", "value", "stage", "closesAt", "companyId"} {
		assert.Contains(t, fields, field)
	}

	deals, err := f.svc.ListDeals(context.Background(), alice)
	require.NoError(t, err)
	require.Len(t, deals, 1)
	assert.Equal(t, "Acme", deals[0].CompanyName)
}

func TestUpdateDeal(t *testing.T) {
	f := newFixture(t, true, nil)
	c := f.company(t, alice, "Acme")
	d := f.deal(t, alice, c.ID, models.StageDiscovery, 100)

	in := DealInput{Name: "Expanded pilot", Value: 900, Stage: models.StageProposal, ClosesAt: "2026-06-30", CompanyID: c.ID}
	updated, err := f.svc.UpdateDeal(context.Background(), alice, d.ID, in)
	require.NoError(t, err)
	assert.Equal(t, 900.0, updated.Value)

	// Shared reads never loosen writes.
	_, err = f.svc.UpdateDeal(context.Background(), bob, d.ID, in)
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeNotFound))
}

func TestUpdateDealStage(t *testing.T) {
	t.Run("moves deal and company", func(t *testing.T) {
		f := newFixture(t, false, nil)
		c := f.company(t, alice, "Acme")
		d := f.deal(t, alice, c.ID, models.StageDiscovery, 100)
		f.reval.reset()

		moved, err := f.svc.UpdateDealStage(context.Background(), alice, d.ID, models.StageNegotiation)
		require.NoError(t, err)
		assert.Equal(t, models.StageNegotiation, moved.Stage)
		assert.Equal(t, models.StageNegotiation, f.store.Deals[d.ID].Stage)
		assert.Equal(t, models.StageNegotiation, f.store.Companies[c.ID].Status)
		assert.Equal(t, []string{"/deals", "/dashboard", "/companies", "/companies/" + c.ID}, f.reval.paths)
	})

	t.Run("other owner is forbidden even when shared", func(t *testing.T) {
		f := newFixture(t, true, nil)
		c := f.company(t, alice, "Acme")
		d := f.deal(t, alice, c.ID, models.StageDiscovery, 100)

		_, err := f.svc.UpdateDealStage(context.Background(), bob, d.ID, models.StageWon)
		assert.True(t, apperrors.Is(err, apperrors.ErrCodeForbidden))
		assert.Equal(t, models.StageDiscovery, f.store.Deals[d.ID].Stage)
	})

	t.Run("unknown stage", func(t *testing.T) {
		f := newFixture(t, false, nil)
		_, err := f.svc.UpdateDealStage(context.Background(), alice, "d-1", "Closed")
		assert.Contains(t, fieldsOf(t, err), "stage")
	})

	t.Run("missing deal", func(t *testing.T) {
		f := newFixture(t, false, nil)
		_, err := f.svc.UpdateDealStage(context.Background(), alice, "d-404", models.StageWon)
		assert.True(t, apperrors.Is(err, apperrors.ErrCodeNotFound))
	})

	t.Run("deal without company skips the detail view", func(t *testing.T) {
		f := newFixture(t, false, nil)
		d := &models.Deal{Name: "Orphan", Stage: models.StageDiscovery, OwnerID: "owner-" + alice.Subject}
		require.NoError(t, f.store.InsertDeal(context.Background(), d))

		_, err := f.svc.UpdateDealStage(context.Background(), alice, d.ID, models.StageProposal)
		require.NoError(t, err)
		assert.Equal(t, []string{"/deals", "/dashboard", "/companies"}, f.reval.paths)
		assert.NotContains(t, f.reval.paths, "/companies/")
	})

	t.Run("company status failure does not fail the move", func(t *testing.T) {
		f := newFixture(t, false, nil)
		c := f.company(t, alice, "Acme")
		d := f.deal(t, alice, c.ID, models.StageDiscovery, 100)
		f.store.Fail["UpdateCompanyStatus"] = errors.New("deadlock detected")

		_, err := f.svc.UpdateDealStage(context.Background(), alice, d.ID, models.StageWon)
		require.NoError(t, err)
		assert.Equal(t, models.StageWon, f.store.Deals[d.ID].Stage)
		assert.Equal(t, models.CompanyStatusLead, f.store.Companies[c.ID].Status)
	})
}

func TestCreateEvent(t *testing.T) {
	f := newFixture(t, false, nil)
	c := f.company(t, alice, "Acme")
	f.reval.reset()

	e, err := f.svc.CreateEvent(context.Background(), alice, EventInput{Type: models.EventNote, Notes: "Intro call went well", Date: "2026-02-01", CompanyID: c.ID})
	require.NoError(t, err)
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, []string{"/companies/" + c.ID}, f.reval.paths)

	_, err = f.svc.CreateEvent(context.Background(), alice, EventInput{Type: "Meeting", Date: "tomorrow", CompanyID: c.ID})
	fields := fieldsOf(t, err)
	assert.Contains(t, fields, "type")
	assert.Contains(t, fields, "date")
}

func TestSequences(t *testing.T) {
	f := newFixture(t, false, nil)
	ctx := context.Background()

	seq, err := f.svc.CreateSequence(ctx, alice, SequenceInput{Name: "Onboarding"})
	require.NoError(t, err)
	f.reval.reset()

	email, err := f.svc.SaveSequenceEmail(ctx, alice, seq.ID, SequenceEmailInput{
		Day: 0, Subject: "Welcome", Content: json.RawMessage(`{"type":"doc"}`),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, email.ID)
	assert.Equal(t, []string{"/sequences/" + seq.ID}, f.reval.paths)

	_, err = f.svc.SaveSequenceEmail(ctx, alice, seq.ID, SequenceEmailInput{ID: email.ID, Day: 3, Subject: "Checking in"})
	require.NoError(t, err)

	details, err := f.svc.GetSequence(ctx, alice, seq.ID)
	require.NoError(t, err)
	require.Len(t, details.Emails, 1)
	assert.Equal(t, "Checking in", details.Emails[0].Subject)
	assert.Equal(t, 3, details.Emails[0].Day)

	t.Run("negative day", func(t *testing.T) {
		_, err := f.svc.SaveSequenceEmail(ctx, alice, seq.ID, SequenceEmailInput{Day: -1, Subject: "x"})
		assert.Contains(t, fieldsOf(t, err), "day")
	})

	t.Run("another owner's sequence", func(t *testing.T) {
		_, err := f.svc.SaveSequenceEmail(ctx, bob, seq.ID, SequenceEmailInput{Day: 1, Subject: "Hijack"})
		assert.True(t, apperrors.Is(err, apperrors.ErrCodeNotFound))
		assert.True(t, apperrors.Is(f.svc.DeleteSequenceEmail(ctx, bob, seq.ID, email.ID), apperrors.ErrCodeNotFound))
	})

	require.NoError(t, f.svc.DeleteSequenceEmail(ctx, alice, seq.ID, email.ID))
	assert.Empty(t, f.store.Emails)

	sequences, err := f.svc.ListSequences(ctx, alice)
	require.NoError(t, err)
	require.Len(t, sequences, 1)
	assert.Zero(t, sequences[0].EmailCount)
}

func TestSearchCompanies(t *testing.T) {
	t.Run("index disabled", func(t *testing.T) {
		f := newFixture(t, false, nil)
		_, err := f.svc.SearchCompanies(context.Background(), alice, "acme", 0)
		assert.True(t, apperrors.Is(err, apperrors.ErrCodeSearchIndexUnavailable))
		assert.False(t, f.svc.SearchEnabled())
	})

	t.Run("empty query", func(t *testing.T) {
		f := newFixture(t, false, &MockIndex{})
		_, err := f.svc.SearchCompanies(context.Background(), alice, "  ", 0)
		assert.Contains(t, fieldsOf(t, err), "q")
	})

	t.Run("scoped search", func(t *testing.T) {
		idx := &MockIndex{}
		idx.On("SearchCompanies", mock.Anything, store.Scope{OwnerID: "owner-user_alice"}, "acme", defaultSearchSize).
			Return([]models.Company{{ID: "c-1", Name: "Acme"}}, nil)
		f := newFixture(t, false, idx)

		companies, err := f.svc.SearchCompanies(context.Background(), alice, " acme ", 0)
		require.NoError(t, err)
		assert.Len(t, companies, 1)
		idx.AssertExpectations(t)
	})
}

func TestDashboard(t *testing.T) {
	f := newFixture(t, false, nil)
	c := f.company(t, alice, "Acme")
	f.deal(t, alice, c.ID, models.StageWon, 1000)
	f.deal(t, alice, c.ID, models.StageDiscovery, 200)
	f.deal(t, alice, c.ID, models.StageDiscovery, 300)
	other := f.company(t, bob, "Globex")
	f.deal(t, bob, other.ID, models.StageLost, 50)

	d, err := f.svc.Dashboard(context.Background(), alice)
	require.NoError(t, err)

	require.Len(t, d.DealsByStage, 2)
	assert.Equal(t, models.StageDiscovery, d.DealsByStage[0].Stage)
	assert.Equal(t, 2, d.DealsByStage[0].Count)
	assert.Equal(t, models.StageWon, d.DealsByStage[1].Stage)

	require.Len(t, d.DealValueByStage, len(models.DealStages))
	assert.Equal(t, 500.0, d.DealValueByStage[0].Value)
	assert.Zero(t, d.DealValueByStage[4].Value)
	assert.Equal(t, 3, d.TotalDeals)
	assert.Equal(t, 1500.0, d.TotalPipelineValue)
}

func TestBuildDashboard_Empty(t *testing.T) {
	d := BuildDashboard(nil)
	assert.Empty(t, d.DealsByStage)
	assert.NotNil(t, d.DealsByStage)
	assert.Len(t, d.DealValueByStage, 5)
}

func TestWithCompanyPath(t *testing.T) {
	assert.Equal(t, []string{"/deals", "/companies/c-1"}, withCompanyPath("c-1", "/deals"))
	assert.Equal(t, []string{"/deals"}, withCompanyPath("", "/deals"))
	assert.Empty(t, withCompanyPath(""))
}
