// Package storetest provides an in-memory store.Store for tests.
package storetest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"crm-assistant/internal/models"
	"crm-assistant/internal/store"

	"github.com/google/uuid"
)

// MemoryStore keeps records in maps. Set Fail[method] to make that method
// return the given error.
type MemoryStore struct {
	mu sync.Mutex

	Users     map[string]*models.User // by external id
	Companies map[string]*models.Company
	People    map[string]*models.Person
	Deals     map[string]*models.Deal
	Events    map[string]*models.Event
	Sequences map[string]*models.Sequence
	Emails    map[string]*models.SequenceEmail

	Fail map[string]error

	seq int
}

var _ store.Store = (*MemoryStore)(nil)

func New() *MemoryStore {
	return &MemoryStore{
		Users:     map[string]*models.User{},
		Companies: map[string]*models.Company{},
		People:    map[string]*models.Person{},
		Deals:     map[string]*models.Deal{},
		Events:    map[string]*models.Event{},
		Sequences: map[string]*models.Sequence{},
		Emails:    map[string]*models.SequenceEmail{},
		Fail:      map[string]error{},
	}
}

func (m *MemoryStore) fail(method string) error {
	return m.Fail[method]
}

// now returns strictly increasing timestamps so newest-first ordering is
// deterministic.
func (m *MemoryStore) now() time.Time {
	m.seq++
	return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(m.seq) * time.Second)
}

func visible(scope store.Scope, ownerID string) bool {
	return scope.Shared || scope.OwnerID == ownerID
}

func (m *MemoryStore) FindUserByExternalID(_ context.Context, externalID string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("FindUserByExternalID"); err != nil {
		return nil, err
	}
	u, ok := m.Users[externalID]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *MemoryStore) UpsertUser(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("UpsertUser"); err != nil {
		return err
	}
	if existing, ok := m.Users[u.ExternalID]; ok {
		u.ID, u.CreatedAt = existing.ID, existing.CreatedAt
	} else {
		if u.ID == "" {
			u.ID = uuid.New().String()
		}
		u.CreatedAt = m.now()
	}
	cp := *u
	m.Users[u.ExternalID] = &cp
	return nil
}

func (m *MemoryStore) InsertCompany(_ context.Context, c *models.Company) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("InsertCompany"); err != nil {
		return err
	}
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.Status == "" {
		c.Status = models.CompanyStatusLead
	}
	c.CreatedAt = m.now()
	c.UpdatedAt = c.CreatedAt
	cp := *c
	m.Companies[c.ID] = &cp
	return nil
}

func (m *MemoryStore) InsertPeople(_ context.Context, people []models.Person) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("InsertPeople"); err != nil {
		return 0, err
	}
	for i := range people {
		m.insertPerson(&people[i])
	}
	return len(people), nil
}

func (m *MemoryStore) ListCompanies(_ context.Context, scope store.Scope) ([]models.Company, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("ListCompanies"); err != nil {
		return nil, err
	}
	out := []models.Company{}
	for _, c := range m.Companies {
		if visible(scope, c.OwnerID) {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryStore) GetCompanyDetails(_ context.Context, scope store.Scope, id string) (*models.CompanyDetails, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("GetCompanyDetails"); err != nil {
		return nil, err
	}
	c, ok := m.Companies[id]
	if !ok || !visible(scope, c.OwnerID) {
		return nil, store.ErrNotFound
	}
	details := &models.CompanyDetails{Company: *c, People: []models.Person{}, Deals: []models.Deal{}, Events: []models.Event{}}
	for _, p := range m.People {
		if p.CompanyID == id {
			details.People = append(details.People, *p)
		}
	}
	for _, d := range m.Deals {
		if d.CompanyID == id {
			details.Deals = append(details.Deals, *d)
		}
	}
	for _, e := range m.Events {
		if e.CompanyID == id {
			details.Events = append(details.Events, *e)
		}
	}
	return details, nil
}

func (m *MemoryStore) UpdateCompanyStatus(_ context.Context, id, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("UpdateCompanyStatus"); err != nil {
		return err
	}
	c, ok := m.Companies[id]
	if !ok {
		return fmt.Errorf("update company status: %w", store.ErrNotFound)
	}
	c.Status = status
	c.UpdatedAt = m.now()
	return nil
}

func (m *MemoryStore) insertPerson(p *models.Person) {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	p.CreatedAt = m.now()
	cp := *p
	m.People[p.ID] = &cp
}

func (m *MemoryStore) InsertPerson(_ context.Context, p *models.Person) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("InsertPerson"); err != nil {
		return err
	}
	m.insertPerson(p)
	return nil
}

func (m *MemoryStore) ListPeople(_ context.Context, scope store.Scope) ([]models.Person, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("ListPeople"); err != nil {
		return nil, err
	}
	out := []models.Person{}
	for _, p := range m.People {
		if visible(scope, p.OwnerID) {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryStore) UpdatePerson(_ context.Context, scope store.Scope, p *models.Person) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("UpdatePerson"); err != nil {
		return err
	}
	existing, ok := m.People[p.ID]
	if !ok || !visible(scope, existing.OwnerID) {
		return fmt.Errorf("update person: %w", store.ErrNotFound)
	}
	existing.FirstName, existing.LastName = p.FirstName, p.LastName
	existing.Email, existing.Title, existing.CompanyID = p.Email, p.Title, p.CompanyID
	*p = *existing
	return nil
}

func (m *MemoryStore) InsertDeal(_ context.Context, d *models.Deal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("InsertDeal"); err != nil {
		return err
	}
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	d.CreatedAt = m.now()
	d.UpdatedAt = d.CreatedAt
	cp := *d
	m.Deals[d.ID] = &cp
	return nil
}

func (m *MemoryStore) withCompanyName(d models.Deal) models.Deal {
	if c, ok := m.Companies[d.CompanyID]; ok {
		d.CompanyName = c.Name
	}
	return d
}

func (m *MemoryStore) ListDeals(_ context.Context, scope store.Scope) ([]models.Deal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("ListDeals"); err != nil {
		return nil, err
	}
	out := []models.Deal{}
	for _, d := range m.Deals {
		if visible(scope, d.OwnerID) {
			out = append(out, m.withCompanyName(*d))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryStore) GetDeal(_ context.Context, id string) (*models.Deal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("GetDeal"); err != nil {
		return nil, err
	}
	d, ok := m.Deals[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := m.withCompanyName(*d)
	return &cp, nil
}

func (m *MemoryStore) UpdateDeal(_ context.Context, scope store.Scope, d *models.Deal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("UpdateDeal"); err != nil {
		return err
	}
	existing, ok := m.Deals[d.ID]
	if !ok || !visible(scope, existing.OwnerID) {
		return fmt.Errorf("update deal: %w", store.ErrNotFound)
	}
	existing.Name, existing.Value, existing.Stage = d.Name, d.Value, d.Stage
	existing.ClosesAt, existing.CompanyID = d.ClosesAt, d.CompanyID
	existing.UpdatedAt = m.now()
	*d = *existing
	return nil
}

func (m *MemoryStore) UpdateDealStage(_ context.Context, id, stage string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("UpdateDealStage"); err != nil {
		return err
	}
	d, ok := m.Deals[id]
	if !ok {
		return fmt.Errorf("update deal stage: %w", store.ErrNotFound)
	}
	d.Stage = stage
	d.UpdatedAt = m.now()
	return nil
}

func (m *MemoryStore) DealStageStats(_ context.Context, scope store.Scope) ([]models.StageCount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("DealStageStats"); err != nil {
		return nil, err
	}
	byStage := map[string]*models.StageCount{}
	var order []string
	for _, d := range m.Deals {
		if !visible(scope, d.OwnerID) {
			continue
		}
		sc, ok := byStage[d.Stage]
		if !ok {
			sc = &models.StageCount{Stage: d.Stage}
			byStage[d.Stage] = sc
			order = append(order, d.Stage)
		}
		sc.Count++
		sc.Value += d.Value
	}
	out := make([]models.StageCount, 0, len(order))
	for _, s := range order {
		out = append(out, *byStage[s])
	}
	return out, nil
}

func (m *MemoryStore) InsertEvent(_ context.Context, e *models.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("InsertEvent"); err != nil {
		return err
	}
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	e.CreatedAt = m.now()
	cp := *e
	m.Events[e.ID] = &cp
	return nil
}

func (m *MemoryStore) InsertSequence(_ context.Context, s *models.Sequence) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("InsertSequence"); err != nil {
		return err
	}
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	s.CreatedAt = m.now()
	cp := *s
	m.Sequences[s.ID] = &cp
	return nil
}

func (m *MemoryStore) emailsFor(sequenceID string) []models.SequenceEmail {
	out := []models.SequenceEmail{}
	for _, e := range m.Emails {
		if e.SequenceID == sequenceID {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day < out[j].Day })
	return out
}

func (m *MemoryStore) ListSequences(_ context.Context, scope store.Scope) ([]models.Sequence, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("ListSequences"); err != nil {
		return nil, err
	}
	out := []models.Sequence{}
	for _, s := range m.Sequences {
		if visible(scope, s.OwnerID) {
			cp := *s
			cp.EmailCount = len(m.emailsFor(s.ID))
			out = append(out, cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryStore) GetSequenceDetails(_ context.Context, scope store.Scope, id string) (*models.SequenceDetails, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("GetSequenceDetails"); err != nil {
		return nil, err
	}
	s, ok := m.Sequences[id]
	if !ok || !visible(scope, s.OwnerID) {
		return nil, store.ErrNotFound
	}
	details := &models.SequenceDetails{Sequence: *s, Emails: m.emailsFor(id)}
	details.EmailCount = len(details.Emails)
	return details, nil
}

func (m *MemoryStore) UpsertSequenceEmail(_ context.Context, e *models.SequenceEmail) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("UpsertSequenceEmail"); err != nil {
		return err
	}
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if existing, ok := m.Emails[e.ID]; ok {
		if existing.OwnerID != e.OwnerID || existing.SequenceID != e.SequenceID {
			return fmt.Errorf("upsert sequence email: %w", store.ErrNotFound)
		}
	}
	cp := *e
	m.Emails[e.ID] = &cp
	return nil
}

func (m *MemoryStore) DeleteSequenceEmail(_ context.Context, scope store.Scope, sequenceID, emailID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("DeleteSequenceEmail"); err != nil {
		return err
	}
	e, ok := m.Emails[emailID]
	if !ok || e.SequenceID != sequenceID || !visible(scope, e.OwnerID) {
		return fmt.Errorf("delete sequence email: %w", store.ErrNotFound)
	}
	delete(m.Emails, emailID)
	return nil
}
