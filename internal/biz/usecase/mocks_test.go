package usecase

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/hearth-home/hearth/internal/biz/domain"
	"github.com/hearth-home/hearth/internal/biz/repo"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// Mock implementations

type mockBufferRepo struct {
	mu      sync.Mutex
	buffers map[string]*domain.MessageBuffer
}

func newMockBufferRepo() *mockBufferRepo {
	return &mockBufferRepo{buffers: make(map[string]*domain.MessageBuffer)}
}

func (m *mockBufferRepo) Transact(ctx context.Context, senderID string, fn repo.BufferFunc) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var current *domain.MessageBuffer
	if b, ok := m.buffers[senderID]; ok {
		cp := *b
		cp.PendingMessages = append([]string{}, b.PendingMessages...)
		current = &cp
	}
	next, err := fn(current)
	if err != nil {
		return err
	}
	if next != nil {
		m.buffers[senderID] = next
	}
	return nil
}

func (m *mockBufferRepo) Get(ctx context.Context, senderID string) (*domain.MessageBuffer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.buffers[senderID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (m *mockBufferRepo) ListDue(ctx context.Context, before time.Time) ([]*domain.MessageBuffer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var due []*domain.MessageBuffer
	for _, b := range m.buffers {
		if !b.IsEmpty() && !b.DueAt.After(before) {
			cp := *b
			due = append(due, &cp)
		}
	}
	return due, nil
}

func (m *mockBufferRepo) Summaries(ctx context.Context) ([]*domain.BufferSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.BufferSummary
	for _, b := range m.buffers {
		if !b.IsEmpty() {
			out = append(out, &domain.BufferSummary{SenderID: b.SenderID, MessageCount: len(b.PendingMessages)})
		}
	}
	return out, nil
}

func (m *mockBufferRepo) PruneIdle(ctx context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, b := range m.buffers {
		if b.IsEmpty() && b.LastArrival.Before(before) {
			delete(m.buffers, id)
			n++
		}
	}
	return n, nil
}

type mockUserRepo struct {
	users   []*domain.User
	findErr error
}

func (m *mockUserRepo) FindByPhone(ctx context.Context, phone string) ([]*domain.User, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	var out []*domain.User
	for _, u := range m.users {
		if u.PhoneNumber == phone {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *mockUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	for _, u := range m.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockUserRepo) Create(ctx context.Context, user *domain.User) error {
	m.users = append(m.users, user)
	return nil
}

func (m *mockUserRepo) LinkAccount(ctx context.Context, id, accountID string) error {
	for _, u := range m.users {
		if u.ID == id {
			u.LinkedAccountID = accountID
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *mockUserRepo) ListAll(ctx context.Context) ([]*domain.User, error) {
	return m.users, nil
}

type mockCollabRepo struct {
	collabs []*domain.Collaboration
}

func (m *mockCollabRepo) FindActiveByInviteePhone(ctx context.Context, phone string) ([]*domain.Collaboration, error) {
	var out []*domain.Collaboration
	for _, c := range m.collabs {
		if c.Active && c.InviteePhone == phone {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockCollabRepo) Create(ctx context.Context, collab *domain.Collaboration) error {
	m.collabs = append(m.collabs, collab)
	return nil
}

func (m *mockCollabRepo) ListActive(ctx context.Context) ([]*domain.Collaboration, error) {
	var out []*domain.Collaboration
	for _, c := range m.collabs {
		if c.Active {
			out = append(out, c)
		}
	}
	return out, nil
}

type mockListRepo struct {
	lists []*domain.ShoppingList
}

func (m *mockListRepo) FindByName(ctx context.Context, ownerID, name string) (*domain.ShoppingList, error) {
	for _, l := range m.lists {
		if l.OwnerID == ownerID && l.Name == name {
			return l, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockListRepo) GetByID(ctx context.Context, id string) (*domain.ShoppingList, error) {
	for _, l := range m.lists {
		if l.ID == id {
			return l, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockListRepo) FindOrCreate(ctx context.Context, list *domain.ShoppingList) (*domain.ShoppingList, error) {
	if existing, err := m.FindByName(ctx, list.OwnerID, list.Name); err == nil {
		return existing, nil
	}
	m.lists = append(m.lists, list)
	return list, nil
}

func (m *mockListRepo) Delete(ctx context.Context, id string) error {
	for i, l := range m.lists {
		if l.ID == id {
			m.lists = append(m.lists[:i], m.lists[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *mockListRepo) ListByOwner(ctx context.Context, ownerID string) ([]*domain.ShoppingList, error) {
	var out []*domain.ShoppingList
	for _, l := range m.lists {
		if l.OwnerID == ownerID {
			out = append(out, l)
		}
	}
	return out, nil
}

type mockItemRepo struct {
	items     []*domain.ListItem
	createErr error
}

func (m *mockItemRepo) FindUnbought(ctx context.Context, listID, name string) (*domain.ListItem, error) {
	for _, it := range m.items {
		if it.ListID == listID && it.Name == name && !it.IsBought {
			return it, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockItemRepo) AddUnbought(ctx context.Context, item *domain.ListItem) (bool, error) {
	if m.createErr != nil {
		return false, m.createErr
	}
	if _, err := m.FindUnbought(ctx, item.ListID, item.Name); err == nil {
		return false, nil
	}
	m.items = append(m.items, item)
	return true, nil
}

func (m *mockItemRepo) ListUnbought(ctx context.Context, listID string) ([]*domain.ListItem, error) {
	var out []*domain.ListItem
	for _, it := range m.items {
		if it.ListID == listID && !it.IsBought {
			out = append(out, it)
		}
	}
	return out, nil
}

func (m *mockItemRepo) MarkBought(ctx context.Context, id string) error {
	for _, it := range m.items {
		if it.ID == id {
			it.IsBought = true
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *mockItemRepo) inList(listID string) []string {
	var names []string
	for _, it := range m.items {
		if it.ListID == listID {
			names = append(names, it.Name)
		}
	}
	return names
}

type mockPantryRepo struct {
	items map[string]*domain.PantryItem
}

func newMockPantryRepo() *mockPantryRepo {
	return &mockPantryRepo{items: make(map[string]*domain.PantryItem)}
}

func (m *mockPantryRepo) SetStatus(ctx context.Context, item string, status domain.PantryStatus, updatedBy string, at time.Time) (domain.PantryStatus, error) {
	var previous domain.PantryStatus
	if p, ok := m.items[item]; ok {
		previous = p.Status
	}
	m.items[item] = &domain.PantryItem{Item: item, Status: status, UpdatedBy: updatedBy, UpdatedAt: at}
	return previous, nil
}

func (m *mockPantryRepo) Get(ctx context.Context, item string) (*domain.PantryItem, error) {
	p, ok := m.items[item]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

func (m *mockPantryRepo) ListAll(ctx context.Context) ([]*domain.PantryItem, error) {
	var out []*domain.PantryItem
	for _, p := range m.items {
		out = append(out, p)
	}
	return out, nil
}

type mockClassificationRepo struct {
	entries map[string]*domain.ClassificationEntry
}

func newMockClassificationRepo() *mockClassificationRepo {
	return &mockClassificationRepo{entries: make(map[string]*domain.ClassificationEntry)}
}

func (m *mockClassificationRepo) Get(ctx context.Context, ownerID, itemKey string) (*domain.ClassificationEntry, error) {
	e, ok := m.entries[ownerID+"/"+itemKey]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return e, nil
}

func (m *mockClassificationRepo) Upsert(ctx context.Context, entry *domain.ClassificationEntry) error {
	m.entries[entry.OwnerID+"/"+entry.ItemKey] = entry
	return nil
}

type mockScheduleRepo struct {
	events []*domain.ScheduleEvent
}

func (m *mockScheduleRepo) Create(ctx context.Context, event *domain.ScheduleEvent) error {
	m.events = append(m.events, event)
	return nil
}

func (m *mockScheduleRepo) ListBetween(ctx context.Context, from, to time.Time) ([]*domain.ScheduleEvent, error) {
	var out []*domain.ScheduleEvent
	for _, e := range m.events {
		if !e.Date.Before(from) && !e.Date.After(to) {
			out = append(out, e)
		}
	}
	return out, nil
}

// mockModelRepo replays scripted responses and records every request
type mockModelRepo struct {
	responses []*repo.ModelResponse
	err       error
	errAt     int // Fail on this call index when err is set (0-based)
	requests  []repo.ModelRequest
}

func (m *mockModelRepo) Invoke(ctx context.Context, req *repo.ModelRequest) (*repo.ModelResponse, error) {
	call := len(m.requests)
	snapshot := *req
	snapshot.History = append([]domain.Turn{}, req.History...)
	m.requests = append(m.requests, snapshot)

	if m.err != nil && call >= m.errAt {
		return nil, m.err
	}
	if call >= len(m.responses) {
		return &repo.ModelResponse{Text: "ok"}, nil
	}
	return m.responses[call], nil
}

type sentMessage struct {
	To   string
	Body string
}

type mockMessageRepo struct {
	mu     sync.Mutex
	sent   []sentMessage
	failTo map[string]bool
}

func (m *mockMessageRepo) Send(ctx context.Context, to, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failTo[to] {
		return errors.New("delivery refused")
	}
	m.sent = append(m.sent, sentMessage{To: to, Body: body})
	return nil
}

func (m *mockMessageRepo) recipients() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, s := range m.sent {
		out = append(out, s.To)
	}
	sort.Strings(out)
	return out
}

// Fixtures

type fixture struct {
	users    *mockUserRepo
	collabs  *mockCollabRepo
	lists    *mockListRepo
	items    *mockItemRepo
	pantry   *mockPantryRepo
	classes  *mockClassificationRepo
	schedule *mockScheduleRepo

	userUC *UserUsecase
	tools  *ToolRegistry
}

func newFixture() *fixture {
	f := &fixture{
		users:    &mockUserRepo{},
		collabs:  &mockCollabRepo{},
		lists:    &mockListRepo{},
		items:    &mockItemRepo{},
		pantry:   newMockPantryRepo(),
		classes:  newMockClassificationRepo(),
		schedule: &mockScheduleRepo{},
	}
	f.userUC = NewUserUsecase(f.users, f.collabs, "", zap.NewNop())
	f.tools = NewToolRegistry(ToolStores{
		Lists:          f.lists,
		Items:          f.items,
		Pantry:         f.pantry,
		Classification: f.classes,
		Schedule:       f.schedule,
	}, zap.NewNop())
	return f
}

func (f *fixture) listNamed(ownerID, name string) *domain.ShoppingList {
	for _, l := range f.lists.lists {
		if l.OwnerID == ownerID && l.Name == name {
			return l
		}
	}
	return nil
}
