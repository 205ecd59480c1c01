package service

import (
	"context"
	"errors"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/hearth-home/hearth/internal/biz"
	"github.com/hearth-home/hearth/internal/biz/domain"
	"github.com/hearth-home/hearth/internal/biz/repo"
	"github.com/hearth-home/hearth/internal/biz/usecase"
	"github.com/hearth-home/hearth/internal/data"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// Mock implementations

type scriptedModel struct {
	mu        sync.Mutex
	responses []*repo.ModelResponse
	err       error
	calls     int
}

func (m *scriptedModel) Invoke(ctx context.Context, req *repo.ModelRequest) (*repo.ModelResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if len(m.responses) == 0 {
		return &repo.ModelResponse{Text: "ok"}, nil
	}
	resp := m.responses[0]
	m.responses = m.responses[1:]
	return resp, nil
}

type recordingSender struct {
	mu   sync.Mutex
	sent map[string][]string
}

func (s *recordingSender) Send(ctx context.Context, to, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sent == nil {
		s.sent = make(map[string][]string)
	}
	s.sent[to] = append(s.sent[to], body)
	return nil
}

func (s *recordingSender) to(addr string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.sent[addr]...)
}

func (s *recordingSender) recipients() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for k := range s.sent {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

type recordingPublisher struct {
	mu      sync.Mutex
	actions []domain.Action
}

func (p *recordingPublisher) Publish(ctx context.Context, actor domain.UserContext, actions []domain.Action) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.actions = append(p.actions, actions...)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.Advance(d)
	return ctx.Err()
}

type harness struct {
	repos     *data.Repositories
	uc        *biz.Usecases
	model     *scriptedModel
	sender    *recordingSender
	publisher *recordingPublisher
	clock     *fakeClock
	pipeline  *PipelineService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	repos, err := data.NewRepositories(filepath.Join(t.TempDir(), "hearth.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repos.Close() })

	h := &harness{
		repos:     repos,
		model:     &scriptedModel{},
		sender:    &recordingSender{},
		publisher: &recordingPublisher{},
		clock:     &fakeClock{now: time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)},
	}
	h.uc = biz.NewUsecases(biz.Stores{
		Buffer:         repos.Buffer,
		Users:          repos.Users,
		Collaborations: repos.Collaborations,
		Tools: usecase.ToolStores{
			Lists:          repos.Lists,
			Items:          repos.Items,
			Pantry:         repos.Pantry,
			Classification: repos.Classification,
			Schedule:       repos.Schedule,
		},
	}, h.model, h.sender, biz.Options{
		Debounce: domain.DefaultDebounceConfig(),
		Prompts:  usecase.DefaultPromptConfig,
	}, zap.NewNop())
	h.uc.Buffer.WithClock(h.clock.Now, h.clock.Sleep)
	h.pipeline = NewPipelineService(h.uc, h.sender, h.publisher, time.Minute, zap.NewNop())
	return h
}

func (h *harness) addUser(t *testing.T, id, phone, name string) {
	t.Helper()
	require.NoError(t, h.repos.Users.Create(context.Background(), &domain.User{
		ID: id, PhoneNumber: phone, DisplayName: name, LinkedAccountID: "acct-" + id, CreatedAt: time.Now(),
	}))
}

func TestHandleInbound_DispatchesAndNotifies(t *testing.T) {
	h := newHarness(t)
	h.addUser(t, "alice", "whatsapp:+1", "Alice")
	h.addUser(t, "bob", "whatsapp:+2", "Bob")
	h.model.responses = []*repo.ModelResponse{
		{ToolCalls: []domain.ToolCall{{ID: "c1", Name: "add-shopping-item", Args: map[string]any{"item": "milk"}}}},
		{Text: "Added milk to your list."},
	}

	result, err := h.pipeline.HandleInbound(context.Background(), "whatsapp:+1", "add milk")
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, domain.StateDone, result.State)

	assert.Equal(t, []string{"Added milk to your list."}, h.sender.to("whatsapp:+1"))
	assert.Equal(t, []string{`🛒 *Shopping List*: Alice added "milk".`}, h.sender.to("whatsapp:+2"))
	require.Len(t, h.publisher.actions, 1)
	assert.Equal(t, domain.ToolAddShoppingItem, h.publisher.actions[0].Kind)

	// The burst was cleared before dispatch
	buf, err := h.repos.Buffer.Get(context.Background(), "whatsapp:+1")
	require.NoError(t, err)
	assert.Empty(t, buf.PendingMessages)
}

func TestHandleInbound_ModelFailureSendsApology(t *testing.T) {
	h := newHarness(t)
	h.addUser(t, "alice", "whatsapp:+1", "Alice")
	h.addUser(t, "bob", "whatsapp:+2", "Bob")
	h.model.err = errors.New("quota exceeded")

	result, err := h.pipeline.HandleInbound(context.Background(), "whatsapp:+1", "add milk")
	require.NoError(t, err)
	assert.Equal(t, domain.StateFailed, result.State)

	assert.Equal(t, []string{usecase.DefaultPromptConfig.Apology}, h.sender.to("whatsapp:+1"))
	assert.Equal(t, []string{"whatsapp:+1"}, h.sender.recipients())
	assert.Empty(t, h.publisher.actions)
}

func TestHandleInbound_Superseded(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	// A later fragment lands while the first call is waiting
	h.uc.Buffer.WithClock(h.clock.Now, func(ctx context.Context, d time.Duration) error {
		h.clock.Advance(d / 2)
		if _, err := h.uc.Buffer.Append(ctx, "whatsapp:+1", "and eggs"); err != nil {
			return err
		}
		h.clock.Advance(d / 2)
		return nil
	})

	result, err := h.pipeline.HandleInbound(ctx, "whatsapp:+1", "buy milk")
	require.NoError(t, err)
	assert.Nil(t, result)
	assert.Zero(t, h.model.calls)

	buf, err := h.repos.Buffer.Get(ctx, "whatsapp:+1")
	require.NoError(t, err)
	assert.Equal(t, []string{"buy milk", "and eggs"}, buf.PendingMessages)
}

func TestSubmit_RunsDetached(t *testing.T) {
	h := newHarness(t)
	h.model.responses = []*repo.ModelResponse{{Text: "Hello!"}}

	h.pipeline.Submit("whatsapp:+7", "hi")
	h.pipeline.Wait()

	assert.Equal(t, []string{"Hello!"}, h.sender.to("whatsapp:+7"))
}
