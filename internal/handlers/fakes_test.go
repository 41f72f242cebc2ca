package handlers

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/BatmanBruc/jondor-ad-bot/internal/publisher"
	"github.com/BatmanBruc/jondor-ad-bot/internal/rules"
	"github.com/BatmanBruc/jondor-ad-bot/store"
	"github.com/BatmanBruc/jondor-ad-bot/types"
)

const (
	testGroupID      int64 = -1001
	testSuperadminID int64 = 1
	testContact            = "@jondor_admin1"
)

type fakeGateway struct {
	mu        sync.Mutex
	now       func() time.Time
	users     map[int64]*types.User
	ads       []*types.Ad
	blackouts map[int64]*types.BlackoutPeriod
	nextID    int64
	writes    int
}

func newFakeGateway(now func() time.Time) *fakeGateway {
	return &fakeGateway{
		now:       now,
		users:     make(map[int64]*types.User),
		blackouts: make(map[int64]*types.BlackoutPeriod),
	}
}

func copyUser(u *types.User) *types.User {
	c := *u
	return &c
}

func (g *fakeGateway) addUser(u *types.User) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = g.now()
	}
	g.users[u.TelegramID] = copyUser(u)
}

func (g *fakeGateway) user(id int64) *types.User {
	g.mu.Lock()
	defer g.mu.Unlock()
	if u, ok := g.users[id]; ok {
		return copyUser(u)
	}
	return nil
}

func (g *fakeGateway) GetUser(_ context.Context, id int64) (*types.User, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	u, ok := g.users[id]
	if !ok {
		return nil, types.ErrNotFound
	}
	return copyUser(u), nil
}

func (g *fakeGateway) UpsertUser(_ context.Context, id int64, phone string, p types.Profile, role types.Role) (*types.User, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.writes++
	if u, ok := g.users[id]; ok {
		u.Phone = phone
		return copyUser(u), nil
	}
	u := &types.User{TelegramID: id, Phone: phone, Profile: p, FullName: p.FullName(), Role: role, CreatedAt: g.now()}
	g.users[id] = u
	return copyUser(u), nil
}

func (g *fakeGateway) SetRole(_ context.Context, id int64, role types.Role) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	u, ok := g.users[id]
	if !ok {
		return types.ErrNotFound
	}
	g.writes++
	u.Role = role
	return nil
}

func (g *fakeGateway) ListUsers(_ context.Context, roles ...types.Role) ([]*types.User, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]*types.User, 0, len(g.users))
	for _, u := range g.users {
		if len(roles) > 0 {
			match := false
			for _, r := range roles {
				match = match || u.Role == r
			}
			if !match {
				continue
			}
		}
		out = append(out, copyUser(u))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].TelegramID > out[j].TelegramID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (g *fakeGateway) UpdateLastAdTime(_ context.Context, id int64, ts time.Time) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	u, ok := g.users[id]
	if !ok {
		return types.ErrNotFound
	}
	g.writes++
	u.LastAdAt = &ts
	return nil
}

func (g *fakeGateway) ExtendSubscription(_ context.Context, id int64, until time.Time) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	u, ok := g.users[id]
	if !ok {
		return types.ErrNotFound
	}
	g.writes++
	u.SubscriptionUntil = &until
	return nil
}

func (g *fakeGateway) CreateAd(_ context.Context, userID int64, refs []string, text *string) (*types.Ad, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.writes++
	g.nextID++
	ad := &types.Ad{
		ID:        g.nextID,
		UserID:    userID,
		MediaRefs: append([]string(nil), refs...),
		Text:      text,
		Status:    types.AdStatusApproved,
		CreatedAt: g.now(),
	}
	g.ads = append(g.ads, ad)
	c := *ad
	return &c, nil
}

func (g *fakeGateway) findAd(id int64) *types.Ad {
	for _, ad := range g.ads {
		if ad.ID == id {
			return ad
		}
	}
	return nil
}

func (g *fakeGateway) MarkAdSent(_ context.Context, id int64, ts time.Time) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	ad := g.findAd(id)
	if ad == nil || ad.SentAt != nil {
		return types.ErrNotFound
	}
	g.writes++
	ad.SentAt = &ts
	return nil
}

func (g *fakeGateway) MarkAdPublished(_ context.Context, adID, userID int64, ts time.Time) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	ad := g.findAd(adID)
	u, ok := g.users[userID]
	if ad == nil || ad.SentAt != nil || !ok {
		return types.ErrNotFound
	}
	g.writes++
	ad.SentAt = &ts
	u.LastAdAt = &ts
	return nil
}

func (g *fakeGateway) AddBlackout(_ context.Context, start, end time.Time, by int64) (*types.BlackoutPeriod, error) {
	if err := rules.ValidateBlackoutRange(start, end); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.writes++
	g.nextID++
	p := &types.BlackoutPeriod{ID: g.nextID, Start: start, End: end, CreatedBy: by, CreatedAt: g.now()}
	g.blackouts[p.ID] = p
	c := *p
	return &c, nil
}

func (g *fakeGateway) GetActiveBlackout(_ context.Context, now time.Time) (*types.BlackoutPeriod, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, p := range g.blackouts {
		if p.Contains(now) {
			c := *p
			return &c, nil
		}
	}
	return nil, nil
}

func (g *fakeGateway) ListBlackouts(_ context.Context, limit int) ([]*types.BlackoutPeriod, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]*types.BlackoutPeriod, 0, len(g.blackouts))
	for _, p := range g.blackouts {
		c := *p
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.After(out[j].Start) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (g *fakeGateway) DeleteBlackout(_ context.Context, id int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.blackouts[id]; !ok {
		return types.ErrNotFound
	}
	g.writes++
	delete(g.blackouts, id)
	return nil
}

func (g *fakeGateway) writeCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.writes
}

type outbound struct {
	method string
	chatID int64
	text   string
	markup models.ReplyMarkup
	params any
}

type fakeMessenger struct {
	mu        sync.Mutex
	calls     []outbound
	failChats map[int64]bool
}

func chatOf(v any) int64 {
	id, _ := v.(int64)
	return id
}

func (m *fakeMessenger) record(o outbound) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, o)
	if m.failChats[o.chatID] {
		return errors.New("forbidden: bot was blocked by the user")
	}
	return nil
}

func (m *fakeMessenger) SendMessage(_ context.Context, p *bot.SendMessageParams) (*models.Message, error) {
	return &models.Message{}, m.record(outbound{method: "sendMessage", chatID: chatOf(p.ChatID), text: p.Text, markup: p.ReplyMarkup, params: p})
}

func (m *fakeMessenger) SendPhoto(_ context.Context, p *bot.SendPhotoParams) (*models.Message, error) {
	return &models.Message{}, m.record(outbound{method: "sendPhoto", chatID: chatOf(p.ChatID), text: p.Caption, params: p})
}

func (m *fakeMessenger) SendVideo(_ context.Context, p *bot.SendVideoParams) (*models.Message, error) {
	return &models.Message{}, m.record(outbound{method: "sendVideo", chatID: chatOf(p.ChatID), text: p.Caption, params: p})
}

func (m *fakeMessenger) SendAudio(_ context.Context, p *bot.SendAudioParams) (*models.Message, error) {
	return &models.Message{}, m.record(outbound{method: "sendAudio", chatID: chatOf(p.ChatID), params: p})
}

func (m *fakeMessenger) SendMediaGroup(_ context.Context, p *bot.SendMediaGroupParams) ([]*models.Message, error) {
	return nil, m.record(outbound{method: "sendMediaGroup", chatID: chatOf(p.ChatID), params: p})
}

func (m *fakeMessenger) EditMessageText(_ context.Context, p *bot.EditMessageTextParams) (*models.Message, error) {
	return &models.Message{}, m.record(outbound{method: "editMessageText", chatID: chatOf(p.ChatID), text: p.Text, markup: p.ReplyMarkup, params: p})
}

func (m *fakeMessenger) EditMessageReplyMarkup(_ context.Context, p *bot.EditMessageReplyMarkupParams) (*models.Message, error) {
	return &models.Message{}, m.record(outbound{method: "editMessageReplyMarkup", chatID: chatOf(p.ChatID), markup: p.ReplyMarkup, params: p})
}

func (m *fakeMessenger) AnswerCallbackQuery(_ context.Context, p *bot.AnswerCallbackQueryParams) (bool, error) {
	return true, m.record(outbound{method: "answerCallbackQuery", text: p.Text, params: p})
}

func (m *fakeMessenger) byMethod(method string) []outbound {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []outbound
	for _, c := range m.calls {
		if c.method == method {
			out = append(out, c)
		}
	}
	return out
}

func (m *fakeMessenger) toChat(chatID int64) []outbound {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []outbound
	for _, c := range m.calls {
		if c.chatID == chatID {
			out = append(out, c)
		}
	}
	return out
}

// lastReply is the text of the latest message sent to chatID.
func (m *fakeMessenger) lastReply(t *testing.T, chatID int64) outbound {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.calls) - 1; i >= 0; i-- {
		if c := m.calls[i]; c.chatID == chatID && c.method == "sendMessage" {
			return c
		}
	}
	t.Fatalf("no message sent to %d", chatID)
	return outbound{}
}

func (m *fakeMessenger) lastAnswer(t *testing.T) *bot.AnswerCallbackQueryParams {
	t.Helper()
	answers := m.byMethod("answerCallbackQuery")
	if len(answers) == 0 {
		t.Fatal("callback was not answered")
	}
	return answers[len(answers)-1].params.(*bot.AnswerCallbackQueryParams)
}

func (m *fakeMessenger) reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

type testEnv struct {
	h      *Handlers
	gw     *fakeGateway
	out    *fakeMessenger
	states *store.MemorySessionStore
	now    time.Time
	msgID  int
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	e := &testEnv{now: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}
	clock := func() time.Time { return e.now }
	e.gw = newFakeGateway(clock)
	e.out = &fakeMessenger{failChats: map[int64]bool{}}
	e.states = store.NewMemorySessionStore(100, time.Hour)
	e.h = NewHandlers(e.out, e.gw, e.states, publisher.NewPublisher(e.out, testGroupID), Options{
		SuperadminID: testSuperadminID,
		AdminContact: testContact,
		Now:          clock,
	})
	return e
}

func (e *testEnv) nextMessageID() int {
	e.msgID++
	return e.msgID
}

func (e *testEnv) message(userID int64, text string) *types.Event {
	return &types.Event{
		Kind:      types.EventMessage,
		UserID:    userID,
		ChatID:    userID,
		Private:   true,
		MessageID: e.nextMessageID(),
		Text:      text,
		Profile:   types.Profile{FirstName: "Ali", Username: "ali"},
	}
}

func (e *testEnv) media(userID int64, kind types.MediaKind, ref, caption string) *types.Event {
	ev := e.message(userID, caption)
	ev.Media, ev.MediaRef = kind, ref
	return ev
}

func (e *testEnv) command(userID int64, name string, args ...string) *types.Event {
	ev := e.message(userID, "/"+name)
	ev.Kind, ev.Command, ev.Args = types.EventCommand, name, args
	return ev
}

func (e *testEnv) button(userID int64, data string) *types.Event {
	return &types.Event{
		Kind:       types.EventButton,
		UserID:     userID,
		ChatID:     userID,
		Private:    true,
		MessageID:  500,
		CallbackID: "cb",
		Data:       data,
	}
}

func (e *testEnv) send(ev *types.Event) {
	e.h.Route(context.Background(), ev)
}

func (e *testEnv) state(t *testing.T, userID int64) (types.StateTag, types.DataBag) {
	t.Helper()
	state, data, err := e.states.Get(context.Background(), types.SessionKey{UserID: userID, ChatID: userID})
	if err != nil {
		t.Fatalf("get state: %v", err)
	}
	return state, data
}

func (e *testEnv) setState(t *testing.T, userID int64, state types.StateTag, data types.DataBag) {
	t.Helper()
	if err := e.states.Set(context.Background(), types.SessionKey{UserID: userID, ChatID: userID}, state, data); err != nil {
		t.Fatalf("set state: %v", err)
	}
}

func ptr(t time.Time) *time.Time { return &t }
