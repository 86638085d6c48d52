package telegram

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"lunemusic/internal/broadcast"
	"lunemusic/internal/domain"
	"lunemusic/internal/links"
	"lunemusic/internal/selection"
	"lunemusic/internal/session"
)

// ---------------------------------------------------------------------------
// fakeAPI
// ---------------------------------------------------------------------------

type fakeAPI struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	nextID   int
	members  map[int64]string
	sendErr  error
	updates  chan tgbotapi.Update
	stopped  bool
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{nextID: 100, members: map[int64]string{}, updates: make(chan tgbotapi.Update, 8)}
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	if f.sendErr != nil {
		return tgbotapi.Message{}, f.sendErr
	}
	f.nextID++
	msg := tgbotapi.Message{MessageID: f.nextID}
	if audio, ok := c.(tgbotapi.AudioConfig); ok {
		if reader, ok := audio.File.(tgbotapi.FileReader); ok {
			_, _ = io.Copy(io.Discard, reader.Reader)
		}
		msg.Audio = &tgbotapi.Audio{FileID: "file-abc"}
	}
	return msg, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) GetChatMember(config tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	status, ok := f.members[config.UserID]
	if !ok {
		return tgbotapi.ChatMember{}, errors.New("Bad Request: user not found")
	}
	return tgbotapi.ChatMember{Status: status}, nil
}

func (f *fakeAPI) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.updates
}

func (f *fakeAPI) StopReceivingUpdates() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
}

func (f *fakeAPI) messages() []tgbotapi.MessageConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tgbotapi.MessageConfig
	for _, c := range f.sent {
		if m, ok := c.(tgbotapi.MessageConfig); ok {
			out = append(out, m)
		}
	}
	return out
}

func (f *fakeAPI) texts() []string {
	var out []string
	for _, m := range f.messages() {
		out = append(out, m.Text)
	}
	return out
}

func (f *fakeAPI) callbacks() []tgbotapi.CallbackConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tgbotapi.CallbackConfig
	for _, c := range f.requests {
		if cb, ok := c.(tgbotapi.CallbackConfig); ok {
			out = append(out, cb)
		}
	}
	return out
}

func (f *fakeAPI) deletes() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []int
	for _, c := range f.requests {
		if d, ok := c.(tgbotapi.DeleteMessageConfig); ok {
			out = append(out, d.MessageID)
		}
	}
	return out
}

func (f *fakeAPI) edits() []tgbotapi.EditMessageTextConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tgbotapi.EditMessageTextConfig
	for _, c := range f.requests {
		if e, ok := c.(tgbotapi.EditMessageTextConfig); ok {
			out = append(out, e)
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// Domain fakes
// ---------------------------------------------------------------------------

type fakeSearch struct {
	results []domain.SearchResultItem
	err     error
	queries []string
}

func (f *fakeSearch) Aggregate(_ context.Context, query string) ([]domain.SearchResultItem, error) {
	f.queries = append(f.queries, query)
	return f.results, f.err
}

type fakeResolver struct {
	outcome  selection.Outcome
	fetch    bool
	requests []selection.Request
}

func (f *fakeResolver) ResolveRequest(_ context.Context, req selection.Request) selection.Outcome {
	f.requests = append(f.requests, req)
	if f.fetch && req.OnFetch != nil {
		req.OnFetch()
	}
	return f.outcome
}

type fakeLinks struct {
	outcome selection.Outcome
	fetch   bool
	handled []links.Link
}

func (f *fakeLinks) Handle(_ context.Context, link links.Link, _ domain.Delivery, onFetch func()) selection.Outcome {
	f.handled = append(f.handled, link)
	if f.fetch && onFetch != nil {
		onFetch()
	}
	return f.outcome
}

type fakeBroadcaster struct {
	jobs   []broadcast.Job
	report broadcast.Report
}

func (f *fakeBroadcaster) Run(_ context.Context, job broadcast.Job, onProgress func(broadcast.Report)) (broadcast.Report, error) {
	f.jobs = append(f.jobs, job)
	if onProgress != nil {
		partial := f.report
		partial.Processed = 1
		onProgress(partial)
		onProgress(f.report)
	}
	return f.report, nil
}

type fakeUsers struct {
	mu      sync.Mutex
	users   map[int64]domain.User
	touched []int64
	stats   domain.UserStats
}

func newFakeUsers() *fakeUsers { return &fakeUsers{users: map[int64]domain.User{}} }

func (f *fakeUsers) Touch(_ context.Context, p domain.UserProfile, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.touched = append(f.touched, p.UserID)
	u, ok := f.users[p.UserID]
	if !ok {
		u = domain.User{UserID: p.UserID, CreatedAt: now}
	}
	u.FirstName, u.LastName, u.Username = p.FirstName, p.LastName, p.Username
	u.LastActive = now
	u.Interactions++
	f.users[p.UserID] = u
	return nil
}

func (f *fakeUsers) Get(_ context.Context, id int64) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsers) ListReachable(ctx context.Context) ([]domain.User, error) {
	return f.ListAll(ctx)
}

func (f *fakeUsers) ListAll(context.Context) ([]domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.User, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, u)
	}
	return out, nil
}

func (f *fakeUsers) MarkBlocked(context.Context, int64) error { return nil }

func (f *fakeUsers) Stats(context.Context, time.Time) (domain.UserStats, error) {
	return f.stats, nil
}

// ---------------------------------------------------------------------------
// Harness
// ---------------------------------------------------------------------------

const (
	testChatID  = int64(42)
	testUserID  = int64(7)
	testOwnerID = int64(1)
	channelID   = int64(-100500)
)

type harness struct {
	api       *fakeAPI
	bot       *Bot
	search    *fakeSearch
	resolver  *fakeResolver
	links     *fakeLinks
	broadcast *fakeBroadcaster
	users     *fakeUsers
	sessions  *session.MemoryStore
}

func newHarness(cfg Config) *harness {
	h := &harness{
		api:       newFakeAPI(),
		search:    &fakeSearch{},
		resolver:  &fakeResolver{},
		links:     &fakeLinks{},
		broadcast: &fakeBroadcaster{},
		users:     newFakeUsers(),
		sessions:  session.NewMemoryStore(time.Minute),
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if cfg.OwnerID == 0 {
		cfg.OwnerID = testOwnerID
	}
	out := NewMessenger(h.api, channelID, "", logger)
	h.bot = NewBot(h.api, out, cfg, Deps{
		Search:      h.search,
		Resolver:    h.resolver,
		Links:       h.links,
		Broadcaster: h.broadcast,
		Users:       h.users,
		Sessions:    h.sessions,
	}, logger)
	h.bot.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return h
}

func textUpdate(from int64, messageID int, text string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: messageID,
		From:      &tgbotapi.User{ID: from, FirstName: "Asha"},
		Chat:      &tgbotapi.Chat{ID: testChatID},
		Text:      text,
	}}
}

func commandUpdate(from int64, text string) tgbotapi.Update {
	u := textUpdate(from, 5, text)
	end := len(text)
	for i, r := range text {
		if r == ' ' {
			end = i
			break
		}
	}
	u.Message.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: end}}
	return u
}

func callbackUpdate(from int64, messageID int, data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb-1",
		From:    &tgbotapi.User{ID: from, FirstName: "Asha"},
		Message: &tgbotapi.Message{MessageID: messageID, Chat: &tgbotapi.Chat{ID: testChatID}},
		Data:    data,
	}}
}
