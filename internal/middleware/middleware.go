package middleware

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/google/uuid"

	"github.com/BatmanBruc/jondor-ad-bot/internal/contextkeys"
	"github.com/BatmanBruc/jondor-ad-bot/internal/logging"
	"github.com/BatmanBruc/jondor-ad-bot/types"
)

type Middlewares struct {
	logger *slog.Logger
	locks  *sessionLocks
}

func NewMiddlewares(logger *slog.Logger) *Middlewares {
	if logger == nil {
		logger = slog.Default()
	}
	return &Middlewares{
		logger: logger,
		locks:  newSessionLocks(),
	}
}

// AnalyzeUpdateMiddleware turns the update into a types.Event and stores it in
// the context. Updates that carry neither a message nor a button press stop here.
func (m *Middlewares) AnalyzeUpdateMiddleware(next bot.HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		ev := EventFromUpdate(update)
		if ev == nil {
			return
		}
		next(contextkeys.WithEvent(ctx, ev), b, update)
	}
}

// RequestMiddleware tags the update with a request id and a logger carrying the
// sender and chat.
func (m *Middlewares) RequestMiddleware(next bot.HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		requestID := uuid.NewString()
		logger := m.logger.With("request_id", requestID)
		if ev, ok := contextkeys.GetEvent(ctx); ok {
			logger = logger.With("user_id", ev.UserID, "chat_id", ev.ChatID, "kind", string(ev.Kind))
		}
		ctx = contextkeys.WithRequestID(ctx, requestID)
		ctx = logging.ContextWithLogger(ctx, logger)

		started := time.Now()
		next(ctx, b, update)
		logger.Debug("update handled", "duration", time.Since(started))
	}
}

// SerializeSessionMiddleware runs events of one (user, chat) session one at a
// time. Different sessions are not blocked by each other.
func (m *Middlewares) SerializeSessionMiddleware(next bot.HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		ev, ok := contextkeys.GetEvent(ctx)
		if !ok {
			next(ctx, b, update)
			return
		}
		unlock := m.locks.lock(ev.Key())
		defer unlock()
		next(ctx, b, update)
	}
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

type sessionLocks struct {
	mu      sync.Mutex
	entries map[types.SessionKey]*lockEntry
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{entries: make(map[types.SessionKey]*lockEntry)}
}

func (l *sessionLocks) lock(key types.SessionKey) func() {
	l.mu.Lock()
	e, ok := l.entries[key]
	if !ok {
		e = &lockEntry{}
		l.entries[key] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.entries, key)
		}
		l.mu.Unlock()
	}
}

func (l *sessionLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// EventFromUpdate extracts the fields the workflows use. It returns nil for
// updates the bot does not handle.
func EventFromUpdate(update *models.Update) *types.Event {
	if update == nil {
		return nil
	}
	switch {
	case update.Message != nil && update.Message.From != nil:
		return eventFromMessage(update.Message)
	case update.CallbackQuery != nil:
		return eventFromCallback(update.CallbackQuery)
	default:
		return nil
	}
}

func eventFromMessage(msg *models.Message) *types.Event {
	ev := &types.Event{
		Kind:      types.EventMessage,
		UserID:    msg.From.ID,
		ChatID:    msg.Chat.ID,
		Private:   msg.Chat.Type == models.ChatTypePrivate,
		MessageID: msg.ID,
		Profile:   profileOf(msg.From),
	}
	if ev.UserID == 0 || ev.ChatID == 0 {
		return nil
	}

	text := strings.TrimSpace(msg.Text)
	if strings.HasPrefix(text, "/") {
		fields := strings.Fields(text)
		command := strings.TrimPrefix(fields[0], "/")
		if at := strings.Index(command, "@"); at >= 0 {
			command = command[:at]
		}
		ev.Kind = types.EventCommand
		ev.Command = strings.ToLower(command)
		ev.Args = fields[1:]
		ev.Text = msg.Text
		return ev
	}

	ev.Text = msg.Text
	if ev.Text == "" {
		ev.Text = msg.Caption
	}

	switch {
	case len(msg.Photo) > 0:
		best := msg.Photo[0]
		for i := 1; i < len(msg.Photo); i++ {
			if msg.Photo[i].FileSize >= best.FileSize {
				best = msg.Photo[i]
			}
		}
		ev.Media, ev.MediaRef = types.MediaPhoto, best.FileID
	case msg.Video != nil:
		ev.Media, ev.MediaRef = types.MediaVideo, msg.Video.FileID
	case msg.Audio != nil:
		ev.Media, ev.MediaRef = types.MediaAudio, msg.Audio.FileID
	}

	if msg.Contact != nil {
		ev.Contact = &types.Contact{
			PhoneNumber: msg.Contact.PhoneNumber,
			UserID:      msg.Contact.UserID,
		}
	}
	return ev
}

func eventFromCallback(q *models.CallbackQuery) *types.Event {
	ev := &types.Event{
		Kind:       types.EventButton,
		UserID:     q.From.ID,
		CallbackID: q.ID,
		Data:       strings.TrimSpace(q.Data),
		Profile:    profileOf(&q.From),
	}
	switch {
	case q.Message.Message != nil:
		ev.ChatID = q.Message.Message.Chat.ID
		ev.MessageID = q.Message.Message.ID
		ev.Private = q.Message.Message.Chat.Type == models.ChatTypePrivate
	case q.Message.InaccessibleMessage != nil:
		ev.ChatID = q.Message.InaccessibleMessage.Chat.ID
		ev.MessageID = q.Message.InaccessibleMessage.MessageID
		ev.Private = q.Message.InaccessibleMessage.Chat.Type == models.ChatTypePrivate
	default:
		ev.ChatID = q.From.ID
		ev.Private = true
	}
	if ev.UserID == 0 || ev.ChatID == 0 {
		return nil
	}
	return ev
}

func profileOf(u *models.User) types.Profile {
	if u == nil {
		return types.Profile{}
	}
	return types.Profile{
		Username:     u.Username,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		LanguageCode: u.LanguageCode,
		IsBot:        u.IsBot,
	}
}
