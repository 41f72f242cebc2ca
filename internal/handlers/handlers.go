package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/BatmanBruc/jondor-ad-bot/internal/contextkeys"
	"github.com/BatmanBruc/jondor-ad-bot/internal/keyboards"
	"github.com/BatmanBruc/jondor-ad-bot/internal/logging"
	"github.com/BatmanBruc/jondor-ad-bot/internal/messages"
	"github.com/BatmanBruc/jondor-ad-bot/internal/middleware"
	"github.com/BatmanBruc/jondor-ad-bot/internal/publisher"
	"github.com/BatmanBruc/jondor-ad-bot/types"
)

// Messenger is the outbound half of the bot API. *bot.Bot satisfies it.
type Messenger interface {
	publisher.Sender
	EditMessageText(ctx context.Context, params *bot.EditMessageTextParams) (*models.Message, error)
	EditMessageReplyMarkup(ctx context.Context, params *bot.EditMessageReplyMarkupParams) (*models.Message, error)
	AnswerCallbackQuery(ctx context.Context, params *bot.AnswerCallbackQueryParams) (bool, error)
}

type AdPublisher interface {
	Publish(ctx context.Context, data types.DataBag) error
}

type Options struct {
	SuperadminID int64
	AdminContact string
	// Now defaults to time.Now.
	Now func() time.Time
}

type Handlers struct {
	bot          Messenger
	gateway      types.Gateway
	states       types.StateStore
	publisher    AdPublisher
	superadminID int64
	adminContact string
	now          func() time.Time
}

func NewHandlers(m Messenger, gateway types.Gateway, states types.StateStore, pub AdPublisher, opts Options) *Handlers {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Handlers{
		bot:          m,
		gateway:      gateway,
		states:       states,
		publisher:    pub,
		superadminID: opts.SuperadminID,
		adminContact: opts.AdminContact,
		now:          now,
	}
}

func (h *Handlers) MainHandler(ctx context.Context, _ *bot.Bot, update *models.Update) {
	defer func() {
		if r := recover(); r != nil {
			logging.FromContext(ctx).Error("handler panic", "panic", r)
		}
	}()

	ev, ok := contextkeys.GetEvent(ctx)
	if !ok {
		if ev = middleware.EventFromUpdate(update); ev == nil {
			return
		}
	}
	h.Route(ctx, ev)
}

// Route dispatches one event. Button presses are accepted from any chat, other
// messages only from private chats.
func (h *Handlers) Route(ctx context.Context, ev *types.Event) {
	if ev.Kind == types.EventButton {
		h.routeButton(ctx, ev)
		return
	}
	if !ev.Private {
		return
	}
	if ev.Kind == types.EventCommand && ev.Command == "start" {
		h.handleStart(ctx, ev)
		return
	}

	state, data, err := h.states.Get(ctx, ev.Key())
	if err != nil {
		h.fail(ctx, ev, "load session", err)
		return
	}

	if state == types.StateAwaitingContact {
		h.handleRegistration(ctx, ev)
		return
	}
	if isButtonText(ev, messages.BtnSubmitAd) {
		h.startAd(ctx, ev)
		return
	}

	switch state {
	case types.StateAdCollecting:
		if h.collectAd(ctx, ev, data) {
			return
		}
	case types.StateAdConfirming:
		if isButtonText(ev, messages.BtnCancel) {
			h.cancelAd(ctx, ev)
			return
		}
	}

	if ev.Kind == types.EventCommand {
		if ev.Command == "setrole" {
			h.handleSetRole(ctx, ev)
		}
		return
	}
	if h.routeAdminMenu(ctx, ev) {
		return
	}

	switch state {
	case types.StateExtendAwaitingCustomDate:
		h.handleCustomDate(ctx, ev, data)
	case types.StateBlackoutAwaitingStart:
		h.handleBlackoutStart(ctx, ev)
	case types.StateBlackoutAwaitingEnd:
		h.handleBlackoutEnd(ctx, ev, data)
	}
}

type callbackReply struct {
	text  string
	alert bool
}

func alert(text string) callbackReply {
	return callbackReply{text: text, alert: true}
}

func (h *Handlers) routeButton(ctx context.Context, ev *types.Event) {
	reply := h.dispatchButton(ctx, ev)
	h.answerCallback(ctx, ev, reply)
}

func (h *Handlers) dispatchButton(ctx context.Context, ev *types.Event) callbackReply {
	switch ev.Data {
	case keyboards.CallbackNoop:
		return callbackReply{}
	case keyboards.CallbackCancelAd:
		h.cancelAd(ctx, ev)
		return callbackReply{}
	case keyboards.CallbackConfirmAd:
		return h.confirmAd(ctx, ev)
	case keyboards.CallbackAdminCancel:
		h.adminCancel(ctx, ev)
		return callbackReply{}
	}
	return h.dispatchAdminButton(ctx, ev)
}

func isButtonText(ev *types.Event, label string) bool {
	return ev.Kind == types.EventMessage && ev.Media == types.MediaNone && ev.Text == label
}

// lookupUser returns nil without an error for unknown users.
func (h *Handlers) lookupUser(ctx context.Context, telegramID int64) (*types.User, error) {
	user, err := h.gateway.GetUser(ctx, telegramID)
	if errors.Is(err, types.ErrNotFound) {
		return nil, nil
	}
	return user, err
}

func roleOf(user *types.User) types.Role {
	if user == nil {
		return types.RoleClient
	}
	return user.Role
}

func (h *Handlers) reply(ctx context.Context, chatID int64, text string, markup models.ReplyMarkup) {
	params := &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: messages.ParseModeHTML,
	}
	if markup != nil {
		params.ReplyMarkup = markup
	}
	if _, err := h.bot.SendMessage(ctx, params); err != nil {
		logging.FromContext(ctx).Warn("send message failed", "chat_id", chatID, "error", err)
	}
}

func (h *Handlers) editText(ctx context.Context, ev *types.Event, text string, markup *models.InlineKeyboardMarkup) {
	params := &bot.EditMessageTextParams{
		ChatID:    ev.ChatID,
		MessageID: ev.MessageID,
		Text:      text,
		ParseMode: messages.ParseModeHTML,
	}
	if markup != nil {
		params.ReplyMarkup = markup
	}
	if _, err := h.bot.EditMessageText(ctx, params); err != nil {
		logging.FromContext(ctx).Warn("edit message failed", "message_id", ev.MessageID, "error", err)
	}
}

func (h *Handlers) editMarkup(ctx context.Context, ev *types.Event, markup *models.InlineKeyboardMarkup) {
	if markup == nil {
		markup = &models.InlineKeyboardMarkup{InlineKeyboard: [][]models.InlineKeyboardButton{}}
	}
	if _, err := h.bot.EditMessageReplyMarkup(ctx, &bot.EditMessageReplyMarkupParams{
		ChatID:      ev.ChatID,
		MessageID:   ev.MessageID,
		ReplyMarkup: markup,
	}); err != nil {
		logging.FromContext(ctx).Warn("edit markup failed", "message_id", ev.MessageID, "error", err)
	}
}

func (h *Handlers) answerCallback(ctx context.Context, ev *types.Event, r callbackReply) {
	if ev.CallbackID == "" {
		return
	}
	if _, err := h.bot.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: ev.CallbackID,
		Text:            r.text,
		ShowAlert:       r.alert,
	}); err != nil {
		logging.FromContext(ctx).Warn("answer callback failed", "error", err)
	}
}

// notify sends a best-effort message. Failures are logged and dropped.
func (h *Handlers) notify(ctx context.Context, chatID int64, text string) {
	if _, err := h.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: messages.ParseModeHTML,
	}); err != nil {
		logging.FromContext(ctx).Warn("notification dropped", "target_id", chatID, "error", errors.Join(types.ErrNotificationFailure, err))
	}
}

// fail logs err and shows the generic error message.
func (h *Handlers) fail(ctx context.Context, ev *types.Event, op string, err error) {
	logging.FromContext(ctx).Error(op+" failed", "error", err)
	h.reply(ctx, ev.ChatID, messages.ErrorDefault(), nil)
}

func (h *Handlers) clearSession(ctx context.Context, ev *types.Event) bool {
	if err := h.states.Clear(ctx, ev.Key()); err != nil {
		h.fail(ctx, ev, "clear session", err)
		return false
	}
	return true
}
