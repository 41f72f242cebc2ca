package handlers

import (
	"context"
	"errors"

	"github.com/BatmanBruc/jondor-ad-bot/internal/keyboards"
	"github.com/BatmanBruc/jondor-ad-bot/internal/logging"
	"github.com/BatmanBruc/jondor-ad-bot/internal/messages"
	"github.com/BatmanBruc/jondor-ad-bot/internal/rules"
	"github.com/BatmanBruc/jondor-ad-bot/types"
)

const BlackoutListLimit = 20

func (h *Handlers) showBlackouts(ctx context.Context, ev *types.Event) {
	if !h.clearSession(ctx, ev) {
		return
	}
	periods, err := h.gateway.ListBlackouts(ctx, BlackoutListLimit)
	if err != nil {
		h.fail(ctx, ev, "list blackouts", err)
		return
	}
	h.reply(ctx, ev.ChatID, messages.BlackoutList(len(periods) > 0), keyboards.BlackoutList(periods))
}

func (h *Handlers) startBlackout(ctx context.Context, ev *types.Event) callbackReply {
	if err := h.states.Set(ctx, ev.Key(), types.StateBlackoutAwaitingStart, types.DataBag{}); err != nil {
		logging.FromContext(ctx).Error("save session failed", "error", err)
		return alert(messages.ErrorDefault())
	}
	h.reply(ctx, ev.ChatID, messages.AskBlackoutStart(), keyboards.AdminCancel())
	return callbackReply{}
}

// adminTextInput reports whether ev is a text reply from someone who still
// has console access. A caller who lost it has the dialogue dropped.
func (h *Handlers) adminTextInput(ctx context.Context, ev *types.Event) bool {
	if ev.Kind != types.EventMessage || ev.Text == "" {
		return false
	}
	_, admin, err := h.requireAdmin(ctx, ev)
	if err != nil {
		h.fail(ctx, ev, "get user", err)
		return false
	}
	if !admin {
		h.clearSession(ctx, ev)
		return false
	}
	return true
}

func (h *Handlers) handleBlackoutStart(ctx context.Context, ev *types.Event) {
	if !h.adminTextInput(ctx, ev) {
		return
	}
	start, err := rules.ParseBlackoutTime(ev.Text)
	if err != nil {
		h.reply(ctx, ev.ChatID, messages.InvalidDateTime(), keyboards.AdminCancel())
		return
	}
	if err := h.states.Set(ctx, ev.Key(), types.StateBlackoutAwaitingEnd, types.DataBag{BlackoutStart: &start}); err != nil {
		h.fail(ctx, ev, "save session", err)
		return
	}
	h.reply(ctx, ev.ChatID, messages.AskBlackoutEnd(), keyboards.AdminCancel())
}

func (h *Handlers) handleBlackoutEnd(ctx context.Context, ev *types.Event, data types.DataBag) {
	if !h.adminTextInput(ctx, ev) {
		return
	}
	if data.BlackoutStart == nil {
		h.clearSession(ctx, ev)
		h.reply(ctx, ev.ChatID, messages.ErrorDefault(), nil)
		return
	}
	end, err := rules.ParseBlackoutTime(ev.Text)
	if err != nil {
		h.reply(ctx, ev.ChatID, messages.InvalidDateTime(), keyboards.AdminCancel())
		return
	}
	if err := rules.ValidateBlackoutRange(*data.BlackoutStart, end); err != nil {
		h.reply(ctx, ev.ChatID, messages.BlackoutEndBeforeStart(), keyboards.AdminCancel())
		return
	}

	period, err := h.gateway.AddBlackout(ctx, *data.BlackoutStart, end, ev.UserID)
	switch {
	case errors.Is(err, types.ErrInvalidRange):
		h.reply(ctx, ev.ChatID, messages.BlackoutEndBeforeStart(), keyboards.AdminCancel())
		return
	case err != nil:
		h.fail(ctx, ev, "add blackout", err)
		return
	}
	if !h.clearSession(ctx, ev) {
		return
	}
	logging.FromContext(ctx).Info("blackout added", "blackout_id", period.ID, "start", period.Start, "end", period.End)

	admin, err := h.lookupUser(ctx, ev.UserID)
	if err != nil {
		logging.FromContext(ctx).Warn("get user failed", "error", err)
	}
	h.reply(ctx, ev.ChatID, messages.BlackoutCreated(period), keyboards.MainMenu(roleOf(admin)))
}

// deleteBlackout removes the period without confirmation and redraws the list.
func (h *Handlers) deleteBlackout(ctx context.Context, ev *types.Event) callbackReply {
	logger := logging.FromContext(ctx)
	id, ok := keyboards.ParseID(ev.Data, keyboards.PrefixDeleteBlackout)
	if !ok {
		return alert(messages.InvalidFormat())
	}
	if err := h.gateway.DeleteBlackout(ctx, id); err != nil && !errors.Is(err, types.ErrNotFound) {
		logger.Error("delete blackout failed", "blackout_id", id, "error", err)
		return alert(messages.ErrorDefault())
	}
	logger.Info("blackout deleted", "blackout_id", id)

	periods, err := h.gateway.ListBlackouts(ctx, BlackoutListLimit)
	if err != nil {
		logger.Error("list blackouts failed", "error", err)
		return callbackReply{text: messages.BlackoutDeleted()}
	}
	h.editText(ctx, ev, messages.BlackoutList(len(periods) > 0), keyboards.BlackoutList(periods))
	return callbackReply{text: messages.BlackoutDeleted()}
}
