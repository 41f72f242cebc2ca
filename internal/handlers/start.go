package handlers

import (
	"context"

	"github.com/BatmanBruc/jondor-ad-bot/internal/keyboards"
	"github.com/BatmanBruc/jondor-ad-bot/internal/logging"
	"github.com/BatmanBruc/jondor-ad-bot/internal/messages"
	"github.com/BatmanBruc/jondor-ad-bot/types"
)

// handleStart resets the session. The configured superadmin is created or
// promoted on the spot, unknown users are asked for their contact.
func (h *Handlers) handleStart(ctx context.Context, ev *types.Event) {
	if !h.clearSession(ctx, ev) {
		return
	}
	user, err := h.lookupUser(ctx, ev.UserID)
	if err != nil {
		h.fail(ctx, ev, "get user", err)
		return
	}

	if h.superadminID != 0 && ev.UserID == h.superadminID && roleOf(user) != types.RoleSuperadmin {
		if user == nil {
			_, err = h.gateway.UpsertUser(ctx, ev.UserID, "", ev.Profile, types.RoleSuperadmin)
		} else {
			err = h.gateway.SetRole(ctx, ev.UserID, types.RoleSuperadmin)
		}
		if err != nil {
			h.fail(ctx, ev, "promote superadmin", err)
			return
		}
		logging.FromContext(ctx).Info("superadmin promoted")
		h.reply(ctx, ev.ChatID, messages.SuperadminWelcome(), keyboards.MainMenu(types.RoleSuperadmin))
		return
	}

	if user == nil {
		if err := h.states.Set(ctx, ev.Key(), types.StateAwaitingContact, types.DataBag{}); err != nil {
			h.fail(ctx, ev, "save session", err)
			return
		}
		h.reply(ctx, ev.ChatID, messages.AskContact(), keyboards.ContactRequest())
		return
	}

	h.reply(ctx, ev.ChatID, messages.Welcome(ev.Profile.FirstName), keyboards.MainMenu(user.Role))
}

func (h *Handlers) handleRegistration(ctx context.Context, ev *types.Event) {
	if ev.Contact == nil {
		h.reply(ctx, ev.ChatID, messages.ContactRequired(), keyboards.ContactRequest())
		return
	}
	if ev.Contact.UserID != ev.UserID {
		h.reply(ctx, ev.ChatID, messages.ContactNotOwn(), nil)
		return
	}

	user, err := h.gateway.UpsertUser(ctx, ev.UserID, ev.Contact.PhoneNumber, ev.Profile, types.RoleClient)
	if err != nil {
		h.fail(ctx, ev, "register user", err)
		return
	}
	if !h.clearSession(ctx, ev) {
		return
	}
	logging.FromContext(ctx).Info("user registered")
	h.reply(ctx, ev.ChatID, messages.RegistrationDone(h.adminContact), keyboards.MainMenu(user.Role))
}
