package handlers

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/BatmanBruc/jondor-ad-bot/internal/keyboards"
	"github.com/BatmanBruc/jondor-ad-bot/internal/logging"
	"github.com/BatmanBruc/jondor-ad-bot/internal/messages"
	"github.com/BatmanBruc/jondor-ad-bot/internal/rules"
	"github.com/BatmanBruc/jondor-ad-bot/types"
)

const maxExtendMonths = 3

// requireAdmin resolves the caller and reports whether they may use the admin
// console.
func (h *Handlers) requireAdmin(ctx context.Context, ev *types.Event) (*types.User, bool, error) {
	user, err := h.lookupUser(ctx, ev.UserID)
	if err != nil {
		return nil, false, err
	}
	return user, user != nil && user.Role.Can(types.CapAdminConsole), nil
}

// routeAdminMenu handles the admin reply keyboard. Callers without console
// access get no answer.
func (h *Handlers) routeAdminMenu(ctx context.Context, ev *types.Event) bool {
	if ev.Kind != types.EventMessage || ev.Media != types.MediaNone {
		return false
	}
	switch ev.Text {
	case messages.BtnSubscribers, messages.BtnExtend, messages.BtnBlackout:
	case messages.BtnRoles:
		h.handleRolesHelp(ctx, ev)
		return true
	default:
		return false
	}

	_, ok, err := h.requireAdmin(ctx, ev)
	if err != nil {
		h.fail(ctx, ev, "get user", err)
		return true
	}
	if !ok {
		return true
	}

	switch ev.Text {
	case messages.BtnSubscribers:
		h.showSubscribers(ctx, ev)
	case messages.BtnExtend:
		h.showExtendCandidates(ctx, ev)
	case messages.BtnBlackout:
		h.showBlackouts(ctx, ev)
	}
	return true
}

func (h *Handlers) dispatchAdminButton(ctx context.Context, ev *types.Event) callbackReply {
	data := ev.Data
	known := data == keyboards.CallbackAddBlackout || data == keyboards.CallbackExtendCustom
	for _, prefix := range []string{
		keyboards.PrefixViewUser, keyboards.PrefixViewListPage, keyboards.PrefixExtendUser,
		keyboards.PrefixExtendListPage, keyboards.PrefixExtendMonths, keyboards.PrefixDeleteBlackout,
	} {
		known = known || strings.HasPrefix(data, prefix)
	}
	if !known {
		return callbackReply{}
	}

	_, ok, err := h.requireAdmin(ctx, ev)
	if err != nil {
		logging.FromContext(ctx).Error("get user failed", "error", err)
		return alert(messages.ErrorDefault())
	}
	if !ok {
		return alert(messages.AccessDenied())
	}

	switch {
	case strings.HasPrefix(data, keyboards.PrefixViewUser):
		return h.viewUser(ctx, ev)
	case strings.HasPrefix(data, keyboards.PrefixViewListPage):
		return h.pageSubscribers(ctx, ev)
	case strings.HasPrefix(data, keyboards.PrefixExtendUser):
		return h.pickExtendTarget(ctx, ev)
	case strings.HasPrefix(data, keyboards.PrefixExtendListPage):
		return h.pageExtendCandidates(ctx, ev)
	case data == keyboards.CallbackExtendCustom || strings.HasPrefix(data, keyboards.PrefixExtendMonths):
		return h.chooseExtendPeriod(ctx, ev)
	case data == keyboards.CallbackAddBlackout:
		return h.startBlackout(ctx, ev)
	default:
		return h.deleteBlackout(ctx, ev)
	}
}

func (h *Handlers) adminCancel(ctx context.Context, ev *types.Event) {
	if !h.clearSession(ctx, ev) {
		return
	}
	h.editMarkup(ctx, ev, nil)
	user, err := h.lookupUser(ctx, ev.UserID)
	if err != nil {
		logging.FromContext(ctx).Warn("get user failed", "error", err)
	}
	h.reply(ctx, ev.ChatID, messages.ActionCancelled(), keyboards.MainMenu(roleOf(user)))
}

// Subscribers

// listedRoles are the roles shown in admin user lists. The superadmin is never listed.
var listedRoles = []types.Role{types.RoleClient, types.RoleAdmin}

func (h *Handlers) activeSubscribers(ctx context.Context) ([]*types.User, error) {
	users, err := h.gateway.ListUsers(ctx, listedRoles...)
	if err != nil {
		return nil, err
	}
	now := h.now().UTC()
	active := make([]*types.User, 0, len(users))
	for _, u := range users {
		if u.HasActiveSubscription(now) {
			active = append(active, u)
		}
	}
	return active, nil
}

func (h *Handlers) showSubscribers(ctx context.Context, ev *types.Event) {
	users, err := h.activeSubscribers(ctx)
	if err != nil {
		h.fail(ctx, ev, "list users", err)
		return
	}
	if len(users) == 0 {
		h.reply(ctx, ev.ChatID, messages.NoActiveSubscribers(), nil)
		return
	}
	kb, _ := keyboards.UserList(users, 0, keyboards.PrefixViewUser, keyboards.PrefixViewListPage)
	h.reply(ctx, ev.ChatID, messages.SubscribersTitle(), kb)
}

func (h *Handlers) pageSubscribers(ctx context.Context, ev *types.Event) callbackReply {
	page, ok := keyboards.ParseID(ev.Data, keyboards.PrefixViewListPage)
	if !ok {
		return alert(messages.InvalidFormat())
	}
	users, err := h.activeSubscribers(ctx)
	if err != nil {
		logging.FromContext(ctx).Error("list users failed", "error", err)
		return alert(messages.ErrorDefault())
	}
	if len(users) == 0 {
		return alert(messages.NoActiveSubscribers())
	}
	kb, _ := keyboards.UserList(users, int(page), keyboards.PrefixViewUser, keyboards.PrefixViewListPage)
	h.editMarkup(ctx, ev, kb)
	return callbackReply{}
}

func (h *Handlers) viewUser(ctx context.Context, ev *types.Event) callbackReply {
	id, ok := keyboards.ParseID(ev.Data, keyboards.PrefixViewUser)
	if !ok {
		return alert(messages.InvalidFormat())
	}
	user, err := h.lookupUser(ctx, id)
	if err != nil {
		logging.FromContext(ctx).Error("get user failed", "target_id", id, "error", err)
		return alert(messages.ErrorDefault())
	}
	if user == nil {
		return alert(messages.UserNotFound())
	}
	h.editText(ctx, ev, messages.UserDetails(user, h.now().UTC()), keyboards.AdminCancel())
	return callbackReply{}
}

// Subscription extension

func (h *Handlers) extendCandidates(ctx context.Context) ([]*types.User, error) {
	users, err := h.gateway.ListUsers(ctx, listedRoles...)
	if err != nil {
		return nil, err
	}
	now := h.now().UTC()
	out := make([]*types.User, 0, len(users))
	for _, u := range users {
		if !u.HasActiveSubscription(now) {
			out = append(out, u)
		}
	}
	return out, nil
}

func (h *Handlers) showExtendCandidates(ctx context.Context, ev *types.Event) {
	if !h.clearSession(ctx, ev) {
		return
	}
	users, err := h.extendCandidates(ctx)
	if err != nil {
		h.fail(ctx, ev, "list users", err)
		return
	}
	if len(users) == 0 {
		h.reply(ctx, ev.ChatID, messages.NoExtendCandidates(), nil)
		return
	}
	kb, _ := keyboards.UserList(users, 0, keyboards.PrefixExtendUser, keyboards.PrefixExtendListPage)
	h.reply(ctx, ev.ChatID, messages.ChooseExtendTarget(), kb)
}

func (h *Handlers) pageExtendCandidates(ctx context.Context, ev *types.Event) callbackReply {
	page, ok := keyboards.ParseID(ev.Data, keyboards.PrefixExtendListPage)
	if !ok {
		return alert(messages.InvalidFormat())
	}
	users, err := h.extendCandidates(ctx)
	if err != nil {
		logging.FromContext(ctx).Error("list users failed", "error", err)
		return alert(messages.ErrorDefault())
	}
	if len(users) == 0 {
		return alert(messages.NoExtendCandidates())
	}
	kb, _ := keyboards.UserList(users, int(page), keyboards.PrefixExtendUser, keyboards.PrefixExtendListPage)
	h.editMarkup(ctx, ev, kb)
	return callbackReply{}
}

func (h *Handlers) pickExtendTarget(ctx context.Context, ev *types.Event) callbackReply {
	id, ok := keyboards.ParseID(ev.Data, keyboards.PrefixExtendUser)
	if !ok {
		return alert(messages.InvalidFormat())
	}
	target, err := h.lookupUser(ctx, id)
	if err != nil {
		logging.FromContext(ctx).Error("get user failed", "target_id", id, "error", err)
		return alert(messages.ErrorDefault())
	}
	if target == nil {
		return alert(messages.UserNotFound())
	}
	if err := h.states.Set(ctx, ev.Key(), types.StateExtendAwaitingChoice, types.DataBag{TargetUserID: id}); err != nil {
		logging.FromContext(ctx).Error("save session failed", "error", err)
		return alert(messages.ErrorDefault())
	}
	h.editText(ctx, ev, messages.ChooseExtendPeriod(target, h.now().UTC()), keyboards.ExtendPeriods())
	return callbackReply{}
}

func (h *Handlers) chooseExtendPeriod(ctx context.Context, ev *types.Event) callbackReply {
	state, data, err := h.states.Get(ctx, ev.Key())
	if err != nil {
		logging.FromContext(ctx).Error("load session failed", "error", err)
		return alert(messages.ErrorDefault())
	}
	if state != types.StateExtendAwaitingChoice || data.TargetUserID == 0 {
		return alert(messages.AdSessionExpired())
	}

	if ev.Data == keyboards.CallbackExtendCustom {
		if err := h.states.Set(ctx, ev.Key(), types.StateExtendAwaitingCustomDate, data); err != nil {
			logging.FromContext(ctx).Error("save session failed", "error", err)
			return alert(messages.ErrorDefault())
		}
		h.editText(ctx, ev, messages.AskCustomDate(), keyboards.AdminCancel())
		return callbackReply{}
	}

	months, ok := keyboards.ParseID(ev.Data, keyboards.PrefixExtendMonths)
	if !ok || months < 1 || months > maxExtendMonths {
		return alert(messages.InvalidFormat())
	}
	h.applyExtension(ctx, ev, data.TargetUserID, int(months), nil)
	return callbackReply{}
}

func (h *Handlers) handleCustomDate(ctx context.Context, ev *types.Event, data types.DataBag) {
	if !h.adminTextInput(ctx, ev) {
		return
	}
	until, err := rules.ParseCustomExpiry(ev.Text, h.now().UTC())
	switch {
	case errors.Is(err, types.ErrPastOrInvalidDate):
		h.reply(ctx, ev.ChatID, messages.DateMustBeFuture(), keyboards.AdminCancel())
		return
	case err != nil:
		h.reply(ctx, ev.ChatID, messages.InvalidDate(), keyboards.AdminCancel())
		return
	}
	h.applyExtension(ctx, ev, data.TargetUserID, 0, &until)
}

// applyExtension stores the new expiry and tells the target about it. A nil
// until means months are added to the current expiry or to now, whichever is
// later.
func (h *Handlers) applyExtension(ctx context.Context, ev *types.Event, targetID int64, months int, until *time.Time) {
	target, err := h.lookupUser(ctx, targetID)
	if err != nil {
		h.fail(ctx, ev, "get user", err)
		return
	}
	if target == nil {
		h.clearSession(ctx, ev)
		h.reply(ctx, ev.ChatID, messages.UserNotFound(), nil)
		return
	}

	var expiry time.Time
	if until != nil {
		expiry = until.UTC()
	} else {
		expiry = rules.ExtendByMonths(target.SubscriptionUntil, h.now().UTC(), months)
	}
	if err := h.gateway.ExtendSubscription(ctx, targetID, expiry); err != nil {
		h.fail(ctx, ev, "extend subscription", err)
		return
	}
	if !h.clearSession(ctx, ev) {
		return
	}
	logging.FromContext(ctx).Info("subscription extended", "target_id", targetID, "until", expiry)

	h.notify(ctx, targetID, messages.SubscriptionExtendedNotice(expiry))

	admin, err := h.lookupUser(ctx, ev.UserID)
	if err != nil {
		logging.FromContext(ctx).Warn("get user failed", "error", err)
	}
	h.reply(ctx, ev.ChatID, messages.SubscriptionExtended(target, expiry), keyboards.MainMenu(roleOf(admin)))
}

// Roles

func (h *Handlers) requireSuperadmin(ctx context.Context, ev *types.Event) (bool, error) {
	user, err := h.lookupUser(ctx, ev.UserID)
	if err != nil {
		return false, err
	}
	return user != nil && user.Role.Can(types.CapManageRoles), nil
}

func (h *Handlers) handleRolesHelp(ctx context.Context, ev *types.Event) {
	ok, err := h.requireSuperadmin(ctx, ev)
	if err != nil {
		h.fail(ctx, ev, "get user", err)
		return
	}
	if !ok {
		h.reply(ctx, ev.ChatID, messages.SuperadminOnly(), nil)
		return
	}
	h.reply(ctx, ev.ChatID, messages.RolesHelp(), nil)
}

func (h *Handlers) handleSetRole(ctx context.Context, ev *types.Event) {
	ok, err := h.requireSuperadmin(ctx, ev)
	if err != nil {
		h.fail(ctx, ev, "get user", err)
		return
	}
	if !ok {
		h.reply(ctx, ev.ChatID, messages.SuperadminOnly(), nil)
		return
	}
	if len(ev.Args) != 2 {
		h.reply(ctx, ev.ChatID, messages.SetRoleUsage(), nil)
		return
	}
	targetID, err := strconv.ParseInt(ev.Args[0], 10, 64)
	if err != nil {
		h.reply(ctx, ev.ChatID, messages.InvalidFormat(), nil)
		return
	}
	role, err := types.ParseRole(ev.Args[1])
	if err != nil {
		h.reply(ctx, ev.ChatID, messages.InvalidRole(), nil)
		return
	}

	err = h.gateway.SetRole(ctx, targetID, role)
	switch {
	case errors.Is(err, types.ErrNotFound):
		h.reply(ctx, ev.ChatID, messages.UserNotFound(), nil)
	case err != nil:
		h.fail(ctx, ev, "set role", err)
	default:
		logging.FromContext(ctx).Info("role changed", "target_id", targetID, "role", string(role))
		h.reply(ctx, ev.ChatID, messages.RoleChanged(targetID, role), nil)
	}
}
