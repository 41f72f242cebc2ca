package handlers

import (
	"context"
	"errors"
	"fmt"

	"github.com/BatmanBruc/jondor-ad-bot/internal/keyboards"
	"github.com/BatmanBruc/jondor-ad-bot/internal/logging"
	"github.com/BatmanBruc/jondor-ad-bot/internal/messages"
	"github.com/BatmanBruc/jondor-ad-bot/internal/rules"
	"github.com/BatmanBruc/jondor-ad-bot/types"
)

// checkEligibility runs the rules against the current clock. Storage errors
// are returned wrapped, rule denials as they are.
func (h *Handlers) checkEligibility(ctx context.Context, user *types.User) error {
	if user == nil {
		return types.ErrNotRegistered
	}
	now := h.now().UTC()
	blackout, err := h.gateway.GetActiveBlackout(ctx, now)
	if err != nil {
		return fmt.Errorf("active blackout: %w", err)
	}
	return rules.CheckEligibility(user, now, blackout)
}

// denialText maps a rule denial to the message shown to the user.
func (h *Handlers) denialText(err error) (string, bool) {
	var (
		blackout *rules.BlackoutActiveError
		cooldown *rules.CooldownActiveError
	)
	switch {
	case errors.Is(err, types.ErrNotRegistered):
		return messages.NotRegistered(), true
	case errors.Is(err, types.ErrSubscriptionExpired):
		return messages.SubscriptionExpired(h.adminContact), true
	case errors.As(err, &blackout):
		return messages.BlackoutActive(blackout.Until), true
	case errors.As(err, &cooldown):
		return messages.CooldownActive(rules.AdCooldown, cooldown.Remaining), true
	}
	return "", false
}

func (h *Handlers) startAd(ctx context.Context, ev *types.Event) {
	user, err := h.lookupUser(ctx, ev.UserID)
	if err != nil {
		h.fail(ctx, ev, "get user", err)
		return
	}
	if user == nil {
		h.reply(ctx, ev.ChatID, messages.NotRegistered(), nil)
		return
	}

	if err := h.checkEligibility(ctx, user); err != nil {
		text, denied := h.denialText(err)
		if !denied {
			h.fail(ctx, ev, "check eligibility", err)
			return
		}
		if !h.clearSession(ctx, ev) {
			return
		}
		logging.FromContext(ctx).Info("ad entry denied", "reason", err.Error())
		h.reply(ctx, ev.ChatID, text, nil)
		return
	}

	if err := h.states.Set(ctx, ev.Key(), types.StateAdCollecting, types.NewAdBag()); err != nil {
		h.fail(ctx, ev, "save session", err)
		return
	}
	h.reply(ctx, ev.ChatID, messages.AdRules(), keyboards.Collecting())
}

// collectAd handles one turn of the collecting state. It reports false for
// events the collection does not consume.
func (h *Handlers) collectAd(ctx context.Context, ev *types.Event, data types.DataBag) bool {
	if ev.Kind != types.EventMessage {
		return false
	}
	switch {
	case isButtonText(ev, messages.BtnSendAd):
		h.submitAd(ctx, ev, data)
		return true
	case isButtonText(ev, messages.BtnCancel):
		h.cancelAd(ctx, ev)
		return true
	}

	switch ev.Media {
	case types.MediaPhoto:
		data.Photos = append(data.Photos, ev.MediaRef)
	case types.MediaVideo:
		data.Videos = append(data.Videos, ev.MediaRef)
	case types.MediaAudio:
		data.Audios = append(data.Audios, ev.MediaRef)
	default:
		if ev.Text == "" {
			return true
		}
	}
	if ev.Text != "" {
		data.Texts = append(data.Texts, ev.Text)
	}
	data.MessageIDs = append(data.MessageIDs, ev.MessageID)

	if err := h.states.Set(ctx, ev.Key(), types.StateAdCollecting, data); err != nil {
		h.fail(ctx, ev, "save session", err)
	}
	return true
}

func (h *Handlers) submitAd(ctx context.Context, ev *types.Event, data types.DataBag) {
	if data.IsEmpty() {
		h.reply(ctx, ev.ChatID, messages.AdEmpty(), keyboards.Collecting())
		return
	}
	if err := h.states.Set(ctx, ev.Key(), types.StateAdConfirming, data); err != nil {
		h.fail(ctx, ev, "save session", err)
		return
	}
	h.reply(ctx, ev.ChatID, messages.AdPreview(data), keyboards.ConfirmAd())
}

// confirmAd clears the session before anything is sent, so a second press of
// the same button finds nothing to publish.
func (h *Handlers) confirmAd(ctx context.Context, ev *types.Event) callbackReply {
	logger := logging.FromContext(ctx)

	state, data, err := h.states.Get(ctx, ev.Key())
	if err != nil {
		h.fail(ctx, ev, "load session", err)
		return callbackReply{}
	}
	if state != types.StateAdConfirming {
		return alert(messages.AdSessionExpired())
	}
	if !h.clearSession(ctx, ev) {
		return callbackReply{}
	}
	h.editMarkup(ctx, ev, nil)

	user, err := h.lookupUser(ctx, ev.UserID)
	if err != nil {
		h.fail(ctx, ev, "get user", err)
		return callbackReply{}
	}
	if err := h.checkEligibility(ctx, user); err != nil {
		text, denied := h.denialText(err)
		if !denied {
			h.fail(ctx, ev, "check eligibility", err)
			return callbackReply{}
		}
		logger.Info("ad confirm denied", "reason", err.Error())
		h.reply(ctx, ev.ChatID, text, keyboards.MainMenu(roleOf(user)))
		return callbackReply{}
	}

	var text *string
	if len(data.Texts) > 0 {
		combined := data.CombinedText()
		text = &combined
	}
	ad, err := h.gateway.CreateAd(ctx, ev.UserID, data.MediaRefs(), text)
	if err != nil {
		h.fail(ctx, ev, "create ad", err)
		return callbackReply{}
	}

	if err := h.publisher.Publish(ctx, data); err != nil {
		logger.Warn("ad persisted but not published", "ad_id", ad.ID, "error", err)
		h.reply(ctx, ev.ChatID, messages.AdPublishFailed(h.adminContact), keyboards.MainMenu(user.Role))
		return callbackReply{}
	}

	if err := h.gateway.MarkAdPublished(ctx, ad.ID, ev.UserID, h.now().UTC()); err != nil {
		logger.Error("mark ad published failed", "ad_id", ad.ID, "error", err)
	}
	logger.Info("ad published", "ad_id", ad.ID, "media", len(ad.MediaRefs))
	h.reply(ctx, ev.ChatID, messages.AdPublished(), keyboards.MainMenu(user.Role))
	return callbackReply{}
}

// cancelAd drops whatever the session holds. Nothing is persisted.
func (h *Handlers) cancelAd(ctx context.Context, ev *types.Event) {
	if !h.clearSession(ctx, ev) {
		return
	}
	if ev.Kind == types.EventButton {
		h.editMarkup(ctx, ev, nil)
	}
	user, err := h.lookupUser(ctx, ev.UserID)
	if err != nil {
		logging.FromContext(ctx).Warn("get user failed", "error", err)
	}
	h.reply(ctx, ev.ChatID, messages.AdCancelled(), keyboards.MainMenu(roleOf(user)))
}
