package keyboards

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-telegram/bot/models"

	"github.com/BatmanBruc/jondor-ad-bot/internal/messages"
	"github.com/BatmanBruc/jondor-ad-bot/internal/rules"
	"github.com/BatmanBruc/jondor-ad-bot/types"
)

// Callback payloads.
const (
	CallbackConfirmAd    = "confirm_ad"
	CallbackCancelAd     = "cancel_ad"
	CallbackAdminCancel  = "admin_cancel"
	CallbackNoop         = "noop"
	CallbackExtendCustom = "extend_custom"
	CallbackAddBlackout  = "add_blackout"
	PrefixExtendMonths   = "extend_"
	PrefixExtendUser     = "extend_user_"
	PrefixViewUser       = "view_user_"
	PrefixExtendListPage = "ul_p_"
	PrefixViewListPage   = "vul_p_"
	PrefixDeleteBlackout = "del_blackout_"
)

const blackoutButtonTime = "02.01 15:04"

type Button struct {
	Text         string
	CallbackData string
}

// BuildInlineKeyboard lays buttons out perRow to a row.
func BuildInlineKeyboard(buttons []Button, perRow int) *models.InlineKeyboardMarkup {
	if perRow <= 0 {
		perRow = 1
	}
	rows := make([][]models.InlineKeyboardButton, 0, (len(buttons)+perRow-1)/perRow)
	row := make([]models.InlineKeyboardButton, 0, perRow)
	for i, button := range buttons {
		if i > 0 && i%perRow == 0 {
			rows = append(rows, row)
			row = make([]models.InlineKeyboardButton, 0, perRow)
		}
		row = append(row, models.InlineKeyboardButton{
			Text:         button.Text,
			CallbackData: button.CallbackData,
		})
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func replyKeyboard(rows ...[]string) *models.ReplyKeyboardMarkup {
	kb := make([][]models.KeyboardButton, 0, len(rows))
	for _, r := range rows {
		line := make([]models.KeyboardButton, 0, len(r))
		for _, text := range r {
			line = append(line, models.KeyboardButton{Text: text})
		}
		kb = append(kb, line)
	}
	return &models.ReplyKeyboardMarkup{Keyboard: kb, ResizeKeyboard: true}
}

func ContactRequest() *models.ReplyKeyboardMarkup {
	return &models.ReplyKeyboardMarkup{
		Keyboard: [][]models.KeyboardButton{
			{{Text: messages.BtnShareContact, RequestContact: true}},
		},
		ResizeKeyboard:  true,
		OneTimeKeyboard: true,
	}
}

// MainMenu shows the ad button to everyone and the console buttons to roles
// allowed to use them.
func MainMenu(role types.Role) *models.ReplyKeyboardMarkup {
	rows := [][]string{{messages.BtnSubmitAd}}
	if role.Can(types.CapAdminConsole) {
		rows = append(rows,
			[]string{messages.BtnSubscribers, messages.BtnExtend},
			[]string{messages.BtnBlackout},
		)
	}
	if role.Can(types.CapManageRoles) {
		rows[len(rows)-1] = append(rows[len(rows)-1], messages.BtnRoles)
	}
	return replyKeyboard(rows...)
}

func Collecting() *models.ReplyKeyboardMarkup {
	return replyKeyboard(
		[]string{messages.BtnSendAd},
		[]string{messages.BtnCancel},
	)
}

func ConfirmAd() *models.InlineKeyboardMarkup {
	return BuildInlineKeyboard([]Button{
		{Text: "✅ Tasdiqlash", CallbackData: CallbackConfirmAd},
		{Text: "❌ Bekor qilish", CallbackData: CallbackCancelAd},
	}, 2)
}

func ExtendPeriods() *models.InlineKeyboardMarkup {
	kb := BuildInlineKeyboard([]Button{
		{Text: "1 oy", CallbackData: PrefixExtendMonths + "1"},
		{Text: "2 oy", CallbackData: PrefixExtendMonths + "2"},
		{Text: "3 oy", CallbackData: PrefixExtendMonths + "3"},
	}, 3)
	kb.InlineKeyboard = append(kb.InlineKeyboard,
		[]models.InlineKeyboardButton{{Text: "📅 Boshqa sana", CallbackData: CallbackExtendCustom}},
		[]models.InlineKeyboardButton{{Text: "❌ Bekor qilish", CallbackData: CallbackAdminCancel}},
	)
	return kb
}

func AdminCancel() *models.InlineKeyboardMarkup {
	return BuildInlineKeyboard([]Button{{Text: "❌ Bekor qilish", CallbackData: CallbackAdminCancel}}, 1)
}

// UserList renders one page of users. itemPrefix and pagePrefix are followed by
// the user id and the page number. The returned page is the clamped one.
func UserList(users []*types.User, page int, itemPrefix, pagePrefix string) (*models.InlineKeyboardMarkup, int) {
	page, start, end, pages := rules.Page(len(users), page, rules.PageSize)

	buttons := make([]Button, 0, end-start)
	for _, u := range users[start:end] {
		buttons = append(buttons, Button{
			Text:         u.DisplayName(),
			CallbackData: itemPrefix + strconv.FormatInt(u.TelegramID, 10),
		})
	}
	kb := BuildInlineKeyboard(buttons, 1)

	if pages > 1 {
		nav := make([]models.InlineKeyboardButton, 0, 3)
		if page > 0 {
			nav = append(nav, models.InlineKeyboardButton{Text: "◀️", CallbackData: pagePrefix + strconv.Itoa(page-1)})
		}
		nav = append(nav, models.InlineKeyboardButton{
			Text:         fmt.Sprintf("%d/%d", page+1, pages),
			CallbackData: CallbackNoop,
		})
		if page < pages-1 {
			nav = append(nav, models.InlineKeyboardButton{Text: "▶️", CallbackData: pagePrefix + strconv.Itoa(page+1)})
		}
		kb.InlineKeyboard = append(kb.InlineKeyboard, nav)
	}
	kb.InlineKeyboard = append(kb.InlineKeyboard,
		[]models.InlineKeyboardButton{{Text: "❌ Bekor qilish", CallbackData: CallbackAdminCancel}})
	return kb, page
}

func BlackoutList(periods []*types.BlackoutPeriod) *models.InlineKeyboardMarkup {
	buttons := make([]Button, 0, len(periods)+1)
	for _, p := range periods {
		buttons = append(buttons, Button{
			Text: fmt.Sprintf("🗑 %s — %s",
				p.Start.UTC().Format(blackoutButtonTime), p.End.UTC().Format(blackoutButtonTime)),
			CallbackData: PrefixDeleteBlackout + strconv.FormatInt(p.ID, 10),
		})
	}
	buttons = append(buttons, Button{Text: "➕ Qo'shish", CallbackData: CallbackAddBlackout})
	return BuildInlineKeyboard(buttons, 1)
}

// ParseID reads the numeric suffix of a callback payload after prefix.
func ParseID(data, prefix string) (int64, bool) {
	if !strings.HasPrefix(data, prefix) {
		return 0, false
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(data, prefix), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
