package messages

import (
	"fmt"
	"strings"
	"time"

	"github.com/BatmanBruc/jondor-ad-bot/types"
)

const ParseModeHTML = "HTML"

// Reply keyboard labels. Incoming text equal to a label is treated as the
// button press, not as ad content.
const (
	BtnShareContact = "📱 Raqamni ulashish"
	BtnSubmitAd     = "📤 Reklama berish"
	BtnSendAd       = "📨 Reklamani yuborish"
	BtnCancel       = "❌ Bekor qilish"
	BtnSubscribers  = "👥 Obunalar"
	BtnExtend       = "➕ Uzaytirish"
	BtnBlackout     = "🚫 Blackout"
	BtnRoles        = "🔑 Rollar"
)

const (
	displayDate     = "02.01.2006"
	displayDateTime = "02.01.2006 15:04"
)

func Escape(s string) string {
	replacer := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		"\"", "&quot;",
		"'", "&#39;",
	)
	return replacer.Replace(strings.TrimSpace(s))
}

func ErrorDefault() string {
	return "🚫 <b>Xatolik yuz berdi</b>\nQaytadan urinib ko'ring."
}

// Registration

func SuperadminWelcome() string {
	return "👑 Siz superadmin bo'lib kirdingiz."
}

func AskContact() string {
	return "Ro'yxatdan o'tish uchun telefon raqamingizni yuboring:"
}

func ContactNotOwn() string {
	return "⚠️ Iltimos, o'z raqamingizni yuboring."
}

func ContactRequired() string {
	return "⚠️ Iltimos, kontaktni yuborish uchun tugmani bosing."
}

func RegistrationDone(adminContact string) string {
	return "✅ Ro'yxatdan o'tish yakunlandi! Jondor olxga reklama berish uchun 10 ming so'm to'lov qilishingiz kerak. " + Escape(adminContact)
}

func Welcome(firstName string) string {
	return fmt.Sprintf("👋 Xush kelibsiz, %s!", Escape(firstName))
}

// Eligibility

func NotRegistered() string {
	return "⚠️ Avval ro'yxatdan o'ting — /start buyrug'ini kiriting."
}

func SubscriptionExpired(adminContact string) string {
	return "❌ Sizda faol obuna yo'q. Administratorga murojaat qiling " + Escape(adminContact)
}

func BlackoutActive(until time.Time) string {
	return fmt.Sprintf("🚫 Hozir nashr qilish taqiqlangan. %s UTC dan keyin harakat qilib ko'ring.", until.UTC().Format(displayDateTime))
}

func CooldownActive(cooldown, remaining time.Duration) string {
	secs := int(remaining / time.Second)
	hours := secs / 3600
	minutes := (secs % 3600) / 60
	return fmt.Sprintf("⏳ Reklama orasida %d soat o'tishi kerak.\nKeyingi nashr: %dsoat %ddaqiqadan keyin.", int(cooldown/time.Hour), hours, minutes)
}

// Ad submission

func AdRules() string {
	return "📝 Reklama berish shartlari:\n" +
		"• 1. Mahsulot surati\n" +
		"• 2. Mahsulot nomi\n" +
		"• 3. Manzil\n" +
		"• 4. Narxi\n" +
		"• 5. Telefon raqam\n\n" +
		"Tugallaganingizdan so'ng — «" + BtnSendAd + "» tugmasini bosing."
}

func AdEmpty() string {
	return "⚠️ Siz hech narsa qo'shmadingiz. Rasm, video, matn yoki audio yuboring."
}

func AdPreview(data types.DataBag) string {
	parts := make([]string, 0, 4)
	if n := len(data.Photos); n > 0 {
		parts = append(parts, fmt.Sprintf("🖼 Rasm: %d ta", n))
	}
	if n := len(data.Videos); n > 0 {
		parts = append(parts, fmt.Sprintf("🎬 Video: %d ta", n))
	}
	if n := len(data.Audios); n > 0 {
		parts = append(parts, fmt.Sprintf("🎵 Audio: %d ta", n))
	}
	if len(data.Texts) > 0 {
		parts = append(parts, "📝 Matn:\n"+Escape(data.CombinedText()))
	}
	return "📋 <b>Arizani oldindan ko'rish:</b>\n\n" + strings.Join(parts, "\n") + "\n\nYuborishni tasdiqlang:"
}

func AdPublished() string {
	return "🎉 Reklamangiz muvaffaqiyatli nashr etildi!"
}

func AdPublishFailed(adminContact string) string {
	return "❌ Nashr qilishda xatolik yuz berdi.\nAdministratorga murojaat qiling " + Escape(adminContact)
}

func AdCancelled() string {
	return "❌ Ariza bekor qilindi."
}

func AdSessionExpired() string {
	return "⚠️ Ariza topilmadi yoki muddati o'tgan. Qaytadan boshlang."
}

// Admin console

func AccessDenied() string {
	return "⛔ Kirish taqiqlangan."
}

func SuperadminOnly() string {
	return "⛔ Faqat superadmin uchun."
}

func UserNotFound() string {
	return "❌ Foydalanuvchi topilmadi."
}

func ActionCancelled() string {
	return "❌ Harakat bekor qilindi."
}

func NoActiveSubscribers() string {
	return "📋 Faol obunaga ega foydalanuvchilar topilmadi."
}

func SubscribersTitle() string {
	return "📋 <b>Mijozlar ro'yxati:</b>\nBatafsil ma'lumot uchun tanlang:"
}

func UserDetails(u *types.User, now time.Time) string {
	status := "❌ obuna yo'q"
	if u.HasActiveSubscription(now) {
		status = "✅ " + u.SubscriptionUntil.UTC().Format(displayDateTime) + " gacha"
	}
	lastAd := "yo'q"
	if u.LastAdAt != nil {
		lastAd = u.LastAdAt.UTC().Format(displayDateTime)
	}
	return fmt.Sprintf("👤 <b>Foydalanuvchi ma'lumotlari:</b>\n\n"+
		"🆔 ID: <code>%d</code>\n"+
		"👤 Ism: %s\n"+
		"📞 Tel: %s\n"+
		"🌐 Username: @%s\n"+
		"👮 Rol: %s\n"+
		"📅 Obuna: %s\n"+
		"🚀 Oxirgi reklama: %s\n"+
		"🆕 Ro'yxatdan o'tdi: %s",
		u.TelegramID, orDash(u.FullName), orDash(u.Phone), orDash(u.Profile.Username),
		u.Role, status, lastAd, u.CreatedAt.UTC().Format(displayDate))
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "—"
	}
	return Escape(s)
}

func NoExtendCandidates() string {
	return "📋 Obunasi yo'q foydalanuvchilar topilmadi."
}

func ChooseExtendTarget() string {
	return "👤 Obunani uzaytirish uchun foydalanuvchini tanlang:"
}

func ChooseExtendPeriod(u *types.User, now time.Time) string {
	current := "obuna yo'q"
	if u.HasActiveSubscription(now) {
		current = u.SubscriptionUntil.UTC().Format(displayDate) + " gacha"
	}
	return fmt.Sprintf("👤 <b>%s</b>\nJoriy obuna: %s\n\nUzaytirish muddatini tanlang:", Escape(u.DisplayName()), current)
}

func AskCustomDate() string {
	return "📅 Obuna tugash sanasini <b>KK.OO.YYYY</b> formatida kiriting:"
}

func InvalidDate() string {
	return "⚠️ Noto'g'ri format. Sanani KK.OO.YYYY ko'rinishida kiriting:"
}

func DateMustBeFuture() string {
	return "⚠️ Sana kelajakda bo'lishi kerak."
}

func SubscriptionExtendedNotice(until time.Time) string {
	return fmt.Sprintf("✅ Sizning obunangiz <b>%s</b> gacha uzaytirildi.\nEndi reklama berishingiz mumkin! 🚀", until.UTC().Format(displayDate))
}

func SubscriptionExtended(u *types.User, until time.Time) string {
	return fmt.Sprintf("✅ <b>%s</b> obunasi <b>%s</b> gacha uzaytirildi.", Escape(u.DisplayName()), until.UTC().Format(displayDate))
}

func BlackoutList(hasAny bool) string {
	if hasAny {
		return "🚫 <b>Nashr qilish taqiqlangan davrlar:</b>\nO'chirish uchun davrni bosing.\n"
	}
	return "🚫 <b>Faol taqiqlangan davrlar yo'q.</b>\n"
}

func AskBlackoutStart() string {
	return "📅 Taqiq <b>boshlanish sanasi va vaqtini</b> kiriting:\n<code>KK.OO.YYYY SS:DA</code> (UTC)"
}

func AskBlackoutEnd() string {
	return "📅 Endi <b>tugash sanasi va vaqtini</b> kiriting:\n<code>KK.OO.YYYY SS:DA</code> (UTC)"
}

func InvalidDateTime() string {
	return "⚠️ Noto'g'ri format. Foydalaning: KK.OO.YYYY SS:DA"
}

func BlackoutEndBeforeStart() string {
	return "⚠️ Tugash vaqti boshlanishidan kechroq bo'lishi kerak."
}

func BlackoutCreated(p *types.BlackoutPeriod) string {
	return fmt.Sprintf("✅ Taqiq o'rnatildi:\n🕐 %s — %s UTC", p.Start.UTC().Format(displayDateTime), p.End.UTC().Format(displayDateTime))
}

func BlackoutDeleted() string {
	return "🗑 O'chirildi"
}

func RolesHelp() string {
	return "🔑 <b>Rollarni boshqarish</b>\n\n" +
		"Buyruqdan foydalaning:\n" +
		"<code>/setrole &lt;telegram_id&gt; &lt;rol&gt;</code>\n\n" +
		"Mavjud rollar: <code>client</code>, <code>admin</code>, <code>superadmin</code>\n\n" +
		"Misol: <code>/setrole 123456789 admin</code>"
}

func SetRoleUsage() string {
	return "Foydalanish: /setrole &lt;telegram_id&gt; &lt;client|admin|superadmin&gt;"
}

func InvalidFormat() string {
	return "⚠️ Noto'g'ri format."
}

func InvalidRole() string {
	return "⚠️ Rol: client, admin yoki superadmin."
}

func RoleChanged(targetID int64, role types.Role) string {
	return fmt.Sprintf("✅ %d foydalanuvchi roli <b>%s</b> ga o'zgartirildi.", targetID, role)
}
