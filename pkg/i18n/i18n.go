// Package i18n holds the store's user-facing message catalog and request
// locale resolution. Arabic is the primary language; English is supported.
package i18n

import (
	"net/http"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// LangParam is the query parameter that overrides Accept-Language.
const LangParam = "lang"

// Message keys.
const (
	MsgDiscountApplied     = "discount.applied"
	MsgDiscountEmpty       = "discount.empty"
	MsgDiscountAlready     = "discount.already_applied"
	MsgDiscountInactive    = "discount.inactive"
	MsgDiscountExpired     = "discount.expired"
	MsgDiscountExhausted   = "discount.exhausted"
	MsgDiscountMinOrder    = "discount.min_order"
	MsgDiscountInvalid     = "discount.invalid"
	MsgDiscountInProgress  = "discount.in_progress"
	MsgPurchaseComplete    = "purchase.complete"
	MsgGateLogin           = "gate.login"
	MsgGateJoinDiscord     = "gate.join_discord"
	MsgCartProductNotFound = "cart.product_not_found"
)

var (
	supported = []language.Tag{language.Arabic, language.English}
	matcher   = language.NewMatcher(supported)
)

var messages = map[language.Tag]map[string]string{
	language.Arabic: {
		MsgDiscountApplied:     "تم تطبيق كود الخصم بنجاح!",
		MsgDiscountEmpty:       "يرجى إدخال كود الخصم",
		MsgDiscountAlready:     "هذا الكود مطبق بالفعل",
		MsgDiscountInactive:    "كود الخصم غير نشط",
		MsgDiscountExpired:     "كود الخصم منتهي",
		MsgDiscountExhausted:   "كود الخصم مستهلك",
		MsgDiscountMinOrder:    "الحد الأدنى للطلب هو %s USD",
		MsgDiscountInvalid:     "كود الخصم غير صالح",
		MsgDiscountInProgress:  "جاري تطبيق كود الخصم، يرجى الانتظار",
		MsgPurchaseComplete:    "تمت عملية الشراء بنجاح",
		MsgGateLogin:           "يرجى تسجيل الدخول عبر ديسكورد",
		MsgGateJoinDiscord:     "يرجى الانضمام إلى سيرفر الديسكورد",
		MsgCartProductNotFound: "المنتج غير موجود",
	},
	language.English: {
		MsgDiscountApplied:     "Discount code applied!",
		MsgDiscountEmpty:       "Please enter a discount code",
		MsgDiscountAlready:     "This code is already applied",
		MsgDiscountInactive:    "This discount code is not active",
		MsgDiscountExpired:     "This discount code has expired",
		MsgDiscountExhausted:   "This discount code has been used up",
		MsgDiscountMinOrder:    "The minimum order is %s USD",
		MsgDiscountInvalid:     "Invalid discount code",
		MsgDiscountInProgress:  "A discount code is already being applied, please wait",
		MsgPurchaseComplete:    "Purchase complete",
		MsgGateLogin:           "Please sign in with Discord",
		MsgGateJoinDiscord:     "Please join the Discord server",
		MsgCartProductNotFound: "Product not found",
	},
}

// Translator renders catalog messages for a locale.
type Translator struct {
	cat *catalog.Builder
}

// New builds a translator over the embedded Arabic and English catalog.
func New() *Translator {
	b := catalog.NewBuilder(catalog.Fallback(language.Arabic))
	for tag, msgs := range messages {
		for key, msg := range msgs {
			// SetString only fails on malformed tags.
			_ = b.SetString(tag, key, msg)
		}
	}
	return &Translator{cat: b}
}

// Printer returns a printer bound to tag.
func (t *Translator) Printer(tag language.Tag) *message.Printer {
	return message.NewPrinter(Match(tag), message.Catalog(t.cat))
}

// Sprintf renders key for tag. Numeric arguments should be preformatted as
// strings so they keep Latin digits in every locale.
func (t *Translator) Sprintf(tag language.Tag, key string, args ...any) string {
	return t.Printer(tag).Sprintf(key, args...)
}

// Supported returns the supported tags, primary language first.
func Supported() []language.Tag {
	out := make([]language.Tag, len(supported))
	copy(out, supported)
	return out
}

// Default is the store's primary language.
func Default() language.Tag {
	return supported[0]
}

// Match returns the supported tag closest to the given preferences, or the
// default when nothing matches.
func Match(tags ...language.Tag) language.Tag {
	if len(tags) == 0 {
		return Default()
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return Default()
	}
	return supported[idx]
}

// ResolveTag picks the locale for r: ?lang= first, then Accept-Language,
// then the default.
func ResolveTag(r *http.Request) language.Tag {
	if r == nil {
		return Default()
	}
	if v := strings.TrimSpace(r.URL.Query().Get(LangParam)); v != "" {
		if tag, err := language.Parse(v); err == nil {
			return Match(tag)
		}
	}
	if accept := strings.TrimSpace(r.Header.Get("Accept-Language")); accept != "" {
		if tags, _, err := language.ParseAcceptLanguage(accept); err == nil && len(tags) > 0 {
			return Match(tags...)
		}
	}
	return Default()
}
