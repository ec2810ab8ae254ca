// Package i18n holds the storefront's user-facing strings in English and
// Arabic. Keys are typed so a missing translation is caught by Validate at
// start-up rather than rendered as an empty string.
package i18n

import (
	"fmt"
	"strings"
)

// Locale is a BCP 47 primary language subtag.
type Locale string

const (
	EN Locale = "en"
	AR Locale = "ar"
)

// DefaultLocale is used when the client states no supported preference.
const DefaultLocale = EN

// Key identifies one translated message.
type Key int

const (
	KeyCartEmpty Key = iota
	KeySessionRequired
	KeyInvalidQuantity
	KeyProductNotFound
	KeyNameRequired
	KeyPhoneRequired
	KeyAddressRequired
	KeyFormInvalid
	KeySubmissionFailed
	KeyOrderPlaced
	KeyCartCleared
	keyCount
)

var keyNames = [...]string{
	KeyCartEmpty:        "cart_empty",
	KeySessionRequired:  "session_required",
	KeyInvalidQuantity:  "invalid_quantity",
	KeyProductNotFound:  "product_not_found",
	KeyNameRequired:     "name_required",
	KeyPhoneRequired:    "phone_required",
	KeyAddressRequired:  "address_required",
	KeyFormInvalid:      "form_invalid",
	KeySubmissionFailed: "submission_failed",
	KeyOrderPlaced:      "order_placed",
	KeyCartCleared:      "cart_cleared",
}

func (k Key) String() string {
	if k < 0 || k >= keyCount {
		return fmt.Sprintf("Key(%d)", int(k))
	}
	return keyNames[k]
}

var catalog = map[Locale]map[Key]string{
	EN: {
		KeyCartEmpty:        "Your cart is empty.",
		KeySessionRequired:  "A cart session is required.",
		KeyInvalidQuantity:  "Quantity must be at least 1.",
		KeyProductNotFound:  "This product is no longer available.",
		KeyNameRequired:     "Please enter your full name.",
		KeyPhoneRequired:    "Please enter your phone number.",
		KeyAddressRequired:  "Please enter your delivery address.",
		KeyFormInvalid:      "Please complete all required fields.",
		KeySubmissionFailed: "We could not place your order. Please try again.",
		KeyOrderPlaced:      "Thank you! Your order has been placed.",
		KeyCartCleared:      "Your cart has been cleared.",
	},
	AR: {
		KeyCartEmpty:        "سلة التسوق فارغة.",
		KeySessionRequired:  "يلزم وجود جلسة لسلة التسوق.",
		KeyInvalidQuantity:  "يجب أن تكون الكمية 1 على الأقل.",
		KeyProductNotFound:  "هذا المنتج لم يعد متوفرًا.",
		KeyNameRequired:     "يرجى إدخال اسمك الكامل.",
		KeyPhoneRequired:    "يرجى إدخال رقم هاتفك.",
		KeyAddressRequired:  "يرجى إدخال عنوان التوصيل.",
		KeyFormInvalid:      "يرجى إكمال جميع الحقول المطلوبة.",
		KeySubmissionFailed: "تعذر إتمام طلبك. يرجى المحاولة مرة أخرى.",
		KeyOrderPlaced:      "شكرًا لك! تم تقديم طلبك.",
		KeyCartCleared:      "تم إفراغ سلة التسوق.",
	},
}

// Locales lists the supported locales.
func Locales() []Locale { return []Locale{EN, AR} }

// Validate reports every key missing from any locale.
func Validate() error {
	var missing []string
	for _, loc := range Locales() {
		msgs := catalog[loc]
		for k := Key(0); k < keyCount; k++ {
			if strings.TrimSpace(msgs[k]) == "" {
				missing = append(missing, string(loc)+"."+k.String())
			}
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("i18n: missing translations: %s", strings.Join(missing, ", "))
	}
	return nil
}

// T returns the message for k in loc, falling back to the default locale.
func T(loc Locale, k Key) string {
	if msg, ok := catalog[loc][k]; ok {
		return msg
	}
	if msg, ok := catalog[DefaultLocale][k]; ok {
		return msg
	}
	return k.String()
}

// Parse maps a tag such as "ar-EG" onto a supported locale.
func Parse(tag string) (Locale, bool) {
	primary, _, _ := strings.Cut(strings.ToLower(strings.TrimSpace(tag)), "-")
	primary, _, _ = strings.Cut(primary, "_")
	for _, loc := range Locales() {
		if string(loc) == primary {
			return loc, true
		}
	}
	return "", false
}

// FromAcceptLanguage picks the supported locale with the highest q-value,
// preferring earlier entries on ties.
func FromAcceptLanguage(header string) Locale {
	best, bestQ := DefaultLocale, -1.0
	for _, part := range strings.Split(header, ",") {
		tag, params, _ := strings.Cut(part, ";")
		loc, ok := Parse(tag)
		if !ok {
			continue
		}
		q := 1.0
		if v, found := strings.CutPrefix(strings.TrimSpace(params), "q="); found {
			if _, err := fmt.Sscanf(v, "%g", &q); err != nil {
				continue
			}
		}
		if q > bestQ {
			best, bestQ = loc, q
		}
	}
	return best
}
