package tools

import (
	"fmt"
	"strings"
	"unicode"
)

// NormalizePhone reduces a chat id or phone number to digits in international form
// (no '+'), which is the identity used for users, agents and the admin allow-list.
//
// - drops a chat suffix such as "@c.us" or "@s.whatsapp.net"
// - removes everything that is not a digit
// - local Israeli numbers (leading 0, 9 or 10 digits) get the 972 prefix
func NormalizePhone(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if i := strings.Index(raw, "@"); i >= 0 {
		raw = raw[:i]
	}
	if raw == "" {
		return "", fmt.Errorf("empty phone")
	}

	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	phone := b.String()

	if strings.HasPrefix(phone, "0") && (len(phone) == 9 || len(phone) == 10) {
		phone = "972" + strings.TrimLeft(phone, "0")
	}
	phone = strings.TrimLeft(phone, "0")

	if len(phone) < 8 {
		return "", fmt.Errorf("invalid phone length: %d", len(phone))
	}
	return phone, nil
}
