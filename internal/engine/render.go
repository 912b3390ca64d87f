package engine

import (
	"regexp"
	"strings"

	"sendwave/internal/models"
)

var placeholderRe = regexp.MustCompile(`\{[a-zA-Z0-9_]+\}`)

// Render substitutes {placeholder} tokens in a variant body with recipient
// data. {name} resolves to the recipient's display name; any other token is
// matched case-insensitively against the recipient's attribute keys.
// Unmatched placeholders are left verbatim.
func Render(body string, recipient *models.Recipient) string {
	return placeholderRe.ReplaceAllStringFunc(body, func(token string) string {
		key := token[1 : len(token)-1]

		if strings.EqualFold(key, "name") {
			return recipient.DisplayName()
		}

		for attrKey, value := range recipient.Attributes {
			if strings.EqualFold(attrKey, key) {
				return value
			}
		}

		return token
	})
}
