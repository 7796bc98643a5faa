// Package format holds presentation helpers shared by the fan-out
// dispatcher and the chat command handlers.
package format

import (
	"regexp"
	"strings"
)

var phoneRun = regexp.MustCompile(`\b\d{10,15}\b`)

// MaskPhone hides the middle of a phone number, keeping the first and last
// four digits. Numbers shorter than eight digits are returned unchanged.
func MaskPhone(phone string) string {
	if len(phone) >= 8 {
		return phone[:4] + "•⁕⁕•" + phone[len(phone)-4:]
	}
	return phone
}

// EscapeHTML escapes the characters Telegram's HTML parse mode treats as
// markup.
func EscapeHTML(text string) string {
	text = strings.ReplaceAll(text, "&", "&amp;")
	text = strings.ReplaceAll(text, "<", "&lt;")
	return strings.ReplaceAll(text, ">", "&gt;")
}

// ServiceAbbr maps a sender label to a two-letter hashtag abbreviation.
func ServiceAbbr(service string) string {
	lower := strings.ToLower(service)
	switch {
	case strings.Contains(lower, "whatsapp"), strings.Contains(lower, "wa"):
		return "WS"
	case strings.Contains(lower, "telegram"), strings.Contains(lower, "tg"):
		return "TG"
	case strings.Contains(lower, "facebook"), strings.Contains(lower, "fb"):
		return "FB"
	case strings.Contains(lower, "google"), strings.Contains(lower, "gmail"):
		return "GG"
	case strings.Contains(lower, "instagram"), strings.Contains(lower, "ig"):
		return "IG"
	case strings.Contains(lower, "twitter"), strings.Contains(lower, "x"):
		return "TW"
	}
	if len(service) >= 2 {
		return strings.ToUpper(service[:2])
	}
	return "SV"
}

// ExtractPhoneNumbers pulls 10-15 digit phone numbers out of free text,
// deduplicated, in first-seen order.
func ExtractPhoneNumbers(text string) []string {
	seen := make(map[string]struct{})
	var numbers []string
	for _, m := range phoneRun.FindAllString(text, -1) {
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		numbers = append(numbers, m)
	}
	return numbers
}
