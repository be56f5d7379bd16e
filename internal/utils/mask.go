package utils

import "strings"

// MaskEmail keeps the first character of the local part: "j***@example.com".
func MaskEmail(email string) string {
	at := strings.Index(email, "@")
	if at <= 0 {
		return "***"
	}
	return email[:1] + "***" + email[at:]
}

// MaskPhone keeps the dialing prefix and the last two digits: "+49•••••••89".
func MaskPhone(phone string) string {
	if len(phone) < 5 {
		return "•••"
	}
	keepHead := 3
	keepTail := 2
	masked := strings.Repeat("•", len(phone)-keepHead-keepTail)
	return phone[:keepHead] + masked + phone[len(phone)-keepTail:]
}
