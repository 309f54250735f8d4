package models

import "strings"

// NormalizePhone reduces a phone number in any common written form to the
// canonical 7XXXXXXXXXX shape the calling gateway expects: digits only,
// an 8 prefix replaced with 7, a bare 10-digit number prefixed with 7.
func NormalizePhone(raw string) (string, error) {
	var digits strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	phone := digits.String()

	switch {
	case len(phone) == 11 && phone[0] == '8':
		phone = "7" + phone[1:]
	case len(phone) == 10:
		phone = "7" + phone
	}

	if len(phone) != 11 || phone[0] != '7' {
		return "", invalid("phone_number", "must start with 7 and contain 11 digits, e.g. 79051234567")
	}
	return phone, nil
}
