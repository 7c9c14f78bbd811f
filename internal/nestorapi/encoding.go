package nestorapi

import (
	"encoding/base64"
	"strings"
)

// EncodeStrings encodes text as URL-safe base64 without padding, the form the
// messaging API expects in the "strings" field.
func EncodeStrings(text string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(text))
}

// DecodeStrings reverses EncodeStrings. Padded input is accepted too.
func DecodeStrings(s string) (string, error) {
	b, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
	if err != nil {
		return "", err
	}
	return string(b), nil
}
