// Package message holds the wire envelope shared by the proxy route and the page,
// and the display label derived from a message.
package message

import "unicode/utf16"

// Display defaults.
const (
	DefaultPlaceholder = "No Data Yet"
	DefaultThreshold   = 50

	LabelEncrypted = "Encrypted"
	LabelDecrypted = "Decrypted"
)

// Envelope is the JSON body returned by the proxy route.
type Envelope struct {
	Message string `json:"message"`
}

// Length counts msg in UTF-16 code units, the unit browsers use for string
// length. Characters outside the Basic Multilingual Plane count twice.
func Length(msg string) int {
	n := 0
	for _, r := range msg {
		n += len(utf16.Encode([]rune{r}))
	}
	return n
}

// Label reports "Encrypted" when msg is longer than threshold code units and
// "Decrypted" otherwise. It looks at length only; no cryptographic check is made.
func Label(msg string, threshold int) string {
	if Length(msg) > threshold {
		return LabelEncrypted
	}
	return LabelDecrypted
}
