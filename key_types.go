package postman

import (
	"encoding/base64"
	"strings"
)

// PublicKeyMaterial is the server's push public key (VAPID), base64url encoded.
// It is opaque to everything but the push provider.
type PublicKeyMaterial string

// Bytes decodes the key into the raw application server key.
// Padding is optional and both the URL and the standard alphabets are accepted.
func (key PublicKeyMaterial) Bytes() ([]byte, error) {
	enc := strings.TrimRight(string(key), "=")

	enc = strings.NewReplacer("+", "-", "/", "_").Replace(enc)

	return base64.RawURLEncoding.DecodeString(enc)
}

func (key PublicKeyMaterial) IsZero() bool {
	return key == ""
}
