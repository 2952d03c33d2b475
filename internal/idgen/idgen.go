// Package idgen generates the opaque, prefixed identifiers used across the
// data model (ws_, file_, wh_, key_, hb_, usr_, uw_) and the plaintext
// capability/API keys handed to callers.
package idgen

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/google/uuid"
)

const alphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// New returns a prefixed identifier such as "ws_<uuid>" for relational rows.
// Row IDs don't need to be secret, so a UUIDv4 is sufficient entropy and
// keeps them compatible with GORM's uniqueIndex-by-string convention.
func New(prefix string) string {
	return prefix + uuid.New().String()
}

// RandomAlnum returns a cryptographically random alphanumeric string of the
// given length, used for capability keys and API key material where the
// value itself is the credential and must be unguessable.
func RandomAlnum(n int) string {
	out := make([]byte, n)
	max := big.NewInt(int64(len(alphanumeric)))
	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic(fmt.Sprintf("idgen: crypto/rand failure: %v", err))
		}
		out[i] = alphanumeric[idx.Int64()]
	}
	return string(out)
}

// CapabilityKeyPlaintext returns a new capability key plaintext, 28
// characters long (within the spec's 22-32 char window).
func CapabilityKeyPlaintext() string {
	return RandomAlnum(28)
}

// APIKeyPlaintext returns a new API key plaintext with the sk_<mode>_
// prefix and at least 20 trailing alphanumeric characters.
func APIKeyPlaintext(mode string) string {
	return fmt.Sprintf("sk_%s_%s", mode, RandomAlnum(32))
}

// WebhookSecret returns a new HMAC signing secret for a webhook.
func WebhookSecret() string {
	return "whsec_" + RandomAlnum(40)
}
