package security

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"
)

// SignatureVerifier validates the X-Pyrus-Signature header on inbound
// webhook triggers: a lowercase hex HMAC-SHA1 digest of the request payload,
// keyed with the shared webhook secret.
type SignatureVerifier struct {
	secret []byte
}

func NewSignatureVerifier(secret string) *SignatureVerifier {
	return &SignatureVerifier{secret: []byte(secret)}
}

// VerifyBody checks the signature against the exact bytes received on the
// wire. The body must not be parsed and reserialized before hashing; any
// re-encoding produces a different digest. A missing signature is a plain
// verification failure, never an error.
func (v *SignatureVerifier) VerifyBody(raw []byte, provided string) bool {
	if provided == "" {
		return false
	}
	mac := hmac.New(sha1.New, v.secret)
	mac.Write(raw)
	expected := hex.EncodeToString(mac.Sum(nil))
	// Constant-time comparison; the signature header is attacker-controlled.
	return subtle.ConstantTimeCompare([]byte(expected), []byte(strings.ToLower(provided))) == 1
}

// VerifyQuery checks the signature of a body-less (GET) trigger, computed
// over the canonical serialization of its query parameters.
func (v *SignatureVerifier) VerifyQuery(values url.Values, provided string) bool {
	return v.VerifyBody([]byte(CanonicalQuery(values)), provided)
}

// CanonicalQuery serializes query parameters into the stable form both sides
// sign: keys sorted ascending, each pair percent-encoded as key=value,
// repeated values kept in arrival order, pairs joined with "&".
func CanonicalQuery(values url.Values) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		for _, val := range values[k] {
			if b.Len() > 0 {
				b.WriteByte('&')
			}
			b.WriteString(url.QueryEscape(k))
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(val))
		}
	}
	return b.String()
}
