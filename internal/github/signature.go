package github

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// VerifySignature reports whether signature matches the HMAC-SHA256 of body
// under secret, in GitHub's "sha256=<hex>" header format. The comparison is
// constant-time. It returns false when the secret or signature is absent or
// when the lengths differ; it never panics.
//
// body must be the exact bytes received on the wire: re-serializing the
// payload (key order, whitespace) invalidates the signature.
func VerifySignature(body []byte, signature, secret string) bool {
	if secret == "" || signature == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := "sha256=" + hex.EncodeToString(mac.Sum(nil))

	if len(signature) != len(expected) {
		return false
	}
	return hmac.Equal([]byte(signature), []byte(expected))
}
