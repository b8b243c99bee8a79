package github

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"
)

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"zen":"Keep it logically awesome."}`)
	secret := "s3cret"

	if !VerifySignature(body, sign(secret, body), secret) {
		t.Fatalf("expected valid signature to verify")
	}
}

func TestVerifySignature_MutatedPayload(t *testing.T) {
	body := []byte(`{"a":1}`)
	secret := "s3cret"
	sig := sign(secret, body)

	mutated := append([]byte{}, body...)
	mutated[0] = '['
	if VerifySignature(mutated, sig, secret) {
		t.Fatalf("expected mutated payload to fail verification")
	}
}

func TestVerifySignature_MutatedSignature(t *testing.T) {
	body := []byte(`{"a":1}`)
	secret := "s3cret"
	sig := []byte(sign(secret, body))

	if sig[len(sig)-1] == '0' {
		sig[len(sig)-1] = '1'
	} else {
		sig[len(sig)-1] = '0'
	}
	if VerifySignature(body, string(sig), secret) {
		t.Fatalf("expected mutated signature to fail verification")
	}
}

func TestVerifySignature_MissingInputs(t *testing.T) {
	body := []byte(`{}`)

	if VerifySignature(body, sign("s3cret", body), "") {
		t.Fatalf("expected empty secret to fail verification")
	}
	if VerifySignature(body, "", "s3cret") {
		t.Fatalf("expected empty signature to fail verification")
	}
	if VerifySignature(body, "sha256=abcd", "s3cret") {
		t.Fatalf("expected short signature to fail verification")
	}
}
