package acuity

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

// SignatureHeader carries the webhook signature Acuity computes over the raw body.
const SignatureHeader = "X-Acuity-Signature"

// VerifyRequestSignature reports whether signature is the base64 HMAC-SHA256
// of body keyed by the API key.
func (c *HTTPClient) VerifyRequestSignature(body []byte, signature string) bool {
	return verifySignature(c.apiKey, body, signature)
}

// Sign computes the signature Acuity would send for body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func verifySignature(secret string, body []byte, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	return hmac.Equal([]byte(Sign(secret, body)), []byte(signature))
}
