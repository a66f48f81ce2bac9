package httpapi

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/custodia-labs/portfolio-rag/internal/core/domain"
)

// Signature headers, checked in order.
const (
	HeaderSignature       = "X-Webhook-Signature"
	HeaderSanitySignature = "Sanity-Webhook-Signature"
)

const signaturePrefix = "sha256="

// Sign returns the signature header value for body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return signaturePrefix + hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks header against the HMAC-SHA256 of body.
// The "sha256=" prefix is optional. An empty secret is a configuration error.
func VerifySignature(secret string, body []byte, header string) error {
	if secret == "" {
		return domain.ErrMissingSecret
	}
	header = strings.TrimSpace(header)
	if header == "" {
		return &domain.InvalidWebhookSignatureError{Reason: "missing signature header"}
	}

	got, err := hex.DecodeString(strings.TrimPrefix(header, signaturePrefix))
	if err != nil {
		return &domain.InvalidWebhookSignatureError{Reason: "malformed signature"}
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	if !hmac.Equal(got, mac.Sum(nil)) {
		return &domain.InvalidWebhookSignatureError{Reason: "signature mismatch"}
	}
	return nil
}
