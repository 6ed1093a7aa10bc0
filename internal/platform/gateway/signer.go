package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// MetadataSigner signs the sensitive session metadata fields so the webhook
// path can detect tampering even when the gateway's own body signature is
// valid. The canonical payload is "orderID|userID".
type MetadataSigner struct {
	secret []byte
}

func NewMetadataSigner(secret string) *MetadataSigner {
	return &MetadataSigner{secret: []byte(secret)}
}

func (s *MetadataSigner) Sign(orderID, userID string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(orderID))
	mac.Write([]byte("|"))
	mac.Write([]byte(userID))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify is constant-time via hmac.Equal.
func (s *MetadataSigner) Verify(orderID, userID, signature string) bool {
	got, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(orderID))
	mac.Write([]byte("|"))
	mac.Write([]byte(userID))
	return hmac.Equal(got, mac.Sum(nil))
}

// SignBody computes the webhook body signature with the shared webhook
// secret. The gateway sends the same value in X-Gateway-Signature.
func SignBody(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyBody checks an inbound webhook signature in constant time.
func VerifyBody(secret string, body []byte, signature string) bool {
	got, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}
