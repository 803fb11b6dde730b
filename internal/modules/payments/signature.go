package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// PaymentSignature computes the gateway's checkout signature: hex-encoded
// HMAC-SHA256 over "<intentID>|<paymentID>" with the shared key secret.
func PaymentSignature(intentID, paymentID, secret string) string {
	return hmacHex(secret, []byte(intentID+"|"+paymentID))
}

func VerifyPaymentSignature(intentID, paymentID, signature, secret string) bool {
	expected := PaymentSignature(intentID, paymentID, secret)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// VerifyWebhookSignature checks the HMAC-SHA256 of the raw webhook body.
func VerifyWebhookSignature(body []byte, signature, secret string) bool {
	expected := hmacHex(secret, body)
	return hmac.Equal([]byte(expected), []byte(signature))
}

func hmacHex(secret string, data []byte) string {
	m := hmac.New(sha256.New, []byte(secret))
	m.Write(data)
	return hex.EncodeToString(m.Sum(nil))
}
