package payments

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPaymentSignatureRoundTrip(t *testing.T) {
	sig := PaymentSignature("order_abc", "pay_xyz", "secret123")
	require.Len(t, sig, 64) // hex-encoded sha256

	require.True(t, VerifyPaymentSignature("order_abc", "pay_xyz", sig, "secret123"))
}

func TestVerifyPaymentSignatureRejectsTampering(t *testing.T) {
	sig := PaymentSignature("order_abc", "pay_xyz", "secret123")

	// Flip one character of the signature.
	flipped := []byte(sig)
	if flipped[0] == 'a' {
		flipped[0] = 'b'
	} else {
		flipped[0] = 'a'
	}
	require.False(t, VerifyPaymentSignature("order_abc", "pay_xyz", string(flipped), "secret123"))

	// Wrong ids or secret invalidate the signature too.
	require.False(t, VerifyPaymentSignature("order_abd", "pay_xyz", sig, "secret123"))
	require.False(t, VerifyPaymentSignature("order_abc", "pay_xyy", sig, "secret123"))
	require.False(t, VerifyPaymentSignature("order_abc", "pay_xyz", sig, "secret124"))
	require.False(t, VerifyPaymentSignature("order_abc", "pay_xyz", "", "secret123"))
}

func TestVerifyWebhookSignature(t *testing.T) {
	body := []byte(`{"event":"payment.captured"}`)
	sig := hmacHex("whsecret", body)

	require.True(t, VerifyWebhookSignature(body, sig, "whsecret"))
	require.False(t, VerifyWebhookSignature(body, sig, "other"))
	require.False(t, VerifyWebhookSignature([]byte(`{"event":"payment.failed"}`), sig, "whsecret"))
}
