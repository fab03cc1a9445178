package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Sign returns hex(HMAC-SHA256(secret, intentID + "|" + settlementID)).
func Sign(secret []byte, intentID, settlementID string) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(intentID + "|" + settlementID))
	return hex.EncodeToString(mac.Sum(nil))
}

// constant time
func signatureMatches(secret []byte, intentID, settlementID, signature string) bool {
	expected := Sign(secret, intentID, settlementID)
	return hmac.Equal([]byte(expected), []byte(signature))
}
