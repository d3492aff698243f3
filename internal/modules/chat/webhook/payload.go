package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

type HistoryItem struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	MessageID string `json:"messageId,omitempty"`
	CreatedAt string `json:"createdAt,omitempty"`
}

// Payload is the JSON body posted to a persona webhook.
type Payload struct {
	Message         string        `json:"message"`
	ConversationID  string        `json:"conversationId"`
	PersonaID       string        `json:"personaId"`
	UserID          string        `json:"userId"`
	SessionID       string        `json:"sessionId"`
	History         []HistoryItem `json:"history,omitempty"`
	IsEdit          bool          `json:"isEdit,omitempty"`
	EditedMessageID string        `json:"editedMessageId,omitempty"`
}

// Sign returns the hex HMAC-SHA256 of body.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature is the receiving side of Sign.
func VerifySignature(body []byte, secret, signature string) bool {
	want, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(body)
	return hmac.Equal(mac.Sum(nil), want)
}
