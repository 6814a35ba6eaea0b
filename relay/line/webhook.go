package line

import (
	"encoding/json"
	"fmt"

	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"
)

// SignatureHeader carries the base64 HMAC-SHA256 of the raw body.
const SignatureHeader = "X-Line-Signature"

var ErrInvalidSignature = webhook.ErrInvalidSignature

// TextEvent is a text message a user sent to the bot one-on-one.
type TextEvent struct {
	Index      int // position in the delivery
	UserID     string
	ReplyToken string
	Text       string
}

// ParseTextEvents checks the signature when channelSecret is set, decodes the
// delivery and keeps only user text messages that can be replied to.
func ParseTextEvents(channelSecret string, body []byte, signature string) ([]TextEvent, error) {
	if channelSecret != "" && !webhook.ValidateSignature(channelSecret, signature, body) {
		return nil, ErrInvalidSignature
	}

	var cb webhook.CallbackRequest
	if err := json.Unmarshal(body, &cb); err != nil {
		return nil, fmt.Errorf("failed to decode webhook body: %w", err)
	}

	var events []TextEvent
	for i, ev := range cb.Events {
		msg, ok := ev.(webhook.MessageEvent)
		if !ok || msg.ReplyToken == "" {
			continue
		}
		text, ok := msg.Message.(webhook.TextMessageContent)
		if !ok {
			continue
		}
		user, ok := msg.Source.(webhook.UserSource)
		if !ok {
			continue
		}
		events = append(events, TextEvent{
			Index:      i,
			UserID:     user.UserId,
			ReplyToken: msg.ReplyToken,
			Text:       text.Text,
		})
	}
	return events, nil
}
