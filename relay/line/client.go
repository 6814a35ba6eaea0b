// Package line adapts the LINE Messaging API SDK to the relay: webhook
// decoding with signature checks, and text replies.
package line

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
)

// maxTextRunes is the LINE limit for a single text message.
const maxTextRunes = 5000

// Client sends replies through the Messaging API.
type Client struct {
	endpoint    string
	accessToken string
	httpClient  *http.Client
}

// NewClient creates a client for endpoint (e.g. "https://api.line.me").
func NewClient(endpoint, accessToken string, requestTimeout time.Duration) (*Client, error) {
	c := &Client{
		endpoint:    strings.TrimRight(endpoint, "/"),
		accessToken: accessToken,
		httpClient:  &http.Client{Timeout: requestTimeout},
	}
	if _, err := c.api(); err != nil {
		return nil, err
	}
	return c, nil
}

// api builds an SDK client. WithContext stores the context on the client,
// so each call gets its own instance.
func (c *Client) api() (*messaging_api.MessagingApiAPI, error) {
	bot, err := messaging_api.NewMessagingApiAPI(c.accessToken,
		messaging_api.WithEndpoint(c.endpoint),
		messaging_api.WithHTTPClient(c.httpClient),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create line client: %w", err)
	}
	return bot, nil
}

// ReplyText answers a webhook event with a single text message.
func (c *Client) ReplyText(ctx context.Context, replyToken, text string) error {
	bot, err := c.api()
	if err != nil {
		return err
	}
	_, err = bot.WithContext(ctx).ReplyMessage(&messaging_api.ReplyMessageRequest{
		ReplyToken: replyToken,
		Messages: []messaging_api.MessageInterface{
			messaging_api.TextMessage{Text: truncate(text, maxTextRunes)},
		},
	})
	if err != nil {
		return fmt.Errorf("line reply failed: %w", err)
	}
	return nil
}

func truncate(s string, maxRunes int) string {
	if utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	r := []rune(s)
	return string(r[:maxRunes-1]) + "…"
}
