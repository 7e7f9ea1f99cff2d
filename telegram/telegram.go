// Package telegram sends messages and receives updates through the Telegram
// Bot API.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/retry"
)

const defaultAPIBase = "https://api.telegram.org"

// Provider defines the interface for message sending implementations.
type Provider interface {
	// Send delivers a text message to a chat. When linkURL is non-empty the
	// message carries a single inline keyboard button opening it.
	Send(ctx context.Context, chatID, text, linkURL, linkText string) error
}

// PermanentError indicates the recipient is unreachable for good: the bot
// was blocked or the chat no longer exists. Callers treat this as an
// implicit unsubscribe rather than a retryable failure.
type PermanentError struct {
	ChatID      string
	Description string
	Code        int
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("telegram: chat %s permanently unreachable (HTTP %d: %s)", e.ChatID, e.Code, e.Description)
}

// IsPermanent reports whether an error classifies the recipient as
// permanently unreachable.
func IsPermanent(err error) bool {
	var perm *PermanentError
	return errors.As(err, &perm)
}

// Client talks to the Telegram Bot API over HTTP.
type Client struct {
	client  *http.Client
	logger  *slog.Logger
	apiBase string
	token   string
}

// New creates a Telegram API client. apiBase overrides the production
// endpoint and is meant for tests; pass "" for the real API.
func New(token, apiBase string, logger *slog.Logger) *Client {
	if apiBase == "" {
		apiBase = defaultAPIBase
	}
	return &Client{
		client:  &http.Client{Timeout: 65 * time.Second},
		logger:  logger,
		apiBase: apiBase,
		token:   token,
	}
}

// apiResponse is the envelope every Bot API call returns.
type apiResponse struct {
	Result      json.RawMessage `json:"result"`
	Description string          `json:"description"`
	ErrorCode   int             `json:"error_code"`
	OK          bool            `json:"ok"`
}

type sendMessageRequest struct {
	ReplyMarkup *replyMarkup `json:"reply_markup,omitempty"`
	ChatID      string       `json:"chat_id"`
	Text        string       `json:"text"`
	ParseMode   string       `json:"parse_mode,omitempty"`
}

type replyMarkup struct {
	InlineKeyboard [][]inlineButton `json:"inline_keyboard"`
}

type inlineButton struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

// Update is one long-poll result from getUpdates.
type Update struct {
	Message *Message `json:"message"`
	ID      int64    `json:"update_id"`
}

// Message is an incoming chat message.
type Message struct {
	From *User  `json:"from"`
	Text string `json:"text"`
	Chat Chat   `json:"chat"`
}

// Chat identifies the conversation a message arrived in.
type Chat struct {
	ID int64 `json:"id"`
}

// User identifies the sender of a message.
type User struct {
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
}

// Send posts a sendMessage call. Transient failures are retried; a response
// classifying the recipient as blocked or gone returns a PermanentError
// without further retries.
func (c *Client) Send(ctx context.Context, chatID, text, linkURL, linkText string) error {
	req := sendMessageRequest{
		ChatID:    chatID,
		Text:      text,
		ParseMode: "Markdown",
	}
	if linkURL != "" {
		if linkText == "" {
			linkText = "Open"
		}
		req.ReplyMarkup = &replyMarkup{
			InlineKeyboard: [][]inlineButton{{{Text: linkText, URL: linkURL}}},
		}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	err = retry.Do(
		func() error {
			startTime := time.Now()
			sendErr := c.post(ctx, "sendMessage", body, nil)
			duration := time.Since(startTime)

			if sendErr != nil {
				c.logger.Warn("Telegram sendMessage failed",
					"chat_id", chatID,
					"duration_ms", duration.Milliseconds(),
					"error", sendErr)
				return sendErr
			}

			c.logger.Info("Telegram sendMessage completed",
				"chat_id", chatID,
				"duration_ms", duration.Milliseconds(),
				"status", "success")
			return nil
		},
		retry.Attempts(3),
		retry.Delay(time.Second),
		retry.MaxDelay(30*time.Second),
		retry.MaxJitter(5*time.Second),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, retryErr error) {
			c.logger.Info("Retrying Telegram send after error", "attempt", n, "error", retryErr)
		}),
		retry.RetryIf(func(err error) bool {
			// A blocked or deleted chat never recovers; don't hammer the API.
			return !IsPermanent(err)
		}),
	)
	if err != nil {
		if IsPermanent(err) {
			return err
		}
		return fmt.Errorf("after retries: %w", err)
	}
	return nil
}

// Updates long-polls getUpdates starting at the given offset.
func (c *Client) Updates(ctx context.Context, offset int64) ([]Update, error) {
	body, err := json.Marshal(map[string]any{
		"offset":  offset,
		"timeout": 50,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	var updates []Update
	if err := c.post(ctx, "getUpdates", body, &updates); err != nil {
		return nil, err
	}
	return updates, nil
}

// post issues one Bot API method call and decodes the envelope. A non-ok
// envelope with a "blocked" or "chat not found" classification becomes a
// PermanentError; everything else is returned as a plain error for the
// retry layer to handle.
func (c *Client) post(ctx context.Context, method string, body []byte, result any) error {
	url := fmt.Sprintf("%s/bot%s/%s", c.apiBase, c.token, method)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("call %s: %w", method, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Warn("Failed to close response body", "error", closeErr)
		}
	}()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read %s response: %w", method, err)
	}

	var envelope apiResponse
	if err := json.Unmarshal(data, &envelope); err != nil {
		return fmt.Errorf("decode %s response (HTTP %d): %w", method, resp.StatusCode, err)
	}

	if !envelope.OK {
		if isPermanentCode(envelope.ErrorCode, envelope.Description) {
			chatID := chatIDFromBody(body)
			return &PermanentError{
				ChatID:      chatID,
				Code:        envelope.ErrorCode,
				Description: envelope.Description,
			}
		}
		return fmt.Errorf("%s: HTTP %d: %s", method, envelope.ErrorCode, envelope.Description)
	}

	if result != nil {
		if err := json.Unmarshal(envelope.Result, result); err != nil {
			return fmt.Errorf("decode %s result: %w", method, err)
		}
	}
	return nil
}

// isPermanentCode classifies Bot API error responses. 403 means the user
// blocked the bot or deactivated the account; "chat not found" means the
// chat id no longer resolves.
func isPermanentCode(code int, description string) bool {
	if code == http.StatusForbidden {
		return true
	}
	return code == http.StatusBadRequest && strings.Contains(strings.ToLower(description), "chat not found")
}

func chatIDFromBody(body []byte) string {
	var partial struct {
		ChatID string `json:"chat_id"`
	}
	if err := json.Unmarshal(body, &partial); err != nil {
		return ""
	}
	return partial.ChatID
}
