package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

const telegramMaxLen = 4096

// Telegram delivers messages through the Bot API. One send per call, a fixed
// pre-send delay to stay under the bot rate cap, and a single retry honoring
// the server's retry_after on 429.
type Telegram struct {
	hc        *resty.Client
	token     string
	chatID    string
	sendDelay time.Duration
}

type TelegramOption func(*Telegram)

// WithTelegramBaseURL points the client at a different API host (tests).
func WithTelegramBaseURL(u string) TelegramOption {
	return func(t *Telegram) { t.hc.SetBaseURL(u) }
}

func WithSendDelay(d time.Duration) TelegramOption {
	return func(t *Telegram) { t.sendDelay = d }
}

func NewTelegram(token, chatID string, opts ...TelegramOption) *Telegram {
	t := &Telegram{
		hc: resty.New().
			SetBaseURL("https://api.telegram.org").
			SetTimeout(10 * time.Second),
		token:     token,
		chatID:    chatID,
		sendDelay: time.Second,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
	Parameters  struct {
		RetryAfter int `json:"retry_after"`
	} `json:"parameters"`
}

func (t *Telegram) Send(ctx context.Context, text string) error {
	if len(text) > telegramMaxLen {
		text = text[:telegramMaxLen]
	}

	if err := sleepCtx(ctx, t.sendDelay); err != nil {
		return err
	}

	resp, body, err := t.post(ctx, text)
	if err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	if resp.StatusCode() == 429 {
		wait := time.Duration(body.Parameters.RetryAfter) * time.Second
		if wait <= 0 {
			wait = time.Minute
		}
		if err := sleepCtx(ctx, wait); err != nil {
			return err
		}
		resp, body, err = t.post(ctx, text)
		if err != nil {
			return fmt.Errorf("telegram retry: %w", err)
		}
	}
	if !resp.IsSuccess() || !body.OK {
		return fmt.Errorf("telegram send: status %d %s", resp.StatusCode(), body.Description)
	}
	return nil
}

func (t *Telegram) post(ctx context.Context, text string) (*resty.Response, *telegramResponse, error) {
	var body telegramResponse
	resp, err := t.hc.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"chat_id":    t.chatID,
			"text":       text,
			"parse_mode": "Markdown",
		}).
		SetResult(&body).
		SetError(&body).
		Post(fmt.Sprintf("/bot%s/sendMessage", t.token))
	return resp, &body, err
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
