package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"steelloop/internal/config"
	"steelloop/internal/domain"
	"steelloop/internal/orchestrator"
	"steelloop/internal/ports"
)

// Telegram posts drafts to a channel via the bot API. The social account's
// external id is the channel chat id.
type Telegram struct {
	apiBase  string
	botToken string
	client   *http.Client
}

var _ ports.Publisher = (*Telegram)(nil)

// NewTelegram registers the bot API base and token.
func NewTelegram(cfg config.PublisherConfig, client *http.Client) *Telegram {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Telegram{
		apiBase:  strings.TrimSuffix(cfg.APIBase, "/"),
		botToken: cfg.BotToken,
		client:   client,
	}
}

type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
	Result      struct {
		MessageID int64 `json:"message_id"`
	} `json:"result"`
}

// Publish sends content as a plain-text message and returns its message id.
func (t *Telegram) Publish(ctx context.Context, account domain.SocialAccount, content string) (string, error) {
	if t.botToken == "" || t.apiBase == "" || t.client == nil {
		return "", orchestrator.Permanent(errors.New("telegram publisher misconfigured"))
	}
	if account.ExternalAccountID == "" {
		return "", orchestrator.Permanent(errors.New("telegram publisher: account has no chat id"))
	}
	if strings.TrimSpace(content) == "" {
		return "", orchestrator.Permanent(errors.New("telegram publisher: empty content"))
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", t.apiBase, t.botToken)
	form := url.Values{}
	form.Set("chat_id", account.ExternalAccountID)
	form.Set("text", content)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", orchestrator.Permanent(fmt.Errorf("new request: %w", err))
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%w: do request: %v", orchestrator.ErrTransient, err)
	}
	defer resp.Body.Close()

	var decoded sendMessageResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&decoded)

	if resp.StatusCode != http.StatusOK || !decoded.OK {
		statusErr := fmt.Errorf("telegram error %s: %s", resp.Status, decoded.Description)
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
			return "", fmt.Errorf("%w: %w", orchestrator.ErrTransient, statusErr)
		}
		return "", orchestrator.Permanent(statusErr)
	}
	if decodeErr != nil {
		return "", fmt.Errorf("decode telegram response: %w", decodeErr)
	}
	return strconv.FormatInt(decoded.Result.MessageID, 10), nil
}
