package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"agenda_backend/platform/config"
	"agenda_backend/platform/logger"
	"agenda_backend/platform/phone"
)

// Client sends text messages through an Evolution API instance.
// A nil *Client is valid and reports ErrNotConfigured on send.
type Client struct {
	baseURL  string
	apiKey   string
	instance string
	http     *http.Client
	log      *logger.Logger
}

// ErrNotConfigured is returned when no Evolution API URL is set.
var ErrNotConfigured = errors.New("whatsapp sender not configured")

type sendTextRequest struct {
	Number string `json:"number"`
	Text   string `json:"text"`
}

// Evolution v1 nests the body; some deployments still run it.
type sendTextRequestV1 struct {
	Number      string `json:"number"`
	TextMessage struct {
		Text string `json:"text"`
	} `json:"textMessage"`
}

// NewClient returns nil when no Evolution API URL is configured.
func NewClient(cfg config.WhatsAppConfig, log *logger.Logger) *Client {
	if cfg.GetWhatsAppURL() == "" {
		return nil
	}

	return &Client{
		baseURL:  strings.TrimRight(cfg.GetWhatsAppURL(), "/"),
		apiKey:   cfg.GetWhatsAppKey(),
		instance: cfg.GetWhatsAppInstance(),
		http:     &http.Client{Timeout: 15 * time.Second},
		log:      log,
	}
}

// SendMessage delivers message to phoneNumber. The number is sent as digits
// in E.164 form without the leading plus.
func (c *Client) SendMessage(ctx context.Context, phoneNumber string, message string) error {
	if c == nil {
		return ErrNotConfigured
	}

	number := strings.TrimPrefix(phone.E164(phoneNumber), "+")
	if number == "" {
		return fmt.Errorf("whatsapp: phone %q has no digits", phoneNumber)
	}

	status, body, err := c.post(ctx, sendTextRequest{Number: number, Text: message})
	if err != nil {
		return err
	}
	if status == http.StatusBadRequest && strings.Contains(strings.ToLower(body), "textmessage") {
		legacy := sendTextRequestV1{Number: number}
		legacy.TextMessage.Text = message
		status, body, err = c.post(ctx, legacy)
		if err != nil {
			return err
		}
	}

	if status >= http.StatusBadRequest {
		return fmt.Errorf("whatsapp service returned %d: %s", status, strings.TrimSpace(body))
	}

	c.log.Info("whatsapp sent via evolution", "phone", number, "instance", c.instance)
	return nil
}

func (c *Client) post(ctx context.Context, payload any) (int, string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, "", fmt.Errorf("marshal whatsapp payload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/message/sendText/%s", c.baseURL, url.PathEscape(c.instance))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, "", err
	}

	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, "", fmt.Errorf("whatsapp request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	return resp.StatusCode, string(data), nil
}
