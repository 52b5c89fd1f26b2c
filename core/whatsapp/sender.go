package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	coreconfig "refurbot/core/config"
	"refurbot/core/logger"
	"log/slog"
)

const component = "wa.sender"

const (
	defaultDialTimeout     = 5 * time.Second
	defaultTLSHandshake    = 5 * time.Second
	defaultIdleConnTimeout = 30 * time.Second
	defaultResponseTimeout = 10 * time.Second

	maxErrorBodyBytes = 2048
)

// SendError wraps a delivery failure of the send capability.
type SendError struct {
	Err error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("whatsapp send: %v", e.Err)
}

func (e *SendError) Unwrap() error {
	return e.Err
}

// Client sends text messages through the WhatsApp Cloud API.
// Delivery is fire-and-log: one attempt per message, bounded by the
// configured timeout, no internal retry.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	phoneNumberID string
	accessToken   string
	timeout       time.Duration
}

// NewClient builds a Client with a transport tuned for Graph API calls.
func NewClient(cfg coreconfig.WhatsAppConfig) *Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: defaultDialTimeout, KeepAlive: 30 * time.Second}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       defaultIdleConnTimeout,
		TLSHandshakeTimeout:   defaultTLSHandshake,
		ResponseHeaderTimeout: defaultResponseTimeout,
		ExpectContinueTimeout: 1 * time.Second,
	}

	timeout := time.Duration(cfg.SendTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		httpClient:    &http.Client{Transport: transport},
		baseURL:       strings.TrimRight(cfg.APIBaseURL, "/"),
		phoneNumberID: cfg.PhoneNumberID,
		accessToken:   cfg.AccessToken,
		timeout:       timeout,
	}
}

type sendTextRequest struct {
	MessagingProduct string      `json:"messaging_product"`
	To               string      `json:"to"`
	Text             textPayload `json:"text"`
}

type textPayload struct {
	Body string `json:"body"`
}

// SendText delivers one text message to a recipient. A timeout counts as
// a failure of this send only, never a process-level fault.
func (c *Client) SendText(ctx context.Context, to, body string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	payload, err := json.Marshal(sendTextRequest{
		MessagingProduct: "whatsapp",
		To:               to,
		Text:             textPayload{Body: body},
	})
	if err != nil {
		return &SendError{Err: fmt.Errorf("encode request: %w", err)}
	}

	url := fmt.Sprintf("%s/%s/messages", c.baseURL, c.phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return &SendError{Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logFailure(ctx, to, err, start)
		return &SendError{Err: err}
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		stErr := &statusError{code: resp.StatusCode, body: strings.TrimSpace(string(raw))}
		c.logFailure(ctx, to, stErr, start)
		return &SendError{Err: stErr}
	}

	if logger.ShouldSampleDebug() {
		logger.Debug(ctx, component, "send.success",
			slog.String("status", "ok"),
			slog.String("sender_id", to),
			slog.Duration("duration", logger.Took(start)),
		)
	}
	return nil
}

func (c *Client) logFailure(ctx context.Context, to string, err error, start time.Time) {
	logger.Error(ctx, component, "send.fail",
		slog.String("status", "fail"),
		slog.String("sender_id", to),
		slog.String("err", sanitizeErrorMessage(err)),
		slog.String("error_kind", classifyError(err)),
		slog.Duration("duration", logger.Took(start)),
	)
}
