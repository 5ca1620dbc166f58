package messenger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/rs/zerolog/log"

	apperrors "shoplink-backend/internal/common/errors"
	"shoplink-backend/internal/config"
	dm "shoplink-backend/internal/domain/messenger"
	"shoplink-backend/internal/observability"
)

// maxErrorBody bounds how much of a failed response is kept for logging.
const maxErrorBody = 4 << 10

// Client is the outbound gateway to the platform send API. Each call is a
// single attempt: no retry and no delivery tracking.
type Client struct {
	httpClient *http.Client
	endpoint   string
	token      string
	metrics    *observability.Metrics
}

func NewClient(cfg *config.Config, metrics *observability.Metrics) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Messenger.SendTimeout},
		endpoint:   cfg.SendAPIURL(),
		token:      cfg.Messenger.PageAccessToken,
		metrics:    metrics,
	}
}

// WithHTTPClient replaces the transport, mainly for tests.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// Send posts one response to recipientID.
func (c *Client) Send(ctx context.Context, recipientID string, msg dm.OutboundResponse) (*dm.SendResult, error) {
	res, err := c.send(ctx, recipientID, msg)
	if err != nil {
		c.metrics.MessageSent(observability.ResultError)
		return nil, err
	}
	c.metrics.MessageSent(observability.ResultOK)
	log.Debug().Str("recipient_id", recipientID).Str("message_id", res.MessageID).Msg("Message sent")
	return res, nil
}

func (c *Client) send(ctx context.Context, recipientID string, msg dm.OutboundResponse) (*dm.SendResult, error) {
	if c.token == "" {
		return nil, apperrors.NewConfigurationError("PAGE_ACCESS_TOKEN", "not set")
	}
	body, err := json.Marshal(dm.SendRequest{
		Recipient: dm.Party{ID: recipientID},
		Message:   msg,
	})
	if err != nil {
		return nil, apperrors.NewMessengerAPIError("encode send request", err)
	}

	endpoint := c.endpoint + "?" + url.Values{"access_token": {c.token}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, apperrors.NewMessengerAPIError("build send request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// *url.Error would echo the access token; keep only the cause.
		if uerr, ok := err.(*url.Error); ok {
			err = uerr.Err
		}
		return nil, apperrors.NewMessengerAPIError("send message", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		var apiErr dm.APIError
		detail := string(raw)
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error.Message != "" {
			detail = apiErr.Error.Message
		}
		return nil, apperrors.NewMessengerAPIError("send message", fmt.Errorf("status %d: %s", resp.StatusCode, detail)).
			WithDetail("status", resp.StatusCode).
			WithDetail("api_code", apiErr.Error.Code)
	}

	var out dm.SendResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, apperrors.NewMessengerAPIError("decode send response", err)
	}
	return &out, nil
}
