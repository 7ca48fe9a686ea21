// Package assistant is the HTTP transport to the remote assistant
// service. One request per submission, no retry and no backoff: a
// failed call settles as a fallback reply upstream, so retrying here
// would only delay that.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/healthpalm/aisha/backend/internal/infrastructure/logging"
	"github.com/healthpalm/aisha/backend/internal/shared/types"
)

// Config defines assistant client configuration.
type Config struct {
	URL     string
	Timeout time.Duration
}

// Client talks to the assistant chat endpoint.
type Client struct {
	resty   *resty.Client
	probe   *retryablehttp.Client
	url     string
	limiter *rate.Limiter
	logger  *logging.Logger
}

type chatRequest struct {
	UserMessage         string           `json:"user_message"`
	ConversationHistory []types.ChatTurn `json:"conversation_history"`
}

type chatResponse struct {
	PsiResponse string `json:"psi_response"`
	Detail      string `json:"detail,omitempty"`
}

// New creates an assistant client.
func New(cfg Config, logger *logging.Logger) *Client {
	if logger == nil {
		logger = logging.NewNop()
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}

	restyClient := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(0).
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", "AiSHA-Gateway/1.0")

	// The reachability probe is the one place retrying is wanted:
	// it runs off the submission path.
	probe := retryablehttp.NewClient()
	probe.RetryMax = 3
	probe.RetryWaitMin = 500 * time.Millisecond
	probe.RetryWaitMax = 5 * time.Second
	probe.HTTPClient.Timeout = 10 * time.Second
	probe.Logger = nil

	return &Client{
		resty:   restyClient,
		probe:   probe,
		url:     cfg.URL,
		limiter: rate.NewLimiter(rate.Inf, 0),
		logger:  logger,
	}
}

// SetRateLimit caps outgoing chat calls (requests per second). Zero or
// negative removes the cap.
func (c *Client) SetRateLimit(rps float64) {
	if rps <= 0 {
		c.limiter = rate.NewLimiter(rate.Inf, 0)
		return
	}
	c.limiter = rate.NewLimiter(rate.Limit(rps), int(rps))
}

// Send posts the newest user message and the conversation history and
// returns the assistant's reply text. Failures come back as *Error
// with a diagnostic class.
func (c *Client) Send(ctx context.Context, userText string, history []types.ChatTurn) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", &Error{Class: ClassSetup, Err: fmt.Errorf("rate limit wait: %w", err)}
	}

	if history == nil {
		history = []types.ChatTurn{}
	}

	var result chatResponse
	resp, err := c.resty.R().
		SetContext(ctx).
		SetBody(chatRequest{UserMessage: userText, ConversationHistory: history}).
		SetResult(&result).
		SetError(&result).
		Post(c.url)

	if err != nil {
		te := c.classify(err)
		c.logger.Warn("assistant request failed",
			zap.String("class", string(te.Class)), zap.Error(err))
		return "", te
	}

	if resp.IsError() {
		te := &Error{Class: ClassServer, Status: resp.StatusCode(), Detail: result.Detail}
		c.logger.Warn("assistant returned error status",
			zap.Int("status", resp.StatusCode()), zap.String("detail", result.Detail))
		return "", te
	}

	if result.PsiResponse == "" {
		te := &Error{Class: ClassServer, Status: resp.StatusCode(), Detail: "response missing psi_response"}
		c.logger.Warn("assistant response missing reply field", zap.Int("status", resp.StatusCode()))
		return "", te
	}

	return result.PsiResponse, nil
}

// Ping checks that the assistant endpoint is reachable. Any HTTP
// response counts — only a transport-level failure is an error.
func (c *Client) Ping(ctx context.Context) error {
	req, err := retryablehttp.NewRequestWithContext(ctx, "GET", c.baseURL(), nil)
	if err != nil {
		return fmt.Errorf("failed to build probe request: %w", err)
	}

	resp, err := c.probe.Do(req)
	if err != nil {
		return fmt.Errorf("assistant unreachable: %w", err)
	}
	resp.Body.Close()
	return nil
}

// classify buckets a resty error: a request that never went out is a
// setup failure, anything after that is a network failure.
func (c *Client) classify(err error) *Error {
	var ue *url.Error
	if errors.As(err, &ue) && ue.Op == "parse" {
		return &Error{Class: ClassSetup, Err: err}
	}
	if _, parseErr := url.ParseRequestURI(c.url); parseErr != nil {
		return &Error{Class: ClassSetup, Err: err}
	}
	return &Error{Class: ClassNetwork, Err: err}
}

// baseURL strips the path from the configured endpoint for probing.
func (c *Client) baseURL() string {
	u, err := url.Parse(c.url)
	if err != nil {
		return c.url
	}
	u.Path = ""
	u.RawQuery = ""
	return u.String()
}
