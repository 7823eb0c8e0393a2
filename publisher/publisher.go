package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"auto_tweet_agent/failure"
	"auto_tweet_agent/logging"
)

const (
	defaultBaseURL  = "https://api.twitter.com"
	createTweetPath = "/2/tweets"

	// MetaTrigger is the reserved metadata key carrying the run provenance.
	MetaTrigger = "trigger"

	missingCredentials = "missing X API credentials: set twitter.access_token or X_ACCESS_TOKEN"
)

// Request is what gets published: the post text plus provenance metadata.
type Request struct {
	Text     string
	Metadata map[string]any
}

// Config holds the X API settings.
type Config struct {
	AccessToken     string
	BaseURL         string
	MaxPostsPerHour int
	Timeout         time.Duration
}

type createTweetPayload struct {
	Text string `json:"text"`
}

type createTweetResp struct {
	Data struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	} `json:"data"`
	Title  string     `json:"title"`
	Detail string     `json:"detail"`
	Errors []apiError `json:"errors"`
}

type apiError struct {
	Message string `json:"message"`
	Detail  string `json:"detail"`
}

// TwitterPublisher posts to the X API v2 with an OAuth2 user-context token.
type TwitterPublisher struct {
	cfg     Config
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	breaker circuitbreaker.CircuitBreaker[any]
	logger  logging.Logger
}

// New creates a TwitterPublisher. Missing credentials do not fail construction;
// every Publish reports them as a configuration failure instead.
// base is the underlying transport; nil means http.DefaultTransport.
func New(cfg Config, base http.RoundTripper, logger logging.Logger) *TwitterPublisher {
	if base == nil {
		base = http.DefaultTransport
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	client := &http.Client{Timeout: cfg.Timeout, Transport: base}
	if token := strings.TrimSpace(cfg.AccessToken); token != "" {
		client.Transport = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}),
			Base:   base,
		}
	}

	var limiter *rate.Limiter
	if cfg.MaxPostsPerHour > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Hour/time.Duration(cfg.MaxPostsPerHour)), cfg.MaxPostsPerHour)
	}

	p := &TwitterPublisher{
		cfg:     cfg,
		baseURL: baseURL,
		client:  client,
		limiter: limiter,
		logger:  logger,
	}
	// Only operation failures count toward opening the breaker.
	p.breaker = circuitbreaker.NewBuilder[any]().
		HandleIf(func(_ any, err error) bool {
			return err != nil && failure.KindOf(err) == failure.KindOperation
		}).
		WithFailureThreshold(5).
		WithDelay(2 * time.Minute).
		OnStateChanged(func(event circuitbreaker.StateChangedEvent) {
			logger.WithFields(logging.Fields{
				"from_state": stateName(event.OldState),
				"to_state":   stateName(event.NewState),
			}).Warn("publisher circuit breaker state change")
		}).
		Build()
	return p
}

// Publish makes a single attempt to post req.Text.
func (p *TwitterPublisher) Publish(ctx context.Context, req Request) error {
	if strings.TrimSpace(p.cfg.AccessToken) == "" {
		return failure.Configuration(missingCredentials)
	}
	if strings.TrimSpace(req.Text) == "" {
		return failure.Operationf("post text is empty")
	}
	if p.limiter != nil && !p.limiter.Allow() {
		return failure.Operationf("local post limit reached (%d per hour)", p.cfg.MaxPostsPerHour)
	}

	err := failsafe.With[any](p.breaker).WithContext(ctx).Run(func() error {
		return p.createTweet(ctx, req)
	})
	if errors.Is(err, circuitbreaker.ErrOpen) {
		return failure.Operationf("publisher circuit open after repeated failures; try again later")
	}
	return err
}

func (p *TwitterPublisher) createTweet(ctx context.Context, req Request) error {
	body, err := json.Marshal(createTweetPayload{Text: req.Text})
	if err != nil {
		return failure.Operation(err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+createTweetPath, bytes.NewReader(body))
	if err != nil {
		return failure.Operation(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return failure.Operation(fmt.Errorf("post tweet: %w", err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return failure.Operation(fmt.Errorf("read X API response: %w", err))
	}
	var data createTweetResp
	decodeErr := json.Unmarshal(raw, &data)

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return failure.Configuration(fmt.Sprintf("X API rejected the account credentials: %s", data.detail(resp.Status)))
	case resp.StatusCode == http.StatusTooManyRequests:
		return failure.Operationf("X API rate limit exceeded: %s", data.detail(resp.Status))
	case resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices:
		return failure.Operationf("X API error: %s", data.detail(resp.Status))
	case decodeErr != nil:
		return failure.Operation(fmt.Errorf("decode X API response: %w", decodeErr))
	case data.Data.ID == "":
		return failure.Operationf("failed to create tweet: %s", data.detail(resp.Status))
	}

	p.logger.WithFields(logging.Fields{
		"tweet_id": data.Data.ID,
		"trigger":  req.Metadata[MetaTrigger],
		"metadata": req.Metadata,
	}).Info("Tweet published")
	return nil
}

func stateName(state circuitbreaker.State) string {
	switch state {
	case circuitbreaker.OpenState:
		return "open"
	case circuitbreaker.HalfOpenState:
		return "half-open"
	default:
		return "closed"
	}
}

func (r createTweetResp) detail(status string) string {
	switch {
	case r.Detail != "":
		return r.Detail
	case len(r.Errors) > 0 && r.Errors[0].Message != "":
		return r.Errors[0].Message
	case len(r.Errors) > 0 && r.Errors[0].Detail != "":
		return r.Errors[0].Detail
	case r.Title != "":
		return r.Title
	default:
		return status
	}
}
